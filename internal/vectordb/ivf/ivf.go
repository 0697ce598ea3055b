// Package ivf implements an inverted-file index for cosine similarity over
// unit-length float32 vectors.
//
// Vectors are partitioned by spherical k-means into at most NList cells.
// A query scores every centroid, scans the NProbe closest cells and, when
// those hold fewer than k vectors, keeps adding cells in centroid order
// until k candidates are available. Candidates are rescored exactly, so
// returned scores are true cosine similarities.
package ivf

import (
	"math"
	"runtime"
	"slices"
	"sync"
)

const (
	// DefaultNList is the upper bound on the number of cells.
	DefaultNList = 128
	// DefaultNProbe is the number of cells scanned per query.
	DefaultNProbe = 10
	// DefaultIterations bounds k-means refinement.
	DefaultIterations = 10

	// samplesPerList caps the training set at samplesPerList*nlist vectors.
	samplesPerList = 64
	// flatThreshold is the collection size below which no partitioning is done.
	flatThreshold = 64
)

// Params tunes the partitioning. Zero values select the defaults.
type Params struct {
	NList      int
	NProbe     int
	Iterations int
}

func (p Params) withDefaults() Params {
	if p.NList <= 0 {
		p.NList = DefaultNList
	}
	if p.NProbe <= 0 {
		p.NProbe = DefaultNProbe
	}
	if p.Iterations <= 0 {
		p.Iterations = DefaultIterations
	}
	return p
}

// Result is one search hit. Pos is the vector's position in the slice
// passed to Build.
type Result struct {
	Pos   int
	Score float32
}

// Index is immutable after Build and safe for concurrent searches.
type Index struct {
	dim       int
	nprobe    int
	vectors   [][]float32
	centroids [][]float32
	lists     [][]int32
}

// Build partitions vectors, which must all be unit length (or zero) and
// share the same dimension. The result is deterministic for a given input.
func Build(vectors [][]float32, p Params) *Index {
	p = p.withDefaults()
	ix := &Index{vectors: vectors, nprobe: p.NProbe}
	if len(vectors) == 0 {
		return ix
	}
	ix.dim = len(vectors[0])

	nlist := min(p.NList, int(math.Ceil(math.Sqrt(float64(len(vectors))))))
	if len(vectors) < flatThreshold || nlist <= 1 {
		all := make([]int32, len(vectors))
		for i := range all {
			all[i] = int32(i)
		}
		ix.centroids = [][]float32{nil}
		ix.lists = [][]int32{all}
		return ix
	}

	ix.centroids = train(vectors, nlist, p.Iterations)

	assign := assignAll(vectors, ix.centroids)
	ix.lists = make([][]int32, len(ix.centroids))
	for i, c := range assign {
		ix.lists[c] = append(ix.lists[c], int32(i))
	}
	return ix
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// NList returns the number of cells actually built.
func (ix *Index) NList() int { return len(ix.lists) }

// Search returns up to k results ordered by descending score, ties broken
// by ascending position. The result length is min(k, Len()).
func (ix *Index) Search(query []float32, k int) []Result {
	if k <= 0 || len(ix.vectors) == 0 {
		return nil
	}
	k = min(k, len(ix.vectors))

	order := ix.probeOrder(query)
	candidates := 0
	var probed []int
	for i, c := range order {
		if i >= ix.nprobe && candidates >= k {
			break
		}
		probed = append(probed, c)
		candidates += len(ix.lists[c])
	}

	results := make([]Result, 0, candidates)
	for _, c := range probed {
		for _, pos := range ix.lists[c] {
			results = append(results, Result{Pos: int(pos), Score: Dot(query, ix.vectors[pos])})
		}
	}
	Sort(results)
	return results[:min(k, len(results))]
}

// probeOrder ranks cells by centroid similarity to the query.
func (ix *Index) probeOrder(query []float32) []int {
	order := make([]int, len(ix.lists))
	for i := range order {
		order[i] = i
	}
	if len(ix.lists) == 1 {
		return order
	}
	scores := make([]float32, len(ix.centroids))
	for i, c := range ix.centroids {
		scores[i] = Dot(query, c)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return a - b
	})
	return order
}

// Sort orders results by descending score, then ascending position.
func Sort(results []Result) {
	slices.SortFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return a.Pos - b.Pos
	})
}

// Dot returns the inner product of a and b.
func Dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) * inv)
	}
	return out
}

// train runs spherical k-means over an evenly strided sample.
func train(vectors [][]float32, nlist, iterations int) [][]float32 {
	sample := vectors
	if limit := samplesPerList * nlist; len(vectors) > limit {
		step := float64(len(vectors)) / float64(limit)
		sample = make([][]float32, limit)
		for i := range sample {
			sample[i] = vectors[int(float64(i)*step)]
		}
	}

	// Seed with evenly spaced sample points.
	centroids := make([][]float32, nlist)
	step := float64(len(sample)) / float64(nlist)
	for i := range centroids {
		centroids[i] = slices.Clone(sample[int(float64(i)*step)])
	}

	dim := len(vectors[0])
	prev := make([]int, len(sample))
	for i := range prev {
		prev[i] = -1
	}
	for iter := 0; iter < iterations; iter++ {
		assign := assignAll(sample, centroids)

		changed := 0
		for i, c := range assign {
			if prev[i] != c {
				changed++
			}
		}
		prev = assign
		if changed == 0 {
			break
		}

		sums := make([][]float64, nlist)
		counts := make([]int, nlist)
		for i, c := range assign {
			if sums[c] == nil {
				sums[c] = make([]float64, dim)
			}
			for d, f := range sample[i] {
				sums[c][d] += float64(f)
			}
			counts[c]++
		}
		for c := range centroids {
			// Empty cells keep their previous centroid.
			if counts[c] == 0 {
				continue
			}
			mean := make([]float32, dim)
			for d := range mean {
				mean[d] = float32(sums[c][d])
			}
			centroids[c] = Normalize(mean)
		}
	}
	return centroids
}

// assignAll maps each vector to its most similar centroid, lowest index on
// ties. Work is split across GOMAXPROCS goroutines.
func assignAll(vectors [][]float32, centroids [][]float32) []int {
	assign := make([]int, len(vectors))
	workers := min(runtime.GOMAXPROCS(0), len(vectors))
	chunk := (len(vectors) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(vectors); start += chunk {
		end := min(start+chunk, len(vectors))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				best, bestScore := 0, float32(math.Inf(-1))
				for c, cent := range centroids {
					if s := Dot(vectors[i], cent); s > bestScore {
						best, bestScore = c, s
					}
				}
				assign[i] = best
			}
		}(start, end)
	}
	wg.Wait()
	return assign
}
