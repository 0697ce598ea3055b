// Package ingest loads a transcript corpus into a vector index exactly once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/ziadkadry99/podcast-rag/internal/embeddings"
	"github.com/ziadkadry99/podcast-rag/internal/logging"
	"github.com/ziadkadry99/podcast-rag/internal/transcript"
	"github.com/ziadkadry99/podcast-rag/internal/vectordb"
)

// DefaultBatchSize is the number of chunks embedded and inserted together.
const DefaultBatchSize = 100

// ErrIncompleteIngestion means the index holds units but no completion
// marker exists, so an earlier run most likely stopped part way.
var ErrIncompleteIngestion = errors.New("index is non-empty but has no completion marker")

// memoryStates holds completion markers for pipelines without a StateDir,
// keyed by index, so they last as long as the process.
var memoryStates sync.Map // vectordb.Index -> *State

// ProgressFunc is called after each batch is inserted.
type ProgressFunc func(done, total int)

// Options configures a Pipeline.
type Options struct {
	CorpusDir string
	Include   []string
	Exclude   []string
	// StateDir holds state.json with the completion markers. Empty keeps
	// markers in process memory.
	StateDir    string
	BatchSize   int
	Concurrency int
	// TrustNonEmpty treats a non-empty index without a marker as loaded.
	TrustNonEmpty bool
}

// Result summarises a pipeline run.
type Result struct {
	RunID        string
	Skipped      bool
	SkipReason   string
	CorpusStale  bool // Skipped, but the corpus changed since the marker was written.
	Documents    int
	SkippedFiles []string
	Units        int
	Batches      int
	Duration     time.Duration
}

// Pipeline drives transcript discovery, chunking, embedding and insertion.
type Pipeline struct {
	index      vectordb.Index
	embedder   embeddings.Embedder
	chunker    *transcript.Chunker
	opts       Options
	logger     *slog.Logger
	onProgress ProgressFunc
}

// NewPipeline creates a new Pipeline.
func NewPipeline(index vectordb.Index, embedder embeddings.Embedder, chunker *transcript.Chunker, opts Options, logger *slog.Logger) *Pipeline {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		index:    index,
		embedder: embedder,
		chunker:  chunker,
		opts:     opts,
		logger:   logger.With("component", "ingest", "collection", index.Name()),
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// Run loads the corpus unless the collection is already marked complete.
// On any batch failure it returns the error without flushing or writing a
// marker; units from earlier batches stay in the index and the next run
// reports ErrIncompleteIngestion.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, result.RunID)

	state, err := p.loadState()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	size, err := p.index.Size(ctx)
	if err != nil {
		return nil, err
	}

	marker := state.Marker(p.index.Name())
	if marker != nil && size != marker.Units {
		if size > 0 {
			return nil, fmt.Errorf("%w: collection %q holds %d units but run %s completed with %d",
				ErrIncompleteIngestion, p.index.Name(), size, marker.RunID, marker.Units)
		}
		p.logger.WarnContext(ctx, "completion marker found over an empty index; reloading corpus", "marker_run", marker.RunID)
		delete(state.Collections, p.index.Name())
		marker = nil
	}

	if marker != nil {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("corpus loaded by run %s at %s", marker.RunID, marker.CompletedAt.Format(time.RFC3339))
		if files, err := p.discover(nil); err != nil {
			p.logger.WarnContext(ctx, "could not check corpus for changes", "error", err)
		} else if transcript.Checksum(files) != marker.CorpusChecksum {
			result.CorpusStale = true
			p.logger.WarnContext(ctx, "corpus changed since last ingestion; delete the index to reload", "marker_run", marker.RunID)
		}
		result.Duration = time.Since(start)
		return result, nil
	}

	if size > 0 {
		if !p.opts.TrustNonEmpty {
			return nil, fmt.Errorf("%w: collection %q holds %d units", ErrIncompleteIngestion, p.index.Name(), size)
		}
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("index holds %d units", size)
		p.logger.WarnContext(ctx, "skipping ingestion of unmarked non-empty index", "units", size)
		result.Duration = time.Since(start)
		return result, nil
	}

	files, err := p.discover(func(relPath string, _ error) {
		result.SkippedFiles = append(result.SkippedFiles, relPath)
	})
	if err != nil {
		return nil, err
	}

	texts := p.collectChunks(ctx, files, result)
	result.Units = len(texts)
	if len(texts) == 0 {
		p.logger.WarnContext(ctx, "no transcript chunks found", "dir", p.opts.CorpusDir)
		result.Duration = time.Since(start)
		return result, nil
	}

	batches := partition(texts, p.opts.BatchSize)
	result.Batches = len(batches)
	p.logger.InfoContext(ctx, "ingesting corpus", "documents", result.Documents, "chunks", len(texts), "batches", len(batches))

	if err := p.insertBatches(ctx, batches, len(texts)); err != nil {
		return nil, err
	}

	if err := p.index.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	state.Collections[p.index.Name()] = &Marker{
		RunID:          result.RunID,
		CorpusChecksum: transcript.Checksum(files),
		Documents:      result.Documents,
		Units:          result.Units,
		CompletedAt:    time.Now().UTC(),
	}
	if err := state.Save(p.opts.StateDir); err != nil {
		return nil, fmt.Errorf("save completion marker: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.InfoContext(ctx, "ingestion complete", "units", result.Units, "duration", result.Duration)
	return result, nil
}

func (p *Pipeline) loadState() (*State, error) {
	if p.opts.StateDir != "" {
		return LoadState(p.opts.StateDir)
	}
	state, _ := memoryStates.LoadOrStore(p.index, newState())
	return state.(*State), nil
}

// discover lists the corpus. onSkip, if set, receives files that could not
// be read.
func (p *Pipeline) discover(onSkip func(relPath string, err error)) ([]transcript.File, error) {
	return transcript.Discover(transcript.DiscoverOptions{
		RootDir: p.opts.CorpusDir,
		Include: p.opts.Include,
		Exclude: p.opts.Exclude,
		Logger:  p.logger,
		OnSkip:  onSkip,
	})
}

// collectChunks reads every transcript and returns all chunk texts in
// document order. Unreadable documents are logged and skipped.
func (p *Pipeline) collectChunks(ctx context.Context, files []transcript.File, result *Result) []string {
	var texts []string
	for _, f := range files {
		doc, err := transcript.Read(f.Path, f.RelPath)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping transcript", "file", f.RelPath, "error", err)
			result.SkippedFiles = append(result.SkippedFiles, f.RelPath)
			continue
		}
		result.Documents++
		for text := range p.chunker.Texts(doc.Lines) {
			texts = append(texts, text)
		}
	}
	return texts
}

func partition(texts []string, size int) [][]string {
	batches := make([][]string, 0, (len(texts)+size-1)/size)
	for i := 0; i < len(texts); i += size {
		batches = append(batches, texts[i:min(i+size, len(texts))])
	}
	return batches
}

// insertBatches embeds and inserts each batch. With Concurrency > 1 the
// batches run on an ants pool and the first failure cancels the rest.
func (p *Pipeline) insertBatches(ctx context.Context, batches [][]string, total int) error {
	var done atomic.Int64
	process := func(ctx context.Context, i int, batch []string) error {
		if err := p.insertBatch(ctx, batch); err != nil {
			return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		n := done.Add(int64(len(batch)))
		if p.onProgress != nil {
			p.onProgress(int(n), total)
		}
		return nil
	}

	if p.opts.Concurrency == 1 || len(batches) == 1 {
		for i, batch := range batches {
			if err := process(ctx, i, batch); err != nil {
				return err
			}
		}
		return nil
	}

	pool, err := ants.NewPool(p.opts.Concurrency)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := process(ctx, i, batch); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch %d: %w", i+1, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (p *Pipeline) insertBatch(ctx context.Context, batch []string) error {
	vecs, err := p.embedder.Embed(ctx, batch)
	if err != nil {
		return err
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", embeddings.ErrEmbeddingFailure, len(vecs), len(batch))
	}

	entries := make([]vectordb.Entry, len(batch))
	for i := range batch {
		entries[i] = vectordb.Entry{Text: batch[i], Vector: vecs[i]}
	}
	_, err = p.index.InsertBatch(ctx, entries)
	return err
}
