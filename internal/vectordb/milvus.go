package vectordb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

const (
	milvusIDField     = "id"
	milvusTextField   = "text"
	milvusVectorField = "embedding"
	// milvusMaxText is the VARCHAR limit of the text field.
	milvusMaxText = 65535
)

// MilvusOptions configures a Milvus connection.
type MilvusOptions struct {
	Address  string
	Username string
	Password string
	Database string
	Timeout  time.Duration
	NList    int
	NProbe   int
}

// MilvusIndex stores units in a Milvus collection with an IVF_FLAT index
// using the COSINE metric. Milvus assigns the ids.
type MilvusIndex struct {
	client *milvusclient.Client
	name   string
	dim    int
	nprobe int
}

// OpenMilvus connects to Milvus and opens the named collection, creating
// the schema, index and load state only when the collection is absent.
func OpenMilvus(ctx context.Context, opts MilvusOptions, name string, dim int) (*MilvusIndex, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(connectCtx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, unavailable("connect to milvus", err)
	}

	m := &MilvusIndex{client: c, name: name, dim: dim, nprobe: max(1, opts.NProbe)}
	if err := m.ensureCollection(ctx, max(1, opts.NList)); err != nil {
		c.Close(ctx)
		return nil, err
	}
	return m, nil
}

func (m *MilvusIndex) ensureCollection(ctx context.Context, nlist int) error {
	exists, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(m.name))
	if err != nil {
		return unavailable("check collection", err)
	}

	if exists {
		coll, err := m.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(m.name))
		if err != nil {
			return unavailable("describe collection", err)
		}
		for _, f := range coll.Schema.Fields {
			if f.Name != milvusVectorField {
				continue
			}
			if stored, err := strconv.Atoi(f.TypeParams["dim"]); err == nil && stored != m.dim {
				return fmt.Errorf("%w: collection %q was created with %d dimensions, embedder produces %d",
					ErrDimensionMismatch, m.name, stored, m.dim)
			}
		}
	} else {
		schema := entity.NewSchema().
			WithName(m.name).
			WithDescription("podcast transcript chunks").
			WithAutoID(true).
			WithField(entity.NewField().
				WithName(milvusIDField).
				WithDataType(entity.FieldTypeInt64).
				WithIsPrimaryKey(true).
				WithIsAutoID(true)).
			WithField(entity.NewField().
				WithName(milvusTextField).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(milvusMaxText)).
			WithField(entity.NewField().
				WithName(milvusVectorField).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(m.dim)))

		if err := m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(m.name, schema)); err != nil {
			return unavailable("create collection", err)
		}

		idx := index.NewIvfFlatIndex(entity.COSINE, nlist)
		task, err := m.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(m.name, milvusVectorField, idx))
		if err != nil {
			return unavailable("create index", err)
		}
		if err := task.Await(ctx); err != nil {
			return unavailable("wait for index", err)
		}
	}

	loadTask, err := m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.name))
	if err != nil {
		return unavailable("load collection", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return unavailable("wait for load", err)
	}
	return nil
}

func (m *MilvusIndex) Name() string   { return m.name }
func (m *MilvusIndex) Dimension() int { return m.dim }

func (m *MilvusIndex) Size(ctx context.Context) (int, error) {
	stats, err := m.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(m.name))
	if err != nil {
		return 0, unavailable("collection stats", err)
	}
	val, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing row_count %q: %w", val, err)
	}
	return n, nil
}

// InsertBatch sends the batch as one column-based insert; Milvus applies
// a single insert request atomically.
func (m *MilvusIndex) InsertBatch(ctx context.Context, entries []Entry) ([]int64, error) {
	if err := CheckBatch(m.dim, entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	texts := make([]string, len(entries))
	vecs := make([][]float32, len(entries))
	for i, e := range entries {
		if len(e.Text) > milvusMaxText {
			return nil, fmt.Errorf("entry %d: text of %d bytes exceeds the %d byte limit", i, len(e.Text), milvusMaxText)
		}
		texts[i] = e.Text
		vecs[i] = e.Vector
	}

	result, err := m.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(m.name,
		column.NewColumnVarChar(milvusTextField, texts),
		column.NewColumnFloatVector(milvusVectorField, m.dim, vecs),
	))
	if err != nil {
		return nil, unavailable("insert", err)
	}

	idCol, ok := result.IDs.(*column.ColumnInt64)
	if !ok {
		return nil, fmt.Errorf("milvus returned %T ids, expected int64", result.IDs)
	}
	return idCol.Data(), nil
}

func (m *MilvusIndex) Flush(ctx context.Context) error {
	task, err := m.client.Flush(ctx, milvusclient.NewFlushOption(m.name))
	if err != nil {
		return unavailable("flush", err)
	}
	if err := task.Await(ctx); err != nil {
		return unavailable("wait for flush", err)
	}
	return nil
}

func (m *MilvusIndex) Search(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if err := CheckQuery(m.dim, vec); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	results, err := m.client.Search(ctx, milvusclient.NewSearchOption(
		m.name,
		k,
		[]entity.Vector{entity.FloatVector(vec)},
	).WithANNSField(milvusVectorField).
		WithSearchParam("nprobe", strconv.Itoa(m.nprobe)).
		WithOutputFields(milvusTextField))
	if err != nil {
		return nil, unavailable("search", err)
	}
	if len(results) == 0 {
		return []Hit{}, nil
	}

	rs := results[0]
	idCol, ok := rs.IDs.(*column.ColumnInt64)
	if !ok {
		return nil, fmt.Errorf("milvus returned %T ids, expected int64", rs.IDs)
	}
	var texts []string
	for _, field := range rs.Fields {
		if col, ok := field.(*column.ColumnVarChar); ok && col.Name() == milvusTextField {
			texts = col.Data()
		}
	}
	return milvusHits(idCol.Data(), rs.Scores, texts, rs.ResultCount)
}

// milvusHits zips result columns into hits sorted by score, then id.
func milvusHits(ids []int64, scores []float32, texts []string, count int) ([]Hit, error) {
	if len(ids) < count || len(scores) < count || len(texts) < count {
		return nil, fmt.Errorf("milvus result columns shorter than result count %d", count)
	}
	hits := make([]Hit, count)
	for i := range hits {
		hits[i] = Hit{ID: ids[i], Text: texts[i], Score: scores[i]}
	}
	SortHits(hits)
	return hits, nil
}

func (m *MilvusIndex) Close() error {
	return m.client.Close(context.Background())
}
