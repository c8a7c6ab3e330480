package elasticsearch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/engine"
	esengine "github.com/utafrali/goodssearch/internal/engine/elasticsearch"
)

// testLogger returns a discard logger suitable for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine creates an Elasticsearch engine for integration tests.
// It skips the test if ELASTICSEARCH_URL is not set.
func newTestEngine(t *testing.T) *esengine.Engine {
	t.Helper()

	esURL := os.Getenv("ELASTICSEARCH_URL")
	if esURL == "" {
		t.Skip("ELASTICSEARCH_URL not set, skipping Elasticsearch integration tests")
	}

	indexName := fmt.Sprintf("test_goods_%d", time.Now().UnixNano())

	eng, err := esengine.New(esURL, indexName, testLogger())
	require.NoError(t, err, "failed to create Elasticsearch engine")

	t.Cleanup(func() {
		_ = eng.DeleteIndex(context.Background())
	})

	return eng
}

func phoneGoods(id, brandID int64, ram string) *domain.Goods {
	return &domain.Goods{
		ID:       id,
		All:      "Phone X Electronics Phones Smartphones Acme",
		SubTitle: "Phone X",
		Cid1:     1,
		Cid2:     2,
		Cid3:     3,
		BrandID:  brandID,
		Price:    []int64{59900},
		Skus:     `[{"id":10,"title":"Phone X","price":59900,"image":""}]`,
		Specs: map[string]domain.SpecValue{
			"RAM":   domain.Scalar(ram),
			"Color": domain.List("black", "white"),
		},
	}
}

func TestES_UpsertQueryDelete(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Upsert(ctx, phoneGoods(1, 7, "4GB-8GB")))
	require.NoError(t, eng.Upsert(ctx, phoneGoods(2, 8, "8GB and above")))

	q := &engine.Query{
		Bool: engine.BoolQuery{
			Must:   []engine.Match{{Field: engine.FieldAll, Query: "phone acme", Operator: engine.OperatorAnd}},
			Filter: []engine.Term{{Field: engine.SpecField("RAM"), Value: "4GB-8GB"}},
		},
		Size: 10,
		Aggs: []engine.TermsAgg{{Name: "brands", Field: engine.FieldBrandID}},
	}

	res, err := eng.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Aggregations["brands"], 1)
	assert.Equal(t, "7", res.Aggregations["brands"][0].Key)

	require.NoError(t, eng.Delete(ctx, 1))
	require.NoError(t, eng.Delete(ctx, 1), "deleting an absent document must succeed")

	res, err = eng.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
}

func TestES_Ping(t *testing.T) {
	eng := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, eng.Ping(ctx))
}
