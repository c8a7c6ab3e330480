package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/goodssearch/internal/builder"
	"github.com/utafrali/goodssearch/internal/codec"
	"github.com/utafrali/goodssearch/internal/engine/memory"
	"github.com/utafrali/goodssearch/internal/facet"
	"github.com/utafrali/goodssearch/internal/gateway/gatewaytest"
	"github.com/utafrali/goodssearch/internal/service"
	apperrors "github.com/utafrali/goodssearch/pkg/errors"
	pkgkafka "github.com/utafrali/goodssearch/pkg/kafka"
)

type fakeIndexer struct {
	indexed   []int64
	removed   []int64
	indexErr  error
	removeErr error
}

func (f *fakeIndexer) Index(_ context.Context, id int64) error {
	f.indexed = append(f.indexed, id)
	return f.indexErr
}

func (f *fakeIndexer) Remove(_ context.Context, id int64) error {
	f.removed = append(f.removed, id)
	return f.removeErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEvent(t *testing.T, eventType, aggregateID string, data any) *pkgkafka.Event {
	t.Helper()
	e, err := pkgkafka.NewEvent(eventType, aggregateID, data)
	require.NoError(t, err)
	return e
}

func TestConsumer_Handle_Dispatch(t *testing.T) {
	tests := []struct {
		name        string
		eventType   string
		wantIndexed []int64
		wantRemoved []int64
	}{
		{"insert indexes", TopicItemInsert, []int64{42}, nil},
		{"update indexes", TopicItemUpdate, []int64{42}, nil},
		{"delete removes", TopicItemDelete, nil, []int64{42}},
		{"unknown is ignored", "ecommerce.item.archived", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &fakeIndexer{}
			c := NewConsumer(idx, testLogger())

			require.NoError(t, c.Handle(context.Background(), newEvent(t, tt.eventType, "42", nil)))
			assert.Equal(t, tt.wantIndexed, idx.indexed)
			assert.Equal(t, tt.wantRemoved, idx.removed)
		})
	}
}

func TestConsumer_Handle_IDFromData(t *testing.T) {
	idx := &fakeIndexer{}
	c := NewConsumer(idx, testLogger())

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicItemInsert, "", ItemEventData{ID: 7})))
	assert.Equal(t, []int64{7}, idx.indexed)
}

func TestConsumer_Handle_BadID(t *testing.T) {
	tests := []struct {
		name        string
		aggregateID string
		data        any
		wantErr     error
	}{
		{"non-numeric aggregate id", "abc", nil, nil},
		{"no id anywhere", "", nil, ErrMissingProductID},
		{"zero data id", "", ItemEventData{}, ErrMissingProductID},
		{"data is not an object", "", []int{1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &fakeIndexer{}
			c := NewConsumer(idx, testLogger())

			err := c.Handle(context.Background(), newEvent(t, TopicItemUpdate, tt.aggregateID, tt.data))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, idx.indexed)
		})
	}
}

func TestConsumer_Handle_IndexFailureIsReturned(t *testing.T) {
	boom := apperrors.Unavailable("item-service", errors.New("down"))
	idx := &fakeIndexer{indexErr: boom}
	c := NewConsumer(idx, testLogger())

	err := c.Handle(context.Background(), newEvent(t, TopicItemInsert, "1", nil))
	assert.ErrorIs(t, err, apperrors.ErrCollaboratorUnavailable)
	assert.Empty(t, idx.removed)
}

func TestConsumer_Handle_DeletedProductIsRemoved(t *testing.T) {
	idx := &fakeIndexer{indexErr: fmt.Errorf("index goods 3: %w", builder.ErrProductGone)}
	c := NewConsumer(idx, testLogger())

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicItemUpdate, "3", nil)))
	assert.Equal(t, []int64{3}, idx.removed)
}

func TestConsumer_Handle_DanglingReferenceIsReturned(t *testing.T) {
	idx := &fakeIndexer{indexErr: apperrors.NotFound("brand", int64(7))}
	c := NewConsumer(idx, testLogger())

	err := c.Handle(context.Background(), newEvent(t, TopicItemUpdate, "3", nil))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, idx.removed)
}

func newSearchService(catalog *gatewaytest.Catalog, store *memory.Engine) *service.SearchService {
	return service.NewSearchService(
		builder.New(catalog, codec.NewJSON()),
		store,
		facet.New(store, catalog),
		service.Options{},
		testLogger(),
	)
}

func TestConsumer_Update_KeepsDocumentWhenBrandMissing(t *testing.T) {
	catalog := gatewaytest.NewCatalog()
	gatewaytest.SeedPhoneX(catalog)
	store := memory.New()
	svc := newSearchService(catalog, store)
	require.NoError(t, svc.Index(context.Background(), gatewaytest.PhoneXID))
	require.Equal(t, 1, store.Len())

	catalog.Fail(gatewaytest.MethodBrand, apperrors.NotFound("brand", gatewaytest.AcmeID))
	c := NewConsumer(svc, testLogger())

	err := c.Handle(context.Background(), newEvent(t, TopicItemUpdate, "1", nil))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(gatewaytest.PhoneXID)
	assert.True(t, ok)
}

func TestConsumer_Update_RemovesDeletedProduct(t *testing.T) {
	catalog := gatewaytest.NewCatalog()
	gatewaytest.SeedPhoneX(catalog)
	store := memory.New()
	svc := newSearchService(catalog, store)
	require.NoError(t, svc.Index(context.Background(), gatewaytest.PhoneXID))

	catalog.Fail(gatewaytest.MethodSpu, apperrors.NotFound("spu", gatewaytest.PhoneXID))
	c := NewConsumer(svc, testLogger())

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicItemUpdate, "1", nil)))
	assert.Equal(t, 0, store.Len())
}

func TestConsumer_Handle_DeleteFailure(t *testing.T) {
	idx := &fakeIndexer{removeErr: errors.New("store down")}
	c := NewConsumer(idx, testLogger())

	assert.Error(t, c.Handle(context.Background(), newEvent(t, TopicItemDelete, "3", nil)))
}

func TestConsumer_IdempotentRedelivery(t *testing.T) {
	idx := &fakeIndexer{}
	c := NewConsumer(idx, testLogger())
	h := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Minute), c.Handle, testLogger())

	e := newEvent(t, TopicItemInsert, "9", nil)
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	assert.Equal(t, []int64{9}, idx.indexed)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{
		pkgkafka.Topic("item", "insert"),
		pkgkafka.Topic("item", "update"),
		pkgkafka.Topic("item", "delete"),
	}, Topics())
}
