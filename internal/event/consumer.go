// Package event maps item change notifications onto index and remove
// operations.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/utafrali/goodssearch/internal/builder"
	pkgkafka "github.com/utafrali/goodssearch/pkg/kafka"
)

// Item change event types. Each is published on the topic of the same name.
const (
	TopicItemInsert = "ecommerce.item.insert"
	TopicItemUpdate = "ecommerce.item.update"
	TopicItemDelete = "ecommerce.item.delete"
)

// Topics lists every topic the consumer handles.
func Topics() []string {
	return []string{TopicItemInsert, TopicItemUpdate, TopicItemDelete}
}

// ErrMissingProductID is returned for events that name no product.
var ErrMissingProductID = errors.New("event carries no product id")

// Indexer is the part of the search facade driven by change notifications.
type Indexer interface {
	Index(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
}

// ItemEventData is the payload of item events. Only the id is read.
type ItemEventData struct {
	ID int64 `json:"id"`
}

// Consumer handles item change events.
type Consumer struct {
	indexer Indexer
	logger  *slog.Logger
}

// NewConsumer creates a new item event consumer.
func NewConsumer(indexer Indexer, logger *slog.Logger) *Consumer {
	return &Consumer{indexer: indexer, logger: logger}
}

// Handle dispatches on the event type. Unknown types are logged and
// acknowledged.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicItemInsert, TopicItemUpdate:
		return c.handleUpsert(ctx, event)
	case TopicItemDelete:
		return c.handleDelete(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleUpsert re-indexes the product. When the product itself is gone the
// document is removed instead, so a late update for a deleted product does
// not fail forever. Any other build failure is returned and the prior
// document stays in place.
func (c *Consumer) handleUpsert(ctx context.Context, event *pkgkafka.Event) error {
	id, err := productID(event)
	if err != nil {
		return fmt.Errorf("%s: %w", event.EventType, err)
	}

	err = c.indexer.Index(ctx, id)
	if errors.Is(err, builder.ErrProductGone) {
		c.logger.WarnContext(ctx, "product no longer exists, removing from index",
			slog.Int64("spu_id", id),
			slog.String("event_type", event.EventType),
		)
		if err := c.indexer.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove deleted goods from %s event: %w", event.EventType, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("index goods from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed goods from event",
		slog.Int64("spu_id", id),
		slog.String("event_type", event.EventType),
	)
	return nil
}

func (c *Consumer) handleDelete(ctx context.Context, event *pkgkafka.Event) error {
	id, err := productID(event)
	if err != nil {
		return fmt.Errorf("%s: %w", event.EventType, err)
	}

	if err := c.indexer.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove goods from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "removed goods from event", slog.Int64("spu_id", id))
	return nil
}

// productID reads the aggregate id, falling back to data.id.
func productID(event *pkgkafka.Event) (int64, error) {
	if raw := strings.TrimSpace(event.AggregateID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse aggregate id %q: %w", raw, err)
		}
		return id, nil
	}

	var data ItemEventData
	if err := event.DecodeData(&data); err != nil {
		if errors.Is(err, pkgkafka.ErrEmptyPayload) {
			return 0, ErrMissingProductID
		}
		return 0, fmt.Errorf("decode event data: %w", err)
	}
	if data.ID == 0 {
		return 0, ErrMissingProductID
	}
	return data.ID, nil
}
