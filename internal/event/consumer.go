package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// ListingInvalidator drops cached product listings.
type ListingInvalidator interface {
	InvalidateListings(ctx context.Context) error
}

// NewProductHandler returns a handler that clears the listing cache whenever
// another replica reports a catalog change. Events from other sources and of
// unknown types are ignored.
func NewProductHandler(inv ListingInvalidator, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, ev *pkgkafka.Event) error {
		switch ev.EventType {
		case ProductCreated, ProductUpdated, ProductDeleted:
		default:
			logger.DebugContext(ctx, "ignoring event", slog.String("event_type", ev.EventType))
			return nil
		}

		if err := inv.InvalidateListings(ctx); err != nil {
			return fmt.Errorf("invalidate listings after %s: %w", ev.EventType, err)
		}
		logger.InfoContext(ctx, "listing cache invalidated",
			slog.String("event_type", ev.EventType),
			slog.String("product_id", ev.AggregateID),
		)
		return nil
	}
}

// ConsumerConfigs returns one consumer configuration per product topic.
func ConsumerConfigs(brokers []string, groupID string) []pkgkafka.ConsumerConfig {
	cfgs := make([]pkgkafka.ConsumerConfig, 0, len(ProductTopics))
	for _, topic := range ProductTopics {
		cfgs = append(cfgs, pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		})
	}
	return cfgs
}
