package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Event types and topics.
const (
	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
	WishlistChanged = "wishlist.changed"
)

var (
	TopicProductCreated  = pkgkafka.Topic("product", "created")
	TopicProductUpdated  = pkgkafka.Topic("product", "updated")
	TopicProductDeleted  = pkgkafka.Topic("product", "deleted")
	TopicWishlistChanged = pkgkafka.Topic("wishlist", "changed")
)

// ProductTopics lists the topics that carry catalog changes.
var ProductTopics = []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}

const (
	AggregateProduct  = "product"
	AggregateWishlist = "wishlist"
	Source            = "storefront"
)

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency"`
	CategorySlug string `json:"category_slug,omitempty"`
	Featured     bool   `json:"featured"`
	Kind         string `json:"kind,omitempty"`
}

// ProductDeletedData is the payload of product.deleted.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// WishlistChangedData is the payload of wishlist.changed.
type WishlistChangedData struct {
	Subject    string `json:"subject"`
	ProductID  string `json:"product_id"`
	Wishlisted bool   `json:"wishlisted"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog and wishlist events.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a producer on top of the shared Kafka producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:           p.ID,
		Slug:         p.Slug,
		Name:         p.Name,
		PriceCents:   p.PriceCents,
		Currency:     p.Currency,
		CategorySlug: p.CategorySlug,
		Featured:     p.Featured,
		Kind:         p.Kind,
	}
}

// PublishProductCreated publishes product.created.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, ProductCreated, product.ID, AggregateProduct, productData(product))
}

// PublishProductUpdated publishes product.updated.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, ProductUpdated, product.ID, AggregateProduct, productData(product))
}

// PublishProductDeleted publishes product.deleted.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicProductDeleted, ProductDeleted, id, AggregateProduct, ProductDeletedData{ID: id})
}

// PublishWishlistChanged publishes wishlist.changed once a toggle is confirmed.
func (p *Producer) PublishWishlistChanged(ctx context.Context, subject, productID string, wishlisted bool) error {
	data := WishlistChangedData{Subject: subject, ProductID: productID, Wishlisted: wishlisted}
	return p.publish(ctx, TopicWishlistChanged, WishlistChanged, productID, AggregateWishlist, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}
	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
