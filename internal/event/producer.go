// Package event publishes domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/MarketGo/internal/domain"
	pkgkafka "github.com/utafrali/MarketGo/pkg/kafka"
)

// Kafka topic constants for domain events.
const (
	TopicUserRegistered     = "marketgo.user.registered"
	TopicOrderCreated       = "marketgo.order.created"
	TopicOrderStatusChanged = "marketgo.order.status_changed"
	TopicOrderCancelled     = "marketgo.order.cancelled"
	TopicInventoryUpdated   = "marketgo.inventory.updated"
	TopicReviewCreated      = "marketgo.review.created"
)

// Aggregate type constants.
const (
	AggregateTypeUser    = "user"
	AggregateTypeOrder   = "order"
	AggregateTypeProduct = "product"
	AggregateTypeReview  = "review"
)

// Source identifier for events originating from this service.
const Source = "marketgo-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	TotalCents int64  `json:"total_cents"`
	ItemCount  int    `json:"item_count"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// OrderCancelledData is the payload for an order.cancelled event.
type OrderCancelledData struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

// InventoryUpdatedData is the payload for an inventory.updated event.
type InventoryUpdatedData struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}

	event, err := pkgkafka.NewEvent(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, Source, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		ItemCount:  len(order.Items),
	}

	event, err := pkgkafka.NewEvent(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, fromStatus string) error {
	data := OrderStatusChangedData{
		OrderID:    order.ID,
		UserID:     order.UserID,
		FromStatus: fromStatus,
		ToStatus:   order.Status,
	}

	event, err := pkgkafka.NewEvent(ctx, TopicOrderStatusChanged, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.String("order_id", order.ID),
		slog.String("from", fromStatus),
		slog.String("to", order.Status),
	)

	return nil
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, order *domain.Order) error {
	data := OrderCancelledData{
		OrderID: order.ID,
		UserID:  order.UserID,
	}

	event, err := pkgkafka.NewEvent(ctx, TopicOrderCancelled, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.cancelled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCancelled, event); err != nil {
		return fmt.Errorf("publish order.cancelled event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.cancelled event",
		slog.String("order_id", order.ID),
	)

	return nil
}

// PublishInventoryUpdated publishes an inventory.updated event.
func (p *Producer) PublishInventoryUpdated(ctx context.Context, productID string, stock int) error {
	data := InventoryUpdatedData{
		ProductID: productID,
		Stock:     stock,
	}

	event, err := pkgkafka.NewEvent(ctx, TopicInventoryUpdated, productID, AggregateTypeProduct, Source, data)
	if err != nil {
		return fmt.Errorf("create inventory.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicInventoryUpdated, event); err != nil {
		return fmt.Errorf("publish inventory.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published inventory.updated event",
		slog.String("product_id", productID),
		slog.Int("stock", stock),
	)

	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
	}

	event, err := pkgkafka.NewEvent(ctx, TopicReviewCreated, review.ID, AggregateTypeReview, Source, data)
	if err != nil {
		return fmt.Errorf("create review.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewCreated, event); err != nil {
		return fmt.Errorf("publish review.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.created event",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
	)

	return nil
}
