package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/event"
	"github.com/utafrali/MarketGo/internal/repository"
	"github.com/utafrali/MarketGo/pkg/database"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
	"github.com/utafrali/MarketGo/pkg/pagination"
)

// OrderService implements the business logic for order operations.
//
// Placing an order freezes the basket's current prices into order items and
// clears the basket. Stock was already reserved when items entered the
// basket, so placement does not touch it; cancellation credits the reserved
// quantities back.
type OrderService struct {
	orderRepo  repository.OrderRepository
	basketRepo repository.BasketRepository
	pool       database.DBTX
	producer   *event.Producer
	logger     *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	basketRepo repository.BasketRepository,
	pool database.DBTX,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		basketRepo: basketRepo,
		pool:       pool,
		producer:   producer,
		logger:     logger,
	}
}

// PlaceOrder converts the user's basket into an order. Item prices and names
// are copied at their current values so later catalog changes never affect
// the order. The basket is emptied in the same transaction; each line is
// cleared with a quantity-guarded delete so a basket mutated between the
// snapshot read and the commit aborts the placement instead of losing or
// double-counting a reservation.
func (s *OrderService) PlaceOrder(ctx context.Context, userID, shippingAddress string) (*domain.Order, error) {
	shippingAddress = strings.TrimSpace(shippingAddress)

	basket, err := s.basketRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load basket: %w", err)
	}
	if basket.IsEmpty() {
		return nil, apperrors.EmptyBasket()
	}

	orderID := uuid.New().String()
	now := time.Now().UTC()

	var total int64
	for i := range basket.Items {
		total += basket.Items[i].LineTotalCents()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderQuery := `
		INSERT INTO orders (id, user_id, status, total_cents, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`

	if _, err := tx.Exec(ctx, orderQuery, orderID, userID, domain.OrderStatusPending, total, shippingAddress, now); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price_cents, discount_percent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i := range basket.Items {
		item := &basket.Items[i]
		if _, err := tx.Exec(ctx, itemQuery,
			uuid.New().String(), orderID, item.ProductID, item.ProductName,
			item.Quantity, item.PriceCents, item.DiscountPercent, now,
		); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	clearQuery := `DELETE FROM basket_items WHERE basket_id = $1 AND product_id = $2 AND quantity = $3`
	for i := range basket.Items {
		item := &basket.Items[i]
		tag, err := tx.Exec(ctx, clearQuery, basket.ID, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("clear basket item %s: %w", item.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperrors.InvalidInput("basket changed while placing the order, please retry")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load placed order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int64("total_cents", order.TotalCents),
		slog.Int("items", len(order.Items)),
	)

	return order, nil
}

// GetOrder retrieves a single order. Customers can only see their own
// orders; staff can see any order.
func (s *OrderService) GetOrder(ctx context.Context, orderID, actorID, actorRole string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.UserID != actorID && !domain.IsStaff(actorRole) {
		return nil, apperrors.Forbidden("you do not have access to this order")
	}

	return order, nil
}

// ListOrders returns the actor's own orders.
func (s *OrderService) ListOrders(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error) {
	orders, total, err := s.orderRepo.ListByUserID(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// ListAllOrders returns all orders, optionally filtered by status. Staff only.
func (s *OrderService) ListAllOrders(ctx context.Context, status string, params pagination.Params) ([]domain.Order, int, error) {
	if status != "" && !domain.IsValidOrderStatus(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", status, strings.Join(domain.ValidOrderStatuses(), ", ")))
	}

	orders, total, err := s.orderRepo.List(ctx, status, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list all orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus transitions an order to a new status. Forward transitions
// move one step at a time; cancellation is allowed from any non-terminal
// status and returns the reserved stock. Cancelling an already cancelled
// order is a no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", status, strings.Join(domain.ValidOrderStatuses(), ", ")))
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if status == domain.OrderStatusCancelled {
		return s.cancel(ctx, order)
	}

	fromStatus := order.Status
	if !order.CanTransitionTo(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot transition order from %s to %s", fromStatus, status))
	}

	// The WHERE guard on the current status makes the transition atomic: a
	// racing update moves the row first and this one matches zero rows, so
	// delivered_at is stamped exactly once.
	updateQuery := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	if status == domain.OrderStatusDelivered {
		updateQuery = `UPDATE orders SET status = $1, delivered_at = NOW(), updated_at = NOW() WHERE id = $2 AND status = $3`
	}
	tag, err := s.pool.Exec(ctx, updateQuery, status, orderID, fromStatus)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("order is no longer in status %s", fromStatus))
	}
	order.Status = status
	if status == domain.OrderStatusDelivered {
		now := time.Now()
		order.DeliveredAt = &now
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, order, fromStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("from", fromStatus),
		slog.String("to", status),
	)

	return order, nil
}

// CancelOrder cancels the order on behalf of its owner. Customers can only
// cancel their own orders; staff can cancel any order.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, actorID, actorRole string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.UserID != actorID && !domain.IsStaff(actorRole) {
		return nil, apperrors.Forbidden("you do not have access to this order")
	}

	return s.cancel(ctx, order)
}

// cancel moves the order to cancelled and credits each item's quantity back
// to product stock. Already cancelled orders pass through unchanged. The
// order row is locked for the duration of the restock so two concurrent
// cancels cannot both credit stock.
func (s *OrderService) cancel(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	// Terminal statuses never regress, so the snapshot is authoritative for
	// these two checks and we can skip the transaction entirely.
	if order.Status == domain.OrderStatusCancelled {
		return order, nil
	}
	if !order.CanTransitionTo(domain.OrderStatusCancelled) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot cancel order in status %s", order.Status))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Re-read the status under a row lock. The snapshot passed in may be
	// stale by the time we get here.
	var current string
	statusLockQuery := `SELECT status FROM orders WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRow(ctx, statusLockQuery, order.ID).Scan(&current); err != nil {
		return nil, fmt.Errorf("lock order %s: %w", order.ID, err)
	}
	if current == domain.OrderStatusCancelled {
		order.Status = domain.OrderStatusCancelled
		return order, nil
	}
	order.Status = current
	if !order.CanTransitionTo(domain.OrderStatusCancelled) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot cancel order in status %s", current))
	}

	fromStatus := current

	lockQuery := `SELECT stock FROM products WHERE id = $1 FOR UPDATE`
	restockQuery := `UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2`

	for i := range order.Items {
		item := &order.Items[i]

		var stock int
		if err := tx.QueryRow(ctx, lockQuery, item.ProductID).Scan(&stock); err != nil {
			// Product rows outlive orders via ON DELETE RESTRICT, so a
			// missing row here is a real failure.
			return nil, fmt.Errorf("lock product %s: %w", item.ProductID, err)
		}

		if _, err := tx.Exec(ctx, restockQuery, item.Quantity, item.ProductID); err != nil {
			return nil, fmt.Errorf("restock product %s: %w", item.ProductID, err)
		}
	}

	statusQuery := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.Exec(ctx, statusQuery, domain.OrderStatusCancelled, order.ID); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	order.Status = domain.OrderStatusCancelled

	if err := s.producer.PublishOrderCancelled(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.cancelled event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", order.ID),
		slog.String("from", fromStatus),
	)

	return order, nil
}
