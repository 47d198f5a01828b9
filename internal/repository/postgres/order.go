package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/pkg/database"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
	"github.com/utafrali/MarketGo/pkg/pagination"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID retrieves an order by its ID, eagerly loading its items with
// LEFT JOIN + JSONB_AGG in a single query.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT
			o.id, o.user_id, o.status, o.total_cents, o.shipping_address, o.delivered_at, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'product_name', oi.product_name,
						'quantity', oi.quantity,
						'price_cents', oi.price_cents,
						'discount_percent', oi.discount_percent,
						'created_at', oi.created_at
					) ORDER BY oi.created_at
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id, o.user_id, o.status, o.total_cents, o.shipping_address, o.delivered_at, o.created_at, o.updated_at`

	var (
		o         domain.Order
		itemsJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalCents,
		&o.ShippingAddress,
		&o.DeliveredAt,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	return &o, nil
}

// ListByUserID returns the user's orders, newest first, with the total count.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error) {
	return r.list(ctx, []string{"user_id = $1"}, []any{userID}, params)
}

// List returns all orders, optionally filtered by status.
func (r *OrderRepository) List(ctx context.Context, status string, params pagination.Params) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
	)

	if status != "" {
		conditions = append(conditions, "status = $1")
		args = append(args, status)
	}

	return r.list(ctx, conditions, args, params)
}

func (r *OrderRepository) list(ctx context.Context, conditions []string, args []any, params pagination.Params) ([]domain.Order, int, error) {
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() yields the total in the same query.
	query := fmt.Sprintf(`
		SELECT id, user_id, status, total_cents, shipping_address, delivered_at, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, len(args)+1, len(args)+2,
	)

	args = append(args, params.PerPage, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.TotalCents,
			&o.ShippingAddress,
			&o.DeliveredAt,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for all orders in a single query to avoid N+1.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, product_name, quantity, price_cents, discount_percent, created_at
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY created_at`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var item domain.OrderItem
			if err := itemRows.Scan(
				&item.ID,
				&item.OrderID,
				&item.ProductID,
				&item.ProductName,
				&item.Quantity,
				&item.PriceCents,
				&item.DiscountPercent,
				&item.CreatedAt,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item row: %w", err)
			}
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}

		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate order item rows: %w", err)
		}

		for i := range orders {
			items, ok := itemsByOrderID[orders[i].ID]
			if !ok {
				items = []domain.OrderItem{}
			}
			orders[i].Items = items
		}
	}

	return orders, totalCount, nil
}
