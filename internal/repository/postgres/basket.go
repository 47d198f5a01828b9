package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/pkg/database"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
)

// BasketRepository implements repository.BasketRepository using PostgreSQL.
type BasketRepository struct {
	pool database.DBTX
}

// NewBasketRepository creates a new PostgreSQL-backed basket repository.
func NewBasketRepository(pool database.DBTX) *BasketRepository {
	return &BasketRepository{pool: pool}
}

// GetByUserID retrieves the user's basket with all items. Item rows carry the
// product's current name, price, and discount.
func (r *BasketRepository) GetByUserID(ctx context.Context, userID string) (*domain.Basket, error) {
	basketQuery := `
		SELECT id, user_id, created_at, updated_at
		FROM baskets
		WHERE user_id = $1`

	var b domain.Basket
	err := r.pool.QueryRow(ctx, basketQuery, userID).Scan(&b.ID, &b.UserID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan basket: %w", err)
	}

	itemsQuery := `
		SELECT bi.id, bi.basket_id, bi.product_id, p.name, p.price_cents, p.discount_percent, bi.quantity, bi.created_at, bi.updated_at
		FROM basket_items bi
		JOIN products p ON p.id = bi.product_id
		WHERE bi.basket_id = $1
		ORDER BY bi.created_at`

	rows, err := r.pool.Query(ctx, itemsQuery, b.ID)
	if err != nil {
		return nil, fmt.Errorf("list basket items: %w", err)
	}
	defer rows.Close()

	b.Items = make([]domain.BasketItem, 0)
	for rows.Next() {
		var item domain.BasketItem
		if err := rows.Scan(
			&item.ID,
			&item.BasketID,
			&item.ProductID,
			&item.ProductName,
			&item.PriceCents,
			&item.DiscountPercent,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan basket item row: %w", err)
		}
		b.Items = append(b.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate basket item rows: %w", err)
	}

	return &b, nil
}
