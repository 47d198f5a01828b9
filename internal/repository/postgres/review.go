package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/pkg/database"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
	"github.com/utafrali/MarketGo/pkg/pagination"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review into the database. The unique constraint on
// (user_id, product_id) enforces one review per user per product.
func (r *ReviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	query := `
		INSERT INTO reviews (id, user_id, product_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		rev.ID,
		rev.UserID,
		rev.ProductID,
		rev.Rating,
		rev.Comment,
		rev.CreatedAt,
		rev.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "product", rev.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// ListByProductID returns a product's reviews, newest first, with the total count.
func (r *ReviewRepository) ListByProductID(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error) {
	query := `
		SELECT id, user_id, product_id, rating, comment, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, productID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)

	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID,
			&rev.UserID,
			&rev.ProductID,
			&rev.Rating,
			&rev.Comment,
			&rev.CreatedAt,
			&rev.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// Summary returns aggregate review statistics for a product. Comment-only
// reviews (rating 0) count towards the total but not the average.
func (r *ReviewRepository) Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	query := `
		SELECT COALESCE(AVG(NULLIF(rating, 0))::float8, 0), count(*)
		FROM reviews
		WHERE product_id = $1`

	var s domain.ReviewSummary
	if err := r.pool.QueryRow(ctx, query, productID).Scan(&s.AverageRating, &s.TotalCount); err != nil {
		return nil, fmt.Errorf("scan review summary: %w", err)
	}

	return &s, nil
}

// HasDeliveredPurchase reports whether the user has a delivered order
// containing the product.
func (r *ReviewRepository) HasDeliveredPurchase(ctx context.Context, userID, productID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1
			  AND oi.product_id = $2
			  AND o.status = 'delivered'
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check delivered purchase: %w", err)
	}

	return exists, nil
}
