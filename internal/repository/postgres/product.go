package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/repository"
	"github.com/utafrali/MarketGo/pkg/database"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
	"github.com/utafrali/MarketGo/pkg/pagination"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, price_cents, discount_percent, stock, category_id, brand_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.PriceCents,
		p.DiscountPercent,
		p.Stock,
		p.CategoryID,
		p.BrandID,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves the bare product row by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, slug, description, price_cents, discount_percent, stock, category_id, brand_id, is_active, created_at, updated_at
		FROM products
		WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.PriceCents,
		&p.DiscountPercent,
		&p.Stock,
		&p.CategoryID,
		&p.BrandID,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// GetDetailBySlug retrieves the full product detail in a single query.
// Images and field values are aggregated with JSONB_AGG to avoid N+1 queries.
func (r *ProductRepository) GetDetailBySlug(ctx context.Context, slug string) (*domain.ProductDetail, error) {
	query := `
		SELECT
			p.id, p.name, p.slug, p.description, p.price_cents, p.discount_percent,
			p.stock, p.category_id, p.brand_id, p.is_active, p.created_at, p.updated_at,
			c.name AS category_name,
			b.name AS brand_name,
			COALESCE(
				(SELECT JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', pi.id,
						'product_id', pi.product_id,
						'url', pi.url,
						'alt_text', pi.alt_text,
						'is_primary', pi.is_primary,
						'created_at', pi.created_at
					) ORDER BY pi.is_primary DESC, pi.created_at
				) FROM product_images pi WHERE pi.product_id = p.id),
				'[]'::jsonb
			) AS images,
			COALESCE(
				(SELECT JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', pfv.id,
						'product_id', pfv.product_id,
						'field_id', pfv.field_id,
						'field_name', pf.name,
						'value', pfv.value
					) ORDER BY pf.name
				) FROM product_field_values pfv
				JOIN product_fields pf ON pf.id = pfv.field_id
				WHERE pfv.product_id = p.id),
				'[]'::jsonb
			) AS fields,
			COALESCE((SELECT AVG(rating)::float8 FROM reviews WHERE product_id = p.id), 0) AS average_rating,
			COALESCE((SELECT count(*) FROM reviews WHERE product_id = p.id), 0) AS review_count
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN brands b ON b.id = p.brand_id
		WHERE p.slug = $1`

	var (
		d          domain.ProductDetail
		imagesJSON []byte
		fieldsJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&d.ID,
		&d.Name,
		&d.Slug,
		&d.Description,
		&d.PriceCents,
		&d.DiscountPercent,
		&d.Stock,
		&d.CategoryID,
		&d.BrandID,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.CategoryName,
		&d.BrandName,
		&imagesJSON,
		&fieldsJSON,
		&d.ReviewSummary.AverageRating,
		&d.ReviewSummary.TotalCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product detail: %w", err)
	}

	d.Images = []domain.ProductImage{}
	if len(imagesJSON) > 0 && string(imagesJSON) != "null" {
		if err := json.Unmarshal(imagesJSON, &d.Images); err != nil {
			return nil, fmt.Errorf("unmarshal product images: %w", err)
		}
	}

	d.Fields = []domain.ProductFieldValue{}
	if len(fieldsJSON) > 0 && string(fieldsJSON) != "null" {
		if err := json.Unmarshal(fieldsJSON, &d.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal product fields: %w", err)
		}
	}

	d.DiscountedPriceCents = d.Product.DiscountedPriceCents()

	return &d, nil
}

// List returns product summaries matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.ProductSummary, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ActiveOnly {
		conditions = append(conditions, "p.is_active = TRUE")
	}

	if filter.InStockOnly {
		conditions = append(conditions, "p.stock > 0")
	}

	if filter.CategorySlug != "" {
		conditions = append(conditions, fmt.Sprintf("c.slug = $%d", argIndex))
		args = append(args, filter.CategorySlug)
		argIndex++
	}

	if filter.BrandSlug != "" {
		conditions = append(conditions, fmt.Sprintf("b.slug = $%d", argIndex))
		args = append(args, filter.BrandSlug)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() yields the total in the same query.
	query := fmt.Sprintf(`
		SELECT
			p.id, p.name, p.slug, p.price_cents, p.discount_percent, p.stock,
			c.name AS category_name,
			b.name AS brand_name,
			(SELECT pi.url FROM product_images pi WHERE pi.product_id = p.id AND pi.is_primary LIMIT 1) AS primary_image_url,
			count(*) OVER() AS total_count
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN brands b ON b.id = p.brand_id
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	args = append(args, params.PerPage, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var totalCount int
	summaries := make([]domain.ProductSummary, 0)

	for rows.Next() {
		var s domain.ProductSummary
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Slug,
			&s.PriceCents,
			&s.DiscountPercent,
			&s.Stock,
			&s.CategoryName,
			&s.BrandName,
			&s.PrimaryImageURL,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}

		p := domain.Product{PriceCents: s.PriceCents, DiscountPercent: s.DiscountPercent}
		s.DiscountedPriceCents = p.DiscountedPriceCents()

		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return summaries, totalCount, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price_cents = $4, discount_percent = $5,
		    stock = $6, category_id = $7, brand_id = $8, is_active = $9, updated_at = $10
		WHERE id = $11`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.PriceCents,
		p.DiscountPercent,
		p.Stock,
		p.CategoryID,
		p.BrandID,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// AddImage attaches an image to a product. When the new image is primary, any
// existing primary image is demoted in the same transaction.
func (r *ProductRepository) AddImage(ctx context.Context, img *domain.ProductImage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if img.IsPrimary {
		demoteQuery := `UPDATE product_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary`
		if _, err := tx.Exec(ctx, demoteQuery, img.ProductID); err != nil {
			return fmt.Errorf("demote primary image: %w", err)
		}
	}

	insertQuery := `
		INSERT INTO product_images (id, product_id, url, alt_text, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.Exec(ctx, insertQuery,
		img.ID,
		img.ProductID,
		img.URL,
		img.AltText,
		img.IsPrimary,
		img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product image: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListImages returns all images for a product, primary first.
func (r *ProductRepository) ListImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, url, alt_text, is_primary, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, created_at`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	images := make([]domain.ProductImage, 0)
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image row: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product image rows: %w", err)
	}

	return images, nil
}

// DeleteImage removes an image from a product.
func (r *ProductRepository) DeleteImage(ctx context.Context, productID, imageID string) error {
	query := `DELETE FROM product_images WHERE id = $1 AND product_id = $2`

	ct, err := r.pool.Exec(ctx, query, imageID, productID)
	if err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product image", imageID)
	}

	return nil
}

// CreateField registers a new dynamic field definition.
func (r *ProductRepository) CreateField(ctx context.Context, f *domain.ProductField) error {
	query := `
		INSERT INTO product_fields (id, name, created_at)
		VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, f.ID, f.Name, f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product field", "name", f.Name)
		}
		return fmt.Errorf("insert product field: %w", err)
	}

	return nil
}

// ListFields returns all dynamic field definitions ordered by name.
func (r *ProductRepository) ListFields(ctx context.Context) ([]domain.ProductField, error) {
	query := `
		SELECT id, name, created_at
		FROM product_fields
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list product fields: %w", err)
	}
	defer rows.Close()

	fields := make([]domain.ProductField, 0)
	for rows.Next() {
		var f domain.ProductField
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product field row: %w", err)
		}
		fields = append(fields, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product field rows: %w", err)
	}

	return fields, nil
}

// SetFieldValue upserts a product's value for a dynamic field.
func (r *ProductRepository) SetFieldValue(ctx context.Context, v *domain.ProductFieldValue) error {
	query := `
		INSERT INTO product_field_values (id, product_id, field_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, field_id) DO UPDATE SET value = EXCLUDED.value`

	if _, err := r.pool.Exec(ctx, query, v.ID, v.ProductID, v.FieldID, v.Value); err != nil {
		return fmt.Errorf("upsert product field value: %w", err)
	}

	return nil
}

// ListFieldValues returns a product's dynamic field values with field names.
func (r *ProductRepository) ListFieldValues(ctx context.Context, productID string) ([]domain.ProductFieldValue, error) {
	query := `
		SELECT pfv.id, pfv.product_id, pfv.field_id, pf.name, pfv.value
		FROM product_field_values pfv
		JOIN product_fields pf ON pf.id = pfv.field_id
		WHERE pfv.product_id = $1
		ORDER BY pf.name`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product field values: %w", err)
	}
	defer rows.Close()

	values := make([]domain.ProductFieldValue, 0)
	for rows.Next() {
		var v domain.ProductFieldValue
		if err := rows.Scan(&v.ID, &v.ProductID, &v.FieldID, &v.FieldName, &v.Value); err != nil {
			return nil, fmt.Errorf("scan product field value row: %w", err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product field value rows: %w", err)
	}

	return values, nil
}

// DeleteFieldValue removes a product's value for a dynamic field.
func (r *ProductRepository) DeleteFieldValue(ctx context.Context, productID, fieldID string) error {
	query := `DELETE FROM product_field_values WHERE product_id = $1 AND field_id = $2`

	ct, err := r.pool.Exec(ctx, query, productID, fieldID)
	if err != nil {
		return fmt.Errorf("delete product field value: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product field value", fieldID)
	}

	return nil
}
