package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/event"
	"github.com/utafrali/MarketGo/internal/repository"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
	"github.com/utafrali/MarketGo/pkg/pagination"
	"github.com/utafrali/MarketGo/pkg/slug"
)

const maxDiscountPercent = 90

// ProductService implements the business logic for catalog operations:
// products, their images, and dynamic field values.
type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	brandRepo    repository.BrandRepository
	producer     *event.Producer
	logger       *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	brandRepo repository.BrandRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		brandRepo:    brandRepo,
		producer:     producer,
		logger:       logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name            string
	Description     string
	PriceCents      int64
	DiscountPercent int
	Stock           int
	CategoryID      *string
	BrandID         *string
}

// UpdateProductInput holds the parameters for updating a product. Nil fields
// are left unchanged.
type UpdateProductInput struct {
	Name            *string
	Description     *string
	PriceCents      *int64
	DiscountPercent *int
	Stock           *int
	CategoryID      *string
	BrandID         *string
	IsActive        *bool
}

// CreateProduct adds a new product to the catalog. The slug is derived from
// the name.
func (s *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.PriceCents <= 0 {
		return nil, apperrors.InvalidInput("price_cents must be positive")
	}
	if input.DiscountPercent < 0 || input.DiscountPercent > maxDiscountPercent {
		return nil, apperrors.InvalidInput(fmt.Sprintf("discount_percent must be between 0 and %d", maxDiscountPercent))
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock cannot be negative")
	}

	if input.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *input.CategoryID); err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
	}
	if input.BrandID != nil {
		if _, err := s.brandRepo.GetByID(ctx, *input.BrandID); err != nil {
			return nil, fmt.Errorf("resolve brand: %w", err)
		}
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:              uuid.New().String(),
		Name:            input.Name,
		Slug:            slug.Generate(input.Name),
		Description:     input.Description,
		PriceCents:      input.PriceCents,
		DiscountPercent: input.DiscountPercent,
		Stock:           input.Stock,
		CategoryID:      input.CategoryID,
		BrandID:         input.BrandID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProduct retrieves the full product detail by slug.
func (s *ProductService) GetProduct(ctx context.Context, productSlug string) (*domain.ProductDetail, error) {
	detail, err := s.productRepo.GetDetailBySlug(ctx, productSlug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return detail, nil
}

// ListProducts returns product summaries matching the filter.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.ProductSummary, int, error) {
	products, total, err := s.productRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// UpdateProduct applies the non-nil fields of input to the product. Renaming
// regenerates the slug. Direct stock changes publish an inventory event.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	stockChanged := false

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name cannot be empty")
		}
		product.Name = name
		product.Slug = slug.Generate(name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return nil, apperrors.InvalidInput("price_cents must be positive")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.DiscountPercent != nil {
		if *input.DiscountPercent < 0 || *input.DiscountPercent > maxDiscountPercent {
			return nil, apperrors.InvalidInput(fmt.Sprintf("discount_percent must be between 0 and %d", maxDiscountPercent))
		}
		product.DiscountPercent = *input.DiscountPercent
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock cannot be negative")
		}
		stockChanged = product.Stock != *input.Stock
		product.Stock = *input.Stock
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *input.CategoryID); err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		product.CategoryID = input.CategoryID
	}
	if input.BrandID != nil {
		if _, err := s.brandRepo.GetByID(ctx, *input.BrandID); err != nil {
			return nil, fmt.Errorf("resolve brand: %w", err)
		}
		product.BrandID = input.BrandID
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if stockChanged {
		if err := s.producer.PublishInventoryUpdated(ctx, product.ID, product.Stock); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.updated event",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))

	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// AddImageInput holds the parameters for attaching a product image.
type AddImageInput struct {
	URL       string
	AltText   string
	IsPrimary bool
}

// AddImage attaches an image to a product. Marking it primary demotes any
// existing primary image.
func (s *ProductService) AddImage(ctx context.Context, productID string, input AddImageInput) (*domain.ProductImage, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, apperrors.InvalidInput("url is required")
	}

	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	image := &domain.ProductImage{
		ID:        uuid.New().String(),
		ProductID: productID,
		URL:       input.URL,
		AltText:   input.AltText,
		IsPrimary: input.IsPrimary,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.productRepo.AddImage(ctx, image); err != nil {
		return nil, fmt.Errorf("add product image: %w", err)
	}

	s.logger.InfoContext(ctx, "product image added",
		slog.String("product_id", productID),
		slog.String("image_id", image.ID),
		slog.Bool("is_primary", image.IsPrimary),
	)

	return image, nil
}

// ListImages returns all images of a product.
func (s *ProductService) ListImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	images, err := s.productRepo.ListImages(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	return images, nil
}

// DeleteImage removes an image from a product.
func (s *ProductService) DeleteImage(ctx context.Context, productID, imageID string) error {
	if err := s.productRepo.DeleteImage(ctx, productID, imageID); err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}
	return nil
}

// CreateField registers a new dynamic field definition (e.g. "color").
func (s *ProductService) CreateField(ctx context.Context, name string) (*domain.ProductField, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	field := &domain.ProductField{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.productRepo.CreateField(ctx, field); err != nil {
		return nil, fmt.Errorf("create product field: %w", err)
	}

	s.logger.InfoContext(ctx, "product field created",
		slog.String("field_id", field.ID),
		slog.String("name", field.Name),
	)

	return field, nil
}

// ListFields returns all dynamic field definitions.
func (s *ProductService) ListFields(ctx context.Context) ([]domain.ProductField, error) {
	fields, err := s.productRepo.ListFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("list product fields: %w", err)
	}
	return fields, nil
}

// SetFieldValue upserts a product's value for a dynamic field.
func (s *ProductService) SetFieldValue(ctx context.Context, productID, fieldID, value string) (*domain.ProductFieldValue, error) {
	if strings.TrimSpace(value) == "" {
		return nil, apperrors.InvalidInput("value is required")
	}

	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	fieldValue := &domain.ProductFieldValue{
		ID:        uuid.New().String(),
		ProductID: productID,
		FieldID:   fieldID,
		Value:     value,
	}

	if err := s.productRepo.SetFieldValue(ctx, fieldValue); err != nil {
		return nil, fmt.Errorf("set product field value: %w", err)
	}

	return fieldValue, nil
}

// ListFieldValues returns a product's dynamic field values.
func (s *ProductService) ListFieldValues(ctx context.Context, productID string) ([]domain.ProductFieldValue, error) {
	values, err := s.productRepo.ListFieldValues(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product field values: %w", err)
	}
	return values, nil
}

// DeleteFieldValue removes a product's value for a dynamic field.
func (s *ProductService) DeleteFieldValue(ctx context.Context, productID, fieldID string) error {
	if err := s.productRepo.DeleteFieldValue(ctx, productID, fieldID); err != nil {
		return fmt.Errorf("delete product field value: %w", err)
	}
	return nil
}
