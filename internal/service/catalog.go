package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/repository"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
	"github.com/utafrali/MarketGo/pkg/slug"
)

// CategoryService implements the business logic for category operations.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
	logger       *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categoryRepo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, logger: logger}
}

// Create adds a new category. The slug is derived from the name.
func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	now := time.Now().UTC()
	category := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug.Generate(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

// Get retrieves a category by slug.
func (s *CategoryService) Get(ctx context.Context, categorySlug string) (*domain.Category, error) {
	category, err := s.categoryRepo.GetBySlug(ctx, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Update renames a category, regenerating its slug.
func (s *CategoryService) Update(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	category.Name = name
	category.Slug = slug.Generate(name)

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	return category, nil
}

// Delete removes a category. Products keep their rows; their category link
// is cleared by the schema.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

// BrandService implements the business logic for brand operations.
type BrandService struct {
	brandRepo repository.BrandRepository
	logger    *slog.Logger
}

// NewBrandService creates a new brand service.
func NewBrandService(brandRepo repository.BrandRepository, logger *slog.Logger) *BrandService {
	return &BrandService{brandRepo: brandRepo, logger: logger}
}

// Create adds a new brand. The slug is derived from the name.
func (s *BrandService) Create(ctx context.Context, name string) (*domain.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	now := time.Now().UTC()
	brand := &domain.Brand{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug.Generate(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.brandRepo.Create(ctx, brand); err != nil {
		return nil, fmt.Errorf("create brand: %w", err)
	}

	s.logger.InfoContext(ctx, "brand created",
		slog.String("brand_id", brand.ID),
		slog.String("slug", brand.Slug),
	)

	return brand, nil
}

// Get retrieves a brand by slug.
func (s *BrandService) Get(ctx context.Context, brandSlug string) (*domain.Brand, error) {
	brand, err := s.brandRepo.GetBySlug(ctx, brandSlug)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return brand, nil
}

// List returns all brands.
func (s *BrandService) List(ctx context.Context) ([]domain.Brand, error) {
	brands, err := s.brandRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

// Update renames a brand, regenerating its slug.
func (s *BrandService) Update(ctx context.Context, id, name string) (*domain.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	brand, err := s.brandRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}

	brand.Name = name
	brand.Slug = slug.Generate(name)

	if err := s.brandRepo.Update(ctx, brand); err != nil {
		return nil, fmt.Errorf("update brand: %w", err)
	}

	return brand, nil
}

// Delete removes a brand. Products keep their rows; their brand link is
// cleared by the schema.
func (s *BrandService) Delete(ctx context.Context, id string) error {
	if err := s.brandRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}

	s.logger.InfoContext(ctx, "brand deleted", slog.String("brand_id", id))
	return nil
}
