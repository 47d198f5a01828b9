// Package repository defines the persistence interfaces consumed by the
// service layer. Implementations live in the postgres and redis subpackages.
package repository

import (
	"context"
	"time"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/pkg/pagination"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// CreateWithBasket inserts a new user and their basket in one transaction.
	// Every user owns exactly one basket from the moment the account exists.
	CreateWithBasket(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// SetVerified marks the user's email as verified.
	SetVerified(ctx context.Context, id string) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository defines the interface for refresh token persistence operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByUserID revokes all refresh tokens for the given user.
	RevokeByUserID(ctx context.Context, userID string) error
}

// VerificationStore holds short-lived email verification codes.
type VerificationStore interface {
	// SaveCode stores a verification code for the user with a TTL.
	SaveCode(ctx context.Context, userID, code string, ttl time.Duration) error

	// GetCode returns the stored code for the user, or ErrNotFound if
	// absent or expired.
	GetCode(ctx context.Context, userID string) (string, error)

	// DeleteCode removes the stored code after successful verification.
	DeleteCode(ctx context.Context, userID string) error
}

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
}

// BrandRepository defines the interface for brand persistence operations.
type BrandRepository interface {
	Create(ctx context.Context, brand *domain.Brand) error
	GetByID(ctx context.Context, id string) (*domain.Brand, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Brand, error)
	List(ctx context.Context) ([]domain.Brand, error)
	Update(ctx context.Context, brand *domain.Brand) error
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategorySlug string
	BrandSlug    string
	Search       string
	InStockOnly  bool
	ActiveOnly   bool
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves the bare product row.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetDetailBySlug retrieves the full product detail, including images,
	// dynamic field values, and review aggregates.
	GetDetailBySlug(ctx context.Context, slug string) (*domain.ProductDetail, error)

	// List returns product summaries matching the filter, with the total
	// count before pagination.
	List(ctx context.Context, filter ProductFilter, params pagination.Params) ([]domain.ProductSummary, int, error)

	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error

	// AddImage attaches an image to a product. Setting a new primary image
	// demotes any existing primary in the same transaction.
	AddImage(ctx context.Context, image *domain.ProductImage) error
	ListImages(ctx context.Context, productID string) ([]domain.ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID string) error

	// CreateField registers a new dynamic field definition.
	CreateField(ctx context.Context, field *domain.ProductField) error
	ListFields(ctx context.Context) ([]domain.ProductField, error)

	// SetFieldValue upserts a product's value for a dynamic field.
	SetFieldValue(ctx context.Context, value *domain.ProductFieldValue) error
	ListFieldValues(ctx context.Context, productID string) ([]domain.ProductFieldValue, error)
	DeleteFieldValue(ctx context.Context, productID, fieldID string) error
}

// BasketRepository defines read access to baskets. Mutations that touch
// stock run in service-level transactions.
type BasketRepository interface {
	// GetByUserID retrieves the user's basket with all items.
	GetByUserID(ctx context.Context, userID string) (*domain.Basket, error)
}

// OrderRepository defines read access to orders. Order placement and
// status changes run in service-level transactions.
type OrderRepository interface {
	// GetByID retrieves an order with all items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUserID returns the user's orders, newest first, with the total
	// count before pagination.
	ListByUserID(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error)

	// List returns all orders, optionally filtered by status.
	List(ctx context.Context, status string, params pagination.Params) ([]domain.Order, int, error)
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByProductID(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error)
	Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error)

	// HasDeliveredPurchase reports whether the user has a delivered order
	// containing the product.
	HasDeliveredPurchase(ctx context.Context, userID, productID string) (bool, error)
}
