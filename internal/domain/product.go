package domain

import (
	"time"
)

// Product represents a product in the catalog. Prices are stored as cents.
type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	PriceCents      int64     `json:"price_cents"`
	DiscountPercent int       `json:"discount_percent"`
	Stock           int       `json:"stock"`
	CategoryID      *string   `json:"category_id,omitempty"`
	BrandID         *string   `json:"brand_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DiscountedPriceCents returns the effective price after applying the
// discount percentage, rounded down to a whole cent.
func (p *Product) DiscountedPriceCents() int64 {
	if p.DiscountPercent <= 0 {
		return p.PriceCents
	}
	return p.PriceCents * int64(100-p.DiscountPercent) / 100
}

// InStock reports whether at least quantity units are available.
func (p *Product) InStock(quantity int) bool {
	return p.Stock >= quantity
}

// ProductImage represents an image associated with a product.
// At most one image per product is marked primary.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductField is a dynamic attribute definition (e.g. "color", "material")
// that products can carry values for.
type ProductField struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductFieldValue is a product's value for a dynamic field.
type ProductFieldValue struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	Value     string `json:"value"`
}

// ProductSummary is the compact product representation used in listings.
type ProductSummary struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Slug                 string  `json:"slug"`
	PriceCents           int64   `json:"price_cents"`
	DiscountPercent      int     `json:"discount_percent"`
	DiscountedPriceCents int64   `json:"discounted_price_cents"`
	Stock                int     `json:"stock"`
	PrimaryImageURL      *string `json:"primary_image_url,omitempty"`
	CategoryName         *string `json:"category_name,omitempty"`
	BrandName            *string `json:"brand_name,omitempty"`
}

// ProductDetail is the full product representation returned for a single
// product, including images, dynamic fields, and review aggregates.
type ProductDetail struct {
	Product
	DiscountedPriceCents int64               `json:"discounted_price_cents"`
	CategoryName         *string             `json:"category_name,omitempty"`
	BrandName            *string             `json:"brand_name,omitempty"`
	Images               []ProductImage      `json:"images"`
	Fields               []ProductFieldValue `json:"fields"`
	ReviewSummary        ReviewSummary       `json:"review_summary"`
}
