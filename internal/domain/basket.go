package domain

import (
	"time"
)

// Basket represents a user's shopping basket. Every user has exactly one,
// created together with the account.
type Basket struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Items     []BasketItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// BasketItem is a single product line in a basket. Quantities held in a
// basket are already reserved against product stock.
type BasketItem struct {
	ID              string    `json:"id"`
	BasketID        string    `json:"basket_id"`
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name"`
	PriceCents      int64     `json:"price_cents"`
	DiscountPercent int       `json:"discount_percent"`
	Quantity        int       `json:"quantity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LineTotalCents returns the item's current price times quantity.
func (i *BasketItem) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// TotalCents returns the sum of all line totals at current prices.
func (b *Basket) TotalCents() int64 {
	var total int64
	for i := range b.Items {
		total += b.Items[i].LineTotalCents()
	}
	return total
}

// IsEmpty reports whether the basket holds no items.
func (b *Basket) IsEmpty() bool {
	return len(b.Items) == 0
}
