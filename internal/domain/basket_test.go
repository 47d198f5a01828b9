package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Basket.TotalCents Tests
// ============================================================================

func TestBasketTotalCents_MultipleItems(t *testing.T) {
	b := &Basket{Items: []BasketItem{
		{PriceCents: 1999, Quantity: 2},
		{PriceCents: 500, Quantity: 3},
	}}
	assert.Equal(t, int64(5498), b.TotalCents())
}

func TestBasketTotalCents_Empty(t *testing.T) {
	b := &Basket{}
	assert.Equal(t, int64(0), b.TotalCents())
}

func TestBasketTotalCents_SingleItem(t *testing.T) {
	b := &Basket{Items: []BasketItem{{PriceCents: 12345, Quantity: 1}}}
	assert.Equal(t, int64(12345), b.TotalCents())
}

// ============================================================================
// Basket.IsEmpty Tests
// ============================================================================

func TestBasketIsEmpty(t *testing.T) {
	assert.True(t, (&Basket{}).IsEmpty())
	assert.False(t, (&Basket{Items: []BasketItem{{Quantity: 1}}}).IsEmpty())
}

// ============================================================================
// Role Tests
// ============================================================================

func TestValidRoles_ContainsAll(t *testing.T) {
	assert.ElementsMatch(t, []string{RoleCustomer, RoleManager, RoleAdmin}, ValidRoles())
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles() {
		assert.True(t, IsValidRole(r), "expected %q to be valid", r)
	}
	assert.False(t, IsValidRole("superuser"))
	assert.False(t, IsValidRole(""))
}

func TestIsStaff(t *testing.T) {
	assert.True(t, IsStaff(RoleManager))
	assert.True(t, IsStaff(RoleAdmin))
	assert.False(t, IsStaff(RoleCustomer))
	assert.False(t, IsStaff(""))
}
