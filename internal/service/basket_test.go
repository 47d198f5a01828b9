package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/pkg/database"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newBasketTestService(t *testing.T, basketRepo *mockBasketRepository) (*BasketService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	svc := NewBasketService(basketRepo, mock, newTestProducer(), newTestLogger())
	return svc, mock
}

func readCommitted() pgx.TxOptions {
	return pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
}

func sampleBasket(userID string, items ...domain.BasketItem) *domain.Basket {
	return &domain.Basket{
		ID:        "basket-1",
		UserID:    userID,
		Items:     items,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestBasketService_Get_Success(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	expected := sampleBasket("user-1", domain.BasketItem{
		ID:         "item-1",
		BasketID:   "basket-1",
		ProductID:  "prod-1",
		Quantity:   2,
		PriceCents: 1500,
	})
	basketRepo.On("GetByUserID", ctx, "user-1").Return(expected, nil)

	basket, err := svc.Get(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, expected, basket)
	assert.Equal(t, int64(3000), basket.TotalCents())

	basketRepo.AssertExpectations(t)
}

// ---------------------------------------------------------------------------
// AddItem
// ---------------------------------------------------------------------------

func TestBasketService_AddItem_ReservesStock(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(10, true))
	mock.ExpectQuery("SELECT id FROM baskets").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("basket-1"))
	mock.ExpectExec("INSERT INTO basket_items").
		WithArgs(pgxmock.AnyArg(), "basket-1", "prod-1", 4, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(-4, "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	updated := sampleBasket("user-1", domain.BasketItem{
		ID:        "item-1",
		BasketID:  "basket-1",
		ProductID: "prod-1",
		Quantity:  4,
	})
	basketRepo.On("GetByUserID", ctx, "user-1").Return(updated, nil)

	basket, err := svc.AddItem(ctx, "user-1", "prod-1", 4)

	require.NoError(t, err)
	assert.Equal(t, 4, basket.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())

	basketRepo.AssertExpectations(t)
}

func TestBasketService_AddItem_InsufficientStock(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(3, true))
	mock.ExpectRollback()

	basket, err := svc.AddItem(ctx, "user-1", "prod-1", 4)

	assert.Nil(t, basket)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "only 3 items available")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBasketService_AddItem_InactiveProduct(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(10, false))
	mock.ExpectRollback()

	basket, err := svc.AddItem(ctx, "user-1", "prod-1", 1)

	assert.Nil(t, basket)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBasketService_AddItem_ProductNotFound(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	basket, err := svc.AddItem(ctx, "user-1", "nonexistent", 1)

	assert.Nil(t, basket)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBasketService_AddItem_InvalidQuantity(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()

	basket, err := svc.AddItem(context.Background(), "user-1", "prod-1", 0)

	assert.Nil(t, basket)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// UpdateItem
// ---------------------------------------------------------------------------

func TestBasketService_UpdateItem_ReturnsDifferenceToStock(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	// 4 reserved, stock at 6. Dropping to 2 returns 2 units.
	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(6, true))
	mock.ExpectQuery("SELECT id FROM baskets").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("basket-1"))
	mock.ExpectQuery("SELECT quantity FROM basket_items").
		WithArgs("basket-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(4))
	mock.ExpectExec("UPDATE basket_items SET quantity").
		WithArgs(2, "basket-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(2, "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	updated := sampleBasket("user-1", domain.BasketItem{
		ID:        "item-1",
		BasketID:  "basket-1",
		ProductID: "prod-1",
		Quantity:  2,
	})
	basketRepo.On("GetByUserID", ctx, "user-1").Return(updated, nil)

	basket, err := svc.UpdateItem(ctx, "user-1", "prod-1", 2)

	require.NoError(t, err)
	assert.Equal(t, 2, basket.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())

	basketRepo.AssertExpectations(t)
}

func TestBasketService_UpdateItem_ZeroQuantityRemovesLine(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	// Setting quantity to 0 deletes the line and returns all 3 reserved units.
	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(6, true))
	mock.ExpectQuery("SELECT id FROM baskets").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("basket-1"))
	mock.ExpectQuery("DELETE FROM basket_items .+ RETURNING quantity").
		WithArgs("basket-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(3))
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(3, "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	basketRepo.On("GetByUserID", ctx, "user-1").Return(sampleBasket("user-1"), nil)

	basket, err := svc.UpdateItem(ctx, "user-1", "prod-1", 0)

	require.NoError(t, err)
	assert.Empty(t, basket.Items)
	assert.NoError(t, mock.ExpectationsWereMet())

	basketRepo.AssertExpectations(t)
}

func TestBasketService_UpdateItem_InsufficientStockForIncrease(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	// 2 reserved, stock at 1. Raising to 5 needs 3 more units.
	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(1, true))
	mock.ExpectQuery("SELECT id FROM baskets").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("basket-1"))
	mock.ExpectQuery("SELECT quantity FROM basket_items").
		WithArgs("basket-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(2))
	mock.ExpectRollback()

	basket, err := svc.UpdateItem(ctx, "user-1", "prod-1", 5)

	assert.Nil(t, basket)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBasketService_UpdateItem_ItemNotFound(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(6, true))
	mock.ExpectQuery("SELECT id FROM baskets").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("basket-1"))
	mock.ExpectQuery("SELECT quantity FROM basket_items").
		WithArgs("basket-1", "prod-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	basket, err := svc.UpdateItem(ctx, "user-1", "prod-1", 2)

	assert.Nil(t, basket)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// RemoveItem
// ---------------------------------------------------------------------------

func TestBasketService_RemoveItem_RestocksQuantity(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(8, true))
	mock.ExpectQuery("SELECT id FROM baskets").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("basket-1"))
	mock.ExpectQuery("DELETE FROM basket_items .+ RETURNING quantity").
		WithArgs("basket-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(2))
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(2, "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	updated := sampleBasket("user-1")
	basketRepo.On("GetByUserID", ctx, "user-1").Return(updated, nil)

	basket, err := svc.RemoveItem(ctx, "user-1", "prod-1")

	require.NoError(t, err)
	assert.True(t, basket.IsEmpty())
	assert.NoError(t, mock.ExpectationsWereMet())

	basketRepo.AssertExpectations(t)
}

func TestBasketService_RemoveItem_ItemNotFound(t *testing.T) {
	basketRepo := new(mockBasketRepository)
	svc, mock := newBasketTestService(t, basketRepo)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBeginTx(readCommitted())
	mock.ExpectQuery("SELECT stock, is_active FROM products .+ FOR UPDATE").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock", "is_active"}).AddRow(8, true))
	mock.ExpectQuery("SELECT id FROM baskets").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("basket-1"))
	mock.ExpectQuery("DELETE FROM basket_items .+ RETURNING quantity").
		WithArgs("basket-1", "prod-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	basket, err := svc.RemoveItem(ctx, "user-1", "prod-1")

	assert.Nil(t, basket)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
