package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/event"
	"github.com/utafrali/MarketGo/internal/repository"
	"github.com/utafrali/MarketGo/pkg/database"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
)

// BasketService implements the business logic for basket operations.
//
// Quantities held in a basket are reserved: adding an item decrements the
// product's stock immediately, and removing it credits the stock back. Every
// mutation locks the product row with SELECT FOR UPDATE so concurrent baskets
// cannot oversell.
type BasketService struct {
	basketRepo repository.BasketRepository
	pool       database.DBTX
	producer   *event.Producer
	logger     *slog.Logger
}

// NewBasketService creates a new basket service.
func NewBasketService(
	basketRepo repository.BasketRepository,
	pool database.DBTX,
	producer *event.Producer,
	logger *slog.Logger,
) *BasketService {
	return &BasketService{
		basketRepo: basketRepo,
		pool:       pool,
		producer:   producer,
		logger:     logger,
	}
}

// Get retrieves the user's basket with all items.
func (s *BasketService) Get(ctx context.Context, userID string) (*domain.Basket, error) {
	basket, err := s.basketRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get basket: %w", err)
	}
	return basket, nil
}

// AddItem adds quantity units of a product to the user's basket, reserving
// them against stock. Adding a product already in the basket increases its
// quantity.
func (s *BasketService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Basket, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	var newStock int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		stock, active, err := lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if !active {
			return apperrors.InvalidInput("product is not available")
		}
		if stock < quantity {
			return apperrors.InsufficientStock(stock)
		}

		basketID, err := basketIDForUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		upsertQuery := `
			INSERT INTO basket_items (id, basket_id, product_id, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (basket_id, product_id)
			DO UPDATE SET quantity = basket_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`

		if _, err := tx.Exec(ctx, upsertQuery, uuid.New().String(), basketID, productID, quantity, now); err != nil {
			return fmt.Errorf("upsert basket item: %w", err)
		}

		newStock = stock - quantity
		return adjustStock(ctx, tx, productID, -quantity)
	})
	if err != nil {
		return nil, err
	}

	s.publishStock(ctx, productID, newStock)

	s.logger.InfoContext(ctx, "basket item added",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return s.Get(ctx, userID)
}

// UpdateItem sets the quantity of a product already in the basket. Only the
// difference from the current quantity is taken from (or returned to) stock.
// A quantity of zero or less removes the line entirely.
func (s *BasketService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.Basket, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	// Dropping to zero or below removes the line and releases its whole
	// reservation, same as an explicit delete.
	if quantity < 1 {
		return s.RemoveItem(ctx, userID, productID)
	}

	var newStock int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		stock, _, err := lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		basketID, err := basketIDForUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		var current int
		itemQuery := `SELECT quantity FROM basket_items WHERE basket_id = $1 AND product_id = $2`
		if err := tx.QueryRow(ctx, itemQuery, basketID, productID).Scan(&current); err != nil {
			return apperrors.NotFound("basket item", productID)
		}

		diff := quantity - current
		if diff == 0 {
			newStock = stock
			return nil
		}
		if diff > 0 && stock < diff {
			return apperrors.InsufficientStock(stock)
		}

		updateQuery := `UPDATE basket_items SET quantity = $1, updated_at = NOW() WHERE basket_id = $2 AND product_id = $3`
		if _, err := tx.Exec(ctx, updateQuery, quantity, basketID, productID); err != nil {
			return fmt.Errorf("update basket item: %w", err)
		}

		newStock = stock - diff
		return adjustStock(ctx, tx, productID, -diff)
	})
	if err != nil {
		return nil, err
	}

	s.publishStock(ctx, productID, newStock)

	s.logger.InfoContext(ctx, "basket item updated",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return s.Get(ctx, userID)
}

// RemoveItem takes a product out of the basket and returns its reserved
// quantity to stock.
func (s *BasketService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Basket, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}

	var newStock int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		stock, _, err := lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		basketID, err := basketIDForUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		var quantity int
		deleteQuery := `DELETE FROM basket_items WHERE basket_id = $1 AND product_id = $2 RETURNING quantity`
		if err := tx.QueryRow(ctx, deleteQuery, basketID, productID).Scan(&quantity); err != nil {
			return apperrors.NotFound("basket item", productID)
		}

		newStock = stock + quantity
		return adjustStock(ctx, tx, productID, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.publishStock(ctx, productID, newStock)

	s.logger.InfoContext(ctx, "basket item removed",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
	)

	return s.Get(ctx, userID)
}

// inTx runs fn inside a read-committed transaction, committing on success.
func (s *BasketService) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *BasketService) publishStock(ctx context.Context, productID string, stock int) {
	if err := s.producer.PublishInventoryUpdated(ctx, productID, stock); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.updated event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}

// lockProduct locks the product row with SELECT FOR UPDATE and returns its
// current stock and active flag.
func lockProduct(ctx context.Context, tx pgx.Tx, productID string) (int, bool, error) {
	var (
		stock  int
		active bool
	)
	query := `SELECT stock, is_active FROM products WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRow(ctx, query, productID).Scan(&stock, &active); err != nil {
		return 0, false, apperrors.NotFound("product", productID)
	}
	return stock, active, nil
}

// basketIDForUser resolves the user's basket ID inside the transaction.
func basketIDForUser(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var basketID string
	query := `SELECT id FROM baskets WHERE user_id = $1`
	if err := tx.QueryRow(ctx, query, userID).Scan(&basketID); err != nil {
		return "", apperrors.NotFound("basket", userID)
	}
	return basketID, nil
}

// adjustStock applies a delta to the product's stock inside the transaction.
func adjustStock(ctx context.Context, tx pgx.Tx, productID string, delta int) error {
	query := `UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.Exec(ctx, query, delta, productID); err != nil {
		return fmt.Errorf("adjust product stock: %w", err)
	}
	return nil
}
