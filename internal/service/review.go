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
)

const (
	minRating = 1
	maxRating = 5
)

// ReviewService implements the business logic for product reviews. Only
// users with a delivered order containing the product may review it, and
// each user may review a product once.
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	producer    *event.Producer
	logger      *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		producer:    producer,
		logger:      logger,
	}
}

// CreateReviewInput holds the parameters for submitting a review. At least
// one of Rating and Comment must be set; a Rating of zero means unrated.
type CreateReviewInput struct {
	ProductID string
	Rating    int
	Comment   string
}

// Create submits a review after checking the purchase gate.
func (s *ReviewService) Create(ctx context.Context, userID string, input CreateReviewInput) (*domain.Review, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	comment := strings.TrimSpace(input.Comment)
	if input.Rating == 0 && comment == "" {
		return nil, apperrors.InvalidInput("review requires a rating or a comment")
	}
	if input.Rating != 0 && (input.Rating < minRating || input.Rating > maxRating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}

	if _, err := s.productRepo.GetByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	purchased, err := s.reviewRepo.HasDeliveredPurchase(ctx, userID, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	if !purchased {
		return nil, apperrors.NotPurchased()
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// ListByProduct returns a product's reviews, newest first.
func (s *ReviewService) ListByProduct(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error) {
	reviews, total, err := s.reviewRepo.ListByProductID(ctx, productID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// Summary returns aggregate review statistics for a product.
func (s *ReviewService) Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	summary, err := s.reviewRepo.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}
	return summary, nil
}
