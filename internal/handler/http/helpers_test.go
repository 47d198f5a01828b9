package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/event"
	"github.com/utafrali/MarketGo/internal/repository"
	"github.com/utafrali/MarketGo/pkg/database"
	"github.com/utafrali/MarketGo/pkg/httputil"
	pkgkafka "github.com/utafrali/MarketGo/pkg/kafka"
	"github.com/utafrali/MarketGo/pkg/middleware"
	"github.com/utafrali/MarketGo/pkg/pagination"
)

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEventProducer builds an event producer against a broker that does not
// exist. Publish failures are logged, never returned, so handlers tolerate it.
func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func testMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := database.NewMockPool()
	require.NoError(t, err)
	return pool
}

// fakeTokenValidator returns a validator that accepts any token and yields
// the given identity, so routers can exercise the real Auth middleware.
func fakeTokenValidator(userID, role string) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		return &middleware.Claims{UserID: userID, Email: "test@example.com", Role: role}, nil
	}
}

// authedRouter mounts the given routes behind the Auth middleware with a fake
// identity, matching the production route layout.
func authedRouter(userID, role string, mount func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(fakeTokenValidator(userID, role)))
		mount(r)
	})
	return r
}

// decodeResponse reads the response body into the httputil.Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// --- Mock UserRepository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) CreateWithBasket(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) SetVerified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock RefreshTokenRepository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock VerificationStore ---

type mockVerificationStore struct {
	mock.Mock
}

func (m *mockVerificationStore) SaveCode(ctx context.Context, userID, code string, ttl time.Duration) error {
	args := m.Called(ctx, userID, code, ttl)
	return args.Error(0)
}

func (m *mockVerificationStore) GetCode(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockVerificationStore) DeleteCode(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock Sender ---

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	args := m.Called(ctx, toEmail, code)
	return args.Error(0)
}

// --- Mock CategoryRepository ---

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock BrandRepository ---

type mockBrandRepository struct {
	mock.Mock
}

func (m *mockBrandRepository) Create(ctx context.Context, brand *domain.Brand) error {
	args := m.Called(ctx, brand)
	return args.Error(0)
}

func (m *mockBrandRepository) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) GetBySlug(ctx context.Context, slug string) (*domain.Brand, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) List(ctx context.Context) ([]domain.Brand, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Brand), args.Error(1)
}

func (m *mockBrandRepository) Update(ctx context.Context, brand *domain.Brand) error {
	args := m.Called(ctx, brand)
	return args.Error(0)
}

func (m *mockBrandRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock ProductRepository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetDetailBySlug(ctx context.Context, slug string) (*domain.ProductDetail, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductDetail), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.ProductSummary, int, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.ProductSummary), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) AddImage(ctx context.Context, image *domain.ProductImage) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *mockProductRepository) ListImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.ProductImage), args.Error(1)
}

func (m *mockProductRepository) DeleteImage(ctx context.Context, productID, imageID string) error {
	args := m.Called(ctx, productID, imageID)
	return args.Error(0)
}

func (m *mockProductRepository) CreateField(ctx context.Context, field *domain.ProductField) error {
	args := m.Called(ctx, field)
	return args.Error(0)
}

func (m *mockProductRepository) ListFields(ctx context.Context) ([]domain.ProductField, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.ProductField), args.Error(1)
}

func (m *mockProductRepository) SetFieldValue(ctx context.Context, value *domain.ProductFieldValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *mockProductRepository) ListFieldValues(ctx context.Context, productID string) ([]domain.ProductFieldValue, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.ProductFieldValue), args.Error(1)
}

func (m *mockProductRepository) DeleteFieldValue(ctx context.Context, productID, fieldID string) error {
	args := m.Called(ctx, productID, fieldID)
	return args.Error(0)
}

// --- Mock BasketRepository ---

type mockBasketRepository struct {
	mock.Mock
}

func (m *mockBasketRepository) GetByUserID(ctx context.Context, userID string) (*domain.Basket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Basket), args.Error(1)
}

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListByUserID(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error) {
	args := m.Called(ctx, userID, params)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) List(ctx context.Context, status string, params pagination.Params) ([]domain.Order, int, error) {
	args := m.Called(ctx, status, params)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

// --- Mock ReviewRepository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByProductID(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error) {
	args := m.Called(ctx, productID, params)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewSummary), args.Error(1)
}

func (m *mockReviewRepository) HasDeliveredPurchase(ctx context.Context, userID, productID string) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}
