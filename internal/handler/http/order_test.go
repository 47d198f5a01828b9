package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/service"
	"github.com/utafrali/MarketGo/pkg/middleware"
)

const testOrderID = "9f1d7c36-2a84-4e0b-8f2e-3e8c41a6d20f"

type orderTestFixture struct {
	orderRepo  *mockOrderRepository
	basketRepo *mockBasketRepository
	pool       pgxmock.PgxPoolIface
	handler    *OrderHandler
}

func newOrderTestFixture(t *testing.T) *orderTestFixture {
	f := &orderTestFixture{
		orderRepo:  new(mockOrderRepository),
		basketRepo: new(mockBasketRepository),
		pool:       testMockPool(t),
	}
	svc := service.NewOrderService(f.orderRepo, f.basketRepo, f.pool, testEventProducer(), testLogger())
	f.handler = NewOrderHandler(svc, testLogger())
	return f
}

// customerRouter mounts the customer-facing order routes.
func (f *orderTestFixture) customerRouter(userID string) *chi.Mux {
	return authedRouter(userID, domain.RoleCustomer, func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", f.handler.PlaceOrder)
			r.Get("/", f.handler.ListOrders)
			r.Get("/{id}", f.handler.GetOrder)
			r.Post("/{id}/cancel", f.handler.CancelOrder)
		})
	})
}

// adminRouter mounts the staff-only order routes behind the role check.
func (f *orderTestFixture) adminRouter(role string) *chi.Mux {
	return authedRouter("staff-1", role, func(r chi.Router) {
		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleManager, domain.RoleAdmin))
			r.Get("/", f.handler.ListAllOrders)
			r.Put("/{id}/status", f.handler.UpdateOrderStatus)
		})
	})
}

func sampleOrder(userID, status string) *domain.Order {
	now := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	return &domain.Order{
		ID:     testOrderID,
		UserID: userID,
		Status: status,
		Items: []domain.OrderItem{
			{
				ID:              "order-item-1",
				OrderID:         testOrderID,
				ProductID:       testProductID,
				ProductName:     "Walnut Desk",
				Quantity:        2,
				PriceCents:      25000,
				DiscountPercent: 10,
				CreatedAt:       now,
			},
		},
		TotalCents:      50000,
		ShippingAddress: "Atatürk Cad. No:1, İzmir",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ============================================================================
// POST /api/v1/orders
// ============================================================================

func TestPlaceOrder_Success(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.customerRouter(testUserID)

	f.basketRepo.On("GetByUserID", mock.Anything, testUserID).Return(sampleBasket(), nil)

	f.pool.ExpectBeginTx(readCommitted())
	f.pool.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), testUserID, domain.OrderStatusPending, int64(50000), "Atatürk Cad. No:1, İzmir", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), testProductID, "Walnut Desk", 2, int64(25000), 10, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("DELETE FROM basket_items").
		WithArgs("basket-1", testProductID, 2).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	f.pool.ExpectCommit()

	f.orderRepo.On("GetByID", mock.Anything, mock.AnythingOfType("string")).
		Return(sampleOrder(testUserID, domain.OrderStatusPending), nil)

	body, _ := json.Marshal(PlaceOrderRequest{ShippingAddress: "Atatürk Cad. No:1, İzmir"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusPending, data["status"])
	assert.Equal(t, float64(50000), data["total_cents"])

	require.NoError(t, f.pool.ExpectationsWereMet())
	f.basketRepo.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestPlaceOrder_EmptyBasket(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.customerRouter(testUserID)

	empty := sampleBasket()
	empty.Items = nil
	f.basketRepo.On("GetByUserID", mock.Anything, testUserID).Return(empty, nil)

	body, _ := json.Marshal(PlaceOrderRequest{ShippingAddress: "Atatürk Cad. No:1, İzmir"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EMPTY_BASKET", resp.Error.Code)
}

func TestPlaceOrder_NoBody(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.customerRouter(testUserID)

	f.basketRepo.On("GetByUserID", mock.Anything, testUserID).Return(sampleBasket(), nil)

	// The endpoint works with an empty body; the shipping address is optional.
	f.pool.ExpectBeginTx(readCommitted())
	f.pool.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), testUserID, domain.OrderStatusPending, int64(50000), "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), testProductID, "Walnut Desk", 2, int64(25000), 10, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.pool.ExpectExec("DELETE FROM basket_items").
		WithArgs("basket-1", testProductID, 2).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	f.pool.ExpectCommit()

	f.orderRepo.On("GetByID", mock.Anything, mock.AnythingOfType("string")).
		Return(sampleOrder(testUserID, domain.OrderStatusPending), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, f.pool.ExpectationsWereMet())
}

// ============================================================================
// GET /api/v1/orders/{id}
// ============================================================================

func TestGetOrder_Success(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.customerRouter(testUserID)

	f.orderRepo.On("GetByID", mock.Anything, testOrderID).
		Return(sampleOrder(testUserID, domain.OrderStatusShipped), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders/"+testOrderID, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusShipped, data["status"])
}

func TestGetOrder_OtherCustomersOrder(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.customerRouter(testUserID)

	f.orderRepo.On("GetByID", mock.Anything, testOrderID).
		Return(sampleOrder("someone-else", domain.OrderStatusPending), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders/"+testOrderID, nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

// ============================================================================
// POST /api/v1/orders/{id}/cancel
// ============================================================================

func TestCancelOrder_RestocksItems(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.customerRouter(testUserID)

	f.orderRepo.On("GetByID", mock.Anything, testOrderID).
		Return(sampleOrder(testUserID, domain.OrderStatusPending), nil)

	f.pool.ExpectBeginTx(readCommitted())
	f.pool.ExpectQuery("SELECT status FROM orders").
		WithArgs(testOrderID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(domain.OrderStatusPending))
	f.pool.ExpectQuery("SELECT stock FROM products").
		WithArgs(testProductID).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
	f.pool.ExpectExec("UPDATE products SET stock = stock").
		WithArgs(2, testProductID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusCancelled, testOrderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.pool.ExpectCommit()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders/"+testOrderID+"/cancel", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusCancelled, data["status"])

	require.NoError(t, f.pool.ExpectationsWereMet())
}

func TestCancelOrder_DeliveredOrder(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.customerRouter(testUserID)

	f.orderRepo.On("GetByID", mock.Anything, testOrderID).
		Return(sampleOrder(testUserID, domain.OrderStatusDelivered), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders/"+testOrderID+"/cancel", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// ============================================================================
// PUT /api/v1/admin/orders/{id}/status
// ============================================================================

func TestUpdateOrderStatus_Success(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.adminRouter(domain.RoleManager)

	f.orderRepo.On("GetByID", mock.Anything, testOrderID).
		Return(sampleOrder(testUserID, domain.OrderStatusPending), nil)
	f.pool.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusProcessing, testOrderID, domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	body, _ := json.Marshal(UpdateOrderStatusRequest{Status: domain.OrderStatusProcessing})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPut, "/api/v1/admin/orders/"+testOrderID+"/status", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusProcessing, data["status"])

	require.NoError(t, f.pool.ExpectationsWereMet())
}

func TestUpdateOrderStatus_SkippingStatesRejected(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.adminRouter(domain.RoleManager)

	f.orderRepo.On("GetByID", mock.Anything, testOrderID).
		Return(sampleOrder(testUserID, domain.OrderStatusPending), nil)

	body, _ := json.Marshal(UpdateOrderStatusRequest{Status: domain.OrderStatusDelivered})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPut, "/api/v1/admin/orders/"+testOrderID+"/status", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestUpdateOrderStatus_CustomerForbidden(t *testing.T) {
	f := newOrderTestFixture(t)
	router := f.adminRouter(domain.RoleCustomer)

	body, _ := json.Marshal(UpdateOrderStatusRequest{Status: domain.OrderStatusProcessing})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPut, "/api/v1/admin/orders/"+testOrderID+"/status", body))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
