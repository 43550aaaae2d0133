package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/internal/event"
	"github.com/sneakrush/api/internal/repository"
	"github.com/sneakrush/api/internal/service"
	apperrors "github.com/sneakrush/api/pkg/errors"
	pkgkafka "github.com/sneakrush/api/pkg/kafka"
	"github.com/sneakrush/api/pkg/middleware"
)

const testOrderID = "550e8400-e29b-41d4-a716-446655440001"

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) CreateFromCart(ctx context.Context, userID string, promo *domain.Promotion) (*domain.Order, error) {
	args := m.Called(ctx, userID, promo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOrderRepository) CancelRestock(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// --- Mock PromotionRepository ---

type mockPromotionRepository struct {
	mock.Mock
}

func (m *mockPromotionRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promotion), args.Error(1)
}

// --- Test Helpers ---

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func testOrderHandler(orders *mockOrderRepository, promos *mockPromotionRepository, cache *mockCountCache) *OrderHandler {
	svc := service.NewOrderService(orders, promos, cache, testEventProducer(), testLogger())
	return NewOrderHandler(svc, testLogger())
}

// setupOrderRouter creates a chi router matching the production route layout.
func setupOrderRouter(handler *OrderHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Identity())
		r.Post("/", handler.Checkout)
		r.With(middleware.RequireRole(roleAdmin)).Get("/", handler.ListOrders)
		r.Get("/me", handler.ListMyOrders)
		r.Get("/{id}", handler.GetOrder)
		r.With(middleware.RequireRole(roleAdmin)).Put("/{id}/status", handler.UpdateOrderStatus)
		r.Post("/{id}/cancel", handler.CancelOrder)
	})
	return r
}

// sampleOrder returns a realistic paid order for use in test expectations.
func sampleOrder() *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:     testOrderID,
		UserID: testUserID,
		Status: domain.OrderStatusPaid,
		Items: []domain.OrderItem{
			{
				ID:            "550e8400-e29b-41d4-a716-446655440010",
				OrderID:       testOrderID,
				ProductSizeID: testVariantID,
				ProductName:   "Air Zoom Velocity",
				SizeLabel:     "US 10",
				Quantity:      2,
				PriceCents:    12999,
			},
		},
		SubtotalCents: 25998,
		DiscountCents: 0,
		TotalCents:    25998,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// --- Tests ---

func TestOrderHandler_Checkout(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("CreateFromCart", mock.Anything, testUserID, (*domain.Promotion)(nil)).Return(sampleOrder(), nil)
	cache.On("Invalidate", mock.Anything, testUserID).Return(nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(`{}`))
	req.Header.Set("X-User-ID", testUserID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "paid", data["status"])
	assert.Equal(t, float64(25998), data["total_cents"])
	promos.AssertNotCalled(t, "FindActiveByCode", mock.Anything, mock.Anything)
	orders.AssertExpectations(t)
}

func TestOrderHandler_Checkout_EmptyBody(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("CreateFromCart", mock.Anything, testUserID, (*domain.Promotion)(nil)).Return(sampleOrder(), nil)
	cache.On("Invalidate", mock.Anything, testUserID).Return(nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	orders.AssertExpectations(t)
}

func TestOrderHandler_Checkout_MalformedBody(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	body := bytes.NewBufferString(`{"promotion_code": "SPRING10"`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", body)
	req.Header.Set("X-User-ID", testUserID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// A broken body must not silently check out at full price.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	orders.AssertNotCalled(t, "CreateFromCart", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_Checkout_WithPromotionCode(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	promo := &domain.Promotion{
		ID:            "550e8400-e29b-41d4-a716-446655440030",
		Code:          "SPRING10",
		DiscountType:  domain.DiscountTypePercent,
		DiscountValue: 10,
		IsActive:      true,
	}
	discounted := sampleOrder()
	discounted.DiscountCents = 2600
	discounted.TotalCents = 23398
	promos.On("FindActiveByCode", mock.Anything, "SPRING10").Return(promo, nil)
	orders.On("CreateFromCart", mock.Anything, testUserID, promo).Return(discounted, nil)
	cache.On("Invalidate", mock.Anything, testUserID).Return(nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	body := bytes.NewBufferString(`{"promotion_code":"SPRING10"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", body)
	req.Header.Set("X-User-ID", testUserID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2600), data["discount_cents"])
	promos.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestOrderHandler_Checkout_EmptyCart(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("CreateFromCart", mock.Anything, testUserID, (*domain.Promotion)(nil)).
		Return(nil, apperrors.InvalidInput("cart is empty"))

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(`{}`))
	req.Header.Set("X-User-ID", testUserID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestOrderHandler_Checkout_InsufficientStock(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("CreateFromCart", mock.Anything, testUserID, (*domain.Promotion)(nil)).
		Return(nil, apperrors.InsufficientStock(testVariantID, 4, 2))

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(`{}`))
	req.Header.Set("X-User-ID", testUserID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
}

func TestOrderHandler_GetOrder_Owner(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("GetByID", mock.Anything, testOrderID).Return(sampleOrder(), nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+testOrderID, nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, testOrderID, data["id"])
}

func TestOrderHandler_GetOrder_OtherUserForbidden(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("GetByID", mock.Anything, testOrderID).Return(sampleOrder(), nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+testOrderID, nil)
	req.Header.Set("X-User-ID", "someone-else")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

func TestOrderHandler_GetOrder_AdminBypassesOwnership(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("GetByID", mock.Anything, testOrderID).Return(sampleOrder(), nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+testOrderID, nil)
	req.Header.Set("X-User-ID", "admin-1")
	req.Header.Set("X-User-Role", roleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderHandler_GetOrder_NotFound(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("GetByID", mock.Anything, testOrderID).
		Return(nil, apperrors.NotFound("order", testOrderID))

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+testOrderID, nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandler_ListOrders_AdminOnly(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	orders.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestOrderHandler_ListOrders_WithFilters(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("List", mock.Anything, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.Page == 2 && f.PerPage == 10 &&
			f.UserID != nil && *f.UserID == testUserID &&
			f.Status != nil && *f.Status == "paid"
	})).Return([]domain.Order{*sampleOrder()}, 25, nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=2&per_page=10&user_id="+testUserID+"&status=paid", nil)
	req.Header.Set("X-User-ID", "admin-1")
	req.Header.Set("X-User-Role", roleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	orders.AssertExpectations(t)
}

func TestOrderHandler_ListMyOrders(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	orders.On("List", mock.Anything, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.UserID != nil && *f.UserID == testUserID && f.Page == 1 && f.PerPage == 20
	})).Return([]domain.Order{*sampleOrder()}, 1, nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/me", nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	orders.AssertExpectations(t)
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	shipped := sampleOrder()
	shipped.Status = domain.OrderStatusShipped
	orders.On("GetByID", mock.Anything, testOrderID).Return(sampleOrder(), nil).Once()
	orders.On("UpdateStatus", mock.Anything, testOrderID, "shipped").Return(nil)
	orders.On("GetByID", mock.Anything, testOrderID).Return(shipped, nil).Once()

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	body := bytes.NewBufferString(`{"status":"shipped"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+testOrderID+"/status", body)
	req.Header.Set("X-User-ID", "admin-1")
	req.Header.Set("X-User-Role", roleAdmin)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "shipped", data["status"])
	orders.AssertExpectations(t)
}

func TestOrderHandler_UpdateOrderStatus_InvalidStatus(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	body := bytes.NewBufferString(`{"status":"teleported"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+testOrderID+"/status", body)
	req.Header.Set("X-User-ID", "admin-1")
	req.Header.Set("X-User-Role", roleAdmin)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_UpdateOrderStatus_NonAdminForbidden(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	body := bytes.NewBufferString(`{"status":"shipped"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+testOrderID+"/status", body)
	req.Header.Set("X-User-ID", testUserID)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_CancelOrder(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	canceled := sampleOrder()
	canceled.Status = domain.OrderStatusCanceled
	orders.On("GetByID", mock.Anything, testOrderID).Return(sampleOrder(), nil).Once()
	orders.On("CancelRestock", mock.Anything, testOrderID).Return("paid", nil)
	orders.On("GetByID", mock.Anything, testOrderID).Return(canceled, nil).Once()

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+testOrderID+"/cancel", nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "canceled", data["status"])
	orders.AssertExpectations(t)
}

func TestOrderHandler_CancelOrder_AlreadyTerminal(t *testing.T) {
	orders := new(mockOrderRepository)
	promos := new(mockPromotionRepository)
	cache := new(mockCountCache)
	canceled := sampleOrder()
	canceled.Status = domain.OrderStatusCanceled
	orders.On("GetByID", mock.Anything, testOrderID).Return(canceled, nil)
	orders.On("CancelRestock", mock.Anything, testOrderID).Return("canceled", nil)

	router := setupOrderRouter(testOrderHandler(orders, promos, cache))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+testOrderID+"/cancel", nil)
	req.Header.Set("X-User-ID", testUserID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_TERMINAL", resp.Error.Code)
}
