package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecommerce-platform/order-service/common/errors"
	"github.com/ecommerce-platform/order-service/common/logger"
	"github.com/ecommerce-platform/order-service/internal/domain"
	"github.com/ecommerce-platform/order-service/internal/repository"
	"github.com/ecommerce-platform/order-service/internal/service"
)

// stubOrderService 테스트용 서비스 스텁 (함수 필드로 케이스별 동작 주입)
type stubOrderService struct {
	createOrder       func(ctx context.Context, cmd service.CreateOrderCommand) (*domain.Order, error)
	getOrder          func(ctx context.Context, orderID int64) (*domain.Order, error)
	getOrderByNumber  func(ctx context.Context, orderNumber string) (*domain.Order, error)
	getCustomerOrders func(ctx context.Context, customerID int64, page repository.PageRequest) (*repository.Page, error)
	confirmOrder      func(ctx context.Context, orderID int64, txnID string) (*domain.Order, error)
	startProcessing   func(ctx context.Context, orderID int64) (*domain.Order, error)
	shipOrder         func(ctx context.Context, orderID int64) (*domain.Order, error)
	deliverOrder      func(ctx context.Context, orderID int64) (*domain.Order, error)
	cancelOrder       func(ctx context.Context, orderID int64, reason string) (*domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd service.CreateOrderCommand) (*domain.Order, error) {
	return s.createOrder(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.getOrder(ctx, orderID)
}

func (s *stubOrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.getOrderByNumber(ctx, orderNumber)
}

func (s *stubOrderService) GetCustomerOrders(ctx context.Context, customerID int64, page repository.PageRequest) (*repository.Page, error) {
	return s.getCustomerOrders(ctx, customerID, page)
}

func (s *stubOrderService) ConfirmOrder(ctx context.Context, orderID int64, txnID string) (*domain.Order, error) {
	return s.confirmOrder(ctx, orderID, txnID)
}

func (s *stubOrderService) StartProcessing(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.startProcessing(ctx, orderID)
}

func (s *stubOrderService) ShipOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.shipOrder(ctx, orderID)
}

func (s *stubOrderService) DeliverOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.deliverOrder(ctx, orderID)
}

func (s *stubOrderService) CancelOrder(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
	return s.cancelOrder(ctx, orderID, reason)
}

func newTestRouter(svc service.OrderService) http.Handler {
	return NewRouter(NewHTTPHandler(svc, logger.NewTestLogger()))
}

func sampleOrder() *domain.Order {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:          1,
		OrderNumber: "ORD-1740830400000-0A1B2C3D",
		CustomerID:  42,
		Status:      domain.OrderStatusPending,
		Items: []domain.OrderItem{{
			ID:          10,
			ProductID:   "prod-1",
			ProductName: "Test Product",
			Quantity:    2,
			UnitPrice:   decimal.NewFromFloat(25.00),
			TotalPrice:  decimal.NewFromFloat(50.00),
		}},
		Subtotal:     decimal.NewFromFloat(50.00),
		TaxAmount:    decimal.NewFromFloat(5.00),
		ShippingCost: decimal.Zero,
		TotalAmount:  decimal.NewFromFloat(55.00),
		ShippingAddress: domain.Address{
			Street: "123 Main St", City: "Springfield", State: "IL", ZipCode: "62704", Country: "US",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeOrderResponse(t *testing.T, body *bytes.Buffer) OrderResponse {
	t.Helper()
	var resp OrderResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp
}

func decodeErrorResponse(t *testing.T, body *bytes.Buffer) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp
}

func TestCreateOrder_Created(t *testing.T) {
	var captured service.CreateOrderCommand
	svc := &stubOrderService{
		createOrder: func(ctx context.Context, cmd service.CreateOrderCommand) (*domain.Order, error) {
			captured = cmd
			return sampleOrder(), nil
		},
	}
	router := newTestRouter(svc)

	body := `{
		"customerId": 42,
		"items": [{"productId": "prod-1", "productName": "Test Product", "quantity": 2, "unitPrice": "25.00"}],
		"shippingAddress": {"street": "123 Main St", "city": "Springfield", "state": "IL", "zipCode": "62704", "country": "US"},
		"paymentMethod": "CREDIT_CARD",
		"idempotencyKey": "req-1"
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(42), captured.CustomerID)
	assert.Equal(t, "req-1", captured.IdempotencyKey)
	require.Len(t, captured.Items, 1)
	assert.Equal(t, "25", captured.Items[0].UnitPrice.String())

	resp := decodeOrderResponse(t, rec.Body)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "55.00", resp.TotalAmount)
	assert.Equal(t, "25.00", resp.Items[0].UnitPrice)
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	svc := &stubOrderService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_MinAmountMapsTo400(t *testing.T) {
	svc := &stubOrderService{
		createOrder: func(ctx context.Context, cmd service.CreateOrderCommand) (*domain.Order, error) {
			return nil, errors.New(errors.ErrCodeMinOrderAmountNotMet, "order total must be at least 10.00")
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"customerId":1}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorResponse(t, rec.Body)
	assert.Equal(t, "MIN_ORDER_AMOUNT_NOT_MET", resp.Code)
}

func TestGetOrder_NotFoundMapsTo404(t *testing.T) {
	svc := &stubOrderService{
		getOrder: func(ctx context.Context, orderID int64) (*domain.Order, error) {
			return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found")
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/999", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeErrorResponse(t, rec.Body)
	assert.Equal(t, "ORDER_NOT_FOUND", resp.Code)
}

func TestGetOrder_InvalidID(t *testing.T) {
	svc := &stubOrderService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderByNumber(t *testing.T) {
	svc := &stubOrderService{
		getOrderByNumber: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			assert.Equal(t, "ORD-1740830400000-0A1B2C3D", orderNumber)
			return sampleOrder(), nil
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/number/ORD-1740830400000-0A1B2C3D", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeOrderResponse(t, rec.Body)
	assert.Equal(t, int64(1), resp.ID)
}

func TestGetCustomerOrders_PagingParams(t *testing.T) {
	var captured repository.PageRequest
	svc := &stubOrderService{
		getCustomerOrders: func(ctx context.Context, customerID int64, page repository.PageRequest) (*repository.Page, error) {
			captured = page
			return &repository.Page{
				Content:       []*domain.Order{sampleOrder()},
				Page:          page.Page,
				Size:          page.Size,
				TotalElements: 1,
				TotalPages:    1,
			}, nil
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/customer/42?page=2&size=5&sortBy=totalAmount&sortDir=asc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, captured.Page)
	assert.Equal(t, 5, captured.Size)
	assert.Equal(t, "totalAmount", captured.SortBy)
	assert.Equal(t, "asc", captured.SortDir)

	var resp PageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Content, 1)
	assert.Equal(t, int64(1), resp.TotalElements)
}

func TestConfirmOrder_PassesTransactionID(t *testing.T) {
	svc := &stubOrderService{
		confirmOrder: func(ctx context.Context, orderID int64, txnID string) (*domain.Order, error) {
			assert.Equal(t, int64(1), orderID)
			assert.Equal(t, "TXN-1", txnID)
			order := sampleOrder()
			order.Status = domain.OrderStatusConfirmed
			order.PaymentTransactionID = txnID
			return order, nil
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/1/confirm",
		bytes.NewBufferString(`{"transactionId": "TXN-1"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeOrderResponse(t, rec.Body)
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, "TXN-1", resp.PaymentTransactionID)
}

func TestTransition_ConflictMapsTo409(t *testing.T) {
	svc := &stubOrderService{
		shipOrder: func(ctx context.Context, orderID int64) (*domain.Order, error) {
			return nil, errors.New(errors.ErrCodeInvalidTransition, "cannot transition from PENDING to SHIPPED")
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/1/ship", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeErrorResponse(t, rec.Body)
	assert.Equal(t, "INVALID_STATE_TRANSITION", resp.Code)
}

func TestCancelOrder(t *testing.T) {
	svc := &stubOrderService{
		cancelOrder: func(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
			assert.Equal(t, "changed my mind", reason)
			order := sampleOrder()
			order.Status = domain.OrderStatusCancelled
			order.CancellationReason = reason
			return order, nil
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/1/cancel",
		bytes.NewBufferString(`{"reason": "changed my mind"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeOrderResponse(t, rec.Body)
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestCancelOrder_DeliveredMapsTo409(t *testing.T) {
	svc := &stubOrderService{
		cancelOrder: func(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
			return nil, errors.New(errors.ErrCodeOrderNotCancellable, "delivered order cannot be cancelled")
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/1/cancel",
		bytes.NewBufferString(`{"reason": "too late"}`)))

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeErrorResponse(t, rec.Body)
	assert.Equal(t, "ORDER_NOT_CANCELLABLE", resp.Code)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&stubOrderService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
