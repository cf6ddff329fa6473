package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecommerce-platform/order-service/common/errors"
	"github.com/ecommerce-platform/order-service/internal/domain"
	"github.com/ecommerce-platform/order-service/internal/repository"
	"github.com/ecommerce-platform/order-service/internal/service"
)

// HTTPHandler 주문 HTTP 핸들러
type HTTPHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewHTTPHandler HTTP 핸들러 생성
func NewHTTPHandler(orderService service.OrderService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// NewRouter 주문 API 라우터 생성
func NewRouter(h *HTTPHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{orderID}", h.GetOrder)
		r.Get("/number/{orderNumber}", h.GetOrderByNumber)
		r.Get("/customer/{customerID}", h.GetCustomerOrders)
		r.Post("/{orderID}/confirm", h.ConfirmOrder)
		r.Post("/{orderID}/process", h.ProcessOrder)
		r.Post("/{orderID}/ship", h.ShipOrder)
		r.Post("/{orderID}/deliver", h.DeliverOrder)
		r.Post("/{orderID}/cancel", h.CancelOrder)
	})
	return r
}

// CreateOrderItemRequest 주문 아이템 요청
type CreateOrderItemRequest struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
}

// CreateOrderRequest 주문 생성 요청
type CreateOrderRequest struct {
	CustomerID      int64                    `json:"customerId"`
	Items           []CreateOrderItemRequest `json:"items"`
	ShippingAddress domain.Address           `json:"shippingAddress"`
	BillingAddress  *domain.Address          `json:"billingAddress,omitempty"`
	PaymentMethod   string                   `json:"paymentMethod"`
	Notes           string                   `json:"notes,omitempty"`
	IdempotencyKey  string                   `json:"idempotencyKey,omitempty"`
}

// ConfirmOrderRequest 주문 확정 요청
type ConfirmOrderRequest struct {
	TransactionID string `json:"transactionId"`
}

// CancelOrderRequest 주문 취소 요청
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ErrorResponse 에러 응답
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreateOrder 주문 생성 API
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	cmd := service.CreateOrderCommand{
		CustomerID:      req.CustomerID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		IdempotencyKey:  req.IdempotencyKey,
	}
	if req.BillingAddress != nil {
		cmd.BillingAddress = *req.BillingAddress
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, service.CreateOrderItemCommand{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TaxAmount:   item.TaxAmount,
		})
	}

	order, err := h.orderService.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.respondDomainError(w, err, "failed to create order")
		return
	}

	h.respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrder 주문 조회 API
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		h.respondDomainError(w, err, "failed to get order")
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetOrderByNumber 주문 번호로 조회 API
func (h *HTTPHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.orderService.GetOrderByNumber(r.Context(), orderNumber)
	if err != nil {
		h.respondDomainError(w, err, "failed to get order")
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetCustomerOrders 고객별 주문 목록 API
func (h *HTTPHandler) GetCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid customer ID", "")
		return
	}

	page := repository.DefaultPageRequest()
	query := r.URL.Query()
	if v := query.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Page = n
		}
	}
	if v := query.Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Size = n
		}
	}
	if v := query.Get("sortBy"); v != "" {
		page.SortBy = v
	}
	if v := query.Get("sortDir"); v != "" {
		page.SortDir = v
	}

	result, err := h.orderService.GetCustomerOrders(r.Context(), customerID, page)
	if err != nil {
		h.respondDomainError(w, err, "failed to list customer orders")
		return
	}

	h.respondJSON(w, http.StatusOK, toPageResponse(result))
}

// ConfirmOrder 주문 확정 API
func (h *HTTPHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.parseOrderID(w, r)
	if !ok {
		return
	}

	var req ConfirmOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	order, err := h.orderService.ConfirmOrder(r.Context(), orderID, req.TransactionID)
	if err != nil {
		h.respondDomainError(w, err, "failed to confirm order")
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// ProcessOrder 주문 처리 시작 API
func (h *HTTPHandler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orderService.StartProcessing, "failed to process order")
}

// ShipOrder 배송 시작 API
func (h *HTTPHandler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orderService.ShipOrder, "failed to ship order")
}

// DeliverOrder 배송 완료 API
func (h *HTTPHandler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orderService.DeliverOrder, "failed to deliver order")
}

// CancelOrder 주문 취소 API
func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.parseOrderID(w, r)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	order, err := h.orderService.CancelOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		h.respondDomainError(w, err, "failed to cancel order")
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// HealthCheck 헬스 체크 API
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// transition 본문 없는 상태 전이 엔드포인트 공통 처리
func (h *HTTPHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, orderID int64) (*domain.Order, error), logMsg string) {

	orderID, ok := h.parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := fn(r.Context(), orderID)
	if err != nil {
		h.respondDomainError(w, err, logMsg)
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) parseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid order ID", "")
		return 0, false
	}
	return orderID, true
}

func (h *HTTPHandler) respondDomainError(w http.ResponseWriter, err error, logMsg string) {
	code := errors.CodeOf(err)
	status := errors.HTTPStatus(code)

	if errors.IsBusinessError(err) {
		h.logger.Warn(logMsg, zap.String("code", string(code)), zap.Error(err))
	} else {
		h.logger.Error(logMsg, zap.String("code", string(code)), zap.Error(err))
	}

	h.respondError(w, status, err.Error(), string(code))
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message string, code string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
