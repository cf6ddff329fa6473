package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecommerce-platform/order-service/common/errors"
	"github.com/ecommerce-platform/order-service/common/events"
	"github.com/ecommerce-platform/order-service/common/messaging"
	"github.com/ecommerce-platform/order-service/internal/cache"
	"github.com/ecommerce-platform/order-service/internal/domain"
	"github.com/ecommerce-platform/order-service/internal/repository"
)

// 주문 번호 충돌 시 재생성 횟수
const orderNumberAttempts = 3

// CreateOrderItemCommand 주문 아이템 생성 커맨드
type CreateOrderItemCommand struct {
	ProductID   string
	ProductName string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxAmount   decimal.Decimal
}

// CreateOrderCommand 주문 생성 커맨드
type CreateOrderCommand struct {
	CustomerID      int64
	Items           []CreateOrderItemCommand
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	PaymentMethod   string
	Notes           string
	IdempotencyKey  string
}

// Config 주문 서비스 설정
type Config struct {
	Pricing        domain.PricingPolicy
	MinOrderAmount decimal.Decimal
	DBTimeout      time.Duration
}

// DefaultConfig 기본 설정: 최소 주문 금액 10.00, DB 타임아웃 3초
func DefaultConfig() Config {
	return Config{
		Pricing:        domain.DefaultPricingPolicy(),
		MinOrderAmount: decimal.NewFromFloat(10.00),
		DBTimeout:      3 * time.Second,
	}
}

// OrderService 주문 라이프사이클 서비스 인터페이스
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetCustomerOrders(ctx context.Context, customerID int64, page repository.PageRequest) (*repository.Page, error)
	ConfirmOrder(ctx context.Context, orderID int64, paymentTransactionID string) (*domain.Order, error)
	StartProcessing(ctx context.Context, orderID int64) (*domain.Order, error)
	ShipOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	DeliverOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string) (*domain.Order, error)
}

type orderService struct {
	orderRepo  repository.OrderRepository
	publisher  messaging.Publisher
	orderCache cache.OrderCache
	config     Config
	logger     *zap.Logger
}

// NewOrderService 주문 서비스 생성
// orderCache는 nil이어도 동작한다 (캐시 없이 저장소 직접 조회).
func NewOrderService(
	orderRepo repository.OrderRepository,
	publisher messaging.Publisher,
	orderCache cache.OrderCache,
	config Config,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		publisher:  publisher,
		orderCache: orderCache,
		config:     config,
		logger:     logger,
	}
}

// CreateOrder 주문 생성
// 검증 -> 합계 계산 -> PENDING 애그리거트 생성 -> 저장 -> 이벤트 발행 순서.
// 저장이 성공해야 발행을 시도하며, 발행 실패는 로그만 남기고 무시한다.
func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	// 멱등성 체크
	if cmd.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if err == nil {
			s.logger.Info("order already exists with idempotency key",
				zap.String("idempotencyKey", cmd.IdempotencyKey),
				zap.Int64("orderId", existing.ID))
			return existing, nil
		}
		if !errors.IsCode(err, errors.ErrCodeOrderNotFound) {
			return nil, err
		}
	}

	items := make([]domain.OrderItem, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TaxAmount:   item.TaxAmount,
		})
	}

	order, err := domain.NewOrder(cmd.CustomerID, items, cmd.ShippingAddress, cmd.BillingAddress,
		cmd.PaymentMethod, cmd.Notes, s.config.Pricing)
	if err != nil {
		return nil, err
	}
	order.IdempotencyKey = cmd.IdempotencyKey

	// 최소 주문 금액은 상품 소계 기준 (세금/배송비 제외)
	if order.Subtotal.LessThan(s.config.MinOrderAmount) {
		return nil, errors.New(errors.ErrCodeMinOrderAmountNotMet,
			"order total must be at least "+s.config.MinOrderAmount.StringFixed(2))
	}

	if err := s.persistNewOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order created successfully",
		zap.Int64("orderId", order.ID),
		zap.String("orderNumber", order.OrderNumber),
		zap.String("totalAmount", order.TotalAmount.StringFixed(2)))

	s.publishCreated(ctx, order)
	return order, nil
}

// persistNewOrder 주문 번호를 생성해 저장, unique 충돌 시 번호를 재생성해 재시도
func (s *orderService) persistNewOrder(ctx context.Context, order *domain.Order) error {
	var lastErr error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		order.OrderNumber = domain.GenerateOrderNumber()

		dbCtx, cancel := s.dbContext(ctx)
		err := s.orderRepo.Create(dbCtx, order)
		cancel()
		if err == nil {
			return nil
		}
		if !errors.IsCode(err, errors.ErrCodeDuplicateOrderNumber) {
			return err
		}

		lastErr = err
		s.logger.Warn("order number collision, regenerating",
			zap.String("orderNumber", order.OrderNumber),
			zap.Int("attempt", attempt))
	}
	return lastErr
}

// GetOrder ID로 주문 조회 (캐시 우선)
func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	if s.orderCache != nil {
		cached, err := s.orderCache.Get(ctx, orderID)
		if err != nil {
			s.logger.Warn("order cache lookup failed", zap.Int64("orderId", orderID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()

	order, err := s.orderRepo.FindByID(dbCtx, orderID)
	if err != nil {
		return nil, err
	}

	if s.orderCache != nil {
		if err := s.orderCache.Set(ctx, order); err != nil {
			s.logger.Warn("failed to cache order", zap.Int64("orderId", orderID), zap.Error(err))
		}
	}
	return order, nil
}

// GetOrderByNumber 주문 번호로 주문 조회
func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	return s.orderRepo.FindByOrderNumber(dbCtx, orderNumber)
}

// GetCustomerOrders 고객별 주문 목록 조회 (페이징)
func (s *orderService) GetCustomerOrders(ctx context.Context, customerID int64, page repository.PageRequest) (*repository.Page, error) {
	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	return s.orderRepo.FindByCustomerID(dbCtx, customerID, page)
}

// ConfirmOrder 주문 확정 (PENDING -> CONFIRMED), OrderUpdated 이벤트 발행
func (s *orderService) ConfirmOrder(ctx context.Context, orderID int64, paymentTransactionID string) (*domain.Order, error) {
	return s.applyTransition(ctx, orderID, "confirm", func(order *domain.Order) error {
		return order.Confirm(paymentTransactionID)
	})
}

// StartProcessing 주문 처리 시작 (CONFIRMED -> PROCESSING)
func (s *orderService) StartProcessing(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.applyTransition(ctx, orderID, "process", func(order *domain.Order) error {
		return order.StartProcessing()
	})
}

// ShipOrder 배송 시작 (PROCESSING -> SHIPPED)
func (s *orderService) ShipOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.applyTransition(ctx, orderID, "ship", func(order *domain.Order) error {
		return order.Ship()
	})
}

// DeliverOrder 배송 완료 (SHIPPED -> DELIVERED)
func (s *orderService) DeliverOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.applyTransition(ctx, orderID, "deliver", func(order *domain.Order) error {
		return order.Deliver()
	})
}

// CancelOrder 주문 취소, OrderCancelled 이벤트 발행
func (s *orderService) CancelOrder(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
	order, err := s.mutateOrder(ctx, orderID, func(order *domain.Order) error {
		return order.Cancel(reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		zap.Int64("orderId", order.ID),
		zap.String("reason", reason))

	s.publishCancelled(ctx, order)
	return order, nil
}

// applyTransition 상태 전이 후 OrderUpdated 이벤트 발행 공통 경로
func (s *orderService) applyTransition(ctx context.Context, orderID int64, operation string,
	mutate func(*domain.Order) error) (*domain.Order, error) {

	order, err := s.mutateOrder(ctx, orderID, mutate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.Int64("orderId", order.ID),
		zap.String("operation", operation),
		zap.String("status", string(order.Status)))

	s.publishUpdated(ctx, order)
	return order, nil
}

// mutateOrder 조회 -> 전이 -> Optimistic Lock 저장 -> 캐시 무효화
// 전이 실패 시 애그리거트와 저장소 모두 변경되지 않는다.
func (s *orderService) mutateOrder(ctx context.Context, orderID int64,
	mutate func(*domain.Order) error) (*domain.Order, error) {

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()

	order, err := s.orderRepo.FindByID(dbCtx, orderID)
	if err != nil {
		return nil, err
	}

	if err := mutate(order); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateWithVersion(dbCtx, order); err != nil {
		return nil, err
	}

	if s.orderCache != nil {
		if err := s.orderCache.Invalidate(ctx, order.ID); err != nil {
			s.logger.Warn("failed to invalidate order cache", zap.Int64("orderId", order.ID), zap.Error(err))
		}
	}

	return order, nil
}

func (s *orderService) findByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	return s.orderRepo.FindByIdempotencyKey(dbCtx, key)
}

func (s *orderService) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.DBTimeout)
}

// publishCreated OrderCreated 이벤트 발행 (실패는 로그만 남김)
func (s *orderService) publishCreated(ctx context.Context, order *domain.Order) {
	event := events.OrderCreatedEvent{
		BaseEvent:   s.baseEvent(events.EventOrderCreated),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Status:      string(order.Status),
		Timestamp:   order.CreatedAt,
	}
	s.publish(ctx, events.EventOrderCreated, order.ID, event)
}

// publishUpdated OrderUpdated 이벤트 발행 (실패는 로그만 남김)
func (s *orderService) publishUpdated(ctx context.Context, order *domain.Order) {
	event := events.OrderUpdatedEvent{
		BaseEvent:   s.baseEvent(events.EventOrderUpdated),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Status:      string(order.Status),
		Timestamp:   order.UpdatedAt,
	}
	s.publish(ctx, events.EventOrderUpdated, order.ID, event)
}

// publishCancelled OrderCancelled 이벤트 발행 (실패는 로그만 남김)
func (s *orderService) publishCancelled(ctx context.Context, order *domain.Order) {
	cancelledAt := time.Now()
	if order.CancelledAt != nil {
		cancelledAt = *order.CancelledAt
	}
	event := events.OrderCancelledEvent{
		BaseEvent:   s.baseEvent(events.EventOrderCancelled),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reason:      order.CancellationReason,
		CancelledAt: cancelledAt,
	}
	s.publish(ctx, events.EventOrderCancelled, order.ID, event)
}

// publish fire-and-forget 발행: 비즈니스 연산은 이미 커밋되었으므로
// 발행 실패는 응답을 막지 않고 로그만 남긴다.
func (s *orderService) publish(ctx context.Context, topic events.EventType, orderID int64, event interface{}) {
	if err := messaging.PublishWithOrderID(ctx, s.publisher, string(topic), orderID, event); err != nil {
		s.logger.Error("failed to publish order event",
			zap.String("topic", string(topic)),
			zap.Int64("orderId", orderID),
			zap.Error(err))
	}
}

func (s *orderService) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		SchemaVersion: 1,
		OccurredAt:    time.Now(),
	}
}
