package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecommerce-platform/order-service/common/errors"
)

// OrderStatus 주문 상태
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// MaxOrderItems 주문당 최대 아이템 수
const MaxOrderItems = 100

// Address 배송지/청구지 주소 (값 객체)
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Validate 필수 필드 검증
func (a Address) Validate() error {
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.ZipCode) == "" || strings.TrimSpace(a.Country) == "" {
		return errors.New(errors.ErrCodeInvalidOrder, "address must have street, city, zipCode and country")
	}
	return nil
}

// IsZero 주소가 비어 있는지 확인
func (a Address) IsZero() bool {
	return a == Address{}
}

// OrderItem 주문 아이템 (Order에 종속, 독립 라이프사이클 없음)
type OrderItem struct {
	ID          int64
	ProductID   string
	ProductName string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// Order 주문 애그리거트 루트
type Order struct {
	ID          int64
	OrderNumber string
	CustomerID  int64
	Status      OrderStatus
	Items       []OrderItem

	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal

	PaymentMethod        string
	PaymentTransactionID string
	ShippingAddress      Address
	BillingAddress       Address
	Notes                string
	IdempotencyKey       string

	// Optimistic Lock 버전
	Version int64

	ConfirmedAt        *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder 주문 애그리거트 생성 (PENDING 상태, 합계 계산 완료)
// billingAddress가 비어 있으면 shippingAddress를 사용한다.
func NewOrder(customerID int64, items []OrderItem, shippingAddress, billingAddress Address,
	paymentMethod, notes string, policy PricingPolicy) (*Order, error) {

	if customerID <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "customerId is required")
	}
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "order must contain at least one item")
	}
	if len(items) > MaxOrderItems {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "order cannot contain more than 100 items")
	}
	if err := shippingAddress.Validate(); err != nil {
		return nil, err
	}
	if billingAddress.IsZero() {
		billingAddress = shippingAddress
	} else if err := billingAddress.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	order := &Order{
		CustomerID:      customerID,
		Status:          OrderStatusPending,
		Items:           make([]OrderItem, len(items)),
		PaymentMethod:   paymentMethod,
		ShippingAddress: shippingAddress,
		BillingAddress:  billingAddress,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	copy(order.Items, items)

	if err := order.RecalculateTotals(policy, decimal.Zero); err != nil {
		return nil, err
	}

	return order, nil
}

// RecalculateTotals 아이템 합계와 주문 합계 재계산
// totalAmount = subtotal + taxAmount + shippingCost - discountAmount 불변식 유지.
func (o *Order) RecalculateTotals(policy PricingPolicy, discount decimal.Decimal) error {
	for i := range o.Items {
		total, err := ItemTotal(&o.Items[i])
		if err != nil {
			return err
		}
		o.Items[i].TotalPrice = total
	}

	totals, err := ComputeTotals(o.Items, policy, discount)
	if err != nil {
		return err
	}

	o.Subtotal = totals.Subtotal
	o.TaxAmount = totals.TaxAmount
	o.ShippingCost = totals.ShippingCost
	o.DiscountAmount = totals.DiscountAmount
	o.TotalAmount = totals.TotalAmount
	return nil
}

// AddItem 아이템 추가 후 합계 재계산
// PENDING 상태에서만 허용된다.
func (o *Order) AddItem(item OrderItem, policy PricingPolicy) error {
	if o.Status != OrderStatusPending {
		return errors.New(errors.ErrCodeInvalidOrder, "items can only be added to a pending order")
	}
	if len(o.Items) >= MaxOrderItems {
		return errors.New(errors.ErrCodeInvalidOrder, "order cannot contain more than 100 items")
	}

	o.Items = append(o.Items, item)
	if err := o.RecalculateTotals(policy, o.DiscountAmount); err != nil {
		o.Items = o.Items[:len(o.Items)-1]
		return err
	}
	o.UpdatedAt = time.Now()
	return nil
}

// 상태 전이 테이블: 현재 상태 -> 허용되는 다음 상태
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	// DELIVERED, CANCELLED는 종료 상태
}

// CanTransitionTo 상태 전이 가능 여부 확인
func (o *Order) CanTransitionTo(newStatus OrderStatus) bool {
	for _, allowed := range transitions[o.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal 종료 상태 여부
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

// IsCancellable 취소 가능 여부 (배송 완료/이미 취소된 주문은 불가)
func (o *Order) IsCancellable() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

func (o *Order) transitionTo(newStatus OrderStatus) error {
	if !o.CanTransitionTo(newStatus) {
		return errors.New(errors.ErrCodeInvalidTransition,
			"cannot transition from "+string(o.Status)+" to "+string(newStatus))
	}
	o.Status = newStatus
	o.UpdatedAt = time.Now()
	return nil
}

// Confirm 주문 확정 (PENDING -> CONFIRMED), 결제 트랜잭션 ID 기록
func (o *Order) Confirm(paymentTransactionID string) error {
	if strings.TrimSpace(paymentTransactionID) == "" {
		return errors.New(errors.ErrCodeInvalidOrder, "payment transaction id is required")
	}
	if err := o.transitionTo(OrderStatusConfirmed); err != nil {
		return err
	}
	now := time.Now()
	o.PaymentTransactionID = paymentTransactionID
	o.ConfirmedAt = &now
	return nil
}

// StartProcessing 주문 처리 시작 (CONFIRMED -> PROCESSING)
func (o *Order) StartProcessing() error {
	return o.transitionTo(OrderStatusProcessing)
}

// Ship 배송 시작 (PROCESSING -> SHIPPED)
func (o *Order) Ship() error {
	if err := o.transitionTo(OrderStatusShipped); err != nil {
		return err
	}
	now := time.Now()
	o.ShippedAt = &now
	return nil
}

// Deliver 배송 완료 (SHIPPED -> DELIVERED)
func (o *Order) Deliver() error {
	if err := o.transitionTo(OrderStatusDelivered); err != nil {
		return err
	}
	now := time.Now()
	o.DeliveredAt = &now
	return nil
}

// Cancel 주문 취소, 사유 필수
// 실패 시 애그리거트는 변경되지 않는다.
func (o *Order) Cancel(reason string) error {
	if !o.IsCancellable() {
		return errors.New(errors.ErrCodeOrderNotCancellable,
			"order cannot be cancelled in current status: "+string(o.Status))
	}
	if strings.TrimSpace(reason) == "" {
		return errors.New(errors.ErrCodeInvalidOrder, "cancellation reason is required")
	}
	if err := o.transitionTo(OrderStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancellationReason = reason
	return nil
}
