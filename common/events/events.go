package events

import "time"

// EventType 이벤트 타입 정의
type EventType string

const (
	// Order Lifecycle Events (토픽 이름과 동일)
	EventOrderCreated   EventType = "order.created"
	EventOrderUpdated   EventType = "order.updated"
	EventOrderCancelled EventType = "order.cancelled"
)

// BaseEvent 모든 이벤트의 기본 구조
// 컨슈머는 orderId + eventType + occurredAt 조합으로 중복 제거한다.
type BaseEvent struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// OrderCreatedEvent 주문 생성 이벤트
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64     `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	CustomerID  int64     `json:"customerId"`
	TotalAmount string    `json:"totalAmount"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderUpdatedEvent 주문 상태 변경 이벤트 (확정/처리/배송/완료 공통)
type OrderUpdatedEvent struct {
	BaseEvent
	OrderID     int64     `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	CustomerID  int64     `json:"customerId"`
	TotalAmount string    `json:"totalAmount"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderCancelledEvent 주문 취소 이벤트
type OrderCancelledEvent struct {
	BaseEvent
	OrderID     int64     `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}
