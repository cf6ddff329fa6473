package handler

import (
	"time"

	"github.com/ecommerce-platform/order-service/internal/domain"
	"github.com/ecommerce-platform/order-service/internal/repository"
)

// OrderItemResponse 주문 아이템 응답 DTO
type OrderItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	SKU         string `json:"sku,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Discount    string `json:"discount"`
	TaxAmount   string `json:"taxAmount"`
	TotalPrice  string `json:"totalPrice"`
}

// OrderResponse 주문 응답 DTO (금액은 소수점 2자리 문자열)
type OrderResponse struct {
	ID                   int64               `json:"id"`
	OrderNumber          string              `json:"orderNumber"`
	CustomerID           int64               `json:"customerId"`
	Status               string              `json:"status"`
	Items                []OrderItemResponse `json:"items"`
	Subtotal             string              `json:"subtotal"`
	TaxAmount            string              `json:"taxAmount"`
	ShippingCost         string              `json:"shippingCost"`
	DiscountAmount       string              `json:"discountAmount"`
	TotalAmount          string              `json:"totalAmount"`
	PaymentMethod        string              `json:"paymentMethod,omitempty"`
	PaymentTransactionID string              `json:"paymentTransactionId,omitempty"`
	ShippingAddress      domain.Address      `json:"shippingAddress"`
	BillingAddress       domain.Address      `json:"billingAddress"`
	Notes                string              `json:"notes,omitempty"`
	ConfirmedAt          *time.Time          `json:"confirmedAt,omitempty"`
	ShippedAt            *time.Time          `json:"shippedAt,omitempty"`
	DeliveredAt          *time.Time          `json:"deliveredAt,omitempty"`
	CancelledAt          *time.Time          `json:"cancelledAt,omitempty"`
	CancellationReason   string              `json:"cancellationReason,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// PageResponse 페이징 응답 DTO
type PageResponse struct {
	Content       []OrderResponse `json:"content"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
	TotalElements int64           `json:"totalElements"`
	TotalPages    int             `json:"totalPages"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Discount:    item.Discount.StringFixed(2),
			TaxAmount:   item.TaxAmount.StringFixed(2),
			TotalPrice:  item.TotalPrice.StringFixed(2),
		})
	}

	return OrderResponse{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		CustomerID:           order.CustomerID,
		Status:               string(order.Status),
		Items:                items,
		Subtotal:             order.Subtotal.StringFixed(2),
		TaxAmount:            order.TaxAmount.StringFixed(2),
		ShippingCost:         order.ShippingCost.StringFixed(2),
		DiscountAmount:       order.DiscountAmount.StringFixed(2),
		TotalAmount:          order.TotalAmount.StringFixed(2),
		PaymentMethod:        order.PaymentMethod,
		PaymentTransactionID: order.PaymentTransactionID,
		ShippingAddress:      order.ShippingAddress,
		BillingAddress:       order.BillingAddress,
		Notes:                order.Notes,
		ConfirmedAt:          order.ConfirmedAt,
		ShippedAt:            order.ShippedAt,
		DeliveredAt:          order.DeliveredAt,
		CancelledAt:          order.CancelledAt,
		CancellationReason:   order.CancellationReason,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

func toPageResponse(page *repository.Page) PageResponse {
	content := make([]OrderResponse, 0, len(page.Content))
	for _, order := range page.Content {
		content = append(content, toOrderResponse(order))
	}
	return PageResponse{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
	}
}
