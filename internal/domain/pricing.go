package domain

import (
	"github.com/shopspring/decimal"

	"github.com/ecommerce-platform/order-service/common/errors"
)

// PricingPolicy 금액 계산 정책 (배포 환경별 설정 가능)
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFlatFee       decimal.Decimal
}

// DefaultPricingPolicy 기본 정책: 세금 10%, 50.00 이상 무료 배송, 기본 배송비 5.00
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.NewFromFloat(0.10),
		FreeShippingThreshold: decimal.NewFromFloat(50.00),
		ShippingFlatFee:       decimal.NewFromFloat(5.00),
	}
}

// OrderTotals 주문 합계 계산 결과
type OrderTotals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ItemTotal 아이템 합계 계산: quantity * unitPrice - discount + taxAmount
// 소수점 2자리 반올림(half-up). 순수 함수.
func ItemTotal(item *OrderItem) (decimal.Decimal, error) {
	if item.Quantity < 1 {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidOrder, "item quantity must be at least 1")
	}
	if item.UnitPrice.IsNegative() {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidOrder, "item unit price cannot be negative")
	}
	if item.Discount.IsNegative() || item.TaxAmount.IsNegative() {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidOrder, "item discount and tax cannot be negative")
	}

	total := item.UnitPrice.
		Mul(decimal.NewFromInt(int64(item.Quantity))).
		Sub(item.Discount).
		Add(item.TaxAmount)

	if total.IsNegative() {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidOrder, "item total cannot be negative")
	}

	return round2(total), nil
}

// ComputeTotals 주문 합계 계산 (부가세, 배송비, 할인 포함). 순수 함수.
func ComputeTotals(items []OrderItem, policy PricingPolicy, discount decimal.Decimal) (OrderTotals, error) {
	if discount.IsNegative() {
		return OrderTotals{}, errors.New(errors.ErrCodeInvalidOrder, "discount cannot be negative")
	}

	subtotal := decimal.Zero
	for i := range items {
		itemTotal, err := ItemTotal(&items[i])
		if err != nil {
			return OrderTotals{}, err
		}
		subtotal = subtotal.Add(itemTotal)
	}

	tax := round2(subtotal.Mul(policy.TaxRate))

	shipping := policy.ShippingFlatFee
	if subtotal.GreaterThanOrEqual(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = round2(shipping)

	discount = round2(discount)
	total := subtotal.Add(tax).Add(shipping).Sub(discount)

	return OrderTotals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		ShippingCost:   shipping,
		DiscountAmount: discount,
		TotalAmount:    total,
	}, nil
}

// round2 소수점 2자리 half-up 반올림
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
