package repository

import (
	"context"
	"database/sql"
	goerrors "errors"
	"time"

	"github.com/lib/pq"

	"github.com/ecommerce-platform/order-service/common/errors"
	"github.com/ecommerce-platform/order-service/internal/domain"
)

// PageRequest 페이징 요청
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// DefaultPageRequest 기본 페이징: createdAt 내림차순, 10건
func DefaultPageRequest() PageRequest {
	return PageRequest{Page: 0, Size: 10, SortBy: "createdAt", SortDir: "DESC"}
}

// Page 페이징 결과
type Page struct {
	Content       []*domain.Order
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// OrderRepository 주문 레포지토리 인터페이스
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	FindByCustomerID(ctx context.Context, customerID int64, page PageRequest) (*Page, error)
	UpdateWithVersion(ctx context.Context, order *domain.Order) error
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
	FindPendingOlderThan(ctx context.Context, olderThan time.Time) ([]*domain.Order, error)
}

// 정렬 가능한 컬럼 화이트리스트
var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"totalAmount": "total_amount",
	"status":      "status",
	"orderNumber": "order_number",
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository 주문 레포지토리 생성
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `
	id, order_number, customer_id, status,
	subtotal, tax_amount, shipping_cost, discount_amount, total_amount,
	payment_method, payment_transaction_id,
	shipping_street, shipping_city, shipping_state, shipping_zip_code, shipping_country,
	billing_street, billing_city, billing_state, billing_zip_code, billing_country,
	notes, idempotency_key, version,
	confirmed_at, shipped_at, delivered_at, cancelled_at, cancellation_reason,
	created_at, updated_at`

// Create 주문과 아이템을 하나의 트랜잭션으로 저장
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError(ctx, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			order_number, customer_id, status,
			subtotal, tax_amount, shipping_cost, discount_amount, total_amount,
			payment_method, payment_transaction_id,
			shipping_street, shipping_city, shipping_state, shipping_zip_code, shipping_country,
			billing_street, billing_city, billing_state, billing_zip_code, billing_country,
			notes, idempotency_key, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, NULLIF($22, ''), $23, $24
		)
		RETURNING id, version
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		order.OrderNumber,
		order.CustomerID,
		order.Status,
		order.Subtotal,
		order.TaxAmount,
		order.ShippingCost,
		order.DiscountAmount,
		order.TotalAmount,
		order.PaymentMethod,
		order.PaymentTransactionID,
		order.ShippingAddress.Street,
		order.ShippingAddress.City,
		order.ShippingAddress.State,
		order.ShippingAddress.ZipCode,
		order.ShippingAddress.Country,
		order.BillingAddress.Street,
		order.BillingAddress.City,
		order.BillingAddress.State,
		order.BillingAddress.ZipCode,
		order.BillingAddress.Country,
		order.Notes,
		order.IdempotencyKey,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID, &order.Version)

	if err != nil {
		var pqErr *pq.Error
		if goerrors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "orders_idempotency_key_key" {
				return errors.Wrap(errors.ErrCodeDuplicateRequest, "duplicate idempotency key", err)
			}
			return errors.Wrap(errors.ErrCodeDuplicateOrderNumber, "duplicate order number", err)
		}
		return wrapDBError(ctx, "failed to insert order", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, sku, quantity, unit_price, discount, tax_amount, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		err = tx.QueryRowContext(
			ctx,
			itemQuery,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.SKU,
			item.Quantity,
			item.UnitPrice,
			item.Discount,
			item.TaxAmount,
			item.TotalPrice,
		).Scan(&item.ID)
		if err != nil {
			return wrapDBError(ctx, "failed to insert order item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapDBError(ctx, "failed to commit transaction", err)
	}

	return nil
}

// FindByID ID로 주문 조회 (아이템 포함)
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByOrderNumber 주문 번호로 주문 조회
func (r *orderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return r.findOne(ctx, query, orderNumber)
}

// FindByIdempotencyKey 멱등성 키로 주문 조회
func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`
	return r.findOne(ctx, query, key)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found")
		}
		return nil, wrapDBError(ctx, "failed to find order", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// FindByCustomerID 고객별 주문 목록 조회 (페이징, 정렬)
func (r *orderRepository) FindByCustomerID(ctx context.Context, customerID int64, page PageRequest) (*Page, error) {
	if page.Size <= 0 {
		page.Size = 10
	}
	if page.Page < 0 {
		page.Page = 0
	}

	column, ok := sortColumns[page.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if page.SortDir == "ASC" || page.SortDir == "asc" {
		direction = "ASC"
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM orders WHERE customer_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, customerID).Scan(&total); err != nil {
		return nil, wrapDBError(ctx, "failed to count orders", err)
	}

	// 안정적인 정렬을 위해 id를 보조 정렬 키로 사용
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1
		ORDER BY ` + column + ` ` + direction + `, id ` + direction + `
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, customerID, page.Size, page.Page*page.Size)
	if err != nil {
		return nil, wrapDBError(ctx, "failed to list orders", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, wrapDBError(ctx, "failed to scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(ctx, "failed to iterate orders", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	totalPages := int((total + int64(page.Size) - 1) / int64(page.Size))
	return &Page{
		Content:       orders,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

// UpdateWithVersion Optimistic Lock을 사용한 주문 갱신
// 버전이 일치하지 않으면 CONCURRENT_MODIFICATION 에러를 반환한다.
func (r *orderRepository) UpdateWithVersion(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1,
		    payment_transaction_id = $2,
		    confirmed_at = $3,
		    shipped_at = $4,
		    delivered_at = $5,
		    cancelled_at = $6,
		    cancellation_reason = $7,
		    version = version + 1,
		    updated_at = $8
		WHERE id = $9 AND version = $10
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		order.Status,
		order.PaymentTransactionID,
		order.ConfirmedAt,
		order.ShippedAt,
		order.DeliveredAt,
		order.CancelledAt,
		order.CancellationReason,
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return wrapDBError(ctx, "failed to update order", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(ctx, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.New(errors.ErrCodeConcurrentModification,
			"order was modified concurrently, retry the operation")
	}

	order.Version++
	return nil
}

// ExistsByOrderNumber 주문 번호 존재 여부 확인
func (r *orderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`
	if err := r.db.QueryRowContext(ctx, query, orderNumber).Scan(&exists); err != nil {
		return false, wrapDBError(ctx, "failed to check order number", err)
	}
	return exists, nil
}

// FindPendingOlderThan 기준 시각 이전에 생성된 PENDING 주문 조회
// 외부 타임아웃 스위퍼가 소비한다.
func (r *orderRepository) FindPendingOlderThan(ctx context.Context, olderThan time.Time) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, wrapDBError(ctx, "failed to find pending orders", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, wrapDBError(ctx, "failed to scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(ctx, "failed to iterate orders", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems 주문 목록의 아이템을 한 번의 쿼리로 로드
func (r *orderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}

	query := `
		SELECT id, order_id, product_id, product_name, sku, quantity, unit_price, discount, tax_amount, total_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return wrapDBError(ctx, "failed to load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		var orderID int64
		err := rows.Scan(
			&item.ID,
			&orderID,
			&item.ProductID,
			&item.ProductName,
			&item.SKU,
			&item.Quantity,
			&item.UnitPrice,
			&item.Discount,
			&item.TaxAmount,
			&item.TotalPrice,
		)
		if err != nil {
			return wrapDBError(ctx, "failed to scan order item", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var paymentTransactionID, notes, idempotencyKey, cancellationReason sql.NullString
	var confirmedAt, shippedAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.Status,
		&order.Subtotal,
		&order.TaxAmount,
		&order.ShippingCost,
		&order.DiscountAmount,
		&order.TotalAmount,
		&order.PaymentMethod,
		&paymentTransactionID,
		&order.ShippingAddress.Street,
		&order.ShippingAddress.City,
		&order.ShippingAddress.State,
		&order.ShippingAddress.ZipCode,
		&order.ShippingAddress.Country,
		&order.BillingAddress.Street,
		&order.BillingAddress.City,
		&order.BillingAddress.State,
		&order.BillingAddress.ZipCode,
		&order.BillingAddress.Country,
		&notes,
		&idempotencyKey,
		&order.Version,
		&confirmedAt,
		&shippedAt,
		&deliveredAt,
		&cancelledAt,
		&cancellationReason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.PaymentTransactionID = paymentTransactionID.String
	order.Notes = notes.String
	order.IdempotencyKey = idempotencyKey.String
	order.CancellationReason = cancellationReason.String
	order.ConfirmedAt = nullableTime(confirmedAt)
	order.ShippedAt = nullableTime(shippedAt)
	order.DeliveredAt = nullableTime(deliveredAt)
	order.CancelledAt = nullableTime(cancelledAt)
	return order, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

// wrapDBError DB 에러를 도메인 에러로 변환 (타임아웃은 재시도 가능 에러)
func wrapDBError(ctx context.Context, message string, err error) error {
	if goerrors.Is(err, context.DeadlineExceeded) || goerrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeoutError, message, err)
	}
	return errors.Wrap(errors.ErrCodeDatabaseError, message, err)
}
