package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	reserveStockSQL = `UPDATE product_variants
		SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND is_available AND stock_quantity >= $2`

	insertOrderSQL = `INSERT INTO orders
			(id, order_number, user_id, order_status, payment_status, payment_method,
			 subtotal, shipping_cost, tax_amount, discount_amount, total_amount,
			 coupon_code, shipping_address_id, billing_address_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	insertOrderItemSQL = `INSERT INTO order_items
			(id, order_id, variant_id, product_name, sku, size, color, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertHistorySQL = `INSERT INTO order_status_history (id, order_id, status, notes, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	orderColumns = `id, order_number, user_id, order_status, payment_status, payment_method,
		subtotal, shipping_cost, tax_amount, discount_amount, total_amount,
		coupon_code, shipping_address_id, billing_address_id, notes, created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND id = $2`

	listOrderItemsSQL = `SELECT id, order_id, variant_id, product_name, sku, size, color, unit_price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY product_name`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1
		  AND ($2 = '' OR order_status = $2)
		  AND ($3 = '' OR payment_status = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at <= $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7`

	countOrdersSQL = `SELECT count(*) FROM orders
		WHERE user_id = $1
		  AND ($2 = '' OR order_status = $2)
		  AND ($3 = '' OR payment_status = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at <= $5)`

	transitionOrderSQL = `UPDATE orders
		SET order_status = $1,
		    payment_status = COALESCE($2, payment_status),
		    updated_at = now()
		WHERE user_id = $3 AND id = $4 AND order_status = ANY($5)`

	currentStatusSQL = `SELECT order_status FROM orders WHERE user_id = $1 AND id = $2`

	historySQL = `SELECT id, order_id, status, notes, changed_by, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create places the order in a single transaction: stock is reserved with a
// conditional decrement per line, then the order row, item snapshots, and
// initial history row are inserted and the active cart lines removed. Any
// step failing rolls the whole checkout back; a failed reservation surfaces
// as *order.OutOfStockError.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, cartID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, reserveStockSQL, item.VariantID, item.Quantity)
		if err != nil {
			return fmt.Errorf("reserving stock for %q: %w", item.VariantID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.OutOfStockError{VariantID: item.VariantID, Requested: item.Quantity}
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.PaymentStatus, o.PaymentMethod,
		o.Subtotal, o.ShippingCost, o.TaxAmount, o.DiscountAmount, o.TotalAmount,
		o.CouponCode, o.ShippingAddrID, o.BillingAddrID, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.VariantID, item.ProductName, item.SKU,
			item.Size, item.Color, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("creating order item: %w", err)
		}
	}

	_, err = tx.Exec(ctx, insertHistorySQL,
		newID(), o.ID, o.Status, "order placed", o.UserID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating initial history: %w", err)
	}

	if _, err := tx.Exec(ctx, clearActiveItemsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID returns an order with its item snapshots, scoped to the owner.
func (r *OrderRepository) GetByID(ctx context.Context, userID, orderID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, userID, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns paginated order summaries and the total match count.
func (r *OrderRepository) List(ctx context.Context, userID string, f order.ListFilter) ([]order.Order, int, error) {
	from := nullableTime(f.From)
	to := nullableTime(f.To)

	var total int
	err := r.pool.QueryRow(ctx, countOrdersSQL, userID, f.Status, f.PaymentStatus, from, to).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, userID, f.Status, f.PaymentStatus, from, to, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Transition applies a guarded status update: it succeeds only while the
// stored status is still one of from. On a zero-row update the current status
// is re-read to distinguish a missing order from a lost race.
func (r *OrderRepository) Transition(ctx context.Context, userID, orderID string, from []order.Status, to order.Status, payment *order.PaymentStatus) error {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	var paymentArg *string
	if payment != nil {
		p := string(*payment)
		paymentArg = &p
	}

	tag, err := r.pool.Exec(ctx, transitionOrderSQL, to, paymentArg, userID, orderID, statuses)
	if err != nil {
		return fmt.Errorf("transitioning order %q: %w", orderID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current order.Status
	err = r.pool.QueryRow(ctx, currentStatusSQL, userID, orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return fmt.Errorf("reading order status: %w", err)
	}
	return &order.InvalidTransitionError{From: current, To: to}
}

// AppendHistory writes one status-history row.
func (r *OrderRepository) AppendHistory(ctx context.Context, e *order.StatusEvent) error {
	_, err := r.pool.Exec(ctx, insertHistorySQL,
		e.ID, e.OrderID, e.Status, e.Notes, e.ChangedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// History returns the status timeline for an order, oldest first.
func (r *OrderRepository) History(ctx context.Context, orderID string) ([]order.StatusEvent, error) {
	rows, err := r.pool.Query(ctx, historySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.StatusEvent, error) {
		var e order.StatusEvent
		err := row.Scan(&e.ID, &e.OrderID, &e.Status, &e.Notes, &e.ChangedBy, &e.CreatedAt)
		return e, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.Subtotal, &o.ShippingCost, &o.TaxAmount, &o.DiscountAmount, &o.TotalAmount,
		&o.CouponCode, &o.ShippingAddrID, &o.BillingAddrID, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var i order.Item
	err := row.Scan(&i.ID, &i.OrderID, &i.VariantID, &i.ProductName, &i.SKU, &i.Size, &i.Color, &i.UnitPrice, &i.Quantity)
	return i, err
}
