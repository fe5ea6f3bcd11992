package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order. Legal transitions:
//
//	pending → confirmed → processing → shipped → delivered
//	pending, confirmed  → cancelled
//	delivered           → returned
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// PaymentStatus tracks the payment side of an order, stored independently of
// the fulfilment status.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentCODPending PaymentStatus = "cod_pending"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// CancellableStatuses is the authoritative set of states an order can be
// cancelled from.
var CancellableStatuses = []Status{StatusPending, StatusConfirmed}

// Pricing constants applied at checkout.
var (
	// ShippingFee is the flat shipping cost below the free-shipping threshold.
	ShippingFee = decimal.RequireFromString("10.00")
	// FreeShippingThreshold waives the shipping fee for subtotals at or above it.
	FreeShippingThreshold = decimal.RequireFromString("100.00")
	// TaxRate is the fixed tax percentage applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.08")
)

// ReturnWindow is how long after delivery an order remains returnable.
const ReturnWindow = 30 * 24 * time.Hour

// Delivery estimate offsets used by tracking.
const (
	estimateFromShipped = 4 * 24 * time.Hour
	estimateFromCreated = 7 * 24 * time.Hour
)

// Sentinel errors for order operations.
var (
	ErrNotFound            = errors.New("order not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrReturnWindowExpired = errors.New("return window expired")
	ErrReturnReasonMissing = errors.New("return reason is required")
	ErrReturnItemsMissing  = errors.New("return items are required")
)

// InvalidTransitionError indicates a status change that is not on an allowed
// edge.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
}

// OutOfStockError indicates checkout could not reserve stock for a variant.
type OutOfStockError struct {
	VariantID string
	Requested int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s (requested %d)", e.VariantID, e.Requested)
}

// ReturnItemError indicates a return request references an item that does not
// belong to the order or asks for more units than were purchased.
type ReturnItemError struct {
	OrderItemID string
	Reason      string
}

func (e *ReturnItemError) Error() string {
	return fmt.Sprintf("return item %s: %s", e.OrderItemID, e.Reason)
}

// Order is a placed order with its full monetary breakdown. Items are
// immutable snapshots taken at checkout.
type Order struct {
	ID             string
	OrderNumber    string
	UserID         string
	Status         Status
	PaymentStatus  PaymentStatus
	PaymentMethod  string
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	CouponCode     string
	ShippingAddrID string
	BillingAddrID  string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items []Item
}

// Item is a snapshot of a purchased variant. There is no update path: once
// written at checkout the line never changes.
type Item struct {
	ID          string
	OrderID     string
	VariantID   string
	ProductName string
	SKU         string
	Size        string
	Color       string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// StatusEvent is one append-only history row per status transition.
type StatusEvent struct {
	ID        string
	OrderID   string
	Status    Status
	Notes     string
	ChangedBy string
	CreatedAt time.Time
}

// CanCancel reports whether the order is in a cancellable state.
func (o *Order) CanCancel() bool {
	for _, s := range CancellableStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// CanReturn reports whether the order is returnable at the given time:
// delivered, and within the return window measured from the delivered
// timestamp (falling back to order creation when no history row exists).
func (o *Order) CanReturn(deliveredAt time.Time, now time.Time) bool {
	if o.Status != StatusDelivered {
		return false
	}
	anchor := deliveredAt
	if anchor.IsZero() {
		anchor = o.CreatedAt
	}
	return now.Sub(anchor) <= ReturnWindow
}

// ListFilter narrows and pages the order list.
type ListFilter struct {
	Status        Status
	PaymentStatus PaymentStatus
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

// Repository defines persistence operations for orders.
//
// Create must run as a single transaction: reserve stock with a conditional
// decrement (UPDATE ... WHERE stock_quantity >= n) for every line, insert the
// order row, its item snapshots, the initial history row, and clear the
// active cart lines. A failed reservation aborts the whole transaction and
// surfaces as *OutOfStockError.
//
// Transition performs a guarded update: the status (and optionally payment
// status) change applies only while the stored status is still in from;
// otherwise ErrNotFound or *InvalidTransitionError is returned and the row is
// untouched. This closes the read-check-write race between concurrent
// lifecycle mutations.
type Repository interface {
	Create(ctx context.Context, o *Order, cartID string) error
	GetByID(ctx context.Context, userID, orderID string) (*Order, error)
	List(ctx context.Context, userID string, f ListFilter) ([]Order, int, error)
	Transition(ctx context.Context, userID, orderID string, from []Status, to Status, payment *PaymentStatus) error
	AppendHistory(ctx context.Context, e *StatusEvent) error
	History(ctx context.Context, orderID string) ([]StatusEvent, error)
}
