package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/coupon"
)

// Service implements the order lifecycle: checkout, cancellation, returns,
// detail/listing, and tracking.
type Service struct {
	orders    Repository
	carts     cart.Repository
	addresses address.Repository
	coupons   coupon.Validator
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	carts cart.Repository,
	addresses address.Repository,
	coupons coupon.Validator,
) *Service {
	return &Service{
		orders:    orders,
		carts:     carts,
		addresses: addresses,
		coupons:   coupons,
		now:       time.Now,
	}
}

// CheckoutRequest holds the input for placing an order. The caller's active
// cart lines are the implicit item source.
type CheckoutRequest struct {
	UserID         string
	ShippingAddrID string
	BillingAddrID  string
	PaymentMethod  string
	CouponCode     string
	Notes          string
}

// Checkout turns the caller's active cart into an order.
//
// Totals: subtotal from cart line prices; flat shipping fee waived at the
// free-shipping threshold; fixed-rate tax on the subtotal; optional coupon
// discount. Stock reservation, the order row, item snapshots, the initial
// history row, and cart clearing happen in one repository transaction.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	shipAddr, err := s.addresses.GetByID(ctx, req.UserID, req.ShippingAddrID)
	if err != nil {
		return nil, err
	}
	billAddr := shipAddr
	if req.BillingAddrID != "" && req.BillingAddrID != req.ShippingAddrID {
		billAddr, err = s.addresses.GetByID(ctx, req.UserID, req.BillingAddrID)
		if err != nil {
			return nil, err
		}
	}

	c, err := s.carts.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	lines, err := s.carts.ListItems(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}

	subtotal := decimal.Zero
	items := make([]Item, 0, len(lines))
	couponItems := make([]coupon.Item, 0, len(lines))
	for _, line := range lines {
		if line.Type != cart.TypeCart {
			continue
		}
		if !line.IsAvailable {
			return nil, &OutOfStockError{VariantID: line.VariantID, Requested: line.Quantity}
		}
		subtotal = subtotal.Add(line.LineTotal())
		items = append(items, Item{
			ID:          uuid.New().String(),
			VariantID:   line.VariantID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			Size:        line.Size,
			Color:       line.Color,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
		})
		couponItems = append(couponItems, coupon.Item{
			VariantID: line.VariantID,
			Price:     line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	discount := decimal.Zero
	if req.CouponCode != "" {
		d, err := s.coupons.Validate(ctx, req.CouponCode, couponItems)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
	}

	shipping := ShippingFee
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate).Round(2)

	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := s.now()
	o := &Order{
		ID:             uuid.New().String(),
		OrderNumber:    newOrderNumber(now),
		UserID:         req.UserID,
		Status:         StatusPending,
		PaymentStatus:  initialPaymentStatus(req.PaymentMethod),
		PaymentMethod:  req.PaymentMethod,
		Subtotal:       subtotal.Round(2),
		ShippingCost:   shipping,
		TaxAmount:      tax,
		DiscountAmount: discount,
		TotalAmount:    total.Round(2),
		CouponCode:     req.CouponCode,
		ShippingAddrID: shipAddr.ID,
		BillingAddrID:  billAddr.ID,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
		Items:          items,
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}

	if err := s.orders.Create(ctx, o, c.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel cancels an order from a cancellable state. A completed payment flips
// to refunded; pending and cod_pending payments are left untouched. The
// history row is best-effort: its failure is logged, never surfaced.
func (s *Service) Cancel(ctx context.Context, userID, orderID, reason string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanCancel() {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	var payment *PaymentStatus
	if o.PaymentStatus == PaymentCompleted {
		refunded := PaymentRefunded
		payment = &refunded
	}

	if err := s.orders.Transition(ctx, userID, orderID, CancellableStatuses, StatusCancelled, payment); err != nil {
		return nil, err
	}

	o.Status = StatusCancelled
	if payment != nil {
		o.PaymentStatus = *payment
	}
	s.appendHistory(ctx, orderID, StatusCancelled, reason, userID)
	return o, nil
}

// ReturnItem identifies an order line and quantity in a return request.
type ReturnItem struct {
	OrderItemID string
	Quantity    int
}

// Return marks a delivered order as returned. Every requested item must
// belong to the order with a quantity no greater than what was purchased, and
// the request must arrive within the return window measured from delivery.
func (s *Service) Return(ctx context.Context, userID, orderID, reason string, items []ReturnItem) (*Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReturnReasonMissing
	}
	if len(items) == 0 {
		return nil, ErrReturnItemsMissing
	}

	o, err := s.orders.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusDelivered {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusReturned}
	}

	byID := make(map[string]*Item, len(o.Items))
	for i := range o.Items {
		byID[o.Items[i].ID] = &o.Items[i]
	}
	for _, ri := range items {
		line, ok := byID[ri.OrderItemID]
		if !ok {
			return nil, &ReturnItemError{OrderItemID: ri.OrderItemID, Reason: "does not belong to this order"}
		}
		if ri.Quantity < 1 || ri.Quantity > line.Quantity {
			return nil, &ReturnItemError{OrderItemID: ri.OrderItemID, Reason: "quantity exceeds purchased amount"}
		}
	}

	deliveredAt := s.deliveredAt(ctx, o)
	if !o.CanReturn(deliveredAt, s.now()) {
		return nil, ErrReturnWindowExpired
	}

	if err := s.orders.Transition(ctx, userID, orderID, []Status{StatusDelivered}, StatusReturned, nil); err != nil {
		return nil, err
	}

	o.Status = StatusReturned
	s.appendHistory(ctx, orderID, StatusReturned, reason, userID)
	return o, nil
}

// View is an order with its computed lifecycle flags and history.
type View struct {
	Order     *Order
	History   []StatusEvent
	CanCancel bool
	CanReturn bool
}

// Get returns the full order detail with history and can_cancel/can_return
// flags for the owning user.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*View, error) {
	o, err := s.orders.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	history, err := s.orders.History(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}

	deliveredAt := historyTimestamp(history, StatusDelivered)
	return &View{
		Order:     o,
		History:   history,
		CanCancel: o.CanCancel(),
		CanReturn: o.CanReturn(deliveredAt, s.now()),
	}, nil
}

// List returns paginated order summaries for the user.
func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]Order, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.orders.List(ctx, userID, f)
}

// Tracking is the read-only shipment view of an order.
type Tracking struct {
	Order             *Order
	Timeline          []StatusEvent
	EstimatedDelivery time.Time
}

// Track composes the status timeline with a heuristic delivery estimate:
// shipped timestamp plus a short offset when the order has shipped, otherwise
// creation time plus a longer one. There is no carrier integration.
func (s *Service) Track(ctx context.Context, userID, orderID string) (*Tracking, error) {
	o, err := s.orders.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	history, err := s.orders.History(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}

	estimate := o.CreatedAt.Add(estimateFromCreated)
	if shippedAt := historyTimestamp(history, StatusShipped); !shippedAt.IsZero() {
		estimate = shippedAt.Add(estimateFromShipped)
	}

	return &Tracking{
		Order:             o,
		Timeline:          history,
		EstimatedDelivery: estimate,
	}, nil
}

func (s *Service) deliveredAt(ctx context.Context, o *Order) time.Time {
	history, err := s.orders.History(ctx, o.ID)
	if err != nil {
		zctx.From(ctx).Warn("loading status history",
			zap.String("order_id", o.ID), zap.Error(err))
		return time.Time{}
	}
	return historyTimestamp(history, StatusDelivered)
}

// appendHistory writes a transition row. Failures are logged and swallowed:
// the history log is best-effort and never fails the primary operation.
func (s *Service) appendHistory(ctx context.Context, orderID string, status Status, notes, changedBy string) {
	err := s.orders.AppendHistory(ctx, &StatusEvent{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Status:    status,
		Notes:     notes,
		ChangedBy: changedBy,
		CreatedAt: s.now(),
	})
	if err != nil {
		zctx.From(ctx).Warn("appending status history",
			zap.String("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func historyTimestamp(history []StatusEvent, status Status) time.Time {
	for _, e := range history {
		if e.Status == status {
			return e.CreatedAt
		}
	}
	return time.Time{}
}

func initialPaymentStatus(method string) PaymentStatus {
	// Cash on delivery stays outstanding until delivery; anything else is
	// treated as captured at checkout. There is no gateway behind this flag.
	if strings.EqualFold(method, "cod") {
		return PaymentCODPending
	}
	return PaymentCompleted
}

// newOrderNumber builds a human-readable unique order number like
// ORD-20260828-4F2A9C1B.
func newOrderNumber(now time.Time) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return "ORD-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(buf))
}
