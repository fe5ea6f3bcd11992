package order

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/coupon"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	order   *Order
	history []StatusEvent

	created       *Order
	createdCartID string
	createErr     error

	transitionFrom []Status
	transitionTo   Status
	transitionPay  *PaymentStatus
	transitionErr  error

	appended  []StatusEvent
	appendErr error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, cartID string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	m.createdCartID = cartID
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, userID, orderID string) (*Order, error) {
	if m.order == nil || m.order.ID != orderID || m.order.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *m.order
	return &cp, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ string, _ ListFilter) ([]Order, int, error) {
	if m.order == nil {
		return nil, 0, nil
	}
	return []Order{*m.order}, 1, nil
}

func (m *mockOrderRepo) Transition(_ context.Context, _, _ string, from []Status, to Status, payment *PaymentStatus) error {
	if m.transitionErr != nil {
		return m.transitionErr
	}
	m.transitionFrom = from
	m.transitionTo = to
	m.transitionPay = payment
	return nil
}

func (m *mockOrderRepo) AppendHistory(_ context.Context, e *StatusEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, *e)
	return nil
}

func (m *mockOrderRepo) History(_ context.Context, _ string) ([]StatusEvent, error) {
	return m.history, nil
}

type mockCartRepo struct {
	items []cart.Item
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, userID string) (*cart.Cart, error) {
	return &cart.Cart{ID: "cart-1", UserID: userID}, nil
}

func (m *mockCartRepo) ListItems(_ context.Context, _ string) ([]cart.Item, error) {
	return m.items, nil
}

func (m *mockCartRepo) GetItem(_ context.Context, _, _ string) (*cart.Item, error) {
	return nil, cart.ErrItemNotFound
}

func (m *mockCartRepo) FindItem(_ context.Context, _, _ string, _ cart.ItemType) (*cart.Item, error) {
	return nil, cart.ErrItemNotFound
}

func (m *mockCartRepo) UpsertItem(_ context.Context, item *cart.Item) (*cart.Item, error) {
	return item, nil
}

func (m *mockCartRepo) SetItemQuantity(_ context.Context, _, _ string, _ int) error { return nil }

func (m *mockCartRepo) DeleteItem(_ context.Context, _, _ string) error { return nil }

func (m *mockCartRepo) ClearActive(_ context.Context, _ string) error { return nil }

type mockAddressRepo struct {
	byID map[string]*address.Address
}

func (m *mockAddressRepo) ListByUser(_ context.Context, _ string) ([]address.Address, error) {
	return nil, nil
}

func (m *mockAddressRepo) GetByID(_ context.Context, userID, id string) (*address.Address, error) {
	a, ok := m.byID[id]
	if !ok || a.UserID != userID {
		return nil, address.ErrNotFound
	}
	return a, nil
}

func (m *mockAddressRepo) Save(_ context.Context, _ *address.Address) error { return nil }

func (m *mockAddressRepo) Delete(_ context.Context, _, _ string) error { return nil }

type mockCouponValidator struct {
	discount *coupon.Discount
	err      error
	code     string
}

func (m *mockCouponValidator) Validate(_ context.Context, code string, _ []coupon.Item) (*coupon.Discount, error) {
	m.code = code
	return m.discount, m.err
}

// --- Helpers ---

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func newTestService(orders *mockOrderRepo, carts *mockCartRepo, cv coupon.Validator) *Service {
	if cv == nil {
		cv = &mockCouponValidator{}
	}
	addrs := &mockAddressRepo{byID: map[string]*address.Address{
		"addr-1": {ID: "addr-1", UserID: "user-1", Type: address.TypeShipping},
		"addr-2": {ID: "addr-2", UserID: "user-1", Type: address.TypeBilling},
	}}
	svc := NewService(orders, carts, addrs, cv)
	svc.now = func() time.Time { return testNow }
	return svc
}

func activeLine(variantID string, price string, qty int) cart.Item {
	return cart.Item{
		ID:          "line-" + variantID,
		CartID:      "cart-1",
		VariantID:   variantID,
		Type:        cart.TypeCart,
		Quantity:    qty,
		ProductName: "Product " + variantID,
		SKU:         "SKU-" + variantID,
		UnitPrice:   decimal.RequireFromString(price),
		InStock:     100,
		IsAvailable: true,
	}
}

func checkoutReq() CheckoutRequest {
	return CheckoutRequest{
		UserID:         "user-1",
		ShippingAddrID: "addr-1",
		PaymentMethod:  "card",
	}
}

// --- Checkout ---

func TestCheckout_Totals(t *testing.T) {
	repo := &mockOrderRepo{}
	carts := &mockCartRepo{items: []cart.Item{
		activeLine("v1", "25.00", 2),
		activeLine("v2", "30.00", 1),
	}}
	svc := newTestService(repo, carts, nil)

	o, err := svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("80.00").Equal(o.Subtotal))
	assert.True(t, ShippingFee.Equal(o.ShippingCost), "below free shipping threshold")
	assert.True(t, decimal.RequireFromString("6.40").Equal(o.TaxAmount))
	assert.True(t, decimal.RequireFromString("96.40").Equal(o.TotalAmount))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-20260828-"))
	assert.Len(t, o.Items, 2)
	assert.Equal(t, "cart-1", repo.createdCartID)
}

func TestCheckout_FreeShippingAtThreshold(t *testing.T) {
	repo := &mockOrderRepo{}
	carts := &mockCartRepo{items: []cart.Item{activeLine("v1", "50.00", 2)}}
	svc := newTestService(repo, carts, nil)

	o, err := svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	assert.True(t, o.ShippingCost.IsZero())
	assert.True(t, decimal.RequireFromString("108.00").Equal(o.TotalAmount))
}

func TestCheckout_SavedLinesIgnored(t *testing.T) {
	saved := activeLine("v9", "99.00", 1)
	saved.Type = cart.TypeSaved

	repo := &mockOrderRepo{}
	carts := &mockCartRepo{items: []cart.Item{activeLine("v1", "10.00", 1), saved}}
	svc := newTestService(repo, carts, nil)

	o, err := svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	assert.Len(t, o.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Subtotal))
}

func TestCheckout_EmptyCart(t *testing.T) {
	saved := activeLine("v1", "10.00", 1)
	saved.Type = cart.TypeSaved
	svc := newTestService(&mockOrderRepo{}, &mockCartRepo{items: []cart.Item{saved}}, nil)

	_, err := svc.Checkout(context.Background(), checkoutReq())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_UnavailableLine(t *testing.T) {
	line := activeLine("v1", "10.00", 2)
	line.IsAvailable = false
	svc := newTestService(&mockOrderRepo{}, &mockCartRepo{items: []cart.Item{line}}, nil)

	_, err := svc.Checkout(context.Background(), checkoutReq())

	var oosErr *OutOfStockError
	require.ErrorAs(t, err, &oosErr)
	assert.Equal(t, "v1", oosErr.VariantID)
}

func TestCheckout_UnknownAddress(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCartRepo{items: []cart.Item{activeLine("v1", "10.00", 1)}}, nil)

	req := checkoutReq()
	req.ShippingAddrID = "addr-missing"
	_, err := svc.Checkout(context.Background(), req)
	require.ErrorIs(t, err, address.ErrNotFound)
}

func TestCheckout_BillingDefaultsToShipping(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newTestService(repo, &mockCartRepo{items: []cart.Item{activeLine("v1", "10.00", 1)}}, nil)

	o, err := svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)
	assert.Equal(t, "addr-1", o.BillingAddrID)

	req := checkoutReq()
	req.BillingAddrID = "addr-2"
	o, err = svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "addr-2", o.BillingAddrID)
}

func TestCheckout_WithCoupon(t *testing.T) {
	cv := &mockCouponValidator{discount: &coupon.Discount{
		Amount:      decimal.RequireFromString("5.00"),
		Description: "$5 off",
	}}
	repo := &mockOrderRepo{}
	svc := newTestService(repo, &mockCartRepo{items: []cart.Item{activeLine("v1", "40.00", 1)}}, cv)

	req := checkoutReq()
	req.CouponCode = "SAVE5"
	o, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "SAVE5", cv.code)
	assert.True(t, decimal.RequireFromString("5.00").Equal(o.DiscountAmount))
	// 40.00 + 10.00 shipping + 3.20 tax - 5.00 discount
	assert.True(t, decimal.RequireFromString("48.20").Equal(o.TotalAmount))
}

func TestCheckout_InvalidCoupon(t *testing.T) {
	cv := &mockCouponValidator{err: coupon.ErrInvalidCoupon}
	svc := newTestService(&mockOrderRepo{}, &mockCartRepo{items: []cart.Item{activeLine("v1", "10.00", 1)}}, cv)

	req := checkoutReq()
	req.CouponCode = "BOGUS"
	_, err := svc.Checkout(context.Background(), req)
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestCheckout_TotalFlooredAtZero(t *testing.T) {
	cv := &mockCouponValidator{discount: &coupon.Discount{
		Amount: decimal.RequireFromString("999.00"),
	}}
	svc := newTestService(&mockOrderRepo{}, &mockCartRepo{items: []cart.Item{activeLine("v1", "10.00", 1)}}, cv)

	req := checkoutReq()
	req.CouponCode = "HUGE"
	o, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.IsZero())
}

func TestCheckout_CashOnDelivery(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCartRepo{items: []cart.Item{activeLine("v1", "10.00", 1)}}, nil)

	req := checkoutReq()
	req.PaymentMethod = "cod"
	o, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, PaymentCODPending, o.PaymentStatus)
}

func TestCheckout_CreateError(t *testing.T) {
	stockErr := &OutOfStockError{VariantID: "v1", Requested: 2}
	repo := &mockOrderRepo{createErr: stockErr}
	svc := newTestService(repo, &mockCartRepo{items: []cart.Item{activeLine("v1", "10.00", 2)}}, nil)

	_, err := svc.Checkout(context.Background(), checkoutReq())

	var oosErr *OutOfStockError
	require.ErrorAs(t, err, &oosErr)
}

// --- Cancel ---

func placedOrder(status Status, payment PaymentStatus) *Order {
	return &Order{
		ID:            "order-1",
		OrderNumber:   "ORD-20260801-AAAAAAAA",
		UserID:        "user-1",
		Status:        status,
		PaymentStatus: payment,
		CreatedAt:     testNow.Add(-72 * time.Hour),
		Items: []Item{
			{ID: "item-1", OrderID: "order-1", VariantID: "v1", Quantity: 2},
			{ID: "item-2", OrderID: "order-1", VariantID: "v2", Quantity: 1},
		},
	}
}

func TestCancel_PendingRefundsCompletedPayment(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusPending, PaymentCompleted)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	o, err := svc.Cancel(context.Background(), "user-1", "order-1", "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)
	require.NotNil(t, repo.transitionPay)
	assert.Equal(t, PaymentRefunded, *repo.transitionPay)
	assert.Equal(t, CancellableStatuses, repo.transitionFrom)

	require.Len(t, repo.appended, 1)
	assert.Equal(t, StatusCancelled, repo.appended[0].Status)
	assert.Equal(t, "changed my mind", repo.appended[0].Notes)
}

func TestCancel_CODPaymentUntouched(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusConfirmed, PaymentCODPending)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	o, err := svc.Cancel(context.Background(), "user-1", "order-1", "")
	require.NoError(t, err)

	assert.Equal(t, PaymentCODPending, o.PaymentStatus)
	assert.Nil(t, repo.transitionPay)
}

func TestCancel_ShippedRejected(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusShipped, PaymentCompleted)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	_, err := svc.Cancel(context.Background(), "user-1", "order-1", "")

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusShipped, itErr.From)
	assert.Equal(t, StatusCancelled, itErr.To)
}

func TestCancel_HistoryFailureDoesNotFailCancel(t *testing.T) {
	repo := &mockOrderRepo{
		order:     placedOrder(StatusPending, PaymentCODPending),
		appendErr: errors.New("history insert failed"),
	}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	o, err := svc.Cancel(context.Background(), "user-1", "order-1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestCancel_NotFound(t *testing.T) {
	svc := newTestService(&mockOrderRepo{}, &mockCartRepo{}, nil)

	_, err := svc.Cancel(context.Background(), "user-1", "order-missing", "")
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Return ---

func deliveredOrder(deliveredAgo time.Duration) *mockOrderRepo {
	return &mockOrderRepo{
		order: placedOrder(StatusDelivered, PaymentCompleted),
		history: []StatusEvent{
			{OrderID: "order-1", Status: StatusDelivered, CreatedAt: testNow.Add(-deliveredAgo)},
		},
	}
}

func TestReturn_HappyPath(t *testing.T) {
	repo := deliveredOrder(5 * 24 * time.Hour)
	svc := newTestService(repo, &mockCartRepo{}, nil)

	o, err := svc.Return(context.Background(), "user-1", "order-1", "wrong size", []ReturnItem{
		{OrderItemID: "item-1", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusReturned, o.Status)
	assert.Equal(t, []Status{StatusDelivered}, repo.transitionFrom)
	assert.Equal(t, StatusReturned, repo.transitionTo)
}

func TestReturn_ReasonRequired(t *testing.T) {
	svc := newTestService(deliveredOrder(time.Hour), &mockCartRepo{}, nil)

	_, err := svc.Return(context.Background(), "user-1", "order-1", "   ", []ReturnItem{
		{OrderItemID: "item-1", Quantity: 1},
	})
	require.ErrorIs(t, err, ErrReturnReasonMissing)
}

func TestReturn_ItemsRequired(t *testing.T) {
	svc := newTestService(deliveredOrder(time.Hour), &mockCartRepo{}, nil)

	_, err := svc.Return(context.Background(), "user-1", "order-1", "defective", nil)
	require.ErrorIs(t, err, ErrReturnItemsMissing)
}

func TestReturn_NotDelivered(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusShipped, PaymentCompleted)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	_, err := svc.Return(context.Background(), "user-1", "order-1", "defective", []ReturnItem{
		{OrderItemID: "item-1", Quantity: 1},
	})

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
}

func TestReturn_ForeignItem(t *testing.T) {
	svc := newTestService(deliveredOrder(time.Hour), &mockCartRepo{}, nil)

	_, err := svc.Return(context.Background(), "user-1", "order-1", "defective", []ReturnItem{
		{OrderItemID: "item-of-someone-else", Quantity: 1},
	})

	var riErr *ReturnItemError
	require.ErrorAs(t, err, &riErr)
	assert.Equal(t, "item-of-someone-else", riErr.OrderItemID)
}

func TestReturn_QuantityExceedsPurchased(t *testing.T) {
	svc := newTestService(deliveredOrder(time.Hour), &mockCartRepo{}, nil)

	_, err := svc.Return(context.Background(), "user-1", "order-1", "defective", []ReturnItem{
		{OrderItemID: "item-2", Quantity: 5},
	})

	var riErr *ReturnItemError
	require.ErrorAs(t, err, &riErr)
}

func TestReturn_WindowExpired(t *testing.T) {
	svc := newTestService(deliveredOrder(40*24*time.Hour), &mockCartRepo{}, nil)

	_, err := svc.Return(context.Background(), "user-1", "order-1", "too late", []ReturnItem{
		{OrderItemID: "item-1", Quantity: 1},
	})
	require.ErrorIs(t, err, ErrReturnWindowExpired)
}

func TestReturn_NoDeliveryTimestampFallsBackToCreation(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusDelivered, PaymentCompleted)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	// Created 72h ago with no delivered history row: still inside the window.
	_, err := svc.Return(context.Background(), "user-1", "order-1", "defective", []ReturnItem{
		{OrderItemID: "item-1", Quantity: 1},
	})
	require.NoError(t, err)
}

// --- Get / List / Track ---

func TestGet_Flags(t *testing.T) {
	repo := deliveredOrder(2 * 24 * time.Hour)
	svc := newTestService(repo, &mockCartRepo{}, nil)

	v, err := svc.Get(context.Background(), "user-1", "order-1")
	require.NoError(t, err)

	assert.False(t, v.CanCancel)
	assert.True(t, v.CanReturn)
	assert.Len(t, v.History, 1)
}

func TestGet_PendingFlags(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusPending, PaymentCompleted)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	v, err := svc.Get(context.Background(), "user-1", "order-1")
	require.NoError(t, err)

	assert.True(t, v.CanCancel)
	assert.False(t, v.CanReturn)
}

func TestList_ClampsLimit(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusPending, PaymentCompleted)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	orders, total, err := svc.List(context.Background(), "user-1", ListFilter{Limit: 5000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, orders, 1)
}

func TestTrack_EstimateFromShipped(t *testing.T) {
	shippedAt := testNow.Add(-24 * time.Hour)
	repo := &mockOrderRepo{
		order: placedOrder(StatusShipped, PaymentCompleted),
		history: []StatusEvent{
			{OrderID: "order-1", Status: StatusConfirmed, CreatedAt: testNow.Add(-48 * time.Hour)},
			{OrderID: "order-1", Status: StatusShipped, CreatedAt: shippedAt},
		},
	}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	tr, err := svc.Track(context.Background(), "user-1", "order-1")
	require.NoError(t, err)

	assert.Equal(t, shippedAt.Add(4*24*time.Hour), tr.EstimatedDelivery)
	assert.Len(t, tr.Timeline, 2)
}

func TestTrack_EstimateFromCreationBeforeShipment(t *testing.T) {
	repo := &mockOrderRepo{order: placedOrder(StatusConfirmed, PaymentCompleted)}
	svc := newTestService(repo, &mockCartRepo{}, nil)

	tr, err := svc.Track(context.Background(), "user-1", "order-1")
	require.NoError(t, err)

	assert.Equal(t, repo.order.CreatedAt.Add(7*24*time.Hour), tr.EstimatedDelivery)
}
