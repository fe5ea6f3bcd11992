package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/order"
)

type orderItemResponse struct {
	ID          string `json:"id"`
	VariantID   string `json:"variant_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	Status         string              `json:"order_status"`
	PaymentStatus  string              `json:"payment_status"`
	PaymentMethod  string              `json:"payment_method"`
	Subtotal       string              `json:"subtotal"`
	ShippingCost   string              `json:"shipping_cost"`
	TaxAmount      string              `json:"tax_amount"`
	DiscountAmount string              `json:"discount_amount"`
	TotalAmount    string              `json:"total_amount"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	ShippingAddrID string              `json:"shipping_address_id"`
	BillingAddrID  string              `json:"billing_address_id"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderDetailResponse struct {
	orderResponse
	History   []historyEventResponse `json:"history"`
	CanCancel bool                   `json:"can_cancel"`
	CanReturn bool                   `json:"can_return"`
}

type historyEventResponse struct {
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	ChangedBy string    `json:"changed_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type trackingResponse struct {
	OrderNumber       string                 `json:"order_number"`
	Status            string                 `json:"order_status"`
	Timeline          []historyEventResponse `json:"timeline"`
	EstimatedDelivery time.Time              `json:"estimated_delivery"`
}

func toOrderResponse(o *order.Order, withItems bool) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		PaymentMethod:  o.PaymentMethod,
		Subtotal:       o.Subtotal.StringFixed(2),
		ShippingCost:   o.ShippingCost.StringFixed(2),
		TaxAmount:      o.TaxAmount.StringFixed(2),
		DiscountAmount: o.DiscountAmount.StringFixed(2),
		TotalAmount:    o.TotalAmount.StringFixed(2),
		CouponCode:     o.CouponCode,
		ShippingAddrID: o.ShippingAddrID,
		BillingAddrID:  o.BillingAddrID,
		Notes:          o.Notes,
		CreatedAt:      o.CreatedAt,
	}
	if withItems {
		resp.Items = make([]orderItemResponse, len(o.Items))
		for i, item := range o.Items {
			resp.Items[i] = orderItemResponse{
				ID:          item.ID,
				VariantID:   item.VariantID,
				ProductName: item.ProductName,
				SKU:         item.SKU,
				Size:        item.Size,
				Color:       item.Color,
				UnitPrice:   item.UnitPrice.StringFixed(2),
				Quantity:    item.Quantity,
			}
		}
	}
	return resp
}

func toHistoryResponses(events []order.StatusEvent) []historyEventResponse {
	out := make([]historyEventResponse, len(events))
	for i, e := range events {
		out[i] = historyEventResponse{
			Status:    string(e.Status),
			Notes:     e.Notes,
			ChangedBy: e.ChangedBy,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}

type checkoutRequest struct {
	ShippingAddressID string `json:"shipping_address_id"`
	BillingAddressID  string `json:"billing_address_id"`
	PaymentMethod     string `json:"payment_method"`
	CouponCode        string `json:"coupon_code"`
	Notes             string `json:"notes"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShippingAddressID == "" {
		respondError(w, http.StatusBadRequest, "shipping_address_id is required")
		return
	}
	if req.PaymentMethod == "" {
		respondError(w, http.StatusBadRequest, "payment_method is required")
		return
	}

	o, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID:         UserID(r.Context()),
		ShippingAddrID: req.ShippingAddressID,
		BillingAddrID:  req.BillingAddressID,
		PaymentMethod:  req.PaymentMethod,
		CouponCode:     req.CouponCode,
		Notes:          req.Notes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toOrderResponse(o, true))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.ListFilter{
		Status:        order.Status(q.Get("status")),
		PaymentStatus: order.PaymentStatus(q.Get("payment_status")),
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = t
		}
	}

	orders, total, err := h.orders.List(r.Context(), UserID(r.Context()), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := orderListResponse{
		Orders: make([]orderResponse, len(orders)),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	if resp.Limit <= 0 {
		resp.Limit = 20
	}
	for i := range orders {
		resp.Orders[i] = toOrderResponse(&orders[i], false)
	}
	respond(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, orderDetailResponse{
		orderResponse: toOrderResponse(view.Order, true),
		History:       toHistoryResponses(view.History),
		CanCancel:     view.CanCancel,
		CanReturn:     view.CanReturn,
	})
}

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	t, err := h.orders.Track(r.Context(), UserID(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, trackingResponse{
		OrderNumber:       t.Order.OrderNumber,
		Status:            string(t.Order.Status),
		Timeline:          toHistoryResponses(t.Timeline),
		EstimatedDelivery: t.EstimatedDelivery,
	})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.Cancel(r.Context(), UserID(r.Context()), chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o, false))
}

type returnOrderRequest struct {
	Reason string `json:"reason"`
	Items  []struct {
		OrderItemID string `json:"order_item_id"`
		Quantity    int    `json:"quantity"`
	} `json:"items"`
}

func (h *Handler) returnOrder(w http.ResponseWriter, r *http.Request) {
	var req returnOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ReturnItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ReturnItem{OrderItemID: it.OrderItemID, Quantity: it.Quantity}
	}

	o, err := h.orders.Return(r.Context(), UserID(r.Context()), chi.URLParam(r, "orderID"), req.Reason, items)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o, false))
}
