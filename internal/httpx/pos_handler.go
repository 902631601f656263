package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/tranqhuy/bida-pos/internal/billing"
	"github.com/tranqhuy/bida-pos/internal/pos"
	"github.com/tranqhuy/bida-pos/internal/receipt"
	"github.com/tranqhuy/bida-pos/internal/redisx"
)

// POSHandler is the counter-terminal API. Each request hydrates a fresh
// session from the store, mutates it and lets the background queue persist;
// the pending order row is the durable state between requests.
type POSHandler struct {
	Factory  *pos.Factory
	Products pos.ProductStore
	Redis    *redis.Client
	Printer  receipt.Printer
	QR       receipt.QRGenerator
}

func (h *POSHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/tables", h.listTables)
	r.Get("/tables/{id}", h.getTable)
	r.Get("/tables/{id}/quote", h.getQuote)

	r.Post("/tables/{id}/session", h.startSession)
	r.Delete("/tables/{id}/session", h.resetTable)
	r.Post("/tables/{id}/checkout", h.checkout)

	r.Post("/tables/{id}/items", h.addItem)
	r.Patch("/tables/{id}/items/{productID}", h.updateItem)
	r.Delete("/tables/{id}/items/{productID}", h.removeItem)
	r.Put("/tables/{id}/order", h.updateOrder)
	r.Post("/tables/{id}/coupon", h.applyCoupon)

	r.Get("/orders/pending", h.listPending)
	r.Get("/orders/{id}/receipt", h.getReceipt)
	r.Get("/orders/{id}/qr", h.getQR)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, pos.ErrTableNotFound),
		errors.Is(err, pos.ErrOrderNotFound),
		errors.Is(err, pos.ErrProductNotFound):
		code = http.StatusNotFound
	case errors.Is(err, pos.ErrTableOccupied), errors.Is(err, pos.ErrNoActiveOrder):
		code = http.StatusConflict
	case errors.Is(err, pos.ErrCouponInvalid), errors.Is(err, pos.ErrNoTableSelected):
		code = http.StatusBadRequest
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// session hydrates the table's working state for this request.
func (h *POSHandler) session(ctx context.Context, tableID int64) (*pos.Session, error) {
	s := h.Factory.NewSession()
	if err := s.SelectTable(ctx, tableID); err != nil {
		return nil, err
	}
	return s, nil
}

func (h *POSHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *POSHandler) listTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ts, err := h.Factory.Tables.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *POSHandler) getTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Occupancy fast-path off redis; the floor plan polls this.
	key := fmt.Sprintf(redisx.KeyTableStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	t, err := h.Factory.Tables.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, _ := json.Marshal(t)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLTableStatus).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *POSHandler) invalidateTable(ctx context.Context, id int64) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyTableStatus, id)).Err()
}

type quoteResp struct {
	Cart       pos.Cart `json:"cart"`
	TableFee   int64    `json:"table_fee"`
	Calculated int64    `json:"calculated_fee"`
	TimeLabel  string   `json:"time_label"`
	ItemsTotal int64    `json:"items_total"`
	GrandTotal int64    `json:"grand_total"`
}

func (h *POSHandler) getQuote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	cart := s.Cart()
	resp := quoteResp{Cart: cart, ItemsTotal: cart.Total(), GrandTotal: cart.Total()}
	if cart.Occupied {
		q, err := s.Quote(time.Now())
		if err != nil {
			writeErr(w, err)
			return
		}
		resp.TableFee = q.Fee
		resp.Calculated = q.Calculated
		resp.TimeLabel = q.Label
		resp.GrandTotal = cart.Total() + q.Fee
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *POSHandler) startSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.StartSession(ctx); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateTable(ctx, id)
	writeJSON(w, http.StatusCreated, s.Cart())
}

func (h *POSHandler) resetTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.ResetTable(ctx); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateTable(ctx, id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "available"})
}

type checkoutReq struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

func (h *POSHandler) checkout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Amount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "negative amount"})
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	orderID := s.Cart().OrderID
	if err := s.Checkout(ctx, req.Amount, req.PaymentMethod); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateTable(ctx, id)
	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "total": req.Amount})
}

type addItemReq struct {
	ProductID int64 `json:"product_id"`
}

func (h *POSHandler) addItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Products.Get(ctx, req.ProductID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.AddItem(p)
	writeJSON(w, http.StatusOK, s.Cart())
}

type updateItemReq struct {
	Qty   *int   `json:"qty,omitempty"`
	Price *int64 `json:"price,omitempty"`
}

func (h *POSHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.Qty != nil {
		s.SetQuantity(productID, *req.Qty)
	}
	if req.Price != nil {
		s.SetItemPrice(productID, *req.Price)
	}
	writeJSON(w, http.StatusOK, s.Cart())
}

func (h *POSHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.RemoveItem(productID)
	writeJSON(w, http.StatusOK, s.Cart())
}

// updateOrderReq carries the manual overrides of the settings dialog. Only
// fields present in the body are applied; explicit null clears an override.
type updateOrderReq struct {
	CustomerID       json.RawMessage `json:"customer_id,omitempty"`
	Notes            *[]string       `json:"notes,omitempty"`
	Discount         *int64          `json:"discount,omitempty"`
	CustomTableFee   json.RawMessage `json:"custom_table_fee,omitempty"`
	CustomItemsTotal json.RawMessage `json:"custom_items_total,omitempty"`
	CustomDuration   json.RawMessage `json:"custom_duration,omitempty"`
}

func decodeNullable[T any](raw json.RawMessage) (*T, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

func (h *POSHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req updateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}

	if v, ok, err := decodeNullable[int64](req.CustomerID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	} else if ok {
		s.SetCustomer(v)
	}
	if req.Notes != nil {
		s.SetNotes(*req.Notes)
	}
	if req.Discount != nil {
		s.SetDiscount(*req.Discount)
	}
	if v, ok, err := decodeNullable[int64](req.CustomTableFee); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid custom_table_fee"})
		return
	} else if ok {
		s.SetCustomTableFee(v)
	}
	if v, ok, err := decodeNullable[int64](req.CustomItemsTotal); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid custom_items_total"})
		return
	} else if ok {
		s.SetCustomItemsTotal(v)
	}
	if v, ok, err := decodeNullable[int](req.CustomDuration); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid custom_duration"})
		return
	} else if ok {
		s.SetCustomDuration(v)
	}
	writeJSON(w, http.StatusOK, s.Cart())
}

type couponReq struct {
	Code string `json:"code"`
}

func (h *POSHandler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req couponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing code"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.session(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	d, err := s.ApplyCoupon(ctx, req.Code)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"discount": d})
}

func (h *POSHandler) listPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	os, err := h.Factory.Orders.ListPending(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *POSHandler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Factory.Orders.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	t, err := h.Factory.Tables.Get(ctx, o.TableID)
	if err != nil {
		writeErr(w, err)
		return
	}

	itemsSide := itemsTotal(o)
	var fee, total int64
	var label string
	if o.Status == pos.StatusPending {
		// The order is still running: o.Total only carries the items side,
		// so the table fee comes from a live quote.
		q, err := h.Factory.Policy.QuoteSession(billing.Inputs{
			StartedAt:     o.Date,
			Now:           time.Now(),
			PricePerHour:  o.PricePerHour,
			CustomMinutes: o.CustomDuration,
			CustomFee:     o.CustomTableFee,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		fee, label = q.Fee, q.Label
		total = itemsSide + fee
	} else {
		// The settled total is authoritative; the fee line is what is left
		// after the items side of the bill.
		fee = o.Total - itemsSide
		if fee < 0 {
			fee = 0
		}
		if o.CustomDuration != nil {
			label = fmt.Sprintf("%dh %dp", *o.CustomDuration/60, *o.CustomDuration%60)
		}
		total = o.Total
	}
	txt := h.Printer.Render(o, t.Name, receipt.Lines{
		TableFee:  fee,
		TimeLabel: label,
		Discount:  o.Discount,
		Total:     total,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(txt))
}

func itemsTotal(o pos.Order) int64 {
	var sum int64
	if o.CustomItemsTotal != nil {
		sum = *o.CustomItemsTotal
	} else {
		for _, it := range o.Items {
			sum += it.Price * int64(it.Qty)
		}
	}
	sum -= o.Discount
	if sum < 0 {
		return 0
	}
	return sum
}

func (h *POSHandler) getQR(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderQR, id)
	if h.Redis != nil {
		if b, err := h.Redis.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(b)
			return
		}
	}

	o, err := h.Factory.Orders.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	png, err := h.QR.Generate(o.ID, o.Total)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, png, redisx.TTLOrderQR).Err()
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
