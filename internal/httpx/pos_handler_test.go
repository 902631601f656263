package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqhuy/bida-pos/internal/billing"
	"github.com/tranqhuy/bida-pos/internal/pos"
	"github.com/tranqhuy/bida-pos/internal/receipt"
)

func TestDecodeNullable(t *testing.T) {
	v, ok, err := decodeNullable[int64](nil)
	require.NoError(t, err)
	assert.False(t, ok, "absent field is not applied")
	assert.Nil(t, v)

	v, ok, err = decodeNullable[int64](json.RawMessage("null"))
	require.NoError(t, err)
	assert.True(t, ok, "explicit null clears the override")
	assert.Nil(t, v)

	v, ok, err = decodeNullable[int64](json.RawMessage("75000"))
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, int64(75000), *v)

	_, _, err = decodeNullable[int64](json.RawMessage(`"abc"`))
	assert.Error(t, err)
}

func TestItemsTotal(t *testing.T) {
	o := pos.Order{
		Items: []pos.OrderItem{
			{ProductID: 11, Price: 25000, Qty: 2},
			{ProductID: 12, Price: 45000, Qty: 1},
		},
		Discount: 15000,
	}
	assert.Equal(t, int64(80000), itemsTotal(o))

	flat := int64(50000)
	o.CustomItemsTotal = &flat
	assert.Equal(t, int64(35000), itemsTotal(o))

	o.Discount = 90000
	assert.Zero(t, itemsTotal(o), "discount never pushes the bill negative")
}

type stubOrders struct{ o pos.Order }

func (s stubOrders) Get(context.Context, int64) (pos.Order, error) { return s.o, nil }

func (s stubOrders) Create(context.Context, pos.Order) (int64, error) { return 0, nil }

func (s stubOrders) Save(context.Context, pos.Order) error { return nil }

func (s stubOrders) Complete(context.Context, pos.Order, int64, string) error { return nil }

func (s stubOrders) Delete(context.Context, int64) error { return nil }

func (s stubOrders) ListPending(context.Context) ([]pos.Order, error) { return nil, nil }

type stubTables struct{ t pos.BilliardTable }

func (s stubTables) Get(context.Context, int64) (pos.BilliardTable, error) { return s.t, nil }

func (s stubTables) List(context.Context) ([]pos.BilliardTable, error) { return nil, nil }

func (s stubTables) Claim(context.Context, int64, int64) error { return nil }

func (s stubTables) Release(context.Context, int64) error { return nil }

func (s stubTables) SetRate(context.Context, int64, int64) error { return nil }

func receiptHandler(o pos.Order) *POSHandler {
	return &POSHandler{
		Factory: &pos.Factory{
			Orders: stubOrders{o: o},
			Tables: stubTables{t: pos.BilliardTable{ID: 3, Name: "Ban 3"}},
			Policy: billing.Policy{GraceMinutes: 5},
		},
		Printer: receipt.Printer{},
	}
}

func getReceiptBody(t *testing.T, h *POSHandler) string {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/7/receipt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestGetReceipt_PendingOrderQuotesLiveFee(t *testing.T) {
	mins := 90
	body := getReceiptBody(t, receiptHandler(pos.Order{
		ID:             7,
		Date:           time.Now().Add(-30 * time.Minute),
		Status:         pos.StatusPending,
		TableID:        3,
		PricePerHour:   50000,
		CustomDuration: &mins,
		Items:          []pos.OrderItem{{ProductID: 11, Name: "Bia", Price: 25000, Qty: 2}},
		Total:          50000,
	}))

	// Mid-session the stored total carries only the items side; the fee
	// line must come from a live quote, not read as zero.
	assert.Contains(t, body, "1h 30p")
	assert.Contains(t, body, "75.000d")
	assert.Contains(t, body, "125.000d")
}

func TestGetReceipt_CompletedOrderUsesSettledTotal(t *testing.T) {
	body := getReceiptBody(t, receiptHandler(pos.Order{
		ID:           7,
		Date:         time.Now().Add(-2 * time.Hour),
		Status:       pos.StatusCompleted,
		TableID:      3,
		PricePerHour: 50000,
		Items:        []pos.OrderItem{{ProductID: 11, Name: "Bia", Price: 25000, Qty: 2}},
		Total:        125000,
	}))

	assert.Contains(t, body, "75.000d")
	assert.Contains(t, body, "125.000d")
}

func TestWriteErr_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{pos.ErrTableNotFound, 404},
		{pos.ErrOrderNotFound, 404},
		{pos.ErrTableOccupied, 409},
		{pos.ErrNoActiveOrder, 409},
		{pos.ErrCouponInvalid, 400},
		{pos.ErrNoTableSelected, 400},
		{errors.New("pool exhausted"), 500},
		{fmt.Errorf("complete order 7: %w", pos.ErrOrderNotFound), 404},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeErr(rec, c.err)
		assert.Equal(t, c.code, rec.Code, "error %v", c.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}
