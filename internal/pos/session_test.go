package pos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranqhuy/bida-pos/internal/billing"
)

// In-memory stores; tests drive the controller without a database.

type fakeTables struct {
	m        map[int64]*BilliardTable
	claimErr error
	releases int
}

func (f *fakeTables) Get(_ context.Context, id int64) (BilliardTable, error) {
	t, ok := f.m[id]
	if !ok {
		return BilliardTable{}, ErrTableNotFound
	}
	return *t, nil
}

func (f *fakeTables) List(_ context.Context) ([]BilliardTable, error) {
	var out []BilliardTable
	for _, t := range f.m {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTables) Claim(_ context.Context, tableID, orderID int64) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	t, ok := f.m[tableID]
	if !ok {
		return ErrTableNotFound
	}
	if t.Status != TableAvailable {
		return ErrTableOccupied
	}
	t.Status = TableOccupied
	id := orderID
	t.CurrentOrderID = &id
	return nil
}

func (f *fakeTables) Release(_ context.Context, tableID int64) error {
	t, ok := f.m[tableID]
	if !ok {
		return ErrTableNotFound
	}
	t.Status = TableAvailable
	t.CurrentOrderID = nil
	f.releases++
	return nil
}

func (f *fakeTables) SetRate(_ context.Context, tableID, rate int64) error {
	f.m[tableID].PricePerHour = rate
	return nil
}

type fakeOrders struct {
	m    map[int64]*Order
	next int64
}

func (f *fakeOrders) Get(_ context.Context, id int64) (Order, error) {
	o, ok := f.m[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *o, nil
}

func (f *fakeOrders) Create(_ context.Context, o Order) (int64, error) {
	f.next++
	o.ID = f.next
	f.m[o.ID] = &o
	return o.ID, nil
}

func (f *fakeOrders) Save(_ context.Context, o Order) error {
	e, ok := f.m[o.ID]
	if !ok || e.Status != StatusPending {
		return nil
	}
	o.Status = StatusPending
	*e = o
	return nil
}

func (f *fakeOrders) Complete(_ context.Context, o Order, total int64, method string) error {
	e, ok := f.m[o.ID]
	if !ok || e.Status != StatusPending {
		return ErrOrderNotFound
	}
	e.Status = StatusCompleted
	e.Items = o.Items
	e.CustomerID = o.CustomerID
	e.Total = total
	e.PaymentMethod = method
	return nil
}

func (f *fakeOrders) Delete(_ context.Context, id int64) error {
	if e, ok := f.m[id]; ok && e.Status == StatusPending {
		delete(f.m, id)
	}
	return nil
}

func (f *fakeOrders) ListPending(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range f.m {
		if o.Status == StatusPending {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeCustomers struct {
	m        map[int64]*Customer
	addCalls int
}

func (f *fakeCustomers) Get(_ context.Context, id int64) (Customer, error) {
	return *f.m[id], nil
}

func (f *fakeCustomers) AddPoints(_ context.Context, id, delta int64) error {
	f.addCalls++
	f.m[id].Points += delta
	return nil
}

type fakeCoupons struct{ m map[string]Coupon }

func (f *fakeCoupons) FindByCode(_ context.Context, code string) (Coupon, error) {
	c, ok := f.m[code]
	if !ok || !c.IsActive {
		return Coupon{}, ErrCouponInvalid
	}
	return c, nil
}

// syncQueue applies commands inline so persisted state is visible right
// after the mutation.
type syncQueue struct{ names []string }

func (q *syncQueue) Enqueue(name string, do func(ctx context.Context) error) {
	q.names = append(q.names, name)
	_ = do(context.Background())
}

var sessionStart = time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)

type env struct {
	factory   *Factory
	tables    *fakeTables
	orders    *fakeOrders
	customers *fakeCustomers
	queue     *syncQueue
}

func newEnv() *env {
	ft := &fakeTables{m: map[int64]*BilliardTable{
		1: {ID: 1, Name: "Ban 1", Status: TableAvailable, PricePerHour: 50000},
	}}
	fo := &fakeOrders{m: map[int64]*Order{}}
	fc := &fakeCustomers{m: map[int64]*Customer{9: {ID: 9, Name: "Anh Tu", Points: 10}}}
	cp := &fakeCoupons{m: map[string]Coupon{
		"SALE10": {ID: 1, Code: "SALE10", Type: CouponPercent, Value: 10, IsActive: true},
		"DEAD":   {ID: 2, Code: "DEAD", Type: CouponFixed, Value: 5000, IsActive: false},
	}}
	q := &syncQueue{}
	return &env{
		factory: &Factory{
			Tables:     ft,
			Orders:     fo,
			Customers:  fc,
			Coupons:    cp,
			Policy:     billing.Policy{GraceMinutes: 5},
			Queue:      q,
			PointsUnit: 1000,
			Now:        func() time.Time { return sessionStart },
		},
		tables: ft, orders: fo, customers: fc, queue: q,
	}
}

func (e *env) startedSession(t *testing.T) *Session {
	t.Helper()
	s := e.factory.NewSession()
	require.NoError(t, s.SelectTable(context.Background(), 1))
	require.NoError(t, s.StartSession(context.Background()))
	return s
}

func TestStartSession(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)

	cart := s.Cart()
	assert.True(t, cart.Occupied)
	assert.Equal(t, int64(1), cart.OrderID)
	assert.Equal(t, int64(50000), cart.PricePerHour)
	assert.Equal(t, sessionStart, cart.StartedAt)

	tbl := e.tables.m[1]
	assert.Equal(t, TableOccupied, tbl.Status)
	require.NotNil(t, tbl.CurrentOrderID)
	assert.Equal(t, int64(1), *tbl.CurrentOrderID)
	assert.Equal(t, StatusPending, e.orders.m[1].Status)
}

func TestStartSession_TableAlreadyOccupied(t *testing.T) {
	e := newEnv()
	e.startedSession(t)

	other := e.factory.NewSession()
	require.NoError(t, other.SelectTable(context.Background(), 1))
	// Hydrated sessions know the table is taken.
	assert.ErrorIs(t, other.StartSession(context.Background()), ErrTableOccupied)
	assert.Len(t, e.orders.m, 1, "no second pending order may exist")
}

func TestStartSession_LostClaimRace(t *testing.T) {
	e := newEnv()
	s := e.factory.NewSession()
	require.NoError(t, s.SelectTable(context.Background(), 1))

	// Another terminal wins between our read and our claim.
	e.tables.claimErr = ErrTableOccupied
	err := s.StartSession(context.Background())
	assert.ErrorIs(t, err, ErrTableOccupied)
	assert.Empty(t, e.orders.m, "the losing order must be compensated away")
	assert.False(t, s.Cart().Occupied)
}

func TestStartSession_NoTableSelected(t *testing.T) {
	e := newEnv()
	s := e.factory.NewSession()
	assert.ErrorIs(t, s.StartSession(context.Background()), ErrNoTableSelected)
}

func TestRoundTrip(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)

	s.AddItem(Product{ID: 11, Name: "Bia Saigon", Price: 25000})
	s.AddItem(Product{ID: 11, Name: "Bia Saigon", Price: 25000})
	s.AddItem(Product{ID: 12, Name: "Mi xao", Price: 45000})
	s.SetItemPrice(12, 40000)

	cust := int64(9)
	s.SetCustomer(&cust)
	s.SetDiscount(15000)
	s.SetNotes([]string{"khong da", "tinh gio tu 19h"})
	fee := int64(120000)
	s.SetCustomTableFee(&fee)
	mins := 95
	s.SetCustomDuration(&mins)

	// A fresh terminal picks the same table back up.
	s2 := e.factory.NewSession()
	require.NoError(t, s2.SelectTable(context.Background(), 1))
	got := s2.Cart()

	assert.True(t, got.Occupied)
	assert.Equal(t, s.Cart().Items, got.Items)
	require.NotNil(t, got.CustomerID)
	assert.Equal(t, int64(9), *got.CustomerID)
	assert.Equal(t, []string{"khong da", "tinh gio tu 19h"}, got.Notes)
	assert.Equal(t, int64(15000), got.Discount)
	require.NotNil(t, got.CustomTableFee)
	assert.Equal(t, int64(120000), *got.CustomTableFee)
	require.NotNil(t, got.CustomDuration)
	assert.Equal(t, 95, *got.CustomDuration)
}

func TestMutationsBeforeStartAreNotPersisted(t *testing.T) {
	e := newEnv()
	s := e.factory.NewSession()
	require.NoError(t, s.SelectTable(context.Background(), 1))

	s.AddItem(Product{ID: 11, Name: "Bia", Price: 25000})
	assert.Empty(t, e.queue.names, "no pending order, nothing to save")
	assert.Len(t, s.Cart().Items, 1, "cart keeps the item for the upcoming start")
}

func TestCheckout_WithCustomer(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)
	s.AddItem(Product{ID: 11, Name: "Bia", Price: 25000})
	cust := int64(9)
	s.SetCustomer(&cust)

	require.NoError(t, s.Checkout(context.Background(), 75500, "cash"))

	o := e.orders.m[1]
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, int64(75500), o.Total)
	assert.Equal(t, "cash", o.PaymentMethod)

	// floor(75500/1000) = 75 points on top of the existing 10.
	assert.Equal(t, int64(85), e.customers.m[9].Points)

	assert.Equal(t, TableAvailable, e.tables.m[1].Status)
	assert.Nil(t, e.tables.m[1].CurrentOrderID)
	assert.False(t, s.Cart().Occupied)
	assert.Zero(t, s.Cart().TableID)
}

func TestCheckout_NoCustomer(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)
	s.AddItem(Product{ID: 11, Name: "Bia", Price: 25000})

	require.NoError(t, s.Checkout(context.Background(), 50000, "transfer"))
	assert.Zero(t, e.customers.addCalls, "no customer, no points mutation")
	assert.Equal(t, int64(10), e.customers.m[9].Points)
}

func TestCheckout_WithoutSession(t *testing.T) {
	e := newEnv()
	s := e.factory.NewSession()
	require.NoError(t, s.SelectTable(context.Background(), 1))
	assert.ErrorIs(t, s.Checkout(context.Background(), 1000, "cash"), ErrNoActiveOrder)
}

func TestResetTable(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)
	s.AddItem(Product{ID: 11, Name: "Bia", Price: 25000})

	require.NoError(t, s.ResetTable(context.Background()))

	assert.Empty(t, e.orders.m, "abandoned order leaves no history")
	assert.Equal(t, TableAvailable, e.tables.m[1].Status)
	assert.Nil(t, e.tables.m[1].CurrentOrderID)

	cart := s.Cart()
	assert.False(t, cart.Occupied)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int64(1), cart.TableID, "table stays selected")
}

func TestSelectTable_HealsStaleOrderLink(t *testing.T) {
	e := newEnv()
	e.startedSession(t)
	// The order settles behind our back (crash between the two checkout
	// writes); the table still points at it.
	e.orders.m[1].Status = StatusCompleted

	s2 := e.factory.NewSession()
	require.NoError(t, s2.SelectTable(context.Background(), 1))
	assert.False(t, s2.Cart().Occupied)
	assert.Equal(t, 1, e.tables.releases, "stale link must be healed")
}

func TestSelectTable_HealsMissingOrder(t *testing.T) {
	e := newEnv()
	e.startedSession(t)
	delete(e.orders.m, 1)

	s2 := e.factory.NewSession()
	require.NoError(t, s2.SelectTable(context.Background(), 1))
	assert.False(t, s2.Cart().Occupied)
	assert.Equal(t, TableAvailable, e.tables.m[1].Status)
}

func TestApplyCoupon(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)
	s.AddItem(Product{ID: 11, Name: "Bia", Price: 100000})
	s.SetQuantity(11, 2)

	d, err := s.ApplyCoupon(context.Background(), "SALE10")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), d)
	cart := s.Cart()
	assert.Equal(t, int64(180000), cart.Total())
}

func TestApplyCoupon_Invalid(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)
	s.AddItem(Product{ID: 11, Name: "Bia", Price: 100000})
	s.SetDiscount(5000)

	for _, code := range []string{"NOPE", "DEAD"} {
		_, err := s.ApplyCoupon(context.Background(), code)
		assert.ErrorIs(t, err, ErrCouponInvalid)
	}
	assert.Equal(t, int64(5000), s.Cart().Discount, "failed redemption changes nothing")
}

func TestQuote_UsesRateSnapshot(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)

	// The hall raises the table's rate mid-session; the open order keeps
	// the rate it started with.
	require.NoError(t, e.tables.SetRate(context.Background(), 1, 99000))

	q, err := s.Quote(sessionStart.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(75000), q.Fee)
}

func TestQuote_Overrides(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)

	mins := 120
	s.SetCustomDuration(&mins)
	fee := int64(80000)
	s.SetCustomTableFee(&fee)

	q, err := s.Quote(sessionStart.Add(10 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 120, q.Minutes)
	assert.Equal(t, int64(80000), q.Fee)
	assert.Equal(t, int64(100000), q.Calculated)
}

func TestQuote_WithoutSession(t *testing.T) {
	e := newEnv()
	s := e.factory.NewSession()
	require.NoError(t, s.SelectTable(context.Background(), 1))
	_, err := s.Quote(time.Now())
	assert.ErrorIs(t, err, ErrNoActiveOrder)
}

func TestMutationSchedulesSave(t *testing.T) {
	e := newEnv()
	s := e.startedSession(t)
	s.AddItem(Product{ID: 11, Name: "Bia", Price: 25000})

	require.NotEmpty(t, e.queue.names)
	assert.Equal(t, "save order 1", e.queue.names[0])
	assert.Len(t, e.orders.m[1].Items, 1, "snapshot landed in the store")
}
