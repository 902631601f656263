package pos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tranqhuy/bida-pos/internal/billing"
)

// Store surfaces the session controller needs. The pgx repos implement
// them; tests substitute in-memory fakes.
type TableStore interface {
	Get(ctx context.Context, id int64) (BilliardTable, error)
	List(ctx context.Context) ([]BilliardTable, error)
	Claim(ctx context.Context, tableID, orderID int64) error
	Release(ctx context.Context, tableID int64) error
	SetRate(ctx context.Context, tableID, pricePerHour int64) error
}

type OrderStore interface {
	Get(ctx context.Context, id int64) (Order, error)
	Create(ctx context.Context, o Order) (int64, error)
	Save(ctx context.Context, o Order) error
	Complete(ctx context.Context, o Order, finalTotal int64, paymentMethod string) error
	Delete(ctx context.Context, id int64) error
	ListPending(ctx context.Context) ([]Order, error)
}

type CustomerStore interface {
	Get(ctx context.Context, id int64) (Customer, error)
	AddPoints(ctx context.Context, id, delta int64) error
}

type CouponStore interface {
	FindByCode(ctx context.Context, code string) (Coupon, error)
}

type ProductStore interface {
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context) ([]Product, error)
}

// Persister runs background write commands; see internal/persist.
type Persister interface {
	Enqueue(name string, do func(ctx context.Context) error)
}

// Factory bundles the collaborators a Session needs.
type Factory struct {
	Tables     TableStore
	Orders     OrderStore
	Customers  CustomerStore
	Coupons    CouponStore
	Policy     billing.Policy
	Queue      Persister
	Events     *Publisher
	PointsUnit int64
	Now        func() time.Time
}

func (f *Factory) NewSession() *Session {
	s := &Session{f: *f}
	if s.f.PointsUnit <= 0 {
		s.f.PointsUnit = 1000
	}
	if s.f.Now == nil {
		s.f.Now = time.Now
	}
	return s
}

// Session drives one table through available, pending and completed or
// cancelled, keeping the local Cart and the stores consistent. Every cart
// mutation schedules an async save of the pending order; lifecycle
// transitions (start, checkout, reset) write synchronously and surface
// their errors.
type Session struct {
	f    Factory
	cart Cart
}

// Cart returns a copy of the working state for rendering.
func (s *Session) Cart() Cart {
	c := s.cart
	c.Items = append([]OrderItem(nil), s.cart.Items...)
	c.Notes = append([]string(nil), s.cart.Notes...)
	return c
}

// SelectTable loads the table and hydrates the cart from its pending order,
// or resets to an empty cart when the table is free. A table pointing at a
// missing or already-settled order is treated as free and healed in place.
func (s *Session) SelectTable(ctx context.Context, tableID int64) error {
	t, err := s.f.Tables.Get(ctx, tableID)
	if err != nil {
		return err
	}
	s.cart = Cart{TableID: tableID}

	if t.CurrentOrderID == nil {
		if t.Status == TableOccupied {
			// Occupied with no order link breaks the invariant; heal.
			s.heal(ctx, tableID, 0)
		}
		return nil
	}

	o, err := s.f.Orders.Get(ctx, *t.CurrentOrderID)
	switch {
	case err == nil && o.Status == StatusPending:
		s.cart.hydrate(o)
		return nil
	case err != nil && !errors.Is(err, ErrOrderNotFound):
		return err
	}
	s.heal(ctx, tableID, *t.CurrentOrderID)
	return nil
}

func (s *Session) heal(ctx context.Context, tableID, orderID int64) {
	log.Printf("pos: table %d linked to stale order %d, resetting to available", tableID, orderID)
	if err := s.f.Tables.Release(ctx, tableID); err != nil {
		log.Printf("pos: heal table %d: %v", tableID, err)
	}
}

// StartSession creates the pending order and claims the table for it. The
// claim is a conditional update; when two terminals race, the loser deletes
// its just-created order and reports the table occupied.
func (s *Session) StartSession(ctx context.Context) error {
	if s.cart.TableID == 0 {
		return ErrNoTableSelected
	}
	if s.cart.Occupied {
		return ErrTableOccupied
	}
	t, err := s.f.Tables.Get(ctx, s.cart.TableID)
	if err != nil {
		return err
	}
	if t.Status == TableOccupied {
		return ErrTableOccupied
	}

	now := s.f.Now()
	o := s.cart.Snapshot()
	o.Date = now
	o.PricePerHour = t.PricePerHour

	id, err := s.f.Orders.Create(ctx, o)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if err := s.f.Tables.Claim(ctx, s.cart.TableID, id); err != nil {
		if derr := s.f.Orders.Delete(ctx, id); derr != nil {
			log.Printf("pos: drop order %d after lost claim: %v", id, derr)
		}
		return err
	}

	s.cart.OrderID = id
	s.cart.Occupied = true
	s.cart.StartedAt = now
	s.cart.PricePerHour = t.PricePerHour

	s.f.Events.Emit(TopicSessionStarted, EventSessionStarted, s.cart.TableID, id,
		SessionStartedPayload{OrderID: id, TableID: s.cart.TableID, PricePerHour: t.PricePerHour, StartedAt: now})
	return nil
}

// AddItem snapshots the product into the cart (or bumps its quantity).
func (s *Session) AddItem(p Product) {
	s.cart.AddItem(p)
	s.scheduleSave()
}

func (s *Session) RemoveItem(productID int64) {
	s.cart.RemoveItem(productID)
	s.scheduleSave()
}

func (s *Session) SetQuantity(productID int64, qty int) {
	s.cart.SetQuantity(productID, qty)
	s.scheduleSave()
}

func (s *Session) SetItemPrice(productID, price int64) {
	s.cart.SetItemPrice(productID, price)
	s.scheduleSave()
}

func (s *Session) SetDiscount(amount int64) {
	s.cart.Discount = amount
	s.scheduleSave()
}

func (s *Session) SetCustomTableFee(fee *int64) {
	s.cart.CustomTableFee = fee
	s.scheduleSave()
}

func (s *Session) SetCustomItemsTotal(total *int64) {
	s.cart.CustomItemsTotal = total
	s.scheduleSave()
}

func (s *Session) SetCustomDuration(minutes *int) {
	s.cart.CustomDuration = minutes
	s.scheduleSave()
}

func (s *Session) SetNotes(notes []string) {
	s.cart.Notes = append([]string(nil), notes...)
	s.scheduleSave()
}

func (s *Session) SetCustomer(id *int64) {
	s.cart.CustomerID = id
	s.scheduleSave()
}

// scheduleSave queues the current snapshot for persistence. Without a
// pending order there is nowhere to save to, so it is a no-op.
func (s *Session) scheduleSave() {
	if !s.cart.Occupied || s.cart.OrderID == 0 || s.f.Queue == nil {
		return
	}
	snap := s.cart.Snapshot()
	orders, events := s.f.Orders, s.f.Events
	s.f.Queue.Enqueue(fmt.Sprintf("save order %d", snap.ID), func(ctx context.Context) error {
		if err := orders.Save(ctx, snap); err != nil {
			return err
		}
		events.Emit(TopicOrderSaved, EventOrderSaved, snap.TableID, snap.ID,
			OrderSavedPayload{OrderID: snap.ID, TableID: snap.TableID, Total: snap.Total})
		return nil
	})
}

// Quote evaluates the billing policy for the running session using the
// order-level rate snapshot and any duration/fee overrides.
func (s *Session) Quote(now time.Time) (billing.Quote, error) {
	if !s.cart.Occupied {
		return billing.Quote{}, ErrNoActiveOrder
	}
	return s.f.Policy.QuoteSession(billing.Inputs{
		StartedAt:     s.cart.StartedAt,
		Now:           now,
		PricePerHour:  s.cart.PricePerHour,
		CustomMinutes: s.cart.CustomDuration,
		CustomFee:     s.cart.CustomTableFee,
	})
}

// ApplyCoupon resolves an active coupon and applies its worth as the flat
// discount. Unknown or inactive codes change nothing.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (int64, error) {
	cp, err := s.f.Coupons.FindByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	d := s.cart.CouponDiscount(cp)
	s.cart.Discount = d
	s.scheduleSave()
	return d, nil
}

// Checkout settles the pending order with the final amount agreed at the
// counter (items plus table fee minus discount, reconciled by the caller).
// It credits loyalty points, frees the table and clears the cart. The order write must
// succeed; the follow-up writes are attempted regardless and their errors
// joined, since a half-finished checkout self-heals at the next table load.
func (s *Session) Checkout(ctx context.Context, finalAmount int64, paymentMethod string) error {
	if !s.cart.Occupied || s.cart.OrderID == 0 {
		return ErrNoActiveOrder
	}
	snap := s.cart.Snapshot()
	if err := s.f.Orders.Complete(ctx, snap, finalAmount, paymentMethod); err != nil {
		return fmt.Errorf("complete order %d: %w", snap.ID, err)
	}

	var errs []error
	var points int64
	if snap.CustomerID != nil {
		points = finalAmount / s.f.PointsUnit
		if err := s.f.Customers.AddPoints(ctx, *snap.CustomerID, points); err != nil {
			log.Printf("pos: award %d points to customer %d: %v", points, *snap.CustomerID, err)
			errs = append(errs, err)
		}
	}
	if err := s.f.Tables.Release(ctx, snap.TableID); err != nil {
		log.Printf("pos: release table %d: %v", snap.TableID, err)
		errs = append(errs, err)
	}

	s.f.Events.Emit(TopicSessionCompleted, EventSessionCompleted, snap.TableID, snap.ID,
		SessionCompletedPayload{
			OrderID:      snap.ID,
			TableID:      snap.TableID,
			CustomerID:   snap.CustomerID,
			Items:        snap.Items,
			Total:        finalAmount,
			PointsEarned: points,
		})

	s.cart = Cart{}
	return errors.Join(errs...)
}

// ResetTable abandons the session: the pending order is deleted outright
// (no history) and the table returns to available.
func (s *Session) ResetTable(ctx context.Context) error {
	if s.cart.TableID == 0 {
		return ErrNoTableSelected
	}
	orderID := s.cart.OrderID
	if orderID != 0 {
		if err := s.f.Orders.Delete(ctx, orderID); err != nil {
			return fmt.Errorf("delete order %d: %w", orderID, err)
		}
	}
	var errs []error
	if err := s.f.Tables.Release(ctx, s.cart.TableID); err != nil {
		log.Printf("pos: release table %d: %v", s.cart.TableID, err)
		errs = append(errs, err)
	}
	if orderID != 0 {
		s.f.Events.Emit(TopicSessionCancelled, EventSessionCancelled, s.cart.TableID, orderID,
			SessionCancelledPayload{OrderID: orderID, TableID: s.cart.TableID})
	}
	s.cart.Clear()
	return errors.Join(errs...)
}
