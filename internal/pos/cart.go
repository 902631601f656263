package pos

import "time"

// Cart is the working copy of one table session: the single source of truth
// the UI reads from. It is a plain value owned by a Session; all remote
// syncing happens in the Session layer.
type Cart struct {
	TableID      int64
	OrderID      int64
	Occupied     bool
	StartedAt    time.Time
	PricePerHour int64

	Items      []OrderItem
	CustomerID *int64
	Notes      []string
	Discount   int64

	CustomTableFee   *int64
	CustomItemsTotal *int64
	CustomDuration   *int
}

// AddItem puts one unit of the product in the cart; repeated adds bump the
// quantity. The product copy is a snapshot, catalog edits never reach lines
// already in the cart.
func (c *Cart) AddItem(p Product) {
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Qty++
			return
		}
	}
	c.Items = append(c.Items, OrderItem{
		ProductID:     p.ID,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.Price,
		Qty:           1,
	})
}

func (c *Cart) RemoveItem(productID int64) {
	out := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	c.Items = out
}

// SetQuantity with qty <= 0 removes the line.
func (c *Cart) SetQuantity(productID int64, qty int) {
	if qty <= 0 {
		c.RemoveItem(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Qty = qty
			return
		}
	}
}

// SetItemPrice overrides one line's live price; OriginalPrice keeps the
// catalog value for the strike-through display. The catalog is untouched.
func (c *Cart) SetItemPrice(productID int64, price int64) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Price = price
			return
		}
	}
}

// ItemsSubtotal sums price*qty, unless the whole item total was manually
// overridden ("charge flat X for all food").
func (c *Cart) ItemsSubtotal() int64 {
	if c.CustomItemsTotal != nil {
		return *c.CustomItemsTotal
	}
	var sum int64
	for _, it := range c.Items {
		sum += it.Price * int64(it.Qty)
	}
	return sum
}

// Total is the items side of the bill: subtotal minus the flat discount,
// never negative. The table fee is a separate receipt line added by the
// caller.
func (c *Cart) Total() int64 {
	t := c.ItemsSubtotal() - c.Discount
	if t < 0 {
		return 0
	}
	return t
}

// CouponDiscount computes the flat amount a coupon is worth against the
// current subtotal. It does not apply it.
func (c *Cart) CouponDiscount(cp Coupon) int64 {
	if cp.Type == CouponPercent {
		return c.ItemsSubtotal() * cp.Value / 100
	}
	return cp.Value
}

// Clear drops everything except the selected table.
func (c *Cart) Clear() {
	tableID := c.TableID
	*c = Cart{TableID: tableID}
}

// Snapshot captures the mutable order fields for persistence.
func (c *Cart) Snapshot() Order {
	items := make([]OrderItem, len(c.Items))
	copy(items, c.Items)
	notes := make([]string, len(c.Notes))
	copy(notes, c.Notes)
	return Order{
		ID:               c.OrderID,
		Date:             c.StartedAt,
		Status:           StatusPending,
		TableID:          c.TableID,
		CustomerID:       c.CustomerID,
		Items:            items,
		Discount:         c.Discount,
		PricePerHour:     c.PricePerHour,
		CustomTableFee:   c.CustomTableFee,
		CustomItemsTotal: c.CustomItemsTotal,
		CustomDuration:   c.CustomDuration,
		Notes:            notes,
		Total:            c.Total(),
	}
}

// hydrate restores the cart from a pending order loaded off the store.
func (c *Cart) hydrate(o Order) {
	c.OrderID = o.ID
	c.Occupied = true
	c.StartedAt = o.Date
	c.PricePerHour = o.PricePerHour
	c.Items = append([]OrderItem(nil), o.Items...)
	c.CustomerID = o.CustomerID
	c.Notes = append([]string(nil), o.Notes...)
	c.Discount = o.Discount
	c.CustomTableFee = o.CustomTableFee
	c.CustomItemsTotal = o.CustomItemsTotal
	c.CustomDuration = o.CustomDuration
}
