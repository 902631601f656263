package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_AddItem(t *testing.T) {
	c := &Cart{}
	beer := Product{ID: 1, Name: "Bia Saigon", Price: 25000}
	c.AddItem(beer)
	c.AddItem(beer)
	c.AddItem(Product{ID: 2, Name: "Nuoc suoi", Price: 10000})

	assert.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.Items[0].Qty)
	assert.Equal(t, int64(25000), c.Items[0].OriginalPrice)
	assert.Equal(t, int64(60000), c.ItemsSubtotal())
}

func TestCart_SetQuantity(t *testing.T) {
	c := &Cart{}
	c.AddItem(Product{ID: 1, Price: 25000})
	c.SetQuantity(1, 4)
	assert.Equal(t, 4, c.Items[0].Qty)

	// qty <= 0 removes the line.
	c.SetQuantity(1, 0)
	assert.Empty(t, c.Items)

	// unknown product id is a no-op
	c.SetQuantity(99, 3)
	assert.Empty(t, c.Items)
}

func TestCart_SetItemPrice(t *testing.T) {
	c := &Cart{}
	c.AddItem(Product{ID: 1, Price: 25000})
	c.SetItemPrice(1, 20000)

	assert.Equal(t, int64(20000), c.Items[0].Price)
	assert.Equal(t, int64(25000), c.Items[0].OriginalPrice, "catalog price snapshot must survive")
}

func TestCart_CustomItemsTotal(t *testing.T) {
	c := &Cart{}
	c.AddItem(Product{ID: 1, Price: 25000})
	c.SetQuantity(1, 10)

	flat := int64(200000)
	c.CustomItemsTotal = &flat
	assert.Equal(t, int64(200000), c.ItemsSubtotal())

	c.CustomItemsTotal = nil
	assert.Equal(t, int64(250000), c.ItemsSubtotal())
}

func TestCart_TotalNeverNegative(t *testing.T) {
	c := &Cart{}
	c.AddItem(Product{ID: 1, Price: 30000})
	c.Discount = 1000000
	assert.Zero(t, c.Total())

	c.Discount = 10000
	assert.Equal(t, int64(20000), c.Total())
}

func TestCart_CouponDiscount(t *testing.T) {
	c := &Cart{}
	c.AddItem(Product{ID: 1, Price: 100000})
	c.SetQuantity(1, 2)

	d := c.CouponDiscount(Coupon{Code: "SALE10", Type: CouponPercent, Value: 10})
	assert.Equal(t, int64(20000), d)

	c.Discount = d
	assert.Equal(t, int64(180000), c.Total())

	d = c.CouponDiscount(Coupon{Code: "OFF50K", Type: CouponFixed, Value: 50000})
	assert.Equal(t, int64(50000), d)
}

func TestCart_SnapshotIsDetached(t *testing.T) {
	c := &Cart{TableID: 3, OrderID: 7, Occupied: true}
	c.AddItem(Product{ID: 1, Price: 25000})
	snap := c.Snapshot()

	c.SetQuantity(1, 9)
	assert.Equal(t, 1, snap.Items[0].Qty, "snapshot must not see later mutations")
	assert.Equal(t, StatusPending, snap.Status)
	assert.Equal(t, int64(7), snap.ID)
}
