package pos

import "time"

type Product struct {
	ID        int64
	Name      string
	Barcode   string
	Price     int64
	Cost      int64
	Stock     int
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
)

// BilliardTable owns at most one pending order; Status=occupied iff
// CurrentOrderID points at it.
type BilliardTable struct {
	ID             int64
	Name           string
	Status         TableStatus
	PricePerHour   int64
	CurrentOrderID *int64
}

// OrderItem is a snapshot of a catalog product at the moment it entered the
// cart. Price is live-editable per line; OriginalPrice keeps the catalog
// price for discount display.
type OrderItem struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"original_price"`
	Qty           int    `json:"qty"`
}

// Order is one table session. Date is the session start; PricePerHour is
// snapshotted from the table when the session starts and stays authoritative
// even if the table rate changes later.
type Order struct {
	ID               int64
	Date             time.Time
	Status           Status
	TableID          int64
	CustomerID       *int64
	Items            []OrderItem
	Discount         int64
	PricePerHour     int64
	CustomTableFee   *int64
	CustomItemsTotal *int64
	CustomDuration   *int
	Notes            []string
	PaymentMethod    string
	Total            int64
}

type Customer struct {
	ID     int64
	Name   string
	Phone  string
	Points int64
}

type CouponType string

const (
	CouponPercent CouponType = "percent"
	CouponFixed   CouponType = "fixed"
)

type Coupon struct {
	ID       int64
	Code     string
	Type     CouponType
	Value    int64
	IsActive bool
}
