package pos

import "errors"

var (
	ErrNoTableSelected = errors.New("no table selected")
	ErrTableNotFound   = errors.New("table not found")
	ErrTableOccupied   = errors.New("table already occupied")
	ErrNoActiveOrder   = errors.New("no pending order for table")
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrCouponInvalid   = errors.New("coupon invalid or inactive")
)
