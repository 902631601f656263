package pos

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CouponRepo is read-only for the POS core; coupons are managed elsewhere.
type CouponRepo struct{ DB *pgxpool.Pool }

func (r *CouponRepo) FindByCode(ctx context.Context, code string) (Coupon, error) {
	var c Coupon
	err := r.DB.QueryRow(ctx, `
		SELECT id, code, type, value, is_active FROM coupons WHERE code=$1`, code).
		Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Coupon{}, ErrCouponInvalid
	}
	if err != nil {
		return Coupon{}, err
	}
	if !c.IsActive {
		return Coupon{}, ErrCouponInvalid
	}
	return c, nil
}

var _ CouponStore = (*CouponRepo)(nil)
