package stock

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tranqhuy/bida-pos/internal/pos"
)

type Repo struct{ DB *pgxpool.Pool }

// Applied reports whether this order's movements were already recorded
// (idempotency short-circuit for redelivered events).
func (r *Repo) Applied(ctx context.Context, orderID int64) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM stock_movements WHERE order_id=$1`, orderID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeductAll takes the sold quantities out of the catalog in one transaction.
// Each product row is locked, stock floors at zero (the bar sold it either
// way), and a movement row per line makes the deduction idempotent.
func (r *Repo) DeductAll(ctx context.Context, orderID int64, items []pos.OrderItem) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, it := range items {
		var stock int
		if err := tx.QueryRow(ctx, `
			SELECT stock FROM products WHERE id=$1 FOR UPDATE`, it.ProductID).Scan(&stock); err != nil {
			return err
		}
		left := stock - it.Qty
		if left < 0 {
			left = 0
		}
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, it.ProductID, left); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_movements(order_id, product_id, qty)
			VALUES ($1,$2,$3)
			ON CONFLICT (order_id, product_id) DO NOTHING`, orderID, it.ProductID, it.Qty); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
