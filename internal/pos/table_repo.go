package pos

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TableRepo struct{ DB *pgxpool.Pool }

func (r *TableRepo) Get(ctx context.Context, id int64) (BilliardTable, error) {
	var t BilliardTable
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, status, price_per_hour, current_order_id
		FROM billiard_tables WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.Status, &t.PricePerHour, &t.CurrentOrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return BilliardTable{}, ErrTableNotFound
	}
	if err != nil {
		return BilliardTable{}, err
	}
	return t, nil
}

func (r *TableRepo) List(ctx context.Context) ([]BilliardTable, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, status, price_per_hour, current_order_id
		FROM billiard_tables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BilliardTable
	for rows.Next() {
		var t BilliardTable
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.PricePerHour, &t.CurrentOrderID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Claim marks the table occupied by the given order, but only if it is
// still available. Losing the conditional update means another terminal won
// the start race; no second pending order can attach.
func (r *TableRepo) Claim(ctx context.Context, tableID, orderID int64) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE billiard_tables
		SET status='occupied', current_order_id=$2
		WHERE id=$1 AND status='available'`, tableID, orderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrTableOccupied
	}
	return nil
}

// Release always returns the table to available and clears the order link.
// NULL is written explicitly; a partial update leaving the column alone
// would keep pointing at a dead order.
func (r *TableRepo) Release(ctx context.Context, tableID int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE billiard_tables
		SET status='available', current_order_id=NULL
		WHERE id=$1`, tableID)
	return err
}

// SetRate changes the default hourly rate. Open sessions keep the rate
// snapshotted on their order.
func (r *TableRepo) SetRate(ctx context.Context, tableID, pricePerHour int64) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE billiard_tables SET price_per_hour=$2 WHERE id=$1`, tableID, pricePerHour)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrTableNotFound
	}
	return nil
}

var _ TableStore = (*TableRepo)(nil)
