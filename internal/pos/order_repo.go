package pos

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct{ DB *pgxpool.Pool }

const orderColumns = `id, date, status, table_id, customer_id, items, discount,
	price_per_hour, custom_table_fee, custom_items_total, custom_duration,
	notes, COALESCE(payment_method,''), total`

func (r *OrderRepo) Get(ctx context.Context, id int64) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *OrderRepo) Create(ctx context.Context, o Order) (int64, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.DB.QueryRow(ctx, `
		INSERT INTO orders(date, status, table_id, customer_id, items, discount,
			price_per_hour, custom_table_fee, custom_items_total, custom_duration,
			notes, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		o.Date, o.Status, o.TableID, o.CustomerID, items, o.Discount,
		o.PricePerHour, o.CustomTableFee, o.CustomItemsTotal, o.CustomDuration,
		MarshalNotes(o.Notes), o.Total,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Save upserts every mutable session field into the pending order. Writing
// the same snapshot twice is harmless; a row that is no longer pending is
// left alone (the session ended under us, last writer on the terminal state
// wins).
func (r *OrderRepo) Save(ctx context.Context, o Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		UPDATE orders
		SET items=$2, customer_id=$3, notes=$4, discount=$5,
			custom_table_fee=$6, custom_items_total=$7, custom_duration=$8,
			price_per_hour=$9, date=$10, total=$11
		WHERE id=$1 AND status='pending'`,
		o.ID, items, o.CustomerID, MarshalNotes(o.Notes), o.Discount,
		o.CustomTableFee, o.CustomItemsTotal, o.CustomDuration,
		o.PricePerHour, o.Date, o.Total)
	return err
}

// Complete settles the order with the externally agreed final amount. Only a
// pending order can complete.
func (r *OrderRepo) Complete(ctx context.Context, o Order, finalTotal int64, paymentMethod string) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status='completed', items=$2, customer_id=$3, notes=$4,
			payment_method=$5, total=$6
		WHERE id=$1 AND status='pending'`,
		o.ID, items, o.CustomerID, MarshalNotes(o.Notes), paymentMethod, finalTotal)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

// Delete removes a pending order outright (abandoned session, no history).
func (r *OrderRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1 AND status='pending'`, id)
	return err
}

func (r *OrderRepo) ListPending(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status='pending' ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var items, notes []byte
	err := row.Scan(&o.ID, &o.Date, &o.Status, &o.TableID, &o.CustomerID,
		&items, &o.Discount, &o.PricePerHour, &o.CustomTableFee,
		&o.CustomItemsTotal, &o.CustomDuration, &notes, &o.PaymentMethod, &o.Total)
	if err != nil {
		return Order{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return Order{}, err
		}
	}
	o.Notes = NormalizeNotes(notes)
	return o, nil
}

var _ OrderStore = (*OrderRepo)(nil)
