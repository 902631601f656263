package pos

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerRepo struct{ DB *pgxpool.Pool }

func (r *CustomerRepo) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, phone, points FROM customers WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, errors.New("customer not found")
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// AddPoints credits loyalty points in place; points only ever go up and only
// at checkout.
func (r *CustomerRepo) AddPoints(ctx context.Context, id, delta int64) error {
	if delta <= 0 {
		return nil
	}
	_, err := r.DB.Exec(ctx, `
		UPDATE customers SET points = points + $2 WHERE id=$1`, id, delta)
	return err
}

var _ CustomerStore = (*CustomerRepo)(nil)
