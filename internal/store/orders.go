package store

import (
	"context"
	"database/sql"

	"github.com/example/order-saga/internal/model"
)

// PostgresOrderStore implements OrderStore on PostgreSQL.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) Create(ctx context.Context, order *model.Order) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO orders (product_id, price, fee, total, quantity, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		order.ProductID, order.Price, order.Fee, order.Total, order.Quantity, order.Status,
	).Scan(&order.ID)
}

func (s *PostgresOrderStore) Get(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	err := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, price, fee, total, quantity, status
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.ProductID, &o.Price, &o.Fee, &o.Total, &o.Quantity, &o.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresOrderStore) CompleteIfPending(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		model.StatusCompleted, id, model.StatusPending,
	)
	return err
}

func (s *PostgresOrderStore) MarkRefunded(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	err := s.db.QueryRowContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2
		 RETURNING id, product_id, price, fee, total, quantity, status`,
		model.StatusRefunded, id,
	).Scan(&o.ID, &o.ProductID, &o.Price, &o.Fee, &o.Total, &o.Quantity, &o.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
