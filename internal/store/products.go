package store

import (
	"context"
	"database/sql"

	"github.com/example/order-saga/internal/model"
)

// PostgresProductStore implements ProductStore on PostgreSQL.
type PostgresProductStore struct {
	db *sql.DB
}

func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

func (s *PostgresProductStore) Get(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, price, quantity FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Quantity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresProductStore) List(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price, quantity FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresProductStore) Create(ctx context.Context, product *model.Product) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO products (name, price, quantity) VALUES ($1, $2, $3) RETURNING id`,
		product.Name, product.Price, product.Quantity,
	).Scan(&product.ID)
}

func (s *PostgresProductStore) Update(ctx context.Context, product *model.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = $1, price = $2, quantity = $3 WHERE id = $4`,
		product.Name, product.Price, product.Quantity, product.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresProductStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresProductStore) AdjustQuantity(ctx context.Context, id int64, delta int) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx,
		`UPDATE products SET quantity = quantity + $1 WHERE id = $2
		 RETURNING id, name, price, quantity`,
		delta, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Quantity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
