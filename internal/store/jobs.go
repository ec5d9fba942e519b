package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/order-saga/internal/model"
)

// PostgresJobStore implements JobStore on PostgreSQL.
type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (s *PostgresJobStore) Enqueue(ctx context.Context, orderID int64, dueAt time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO completion_jobs (order_id, due_at) VALUES ($1, $2) RETURNING id`,
		orderID, dueAt,
	).Scan(&id)
	return id, err
}

// ClaimDue claims jobs whose due time has passed by pushing their due time a
// lease ahead in the same statement that selects them. The select-and-update
// commits as one statement, so a concurrent poller replica skips the rows
// while they are locked and, once the claim commits, sees them as not yet
// due. A claimed job whose event is never published falls due again when the
// lease expires; a published job is deleted before then.
func (s *PostgresJobStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.CompletionJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE completion_jobs SET due_at = $2
		 WHERE id IN (
			SELECT id FROM completion_jobs
			WHERE due_at <= $1
			ORDER BY due_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, order_id, due_at`,
		now, now.Add(ClaimLease), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.CompletionJob
	for rows.Next() {
		var j model.CompletionJob
		if err := rows.Scan(&j.ID, &j.OrderID, &j.DueAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresJobStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM completion_jobs WHERE id = $1`, id)
	return err
}
