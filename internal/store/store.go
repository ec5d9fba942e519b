// Package store holds the relational persistence for the payment and
// inventory domains. Every mutation is a single-row atomic statement; no
// transaction ever spans a row update and a broker call.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/order-saga/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// OrderStore is owned by the payment domain.
type OrderStore interface {
	Create(ctx context.Context, order *model.Order) error
	Get(ctx context.Context, id int64) (*model.Order, error)

	// CompleteIfPending moves a PENDING order to COMPLETED. An order in any
	// other state (or a missing order) is left untouched and reports no error.
	CompleteIfPending(ctx context.Context, id int64) error

	// MarkRefunded sets the order status to REFUNDED. Setting it twice is
	// harmless. Returns ErrNotFound if the order does not exist.
	MarkRefunded(ctx context.Context, id int64) (*model.Order, error)
}

// ProductStore is owned by the inventory domain.
type ProductStore interface {
	Get(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error

	// AdjustQuantity atomically changes quantity-on-hand by delta and returns
	// the updated row. Returns ErrNotFound if the product does not exist.
	AdjustQuantity(ctx context.Context, id int64, delta int) (*model.Product, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// ClaimLease is how long a claimed completion job stays invisible to other
// pollers before it falls due again.
const ClaimLease = 30 * time.Second

// JobStore persists pending order completions so a restart cannot lose them.
type JobStore interface {
	Enqueue(ctx context.Context, orderID int64, dueAt time.Time) (int64, error)

	// ClaimDue returns jobs whose due time has passed and leases them for
	// ClaimLease, so no other poller sees them until the lease expires.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.CompletionJob, error)

	Delete(ctx context.Context, id int64) error
}
