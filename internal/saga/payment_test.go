package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/order-saga/internal/broker"
	"github.com/example/order-saga/internal/ledger"
	"github.com/example/order-saga/internal/model"
	"github.com/example/order-saga/internal/store/mocks"
)

type paymentFixture struct {
	reconciler *PaymentReconciler
	broker     *broker.Redis
	ledger     *ledger.RedisLedger
	orders     *mocks.MockOrderStore
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	b := broker.NewRedis(client)
	l := ledger.NewRedisLedger(client)
	orders := mocks.NewMockOrderStore()
	r := NewPaymentReconciler(b, l, orders, PaymentGroup, "test-consumer")

	require.NoError(t, b.EnsureGroup(context.Background(), broker.StreamRefundOrder, PaymentGroup))
	return &paymentFixture{reconciler: r, broker: b, ledger: l, orders: orders}
}

func (f *paymentFixture) deliver(t *testing.T, fields map[string]string) broker.Message {
	t.Helper()
	ctx := context.Background()
	_, err := f.broker.Append(ctx, broker.StreamRefundOrder, fields)
	require.NoError(t, err)
	msgs, err := f.broker.ReadNew(ctx, broker.StreamRefundOrder, PaymentGroup, "test-consumer", 10, -1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return msgs[0]
}

func (f *paymentFixture) backlog(t *testing.T) []broker.Message {
	t.Helper()
	msgs, err := f.broker.ReadBacklog(context.Background(), broker.StreamRefundOrder, PaymentGroup, "test-consumer", 100)
	require.NoError(t, err)
	return msgs
}

func (f *paymentFixture) inLedger(t *testing.T, id string) bool {
	t.Helper()
	seen, err := f.ledger.Contains(context.Background(), ledger.ScopePayment, id)
	require.NoError(t, err)
	return seen
}

func TestPaymentReconciler_RefundsExistingOrder(t *testing.T) {
	f := newPaymentFixture(t)
	f.orders.Seed(model.Order{ID: 100, ProductID: 1, Quantity: 4, Status: model.StatusCompleted})
	msg := f.deliver(t, orderFields("100", "1", "4"))

	outcome, err := f.reconciler.Process(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome.Kind)

	order, err := f.orders.Get(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefunded, order.Status)

	assert.True(t, f.inLedger(t, msg.ID))
	assert.Empty(t, f.backlog(t))
}

func TestPaymentReconciler_DuplicateDelivery_SingleTransition(t *testing.T) {
	f := newPaymentFixture(t)
	f.orders.Seed(model.Order{ID: 100, ProductID: 1, Quantity: 4, Status: model.StatusCompleted})
	msg := f.deliver(t, orderFields("100", "1", "4"))

	first, err := f.reconciler.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Kind)

	second, err := f.reconciler.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second.Kind)

	// The status transition happened exactly once
	require.Len(t, f.orders.RefundCalls, 1)
}

func TestPaymentReconciler_OrderNotFound_ReportsButAcks(t *testing.T) {
	f := newPaymentFixture(t)
	msg := f.deliver(t, orderFields("999", "1", "4"))

	outcome, err := f.reconciler.Process(context.Background(), msg)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, OutcomeFailed, outcome.Kind)

	// The id is recorded so this exact message is never retried
	assert.True(t, f.inLedger(t, msg.ID))
	assert.Empty(t, f.backlog(t), "message is acknowledged despite the failure")
}

func TestPaymentReconciler_MalformedMessage_AcksWithoutLedgerEntry(t *testing.T) {
	f := newPaymentFixture(t)
	msg := f.deliver(t, map[string]string{"product_id": "1", "quantity": "4"})

	outcome, err := f.reconciler.Process(context.Background(), msg)

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.False(t, f.inLedger(t, msg.ID))
	assert.Empty(t, f.backlog(t))
}

func TestPaymentReconciler_NonNumericOrderID_Fails(t *testing.T) {
	f := newPaymentFixture(t)
	fields := orderFields("not-a-number", "1", "4")
	msg := f.deliver(t, fields)

	outcome, err := f.reconciler.Process(context.Background(), msg)

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Empty(t, f.backlog(t))
}

func TestPaymentReconciler_StorageFailure_AcksAndReports(t *testing.T) {
	f := newPaymentFixture(t)
	f.orders.Seed(model.Order{ID: 100, ProductID: 1, Quantity: 4, Status: model.StatusCompleted})
	f.orders.MarkRefundedErr = errors.New("storage unavailable")
	msg := f.deliver(t, orderFields("100", "1", "4"))

	outcome, err := f.reconciler.Process(context.Background(), msg)

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.False(t, f.inLedger(t, msg.ID))
	assert.Empty(t, f.backlog(t))

	// The order was not transitioned
	order, gerr := f.orders.Get(context.Background(), 100)
	require.NoError(t, gerr)
	assert.Equal(t, model.StatusCompleted, order.Status)
}

func TestPaymentReconciler_AlreadyRefunded_Harmless(t *testing.T) {
	f := newPaymentFixture(t)
	f.orders.Seed(model.Order{ID: 100, ProductID: 1, Quantity: 4, Status: model.StatusRefunded})

	// A second refund message for the same order under a fresh message id
	msg := f.deliver(t, orderFields("100", "1", "4"))

	outcome, err := f.reconciler.Process(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome.Kind)

	order, gerr := f.orders.Get(context.Background(), 100)
	require.NoError(t, gerr)
	assert.Equal(t, model.StatusRefunded, order.Status)
}
