package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/example/order-saga/internal/broker"
	"github.com/example/order-saga/internal/ledger"
	"github.com/example/order-saga/internal/store"
)

// PaymentGroup is the default consumer-group name for the payment side.
const PaymentGroup = "payment-group"

// ErrOrderNotFound is reported when a refund references an order that no
// longer exists. The message is still acknowledged and recorded so the same
// id is never retried, but the inconsistency is surfaced rather than
// swallowed.
var ErrOrderNotFound = errors.New("order not found for refund")

// PaymentReconciler consumes refund_order messages and marks the referenced
// order REFUNDED, exactly once in effect.
type PaymentReconciler struct {
	broker broker.Broker
	ledger ledger.Ledger
	orders store.OrderStore

	group    string
	consumer string

	Block time.Duration
}

func NewPaymentReconciler(b broker.Broker, l ledger.Ledger, orders store.OrderStore, group, consumer string) *PaymentReconciler {
	return &PaymentReconciler{
		broker:   b,
		ledger:   l,
		orders:   orders,
		group:    group,
		consumer: consumer,
		Block:    DefaultBlock,
	}
}

// Run consumes refund_order until the context is cancelled.
func (r *PaymentReconciler) Run(ctx context.Context) error {
	return runConsumerLoop(ctx, "PaymentWorker", r.broker, broker.StreamRefundOrder, r.group, r.consumer, r.Block,
		func(ctx context.Context, msg broker.Message) {
			outcome, err := r.Process(ctx, msg)
			if err != nil {
				log.Printf("[PaymentWorker] Error processing message %s (stream=%s group=%s): %v",
					msg.ID, broker.StreamRefundOrder, r.group, err)
				return
			}
			log.Printf("[PaymentWorker] Message %s %s", msg.ID, outcome)
		})
}

// Process applies the compensating status transition for one refund message.
func (r *PaymentReconciler) Process(ctx context.Context, msg broker.Message) (Outcome, error) {
	seen, err := r.ledger.Contains(ctx, ledger.ScopePayment, msg.ID)
	if err != nil {
		return r.fail(ctx, msg, fmt.Errorf("idempotency check: %w", err))
	}
	if seen {
		if err := r.broker.Ack(ctx, broker.StreamRefundOrder, r.group, msg.ID); err != nil {
			return Failed("ack"), err
		}
		return Skipped(), nil
	}

	raw, ok := msg.Fields["order_id"]
	if !ok {
		return r.fail(ctx, msg, fmt.Errorf("malformed message: missing field %q", "order_id"))
	}
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return r.fail(ctx, msg, fmt.Errorf("malformed message: field %q: %w", "order_id", err))
	}

	order, err := r.orders.MarkRefunded(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		// The order disappeared between creation and refund. Record and ack so
		// this id is never retried, but report the inconsistency.
		log.Printf("[PaymentWorker] Order %d not found for refund", orderID)
		if err := r.ledger.Add(ctx, ledger.ScopePayment, msg.ID); err != nil {
			return r.fail(ctx, msg, fmt.Errorf("ledger add: %w", err))
		}
		if err := r.broker.Ack(ctx, broker.StreamRefundOrder, r.group, msg.ID); err != nil {
			return Failed("ack"), err
		}
		return Failed("order not found"), fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return r.fail(ctx, msg, fmt.Errorf("refund order %d: %w", orderID, err))
	}
	log.Printf("[PaymentWorker] Order %d refunded successfully", order.ID)

	if err := r.ledger.Add(ctx, ledger.ScopePayment, msg.ID); err != nil {
		return r.fail(ctx, msg, fmt.Errorf("ledger add: %w", err))
	}
	if err := r.broker.Ack(ctx, broker.StreamRefundOrder, r.group, msg.ID); err != nil {
		return Failed("ack"), err
	}
	return Applied(), nil
}

// fail acknowledges the message despite the failure so it cannot wedge the
// group, and surfaces the cause. There is no further compensation hop after
// the refund stream.
func (r *PaymentReconciler) fail(ctx context.Context, msg broker.Message, cause error) (Outcome, error) {
	if err := r.broker.Ack(ctx, broker.StreamRefundOrder, r.group, msg.ID); err != nil {
		log.Printf("[PaymentWorker] Error acking failed message %s: %v", msg.ID, err)
	}
	return Failed(cause.Error()), cause
}
