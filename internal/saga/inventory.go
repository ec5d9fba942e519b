package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/order-saga/internal/broker"
	"github.com/example/order-saga/internal/ledger"
	"github.com/example/order-saga/internal/store"
)

// InventoryGroup is the default consumer-group name for the inventory side.
const InventoryGroup = "inventory-group"

// InventoryReconciler consumes order_completed messages and debits stock.
// An order it cannot fulfill (unknown product, insufficient stock, or any
// unexpected failure) is compensated by publishing the payload onto
// refund_order. Every message is acknowledged exactly once per terminal
// path, including failures, so the group never wedges on one message.
type InventoryReconciler struct {
	broker   broker.Broker
	ledger   ledger.Ledger
	products store.ProductStore

	group    string
	consumer string

	// Block bounds the steady-state wait for new messages.
	Block time.Duration
}

func NewInventoryReconciler(b broker.Broker, l ledger.Ledger, products store.ProductStore, group, consumer string) *InventoryReconciler {
	return &InventoryReconciler{
		broker:   b,
		ledger:   l,
		products: products,
		group:    group,
		consumer: consumer,
		Block:    DefaultBlock,
	}
}

// Run consumes order_completed until the context is cancelled.
func (r *InventoryReconciler) Run(ctx context.Context) error {
	return runConsumerLoop(ctx, "InventoryWorker", r.broker, broker.StreamOrderCompleted, r.group, r.consumer, r.Block,
		func(ctx context.Context, msg broker.Message) {
			outcome, err := r.Process(ctx, msg)
			if err != nil {
				log.Printf("[InventoryWorker] Error processing message %s (stream=%s group=%s): %v",
					msg.ID, broker.StreamOrderCompleted, r.group, err)
				return
			}
			log.Printf("[InventoryWorker] Message %s %s", msg.ID, outcome)
		})
}

// Process applies the stock debit for one order_completed message, exactly
// once in effect.
func (r *InventoryReconciler) Process(ctx context.Context, msg broker.Message) (Outcome, error) {
	seen, err := r.ledger.Contains(ctx, ledger.ScopeInventory, msg.ID)
	if err != nil {
		return r.fail(ctx, msg, fmt.Errorf("idempotency check: %w", err))
	}
	if seen {
		// Redelivered after the effect was applied but before the ack landed.
		if err := r.broker.Ack(ctx, broker.StreamOrderCompleted, r.group, msg.ID); err != nil {
			return Failed("ack"), err
		}
		return Skipped(), nil
	}

	snap, err := broker.ParseSnapshot(msg.Fields)
	if err != nil {
		return r.fail(ctx, msg, fmt.Errorf("malformed message: %w", err))
	}

	product, err := r.products.Get(ctx, snap.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		// Unfulfillable order, not a fatal error.
		log.Printf("[InventoryWorker] Product %d not found, sending to refund", snap.ProductID)
		return r.compensate(ctx, msg, "product not found")
	}
	if err != nil {
		return r.fail(ctx, msg, fmt.Errorf("load product %d: %w", snap.ProductID, err))
	}

	// Availability check happens before any mutation, so a failed fulfillment
	// never leaves stock partially debited.
	if product.Quantity < snap.Quantity {
		log.Printf("[InventoryWorker] Product %d has insufficient stock: %d available, %d requested. Sending to refund",
			snap.ProductID, product.Quantity, snap.Quantity)
		return r.compensate(ctx, msg, "insufficient stock")
	}

	updated, err := r.products.AdjustQuantity(ctx, snap.ProductID, -snap.Quantity)
	if err != nil {
		return r.fail(ctx, msg, fmt.Errorf("debit product %d: %w", snap.ProductID, err))
	}
	log.Printf("[InventoryWorker] Product %d quantity updated: %d (reduced by %d)",
		snap.ProductID, updated.Quantity, snap.Quantity)

	if err := r.ledger.Add(ctx, ledger.ScopeInventory, msg.ID); err != nil {
		return r.fail(ctx, msg, fmt.Errorf("ledger add: %w", err))
	}
	if err := r.broker.Ack(ctx, broker.StreamOrderCompleted, r.group, msg.ID); err != nil {
		return Failed("ack"), err
	}
	return Applied(), nil
}

// compensate publishes the payload unchanged onto refund_order, records the
// message as processed and acknowledges it.
func (r *InventoryReconciler) compensate(ctx context.Context, msg broker.Message, reason string) (Outcome, error) {
	if _, err := r.broker.Append(ctx, broker.StreamRefundOrder, msg.Fields); err != nil {
		return r.fail(ctx, msg, fmt.Errorf("publish refund: %w", err))
	}
	if err := r.ledger.Add(ctx, ledger.ScopeInventory, msg.ID); err != nil {
		return r.fail(ctx, msg, fmt.Errorf("ledger add: %w", err))
	}
	if err := r.broker.Ack(ctx, broker.StreamOrderCompleted, r.group, msg.ID); err != nil {
		return Failed("ack"), err
	}
	return Compensated(reason), nil
}

// fail is the terminal path for unexpected failures. It still publishes a
// compensating refund (over-refunding beats under-fulfilling) and still
// acknowledges the message so redelivery cannot loop forever; a transient
// storage outage therefore produces a refund even when stock was fine. The
// message id is deliberately not added to the ledger here.
func (r *InventoryReconciler) fail(ctx context.Context, msg broker.Message, cause error) (Outcome, error) {
	if _, err := r.broker.Append(ctx, broker.StreamRefundOrder, msg.Fields); err != nil {
		log.Printf("[InventoryWorker] Error publishing defensive refund for message %s: %v", msg.ID, err)
	}
	if err := r.broker.Ack(ctx, broker.StreamOrderCompleted, r.group, msg.ID); err != nil {
		log.Printf("[InventoryWorker] Error acking failed message %s: %v", msg.ID, err)
	}
	return Failed(cause.Error()), cause
}
