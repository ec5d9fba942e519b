// Package scheduler turns "complete this order after a delay" into a durable
// job consumed by a poller, so a pending completion survives a process
// restart instead of dying with an in-process timer.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/order-saga/internal/broker"
	"github.com/example/order-saga/internal/model"
	"github.com/example/order-saga/internal/store"
)

const (
	DefaultDelay    = 5 * time.Second
	DefaultInterval = time.Second

	claimBatch = 50
)

// Scheduler owns the order-completion step of the saga: it records a due-time
// job when an order is created and, once the job falls due, transitions the
// order to COMPLETED and publishes the snapshot onto order_completed.
type Scheduler struct {
	jobs   store.JobStore
	orders store.OrderStore
	broker broker.Broker

	// Delay between order creation and completion.
	Delay time.Duration
	// Interval between poller ticks.
	Interval time.Duration
}

func New(jobs store.JobStore, orders store.OrderStore, b broker.Broker) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		orders:   orders,
		broker:   b,
		Delay:    DefaultDelay,
		Interval: DefaultInterval,
	}
}

// ScheduleCompletion enqueues the completion job for a freshly created order.
// The order row must already be committed when this is called.
func (s *Scheduler) ScheduleCompletion(ctx context.Context, orderID int64) error {
	_, err := s.jobs.Enqueue(ctx, orderID, time.Now().Add(s.Delay))
	return err
}

// Run polls for due jobs until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("[Scheduler] Poller started (delay=%s interval=%s)", s.Delay, s.Interval)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ProcessDue(ctx); err != nil {
				log.Printf("[Scheduler] Error processing due jobs: %v", err)
			}
		}
	}
}

// ProcessDue runs every job whose due time has passed. A job is deleted only
// after its completion event is published; a crash before that redelivers the
// job, so the event can be published more than once with a fresh message id.
func (s *Scheduler) ProcessDue(ctx context.Context) error {
	jobs, err := s.jobs.ClaimDue(ctx, time.Now(), claimBatch)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, job model.CompletionJob) {
	// Only PENDING orders are moved forward; a COMPLETED or REFUNDED order is
	// never re-entered.
	if err := s.orders.CompleteIfPending(ctx, job.OrderID); err != nil {
		log.Printf("[Scheduler] Error completing order %d: %v", job.OrderID, err)
		return // job stays queued, retried once its claim lease expires
	}

	// Re-read the canonical row: concurrent work may have changed it since
	// the job was written.
	order, err := s.orders.Get(ctx, job.OrderID)
	if errors.Is(err, store.ErrNotFound) {
		// Order deleted or never committed; nothing to publish.
		if err := s.jobs.Delete(ctx, job.ID); err != nil {
			log.Printf("[Scheduler] Error deleting job %d: %v", job.ID, err)
		}
		return
	}
	if err != nil {
		log.Printf("[Scheduler] Error loading order %d: %v", job.OrderID, err)
		return
	}

	if order.Status == model.StatusCompleted {
		snap := broker.SnapshotFromOrder(order)
		msgID, err := s.broker.Append(ctx, broker.StreamOrderCompleted, snap.Fields())
		if err != nil {
			log.Printf("[Scheduler] Error publishing completion for order %d: %v", order.ID, err)
			return // job stays queued, event not lost
		}
		log.Printf("[Scheduler] Order %d completed, published message %s", order.ID, msgID)
	}

	if err := s.jobs.Delete(ctx, job.ID); err != nil {
		log.Printf("[Scheduler] Error deleting job %d: %v", job.ID, err)
	}
}
