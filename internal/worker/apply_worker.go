// Package worker hosts the background apply loop that drains the approved
// ticket queue and reports outcomes back through the approval service.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/service"
)

// Applier executes an approved fix against the target system. Implementations
// are external to this core; the result is reported, not interpreted.
type Applier interface {
	Apply(ctx context.Context, ticket domain.ReviewTicket) (domain.ApplicationResult, error)
}

// ApprovalQueue is the slice of the approval service the worker consumes.
type ApprovalQueue interface {
	GetApprovedTickets(ctx context.Context) ([]domain.ReviewTicket, error)
	MarkApplied(ctx context.Context, id string, report service.ApplyReport) (bool, error)
}

// ApplyWorker polls the approved queue oldest-first and applies each ticket.
type ApplyWorker struct {
	queue    ApprovalQueue
	applier  Applier
	logger   *zap.Logger
	interval time.Duration
	batch    int
	actor    string
}

// NewApplyWorker constructs the worker.
func NewApplyWorker(queue ApprovalQueue, applier Applier, logger *zap.Logger, interval time.Duration, batch int) *ApplyWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplyWorker{
		queue:    queue,
		applier:  applier,
		logger:   logger,
		interval: interval,
		batch:    batch,
		actor:    "apply-worker",
	}
}

// Run polls until the context is cancelled.
func (w *ApplyWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain applies up to one batch of approved tickets, oldest-approved first.
func (w *ApplyWorker) drain(ctx context.Context) {
	tickets, err := w.queue.GetApprovedTickets(ctx)
	if err != nil {
		w.logger.Warn("approved queue fetch failed", zap.Error(err))
		return
	}
	if len(tickets) > w.batch {
		tickets = tickets[:w.batch]
	}

	for _, ticket := range tickets {
		if ctx.Err() != nil {
			return
		}
		w.applyOne(ctx, ticket)
	}
}

func (w *ApplyWorker) applyOne(ctx context.Context, ticket domain.ReviewTicket) {
	result, err := w.applier.Apply(ctx, ticket)
	report := service.ApplyReport{AppliedBy: w.actor, Result: result}
	if err != nil {
		msg := err.Error()
		report.Error = &msg
		report.Result.Success = false
	}

	if _, err := w.queue.MarkApplied(ctx, ticket.ID, report); err != nil {
		w.logger.Error("apply outcome report failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	w.logger.Info("apply outcome reported",
		zap.String("ticket_id", ticket.ID),
		zap.Bool("success", report.Result.Success))
}
