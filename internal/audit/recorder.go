// Package audit appends structured event records to the audit trail.
// Recording is fire-and-forget: a sink failure is logged and swallowed so it can
// never mask the outcome of the operation being audited.
package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Event names, one per ticket transition.
const (
	EventTicketCreated    = "TICKET_CREATED"
	EventTicketInReview   = "TICKET_IN_REVIEW"
	EventTicketApproved   = "TICKET_APPROVED"
	EventTicketRejected   = "TICKET_REJECTED"
	EventTicketApplied    = "TICKET_APPLIED"
	EventTicketRolledBack = "TICKET_ROLLED_BACK"
)

// Severity levels for audit records.
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// Recorder receives append-only audit events.
type Recorder interface {
	Record(ctx context.Context, name, severity, ticketID string, fields map[string]any)
}

type pgRecorder struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRecorder writes audit events to the audit_events table.
func NewPostgresRecorder(pool *pgxpool.Pool, logger *zap.Logger) Recorder {
	return &pgRecorder{pool: pool, logger: logger}
}

func (r *pgRecorder) Record(ctx context.Context, name, severity, ticketID string, eventCtx map[string]any) {
	if r.pool == nil {
		r.logger.Warn("audit sink unavailable, event dropped",
			zap.String("event", name), zap.String("ticket_id", ticketID))
		return
	}
	const query = `
        INSERT INTO audit_events (id, event_name, severity, ticket_id, context)
        VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.pool.Exec(ctx, query, uuid.NewString(), name, severity, ticketID, eventCtx); err != nil {
		r.logger.Error("audit record failed",
			zap.String("event", name),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

// NopRecorder discards all events. Used when auditing is disabled in tooling.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, string, string, string, map[string]any) {}
