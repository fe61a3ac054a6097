package events

import (
	"time"

	"github.com/spec-kit/remediation-review/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services. Ticket carries the
// post-commit snapshot so downstream consumers never re-read the store.
type Event struct {
	ID        string               `json:"id"`
	Type      EventType            `json:"type"`
	TicketID  string               `json:"ticket_id"`
	Actor     string               `json:"actor"`
	Timestamp time.Time            `json:"timestamp"`
	Ticket    *domain.ReviewTicket `json:"ticket,omitempty"`
	Payload   interface{}          `json:"payload,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
