package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/remediation-review/internal/events"
)

// RegisterBridge forwards domain events from the in-process dispatcher onto the
// change feed so out-of-process dashboards receive them. Publish failures are
// logged and never propagate back into the triggering write.
func RegisterBridge(dispatcher events.Dispatcher, publisher Publisher, logger *zap.Logger) {
	if dispatcher == nil || publisher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	forward := func(op string) events.EventHandler {
		return func(ctx context.Context, event events.Event) error {
			if event.Ticket == nil {
				return nil
			}
			if err := publisher.Publish(ctx, ChangeEvent{Op: op, Ticket: *event.Ticket}); err != nil {
				logger.Warn("change feed publish failed",
					zap.String("ticket_id", event.TicketID),
					zap.String("op", op),
					zap.Error(err))
			}
			return nil
		}
	}

	dispatcher.Subscribe(events.EventTicketCreated, forward(OpInsert))
	dispatcher.Subscribe(events.EventTicketStatusChanged, forward(OpUpdate))
}
