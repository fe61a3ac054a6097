package notify

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/remediation-review/internal/domain"
)

// defaultQueueSize bounds the per-handle callback queue.
const defaultQueueSize = 64

// TicketCallback receives a deserialized ticket snapshot.
type TicketCallback func(domain.ReviewTicket)

// Fanout redistributes ticket change events from the transport to registered
// callbacks. Callbacks run on a dedicated goroutine per handle and never block
// the transport; long-running work inside a callback should be handed off.
type Fanout struct {
	transport Transport
	channel   string
	queueSize int
	logger    *zap.Logger
}

// NewFanout constructs the fan-out over the given transport and logical channel.
func NewFanout(transport Transport, channel string, queueSize int, logger *zap.Logger) *Fanout {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{transport: transport, channel: channel, queueSize: queueSize, logger: logger}
}

// Handle is a live subscription. Close is idempotent.
type Handle struct {
	sub   Subscription
	queue chan ChangeEvent
	once  sync.Once
	done  chan struct{}
}

// Close tears down the subscription. Safe to call repeatedly and on nil.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		_ = h.sub.Close()
		close(h.done)
	})
}

// Subscribe attaches callbacks for insert and update events. Delivery order per
// handle matches commit order; events that arrive while the queue is full are
// dropped with a warning rather than blocking the transport.
func (f *Fanout) Subscribe(ctx context.Context, onInsert, onUpdate TicketCallback) (*Handle, error) {
	sub, err := f.transport.Subscribe(ctx, f.channel)
	if err != nil {
		return nil, err
	}

	handle := &Handle{
		sub:   sub,
		queue: make(chan ChangeEvent, f.queueSize),
		done:  make(chan struct{}),
	}

	// Drain the transport into the queue without ever blocking on callbacks.
	go func() {
		defer close(handle.queue)
		for payload := range sub.Messages() {
			var change ChangeEvent
			if err := json.Unmarshal(payload, &change); err != nil {
				f.logger.Warn("undecodable change payload dropped", zap.Error(err))
				continue
			}
			select {
			case handle.queue <- change:
			default:
				f.logger.Warn("subscriber queue full, change dropped",
					zap.String("ticket_id", change.Ticket.ID))
			}
		}
	}()

	// Invoke callbacks off the transport goroutine.
	go func() {
		for change := range handle.queue {
			switch change.Op {
			case OpInsert:
				if onInsert != nil {
					onInsert(change.Ticket)
				}
			case OpUpdate:
				if onUpdate != nil {
					onUpdate(change.Ticket)
				}
			default:
				f.logger.Warn("unknown change op", zap.String("op", change.Op))
			}
		}
	}()

	return handle, nil
}

// Unsubscribe releases the handle. Calling it with nil or an already released
// handle is a no-op.
func (f *Fanout) Unsubscribe(handle *Handle) {
	handle.Close()
}
