package notify

import (
	"context"
	"sync"
)

// Provider enforces at most one live subscription per dashboard session. The
// handle is created lazily on Subscribe and torn down on Reset.
type Provider struct {
	fanout *Fanout

	mu      sync.Mutex
	current *Handle
}

// NewProvider wraps the fan-out with single-subscription semantics.
func NewProvider(fanout *Fanout) *Provider {
	return &Provider{fanout: fanout}
}

// Subscribe tears down any prior subscription before creating the new one.
func (p *Provider) Subscribe(ctx context.Context, onInsert, onUpdate TicketCallback) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current.Close()
	handle, err := p.fanout.Subscribe(ctx, onInsert, onUpdate)
	if err != nil {
		p.current = nil
		return nil, err
	}
	p.current = handle
	return handle, nil
}

// Reset tears down the active subscription, if any. Idempotent.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current.Close()
	p.current = nil
}
