// Package notify delivers ticket insert/update events to live subscribers so
// dashboards stay current without polling.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/remediation-review/internal/domain"
)

// Change operations carried on the wire.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
)

// ChangeEvent is the raw change payload published per committed ticket write.
type ChangeEvent struct {
	Op     string              `json:"op"`
	Ticket domain.ReviewTicket `json:"ticket"`
}

// Publisher pushes change events onto the logical ticket channel.
type Publisher interface {
	Publish(ctx context.Context, change ChangeEvent) error
}

// Transport is the subscribe side of the change feed. Implementations deliver
// raw payloads in commit order per subscription.
type Transport interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one live attachment to the change feed.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher publishes change events to a Redis pub/sub channel.
func NewRedisPublisher(client *redis.Client, channel string) Publisher {
	return &redisPublisher{client: client, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, change ChangeEvent) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

type redisTransport struct {
	client *redis.Client
}

// NewRedisTransport subscribes through Redis pub/sub.
func NewRedisTransport(client *redis.Client) Transport {
	return &redisTransport{client: client}
}

func (t *redisTransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := t.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- []byte(msg.Payload)
		}
	}()

	return &redisSubscription{pubsub: pubsub, messages: out}, nil
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	messages <-chan []byte
}

func (s *redisSubscription) Messages() <-chan []byte { return s.messages }

func (s *redisSubscription) Close() error { return s.pubsub.Close() }
