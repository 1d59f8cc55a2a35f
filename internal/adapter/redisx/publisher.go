package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quillshelf/backend/internal/domain"
)

// Publisher delivers expiration notifications by publishing them as JSON to a
// Redis channel. A per-user subchannel gets a copy so clients can subscribe
// to just their own notifications.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a notification publisher on the given channel.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Send publishes one notification to the shared channel and the owner's
// subchannel.
func (p *Publisher) Send(ctx context.Context, n domain.ExpirationNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	userChannel := fmt.Sprintf("%s:%s", p.channel, n.UserID)
	if err := p.client.Publish(ctx, userChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification to user channel: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification to shared channel: %w", err)
	}
	return nil
}
