// Package notify delivers market signals over Redis pub/sub. Subscribers
// (chat bridges, UI frontends) consume the channels; the core only publishes.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	broadcastChannel = "market:broadcast"
	notifyPrefix     = "market:notify:"
	uiRefreshChannel = "market:ui"

	publishTimeout = 2 * time.Second
)

type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Broadcast publishes to the shared broadcast channel.
func (n *RedisNotifier) Broadcast(text string) {
	n.publish(broadcastChannel, text)
}

// Notify publishes to a user's private channel.
func (n *RedisNotifier) Notify(user uuid.UUID, text string) {
	n.publish(notifyPrefix+user.String(), text)
}

// UIRefresh publishes the market id; UI subscribers re-read that market.
func (n *RedisNotifier) UIRefresh(market uuid.UUID) {
	n.publish(uiRefreshChannel, market.String())
}

// publish is best-effort: failures are logged, never surfaced. A transaction
// must not fail because a notification did.
func (n *RedisNotifier) publish(channel, payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("notify: publish to %s failed: %v", channel, err)
	}
}
