// Package notify hands delivered messages to the push-notification relay
// through a redis list.
package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/envelope"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the redis list the relay consumes.
const DefaultKey = "session:pn:notify"

type pusher interface {
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// payload is what the relay forwards to the push server.
type payload struct {
	SendTo    string `json:"send_to"`
	Data      string `json:"data"`
	Timestamp uint64 `json:"timestamp"`
}

// Queue pushes notification requests onto a redis list.
type Queue struct {
	rdb pusher
	key string
}

// NewQueue returns a queue on rdb. An empty key means DefaultKey.
func NewQueue(rdb *redis.Client, key string) *Queue {
	return newQueue(rdb, key)
}

func newQueue(rdb pusher, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{rdb: rdb, key: key}
}

// Notify enqueues info for its recipient.
func (q *Queue) Notify(ctx context.Context, info delivery.MessageInfo) error {
	b, err := json.Marshal(payload{
		SendTo:    info.Recipient,
		Data:      base64.StdEncoding.EncodeToString(envelope.WrapForStorage(info)),
		Timestamp: info.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("push notification for %s: %w", info.Recipient, err)
	}
	return nil
}
