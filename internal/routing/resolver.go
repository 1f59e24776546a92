// Package routing decides how a message reaches one recipient: through the
// recipient's storage-node swarm or a public channel, with which encryption
// and for how long storage nodes keep it.
package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/diogocavaiar/session-android/internal/message"
)

// Kind is the destination kind of a route.
type Kind int

const (
	PrivateSwarm Kind = iota
	PublicChannel
)

func (k Kind) String() string {
	if k == PublicChannel {
		return "public_channel"
	}
	return "private_swarm"
}

// Route is the resolved destination for one recipient of one send. Routes
// are never cached.
type Route struct {
	Kind               Kind
	Chat               *message.PublicChat
	FallbackEncryption bool
	TTL                time.Duration
	SelfSend           bool
}

// ThreadStore maps identifiers to threads and threads to public chats.
type ThreadStore interface {
	ThreadID(ctx context.Context, identifier string) (int64, error)
	PublicChat(ctx context.Context, threadID int64) (*message.PublicChat, error)
}

// SessionPolicy answers session-management questions.
type SessionPolicy interface {
	UsesFallbackEncryption(ctx context.Context, c message.Content, publicKey string) (bool, error)
	MarkSessionResetInProgress(ctx context.Context, r message.Recipient) error
}

// Resolver resolves routes.
type Resolver struct {
	threads  ThreadStore
	sessions SessionPolicy
	ttls     TTLTable
}

// NewResolver returns a resolver.
func NewResolver(threads ThreadStore, sessions SessionPolicy, ttls TTLTable) *Resolver {
	return &Resolver{threads: threads, sessions: sessions, ttls: ttls}
}

// TTLs returns the resolver's TTL table.
func (r *Resolver) TTLs() TTLTable {
	return r.ttls
}

// Resolve returns the route of content to recipient. A data message with a
// sync target resolves the target's thread instead of the recipient's.
// override, when set, replaces the category TTL; a non-positive override
// resolves to FallbackTTL.
func (r *Resolver) Resolve(ctx context.Context, recipient message.Recipient, c message.Content, override *time.Duration) (Route, error) {
	var route Route

	target := recipient.PublicKey
	if dm, ok := c.(*message.DataMessage); ok && dm.IsSelfSend() {
		target, route.SelfSend = *dm.SyncTarget, true
	}

	chat, err := r.PublicChatFor(ctx, target)
	if err != nil {
		return Route{}, err
	}
	if chat != nil {
		route.Kind, route.Chat = PublicChannel, chat
	} else {
		fallback, err := r.sessions.UsesFallbackEncryption(ctx, c, recipient.PublicKey)
		if err != nil {
			return Route{}, fmt.Errorf("resolve %s: fallback encryption: %w", recipient, err)
		}
		route.FallbackEncryption = fallback
	}

	route.TTL = r.EffectiveTTL(c, override)
	return route, nil
}

// PublicChatFor returns the public chat bound to identifier's thread, or nil.
func (r *Resolver) PublicChatFor(ctx context.Context, identifier string) (*message.PublicChat, error) {
	threadID, err := r.threads.ThreadID(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: thread: %w", identifier, err)
	}
	chat, err := r.threads.PublicChat(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: public chat: %w", identifier, err)
	}
	return chat, nil
}

// EffectiveTTL returns the TTL content is stored with.
func (r *Resolver) EffectiveTTL(c message.Content, override *time.Duration) time.Duration {
	if override != nil {
		if *override <= 0 {
			return FallbackTTL
		}
		return *override
	}
	return r.ttls.For(CategoryOf(c))
}

// IsRegular reports whether ttl is the regular-message TTL. Only regular
// messages produce sent/failed broadcasts.
func (r *Resolver) IsRegular(ttl time.Duration) bool {
	return ttl == r.ttls.For(CategoryRegular)
}
