package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"

	"workshop-chat-service/internal/observability"
)

// ResilientBroadcaster composes the distributed and local delivery paths. Every
// delivery tries the distributed backend first and falls back to local-only
// delivery when the distributed transport is unreachable; application errors
// propagate unchanged. Membership changes go to both backends unconditionally
// so local state stays consistent while the distributed backend is degraded.
type ResilientBroadcaster struct {
	distributed Broadcaster
	local       Broadcaster
}

// NewResilientBroadcaster wraps the two backends.
func NewResilientBroadcaster(distributed, local Broadcaster) *ResilientBroadcaster {
	return &ResilientBroadcaster{distributed: distributed, local: local}
}

func (b *ResilientBroadcaster) deliver(op func(Broadcaster) error) error {
	err := op(b.distributed)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrTransportUnavailable) {
		return err
	}

	observability.IncBroadcastFallback()
	log.Printf("broadcast: distributed backend unreachable, delivering locally: %v", err)
	return op(b.local)
}

// membership applies a subscribe/unsubscribe to both backends. A single
// backend failure is summarized in the log; the other backend's success is not
// masked by returning an error for it.
func (b *ResilientBroadcaster) membership(name string, op func(Broadcaster) error) error {
	distributedErr := op(b.distributed)
	localErr := op(b.local)

	if distributedErr != nil && localErr != nil {
		return fmt.Errorf("%s failed on both backends: distributed: %v; local: %v", name, distributedErr, localErr)
	}
	if distributedErr != nil {
		log.Printf("broadcast: %s failed on distributed backend: %v", name, distributedErr)
	}
	if localErr != nil {
		log.Printf("broadcast: %s failed on local backend: %v", name, localErr)
	}
	return nil
}

func (b *ResilientBroadcaster) SendToConnection(ctx context.Context, connID string, method string, payload any) error {
	return b.deliver(func(t Broadcaster) error { return t.SendToConnection(ctx, connID, method, payload) })
}

func (b *ResilientBroadcaster) SendToConnections(ctx context.Context, connIDs []string, method string, payload any) error {
	return b.deliver(func(t Broadcaster) error { return t.SendToConnections(ctx, connIDs, method, payload) })
}

func (b *ResilientBroadcaster) SendToGroup(ctx context.Context, groupID int, method string, payload any) error {
	return b.deliver(func(t Broadcaster) error { return t.SendToGroup(ctx, groupID, method, payload) })
}

func (b *ResilientBroadcaster) SendToGroups(ctx context.Context, groupIDs []int, method string, payload any) error {
	return b.deliver(func(t Broadcaster) error { return t.SendToGroups(ctx, groupIDs, method, payload) })
}

func (b *ResilientBroadcaster) SendToGroupExcept(ctx context.Context, groupID int, excludedConnIDs []string, method string, payload any) error {
	return b.deliver(func(t Broadcaster) error { return t.SendToGroupExcept(ctx, groupID, excludedConnIDs, method, payload) })
}

func (b *ResilientBroadcaster) SendToUser(ctx context.Context, userID int, method string, payload any) error {
	return b.deliver(func(t Broadcaster) error { return t.SendToUser(ctx, userID, method, payload) })
}

func (b *ResilientBroadcaster) SendToUsers(ctx context.Context, userIDs []int, method string, payload any) error {
	return b.deliver(func(t Broadcaster) error { return t.SendToUsers(ctx, userIDs, method, payload) })
}

func (b *ResilientBroadcaster) Subscribe(ctx context.Context, groupID int, conn Connection) error {
	return b.membership("subscribe", func(t Broadcaster) error { return t.Subscribe(ctx, groupID, conn) })
}

func (b *ResilientBroadcaster) Unsubscribe(ctx context.Context, groupID int, conn Connection) error {
	return b.membership("unsubscribe", func(t Broadcaster) error { return t.Unsubscribe(ctx, groupID, conn) })
}

var _ Broadcaster = (*ResilientBroadcaster)(nil)
var _ Broadcaster = (*LocalBroadcaster)(nil)
var _ Broadcaster = (*AMQPBroadcaster)(nil)
