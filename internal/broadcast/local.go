package broadcast

import (
	"context"
	"log"
	"sync"

	"workshop-chat-service/internal/observability"
)

// LocalBroadcaster is the in-process delivery path. It reaches only
// connections held by this instance and doubles as the delivery sink for
// instructions consumed from the distributed backend.
type LocalBroadcaster struct {
	mu     sync.RWMutex
	groups map[int]map[string]Connection
	conns  map[string]Connection
	users  UserConnections
}

// NewLocalBroadcaster constructs an empty LocalBroadcaster.
func NewLocalBroadcaster(users UserConnections) *LocalBroadcaster {
	return &LocalBroadcaster{
		groups: make(map[int]map[string]Connection),
		conns:  make(map[string]Connection),
		users:  users,
	}
}

// Attach makes a connection addressable before it joins any group.
func (b *LocalBroadcaster) Attach(conn Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[conn.ID()] = conn
}

// Detach retires a connection from the index and every group it joined.
// Safe to call for an unknown connection.
func (b *LocalBroadcaster) Detach(conn Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, conn.ID())
	for groupID, members := range b.groups {
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(b.groups, groupID)
		}
	}
}

// Subscribe adds the connection to a group. Idempotent.
func (b *LocalBroadcaster) Subscribe(ctx context.Context, groupID int, conn Connection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	members, ok := b.groups[groupID]
	if !ok {
		members = make(map[string]Connection)
		b.groups[groupID] = members
	}
	members[conn.ID()] = conn
	b.conns[conn.ID()] = conn
	return nil
}

// Unsubscribe removes the connection from a group.
func (b *LocalBroadcaster) Unsubscribe(ctx context.Context, groupID int, conn Connection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if members, ok := b.groups[groupID]; ok {
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(b.groups, groupID)
		}
	}
	return nil
}

func (b *LocalBroadcaster) SendToConnection(ctx context.Context, connID string, method string, payload any) error {
	return b.SendToConnections(ctx, []string{connID}, method, payload)
}

func (b *LocalBroadcaster) SendToConnections(ctx context.Context, connIDs []string, method string, payload any) error {
	env, err := newEnvelope(opConnections, method, payload)
	if err != nil {
		return err
	}
	env.ConnIDs = connIDs
	return b.apply(env, "local")
}

func (b *LocalBroadcaster) SendToGroup(ctx context.Context, groupID int, method string, payload any) error {
	return b.SendToGroups(ctx, []int{groupID}, method, payload)
}

func (b *LocalBroadcaster) SendToGroups(ctx context.Context, groupIDs []int, method string, payload any) error {
	env, err := newEnvelope(opGroups, method, payload)
	if err != nil {
		return err
	}
	env.GroupIDs = groupIDs
	return b.apply(env, "local")
}

func (b *LocalBroadcaster) SendToGroupExcept(ctx context.Context, groupID int, excludedConnIDs []string, method string, payload any) error {
	env, err := newEnvelope(opGroupExcept, method, payload)
	if err != nil {
		return err
	}
	env.GroupIDs = []int{groupID}
	env.Excluded = excludedConnIDs
	return b.apply(env, "local")
}

func (b *LocalBroadcaster) SendToUser(ctx context.Context, userID int, method string, payload any) error {
	return b.SendToUsers(ctx, []int{userID}, method, payload)
}

func (b *LocalBroadcaster) SendToUsers(ctx context.Context, userIDs []int, method string, payload any) error {
	env, err := newEnvelope(opUsers, method, payload)
	if err != nil {
		return err
	}
	env.UserIDs = userIDs
	return b.apply(env, "local")
}

// apply fans an envelope out to the connections this instance holds. The
// backend label distinguishes direct local sends from consumed distributed
// instructions in the delivery metrics.
func (b *LocalBroadcaster) apply(env envelope, backend string) error {
	frame, err := env.frame()
	if err != nil {
		return err
	}

	for _, conn := range b.resolve(env) {
		if !conn.Enqueue(frame) {
			log.Printf("broadcast: dropping %s for slow connection %s", env.Method, conn.ID())
			continue
		}
		observability.IncBroadcastDelivery(backend)
	}
	return nil
}

func (b *LocalBroadcaster) resolve(env envelope) []Connection {
	b.mu.RLock()
	defer b.mu.RUnlock()

	switch env.Op {
	case opConnections:
		targets := make([]Connection, 0, len(env.ConnIDs))
		for _, id := range env.ConnIDs {
			if conn, ok := b.conns[id]; ok {
				targets = append(targets, conn)
			}
		}
		return targets
	case opGroups, opGroupExcept:
		excluded := make(map[string]struct{}, len(env.Excluded))
		for _, id := range env.Excluded {
			excluded[id] = struct{}{}
		}
		var targets []Connection
		for _, groupID := range env.GroupIDs {
			for id, conn := range b.groups[groupID] {
				if _, skip := excluded[id]; skip {
					continue
				}
				targets = append(targets, conn)
			}
		}
		return targets
	case opUsers:
		var targets []Connection
		for _, userID := range env.UserIDs {
			targets = append(targets, b.users.ConnectionsOf(userID)...)
		}
		return targets
	default:
		log.Printf("broadcast: unknown delivery op %q", env.Op)
		return nil
	}
}
