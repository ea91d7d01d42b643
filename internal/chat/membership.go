package chat

import (
	"context"
	"fmt"

	"workshop-chat-service/internal/auth"
	"workshop-chat-service/internal/broadcast"
	"workshop-chat-service/internal/models"
)

// MembershipManager subscribes live connections to the room groups they are
// entitled to.
type MembershipManager struct {
	rooms       *RoomService
	conns       broadcast.UserConnections
	broadcaster broadcast.Broadcaster
}

// NewMembershipManager constructs a MembershipManager.
func NewMembershipManager(rooms *RoomService, conns broadcast.UserConnections, broadcaster broadcast.Broadcaster) *MembershipManager {
	return &MembershipManager{rooms: rooms, conns: conns, broadcaster: broadcaster}
}

// OnConnect subscribes a fresh connection to every room its identity currently
// participates in. An error here is fatal to the connect attempt.
func (m *MembershipManager) OnConnect(ctx context.Context, identity auth.Identity, conn broadcast.Connection) error {
	roomIDs, err := m.rooms.RoomIDsFor(ctx, identity)
	if err != nil {
		return fmt.Errorf("resolve rooms for %s %d: %w", identity.Role, identity.UserID, err)
	}

	for _, roomID := range roomIDs {
		if err := m.broadcaster.Subscribe(ctx, roomID, conn); err != nil {
			return fmt.Errorf("subscribe connection %s to room %d: %w", conn.ID(), roomID, err)
		}
	}
	return nil
}

// OnRoomCreated subscribes every live connection of both participants to the
// new room group, so a counterpart already online starts receiving messages
// without reconnecting.
func (m *MembershipManager) OnRoomCreated(ctx context.Context, room models.Room) error {
	providerID, err := m.rooms.ProviderFor(ctx, room.WorkshopID)
	if err != nil {
		return fmt.Errorf("resolve provider of workshop %d: %w", room.WorkshopID, err)
	}

	for _, userID := range []int{room.ParentID, providerID} {
		for _, conn := range m.conns.ConnectionsOf(userID) {
			if err := m.broadcaster.Subscribe(ctx, room.ID, conn); err != nil {
				return fmt.Errorf("subscribe connection %s to room %d: %w", conn.ID(), room.ID, err)
			}
		}
	}
	return nil
}
