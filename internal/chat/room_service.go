package chat

import (
	"context"
	"errors"
	"fmt"

	"workshop-chat-service/internal/auth"
	"workshop-chat-service/internal/models"
	"workshop-chat-service/internal/repositories"
)

// ErrNotParticipant marks a sender that is not entitled to the room or pair it
// addressed.
var ErrNotParticipant = errors.New("sender is not a participant")

// RoomService owns room lifecycle and participant authorization. It never
// trusts client role claims about ownership: the provider side is always
// re-checked against the workshop directory.
type RoomService struct {
	rooms     repositories.RoomRepository
	directory repositories.DirectoryRepository
}

// NewRoomService constructs a RoomService.
func NewRoomService(rooms repositories.RoomRepository, directory repositories.DirectoryRepository) *RoomService {
	return &RoomService{rooms: rooms, directory: directory}
}

// GetOrCreate returns the unique room for the pair, lazily creating it. The
// second return reports whether this call created the room.
func (s *RoomService) GetOrCreate(ctx context.Context, workshopID int, parentID int) (models.Room, bool, error) {
	room, created, err := s.rooms.GetOrCreate(ctx, workshopID, parentID)
	if err != nil {
		return models.Room{}, false, fmt.Errorf("get or create room for workshop %d parent %d: %w", workshopID, parentID, err)
	}
	return room, created, nil
}

// GetByID fetches a room.
func (s *RoomService) GetByID(ctx context.Context, roomID int) (models.Room, error) {
	return s.rooms.GetByID(ctx, roomID)
}

// RoomIDsFor lists the room ids the identity participates in, scoped by role.
// A provider's view aggregates rooms across all of that provider's workshops.
func (s *RoomService) RoomIDsFor(ctx context.Context, identity auth.Identity) ([]int, error) {
	if identity.Role.IsProvider() {
		return s.rooms.IDsForProvider(ctx, identity.UserID)
	}
	return s.rooms.IDsForParent(ctx, identity.UserID)
}

// ProviderFor resolves the provider owning the workshop.
func (s *RoomService) ProviderFor(ctx context.Context, workshopID int) (int, error) {
	return s.directory.WorkshopProvider(ctx, workshopID)
}

// Delete removes a room and all of its messages.
func (s *RoomService) Delete(ctx context.Context, roomID int) error {
	return s.rooms.Delete(ctx, roomID)
}

// ValidateParticipant checks that the identity is one of the room's two sides.
func (s *RoomService) ValidateParticipant(ctx context.Context, identity auth.Identity, room models.Room) error {
	return s.validate(ctx, identity, room.WorkshopID, room.ParentID)
}

// ValidatePair runs the same check against a (workshop, parent) pair before a
// room exists. The workshop lookup also confirms the workshop itself.
func (s *RoomService) ValidatePair(ctx context.Context, identity auth.Identity, workshopID int, parentID int) error {
	return s.validate(ctx, identity, workshopID, parentID)
}

func (s *RoomService) validate(ctx context.Context, identity auth.Identity, workshopID int, parentID int) error {
	providerID, err := s.directory.WorkshopProvider(ctx, workshopID)
	if err != nil {
		return err
	}
	if identity.Role.IsProvider() {
		if providerID != identity.UserID {
			return ErrNotParticipant
		}
		return nil
	}
	if parentID != identity.UserID {
		return ErrNotParticipant
	}
	return nil
}
