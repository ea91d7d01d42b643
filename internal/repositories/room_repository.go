package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"workshop-chat-service/internal/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomConflict = errors.New("room concurrently modified")
)

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	GetOrCreate(ctx context.Context, workshopID int, parentID int) (models.Room, bool, error)
	GetByID(ctx context.Context, roomID int) (models.Room, error)
	IDsForParent(ctx context.Context, parentID int) ([]int, error)
	IDsForProvider(ctx context.Context, providerID int) ([]int, error)
	Delete(ctx context.Context, roomID int) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetOrCreate returns the unique room for the pair, creating it when absent.
// Concurrent first-contact attempts converge on one row: the insert is
// ON CONFLICT DO NOTHING against the (workshop_id, parent_id) unique constraint
// and the reselect reads whichever racer won.
func (r *RoomRepo) GetOrCreate(ctx context.Context, workshopID int, parentID int) (models.Room, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (workshop_id, parent_id, created_at) VALUES ($1, $2, $3)
         ON CONFLICT (workshop_id, parent_id) DO NOTHING`,
		workshopID, parentID, time.Now().UTC())
	if err != nil {
		return models.Room{}, false, fmt.Errorf("insert room: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Room{}, false, err
	}

	var room models.Room
	err = r.db.GetContext(ctx, &room,
		`SELECT id, workshop_id, parent_id, created_at FROM rooms WHERE workshop_id=$1 AND parent_id=$2`,
		workshopID, parentID)
	if errors.Is(err, sql.ErrNoRows) {
		// winner row deleted between insert and reselect
		return models.Room{}, false, ErrRoomConflict
	}
	if err != nil {
		return models.Room{}, false, fmt.Errorf("reselect room: %w", err)
	}
	return room, inserted == 1, nil
}

// GetByID fetches a room by id.
func (r *RoomRepo) GetByID(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room,
		`SELECT id, workshop_id, parent_id, created_at FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// IDsForParent returns the ids of every room the parent participates in.
func (r *RoomRepo) IDsForParent(ctx context.Context, parentID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM rooms WHERE parent_id=$1`, parentID)
	return ids, err
}

// IDsForProvider aggregates room ids across every workshop the provider owns.
func (r *RoomRepo) IDsForProvider(ctx context.Context, providerID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT r.id FROM rooms r JOIN workshops w ON w.id = r.workshop_id WHERE w.provider_id=$1`,
		providerID)
	return ids, err
}

// Delete removes a room and its messages in one transaction. The messages go
// first so the cascade is explicit rather than hidden in schema configuration.
func (r *RoomRepo) Delete(ctx context.Context, roomID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete room: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id=$1`, roomID); err != nil {
		return fmt.Errorf("delete room messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrRoomConflict, err)
	}
	return nil
}
