package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"workshop-chat-service/internal/models"
)

// MessageRepository defines interactions for room messages.
type MessageRepository interface {
	Create(ctx context.Context, roomID int, senderIsProvider bool, text string, createdAt time.Time) (models.Message, error)
	Page(ctx context.Context, roomID int, offset int, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, roomID int, senderIsProvider bool, readAt time.Time) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message and returns the canonical persisted row, including
// the server-assigned id and timestamp, so callers broadcast the stored form.
func (r *MessageRepo) Create(ctx context.Context, roomID int, senderIsProvider bool, text string, createdAt time.Time) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (room_id, sender_is_provider, text, created_at) VALUES ($1, $2, $3, $4)
         RETURNING id, room_id, sender_is_provider, text, created_at, read_at`,
		roomID, senderIsProvider, text, createdAt).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderIsProvider, &msg.Text, &msg.CreatedAt, &msg.ReadAt)
	return msg, err
}

// Page returns a window of room history in descending creation order. Ties on
// the timestamp fall back to the id so the order stays stable.
func (r *MessageRepo) Page(ctx context.Context, roomID int, offset int, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, room_id, sender_is_provider, text, created_at, read_at
         FROM messages
         WHERE room_id=$1
         ORDER BY created_at DESC, id DESC
         LIMIT $2 OFFSET $3`,
		roomID, limit, offset)
	return msgs, err
}

// MarkRead stamps read_at on every unread message in the room sent by the
// given side. Already-read messages are left untouched, which makes the
// operation idempotent and the read timestamp monotonic.
func (r *MessageRepo) MarkRead(ctx context.Context, roomID int, senderIsProvider bool, readAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read_at=$1
         WHERE room_id=$2 AND sender_is_provider=$3 AND read_at IS NULL`,
		readAt, roomID, senderIsProvider)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
