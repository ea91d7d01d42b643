package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"workshop-chat-service/internal/models"
	"workshop-chat-service/internal/repositories"
)

const (
	// MaxMessageRunes bounds the length of a single message text.
	MaxMessageRunes = 4000

	DefaultPageSize = 50
	MaxPageSize     = 200
)

var (
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrMessageTooLong = errors.New("message text exceeds the allowed length")
)

// MessageService persists messages with server-assigned ordering timestamps,
// serves paginated history and performs bulk read-receipt updates.
type MessageService struct {
	messages repositories.MessageRepository
	now      func() time.Time
}

// NewMessageService constructs a MessageService.
func NewMessageService(messages repositories.MessageRepository) *MessageService {
	return &MessageService{messages: messages, now: time.Now}
}

// Create stamps the creation time at the server, persists the message and
// returns the canonical stored form for broadcasting.
func (s *MessageService) Create(ctx context.Context, roomID int, sender models.Role, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return models.Message{}, ErrMessageTooLong
	}
	return s.messages.Create(ctx, roomID, sender.IsProvider(), text, s.now().UTC())
}

// Page returns a history window in descending creation order. Offset and limit
// are clamped to their default bounds when out of range.
func (s *MessageService) Page(ctx context.Context, roomID int, offset int, limit int) ([]models.Message, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return s.messages.Page(ctx, roomID, offset, limit)
}

// MarkReadForRole stamps every unread message from the reader's counterpart as
// read now and reports how many were updated. Calling it again is a no-op.
func (s *MessageService) MarkReadForRole(ctx context.Context, roomID int, reader models.Role) (int64, error) {
	return s.messages.MarkRead(ctx, roomID, reader.Opposite().IsProvider(), s.now().UTC())
}
