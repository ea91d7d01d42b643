package models

import "time"

// Message is one persisted chat message. The sender is recorded as a role flag,
// not a user id, so a room stays bidirectional and anonymized to its two sides.
// CreatedAt is server-assigned and defines canonical history order; ReadAt, once
// set, is never cleared.
type Message struct {
	ID               int        `db:"id" json:"id"`
	RoomID           int        `db:"room_id" json:"room_id"`
	SenderIsProvider bool       `db:"sender_is_provider" json:"sender_is_provider"`
	Text             string     `db:"text" json:"text"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ReadAt           *time.Time `db:"read_at" json:"read_at,omitempty"`
}

// SendMessageRequest is the inbound sendMessage payload. A client addresses
// either an existing room or a (workshop, parent) pair; parents may omit
// parent_id, which is forced to their own id.
type SendMessageRequest struct {
	RoomID     int    `json:"room_id,omitempty"`
	WorkshopID int    `json:"workshop_id,omitempty"`
	ParentID   int    `json:"parent_id,omitempty"`
	Text       string `json:"text"`
}
