package models

import "time"

// Room is the unique conversation channel between one workshop's provider and one
// parent. At most one room exists per (workshop, parent) pair.
type Room struct {
	ID         int       `db:"id" json:"id"`
	WorkshopID int       `db:"workshop_id" json:"workshop_id"`
	ParentID   int       `db:"parent_id" json:"parent_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Workshop is the directory row a room hangs off. Owned by the platform's
// workshop module; read here only to resolve the provider side of a room.
type Workshop struct {
	ID         int    `db:"id" json:"id"`
	ProviderID int    `db:"provider_id" json:"provider_id"`
	Title      string `db:"title" json:"title"`
}
