package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrWorkshopNotFound = errors.New("workshop not found")

// DirectoryRepository resolves workshop ownership. It reads the platform's
// workshop directory and is consumed only to decide whether a sender is
// entitled to a room.
type DirectoryRepository interface {
	WorkshopProvider(ctx context.Context, workshopID int) (int, error)
}

// DirectoryRepo is a sqlx implementation of DirectoryRepository.
type DirectoryRepo struct {
	db *sqlx.DB
}

// NewDirectoryRepo constructs a DirectoryRepo.
func NewDirectoryRepo(db *sqlx.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

// WorkshopProvider returns the provider owning the workshop.
func (r *DirectoryRepo) WorkshopProvider(ctx context.Context, workshopID int) (int, error) {
	var providerID int
	err := r.db.GetContext(ctx, &providerID, `SELECT provider_id FROM workshops WHERE id=$1`, workshopID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrWorkshopNotFound
	}
	return providerID, err
}
