// Package drafts keeps trip drafts between requests while they are being
// edited. Drafts are session data: they expire and are never the record of
// a saved trip.
package drafts

import (
	"context"
	"errors"

	"sharepath/internal/models"
)

// ErrNotFound is returned when a draft does not exist or has expired
var ErrNotFound = errors.New("draft not found")

// Store holds drafts by id. Implementations copy drafts in and out, so
// callers never share memory with the store.
type Store interface {
	Create(ctx context.Context, draft *models.TripDraft) error
	Get(ctx context.Context, id string) (*models.TripDraft, error)
	// Update loads the draft, passes a copy to fn and stores the result.
	// If fn returns an error nothing is written and the error is returned.
	Update(ctx context.Context, id string, fn func(*models.TripDraft) error) (*models.TripDraft, error)
	Delete(ctx context.Context, id string) error
}
