package database

import (
	"context"

	"sharepath/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Places() PlaceRepository
	Trips() TripRepository
}

// PlaceFilter narrows a place listing. Empty fields match everything.
type PlaceFilter struct {
	Region   string
	Category string
	Query    string
}

// PlaceRepository handles the place catalog
type PlaceRepository interface {
	List(ctx context.Context, filter PlaceFilter) ([]models.Place, error)
	GetByID(ctx context.Context, id string) (*models.Place, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Place, error)
	Upsert(ctx context.Context, places []models.Place) (int, error)
}

// TripRepository handles saved itineraries. Activities are stored in
// visiting order and come back in that order.
type TripRepository interface {
	List(ctx context.Context) ([]models.Trip, error)
	GetByID(ctx context.Context, id int64) (*models.Trip, error)
	Create(ctx context.Context, t *models.Trip) (*models.Trip, error)
	Update(ctx context.Context, t *models.Trip) (*models.Trip, error)
	Delete(ctx context.Context, id int64) error
}
