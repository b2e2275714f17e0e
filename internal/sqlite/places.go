package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"sharepath/internal/database"
	"sharepath/internal/models"
)

const placeColumns = `id, name, category, region, lat, lng, photo_url, rating, review_count, description, created_at`

type placeRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Category    string    `db:"category"`
	Region      string    `db:"region"`
	Lat         float64   `db:"lat"`
	Lng         float64   `db:"lng"`
	PhotoURL    string    `db:"photo_url"`
	Rating      float64   `db:"rating"`
	ReviewCount int       `db:"review_count"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r placeRow) toModel() models.Place {
	return models.Place{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Region:      r.Region,
		Lat:         r.Lat,
		Lng:         r.Lng,
		PhotoURL:    r.PhotoURL,
		Rating:      r.Rating,
		ReviewCount: r.ReviewCount,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

type placeRepository struct {
	store *Store
}

func (r *placeRepository) List(ctx context.Context, filter database.PlaceFilter) ([]models.Place, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := "SELECT " + placeColumns + " FROM places WHERE 1=1"
	args := []interface{}{}
	if filter.Region != "" {
		query += " AND LOWER(region) = LOWER(?)"
		args = append(args, filter.Region)
	}
	if filter.Category != "" {
		query += " AND LOWER(category) = LOWER(?)"
		args = append(args, filter.Category)
	}
	if filter.Query != "" {
		kw := "%" + strings.ToLower(filter.Query) + "%"
		query += " AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)"
		args = append(args, kw, kw)
	}
	query += " ORDER BY name, id"

	var rows []placeRow
	if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}

	return toPlaces(rows), nil
}

func (r *placeRepository) GetByID(ctx context.Context, id string) (*models.Place, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var row placeRow
	err := r.store.db.GetContext(ctx, &row, "SELECT "+placeColumns+" FROM places WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	p := row.toModel()
	return &p, nil
}

func (r *placeRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Place, error) {
	if len(ids) == 0 {
		return []models.Place{}, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query, args, err := sqlx.In("SELECT "+placeColumns+" FROM places WHERE id IN (?) ORDER BY name, id", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build place query: %w", err)
	}

	var rows []placeRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}

	return toPlaces(rows), nil
}

// Upsert inserts new places and refreshes existing ones. The original
// created_at of an existing place is kept.
func (r *placeRepository) Upsert(ctx context.Context, places []models.Place) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO places (` + placeColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	              name = excluded.name,
	              category = excluded.category,
	              region = excluded.region,
	              lat = excluded.lat,
	              lng = excluded.lng,
	              photo_url = excluded.photo_url,
	              rating = excluded.rating,
	              review_count = excluded.review_count,
	              description = excluded.description`

	now := time.Now()
	for _, p := range places {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, query,
			p.ID, p.Name, p.Category, p.Region, p.Lat, p.Lng,
			p.PhotoURL, p.Rating, p.ReviewCount, p.Description, createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert place %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(places), nil
}

func toPlaces(rows []placeRow) []models.Place {
	places := make([]models.Place, len(rows))
	for i, row := range rows {
		places[i] = row.toModel()
	}
	return places
}
