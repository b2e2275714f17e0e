package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"sharepath/internal/database"
	"sharepath/internal/models"
)

const tripColumns = `id, title, regions, start_date, end_date, visibility, companions, created_at, updated_at`

type tripRow struct {
	ID         int64     `db:"id"`
	Title      string    `db:"title"`
	Regions    string    `db:"regions"`
	StartDate  string    `db:"start_date"`
	EndDate    string    `db:"end_date"`
	Visibility string    `db:"visibility"`
	Companions string    `db:"companions"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r tripRow) toModel() (models.Trip, error) {
	t := models.Trip{
		ID:         r.ID,
		Title:      r.Title,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Visibility: models.Visibility(r.Visibility),
		Activities: []models.Activity{},
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Regions), &t.Regions); err != nil {
		return t, fmt.Errorf("failed to decode regions of trip %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Companions), &t.Companions); err != nil {
		return t, fmt.Errorf("failed to decode companions of trip %d: %w", r.ID, err)
	}
	return t, nil
}

// activityRow joins a stored activity with its place, when the place is known
type activityRow struct {
	TripID     int64           `db:"trip_id"`
	Position   int             `db:"position"`
	ActivityID string          `db:"activity_id"`
	PlaceID    string          `db:"place_id"`
	Date       string          `db:"date"`
	StartTime  string          `db:"start_time"`
	EndTime    string          `db:"end_time"`
	Note       string          `db:"note"`
	PlaceName  sql.NullString  `db:"place_name"`
	Category   sql.NullString  `db:"place_category"`
	Region     sql.NullString  `db:"place_region"`
	Lat        sql.NullFloat64 `db:"place_lat"`
	Lng        sql.NullFloat64 `db:"place_lng"`
	Found      sql.NullString  `db:"place_found"`
}

func (r activityRow) toModel() models.Activity {
	a := models.Activity{
		ID:        r.ActivityID,
		PlaceID:   r.PlaceID,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Note:      r.Note,
	}
	if r.Found.Valid {
		a.Place = &models.Place{
			ID:       r.PlaceID,
			Name:     r.PlaceName.String,
			Category: r.Category.String,
			Region:   r.Region.String,
			Lat:      r.Lat.Float64,
			Lng:      r.Lng.Float64,
		}
	}
	return a
}

const activitySelect = `SELECT a.trip_id, a.position, a.activity_id, a.place_id, a.date,
	       a.start_time, a.end_time, a.note,
	       p.name AS place_name, p.category AS place_category, p.region AS place_region,
	       p.lat AS place_lat, p.lng AS place_lng, p.id AS place_found
	FROM trip_activities a
	LEFT JOIN places p ON p.id = a.place_id`

type tripRepository struct {
	store *Store
}

func (r *tripRepository) List(ctx context.Context) ([]models.Trip, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rows []tripRow
	query := "SELECT " + tripColumns + " FROM trips ORDER BY start_date, id"
	if err := r.store.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}

	var activities []activityRow
	if err := r.store.db.SelectContext(ctx, &activities, activitySelect+" ORDER BY a.trip_id, a.position"); err != nil {
		return nil, fmt.Errorf("failed to query trip activities: %w", err)
	}

	byTrip := make(map[int64][]models.Activity)
	for _, a := range activities {
		byTrip[a.TripID] = append(byTrip[a.TripID], a.toModel())
	}

	trips := make([]models.Trip, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		if acts, ok := byTrip[t.ID]; ok {
			t.Activities = acts
		}
		trips = append(trips, t)
	}

	return trips, nil
}

func (r *tripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.getByID(ctx, r.store.db, id)
}

func (r *tripRepository) Create(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	regions, companions, err := encodeLists(t)
	if err != nil {
		return nil, err
	}

	tx, err := r.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	query := `INSERT INTO trips (title, regions, start_date, end_date, visibility, companions, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		t.Title, regions, t.StartDate, t.EndDate, string(t.Visibility), companions, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get trip id: %w", err)
	}

	if err := insertActivities(ctx, tx, id, t.Activities); err != nil {
		return nil, err
	}

	created, err := r.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[SQLITE] Created trip: id=%d activities=%d", id, len(t.Activities))
	return created, nil
}

// Update replaces the trip's fields and its whole activity list
func (r *tripRepository) Update(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	regions, companions, err := encodeLists(t)
	if err != nil {
		return nil, err
	}

	tx, err := r.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE trips
	          SET title = ?, regions = ?, start_date = ?, end_date = ?, visibility = ?, companions = ?, updated_at = ?
	          WHERE id = ?`
	result, err := tx.ExecContext(ctx, query,
		t.Title, regions, t.StartDate, t.EndDate, string(t.Visibility), companions, time.Now(), t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return nil, database.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM trip_activities WHERE trip_id = ?", t.ID); err != nil {
		return nil, fmt.Errorf("failed to clear trip activities: %w", err)
	}
	if err := insertActivities(ctx, tx, t.ID, t.Activities); err != nil {
		return nil, err
	}

	updated, err := r.getByID(ctx, tx, t.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[SQLITE] Updated trip: id=%d activities=%d", t.ID, len(t.Activities))
	return updated, nil
}

func (r *tripRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result, err := r.store.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// getByID reads through q so it can run inside a transaction. Caller holds the lock.
func (r *tripRepository) getByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Trip, error) {
	var row tripRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT "+tripColumns+" FROM trips WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	t, err := row.toModel()
	if err != nil {
		return nil, err
	}

	var activities []activityRow
	if err := sqlx.SelectContext(ctx, q, &activities, activitySelect+" WHERE a.trip_id = ? ORDER BY a.position", id); err != nil {
		return nil, fmt.Errorf("failed to query trip activities: %w", err)
	}
	for _, a := range activities {
		t.Activities = append(t.Activities, a.toModel())
	}

	return &t, nil
}

func insertActivities(ctx context.Context, tx *sqlx.Tx, tripID int64, activities []models.Activity) error {
	query := `INSERT INTO trip_activities
	          (trip_id, position, activity_id, place_id, date, start_time, end_time, note)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for i, a := range activities {
		_, err := tx.ExecContext(ctx, query,
			tripID, i, a.ID, a.PlaceID, a.Date, a.StartTime, a.EndTime, a.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to create trip activity: %w", err)
		}
	}
	return nil
}

func encodeLists(t *models.Trip) (string, string, error) {
	regions := t.Regions
	if regions == nil {
		regions = []string{}
	}
	companions := t.Companions
	if companions == nil {
		companions = []string{}
	}

	r, err := json.Marshal(regions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode regions: %w", err)
	}
	c, err := json.Marshal(companions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode companions: %w", err)
	}
	return string(r), string(c), nil
}
