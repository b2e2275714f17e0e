package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharepath/internal/calendar"
	"sharepath/internal/models"
	"sharepath/internal/testutil"
)

func TestBuildPayloadPreservesOrder(t *testing.T) {
	cal := calendar.New(time.UTC)
	draft := &models.TripDraft{
		Title:      " Weekend ",
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-02",
		Visibility: models.VisibilityPublic,
		Activities: []models.Activity{
			{ID: "b", PlaceID: "p2", Date: "2025-03-02T10:00:00", Note: "lunch", StartTime: "10:00"},
			{ID: "a", PlaceID: "p1", Date: "2025-03-01"},
			{ID: "c", PlaceID: "p3", Date: "2025-03-02", EndTime: "18:00"},
		},
	}

	p := BuildPayload(cal, draft)

	assert.Equal(t, "Weekend", p.Title)
	assert.Equal(t, []string{}, p.Regions)
	assert.Equal(t, []string{}, p.Companions)
	require.Len(t, p.Activities, 3)
	assert.Equal(t, "b", p.Activities[0].ID)
	assert.Equal(t, "2025-03-02", p.Activities[0].Date)
	assert.Equal(t, "lunch", p.Activities[0].Description)
	assert.Equal(t, "a", p.Activities[1].ID)
	assert.Equal(t, "18:00", p.Activities[2].EndTime)
}

func TestValidatePayload(t *testing.T) {
	cal := calendar.New(time.UTC)
	activity := models.ItineraryActivity{PlaceID: "p", Date: "2025-03-01"}

	tests := []struct {
		name    string
		payload models.ItineraryPayload
		wantErr bool
	}{
		{"ranged without activities", models.ItineraryPayload{Title: "t", StartDate: "2025-03-01", EndDate: "2025-03-02"}, false},
		{"activities only", models.ItineraryPayload{Title: "t", Activities: []models.ItineraryActivity{activity}}, false},
		{"no title", models.ItineraryPayload{StartDate: "2025-03-01", EndDate: "2025-03-02"}, true},
		{"nothing to save", models.ItineraryPayload{Title: "t"}, true},
		{"inverted range", models.ItineraryPayload{Title: "t", StartDate: "2025-03-02", EndDate: "2025-03-01"}, true},
		{"bad activity date", models.ItineraryPayload{Title: "t", Activities: []models.ItineraryActivity{{PlaceID: "p", Date: "soon"}}}, true},
		{"activity without place", models.ItineraryPayload{Title: "t", Activities: []models.ItineraryActivity{{Date: "2025-03-01"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(cal, &tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTripFromPayload(t *testing.T) {
	p := &models.ItineraryPayload{
		Title: "t",
		Activities: []models.ItineraryActivity{
			{ID: "keep", PlaceID: "p1", Date: "2025-03-01", Description: "note"},
			{PlaceID: "p2", Date: "2025-03-01"},
		},
	}

	trip := TripFromPayload(p, func() string { return "generated" })

	assert.Equal(t, models.VisibilityPrivate, trip.Visibility)
	assert.Equal(t, []string{"keep", "generated"}, testutil.ActivityIDs(trip.Activities))
	assert.Equal(t, "note", trip.Activities[0].Note)
	assert.NotNil(t, trip.Regions)
}

func TestDraftFromTripRoundTrip(t *testing.T) {
	r := newTestReducer()
	trip := &models.Trip{
		ID:         9,
		Title:      "Saved",
		Regions:    []string{"Oaxaca"},
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-03",
		Visibility: models.VisibilityFriends,
		Activities: []models.Activity{
			testutil.NewActivity("x", "2025-03-02", 1, 1),
			testutil.NewActivity("y", "2025-03-01", 2, 2),
		},
	}

	draft := r.DraftFromTrip(trip)

	assert.Equal(t, int64(9), draft.TripID)
	assert.NotEqual(t, "", draft.ID)
	assert.Equal(t, []string{"x", "y"}, testutil.ActivityIDs(draft.Activities))

	draft.Activities[0].Place.Name = "changed"
	assert.Equal(t, "Place p-x", trip.Activities[0].Place.Name)

	p := BuildPayload(r.Calendar, &draft)
	assert.Equal(t, "Saved", p.Title)
	assert.Equal(t, []string{"Oaxaca"}, p.Regions)
	assert.Equal(t, "x", p.Activities[0].ID)
}
