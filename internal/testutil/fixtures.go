package testutil

import (
	"sharepath/internal/models"
)

// NewPlace builds a catalog place at the given position
func NewPlace(id string, lat, lng float64) *models.Place {
	return &models.Place{
		ID:       id,
		Name:     "Place " + id,
		Category: "sight",
		Region:   "Oaxaca",
		Lat:      lat,
		Lng:      lng,
	}
}

// NewActivity builds an activity visiting a place at lat/lng on date
func NewActivity(id, date string, lat, lng float64) models.Activity {
	return models.Activity{
		ID:      id,
		PlaceID: "p-" + id,
		Place:   NewPlace("p-"+id, lat, lng),
		Date:    date,
	}
}

// ActivityIDs returns the ids of activities, in order
func ActivityIDs(activities []models.Activity) []string {
	ids := make([]string, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	return ids
}
