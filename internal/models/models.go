package models

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a catalog entry fetched from the backend. Read-only once fetched.
type Place struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Region      string    `json:"region"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetCoords returns the coordinates of the place
func (p *Place) GetCoords() Coordinates {
	return Coordinates{Lat: p.Lat, Lng: p.Lng}
}

// HasCoords reports whether there is a place to take a position from.
// (0,0) is a valid point.
func (p *Place) HasCoords() bool {
	return p != nil
}

// Activity is a scheduled visit to a place on one date
type Activity struct {
	ID        string `json:"id"`
	PlaceID   string `json:"place_id"`
	Place     *Place `json:"place,omitempty"`
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Note      string `json:"note,omitempty"`
}

// GetCoords returns the coordinates of the activity's place
func (a *Activity) GetCoords() Coordinates {
	if a.Place == nil {
		return Coordinates{}
	}
	return a.Place.GetCoords()
}

// HasCoords reports whether the activity can be placed on a map, which
// requires its place to be resolved
func (a *Activity) HasCoords() bool {
	return a.Place.HasCoords()
}

// Visibility controls who can see a trip
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility accepts the known visibility names, case-insensitively.
// Empty input maps to private.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VisibilityPrivate, nil
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// TripDraft is an itinerary under construction
type TripDraft struct {
	ID         string     `json:"id"`
	TripID     int64      `json:"trip_id,omitempty"`
	Title      string     `json:"title"`
	Regions    []string   `json:"regions"`
	StartDate  string     `json:"start_date,omitempty"`
	EndDate    string     `json:"end_date,omitempty"`
	Visibility Visibility `json:"visibility"`
	Companions []string   `json:"companions"`
	Activities []Activity `json:"activities"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the draft
func (d *TripDraft) Clone() TripDraft {
	out := *d
	out.Regions = copyStrings(d.Regions)
	out.Companions = copyStrings(d.Companions)
	out.Activities = CopyActivities(d.Activities)
	return out
}

// Trip is a saved itinerary
type Trip struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Regions    []string   `json:"regions"`
	StartDate  string     `json:"start_date,omitempty"`
	EndDate    string     `json:"end_date,omitempty"`
	Visibility Visibility `json:"visibility"`
	Companions []string   `json:"companions"`
	Activities []Activity `json:"activities"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ActivityDates returns the raw date of every activity, in order
func (t *Trip) ActivityDates() []string {
	dates := make([]string, len(t.Activities))
	for i, a := range t.Activities {
		dates[i] = a.Date
	}
	return dates
}

// ItineraryPayload is the body sent to the backend's create/update itinerary endpoint
type ItineraryPayload struct {
	Title      string              `json:"title"`
	Activities []ItineraryActivity `json:"activities"`
	StartDate  string              `json:"start_date,omitempty"`
	EndDate    string              `json:"end_date,omitempty"`
	Regions    []string            `json:"regions"`
	Visibility Visibility          `json:"visibility,omitempty"`
	Companions []string            `json:"companions,omitempty"`
}

// ItineraryActivity is one activity in an ItineraryPayload
type ItineraryActivity struct {
	ID          string `json:"id,omitempty"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	PlaceID     string `json:"place_id"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// RouteLeg is the hop between two consecutive stops
type RouteLeg struct {
	FromActivityID string  `json:"from_activity_id"`
	ToActivityID   string  `json:"to_activity_id"`
	DistanceKm     float64 `json:"distance_km"`
}

// RouteSummary describes the visiting path of one day
type RouteSummary struct {
	Day        string     `json:"day"`
	Stops      int        `json:"stops"`
	DistanceKm float64    `json:"distance_km"`
	Legs       []RouteLeg `json:"legs"`
}

// CopyActivities deep-copies a slice of activities, including their places
func CopyActivities(in []Activity) []Activity {
	if in == nil {
		return nil
	}
	out := make([]Activity, len(in))
	for i, a := range in {
		out[i] = a
		if a.Place != nil {
			p := *a.Place
			out[i].Place = &p
		}
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
