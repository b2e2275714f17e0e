package planner

import (
	"strings"

	"github.com/samber/lo"

	"sharepath/internal/calendar"
	"sharepath/internal/models"
)

// BuildPayload converts a draft into the itinerary payload the backend
// stores. Activity order is kept exactly as it is in the draft.
func BuildPayload(cal *calendar.Calendar, draft *models.TripDraft) models.ItineraryPayload {
	activities := lo.Map(draft.Activities, func(a models.Activity, _ int) models.ItineraryActivity {
		date := a.Date
		if key, ok := cal.Parse(a.Date); ok {
			date = string(key)
		}
		return models.ItineraryActivity{
			ID:          a.ID,
			Date:        date,
			Description: a.Note,
			PlaceID:     a.PlaceID,
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
		}
	})

	return models.ItineraryPayload{
		Title:      strings.TrimSpace(draft.Title),
		Activities: activities,
		StartDate:  draft.StartDate,
		EndDate:    draft.EndDate,
		Regions:    append([]string{}, draft.Regions...),
		Visibility: draft.Visibility,
		Companions: append([]string{}, draft.Companions...),
	}
}

// ValidatePayload checks that a payload can be persisted
func ValidatePayload(cal *calendar.Calendar, p *models.ItineraryPayload) error {
	if strings.TrimSpace(p.Title) == "" {
		return &ErrInvalidAction{Action: "save", Reason: "title is required"}
	}
	if p.StartDate != "" || p.EndDate != "" {
		if len(cal.EachDayInclusive(p.StartDate, p.EndDate)) == 0 {
			return &ErrInvalidAction{Action: "save", Reason: "start_date and end_date must form a valid range"}
		}
	}
	if p.StartDate == "" && len(p.Activities) == 0 {
		return &ErrInvalidAction{Action: "save", Reason: "a date range or at least one activity is required"}
	}
	for _, a := range p.Activities {
		if a.PlaceID == "" {
			return &ErrInvalidAction{Action: "save", Reason: "every activity needs a place_id"}
		}
		if _, ok := cal.Parse(a.Date); !ok {
			return &ErrInvalidAction{Action: "save", Reason: "invalid activity date " + a.Date}
		}
	}
	return nil
}

// TripFromPayload builds the trip a payload describes. Activities keep their
// order; places are not resolved here.
func TripFromPayload(p *models.ItineraryPayload, newID func() string) models.Trip {
	activities := lo.Map(p.Activities, func(a models.ItineraryActivity, _ int) models.Activity {
		id := a.ID
		if id == "" {
			id = newID()
		}
		return models.Activity{
			ID:        id,
			PlaceID:   a.PlaceID,
			Date:      a.Date,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Note:      a.Description,
		}
	})

	visibility := p.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	return models.Trip{
		Title:      strings.TrimSpace(p.Title),
		Regions:    append([]string{}, p.Regions...),
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		Visibility: visibility,
		Companions: append([]string{}, p.Companions...),
		Activities: activities,
	}
}

// DraftFromTrip opens a saved trip for editing
func (r *Reducer) DraftFromTrip(trip *models.Trip) models.TripDraft {
	draft := r.NewDraft()
	draft.TripID = trip.ID
	draft.Title = trip.Title
	draft.Regions = append([]string{}, trip.Regions...)
	draft.StartDate = trip.StartDate
	draft.EndDate = trip.EndDate
	draft.Visibility = trip.Visibility
	draft.Companions = append([]string{}, trip.Companions...)
	draft.Activities = models.CopyActivities(trip.Activities)
	if draft.Activities == nil {
		draft.Activities = []models.Activity{}
	}
	return draft
}
