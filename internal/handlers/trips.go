package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"sharepath/internal/calendar"
	"sharepath/internal/export"
	"sharepath/internal/models"
	"sharepath/internal/planner"
)

// TripListResponse represents the list response
type TripListResponse struct {
	Trips []models.Trip `json:"trips"`
	Total int           `json:"total"`
}

// TripResponse is a saved trip together with the days it occupies
type TripResponse struct {
	Trip *models.Trip      `json:"trip"`
	Days []calendar.DayKey `json:"days"`
}

// TripRef names a trip on a calendar day
type TripRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// CalendarDay is one highlighted day
type CalendarDay struct {
	Day   calendar.DayKey `json:"day"`
	Trips []TripRef       `json:"trips"`
}

// HandleListTrips handles GET /api/v1/trips
func (h *Handler) HandleListTrips(w http.ResponseWriter, r *http.Request) {
	log.Printf("[HTTP] GET /api/v1/trips")

	trips, err := h.DB.Trips().List(r.Context())
	if err != nil {
		log.Printf("[ERROR] Failed to list trips: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, TripListResponse{
		Trips: trips,
		Total: len(trips),
	})
}

// HandleGetTrip handles GET /api/v1/trips/:id
func (h *Handler) HandleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}

	days := h.Calendar.TripDays(trip)
	if days == nil {
		days = []calendar.DayKey{}
	}
	h.writeJSON(w, http.StatusOK, TripResponse{Trip: trip, Days: days})
}

// HandleUpdateTrip handles PUT /api/v1/trips/:id with an itinerary payload
func (h *Handler) HandleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.handleValidationError(w, "Invalid trip ID")
		return
	}

	var payload models.ItineraryPayload
	if err := h.decodeBody(r, &payload); err != nil {
		log.Printf("[HTTP] PUT /api/v1/trips/:id: invalid_body err=%v", err)
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if err := planner.ValidatePayload(h.Calendar, &payload); err != nil {
		h.handlePlannerError(w, err)
		return
	}

	trip := planner.TripFromPayload(&payload, h.Reducer.NewID)
	trip.ID = id

	log.Printf("[HTTP] PUT /api/v1/trips/:id: id=%d activities=%d", id, len(trip.Activities))
	updated, err := h.DB.Trips().Update(r.Context(), &trip)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Trip not found")
		return
	}
	if err != nil {
		log.Printf("[ERROR] Failed to update trip: id=%d err=%v", id, err)
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteTrip handles DELETE /api/v1/trips/:id
func (h *Handler) HandleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.handleValidationError(w, "Invalid trip ID")
		return
	}

	log.Printf("[HTTP] DELETE /api/v1/trips/:id: id=%d", id)
	err = h.DB.Trips().Delete(r.Context(), id)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Trip not found")
		return
	}
	if err != nil {
		log.Printf("[ERROR] Failed to delete trip: id=%d err=%v", id, err)
		h.handleInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleEditTrip handles POST /api/v1/trips/:id/edit by opening a new draft
// from the saved trip
func (h *Handler) HandleEditTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}

	draft := h.Reducer.DraftFromTrip(trip)
	if err := h.Drafts.Create(r.Context(), &draft); err != nil {
		log.Printf("[ERROR] Failed to create draft from trip: id=%d err=%v", trip.ID, err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Opened trip for editing: trip_id=%d draft_id=%s", trip.ID, draft.ID)
	h.writeJSON(w, http.StatusCreated, h.draftResponse(&draft))
}

// HandleExportTrip handles GET /api/v1/trips/:id/export
func (h *Handler) HandleExportTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.loadTrip(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteItineraryXLSX(&buf, trip, h.Calendar); err != nil {
		log.Printf("[ERROR] Failed to export trip: id=%d err=%v", trip.ID, err)
		h.handleInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trip-%d.xlsx"`, trip.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// HandleCalendar handles GET /api/v1/calendar?from=&to=. Both bounds are
// optional and inclusive.
func (h *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	from, ok := h.optionalDay(r.URL.Query().Get("from"))
	if !ok {
		h.handleValidationError(w, "Invalid from date")
		return
	}
	to, ok := h.optionalDay(r.URL.Query().Get("to"))
	if !ok {
		h.handleValidationError(w, "Invalid to date")
		return
	}
	if from != "" && to != "" && to < from {
		h.handleValidationError(w, "to must not be before from")
		return
	}

	trips, err := h.DB.Trips().List(r.Context())
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	idx := h.Calendar.BuildIndex(trips)
	days := []CalendarDay{}
	for _, day := range idx.Days {
		if (from != "" && day < from) || (to != "" && day > to) {
			continue
		}
		refs := []TripRef{}
		for _, t := range idx.TripsOn(day) {
			refs = append(refs, TripRef{ID: t.ID, Title: t.Title})
		}
		days = append(days, CalendarDay{Day: day, Trips: refs})
	}

	log.Printf("[HTTP] GET /api/v1/calendar: from=%s to=%s days=%d", from, to, len(days))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days": days,
	})
}

func (h *Handler) loadTrip(w http.ResponseWriter, r *http.Request) (*models.Trip, bool) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.handleValidationError(w, "Invalid trip ID")
		return nil, false
	}

	trip, err := h.DB.Trips().GetByID(r.Context(), id)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Trip not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[ERROR] Failed to get trip: id=%d err=%v", id, err)
		h.handleInternalError(w, err)
		return nil, false
	}
	return trip, true
}

func (h *Handler) optionalDay(s string) (calendar.DayKey, bool) {
	if s == "" {
		return "", true
	}
	return h.Calendar.Parse(s)
}
