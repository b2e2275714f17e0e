package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/samber/lo"

	"sharepath/internal/calendar"
	"sharepath/internal/database"
	"sharepath/internal/ingest"
	"sharepath/internal/models"
	"sharepath/internal/planner"
)

// DraftResponse is a draft together with the days it occupies
type DraftResponse struct {
	Draft *models.TripDraft `json:"draft"`
	Days  []calendar.DayKey `json:"days"`
}

// DraftDay summarizes one day of a draft
type DraftDay struct {
	Day        calendar.DayKey `json:"day"`
	Activities int             `json:"activities"`
}

// DayResponse lists one day's activities by start time plus the path through
// them in visiting order
type DayResponse struct {
	Day        calendar.DayKey     `json:"day"`
	Activities []models.Activity   `json:"activities"`
	Route      models.RouteSummary `json:"route"`
}

// OptimizeResponse reports a day before and after optimization
type OptimizeResponse struct {
	Draft  *models.TripDraft   `json:"draft"`
	Before models.RouteSummary `json:"before"`
	After  models.RouteSummary `json:"after"`
}

func (h *Handler) draftResponse(d *models.TripDraft) DraftResponse {
	days := h.Calendar.DraftDays(d)
	if days == nil {
		days = []calendar.DayKey{}
	}
	return DraftResponse{Draft: d, Days: days}
}

// HandleCreateDraft handles POST /api/v1/drafts. An optional body sets the
// draft's details.
func (h *Handler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	draft := h.Reducer.NewDraft()

	var details planner.SetDetails
	if err := h.decodeBody(r, &details); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("[HTTP] POST /api/v1/drafts: invalid_body err=%v", err)
		h.handleValidationError(w, "Invalid request body")
		return
	}

	draft, err := h.Reducer.Reduce(draft, details)
	if err != nil {
		h.handlePlannerError(w, err)
		return
	}

	if err := h.Drafts.Create(r.Context(), &draft); err != nil {
		log.Printf("[ERROR] Failed to create draft: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Created draft: id=%s", draft.ID)
	h.writeJSON(w, http.StatusCreated, h.draftResponse(&draft))
}

// HandleGetDraft handles GET /api/v1/drafts/:id
func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	log.Printf("[HTTP] GET /api/v1/drafts/:id: id=%s", id)

	draft, err := h.Drafts.Get(r.Context(), id)
	if err != nil {
		h.handlePlannerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.draftResponse(draft))
}

// HandleDeleteDraft handles DELETE /api/v1/drafts/:id
func (h *Handler) HandleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	log.Printf("[HTTP] DELETE /api/v1/drafts/:id: id=%s", id)

	if err := h.Drafts.Delete(r.Context(), id); err != nil {
		h.handlePlannerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleApplyAction handles POST /api/v1/drafts/:id/actions
func (h *Handler) HandleApplyAction(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.handleValidationError(w, "Invalid request body")
		return
	}

	action, err := planner.DecodeAction(data)
	if err != nil {
		log.Printf("[HTTP] POST /api/v1/drafts/:id/actions: id=%s err=%v", id, err)
		h.handleValidationError(w, err.Error())
		return
	}

	log.Printf("[HTTP] POST /api/v1/drafts/:id/actions: id=%s type=%s", id, action.Type())
	h.applyWithPlaces(w, r, id, action)
}

// HandleImportActivities handles POST /api/v1/drafts/:id/activities.
// The body is an activity feed in any shape the ingest package reads.
func (h *Handler) HandleImportActivities(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.handleValidationError(w, "Invalid request body")
		return
	}

	activities, err := ingest.DecodeActivities(data)
	if err != nil {
		h.handleValidationError(w, err.Error())
		return
	}
	if len(activities) == 0 {
		h.handleValidationError(w, "No activities with a place id")
		return
	}

	log.Printf("[HTTP] POST /api/v1/drafts/:id/activities: id=%s count=%d", id, len(activities))
	h.applyWithPlaces(w, r, id, planner.NewAddActivities(activities))
}

func (h *Handler) applyWithPlaces(w http.ResponseWriter, r *http.Request, id string, action planner.Action) {
	action, err := h.attachPlaces(r.Context(), action)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Place not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	draft, err := h.Drafts.Update(r.Context(), id, h.apply(action))
	if err != nil {
		h.handlePlannerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.draftResponse(draft))
}

// attachPlaces gives activities added by place id their catalog entry so
// their day can be routed
func (h *Handler) attachPlaces(ctx context.Context, action planner.Action) (planner.Action, error) {
	switch a := action.(type) {
	case planner.AddActivity:
		adds, err := h.catalogPlaces(ctx, []planner.AddActivity{a})
		if err != nil {
			return nil, err
		}
		return adds[0], nil
	case planner.AddActivities:
		adds, err := h.catalogPlaces(ctx, a.Activities)
		if err != nil {
			return nil, err
		}
		return planner.AddActivities{Activities: adds}, nil
	}
	return action, nil
}

func (h *Handler) catalogPlaces(ctx context.Context, adds []planner.AddActivity) ([]planner.AddActivity, error) {
	byCatalog := func(a planner.AddActivity) bool { return a.Place == nil && a.PlaceID != "" }

	ids := lo.Uniq(lo.FilterMap(adds, func(a planner.AddActivity, _ int) (string, bool) {
		return a.PlaceID, byCatalog(a)
	}))
	if len(ids) == 0 {
		return adds, nil
	}

	places, err := h.DB.Places().GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(places, func(p models.Place) string { return p.ID })

	out := make([]planner.AddActivity, len(adds))
	for i, a := range adds {
		if byCatalog(a) {
			place, ok := byID[a.PlaceID]
			if !ok {
				return nil, fmt.Errorf("place %s: %w", a.PlaceID, database.ErrNotFound)
			}
			a.Place = &place
		}
		out[i] = a
	}
	return out, nil
}

// HandleListDraftDays handles GET /api/v1/drafts/:id/days
func (h *Handler) HandleListDraftDays(w http.ResponseWriter, r *http.Request) {
	draft, err := h.Drafts.Get(r.Context(), param(r, "id"))
	if err != nil {
		h.handlePlannerError(w, err)
		return
	}

	days := []DraftDay{}
	for _, day := range h.Calendar.DraftDays(draft) {
		days = append(days, DraftDay{
			Day:        day,
			Activities: len(planner.DayStops(h.Calendar, draft.Activities, day)),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days": days,
	})
}

// HandleGetDraftDay handles GET /api/v1/drafts/:id/days/:day
func (h *Handler) HandleGetDraftDay(w http.ResponseWriter, r *http.Request) {
	day, ok := h.Calendar.Parse(param(r, "day"))
	if !ok {
		h.handleValidationError(w, "Invalid day")
		return
	}

	draft, err := h.Drafts.Get(r.Context(), param(r, "id"))
	if err != nil {
		h.handlePlannerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DayResponse{
		Day:        day,
		Activities: nonNil(planner.FilterDay(h.Calendar, draft.Activities, day)),
		Route:      h.Optimizer.Summarize(day, planner.DayStops(h.Calendar, draft.Activities, day)),
	})
}

// HandleOptimizeDraftDay handles POST /api/v1/drafts/:id/days/:day/optimize
func (h *Handler) HandleOptimizeDraftDay(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	day, ok := h.Calendar.Parse(param(r, "day"))
	if !ok {
		h.handleValidationError(w, "Invalid day")
		return
	}

	log.Printf("[HTTP] POST /api/v1/drafts/:id/days/:day/optimize: id=%s day=%s", id, day)

	var before models.RouteSummary
	draft, err := h.Drafts.Update(r.Context(), id, func(d *models.TripDraft) error {
		before = h.Optimizer.Summarize(day, planner.DayStops(h.Calendar, d.Activities, day))
		return h.apply(planner.OptimizeDay{Day: string(day)})(d)
	})
	if err != nil {
		h.handlePlannerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, OptimizeResponse{
		Draft:  draft,
		Before: before,
		After:  h.Optimizer.Summarize(day, planner.DayStops(h.Calendar, draft.Activities, day)),
	})
}

// HandleSaveDraft handles POST /api/v1/drafts/:id/save. The draft becomes a
// saved trip and is discarded.
func (h *Handler) HandleSaveDraft(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	ctx := r.Context()

	draft, err := h.Drafts.Get(ctx, id)
	if err != nil {
		h.handlePlannerError(w, err)
		return
	}

	payload := planner.BuildPayload(h.Calendar, draft)
	if err := planner.ValidatePayload(h.Calendar, &payload); err != nil {
		h.handlePlannerError(w, err)
		return
	}

	// Places that arrived inline must exist before the trip can reference them
	if err := h.storeUnknownPlaces(r, draft.Activities); err != nil {
		h.handleInternalError(w, err)
		return
	}

	trip := planner.TripFromPayload(&payload, h.Reducer.NewID)
	status := http.StatusCreated
	var saved *models.Trip
	if draft.TripID != 0 {
		trip.ID = draft.TripID
		saved, err = h.DB.Trips().Update(ctx, &trip)
		status = http.StatusOK
	} else {
		saved, err = h.DB.Trips().Create(ctx, &trip)
	}
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Trip not found")
		return
	}
	if err != nil {
		log.Printf("[ERROR] Failed to save draft: id=%s err=%v", id, err)
		h.handleInternalError(w, err)
		return
	}

	if err := h.Drafts.Delete(ctx, id); err != nil {
		log.Printf("[ERROR] Failed to discard saved draft: id=%s err=%v", id, err)
	}

	log.Printf("[HTTP] Saved draft: id=%s trip_id=%d activities=%d", id, saved.ID, len(saved.Activities))
	h.writeJSON(w, status, saved)
}

func (h *Handler) apply(action planner.Action) func(*models.TripDraft) error {
	return func(d *models.TripDraft) error {
		next, err := h.Reducer.Reduce(*d, action)
		if err != nil {
			return err
		}
		*d = next
		return nil
	}
}

// storeUnknownPlaces adds inline places missing from the catalog. Known
// places are left alone so partial copies never overwrite catalog entries.
func (h *Handler) storeUnknownPlaces(r *http.Request, activities []models.Activity) error {
	inline := lo.UniqBy(
		lo.FilterMap(activities, func(a models.Activity, _ int) (models.Place, bool) {
			if a.Place == nil {
				return models.Place{}, false
			}
			return *a.Place, true
		}),
		func(p models.Place) string { return p.ID },
	)
	if len(inline) == 0 {
		return nil
	}

	ids := lo.Map(inline, func(p models.Place, _ int) string { return p.ID })
	known, err := h.DB.Places().GetByIDs(r.Context(), ids)
	if err != nil {
		return err
	}
	knownIDs := lo.SliceToMap(known, func(p models.Place) (string, bool) { return p.ID, true })

	missing := lo.Filter(inline, func(p models.Place, _ int) bool { return !knownIDs[p.ID] })
	if len(missing) == 0 {
		return nil
	}
	_, err = h.DB.Places().Upsert(r.Context(), missing)
	return err
}

func nonNil(activities []models.Activity) []models.Activity {
	if activities == nil {
		return []models.Activity{}
	}
	return activities
}
