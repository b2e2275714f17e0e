package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"sharepath/internal/calendar"
	"sharepath/internal/database"
	"sharepath/internal/drafts"
	"sharepath/internal/planner"
)

// maxBodyBytes bounds request bodies, including spreadsheet uploads
const maxBodyBytes = 10 << 20

// Handler provides common handler utilities and dependencies
type Handler struct {
	DB        database.DataStore
	Drafts    drafts.Store
	Calendar  *calendar.Calendar
	Optimizer *planner.GreedyOptimizer
	Reducer   *planner.Reducer
}

// New wires a handler around a data store and a draft store
func New(db database.DataStore, draftStore drafts.Store, cal *calendar.Calendar, optimizer *planner.GreedyOptimizer) *Handler {
	return &Handler{
		DB:        db,
		Drafts:    draftStore,
		Calendar:  cal,
		Optimizer: optimizer,
		Reducer:   planner.NewReducer(cal, optimizer),
	}
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	WriteError(w, status, code, message, details)
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleOptimizeError handles 422 errors for days that cannot be routed
func (h *Handler) handleOptimizeError(w http.ResponseWriter, err *planner.ErrMissingCoordinates) {
	h.writeError(w, http.StatusUnprocessableEntity, "OPTIMIZE_FAILED", err.Error(), map[string]interface{}{
		"day":         err.Day,
		"activity_id": err.ActivityID,
	})
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handlePlannerError maps planner and storage errors onto responses
func (h *Handler) handlePlannerError(w http.ResponseWriter, err error) {
	var invalid *planner.ErrInvalidAction
	var missing *planner.ErrMissingCoordinates
	switch {
	case errors.As(err, &invalid):
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", invalid.Error(), map[string]interface{}{
			"action": invalid.Action,
		})
	case errors.As(err, &missing):
		h.handleOptimizeError(w, missing)
	case errors.Is(err, drafts.ErrNotFound):
		h.handleNotFound(w, "Draft not found")
	case errors.Is(err, drafts.ErrConflict):
		h.writeError(w, http.StatusConflict, "CONFLICT", "Draft was modified concurrently, retry the action", nil)
	case h.checkNotFound(err):
		h.handleNotFound(w, err.Error())
	default:
		h.handleInternalError(w, err)
	}
}

// checkNotFound checks if an error is a not found error
func (h *Handler) checkNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// decodeBody decodes a JSON request body
func (h *Handler) decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(param(r, name), 10, 64)
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "connected"

	if err := h.DB.HealthCheck(r.Context()); err != nil {
		status = "degraded"
		dbStatus = "error"
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"version":  "1.0.0",
		"database": dbStatus,
	})
}
