package handlers

import (
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"sharepath/internal/database"
	"sharepath/internal/export"
	"sharepath/internal/geo"
	"sharepath/internal/ingest"
	"sharepath/internal/models"
)

const (
	defaultNearbyRadiusKm = 25.0
	defaultNearbyLimit    = 10
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// PlaceListResponse represents the list response
type PlaceListResponse struct {
	Places []models.Place `json:"places"`
	Total  int            `json:"total"`
}

// NearbyResponse lists suggestions around a place
type NearbyResponse struct {
	Origin      *models.Place    `json:"origin"`
	RadiusKm    float64          `json:"radius_km"`
	Suggestions []geo.Suggestion `json:"suggestions"`
}

// HandleListPlaces handles GET /api/v1/places
func (h *Handler) HandleListPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.PlaceFilter{
		Region:   q.Get("region"),
		Category: q.Get("category"),
		Query:    q.Get("q"),
	}
	log.Printf("[HTTP] GET /api/v1/places: region=%s category=%s q=%s", filter.Region, filter.Category, filter.Query)

	places, err := h.DB.Places().List(r.Context(), filter)
	if err != nil {
		log.Printf("[ERROR] Failed to list places: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, PlaceListResponse{
		Places: places,
		Total:  len(places),
	})
}

// HandleImportPlaces handles POST /api/v1/places. The body is either
// upstream JSON in any shape ingest understands or an xlsx workbook.
func (h *Handler) HandleImportPlaces(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var places []models.Place
	var err error
	if isXLSX(r) {
		places, err = export.ReadPlacesXLSX(body)
	} else {
		var data []byte
		data, err = io.ReadAll(body)
		if err == nil {
			places, err = ingest.DecodePlaces(data)
		}
	}
	if err != nil {
		log.Printf("[HTTP] POST /api/v1/places: invalid_body err=%v", err)
		h.handleValidationError(w, "Invalid request body")
		return
	}

	if len(places) == 0 {
		h.handleValidationError(w, "No places with an id were found")
		return
	}

	n, err := h.DB.Places().Upsert(r.Context(), places)
	if err != nil {
		log.Printf("[ERROR] Failed to import places: count=%d err=%v", len(places), err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Imported places: count=%d", n)
	h.writeJSON(w, http.StatusOK, PlaceListResponse{
		Places: places,
		Total:  n,
	})
}

// HandleGetPlace handles GET /api/v1/places/:id
func (h *Handler) HandleGetPlace(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	log.Printf("[HTTP] GET /api/v1/places/:id: id=%s", id)

	place, err := h.DB.Places().GetByID(r.Context(), id)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Place not found")
		return
	}
	if err != nil {
		log.Printf("[ERROR] Failed to get place: id=%s err=%v", id, err)
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, place)
}

// HandleNearbyPlaces handles GET /api/v1/places/:id/nearby
func (h *Handler) HandleNearbyPlaces(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")

	radius := defaultNearbyRadiusKm
	if v := r.URL.Query().Get("radius_km"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			h.handleValidationError(w, "radius_km must be a positive number")
			return
		}
		radius = parsed
	}

	limit := defaultNearbyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.handleValidationError(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	log.Printf("[HTTP] GET /api/v1/places/:id/nearby: id=%s radius_km=%.1f limit=%d", id, radius, limit)

	origin, err := h.DB.Places().GetByID(r.Context(), id)
	if h.checkNotFound(err) {
		h.handleNotFound(w, "Place not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	candidates, err := h.DB.Places().List(r.Context(), database.PlaceFilter{})
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, NearbyResponse{
		Origin:      origin,
		RadiusKm:    radius,
		Suggestions: geo.Nearby(h.Optimizer.Distance, origin.GetCoords(), candidates, origin.ID, radius, limit),
	})
}

func isXLSX(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == xlsxContentType || strings.HasSuffix(mediaType, "/xlsx")
}
