// Package ingest maps the loosely shaped place and activity documents sent by
// upstream clients onto the canonical models. Field name tolerance lives here
// and nowhere else.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"sharepath/internal/models"
)

// ErrMissingID is returned when no known id field carries a value
var ErrMissingID = errors.New("missing id")

var (
	placeIDKeys     = []string{"placeId", "place_id", "lugarId", "lugar_id", "idLugar", "id_lugar", "id"}
	nestedPlaceKeys = []string{"place", "lugar"}
	latKeys         = []string{"lat", "latitude", "latitud"}
	lngKeys         = []string{"lng", "lon", "long", "longitude", "longitud"}
	nameKeys        = []string{"name", "nombre", "title", "titulo"}
	categoryKeys    = []string{"category", "categoria", "type", "tipo"}
	regionKeys      = []string{"region", "estado", "state"}
	photoKeys       = []string{"photo_url", "photoUrl", "photo", "imagen", "image", "foto"}
	ratingKeys      = []string{"rating", "calificacion"}
	reviewKeys      = []string{"review_count", "reviewCount", "reviews", "resenas"}
	descKeys        = []string{"description", "descripcion"}

	activityIDKeys = []string{"activityId", "activity_id", "actividadId", "id"}
	dateKeys       = []string{"date", "fecha", "dia", "day"}
	startKeys      = []string{"start_time", "startTime", "hora_inicio", "horaInicio", "time", "hora"}
	endKeys        = []string{"end_time", "endTime", "hora_fin", "horaFin"}
	noteKeys       = []string{"note", "notes", "nota", "notas", "description", "descripcion"}

	listKeys = []string{"data", "results", "items", "places", "lugares", "activities", "actividades"}
)

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04:05 PM", "3PM", "3 PM"}

// NormalizePlace maps one raw place document to a Place
func NormalizePlace(raw map[string]any) (models.Place, error) {
	id := firstString(raw, placeIDKeys)
	if id == "" {
		return models.Place{}, fmt.Errorf("place: %w", ErrMissingID)
	}

	rating, _ := firstNumber(raw, ratingKeys)
	reviews, _ := firstNumber(raw, reviewKeys)
	lat, _ := firstNumber(raw, latKeys)
	lng, _ := firstNumber(raw, lngKeys)

	return models.Place{
		ID:          id,
		Name:        firstString(raw, nameKeys),
		Category:    firstString(raw, categoryKeys),
		Region:      firstString(raw, regionKeys),
		Lat:         lat,
		Lng:         lng,
		PhotoURL:    firstString(raw, photoKeys),
		Rating:      rating,
		ReviewCount: int(reviews),
		Description: firstString(raw, descKeys),
	}, nil
}

// NormalizeActivity maps one raw activity document to an Activity. The place
// id may sit on the activity itself or inside a nested place object.
func NormalizeActivity(raw map[string]any) (models.Activity, error) {
	activity := models.Activity{
		ID:        firstString(raw, activityIDKeys),
		Date:      firstString(raw, dateKeys),
		StartTime: NormalizeTime(firstString(raw, startKeys)),
		EndTime:   NormalizeTime(firstString(raw, endKeys)),
		Note:      firstString(raw, noteKeys),
	}

	// "id" on an activity names the activity, so only explicit place keys count here
	activity.PlaceID = firstString(raw, placeIDKeys[:len(placeIDKeys)-1])

	for _, key := range nestedPlaceKeys {
		nested, ok := raw[key].(map[string]any)
		if !ok {
			continue
		}
		place, err := NormalizePlace(nested)
		if err != nil {
			continue
		}
		if activity.PlaceID == "" {
			activity.PlaceID = place.ID
		}
		if place.ID == activity.PlaceID {
			activity.Place = &place
		}
		break
	}

	if activity.PlaceID == "" {
		return models.Activity{}, fmt.Errorf("activity %q place: %w", activity.ID, ErrMissingID)
	}
	return activity, nil
}

// NormalizeTime rewrites recognised clock times as HH:MM. Anything else is
// returned trimmed.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(strings.ReplaceAll(s, ".", ""))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Format("15:04")
		}
	}
	return s
}

// DecodePlaces parses a JSON array, a single object, or an object wrapping a
// list under a common key. Entries that cannot be normalized are skipped.
func DecodePlaces(data []byte) ([]models.Place, error) {
	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, err
	}

	places := lo.FilterMap(docs, func(doc map[string]any, i int) (models.Place, bool) {
		p, err := NormalizePlace(doc)
		if err != nil {
			log.Printf("[INGEST] Skipping place %d: %v", i, err)
			return models.Place{}, false
		}
		return p, true
	})
	return places, nil
}

// DecodeActivities parses activities the same way DecodePlaces does
func DecodeActivities(data []byte) ([]models.Activity, error) {
	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, err
	}

	activities := lo.FilterMap(docs, func(doc map[string]any, i int) (models.Activity, bool) {
		a, err := NormalizeActivity(doc)
		if err != nil {
			log.Printf("[INGEST] Skipping activity %d: %v", i, err)
			return models.Activity{}, false
		}
		return a, true
	})
	return activities, nil
}

func decodeDocuments(data []byte) ([]map[string]any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	switch v := value.(type) {
	case []any:
		return objects(v), nil
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return objects(list), nil
			}
		}
		return []map[string]any{v}, nil
	default:
		return nil, fmt.Errorf("expected a JSON object or array, got %T", value)
	}
}

func objects(list []any) []map[string]any {
	return lo.FilterMap(list, func(item any, _ int) (map[string]any, bool) {
		m, ok := item.(map[string]any)
		return m, ok
	})
}

func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := asString(raw[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(raw map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		if f, ok := asNumber(raw[key]); ok {
			return f, true
		}
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
