package geo

import (
	"sort"

	"github.com/golang/geo/s2"

	"sharepath/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// DistanceFunc returns the distance in kilometers between two points
type DistanceFunc func(a, b models.Coordinates) float64

// Haversine returns the great-circle distance between a and b in kilometers.
// It is symmetric, zero for identical points and never negative.
func Haversine(a, b models.Coordinates) float64 {
	// Evaluate in a fixed argument order so d(a,b) and d(b,a) are bit-identical.
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Lng < a.Lng) {
		a, b = b, a
	}
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Suggestion is a place near some origin
type Suggestion struct {
	Place      models.Place `json:"place"`
	DistanceKm float64      `json:"distance_km"`
}

// Nearby returns the places within radiusKm of origin, closest first.
// The place with excludeID is skipped.
// limit <= 0 means no limit.
func Nearby(dist DistanceFunc, origin models.Coordinates, places []models.Place, excludeID string, radiusKm float64, limit int) []Suggestion {
	suggestions := []Suggestion{}
	for i := range places {
		p := &places[i]
		if p.ID == excludeID {
			continue
		}
		d := dist(origin, p.GetCoords())
		if d > radiusKm {
			continue
		}
		suggestions = append(suggestions, Suggestion{Place: *p, DistanceKm: d})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].DistanceKm < suggestions[j].DistanceKm
	})

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
