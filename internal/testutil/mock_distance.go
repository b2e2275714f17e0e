package testutil

import (
	"fmt"
	"math"

	"sharepath/internal/models"
)

// DistanceCall tracks a call to the distance function
type DistanceCall struct {
	Origin models.Coordinates
	Dest   models.Coordinates
}

// MockDistance is a deterministic stand-in for great-circle distance.
// It returns scaled Euclidean distance in degrees unless an override is set.
type MockDistance struct {
	ScaleFactor float64
	Overrides   map[string]float64
	Calls       []DistanceCall
}

func NewMockDistance() *MockDistance {
	return &MockDistance{
		ScaleFactor: 111, // 1 degree ≈ 111km
		Overrides:   make(map[string]float64),
		Calls:       []DistanceCall{},
	}
}

func (m *MockDistance) makeKey(origin, dest models.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f", origin.Lat, origin.Lng, dest.Lat, dest.Lng)
}

// SetDistance sets a custom distance for a specific origin-destination pair
func (m *MockDistance) SetDistance(origin, dest models.Coordinates, km float64) {
	m.Overrides[m.makeKey(origin, dest)] = km
}

// Distance matches geo.DistanceFunc
func (m *MockDistance) Distance(origin, dest models.Coordinates) float64 {
	m.Calls = append(m.Calls, DistanceCall{Origin: origin, Dest: dest})

	if km, ok := m.Overrides[m.makeKey(origin, dest)]; ok {
		return km
	}

	dLat := dest.Lat - origin.Lat
	dLng := dest.Lng - origin.Lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * m.ScaleFactor
}

// ResetCalls clears the recorded calls
func (m *MockDistance) ResetCalls() {
	m.Calls = []DistanceCall{}
}
