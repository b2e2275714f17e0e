package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharepath/internal/models"
)

func TestHaversineIdentity(t *testing.T) {
	p := models.Coordinates{Lat: 19.4326, Lng: -99.1332}

	assert.Equal(t, 0.0, Haversine(p, p))
}

func TestHaversineSymmetry(t *testing.T) {
	pairs := [][2]models.Coordinates{
		{{Lat: 0, Lng: 0}, {Lat: 10, Lng: 10}},
		{{Lat: 19.4326, Lng: -99.1332}, {Lat: 17.0732, Lng: -96.7266}},
		{{Lat: -33.8688, Lng: 151.2093}, {Lat: 51.5074, Lng: -0.1278}},
		{{Lat: 45, Lng: 179.9}, {Lat: 45, Lng: -179.9}},
	}

	for _, pair := range pairs {
		assert.Equal(t, Haversine(pair[0], pair[1]), Haversine(pair[1], pair[0]))
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	// One degree of latitude on a 6371 km sphere
	oneDegree := Haversine(models.Coordinates{Lat: 0, Lng: 0}, models.Coordinates{Lat: 1, Lng: 0})
	assert.InDelta(t, 111.195, oneDegree, 0.001)

	// Mexico City to Oaxaca City
	d := Haversine(models.Coordinates{Lat: 19.4326, Lng: -99.1332}, models.Coordinates{Lat: 17.0732, Lng: -96.7266})
	assert.InDelta(t, 365.24, d, 0.05)

	// Antipodal points are half the circumference apart
	half := Haversine(models.Coordinates{Lat: 0, Lng: 0}, models.Coordinates{Lat: 0, Lng: 180})
	assert.InDelta(t, 20015.09, half, 0.01)
}

func TestHaversineNonNegative(t *testing.T) {
	points := []models.Coordinates{
		{Lat: -90, Lng: 0}, {Lat: 90, Lng: 0}, {Lat: 12.3, Lng: -45.6}, {Lat: 0.000001, Lng: 0},
	}
	for _, a := range points {
		for _, b := range points {
			assert.GreaterOrEqual(t, Haversine(a, b), 0.0)
		}
	}
}

func TestNearby(t *testing.T) {
	origin := models.Coordinates{Lat: 19.4326, Lng: -99.1332}
	places := []models.Place{
		{ID: "self", Lat: 19.4326, Lng: -99.1332},
		{ID: "far", Lat: 17.0732, Lng: -96.7266},
		{ID: "mid", Lat: 19.50, Lng: -99.13},
		{ID: "near", Lat: 19.44, Lng: -99.13},
		{ID: "null-island"},
	}

	got := Nearby(Haversine, origin, places, "self", 50, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Place.ID)
	assert.Equal(t, "mid", got[1].Place.ID)
	assert.Less(t, got[0].DistanceKm, got[1].DistanceKm)

	limited := Nearby(Haversine, origin, places, "self", 1000, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "near", limited[0].Place.ID)
}

func TestNearbyEmpty(t *testing.T) {
	got := Nearby(Haversine, models.Coordinates{}, nil, "", 10, 5)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
