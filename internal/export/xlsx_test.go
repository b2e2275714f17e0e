package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sharepath/internal/calendar"
	"sharepath/internal/models"
)

func exportTrip() *models.Trip {
	place := func(id, name string, lat, lng float64) *models.Place {
		return &models.Place{ID: id, Name: name, Category: "sight", Region: "Oaxaca", Lat: lat, Lng: lng}
	}
	return &models.Trip{
		ID:         1,
		Title:      "Oaxaca",
		Regions:    []string{"Oaxaca", "Puebla"},
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-03",
		Visibility: models.VisibilityPublic,
		Activities: []models.Activity{
			{ID: "a", PlaceID: "mitla", Place: place("mitla", "Mitla", 16.92, -96.36), Date: "2025-03-02"},
			{ID: "b", PlaceID: "tule", Place: place("tule", "Tule", 17.0, -96.7), Date: "2025-03-01", StartTime: "09:00"},
			{ID: "c", PlaceID: "zocalo", Place: place("zocalo", "Zocalo", 17.0, -96.6), Date: "2025-03-01T13:00:00", Note: "lunch"},
			{ID: "d", PlaceID: "later", Date: "soon"},
		},
	}
}

func TestWriteItineraryXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItineraryXLSX(&buf, exportTrip(), calendar.New(time.UTC)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ItinerarySheet, SummarySheet}, f.GetSheetList())

	cell := func(axis string) string {
		v, err := f.GetCellValue(ItinerarySheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Day", cell("A1"))
	assert.Equal(t, "Leg (km)", cell("J1"))

	// 2025-03-01 keeps visiting order b, c
	assert.Equal(t, "2025-03-01", cell("A2"))
	assert.Equal(t, "1", cell("B2"))
	assert.Equal(t, "Tule", cell("E2"))
	assert.Empty(t, cell("J2"))
	assert.Equal(t, "Zocalo", cell("E3"))
	assert.Equal(t, "2", cell("B3"))
	assert.NotEmpty(t, cell("J3"))
	assert.Equal(t, "lunch", cell("K3"))

	assert.Equal(t, "2025-03-02", cell("A4"))
	assert.Equal(t, "Mitla", cell("E4"))

	// Empty day in range still shows up
	assert.Equal(t, "2025-03-03", cell("A5"))
	assert.Empty(t, cell("E5"))

	assert.Equal(t, "unscheduled", cell("A6"))
	assert.Equal(t, "later", cell("E6"))

	title, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Oaxaca", title)
	regions, err := f.GetCellValue(SummarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Oaxaca, Puebla", regions)
}

func TestGroupByDayUnrangedTrip(t *testing.T) {
	trip := &models.Trip{Activities: []models.Activity{
		{ID: "x", Date: "2025-05-02"},
		{ID: "y", Date: "2025-05-01"},
		{ID: "z", Date: "2025-05-02"},
	}}

	groups := groupByDay(calendar.New(time.UTC), trip)

	require.Len(t, groups, 2)
	assert.Equal(t, "2025-05-01", groups[0].day)
	assert.Equal(t, "2025-05-02", groups[1].day)
	require.Len(t, groups[1].activities, 2)
	assert.Equal(t, "x", groups[1].activities[0].ID)
	assert.Equal(t, "z", groups[1].activities[1].ID)
}

func TestReadPlacesXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"lugar_id", "nombre", "categoria", "latitud", "longitud"},
		{"mitla", "Mitla", "ruinas", 16.92, -96.36},
		{"", "No id", "x", 1, 2},
		{},
		{"tule", "Tule", "naturaleza", "17.0465", "-96.6361"},
	}
	for i, cells := range rows {
		require.NoError(t, writeRow(f, "Sheet1", i+1, cells))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	f.Close()

	places, err := ReadPlacesXLSX(&buf)
	require.NoError(t, err)

	require.Len(t, places, 2)
	assert.Equal(t, "mitla", places[0].ID)
	assert.Equal(t, "Mitla", places[0].Name)
	assert.InDelta(t, 16.92, places[0].Lat, 1e-9)
	assert.Equal(t, "tule", places[1].ID)
	assert.InDelta(t, -96.6361, places[1].Lng, 1e-9)
}

func TestReadPlacesXLSXInvalid(t *testing.T) {
	_, err := ReadPlacesXLSX(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}
