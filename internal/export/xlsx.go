// Package export renders saved trips as spreadsheets and reads place
// catalogs back from them.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"sharepath/internal/calendar"
	"sharepath/internal/geo"
	"sharepath/internal/ingest"
	"sharepath/internal/models"
)

const (
	ItinerarySheet = "Itinerary"
	SummarySheet   = "Summary"
	unscheduled    = "unscheduled"
)

var itineraryHeader = []string{
	"Day", "Stop", "Start", "End", "Place", "Category", "Region", "Lat", "Lng", "Leg (km)", "Note",
}

// WriteItineraryXLSX writes trip as a workbook: one row per activity grouped
// by day, in visiting order, plus a summary sheet
func WriteItineraryXLSX(w io.Writer, trip *models.Trip, cal *calendar.Calendar) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ItinerarySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, ItinerarySheet, 1, toCells(itineraryHeader)); err != nil {
		return err
	}
	if err := f.SetRowStyle(ItinerarySheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	row := 2
	var totalKm float64
	for _, group := range groupByDay(cal, trip) {
		var prev *models.Activity
		for i := range group.activities {
			a := &group.activities[i]
			leg := ""
			if prev != nil && prev.HasCoords() && a.HasCoords() {
				km := geo.Haversine(prev.GetCoords(), a.GetCoords())
				totalKm += km
				leg = fmt.Sprintf("%.2f", km)
			}

			cells := []interface{}{group.day, i + 1, a.StartTime, a.EndTime, placeName(a), "", "", "", "", leg, a.Note}
			if a.Place != nil {
				cells[5] = a.Place.Category
				cells[6] = a.Place.Region
				if a.HasCoords() {
					cells[7] = a.Place.Lat
					cells[8] = a.Place.Lng
				}
			}
			if err := writeRow(f, ItinerarySheet, row, cells); err != nil {
				return err
			}
			row++
			prev = a
		}
		if len(group.activities) == 0 {
			if err := writeRow(f, ItinerarySheet, row, []interface{}{group.day}); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SetColWidth(ItinerarySheet, "A", "A", 12); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(ItinerarySheet, "E", "E", 32); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := writeSummary(f, trip, totalKm, headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadPlacesXLSX reads a place catalog from the first sheet of a workbook.
// The first row names the columns using any header ingest understands.
func ReadPlacesXLSX(r io.Reader) ([]models.Place, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return []models.Place{}, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	places := []models.Place{}
	for _, cells := range rows[1:] {
		raw := make(map[string]any, len(header))
		for i, value := range cells {
			if i < len(header) && header[i] != "" && value != "" {
				raw[header[i]] = value
			}
		}
		if len(raw) == 0 {
			continue
		}
		p, err := ingest.NormalizePlace(raw)
		if err != nil {
			continue
		}
		places = append(places, p)
	}
	return places, nil
}

type dayGroup struct {
	day        string
	activities []models.Activity
}

// groupByDay buckets activities by day in collection order. Every day of the
// trip's span gets a group, even when empty; unparseable dates go last.
func groupByDay(cal *calendar.Calendar, trip *models.Trip) []dayGroup {
	buckets := make(map[string][]models.Activity)
	for _, day := range cal.TripDays(trip) {
		buckets[string(day)] = nil
	}
	for _, a := range trip.Activities {
		key := unscheduled
		if day, ok := cal.Parse(a.Date); ok {
			key = string(day)
		}
		buckets[key] = append(buckets[key], a)
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		if day != unscheduled {
			days = append(days, day)
		}
	}
	slices.Sort(days)
	if _, ok := buckets[unscheduled]; ok {
		days = append(days, unscheduled)
	}

	groups := make([]dayGroup, len(days))
	for i, day := range days {
		groups[i] = dayGroup{day: day, activities: buckets[day]}
	}
	return groups
}

func writeSummary(f *excelize.File, trip *models.Trip, totalKm float64, headerStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Title", trip.Title},
		{"Start", trip.StartDate},
		{"End", trip.EndDate},
		{"Regions", strings.Join(trip.Regions, ", ")},
		{"Companions", strings.Join(trip.Companions, ", ")},
		{"Visibility", string(trip.Visibility)},
		{"Activities", len(trip.Activities)},
		{"Distance (km)", fmt.Sprintf("%.2f", totalKm)},
	}
	for i, cells := range rows {
		if err := writeRow(f, SummarySheet, i+1, cells); err != nil {
			return err
		}
	}
	if err := f.SetColStyle(SummarySheet, "A", headerStyle); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	return f.SetColWidth(SummarySheet, "A", "B", 18)
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	for col, value := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to address cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func placeName(a *models.Activity) string {
	if a.Place != nil && a.Place.Name != "" {
		return a.Place.Name
	}
	return a.PlaceID
}
