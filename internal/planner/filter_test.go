package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharepath/internal/calendar"
	"sharepath/internal/models"
	"sharepath/internal/testutil"
)

func TestFilterDayOrdersByStartTime(t *testing.T) {
	cal := calendar.New(time.UTC)
	activities := []models.Activity{
		{ID: "0", Date: "2025-04-01", StartTime: "10:00"},
		{ID: "1", Date: "2025-04-01", StartTime: "08:30"},
		{ID: "2", Date: "2025-04-01", StartTime: ""},
		{ID: "3", Date: "2025-04-01", StartTime: "08:30"},
	}

	out := FilterDay(cal, activities, "2025-04-01")

	assert.Equal(t, []string{"2", "1", "3", "0"}, testutil.ActivityIDs(out))
	assert.Equal(t, []string{"0", "1", "2", "3"}, testutil.ActivityIDs(activities))
}

func TestFilterDaySelectsOnlyThatDay(t *testing.T) {
	cal := calendar.New(time.UTC)
	activities := []models.Activity{
		{ID: "a", Date: "2025-04-01T21:00:00"},
		{ID: "b", Date: "2025-04-02"},
		{ID: "c", Date: "not a date"},
		{ID: "d", Date: ""},
		{ID: "e", Date: "2025-04-01 07:15"},
	}

	out := FilterDay(cal, activities, "2025-04-01")

	assert.ElementsMatch(t, []string{"a", "e"}, testutil.ActivityIDs(out))
}

func TestFilterDayReturnsCopies(t *testing.T) {
	cal := calendar.New(time.UTC)
	activities := []models.Activity{testutil.NewActivity("a", "2025-04-01", 1, 2)}

	out := FilterDay(cal, activities, "2025-04-01")
	require.Len(t, out, 1)

	out[0].Note = "changed"
	out[0].Place.Name = "changed"
	assert.Empty(t, activities[0].Note)
	assert.Equal(t, "Place p-a", activities[0].Place.Name)
}

func TestFilterDayZonedTimestamp(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	cal := calendar.New(loc)
	activities := []models.Activity{
		{ID: "late", Date: "2025-04-02T03:00:00Z"},
	}

	assert.Len(t, FilterDay(cal, activities, "2025-04-01"), 1)
	assert.Empty(t, FilterDay(cal, activities, "2025-04-02"))
}

func TestFilterDayEmpty(t *testing.T) {
	assert.Empty(t, FilterDay(calendar.New(time.UTC), nil, "2025-04-01"))
}

func TestDayStopsKeepsVisitingOrder(t *testing.T) {
	cal := calendar.New(time.UTC)
	activities := []models.Activity{
		{ID: "late", Date: "2025-04-01", StartTime: "18:00"},
		{ID: "other", Date: "2025-04-02"},
		{ID: "early", Date: "2025-04-01", StartTime: "08:00"},
	}

	assert.Equal(t, []string{"late", "early"}, testutil.ActivityIDs(DayStops(cal, activities, "2025-04-01")))
	assert.Equal(t, []string{"early", "late"}, testutil.ActivityIDs(FilterDay(cal, activities, "2025-04-01")))
}
