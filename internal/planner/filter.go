package planner

import (
	"sort"

	"github.com/samber/lo"

	"sharepath/internal/calendar"
	"sharepath/internal/models"
)

// FilterDay returns copies of the activities falling on day, ordered by start
// time. Activities without a start time come first and ties keep their
// original relative order. The input slice is never modified.
func FilterDay(cal *calendar.Calendar, activities []models.Activity, day calendar.DayKey) []models.Activity {
	onDay := lo.Filter(activities, func(a models.Activity, _ int) bool {
		return isOnDay(cal, a, day)
	})

	out := models.CopyActivities(onDay)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func isOnDay(cal *calendar.Calendar, a models.Activity, day calendar.DayKey) bool {
	key, ok := cal.Parse(a.Date)
	return ok && key == day
}

// DayStops returns copies of the activities falling on day in visiting
// order, which is their order in the collection
func DayStops(cal *calendar.Calendar, activities []models.Activity, day calendar.DayKey) []models.Activity {
	return models.CopyActivities(lo.Filter(activities, func(a models.Activity, _ int) bool {
		return isOnDay(cal, a, day)
	}))
}
