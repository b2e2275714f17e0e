package calendar

import (
	"slices"

	"github.com/samber/lo"

	"sharepath/internal/models"
)

// DayIndex maps each calendar day to the trips occupying it.
// It is derived on every read and never stored.
type DayIndex struct {
	Days  []DayKey                  `json:"days"`
	Trips map[DayKey][]*models.Trip `json:"trips"`
}

// TripsOn returns the trips occupying day, in input order
func (idx *DayIndex) TripsOn(day DayKey) []*models.Trip {
	return idx.Trips[day]
}

// BuildIndex indexes trips by the days they occupy.
// Each trip appears at most once per day; Days is sorted and unique.
func (c *Calendar) BuildIndex(trips []models.Trip) *DayIndex {
	idx := &DayIndex{
		Days:  []DayKey{},
		Trips: make(map[DayKey][]*models.Trip),
	}

	for i := range trips {
		trip := &trips[i]
		for _, day := range c.spanDays(trip.StartDate, trip.EndDate, trip.ActivityDates()) {
			if _, seen := idx.Trips[day]; !seen {
				idx.Days = append(idx.Days, day)
			}
			idx.Trips[day] = append(idx.Trips[day], trip)
		}
	}

	slices.Sort(idx.Days)
	return idx
}

// TripDays returns the sorted days a saved trip occupies
func (c *Calendar) TripDays(trip *models.Trip) []DayKey {
	return c.spanDays(trip.StartDate, trip.EndDate, trip.ActivityDates())
}

// DraftDays returns the sorted days a draft occupies
func (c *Calendar) DraftDays(draft *models.TripDraft) []DayKey {
	dates := lo.Map(draft.Activities, func(a models.Activity, _ int) string {
		return a.Date
	})
	return c.spanDays(draft.StartDate, draft.EndDate, dates)
}

// spanDays applies the occupancy rule: a usable start/end range occupies
// every day in it; otherwise only the days holding a parseable activity date count.
func (c *Calendar) spanDays(start, end string, activityDates []string) []DayKey {
	if start != "" && end != "" {
		if days := c.EachDayInclusive(start, end); len(days) > 0 {
			return days
		}
	}

	days := lo.Uniq(lo.FilterMap(activityDates, func(s string, _ int) (DayKey, bool) {
		return c.Parse(s)
	}))
	slices.Sort(days)
	return days
}
