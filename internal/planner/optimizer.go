package planner

import (
	"log"

	"sharepath/internal/calendar"
	"sharepath/internal/geo"
	"sharepath/internal/models"
)

// MinStopsToOptimize is the smallest day the optimizer will reorder.
// With fewer stops every order is already as short as it gets.
const MinStopsToOptimize = 3

// Optimizer orders the stops of a single day
type Optimizer interface {
	Order(stops []models.Activity) ([]models.Activity, error)
}

// GreedyOptimizer orders stops with the nearest-neighbor heuristic: the first
// stop stays first, then the closest unplaced stop is appended until none
// remain. It runs in O(n^2) and does not guarantee the shortest path.
type GreedyOptimizer struct {
	dist geo.DistanceFunc
}

// NewGreedyOptimizer creates a nearest-neighbor optimizer. A nil dist uses
// great-circle distance.
func NewGreedyOptimizer(dist geo.DistanceFunc) *GreedyOptimizer {
	if dist == nil {
		dist = geo.Haversine
	}
	return &GreedyOptimizer{dist: dist}
}

// Distance measures the gap between two points with the optimizer's metric
func (o *GreedyOptimizer) Distance(a, b models.Coordinates) float64 {
	return o.dist(a, b)
}

// Order returns a reordered copy of stops. Fewer than MinStopsToOptimize stops
// come back unchanged.
func (o *GreedyOptimizer) Order(stops []models.Activity) ([]models.Activity, error) {
	candidates := models.CopyActivities(stops)
	if len(candidates) < MinStopsToOptimize {
		return candidates, nil
	}

	for i := range candidates {
		if !candidates[i].HasCoords() {
			return nil, &ErrMissingCoordinates{Day: candidates[i].Date, ActivityID: candidates[i].ID}
		}
	}

	placed := make([]bool, len(candidates))
	ordered := make([]models.Activity, 0, len(candidates))

	ordered = append(ordered, candidates[0])
	placed[0] = true
	current := candidates[0].GetCoords()

	for len(ordered) < len(candidates) {
		next := o.findNearest(current, candidates, placed)
		if next < 0 {
			break
		}
		ordered = append(ordered, candidates[next])
		placed[next] = true
		current = candidates[next].GetCoords()
	}

	return ordered, nil
}

// findNearest returns the index of the closest unplaced stop. Only a strictly
// smaller distance replaces the current best, so the earliest stop wins ties.
func (o *GreedyOptimizer) findNearest(current models.Coordinates, stops []models.Activity, placed []bool) int {
	nearest := -1
	minDistance := -1.0

	for i := range stops {
		if placed[i] {
			continue
		}
		d := o.dist(current, stops[i].GetCoords())
		if minDistance < 0 || d < minDistance {
			minDistance = d
			nearest = i
		}
	}

	return nearest
}

// OptimizeDay reorders the activities falling on day and returns the whole
// collection. The day's new order is written back into the positions its
// activities already held, so every other activity keeps its index.
// The input is never modified.
func (o *GreedyOptimizer) OptimizeDay(cal *calendar.Calendar, activities []models.Activity, day calendar.DayKey) ([]models.Activity, error) {
	out := models.CopyActivities(activities)

	var slots []int
	for i := range out {
		if isOnDay(cal, out[i], day) {
			slots = append(slots, i)
		}
	}

	if len(slots) < MinStopsToOptimize {
		log.Printf("[PLANNER] Skipping optimization: day=%s stops=%d", day, len(slots))
		return out, nil
	}

	stops := make([]models.Activity, len(slots))
	for j, i := range slots {
		stops[j] = out[i]
	}

	ordered, err := o.Order(stops)
	if err != nil {
		if mc, ok := err.(*ErrMissingCoordinates); ok {
			mc.Day = string(day)
		}
		return nil, err
	}

	for j, i := range slots {
		out[i] = ordered[j]
	}

	log.Printf("[PLANNER] Optimized day=%s stops=%d distance_before=%.2fkm distance_after=%.2fkm",
		day, len(stops), o.pathLength(stops), o.pathLength(ordered))
	return out, nil
}

// Summarize describes the path through stops in their given order.
// Stops without coordinates contribute no legs.
func (o *GreedyOptimizer) Summarize(day calendar.DayKey, stops []models.Activity) models.RouteSummary {
	summary := models.RouteSummary{
		Day:   string(day),
		Stops: len(stops),
		Legs:  []models.RouteLeg{},
	}

	for i := 1; i < len(stops); i++ {
		prev, next := &stops[i-1], &stops[i]
		if !prev.HasCoords() || !next.HasCoords() {
			continue
		}
		d := o.dist(prev.GetCoords(), next.GetCoords())
		summary.Legs = append(summary.Legs, models.RouteLeg{
			FromActivityID: prev.ID,
			ToActivityID:   next.ID,
			DistanceKm:     d,
		})
		summary.DistanceKm += d
	}

	return summary
}

func (o *GreedyOptimizer) pathLength(stops []models.Activity) float64 {
	return o.Summarize("", stops).DistanceKm
}
