package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"sharepath/internal/calendar"
	"sharepath/internal/ingest"
	"sharepath/internal/models"
)

// Action is one edit of a trip draft
type Action interface {
	Type() string
	apply(r *Reducer, d *models.TripDraft) error
}

// Reducer applies actions to drafts without mutating them
type Reducer struct {
	Calendar  *calendar.Calendar
	Optimizer *GreedyOptimizer
	NewID     func() string
	Now       func() time.Time
}

// NewReducer creates a reducer using random UUIDs and the wall clock
func NewReducer(cal *calendar.Calendar, optimizer *GreedyOptimizer) *Reducer {
	return &Reducer{
		Calendar:  cal,
		Optimizer: optimizer,
		NewID:     uuid.NewString,
		Now:       time.Now,
	}
}

// NewDraft returns an empty draft with a fresh id
func (r *Reducer) NewDraft() models.TripDraft {
	now := r.Now()
	return models.TripDraft{
		ID:         r.NewID(),
		Regions:    []string{},
		Visibility: models.VisibilityPrivate,
		Companions: []string{},
		Activities: []models.Activity{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Reduce returns the draft produced by applying action to draft.
// On error the original draft is returned untouched.
func (r *Reducer) Reduce(draft models.TripDraft, action Action) (models.TripDraft, error) {
	next := draft.Clone()
	if err := action.apply(r, &next); err != nil {
		return draft, err
	}
	next.UpdatedAt = r.Now()
	return next, nil
}

// SetDetails edits draft metadata. Nil fields are left unchanged.
type SetDetails struct {
	Title      *string  `json:"title,omitempty"`
	Regions    []string `json:"regions,omitempty"`
	StartDate  *string  `json:"start_date,omitempty"`
	EndDate    *string  `json:"end_date,omitempty"`
	Visibility *string  `json:"visibility,omitempty"`
	Companions []string `json:"companions,omitempty"`
}

func (SetDetails) Type() string { return "set_details" }

func (a SetDetails) apply(r *Reducer, d *models.TripDraft) error {
	if a.Title != nil {
		d.Title = strings.TrimSpace(*a.Title)
	}
	if a.Regions != nil {
		d.Regions = cleanList(a.Regions)
	}
	if a.Companions != nil {
		d.Companions = cleanList(a.Companions)
	}
	if a.Visibility != nil {
		v, err := models.ParseVisibility(*a.Visibility)
		if err != nil {
			return &ErrInvalidAction{Action: a.Type(), Reason: err.Error()}
		}
		d.Visibility = v
	}
	if a.StartDate != nil {
		start, err := r.optionalDate(a.Type(), "start_date", *a.StartDate)
		if err != nil {
			return err
		}
		d.StartDate = start
	}
	if a.EndDate != nil {
		end, err := r.optionalDate(a.Type(), "end_date", *a.EndDate)
		if err != nil {
			return err
		}
		d.EndDate = end
	}
	if d.StartDate != "" && d.EndDate != "" && d.EndDate < d.StartDate {
		return &ErrInvalidAction{Action: a.Type(), Reason: "end_date is before start_date"}
	}
	return nil
}

// AddActivity schedules a place on a day. The activity is appended unless
// Position is given.
type AddActivity struct {
	ID        string        `json:"id,omitempty"`
	PlaceID   string        `json:"place_id,omitempty"`
	Place     *models.Place `json:"place,omitempty"`
	Date      string        `json:"date"`
	StartTime string        `json:"start_time,omitempty"`
	EndTime   string        `json:"end_time,omitempty"`
	Note      string        `json:"note,omitempty"`
	Position  *int          `json:"position,omitempty"`
}

func (AddActivity) Type() string { return "add_activity" }

func (a AddActivity) apply(r *Reducer, d *models.TripDraft) error {
	placeID := a.PlaceID
	if placeID == "" && a.Place != nil {
		placeID = a.Place.ID
	}
	if placeID == "" {
		return &ErrInvalidAction{Action: a.Type(), Reason: "place_id is required"}
	}

	day, ok := r.Calendar.Parse(a.Date)
	if !ok {
		return &ErrInvalidAction{Action: a.Type(), Reason: fmt.Sprintf("invalid date %q", a.Date)}
	}

	id := a.ID
	if id == "" {
		id = r.NewID()
	}
	if indexOfActivity(d.Activities, id) >= 0 {
		return &ErrInvalidAction{Action: a.Type(), Reason: fmt.Sprintf("activity %s already exists", id)}
	}

	activity := models.Activity{
		ID:        id,
		PlaceID:   placeID,
		Date:      string(day),
		StartTime: ingest.NormalizeTime(a.StartTime),
		EndTime:   ingest.NormalizeTime(a.EndTime),
		Note:      strings.TrimSpace(a.Note),
	}
	if a.Place != nil {
		p := *a.Place
		p.ID = placeID
		activity.Place = &p
	}

	pos := len(d.Activities)
	if a.Position != nil {
		pos = clamp(*a.Position, 0, len(d.Activities))
	}
	d.Activities = insertAt(d.Activities, pos, activity)
	return nil
}

// NewAddActivity builds the action that schedules an already normalized activity
func NewAddActivity(a models.Activity) AddActivity {
	return AddActivity{
		ID:        a.ID,
		PlaceID:   a.PlaceID,
		Place:     a.Place,
		Date:      a.Date,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Note:      a.Note,
	}
}

// withFallbacks fills fields the canonical names left empty from the same
// document read with upstream field names
func (a AddActivity) withFallbacks(upstream models.Activity) AddActivity {
	if a.ID == "" {
		a.ID = upstream.ID
	}
	if a.PlaceID == "" {
		a.PlaceID = upstream.PlaceID
	}
	if a.Place == nil {
		a.Place = upstream.Place
	}
	if a.Date == "" {
		a.Date = upstream.Date
	}
	if a.StartTime == "" {
		a.StartTime = upstream.StartTime
	}
	if a.EndTime == "" {
		a.EndTime = upstream.EndTime
	}
	if a.Note == "" {
		a.Note = upstream.Note
	}
	return a
}

// AddActivities schedules several activities at once. Either all of them are
// added or none is.
type AddActivities struct {
	Activities []AddActivity `json:"activities"`
}

// NewAddActivities builds one action scheduling every normalized activity
func NewAddActivities(activities []models.Activity) AddActivities {
	return AddActivities{Activities: lo.Map(activities, func(a models.Activity, _ int) AddActivity {
		return NewAddActivity(a)
	})}
}

func (AddActivities) Type() string { return "add_activities" }

func (a AddActivities) apply(r *Reducer, d *models.TripDraft) error {
	if len(a.Activities) == 0 {
		return &ErrInvalidAction{Action: a.Type(), Reason: "no activities to add"}
	}
	for _, add := range a.Activities {
		if err := add.apply(r, d); err != nil {
			return err
		}
	}
	return nil
}

// UpdateActivity edits one activity. Nil fields are left unchanged.
type UpdateActivity struct {
	ID        string  `json:"id"`
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Note      *string `json:"note,omitempty"`
}

func (UpdateActivity) Type() string { return "update_activity" }

func (a UpdateActivity) apply(r *Reducer, d *models.TripDraft) error {
	i := indexOfActivity(d.Activities, a.ID)
	if i < 0 {
		return &ErrInvalidAction{Action: a.Type(), Reason: fmt.Sprintf("activity %s not found", a.ID)}
	}

	activity := &d.Activities[i]
	if a.Date != nil {
		day, ok := r.Calendar.Parse(*a.Date)
		if !ok {
			return &ErrInvalidAction{Action: a.Type(), Reason: fmt.Sprintf("invalid date %q", *a.Date)}
		}
		activity.Date = string(day)
	}
	if a.StartTime != nil {
		activity.StartTime = ingest.NormalizeTime(*a.StartTime)
	}
	if a.EndTime != nil {
		activity.EndTime = ingest.NormalizeTime(*a.EndTime)
	}
	if a.Note != nil {
		activity.Note = strings.TrimSpace(*a.Note)
	}
	return nil
}

// RemoveActivity drops one activity from the plan
type RemoveActivity struct {
	ID string `json:"id"`
}

func (RemoveActivity) Type() string { return "remove_activity" }

func (a RemoveActivity) apply(_ *Reducer, d *models.TripDraft) error {
	i := indexOfActivity(d.Activities, a.ID)
	if i < 0 {
		return &ErrInvalidAction{Action: a.Type(), Reason: fmt.Sprintf("activity %s not found", a.ID)}
	}
	d.Activities = append(d.Activities[:i], d.Activities[i+1:]...)
	return nil
}

// MoveActivity moves one activity to a new position in the collection
type MoveActivity struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

func (MoveActivity) Type() string { return "move_activity" }

func (a MoveActivity) apply(_ *Reducer, d *models.TripDraft) error {
	i := indexOfActivity(d.Activities, a.ID)
	if i < 0 {
		return &ErrInvalidAction{Action: a.Type(), Reason: fmt.Sprintf("activity %s not found", a.ID)}
	}
	activity := d.Activities[i]
	rest := append(d.Activities[:i], d.Activities[i+1:]...)
	d.Activities = insertAt(rest, clamp(a.Position, 0, len(rest)), activity)
	return nil
}

// OptimizeDay reorders one day with the greedy optimizer
type OptimizeDay struct {
	Day string `json:"day"`
}

func (OptimizeDay) Type() string { return "optimize_day" }

func (a OptimizeDay) apply(r *Reducer, d *models.TripDraft) error {
	day, ok := r.Calendar.Parse(a.Day)
	if !ok {
		return &ErrInvalidAction{Action: a.Type(), Reason: fmt.Sprintf("invalid day %q", a.Day)}
	}
	activities, err := r.Optimizer.OptimizeDay(r.Calendar, d.Activities, day)
	if err != nil {
		return err
	}
	d.Activities = activities
	return nil
}

// Reset clears everything but the draft's identity
type Reset struct{}

func (Reset) Type() string { return "reset" }

func (Reset) apply(r *Reducer, d *models.TripDraft) error {
	fresh := r.NewDraft()
	fresh.ID = d.ID
	fresh.TripID = d.TripID
	fresh.CreatedAt = d.CreatedAt
	*d = fresh
	return nil
}

// DecodeAction parses a {"type": "...", ...} document into an action
func DecodeAction(data []byte) (Action, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}

	switch envelope.Type {
	case SetDetails{}.Type():
		return decodeAction[SetDetails](data)
	case AddActivity{}.Type():
		return decodeAddActivity(data)
	case AddActivities{}.Type():
		return decodeAddActivities(data)
	case UpdateActivity{}.Type():
		return decodeAction[UpdateActivity](data)
	case RemoveActivity{}.Type():
		return decodeAction[RemoveActivity](data)
	case MoveActivity{}.Type():
		return decodeAction[MoveActivity](data)
	case OptimizeDay{}.Type():
		return decodeAction[OptimizeDay](data)
	case Reset{}.Type():
		return Reset{}, nil
	case "":
		return nil, fmt.Errorf("action type is required")
	default:
		return nil, fmt.Errorf("unknown action type %q", envelope.Type)
	}
}

func decodeAction[T Action](data []byte) (Action, error) {
	var action T
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("failed to decode %s action: %w", action.Type(), err)
	}
	return action, nil
}

// decodeAddActivity also accepts the field names upstream activity feeds use,
// such as lugarId, fecha or hora_inicio
func decodeAddActivity(data []byte) (Action, error) {
	var action AddActivity
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("failed to decode %s action: %w", action.Type(), err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s action: %w", action.Type(), err)
	}
	// Without any place id the reducer reports the missing field
	if upstream, err := ingest.NormalizeActivity(raw); err == nil {
		action = action.withFallbacks(upstream)
	}
	return action, nil
}

func decodeAddActivities(data []byte) (Action, error) {
	var envelope struct {
		Activities json.RawMessage `json:"activities"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode add_activities action: %w", err)
	}
	if len(envelope.Activities) == 0 {
		return nil, fmt.Errorf("add_activities action needs activities")
	}
	activities, err := ingest.DecodeActivities(envelope.Activities)
	if err != nil {
		return nil, fmt.Errorf("failed to decode add_activities action: %w", err)
	}
	return NewAddActivities(activities), nil
}

func (r *Reducer) optionalDate(action, field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	day, ok := r.Calendar.Parse(value)
	if !ok {
		return "", &ErrInvalidAction{Action: action, Reason: fmt.Sprintf("invalid %s %q", field, value)}
	}
	return string(day), nil
}

func cleanList(values []string) []string {
	trimmed := lo.Map(values, func(v string, _ int) string {
		return strings.TrimSpace(v)
	})
	return lo.Uniq(lo.Compact(trimmed))
}

func indexOfActivity(activities []models.Activity, id string) int {
	for i := range activities {
		if activities[i].ID == id {
			return i
		}
	}
	return -1
}

func insertAt(activities []models.Activity, pos int, a models.Activity) []models.Activity {
	activities = append(activities, models.Activity{})
	copy(activities[pos+1:], activities[pos:])
	activities[pos] = a
	return activities
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
