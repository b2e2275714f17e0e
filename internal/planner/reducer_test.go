package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharepath/internal/calendar"
	"sharepath/internal/models"
	"sharepath/internal/testutil"
)

func newTestReducer() *Reducer {
	r := NewReducer(calendar.New(time.UTC), NewGreedyOptimizer(testutil.NewMockDistance().Distance))
	n := 0
	r.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return r
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func mustReduce(t *testing.T, r *Reducer, d models.TripDraft, actions ...Action) models.TripDraft {
	t.Helper()
	for _, a := range actions {
		var err error
		d, err = r.Reduce(d, a)
		require.NoError(t, err, "action %s", a.Type())
	}
	return d
}

func TestNewDraft(t *testing.T) {
	r := newTestReducer()
	d := r.NewDraft()

	assert.Equal(t, "id-1", d.ID)
	assert.Equal(t, models.VisibilityPrivate, d.Visibility)
	assert.NotNil(t, d.Activities)
	assert.Equal(t, d.CreatedAt, d.UpdatedAt)
}

func TestSetDetails(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(), SetDetails{
		Title:      strPtr("  Oaxaca long weekend "),
		Regions:    []string{"Oaxaca", " Oaxaca", "", "Puebla"},
		StartDate:  strPtr("2025-03-01"),
		EndDate:    strPtr("2025-03-03T10:00:00"),
		Visibility: strPtr("Friends"),
		Companions: []string{"Ana", "Luis"},
	})

	assert.Equal(t, "Oaxaca long weekend", d.Title)
	assert.Equal(t, []string{"Oaxaca", "Puebla"}, d.Regions)
	assert.Equal(t, "2025-03-01", d.StartDate)
	assert.Equal(t, "2025-03-03", d.EndDate)
	assert.Equal(t, models.VisibilityFriends, d.Visibility)
	assert.Equal(t, []string{"Ana", "Luis"}, d.Companions)
}

func TestSetDetailsRejectsInvertedRange(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(), SetDetails{StartDate: strPtr("2025-03-05")})

	out, err := r.Reduce(d, SetDetails{EndDate: strPtr("2025-03-01")})
	require.Error(t, err)

	var invalid *ErrInvalidAction
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "set_details", invalid.Action)
	assert.Equal(t, d, out)
}

func TestSetDetailsRejectsUnknownVisibility(t *testing.T) {
	r := newTestReducer()
	_, err := r.Reduce(r.NewDraft(), SetDetails{Visibility: strPtr("everyone")})
	assert.Error(t, err)
}

func TestSetDetailsClearsDate(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(),
		SetDetails{StartDate: strPtr("2025-03-05"), EndDate: strPtr("2025-03-06")},
		SetDetails{StartDate: strPtr(""), EndDate: strPtr("")},
	)
	assert.Empty(t, d.StartDate)
	assert.Empty(t, d.EndDate)
}

func TestAddActivity(t *testing.T) {
	r := newTestReducer()
	place := testutil.NewPlace("mitla", 16.92, -96.36)

	d := mustReduce(t, r, r.NewDraft(),
		AddActivity{Place: place, Date: "2025-03-01T09:00:00", StartTime: " 09:00 ", Note: "ruins"},
		AddActivity{PlaceID: "tule", Date: "2025-03-01"},
		AddActivity{PlaceID: "zocalo", Date: "2025-03-01", Position: intPtr(0)},
	)

	require.Len(t, d.Activities, 3)
	assert.Equal(t, []string{"zocalo", "mitla", "tule"}, []string{
		d.Activities[0].PlaceID, d.Activities[1].PlaceID, d.Activities[2].PlaceID,
	})
	first := d.Activities[1]
	assert.Equal(t, "id-2", first.ID)
	assert.Equal(t, "2025-03-01", first.Date)
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "ruins", first.Note)
	require.NotNil(t, first.Place)
	assert.NotSame(t, place, first.Place)
}

func TestAddActivityValidation(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(), AddActivity{ID: "a1", PlaceID: "p", Date: "2025-03-01"})

	tests := []struct {
		name   string
		action AddActivity
	}{
		{"missing place", AddActivity{Date: "2025-03-01"}},
		{"bad date", AddActivity{PlaceID: "p", Date: "March first"}},
		{"duplicate id", AddActivity{ID: "a1", PlaceID: "p", Date: "2025-03-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Reduce(d, tt.action)
			require.Error(t, err)
			assert.Equal(t, d, out)
		})
	}
}

func TestUpdateActivity(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(),
		AddActivity{ID: "a", PlaceID: "p", Date: "2025-03-01", Note: "old"},
		UpdateActivity{ID: "a", Date: strPtr("2025-03-02 08:00"), StartTime: strPtr("08:00"), Note: strPtr("new")},
	)

	a := d.Activities[0]
	assert.Equal(t, "2025-03-02", a.Date)
	assert.Equal(t, "08:00", a.StartTime)
	assert.Equal(t, "new", a.Note)

	_, err := r.Reduce(d, UpdateActivity{ID: "missing", Note: strPtr("x")})
	assert.Error(t, err)
}

func TestAddActivityPadsTimesForDayOrder(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(),
		AddActivity{ID: "late", PlaceID: "p1", Date: "2025-03-01", StartTime: "10:00"},
		AddActivity{ID: "early", PlaceID: "p2", Date: "2025-03-01", StartTime: "8:30", EndTime: "9:45 pm"},
	)

	assert.Equal(t, "08:30", d.Activities[1].StartTime)
	assert.Equal(t, "21:45", d.Activities[1].EndTime)

	out := FilterDay(r.Calendar, d.Activities, "2025-03-01")
	require.Len(t, out, 2)
	assert.Equal(t, "early", out[0].ID)
	assert.Equal(t, "late", out[1].ID)
}

func TestUpdateActivityPadsTimes(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(),
		AddActivity{ID: "a", PlaceID: "p", Date: "2025-03-01"},
		UpdateActivity{ID: "a", StartTime: strPtr(" 7:05 "), EndTime: strPtr("after lunch")},
	)

	assert.Equal(t, "07:05", d.Activities[0].StartTime)
	assert.Equal(t, "after lunch", d.Activities[0].EndTime)
}

func TestAddActivities(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(), NewAddActivities([]models.Activity{
		{ID: "a", PlaceID: "p1", Date: "2025-03-01", StartTime: "9:00"},
		{ID: "b", PlaceID: "p2", Date: "2025-03-02"},
	}))

	require.Len(t, d.Activities, 2)
	assert.Equal(t, "09:00", d.Activities[0].StartTime)
	assert.Equal(t, "2025-03-02", d.Activities[1].Date)
}

func TestAddActivitiesIsAllOrNothing(t *testing.T) {
	r := newTestReducer()
	d := r.NewDraft()

	out, err := r.Reduce(d, AddActivities{Activities: []AddActivity{
		{ID: "a", PlaceID: "p1", Date: "2025-03-01"},
		{ID: "b", PlaceID: "p2", Date: "someday"},
	}})
	require.Error(t, err)
	assert.Equal(t, d, out)

	_, err = r.Reduce(d, AddActivities{})
	assert.Error(t, err)
}

func TestRemoveAndMoveActivity(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(),
		AddActivity{ID: "a", PlaceID: "p", Date: "2025-03-01"},
		AddActivity{ID: "b", PlaceID: "p", Date: "2025-03-01"},
		AddActivity{ID: "c", PlaceID: "p", Date: "2025-03-01"},
	)

	moved := mustReduce(t, r, d, MoveActivity{ID: "c", Position: 0})
	assert.Equal(t, []string{"c", "a", "b"}, testutil.ActivityIDs(moved.Activities))

	moved = mustReduce(t, r, d, MoveActivity{ID: "a", Position: 99})
	assert.Equal(t, []string{"b", "c", "a"}, testutil.ActivityIDs(moved.Activities))

	removed := mustReduce(t, r, d, RemoveActivity{ID: "b"})
	assert.Equal(t, []string{"a", "c"}, testutil.ActivityIDs(removed.Activities))

	assert.Equal(t, []string{"a", "b", "c"}, testutil.ActivityIDs(d.Activities))

	_, err := r.Reduce(d, RemoveActivity{ID: "zzz"})
	assert.Error(t, err)
}

func TestOptimizeDayAction(t *testing.T) {
	r := newTestReducer()
	d := r.NewDraft()
	d.Activities = []models.Activity{
		testutil.NewActivity("A", "2025-01-01", 0, 0),
		testutil.NewActivity("B", "2025-01-01", 10, 10),
		testutil.NewActivity("C", "2025-01-01", 1, 1),
		testutil.NewActivity("other", "2025-01-02", 5, 5),
	}

	out := mustReduce(t, r, d, OptimizeDay{Day: "2025-01-01"})

	assert.Equal(t, []string{"A", "C", "B", "other"}, testutil.ActivityIDs(out.Activities))
	assert.Equal(t, []string{"A", "B", "C", "other"}, testutil.ActivityIDs(d.Activities))
}

func TestOptimizeDayActionMissingCoordinatesKeepsDraft(t *testing.T) {
	r := newTestReducer()
	d := r.NewDraft()
	d.Activities = []models.Activity{
		testutil.NewActivity("A", "2025-01-01", 0, 0),
		{ID: "B", PlaceID: "p", Date: "2025-01-01"},
		testutil.NewActivity("C", "2025-01-01", 1, 1),
	}

	out, err := r.Reduce(d, OptimizeDay{Day: "2025-01-01"})
	require.Error(t, err)

	var mc *ErrMissingCoordinates
	assert.ErrorAs(t, err, &mc)
	assert.Equal(t, d, out)
}

func TestReset(t *testing.T) {
	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(),
		SetDetails{Title: strPtr("trip")},
		AddActivity{PlaceID: "p", Date: "2025-03-01"},
	)
	d.TripID = 42

	out := mustReduce(t, r, d, Reset{})

	assert.Equal(t, d.ID, out.ID)
	assert.Equal(t, int64(42), out.TripID)
	assert.Equal(t, d.CreatedAt, out.CreatedAt)
	assert.Empty(t, out.Title)
	assert.Empty(t, out.Activities)
}

func TestReduceUpdatesTimestamp(t *testing.T) {
	r := newTestReducer()
	d := r.NewDraft()

	out := mustReduce(t, r, d, SetDetails{Title: strPtr("x")})
	assert.True(t, out.UpdatedAt.After(d.UpdatedAt))
	assert.Equal(t, d.CreatedAt, out.CreatedAt)
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{`{"type":"set_details","title":"Hi"}`, SetDetails{Title: strPtr("Hi")}},
		{`{"type":"add_activity","place_id":"p","date":"2025-01-01"}`, AddActivity{PlaceID: "p", Date: "2025-01-01"}},
		{`{"type":"update_activity","id":"a","note":"n"}`, UpdateActivity{ID: "a", Note: strPtr("n")}},
		{`{"type":"remove_activity","id":"a"}`, RemoveActivity{ID: "a"}},
		{`{"type":"move_activity","id":"a","position":2}`, MoveActivity{ID: "a", Position: 2}},
		{`{"type":"optimize_day","day":"2025-01-01"}`, OptimizeDay{Day: "2025-01-01"}},
		{`{"type":"reset"}`, Reset{}},
	}

	for _, tt := range tests {
		t.Run(tt.want.Type(), func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeAddActivityUpstreamFields(t *testing.T) {
	got, err := DecodeAction([]byte(`{"type":"add_activity","lugarId":"tule","fecha":"2025-03-01","hora_inicio":"8:30 pm","nota":"tree"}`))
	require.NoError(t, err)
	assert.Equal(t, AddActivity{PlaceID: "tule", Date: "2025-03-01", StartTime: "20:30", Note: "tree"}, got)

	got, err = DecodeAction([]byte(`{"type":"add_activity","date":"2025-03-02","lugar":{"idLugar":"mitla","latitud":16.92,"longitud":-96.36}}`))
	require.NoError(t, err)
	add := got.(AddActivity)
	assert.Equal(t, "mitla", add.PlaceID)
	require.NotNil(t, add.Place)
	assert.InDelta(t, 16.92, add.Place.Lat, 1e-9)
}

func TestDecodeAddActivityCanonicalFieldsWin(t *testing.T) {
	got, err := DecodeAction([]byte(`{"type":"add_activity","place_id":"p","lugarId":"q","date":"2025-03-01","fecha":"2025-04-01"}`))
	require.NoError(t, err)
	assert.Equal(t, AddActivity{PlaceID: "p", Date: "2025-03-01"}, got)
}

func TestDecodeAddActivities(t *testing.T) {
	got, err := DecodeAction([]byte(`{"type":"add_activities","activities":[
		{"lugarId":"tule","fecha":"2025-03-01","hora":"10:00"},
		{"nombre":"no place"},
		{"place_id":"zocalo","date":"2025-03-01","start_time":"8:30"}
	]}`))
	require.NoError(t, err)

	r := newTestReducer()
	d := mustReduce(t, r, r.NewDraft(), got)
	out := FilterDay(r.Calendar, d.Activities, "2025-03-01")
	require.Len(t, out, 2)
	assert.Equal(t, "zocalo", out[0].PlaceID)
	assert.Equal(t, "tule", out[1].PlaceID)

	_, err = DecodeAction([]byte(`{"type":"add_activities"}`))
	assert.Error(t, err)
}

func TestDecodeActionErrors(t *testing.T) {
	for _, input := range []string{`not json`, `{}`, `{"type":"teleport"}`, `{"type":"move_activity","position":"x"}`} {
		_, err := DecodeAction([]byte(input))
		assert.Error(t, err, input)
	}
}
