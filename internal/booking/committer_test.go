package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"appointment-service/internal/schedule"
)

func TestEndTime(t *testing.T) {
	tests := []struct {
		start   string
		minutes int
		want    string
	}{
		{"09:40", 50, "10:30"},
		{"23:30", 60, "00:30"},
		{"09:00", 60, "10:00"},
		{"09:05", 0, "09:05"},
		{"22:15", 150, "00:45"},
		{"10:00", 24 * 60, "10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			got, err := EndTime(tt.start, tt.minutes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := EndTime("9", 30)
	assert.Error(t, err)
	_, err = EndTime("09:00", -5)
	assert.Error(t, err)
}

func TestStartAt(t *testing.T) {
	got, err := StartAt("2026-10-19", "09:40", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 40, 0, 0, time.UTC), got)

	_, err = StartAt("19/10/2026", "09:40", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	_, err = StartAt("2026-10-19", "9h", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func newTestCommitter(t *testing.T, catalog *stubCatalog, writer *mockWriter, mirror CalendarMirror, store SelectionStore) *Committer {
	t.Helper()
	c := NewCommitter(CommitterDeps{
		Writer:   writer,
		Catalog:  catalog,
		Expander: testExpander(t),
		Store:    store,
		Mirror:   mirror,
	})
	c.now = func() time.Time { return testNow }
	return c
}

func commitRequest(sel Selection) CommitRequest {
	return CommitRequest{
		Selection: sel,
		Provider:  Provider{ID: "S1", Name: "Dr. Ada Byron", Role: "Therapist"},
		Service:   ServiceOffering{ID: "SV1", ProviderID: "S1", Name: "Intake session", Duration: 50, Price: 80},
		User:      Identity{UID: "u1", DisplayName: "Uma", Email: "uma@example.com"},
	}
}

func TestBuildAppointment(t *testing.T) {
	c := newTestCommitter(t, newStubCatalog(), &mockWriter{}, nil, nil)
	req := commitRequest(Selection{SpecialistID: "S1", ServiceID: "SV1", Date: "2026-10-19", Time: "11:00", Note: "hi"})

	a, err := c.Build(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "Dr. Ada Byron", a.SpecialistName)
	assert.Equal(t, "Intake session", a.ServiceName)
	assert.Equal(t, "2026-10-19", a.Date)
	assert.Equal(t, "11:00", a.StartTime)
	assert.Equal(t, "11:50", a.EndTime)
	assert.Equal(t, time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC), a.StartAt)
	assert.Equal(t, time.Date(2026, 10, 19, 11, 50, 0, 0, time.UTC), a.EndAt)
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, "hi", a.Notes)
	assert.Equal(t, 80.0, a.Price)
	assert.Equal(t, testNow, a.CreatedAt)
}

func TestBuildCrossesMidnight(t *testing.T) {
	catalog := newStubCatalog()
	catalog.schedules["S1"] = &schedule.WeeklySchedule{Days: []schedule.DaySchedule{
		{DayOfWeek: 1, StartTime: "23:00", EndTime: "23:59", Available: true},
	}}
	def, err := schedule.DefaultSchedule([]int{1}, "09:00", "17:00")
	require.NoError(t, err)
	c := NewCommitter(CommitterDeps{
		Writer:  &mockWriter{},
		Catalog: catalog,
		Expander: schedule.NewExpander(schedule.ExpanderConfig{
			SlotDuration: 30 * time.Minute,
			Default:      def,
		}, nil),
	})
	c.now = func() time.Time { return testNow }

	req := commitRequest(Selection{SpecialistID: "S1", ServiceID: "SV1", Date: "2026-10-19", Time: "23:00"})
	req.Service.Duration = 90

	a, err := c.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "00:30", a.EndTime)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 30, 0, 0, time.UTC), a.EndAt)
}

func TestBuildRejects(t *testing.T) {
	full := Selection{SpecialistID: "S1", ServiceID: "SV1", Date: "2026-10-19", Time: "10:00"}
	tests := []struct {
		name    string
		mutate  func(r *CommitRequest)
		wantErr error
	}{
		{"incomplete", func(r *CommitRequest) { r.Selection.Time = "" }, ErrInvalidSelection},
		{"missing user", func(r *CommitRequest) { r.User = Identity{} }, ErrInvalidSelection},
		{"service of other provider", func(r *CommitRequest) { r.Service.ProviderID = "S2" }, ErrInvalidSelection},
		{"provider mismatch", func(r *CommitRequest) { r.Provider.ID = "S2" }, ErrInvalidSelection},
		{"zero duration", func(r *CommitRequest) { r.Service.Duration = 0 }, ErrInvalidSelection},
		{"past date", func(r *CommitRequest) { r.Selection.Date = "2026-10-12" }, ErrSlotUnavailable},
		{"closed weekday", func(r *CommitRequest) { r.Selection.Date = "2026-10-20" }, ErrSlotUnavailable},
		{"off grid", func(r *CommitRequest) { r.Selection.Time = "10:30" }, ErrSlotUnavailable},
		{"after hours", func(r *CommitRequest) { r.Selection.Time = "12:00" }, ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCommitter(t, newStubCatalog(), &mockWriter{}, nil, nil)
			req := commitRequest(full)
			tt.mutate(&req)
			_, err := c.Build(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuildEnforcesBookingWindow(t *testing.T) {
	s2 := func(date, hhmm string) CommitRequest {
		req := commitRequest(Selection{SpecialistID: "S2", ServiceID: "SV3", Date: date, Time: hhmm})
		req.Provider = Provider{ID: "S2", Name: "Sam Reed"}
		req.Service = ServiceOffering{ID: "SV3", ProviderID: "S2", Name: "Coaching", Duration: 45}
		return req
	}
	s1 := func(date string) CommitRequest {
		return commitRequest(Selection{SpecialistID: "S1", ServiceID: "SV1", Date: date, Time: "09:00"})
	}

	tests := []struct {
		name    string
		req     CommitRequest
		wantErr error
	}{
		{"later today", s2("2026-10-13", "15:00"), ErrSlotUnavailable},
		{"tomorrow", s2("2026-10-14", "09:00"), nil},
		{"last monday in window", s1("2026-12-07"), nil},
		{"first monday past window", s1("2026-12-14"), ErrSlotUnavailable},
		{"next year", s1("2027-10-11"), ErrSlotUnavailable},
		{"years ahead", s1("2030-01-07"), ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCommitter(t, newStubCatalog(), &mockWriter{}, nil, nil)
			_, err := c.Build(context.Background(), tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuildUsesDefaultScheduleWhenMissing(t *testing.T) {
	catalog := newStubCatalog()
	delete(catalog.schedules, "S1")
	c := newTestCommitter(t, catalog, &mockWriter{}, nil, nil)

	// Tuesday 16:00 is inside the Mon-Fri 09:00-17:00 default.
	req := commitRequest(Selection{SpecialistID: "S1", ServiceID: "SV1", Date: "2026-10-20", Time: "16:00"})
	_, err := c.Build(context.Background(), req)
	assert.NoError(t, err)
}

func TestBuildScheduleReadFailureIsRetryable(t *testing.T) {
	catalog := newStubCatalog()
	catalog.scheduleErr = errors.New("timeout")
	c := newTestCommitter(t, catalog, &mockWriter{}, nil, nil)

	_, err := c.Build(context.Background(), commitRequest(Selection{SpecialistID: "S1", ServiceID: "SV1", Date: "2026-10-19", Time: "10:00"}))
	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Retryable)
}

func TestCommitMirrorFailureIsBestEffort(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	sel := Selection{SpecialistID: "S1", ServiceID: "SV1", Date: "2026-10-19", Time: "09:00"}
	require.NoError(t, store.Save(ctx, "sess", sel))

	writer := &mockWriter{}
	writer.On("CreateAppointment", mock.Anything, mock.Anything).Return("appt-9", nil)
	mirror := &mockMirror{}
	mirror.On("Mirror", mock.Anything, mock.MatchedBy(func(a Appointment) bool { return a.ID == "appt-9" })).
		Return(errors.New("calendar down"))

	c := newTestCommitter(t, newStubCatalog(), writer, mirror, store)
	req := commitRequest(sel)
	req.Session = "sess"

	a, err := c.Commit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "appt-9", a.ID)
	mirror.AssertExpectations(t)

	stored, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, Selection{}, stored)
}

func TestCommitWithoutSessionOrMirror(t *testing.T) {
	writer := &mockWriter{}
	writer.On("CreateAppointment", mock.Anything, mock.Anything).Return("appt-1", nil)
	c := newTestCommitter(t, newStubCatalog(), writer, nil, nil)

	a, err := c.Commit(context.Background(), commitRequest(Selection{SpecialistID: "S1", ServiceID: "SV1", Date: "2026-10-26", Time: "09:00"}))
	require.NoError(t, err)
	assert.Equal(t, "appt-1", a.ID)
	writer.AssertNumberOfCalls(t, "CreateAppointment", 1)
}

func TestValidTransition(t *testing.T) {
	assert.True(t, ValidTransition(StatusScheduled, StatusCompleted))
	assert.True(t, ValidTransition(StatusScheduled, StatusCancelled))
	assert.False(t, ValidTransition(StatusCancelled, StatusScheduled))
	assert.False(t, ValidTransition(StatusCompleted, StatusCancelled))
	assert.False(t, ValidTransition(StatusScheduled, StatusScheduled))
}
