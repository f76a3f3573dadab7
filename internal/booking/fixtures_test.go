package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"appointment-service/internal/schedule"
)

// Tuesday.
var testNow = time.Date(2026, 10, 13, 10, 0, 0, 0, time.UTC)

type stubCatalog struct {
	providers    []Provider
	services     []ServiceOffering
	schedules    map[string]*schedule.WeeklySchedule
	appointments []Appointment
	scheduleErr  error
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		providers: []Provider{
			{ID: "S1", Name: "Dr. Ada Byron", Role: "Therapist"},
			{ID: "S2", Name: "Sam Reed", Role: "Coach"},
		},
		services: []ServiceOffering{
			{ID: "SV1", ProviderID: "S1", Name: "Intake session", Category: "therapy", Duration: 50, Price: 80},
			{ID: "SV2", Name: "Check-in call", Category: "general", Duration: 60, Price: 30},
			{ID: "SV3", ProviderID: "S2", Name: "Running plan", Category: "coaching", Duration: 45, Price: 40},
		},
		schedules: map[string]*schedule.WeeklySchedule{
			"S1": {ProviderID: "S1", Days: []schedule.DaySchedule{
				{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", Available: true},
				{DayOfWeek: 2, StartTime: "09:00", EndTime: "12:00", Available: false},
			}},
		},
	}
}

func (c *stubCatalog) ListProviders(context.Context) ([]Provider, error) {
	return c.providers, nil
}

func (c *stubCatalog) ReadProvider(_ context.Context, id string) (*Provider, error) {
	for _, p := range c.providers {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (c *stubCatalog) ReadServices(_ context.Context, providerID, category string) ([]ServiceOffering, error) {
	var out []ServiceOffering
	for _, s := range c.services {
		if providerID != "" && !s.OfferedBy(providerID) {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *stubCatalog) ReadService(_ context.Context, id string) (*ServiceOffering, error) {
	for _, s := range c.services {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (c *stubCatalog) ReadSchedule(_ context.Context, providerID string) (*schedule.WeeklySchedule, error) {
	if c.scheduleErr != nil {
		return nil, c.scheduleErr
	}
	return c.schedules[providerID], nil
}

func (c *stubCatalog) ReadAppointmentsInRange(_ context.Context, providerID string, from, to time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range c.appointments {
		if a.SpecialistID == providerID && a.StartAt.Before(to) && from.Before(a.EndAt) {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) CreateAppointment(ctx context.Context, a *Appointment) (string, error) {
	args := m.Called(ctx, a)
	return args.String(0), args.Error(1)
}

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) Mirror(ctx context.Context, a Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func testExpander(t *testing.T) *schedule.Expander {
	t.Helper()
	def, err := schedule.DefaultSchedule([]int{1, 2, 3, 4, 5}, "09:00", "17:00")
	require.NoError(t, err)
	return schedule.NewExpander(schedule.ExpanderConfig{
		HorizonDays:    28,
		MaxHorizonDays: 56,
		SlotDuration:   time.Hour,
		Default:        def,
		Location:       time.UTC,
	}, nil)
}

func setupStore(t *testing.T) (*RedisSelectionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSelectionStore(client, time.Hour), mr
}

type harness struct {
	catalog *stubCatalog
	store   *RedisSelectionStore
	writer  *mockWriter
	mirror  *mockMirror
	wizard  *Wizard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog := newStubCatalog()
	store, _ := setupStore(t)
	writer := &mockWriter{}
	mirror := &mockMirror{}
	exp := testExpander(t)

	avail := NewAvailability(catalog, exp, nil, nil)
	avail.now = func() time.Time { return testNow }

	committer := NewCommitter(CommitterDeps{
		Writer:   writer,
		Catalog:  catalog,
		Expander: exp,
		Store:    store,
		Mirror:   mirror,
	})
	committer.now = func() time.Time { return testNow }

	w := NewWizard(WizardDeps{
		Store:        store,
		Catalog:      catalog,
		Availability: avail,
		Committer:    committer,
	})
	return &harness{catalog: catalog, store: store, writer: writer, mirror: mirror, wizard: w}
}
