package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-service/internal/booking"
	"appointment-service/internal/schedule"
)

const (
	testSecret = "test-secret"
	testToken  = "svc-token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memRepo struct {
	mu           sync.Mutex
	providers    []booking.Provider
	services     []booking.ServiceOffering
	schedules    map[string]*schedule.WeeklySchedule
	appointments []booking.Appointment
	writeErr     error
}

func newMemRepo() *memRepo {
	week := schedule.WeeklySchedule{ProviderID: "S1"}
	for d := 1; d <= 7; d++ {
		week.Days = append(week.Days, schedule.DaySchedule{DayOfWeek: d, StartTime: "09:00", EndTime: "12:00", Available: true})
	}
	return &memRepo{
		providers: []booking.Provider{
			{ID: "S1", Name: "Dr. Ada Byron", Role: "Therapist"},
			{ID: "S2", Name: "Sam Reed", Role: "Coach"},
		},
		services: []booking.ServiceOffering{
			{ID: "SV1", ProviderID: "S1", Name: "Intake session", Category: "therapy", Duration: 50, Price: 80},
			{ID: "SV2", Name: "Check-in call", Category: "general", Duration: 60, Price: 30},
		},
		schedules: map[string]*schedule.WeeklySchedule{"S1": &week},
	}
}

func (r *memRepo) ListProviders(context.Context) ([]booking.Provider, error) {
	return r.providers, nil
}

func (r *memRepo) ReadProvider(_ context.Context, id string) (*booking.Provider, error) {
	for _, p := range r.providers {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, booking.ErrNotFound
}

func (r *memRepo) ReadServices(_ context.Context, providerID, category string) ([]booking.ServiceOffering, error) {
	var out []booking.ServiceOffering
	for _, s := range r.services {
		if providerID != "" && s.ProviderID != "" && s.ProviderID != providerID {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memRepo) ReadService(_ context.Context, id string) (*booking.ServiceOffering, error) {
	for _, s := range r.services {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, booking.ErrNotFound
}

func (r *memRepo) ReadSchedule(_ context.Context, providerID string) (*schedule.WeeklySchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.schedules[providerID], nil
}

func (r *memRepo) SaveSchedule(_ context.Context, ws schedule.WeeklySchedule) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[ws.ProviderID] = &ws
	return nil
}

func (r *memRepo) ReadAppointmentsInRange(_ context.Context, providerID string, from, to time.Time) ([]booking.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []booking.Appointment
	for _, a := range r.appointments {
		if a.SpecialistID == providerID && a.Status == booking.StatusScheduled && a.StartAt.Before(to) && from.Before(a.EndAt) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) CreateAppointment(_ context.Context, a *booking.Appointment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return "", r.writeErr
	}
	for _, ex := range r.appointments {
		if ex.SpecialistID == a.SpecialistID && ex.Status == booking.StatusScheduled &&
			ex.StartAt.Before(a.EndAt) && a.StartAt.Before(ex.EndAt) {
			return "", booking.ErrSlotUnavailable
		}
	}
	stored := *a
	r.appointments = append(r.appointments, stored)
	return stored.ID, nil
}

func (r *memRepo) ListAppointmentsForUser(_ context.Context, userID string) ([]booking.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []booking.Appointment
	for _, a := range r.appointments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) ReadAppointment(_ context.Context, id string) (*booking.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid input syntax for type uuid: %q", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appointments {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, booking.ErrNotFound
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.appointments {
		if a.ID != id {
			continue
		}
		if !booking.ValidTransition(a.Status, status) {
			return booking.ErrInvalidTransition
		}
		r.appointments[i].Status = status
		return nil
	}
	return booking.ErrNotFound
}

type stubLinker struct {
	completed string
}

func (s *stubLinker) AuthURL(providerID string, _ time.Time) (string, string, error) {
	return "https://accounts.example/auth?p=" + providerID, "state-" + providerID, nil
}

func (s *stubLinker) Complete(_ context.Context, code, state string) (string, error) {
	if code != "good" {
		return "", assert.AnError
	}
	s.completed = state
	return "S1", nil
}

type testServer struct {
	router *gin.Engine
	repo   *memRepo
	mr     *miniredis.Miniredis
	linker *stubLinker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	def, err := schedule.DefaultSchedule([]int{1, 2, 3, 4, 5}, "09:00", "17:00")
	require.NoError(t, err)
	exp := schedule.NewExpander(schedule.ExpanderConfig{
		HorizonDays:    28,
		MaxHorizonDays: 56,
		SlotDuration:   time.Hour,
		Default:        def,
		Location:       time.UTC,
	}, nil)

	store := booking.NewRedisSelectionStore(client, time.Hour)
	avail := booking.NewAvailability(repo, exp, nil, nil)
	committer := booking.NewCommitter(booking.CommitterDeps{
		Writer:   repo,
		Catalog:  repo,
		Expander: exp,
		Store:    store,
	})
	wizard := booking.NewWizard(booking.WizardDeps{
		Store:        store,
		Catalog:      repo,
		Availability: avail,
		Committer:    committer,
	})
	linker := &stubLinker{}

	a := &App{
		Repo:         repo,
		Expander:     exp,
		Availability: avail,
		Wizard:       wizard,
		Committer:    committer,
		Calendar:     linker,
	}
	router := gin.New()
	a.Register(router, AuthMiddleware(AuthConfig{JWTSecret: testSecret, StaticTokens: []string{testToken}}), map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	return &testServer{router: router, repo: repo, mr: mr, linker: linker}
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	return signTokenWithRole(t, sub, "")
}

func signTokenWithRole(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"name":  "Grace",
		"email": "grace@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format(schedule.DateLayout)
}
