package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"appointment-service/internal/metrics"
	"appointment-service/internal/schedule"
)

// Step is a wizard stage. Steps are ordered; each one owns one Selection field.
type Step int

const (
	StepSpecialist Step = iota + 1
	StepService
	StepDate
	StepTime
	StepConfirm
	StepBooked
)

var stepNames = map[Step]string{
	StepSpecialist: "specialist",
	StepService:    "service",
	StepDate:       "date",
	StepTime:       "time",
	StepConfirm:    "confirm",
	StepBooked:     "booked",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func ParseStep(name string) (Step, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range stepNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown step %q", ErrInvalidChoice, name)
}

func (s Step) next() Step {
	if s >= StepConfirm {
		return StepConfirm
	}
	return s + 1
}

func (s Step) prev() Step {
	if s <= StepSpecialist {
		return StepSpecialist
	}
	if s == StepBooked {
		return StepConfirm
	}
	return s - 1
}

// filled reports whether the field owned by step is set.
func (sel Selection) filled(step Step) bool {
	switch step {
	case StepSpecialist:
		return sel.SpecialistID != ""
	case StepService:
		return sel.ServiceID != ""
	case StepDate:
		return sel.Date != ""
	case StepTime:
		return sel.Time != ""
	}
	return true
}

func (sel *Selection) set(step Step, value string) {
	switch step {
	case StepSpecialist:
		sel.SpecialistID = value
	case StepService:
		sel.ServiceID = value
	case StepDate:
		sel.Date = value
	case StepTime:
		sel.Time = value
	}
}

// Resolve returns the step that may actually be entered: requested when every
// earlier step is filled, otherwise the earliest unfilled one.
func Resolve(requested Step, sel Selection) (Step, bool) {
	if requested < StepSpecialist || requested > StepBooked {
		requested = StepSpecialist
	}
	if requested == StepBooked {
		requested = StepConfirm
	}
	for s := StepSpecialist; s < requested; s++ {
		if !sel.filled(s) {
			return s, true
		}
	}
	return requested, false
}

// Summary is the read-only projection shown on the confirmation step.
type Summary struct {
	ProviderName string  `json:"provider_name"`
	ProviderRole string  `json:"provider_role,omitempty"`
	ServiceName  string  `json:"service_name"`
	Duration     int     `json:"duration"`
	Price        float64 `json:"price"`
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Note         string  `json:"note,omitempty"`
}

// StepView is what the client renders for the step it ended up on.
type StepView struct {
	Step        Step                       `json:"step"`
	Requested   Step                       `json:"requested"`
	Redirected  bool                       `json:"redirected"`
	Selection   Selection                  `json:"selection"`
	Providers   []Provider                 `json:"providers,omitempty"`
	Services    []ServiceOffering          `json:"services,omitempty"`
	Days        []schedule.AvailabilityDay `json:"days,omitempty"`
	Slots       []schedule.TimeSlot        `json:"slots,omitempty"`
	Summary     *Summary                   `json:"summary,omitempty"`
	Appointment *Appointment               `json:"appointment,omitempty"`
	Empty       string                     `json:"empty,omitempty"`
}

// Wizard sequences the booking steps over a persisted Selection.
type Wizard struct {
	store        SelectionStore
	catalog      Catalog
	availability *Availability
	committer    *Committer
	metrics      *metrics.BookingMetrics
	logger       *zap.Logger
}

type WizardDeps struct {
	Store        SelectionStore
	Catalog      Catalog
	Availability *Availability
	Committer    *Committer
	Metrics      *metrics.BookingMetrics
	Logger       *zap.Logger
}

func NewWizard(d WizardDeps) *Wizard {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Wizard{
		store:        d.Store,
		catalog:      d.Catalog,
		availability: d.Availability,
		committer:    d.Committer,
		metrics:      d.Metrics,
		logger:       d.Logger,
	}
}

// Current restores the session and shows the furthest step it may enter.
func (w *Wizard) Current(ctx context.Context, session string) (*StepView, error) {
	sel, err := w.store.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	step, _ := Resolve(StepConfirm, sel)
	return w.view(ctx, session, sel, step, step)
}

// Enter restores the session and shows requested, or the earliest unmet step.
func (w *Wizard) Enter(ctx context.Context, session string, requested Step) (*StepView, error) {
	sel, err := w.store.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	step, _ := Resolve(requested, sel)
	return w.view(ctx, session, sel, requested, step)
}

// Choose records value for step, persists the selection and shows the next step.
func (w *Wizard) Choose(ctx context.Context, session string, step Step, value string) (*StepView, error) {
	if step < StepSpecialist || step > StepTime {
		return nil, fmt.Errorf("%w: step %s takes no choice", ErrInvalidChoice, step)
	}
	sel, err := w.store.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	if resolved, redirected := Resolve(step, sel); redirected {
		return w.view(ctx, session, sel, step, resolved)
	}

	value = strings.TrimSpace(value)
	if err := w.validate(ctx, sel, step, value); err != nil {
		return nil, err
	}
	sel.set(step, value)
	if err := w.store.Save(ctx, session, sel); err != nil {
		return nil, err
	}
	w.logger.Debug("wizard step chosen",
		zap.String("session", session), zap.Stringer("step", step))

	next := step.next()
	return w.view(ctx, session, sel, next, next)
}

// Back shows the step before from. The selection is not modified.
func (w *Wizard) Back(ctx context.Context, session string, from Step) (*StepView, error) {
	return w.Enter(ctx, session, from.prev())
}

// Restart discards the session's selection.
func (w *Wizard) Restart(ctx context.Context, session string) error {
	return w.store.Clear(ctx, session)
}

// Confirm books the selection. On failure the selection stays stored so the
// client can retry without redoing earlier steps.
func (w *Wizard) Confirm(ctx context.Context, session string, user Identity, note string) (*StepView, error) {
	sel, err := w.store.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	if resolved, redirected := Resolve(StepConfirm, sel); redirected {
		return w.view(ctx, session, sel, StepConfirm, resolved)
	}

	if note = strings.TrimSpace(note); note != "" && note != sel.Note {
		sel.Note = note
		if err := w.store.Save(ctx, session, sel); err != nil {
			return nil, err
		}
	}

	provider, service, err := w.resolveRefs(ctx, sel)
	if err != nil {
		return nil, err
	}
	if !service.OfferedBy(sel.SpecialistID) {
		return w.view(ctx, session, sel, StepConfirm, StepService)
	}
	appt, err := w.committer.Commit(ctx, CommitRequest{
		Session:   session,
		Selection: sel,
		Provider:  *provider,
		Service:   *service,
		User:      user,
	})
	if err != nil {
		return nil, err
	}
	return &StepView{
		Step:        StepBooked,
		Requested:   StepConfirm,
		Appointment: appt,
	}, nil
}

func (w *Wizard) resolveRefs(ctx context.Context, sel Selection) (*Provider, *ServiceOffering, error) {
	provider, err := w.catalog.ReadProvider(ctx, sel.SpecialistID)
	if err != nil {
		return nil, nil, w.choiceErr(err, "specialist %s", sel.SpecialistID)
	}
	service, err := w.catalog.ReadService(ctx, sel.ServiceID)
	if err != nil {
		return nil, nil, w.choiceErr(err, "service %s", sel.ServiceID)
	}
	return provider, service, nil
}

func (w *Wizard) choiceErr(err error, format string, args ...any) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s not found", ErrInvalidChoice, fmt.Sprintf(format, args...))
	}
	return err
}

func (w *Wizard) validate(ctx context.Context, sel Selection, step Step, value string) error {
	if value == "" {
		return fmt.Errorf("%w: empty value for %s", ErrInvalidChoice, step)
	}
	switch step {
	case StepSpecialist:
		_, err := w.catalog.ReadProvider(ctx, value)
		return w.choiceErr(err, "specialist %s", value)

	case StepService:
		svc, err := w.catalog.ReadService(ctx, value)
		if err != nil {
			return w.choiceErr(err, "service %s", value)
		}
		if !svc.OfferedBy(sel.SpecialistID) {
			return fmt.Errorf("%w: service %s not offered by %s", ErrInvalidChoice, value, sel.SpecialistID)
		}
		return nil

	case StepDate:
		days, err := w.availability.ForProvider(ctx, sel.SpecialistID, 0)
		if err != nil {
			return err
		}
		if _, ok := schedule.FindDay(days, value); !ok {
			return fmt.Errorf("%w: date %s not offered", ErrInvalidChoice, value)
		}
		return nil

	case StepTime:
		days, err := w.availability.ForProvider(ctx, sel.SpecialistID, 0)
		if err != nil {
			return err
		}
		day, ok := schedule.FindDay(days, sel.Date)
		if !ok {
			return fmt.Errorf("%w: date %s no longer offered", ErrInvalidChoice, sel.Date)
		}
		slot, ok := day.FindSlot(value)
		if !ok {
			return fmt.Errorf("%w: time %s not offered on %s", ErrInvalidChoice, value, sel.Date)
		}
		if !slot.Available {
			return fmt.Errorf("%w: %s %s", ErrSlotUnavailable, sel.Date, value)
		}
		return nil
	}
	return fmt.Errorf("%w: step %s takes no choice", ErrInvalidChoice, step)
}

// view loads the data shown on step. requested is echoed so clients can tell
// a corrective redirect from a normal transition.
func (w *Wizard) view(ctx context.Context, session string, sel Selection, requested, step Step) (*StepView, error) {
	v := &StepView{
		Step:       step,
		Requested:  requested,
		Redirected: requested != step && !(requested == StepBooked && step == StepConfirm),
		Selection:  sel,
	}
	if v.Redirected {
		w.metrics.ObserveRedirect(requested.String(), step.String())
		w.logger.Debug("wizard redirect",
			zap.String("session", session),
			zap.Stringer("requested", requested),
			zap.Stringer("resolved", step))
	}

	switch step {
	case StepSpecialist:
		providers, err := w.catalog.ListProviders(ctx)
		if err != nil {
			return nil, err
		}
		v.Providers = providers

	case StepService:
		services, err := w.catalog.ReadServices(ctx, sel.SpecialistID, "")
		if err != nil {
			return nil, err
		}
		v.Services = services

	case StepDate:
		days, err := w.availability.ForProvider(ctx, sel.SpecialistID, 0)
		if err != nil {
			return nil, err
		}
		v.Days = days
		if len(days) == 0 {
			v.Empty = NoAvailabilityMessage
		}

	case StepTime:
		days, err := w.availability.ForProvider(ctx, sel.SpecialistID, 0)
		if err != nil {
			return nil, err
		}
		if day, ok := schedule.FindDay(days, sel.Date); ok {
			v.Slots = day.Slots
		} else {
			v.Empty = "the chosen date is no longer available, pick another date"
		}

	case StepConfirm:
		provider, service, err := w.resolveRefs(ctx, sel)
		if err != nil {
			return nil, err
		}
		// The specialist was changed after the service was picked.
		if !service.OfferedBy(sel.SpecialistID) {
			return w.view(ctx, session, sel, requested, StepService)
		}
		summary, err := summarize(sel, provider, service)
		if err != nil {
			return nil, err
		}
		v.Summary = summary
	}
	return v, nil
}

func summarize(sel Selection, provider *Provider, service *ServiceOffering) (*Summary, error) {
	end, err := EndTime(sel.Time, service.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return &Summary{
		ProviderName: provider.Name,
		ProviderRole: provider.Role,
		ServiceName:  service.Name,
		Duration:     service.Duration,
		Price:        service.Price,
		Date:         sel.Date,
		StartTime:    sel.Time,
		EndTime:      end,
		Note:         sel.Note,
	}, nil
}
