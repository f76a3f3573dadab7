package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"appointment-service/internal/booking"
)

// TokenStore keeps each provider's OAuth token as JSON.
type TokenStore interface {
	SaveCalendarToken(ctx context.Context, providerID string, token []byte) error
	ReadCalendarToken(ctx context.Context, providerID string) ([]byte, error)
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOAuthConfig returns nil when the Google credentials are incomplete.
func NewOAuthConfig(cfg Config) *oauth2.Config {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			gcal.CalendarEventsScope,
		},
		Endpoint: google.Endpoint,
	}
}

const (
	stateAudience = "calendar-link"
	stateTTL      = 15 * time.Minute
)

// Connector runs the OAuth consent flow that links a provider's Google calendar.
// The state handed to Google is a short-lived HS256 token naming the provider,
// so the unauthenticated callback only honours links this service started.
type Connector struct {
	oauth  *oauth2.Config
	tokens TokenStore
	key    []byte
	now    func() time.Time
}

func NewConnector(oauth *oauth2.Config, tokens TokenStore, secret string) (*Connector, error) {
	if secret == "" {
		return nil, errors.New("calendar: a signing secret is required for link state")
	}
	// Derived key: API bearer tokens signed with secret never verify as state.
	return &Connector{
		oauth:  oauth,
		tokens: tokens,
		key:    []byte(stateAudience + ":" + secret),
		now:    time.Now,
	}, nil
}

// AuthURL returns the consent URL and the signed state the callback will carry back.
func (c *Connector) AuthURL(providerID string, now time.Time) (string, string, error) {
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   providerID,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", "", fmt.Errorf("calendar: sign state: %w", err)
	}
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), state, nil
}

// Complete verifies state, exchanges the authorization code and stores the
// token for the provider the state names.
func (c *Connector) Complete(ctx context.Context, code, state string) (string, error) {
	providerID, err := c.providerFromState(state)
	if err != nil {
		return "", err
	}
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("calendar: exchange code: %w", err)
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("calendar: encode token: %w", err)
	}
	if err := c.tokens.SaveCalendarToken(ctx, providerID, raw); err != nil {
		return "", err
	}
	return providerID, nil
}

func (c *Connector) providerFromState(state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("calendar: invalid state: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("calendar: state names no provider")
	}
	return claims.Subject, nil
}

// GoogleMirror inserts committed appointments into the provider's Google calendar.
type GoogleMirror struct {
	oauth      *oauth2.Config
	tokens     TokenStore
	calendarID string
	endpoint   string
	logger     *zap.Logger
}

func NewGoogleMirror(oauth *oauth2.Config, tokens TokenStore, logger *zap.Logger) *GoogleMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleMirror{oauth: oauth, tokens: tokens, calendarID: "primary", logger: logger}
}

// Mirror is a no-op for providers that never linked a calendar. The event id
// is derived from the appointment id so a repeated call cannot duplicate it.
func (m *GoogleMirror) Mirror(ctx context.Context, a booking.Appointment) error {
	raw, err := m.tokens.ReadCalendarToken(ctx, a.SpecialistID)
	if errors.Is(err, booking.ErrNotFound) {
		m.logger.Debug("provider has no linked calendar", zap.String("provider_id", a.SpecialistID))
		return nil
	}
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return fmt.Errorf("calendar: decode token: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(m.oauth.Client(ctx, &token))}
	if m.endpoint != "" {
		opts = append(opts, option.WithEndpoint(m.endpoint))
	}
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("calendar: create service: %w", err)
	}

	event := &gcal.Event{
		Id:          strings.ReplaceAll(a.ID, "-", ""),
		Summary:     a.ServiceName,
		Description: eventDescription(a),
		Start:       &gcal.EventDateTime{DateTime: a.StartAt.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: a.EndAt.Format(time.RFC3339)},
		Status:      "confirmed",
	}
	if _, err := srv.Events.Insert(m.calendarID, event).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: insert event: %w", err)
	}
	return nil
}

func eventDescription(a booking.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointment %s\nClient: %s\n", a.ID, a.UserID)
	if a.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", a.Notes)
	}
	return b.String()
}
