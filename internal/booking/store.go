package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Selection is the wizard's in-progress booking choice.
type Selection struct {
	SpecialistID string `json:"specialist_id,omitempty"`
	ServiceID    string `json:"service_id,omitempty"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	Note         string `json:"note,omitempty"`
}

// Complete reports whether every step field is filled.
func (s Selection) Complete() bool {
	return s.SpecialistID != "" && s.ServiceID != "" && s.Date != "" && s.Time != ""
}

// SelectionStore persists one Selection per session.
type SelectionStore interface {
	Load(ctx context.Context, session string) (Selection, error)
	Save(ctx context.Context, session string, sel Selection) error
	Clear(ctx context.Context, session string) error
}

const selectionKeyPrefix = "booking:selection:"

// RedisSelectionStore keeps selections as JSON values with a sliding TTL.
type RedisSelectionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSelectionStore(client *redis.Client, ttl time.Duration) *RedisSelectionStore {
	if client == nil {
		panic("booking: redis client required")
	}
	return &RedisSelectionStore{client: client, ttl: ttl}
}

func selectionKey(session string) (string, error) {
	if session == "" {
		return "", ErrMissingSession
	}
	return selectionKeyPrefix + session, nil
}

// Load returns the stored selection, or an empty one when nothing is stored.
func (s *RedisSelectionStore) Load(ctx context.Context, session string) (Selection, error) {
	key, err := selectionKey(session)
	if err != nil {
		return Selection{}, err
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Selection{}, nil
	}
	if err != nil {
		return Selection{}, fmt.Errorf("booking: load selection: %w", err)
	}
	var sel Selection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return Selection{}, fmt.Errorf("booking: decode selection: %w", err)
	}
	return sel, nil
}

func (s *RedisSelectionStore) Save(ctx context.Context, session string, sel Selection) error {
	key, err := selectionKey(session)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("booking: encode selection: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("booking: save selection: %w", err)
	}
	return nil
}

func (s *RedisSelectionStore) Clear(ctx context.Context, session string) error {
	key, err := selectionKey(session)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("booking: clear selection: %w", err)
	}
	return nil
}
