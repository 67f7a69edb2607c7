package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"food-picker/models"
	"food-picker/storage"

	"github.com/rs/zerolog"
)

// RestaurantStore owns the restaurant list, persists it under one key and answers recommendations.
// It is not safe for concurrent use; the bot and the CLI drive it from a single goroutine.
type RestaurantStore struct {
	kv      storage.KV
	key     string
	randInt func(n int) int
	log     zerolog.Logger

	list    []models.Restaurant
	editing *int
}

type StoreOption func(*RestaurantStore)

// WithRandom replaces the random source. fn must return a value in [0, n).
func WithRandom(fn func(n int) int) StoreOption {
	return func(s *RestaurantStore) { s.randInt = fn }
}

func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *RestaurantStore) { s.log = log }
}

func NewRestaurantStore(kv storage.KV, key string, opts ...StoreOption) *RestaurantStore {
	s := &RestaurantStore{
		kv:      kv,
		key:     key,
		randInt: rand.Intn,
		log:     zerolog.Nop(),
		list:    models.SeedRestaurants(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the stored list. A missing, unreadable, malformed or empty record yields the seed list.
func (s *RestaurantStore) Load(ctx context.Context) {
	s.list = s.readStored(ctx)
}

func (s *RestaurantStore) readStored(ctx context.Context) []models.Restaurant {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Str("reason", "read_error").Msg("using seed restaurants")
		return models.SeedRestaurants()
	}
	if !ok {
		s.log.Debug().Str("key", s.key).Str("reason", "missing").Msg("using seed restaurants")
		return models.SeedRestaurants()
	}
	list, err := DecodeRestaurants([]byte(raw))
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Str("reason", "invalid").Msg("using seed restaurants")
		return models.SeedRestaurants()
	}
	if len(list) == 0 {
		s.log.Debug().Str("key", s.key).Str("reason", "empty").Msg("using seed restaurants")
		return models.SeedRestaurants()
	}
	return list
}

// List returns a copy of the current list.
func (s *RestaurantStore) List() []models.Restaurant {
	out := make([]models.Restaurant, len(s.list))
	copy(out, s.list)
	return out
}

// Upsert replaces the entry at editingIndex with candidate, or appends it when editingIndex is nil or out of range.
// It reports false without touching the list when the name is blank, the category is unknown,
// or another entry already has the same name ignoring case. The full list is written back on success.
func (s *RestaurantStore) Upsert(ctx context.Context, candidate models.Restaurant, editingIndex *int) (bool, error) {
	candidate.Name = strings.TrimSpace(candidate.Name)
	if candidate.Name == "" || !candidate.Category.Valid() {
		return false, nil
	}

	target := -1
	if editingIndex != nil && *editingIndex >= 0 && *editingIndex < len(s.list) {
		target = *editingIndex
	}
	lower := strings.ToLower(candidate.Name)
	for i, r := range s.list {
		if i != target && strings.ToLower(r.Name) == lower {
			return false, nil
		}
	}

	if target >= 0 {
		s.list[target] = candidate
	} else {
		s.list = append(s.list, candidate)
	}
	return true, s.persist(ctx)
}

// Save upserts candidate against the pending edit target and clears the target once applied.
func (s *RestaurantStore) Save(ctx context.Context, candidate models.Restaurant) (bool, error) {
	applied, err := s.Upsert(ctx, candidate, s.editing)
	if applied {
		s.editing = nil
	}
	return applied, err
}

// BeginEdit returns the entry at index and makes it the target of the next Save.
func (s *RestaurantStore) BeginEdit(index int) (models.Restaurant, bool) {
	if index < 0 || index >= len(s.list) {
		return models.Restaurant{}, false
	}
	s.editing = &index
	return s.list[index], true
}

// EditingIndex reports the pending edit target, if any.
func (s *RestaurantStore) EditingIndex() (int, bool) {
	if s.editing == nil {
		return 0, false
	}
	return *s.editing, true
}

// Recommend picks a uniformly random entry, restricted to category unless it is empty.
func (s *RestaurantStore) Recommend(category models.Category) (models.Restaurant, bool) {
	pool := s.list
	if category != "" {
		pool = make([]models.Restaurant, 0, len(s.list))
		for _, r := range s.list {
			if r.Category == category {
				pool = append(pool, r)
			}
		}
	}
	if len(pool) == 0 {
		return models.Restaurant{}, false
	}
	return pool[s.randInt(len(pool))], true
}

func (s *RestaurantStore) persist(ctx context.Context) error {
	data, err := EncodeRestaurants(s.list)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("persist restaurants")
		return fmt.Errorf("persist restaurants: %w", err)
	}
	s.log.Debug().Str("key", s.key).Int("count", len(s.list)).Msg("restaurants saved")
	return nil
}

func EncodeRestaurants(list []models.Restaurant) ([]byte, error) {
	if list == nil {
		list = []models.Restaurant{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal restaurants: %w", err)
	}
	return data, nil
}

// DecodeRestaurants parses a JSON array of restaurants. Anything other than an array is an error.
func DecodeRestaurants(data []byte) ([]models.Restaurant, error) {
	var list []models.Restaurant
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal restaurants: %w", err)
	}
	if list == nil {
		return nil, fmt.Errorf("restaurants record is null")
	}
	return list, nil
}
