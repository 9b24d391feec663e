package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// reloadMarkerStore is the Redis-backed session.MarkerStore. One marker
// slot exists per student under a well-known key; it survives page
// navigations and is consumed on the next load.
type reloadMarkerStore struct {
	rdb       *redis.Client
	studentID int
}

func newReloadMarkerStore(rdb *redis.Client, studentID int) *reloadMarkerStore {
	return &reloadMarkerStore{rdb: rdb, studentID: studentID}
}

// Put writes the marker synchronously. The unload handler blocks on this;
// an asynchronous write would not be guaranteed to complete.
func (m *reloadMarkerStore) Put(ctx context.Context, marker model.ReloadMarker) error {
	raw, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	key := config.CacheKey.ReloadMarkerKey(m.studentID)
	if err := m.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("store marker: %w", err)
	}
	return nil
}

// Get returns the stored marker, or nil when none exists.
func (m *reloadMarkerStore) Get(ctx context.Context) (*model.ReloadMarker, error) {
	key := config.CacheKey.ReloadMarkerKey(m.studentID)
	raw, err := m.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get marker: %w", err)
	}

	var marker model.ReloadMarker
	if err := json.Unmarshal([]byte(raw), &marker); err != nil {
		// A corrupt marker is unusable; drop it rather than loop on it.
		_ = m.rdb.Del(ctx, key).Err()
		return nil, nil
	}
	return &marker, nil
}

// Clear removes the marker.
func (m *reloadMarkerStore) Clear(ctx context.Context) error {
	return m.rdb.Del(ctx, config.CacheKey.ReloadMarkerKey(m.studentID)).Err()
}
