package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"reservation-service/internal/domain"
)

const availabilityPrefix = "availability:"

// AvailabilityMirror keeps the latest ATP per item under availability:<id>
// for readers outside this process. It is a copy, never the authority.
type AvailabilityMirror struct {
	cache Cache
	ttl   time.Duration
}

func NewAvailabilityMirror(cache Cache, ttl time.Duration) *AvailabilityMirror {
	return &AvailabilityMirror{cache: cache, ttl: ttl}
}

// StoreAvailability writes items. A full snapshot first clears the mirror so
// deleted items disappear.
func (m *AvailabilityMirror) StoreAvailability(ctx context.Context, items domain.AvailabilityMap, full bool) error {
	if full {
		if err := m.cache.DeleteByPattern(ctx, availabilityPrefix+"*"); err != nil {
			return fmt.Errorf("clear availability mirror: %w", err)
		}
	}

	entries := make(map[string][]byte, len(items))
	for id, a := range items {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal availability of item %d: %w", id, err)
		}
		entries[availabilityKey(id)] = data
	}
	return m.cache.SetMany(ctx, entries, m.ttl)
}

func availabilityKey(id domain.ItemID) string {
	return availabilityPrefix + strconv.FormatInt(int64(id), 10)
}
