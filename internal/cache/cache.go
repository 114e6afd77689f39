// Package cache persists generated anomaly explanations so repeated
// requests for the same location and date never hit the model twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Key derives the cache key for an anomaly. Coordinates are rounded to four
// decimal places (about 11 m) so near-identical requests share an entry.
func Key(lat, lon float64, date string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%.4f_%.4f_%s", lat, lon, date)))
	return hex.EncodeToString(sum[:])
}

// Entry is one cached explanation.
type Entry struct {
	Key       string    `json:"key"`
	Reasoning string    `json:"reasoning"`
	Metadata  string    `json:"metadata,omitempty"`
	CachedAt  time.Time `json:"cached_at"`
}

// Store defines the persistence interface for explanations.
type Store interface {
	// Get returns the entry for key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) (*Entry, error)
	// Set inserts or replaces the entry for key.
	Set(ctx context.Context, key, reasoning, metadata string) error

	Migrate(ctx context.Context) error
	Close() error
}
