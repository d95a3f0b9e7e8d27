// Package memory provides an in-memory catalogue store used for tests and
// ephemeral environments, plus the JSON bucket codec shared by the SQL drivers.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"threadlab/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain store interface.
var _ domain.CatalogStore = (*Store)(nil)

// Buckets names the JSON payloads a catalogue is split into, in write order.
var Buckets = []string{
	"states",
	"transitions",
	"lifecycle_path",
	"techniques",
	"deadlock_steps",
	"race_actors",
	"switch_actors",
}

func bucketTargets(c *domain.Catalog) map[string]any {
	return map[string]any{
		"states":         &c.States,
		"transitions":    &c.Transitions,
		"lifecycle_path": &c.LifecyclePath,
		"techniques":     &c.Techniques,
		"deadlock_steps": &c.DeadlockSteps,
		"race_actors":    &c.RaceActors,
		"switch_actors":  &c.SwitchActors,
	}
}

// EncodeBuckets serialises each catalogue section into its bucket payload.
func EncodeBuckets(c domain.Catalog) (map[string][]byte, error) {
	targets := bucketTargets(&c)
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		data, err := json.Marshal(targets[bucket])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds a catalogue from bucket payloads. Unknown buckets and
// empty payloads are ignored.
func DecodeBuckets(payloads map[string][]byte) (domain.Catalog, error) {
	var c domain.Catalog
	targets := bucketTargets(&c)
	for bucket, payload := range payloads {
		if len(payload) == 0 {
			continue
		}
		target, ok := targets[bucket]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return domain.Catalog{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	return c, nil
}

// Store keeps the encoded buckets in memory so loads never alias saved data.
type Store struct {
	mu      sync.RWMutex
	buckets map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{buckets: make(map[string][]byte)}
}

// LoadCatalog returns the saved catalogue; ok is false when nothing was saved.
func (s *Store) LoadCatalog(ctx context.Context) (domain.Catalog, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Catalog{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.buckets) == 0 {
		return domain.Catalog{}, false, nil
	}
	c, err := DecodeBuckets(s.buckets)
	if err != nil {
		return domain.Catalog{}, false, err
	}
	return c, true, nil
}

// SaveCatalog replaces the stored catalogue.
func (s *Store) SaveCatalog(ctx context.Context, c domain.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := EncodeBuckets(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.buckets = encoded
	s.mu.Unlock()
	return nil
}
