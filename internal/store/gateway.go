package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// DefaultKey is the fixed key under which the registry snapshot is stored.
const DefaultKey = "equilibrium-data"

// Gateway is the only component that talks to the byte-store. Each operation
// stands alone; nothing is transactional across calls.
type Gateway struct {
	store ByteStore
	key   string
}

// NewGateway creates a Gateway over store. An empty key means DefaultKey.
func NewGateway(store ByteStore, key string) *Gateway {
	if key == "" {
		key = DefaultKey
	}
	return &Gateway{store: store, key: key}
}

// Key returns the snapshot key.
func (g *Gateway) Key() string { return g.key }

// Save serializes the full snapshot to the store. Failures are logged and
// reported as false; callers must not assume durability.
func (g *Gateway) Save(s *task.Snapshot) bool {
	data, err := json.Marshal(s)
	if err != nil {
		log.ErrorErr(log.CatStore, "failed to serialize snapshot", err, "key", g.key)
		return false
	}
	if err := g.store.Put(g.key, data); err != nil {
		log.ErrorErr(log.CatStore, "failed to save snapshot", err, "key", g.key)
		return false
	}
	log.Debug(log.CatStore, "snapshot saved", "key", g.key, "tasks", len(s.Tasks), "bytes", len(data))
	return true
}

// Load reads the durable copy. It returns false when nothing is stored or the
// stored bytes cannot be parsed; corruption counts as "no prior data".
func (g *Gateway) Load() (*task.Snapshot, bool) {
	data, err := g.store.Get(g.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.ErrorErr(log.CatStore, "failed to read snapshot", err, "key", g.key)
		}
		return nil, false
	}

	var s task.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		log.ErrorErr(log.CatStore, "stored snapshot is corrupt, ignoring it", err, "key", g.key)
		return nil, false
	}
	if s.Tasks == nil {
		s.Tasks = []task.Task{}
	}
	return &s, true
}

// Clear deletes the durable copy. Clearing an empty store is not an error.
func (g *Gateway) Clear() error {
	if err := g.store.Delete(g.key); err != nil {
		log.ErrorErr(log.CatStore, "failed to clear snapshot", err, "key", g.key)
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	log.Info(log.CatStore, "snapshot cleared", "key", g.key)
	return nil
}
