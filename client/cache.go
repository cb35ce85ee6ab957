package client

import (
	"time"

	"github.com/mdzio/go-natnet/model"
)

// ModelSource delivers model definitions. *CommandChannel implements it.
type ModelSource interface {
	RequestModelDefinition() error
	AwaitModelDefinition(timeout time.Duration) (*model.ModelDefinition, error)
}

// ModelCache is an immutable snapshot of the rigid body names. A refresh
// creates a new ModelCache. The zero value is an empty cache, which needs a
// refresh.
type ModelCache struct {
	names     map[uint32]string
	refreshed time.Time
}

// NewModelCache builds a cache from the rigid bodies of a model definition.
func NewModelCache(def *model.ModelDefinition, refreshed time.Time) *ModelCache {
	rbs := def.RigidBodies()
	names := make(map[uint32]string, len(rbs))
	for _, rb := range rbs {
		names[rb.ID] = rb.Name
	}
	return &ModelCache{names: names, refreshed: refreshed}
}

// Name returns the name of a rigid body.
func (m *ModelCache) Name(id uint32) (string, bool) {
	if m == nil {
		return "", false
	}
	n, ok := m.names[id]
	return n, ok
}

// Names returns a copy of the id to name mapping.
func (m *ModelCache) Names() map[uint32]string {
	r := make(map[uint32]string)
	if m == nil {
		return r
	}
	for id, n := range m.names {
		r[id] = n
	}
	return r
}

// Len returns the number of known rigid bodies.
func (m *ModelCache) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// LastRefreshed returns the time of the last successful refresh.
func (m *ModelCache) LastRefreshed() time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.refreshed
}

// NeedsRefresh reports whether the cache is empty or older than interval.
func (m *ModelCache) NeedsRefresh(now time.Time, interval time.Duration) bool {
	return m.Len() == 0 || now.Sub(m.LastRefreshed()) > interval
}

// Refresh requests the model definition and returns a new cache. On failure
// the receiver is returned unchanged together with the error.
func (m *ModelCache) Refresh(src ModelSource, timeout time.Duration) (*ModelCache, error) {
	if err := src.RequestModelDefinition(); err != nil {
		return m, err
	}
	def, err := src.AwaitModelDefinition(timeout)
	if err != nil {
		return m, err
	}
	return NewModelCache(def, time.Now()), nil
}
