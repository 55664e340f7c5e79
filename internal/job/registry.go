package job

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// Registry keeps a mapping from job names to their definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// Register adds or replaces a definition.
func (r *Registry) Register(def Definition) error {
	if err := def.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.defs == nil {
		r.defs = map[string]Definition{}
	}
	r.defs[def.Name] = def
	return nil
}

// Get returns a definition by name or ErrUnknownJob.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.defs[name]; ok {
		return def, nil
	}
	return Definition{}, Fatal(errors.Wrapf(ErrUnknownJob, "job %s", name))
}

// Definitions returns every registered definition ordered by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
