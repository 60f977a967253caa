package source

import "fmt"

// Registry is an explicit, ordered collection of sources keyed by source key.
// Sources are registered at construction time; there is no implicit discovery.
type Registry struct {
	order   []string
	sources map[string]Source
}

func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a source. Keys must be unique across the registry.
func (r *Registry) Register(s Source) error {
	key := s.Key()
	if key == "" {
		return fmt.Errorf("source has empty key")
	}
	if _, exists := r.sources[key]; exists {
		return fmt.Errorf("source %q already registered", key)
	}
	r.sources[key] = s
	r.order = append(r.order, key)
	return nil
}

// Get returns the source for key, or nil when unknown.
func (r *Registry) Get(key string) Source {
	return r.sources[key]
}

// All returns sources in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.sources[key])
	}
	return out
}

// Select returns sources matching the given keys in registration order.
// An empty or nil key list selects every source.
func (r *Registry) Select(keys []string) []Source {
	if len(keys) == 0 {
		return r.All()
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	out := make([]Source, 0, len(keys))
	for _, key := range r.order {
		if _, ok := want[key]; ok {
			out = append(out, r.sources[key])
		}
	}
	return out
}
