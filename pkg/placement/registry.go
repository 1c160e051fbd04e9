package placement

import "sync"

// ClassRegistry maps object class names to stable integer IDs. Names are
// appended in discovery order; an existing name keeps its first index. Safe
// for concurrent use.
type ClassRegistry struct {
	mu    sync.Mutex
	names []string
	index map[string]int
}

// NewClassRegistry creates a registry preloaded with the given names, in order
func NewClassRegistry(names []string) *ClassRegistry {
	r := &ClassRegistry{index: make(map[string]int, len(names))}
	for _, n := range names {
		if _, ok := r.index[n]; ok {
			continue
		}
		r.index[n] = len(r.names)
		r.names = append(r.names, n)
	}
	return r
}

// Add returns the class ID for name, appending it if absent
func (r *ClassRegistry) Add(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.index[name]; ok {
		return id
	}
	id := len(r.names)
	r.index[name] = id
	r.names = append(r.names, name)
	return id
}

// Names returns a snapshot of the registered names in ID order
func (r *ClassRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// Len returns the number of registered classes
func (r *ClassRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}
