package supervisor

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the names of recordings currently on air so two
// overlapping recordings never write to the same files.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

// Claim reserves a name for the duration of a recording. When the name is
// already on air, a short unique suffix is appended. The returned release
// function must be called once the recording ends.
func (r *Registry) Claim(name string) (string, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := name
	if _, taken := r.active[claimed]; taken {
		suffix := strings.Split(uuid.NewString(), "-")[0]
		claimed = name + "-" + suffix
	}
	r.active[claimed] = struct{}{}
	return claimed, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.active, claimed)
	}
}

// Active reports whether a name is currently claimed.
func (r *Registry) Active(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[name]
	return ok
}
