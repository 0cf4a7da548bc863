package targets

import (
	"github.com/rotisserie/eris"
)

// Registry maps target names to descriptors and remembers the registration order.
// It is filled by the script loader before dispatching starts and is not safe for concurrent use.
type Registry struct {
	names   []string
	targets map[string]*Descriptor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		names:   make([]string, 0),
		targets: make(map[string]*Descriptor),
	}
}

// Register adds target. Registering a name twice replaces the earlier descriptor but keeps its
// position.
func (r *Registry) Register(target *Descriptor) error {
	if target == nil || target.Name == "" {
		return eris.New("targets need a name")
	}

	if target.Invoker == nil {
		return eris.Errorf("target %s has no invoker", target.Name)
	}

	seen := make(map[string]bool, len(target.Params))
	for _, param := range target.Params {
		if seen[param.Name] {
			return eris.Errorf("target %s declares the parameter %s twice", target.Name, param.Name)
		}
		seen[param.Name] = true
	}

	if _, present := r.targets[target.Name]; !present {
		r.names = append(r.names, target.Name)
	}
	r.targets[target.Name] = target
	return nil
}

// Lookup returns the target called name
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	target, ok := r.targets[name]
	return target, ok
}

// First returns the target that was registered first
func (r *Registry) First() (*Descriptor, bool) {
	if len(r.names) == 0 {
		return nil, false
	}
	return r.targets[r.names[0]], true
}

// Names lists all target names in registration order
func (r *Registry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

func (r *Registry) Len() int {
	return len(r.names)
}
