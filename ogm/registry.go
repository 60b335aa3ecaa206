package ogm

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry holds the metadata of every registered node type, keyed both by
// Go type and by label. Types must be registered before a Manager or the
// hydration engine can work with them.
type Registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*NodeInfo
	byLabel map[string]*NodeInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType:  make(map[reflect.Type]*NodeInfo),
		byLabel: make(map[string]*NodeInfo),
	}
}

// defaultRegistry is the shared registry used by package-level helpers.
var defaultRegistry = NewRegistry()

// Register extracts and stores the metadata for the model type T in the
// package-level registry. It panics on a malformed model, so registration
// failures surface at startup rather than at query time.
func Register[T any]() *NodeInfo {
	info, err := defaultRegistry.Add(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		panic(fmt.Sprintf("ogm: register %T: %v", *new(T), err))
	}
	return info
}

// Add extracts and stores metadata for t. Re-adding the same type replaces
// the previous entry.
func (r *Registry) Add(t reflect.Type) (*NodeInfo, error) {
	info, err := ExtractNodeInfo(t)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[info.GoType] = info
	r.byLabel[info.Label] = info
	return info, nil
}

// Lookup retrieves metadata by Go type.
func (r *Registry) Lookup(t reflect.Type) (*NodeInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.byType[t]; ok {
		return info, nil
	}
	return nil, &NotRegisteredError{TypeName: t.Name()}
}

// LookupLabel retrieves metadata by label.
func (r *Registry) LookupLabel(label string) (*NodeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.byLabel[label]; ok {
		return info, nil
	}
	return nil, &NotRegisteredError{TypeName: label}
}

// All returns a snapshot of every registered type's metadata.
func (r *Registry) All() []*NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NodeInfo, 0, len(r.byType))
	for _, info := range r.byType {
		out = append(out, info)
	}
	return out
}
