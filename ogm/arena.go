package ogm

import (
	"fmt"
	"reflect"
	"sync"
)

// Managers holds constructed managers keyed by label so that code which
// cannot name a Go type at compile time, hook implementations in
// particular, can still reach another type's manager. Managers are added
// with AddManager and retrieved as any; callers assert to *Manager[T].
type Managers struct {
	db      *DB
	mu      sync.RWMutex
	byLabel map[string]any
}

// NewManagers creates an empty arena over db.
func NewManagers(db *DB) *Managers {
	return &Managers{db: db, byLabel: map[string]any{}}
}

// AddManager constructs the manager for T against the arena's session and
// stores it under T's label. Adding the same type twice replaces the
// previous entry.
func AddManager[T any](a *Managers) *Manager[T] {
	m := NewManager[T](a.db)
	a.mu.Lock()
	a.byLabel[m.info.Label] = m
	a.mu.Unlock()
	return m
}

// Lookup returns the manager stored under label, or an error naming the
// label when none was added.
func (a *Managers) Lookup(label string) (any, error) {
	a.mu.RLock()
	m, ok := a.byLabel[label]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ogm: no manager for label %q", label)
	}
	return m, nil
}

// ManagerFor returns the arena's manager for T, constructing and storing
// it on first use.
func ManagerFor[T any](a *Managers) *Manager[T] {
	info, err := a.db.reg.Lookup(reflect.TypeOf((*T)(nil)).Elem())
	if err == nil {
		a.mu.RLock()
		m, ok := a.byLabel[info.Label]
		a.mu.RUnlock()
		if ok {
			if typed, ok := m.(*Manager[T]); ok {
				return typed
			}
		}
	}
	return AddManager[T](a)
}
