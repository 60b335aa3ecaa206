// Package ogm provides reflection-based mapping between Go structs and
// graph nodes.
package ogm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Node is the marker interface for mapped node types. Structs that map to
// graph nodes must satisfy this interface, typically by embedding BaseNode.
type Node interface {
	node()
	// ElementID returns the backend-assigned node identifier. It is empty
	// until the instance has survived a database round trip.
	ElementID() string
	setElementID(id string)
	ensureUID()
	nodeUID() uuid.UUID
}

// BaseNode is an embeddable base type for all Go structs mapping to graph
// nodes. It carries the application-level unique identifier and the
// backend-internal one.
//
// Example usage:
//
//	type Person struct {
//	    ogm.BaseNode
//	    Name string `node:"name,index"`
//	}
type BaseNode struct {
	// UID identifies the node at the application level. It is assigned
	// automatically on create when left at its zero value.
	UID uuid.UUID `node:"uid"`

	elementID string
}

func (BaseNode) node() {}

// ElementID returns the backend-internal node identifier.
func (n *BaseNode) ElementID() string { return n.elementID }

// setElementID assigns the backend identifier. Once set it is never
// reassigned; repointing an instance at a different record is a
// programming error and panics. Re-setting the same id is a no-op.
func (n *BaseNode) setElementID(id string) {
	if n.elementID != "" && n.elementID != id {
		panic(fmt.Sprintf("ogm: element id already set to %q, refusing %q", n.elementID, id))
	}
	n.elementID = id
}

func (n *BaseNode) ensureUID() {
	if n.UID == uuid.Nil {
		n.UID = uuid.New()
	}
}

func (n *BaseNode) nodeUID() uuid.UUID { return n.UID }

// Validator is implemented by models that check their own field values.
// It runs before every save, in place of external schema validation.
type Validator interface {
	Validate() error
}

// PreSaver is implemented by models that need to run logic before a create
// or update is written.
type PreSaver interface {
	PreSave(ctx context.Context, creating bool) error
}

// PostSaver is implemented by models that need to run logic after a create
// or update has been written.
type PostSaver interface {
	PostSave(ctx context.Context, creating bool) error
}

// PreDeleter is implemented by models that need to run logic before they
// are deleted.
type PreDeleter interface {
	PreDelete(ctx context.Context) error
}

// PostDeleter is implemented by models that need to run logic after they
// have been deleted.
type PostDeleter interface {
	PostDelete(ctx context.Context) error
}

// UniqueTogether is implemented by models declaring composite uniqueness
// constraints over field tuples, named by property name.
type UniqueTogether interface {
	UniqueTogether() [][]string
}

func runValidate(inst any) error {
	if v, ok := inst.(Validator); ok {
		return v.Validate()
	}
	return nil
}

func runPreSave(ctx context.Context, inst any, creating bool) error {
	if h, ok := inst.(PreSaver); ok {
		return h.PreSave(ctx, creating)
	}
	return nil
}

func runPostSave(ctx context.Context, inst any, creating bool) error {
	if h, ok := inst.(PostSaver); ok {
		return h.PostSave(ctx, creating)
	}
	return nil
}

func runPreDelete(ctx context.Context, inst any) error {
	if h, ok := inst.(PreDeleter); ok {
		return h.PreDelete(ctx)
	}
	return nil
}

func runPostDelete(ctx context.Context, inst any) error {
	if h, ok := inst.(PostDeleter); ok {
		return h.PostDelete(ctx)
	}
	return nil
}
