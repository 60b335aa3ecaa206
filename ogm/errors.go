package ogm

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNestedTransaction is returned when a managed transaction is opened
// inside a context that already carries one.
var ErrNestedTransaction = errors.New("ogm: transaction already active in context")

// ErrNotFound is returned when a single-entity lookup matches nothing.
var ErrNotFound = errors.New("ogm: node not found")

// NotRegisteredError indicates a model type was used before being
// registered.
type NotRegisteredError struct {
	TypeName string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("ogm: type %q is not registered", e.TypeName)
}

// EmptyFilterError indicates a destructive bulk operation was called with
// an empty filter, which would have applied to every node of the label.
type EmptyFilterError struct {
	Operation string
}

func (e *EmptyFilterError) Error() string {
	return fmt.Sprintf("ogm: %s requires a non-empty filter", e.Operation)
}

// UnknownRelationshipError indicates a relationship name that the node
// type does not declare.
type UnknownRelationshipError struct {
	Label string
	Name  string
}

func (e *UnknownRelationshipError) Error() string {
	return fmt.Sprintf("ogm: type %q has no relationship %q", e.Label, e.Name)
}

// UnpersistedNodeError indicates a graph operation on a node that has no
// element id yet, i.e. was never saved.
type UnpersistedNodeError struct {
	Label string
}

func (e *UnpersistedNodeError) Error() string {
	return fmt.Sprintf("ogm: %s node has not been persisted", e.Label)
}

// MalformedRecordError indicates a result record that does not have the
// shape the hydration engine expects.
type MalformedRecordError struct {
	Keys []string
}

func (e *MalformedRecordError) Error() string {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("ogm: malformed record, keys %v", keys)
}

// HydrationError wraps a failure while mapping a record tree onto a model
// instance.
type HydrationError struct {
	Label string
	Field string
	Err   error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("ogm: hydrating %s.%s: %v", e.Label, e.Field, e.Err)
}

func (e *HydrationError) Unwrap() error { return e.Err }
