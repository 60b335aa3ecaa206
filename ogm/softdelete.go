package ogm

import (
	"context"

	"github.com/neogm/neogm/cypher"
)

// deletedProp is the property soft deletion is tracked under. Models using
// the soft-delete manager should declare a matching field:
//
//	IsDeleted bool `node:"is_deleted"`
const deletedProp = "is_deleted"

// SoftDeleteManager wraps a Manager so matches see only live nodes and
// deletion flips a flag instead of removing the node. Hard deletion stays
// available through the embedded manager's Delete.
type SoftDeleteManager[T any] struct {
	*Manager[T]
}

// NewSoftDeleteManager creates the soft-deleting manager for T.
func NewSoftDeleteManager[T any](db *DB) *SoftDeleteManager[T] {
	return &SoftDeleteManager[T]{Manager: NewManager[T](db)}
}

// alive conjoins the live-nodes condition onto q.
func (m *SoftDeleteManager[T]) alive(q *cypher.Q) *cypher.Q {
	if q == nil {
		q = cypher.Filter(nil)
	}
	return q.And(cypher.Filter(map[string]any{deletedProp: false}))
}

// MatchOne returns the single live node matching q, or ErrNotFound.
func (m *SoftDeleteManager[T]) MatchOne(ctx context.Context, q *cypher.Q, opts ...QueryOption) (*T, error) {
	return m.Manager.MatchOne(ctx, m.alive(q), opts...)
}

// MatchAll returns every live node matching q.
func (m *SoftDeleteManager[T]) MatchAll(ctx context.Context, q *cypher.Q, opts ...QueryOption) ([]*T, error) {
	return m.Manager.MatchAll(ctx, m.alive(q), opts...)
}

// Count counts live nodes matching q.
func (m *SoftDeleteManager[T]) Count(ctx context.Context, q *cypher.Q) (int64, error) {
	return m.Manager.Count(ctx, m.alive(q))
}

// Delete marks inst deleted instead of removing its node.
func (m *SoftDeleteManager[T]) Delete(ctx context.Context, inst *T) error {
	node, err := m.asNode(inst)
	if err != nil {
		return err
	}
	if node.ElementID() == "" {
		return &UnpersistedNodeError{Label: m.info.Label}
	}
	if err := runPreDelete(ctx, inst); err != nil {
		return err
	}
	query := "MATCH (" + nodeAlias + ") WHERE elementId(" + nodeAlias + ") = $id " +
		"SET " + nodeAlias + ".`" + deletedProp + "` = true"
	if _, err := m.db.Run(ctx, query, map[string]any{"id": node.ElementID()}); err != nil {
		return err
	}
	if err := m.applyProps(inst, map[string]any{deletedProp: true}); err != nil {
		return err
	}
	return runPostDelete(ctx, inst)
}

// Restore clears the deleted flag on inst's node.
func (m *SoftDeleteManager[T]) Restore(ctx context.Context, inst *T) error {
	node, err := m.asNode(inst)
	if err != nil {
		return err
	}
	if node.ElementID() == "" {
		return &UnpersistedNodeError{Label: m.info.Label}
	}
	query := "MATCH (" + nodeAlias + ") WHERE elementId(" + nodeAlias + ") = $id " +
		"SET " + nodeAlias + ".`" + deletedProp + "` = false"
	if _, err := m.db.Run(ctx, query, map[string]any{"id": node.ElementID()}); err != nil {
		return err
	}
	return m.applyProps(inst, map[string]any{deletedProp: false})
}

// Deleted returns the soft-deleted nodes matching q.
func (m *SoftDeleteManager[T]) Deleted(ctx context.Context, q *cypher.Q) ([]*T, error) {
	if q == nil {
		q = cypher.Filter(nil)
	}
	return m.Manager.MatchAll(ctx, q.And(cypher.Filter(map[string]any{deletedProp: true})))
}
