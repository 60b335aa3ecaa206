package ogm

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/neogm/neogm/cypher"
	"github.com/neogm/neogm/driver"
)

// nodeAlias is the alias every single-type statement binds its node to.
const nodeAlias = "node"

// Manager executes persistence operations for one registered node type.
type Manager[T any] struct {
	db   *DB
	info *NodeInfo
}

// NewManager creates the manager for T. T must have been registered; an
// unregistered type panics, since that is a wiring mistake rather than a
// runtime condition.
func NewManager[T any](db *DB) *Manager[T] {
	info, err := db.reg.Lookup(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		panic(fmt.Sprintf("ogm: %v", err))
	}
	return &Manager[T]{db: db, info: info}
}

// Info returns the metadata of the managed type.
func (m *Manager[T]) Info() *NodeInfo { return m.info }

// queryConfig collects the per-call knobs of match operations.
type queryConfig struct {
	orderBy  []string
	limit    int
	skip     int
	prefetch Prefetch
}

// QueryOption adjusts a single match operation.
type QueryOption func(*queryConfig)

// WithOrderBy sorts results by the given property names; a leading '-'
// sorts that property descending.
func WithOrderBy(fields ...string) QueryOption {
	return func(c *queryConfig) { c.orderBy = fields }
}

// WithLimit caps the number of returned nodes.
func WithLimit(n int) QueryOption {
	return func(c *queryConfig) { c.limit = n }
}

// WithSkip skips the first n matched nodes.
func WithSkip(n int) QueryOption {
	return func(c *queryConfig) { c.skip = n }
}

// WithPrefetch eagerly loads the given relationship subtree in the same
// round trip.
func WithPrefetch(p Prefetch) QueryOption {
	return func(c *queryConfig) { c.prefetch = p }
}

// Create persists inst as a new node carrying the type's full label set.
// The instance's UID is assigned when still zero, and its element id is
// set from the write result.
func (m *Manager[T]) Create(ctx context.Context, inst *T) error {
	node, err := m.asNode(inst)
	if err != nil {
		return err
	}
	if err := runValidate(inst); err != nil {
		return err
	}
	if err := runPreSave(ctx, inst, true); err != nil {
		return err
	}
	node.ensureUID()

	query := "CREATE (" + nodeAlias + cypher.Labels(m.info.Labels) + ") " +
		"SET " + nodeAlias + " = $props " +
		"RETURN elementId(" + nodeAlias + ") AS internal_id"
	rows, err := m.db.Run(ctx, query, map[string]any{"props": dehydrate(m.info, node)})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("ogm: create %s returned no row", m.info.Label)
	}
	if id, ok := rows[0]["internal_id"].(string); ok {
		node.setElementID(id)
	}
	return runPostSave(ctx, inst, true)
}

// MatchOne returns the single node matching q, or ErrNotFound. The filter
// must be non-empty; matching "any one node" is almost always a bug.
func (m *Manager[T]) MatchOne(ctx context.Context, q *cypher.Q, opts ...QueryOption) (*T, error) {
	if q == nil || q.Empty() {
		return nil, &EmptyFilterError{Operation: "MatchOne"}
	}
	opts = append(opts, WithLimit(1))
	all, err := m.MatchAll(ctx, q, opts...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

// MatchAll returns every node matching q, hydrated together with any
// prefetched relationship subtrees.
func (m *Manager[T]) MatchAll(ctx context.Context, q *cypher.Q, opts ...QueryOption) ([]*T, error) {
	cfg := queryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	query, params, err := m.buildMatch(q, cfg)
	if err != nil {
		return nil, err
	}
	rows, err := m.db.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		node, err := hydrateRecord(m.db.reg, m.info, row)
		if err != nil {
			return nil, err
		}
		typed, ok := any(node).(*T)
		if !ok {
			return nil, fmt.Errorf("ogm: hydrated %T, want %T", node, (*T)(nil))
		}
		out = append(out, typed)
	}
	return out, nil
}

func (m *Manager[T]) buildMatch(q *cypher.Q, cfg queryConfig) (string, map[string]any, error) {
	counter := &cypher.ParamCounter{}
	where, params := cypher.Where(q, nodeAlias, counter)
	proj, err := BuildProjection(m.db.reg, m.info, nodeAlias, cfg.prefetch)
	if err != nil {
		return "", nil, err
	}

	parts := []string{"MATCH " + cypher.NodePattern(nodeAlias, m.info.Label)}
	if where != "" {
		parts = append(parts, where)
	}
	parts = append(parts, "RETURN "+proj+" AS node, elementId("+nodeAlias+") AS internal_id")
	if ob := cypher.OrderBy(nodeAlias, cfg.orderBy); ob != "" {
		parts = append(parts, ob)
	}
	if cfg.skip > 0 {
		parts = append(parts, fmt.Sprintf("SKIP %d", cfg.skip))
	}
	if cfg.limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", cfg.limit))
	}
	return strings.Join(parts, " "), params, nil
}

// Update writes inst's current property values over its persisted node.
// The instance must have been created or matched first.
func (m *Manager[T]) Update(ctx context.Context, inst *T) error {
	node, err := m.asNode(inst)
	if err != nil {
		return err
	}
	if node.ElementID() == "" {
		return &UnpersistedNodeError{Label: m.info.Label}
	}
	if err := runValidate(inst); err != nil {
		return err
	}
	if err := runPreSave(ctx, inst, false); err != nil {
		return err
	}

	query := "MATCH (" + nodeAlias + ") WHERE elementId(" + nodeAlias + ") = $id " +
		"SET " + nodeAlias + " += $props " +
		"RETURN elementId(" + nodeAlias + ") AS internal_id"
	rows, err := m.db.Run(ctx, query, map[string]any{
		"id":    node.ElementID(),
		"props": dehydrate(m.info, node),
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return runPostSave(ctx, inst, false)
}

// Delete detaches and deletes inst's node.
func (m *Manager[T]) Delete(ctx context.Context, inst *T) error {
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
		"DETACH DELETE " + nodeAlias
	if _, err := m.db.Run(ctx, query, map[string]any{"id": node.ElementID()}); err != nil {
		return err
	}
	return runPostDelete(ctx, inst)
}

// DeleteWhere matches every node under q, runs each instance's delete
// hooks, and removes it, all inside one transaction (joining an ambient
// one when present). It returns the deleted count; an empty match set is
// zero, not an error. An empty filter is refused so a typo cannot wipe
// the label.
func (m *Manager[T]) DeleteWhere(ctx context.Context, q *cypher.Q) (int64, error) {
	if q == nil || q.Empty() {
		return 0, &EmptyFilterError{Operation: "DeleteWhere"}
	}
	var n int64
	err := m.db.Atomic(ctx, func(ctx context.Context) error {
		insts, err := m.MatchAll(ctx, q)
		if err != nil {
			return err
		}
		for _, inst := range insts {
			if err := m.Delete(ctx, inst); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateWhere matches every node under q, merges set into each hydrated
// instance, and writes it back with its save hooks, all inside one
// transaction. Like DeleteWhere it refuses an empty filter and returns
// the touched count.
func (m *Manager[T]) UpdateWhere(ctx context.Context, q *cypher.Q, set map[string]any) (int64, error) {
	if q == nil || q.Empty() {
		return 0, &EmptyFilterError{Operation: "UpdateWhere"}
	}
	var n int64
	err := m.db.Atomic(ctx, func(ctx context.Context) error {
		insts, err := m.MatchAll(ctx, q)
		if err != nil {
			return err
		}
		for _, inst := range insts {
			if err := m.applyProps(inst, set); err != nil {
				return err
			}
			if err := m.Update(ctx, inst); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of nodes matching q. A nil or empty filter
// counts the whole label.
func (m *Manager[T]) Count(ctx context.Context, q *cypher.Q) (int64, error) {
	if q == nil {
		q = cypher.Filter(nil)
	}
	counter := &cypher.ParamCounter{}
	where, params := cypher.Where(q, nodeAlias, counter)
	parts := []string{"MATCH " + cypher.NodePattern(nodeAlias, m.info.Label)}
	if where != "" {
		parts = append(parts, where)
	}
	parts = append(parts, "RETURN count("+nodeAlias+") AS value")
	rows, err := m.db.Run(ctx, strings.Join(parts, " "), params)
	if err != nil {
		return 0, err
	}
	return firstCount(rows), nil
}

// Aggregate evaluates aggregation expressions of the form "fn(property)",
// e.g. "avg(age)" or "collect(name)", over the nodes matching q. Bare
// property references are qualified with the node alias; references
// already carrying it pass through untouched. The result maps each
// expression's "fn_property" alias to its value.
func (m *Manager[T]) Aggregate(ctx context.Context, q *cypher.Q, exprs ...string) (map[string]any, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("ogm: aggregate requires at least one expression")
	}
	if q == nil {
		q = cypher.Filter(nil)
	}

	terms := make([]string, 0, len(exprs))
	for _, expr := range exprs {
		term, alias, err := aggregateTerm(expr)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term+" AS "+alias)
	}

	counter := &cypher.ParamCounter{}
	where, params := cypher.Where(q, nodeAlias, counter)
	parts := []string{"MATCH " + cypher.NodePattern(nodeAlias, m.info.Label)}
	if where != "" {
		parts = append(parts, where)
	}
	parts = append(parts, "RETURN "+strings.Join(terms, ", "))

	rows, err := m.db.Run(ctx, strings.Join(parts, " "), params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(rows[0]))
	for k, v := range rows[0] {
		out[k] = normalizeValue(v)
	}
	return out, nil
}

func aggregateTerm(expr string) (term, alias string, err error) {
	open := strings.IndexByte(expr, '(')
	if open <= 0 || !strings.HasSuffix(expr, ")") {
		return "", "", fmt.Errorf("ogm: malformed aggregate expression %q", expr)
	}
	fn := expr[:open]
	field := expr[open+1 : len(expr)-1]
	if field == "" || field == "*" {
		return fn + "(" + nodeAlias + ")", fn, nil
	}
	if strings.HasPrefix(field, nodeAlias+".") {
		name := strings.ReplaceAll(strings.TrimPrefix(field, nodeAlias+"."), ".", "_")
		return fn + "(" + field + ")", fn + "_" + name, nil
	}
	return fn + "(" + nodeAlias + "." + cypher.EscapeIdent(field) + ")",
		fn + "_" + field, nil
}

// GetOrCreate returns the node whose properties equal match, creating it
// from match plus defaults when absent. The lookup and the conditional
// create share one transaction. The second return value reports whether a
// create happened.
func (m *Manager[T]) GetOrCreate(ctx context.Context, match map[string]any, defaults map[string]any) (*T, bool, error) {
	var out *T
	created := false
	err := m.db.Atomic(ctx, func(ctx context.Context) error {
		existing, err := m.MatchOne(ctx, cypher.Filter(match))
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		inst, err := m.fromProps(match, defaults)
		if err != nil {
			return err
		}
		if err := m.Create(ctx, inst); err != nil {
			return err
		}
		out = inst
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// UpdateOrCreate updates the node whose properties equal match with
// updates, or creates it from both maps when absent. It returns the
// instance as written, so callers always see the post-write state. The
// second return value reports whether a create happened.
func (m *Manager[T]) UpdateOrCreate(ctx context.Context, match map[string]any, updates map[string]any) (*T, bool, error) {
	var out *T
	created := false
	err := m.db.Atomic(ctx, func(ctx context.Context) error {
		existing, err := m.MatchOne(ctx, cypher.Filter(match))
		if errors.Is(err, ErrNotFound) {
			inst, err := m.fromProps(match, updates)
			if err != nil {
				return err
			}
			if err := m.Create(ctx, inst); err != nil {
				return err
			}
			out = inst
			created = true
			return nil
		}
		if err != nil {
			return err
		}
		if err := m.applyProps(existing, updates); err != nil {
			return err
		}
		if err := m.Update(ctx, existing); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// BulkCreate persists all instances in one statement and assigns element
// ids in batch order. Per-instance hooks still run.
func (m *Manager[T]) BulkCreate(ctx context.Context, insts []*T) error {
	if len(insts) == 0 {
		return nil
	}
	rowsIn := make([]any, 0, len(insts))
	nodes := make([]Node, 0, len(insts))
	for _, inst := range insts {
		node, err := m.asNode(inst)
		if err != nil {
			return err
		}
		if err := runValidate(inst); err != nil {
			return err
		}
		if err := runPreSave(ctx, inst, true); err != nil {
			return err
		}
		node.ensureUID()
		nodes = append(nodes, node)
		rowsIn = append(rowsIn, dehydrate(m.info, node))
	}

	query := "UNWIND $rows AS row " +
		"CREATE (" + nodeAlias + cypher.Labels(m.info.Labels) + ") " +
		"SET " + nodeAlias + " = row " +
		"RETURN elementId(" + nodeAlias + ") AS internal_id"
	rows, err := m.db.Run(ctx, query, map[string]any{"rows": rowsIn})
	if err != nil {
		return err
	}
	if len(rows) != len(insts) {
		return fmt.Errorf("ogm: bulk create %s wrote %d of %d rows",
			m.info.Label, len(rows), len(insts))
	}
	for i, row := range rows {
		if id, ok := row["internal_id"].(string); ok {
			nodes[i].setElementID(id)
		}
	}
	for _, inst := range insts {
		if err := runPostSave(ctx, inst, true); err != nil {
			return err
		}
	}
	return nil
}

// BulkUpdate writes all instances' properties in one statement, matching
// by element id. Instances whose node has since disappeared are silently
// skipped; the returned count says how many were actually written.
func (m *Manager[T]) BulkUpdate(ctx context.Context, insts []*T) (int64, error) {
	if len(insts) == 0 {
		return 0, nil
	}
	rowsIn := make([]any, 0, len(insts))
	for _, inst := range insts {
		node, err := m.asNode(inst)
		if err != nil {
			return 0, err
		}
		if node.ElementID() == "" {
			return 0, &UnpersistedNodeError{Label: m.info.Label}
		}
		if err := runValidate(inst); err != nil {
			return 0, err
		}
		if err := runPreSave(ctx, inst, false); err != nil {
			return 0, err
		}
		rowsIn = append(rowsIn, map[string]any{
			"id":    node.ElementID(),
			"props": dehydrate(m.info, node),
		})
	}

	query := "UNWIND $rows AS row " +
		"MATCH (" + nodeAlias + ") WHERE elementId(" + nodeAlias + ") = row.id " +
		"SET " + nodeAlias + " += row.props " +
		"RETURN elementId(" + nodeAlias + ") AS internal_id"
	rows, err := m.db.Run(ctx, query, map[string]any{"rows": rowsIn})
	if err != nil {
		return 0, err
	}
	if len(rows) < len(insts) {
		m.db.log.WarnContext(ctx, "bulk update skipped vanished nodes",
			"label", m.info.Label, "skipped", len(insts)-len(rows))
	}
	for _, inst := range insts {
		if err := runPostSave(ctx, inst, false); err != nil {
			return int64(len(rows)), err
		}
	}
	return int64(len(rows)), nil
}

// ConnectIDs merges an edge of the named relationship between two
// persisted nodes addressed by element id, without hydrated instances.
func (m *Manager[T]) ConnectIDs(ctx context.Context, relName, fromID, toID string, props map[string]any) error {
	rel, err := m.relByIDs(relName, fromID, toID)
	if err != nil {
		return err
	}
	_, err = m.db.Run(ctx, relMergeQuery(rel), map[string]any{
		"a": fromID, "b": toID, "props": edgePropsToMap(props),
	})
	return err
}

// DisconnectIDs deletes the named relationship's edge between two
// persisted nodes addressed by element id.
func (m *Manager[T]) DisconnectIDs(ctx context.Context, relName, fromID, toID string) error {
	rel, err := m.relByIDs(relName, fromID, toID)
	if err != nil {
		return err
	}
	_, err = m.db.Run(ctx, relDeleteQuery(rel), map[string]any{"a": fromID, "b": toID})
	return err
}

// UpdateRelationshipIDs merges props into the existing edge between two
// persisted nodes addressed by element id. A missing edge reports
// ErrNotFound.
func (m *Manager[T]) UpdateRelationshipIDs(ctx context.Context, relName, fromID, toID string, props map[string]any) error {
	rel, err := m.relByIDs(relName, fromID, toID)
	if err != nil {
		return err
	}
	rows, err := m.db.Run(ctx, relSetQuery(rel), map[string]any{
		"a": fromID, "b": toID, "props": edgePropsToMap(props),
	})
	if err != nil {
		return err
	}
	if firstCount(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Manager[T]) relByIDs(relName, fromID, toID string) (RelInfo, error) {
	rel, ok := m.info.RelByName(relName)
	if !ok {
		return RelInfo{}, &UnknownRelationshipError{Label: m.info.Label, Name: relName}
	}
	if fromID == "" || toID == "" {
		return RelInfo{}, &UnpersistedNodeError{Label: m.info.Label}
	}
	return rel, nil
}

// Rel returns the access manager for one of the managed type's declared
// relationships on inst.
func (m *Manager[T]) Rel(inst *T, name string) (*RelationManager, error) {
	node, err := m.asNode(inst)
	if err != nil {
		return nil, err
	}
	rel, ok := m.info.RelByName(name)
	if !ok {
		return nil, &UnknownRelationshipError{Label: m.info.Label, Name: name}
	}
	return &RelationManager{db: m.db, owner: node, ownerInfo: m.info, rel: rel}, nil
}

func (m *Manager[T]) asNode(inst *T) (Node, error) {
	node, ok := any(inst).(Node)
	if !ok {
		return nil, &NotRegisteredError{TypeName: m.info.GoType.Name()}
	}
	return node, nil
}

// fromProps builds a fresh instance from property maps; later maps win.
func (m *Manager[T]) fromProps(maps ...map[string]any) (*T, error) {
	inst := new(T)
	for _, props := range maps {
		if err := m.applyProps(inst, props); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// applyProps copies graph-property values onto the instance's fields.
// Unknown property names report an error rather than being dropped.
func (m *Manager[T]) applyProps(inst *T, props map[string]any) error {
	elem := reflect.ValueOf(inst).Elem()
	for name, value := range props {
		f, ok := m.info.FieldByProp(name)
		if !ok {
			return fmt.Errorf("ogm: type %s has no property %q", m.info.Label, name)
		}
		if err := coerceValue(elem.FieldByIndex(f.fieldIndex), normalizeValue(value)); err != nil {
			return &HydrationError{Label: m.info.Label, Field: name, Err: err}
		}
	}
	return nil
}

func firstCount(rows []driver.Record) int64 {
	if len(rows) == 0 {
		return 0
	}
	switch v := rows[0]["value"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
