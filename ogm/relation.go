package ogm

import (
	"context"
	"reflect"
	"strings"

	"github.com/neogm/neogm/cypher"
)

// RelationManager gives access to one declared relationship of one node
// instance: reading the cached pairs, fetching them from the graph, and
// connecting or disconnecting peers. Obtain one through Manager.Rel.
type RelationManager struct {
	db        *DB
	owner     Node
	ownerInfo *NodeInfo
	rel       RelInfo
}

// Name returns the declared relationship name.
func (rm *RelationManager) Name() string { return rm.rel.Name }

// Cached returns the instance's cached pairs without touching the graph.
// The second value is false when the relationship was never loaded, which
// is distinct from loaded-and-empty.
func (rm *RelationManager) Cached() ([]EdgePair, bool) {
	return relSlotOf(rm.owner, rm.rel).cachedPairs()
}

// Fetch loads the related nodes and edge properties from the graph and
// replaces the instance's cache slot with the result.
func (rm *RelationManager) Fetch(ctx context.Context) ([]EdgePair, error) {
	if rm.owner.ElementID() == "" {
		return nil, &UnpersistedNodeError{Label: rm.ownerInfo.Label}
	}
	target, err := rm.db.reg.Lookup(rm.rel.Target)
	if err != nil {
		return nil, err
	}
	proj, err := BuildProjection(rm.db.reg, target, "peer", nil)
	if err != nil {
		return nil, err
	}

	query := strings.Join([]string{
		"MATCH (" + nodeAlias + ") WHERE elementId(" + nodeAlias + ") = $id",
		"MATCH (" + nodeAlias + ")" +
			cypher.RelPattern("r", rm.rel.Type, rm.rel.Direction) +
			cypher.NodePattern("peer", target.Label),
		"RETURN " + proj + " AS node, elementId(peer) AS internal_id, r { .* } AS rel",
	}, " ")
	rows, err := rm.db.Run(ctx, query, map[string]any{"id": rm.owner.ElementID()})
	if err != nil {
		return nil, err
	}

	pairs := make([]EdgePair, 0, len(rows))
	for _, row := range rows {
		node, err := hydrateRecord(rm.db.reg, target, row)
		if err != nil {
			return nil, err
		}
		relMap, _ := row["rel"].(map[string]any)
		props, err := buildEdgeProps(rm.rel, relMap)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, EdgePair{Node: node, Props: props})
	}
	if err := relSlotOf(rm.owner, rm.rel).storePairs(pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// All returns the cached pairs, fetching them first when the slot has
// never been loaded.
func (rm *RelationManager) All(ctx context.Context) ([]EdgePair, error) {
	if pairs, ok := rm.Cached(); ok {
		return pairs, nil
	}
	return rm.Fetch(ctx)
}

// Connect merges an edge from the instance to peer, carrying props as edge
// properties, and invalidates the cache slot. Both endpoints must be
// persisted. Merging an already existing edge just rewrites its
// properties.
func (rm *RelationManager) Connect(ctx context.Context, peer Node, props any) error {
	if err := rm.checkEndpoints(peer); err != nil {
		return err
	}
	_, err := rm.db.Run(ctx, relMergeQuery(rm.rel), map[string]any{
		"a":     rm.owner.ElementID(),
		"b":     peer.ElementID(),
		"props": edgePropsToMap(props),
	})
	if err != nil {
		return err
	}
	relSlotOf(rm.owner, rm.rel).invalidate()
	return nil
}

// Disconnect deletes the edge between the instance and peer, if any, and
// invalidates the cache slot.
func (rm *RelationManager) Disconnect(ctx context.Context, peer Node) error {
	if err := rm.checkEndpoints(peer); err != nil {
		return err
	}
	_, err := rm.db.Run(ctx, relDeleteQuery(rm.rel), map[string]any{
		"a": rm.owner.ElementID(),
		"b": peer.ElementID(),
	})
	if err != nil {
		return err
	}
	relSlotOf(rm.owner, rm.rel).invalidate()
	return nil
}

// DisconnectAll deletes every edge of this relationship from the instance
// and invalidates the cache slot.
func (rm *RelationManager) DisconnectAll(ctx context.Context) error {
	if rm.owner.ElementID() == "" {
		return &UnpersistedNodeError{Label: rm.ownerInfo.Label}
	}
	query := strings.Join([]string{
		"MATCH (a)" + cypher.RelPattern("r", rm.rel.Type, rm.rel.Direction) + "()",
		"WHERE elementId(a) = $a",
		"DELETE r",
	}, " ")
	if _, err := rm.db.Run(ctx, query, map[string]any{"a": rm.owner.ElementID()}); err != nil {
		return err
	}
	relSlotOf(rm.owner, rm.rel).invalidate()
	return nil
}

// UpdateRelationship merges props into the existing edge between the
// instance and peer. A missing edge reports ErrNotFound.
func (rm *RelationManager) UpdateRelationship(ctx context.Context, peer Node, props any) error {
	if err := rm.checkEndpoints(peer); err != nil {
		return err
	}
	rows, err := rm.db.Run(ctx, relSetQuery(rm.rel), map[string]any{
		"a":     rm.owner.ElementID(),
		"b":     peer.ElementID(),
		"props": edgePropsToMap(props),
	})
	if err != nil {
		return err
	}
	if firstCount(rows) == 0 {
		return ErrNotFound
	}
	relSlotOf(rm.owner, rm.rel).invalidate()
	return nil
}

func (rm *RelationManager) checkEndpoints(peer Node) error {
	if rm.owner.ElementID() == "" {
		return &UnpersistedNodeError{Label: rm.ownerInfo.Label}
	}
	if peer == nil || peer.ElementID() == "" {
		return &UnpersistedNodeError{Label: rm.rel.Target.Name()}
	}
	return nil
}

// writeDirection resolves the direction used when creating edges: an
// undirected declaration still has to pick an arrow for MERGE.
func writeDirection(rel RelInfo) cypher.Direction {
	if rel.Direction == cypher.Undirected {
		return cypher.Outgoing
	}
	return rel.Direction
}

// relMergeQuery builds the connect statement between two nodes identified
// by element id.
func relMergeQuery(rel RelInfo) string {
	return strings.Join([]string{
		"MATCH (a), (b)",
		"WHERE elementId(a) = $a AND elementId(b) = $b",
		"MERGE (a)" + cypher.RelPattern("r", rel.Type, writeDirection(rel)) + "(b)",
		"SET r += $props",
	}, " ")
}

// relDeleteQuery builds the disconnect statement between two nodes
// identified by element id.
func relDeleteQuery(rel RelInfo) string {
	return strings.Join([]string{
		"MATCH (a)" + cypher.RelPattern("r", rel.Type, rel.Direction) + "(b)",
		"WHERE elementId(a) = $a AND elementId(b) = $b",
		"DELETE r",
	}, " ")
}

// relSetQuery builds the edge-property update statement between two nodes
// identified by element id.
func relSetQuery(rel RelInfo) string {
	return strings.Join([]string{
		"MATCH (a)" + cypher.RelPattern("r", rel.Type, rel.Direction) + "(b)",
		"WHERE elementId(a) = $a AND elementId(b) = $b",
		"SET r += $props",
		"RETURN count(r) AS value",
	}, " ")
}

// edgePropsToMap flattens edge properties for the wire: nil becomes an
// empty map, maps pass through, schema structs are read field by field.
func edgePropsToMap(props any) map[string]any {
	switch p := props.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return p
	}

	v := reflect.ValueOf(props)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return map[string]any{}
	}
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.ToLower(field.Name)
		if tag, ok := field.Tag.Lookup("node"); ok {
			parsed, err := ParseFieldTag(tag)
			if err != nil || parsed.Skip {
				continue
			}
			name = parsed.Name
		}
		out[name] = dehydrateValue(v.Field(i).Interface())
	}
	return out
}
