// Package ext wraps commonly used server-side procedure libraries behind
// typed Go APIs. Everything here degrades to an error at call time when
// the procedures are not installed on the backend.
package ext

import (
	"context"
	"fmt"

	"github.com/neogm/neogm/driver"
	"github.com/neogm/neogm/ogm"
)

// APOC exposes a subset of the APOC procedure library.
type APOC struct {
	db *ogm.DB
}

// NewAPOC creates the APOC wrapper over a session.
func NewAPOC(db *ogm.DB) *APOC {
	return &APOC{db: db}
}

// Version returns the installed APOC version string.
func (a *APOC) Version(ctx context.Context) (string, error) {
	rows, err := a.db.Run(ctx, "RETURN apoc.version() AS value", nil)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("ext: apoc.version returned no row")
	}
	v, ok := rows[0]["value"].(string)
	if !ok {
		return "", fmt.Errorf("ext: apoc.version returned %T", rows[0]["value"])
	}
	return v, nil
}

// SubgraphAll expands the full subgraph reachable from the node with the
// given element id, up to maxLevel hops. A maxLevel of -1 leaves the depth
// unbounded.
func (a *APOC) SubgraphAll(ctx context.Context, elementID string, maxLevel int) ([]driver.Record, error) {
	query := "MATCH (n) WHERE elementId(n) = $id " +
		"CALL apoc.path.subgraphAll(n, {maxLevel: $maxLevel}) " +
		"YIELD nodes, relationships " +
		"RETURN nodes, relationships"
	return a.db.Run(ctx, query, map[string]any{"id": elementID, "maxLevel": maxLevel})
}

// SetTTL schedules the node with the given element id for expiry after ttl
// seconds, using apoc.ttl.
func (a *APOC) SetTTL(ctx context.Context, elementID string, ttlSeconds int64) error {
	query := "MATCH (n) WHERE elementId(n) = $id " +
		"CALL apoc.ttl.expireIn(n, $ttl, 's') RETURN count(n) AS value"
	_, err := a.db.Run(ctx, query, map[string]any{"id": elementID, "ttl": ttlSeconds})
	return err
}

// PeriodicIterate runs action for every row produced by cursor in batches
// of batchSize, through apoc.periodic.iterate. It returns the batch and
// total counts reported by the procedure.
func (a *APOC) PeriodicIterate(ctx context.Context, cursor, action string, batchSize int) (batches, total int64, err error) {
	query := "CALL apoc.periodic.iterate($cursor, $action, {batchSize: $batchSize}) " +
		"YIELD batches, total RETURN batches, total"
	rows, err := a.db.Run(ctx, query, map[string]any{
		"cursor": cursor, "action": action, "batchSize": batchSize,
	})
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("ext: apoc.periodic.iterate returned no row")
	}
	batches, _ = rows[0]["batches"].(int64)
	total, _ = rows[0]["total"].(int64)
	return batches, total, nil
}

// TriggerInstall registers a server-side trigger that runs statement on
// the events named by selector, for example {"phase": "afterAsync"}.
func (a *APOC) TriggerInstall(ctx context.Context, name, statement string, selector map[string]any) error {
	if selector == nil {
		selector = map[string]any{}
	}
	query := "CALL apoc.trigger.install('neo4j', $name, $statement, $selector, {})"
	_, err := a.db.Run(ctx, query, map[string]any{
		"name": name, "statement": statement, "selector": selector,
	})
	return err
}

// TriggerDrop removes the named trigger.
func (a *APOC) TriggerDrop(ctx context.Context, name string) error {
	_, err := a.db.Run(ctx, "CALL apoc.trigger.drop('neo4j', $name)",
		map[string]any{"name": name})
	return err
}

// TriggerDropAll removes every installed trigger.
func (a *APOC) TriggerDropAll(ctx context.Context) error {
	_, err := a.db.Run(ctx, "CALL apoc.trigger.dropAll('neo4j')", nil)
	return err
}

// TriggerList returns the installed triggers as raw procedure rows.
func (a *APOC) TriggerList(ctx context.Context) ([]driver.Record, error) {
	return a.db.Run(ctx, "CALL apoc.trigger.list()", nil)
}

// RunJSONExport streams the nodes of one label as JSON through
// apoc.export.json.query, returning the raw export rows.
func (a *APOC) RunJSONExport(ctx context.Context, label string) ([]driver.Record, error) {
	inner := fmt.Sprintf("MATCH (n:`%s`) RETURN n", label)
	query := "CALL apoc.export.json.query($inner, null, {stream: true}) " +
		"YIELD data RETURN data"
	return a.db.Run(ctx, query, map[string]any{"inner": inner})
}
