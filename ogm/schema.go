package ogm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neogm/neogm/cypher"
)

// SchemaStatements renders the index and constraint DDL for one node type.
// All statements are idempotent, so applying a schema twice is harmless.
func SchemaStatements(info *NodeInfo) []string {
	stmts := make([]string, 0, len(info.Meta.Indexes)+len(info.Meta.Constraints))

	for _, prop := range info.Meta.Indexes {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s)",
			schemaName("idx", info.Label, prop),
			cypher.EscapeIdent(info.Label),
			cypher.EscapeIdent(prop)))
	}

	for _, tuple := range info.Meta.Constraints {
		terms := make([]string, 0, len(tuple))
		for _, prop := range tuple {
			terms = append(terms, "n."+cypher.EscapeIdent(prop))
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE (%s) IS UNIQUE",
			schemaName("uniq", info.Label, tuple...),
			cypher.EscapeIdent(info.Label),
			strings.Join(terms, ", ")))
	}

	return stmts
}

func schemaName(kind, label string, props ...string) string {
	parts := append([]string{kind, strings.ToLower(label)}, props...)
	return strings.Join(parts, "_")
}

// ApplySchema creates the declared indexes and constraints of the managed
// type.
func (m *Manager[T]) ApplySchema(ctx context.Context) error {
	for _, stmt := range SchemaStatements(m.info) {
		if _, err := m.db.Run(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// ApplySchema creates the declared indexes and constraints of every
// registered type, in a stable label order.
func (db *DB) ApplySchema(ctx context.Context) error {
	infos := db.reg.All()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Label < infos[j].Label })
	for _, info := range infos {
		for _, stmt := range SchemaStatements(info) {
			if _, err := db.Run(ctx, stmt, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
