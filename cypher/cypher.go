// Package cypher provides primitives for building parameterized Cypher
// query text.
//
// It decouples query construction from string formatting: the ogm package
// composes these helpers into full statements, and nothing in this package
// performs I/O.
package cypher

import (
	"fmt"
	"strings"
)

// Direction specifies how a relationship pattern is traversed relative to
// the node on its left-hand side.
type Direction int

const (
	// Undirected matches the relationship regardless of direction.
	Undirected Direction = iota
	// Outgoing matches relationships pointing away from the current node.
	Outgoing
	// Incoming matches relationships pointing at the current node.
	Incoming
)

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "out"
	case Incoming:
		return "in"
	default:
		return "undirected"
	}
}

// ParseDirection converts a direction name ("in", "out", "undirected" or
// empty) into a Direction. Unknown names report an error.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "out", "outgoing":
		return Outgoing, nil
	case "in", "incoming":
		return Incoming, nil
	case "", "undirected", "both":
		return Undirected, nil
	default:
		return Undirected, fmt.Errorf("cypher: unknown direction %q", s)
	}
}

// EscapeIdent wraps an identifier in backticks so that property names,
// labels, and relationship types survive arbitrary characters. Embedded
// backticks are doubled.
func EscapeIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Labels renders a label set as a node-pattern label expression, e.g.
// ":`Employee`:`Person`". An empty set renders as an empty string.
func Labels(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(":")
		b.WriteString(EscapeIdent(l))
	}
	return b.String()
}

// NodePattern renders a node pattern with an alias and an optional label,
// e.g. "(company:`Company`)".
func NodePattern(alias, label string) string {
	if label == "" {
		return "(" + alias + ")"
	}
	return "(" + alias + ":" + EscapeIdent(label) + ")"
}

// RelPattern renders a relationship pattern between two node patterns,
// honoring the traversal direction, e.g. "-[r:`WORK_AT`]->".
func RelPattern(relAlias, relType string, dir Direction) string {
	body := "[" + relAlias
	if relType != "" {
		body += ":" + EscapeIdent(relType)
	}
	body += "]"

	switch dir {
	case Incoming:
		return "<-" + body + "-"
	case Outgoing:
		return "-" + body + "->"
	default:
		return "-" + body + "-"
	}
}

// OrderBy renders an ORDER BY clause for the given alias. A leading '-' on
// a field name sorts descending. An empty field list renders as an empty
// string.
func OrderBy(alias string, fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			clauses = append(clauses, alias+"."+EscapeIdent(f[1:])+" DESC")
		} else {
			clauses = append(clauses, alias+"."+EscapeIdent(f)+" ASC")
		}
	}
	return "ORDER BY " + strings.Join(clauses, ", ")
}
