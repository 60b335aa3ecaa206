package cypher

import (
	"fmt"
	"sort"
	"strings"
)

// Connector joins the children of a filter expression node.
type Connector string

const (
	// AndConnector requires every child to match.
	AndConnector Connector = "AND"
	// OrConnector requires at least one child to match.
	OrConnector Connector = "OR"
)

// operatorMap translates condition-key suffixes into Cypher comparison,
// membership, and string-match operators. A key without a suffix compiles
// to equality.
var operatorMap = map[string]string{
	"gt":         ">",
	"gte":        ">=",
	"lt":         "<",
	"lte":        "<=",
	"in":         "IN",
	"contains":   "CONTAINS",
	"startswith": "STARTS WITH",
	"endswith":   "ENDS WITH",
	"ne":         "<>",
}

// predicate is a single field-level condition. The key may carry an
// operator suffix separated by a double underscore, e.g. "age__gt".
type predicate struct {
	key   string
	value any
}

// Q is an immutable tree of field predicates combined with AND/OR and an
// optional negation. Combining two expressions always produces a new tree;
// combining with an empty expression returns the other side unchanged.
//
// Example:
//
//	adults := cypher.Filter(map[string]any{"age__gte": 18})
//	named := cypher.Filter(map[string]any{"name__startswith": "A"})
//	q := adults.And(named.Not())
type Q struct {
	children  []any // each element is either *Q or predicate
	connector Connector
	negated   bool
}

// Filter creates a filter expression from condition keys and values.
// Conditions are sorted by key so that compiled output and parameter
// numbering are deterministic.
func Filter(conditions map[string]any) *Q {
	q := &Q{connector: AndConnector}
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.children = append(q.children, predicate{key: k, value: conditions[k]})
	}
	return q
}

// Empty reports whether the expression carries no predicates. An empty
// expression compiles to an empty fragment and acts as the identity for
// And and Or.
func (q *Q) Empty() bool {
	return q == nil || len(q.children) == 0
}

// And combines two filter expressions so both must match.
func (q *Q) And(other *Q) *Q {
	return q.combine(other, AndConnector)
}

// Or combines two filter expressions so either may match.
func (q *Q) Or(other *Q) *Q {
	return q.combine(other, OrConnector)
}

// Not returns a copy of the expression with its negation flag flipped.
func (q *Q) Not() *Q {
	if q == nil {
		return nil
	}
	clone := &Q{
		children:  append([]any(nil), q.children...),
		connector: q.connector,
		negated:   !q.negated,
	}
	return clone
}

func (q *Q) combine(other *Q, conn Connector) *Q {
	if q.Empty() {
		return other
	}
	if other.Empty() {
		return q
	}
	return &Q{connector: conn, children: []any{q, other}}
}

// ParamCounter hands out monotonically increasing parameter names within a
// single compile call, so nested sub-expressions never collide.
type ParamCounter struct {
	n int
}

// Next returns the next unique parameter name.
func (c *ParamCounter) Next() string {
	name := fmt.Sprintf("p_%d", c.n)
	c.n++
	return name
}

// Compile translates the expression into a Cypher boolean fragment plus a
// flat parameter map. An empty expression compiles to ("", empty map);
// callers must not emit a WHERE keyword for an empty fragment.
func (q *Q) Compile(alias string, counter *ParamCounter) (string, map[string]any) {
	params := make(map[string]any)
	if q.Empty() {
		return "", params
	}

	parts := make([]string, 0, len(q.children))
	for _, child := range q.children {
		switch c := child.(type) {
		case *Q:
			fragment, childParams := c.Compile(alias, counter)
			if fragment == "" {
				continue
			}
			parts = append(parts, "("+fragment+")")
			for k, v := range childParams {
				params[k] = v
			}
		case predicate:
			name := counter.Next()
			parts = append(parts, compileClause(alias, c.key, name))
			params[name] = c.value
		}
	}

	fragment := strings.Join(parts, " "+string(q.connector)+" ")
	if q.negated {
		return "NOT (" + fragment + ")", params
	}
	return fragment, params
}

// compileClause renders a single comparison, e.g. "node.`age` > $p_1".
func compileClause(alias, key, paramName string) string {
	field, suffix, found := strings.Cut(key, "__")
	op := "="
	if found {
		if mapped, ok := operatorMap[suffix]; ok {
			op = mapped
		} else {
			// Unknown suffix: treat the whole key as a field name.
			field = key
		}
	}
	return fmt.Sprintf("%s.%s %s $%s", alias, EscapeIdent(field), op, paramName)
}

// Where compiles a filter expression into a full WHERE clause. It returns
// an empty string for an empty expression so callers can splice the result
// directly into a query.
func Where(q *Q, alias string, counter *ParamCounter) (string, map[string]any) {
	fragment, params := q.Compile(alias, counter)
	if fragment == "" {
		return "", params
	}
	return "WHERE " + fragment, params
}
