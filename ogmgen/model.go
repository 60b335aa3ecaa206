// Package ogmgen parses graph schema files and generates Go model code
// from them.
package ogmgen

import "fmt"

// Schema holds all node definitions extracted from a schema file.
type Schema struct {
	// Nodes is a list of all node definitions in the schema.
	Nodes []NodeSpec
}

// NodeSpec describes one node definition.
type NodeSpec struct {
	// Name is the node label.
	Name string
	// Parent is the label of the parent node type, if this is a subtype.
	Parent string
	// Fields is a list of the node's own property fields.
	Fields []FieldSpec
	// Rels is a list of the node's own relationship declarations.
	Rels []RelSpec
}

// FieldSpec describes a single property field.
type FieldSpec struct {
	// Name is the graph property name.
	Name string
	// ValueType is the schema value type (string, int, float, bool,
	// datetime, duration, uuid).
	ValueType string
	// Optional indicates the property may be absent.
	Optional bool
	// Index requests a single-property index.
	Index bool
	// Unique requests a uniqueness constraint.
	Unique bool
}

// RelSpec describes a relationship declaration.
type RelSpec struct {
	// Name is the relationship name.
	Name string
	// Type is the graph edge type.
	Type string
	// Direction is "out", "in", or "undirected".
	Direction string
	// Target is the label of the related node type.
	Target string
	// Props lists the edge's property fields; empty means an untyped
	// edge.
	Props []FieldSpec
}

// valueTypes maps schema value types to Go types.
var valueTypes = map[string]string{
	"string":   "string",
	"int":      "int64",
	"float":    "float64",
	"bool":     "bool",
	"datetime": "time.Time",
	"duration": "time.Duration",
	"uuid":     "uuid.UUID",
}

// Validate checks cross-definition consistency: parent references must
// resolve and every value type must be known.
func (s *Schema) Validate() error {
	byName := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if byName[n.Name] {
			return fmt.Errorf("node %q defined twice", n.Name)
		}
		byName[n.Name] = true
	}

	for _, n := range s.Nodes {
		if n.Parent != "" && !byName[n.Parent] {
			return fmt.Errorf("node %q: unknown parent %q", n.Name, n.Parent)
		}
		for _, f := range n.Fields {
			if _, ok := valueTypes[f.ValueType]; !ok {
				return fmt.Errorf("node %q: field %q has unknown type %q", n.Name, f.Name, f.ValueType)
			}
		}
		for _, r := range n.Rels {
			if !byName[r.Target] {
				return fmt.Errorf("node %q: relationship %q targets unknown node %q", n.Name, r.Name, r.Target)
			}
			for _, f := range r.Props {
				if _, ok := valueTypes[f.ValueType]; !ok {
					return fmt.Errorf("node %q: edge property %q has unknown type %q", n.Name, f.Name, f.ValueType)
				}
			}
		}
	}
	return nil
}
