// Package ogm provides parsing and representation of 'node' and 'rel'
// struct tags.
package ogm

import (
	"fmt"
	"strings"

	"github.com/neogm/neogm/cypher"
)

// FieldTag is the structured representation of a parsed `node` struct tag.
type FieldTag struct {
	// Name is the graph property name.
	Name string
	// Index requests a single-property index on this field.
	Index bool
	// Unique requests a uniqueness constraint on this field.
	Unique bool
	// Skip indicates the field should be ignored by the mapper.
	Skip bool
}

// ParseFieldTag parses the content of a `node` struct tag. The first
// segment is the property name; remaining segments are the options
// "index", "unique", and "-".
func ParseFieldTag(tag string) (FieldTag, error) {
	if tag == "" || tag == "-" {
		return FieldTag{Skip: true}, nil
	}

	parts := strings.Split(tag, ",")
	ft := FieldTag{Name: strings.TrimSpace(parts[0])}
	if ft.Name == "" {
		return FieldTag{}, fmt.Errorf("node tag is missing a property name")
	}

	for _, part := range parts[1:] {
		switch strings.TrimSpace(part) {
		case "index":
			ft.Index = true
		case "unique":
			ft.Unique = true
		case "-":
			ft.Skip = true
		case "":
		default:
			return FieldTag{}, fmt.Errorf("unknown node tag option %q", part)
		}
	}
	return ft, nil
}

// RelTag is the structured representation of a parsed `rel` struct tag.
type RelTag struct {
	// Name is the relationship name used in prefetch specifications and
	// projection keys.
	Name string
	// Type is the graph edge type, e.g. "WORK_AT".
	Type string
	// Direction is the declared traversal direction.
	Direction cypher.Direction
}

// ParseRelTag parses the content of a `rel` struct tag. The first segment
// is the relationship name; "type=..." names the edge type and "dir=..."
// sets the direction (in, out, undirected).
//
// Example: `rel:"works_at,type=WORK_AT,dir=out"`.
func ParseRelTag(tag string) (RelTag, error) {
	if tag == "" {
		return RelTag{}, fmt.Errorf("rel tag is empty")
	}

	parts := strings.Split(tag, ",")
	rt := RelTag{Name: strings.TrimSpace(parts[0])}
	if rt.Name == "" || strings.Contains(rt.Name, "=") {
		return RelTag{}, fmt.Errorf("rel tag must start with a relationship name")
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "type="):
			rt.Type = strings.TrimPrefix(part, "type=")
		case strings.HasPrefix(part, "dir="):
			dir, err := cypher.ParseDirection(strings.TrimPrefix(part, "dir="))
			if err != nil {
				return RelTag{}, err
			}
			rt.Direction = dir
		default:
			return RelTag{}, fmt.Errorf("unknown rel tag option %q", part)
		}
	}

	if rt.Type == "" {
		return RelTag{}, fmt.Errorf("rel tag %q is missing type=", rt.Name)
	}
	return rt, nil
}
