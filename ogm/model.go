package ogm

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/neogm/neogm/cypher"
)

// Meta is the schema meta-configuration of a node type: the fields that
// need an index and the field tuples that need a uniqueness constraint.
type Meta struct {
	// Indexes lists property names that get a single-property index.
	Indexes []string
	// Constraints lists property tuples that get a uniqueness constraint.
	Constraints [][]string
}

// FieldInfo contains metadata about a single property field of a model
// struct.
type FieldInfo struct {
	// Tag is the parsed 'node' struct tag.
	Tag FieldTag
	// FieldName is the name of the field in the Go struct.
	FieldName string
	// FieldType is the reflection type of the field.
	FieldType reflect.Type
	// IsPointer is true if the field is a pointer, used for optional
	// properties.
	IsPointer bool
	// ElemType is the pointed-to type for pointer fields.
	ElemType reflect.Type

	fieldIndex []int
}

// RelInfo describes one declared relationship of a node type. It describes
// shape only; per-instance data lives in the instance's RelSet slot.
type RelInfo struct {
	// Name is the relationship name used in prefetch specs and records.
	Name string
	// Type is the graph edge type.
	Type string
	// Direction is the declared traversal direction.
	Direction cypher.Direction
	// FieldName is the name of the RelSet field in the Go struct.
	FieldName string
	// Target is the Go type of the related node.
	Target reflect.Type
	// PropsType is the Go type of the edge-property schema; a map type
	// means the edge is untyped.
	PropsType reflect.Type

	fieldIndex []int
}

// Typed reports whether the relationship declares an edge-property schema.
func (r RelInfo) Typed() bool {
	return r.PropsType != nil && r.PropsType.Kind() == reflect.Struct
}

// NodeInfo contains the full metadata of a registered node type.
type NodeInfo struct {
	// GoType is the struct type of the model.
	GoType reflect.Type
	// Label is the type's own label (the struct name).
	Label string
	// Labels is the sorted set of the type's own label plus all ancestor
	// labels along the embedding chain.
	Labels []string
	// Fields lists property fields, own and inherited.
	Fields []FieldInfo
	// Relationships lists declared relationships, own and inherited.
	Relationships []RelInfo
	// Meta is the merged index/constraint configuration.
	Meta Meta
}

// RelByName retrieves a relationship descriptor by its declared name.
func (n *NodeInfo) RelByName(name string) (RelInfo, bool) {
	for _, r := range n.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return RelInfo{}, false
}

// FieldByProp retrieves FieldInfo by graph property name.
func (n *NodeInfo) FieldByProp(name string) (FieldInfo, bool) {
	for _, f := range n.Fields {
		if f.Tag.Name == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

var (
	baseNodeType  = reflect.TypeOf(BaseNode{})
	nodeIfaceType = reflect.TypeOf((*Node)(nil)).Elem()
	relSlotType   = reflect.TypeOf((*relSlot)(nil)).Elem()
)

// ExtractNodeInfo analyzes a Go struct type and extracts its node metadata.
// The struct must embed BaseNode, directly or through an embedded parent
// model; embedded parent models contribute their label, fields,
// relationships, and meta-configuration, forming the inheritance chain.
func ExtractNodeInfo(t reflect.Type) (*NodeInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}
	if !reflect.PointerTo(t).Implements(nodeIfaceType) {
		return nil, fmt.Errorf("type %s must embed ogm.BaseNode", t.Name())
	}

	info := &NodeInfo{GoType: t, Label: t.Name()}
	labels := map[string]bool{t.Name(): true}

	if err := collectStruct(t, nil, info, labels); err != nil {
		return nil, err
	}

	for l := range labels {
		info.Labels = append(info.Labels, l)
	}
	sort.Strings(info.Labels)

	if ut, ok := reflect.New(t).Interface().(UniqueTogether); ok {
		info.Meta.Constraints = append(info.Meta.Constraints, ut.UniqueTogether()...)
	}

	return info, nil
}

// collectStruct walks a struct's fields, recursing into embedded model
// structs so subtypes inherit their ancestors' shape.
func collectStruct(t reflect.Type, prefix []int, info *NodeInfo, labels map[string]bool) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if field.Anonymous {
			ft := field.Type
			if ft == baseNodeType {
				// BaseNode contributes the uid field but no label.
				if err := collectStruct(ft, index, info, labels); err != nil {
					return err
				}
				continue
			}
			if ft.Kind() == reflect.Struct && reflect.PointerTo(ft).Implements(nodeIfaceType) {
				labels[ft.Name()] = true
				if err := collectStruct(ft, index, info, labels); err != nil {
					return err
				}
				continue
			}
			continue
		}

		if !field.IsExported() {
			continue
		}

		if relTagStr, ok := field.Tag.Lookup("rel"); ok {
			rel, err := buildRelInfo(field, index, relTagStr)
			if err != nil {
				return fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
			}
			if _, dup := info.RelByName(rel.Name); dup {
				// Subtype redeclaration overrides the inherited descriptor.
				continue
			}
			info.Relationships = append(info.Relationships, rel)
			continue
		}

		tagStr, ok := field.Tag.Lookup("node")
		if !ok {
			continue
		}
		tag, err := ParseFieldTag(tagStr)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
		}
		if tag.Skip {
			continue
		}
		if _, dup := info.FieldByProp(tag.Name); dup {
			continue
		}

		fi := FieldInfo{
			Tag:        tag,
			FieldName:  field.Name,
			FieldType:  field.Type,
			fieldIndex: index,
		}
		if field.Type.Kind() == reflect.Ptr {
			fi.IsPointer = true
			fi.ElemType = field.Type.Elem()
		}
		info.Fields = append(info.Fields, fi)

		if tag.Index {
			info.Meta.Indexes = append(info.Meta.Indexes, tag.Name)
		}
		if tag.Unique {
			info.Meta.Constraints = append(info.Meta.Constraints, []string{tag.Name})
		}
	}
	return nil
}

func buildRelInfo(field reflect.StructField, index []int, tagStr string) (RelInfo, error) {
	tag, err := ParseRelTag(tagStr)
	if err != nil {
		return RelInfo{}, err
	}
	if !reflect.PointerTo(field.Type).Implements(relSlotType) {
		return RelInfo{}, fmt.Errorf("rel-tagged field must be an ogm.RelSet, got %s", field.Type)
	}

	slot := reflect.New(field.Type).Interface().(relSlot)
	target := slot.targetType()
	if target == nil || !reflect.PointerTo(target).Implements(nodeIfaceType) {
		return RelInfo{}, fmt.Errorf("relationship %q target must embed ogm.BaseNode", tag.Name)
	}

	return RelInfo{
		Name:       tag.Name,
		Type:       tag.Type,
		Direction:  tag.Direction,
		FieldName:  field.Name,
		Target:     target,
		PropsType:  slot.propsType(),
		fieldIndex: index,
	}, nil
}

// relSlotOf returns the relSlot view of the instance's cache slot for rel.
// The instance must be an addressable struct pointer.
func relSlotOf(inst any, rel RelInfo) relSlot {
	v := reflect.ValueOf(inst)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v.FieldByIndex(rel.fieldIndex).Addr().Interface().(relSlot)
}
