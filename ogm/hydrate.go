package ogm

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neogm/neogm/driver"
)

// hydrateRecord maps one result record onto a fresh model instance. The
// record must carry the projected node map under "node" and the element id
// under "internal_id"; anything else is a malformed record.
func hydrateRecord(reg *Registry, info *NodeInfo, rec driver.Record) (Node, error) {
	tree, ok := rec["node"].(map[string]any)
	if !ok {
		return nil, malformed(rec)
	}
	id, ok := rec["internal_id"].(string)
	if !ok {
		return nil, malformed(rec)
	}
	if _, has := tree["_internal_id"]; !has {
		tree["_internal_id"] = id
	}
	return hydrateTree(reg, info, tree)
}

func malformed(rec driver.Record) error {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	return &MalformedRecordError{Keys: keys}
}

// hydrateTree recursively maps a projected node map onto a new instance of
// info's type, filling property fields, the element id, and any prefetched
// relationship slots carried in the tree.
func hydrateTree(reg *Registry, info *NodeInfo, tree map[string]any) (Node, error) {
	ptr := reflect.New(info.GoType)
	node := ptr.Interface().(Node)

	if id, ok := tree["_internal_id"].(string); ok {
		node.setElementID(id)
	}

	elem := ptr.Elem()
	for _, f := range info.Fields {
		raw, ok := tree[f.Tag.Name]
		if !ok || raw == nil {
			continue
		}
		dst := elem.FieldByIndex(f.fieldIndex)
		if err := coerceValue(dst, normalizeValue(raw)); err != nil {
			return nil, &HydrationError{Label: info.Label, Field: f.Tag.Name, Err: err}
		}
	}

	for _, rel := range info.Relationships {
		raw, ok := tree[rel.Name]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, &HydrationError{Label: info.Label, Field: rel.Name,
				Err: fmt.Errorf("expected list, got %T", raw)}
		}
		pairs, err := hydratePairs(reg, rel, list)
		if err != nil {
			return nil, &HydrationError{Label: info.Label, Field: rel.Name, Err: err}
		}
		if err := relSlotOf(node, rel).storePairs(pairs); err != nil {
			return nil, &HydrationError{Label: info.Label, Field: rel.Name, Err: err}
		}
	}

	return node, nil
}

// hydratePairs turns a pattern-comprehension result list into edge pairs.
// Entries whose node half is missing are dropped rather than failing the
// whole record, which is what an optional match degenerates to.
func hydratePairs(reg *Registry, rel RelInfo, list []any) ([]EdgePair, error) {
	target, err := reg.Lookup(rel.Target)
	if err != nil {
		return nil, err
	}

	pairs := make([]EdgePair, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected pair map, got %T", entry)
		}
		nested, ok := m["node"].(map[string]any)
		if !ok || nested == nil {
			continue
		}
		child, err := hydrateTree(reg, target, nested)
		if err != nil {
			return nil, err
		}

		relMap, _ := m["rel"].(map[string]any)
		props, err := buildEdgeProps(rel, relMap)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, EdgePair{Node: child, Props: props})
	}
	return pairs, nil
}

// buildEdgeProps converts an edge property map into the relationship's
// declared props value. Untyped relationships keep the raw property map;
// typed ones get a populated schema struct.
func buildEdgeProps(rel RelInfo, relMap map[string]any) (any, error) {
	m := map[string]any{}
	for k, v := range relMap {
		if k == "_internal_id" {
			continue
		}
		m[k] = normalizeValue(v)
	}

	if !rel.Typed() {
		return Props(m), nil
	}

	ptr := reflect.New(rel.PropsType)
	elem := ptr.Elem()
	for i := 0; i < rel.PropsType.NumField(); i++ {
		field := rel.PropsType.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("node"); ok {
			parsed, err := ParseFieldTag(tag)
			if err != nil {
				return nil, err
			}
			if parsed.Skip {
				continue
			}
			name = parsed.Name
		} else {
			name = strings.ToLower(name)
		}
		raw, ok := m[name]
		if !ok || raw == nil {
			continue
		}
		if err := coerceValue(elem.Field(i), raw); err != nil {
			return nil, fmt.Errorf("edge property %q: %w", name, err)
		}
	}
	return elem.Interface(), nil
}

// normalizeValue converts driver temporal values into native Go values,
// recursing through maps and lists so nested projections come out clean.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case driver.Temporal:
		return t.ToNative()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = normalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return v
	}
}

var (
	uuidType     = reflect.TypeOf(uuid.UUID{})
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// coerceValue assigns a normalized record value into a struct field,
// bridging the driver's coarse wire types (int64, float64, string) onto
// the model's declared field types.
func coerceValue(dst reflect.Value, v any) error {
	if v == nil {
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return coerceValue(dst.Elem(), v)
	}

	switch dst.Type() {
	case uuidType:
		switch raw := v.(type) {
		case string:
			id, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(id))
			return nil
		case uuid.UUID:
			dst.Set(reflect.ValueOf(raw))
			return nil
		}
		return fmt.Errorf("cannot coerce %T into uuid.UUID", v)
	case timeType:
		if t, ok := v.(time.Time); ok {
			dst.Set(reflect.ValueOf(t))
			return nil
		}
		return fmt.Errorf("cannot coerce %T into time.Time", v)
	case durationType:
		switch raw := v.(type) {
		case time.Duration:
			dst.SetInt(int64(raw))
			return nil
		case int64:
			dst.SetInt(raw)
			return nil
		}
		return fmt.Errorf("cannot coerce %T into time.Duration", v)
	}

	val := reflect.ValueOf(v)
	switch dst.Kind() {
	case reflect.String:
		if s, ok := v.(string); ok {
			dst.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch raw := v.(type) {
		case int64:
			dst.SetInt(raw)
			return nil
		case int:
			dst.SetInt(int64(raw))
			return nil
		case float64:
			dst.SetInt(int64(raw))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch raw := v.(type) {
		case int64:
			dst.SetUint(uint64(raw))
			return nil
		case int:
			dst.SetUint(uint64(raw))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch raw := v.(type) {
		case float64:
			dst.SetFloat(raw)
			return nil
		case int64:
			dst.SetFloat(float64(raw))
			return nil
		}
	case reflect.Slice:
		if list, ok := v.([]any); ok {
			out := reflect.MakeSlice(dst.Type(), len(list), len(list))
			for i, item := range list {
				if err := coerceValue(out.Index(i), item); err != nil {
					return err
				}
			}
			dst.Set(out)
			return nil
		}
	case reflect.Map:
		if val.Type().AssignableTo(dst.Type()) {
			dst.Set(val)
			return nil
		}
	}

	if val.Type().AssignableTo(dst.Type()) {
		dst.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(dst.Type()) {
		dst.Set(val.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot coerce %T into %s", v, dst.Type())
}

// dehydrate extracts the persistable property map of an instance, the
// inverse of hydration. UUIDs and temporals go out as their wire-friendly
// forms; nil optional fields are carried as explicit nulls so updates can
// clear properties.
func dehydrate(info *NodeInfo, inst Node) map[string]any {
	elem := reflect.ValueOf(inst)
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	props := make(map[string]any, len(info.Fields))
	for _, f := range info.Fields {
		fv := elem.FieldByIndex(f.fieldIndex)
		if f.IsPointer {
			if fv.IsNil() {
				props[f.Tag.Name] = nil
				continue
			}
			fv = fv.Elem()
		}
		props[f.Tag.Name] = dehydrateValue(fv.Interface())
	}
	return props
}

func dehydrateValue(v any) any {
	switch t := v.(type) {
	case uuid.UUID:
		return t.String()
	case time.Duration:
		return int64(t)
	default:
		return v
	}
}
