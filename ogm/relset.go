package ogm

import (
	"fmt"
	"reflect"
)

// Props is the untyped edge-property map used for relationships without a
// declared edge-property schema.
type Props = map[string]any

// Pair is one (related node, edge properties) entry in a relationship
// cache slot.
type Pair[N any, P any] struct {
	// Node is the related node instance.
	Node *N
	// Props carries the edge's own properties.
	Props P
}

// RelSet is a typed relationship cache slot declared as a struct field on
// a node model. N is the target node type; P is the edge-property schema
// (use Props for untyped edges).
//
//	type Person struct {
//	    ogm.BaseNode
//	    Name    string                       `node:"name"`
//	    WorksAt ogm.RelSet[Company, WorkAt]  `rel:"works_at,type=WORK_AT,dir=out"`
//	}
//
// The slot distinguishes "never fetched" from "fetched and empty": Cached
// reports false until the relationship has been prefetched, fetched, or
// explicitly set, and a connect or disconnect through the relationship's
// access manager invalidates it again.
type RelSet[N any, P any] struct {
	pairs  []Pair[N, P]
	loaded bool
}

// Cached returns the cached pairs and whether the slot is populated.
func (rs *RelSet[N, P]) Cached() ([]Pair[N, P], bool) {
	return rs.pairs, rs.loaded
}

// Loaded reports whether the slot is populated.
func (rs *RelSet[N, P]) Loaded() bool { return rs.loaded }

// EdgePair is the untyped view of a cache entry used by hydration and the
// relationship access manager.
type EdgePair struct {
	// Node is the related node instance (a pointer to a registered type).
	Node Node
	// Props is either a Props map or a value of the declared edge schema.
	Props any
}

// relSlot is the reflection-facing interface every *RelSet[N, P]
// implements, letting non-generic code populate and inspect typed slots.
type relSlot interface {
	targetType() reflect.Type
	propsType() reflect.Type
	storePairs(pairs []EdgePair) error
	cachedPairs() ([]EdgePair, bool)
	invalidate()
}

func (rs *RelSet[N, P]) targetType() reflect.Type {
	var n N
	return reflect.TypeOf(n)
}

func (rs *RelSet[N, P]) propsType() reflect.Type {
	var p P
	return reflect.TypeOf(p)
}

func (rs *RelSet[N, P]) storePairs(pairs []EdgePair) error {
	typed := make([]Pair[N, P], 0, len(pairs))
	for _, pair := range pairs {
		node, ok := any(pair.Node).(*N)
		if !ok {
			return fmt.Errorf("relationship pair node has type %T, want %T", pair.Node, (*N)(nil))
		}
		props, ok := pair.Props.(P)
		if !ok {
			var want P
			return fmt.Errorf("relationship pair props have type %T, want %T", pair.Props, want)
		}
		typed = append(typed, Pair[N, P]{Node: node, Props: props})
	}
	rs.pairs = typed
	rs.loaded = true
	return nil
}

func (rs *RelSet[N, P]) cachedPairs() ([]EdgePair, bool) {
	if !rs.loaded {
		return nil, false
	}
	pairs := make([]EdgePair, 0, len(rs.pairs))
	for _, p := range rs.pairs {
		pairs = append(pairs, EdgePair{Node: any(p.Node).(Node), Props: p.Props})
	}
	return pairs, true
}

func (rs *RelSet[N, P]) invalidate() {
	rs.pairs = nil
	rs.loaded = false
}
