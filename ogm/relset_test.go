package ogm

import (
	"strings"
	"testing"
)

func TestRelSetStorePairs(t *testing.T) {
	var slot relSlot = &RelSet[Company, WorkAt]{}

	co := &Company{Name: "acme"}
	co.setElementID("4:abc:10")
	err := slot.storePairs([]EdgePair{{Node: co, Props: WorkAt{Since: 2020}}})
	if err != nil {
		t.Fatal(err)
	}

	pairs, ok := slot.cachedPairs()
	if !ok || len(pairs) != 1 {
		t.Fatalf("pairs = %v, ok = %v", pairs, ok)
	}
	if pairs[0].Node.ElementID() != "4:abc:10" {
		t.Fatalf("node element id = %q", pairs[0].Node.ElementID())
	}
	if pairs[0].Props.(WorkAt).Since != 2020 {
		t.Fatalf("props = %+v", pairs[0].Props)
	}
}

func TestRelSetStorePairsUntypedProps(t *testing.T) {
	var slot relSlot = &RelSet[Person, Props]{}

	p := &Person{Name: "alice"}
	p.setElementID("4:abc:11")
	err := slot.storePairs([]EdgePair{{Node: p, Props: Props{"role": "friend"}}})
	if err != nil {
		t.Fatal(err)
	}
	pairs, _ := slot.cachedPairs()
	if pairs[0].Props.(Props)["role"] != "friend" {
		t.Fatalf("props = %v", pairs[0].Props)
	}
}

func TestRelSetStorePairsWrongNodeType(t *testing.T) {
	var slot relSlot = &RelSet[Company, WorkAt]{}

	p := &Person{Name: "alice"}
	err := slot.storePairs([]EdgePair{{Node: p, Props: WorkAt{}}})
	if err == nil || !strings.Contains(err.Error(), "pair node has type") {
		t.Fatalf("err = %v", err)
	}
	if _, ok := slot.cachedPairs(); ok {
		t.Fatal("slot should stay unloaded after a failed store")
	}
}

func TestRelSetInvalidate(t *testing.T) {
	var slot relSlot = &RelSet[Person, Props]{}
	if err := slot.storePairs(nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := slot.cachedPairs(); !ok {
		t.Fatal("empty store should still mark the slot loaded")
	}
	slot.invalidate()
	if _, ok := slot.cachedPairs(); ok {
		t.Fatal("invalidate should clear the loaded mark")
	}
}
