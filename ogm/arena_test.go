package ogm

import "testing"

func TestManagersLookupByLabel(t *testing.T) {
	db, _ := newTestDB(t)
	arena := NewManagers(db)
	AddManager[Person](arena)

	got, err := arena.Lookup("Person")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*Manager[Person]); !ok {
		t.Fatalf("lookup returned %T", got)
	}

	if _, err := arena.Lookup("Ghost"); err == nil {
		t.Fatal("expected error for unknown label")
	}
}

func TestManagersManagerFor(t *testing.T) {
	db, _ := newTestDB(t)
	arena := NewManagers(db)

	first := ManagerFor[Company](arena)
	second := ManagerFor[Company](arena)
	if first != second {
		t.Fatal("expected the same manager on repeat lookup")
	}
}
