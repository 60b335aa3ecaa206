package ogm

import (
	"context"
	"errors"
	"testing"

	"github.com/neogm/neogm/driver"
)

func persistedPerson(id string) *Person {
	p := &Person{Name: "alice"}
	p.setElementID(id)
	return p
}

func TestRelationCachedStartsUnloaded(t *testing.T) {
	db, _ := newTestDB(t)
	m := NewManager[Person](db)

	rm, err := m.Rel(persistedPerson("4:x:1"), "works_at")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rm.Cached(); ok {
		t.Fatal("fresh instance must not report a loaded relationship")
	}
}

func TestRelationUnknownName(t *testing.T) {
	db, _ := newTestDB(t)
	m := NewManager[Person](db)

	_, err := m.Rel(persistedPerson("4:x:1"), "enemies")
	if _, ok := err.(*UnknownRelationshipError); !ok {
		t.Fatalf("err = %v", err)
	}
}

func TestRelationFetch(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)
	conn.script.reply(driver.Record{
		"node":        map[string]any{"name": "acme", "_internal_id": "4:x:9"},
		"internal_id": "4:x:9",
		"rel":         map[string]any{"since": int64(2019)},
	})

	p := persistedPerson("4:x:1")
	rm, _ := m.Rel(p, "works_at")
	pairs, err := rm.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	assertEqual(t, conn.script.lastQuery(),
		"MATCH (node) WHERE elementId(node) = $id "+
			"MATCH (node)-[r:`WORK_AT`]->(peer:`Company`) "+
			"RETURN peer { .*, _internal_id: elementId(peer) } AS node, "+
			"elementId(peer) AS internal_id, r { .* } AS rel")
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d", len(pairs))
	}

	// The fetch populates the instance's cache slot.
	cached, ok := p.WorksAt.Cached()
	if !ok || len(cached) != 1 || cached[0].Node.Name != "acme" || cached[0].Props.Since != 2019 {
		t.Fatalf("cached = %+v (%v)", cached, ok)
	}
}

func TestRelationFetchUnpersisted(t *testing.T) {
	db, _ := newTestDB(t)
	m := NewManager[Person](db)

	rm, _ := m.Rel(&Person{Name: "ghost"}, "works_at")
	if _, err := rm.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for unpersisted owner")
	}
}

func TestRelationAllUsesCache(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)
	conn.script.reply() // empty fetch result

	p := persistedPerson("4:x:1")
	rm, _ := m.Rel(p, "friends")

	if _, err := rm.All(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := rm.All(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Second call is served from the cache slot.
	if len(conn.script.calls) != 1 {
		t.Fatalf("ran %d queries", len(conn.script.calls))
	}
}

func TestRelationConnect(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)

	p := persistedPerson("4:x:1")
	c := &Company{Name: "acme"}
	c.setElementID("4:x:9")

	rm, _ := m.Rel(p, "works_at")
	if err := rm.Connect(context.Background(), c, WorkAt{Since: 2020}); err != nil {
		t.Fatal(err)
	}

	assertEqual(t, conn.script.lastQuery(),
		"MATCH (a), (b) WHERE elementId(a) = $a AND elementId(b) = $b "+
			"MERGE (a)-[r:`WORK_AT`]->(b) SET r += $props")
	props := conn.script.calls[0].params["props"].(map[string]any)
	if props["since"] != int64(2020) {
		t.Fatalf("props = %v", props)
	}
}

func TestRelationConnectInvalidatesCache(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)
	conn.script.reply() // fetch

	p := persistedPerson("4:x:1")
	rm, _ := m.Rel(p, "works_at")
	if _, err := rm.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !p.WorksAt.Loaded() {
		t.Fatal("fetch should load the slot")
	}

	c := &Company{Name: "acme"}
	c.setElementID("4:x:9")
	if err := rm.Connect(context.Background(), c, nil); err != nil {
		t.Fatal(err)
	}
	if p.WorksAt.Loaded() {
		t.Fatal("connect must invalidate the cache slot")
	}
}

func TestRelationConnectUnpersistedPeer(t *testing.T) {
	db, _ := newTestDB(t)
	m := NewManager[Person](db)

	rm, _ := m.Rel(persistedPerson("4:x:1"), "works_at")
	err := rm.Connect(context.Background(), &Company{Name: "acme"}, nil)
	if _, ok := err.(*UnpersistedNodeError); !ok {
		t.Fatalf("err = %v", err)
	}
}

func TestRelationDisconnect(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)

	p := persistedPerson("4:x:1")
	c := &Company{Name: "acme"}
	c.setElementID("4:x:9")

	rm, _ := m.Rel(p, "works_at")
	if err := rm.Disconnect(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	assertEqual(t, conn.script.lastQuery(),
		"MATCH (a)-[r:`WORK_AT`]->(b) WHERE elementId(a) = $a AND elementId(b) = $b DELETE r")
}

func TestRelationDisconnectAll(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)

	rm, _ := m.Rel(persistedPerson("4:x:1"), "works_at")
	if err := rm.DisconnectAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	assertEqual(t, conn.script.lastQuery(),
		"MATCH (a)-[r:`WORK_AT`]->() WHERE elementId(a) = $a DELETE r")
}

func TestRelationUndirectedMatchesBothWays(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)

	p := persistedPerson("4:x:1")
	q := persistedPerson("4:x:2")

	rm, _ := m.Rel(p, "friends")
	if err := rm.Disconnect(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	assertContains(t, conn.script.lastQuery(), "(a)-[r:`FRIEND`]-(b)")

	// Writes still need an arrow; undirected declarations merge outgoing.
	if err := rm.Connect(context.Background(), q, nil); err != nil {
		t.Fatal(err)
	}
	assertContains(t, conn.script.lastQuery(), "MERGE (a)-[r:`FRIEND`]->(b)")
}

func TestRelationUpdateRelationship(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)
	conn.script.reply(driver.Record{"value": int64(1)})

	p := persistedPerson("4:x:1")
	c := &Company{Name: "acme"}
	c.setElementID("4:x:9")

	rm, _ := m.Rel(p, "works_at")
	if err := rm.UpdateRelationship(context.Background(), c, WorkAt{Since: 2022}); err != nil {
		t.Fatal(err)
	}
	assertEqual(t, conn.script.lastQuery(),
		"MATCH (a)-[r:`WORK_AT`]->(b) WHERE elementId(a) = $a AND elementId(b) = $b "+
			"SET r += $props RETURN count(r) AS value")
}

func TestRelationUpdateRelationshipMissingEdge(t *testing.T) {
	db, conn := newTestDB(t)
	m := NewManager[Person](db)
	conn.script.reply(driver.Record{"value": int64(0)})

	p := persistedPerson("4:x:1")
	c := &Company{Name: "acme"}
	c.setElementID("4:x:9")

	rm, _ := m.Rel(p, "works_at")
	err := rm.UpdateRelationship(context.Background(), c, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestEdgePropsToMap(t *testing.T) {
	out := edgePropsToMap(WorkAt{Since: 2018})
	if out["since"] != int64(2018) {
		t.Fatalf("out = %v", out)
	}
	if got := edgePropsToMap(nil); len(got) != 0 {
		t.Fatalf("nil props = %v", got)
	}
	passthrough := map[string]any{"k": 1}
	if got := edgePropsToMap(passthrough); got["k"] != 1 {
		t.Fatalf("map props = %v", got)
	}
}
