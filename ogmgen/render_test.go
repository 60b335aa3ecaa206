package ogmgen

import (
	"strings"
	"testing"
)

func renderSchema(t *testing.T, cfg RenderConfig) string {
	t.Helper()
	schema, err := ParseSchema(sampleSchema)
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := Render(&b, schema, cfg); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func TestRenderGeneratesModels(t *testing.T) {
	out := renderSchema(t, DefaultConfig())

	for _, want := range []string{
		"// Code generated by ogmgen. DO NOT EDIT.",
		"package models",
		`"github.com/neogm/neogm/ogm"`,
		"type Person struct {",
		"\togm.BaseNode",
		"\tName string `node:\"name,index\"`",
		"\tNickname *string `node:\"nickname\"`",
		"\tWorksAt ogm.RelSet[Company, WorkAt] `rel:\"works_at,type=WORK_AT,dir=out\"`",
		"\tFriends ogm.RelSet[Person, ogm.Props] `rel:\"friends,type=FRIEND,dir=undirected\"`",
		"type WorkAt struct {",
		"\tSince int64 `node:\"since\"`",
		"func RegisterAll() {",
		"\togm.Register[Person]()",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderSubtypeEmbedsParent(t *testing.T) {
	out := renderSchema(t, DefaultConfig())

	idx := strings.Index(out, "type Employee struct {")
	if idx < 0 {
		t.Fatalf("Employee missing:\n%s", out)
	}
	body := out[idx:]
	if !strings.Contains(body[:strings.Index(body, "}")], "\tPerson\n") {
		t.Fatalf("Employee should embed Person:\n%s", body)
	}
}

func TestRenderTimeImport(t *testing.T) {
	out := renderSchema(t, DefaultConfig())
	if !strings.Contains(out, "\t\"time\"") {
		t.Fatalf("datetime field should pull in the time import:\n%s", out)
	}
	if strings.Contains(out, "google/uuid") {
		t.Fatal("uuid import should be absent without uuid fields")
	}
}

func TestRenderConfigOverrides(t *testing.T) {
	out := renderSchema(t, RenderConfig{PackageName: "graphmodels", OGMPath: "example.com/fork/ogm"})
	if !strings.Contains(out, "package graphmodels") {
		t.Fatalf("package override ignored:\n%s", out)
	}
	if !strings.Contains(out, `"example.com/fork/ogm"`) {
		t.Fatalf("ogm path override ignored:\n%s", out)
	}
}

func TestRenderSharedEdgeTypeIsEmittedOnce(t *testing.T) {
	schema, err := ParseSchema(`
graph
node A {
    to_b -> B : LINK { weight: float }
}
node B {
    to_a -> A : LINK { weight: float }
}
`)
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := Render(&b, schema, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(b.String(), "type Link struct {"); n != 1 {
		t.Fatalf("Link emitted %d times:\n%s", n, b.String())
	}
}
