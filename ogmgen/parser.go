package ogmgen

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// --- Participle grammar structs ---
// These define the schema grammar using struct tags. A schema file is a
// 'graph' header followed by node blocks:
//
//	graph
//
//	node Person {
//	    name: string @index
//	    age: int
//	    nickname: string?
//	    works_at -> Company : WORK_AT { since: int }
//	    friends -- Person : FRIEND
//	}
//
//	node Employee sub Person {
//	    salary: float
//	}

type schemaFile struct {
	Graph string    `parser:"'graph'"`
	Nodes []nodeDef `parser:"@@*"`
}

// nodeDef parses: node Name [sub Parent] { member* }
type nodeDef struct {
	Name    string      `parser:"'node' @Ident"`
	Parent  string      `parser:"('sub' @Ident)?"`
	Members []memberDef `parser:"'{' @@* '}'"`
}

// memberDef is either a relationship declaration or a property field; both
// start with an identifier, so the second token decides.
type memberDef struct {
	Rel   *relDef   `parser:"  @@"`
	Field *fieldDef `parser:"| @@"`
}

// fieldDef parses: name : type [?] [@index] [@unique]
type fieldDef struct {
	Name     string   `parser:"@Ident ':'"`
	Type     string   `parser:"@Ident"`
	Optional bool     `parser:"@'?'?"`
	Annots   []string `parser:"@Annot*"`
}

// relDef parses: name (-> | <- | --) Target : TYPE [{ field* }]
type relDef struct {
	Name   string     `parser:"@Ident"`
	Arrow  string     `parser:"@Arrow"`
	Target string     `parser:"@Ident"`
	Type   string     `parser:"':' @Ident"`
	Props  []fieldDef `parser:"('{' @@* '}')?"`
}

var schemaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Annot", Pattern: `@(index|unique)`},
	{Name: "Arrow", Pattern: `->|<-|--`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[{}:?,]`},
})

var schemaParser = participle.MustBuild[schemaFile](
	participle.Lexer(schemaLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)

// ParseSchema parses a schema string into a validated Schema.
func ParseSchema(input string) (*Schema, error) {
	ast, err := schemaParser.ParseString("schema", input)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	schema := convertAST(ast)
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

// ParseSchemaFile reads a schema from the given path and parses it.
func ParseSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(string(data))
}

func convertAST(ast *schemaFile) *Schema {
	schema := &Schema{}
	for _, n := range ast.Nodes {
		spec := NodeSpec{Name: n.Name, Parent: n.Parent}
		for _, m := range n.Members {
			switch {
			case m.Rel != nil:
				spec.Rels = append(spec.Rels, convertRel(m.Rel))
			case m.Field != nil:
				spec.Fields = append(spec.Fields, convertField(m.Field))
			}
		}
		schema.Nodes = append(schema.Nodes, spec)
	}
	return schema
}

func convertField(f *fieldDef) FieldSpec {
	spec := FieldSpec{Name: f.Name, ValueType: f.Type, Optional: f.Optional}
	for _, annot := range f.Annots {
		switch strings.TrimPrefix(annot, "@") {
		case "index":
			spec.Index = true
		case "unique":
			spec.Unique = true
		}
	}
	return spec
}

func convertRel(r *relDef) RelSpec {
	spec := RelSpec{Name: r.Name, Type: r.Type, Target: r.Target}
	switch r.Arrow {
	case "->":
		spec.Direction = "out"
	case "<-":
		spec.Direction = "in"
	default:
		spec.Direction = "undirected"
	}
	for _, f := range r.Props {
		spec.Props = append(spec.Props, convertField(&f))
	}
	return spec
}
