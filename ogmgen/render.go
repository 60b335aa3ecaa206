package ogmgen

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// RenderConfig specifies the settings for generating Go code from a
// schema.
type RenderConfig struct {
	// PackageName is the name of the Go package for the generated code.
	PackageName string
	// OGMPath is the import path of the ogm package.
	OGMPath string
}

// DefaultConfig returns a standard RenderConfig.
func DefaultConfig() RenderConfig {
	return RenderConfig{
		PackageName: "models",
		OGMPath:     "github.com/neogm/neogm/ogm",
	}
}

// Render writes the generated Go source for schema to w. Node names are
// used verbatim as struct names, since the struct name is the node label;
// property and relationship names get Go casing.
func Render(w io.Writer, schema *Schema, cfg RenderConfig) error {
	if cfg.PackageName == "" {
		cfg.PackageName = "models"
	}
	if cfg.OGMPath == "" {
		cfg.OGMPath = DefaultConfig().OGMPath
	}

	data := &renderData{PackageName: cfg.PackageName, OGMPath: cfg.OGMPath}
	edgeByType := map[string]string{}

	for _, n := range schema.Nodes {
		node := nodeCtx{GoName: n.Name, Embed: "ogm.BaseNode"}
		if n.Parent != "" {
			node.Embed = n.Parent
		}

		for _, f := range n.Fields {
			fc, err := buildFieldCtx(f, data)
			if err != nil {
				return fmt.Errorf("node %q: %w", n.Name, err)
			}
			node.Fields = append(node.Fields, fc)
		}

		for _, r := range n.Rels {
			props := "ogm.Props"
			if len(r.Props) > 0 {
				goName, seen := edgeByType[r.Type]
				if !seen {
					goName = ToPascalCase(strings.ToLower(r.Type))
					edge := edgeCtx{GoName: goName, TypeName: r.Type}
					for _, f := range r.Props {
						fc, err := buildFieldCtx(f, data)
						if err != nil {
							return fmt.Errorf("edge %q: %w", r.Type, err)
						}
						edge.Fields = append(edge.Fields, fc)
					}
					data.Edges = append(data.Edges, edge)
					edgeByType[r.Type] = goName
				}
				props = goName
			}
			node.Rels = append(node.Rels, relCtx{
				GoName: ToPascalCase(r.Name),
				Target: r.Target,
				Props:  props,
				Tag:    fmt.Sprintf("`rel:%q`", r.Name+",type="+r.Type+",dir="+r.Direction),
			})
		}

		data.Nodes = append(data.Nodes, node)
	}

	return renderTemplate.Execute(w, data)
}

type renderData struct {
	PackageName string
	OGMPath     string
	NeedsTime   bool
	NeedsUUID   bool
	Edges       []edgeCtx
	Nodes       []nodeCtx
}

type edgeCtx struct {
	GoName   string
	TypeName string
	Fields   []fieldCtx
}

type nodeCtx struct {
	GoName string
	Embed  string
	Fields []fieldCtx
	Rels   []relCtx
}

type fieldCtx struct {
	GoName string
	GoType string
	Tag    string
}

type relCtx struct {
	GoName string
	Target string
	Props  string
	Tag    string
}

func buildFieldCtx(f FieldSpec, data *renderData) (fieldCtx, error) {
	goType, ok := valueTypes[f.ValueType]
	if !ok {
		return fieldCtx{}, fmt.Errorf("field %q has unknown type %q", f.Name, f.ValueType)
	}
	switch goType {
	case "time.Time", "time.Duration":
		data.NeedsTime = true
	case "uuid.UUID":
		data.NeedsUUID = true
	}
	if f.Optional {
		goType = "*" + goType
	}

	tag := f.Name
	if f.Index {
		tag += ",index"
	}
	if f.Unique {
		tag += ",unique"
	}
	return fieldCtx{
		GoName: ToPascalCase(f.Name),
		GoType: goType,
		Tag:    fmt.Sprintf("`node:%q`", tag),
	}, nil
}

var renderTemplate = template.Must(template.New("models").Parse(`// Code generated by ogmgen. DO NOT EDIT.

package {{.PackageName}}

import (
{{- if .NeedsTime}}
	"time"
{{end}}
{{- if .NeedsUUID}}
	"github.com/google/uuid"
{{end}}
	"{{.OGMPath}}"
)
{{range .Edges}}
// {{.GoName}} carries the properties of {{.TypeName}} edges.
type {{.GoName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} {{.Tag}}
{{- end}}
}
{{end}}
{{- range .Nodes}}
// {{.GoName}} maps nodes labeled {{.GoName}}.
type {{.GoName}} struct {
	{{.Embed}}
{{- range .Fields}}
	{{.GoName}} {{.GoType}} {{.Tag}}
{{- end}}
{{- range .Rels}}
	{{.GoName}} ogm.RelSet[{{.Target}}, {{.Props}}] {{.Tag}}
{{- end}}
}
{{end}}
// RegisterAll registers every generated model with the default registry.
func RegisterAll() {
{{- range .Nodes}}
	ogm.Register[{{.GoName}}]()
{{- end}}
}
`))
