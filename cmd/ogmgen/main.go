// ogmgen generates Go model code from graph schema files.
//
// Usage:
//
//	ogmgen --schema graph.schema [--out models_gen.go] [--pkg models]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neogm/neogm/ogmgen"
)

const version = "0.1.0"

func main() {
	var (
		schemaFile string
		outFile    string
		pkg        string
		ogmPath    string
	)

	root := &cobra.Command{
		Use:     "ogmgen",
		Short:   "Generate Go model structs from a graph schema file",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := ogmgen.ParseSchemaFile(schemaFile)
			if err != nil {
				return err
			}

			w := os.Stdout
			if outFile != "" {
				w, err = os.Create(outFile)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer func() { _ = w.Close() }()
			}

			cfg := ogmgen.DefaultConfig()
			cfg.PackageName = pkg
			if ogmPath != "" {
				cfg.OGMPath = ogmPath
			}
			return ogmgen.Render(w, schema, cfg)
		},
	}

	root.Flags().StringVar(&schemaFile, "schema", "", "path to the graph schema file (required)")
	root.Flags().StringVar(&outFile, "out", "", "output Go file (default: stdout)")
	root.Flags().StringVar(&pkg, "pkg", "models", "package name for the generated code")
	root.Flags().StringVar(&ogmPath, "ogm-path", "", "import path of the ogm package")
	_ = root.MarkFlagRequired("schema")
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
