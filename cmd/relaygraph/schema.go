package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hanpama/relaygraph/internal/demo"
	"github.com/hanpama/relaygraph/internal/schema"
	"github.com/hanpama/relaygraph/internal/store/memstore"
)

func (c *cli) schemaCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the GraphQL schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := demo.New(memstore.New(), demo.Options{DefaultPageSize: c.cfg.GraphQL.DefaultPageSize})
			if err != nil {
				return err
			}
			sdl := schema.Render(app.Base)
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SDL to this file instead of stdout")
	return cmd
}
