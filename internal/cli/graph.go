package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/regionkit/pkg/document"
)

// graphCommand creates the graph command for structure visualization.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "graph [document.json]",
		Short: "Render the region and layer structure with Graphviz",
		Long: `Render the region and layer structure with Graphviz.

Regions appear as ellipses, layers as boxes, with dashed edges marking
region-to-layer links. Formats: dot (default), svg, png.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], format, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout for dot)")
	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input, format, output string) error {
	doc, err := document.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load document %s: %w", input, err)
	}
	lg, rg, err := doc.Build()
	if err != nil {
		return fmt.Errorf("build document %s: %w", input, err)
	}

	p := newProgress(c.Logger)
	data, err := document.RenderDOT(ctx, lg, rg, format)
	if err != nil {
		return fmt.Errorf("render graph: %w", err)
	}
	p.done(fmt.Sprintf("Rendered structure as %s", format))

	if output == "" {
		if format != "dot" {
			output = strings.TrimSuffix(input, ".json") + "." + format
		} else {
			_, err := os.Stdout.Write(data)
			return err
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printFile(output)
	return nil
}
