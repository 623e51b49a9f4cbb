package cli

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// renderCommand creates the render command for writing coverage masks.
func (c *CLI) renderCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "render [document.json]",
		Short: "Render per-region coverage masks as PNG files",
		Long: `Render per-region coverage masks as PNG files.

Each region's resolved coverage - its linked layers' opacity with
everything stacked in front removed - is written as an 8-bit grayscale
PNG named after the region. The root region's mask covers everything no
other region claims.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "masks", "output directory")
	return cmd
}

func (c *CLI) runRender(ctx context.Context, input, outDir string) error {
	eng, _, err := c.loadEngine(input, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}

	spinner := newSpinner(ctx, "Rendering coverage masks...")
	if err := eng.WarmCoverage(ctx); err != nil {
		spinner.StopWithError("Coverage failed")
		return err
	}
	spinner.Stop()

	rg := eng.Regions()
	count := 0
	for _, id := range rg.Regions() {
		m, err := eng.Coverage().CoverageFor(id)
		if err != nil {
			return err
		}

		name := id
		if id == rg.RootID() {
			name = "root"
		}
		path := filepath.Join(outDir, name+".png")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		err = png.Encode(f, m.ToAlpha())
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
		count++
	}

	printSuccess("Rendered %d coverage masks", count)
	return nil
}
