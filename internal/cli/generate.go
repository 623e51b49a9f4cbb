package cli

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/regionkit/pkg/backend"
	"github.com/example/regionkit/pkg/scope"
)

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		kindStr   string
		regionID  string
		tileStr   string
		padding   int
		selection string
		outDir    string
		dryRun    bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "generate [document.json]",
		Short: "Plan, submit to the backend, and save the results",
		Long: `Plan, submit to the backend, and save the results.

The generate command runs the full loop: it builds a plan, submits it to
the configured generation server, and writes each returned image to the
output directory. With --dry-run an in-process backend produces placeholder
images, useful for checking masks and prompts without a server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(kindStr, regionID, tileStr, padding, selection)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), args[0], req, outDir, dryRun, noCache)
		},
	}

	cmd.Flags().StringVarP(&kindStr, "kind", "k", "full", "request kind: full, refine, tile, selection")
	cmd.Flags().StringVarP(&regionID, "region", "r", "", "region to refine (refine)")
	cmd.Flags().StringVar(&tileStr, "tile", "", "tile rectangle x0,y0,x1,y1 (tile)")
	cmd.Flags().IntVar(&padding, "padding", 0, "context padding around the tile in pixels (tile)")
	cmd.Flags().StringVar(&selection, "selection", "", "selection mask PNG (selection)")
	cmd.Flags().StringVarP(&outDir, "output", "o", "generated", "output directory for result images")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "use the in-process placeholder backend")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable plan caching")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, input string, req scope.Request, outDir string, dryRun, noCache bool) error {
	be := c.newBackend()
	if dryRun {
		be = backend.NewMemory(0)
		printInfo("Dry run: placeholder backend")
	} else if be == nil {
		return fmt.Errorf("no backend configured; set backend.url in the config or use --dry-run")
	}

	eng, _, err := c.loadEngineWith(input, noCache, be)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Generating %s request...", req.Kind))
	gr, err := eng.Generate(ctx, req)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	for i, ri := range gr.Result.Images {
		path := filepath.Join(outDir, fmt.Sprintf("%02d-%s.png", i, ri.RegionID))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		err = png.Encode(f, ri.Image)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}

	printSuccess("Generated %d images (seed %d), %d new layers", len(gr.Result.Images), gr.Result.Seed, len(gr.LayerIDs))
	return nil
}
