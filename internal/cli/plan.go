package cli

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/regionkit/pkg/engine"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/scope"
)

// planCommand creates the plan command.
func (c *CLI) planCommand() *cobra.Command {
	var (
		kindStr   string
		regionID  string
		tileStr   string
		padding   int
		selection string
		output    string
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "plan [document.json]",
		Short: "Build a generation plan from a document",
		Long: `Build a generation plan from a document.

The plan command loads a layered document, resolves each region's
coverage against the layer stack, composes prompts along the region
hierarchy, and writes the resulting plan as JSON.

Request kinds:
  full       every visible region plus the root background (default)
  refine     one region's area, ignoring its siblings (--region)
  tile       one rectangle of a tiled upscale (--tile, --padding)
  selection  regions under a selection mask (--selection)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(kindStr, regionID, tileStr, padding, selection)
			if err != nil {
				return err
			}
			return c.runPlan(cmd.Context(), args[0], req, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&kindStr, "kind", "k", "full", "request kind: full, refine, tile, selection")
	cmd.Flags().StringVarP(&regionID, "region", "r", "", "region to refine (refine)")
	cmd.Flags().StringVar(&tileStr, "tile", "", "tile rectangle x0,y0,x1,y1 (tile)")
	cmd.Flags().IntVar(&padding, "padding", 0, "context padding around the tile in pixels (tile)")
	cmd.Flags().StringVar(&selection, "selection", "", "selection mask PNG (selection)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable plan caching")

	return cmd
}

// buildRequest assembles a scope request from command-line flags.
func buildRequest(kindStr, regionID, tileStr string, padding int, selection string) (scope.Request, error) {
	kind, err := engine.ParseKind(kindStr)
	if err != nil {
		return scope.Request{}, err
	}
	req := scope.Request{Kind: kind, RegionID: regionID, Padding: padding}

	switch kind {
	case scope.Refine:
		if regionID == "" {
			return req, fmt.Errorf("refine requires --region")
		}
	case scope.Tile:
		rect, err := parseRect(tileStr)
		if err != nil {
			return req, err
		}
		req.TileRect = rect
	case scope.Selection:
		if selection == "" {
			return req, fmt.Errorf("selection requires --selection")
		}
		m, err := readMaskPNG(selection)
		if err != nil {
			return req, err
		}
		req.SelectionMask = m
	}
	return req, nil
}

// parseRect parses "x0,y0,x1,y1" into a rectangle.
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("tile %q: want x0,y0,x1,y1", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("tile %q: %w", s, err)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}

func readMaskPNG(path string) (*mask.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open selection %s: %w", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode selection %s: %w", path, err)
	}
	return mask.FromImage(img), nil
}

func (c *CLI) runPlan(ctx context.Context, input string, req scope.Request, output string, noCache bool) error {
	eng, _, err := c.loadEngine(input, noCache)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Planning %s request...", req.Kind))
	pr, err := eng.BuildPlan(ctx, req)
	if err != nil {
		spinner.StopWithError("Planning failed")
		return err
	}
	spinner.Stop()

	data, err := engine.MarshalPlan(pr.Plan)
	if err != nil {
		return err
	}

	if pr.Plan.Fallback {
		printWarning("no region qualified; plan falls back to the root prompt")
	}
	printSuccess("Planned %s request", req.Kind)
	printStats(pr.Stats.RegionCount, pr.Stats.EntryCount, pr.CacheInfo.PlanHit)

	if output == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	printFile(output)
	return nil
}
