package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [document.json]",
		Short: "Show the region hierarchy and coverage statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runInspect(ctx context.Context, input string) error {
	eng, doc, err := c.loadEngine(input, true)
	if err != nil {
		return err
	}

	p := newProgress(c.Logger)
	if err := eng.WarmCoverage(ctx); err != nil {
		return err
	}
	p.done(fmt.Sprintf("Computed coverage for %d regions", len(eng.Regions().Regions())))

	fmt.Println(StyleTitle.Render("Document"))
	printKeyValue("canvas", fmt.Sprintf("%dx%d", doc.Canvas.Width, doc.Canvas.Height))
	printKeyValue("layers", fmt.Sprintf("%d", len(doc.Layers)))
	printKeyValue("generation", fmt.Sprintf("%d", eng.Stamp()))
	root, err := eng.Regions().Region(eng.Regions().RootID())
	if err != nil {
		return err
	}
	printKeyValue("root prompt", root.Text)
	fmt.Println()

	fmt.Println(StyleTitle.Render("Regions"))
	var walk func(id string, depth int) error
	walk = func(id string, depth int) error {
		r, err := eng.Regions().Region(id)
		if err != nil {
			return err
		}
		cov, err := eng.Coverage().CoverageFor(id)
		if err != nil {
			return err
		}

		indent := strings.Repeat("  ", depth)
		text := r.Text
		if len(text) > 40 {
			text = text[:37] + "..."
		}
		line := fmt.Sprintf("%s%s  %s  %s",
			indent,
			StyleValue.Render(id),
			StyleDim.Render(fmt.Sprintf("%d layers", len(r.Links()))),
			StyleDim.Render(fmt.Sprintf("%.1f%% coverage", 100*cov.Mean())))
		fmt.Println("  " + line)
		if text != "" {
			fmt.Println("  " + indent + "  " + StyleDim.Render(text))
		}
		if !r.Attached() && id != eng.Regions().RootID() {
			fmt.Println("  " + indent + "  " + StyleWarning.Render("unattached"))
		}
		for _, child := range r.Children() {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(eng.Regions().RootID(), 0); err != nil {
		return err
	}

	fmt.Println()
	printInfo("Plan a full pass: %s", "regionkit plan "+input)
	return nil
}
