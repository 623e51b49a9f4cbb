// Package prompt composes effective prompt strings for regions.
//
// A region's effective prompt is its own text followed by each ancestor's
// text nearest first, with the root prompt last - the root prompt is
// appended to the text of every region. Empty texts contribute nothing, so
// composition never produces stray separators.
package prompt

import (
	"strings"

	"github.com/example/regionkit/pkg/region"
)

// DefaultSeparator joins prompt segments when no separator is configured.
const DefaultSeparator = ", "

// Composer builds effective prompts from the region hierarchy.
// Composition is pure: the same graph and texts always produce the same
// string. The zero value uses DefaultSeparator.
type Composer struct {
	// Separator joins non-empty segments.
	Separator string
}

// Compose returns the effective prompt for a region: own text, ancestors
// nearest first, root text last. For the root region itself the result is
// just the root text.
func (c Composer) Compose(g *region.Graph, regionID string) (string, error) {
	r, err := g.Region(regionID)
	if err != nil {
		return "", err
	}
	ancestors, err := g.AncestorsOf(regionID)
	if err != nil {
		return "", err
	}

	sep := c.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	parts := make([]string, 0, len(ancestors)+1)
	if t := strings.TrimSpace(r.Text); t != "" {
		parts = append(parts, t)
	}
	for _, a := range ancestors {
		if t := strings.TrimSpace(a.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, sep), nil
}
