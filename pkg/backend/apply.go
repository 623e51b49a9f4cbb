package backend

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/example/regionkit/pkg/layer"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/region"
)

// Apply inserts the result images into the layer stack as fresh
// top-level paint layers, frontmost last, and links each to the region
// it was generated for. The new layer IDs are returned in stacking
// order.
//
// A result image's alpha channel becomes the new layer's opacity
// buffer, resized to the canvas if the backend returned a different
// resolution. Regions that were removed between submit and apply are
// skipped rather than failing the whole application.
func Apply(lg *layer.Graph, rg *region.Graph, res *Result) ([]string, error) {
	var created []string
	for _, ri := range res.Images {
		id := "gen-" + uuid.NewString()
		if err := lg.AddPaint(id, ""); err != nil {
			return created, fmt.Errorf("apply %s: %w", ri.RegionID, err)
		}
		m := mask.FromImage(ri.Image)
		if m.Bounds() != lg.Canvas() {
			m = m.Resize(lg.Canvas())
		}
		if err := lg.SetOpacity(id, m); err != nil {
			return created, fmt.Errorf("apply %s: %w", ri.RegionID, err)
		}
		created = append(created, id)

		// Background output belongs to the root region, which never
		// links; a region removed between submit and apply is skipped.
		if ri.RegionID == rg.RootID() {
			continue
		}
		if _, err := rg.Region(ri.RegionID); err != nil {
			continue
		}
		if err := rg.Link(ri.RegionID, id); err != nil {
			return created, fmt.Errorf("link %s: %w", ri.RegionID, err)
		}
	}
	return created, nil
}
