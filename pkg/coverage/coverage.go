// Package coverage derives per-region coverage masks from the layer stack.
//
// A region's coverage is the union (pixelwise max) of its linked layer
// nodes' occluded coverage: each node's composite opacity with everything
// stacked in front of it removed. The root region covers whatever no other
// top-level region covers, so areas outside every region still follow the
// root prompt.
//
// Results are memoized as a pull-based pure-function cache: keys embed
// both graphs' generation counters, so a lookup after any edit on either
// side (layer stack or region links) simply misses and recomputes.
// Nothing pushes invalidations. Stale entries age out of the memo via
// TTL; region counts are small by design, so the memo stays tiny.
package coverage

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/example/regionkit/pkg/layer"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/region"
)

// memoTTL bounds how long a stale generation's masks linger in the memo.
const memoTTL = 10 * time.Minute

// Resolver computes and memoizes region coverage masks.
//
// Reads are safe for concurrent use: the memo is internally synchronized
// and concurrent computation of the same key is collapsed. The resolver
// never mutates the graphs it reads.
type Resolver struct {
	layers  *layer.Graph
	regions *region.Graph
	memo    *gocache.Cache
	group   singleflight.Group
}

// NewResolver creates a resolver over the given graphs.
func NewResolver(layers *layer.Graph, regions *region.Graph) *Resolver {
	return &Resolver{
		layers:  layers,
		regions: regions,
		memo:    gocache.New(memoTTL, 2*memoTTL),
	}
}

// Stamp returns the generation stamp the next CoverageFor call computes
// against. Plans record it to pin a snapshot.
//
// The stamp is the sum of the two graphs' generation counters. Each
// mutation bumps exactly one counter and neither ever decreases, so the
// sum is strictly monotonic across edits on either graph.
func (r *Resolver) Stamp() uint64 {
	return r.layers.Generation() + r.regions.Generation()
}

// CoverageFor returns the region's coverage mask for the current state
// of both graphs. The returned mask is shared with the memo and must not be
// mutated; Clone it before editing.
//
// An attached region with hidden or empty layers, and any unattached
// region, yields an all-zero mask. Unknown regions fail with
// region.ErrNotFound.
func (r *Resolver) CoverageFor(regionID string) (*mask.Mask, error) {
	if _, err := r.regions.Region(regionID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s@%d.%d", regionID, r.layers.Generation(), r.regions.Generation())
	if cached, ok := r.memo.Get(key); ok {
		return cached.(*mask.Mask), nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if cached, ok := r.memo.Get(key); ok {
			return cached, nil
		}
		m, err := r.compute(regionID)
		if err != nil {
			return nil, err
		}
		r.memo.SetDefault(key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mask.Mask), nil
}

func (r *Resolver) compute(regionID string) (*mask.Mask, error) {
	if regionID == r.regions.RootID() {
		return r.rootCoverage()
	}

	reg, err := r.regions.Region(regionID)
	if err != nil {
		return nil, err
	}
	out := mask.New(r.layers.Canvas())
	for _, layerID := range reg.Links() {
		occluded, err := r.layers.OccludedCoverage(layerID)
		if err != nil {
			// A link to a node deleted from the layer stack contributes
			// nothing; the link lingers until the editor prunes it.
			if err == layer.ErrNotFound {
				continue
			}
			return nil, err
		}
		out.Union(occluded)
	}
	return out, nil
}

// rootCoverage is the full canvas minus the union of every other
// top-level region's coverage. When an explicit background region is
// linked to a full-opacity bottom layer, its own coverage already claims
// the remaining area and the root's share shrinks to nothing - no special
// case is needed.
func (r *Resolver) rootCoverage() (*mask.Mask, error) {
	claimed := mask.New(r.layers.Canvas())
	for _, id := range r.regions.TopLevel() {
		m, err := r.compute(id)
		if err != nil {
			return nil, err
		}
		claimed.Union(m)
	}
	return claimed.Invert(), nil
}
