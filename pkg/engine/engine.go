// Package engine ties the region pipeline together behind one façade.
//
// An Engine owns the coverage and scope resolvers for a loaded document
// and runs the coverage → scope → prompt pipeline with plan caching,
// staleness checks, and hook emission. CLI commands and the serve API
// both go through it, so caching and instrumentation behave the same
// from every entry point.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/example/regionkit/pkg/backend"
	"github.com/example/regionkit/pkg/cache"
	"github.com/example/regionkit/pkg/coverage"
	"github.com/example/regionkit/pkg/layer"
	"github.com/example/regionkit/pkg/observability"
	"github.com/example/regionkit/pkg/prompt"
	"github.com/example/regionkit/pkg/region"
	"github.com/example/regionkit/pkg/scope"
)

// coverageWorkers bounds parallel mask computation during warmup.
const coverageWorkers = 4

// Options configures an Engine. The zero value is usable; unset fields
// get documented defaults.
type Options struct {
	// TileOverlapThreshold is the minimum tile-area fraction a region
	// must cover to join a tile plan, in [0, 1]. 0 includes any overlap.
	TileOverlapThreshold float64

	// SelectionCoverageMin is the minimum selection fraction a region
	// must cover to join a selection plan, in [0, 1]. Nil gets
	// scope.DefaultSelectionCoverageMin; an explicit zero includes a
	// region on any non-zero overlap.
	SelectionCoverageMin *float64

	// Separator joins prompt segments. Defaults to ", ".
	Separator string

	// DocHash is the content hash of the loaded document. Plan caching
	// is disabled when empty, since keys could not tell documents apart.
	DocHash string

	// Cache stores serialized plans across invocations. Defaults to the
	// null cache.
	Cache cache.Cache
	Keyer cache.Keyer

	// Backend executes plans. Required for Generate, unused otherwise.
	Backend backend.Backend

	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks ranges and applies defaults. Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.TileOverlapThreshold < 0 || o.TileOverlapThreshold > 1 {
		return fmt.Errorf("tile overlap threshold %v: must be in [0, 1]", o.TileOverlapThreshold)
	}
	if o.SelectionCoverageMin == nil {
		min := scope.DefaultSelectionCoverageMin
		o.SelectionCoverageMin = &min
	}
	if *o.SelectionCoverageMin < 0 || *o.SelectionCoverageMin > 1 {
		return fmt.Errorf("selection coverage min %v: must be in [0, 1]", *o.SelectionCoverageMin)
	}
	if o.Separator == "" {
		o.Separator = prompt.DefaultSeparator
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Stats carries timing and size information for one pipeline run.
type Stats struct {
	RegionCount  int
	EntryCount   int
	CoverageTime time.Duration
	PlanTime     time.Duration
	SubmitTime   time.Duration
}

// CacheInfo reports which stages were served from the artifact cache.
type CacheInfo struct {
	PlanHit bool
}

// PlanResult is the outcome of BuildPlan.
type PlanResult struct {
	Plan      *scope.Plan
	Stats     Stats
	CacheInfo CacheInfo
}

// GenerateResult is the outcome of Generate: the plan, the backend
// result, and the layer IDs created by applying it.
type GenerateResult struct {
	Plan     *scope.Plan
	Result   *backend.Result
	LayerIDs []string
	Stats    Stats
}

// Engine runs the pipeline for one loaded document.
//
// Plan construction is safe for concurrent use as long as nobody mutates
// the graphs concurrently; Generate mutates the layer graph and must be
// serialized by the caller.
type Engine struct {
	layers   *layer.Graph
	regions  *region.Graph
	coverage *coverage.Resolver
	scope    *scope.Resolver
	opts     Options
}

// New creates an engine over the given graphs.
func New(lg *layer.Graph, rg *region.Graph, opts Options) (*Engine, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	cov := coverage.NewResolver(lg, rg)
	composer := prompt.Composer{Separator: opts.Separator}
	sc := scope.NewResolver(rg, cov, composer, scope.Options{
		TileOverlapThreshold: opts.TileOverlapThreshold,
		SelectionCoverageMin: *opts.SelectionCoverageMin,
	})
	return &Engine{
		layers:   lg,
		regions:  rg,
		coverage: cov,
		scope:    sc,
		opts:     opts,
	}, nil
}

// Layers returns the engine's layer graph.
func (e *Engine) Layers() *layer.Graph { return e.layers }

// Regions returns the engine's region graph.
func (e *Engine) Regions() *region.Graph { return e.regions }

// Coverage returns the engine's coverage resolver.
func (e *Engine) Coverage() *coverage.Resolver { return e.coverage }

// Stamp returns the snapshot stamp the next plan will pin. It changes on
// any layer edit and on any region link or structure edit.
func (e *Engine) Stamp() uint64 { return e.coverage.Stamp() }

// Stale reports whether either graph was edited after the plan was
// built.
func (e *Engine) Stale(plan *scope.Plan) bool {
	return plan.Stamp != e.coverage.Stamp()
}

// WarmCoverage computes every region's coverage mask in parallel,
// priming the memo so a following BuildPlan runs from warm state.
func (e *Engine) WarmCoverage(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(coverageWorkers)
	for _, id := range e.regions.Regions() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			observability.Engine().OnCoverageStart(ctx, id)
			_, err := e.coverage.CoverageFor(id)
			observability.Engine().OnCoverageComplete(ctx, id, time.Since(start), err)
			return err
		})
	}
	return g.Wait()
}

// BuildPlan resolves the request into a generation plan, consulting the
// plan cache first when a document hash is configured.
func (e *Engine) BuildPlan(ctx context.Context, req scope.Request) (*PlanResult, error) {
	result := &PlanResult{}
	regionCount := len(e.regions.Regions())
	result.Stats.RegionCount = regionCount

	observability.Engine().OnPlanStart(ctx, req.Kind.String(), regionCount)
	planStart := time.Now()

	cacheKey, cacheable := e.planKey(req)
	if cacheable {
		if data, hit, err := e.opts.Cache.Get(ctx, cacheKey); err == nil && hit {
			if plan, err := UnmarshalPlan(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "plan")
				result.Plan = plan
				result.CacheInfo.PlanHit = true
				result.Stats.EntryCount = len(plan.Entries)
				result.Stats.PlanTime = time.Since(planStart)
				observability.Engine().OnPlanComplete(ctx, req.Kind.String(), len(plan.Entries), result.Stats.PlanTime, nil)
				return result, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "plan")
	}

	covStart := time.Now()
	if err := e.WarmCoverage(ctx); err != nil {
		observability.Engine().OnPlanComplete(ctx, req.Kind.String(), 0, time.Since(planStart), err)
		return nil, err
	}
	result.Stats.CoverageTime = time.Since(covStart)

	plan, err := e.scope.PlanFor(req)
	result.Stats.PlanTime = time.Since(planStart)
	if err != nil {
		observability.Engine().OnPlanComplete(ctx, req.Kind.String(), 0, result.Stats.PlanTime, err)
		return nil, err
	}
	result.Plan = plan
	result.Stats.EntryCount = len(plan.Entries)

	if cacheable {
		if data, err := MarshalPlan(plan); err == nil {
			if e.opts.Cache.Set(ctx, cacheKey, data, cache.TTLPlan) == nil {
				observability.Cache().OnCacheSet(ctx, "plan", len(data))
			}
		}
	}

	e.opts.Logger.Info("built plan",
		"kind", req.Kind.String(),
		"entries", len(plan.Entries),
		"fallback", plan.Fallback,
		"duration", result.Stats.PlanTime)
	observability.Engine().OnPlanComplete(ctx, req.Kind.String(), len(plan.Entries), result.Stats.PlanTime, nil)
	return result, nil
}

// planKey returns the cache key for the request and whether the request
// is cacheable at all. Selection requests carry an arbitrary mask the
// key scheme cannot identify, so they always recompute.
func (e *Engine) planKey(req scope.Request) (string, bool) {
	if e.opts.DocHash == "" || req.Kind == scope.Selection {
		return "", false
	}
	return e.opts.Keyer.PlanKey(e.opts.DocHash, cache.PlanKeyOpts{
		Kind:      req.Kind.String(),
		RegionID:  req.RegionID,
		TileRect:  [4]int{req.TileRect.Min.X, req.TileRect.Min.Y, req.TileRect.Max.X, req.TileRect.Max.Y},
		Padding:   req.Padding,
		Threshold: e.opts.TileOverlapThreshold,
		Stamp:     e.coverage.Stamp(),
	}), true
}

// Generate builds the plan, submits it to the configured backend, and
// applies the result as new linked layers.
func (e *Engine) Generate(ctx context.Context, req scope.Request) (*GenerateResult, error) {
	if e.opts.Backend == nil {
		return nil, fmt.Errorf("no backend configured")
	}

	pr, err := e.BuildPlan(ctx, req)
	if err != nil {
		return nil, err
	}
	plan := pr.Plan

	observability.Engine().OnSubmitStart(ctx, plan.Kind.String(), len(plan.Entries))
	submitStart := time.Now()
	res, err := e.opts.Backend.Submit(ctx, plan)
	submitTime := time.Since(submitStart)
	observability.Engine().OnSubmitComplete(ctx, plan.Kind.String(), submitTime, err)
	if err != nil {
		return nil, err
	}

	// The canvas may have been edited while the backend was working; the
	// result still applies, it just lands on top of the newer state.
	if e.Stale(plan) {
		e.opts.Logger.Warn("applying result built against stale layers",
			"plan_stamp", plan.Stamp, "current", e.coverage.Stamp())
	}

	ids, err := backend.Apply(e.layers, e.regions, res)
	if err != nil {
		return nil, err
	}

	stats := pr.Stats
	stats.SubmitTime = submitTime
	e.opts.Logger.Info("applied generation result",
		"layers", len(ids), "seed", res.Seed, "duration", submitTime)
	return &GenerateResult{Plan: plan, Result: res, LayerIDs: ids, Stats: stats}, nil
}
