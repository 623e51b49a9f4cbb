// Package pkg provides the core libraries for regionkit.
//
// # Overview
//
// Regionkit guides generative image synthesis with spatial regions on a
// layered canvas: each region owns a prompt fragment and links to the
// layer nodes that give it shape. The pkg directory is organized into
// three areas:
//
//  1. Canvas model: [mask] (dense opacity fields), [layer] (the layer
//     stack and occlusion math), [region] (the region hierarchy and
//     layer links), [document] (the JSON interchange form)
//  2. Pipeline: [coverage] (memoized coverage resolution), [prompt]
//     (hierarchy-aware prompt composition), [scope] (request resolution
//     into generation plans), [engine] (the façade tying them
//     together), [backend] (plan submission and result application)
//  3. Infrastructure: [cache] (plan and mask artifact caching),
//     [errors] (the shared error taxonomy), [observability] (hook
//     registry), [buildinfo] (version stamping)
//
// # Architecture
//
// The typical data flow:
//
//	document.json
//	     ↓
//	[document] package (build layer + region graphs)
//	     ↓
//	[coverage] package (per-region occluded coverage masks)
//	     ↓
//	[scope] package (request → generation plan, prompts via [prompt])
//	     ↓
//	[backend] package (submit, apply results as new layers)
//
// # Quick Start
//
// Plan a full-canvas generation for a loaded document:
//
//	import (
//	    "context"
//	    "github.com/example/regionkit/pkg/document"
//	    "github.com/example/regionkit/pkg/engine"
//	    "github.com/example/regionkit/pkg/scope"
//	)
//
//	doc, _ := document.ReadFile("scene.json")
//	lg, rg, _ := doc.Build()
//	eng, _ := engine.New(lg, rg, engine.Options{})
//	result, _ := eng.BuildPlan(context.Background(), scope.Request{Kind: scope.Full})
//	for _, entry := range result.Plan.Entries {
//	    fmt.Println(entry.RegionID, entry.Prompt)
//	}
//
// The CLI in internal/cli and the serve API both drive the same engine,
// so caching and instrumentation behave identically from every entry
// point.
//
// [mask]: https://pkg.go.dev/github.com/example/regionkit/pkg/mask
// [layer]: https://pkg.go.dev/github.com/example/regionkit/pkg/layer
// [region]: https://pkg.go.dev/github.com/example/regionkit/pkg/region
// [document]: https://pkg.go.dev/github.com/example/regionkit/pkg/document
// [coverage]: https://pkg.go.dev/github.com/example/regionkit/pkg/coverage
// [prompt]: https://pkg.go.dev/github.com/example/regionkit/pkg/prompt
// [scope]: https://pkg.go.dev/github.com/example/regionkit/pkg/scope
// [engine]: https://pkg.go.dev/github.com/example/regionkit/pkg/engine
// [backend]: https://pkg.go.dev/github.com/example/regionkit/pkg/backend
// [cache]: https://pkg.go.dev/github.com/example/regionkit/pkg/cache
// [errors]: https://pkg.go.dev/github.com/example/regionkit/pkg/errors
// [observability]: https://pkg.go.dev/github.com/example/regionkit/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/example/regionkit/pkg/buildinfo
package pkg
