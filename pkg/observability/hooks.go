// Package observability provides hooks for instrumenting the engine.
//
// The engine stays dependency-free from observability frameworks: main
// registers hook implementations at startup, and library code emits
// events through the registry. No-op defaults make instrumentation fully
// optional.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEngineHooks(&myEngineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Engine().OnPlanStart(ctx, kind, regionCount)
//	// ... build plan ...
//	observability.Engine().OnPlanComplete(ctx, kind, entries, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// EngineHooks receives events from plan construction and submission.
type EngineHooks interface {
	// Coverage events, one pair per region whose mask is computed.
	OnCoverageStart(ctx context.Context, regionID string)
	OnCoverageComplete(ctx context.Context, regionID string, duration time.Duration, err error)

	// Plan events.
	OnPlanStart(ctx context.Context, kind string, regionCount int)
	OnPlanComplete(ctx context.Context, kind string, entries int, duration time.Duration, err error)

	// Backend submission events.
	OnSubmitStart(ctx context.Context, planKind string, entries int)
	OnSubmitComplete(ctx context.Context, planKind string, duration time.Duration, err error)
}

// CacheHooks receives events from artifact cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnCoverageStart(context.Context, string)                           {}
func (NoopEngineHooks) OnCoverageComplete(context.Context, string, time.Duration, error)  {}
func (NoopEngineHooks) OnPlanStart(context.Context, string, int)                          {}
func (NoopEngineHooks) OnPlanComplete(context.Context, string, int, time.Duration, error) {}
func (NoopEngineHooks) OnSubmitStart(context.Context, string, int)                        {}
func (NoopEngineHooks) OnSubmitComplete(context.Context, string, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// Call once at application startup before any plan construction.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// Call once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// Primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	cacheHooks = NoopCacheHooks{}
}
