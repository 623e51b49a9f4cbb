// Package cache provides the artifact cache for rendered coverage masks
// and serialized generation plans.
//
// The in-memory coverage memo lives inside the coverage resolver; this
// package persists derived artifacts across CLI invocations and serve
// restarts. Keys embed content hashes and generation stamps, so entries
// never need explicit invalidation - an edited document simply hashes to
// new keys and old entries age out via TTL.
//
// Backends: file (CLI default), Redis (multi-instance serve deployments),
// and null (caching disabled).
package cache

import (
	"context"
	"time"
)

// Default TTLs per artifact kind. Keys embed generation stamps, so these
// bound disk growth rather than correctness.
const (
	TTLMask = 24 * time.Hour
	TTLPlan = 24 * time.Hour
)

// Cache is the interface for artifact cache backends.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL stores without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the artifact kinds the engine stores.
type Keyer interface {
	// MaskKey identifies a rendered coverage mask: document content hash,
	// region, and the layer generation it was computed against.
	MaskKey(docHash, regionID string, stamp uint64) string

	// PlanKey identifies a serialized generation plan for a request.
	PlanKey(docHash string, opts PlanKeyOpts) string
}

// PlanKeyOpts are the request parameters that distinguish plan cache
// entries for the same document.
type PlanKeyOpts struct {
	Kind      string  `json:"kind"`
	RegionID  string  `json:"region_id,omitempty"`
	TileRect  [4]int  `json:"tile_rect,omitempty"`
	Padding   int     `json:"padding,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Stamp     uint64  `json:"stamp"`
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// MaskKey generates a key for a rendered coverage mask.
func (DefaultKeyer) MaskKey(docHash, regionID string, stamp uint64) string {
	return hashKey("mask", docHash, regionID, stamp)
}

// PlanKey generates a key for a serialized generation plan.
func (DefaultKeyer) PlanKey(docHash string, opts PlanKeyOpts) string {
	return hashKey("plan", docHash, opts)
}
