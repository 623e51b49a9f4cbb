package cache

import (
	"context"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "mask:abc"); hit {
		t.Error("empty cache should miss")
	}

	if err := c.Set(ctx, "mask:abc", []byte("pixels"), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "mask:abc")
	if err != nil {
		t.Fatal(err)
	}
	if !hit || string(data) != "pixels" {
		t.Errorf("Get = %q hit=%v, want pixels hit=true", data, hit)
	}

	if err := c.Delete(ctx, "mask:abc"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "mask:abc"); hit {
		t.Error("deleted entry should miss")
	}
	// Deleting again is not an error.
	if err := c.Delete(ctx, "mask:abc"); err != nil {
		t.Errorf("repeated Delete error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// Stamp changes change mask keys.
	m1 := k.MaskKey("doc1", "region1", 1)
	m2 := k.MaskKey("doc1", "region1", 2)
	if m1 == m2 {
		t.Error("different stamps should produce different mask keys")
	}
	if m1 != k.MaskKey("doc1", "region1", 1) {
		t.Error("mask keys should be deterministic")
	}

	// Request parameters change plan keys.
	p1 := k.PlanKey("doc1", PlanKeyOpts{Kind: "full", Stamp: 1})
	p2 := k.PlanKey("doc1", PlanKeyOpts{Kind: "refine", RegionID: "r", Stamp: 1})
	if p1 == p2 {
		t.Error("different requests should produce different plan keys")
	}
}
