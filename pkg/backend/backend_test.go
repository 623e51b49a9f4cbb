package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/regionkit/pkg/layer"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/region"
	"github.com/example/regionkit/pkg/scope"
)

func testPlan(t *testing.T) *scope.Plan {
	t.Helper()
	canvas := image.Rect(0, 0, 8, 4)
	left := mask.New(canvas)
	left.Fill(image.Rect(0, 0, 4, 4), 1)
	return &scope.Plan{
		Kind: scope.Full,
		Area: canvas,
		Entries: []scope.Entry{
			{RegionID: "r-left", Prompt: "a vase", Mask: left},
			{RegionID: "r-root", Prompt: "a table"},
		},
		Stamp: 7,
	}
}

func TestMemorySubmit(t *testing.T) {
	b := NewMemory(42)
	res, err := b.Submit(context.Background(), testPlan(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Seed != 42 {
		t.Errorf("seed = %d, want 42", res.Seed)
	}
	if len(res.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(res.Images))
	}
	if res.Images[0].RegionID != "r-left" {
		t.Errorf("first image region = %s", res.Images[0].RegionID)
	}

	// The masked entry must stay transparent outside its coverage.
	img := res.Images[0].Image.(*image.NRGBA)
	if _, _, _, a := img.At(6, 2).RGBA(); a != 0 {
		t.Error("pixel outside mask should be transparent")
	}
	if _, _, _, a := img.At(2, 2).RGBA(); a == 0 {
		t.Error("pixel inside mask should be opaque")
	}
}

func TestMemorySubmitEmptyPlan(t *testing.T) {
	b := NewMemory(1)
	if _, err := b.Submit(context.Background(), &scope.Plan{}); err == nil {
		t.Fatal("expected error for empty plan")
	}
}

func TestApply(t *testing.T) {
	canvas := image.Rect(0, 0, 8, 4)
	lg := layer.New(canvas)
	if err := lg.AddPaint("bg", ""); err != nil {
		t.Fatal(err)
	}
	rg := region.NewGraph("a table")
	if _, err := rg.Insert("r-left", rg.RootID()); err != nil {
		t.Fatal(err)
	}

	img := image.NewNRGBA(canvas)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	res := &Result{Images: []RegionImage{
		{RegionID: "r-left", Image: img},
		{RegionID: "r-gone", Image: img}, // removed between submit and apply
	}}

	created, err := Apply(lg, rg, res)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d layers, want 2", len(created))
	}

	m, err := lg.CompositeCoverage(created[0])
	if err != nil {
		t.Fatal(err)
	}
	if m.At(2, 2) != 1 || m.At(6, 2) != 0 {
		t.Error("new layer opacity should follow the image alpha")
	}
	if rg.RegionForLayer(created[0]) != "r-left" {
		t.Error("new layer should be linked to its region")
	}
	if rg.RegionForLayer(created[1]) != "" {
		t.Error("image for a removed region should stay unlinked")
	}
}

func TestHTTPSubmit(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	encoded := base64.StdEncoding.EncodeToString(pngBuf.Bytes())

	failures := 1
	var gotPlan wirePlan
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failures > 0 {
			failures--
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Path != "/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPlan); err != nil {
			t.Error(err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"seed": 99,
			"images": []map[string]string{
				{"region_id": "r-left", "png": encoded},
			},
		})
	}))
	defer srv.Close()

	b := NewHTTP(srv.URL, WithRateLimit(100, 1), WithHeader("Authorization", "Bearer t"))
	res, err := b.Submit(context.Background(), testPlan(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Seed != 99 || len(res.Images) != 1 {
		t.Fatalf("result = seed %d, %d images", res.Seed, len(res.Images))
	}
	if gotPlan.Kind != "full" || gotPlan.Stamp != 7 {
		t.Errorf("wire plan = kind %q stamp %d", gotPlan.Kind, gotPlan.Stamp)
	}
	if gotPlan.Entries[0].Mask == "" {
		t.Error("masked entry should carry a PNG mask on the wire")
	}
	if gotPlan.Entries[1].Mask != "" {
		t.Error("fallback entry should have no mask on the wire")
	}
}

func TestHTTPSubmitClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	b := NewHTTP(srv.URL)
	if _, err := b.Submit(context.Background(), testPlan(t)); err == nil {
		t.Fatal("expected error on 4xx")
	}
}
