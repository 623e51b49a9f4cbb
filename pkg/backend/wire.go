package backend

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/region"
	"github.com/example/regionkit/pkg/scope"
)

// wirePlan is the JSON request body for POST /generate. Masks travel as
// base64 PNG alpha images; the rectangle order is [x0, y0, x1, y1].
type wirePlan struct {
	Kind     string      `json:"kind"`
	Area     [4]int      `json:"area"`
	Stamp    uint64      `json:"stamp"`
	Fallback bool        `json:"fallback,omitempty"`
	Entries  []wireEntry `json:"entries"`
}

type wireEntry struct {
	RegionID string           `json:"region_id"`
	Prompt   string           `json:"prompt"`
	Mask     string           `json:"mask,omitempty"` // base64 PNG
	Controls []region.Control `json:"controls,omitempty"`
}

// wireResult is the JSON response body.
type wireResult struct {
	Seed   uint64 `json:"seed"`
	Images []struct {
		RegionID string `json:"region_id"`
		PNG      string `json:"png"` // base64
	} `json:"images"`
}

func encodePlan(plan *scope.Plan) (*wirePlan, error) {
	w := &wirePlan{
		Kind:     plan.Kind.String(),
		Area:     [4]int{plan.Area.Min.X, plan.Area.Min.Y, plan.Area.Max.X, plan.Area.Max.Y},
		Stamp:    plan.Stamp,
		Fallback: plan.Fallback,
	}
	for _, e := range plan.Entries {
		we := wireEntry{RegionID: e.RegionID, Prompt: e.Prompt, Controls: e.Controls}
		if e.Mask != nil {
			enc, err := encodeMask(e.Mask)
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", e.RegionID, err)
			}
			we.Mask = enc
		}
		w.Entries = append(w.Entries, we)
	}
	return w, nil
}

func encodeMask(m *mask.Mask) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.ToAlpha()); err != nil {
		return "", fmt.Errorf("encode mask: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeResult(w *wireResult) (*Result, error) {
	res := &Result{Seed: w.Seed}
	for _, ri := range w.Images {
		data, err := base64.StdEncoding.DecodeString(ri.PNG)
		if err != nil {
			return nil, fmt.Errorf("result %s: decode base64: %w", ri.RegionID, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("result %s: decode png: %w", ri.RegionID, err)
		}
		res.Images = append(res.Images, RegionImage{RegionID: ri.RegionID, Image: img})
	}
	return res, nil
}
