package engine

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"math"

	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/region"
	"github.com/example/regionkit/pkg/scope"
)

// planDoc is the serialized plan form used for caching and the serve
// API. Masks are stored losslessly as base64 little-endian float32 rows,
// with their sub-rectangle preserved; rectangle order is [x0 y0 x1 y1].
type planDoc struct {
	Kind     string         `json:"kind"`
	Area     [4]int         `json:"area"`
	Stamp    uint64         `json:"stamp"`
	Fallback bool           `json:"fallback,omitempty"`
	Entries  []planEntryDoc `json:"entries"`
}

type planEntryDoc struct {
	RegionID string           `json:"region_id"`
	Prompt   string           `json:"prompt"`
	MaskRect *[4]int          `json:"mask_rect,omitempty"`
	MaskPix  string           `json:"mask_pix,omitempty"`
	Controls []region.Control `json:"controls,omitempty"`
}

// MarshalPlan serializes a plan to JSON.
func MarshalPlan(plan *scope.Plan) ([]byte, error) {
	doc := planDoc{
		Kind:     plan.Kind.String(),
		Area:     rectSlice(plan.Area),
		Stamp:    plan.Stamp,
		Fallback: plan.Fallback,
	}
	for _, e := range plan.Entries {
		ed := planEntryDoc{RegionID: e.RegionID, Prompt: e.Prompt, Controls: e.Controls}
		if e.Mask != nil {
			r := rectSlice(e.Mask.Bounds())
			ed.MaskRect = &r
			ed.MaskPix = encodePix(e.Mask.Pix)
		}
		doc.Entries = append(doc.Entries, ed)
	}
	return json.Marshal(doc)
}

// UnmarshalPlan reconstructs a plan from its JSON form.
func UnmarshalPlan(data []byte) (*scope.Plan, error) {
	var doc planDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	kind, err := parseKind(doc.Kind)
	if err != nil {
		return nil, err
	}
	plan := &scope.Plan{
		Kind:     kind,
		Area:     sliceRect(doc.Area),
		Stamp:    doc.Stamp,
		Fallback: doc.Fallback,
	}
	for _, ed := range doc.Entries {
		e := scope.Entry{RegionID: ed.RegionID, Prompt: ed.Prompt, Controls: ed.Controls}
		if ed.MaskRect != nil {
			rect := sliceRect(*ed.MaskRect)
			pix, err := decodePix(ed.MaskPix)
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", ed.RegionID, err)
			}
			if want := rect.Dx() * rect.Dy(); len(pix) != want {
				return nil, fmt.Errorf("entry %s: mask has %d pixels, rect wants %d", ed.RegionID, len(pix), want)
			}
			e.Mask = &mask.Mask{Rect: rect, Pix: pix}
		}
		plan.Entries = append(plan.Entries, e)
	}
	return plan, nil
}

// ParseKind maps a wire kind name back to its scope.Kind.
func ParseKind(s string) (scope.Kind, error) { return parseKind(s) }

func parseKind(s string) (scope.Kind, error) {
	switch s {
	case "full", "":
		return scope.Full, nil
	case "refine":
		return scope.Refine, nil
	case "tile":
		return scope.Tile, nil
	case "selection":
		return scope.Selection, nil
	default:
		return 0, fmt.Errorf("unknown plan kind %q", s)
	}
}

func rectSlice(r image.Rectangle) [4]int {
	return [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}

func sliceRect(s [4]int) image.Rectangle {
	return image.Rect(s[0], s[1], s[2], s[3])
}

func encodePix(pix []float32) string {
	buf := make([]byte, 4*len(pix))
	for i, v := range pix {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodePix(s string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode mask pixels: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("mask pixel data truncated")
	}
	pix := make([]float32, len(buf)/4)
	for i := range pix {
		pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return pix, nil
}
