// Package render holds the backend-independent half of onion-skin drawing:
// tint and opacity falloff per skin, flattening of stroke records into vertex
// buffers, and the Backend interface a GPU implementation satisfies.
package render

import (
	gomath "math"

	"github.com/Faultbox/worldonion/internal/batchcache"
	"github.com/Faultbox/worldonion/internal/extract"
	"github.com/Faultbox/worldonion/pkg/math"
)

// Color is an RGBA color with components in [0, 1].
type Color [4]float32

// Settings controls how onion skins are tinted and faded.
type Settings struct {
	BeforeColor Color
	AfterColor  Color
	// Opacity is the alpha of the nearest skin.
	Opacity float32
	// Falloff scales the opacity per step away from the playhead, in (0, 1].
	Falloff float32
	// FillOpacity scales fill alpha relative to stroke alpha.
	FillOpacity float32
	LineWidth   float32
}

// DefaultSettings mirrors the usual onion-skin look: green behind, blue
// ahead, fading with distance.
func DefaultSettings() Settings {
	return Settings{
		BeforeColor: Color{0.1, 0.75, 0.25, 1},
		AfterColor:  Color{0.25, 0.4, 0.9, 1},
		Opacity:     0.5,
		Falloff:     0.7,
		FillOpacity: 0.5,
		LineWidth:   2,
	}
}

// SkinColor returns the stroke color for a skin at the given signed offset
// from the playhead. Alpha fades by Falloff per step beyond the first.
func SkinColor(s Settings, offset int) Color {
	c := s.AfterColor
	if offset < 0 {
		c = s.BeforeColor
		offset = -offset
	}
	alpha := s.Opacity
	if offset > 1 {
		alpha *= float32(gomath.Pow(float64(s.Falloff), float64(offset-1)))
	}
	if alpha < 0 {
		alpha = 0
	}
	c[3] = alpha
	return c
}

// FillColor derives the fill color for a skin from its stroke color.
func FillColor(s Settings, stroke Color) Color {
	stroke[3] *= s.FillOpacity
	return stroke
}

// Anchor marker colors: the active keyframe's anchor draws bright, the rest
// dim so the current pivot stands out.
var (
	AnchorActiveColor = Color{1, 0.9, 0, 0.9}
	AnchorIdleColor   = Color{0.8, 0.6, 0, 0.4}
)

// AnchorCross builds the three axis-aligned line segments of an anchor
// marker centered on pos, each arm extending size in both directions.
func AnchorCross(pos math.Vec3, size float32) []extract.StrokeRecord {
	return []extract.StrokeRecord{
		{Points: []math.Vec3{
			{X: pos.X - size, Y: pos.Y, Z: pos.Z},
			{X: pos.X + size, Y: pos.Y, Z: pos.Z},
		}},
		{Points: []math.Vec3{
			{X: pos.X, Y: pos.Y - size, Z: pos.Z},
			{X: pos.X, Y: pos.Y + size, Z: pos.Z},
		}},
		{Points: []math.Vec3{
			{X: pos.X, Y: pos.Y, Z: pos.Z - size},
			{X: pos.X, Y: pos.Y, Z: pos.Z + size},
		}},
	}
}

// PathRecord wraps a sampled motion path into a single stroke record so a
// backend can upload it as one line strip.
func PathRecord(points []math.Vec3) extract.StrokeRecord {
	return extract.StrokeRecord{Points: points}
}

// StrokeVertices flattens one stroke into x,y,z triples for a line strip,
// lifting every point by zOffset.
func StrokeVertices(rec extract.StrokeRecord, zOffset float32) []float32 {
	out := make([]float32, 0, len(rec.Points)*3)
	for _, p := range rec.Points {
		out = append(out, p.X, p.Y, p.Z+zOffset)
	}
	return out
}

// FillVertices expands a stroke's fill triangulation into a triangle soup,
// lifting every point by zOffset. Returns nil when the stroke has no fill.
func FillVertices(rec extract.StrokeRecord, zOffset float32) []float32 {
	if len(rec.FillTriangles) == 0 {
		return nil
	}
	out := make([]float32, 0, len(rec.FillTriangles)*9)
	for _, tri := range rec.FillTriangles {
		for _, idx := range tri {
			if idx < 0 || idx >= len(rec.Points) {
				return nil
			}
			p := rec.Points[idx]
			out = append(out, p.X, p.Y, p.Z+zOffset)
		}
	}
	return out
}

// Backend builds GPU batches from stroke records and draws cached entries.
type Backend interface {
	BuildEntry(records []extract.StrokeRecord, zOffset float32) *batchcache.Entry
	DrawEntry(entry *batchcache.Entry, viewProj math.Mat4, stroke, fill Color, lineWidth float32)
}
