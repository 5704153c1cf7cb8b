// Package extract converts a drawing keyframe into render-ready world-space
// geometry: per-stroke point chains plus fill triangulations for strokes
// whose material draws a fill.
package extract

import (
	"github.com/Faultbox/worldonion/internal/drawing"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

// StrokeRecord is one stroke of a keyframe in world space. FillTriangles is
// nil for strokes without a fill material or with too few points to tessellate.
type StrokeRecord struct {
	Points        []math.Vec3
	LayerName     string
	FillTriangles [][3]int
}

// Strokes extracts every visible stroke of the keyframes active at frame
// (the keyframe at or before it, held), transformed into world space by
// objectWorld * layerMatrix. Strokes with fewer than two points are dropped.
// Layers rejected by the filter are skipped entirely.
func Strokes(obj *scenegraph.Object, frame int, objectWorld math.Mat4, filter drawing.LayerFilter) []StrokeRecord {
	if obj == nil || obj.Drawing == nil {
		return nil
	}

	var records []StrokeRecord
	for _, layer := range obj.Drawing.Layers {
		if !filter.Pass(layer) {
			continue
		}
		key := layer.ActiveKeyAt(frame)
		if key == nil {
			continue
		}

		toWorld := objectWorld.Mul(layer.LayerMatrix())
		for i := 0; i < key.StrokeCount(); i++ {
			start, end := key.StrokeBounds(i)
			if end-start < 2 {
				continue
			}

			points := make([]math.Vec3, 0, end-start)
			for _, p := range key.Points[start:end] {
				points = append(points, toWorld.TransformPoint(p))
			}
			if degenerate(points) {
				continue
			}

			rec := StrokeRecord{Points: points, LayerName: layer.Name}
			if mat := material(obj.Drawing, key.StrokeMaterial(i)); mat != nil && mat.ShowFill && len(points) >= 3 {
				rec.FillTriangles = Triangulate(points)
			}
			records = append(records, rec)
		}
	}
	return records
}

// ObjectStrokes extracts the active keyframe's strokes transformed by the
// object world matrix only, skipping layer matrices. Anchor derivation runs
// on this raw geometry: a locked layer's matrix carries the lock
// compensation, and folding it back in would make the anchor chase itself.
func ObjectStrokes(obj *scenegraph.Object, frame int, objectWorld math.Mat4, filter drawing.LayerFilter) []StrokeRecord {
	if obj == nil || obj.Drawing == nil {
		return nil
	}

	var records []StrokeRecord
	for _, layer := range obj.Drawing.Layers {
		if !filter.Pass(layer) {
			continue
		}
		key := layer.ActiveKeyAt(frame)
		if key == nil {
			continue
		}

		for i := 0; i < key.StrokeCount(); i++ {
			start, end := key.StrokeBounds(i)
			if end-start < 1 {
				continue
			}
			points := make([]math.Vec3, 0, end-start)
			for _, p := range key.Points[start:end] {
				points = append(points, objectWorld.TransformPoint(p))
			}
			records = append(records, StrokeRecord{Points: points, LayerName: layer.Name})
		}
	}
	return records
}

// degenerate reports whether every point of the stroke coincides, which
// produces zero-length geometry the renderer cannot draw.
func degenerate(points []math.Vec3) bool {
	for _, p := range points[1:] {
		if p != points[0] {
			return false
		}
	}
	return true
}

func material(d *drawing.Data, index int) *drawing.Material {
	if index < 0 || index >= len(d.Materials) {
		return nil
	}
	return &d.Materials[index]
}
