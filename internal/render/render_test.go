package render

import (
	"testing"

	"github.com/Faultbox/worldonion/internal/extract"
	"github.com/Faultbox/worldonion/pkg/math"
)

func TestSkinColorSides(t *testing.T) {
	s := DefaultSettings()

	before := SkinColor(s, -1)
	after := SkinColor(s, 1)
	if before[1] <= before[2] {
		t.Errorf("before skin should lean green, got %v", before)
	}
	if after[2] <= after[1] {
		t.Errorf("after skin should lean blue, got %v", after)
	}
	if before[3] != s.Opacity || after[3] != s.Opacity {
		t.Errorf("nearest skins should use base opacity, got %f and %f", before[3], after[3])
	}
}

func TestAnchorCross(t *testing.T) {
	recs := AnchorCross(math.Vec3{X: 1, Y: 2, Z: 3}, 0.5)
	if len(recs) != 3 {
		t.Fatalf("arms = %d, want 3", len(recs))
	}
	for _, rec := range recs {
		if len(rec.Points) != 2 {
			t.Fatalf("arm has %d points, want 2", len(rec.Points))
		}
		mid := rec.Points[0].Add(rec.Points[1]).Scale(0.5)
		if mid != (math.Vec3{X: 1, Y: 2, Z: 3}) {
			t.Errorf("arm not centered on the anchor: %v", rec.Points)
		}
		if rec.Points[0].Distance(rec.Points[1]) != 1 {
			t.Errorf("arm length = %f, want 1", rec.Points[0].Distance(rec.Points[1]))
		}
	}
}

func TestPathRecord(t *testing.T) {
	pts := []math.Vec3{{}, {X: 1}, {X: 2, Z: 1}}
	rec := PathRecord(pts)
	if len(rec.Points) != 3 || rec.Points[2] != (math.Vec3{X: 2, Z: 1}) {
		t.Errorf("path record = %v", rec)
	}
}

func TestSkinColorFalloff(t *testing.T) {
	s := DefaultSettings()

	near := SkinColor(s, 1)
	far := SkinColor(s, 3)
	if far[3] >= near[3] {
		t.Errorf("alpha should fade with distance: %f vs %f", far[3], near[3])
	}
	want := s.Opacity * s.Falloff * s.Falloff
	if abs(far[3]-want) > 1e-6 {
		t.Errorf("offset 3 alpha = %f, want %f", far[3], want)
	}
}

func TestFillColorScalesAlpha(t *testing.T) {
	s := DefaultSettings()
	stroke := SkinColor(s, 1)
	fill := FillColor(s, stroke)
	if abs(fill[3]-stroke[3]*s.FillOpacity) > 1e-6 {
		t.Errorf("fill alpha = %f, want %f", fill[3], stroke[3]*s.FillOpacity)
	}
}

func TestStrokeVertices(t *testing.T) {
	rec := extract.StrokeRecord{Points: []math.Vec3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}}
	got := StrokeVertices(rec, 0.5)
	want := []float32{1, 2, 3.5, 4, 5, 6.5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("vertices = %v, want %v", got, want)
		}
	}
}

func TestFillVertices(t *testing.T) {
	rec := extract.StrokeRecord{
		Points:        []math.Vec3{{}, {X: 1}, {X: 1, Y: 1}},
		FillTriangles: [][3]int{{0, 1, 2}},
	}
	got := FillVertices(rec, 1)
	if len(got) != 9 {
		t.Fatalf("len = %d, want 9", len(got))
	}
	if got[2] != 1 || got[5] != 1 || got[8] != 1 {
		t.Errorf("z offset not applied: %v", got)
	}

	if FillVertices(extract.StrokeRecord{Points: rec.Points}, 0) != nil {
		t.Error("stroke without fill should flatten to nil")
	}
}

func TestFillVerticesBadIndex(t *testing.T) {
	rec := extract.StrokeRecord{
		Points:        []math.Vec3{{}},
		FillTriangles: [][3]int{{0, 1, 2}},
	}
	if FillVertices(rec, 0) != nil {
		t.Error("out-of-range indices should degrade to no fill")
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
