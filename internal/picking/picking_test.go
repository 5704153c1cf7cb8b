package picking

import (
	"testing"

	"github.com/Faultbox/worldonion/pkg/math"
)

func down(x, y, z float32) Ray {
	return Ray{Origin: math.Vec3{X: x, Y: y, Z: z}, Direction: math.Vec3{Z: -1}}
}

func TestIntersectPlaneZ(t *testing.T) {
	r := down(1, 2, 10)
	dist, ok := r.IntersectPlaneZ(4)
	if !ok || dist != 6 {
		t.Errorf("IntersectPlaneZ = (%f, %v), want (6, true)", dist, ok)
	}

	if _, ok := r.IntersectPlaneZ(20); ok {
		t.Error("plane above a downward ray should not hit")
	}

	level := Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{X: 1}}
	if _, ok := level.IntersectPlaneZ(0); ok {
		t.Error("ray parallel to the plane should not hit")
	}
}

func TestIntersectAABB(t *testing.T) {
	box := NewAABB(math.Vec3{X: -1, Y: -1, Z: 0}, math.Vec3{X: 1, Y: 1, Z: 2})

	dist, hit := down(0, 0, 5).IntersectAABB(box)
	if !hit || dist != 3 {
		t.Errorf("center hit: got (%f, %v), want (3, true)", dist, hit)
	}

	if _, hit := down(3, 0, 5).IntersectAABB(box); hit {
		t.Error("ray beside the box should miss")
	}

	// Ray starting inside returns the exit distance.
	dist, hit = down(0, 0, 1).IntersectAABB(box)
	if !hit || dist != 1 {
		t.Errorf("inside start: got (%f, %v), want (1, true)", dist, hit)
	}
}

func TestNewAABBSwapsCorners(t *testing.T) {
	box := NewAABB(math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: -1, Y: -1, Z: -1})
	if box.Min.X != -1 || box.Max.Z != 1 {
		t.Errorf("corners not normalized: %+v", box)
	}
}

func TestWorldCastNearestHit(t *testing.T) {
	w := &World{
		Planes: []Plane{{Name: "ground", Height: 0}},
		Boxes: []Box{{
			Name: "crate",
			AABB: NewAABB(math.Vec3{X: -1, Y: -1, Z: 0}, math.Vec3{X: 1, Y: 1, Z: 2}),
		}},
	}

	// Above the crate: the crate top wins over the ground.
	hit, ok := w.CastDown(math.Vec3{Z: 10}, "")
	if !ok || hit.Z != 2 {
		t.Errorf("CastDown over crate = (%v, %v), want Z=2", hit, ok)
	}

	// Beside the crate: the ground is struck.
	hit, ok = w.CastDown(math.Vec3{X: 5, Z: 10}, "")
	if !ok || hit.Z != 0 {
		t.Errorf("CastDown over ground = (%v, %v), want Z=0", hit, ok)
	}
}

func TestWorldCastExcludesByName(t *testing.T) {
	w := &World{
		Planes: []Plane{{Name: "ground", Height: 0}},
		Boxes: []Box{{
			Name: "board",
			AABB: NewAABB(math.Vec3{X: -1, Y: -1, Z: 4}, math.Vec3{X: 1, Y: 1, Z: 5}),
		}},
	}

	hit, ok := w.CastDown(math.Vec3{Z: 10}, "board")
	if !ok || hit.Z != 0 {
		t.Errorf("self should be excluded, got (%v, %v)", hit, ok)
	}
}

func TestWorldCastMiss(t *testing.T) {
	w := &World{}
	if _, ok := w.CastDown(math.Vec3{Z: 10}, ""); ok {
		t.Error("empty world should never hit")
	}
}

func TestScreenToRayCenter(t *testing.T) {
	// Identity view-projection: the center of the screen maps to a ray
	// through the NDC cube from z=-1 to z=+1.
	r := ScreenToRay(400, 300, 800, 600, math.Identity())
	if abs(r.Origin.X) > 1e-6 || abs(r.Origin.Y) > 1e-6 || abs(r.Origin.Z+1) > 1e-6 {
		t.Errorf("origin: got %v, want (0, 0, -1)", r.Origin)
	}
	if abs(r.Direction.Z-1) > 1e-6 {
		t.Errorf("direction: got %v, want +Z", r.Direction)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
