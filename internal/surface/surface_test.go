package surface

import (
	"errors"
	"testing"

	"github.com/Faultbox/worldonion/internal/picking"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

func flatPath(start, end int, z float32) *scenegraph.Object {
	o := scenegraph.NewObject("board")
	o.PosCurve = &scenegraph.FCurve{}
	o.PosCurve.AddKey(scenegraph.CurveKey{Frame: start, Value: math.Vec3{Z: z}})
	o.PosCurve.AddKey(scenegraph.CurveKey{Frame: end, Value: math.Vec3{X: 10, Z: z}})
	return o
}

func TestBakeFlatPlaneBelowPath(t *testing.T) {
	// A plane sits 2 units below the path for the whole 50-frame range.
	world := &picking.World{Planes: []picking.Plane{{Name: "ground", Height: 0}}}
	obj := flatPath(1, 50, 2)

	b := NewBaker(world, nil)
	if err := b.Bake(obj, 1, 50); err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if b.State() != Valid {
		t.Fatalf("state = %v, want Valid", b.State())
	}

	// Plane at 0, path at 2: hit is below, nothing to push up.
	for f := 1; f <= 50; f++ {
		if off := b.Offset(f); off != 0 {
			t.Fatalf("frame %d: offset %f, want 0 for surface below path", f, off)
		}
	}
}

func TestBakeConstantOffset(t *testing.T) {
	// The plane sits 2 units above the path, so every frame needs the same
	// upward correction plus the small resting gap.
	world := &picking.World{Planes: []picking.Plane{{Name: "ground", Height: 4}}}
	obj := flatPath(1, 50, 2)

	b := NewBaker(world, nil)
	if err := b.Bake(obj, 1, 50); err != nil {
		t.Fatalf("Bake: %v", err)
	}

	want := float32(2 + SurfaceOffset)
	for f := 1; f <= 50; f++ {
		if off := b.Offset(f); abs(off-want) > 1e-6 {
			t.Fatalf("frame %d: offset %f, want %f", f, off, want)
		}
	}
}

func TestBakeMissRecordsZero(t *testing.T) {
	world := &picking.World{} // nothing to hit
	obj := flatPath(1, 10, 2)

	b := NewBaker(world, nil)
	if err := b.Bake(obj, 1, 10); err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if off := b.Offset(5); off != 0 {
		t.Errorf("miss should record zero, got %f", off)
	}
}

func TestBakeExcludesSelf(t *testing.T) {
	world := &picking.World{
		Boxes: []picking.Box{{
			Name: "board",
			AABB: picking.NewAABB(math.Vec3{X: -100, Y: -100, Z: 5}, math.Vec3{X: 100, Y: 100, Z: 6}),
		}},
		Planes: []picking.Plane{{Name: "ground", Height: 3}},
	}
	obj := flatPath(1, 10, 2)

	b := NewBaker(world, nil)
	if err := b.Bake(obj, 1, 10); err != nil {
		t.Fatalf("Bake: %v", err)
	}
	want := float32(1 + SurfaceOffset) // ground at 3, not the board's own box
	if off := b.Offset(5); abs(off-want) > 1e-6 {
		t.Errorf("offset %f, want %f", off, want)
	}
}

func TestOffsetZeroWhileInvalid(t *testing.T) {
	b := NewBaker(&picking.World{}, nil)
	if off := b.Offset(5); off != 0 {
		t.Errorf("invalid table should read zero, got %f", off)
	}

	obj := flatPath(1, 10, 2)
	if err := b.Bake(obj, 1, 10); err != nil {
		t.Fatal(err)
	}
	b.Invalidate()
	if b.State() != Invalid {
		t.Errorf("state = %v after Invalidate, want Invalid", b.State())
	}
	if off := b.Offset(5); off != 0 {
		t.Errorf("invalidated table should read zero, got %f", off)
	}
}

func TestOffsetOutsideBakedRange(t *testing.T) {
	world := &picking.World{Planes: []picking.Plane{{Name: "ground", Height: 4}}}
	obj := flatPath(10, 20, 2)

	b := NewBaker(world, nil)
	if err := b.Bake(obj, 10, 20); err != nil {
		t.Fatal(err)
	}
	if off := b.Offset(5); off != 0 {
		t.Errorf("frame before range should read zero, got %f", off)
	}
	if off := b.Offset(25); off != 0 {
		t.Errorf("frame after range should read zero, got %f", off)
	}
}

// reentrantCaster triggers a nested bake from inside a raycast, the way a
// dependency-graph callback could during a bake.
type reentrantCaster struct {
	baker *Baker
	obj   *scenegraph.Object
	err   error
}

func (r *reentrantCaster) CastDown(origin math.Vec3, exclude string) (math.Vec3, bool) {
	if r.err == nil {
		r.err = r.baker.Bake(r.obj, 1, 10)
	}
	return math.Vec3{}, false
}

func TestBakeReentrancyGuard(t *testing.T) {
	obj := flatPath(1, 10, 2)
	caster := &reentrantCaster{obj: obj}
	b := NewBaker(caster, nil)
	caster.baker = b

	if err := b.Bake(obj, 1, 10); err != nil {
		t.Fatalf("outer bake failed: %v", err)
	}
	if !errors.Is(caster.err, ErrBakeInProgress) {
		t.Errorf("nested bake error = %v, want ErrBakeInProgress", caster.err)
	}
	if b.State() != Valid {
		t.Errorf("outer bake should still complete, state = %v", b.State())
	}
}

func TestDriverSetupDeferredInRestrictedContext(t *testing.T) {
	world := &picking.World{Planes: []picking.Plane{{Name: "ground", Height: 4}}}
	scene := scenegraph.NewScene(1, 50)
	obj := scene.Add(flatPath(1, 50, 2))

	b := NewBaker(world, nil)
	if err := b.Bake(obj, 1, 50); err != nil {
		t.Fatal(err)
	}
	b.RequestDriverSetup()

	scene.MarkSafeContext(false)
	if b.FlushDriverSetup(scene, obj) {
		t.Fatal("wiring must not happen in a restricted context")
	}
	if !b.DriverPending() {
		t.Fatal("request should stay pending")
	}

	scene.MarkSafeContext(true)
	if !b.FlushDriverSetup(scene, obj) {
		t.Fatal("wiring should succeed in a safe context")
	}
	if b.DriverPending() {
		t.Error("pending flag should clear after wiring")
	}

	// The wired driver feeds the baked offset into the object's DeltaZ.
	scene.SetFrame(25)
	if abs(obj.DeltaZ-(2+SurfaceOffset)) > 1e-6 {
		t.Errorf("DeltaZ = %f, want %f", obj.DeltaZ, 2+SurfaceOffset)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
