package scenegraph

import (
	gomath "math"
	"testing"

	"github.com/tanema/gween/ease"

	"github.com/Faultbox/worldonion/pkg/math"
)

func TestFCurveEvalLinear(t *testing.T) {
	c := &FCurve{}
	c.AddKey(CurveKey{Frame: 0, Value: math.Vec3{X: 0}})
	c.AddKey(CurveKey{Frame: 10, Value: math.Vec3{X: 10}})

	v := c.Eval(5)
	if abs(v.X-5) > 1e-5 {
		t.Errorf("linear midpoint: got %f, want 5", v.X)
	}
}

func TestFCurveEvalClamps(t *testing.T) {
	c := &FCurve{}
	c.AddKey(CurveKey{Frame: 5, Value: math.Vec3{X: 1}})
	c.AddKey(CurveKey{Frame: 10, Value: math.Vec3{X: 2}})

	if v := c.Eval(0); v.X != 1 {
		t.Errorf("before range: got %f, want 1", v.X)
	}
	if v := c.Eval(100); v.X != 2 {
		t.Errorf("after range: got %f, want 2", v.X)
	}
}

func TestFCurveEvalEased(t *testing.T) {
	c := &FCurve{}
	c.AddKey(CurveKey{Frame: 0, Value: math.Vec3{}, Ease: ease.InQuad})
	c.AddKey(CurveKey{Frame: 10, Value: math.Vec3{X: 10}})

	v := c.Eval(5)
	// InQuad at t=0.5 is 0.25 of the change.
	if abs(v.X-2.5) > 1e-4 {
		t.Errorf("eased midpoint: got %f, want 2.5", v.X)
	}
}

func TestFCurveAddKeyReplaces(t *testing.T) {
	c := &FCurve{}
	c.AddKey(CurveKey{Frame: 5, Value: math.Vec3{X: 1}})
	c.AddKey(CurveKey{Frame: 5, Value: math.Vec3{X: 2}})

	if len(c.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(c.Keys))
	}
	if c.Keys[0].Value.X != 2 {
		t.Errorf("key not replaced: %f", c.Keys[0].Value.X)
	}
}

func TestFCurveVersionBumps(t *testing.T) {
	c := &FCurve{}
	c.AddKey(CurveKey{Frame: 1})
	v := c.Version
	c.RemoveKey(1)
	if c.Version <= v {
		t.Error("RemoveKey should bump Version")
	}
}

func TestWorldAtParentChain(t *testing.T) {
	s := NewScene(1, 100)
	parent := s.Add(NewObject("camera"))
	parent.Base = math.Translate(10, 0, 0)

	child := s.Add(NewObject("board"))
	child.Parent = parent
	child.Base = math.Translate(1, 2, 3)

	world := s.WorldMatrix(child)
	want := math.Vec3{X: 11, Y: 2, Z: 3}
	if got := world.Translation(); got != want {
		t.Errorf("world translation: got %v, want %v", got, want)
	}
}

func TestWorldAtAppliesParentInverse(t *testing.T) {
	s := NewScene(1, 100)
	parent := s.Add(NewObject("camera"))
	parent.Base = math.Translate(10, 0, 0)

	child := s.Add(NewObject("board"))
	child.Parent = parent
	child.ParentInverse = math.Translate(-10, 0, 0)

	world := s.WorldMatrix(child)
	if got := world.Translation(); got != (math.Vec3{}) {
		t.Errorf("parent inverse should cancel parent offset, got %v", got)
	}
}

func TestLocalAtUsesCurveAndDelta(t *testing.T) {
	o := NewObject("board")
	o.PosCurve = &FCurve{}
	o.PosCurve.AddKey(CurveKey{Frame: 0, Value: math.Vec3{X: 0}})
	o.PosCurve.AddKey(CurveKey{Frame: 10, Value: math.Vec3{X: 10}})
	o.DeltaZ = 0.5

	local := o.LocalAt(5)
	got := local.Translation()
	if abs(got.X-5) > 1e-5 || abs(got.Z-0.5) > 1e-6 {
		t.Errorf("LocalAt: got %v, want (5, 0, 0.5)", got)
	}
}

func TestSetFrameRunsDrivers(t *testing.T) {
	s := NewScene(1, 100)
	o := s.Add(NewObject("board"))
	o.Driver = func(frame int) float32 { return float32(frame) * 2 }

	s.SetFrame(3)
	if o.DeltaZ != 6 {
		t.Errorf("driver should write DeltaZ, got %f", o.DeltaZ)
	}
}

func TestCameraDirection(t *testing.T) {
	s := NewScene(1, 100)
	cam := s.Add(NewObject("camera"))
	s.Camera = cam

	// Identity camera looks down -Z.
	dir, ok := s.CameraDirection()
	if !ok {
		t.Fatal("expected camera direction")
	}
	if abs(dir.Z+1) > 1e-6 {
		t.Errorf("identity camera should face -Z, got %v", dir)
	}

	// Rotated camera: direction must match the rotated -Z axis.
	cam.Base = math.RotateX(float32(gomath.Pi / 2))
	dir, _ = s.CameraDirection()
	want := cam.Base.TransformDirection(math.Vec3{Z: 1}).Scale(-1)
	if dir.Distance(want) > 1e-6 {
		t.Errorf("rotated camera direction: got %v, want %v", dir, want)
	}
}

func TestDrainUpdates(t *testing.T) {
	s := NewScene(1, 10)
	s.PushUpdate("a")
	s.PushUpdate("b")

	u := s.DrainUpdates()
	if len(u) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(u))
	}
	if len(s.DrainUpdates()) != 0 {
		t.Error("updates should be cleared after drain")
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
