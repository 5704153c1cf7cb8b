package lock

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/worldonion/internal/anchors"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

const tol = 1e-6

func TestSolveKeepsAnchorFixed(t *testing.T) {
	// Lock captured with an identity parent; the parent then rotates 90
	// degrees about Z. The anchor must stay at the world origin.
	capturedLocal := math.Identity()
	anchorWorld := math.Vec3{}
	anchorOffset := math.Vec3{Z: 1}

	parentWorld := math.RotateZ(float32(gomath.Pi / 2))
	parentInv := Solve(parentWorld, capturedLocal, anchorWorld, anchorOffset)

	world := parentWorld.Mul(parentInv).Mul(capturedLocal)
	desiredRot := parentWorld.Rotation().Mul(capturedLocal.Rotation())
	got := world.Translation().Add(desiredRot.TransformDirection(anchorOffset))
	if got.Distance(anchorWorld) > tol {
		t.Errorf("anchor drifted to %v, want %v", got, anchorWorld)
	}
}

func TestSolveBillboardOrientation(t *testing.T) {
	capturedLocal := math.RotateZ(0.3)
	parentWorld := math.Translate(5, 0, 0).Mul(math.RotateZ(float32(gomath.Pi / 4)))
	parentInv := Solve(parentWorld, capturedLocal, math.Vec3{X: 1}, math.Vec3{Y: 2})

	world := parentWorld.Mul(parentInv).Mul(capturedLocal)
	wantRot := parentWorld.Rotation().Mul(capturedLocal.Rotation())
	gotRot := world.Rotation()
	for i := range gotRot {
		if abs(gotRot[i]-wantRot[i]) > tol {
			t.Fatalf("rotation[%d]: got %f, want %f", i, gotRot[i], wantRot[i])
		}
	}
}

func TestApplyWithParent(t *testing.T) {
	s := scenegraph.NewScene(1, 100)
	cam := s.Add(scenegraph.NewObject("camera"))
	board := s.Add(scenegraph.NewObject("board"))
	board.Parent = cam

	store := anchors.NewStore()
	store.SetLock(board, 1, Capture(board, 1, math.Vec3{}))

	// Camera rotates between frame 1 and frame 5.
	cam.Base = math.RotateZ(float32(gomath.Pi / 2))
	if !Apply(store, board, 5) {
		t.Fatal("expected an active lock")
	}

	world := board.WorldAt(5)
	rec, _ := store.Lock(board, 1)
	anchorNow := world.Translation().Add(
		world.Rotation().TransformDirection(rec.AnchorLocalOffset))
	if anchorNow.Distance(rec.AnchorWorld) > tol {
		t.Errorf("anchor drifted to %v, want %v", anchorNow, rec.AnchorWorld)
	}
}

func TestApplyWithoutParent(t *testing.T) {
	board := scenegraph.NewObject("board")
	board.Base = math.Translate(3, 0, 0)

	store := anchors.NewStore()
	store.SetLock(board, 1, Capture(board, 1, math.Vec3{X: 3, Z: -1}))

	board.Base = math.Translate(9, 9, 9) // host moved the object
	if !Apply(store, board, 1) {
		t.Fatal("expected an active lock")
	}
	if got := board.Base.Translation(); got.Distance(math.Vec3{X: 3}) > tol {
		t.Errorf("no-parent lock should restore origin (3,0,0), got %v", got)
	}
}

func TestApplyNoActiveLock(t *testing.T) {
	board := scenegraph.NewObject("board")
	store := anchors.NewStore()
	store.SetLock(board, 10, anchors.LockRecord{WorldLocked: true})

	if Apply(store, board, 5) {
		t.Error("lock at frame 10 must not apply at frame 5")
	}
}

func TestReleaseRestoresOriginalParentInverse(t *testing.T) {
	s := scenegraph.NewScene(1, 100)
	cam := s.Add(scenegraph.NewObject("camera"))
	board := s.Add(scenegraph.NewObject("board"))
	board.Parent = cam
	board.ParentInverse = math.Translate(0, 0, -2)

	store := anchors.NewStore()
	store.SetLock(board, 1, Capture(board, 1, math.Vec3{}))

	cam.Base = math.RotateZ(1)
	Apply(store, board, 1)
	Release(store, board, 1)

	if got := board.ParentInverse.Translation(); got.Distance(math.Vec3{Z: -2}) > tol {
		t.Errorf("original parent inverse not restored, got %v", got)
	}
}

func TestUnlockRelockIsIdempotent(t *testing.T) {
	s := scenegraph.NewScene(1, 100)
	cam := s.Add(scenegraph.NewObject("camera"))
	board := s.Add(scenegraph.NewObject("board"))
	board.Parent = cam
	board.Base = math.Translate(0, -3, 1)

	store := anchors.NewStore()
	store.SetLock(board, 1, Capture(board, 1, math.Vec3{Y: -3}))

	cam.Base = math.Translate(2, 0, 0).Mul(math.RotateZ(0.7))
	Apply(store, board, 1)
	before := board.WorldAt(1).Translation()

	// Unlock keeps the record, re-lock reuses it.
	store.RemoveLock(board, 1)
	Release(store, board, 1)
	rec, _ := store.Lock(board, 1)
	rec.WorldLocked = true
	store.SetLock(board, 1, rec)
	Apply(store, board, 1)

	after := board.WorldAt(1).Translation()
	if before.Distance(after) > tol {
		t.Errorf("re-lock pose differs: %v vs %v", before, after)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
