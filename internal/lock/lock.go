// Package lock implements the billboard world-lock solver: it recomputes a
// child object's parent-inverse matrix so that a chosen anchor point stays
// fixed in world space while the object keeps following its parent's
// rotation, facing the camera like a billboard.
package lock

import (
	"github.com/Faultbox/worldonion/internal/anchors"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

// Capture builds a lock record for the object's current pose. The anchor's
// local offset is measured in the object's rotated frame so the solver can
// pivot around the anchor instead of the origin.
func Capture(obj *scenegraph.Object, frame int, anchorWorld math.Vec3) anchors.LockRecord {
	world := obj.WorldAt(frame)
	rot := world.Rotation()
	offset := rot.Inverse().TransformDirection(anchorWorld.Sub(world.Translation()))

	return anchors.LockRecord{
		WorldLocked:           true,
		AnchorWorld:           anchorWorld,
		AnchorLocalOffset:     offset,
		MatrixLocal:           obj.LocalAt(frame),
		OriginalParentInverse: obj.ParentInverse,
	}
}

// Solve computes the parent-inverse matrix that keeps the anchor at its
// stored world position while the object's orientation tracks
// parentRotation * capturedLocalRotation.
func Solve(parentWorld, capturedLocal math.Mat4, anchorWorld, anchorLocalOffset math.Vec3) math.Mat4 {
	desiredRot := parentWorld.Rotation().Mul(capturedLocal.Rotation())
	origin := anchorWorld.Sub(desiredRot.TransformDirection(anchorLocalOffset))
	desiredWorld := math.TranslateVec3(origin).Mul(desiredRot)
	return parentWorld.Inverse().Mul(desiredWorld).Mul(capturedLocal.Inverse())
}

// Apply enforces the lock active at frame (the locked frame at or before it)
// on the object. With a parent it writes a solved parent-inverse; without one
// it sets the object's pose directly from the captured matrices. Returns
// false when no lock is active.
func Apply(store *anchors.Store, obj *scenegraph.Object, frame int) bool {
	_, rec, ok := store.ActiveLockAt(obj, frame)
	if !ok {
		return false
	}

	if obj.Parent != nil {
		parentWorld := obj.Parent.WorldAt(frame)
		obj.ParentInverse = Solve(parentWorld, rec.MatrixLocal, rec.AnchorWorld, rec.AnchorLocalOffset)
		return true
	}

	rot := rec.MatrixLocal.Rotation()
	origin := rec.AnchorWorld.Sub(rot.TransformDirection(rec.AnchorLocalOffset))
	obj.Base = rec.MatrixLocal.WithTranslation(origin)
	return true
}

// Release returns the object to unconstrained parent-following: the lock
// record's original parent-inverse is restored, or identity when the record
// is gone. The record itself is kept by the store so re-locking restores the
// same pose.
func Release(store *anchors.Store, obj *scenegraph.Object, frame int) {
	if rec, ok := store.Lock(obj, frame); ok {
		obj.ParentInverse = rec.OriginalParentInverse
		return
	}
	obj.ParentInverse = math.Identity()
}
