package session

import (
	"go.uber.org/zap"

	"github.com/Faultbox/worldonion/internal/anchors"
	"github.com/Faultbox/worldonion/internal/extract"
	"github.com/Faultbox/worldonion/internal/lock"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

// activeLayerFrame resolves the layer and keyframe an anchor operator acts
// on: the first layer passing the filter with a keyframe at or before the
// playhead.
func (s *Session) activeLayerFrame() (layer string, frame int, found bool) {
	obj := s.activeDrawing()
	if obj == nil {
		return "", 0, false
	}
	filter := s.filter()
	for _, l := range obj.Drawing.Layers {
		if !filter.Pass(l) {
			continue
		}
		if k := l.ActiveKeyAt(s.Scene.Frame); k != nil {
			return l.Name, k.Frame, true
		}
	}
	return "", 0, false
}

// anchorStrokes extracts the active keyframe's strokes in object-world space
// without layer transforms, the space anchors are derived in.
func (s *Session) anchorStrokes() []extract.StrokeRecord {
	active := s.activeDrawing()
	if active == nil {
		return nil
	}
	return extract.ObjectStrokes(active, s.Scene.Frame, active.WorldAt(s.Scene.Frame), s.filter())
}

// SetAnchor stores position as the active keyframe's world anchor, together
// with the camera direction at capture time.
func (s *Session) SetAnchor(position math.Vec3) Result {
	obj := s.activeDrawing()
	if obj == nil {
		return cancelled("no active drawing object")
	}
	layer, frame, found := s.activeLayerFrame()
	if !found {
		return cancelled("no keyframe at or before frame %d", s.Scene.Frame)
	}

	rec := anchors.AnchorRecord{Pos: position}
	if dir, okDir := s.Scene.CameraDirection(); okDir {
		rec.CamDir = &dir
	}
	s.Store.SetAnchor(obj, layer, frame, rec)
	s.Batches.Invalidate()
	return ok("anchor set on %s at frame %d", layer, frame)
}

// AutoAnchor derives the anchor from the active keyframe's stroke geometry:
// centered in the drawing's footprint, at its lowest point.
func (s *Session) AutoAnchor() Result {
	obj := s.activeDrawing()
	if obj == nil {
		return cancelled("no active drawing object")
	}
	anchor, found := anchors.AnchorFromStrokes(s.anchorStrokes())
	if !found {
		return cancelled("no strokes to derive an anchor from")
	}
	return s.SetAnchor(anchor)
}

// ToggleWorldLock locks or unlocks the active keyframe. Unlock keeps the
// stored record; a re-lock on the same frame restores the identical pose.
func (s *Session) ToggleWorldLock() Result {
	obj := s.activeDrawing()
	if obj == nil {
		return cancelled("no active drawing object")
	}
	if !s.Config.Lock.Enabled {
		return cancelled("world lock is disabled")
	}
	_, _, found := s.activeLayerFrame()
	if !found {
		return cancelled("no keyframe at or before frame %d", s.Scene.Frame)
	}
	frame := s.Scene.Frame

	if rec, has := s.Store.Lock(obj, frame); has {
		if rec.WorldLocked {
			s.Store.RemoveLock(obj, frame)
			lock.Release(s.Store, obj, frame)
			s.invalidateGeometry()
			return ok("frame %d unlocked", frame)
		}
		// Re-lock from the stored record instead of recapturing.
		rec.WorldLocked = true
		s.Store.SetLock(obj, frame, rec)
		lock.Apply(s.Store, obj, frame)
		s.invalidateGeometry()
		return ok("frame %d re-locked", frame)
	}

	anchor := s.lockAnchor(obj)
	s.Store.SetLock(obj, frame, lock.Capture(obj, frame, anchor))
	lock.Apply(s.Store, obj, frame)
	s.invalidateGeometry()
	s.log.Info("world lock captured",
		zap.String("object", obj.Name),
		zap.Int("frame", frame))
	return ok("frame %d locked", frame)
}

// lockAnchor picks the anchor for a fresh lock: the stored anchor if one
// exists, else one derived from strokes, else the cursor.
func (s *Session) lockAnchor(obj *scenegraph.Object) math.Vec3 {
	if layer, kf, found := s.activeLayerFrame(); found {
		if rec, has := s.Store.Anchor(obj, layer, kf); has {
			return rec.Pos
		}
	}
	if anchor, found := anchors.AnchorFromStrokes(s.anchorStrokes()); found {
		return anchor
	}
	return s.Scene.Cursor
}

// BakeSurfaceOffsets runs a full-range bake and wires the driver lookup.
// User commands run in a safe context, so wiring happens immediately.
func (s *Session) BakeSurfaceOffsets() Result {
	obj := s.activeDrawing()
	if obj == nil {
		return cancelled("no active drawing object")
	}
	if !s.Config.Surface.Enabled {
		return cancelled("surface offsets are disabled")
	}
	if err := s.Baker.Bake(obj, s.Scene.Start, s.Scene.End); err != nil {
		return cancelled("bake skipped: %v", err)
	}
	s.Baker.RequestDriverSetup()
	s.Baker.FlushDriverSetup(s.Scene, obj)
	s.Batches.Invalidate()
	return ok("surface offsets baked for frames %d-%d", s.Scene.Start, s.Scene.End)
}

// ClearCache empties the stroke and batch caches.
func (s *Session) ClearCache() Result {
	s.invalidateGeometry()
	return ok("caches cleared")
}

// BuildFullCache extracts and caches every keyframe of the active drawing
// except the playhead frame, which always stays live.
func (s *Session) BuildFullCache() Result {
	obj := s.activeDrawing()
	if obj == nil {
		return cancelled("no active drawing object")
	}
	frames := s.Index.Frames(obj.Drawing, s.filter())
	count := 0
	for _, f := range frames {
		if f == s.Scene.Frame {
			continue
		}
		if _, hit := s.Strokes.Get(f); hit {
			continue
		}
		world := s.Scene.WorldMatrixAt(obj, f)
		s.Strokes.Put(f, extract.Strokes(obj, f, world, s.filter()))
		count++
	}
	return ok("cached %d keyframes", count)
}

// ClearAllLocks removes every lock record from the active object and returns
// it to plain parent-following.
func (s *Session) ClearAllLocks() Result {
	obj := s.activeDrawing()
	if obj == nil {
		return cancelled("no active drawing object")
	}
	s.Store.ClearLocks(obj)
	obj.ParentInverse = math.Identity()
	s.invalidateGeometry()
	return ok("all locks cleared on %s", obj.Name)
}

// ClearAllAnchors removes every anchor record from the active object.
func (s *Session) ClearAllAnchors() Result {
	obj := s.activeDrawing()
	if obj == nil {
		return cancelled("no active drawing object")
	}
	s.Store.ClearAnchors(obj)
	return ok("all anchors cleared on %s", obj.Name)
}

// invalidateGeometry drops everything derived from world-space stroke
// positions, used after any transform-changing operation.
func (s *Session) invalidateGeometry() {
	s.Strokes.Clear()
	s.Batches.Invalidate()
}
