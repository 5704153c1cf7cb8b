// Package invalidate runs once per scene evaluation tick and keeps every
// cache coherent with the scene: it clears stroke state on active-object
// switches, drops derived caches when drawing data changes, migrates anchor
// and lock records when keyframes move on the timeline, and captures anchors
// for genuinely new keyframes.
package invalidate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/worldonion/internal/anchors"
	"github.com/Faultbox/worldonion/internal/batchcache"
	"github.com/Faultbox/worldonion/internal/drawing"
	"github.com/Faultbox/worldonion/internal/extract"
	"github.com/Faultbox/worldonion/internal/kfindex"
	"github.com/Faultbox/worldonion/internal/lock"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/internal/strokecache"
	"github.com/Faultbox/worldonion/internal/surface"
)

// Detector watches the scene between evaluation ticks and invalidates
// dependent state in a fixed order: cache clears first, keyframe migration
// next, new-keyframe capture last. A moved keyframe must be migrated before
// capture or it would be misread as new.
type Detector struct {
	Strokes *strokecache.Cache
	Batches *batchcache.Cache
	Index   *kfindex.Index
	Store   *anchors.Store
	Baker   *surface.Baker
	Filter  drawing.LayerFilter

	// SurfaceEnabled re-bakes offsets when the position curve changes.
	SurfaceEnabled bool
	// InheritLock locks new keyframes when the preceding keyframe is locked.
	InheritLock bool

	log *zap.Logger

	running bool

	prevActive   *scenegraph.Object
	prevData     *drawing.Data
	prevDataName string
	prevDataVer  int
	prevCurveVer int
	prevKeys     map[drawing.LayerKey]struct{}
}

// NewDetector creates a detector over the given caches and store. A nil
// logger is replaced with a no-op one.
func NewDetector(strokes *strokecache.Cache, batches *batchcache.Cache, index *kfindex.Index, store *anchors.Store, baker *surface.Baker, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		Strokes: strokes,
		Batches: batches,
		Index:   index,
		Store:   store,
		Baker:   baker,
		log:     log,
	}
}

// Tick processes one evaluation tick. Re-entrant calls (the detector's own
// metadata writes can trigger another tick) return immediately.
func (d *Detector) Tick(scene *scenegraph.Scene) {
	if d.running {
		d.log.Debug("skipping re-entrant detector tick")
		return
	}
	d.running = true
	defer func() { d.running = false }()

	active := scene.Active
	if active != d.prevActive {
		d.Strokes.Clear()
		d.prevActive = active
		d.resetTracking(active)
		if active == nil || active.Drawing == nil {
			return
		}
		d.log.Debug("active object switched", zap.String("object", active.Name))
	}
	if active == nil || active.Drawing == nil {
		return
	}

	if d.dataChanged(active) {
		d.Strokes.Clear()
		d.Batches.Invalidate()
		d.Index.Invalidate()

		if d.SurfaceEnabled && d.curveChanged(active) {
			// Bake now, but leave driver wiring to the next safe context:
			// this tick may be running inside a restricted callback.
			d.Baker.Invalidate()
			if err := d.Baker.Bake(active, scene.Start, scene.End); err != nil {
				d.log.Warn("re-bake skipped", zap.Error(err))
			}
			d.Baker.RequestDriverSetup()
		}
	}

	curKeys := active.Drawing.KeyframeSet(d.Filter)
	if d.prevKeys != nil {
		newKeys := d.migrateMoved(active, curKeys)
		d.captureNew(scene, active, newKeys)
	}

	d.prevData = active.Drawing
	d.prevDataName = active.Drawing.Name
	d.prevDataVer = active.Drawing.Version
	if active.PosCurve != nil {
		d.prevCurveVer = active.PosCurve.Version
	}
	d.prevKeys = curKeys
}

func (d *Detector) resetTracking(active *scenegraph.Object) {
	d.prevData = nil
	d.prevDataName = ""
	d.prevDataVer = 0
	d.prevCurveVer = 0
	d.prevKeys = nil
	if active == nil || active.Drawing == nil {
		return
	}
	d.prevData = active.Drawing
	d.prevDataName = active.Drawing.Name
	d.prevDataVer = active.Drawing.Version
	if active.PosCurve != nil {
		d.prevCurveVer = active.PosCurve.Version
	}
	d.prevKeys = active.Drawing.KeyframeSet(d.Filter)
}

// dataChanged compares the drawing datablock by identity, falling back to
// name when the pointer was swapped (undo can reallocate datablocks), and by
// version for in-place edits.
func (d *Detector) dataChanged(active *scenegraph.Object) bool {
	data := active.Drawing
	if d.prevData == nil {
		return true
	}
	if data != d.prevData && data.Name != d.prevDataName {
		return true
	}
	if data.Version != d.prevDataVer {
		return true
	}
	return d.curveChanged(active)
}

func (d *Detector) curveChanged(active *scenegraph.Object) bool {
	if active.PosCurve == nil {
		return d.prevCurveVer != 0
	}
	return active.PosCurve.Version != d.prevCurveVer
}

// migrateMoved pairs removed and added keyframes per layer. When a layer's
// removed and added sets have equal size, each removed frame is treated as
// having moved to the added frame at the same rank, and the anchor and lock
// records follow it. Returns the added keyframes that were not consumed by
// a migration pairing, per layer.
func (d *Detector) migrateMoved(active *scenegraph.Object, curKeys map[drawing.LayerKey]struct{}) map[string][]int {
	removed := make(map[string][]int)
	added := make(map[string][]int)
	for k := range d.prevKeys {
		if _, ok := curKeys[k]; !ok {
			removed[k.Layer] = append(removed[k.Layer], k.Frame)
		}
	}
	for k := range curKeys {
		if _, ok := d.prevKeys[k]; !ok {
			added[k.Layer] = append(added[k.Layer], k.Frame)
		}
	}

	for layer, from := range removed {
		to := added[layer]
		if len(from) == 0 || len(from) != len(to) {
			continue
		}
		sort.Ints(from)
		sort.Ints(to)
		for i := range from {
			d.Store.MigrateAnchor(active, layer, from[i], to[i])
			d.Store.MigrateLock(active, from[i], to[i])
			d.log.Debug("keyframe migrated",
				zap.String("layer", layer),
				zap.Int("from", from[i]),
				zap.Int("to", to[i]))
		}
		// Consume the pairs so captureNew does not treat them as new.
		delete(added, layer)
	}
	return added
}

// captureNew anchors keyframes that appeared at the playhead this tick. The
// cursor position becomes the anchor; when lock inheritance is on and a lock
// is active before the new frame, the new frame is locked at an anchor
// re-derived from its stroke geometry.
func (d *Detector) captureNew(scene *scenegraph.Scene, active *scenegraph.Object, newKeys map[string][]int) {
	frame := scene.Frame
	for layer, frames := range newKeys {
		for _, f := range frames {
			if f != frame {
				continue
			}
			rec := anchors.AnchorRecord{Pos: scene.Cursor}
			if dir, ok := scene.CameraDirection(); ok {
				rec.CamDir = &dir
			}
			d.Store.SetAnchor(active, layer, frame, rec)

			if d.InheritLock {
				if _, prev, ok := d.Store.ActiveLockAt(active, frame-1); ok && prev.WorldLocked {
					anchor := scene.Cursor
					world := active.WorldAt(frame)
					// Raw object-world geometry: a locked layer's matrix
					// carries lock compensation and must not feed back
					// into the anchor.
					if derived, ok := anchors.AnchorFromStrokes(
						extract.ObjectStrokes(active, frame, world, d.Filter)); ok {
						anchor = derived
					}
					d.Store.SetLock(active, frame, lock.Capture(active, frame, anchor))
					d.log.Debug("lock inherited", zap.Int("frame", frame))
				}
			}
		}
	}
}
