// Package session wires the caches, stores, solver, baker and change
// detector into one editing session and exposes the operations the UI layer
// calls: frame changes, evaluation ticks and the user-facing operators.
package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/worldonion/internal/anchors"
	"github.com/Faultbox/worldonion/internal/batchcache"
	"github.com/Faultbox/worldonion/internal/config"
	"github.com/Faultbox/worldonion/internal/drawing"
	"github.com/Faultbox/worldonion/internal/extract"
	"github.com/Faultbox/worldonion/internal/invalidate"
	"github.com/Faultbox/worldonion/internal/kfindex"
	"github.com/Faultbox/worldonion/internal/lock"
	"github.com/Faultbox/worldonion/internal/render"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/internal/strokecache"
	"github.com/Faultbox/worldonion/internal/surface"
	"github.com/Faultbox/worldonion/pkg/math"
)

// Result is an operator outcome: success plus a short user-facing message.
type Result struct {
	OK      bool
	Message string
}

func ok(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

func cancelled(format string, args ...any) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...)}
}

// Session owns all per-session state for one open scene.
type Session struct {
	Scene   *scenegraph.Scene
	Config  *config.Config
	Strokes *strokecache.Cache
	Batches *batchcache.Cache
	Index   *kfindex.Index
	Store   *anchors.Store
	Baker   *surface.Baker
	Detect  *invalidate.Detector

	backend render.Backend
	log     *zap.Logger
}

// New builds a session over the scene with caches sized from the config.
// A nil logger is replaced with a no-op one.
func New(cfg *config.Config, scene *scenegraph.Scene, backend render.Backend, ray surface.Raycaster, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	strokes := strokecache.New(cfg.Cache.StrokeEntries)
	batches := batchcache.New(cfg.Cache.BatchEntries)
	index := &kfindex.Index{}
	store := anchors.NewStore()
	baker := surface.NewBaker(ray, log)

	detect := invalidate.NewDetector(strokes, batches, index, store, baker, log)
	detect.Filter = layerFilter(cfg)
	detect.SurfaceEnabled = cfg.Surface.Enabled
	detect.InheritLock = cfg.Lock.InheritLock

	return &Session{
		Scene:   scene,
		Config:  cfg,
		Strokes: strokes,
		Batches: batches,
		Index:   index,
		Store:   store,
		Baker:   baker,
		Detect:  detect,
		backend: backend,
		log:     log,
	}
}

func layerFilter(cfg *config.Config) drawing.LayerFilter {
	return drawing.LayerFilter{
		SkipUnderscore: cfg.Filter.SkipUnderscore,
		NameContains:   cfg.Filter.NameContains,
	}
}

func (s *Session) filter() drawing.LayerFilter {
	return layerFilter(s.Config)
}

func (s *Session) mode() kfindex.Mode {
	if s.Config.Onion.Mode == "frames" {
		return kfindex.ModeFrames
	}
	return kfindex.ModeKeyframes
}

func (s *Session) renderSettings() render.Settings {
	o := s.Config.Onion
	return render.Settings{
		BeforeColor: render.Color(o.BeforeColor),
		AfterColor:  render.Color(o.AfterColor),
		Opacity:     o.Opacity,
		Falloff:     o.Falloff,
		FillOpacity: o.FillOpacity,
		LineWidth:   o.LineWidth,
	}
}

// activeDrawing returns the active object if it carries drawing data.
func (s *Session) activeDrawing() *scenegraph.Object {
	if s.Scene.Active == nil || s.Scene.Active.Drawing == nil {
		return nil
	}
	return s.Scene.Active
}

// OnFrameChange moves the playhead and re-solves every locked object, not
// just the active one: a locked drawing must stay pinned even while another
// object is selected.
func (s *Session) OnFrameChange(frame int) {
	s.Scene.SetFrame(frame)
	// The cache may hold this frame from an earlier playhead position; the
	// playhead frame is always extracted live.
	s.Strokes.Remove(frame)
	if !s.Config.Lock.Enabled {
		return
	}
	for _, obj := range s.Scene.Objects {
		if obj.Drawing == nil {
			continue
		}
		lock.Apply(s.Store, obj, frame)
	}
}

// OnTick processes one dependency-graph evaluation tick: change detection
// first, then any deferred driver wiring if the context allows it.
func (s *Session) OnTick() {
	s.Detect.Tick(s.Scene)
	if obj := s.activeDrawing(); obj != nil {
		s.Baker.FlushDriverSetup(s.Scene, obj)
	}
}

// OnLoad resets all session state after a file load.
func (s *Session) OnLoad() {
	s.Strokes.Clear()
	s.Batches.Invalidate()
	s.Index.Invalidate()
	s.Store.DropCaches()
	s.Baker.Invalidate()
	s.log.Info("session state reset on load")
}

// OnUndo clears cached state; undo can rewrite drawing data and metadata
// blobs behind every cache.
func (s *Session) OnUndo() {
	s.Strokes.Clear()
	s.Batches.Invalidate()
	s.Index.Invalidate()
	s.Store.DropCaches()
}

// strokesAt returns the world-space strokes for a display frame, extracting
// and caching on miss. The playhead frame itself must never go through here.
func (s *Session) strokesAt(obj *scenegraph.Object, frame int) []extract.StrokeRecord {
	if recs, hit := s.Strokes.Get(frame); hit {
		return recs
	}
	world := s.Scene.WorldMatrixAt(obj, frame)
	recs := extract.Strokes(obj, frame, world, s.filter())
	s.Strokes.Put(frame, recs)
	return recs
}

// Draw renders the onion skins around the playhead plus the current frame's
// strokes. Skins come from the caches; the current frame is extracted live
// every draw so in-progress edits are always visible, and is never cached.
func (s *Session) Draw(viewProj math.Mat4) {
	obj := s.activeDrawing()
	if obj == nil || s.backend == nil {
		return
	}
	settings := s.renderSettings()

	if s.Config.Onion.Enabled {
		o := s.Config.Onion
		base := o.StrokeZOffset
		if base < 0 {
			base = 0
		}
		displays := s.Index.DisplayFrames(obj.Drawing, s.filter(), s.mode(), s.Scene.Frame, o.Before, o.After, o.Step)
		for _, d := range displays {
			recs := s.strokesAt(obj, d.Frame)
			if len(recs) == 0 {
				continue
			}
			zOffset := base + s.Baker.Offset(d.Frame)
			key := batchcache.NewKey(d.Frame, zOffset)
			entry := s.Batches.GetOrBuild(key, func() *batchcache.Entry {
				return s.backend.BuildEntry(recs, zOffset)
			})
			stroke := render.SkinColor(settings, d.Offset)
			s.backend.DrawEntry(entry, viewProj, stroke, render.FillColor(settings, stroke), settings.LineWidth)
		}
	}

	// Current frame, live.
	world := s.Scene.WorldMatrix(obj)
	recs := extract.Strokes(obj, s.Scene.Frame, world, s.filter())
	if len(recs) > 0 {
		entry := s.backend.BuildEntry(recs, 0)
		stroke := render.Color{0.95, 0.95, 0.95, 1}
		s.backend.DrawEntry(entry, viewProj, stroke, render.FillColor(settings, stroke), settings.LineWidth)
		releaseEntry(entry)
	}

	if s.Config.Overlay.ShowAnchors {
		s.drawAnchors(obj, viewProj)
	}
	if s.Config.Overlay.ShowMotionPath {
		s.drawMotionPath(obj, viewProj)
	}
}

// drawAnchors renders a cross marker at every stored anchor of the active
// object. The anchor of each layer's active keyframe draws highlighted.
func (s *Session) drawAnchors(obj *scenegraph.Object, viewProj math.Mat4) {
	const crossSize = 0.05

	filter := s.filter()
	current := make(map[string]int)
	for _, l := range obj.Drawing.Layers {
		if !filter.Pass(l) {
			continue
		}
		if k := l.ActiveKeyAt(s.Scene.Frame); k != nil {
			current[l.Name] = k.Frame
		}
	}

	for _, layer := range s.Store.AnchorLayers(obj) {
		for frame, rec := range s.Store.Anchors(obj, layer) {
			color := render.AnchorIdleColor
			width := float32(1)
			if cf, ok := current[layer]; ok && cf == frame {
				color = render.AnchorActiveColor
				width = 2
			}
			s.drawImmediate(render.AnchorCross(rec.Pos, crossSize), viewProj, color, width)
		}
	}
}

// drawMotionPath samples the object's position curve across its key range,
// lifts each sample by the baked surface offset when surface following is on,
// and draws the result as one line strip.
func (s *Session) drawMotionPath(obj *scenegraph.Object, viewProj math.Mat4) {
	start, end, ok := obj.PosCurve.Range()
	if !ok || start == end {
		return
	}

	// Cap the sample count so long shots stay cheap.
	step := (end - start) / 100
	if step < 1 {
		step = 1
	}
	var points []math.Vec3
	for f := start; f <= end; f += step {
		points = append(points, s.pathPoint(obj, f))
	}
	if (end-start)%step != 0 {
		points = append(points, s.pathPoint(obj, end))
	}

	ov := s.Config.Overlay
	s.drawImmediate([]extract.StrokeRecord{render.PathRecord(points)}, viewProj, render.Color(ov.PathColor), ov.PathWidth)
}

func (s *Session) pathPoint(obj *scenegraph.Object, frame int) math.Vec3 {
	pos := obj.PosCurve.Eval(float32(frame))
	if s.Config.Surface.Enabled {
		pos.Z += s.Baker.Offset(frame)
	}
	return pos
}

// drawImmediate uploads records, draws them once and releases the batches.
func (s *Session) drawImmediate(records []extract.StrokeRecord, viewProj math.Mat4, color render.Color, lineWidth float32) {
	entry := s.backend.BuildEntry(records, 0)
	if entry == nil {
		return
	}
	s.backend.DrawEntry(entry, viewProj, color, color, lineWidth)
	releaseEntry(entry)
}

func releaseEntry(entry *batchcache.Entry) {
	for _, b := range entry.Fills {
		b.Release()
	}
	for _, b := range entry.Strokes {
		b.Release()
	}
}
