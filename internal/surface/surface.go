// Package surface bakes per-frame vertical corrections that keep a drawing
// resting on scene geometry. Raycasts are expensive, so they happen once per
// bake over the whole animation range; playback then reads the baked table
// through a driver lookup instead of casting live.
package surface

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

// SurfaceOffset is the small gap kept between the drawing and the surface it
// rests on, so strokes do not z-fight with the geometry below.
const SurfaceOffset = 0.01

// rayHeight is how far above the evaluated position the downward ray starts.
const rayHeight = 1000

// ErrBakeInProgress is returned when a bake is requested while one is
// already running.
var ErrBakeInProgress = errors.New("surface bake already in progress")

// Raycaster answers downward surface queries against the static scene.
type Raycaster interface {
	CastDown(origin math.Vec3, exclude string) (math.Vec3, bool)
}

// State is the baked table's lifecycle state.
type State int

const (
	// Invalid means the table is absent or stale; offsets read as zero.
	Invalid State = iota
	// Baking means a bake is running; the table is not readable yet.
	Baking
	// Valid means the table covers the baked range.
	Valid
)

// Baker owns the baked offset table for one object and the deferred wiring
// of its driver lookup.
type Baker struct {
	ray Raycaster
	log *zap.Logger

	state   State
	start   int
	offsets []float32

	driverPending bool
}

// NewBaker creates a baker casting rays through the given scene geometry.
// A nil logger is replaced with a no-op one.
func NewBaker(ray Raycaster, log *zap.Logger) *Baker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Baker{ray: ray, log: log}
}

// State returns the table's current lifecycle state.
func (b *Baker) State() State {
	return b.state
}

// Invalidate discards the baked table. Offsets read as zero until the next
// successful bake.
func (b *Baker) Invalidate() {
	if b.state == Baking {
		return
	}
	b.state = Invalid
	b.offsets = nil
}

// Offset returns the baked correction for frame, or zero while the table is
// invalid or the frame falls outside the baked range.
func (b *Baker) Offset(frame int) float32 {
	if b.state != Valid {
		return 0
	}
	idx := frame - b.start
	if idx < 0 || idx >= len(b.offsets) {
		return 0
	}
	return b.offsets[idx]
}

// Bake walks the object's animation range, casts a ray straight down from
// high above each frame's curve-evaluated position and records how far the
// drawing must rise to clear the surface. Offsets only push upward; a miss
// records zero. Returns ErrBakeInProgress when re-entered.
func (b *Baker) Bake(obj *scenegraph.Object, start, end int) error {
	if b.state == Baking {
		b.log.Warn("skipping surface bake, one is already running",
			zap.String("object", obj.Name))
		return ErrBakeInProgress
	}
	if s, e, ok := obj.PosCurve.Range(); ok {
		start, end = s, e
	}
	if end < start {
		start, end = end, start
	}

	b.state = Baking
	b.offsets = nil

	offsets := make([]float32, end-start+1)
	for frame := start; frame <= end; frame++ {
		// The raw curve value, not the constraint-resolved world matrix:
		// reading the resolved matrix would feed the correction back into
		// itself on the next bake.
		pos := curvePosition(obj, frame)
		origin := math.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z + rayHeight}
		hit, ok := b.ray.CastDown(origin, obj.Name)
		if !ok {
			continue
		}
		if off := hit.Z + SurfaceOffset - pos.Z; off > 0 {
			offsets[frame-start] = off
		}
	}

	b.start = start
	b.offsets = offsets
	b.state = Valid
	b.log.Info("surface offsets baked",
		zap.String("object", obj.Name),
		zap.Int("start", start),
		zap.Int("end", end))
	return nil
}

// RequestDriverSetup marks the driver wiring as wanted. Wiring itself only
// happens in a safe context, via FlushDriverSetup.
func (b *Baker) RequestDriverSetup() {
	b.driverPending = true
}

// DriverPending reports whether a driver wiring request is outstanding.
func (b *Baker) DriverPending() bool {
	return b.driverPending
}

// FlushDriverSetup wires the table lookup as the object's driver if a
// request is pending and the scene currently permits structural writes.
// Returns true when the driver was wired.
func (b *Baker) FlushDriverSetup(scene *scenegraph.Scene, obj *scenegraph.Object) bool {
	if !b.driverPending {
		return false
	}
	if !scene.SafeContext() {
		b.log.Debug("driver wiring deferred, context is restricted",
			zap.String("object", obj.Name))
		return false
	}
	obj.Driver = func(frame int) float32 {
		return b.Offset(frame)
	}
	b.driverPending = false
	b.log.Info("surface offset driver wired", zap.String("object", obj.Name))
	return true
}

func curvePosition(obj *scenegraph.Object, frame int) math.Vec3 {
	if obj.PosCurve != nil && len(obj.PosCurve.Keys) > 0 {
		return obj.PosCurve.Eval(float32(frame))
	}
	return obj.Base.Translation()
}
