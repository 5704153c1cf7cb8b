// Package scenegraph is a minimal in-memory object graph standing in for the
// host application's scene: parented objects with parent-inverse matrices,
// animated positions, a current frame, an active object and per-tick
// dependency update events.
package scenegraph

import (
	"github.com/Faultbox/worldonion/internal/drawing"
	"github.com/Faultbox/worldonion/pkg/math"
)

// DriverFunc is a declarative per-frame value source attached to an object's
// vertical delta. It must be cheap: it runs on every frame evaluation.
type DriverFunc func(frame int) float32

// Object is a scene node. Base is the rest local transform; when PosCurve is
// set, its evaluated value replaces Base's translation at evaluation time.
// DeltaZ is an extra vertical offset written by the object's driver.
type Object struct {
	Name          string
	Parent        *Object
	Base          math.Mat4
	ParentInverse math.Mat4
	PosCurve      *FCurve
	DeltaZ        float32
	Driver        DriverFunc

	// Props carries persisted metadata blobs saved with the project file.
	Props map[string]string

	// Drawing is non-nil for frame-by-frame stroke objects.
	Drawing *drawing.Data
}

// NewObject creates an object with identity transforms.
func NewObject(name string) *Object {
	return &Object{
		Name:          name,
		Base:          math.Identity(),
		ParentInverse: math.Identity(),
		Props:         make(map[string]string),
	}
}

// LocalAt returns the object's local matrix at the given frame: Base with
// the position curve's translation substituted when one exists, plus the
// driver-written DeltaZ on the vertical axis.
func (o *Object) LocalAt(frame int) math.Mat4 {
	local := o.Base
	if o.PosCurve != nil && len(o.PosCurve.Keys) > 0 {
		local = local.WithTranslation(o.PosCurve.Eval(float32(frame)))
	}
	t := local.Translation()
	t.Z += o.DeltaZ
	return local.WithTranslation(t)
}

// WorldAt returns the object's world matrix at the given frame:
// parentWorld * parentInverse * local, recursively up the parent chain.
func (o *Object) WorldAt(frame int) math.Mat4 {
	local := o.LocalAt(frame)
	if o.Parent == nil {
		return local
	}
	return o.Parent.WorldAt(frame).Mul(o.ParentInverse).Mul(local)
}

// Scene owns the object list, the playhead and the per-tick update queue.
type Scene struct {
	Objects []*Object
	Camera  *Object
	Active  *Object
	Cursor  math.Vec3

	Frame int
	Start int
	End   int

	updates     []any
	safeContext bool
}

// NewScene creates an empty scene spanning the given frame range.
func NewScene(start, end int) *Scene {
	return &Scene{Start: start, End: end, Frame: start, safeContext: true}
}

// Add appends an object to the scene and returns it.
func (s *Scene) Add(o *Object) *Object {
	s.Objects = append(s.Objects, o)
	return o
}

// SetFrame moves the playhead and evaluates every object's driver into its
// DeltaZ, mirroring the host's per-frame driver evaluation.
func (s *Scene) SetFrame(frame int) {
	s.Frame = frame
	for _, o := range s.Objects {
		if o.Driver != nil {
			o.DeltaZ = o.Driver(frame)
		}
	}
}

// WorldMatrix returns an object's world matrix at the current frame.
func (s *Scene) WorldMatrix(o *Object) math.Mat4 {
	return o.WorldAt(s.Frame)
}

// WorldMatrixAt evaluates an object's world matrix at an arbitrary frame
// without moving the playhead.
func (s *Scene) WorldMatrixAt(o *Object, frame int) math.Mat4 {
	return o.WorldAt(frame)
}

// CameraDirection returns the camera's forward direction in world space,
// or false when the scene has no camera. The camera looks down its -Z axis.
func (s *Scene) CameraDirection() (math.Vec3, bool) {
	if s.Camera == nil {
		return math.Vec3{}, false
	}
	rot := s.Camera.WorldAt(s.Frame).Rotation()
	return rot.TransformDirection(math.Vec3{Z: 1}).Scale(-1), true
}

// PushUpdate records a dependency-graph update event for the next tick.
// The id is the changed datablock (drawing data, position curve, object).
func (s *Scene) PushUpdate(id any) {
	s.updates = append(s.updates, id)
}

// DrainUpdates returns and clears the pending update events. Called once per
// evaluation tick by the change detector.
func (s *Scene) DrainUpdates() []any {
	u := s.updates
	s.updates = nil
	return u
}

// MarkSafeContext flags whether the current evaluation context permits
// structural writes such as driver wiring. Restricted callbacks (draw,
// mid-playback evaluation) are unsafe; user commands and file load are safe.
func (s *Scene) MarkSafeContext(safe bool) {
	s.safeContext = safe
}

// SafeContext reports whether structural writes are currently permitted.
func (s *Scene) SafeContext() bool {
	return s.safeContext
}
