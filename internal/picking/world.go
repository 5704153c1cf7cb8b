package picking

import "github.com/Faultbox/worldonion/pkg/math"

// Box is a named world-space bounding box a ray can strike.
type Box struct {
	Name string
	AABB AABB
}

// Plane is a named infinite horizontal surface at a fixed height.
type Plane struct {
	Name   string
	Height float32
}

// World is the static collision geometry of the scene: ground planes plus
// prop bounding boxes. It answers the downward surface queries the offset
// baker issues.
type World struct {
	Boxes  []Box
	Planes []Plane
}

// Cast returns the nearest hit point along the ray, skipping geometry whose
// name matches exclude. ok is false when nothing is struck.
func (w *World) Cast(ray Ray, exclude string) (math.Vec3, bool) {
	best := float32(-1)
	for _, b := range w.Boxes {
		if b.Name == exclude {
			continue
		}
		if t, hit := ray.IntersectAABB(b.AABB); hit && (best < 0 || t < best) {
			best = t
		}
	}
	for _, p := range w.Planes {
		if p.Name == exclude {
			continue
		}
		if t, hit := ray.IntersectPlaneZ(p.Height); hit && (best < 0 || t < best) {
			best = t
		}
	}
	if best < 0 {
		return math.Vec3{}, false
	}
	return ray.At(best), true
}

// CastDown casts straight down from origin, skipping geometry named exclude.
func (w *World) CastDown(origin math.Vec3, exclude string) (math.Vec3, bool) {
	return w.Cast(Ray{Origin: origin, Direction: math.Vec3{Z: -1}}, exclude)
}
