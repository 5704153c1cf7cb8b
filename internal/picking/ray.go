// Package picking provides ray casting against the static scene geometry
// used for surface queries and cursor placement.
package picking

import (
	gomath "math"

	"github.com/Faultbox/worldonion/pkg/math"
)

// Ray is a ray in 3D space with origin and normalized direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// NewAABB creates an AABB from two corners, swapping per axis so Min <= Max.
func NewAABB(min, max math.Vec3) AABB {
	if min.X > max.X {
		min.X, max.X = max.X, min.X
	}
	if min.Y > max.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	if min.Z > max.Z {
		min.Z, max.Z = max.Z, min.Z
	}
	return AABB{Min: min, Max: max}
}

// ScreenToRay converts screen pixel coordinates to a world-space ray.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH

	nearWorld := invViewProj.MulVec4(math.Vec4{ndcX, ndcY, -1.0, 1.0})
	farWorld := invViewProj.MulVec4(math.Vec4{ndcX, ndcY, 1.0, 1.0})

	if nearWorld[3] != 0 {
		nearWorld[0] /= nearWorld[3]
		nearWorld[1] /= nearWorld[3]
		nearWorld[2] /= nearWorld[3]
	}
	if farWorld[3] != 0 {
		farWorld[0] /= farWorld[3]
		farWorld[1] /= farWorld[3]
		farWorld[2] /= farWorld[3]
	}

	origin := math.Vec3{X: nearWorld[0], Y: nearWorld[1], Z: nearWorld[2]}
	dir := math.Vec3{
		X: farWorld[0] - nearWorld[0],
		Y: farWorld[1] - nearWorld[1],
		Z: farWorld[2] - nearWorld[2],
	}
	return Ray{Origin: origin, Direction: dir.Normalize()}
}

// IntersectPlaneZ intersects the ray with a horizontal plane at the given
// height. Returns the distance along the ray and whether the hit is valid.
func (r Ray) IntersectPlaneZ(planeZ float32) (t float32, ok bool) {
	if gomath.Abs(float64(r.Direction.Z)) < 1e-6 {
		return 0, false // parallel to the plane
	}
	t = (planeZ - r.Origin.Z) / r.Direction.Z
	if t < 0 {
		return 0, false // behind the origin
	}
	return t, true
}

// IntersectAABB tests the ray against a box with the slab method. Returns the
// entry distance, or the exit distance when the ray starts inside the box.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	slab := func(origin, dir, min, max float32) bool {
		if dir != 0 {
			t1 := (min - origin) / dir
			t2 := (max - origin) / dir
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			if t1 > tmin {
				tmin = t1
			}
			if t2 < tmax {
				tmax = t2
			}
			return true
		}
		return origin >= min && origin <= max
	}

	if !slab(r.Origin.X, r.Direction.X, box.Min.X, box.Max.X) {
		return 0, false
	}
	if !slab(r.Origin.Y, r.Direction.Y, box.Min.Y, box.Max.Y) {
		return 0, false
	}
	if !slab(r.Origin.Z, r.Direction.Z, box.Min.Z, box.Max.Z) {
		return 0, false
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}
