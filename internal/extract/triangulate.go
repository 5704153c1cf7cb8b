package extract

import "github.com/Faultbox/worldonion/pkg/math"

// Triangulate tessellates a closed polygon given as 3D points into triangle
// index triples by ear clipping. The polygon is projected onto its dominant
// plane (largest normal component) first. Degenerate input (fewer than three
// points, zero area, or a polygon where no ear can be found) yields nil.
func Triangulate(points []math.Vec3) [][3]int {
	if len(points) < 3 {
		return nil
	}

	// Newell's method for the polygon normal.
	var normal math.Vec3
	for i := range points {
		a := points[i]
		b := points[(i+1)%len(points)]
		normal.X += (a.Y - b.Y) * (a.Z + b.Z)
		normal.Y += (a.Z - b.Z) * (a.X + b.X)
		normal.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	if normal.Length() == 0 {
		return nil
	}

	// Project onto the plane dominated by the largest normal component.
	proj := make([][2]float32, len(points))
	ax, ay, az := abs32(normal.X), abs32(normal.Y), abs32(normal.Z)
	for i, p := range points {
		switch {
		case az >= ax && az >= ay:
			proj[i] = [2]float32{p.X, p.Y}
		case ax >= ay:
			proj[i] = [2]float32{p.Y, p.Z}
		default:
			proj[i] = [2]float32{p.Z, p.X}
		}
	}

	// Signed area decides winding; ear tests are winding-relative.
	var area float32
	for i := range proj {
		j := (i + 1) % len(proj)
		area += proj[i][0]*proj[j][1] - proj[j][0]*proj[i][1]
	}
	if area == 0 {
		return nil
	}
	ccw := area > 0

	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}

	var tris [][3]int
	for len(indices) > 3 {
		clipped := false
		for i := 0; i < len(indices); i++ {
			prev := indices[(i+len(indices)-1)%len(indices)]
			cur := indices[i]
			next := indices[(i+1)%len(indices)]

			if !isEar(proj, indices, prev, cur, next, ccw) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			indices = append(indices[:i], indices[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Self-intersecting or otherwise degenerate polygon.
			return nil
		}
	}
	tris = append(tris, [3]int{indices[0], indices[1], indices[2]})
	return tris
}

func isEar(proj [][2]float32, indices []int, a, b, c int, ccw bool) bool {
	cr := cross2(proj[a], proj[b], proj[c])
	if ccw && cr <= 0 {
		return false
	}
	if !ccw && cr >= 0 {
		return false
	}
	for _, idx := range indices {
		if idx == a || idx == b || idx == c {
			continue
		}
		if pointInTriangle(proj[idx], proj[a], proj[b], proj[c]) {
			return false
		}
	}
	return true
}

func cross2(o, a, b [2]float32) float32 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func pointInTriangle(p, a, b, c [2]float32) bool {
	d1 := cross2(a, b, p)
	d2 := cross2(b, c, p)
	d3 := cross2(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
