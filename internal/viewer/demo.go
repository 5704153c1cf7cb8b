package viewer

import (
	gomath "math"

	"github.com/Faultbox/worldonion/internal/drawing"
	"github.com/Faultbox/worldonion/internal/picking"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

// DemoScene builds the sample content the viewer opens with: a camera
// traveling along a path with a stroke drawing parented to it, over a ground
// plane the surface baker can hit.
func DemoScene() (*scenegraph.Scene, *picking.World) {
	scene := scenegraph.NewScene(1, 48)

	camera := scene.Add(scenegraph.NewObject("camera"))
	camera.PosCurve = &scenegraph.FCurve{}
	camera.PosCurve.AddKey(scenegraph.CurveKey{Frame: 1, Value: math.Vec3{X: 0, Y: 0, Z: 6}})
	camera.PosCurve.AddKey(scenegraph.CurveKey{Frame: 24, Value: math.Vec3{X: 10, Y: 2, Z: 6}})
	camera.PosCurve.AddKey(scenegraph.CurveKey{Frame: 48, Value: math.Vec3{X: 20, Y: 0, Z: 6}})
	scene.Camera = camera

	board := scene.Add(scenegraph.NewObject("board"))
	board.Parent = camera
	board.Base = math.Translate(0, 0, -4)
	board.Drawing = demoDrawing()
	scene.Active = board

	world := &picking.World{
		Planes: []picking.Plane{{Name: "ground", Height: 0}},
		Boxes: []picking.Box{{
			Name: "crate",
			AABB: picking.NewAABB(math.Vec3{X: 8, Y: -2, Z: 0}, math.Vec3{X: 12, Y: 2, Z: 1.5}),
		}},
	}
	return scene, world
}

func demoDrawing() *drawing.Data {
	layer := &drawing.Layer{Name: "lines"}
	// A bouncing circle drawn every 6 frames, squashing as it lands.
	for i, frame := range []int{1, 7, 13, 19, 25, 31, 37, 43} {
		phase := float32(i) / 7
		squash := float32(0.6 + 0.4*gomath.Abs(gomath.Sin(float64(phase)*gomath.Pi*2)))
		layer.AddKey(circleKey(frame, 1.2, squash))
	}
	return &drawing.Data{
		Name:      "board",
		Layers:    []*drawing.Layer{layer},
		Materials: []drawing.Material{{Name: "ink"}, {Name: "paint", ShowFill: true}},
	}
}

// circleKey builds one keyframe: a filled circle outline plus a ground line.
func circleKey(frame int, radius, squash float32) *drawing.Keyframe {
	const segments = 24

	var points []math.Vec3
	for i := 0; i <= segments; i++ {
		a := float64(i) / segments * 2 * gomath.Pi
		points = append(points, math.Vec3{
			X: radius * float32(gomath.Cos(a)),
			Y: radius * squash * float32(gomath.Sin(a)),
		})
	}
	circleLen := len(points)

	points = append(points,
		math.Vec3{X: -2, Y: -radius},
		math.Vec3{X: 2, Y: -radius},
	)

	return &drawing.Keyframe{
		Frame:         frame,
		Points:        points,
		CurveOffsets:  []int{0, circleLen},
		MaterialIndex: []int{1, 0},
	}
}
