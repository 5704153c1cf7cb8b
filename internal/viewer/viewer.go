// Package viewer implements the interactive onion-skin viewer: an SDL2
// window, a demo scene with a camera-parented drawing, and the event loop
// driving the session.
package viewer

import (
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/worldonion/internal/config"
	"github.com/Faultbox/worldonion/internal/logger"
	"github.com/Faultbox/worldonion/internal/picking"
	"github.com/Faultbox/worldonion/internal/render/opengl"
	"github.com/Faultbox/worldonion/internal/session"
	"github.com/Faultbox/worldonion/internal/window"
	"github.com/Faultbox/worldonion/pkg/math"
)

// playbackFPS is the timeline rate during playback.
const playbackFPS = 12

// Viewer is the running application.
type Viewer struct {
	cfg     *config.Config
	window  *window.Window
	backend *opengl.Backend
	session *session.Session
	world   *picking.World

	running bool
	playing bool
	width   int
	height  int
	orbit   float32
}

// New creates the window, GL state and demo session.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{cfg: cfg, width: cfg.Graphics.Width, height: cfg.Graphics.Height}

	var err error
	v.window, err = window.New(window.Config{
		Title:      "worldonion viewer",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	if err := gl.Init(); err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to init OpenGL: %w", err)
	}

	v.backend, err = opengl.New()
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create render backend: %w", err)
	}

	scene, world := DemoScene()
	v.world = world
	v.session = session.New(cfg, scene, v.backend, world, logger.Log)
	v.session.OnFrameChange(scene.Start)

	logger.Info("viewer initialized",
		zap.Int("frames", scene.End-scene.Start+1))
	return v, nil
}

// Run drives the event loop until quit.
func (v *Viewer) Run() error {
	v.running = true
	lastAdvance := time.Now()

	for v.running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			v.handleEvent(event)
		}

		if v.playing && time.Since(lastAdvance) >= time.Second/playbackFPS {
			v.stepFrame(1, true)
			lastAdvance = time.Now()
		}

		// Ticks model the host's dependency-graph evaluation: the detector
		// runs here, deferred driver wiring flushes here.
		v.session.OnTick()

		v.draw()
		v.window.SwapBuffers()
	}
	return nil
}

// Close releases GPU and window resources.
func (v *Viewer) Close() {
	if v.backend != nil {
		v.session.Batches.Invalidate()
		v.backend.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
}

func (v *Viewer) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		v.running = false
	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED {
			v.width, v.height = v.window.GetSize()
			gl.Viewport(0, 0, int32(v.width), int32(v.height))
		}
	case *sdl.MouseButtonEvent:
		if e.Type == sdl.MOUSEBUTTONDOWN && e.Button == sdl.BUTTON_LEFT {
			v.placeCursor(float32(e.X), float32(e.Y))
		}
	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN {
			return
		}
		v.handleKey(e.Keysym.Sym)
	}
}

// placeCursor casts a ray through the clicked pixel and moves the scene
// cursor to the struck surface point, the position SetAnchor and new-keyframe
// capture pick up.
func (v *Viewer) placeCursor(x, y float32) {
	ray := picking.ScreenToRay(x, y, float32(v.width), float32(v.height), v.viewProj().Inverse())
	scene := v.session.Scene
	exclude := ""
	if scene.Active != nil {
		exclude = scene.Active.Name
	}
	hit, ok := v.world.Cast(ray, exclude)
	if !ok {
		return
	}
	scene.Cursor = hit
	v.report(session.Result{OK: true, Message: fmt.Sprintf("cursor at (%.2f, %.2f, %.2f)", hit.X, hit.Y, hit.Z)})
}

func (v *Viewer) handleKey(key sdl.Keycode) {
	switch key {
	case sdl.K_ESCAPE, sdl.K_q:
		v.running = false
	case sdl.K_SPACE:
		v.playing = !v.playing
	case sdl.K_RIGHT:
		v.stepFrame(1, false)
	case sdl.K_LEFT:
		v.stepFrame(-1, false)
	case sdl.K_o:
		v.cfg.Onion.Enabled = !v.cfg.Onion.Enabled
	case sdl.K_m:
		if v.cfg.Onion.Mode == "frames" {
			v.cfg.Onion.Mode = "keyframes"
		} else {
			v.cfg.Onion.Mode = "frames"
		}
		v.report(session.Result{OK: true, Message: "mode: " + v.cfg.Onion.Mode})
	case sdl.K_a:
		v.report(v.session.AutoAnchor())
	case sdl.K_l:
		v.report(v.session.ToggleWorldLock())
	case sdl.K_b:
		v.report(v.session.BakeSurfaceOffsets())
	case sdl.K_c:
		v.report(v.session.ClearCache())
	case sdl.K_f:
		v.report(v.session.BuildFullCache())
	case sdl.K_k:
		v.report(v.session.ClearAllLocks())
	case sdl.K_COMMA:
		v.orbit -= 0.1
	case sdl.K_PERIOD:
		v.orbit += 0.1
	case sdl.K_s:
		v.report(v.session.SetAnchor(v.session.Scene.Cursor))
	case sdl.K_p:
		v.cfg.Overlay.ShowMotionPath = !v.cfg.Overlay.ShowMotionPath
	case sdl.K_x:
		v.cfg.Overlay.ShowAnchors = !v.cfg.Overlay.ShowAnchors
	}
}

func (v *Viewer) report(res session.Result) {
	if res.OK {
		logger.Info(res.Message)
	} else {
		logger.Warn(res.Message)
	}
	v.window.SetTitle("worldonion viewer - " + res.Message)
}

func (v *Viewer) stepFrame(delta int, wrap bool) {
	scene := v.session.Scene
	frame := scene.Frame + delta
	if wrap && frame > scene.End {
		frame = scene.Start
	}
	if frame < scene.Start {
		frame = scene.Start
	}
	if frame > scene.End {
		frame = scene.End
	}
	v.session.OnFrameChange(frame)
}

func (v *Viewer) draw() {
	gl.ClearColor(0.12, 0.12, 0.14, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)

	v.session.Draw(v.viewProj())
}

// viewProj builds the view-projection matrix from an orbitable vantage
// looking at the camera path, so the world-space pinning of the skins is
// visible from any side.
func (v *Viewer) viewProj() math.Mat4 {
	aspect := float32(v.width) / float32(v.height)
	proj := math.Perspective(0.9, aspect, 0.1, 500)

	scene := v.session.Scene
	target := math.Vec3{}
	if scene.Camera != nil {
		target = scene.Camera.WorldAt(scene.Frame).Translation()
	}
	spin := math.QuatFromAxisAngle(math.Vec3{Z: 1}, v.orbit)
	eye := target.Add(spin.RotateVec(math.Vec3{X: -6, Y: -14, Z: 8}))
	view := math.LookAt(eye, target, math.Vec3{Z: 1})
	return proj.Mul(view)
}
