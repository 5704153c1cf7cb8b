// Package opengl is the OpenGL implementation of the render backend: it
// uploads stroke geometry into vertex arrays once and replays them with a
// flat-color program while the caches decide what stays resident.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/worldonion/internal/batchcache"
	"github.com/Faultbox/worldonion/internal/extract"
	"github.com/Faultbox/worldonion/internal/render"
	"github.com/Faultbox/worldonion/pkg/math"
)

// Backend draws onion-skin batches with OpenGL 4.1 core.
type Backend struct {
	program     uint32
	viewProjLoc int32
	colorLoc    int32
}

// New compiles the flat-color program. Requires a current GL context.
func New() (*Backend, error) {
	program, err := compileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("onion shader: %w", err)
	}
	return &Backend{
		program:     program,
		viewProjLoc: gl.GetUniformLocation(program, gl.Str("uViewProj\x00")),
		colorLoc:    gl.GetUniformLocation(program, gl.Str("uColor\x00")),
	}, nil
}

// Destroy releases the program.
func (b *Backend) Destroy() {
	if b.program != 0 {
		gl.DeleteProgram(b.program)
		b.program = 0
	}
}

// batch is one uploaded vertex array plus its draw mode.
type batch struct {
	vao   uint32
	vbo   uint32
	count int32
	mode  uint32
}

// Release deletes the batch's GPU buffers.
func (b *batch) Release() {
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
		b.vao, b.vbo = 0, 0
	}
}

func upload(vertices []float32, mode uint32) *batch {
	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &vbo)

	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	return &batch{vao: vao, vbo: vbo, count: int32(len(vertices) / 3), mode: mode}
}

// BuildEntry uploads each stroke as a line strip and each fill as a triangle
// soup. Strokes too short to flatten are skipped.
func (b *Backend) BuildEntry(records []extract.StrokeRecord, zOffset float32) *batchcache.Entry {
	entry := &batchcache.Entry{}
	for _, rec := range records {
		if verts := render.StrokeVertices(rec, zOffset); len(verts) >= 6 {
			entry.Strokes = append(entry.Strokes, upload(verts, gl.LINE_STRIP))
		}
		if verts := render.FillVertices(rec, zOffset); len(verts) > 0 {
			entry.Fills = append(entry.Fills, upload(verts, gl.TRIANGLES))
		}
	}
	return entry
}

// DrawEntry replays a cached entry: fills first, strokes on top. Skins blend
// over the scene and test depth without writing it, so overlapping skins do
// not occlude each other.
func (b *Backend) DrawEntry(entry *batchcache.Entry, viewProj math.Mat4, stroke, fill render.Color, lineWidth float32) {
	if entry == nil {
		return
	}

	var prevDepthMask bool
	gl.GetBooleanv(gl.DEPTH_WRITEMASK, &prevDepthMask)
	blendWasEnabled := gl.IsEnabled(gl.BLEND)

	gl.UseProgram(b.program)
	gl.UniformMatrix4fv(b.viewProjLoc, 1, false, viewProj.Ptr())
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.DepthFunc(gl.LEQUAL)
	gl.DepthMask(false)
	gl.LineWidth(lineWidth)

	gl.Uniform4f(b.colorLoc, fill[0], fill[1], fill[2], fill[3])
	for _, fb := range entry.Fills {
		drawBatch(fb)
	}
	gl.Uniform4f(b.colorLoc, stroke[0], stroke[1], stroke[2], stroke[3])
	for _, sb := range entry.Strokes {
		drawBatch(sb)
	}

	gl.BindVertexArray(0)
	gl.DepthMask(prevDepthMask)
	gl.DepthFunc(gl.LESS)
	if !blendWasEnabled {
		gl.Disable(gl.BLEND)
	}
	gl.UseProgram(0)
}

func drawBatch(bt batchcache.Batch) {
	gb, ok := bt.(*batch)
	if !ok || gb.vao == 0 {
		return
	}
	gl.BindVertexArray(gb.vao)
	gl.DrawArrays(gb.mode, 0, gb.count)
}
