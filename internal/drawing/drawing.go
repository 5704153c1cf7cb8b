// Package drawing models frame-by-frame vector stroke data: layers with
// sorted keyframes, flat point arrays split by cumulative curve offsets, and
// materials that decide fill rendering.
package drawing

import (
	"sort"
	"strings"

	"github.com/Faultbox/worldonion/pkg/math"
)

// Material describes how strokes referencing it are rendered.
type Material struct {
	Name     string
	ShowFill bool
}

// Keyframe holds one drawn frame of a layer. Points is a flat array shared
// by all strokes; CurveOffsets[i] is the index of stroke i's first point.
// MaterialIndex has one entry per stroke; missing entries default to 0.
type Keyframe struct {
	Frame         int
	Points        []math.Vec3
	CurveOffsets  []int
	MaterialIndex []int
}

// Layer is a named stack of keyframes with its own local transform.
// Keys must be kept sorted by Frame; use AddKey to preserve that.
type Layer struct {
	Name        string
	Hidden      bool
	Translation math.Vec3
	RotationZ   float32
	Scale       math.Vec3

	Keys []*Keyframe
}

// Data is a drawing object's full stroke content.
type Data struct {
	Name      string
	Layers    []*Layer
	Materials []Material

	// Version is bumped on every mutation so caches can detect staleness
	// without tracking individual edits.
	Version int
}

// Touch marks the data as modified.
func (d *Data) Touch() {
	d.Version++
}

// Layer returns the named layer, or nil.
func (d *Data) Layer(name string) *Layer {
	for _, l := range d.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// LayerMatrix builds the layer's local transform as translate * rotate * scale.
// A zero Scale is treated as unit scale so a zero-valued Layer is usable as-is.
func (l *Layer) LayerMatrix() math.Mat4 {
	s := l.Scale
	if s == (math.Vec3{}) {
		s = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	t := math.TranslateVec3(l.Translation)
	r := math.RotateZ(l.RotationZ)
	return t.Mul(r).Mul(math.Scale(s.X, s.Y, s.Z))
}

// AddKey inserts a keyframe keeping Keys sorted by frame number.
// An existing keyframe at the same frame is replaced.
func (l *Layer) AddKey(k *Keyframe) {
	idx := sort.Search(len(l.Keys), func(i int) bool {
		return l.Keys[i].Frame >= k.Frame
	})
	if idx < len(l.Keys) && l.Keys[idx].Frame == k.Frame {
		l.Keys[idx] = k
		return
	}
	l.Keys = append(l.Keys, nil)
	copy(l.Keys[idx+1:], l.Keys[idx:])
	l.Keys[idx] = k
}

// RemoveKey deletes the keyframe at the exact frame, if present.
func (l *Layer) RemoveKey(frame int) {
	for i, k := range l.Keys {
		if k.Frame == frame {
			l.Keys = append(l.Keys[:i], l.Keys[i+1:]...)
			return
		}
	}
}

// ActiveKeyAt returns the keyframe at or before frame, or nil if none.
// Keys are sorted, so this is a binary search.
func (l *Layer) ActiveKeyAt(frame int) *Keyframe {
	idx := sort.Search(len(l.Keys), func(i int) bool {
		return l.Keys[i].Frame > frame
	})
	if idx == 0 {
		return nil
	}
	return l.Keys[idx-1]
}

// KeyAt returns the keyframe exactly at frame, or nil.
func (l *Layer) KeyAt(frame int) *Keyframe {
	idx := sort.Search(len(l.Keys), func(i int) bool {
		return l.Keys[i].Frame >= frame
	})
	if idx < len(l.Keys) && l.Keys[idx].Frame == frame {
		return l.Keys[idx]
	}
	return nil
}

// StrokeBounds returns the half-open point range [start, end) for stroke i.
func (k *Keyframe) StrokeBounds(i int) (start, end int) {
	start = k.CurveOffsets[i]
	if i+1 < len(k.CurveOffsets) {
		end = k.CurveOffsets[i+1]
	} else {
		end = len(k.Points)
	}
	return start, end
}

// StrokeCount returns the number of strokes in the keyframe.
func (k *Keyframe) StrokeCount() int {
	return len(k.CurveOffsets)
}

// StrokeMaterial returns the material index of stroke i, defaulting to 0.
func (k *Keyframe) StrokeMaterial(i int) int {
	if i < len(k.MaterialIndex) {
		return k.MaterialIndex[i]
	}
	return 0
}

// LayerFilter selects which layers participate in extraction and anchoring.
type LayerFilter struct {
	SkipUnderscore bool   // skip layers whose name starts with "_"
	NameContains   string // when non-empty, layer name must contain this
}

// Pass reports whether the layer passes the filter. Hidden layers never pass.
func (f LayerFilter) Pass(l *Layer) bool {
	if l.Hidden {
		return false
	}
	if f.SkipUnderscore && strings.HasPrefix(l.Name, "_") {
		return false
	}
	if f.NameContains != "" && !strings.Contains(l.Name, f.NameContains) {
		return false
	}
	return true
}

// LayerKey identifies one keyframe of one layer.
type LayerKey struct {
	Layer string
	Frame int
}

// KeyframeSet returns the set of (layer, frame) pairs for all keyframes on
// layers passing the filter.
func (d *Data) KeyframeSet(filter LayerFilter) map[LayerKey]struct{} {
	set := make(map[LayerKey]struct{})
	if d == nil {
		return set
	}
	for _, l := range d.Layers {
		if !filter.Pass(l) {
			continue
		}
		for _, k := range l.Keys {
			set[LayerKey{Layer: l.Name, Frame: k.Frame}] = struct{}{}
		}
	}
	return set
}
