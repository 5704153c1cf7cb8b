package scenegraph

import (
	"sort"

	"github.com/tanema/gween/ease"

	"github.com/Faultbox/worldonion/pkg/math"
)

// CurveKey is one control point of a position F-curve. Ease shapes the
// segment from this key to the next; nil means linear.
type CurveKey struct {
	Frame int
	Value math.Vec3
	Ease  ease.TweenFunc
}

// FCurve is an animated position: sorted keyframes with eased interpolation
// between neighbors and clamping outside the key range.
type FCurve struct {
	Keys []CurveKey

	// Version is bumped on keyframe edits so dependents can detect staleness.
	Version int
}

// AddKey inserts a key keeping Keys sorted by frame. A key at the same frame
// is replaced. Bumps Version.
func (c *FCurve) AddKey(k CurveKey) {
	c.Version++
	idx := sort.Search(len(c.Keys), func(i int) bool {
		return c.Keys[i].Frame >= k.Frame
	})
	if idx < len(c.Keys) && c.Keys[idx].Frame == k.Frame {
		c.Keys[idx] = k
		return
	}
	c.Keys = append(c.Keys, CurveKey{})
	copy(c.Keys[idx+1:], c.Keys[idx:])
	c.Keys[idx] = k
}

// RemoveKey deletes the key at the exact frame, if present. Bumps Version.
func (c *FCurve) RemoveKey(frame int) {
	for i, k := range c.Keys {
		if k.Frame == frame {
			c.Keys = append(c.Keys[:i], c.Keys[i+1:]...)
			c.Version++
			return
		}
	}
}

// Range returns the first and last key frames. ok is false for an empty curve.
func (c *FCurve) Range() (start, end int, ok bool) {
	if c == nil || len(c.Keys) == 0 {
		return 0, 0, false
	}
	return c.Keys[0].Frame, c.Keys[len(c.Keys)-1].Frame, true
}

// Eval returns the curve value at frame. Frames outside the key range clamp
// to the first/last key. Between keys the segment's easing function is
// applied per component; a nil easing is linear.
func (c *FCurve) Eval(frame float32) math.Vec3 {
	if c == nil || len(c.Keys) == 0 {
		return math.Vec3{}
	}
	keys := c.Keys
	if frame <= float32(keys[0].Frame) {
		return keys[0].Value
	}
	last := len(keys) - 1
	if frame >= float32(keys[last].Frame) {
		return keys[last].Value
	}

	// Find the segment containing frame.
	idx := sort.Search(len(keys), func(i int) bool {
		return float32(keys[i].Frame) > frame
	})
	k0 := keys[idx-1]
	k1 := keys[idx]

	dur := float32(k1.Frame - k0.Frame)
	t := frame - float32(k0.Frame)
	fn := k0.Ease
	if fn == nil {
		fn = ease.Linear
	}
	return math.Vec3{
		X: fn(t, k0.Value.X, k1.Value.X-k0.Value.X, dur),
		Y: fn(t, k0.Value.Y, k1.Value.Y-k0.Value.Y, dur),
		Z: fn(t, k0.Value.Z, k1.Value.Z-k0.Value.Z, dur),
	}
}
