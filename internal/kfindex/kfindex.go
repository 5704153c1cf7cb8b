// Package kfindex maintains a cached, sorted, de-duplicated list of keyframe
// numbers for a drawing and resolves which frames the onion skin should
// display around the playhead.
package kfindex

import (
	"sort"

	"github.com/Faultbox/worldonion/internal/drawing"
)

// Mode selects how display frames are chosen.
type Mode int

const (
	// ModeFrames offsets from the playhead in fixed frame steps.
	ModeFrames Mode = iota
	// ModeKeyframes walks the drawing's real keyframes around the playhead.
	ModeKeyframes
)

// Display is one onion-skin frame: its signed distance from the playhead
// (in frames or keyframe steps, depending on mode) and its frame number.
type Display struct {
	Offset int
	Frame  int
}

// Index caches the sorted keyframe list of one drawing. The cache is keyed by
// drawing identity and version and rebuilt lazily when either changes.
type Index struct {
	data    *drawing.Data
	version int
	frames  []int
}

// Frames returns the sorted unique keyframe numbers of the drawing's layers
// passing the filter, rebuilding the cached list if the drawing changed.
func (ix *Index) Frames(d *drawing.Data, filter drawing.LayerFilter) []int {
	if d == nil {
		return nil
	}
	if ix.data == d && ix.version == d.Version && ix.frames != nil {
		return ix.frames
	}

	seen := make(map[int]struct{})
	for _, layer := range d.Layers {
		if !filter.Pass(layer) {
			continue
		}
		for _, k := range layer.Keys {
			seen[k.Frame] = struct{}{}
		}
	}
	frames := make([]int, 0, len(seen))
	for f := range seen {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	ix.data = d
	ix.version = d.Version
	ix.frames = frames
	return frames
}

// Invalidate drops the cached list so the next Frames call rebuilds it.
func (ix *Index) Invalidate() {
	ix.data = nil
	ix.frames = nil
}

// ActiveAt returns the keyframe at or before frame, or false when the frame
// precedes every keyframe.
func (ix *Index) ActiveAt(d *drawing.Data, filter drawing.LayerFilter, frame int) (int, bool) {
	frames := ix.Frames(d, filter)
	idx := sort.SearchInts(frames, frame+1) - 1
	if idx < 0 {
		return 0, false
	}
	return frames[idx], true
}

// DisplayFrames resolves the onion-skin frames around the playhead. The
// playhead frame itself is never returned: it is drawn live, not as a skin.
// In ModeFrames the result is frame ± i*step for i in 1..before/after. In
// ModeKeyframes it is the nearest real keyframes on each side.
func (ix *Index) DisplayFrames(d *drawing.Data, filter drawing.LayerFilter, mode Mode, frame, before, after, step int) []Display {
	if step <= 0 {
		step = 1
	}

	var out []Display
	switch mode {
	case ModeKeyframes:
		frames := ix.Frames(d, filter)
		// First index at or past the playhead.
		idx := sort.SearchInts(frames, frame)

		for i, j := 1, idx-1; i <= before && j >= 0; i, j = i+1, j-1 {
			out = append(out, Display{Offset: -i, Frame: frames[j]})
		}
		// Reverse so earlier frames come first.
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}

		j := idx
		if j < len(frames) && frames[j] == frame {
			j++
		}
		for i := 1; i <= after && j < len(frames); i, j = i+1, j+1 {
			out = append(out, Display{Offset: i, Frame: frames[j]})
		}

	default:
		for i := before; i >= 1; i-- {
			out = append(out, Display{Offset: -i, Frame: frame - i*step})
		}
		for i := 1; i <= after; i++ {
			out = append(out, Display{Offset: i, Frame: frame + i*step})
		}
	}
	return out
}
