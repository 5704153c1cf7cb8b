// Package anchors persists per-object anchor and world-lock metadata as JSON
// blobs in the object's property bag, with an in-memory decode cache so the
// blobs are not reparsed on every frame. Malformed or legacy-shaped blobs
// never fail: they degrade to empty tables or are upgraded on read.
package anchors

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/Faultbox/worldonion/internal/extract"
	"github.com/Faultbox/worldonion/internal/scenegraph"
	"github.com/Faultbox/worldonion/pkg/math"
)

const (
	anchorsProp = "world_onion_anchors"
	locksProp   = "world_onion_locks"
)

// AnchorRecord is a per-layer, per-frame world anchor. CamDir is the camera
// forward direction captured when the anchor was set, nil when unknown.
type AnchorRecord struct {
	Pos    math.Vec3
	CamDir *math.Vec3
}

// LockRecord is the per-frame world-lock state. RemoveLock clears WorldLocked
// but keeps the rest, so re-locking the frame restores the same pose.
type LockRecord struct {
	WorldLocked           bool
	AnchorWorld           math.Vec3
	AnchorLocalOffset     math.Vec3
	MatrixLocal           math.Mat4
	OriginalParentInverse math.Mat4
}

// anchorTable maps layer name to frame to record.
type anchorTable map[string]map[int]AnchorRecord

// lockTable maps frame to record.
type lockTable map[int]LockRecord

type cachedAnchors struct {
	raw   string
	table anchorTable
}

type cachedLocks struct {
	raw   string
	table lockTable
}

// Store reads and writes the metadata blobs of scene objects. The decode
// cache is keyed by object and checked against the raw blob, so external
// edits (undo, file reload) are picked up automatically.
type Store struct {
	anchors map[*scenegraph.Object]*cachedAnchors
	locks   map[*scenegraph.Object]*cachedLocks
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		anchors: make(map[*scenegraph.Object]*cachedAnchors),
		locks:   make(map[*scenegraph.Object]*cachedLocks),
	}
}

// DropCaches forgets every decoded table. Persisted blobs are untouched.
func (s *Store) DropCaches() {
	s.anchors = make(map[*scenegraph.Object]*cachedAnchors)
	s.locks = make(map[*scenegraph.Object]*cachedLocks)
}

// Anchor returns the anchor record for a layer and frame.
func (s *Store) Anchor(obj *scenegraph.Object, layer string, frame int) (AnchorRecord, bool) {
	table := s.anchorsOf(obj)
	rec, ok := table[layer][frame]
	return rec, ok
}

// SetAnchor stores an anchor record and persists the table.
func (s *Store) SetAnchor(obj *scenegraph.Object, layer string, frame int, rec AnchorRecord) {
	table := s.anchorsOf(obj)
	if table[layer] == nil {
		table[layer] = make(map[int]AnchorRecord)
	}
	table[layer][frame] = rec
	s.saveAnchors(obj, table)
}

// RemoveAnchor deletes the anchor for a layer and frame, if present.
func (s *Store) RemoveAnchor(obj *scenegraph.Object, layer string, frame int) {
	table := s.anchorsOf(obj)
	if frames, ok := table[layer]; ok {
		delete(frames, frame)
		if len(frames) == 0 {
			delete(table, layer)
		}
		s.saveAnchors(obj, table)
	}
}

// ClearAnchors removes every anchor record from the object.
func (s *Store) ClearAnchors(obj *scenegraph.Object) {
	delete(obj.Props, anchorsProp)
	delete(s.anchors, obj)
}

// MigrateAnchor moves a layer's anchor record from one frame to another,
// used when a keyframe is dragged on the timeline.
func (s *Store) MigrateAnchor(obj *scenegraph.Object, layer string, from, to int) {
	table := s.anchorsOf(obj)
	frames, ok := table[layer]
	if !ok {
		return
	}
	rec, ok := frames[from]
	if !ok {
		return
	}
	delete(frames, from)
	frames[to] = rec
	s.saveAnchors(obj, table)
}

// AnchorLayers returns the layer names that have at least one anchor.
func (s *Store) AnchorLayers(obj *scenegraph.Object) []string {
	table := s.anchorsOf(obj)
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Anchors returns a copy of every anchor record of a layer, keyed by frame.
func (s *Store) Anchors(obj *scenegraph.Object, layer string) map[int]AnchorRecord {
	frames := s.anchorsOf(obj)[layer]
	if len(frames) == 0 {
		return nil
	}
	out := make(map[int]AnchorRecord, len(frames))
	for frame, rec := range frames {
		out[frame] = rec
	}
	return out
}

// Lock returns the lock record for a frame.
func (s *Store) Lock(obj *scenegraph.Object, frame int) (LockRecord, bool) {
	rec, ok := s.locksOf(obj)[frame]
	return rec, ok
}

// SetLock stores a lock record and persists the table.
func (s *Store) SetLock(obj *scenegraph.Object, frame int, rec LockRecord) {
	table := s.locksOf(obj)
	table[frame] = rec
	s.saveLocks(obj, table)
}

// RemoveLock clears the locked flag for a frame but keeps the record, so a
// later re-lock restores the same anchor and captured matrices.
func (s *Store) RemoveLock(obj *scenegraph.Object, frame int) {
	table := s.locksOf(obj)
	rec, ok := table[frame]
	if !ok {
		return
	}
	rec.WorldLocked = false
	table[frame] = rec
	s.saveLocks(obj, table)
}

// ClearLocks removes every lock record from the object.
func (s *Store) ClearLocks(obj *scenegraph.Object) {
	delete(obj.Props, locksProp)
	delete(s.locks, obj)
}

// MigrateLock moves a lock record from one frame to another.
func (s *Store) MigrateLock(obj *scenegraph.Object, from, to int) {
	table := s.locksOf(obj)
	rec, ok := table[from]
	if !ok {
		return
	}
	delete(table, from)
	table[to] = rec
	s.saveLocks(obj, table)
}

// LockedFrames returns the frames whose lock record has WorldLocked set,
// sorted ascending.
func (s *Store) LockedFrames(obj *scenegraph.Object) []int {
	table := s.locksOf(obj)
	frames := make([]int, 0, len(table))
	for f, rec := range table {
		if rec.WorldLocked {
			frames = append(frames, f)
		}
	}
	sort.Ints(frames)
	return frames
}

// ActiveLockAt returns the locked frame at or before frame and its record.
func (s *Store) ActiveLockAt(obj *scenegraph.Object, frame int) (int, LockRecord, bool) {
	frames := s.LockedFrames(obj)
	idx := sort.SearchInts(frames, frame+1) - 1
	if idx < 0 {
		return 0, LockRecord{}, false
	}
	f := frames[idx]
	rec, _ := s.Lock(obj, f)
	return f, rec, true
}

// AnchorFromStrokes derives an anchor from extracted stroke geometry: the
// mean of the points in XY at the lowest Z, which places the anchor at the
// drawing's ground contact. ok is false when no points exist.
func AnchorFromStrokes(records []extract.StrokeRecord) (math.Vec3, bool) {
	var sumX, sumY, minZ float32
	count := 0
	for _, rec := range records {
		for _, p := range rec.Points {
			sumX += p.X
			sumY += p.Y
			if count == 0 || p.Z < minZ {
				minZ = p.Z
			}
			count++
		}
	}
	if count == 0 {
		return math.Vec3{}, false
	}
	n := float32(count)
	return math.Vec3{X: sumX / n, Y: sumY / n, Z: minZ}, true
}

func (s *Store) anchorsOf(obj *scenegraph.Object) anchorTable {
	raw := obj.Props[anchorsProp]
	if c, ok := s.anchors[obj]; ok && c.raw == raw {
		return c.table
	}
	table := decodeAnchors(raw)
	s.anchors[obj] = &cachedAnchors{raw: raw, table: table}
	return table
}

func (s *Store) locksOf(obj *scenegraph.Object) lockTable {
	raw := obj.Props[locksProp]
	if c, ok := s.locks[obj]; ok && c.raw == raw {
		return c.table
	}
	table := decodeLocks(raw)
	s.locks[obj] = &cachedLocks{raw: raw, table: table}
	return table
}

func (s *Store) saveAnchors(obj *scenegraph.Object, table anchorTable) {
	raw := encodeAnchors(table)
	if len(table) == 0 {
		delete(obj.Props, anchorsProp)
		raw = ""
	} else {
		obj.Props[anchorsProp] = raw
	}
	s.anchors[obj] = &cachedAnchors{raw: raw, table: table}
}

func (s *Store) saveLocks(obj *scenegraph.Object, table lockTable) {
	raw := encodeLocks(table)
	if len(table) == 0 {
		delete(obj.Props, locksProp)
		raw = ""
	} else {
		obj.Props[locksProp] = raw
	}
	s.locks[obj] = &cachedLocks{raw: raw, table: table}
}

func frameKey(frame int) string { return strconv.Itoa(frame) }

func parseFrameKey(key string) (int, bool) {
	f, err := strconv.Atoi(key)
	return f, err == nil
}

// json wire shapes. Anchor values are decoded through RawMessage because the
// legacy format stored a bare [x, y, z] list instead of an object.

type anchorJSON struct {
	Pos    []float32 `json:"pos"`
	CamDir []float32 `json:"cam_dir,omitempty"`
}

type lockJSON struct {
	WorldLocked           bool        `json:"world_locked"`
	AnchorWorld           []float32   `json:"anchor_world"`
	AnchorLocalOffset     []float32   `json:"anchor_local_offset"`
	MatrixLocal           [][]float32 `json:"matrix_local"`
	OriginalParentInverse [][]float32 `json:"original_parent_inverse"`
}

func decodeAnchors(raw string) anchorTable {
	table := make(anchorTable)
	if raw == "" {
		return table
	}
	var wire map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return table
	}
	for layer, frames := range wire {
		for key, msg := range frames {
			frame, ok := parseFrameKey(key)
			if !ok {
				continue
			}
			rec, ok := decodeAnchorValue(msg)
			if !ok {
				continue
			}
			if table[layer] == nil {
				table[layer] = make(map[int]AnchorRecord)
			}
			table[layer][frame] = rec
		}
	}
	return table
}

func decodeAnchorValue(msg json.RawMessage) (AnchorRecord, bool) {
	var a anchorJSON
	if err := json.Unmarshal(msg, &a); err == nil && len(a.Pos) == 3 {
		rec := AnchorRecord{Pos: vec3From(a.Pos)}
		if len(a.CamDir) == 3 {
			dir := vec3From(a.CamDir)
			rec.CamDir = &dir
		}
		return rec, true
	}
	// Legacy shape: a bare position list.
	var pos []float32
	if err := json.Unmarshal(msg, &pos); err == nil && len(pos) == 3 {
		return AnchorRecord{Pos: vec3From(pos)}, true
	}
	return AnchorRecord{}, false
}

func encodeAnchors(table anchorTable) string {
	wire := make(map[string]map[string]anchorJSON, len(table))
	for layer, frames := range table {
		entry := make(map[string]anchorJSON, len(frames))
		for frame, rec := range frames {
			a := anchorJSON{Pos: vec3Slice(rec.Pos)}
			if rec.CamDir != nil {
				a.CamDir = vec3Slice(*rec.CamDir)
			}
			entry[frameKey(frame)] = a
		}
		wire[layer] = entry
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeLocks(raw string) lockTable {
	table := make(lockTable)
	if raw == "" {
		return table
	}
	var wire map[string]lockJSON
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return table
	}
	for key, l := range wire {
		frame, ok := parseFrameKey(key)
		if !ok {
			continue
		}
		if len(l.AnchorWorld) != 3 || len(l.AnchorLocalOffset) != 3 {
			continue
		}
		table[frame] = LockRecord{
			WorldLocked:           l.WorldLocked,
			AnchorWorld:           vec3From(l.AnchorWorld),
			AnchorLocalOffset:     vec3From(l.AnchorLocalOffset),
			MatrixLocal:           mat4FromRows(l.MatrixLocal),
			OriginalParentInverse: mat4FromRows(l.OriginalParentInverse),
		}
	}
	return table
}

func encodeLocks(table lockTable) string {
	wire := make(map[string]lockJSON, len(table))
	for frame, rec := range table {
		wire[frameKey(frame)] = lockJSON{
			WorldLocked:           rec.WorldLocked,
			AnchorWorld:           vec3Slice(rec.AnchorWorld),
			AnchorLocalOffset:     vec3Slice(rec.AnchorLocalOffset),
			MatrixLocal:           mat4Rows(rec.MatrixLocal),
			OriginalParentInverse: mat4Rows(rec.OriginalParentInverse),
		}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return ""
	}
	return string(data)
}

func vec3From(v []float32) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func vec3Slice(v math.Vec3) []float32 {
	return []float32{v.X, v.Y, v.Z}
}

// mat4Rows serializes a column-major matrix as four row lists, the layout
// the metadata format uses.
func mat4Rows(m math.Mat4) [][]float32 {
	rows := make([][]float32, 4)
	for r := 0; r < 4; r++ {
		rows[r] = make([]float32, 4)
		for c := 0; c < 4; c++ {
			rows[r][c] = m[c*4+r]
		}
	}
	return rows
}

func mat4FromRows(rows [][]float32) math.Mat4 {
	m := math.Identity()
	if len(rows) != 4 {
		return m
	}
	for r := 0; r < 4; r++ {
		if len(rows[r]) != 4 {
			return math.Identity()
		}
		for c := 0; c < 4; c++ {
			m[c*4+r] = rows[r][c]
		}
	}
	return m
}
