package pipeline

import (
	"errors"
	"sync"
)

// BucketIndex holds the ordered journey ids per stage column.
type BucketIndex map[int][]string

// DeriveBuckets groups journeys by classified stage, preserving the
// incoming order within each column. Every stage gets an entry even
// when empty so columns render deterministically.
func DeriveBuckets(js []Journey) BucketIndex {
	idx := make(BucketIndex, len(Stages))
	for _, s := range Stages {
		idx[s.ID] = []string{}
	}
	for _, j := range js {
		idx[j.Stage] = append(idx[j.Stage], j.ID)
	}
	return idx
}

// ArrayMove moves the element at from to position to, shifting the
// rest. Out-of-range indexes leave the slice untouched.
func ArrayMove(ids []string, from, to int) []string {
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) || from == to {
		return ids
	}
	out := make([]string, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	out = append(out[:to], append([]string{ids[from]}, out[to:]...)...)
	return out
}

// DropRef identifies what a dragged card is over: either another card
// (ItemID) or an empty column (Stage). Exactly one side is set.
type DropRef struct {
	ItemID string `json:"itemId,omitempty"`
	Stage  int    `json:"stage,omitempty"`
}

// Commit is the stage move a finished drag produced.
type Commit struct {
	JourneyID string `json:"journeyId"`
	FromStage int    `json:"fromStage"`
	ToStage   int    `json:"toStage"`
}

var (
	ErrNoActiveDrag   = errors.New("no drag in progress")
	ErrDragInProgress = errors.New("drag already in progress")
	ErrUnknownItem    = errors.New("unknown journey id")
)

// Board is the mutable kanban surface for one client session. Buckets
// are spliced optimistically during the drag; DragEnd settles them and
// reports the stage change, if any, for persistence. A failed persist
// does not roll the board back.
type Board struct {
	mu          sync.Mutex
	buckets     BucketIndex
	activeID    string
	originStage int
}

func NewBoard(js []Journey) *Board {
	return &Board{buckets: DeriveBuckets(js)}
}

// Reset replaces the buckets from a fresh fetch. A drag in progress is
// abandoned; the incoming data wins.
func (b *Board) Reset(js []Journey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buckets = DeriveBuckets(js)
	b.activeID = ""
}

// Buckets returns a deep copy safe to serialize.
func (b *Board) Buckets() BucketIndex {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(BucketIndex, len(b.buckets))
	for stage, ids := range b.buckets {
		out[stage] = append([]string(nil), ids...)
	}
	return out
}

// StageOf returns the column currently holding the id.
func (b *Board) StageOf(id string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stageOfLocked(id)
}

func (b *Board) stageOfLocked(id string) (int, bool) {
	for stage, ids := range b.buckets {
		for _, x := range ids {
			if x == id {
				return stage, true
			}
		}
	}
	return 0, false
}

func (b *Board) DragStart(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeID != "" {
		return ErrDragInProgress
	}
	stage, ok := b.stageOfLocked(id)
	if !ok {
		return ErrUnknownItem
	}
	b.activeID = id
	b.originStage = stage
	return nil
}

// DragOver splices the active card toward the hovered target. Hovering
// a card in another column moves the active card next to it; hovering
// an empty column appends to it. No-ops silently when the target is
// the card itself or nothing changed.
func (b *Board) DragOver(over DropRef) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeID == "" {
		return ErrNoActiveDrag
	}
	if over.ItemID == b.activeID {
		return nil
	}
	from, ok := b.stageOfLocked(b.activeID)
	if !ok {
		return ErrUnknownItem
	}

	if over.ItemID != "" {
		to, ok := b.stageOfLocked(over.ItemID)
		if !ok {
			return ErrUnknownItem
		}
		if to == from {
			// Same-column reorder settles at DragEnd.
			return nil
		}
		b.removeLocked(from, b.activeID)
		pos := indexOf(b.buckets[to], over.ItemID)
		b.buckets[to] = insertAt(b.buckets[to], pos, b.activeID)
		return nil
	}

	to := over.Stage
	if _, exists := b.buckets[to]; !exists {
		return ErrUnknownItem
	}
	if to == from {
		return nil
	}
	b.removeLocked(from, b.activeID)
	b.buckets[to] = append(b.buckets[to], b.activeID)
	return nil
}

// DragEnd finishes the drag. Dropping over a card in the same column
// reorders; the returned Commit is non-nil only when the card ended in
// a different column than it started, so the caller knows to persist.
func (b *Board) DragEnd(over DropRef) (*Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeID == "" {
		return nil, ErrNoActiveDrag
	}
	id := b.activeID
	b.activeID = ""

	cur, ok := b.stageOfLocked(id)
	if !ok {
		return nil, ErrUnknownItem
	}

	if over.ItemID != "" && over.ItemID != id {
		if overStage, ok := b.stageOfLocked(over.ItemID); ok && overStage == cur {
			ids := b.buckets[cur]
			b.buckets[cur] = ArrayMove(ids, indexOf(ids, id), indexOf(ids, over.ItemID))
		}
	}

	if cur == b.originStage {
		return nil, nil
	}
	return &Commit{JourneyID: id, FromStage: b.originStage, ToStage: cur}, nil
}

// CancelDrag puts the active card back in its origin column.
func (b *Board) CancelDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeID == "" {
		return
	}
	id := b.activeID
	b.activeID = ""
	if cur, ok := b.stageOfLocked(id); ok && cur != b.originStage {
		b.removeLocked(cur, id)
		b.buckets[b.originStage] = append(b.buckets[b.originStage], id)
	}
}

// MoveToStage is the keyboard path: a direct column move with the same
// commit semantics as a pointer drag.
func (b *Board) MoveToStage(id string, to int) (*Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, ok := b.stageOfLocked(id)
	if !ok {
		return nil, ErrUnknownItem
	}
	if _, exists := b.buckets[to]; !exists {
		return nil, ErrUnknownItem
	}
	if to == from {
		return nil, nil
	}
	b.removeLocked(from, id)
	b.buckets[to] = append(b.buckets[to], id)
	return &Commit{JourneyID: id, FromStage: from, ToStage: to}, nil
}

// MoveLeft and MoveRight step a card to the neighboring column in
// catalog order, the keyboard equivalent of a short drag. Movement
// clamps at the first and last column.
func (b *Board) MoveLeft(id string) (*Commit, error)  { return b.moveBy(id, -1) }
func (b *Board) MoveRight(id string) (*Commit, error) { return b.moveBy(id, 1) }

func (b *Board) moveBy(id string, delta int) (*Commit, error) {
	from, ok := b.StageOf(id)
	if !ok {
		return nil, ErrUnknownItem
	}
	idx := -1
	for i, s := range Stages {
		if s.ID == from {
			idx = i
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(Stages) {
		idx = len(Stages) - 1
	}
	return b.MoveToStage(id, Stages[idx].ID)
}

func (b *Board) removeLocked(stage int, id string) {
	ids := b.buckets[stage]
	if i := indexOf(ids, id); i >= 0 {
		b.buckets[stage] = append(ids[:i], ids[i+1:]...)
	}
}

func indexOf(ids []string, id string) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

func insertAt(ids []string, pos int, id string) []string {
	if pos < 0 || pos > len(ids) {
		return append(ids, id)
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}

// Rect is an axis-aligned droppable region in board coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point is the pointer position during a drag.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DropTarget pairs a droppable id (card id or column stage id encoded
// by the caller) with its rect.
type DropTarget struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
}

func (r Rect) contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func (r Rect) intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// ResolveDropTarget picks the droppable under a drag: targets
// containing the pointer win; if none do, fall back to targets
// intersecting the dragged card's rect. Ties go to the first target in
// order.
func ResolveDropTarget(pointer Point, active Rect, targets []DropTarget) (string, bool) {
	for _, t := range targets {
		if t.Rect.contains(pointer) {
			return t.ID, true
		}
	}
	for _, t := range targets {
		if t.Rect.intersects(active) {
			return t.ID, true
		}
	}
	return "", false
}
