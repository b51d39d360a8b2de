package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardJourneys() []Journey {
	return []Journey{
		{ID: "a", Stage: StageLead},
		{ID: "b", Stage: StageLead},
		{ID: "c", Stage: StageQualified},
		{ID: "d", Stage: StageNegotiation},
	}
}

func allIDs(idx BucketIndex) map[string]int {
	seen := map[string]int{}
	for _, ids := range idx {
		for _, id := range ids {
			seen[id]++
		}
	}
	return seen
}

func TestDeriveBuckets(t *testing.T) {
	idx := DeriveBuckets(boardJourneys())
	assert.Len(t, idx, len(Stages))
	assert.Equal(t, []string{"a", "b"}, idx[StageLead])
	assert.Equal(t, []string{"c"}, idx[StageQualified])
	assert.Empty(t, idx[StageClosedWon])
}

func TestArrayMove(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, ArrayMove([]string{"a", "b", "c"}, 0, 1))
	assert.Equal(t, []string{"c", "a", "b"}, ArrayMove([]string{"a", "b", "c"}, 2, 0))
	// Out of range is a no-op.
	assert.Equal(t, []string{"a", "b"}, ArrayMove([]string{"a", "b"}, 0, 5))
}

func TestDragAcrossColumnsCommits(t *testing.T) {
	b := NewBoard(boardJourneys())
	require.NoError(t, b.DragStart("c"))
	require.NoError(t, b.DragOver(DropRef{ItemID: "d"}))

	// Optimistic: already in the negotiation column mid-drag.
	stage, ok := b.StageOf("c")
	require.True(t, ok)
	assert.Equal(t, StageNegotiation, stage)

	commit, err := b.DragEnd(DropRef{ItemID: "d"})
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, Commit{JourneyID: "c", FromStage: StageQualified, ToStage: StageNegotiation}, *commit)

	// The card stays in the target column no matter what the caller
	// does with the commit; every id lives in exactly one bucket.
	for id, n := range allIDs(b.Buckets()) {
		assert.Equal(t, 1, n, "id %s", id)
	}
	assert.Len(t, allIDs(b.Buckets()), 4)
}

func TestDragToEmptyColumn(t *testing.T) {
	b := NewBoard(boardJourneys())
	require.NoError(t, b.DragStart("a"))
	require.NoError(t, b.DragOver(DropRef{Stage: StageClosedWon}))
	commit, err := b.DragEnd(DropRef{Stage: StageClosedWon})
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, StageClosedWon, commit.ToStage)
	assert.Equal(t, []string{"a"}, b.Buckets()[StageClosedWon])
}

func TestDragSameColumnReordersWithoutCommit(t *testing.T) {
	b := NewBoard(boardJourneys())
	require.NoError(t, b.DragStart("a"))
	commit, err := b.DragEnd(DropRef{ItemID: "b"})
	require.NoError(t, err)
	assert.Nil(t, commit)
	assert.Equal(t, []string{"b", "a"}, b.Buckets()[StageLead])
}

func TestCancelDragRestoresOrigin(t *testing.T) {
	b := NewBoard(boardJourneys())
	require.NoError(t, b.DragStart("c"))
	require.NoError(t, b.DragOver(DropRef{Stage: StageClosedLost}))
	b.CancelDrag()
	stage, ok := b.StageOf("c")
	require.True(t, ok)
	assert.Equal(t, StageQualified, stage)
}

func TestDragStateMachineGuards(t *testing.T) {
	b := NewBoard(boardJourneys())
	_, err := b.DragEnd(DropRef{ItemID: "a"})
	assert.ErrorIs(t, err, ErrNoActiveDrag)

	assert.ErrorIs(t, b.DragStart("nope"), ErrUnknownItem)
	require.NoError(t, b.DragStart("a"))
	assert.ErrorIs(t, b.DragStart("b"), ErrDragInProgress)
}

func TestMoveToStageKeyboardPath(t *testing.T) {
	b := NewBoard(boardJourneys())
	commit, err := b.MoveToStage("a", StageNegotiation)
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, StageLead, commit.FromStage)

	commit, err = b.MoveToStage("a", StageNegotiation)
	require.NoError(t, err)
	assert.Nil(t, commit, "same-stage move is a no-op")
}

func TestMoveLeftRightClamp(t *testing.T) {
	b := NewBoard(boardJourneys())

	// "a" starts in Lead, the first column: left clamps to a no-op.
	commit, err := b.MoveLeft("a")
	require.NoError(t, err)
	assert.Nil(t, commit)

	commit, err = b.MoveRight("a")
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, StageQualified, commit.ToStage)

	commit, err = b.MoveLeft("a")
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, StageLead, commit.ToStage)
}

func TestResolveDropTarget(t *testing.T) {
	targets := []DropTarget{
		{ID: "col-1", Rect: Rect{X: 0, Y: 0, W: 100, H: 400}},
		{ID: "col-2", Rect: Rect{X: 110, Y: 0, W: 100, H: 400}},
	}

	// Pointer containment wins.
	id, ok := ResolveDropTarget(Point{X: 150, Y: 50}, Rect{}, targets)
	require.True(t, ok)
	assert.Equal(t, "col-2", id)

	// Pointer outside everything: fall back to rect intersection.
	id, ok = ResolveDropTarget(Point{X: 500, Y: 500}, Rect{X: 90, Y: 10, W: 40, H: 40}, targets)
	require.True(t, ok)
	assert.Equal(t, "col-1", id, "first intersecting target wins")

	_, ok = ResolveDropTarget(Point{X: 500, Y: 500}, Rect{X: 500, Y: 500, W: 10, H: 10}, targets)
	assert.False(t, ok)
}
