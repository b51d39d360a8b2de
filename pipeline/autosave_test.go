package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patchRecorder struct {
	mu      sync.Mutex
	batches []map[string]interface{}
	reply   map[string]interface{}
	err     error
}

func (p *patchRecorder) patch(_ context.Context, changes map[string]interface{}) (map[string]interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, changes)
	return p.reply, p.err
}

func (p *patchRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func TestAutosaverBatchesRapidEdits(t *testing.T) {
	rec := &patchRecorder{}
	a := NewAutosaver(map[string]interface{}{}, 40*time.Millisecond, rec.patch, nil)

	// Five rapid edits, two to the same path: one PATCH, later value wins.
	require.NoError(t, a.SetField("name", "A"))
	require.NoError(t, a.SetField("value", 100))
	require.NoError(t, a.SetField("name", "B"))
	require.NoError(t, a.SetField("rsm", "JD"))
	require.NoError(t, a.SetField("priority", "High"))

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, map[string]interface{}{
		"name": "B", "value": 100, "rsm": "JD", "priority": "High",
	}, rec.batches[0])
}

func TestAutosaverOptimisticStateAndNestedPaths(t *testing.T) {
	rec := &patchRecorder{}
	a := NewAutosaver(map[string]interface{}{}, time.Hour, rec.patch, nil)

	require.NoError(t, a.SetField("contact.email", "x@y.com"))
	v, ok := getPath(a.State(), "contact.email")
	require.True(t, ok)
	assert.Equal(t, "x@y.com", v)
	assert.Equal(t, 0, rec.count(), "nothing persisted before the delay")
}

func TestAutosaverValidationBlocksSave(t *testing.T) {
	rec := &patchRecorder{}
	validate := func(path string, v interface{}) error {
		if path == "value" {
			if f, ok := v.(float64); !ok || f < 0 {
				return errors.New("value must be a non-negative number")
			}
		}
		return nil
	}
	a := NewAutosaver(map[string]interface{}{}, 20*time.Millisecond, rec.patch, validate)

	err := a.SetField("value", -5.0)
	require.Error(t, err)
	msg, ok := a.FieldError("value")
	assert.True(t, ok)
	assert.Contains(t, msg, "non-negative")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	// A good edit clears the field error.
	require.NoError(t, a.SetField("value", 10.0))
	_, ok = a.FieldError("value")
	assert.False(t, ok)
}

func TestAutosaverCalculatedFieldsMergeAndLock(t *testing.T) {
	rec := &patchRecorder{reply: map[string]interface{}{"weightedValue": 900.0}}
	a := NewAutosaver(map[string]interface{}{}, time.Hour, rec.patch, nil)

	require.NoError(t, a.SetField("value", 1000.0))
	a.Flush()

	v, ok := getPath(a.State(), "weightedValue")
	require.True(t, ok)
	assert.Equal(t, 900.0, v)

	err := a.SetField("weightedValue", 1.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calculated")
}

func TestAutosaverFailureKeepsOptimisticState(t *testing.T) {
	rec := &patchRecorder{err: fmt.Errorf("backend down")}
	a := NewAutosaver(map[string]interface{}{"name": "old"}, time.Hour, rec.patch, nil)

	require.NoError(t, a.SetField("name", "new"))
	a.Flush()

	// No rollback: local state keeps the edit, error is surfaced.
	v, _ := getPath(a.State(), "name")
	assert.Equal(t, "new", v)
	assert.EqualError(t, a.SaveError(), "backend down")
}

func TestAutosaverCloseCancelsPendingSave(t *testing.T) {
	rec := &patchRecorder{}
	a := NewAutosaver(map[string]interface{}{}, time.Hour, rec.patch, nil)
	require.NoError(t, a.SetField("name", "x"))
	a.Close()
	assert.Equal(t, 0, rec.count(), "closing must not emit a PATCH")

	// An explicit flush before closing still writes the batch.
	rec2 := &patchRecorder{}
	a2 := NewAutosaver(map[string]interface{}{}, time.Hour, rec2.patch, nil)
	require.NoError(t, a2.SetField("name", "y"))
	a2.Flush()
	a2.Close()
	assert.Equal(t, 1, rec2.count())
}
