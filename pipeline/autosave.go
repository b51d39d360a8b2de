package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultAutosaveDelay is how long edits coalesce before one PATCH.
const DefaultAutosaveDelay = 1000 * time.Millisecond

// PatchFunc persists a batch of dotted-path changes and returns any
// server-recalculated fields to merge back.
type PatchFunc func(ctx context.Context, changes map[string]interface{}) (map[string]interface{}, error)

// ValidateFunc rejects a single field edit before it is applied.
type ValidateFunc func(path string, value interface{}) error

// Autosaver applies field edits optimistically and persists them in
// debounced batches. Edits during the window union into one PATCH,
// later values winning per path. Calculated fields returned by the
// backend are merged in and locked against further local edits.
type Autosaver struct {
	mu         sync.Mutex
	state      map[string]interface{}
	pending    map[string]interface{}
	calculated map[string]bool
	fieldErrs  map[string]string
	saveErr    error
	saving     bool

	task     *Task
	patch    PatchFunc
	validate ValidateFunc
}

func NewAutosaver(initial map[string]interface{}, delay time.Duration, patch PatchFunc, validate ValidateFunc) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	a := &Autosaver{
		state:      deepCopyMap(initial),
		pending:    map[string]interface{}{},
		calculated: map[string]bool{},
		fieldErrs:  map[string]string{},
		patch:      patch,
		validate:   validate,
	}
	a.task = NewTask(delay, a.save)
	return a
}

// SetField validates and applies one edit, then (re)schedules the
// save. Invalid values record a field error and neither apply nor
// save; edits to backend-calculated paths are rejected.
func (a *Autosaver) SetField(path string, value interface{}) error {
	a.mu.Lock()
	if a.calculated[path] {
		a.mu.Unlock()
		return fmt.Errorf("field %s is calculated and read-only", path)
	}
	if a.validate != nil {
		if err := a.validate(path, value); err != nil {
			a.fieldErrs[path] = err.Error()
			a.mu.Unlock()
			return err
		}
	}
	delete(a.fieldErrs, path)
	setPath(a.state, path, value)
	a.pending[path] = value
	a.mu.Unlock()

	a.task.Schedule()
	return nil
}

func (a *Autosaver) save() {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return
	}
	batch := a.pending
	a.pending = map[string]interface{}{}
	a.saving = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	calculated, err := a.patch(ctx, batch)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.saving = false
	if err != nil {
		// Local state keeps the optimistic values; the error is
		// surfaced, not rolled back.
		a.saveErr = err
		return
	}
	a.saveErr = nil
	for path, v := range calculated {
		setPath(a.state, path, v)
		a.calculated[path] = true
	}
}

// Flush forces a pending batch out immediately.
func (a *Autosaver) Flush() { a.task.Flush() }

// Close cancels any scheduled save; pending edits are dropped, not
// written. Callers that want the last batch persisted call Flush
// first.
func (a *Autosaver) Close() {
	a.task.Cancel()
	a.mu.Lock()
	a.pending = map[string]interface{}{}
	a.mu.Unlock()
}

// State returns a copy of the current optimistic document.
func (a *Autosaver) State() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return deepCopyMap(a.state)
}

// FieldError returns the validation message for a path, if any.
func (a *Autosaver) FieldError(path string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	msg, ok := a.fieldErrs[path]
	return msg, ok
}

// SaveError returns the last persist failure, cleared on success.
func (a *Autosaver) SaveError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveErr
}

// Saving reports whether a PATCH is in flight.
func (a *Autosaver) Saving() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saving
}

// setPath writes a value at a dotted path, creating intermediate maps.
func setPath(m map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		if i == len(parts)-1 {
			m[p] = value
			return
		}
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			m[p] = next
		}
		m = next
	}
}

// getPath reads a value at a dotted path.
func getPath(m map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		m, ok = v.(map[string]interface{})
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]interface{}); ok {
			out[k] = deepCopyMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}
