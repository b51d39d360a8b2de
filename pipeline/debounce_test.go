package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskCoalescesSchedules(t *testing.T) {
	var runs int32
	task := NewTask(30*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })

	for i := 0; i < 5; i++ {
		task.Schedule()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestTaskCancel(t *testing.T) {
	var runs int32
	task := NewTask(20*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })
	task.Schedule()
	task.Cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
	assert.False(t, task.Pending())
}

func TestTaskFlush(t *testing.T) {
	var runs int32
	task := NewTask(time.Hour, func() { atomic.AddInt32(&runs, 1) })

	task.Flush() // nothing pending
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))

	task.Schedule()
	assert.True(t, task.Pending())
	task.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.False(t, task.Pending())
}
