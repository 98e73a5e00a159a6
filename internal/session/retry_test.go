package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryTrackerIncrResetRemove(t *testing.T) {
	tr := NewRetryTracker()

	assert.Equal(t, 0, tr.Count("tenant-a"))
	assert.False(t, tr.Has("tenant-a"))

	assert.Equal(t, 1, tr.Incr("tenant-a"))
	assert.Equal(t, 2, tr.Incr("tenant-a"))
	assert.Equal(t, 2, tr.Count("tenant-a"))
	assert.True(t, tr.Has("tenant-a"))

	_, ok := tr.LastAttempt("tenant-a")
	assert.True(t, ok)

	// reaching Open resets to zero but keeps the entry
	tr.Reset("tenant-a")
	assert.Equal(t, 0, tr.Count("tenant-a"))
	assert.True(t, tr.Has("tenant-a"))

	// budget exhaustion removes the entry entirely
	tr.Remove("tenant-a")
	assert.False(t, tr.Has("tenant-a"))
	assert.Equal(t, 0, tr.Count("tenant-a"))
}

func TestRetryTrackerIndependentIDs(t *testing.T) {
	tr := NewRetryTracker()
	tr.Incr("tenant-a")
	tr.Incr("tenant-a")
	tr.Incr("tenant-b")

	assert.Equal(t, 2, tr.Count("tenant-a"))
	assert.Equal(t, 1, tr.Count("tenant-b"))

	tr.Remove("tenant-a")
	assert.Equal(t, 1, tr.Count("tenant-b"))
}
