package engine

import (
	"testing"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
)

func TestThesisDebouncer(t *testing.T) {
	debouncer := NewThesisDebouncer(time.Minute * 2)
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	// Ensure the first direction is accepted immediately.
	assert.True(t, debouncer.Accept(shared.Long, start))
	assert.Equal(t, shared.Long, debouncer.Direction())

	// Ensure a flip inside the minimum interval is rejected and the prior direction
	// retained.
	assert.False(t, debouncer.Accept(shared.Short, start.Add(time.Second*60)))
	assert.Equal(t, shared.Long, debouncer.Direction())

	// Ensure the flip is accepted once the interval has elapsed.
	assert.True(t, debouncer.Accept(shared.Short, start.Add(time.Second*120)))
	assert.Equal(t, shared.Short, debouncer.Direction())

	// Ensure a fresh flip back is rejected against the new acceptance time.
	assert.False(t, debouncer.Accept(shared.Long, start.Add(time.Second*180)))
	assert.Equal(t, shared.Short, debouncer.Direction())
}

func TestThesisDebouncerReassert(t *testing.T) {
	debouncer := NewThesisDebouncer(time.Minute * 2)
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.True(t, debouncer.Accept(shared.Long, start))

	// Ensure re-asserting the active direction is accepted without resetting the
	// flip window.
	assert.True(t, debouncer.Accept(shared.Long, start.Add(time.Second*90)))
	assert.True(t, debouncer.Accept(shared.Short, start.Add(time.Second*120)))
}

func TestThesisDebouncerUnclear(t *testing.T) {
	debouncer := NewThesisDebouncer(time.Minute * 2)

	// Ensure an unclear direction is never accepted.
	assert.False(t, debouncer.Accept(shared.Unclear, time.Now()))
	assert.Equal(t, shared.Unclear, debouncer.Direction())
}
