package persist_test

import (
	"testing"
	"time"

	"ClassBoard/internal/persist"
	"ClassBoard/internal/persist/persisttest"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCoalesces(t *testing.T) {
	clock := persisttest.NewClock()
	fired := 0
	var firedAt time.Duration
	var elapsed time.Duration
	d := persist.NewDebouncer(5*time.Second, clock, func() { fired++ })

	for i := 0; i < 3; i++ {
		d.Schedule()
		clock.Advance(time.Second)
		elapsed += time.Second
	}
	assert.Zero(t, fired)
	assert.True(t, d.Pending())

	// last Schedule happened at t=2s; advance second by second to t=10s
	for elapsed < 10*time.Second {
		clock.Advance(time.Second)
		elapsed += time.Second
		if fired == 1 && firedAt == 0 {
			firedAt = elapsed
		}
	}
	assert.Equal(t, 1, fired)
	assert.Equal(t, 7*time.Second, firedAt)
	assert.False(t, d.Pending())
}

func TestDebouncerCancel(t *testing.T) {
	clock := persisttest.NewClock()
	fired := 0
	d := persist.NewDebouncer(5*time.Second, clock, func() { fired++ })

	assert.False(t, d.Cancel())
	d.Schedule()
	assert.True(t, d.Cancel())
	clock.Advance(time.Minute)
	assert.Zero(t, fired)
	assert.Zero(t, clock.Pending())
}

func TestDebouncerWithSystemClock(t *testing.T) {
	done := make(chan struct{})
	d := persist.NewDebouncer(10*time.Millisecond, nil, func() { close(done) })
	d.Schedule()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function never ran")
	}
}
