package resilience_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/ambee/internal/provider/resilience"
)

func TestCycleBackoff(t *testing.T) {
	b := resilience.NewCycleBackoff(time.Second, 8*time.Second)

	assert.Equal(t, time.Second, b.Next(false))

	first := b.Next(true)
	assert.InDelta(t, float64(time.Second), float64(first), float64(150*time.Millisecond))

	var last time.Duration
	for i := 0; i < 10; i++ {
		last = b.Next(true)
	}
	assert.LessOrEqual(t, last, 8*time.Second+800*time.Millisecond)
	assert.Greater(t, last, 4*time.Second)

	assert.Equal(t, time.Second, b.Next(false), "a healthy cycle resets the delay")
}
