package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time { return c.t }

func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestFrameStatsLogsPerInterval(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	stats := NewFrameStats(WithInterval(100*time.Millisecond), WithClock(clock.now))

	logged := 0
	for range 10 {
		stats.BeginFrame()
		clock.advance(4 * time.Millisecond)
		if stats.EndFrame() {
			logged++
		}
		clock.advance(6 * time.Millisecond)
	}
	// frame 10 ends at 94ms, short of the interval
	assert.Zero(t, logged)

	stats.BeginFrame()
	clock.advance(4 * time.Millisecond)
	assert.True(t, stats.EndFrame())

	summary := stats.Last()
	assert.InDelta(t, 4.0, summary.CPUFrameMs, 1e-9)
	assert.InDelta(t, 11/0.104, summary.FPS, 1e-6)
}

func TestFrameStatsIgnoresNonPositiveInterval(t *testing.T) {
	stats := NewFrameStats(WithInterval(0))
	assert.Equal(t, time.Second, stats.updateInterval)
}
