package profiler

import (
	"log"
	"runtime"
	"time"
)

// FrameStats tracks host-side frame rate, CPU frame time and Go memory statistics while a benchmark runs.
// It logs one summary line per interval and keeps the last summary for callers that report it elsewhere.
type FrameStats struct {
	frameCount     int
	lastTime       time.Time
	frameStart     time.Time
	cpuTime        time.Duration
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           FrameSummary
}

// FrameSummary is one interval's worth of frame statistics.
type FrameSummary struct {
	FPS          float64
	CPUFrameMs   float64
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	MaxGCPauseUs uint64
}

// FrameStatsOption configures a FrameStats.
type FrameStatsOption func(*FrameStats)

// WithInterval sets how often FrameStats logs a summary.
//
// Parameters:
//   - d: the logging interval, ignored if not positive
//
// Returns:
//   - FrameStatsOption: the option
func WithInterval(d time.Duration) FrameStatsOption {
	return func(f *FrameStats) {
		if d > 0 {
			f.updateInterval = d
		}
	}
}

// WithClock replaces the wall clock used to time frames.
//
// Parameters:
//   - now: the clock function
//
// Returns:
//   - FrameStatsOption: the option
func WithClock(now func() time.Time) FrameStatsOption {
	return func(f *FrameStats) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFrameStats creates a FrameStats that logs once per second by default.
//
// Parameters:
//   - options: optional FrameStatsOption functions
//
// Returns:
//   - *FrameStats: the frame statistics tracker
func NewFrameStats(options ...FrameStatsOption) *FrameStats {
	f := &FrameStats{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(f)
	}
	f.lastTime = f.now()
	return f
}

// BeginFrame marks the start of the CPU work for a frame.
func (f *FrameStats) BeginFrame() {
	f.frameStart = f.now()
}

// EndFrame marks the end of a frame's CPU work and logs a summary when the interval has elapsed.
//
// Returns:
//   - bool: true if a summary was logged by this call
func (f *FrameStats) EndFrame() bool {
	current := f.now()
	if !f.frameStart.IsZero() {
		f.cpuTime += current.Sub(f.frameStart)
		f.frameStart = time.Time{}
	}
	f.frameCount++

	elapsed := current.Sub(f.lastTime)
	if elapsed < f.updateInterval {
		return false
	}

	runtime.ReadMemStats(&f.memStats)
	summary := FrameSummary{
		FPS:        float64(f.frameCount) / elapsed.Seconds(),
		CPUFrameMs: float64(f.cpuTime.Microseconds()) / 1000 / float64(f.frameCount),
		HeapMB:     float64(f.memStats.Alloc) / 1024 / 1024,
		GCCount:    f.memStats.NumGC,
	}
	summary.AllocRateMB = float64(f.memStats.TotalAlloc-f.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses
	start := f.lastGCCount
	if summary.GCCount-start > 256 {
		start = summary.GCCount - 256
	}
	for i := start; i < summary.GCCount; i++ {
		summary.MaxGCPauseUs = max(summary.MaxGCPauseUs, f.memStats.PauseNs[i%256]/1000)
	}

	log.Printf("[Profiler] FPS: %.2f | CPU frame: %.3f ms | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max pause: %d µs)",
		summary.FPS, summary.CPUFrameMs, summary.HeapMB, summary.AllocRateMB, summary.GCCount, summary.MaxGCPauseUs)

	f.last = summary
	f.frameCount = 0
	f.cpuTime = 0
	f.lastTime = current
	f.lastGCCount = summary.GCCount
	f.lastTotalAlloc = f.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged summary.
func (f *FrameStats) Last() FrameSummary {
	return f.last
}
