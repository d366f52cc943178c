package engine

import (
	"github.com/Carmen-Shannon/oxy-perf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-perf/engine/suite"
	"github.com/Carmen-Shannon/oxy-perf/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables host frame statistics logging.
//
// Parameters:
//   - enabled: if true, logs frame rate, CPU frame time and memory once per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithFrameStats enables profiling with a caller-configured frame statistics tracker.
//
// Parameters:
//   - f: the tracker, typically built with profiler.NewFrameStats
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameStats(f *profiler.FrameStats) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = f != nil
		e.frameStats = f
	}
}

// WithFrames sets the number of warm-up frames, whose timings are discarded, and benchmark frames,
// whose timings are recorded. Negative warm-up counts are treated as 0 and benchmark counts below 1
// keep the default of 30.
//
// Parameters:
//   - warmup: frames run before recording
//   - benchmark: frames recorded
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrames(warmup, benchmark int) EngineBuilderOption {
	return func(e *engine) {
		e.warmupFrames = max(warmup, 0)
		if benchmark > 0 {
			e.benchmarkFrames = benchmark
		}
	}
}

// WithWorkload sets the thread count of every dispatch and the thread group size it is divided by.
// Zero components keep their defaults.
//
// Parameters:
//   - threads: threads per dispatch (default 1024x1024x1)
//   - groupSize: threads per group (default 256x1x1)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorkload(threads, groupSize [3]uint32) EngineBuilderOption {
	return func(e *engine) {
		for i := range 3 {
			if threads[i] > 0 {
				e.threads[i] = threads[i]
			}
			if groupSize[i] > 0 {
				e.groupSize[i] = groupSize[i]
			}
		}
	}
}

// WithCompareTo sets the case every ratio is measured against.
//
// Parameters:
//   - name: the comparison case name, ignored if empty
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCompareTo(name string) EngineBuilderOption {
	return func(e *engine) {
		if name != "" {
			e.compareTo = name
		}
	}
}

// WithReport prints frame progress and the final table to a report.
//
// Parameters:
//   - r: the report to write to
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithReport(r *suite.Report) EngineBuilderOption {
	return func(e *engine) {
		e.report = r
	}
}

// WithWindow pumps a window once per frame. Closing the window stops the run.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}
