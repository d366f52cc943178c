package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-perf/engine/config"
	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/Carmen-Shannon/oxy-perf/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-perf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-perf/engine/suite"
	"github.com/Carmen-Shannon/oxy-perf/engine/window"
)

const (
	defaultWarmupFrames    = 30
	defaultBenchmarkFrames = 30
	defaultCompareTo       = config.DefaultCompareTo
)

var (
	defaultThreads   = [3]uint32{1024, 1024, 1}
	defaultGroupSize = [3]uint32{256, 1, 1}
)

// ErrStopped is returned by Run when the run ends before every frame was recorded, either because
// Stop was called or the window closed.
var ErrStopped = errors.New("benchmark stopped early")

// Engine drives the benchmark frame loop on a device.
type Engine interface {
	// Run records warm-up and benchmark frames until both counts are reached. Every frame resolves
	// the previous frame's timings, then dispatches each case inside its own timing region and
	// presents. Timings of benchmark frames accumulate into the returned results.
	//
	// Parameters:
	//   - ctx: cancels the run between frames
	//   - cases: the cases in frame order, their region ids are their indices
	//   - programs: the loaded programs keyed by Case.Program
	//   - resources: the resources the cases read and write
	//
	// Returns:
	//   - *suite.Results: the accumulated timings, partial if the run stopped early
	//   - error: ErrStopped or ctx.Err() when the run ended early, or the first frame error
	Run(ctx context.Context, cases []suite.Case, programs map[string]device.Program, resources *suite.Resources) (*suite.Results, error)

	// Stop ends the run after the current frame. Safe to call from any goroutine and more than once.
	Stop()

	// Frames returns the number of frames presented by the last Run.
	//
	// Returns:
	//   - int: presented frames
	Frames() int

	// FrameStats returns the host frame statistics, or nil when profiling is disabled.
	//
	// Returns:
	//   - *profiler.FrameStats: the frame statistics tracker
	FrameStats() *profiler.FrameStats
}

type engine struct {
	device device.Device
	window window.Window
	report *suite.Report

	warmupFrames    int
	benchmarkFrames int
	threads         [3]uint32
	groupSize       [3]uint32
	compareTo       string

	profilingEnabled bool
	frameStats       *profiler.FrameStats

	mu          *sync.Mutex
	quitChannel chan struct{}
	quitOnce    *sync.Once
	frames      int
}

var _ Engine = &engine{}

// NewEngine creates the benchmark frame loop for a device.
// By default it runs 30 warm-up and 30 benchmark frames of 1024x1024x1 threads in 256x1x1 groups,
// compared against "Buffer<RGBA8>.Load random", with no window and no report output.
//
// Parameters:
//   - dev: the device the cases run on
//   - options: EngineBuilderOption functions to configure the engine
//
// Returns:
//   - Engine: the engine
func NewEngine(dev device.Device, options ...EngineBuilderOption) Engine {
	if dev == nil {
		panic(fmt.Errorf("engine needs a device"))
	}

	e := &engine{
		device:          dev,
		warmupFrames:    defaultWarmupFrames,
		benchmarkFrames: defaultBenchmarkFrames,
		threads:         defaultThreads,
		groupSize:       defaultGroupSize,
		compareTo:       defaultCompareTo,
		mu:              &sync.Mutex{},
		quitChannel:     make(chan struct{}),
		quitOnce:        &sync.Once{},
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profilingEnabled && e.frameStats == nil {
		e.frameStats = profiler.NewFrameStats()
	}
	if e.window != nil {
		e.window.SetCloseCallback(e.Stop)
	}
	return e
}

func (e *engine) Run(ctx context.Context, cases []suite.Case, programs map[string]device.Program, resources *suite.Resources) (*suite.Results, error) {
	work, err := e.prepare(cases, programs, resources)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.frames = 0
	e.mu.Unlock()

	results := suite.NewResults(e.compareTo)
	total := e.warmupFrames + e.benchmarkFrames
	start := time.Now()
	log.Printf("[Engine] Running %d cases for %d warm-up and %d benchmark frames", len(work), e.warmupFrames, e.benchmarkFrames)

	var runErr error
	for frame := 0; frame < total; frame++ {
		if err := e.interrupted(ctx); err != nil {
			runErr = err
			break
		}

		if frame > 0 {
			if err := e.resolve(results, frame-1); err != nil {
				return results, err
			}
		}

		if err := e.frame(work); err != nil {
			return results, fmt.Errorf("frame %d: %w", frame, err)
		}
		e.mu.Lock()
		e.frames++
		e.mu.Unlock()

		if e.report != nil {
			e.report.Progress(frame < e.warmupFrames)
		}

		if e.window != nil && !e.window.PollEvents() {
			e.Stop()
		}
	}

	if frames := e.Frames(); frames > 0 {
		if err := e.resolve(results, frames-1); err != nil {
			return results, err
		}
	}
	if runErr == nil && e.Frames() < total {
		runErr = ErrStopped
	}

	log.Printf("[Engine] Presented %d frames in %s, recorded %d cases", e.Frames(), time.Since(start).Round(time.Millisecond), results.Len())
	if e.report != nil && runErr == nil {
		e.report.Table(e.compareTo, results.Rows())
	}
	return results, runErr
}

type caseWork struct {
	id      uint32
	name    string
	program device.Program
	inputs  dispatch.Inputs
}

// prepare resolves every case's program and inputs once so the frame loop only records commands.
func (e *engine) prepare(cases []suite.Case, programs map[string]device.Program, resources *suite.Resources) ([]caseWork, error) {
	if resources == nil {
		return nil, fmt.Errorf("engine needs resources")
	}

	work := make([]caseWork, 0, len(cases))
	for id, c := range cases {
		p, ok := programs[c.Program]
		if !ok {
			return nil, fmt.Errorf("case %s: program %s is not loaded", c.Name, c.Program)
		}
		in, err := resources.Inputs(c)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		work = append(work, caseWork{id: uint32(id), name: c.Name, program: p, inputs: in})
	}
	return work, nil
}

// frame records and presents one frame of every case.
func (e *engine) frame(work []caseWork) error {
	if e.frameStats != nil {
		e.frameStats.BeginFrame()
		defer e.frameStats.EndFrame()
	}

	if err := e.device.BeginFrame(); err != nil {
		return err
	}
	for _, w := range work {
		h := e.device.StartRegion(w.id, w.name)
		if err := e.device.Dispatch(w.program, e.threads, e.groupSize, w.inputs); err != nil {
			return fmt.Errorf("dispatch %s: %w", w.name, err)
		}
		e.device.EndRegion(h)
	}
	return e.device.PresentFrame()
}

// resolve reads back the timings of the given frame, keeping them only once warm-up is over.
func (e *engine) resolve(results *suite.Results, frame int) error {
	fn := results.Record
	if frame < e.warmupFrames {
		fn = func(float64, uint32, string) {}
	}
	if err := e.device.ResolveAndReport(fn); err != nil {
		return fmt.Errorf("resolve frame %d: %w", frame, err)
	}
	return nil
}

func (e *engine) interrupted(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quitChannel:
		return ErrStopped
	default:
		return nil
	}
}

func (e *engine) Stop() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *engine) FrameStats() *profiler.FrameStats {
	return e.frameStats
}
