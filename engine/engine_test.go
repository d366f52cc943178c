package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/Carmen-Shannon/oxy-perf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-perf/engine/suite"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// caseMs is the software timeline time of one 1024x1024x1 dispatch in 256x1x1 groups.
const caseMs = 4.0965

type benchFixture struct {
	device    device.Device
	cases     []suite.Case
	programs  map[string]device.Program
	resources *suite.Resources
}

func newBenchFixture(t *testing.T, filter string, limit int) *benchFixture {
	t.Helper()

	d := device.NewDevice(device.BackendTypeSoftware)
	t.Cleanup(func() { _ = d.Close() })

	catalog, err := suite.NewCatalog(defaultGroupSize)
	require.NoError(t, err)
	cases := catalog.Select(filter, limit)
	require.NotEmpty(t, cases)

	programs, err := LoadPrograms(context.Background(), d, catalog, cases)
	require.NoError(t, err)
	resources, err := suite.NewResources(d)
	require.NoError(t, err)

	return &benchFixture{device: d, cases: cases, programs: programs, resources: resources}
}

type fakeWindow struct {
	polls     int
	closeAt   int
	onClose   func()
	closeCall int
}

func (w *fakeWindow) SetCloseCallback(callback func())           { w.onClose = callback }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool                            { return w.polls < w.closeAt }
func (w *fakeWindow) Close() error                               { w.closeCall++; return nil }
func (w *fakeWindow) Width() int                                 { return 1 }
func (w *fakeWindow) Height() int                                { return 1 }

func (w *fakeWindow) PollEvents() bool {
	w.polls++
	if w.polls == w.closeAt && w.onClose != nil {
		w.onClose()
	}
	return w.polls < w.closeAt
}

func TestEngine_RecordsBenchmarkFramesOnly(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer.Load", 3)
	e := NewEngine(f.device, WithFrames(2, 3))

	results, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	require.NoError(t, err)
	assert.Equal(t, 5, e.Frames())
	assert.Equal(t, uint64(5), f.device.Fence().Completed())

	rows := results.Rows()
	require.Len(t, rows, len(f.cases))
	for i, row := range rows {
		assert.Equal(t, uint32(i), row.ID)
		assert.Equal(t, f.cases[i].Name, row.Name)
		assert.Equal(t, 3, row.Samples, row.Name)
		assert.InDelta(t, caseMs, row.Average, 1e-9, row.Name)
		assert.InDelta(t, 3*caseMs, row.Total, 1e-9, row.Name)
		assert.InDelta(t, 0, row.StdDev, 1e-9, row.Name)
	}
}

func TestEngine_ZeroWarmup(t *testing.T) {
	f := newBenchFixture(t, "ConstantBuffer", 1)
	e := NewEngine(f.device, WithFrames(0, 1))

	results, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	require.NoError(t, err)
	rows := results.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Samples)
}

func TestEngine_Workload(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer.Load ", 1)
	e := NewEngine(f.device, WithFrames(0, 1), WithWorkload([3]uint32{2560, 1, 1}, [3]uint32{}))

	results, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	require.NoError(t, err)
	rows := results.Rows()
	require.Len(t, rows, 1)
	// 2560x1024x1 threads in 256x1x1 groups is 10240 groups
	assert.InDelta(t, 10.2405, rows[0].Total, 1e-9)
}

func TestEngine_ComparesToNamedCase(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer.Load", 2)
	e := NewEngine(f.device, WithFrames(0, 1), WithCompareTo(f.cases[1].Name))

	results, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	require.NoError(t, err)
	assert.Equal(t, f.cases[1].Name, results.CompareTo())
	for _, row := range results.Rows() {
		assert.InDelta(t, 1.0, row.Ratio, 1e-9)
	}
}

func TestEngine_WindowCloseStops(t *testing.T) {
	f := newBenchFixture(t, "StructuredBuffer", 1)
	w := &fakeWindow{closeAt: 3}
	e := NewEngine(f.device, WithFrames(1, 10), WithWindow(w))

	results, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 3, e.Frames())
	assert.Equal(t, 3, w.polls)

	rows := results.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Samples)
}

func TestEngine_Cancelled(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(f.device)
	results, err := e.Run(ctx, f.cases, f.programs, f.resources)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.Frames())
	assert.Equal(t, 0, results.Len())
}

func TestEngine_StopBeforeRun(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer", 1)
	e := NewEngine(f.device)
	e.Stop()
	e.Stop()

	_, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestEngine_MissingProgram(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer", 1)
	e := NewEngine(f.device)

	_, err := e.Run(context.Background(), f.cases, map[string]device.Program{}, f.resources)
	assert.ErrorContains(t, err, "is not loaded")

	_, err = e.Run(context.Background(), f.cases, f.programs, nil)
	assert.Error(t, err)
}

func TestEngine_FrameErrorAfterClose(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer", 1)
	e := NewEngine(f.device, WithFrames(0, 2))
	require.NoError(t, f.device.Close())

	_, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	assert.True(t, errors.Is(err, device.ErrDeviceClosed))
}

func TestEngine_Report(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer.Load", 2)

	var out strings.Builder
	report := suite.NewReport(&out, suite.HostInfo{CPU: "test"}, termenv.WithProfile(termenv.Ascii))
	e := NewEngine(f.device, WithFrames(2, 2), WithReport(report), WithProfiling(true))
	require.NotNil(t, e.FrameStats())

	_, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	require.NoError(t, err)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "..XX"), text)
	assert.Contains(t, text, "Performance compared to Buffer<RGBA8>.Load random")
	for _, c := range f.cases {
		assert.Contains(t, text, c.Name)
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	d := device.NewDevice(device.BackendTypeSoftware)
	defer d.Close()

	e := NewEngine(d, WithFrames(-1, 0), WithCompareTo("")).(*engine)
	assert.Equal(t, 0, e.warmupFrames)
	assert.Equal(t, defaultBenchmarkFrames, e.benchmarkFrames)
	assert.Equal(t, defaultCompareTo, e.compareTo)
	assert.Equal(t, defaultThreads, e.threads)
	assert.Equal(t, defaultGroupSize, e.groupSize)
	assert.Nil(t, e.FrameStats())

	assert.Panics(t, func() { NewEngine(nil) })
}

func TestEngine_FrameStats(t *testing.T) {
	f := newBenchFixture(t, "RawBuffer", 1)

	var tick time.Time
	clock := func() time.Time {
		tick = tick.Add(10 * time.Millisecond)
		return tick
	}
	stats := profiler.NewFrameStats(profiler.WithClock(clock), profiler.WithInterval(50*time.Millisecond))
	e := NewEngine(f.device, WithFrames(0, 6), WithFrameStats(stats))
	require.Same(t, stats, e.FrameStats())

	_, err := e.Run(context.Background(), f.cases, f.programs, f.resources)
	require.NoError(t, err)
	assert.Greater(t, stats.Last().FPS, 0.0)
}
