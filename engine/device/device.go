// Package device owns the GPU backend, the per-frame descriptor arenas, the timestamp profiler and the
// frame fence. A frame is BeginFrame, any number of timed dispatches, then PresentFrame, which blocks
// until the GPU has retired the frame.
package device

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-perf/common"
	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-perf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ConstantBufferAlignment is the size granularity of constant buffers.
const ConstantBufferAlignment = 256

var (
	// ErrDeviceClosed is returned by every operation on a closed device.
	ErrDeviceClosed = errors.New("device closed")

	// ErrNoFrame is returned when a frame operation runs outside BeginFrame/PresentFrame.
	ErrNoFrame = errors.New("no frame in flight")

	// ErrNoTimestampQueries is the panic value when the selected adapter cannot time regions.
	ErrNoTimestampQueries = errors.New("adapter does not support timestamp queries")
)

// Device records compute work into per-frame command lists and measures it with GPU timestamps.
// A Device is driven from one goroutine.
type Device interface {
	// Adapter reports the adapter the device opened.
	//
	// Returns:
	//   - AdapterInfo: the adapter description
	Adapter() AdapterInfo

	// BackendType returns the backend the device drives.
	//
	// Returns:
	//   - BackendType: the backend type
	BackendType() BackendType

	// Backend returns the backend the device drives.
	//
	// Returns:
	//   - Backend: the backend
	Backend() Backend

	// LoadProgram reflects a compiled program's layout and builds its pipeline.
	//
	// Parameters:
	//   - p: the compiled program
	//
	// Returns:
	//   - Program: the loaded program
	//   - error: an error wrapping binding.ErrInvalidLayout if the layout does not reflect, or a
	//     backend error if the pipeline cannot be built
	LoadProgram(p shader.Program) (Program, error)

	// CreateBuffer allocates a storage buffer of elements*stride bytes.
	//
	// Parameters:
	//   - label: a debug label
	//   - elements: the element count
	//   - stride: the element size in bytes
	//
	// Returns:
	//   - *resource.Buffer: the buffer
	//   - error: an error if allocation fails
	CreateBuffer(label string, elements, stride int) (*resource.Buffer, error)

	// CreateConstantBuffer allocates a constant buffer, rounding size up to ConstantBufferAlignment.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the minimum size in bytes
	//
	// Returns:
	//   - *resource.Buffer: the buffer
	//   - error: an error if allocation fails
	CreateConstantBuffer(label string, size int) (*resource.Buffer, error)

	// CreateTexture1D allocates a one-dimensional texture.
	//
	// Parameters:
	//   - label: a debug label
	//   - width: the width in texels
	//   - format: the texel format
	//
	// Returns:
	//   - *resource.Texture: the texture
	//   - error: an error if allocation fails
	CreateTexture1D(label string, width int, format resource.Format) (*resource.Texture, error)

	// CreateTexture2D allocates a two-dimensional texture.
	//
	// Parameters:
	//   - label: a debug label
	//   - width, height: the size in texels
	//   - format: the texel format
	//   - mips: the mip level count, at least 1
	//
	// Returns:
	//   - *resource.Texture: the texture
	//   - error: an error if allocation fails
	CreateTexture2D(label string, width, height int, format resource.Format, mips int) (*resource.Texture, error)

	// CreateTexture3D allocates a three-dimensional texture.
	//
	// Parameters:
	//   - label: a debug label
	//   - width, height, depth: the size in texels
	//   - format: the texel format
	//   - mips: the mip level count, at least 1
	//
	// Returns:
	//   - *resource.Texture: the texture
	//   - error: an error if allocation fails
	CreateTexture3D(label string, width, height, depth int, format resource.Format, mips int) (*resource.Texture, error)

	// WriteBuffer uploads data to the start of a buffer.
	//
	// Parameters:
	//   - b: the destination buffer
	//   - data: the bytes to upload, no larger than the buffer
	//
	// Returns:
	//   - error: an error if data does not fit or the upload fails
	WriteBuffer(b *resource.Buffer, data []byte) error

	// UpdateConstantBuffer uploads new contents to a constant buffer.
	//
	// Parameters:
	//   - b: a buffer created by CreateConstantBuffer
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: an error if b is not a constant buffer or data does not fit
	UpdateConstantBuffer(b *resource.Buffer, data []byte) error

	// WriteTexture uploads tightly packed texels to mip level 0.
	//
	// Parameters:
	//   - t: the destination texture
	//   - data: width*height*depth texels of t.Format
	//
	// Returns:
	//   - error: an error if data has the wrong size or the upload fails
	WriteTexture(t *resource.Texture, data []byte) error

	// CreateReadableView creates a read-only view over a buffer or texture.
	//
	// Parameters:
	//   - r: the buffer or texture
	//   - desc: how the view interprets r
	//
	// Returns:
	//   - *resource.View: the view
	//   - error: an error if the backend cannot express the view
	CreateReadableView(r resource.Viewable, desc resource.ViewDesc) (*resource.View, error)

	// CreateWritableView creates a read-write view over a buffer or texture.
	//
	// Parameters:
	//   - r: the buffer or texture
	//   - desc: how the view interprets r
	//
	// Returns:
	//   - *resource.View: the view
	//   - error: an error if the backend cannot express the view
	CreateWritableView(r resource.Viewable, desc resource.ViewDesc) (*resource.View, error)

	// CreateSampler creates a sampler with the given filter and repeat addressing.
	//
	// Parameters:
	//   - filter: the filter mode
	//
	// Returns:
	//   - *resource.Sampler: the sampler
	//   - error: an error if creation fails
	CreateSampler(filter resource.Filter) (*resource.Sampler, error)

	// BeginFrame opens a new command list and resets the descriptor arenas and the profiler frame.
	// The previous frame has already retired because PresentFrame waits for it.
	//
	// Returns:
	//   - error: ErrDeviceClosed, or an error if a frame is already open
	BeginFrame() error

	// Dispatch binds in to p's parameters and records a dispatch of ceil(threads/groupSize) groups.
	//
	// Parameters:
	//   - p: the program to run
	//   - threads: the total thread count per axis
	//   - groupSize: the thread group size per axis
	//   - in: the dispatch's resources, positionally indexed by register
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame
	Dispatch(p Program, threads, groupSize [3]uint32, in dispatch.Inputs) error

	// StartRegion records the start timestamp of a timing region. It panics outside a frame.
	//
	// Parameters:
	//   - id: the caller-defined region id
	//   - name: the region name
	//
	// Returns:
	//   - profiler.Handle: the handle passed to EndRegion
	StartRegion(id uint32, name string) profiler.Handle

	// EndRegion records the end timestamp of a timing region. It panics outside a frame.
	//
	// Parameters:
	//   - h: the handle returned by StartRegion
	EndRegion(h profiler.Handle)

	// PresentFrame resolves the frame's timestamps, submits the command list, presents the surface
	// and blocks until the GPU has retired the frame.
	//
	// Returns:
	//   - error: ErrNoFrame outside a frame, or a backend error
	PresentFrame() error

	// ResolveAndReport reports every region of the last presented frame. Call it after PresentFrame
	// and before the next BeginFrame.
	//
	// Parameters:
	//   - fn: called once per region in start order
	//
	// Returns:
	//   - error: an error if the timestamps cannot be read
	ResolveAndReport(fn profiler.ResultFunc) error

	// Fence returns the frame fence.
	//
	// Returns:
	//   - Fence: the fence
	Fence() Fence

	// Close waits for all submitted work, then releases programs and the backend. Close is idempotent.
	//
	// Returns:
	//   - error: always nil, present for io.Closer compatibility
	Close() error
}

type deviceImpl struct {
	mu *sync.Mutex

	backendType BackendType
	backend     Backend
	fence       Fence

	heap     dispatch.DescriptorHeap
	general  descriptor.Arena
	sampler  descriptor.Arena
	binder   dispatch.Binder
	profiler profiler.TimestampProfiler

	cmd      CommandList
	programs []*program
	nextID   int
	closed   bool

	// Pre-creation config collected from builder options
	adapterIndex         int
	forceFallbackAdapter bool
	generalCapacity      int
	samplerCapacity      int
	profilerCapacity     uint32
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	surfaceWidth         int
	surfaceHeight        int
	groupCost            uint64
}

var _ Device = &deviceImpl{}

// NewDevice opens a backend and wires the arenas, binder, profiler and fence around it.
// It panics if the backend cannot be opened.
//
// Parameters:
//   - backendType: the backend to open
//   - options: optional DeviceBuilderOption functions
//
// Returns:
//   - Device: the opened device
func NewDevice(backendType BackendType, options ...DeviceBuilderOption) Device {
	d := &deviceImpl{
		mu:               &sync.Mutex{},
		backendType:      backendType,
		generalCapacity:  descriptor.DefaultGeneralCapacity,
		samplerCapacity:  descriptor.DefaultSamplerCapacity,
		profilerCapacity: profiler.DefaultCapacity,
		groupCost:        defaultGroupCost,
	}

	// Apply options first so capacities and the adapter choice are known before the backend opens.
	for _, opt := range options {
		opt(d)
	}

	d.heap = dispatch.NewDescriptorHeap(d.generalCapacity, d.samplerCapacity)
	d.general = descriptor.NewArena(descriptor.KindGeneral, d.generalCapacity)
	d.sampler = descriptor.NewArena(descriptor.KindSampler, d.samplerCapacity)
	d.binder = dispatch.NewBinder(d.general, d.sampler, d.heap)
	d.profiler = profiler.NewTimestampProfiler(profiler.WithCapacity(d.profilerCapacity))

	queries := uint32(2 * d.profiler.Capacity())
	switch backendType {
	case BackendTypeSoftware:
		d.backend = newSoftwareDeviceBackend(d.heap, queries, d.groupCost)
	case BackendTypeWGPU:
		fallthrough
	default:
		d.backend = newWGPUDeviceBackend(wgpuBackendConfig{
			heap:                 d.heap,
			queries:              queries,
			adapterIndex:         d.adapterIndex,
			forceFallbackAdapter: d.forceFallbackAdapter,
			surfaceDescriptor:    d.surfaceDescriptor,
			surfaceWidth:         d.surfaceWidth,
			surfaceHeight:        d.surfaceHeight,
		})
	}
	d.fence = newFence(d.backend)

	log.Printf("[Device] Opened %s on %s", backendType, d.backend.Adapter().Name)
	return d
}

func (d *deviceImpl) Adapter() AdapterInfo {
	return d.backend.Adapter()
}

func (d *deviceImpl) BackendType() BackendType {
	return d.backendType
}

func (d *deviceImpl) Backend() Backend {
	return d.backend
}

func (d *deviceImpl) LoadProgram(p shader.Program) (Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}

	table, groups, err := binding.Reflect(p.Layout())
	if err != nil {
		return nil, fmt.Errorf("failed to reflect program %s: %w", p.Key(), err)
	}

	pipeline, err := d.backend.CreatePipeline(p, groups)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline for program %s: %w", p.Key(), err)
	}

	loaded := &program{
		source:   p,
		table:    table,
		groups:   groups,
		pipeline: pipeline,
	}
	d.programs = append(d.programs, loaded)
	return loaded, nil
}

func (d *deviceImpl) CreateBuffer(label string, elements, stride int) (*resource.Buffer, error) {
	if elements <= 0 || stride <= 0 {
		return nil, fmt.Errorf("buffer %s: invalid size %d x %d", label, elements, stride)
	}
	return d.createBuffer(&resource.Buffer{
		Label:        label,
		ElementCount: elements,
		Stride:       stride,
		Size:         uint64(elements) * uint64(stride),
		Usage:        resource.BufferUsageStorage,
	})
}

func (d *deviceImpl) CreateConstantBuffer(label string, size int) (*resource.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("constant buffer %s: invalid size %d", label, size)
	}
	return d.createBuffer(&resource.Buffer{
		Label:        label,
		ElementCount: 1,
		Stride:       size,
		Size:         common.AlignUp(uint64(size), ConstantBufferAlignment),
		Usage:        resource.BufferUsageConstant,
	})
}

func (d *deviceImpl) createBuffer(b *resource.Buffer) (*resource.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	b.ID = d.id()
	if err := d.backend.CreateBuffer(b); err != nil {
		return nil, fmt.Errorf("failed to create buffer %s: %w", b.Label, err)
	}
	return b, nil
}

func (d *deviceImpl) CreateTexture1D(label string, width int, format resource.Format) (*resource.Texture, error) {
	return d.createTexture(&resource.Texture{
		Label:     label,
		Dimension: resource.TextureDimension1D,
		Width:     width,
		Height:    1,
		Depth:     1,
		Format:    format,
		MipLevels: 1,
	})
}

func (d *deviceImpl) CreateTexture2D(label string, width, height int, format resource.Format, mips int) (*resource.Texture, error) {
	return d.createTexture(&resource.Texture{
		Label:     label,
		Dimension: resource.TextureDimension2D,
		Width:     width,
		Height:    height,
		Depth:     1,
		Format:    format,
		MipLevels: max(mips, 1),
	})
}

func (d *deviceImpl) CreateTexture3D(label string, width, height, depth int, format resource.Format, mips int) (*resource.Texture, error) {
	return d.createTexture(&resource.Texture{
		Label:     label,
		Dimension: resource.TextureDimension3D,
		Width:     width,
		Height:    height,
		Depth:     depth,
		Format:    format,
		MipLevels: max(mips, 1),
	})
}

func (d *deviceImpl) createTexture(t *resource.Texture) (*resource.Texture, error) {
	if t.Width <= 0 || t.Height <= 0 || t.Depth <= 0 {
		return nil, fmt.Errorf("texture %s: invalid size %dx%dx%d", t.Label, t.Width, t.Height, t.Depth)
	}
	if t.Format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("texture %s: unknown format %s", t.Label, t.Format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	t.ID = d.id()
	if err := d.backend.CreateTexture(t); err != nil {
		return nil, fmt.Errorf("failed to create texture %s: %w", t.Label, err)
	}
	return t, nil
}

func (d *deviceImpl) WriteBuffer(b *resource.Buffer, data []byte) error {
	if uint64(len(data)) > b.Size {
		return fmt.Errorf("buffer %s: %d bytes do not fit in %d", b.Label, len(data), b.Size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	return d.backend.WriteBuffer(b, data)
}

func (d *deviceImpl) UpdateConstantBuffer(b *resource.Buffer, data []byte) error {
	if b.Usage&resource.BufferUsageConstant == 0 {
		return fmt.Errorf("buffer %s is not a constant buffer", b.Label)
	}
	return d.WriteBuffer(b, data)
}

func (d *deviceImpl) WriteTexture(t *resource.Texture, data []byte) error {
	want := t.Width * t.Height * t.Depth * t.Format.BytesPerPixel()
	if len(data) != want {
		return fmt.Errorf("texture %s: got %d bytes, want %d", t.Label, len(data), want)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	return d.backend.WriteTexture(t, data)
}

func (d *deviceImpl) CreateReadableView(r resource.Viewable, desc resource.ViewDesc) (*resource.View, error) {
	return d.createView(resource.NewView(r, desc, false))
}

func (d *deviceImpl) CreateWritableView(r resource.Viewable, desc resource.ViewDesc) (*resource.View, error) {
	return d.createView(resource.NewView(r, desc, true))
}

func (d *deviceImpl) createView(v *resource.View) (*resource.View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	if err := d.backend.CreateView(v); err != nil {
		return nil, fmt.Errorf("failed to create %s view of %s: %w", v.Desc.Kind, v.Label(), err)
	}
	return v, nil
}

func (d *deviceImpl) CreateSampler(filter resource.Filter) (*resource.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	s := &resource.Sampler{ID: d.id(), Filter: filter}
	if err := d.backend.CreateSampler(s); err != nil {
		return nil, fmt.Errorf("failed to create %s sampler: %w", filter, err)
	}
	return s, nil
}

func (d *deviceImpl) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if d.cmd != nil {
		return errors.New("frame already in flight")
	}

	cmd, err := d.backend.BeginCommandList()
	if err != nil {
		return fmt.Errorf("failed to begin command list: %w", err)
	}
	d.cmd = cmd
	d.general.BeginFrame()
	d.sampler.BeginFrame()
	d.profiler.BeginFrame()
	return nil
}

func (d *deviceImpl) Dispatch(p Program, threads, groupSize [3]uint32, in dispatch.Inputs) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return ErrNoFrame
	}
	d.binder.Dispatch(d.cmd, p, threads, groupSize, in)
	return nil
}

func (d *deviceImpl) StartRegion(id uint32, name string) profiler.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		panic(fmt.Errorf("start region %s: %w", name, ErrNoFrame))
	}
	return d.profiler.StartRegion(d.cmd, id, name)
}

func (d *deviceImpl) EndRegion(h profiler.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		panic(fmt.Errorf("end region: %w", ErrNoFrame))
	}
	d.profiler.EndRegion(d.cmd, h)
}

func (d *deviceImpl) PresentFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return ErrNoFrame
	}

	d.profiler.EncodeResolve(d.cmd)
	cmd := d.cmd
	d.cmd = nil
	if err := d.backend.Submit(cmd); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	if err := d.backend.Present(); err != nil {
		return fmt.Errorf("failed to present frame: %w", err)
	}

	d.fence.Wait(d.fence.Signal())
	return nil
}

func (d *deviceImpl) ResolveAndReport(fn profiler.ResultFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	return d.profiler.Resolve(d.backend, fn)
}

func (d *deviceImpl) Fence() Fence {
	return d.fence
}

func (d *deviceImpl) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.cmd = nil

	d.fence.Wait(d.fence.Signal())
	for _, p := range d.programs {
		d.backend.ReleasePipeline(p.pipeline)
	}
	d.programs = nil
	d.backend.Release()

	log.Printf("[Device] Closed at fence value %d", d.fence.Value())
	return nil
}

// id returns the next resource id. Callers hold d.mu.
func (d *deviceImpl) id() int {
	d.nextID++
	return d.nextID
}
