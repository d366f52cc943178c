package device

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-perf/common"
	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// maxQueriesPerSet is the largest query set WebGPU allows.
	maxQueriesPerSet = 4096

	// wgpuTimestampFrequency is the WebGPU timestamp rate: timestamps are in nanoseconds.
	wgpuTimestampFrequency = 1_000_000_000
)

// wgpuTextureFormatMap maps resource formats to their WebGPU texture formats.
var wgpuTextureFormatMap = map[resource.Format]wgpu.TextureFormat{
	resource.FormatR8Unorm:     wgpu.TextureFormatR8Unorm,
	resource.FormatRG8Unorm:    wgpu.TextureFormatRG8Unorm,
	resource.FormatRGBA8Unorm:  wgpu.TextureFormatRGBA8Unorm,
	resource.FormatR16Float:    wgpu.TextureFormatR16Float,
	resource.FormatRG16Float:   wgpu.TextureFormatRG16Float,
	resource.FormatRGBA16Float: wgpu.TextureFormatRGBA16Float,
	resource.FormatR32Float:    wgpu.TextureFormatR32Float,
	resource.FormatRG32Float:   wgpu.TextureFormatRG32Float,
	resource.FormatRGBA32Float: wgpu.TextureFormatRGBA32Float,
	resource.FormatR32Uint:     wgpu.TextureFormatR32Uint,
	resource.FormatRGBA32Uint:  wgpu.TextureFormatRGBA32Uint,
}

// wgpuTextureDimensionMap maps resource texture dimensions to WebGPU texture dimensions.
var wgpuTextureDimensionMap = map[resource.TextureDimension]wgpu.TextureDimension{
	resource.TextureDimension1D: wgpu.TextureDimension1D,
	resource.TextureDimension2D: wgpu.TextureDimension2D,
	resource.TextureDimension3D: wgpu.TextureDimension3D,
}

type wgpuBackendConfig struct {
	heap                 dispatch.DescriptorHeap
	queries              uint32
	adapterIndex         int
	forceFallbackAdapter bool
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	surfaceWidth         int
	surfaceHeight        int
}

// wgpuPipeline is the backend pipeline object of a loaded program: one bind group layout per parameter.
type wgpuPipeline struct {
	label        string
	module       *wgpu.ShaderModule
	layout       *wgpu.PipelineLayout
	pipeline     *wgpu.ComputePipeline
	groupLayouts []*wgpu.BindGroupLayout
	entries      [][]wgpu.BindGroupLayoutEntry
}

type wgpuDeviceBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	info     AdapterInfo

	heap dispatch.DescriptorHeap

	// Timestamp state. Query sets hold at most maxQueriesPerSet queries each.
	queries        uint32
	querySets      []*wgpu.QuerySet
	resolveBuffer  *wgpu.Buffer
	readbackBuffer *wgpu.Buffer

	cmd       *wgpuCommandList
	signalled uint64
	completed uint64
}

var _ Backend = &wgpuDeviceBackendImpl{}

func newWGPUDeviceBackend(cfg wgpuBackendConfig) *wgpuDeviceBackendImpl {
	runtime.LockOSThread()
	b := &wgpuDeviceBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
		heap:     cfg.heap,
		queries:  cfg.queries,
	}
	if cfg.surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(cfg.surfaceDescriptor)
	}

	b.selectAdapter(cfg.adapterIndex, cfg.forceFallbackAdapter)

	features, err := timestampFeatures(b.info, b.adapter.EnumerateFeatures())
	if err != nil {
		panic(err)
	}

	d, err := b.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Perf Device",
		RequiredFeatures: features,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.createTimestampResources(); err != nil {
		panic(err)
	}
	if b.surface != nil {
		b.configureSurface(cfg.surfaceWidth, cfg.surfaceHeight)
	}
	return b
}

func (b *wgpuDeviceBackendImpl) selectAdapter(index int, forceFallback bool) {
	if forceFallback {
		a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			ForceFallbackAdapter: true,
			CompatibleSurface:    b.surface,
		})
		if err != nil {
			panic(err)
		}
		b.adapter = a
		b.info = wgpuAdapterInfo(0, a)
		return
	}

	adapters := b.instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			PowerPreference:   wgpu.PowerPreferenceHighPerformance,
			CompatibleSurface: b.surface,
		})
		if err != nil {
			panic(err)
		}
		b.adapter = a
		b.info = wgpuAdapterInfo(0, a)
		return
	}

	selected := clampAdapterIndex(index, len(adapters))
	if selected != index {
		log.Printf("[Device] Adapter index %d out of range, using %d", index, selected)
	}
	for i, a := range adapters {
		if i != selected {
			a.Release()
		}
	}
	b.adapter = adapters[selected]
	b.info = wgpuAdapterInfo(selected, b.adapter)
}

// timestampFeatures returns the device features region timing needs. Without timestamp queries every
// region would read 0, so an adapter lacking them is rejected.
func timestampFeatures(info AdapterInfo, supported []wgpu.FeatureName) ([]wgpu.FeatureName, error) {
	if !slices.Contains(supported, wgpu.FeatureNameTimestampQuery) {
		return nil, fmt.Errorf("%w: adapter %s", ErrNoTimestampQueries, info)
	}
	return []wgpu.FeatureName{wgpu.FeatureNameTimestampQuery}, nil
}

func (b *wgpuDeviceBackendImpl) createTimestampResources() error {
	var err error
	b.readbackBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamp Readback Buffer",
		Size:  uint64(b.queries) * 8,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	for first := uint32(0); first < b.queries; first += maxQueriesPerSet {
		set, err := b.device.CreateQuerySet(&wgpu.QuerySetDescriptor{
			Label: fmt.Sprintf("Timestamp Queries %d", first),
			Type:  wgpu.QueryTypeTimestamp,
			Count: min(b.queries-first, maxQueriesPerSet),
		})
		if err != nil {
			return err
		}
		b.querySets = append(b.querySets, set)
	}

	// Resolves land at offset 0, which satisfies the 256-byte resolve alignment, and are then copied
	// to their query index in the readback buffer.
	b.resolveBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamp Resolve Buffer",
		Size:  uint64(min(b.queries, maxQueriesPerSet)) * 8,
		Usage: wgpu.BufferUsageQueryResolve | wgpu.BufferUsageCopySrc,
	})
	return err
}

func (b *wgpuDeviceBackendImpl) configureSurface(width, height int) {
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      capabilities.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeImmediate,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuDeviceBackendImpl) Adapter() AdapterInfo {
	return b.info
}

func (b *wgpuDeviceBackendImpl) CreateBuffer(buf *resource.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.BufferUsageCopyDst
	if buf.Usage&resource.BufferUsageStorage != 0 {
		usage |= wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	}
	if buf.Usage&resource.BufferUsageConstant != 0 {
		usage |= wgpu.BufferUsageUniform
	}

	gb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: buf.Label,
		Size:  common.AlignUp(buf.Size, 4),
		Usage: usage,
	})
	if err != nil {
		return err
	}
	buf.Handle = gb
	return nil
}

func (b *wgpuDeviceBackendImpl) CreateTexture(t *resource.Texture) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	format, ok := wgpuTextureFormatMap[t.Format]
	if !ok {
		return fmt.Errorf("format %s has no WebGPU equivalent", t.Format)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     t.Label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpuTextureDimensionMap[t.Dimension],
		Size: wgpu.Extent3D{
			Width:              uint32(t.Width),
			Height:             uint32(t.Height),
			DepthOrArrayLayers: uint32(t.Depth),
		},
		Format:        format,
		MipLevelCount: uint32(t.MipLevels),
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	t.Handle = tex
	return nil
}

func (b *wgpuDeviceBackendImpl) WriteBuffer(buf *resource.Buffer, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	gb, ok := buf.Handle.(*wgpu.Buffer)
	if !ok {
		return fmt.Errorf("buffer %s was not created by this backend", buf.Label)
	}
	// Queue writes must be a multiple of 4 bytes.
	if pad := len(data) % 4; pad != 0 {
		data = append(slices.Clone(data), make([]byte, 4-pad)...)
	}
	if err := b.queue.WriteBuffer(gb, 0, data); err != nil {
		return fmt.Errorf("failed to write buffer %s: %w", buf.Label, err)
	}
	return nil
}

func (b *wgpuDeviceBackendImpl) WriteTexture(t *resource.Texture, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, ok := t.Handle.(*wgpu.Texture)
	if !ok {
		return fmt.Errorf("texture %s was not created by this backend", t.Label)
	}

	err := b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.Width * t.Format.BytesPerPixel()),
			RowsPerImage: uint32(t.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(t.Width),
			Height:             uint32(t.Height),
			DepthOrArrayLayers: uint32(t.Depth),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write texture %s: %w", t.Label, err)
	}
	return nil
}

func (b *wgpuDeviceBackendImpl) CreateView(v *resource.View) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validateView(v); err != nil {
		return err
	}

	if v.Buffer != nil {
		if v.Desc.Kind == resource.ViewKindTyped {
			return errors.New("WebGPU has no typed buffer views, use a 1D texture instead")
		}
		gb, ok := v.Buffer.Handle.(*wgpu.Buffer)
		if !ok {
			return fmt.Errorf("buffer %s was not created by this backend", v.Buffer.Label)
		}
		v.Handle = gb
		return nil
	}

	if v.Writable {
		return fmt.Errorf("texture %s: writable texture views are not supported", v.Texture.Label)
	}
	tex, ok := v.Texture.Handle.(*wgpu.Texture)
	if !ok {
		return fmt.Errorf("texture %s was not created by this backend", v.Texture.Label)
	}
	tv, err := tex.CreateView(nil)
	if err != nil {
		return err
	}
	v.Handle = tv
	return nil
}

func (b *wgpuDeviceBackendImpl) CreateSampler(s *resource.Sampler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	filter, mipFilter := wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest
	switch s.Filter {
	case resource.FilterNearest:
		filter = wgpu.FilterModeNearest
	case resource.FilterTrilinear:
		mipFilter = wgpu.MipmapFilterModeLinear
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         s.Filter.String() + " Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  mipFilter,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}
	s.Handle = samp
	return nil
}

func (b *wgpuDeviceBackendImpl) CreatePipeline(p shader.Program, groups []binding.GroupLayout) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	descriptors := p.BindGroupLayoutDescriptors()
	if len(descriptors) != len(groups) {
		return nil, fmt.Errorf("%d bind group layouts for %d parameters", len(descriptors), len(groups))
	}

	module, err := b.device.CreateShaderModule(p.Module())
	if err != nil {
		return nil, err
	}

	pl := &wgpuPipeline{
		label:        p.Key(),
		module:       module,
		groupLayouts: make([]*wgpu.BindGroupLayout, len(descriptors)),
		entries:      make([][]wgpu.BindGroupLayoutEntry, len(descriptors)),
	}
	for g := range descriptors {
		bgl, bglErr := b.device.CreateBindGroupLayout(&descriptors[g])
		if bglErr != nil {
			b.releasePipeline(pl)
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, bglErr)
		}
		pl.groupLayouts[g] = bgl
		pl.entries[g] = descriptors[g].Entries
	}

	pl.layout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key(),
		BindGroupLayouts: pl.groupLayouts,
	})
	if err != nil {
		b.releasePipeline(pl)
		return nil, err
	}

	pl.pipeline, err = b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.Key() + " Compute Pipeline",
		Layout: pl.layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: p.EntryPoint(),
		},
	})
	if err != nil {
		b.releasePipeline(pl)
		return nil, err
	}
	return pl, nil
}

func (b *wgpuDeviceBackendImpl) ReleasePipeline(pipeline any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pl, ok := pipeline.(*wgpuPipeline); ok {
		b.releasePipeline(pl)
	}
}

func (b *wgpuDeviceBackendImpl) releasePipeline(pl *wgpuPipeline) {
	if pl.pipeline != nil {
		pl.pipeline.Release()
	}
	if pl.layout != nil {
		pl.layout.Release()
	}
	for _, bgl := range pl.groupLayouts {
		if bgl != nil {
			bgl.Release()
		}
	}
	if pl.module != nil {
		pl.module.Release()
	}
}

func (b *wgpuDeviceBackendImpl) BeginCommandList() (CommandList, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cmd != nil {
		return nil, errors.New("previous command list not yet submitted")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	b.cmd = &wgpuCommandList{backend: b, encoder: encoder}
	return b.cmd, nil
}

func (b *wgpuDeviceBackendImpl) Submit(cmd CommandList) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := cmd.(*wgpuCommandList)
	if !ok || c != b.cmd {
		return fmt.Errorf("command list %T was not recorded by this backend", cmd)
	}
	b.cmd = nil
	defer c.release()

	c.endPass()
	if c.err != nil {
		return c.err
	}

	commandBuffer, err := c.encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuDeviceBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return nil
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
	})
	if err := pass.End(); err != nil {
		pass.Release()
		return err
	}
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

func (b *wgpuDeviceBackendImpl) Signal(value uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.signalled = value
}

// Wait blocks in Device.Poll until every submission has completed. WebGPU has no partial fence, so
// reaching any signalled value retires all work queued before it.
func (b *wgpuDeviceBackendImpl) Wait(value uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if value > b.signalled {
		panic(fmt.Errorf("fence wait for %d would never return: last signal was %d", value, b.signalled))
	}
	b.device.Poll(true, nil)
	b.completed = b.signalled
}

func (b *wgpuDeviceBackendImpl) Completed() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.completed
}

func (b *wgpuDeviceBackendImpl) MapTimestamps() ([]uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := uint64(b.queries) * 8
	done := false
	status := wgpu.BufferMapAsyncStatusSuccess
	err := b.readbackBuffer.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to map timestamp readback: %w", err)
	}
	for !done {
		b.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("failed to map timestamp readback: status %d", status)
	}

	data := slices.Clone(wgpu.FromBytes[uint64](b.readbackBuffer.GetMappedRange(0, uint(size))))
	if err := b.readbackBuffer.Unmap(); err != nil {
		return nil, fmt.Errorf("failed to unmap timestamp readback: %w", err)
	}
	return data, nil
}

// UnmapTimestamps is a no-op: MapTimestamps copies the readback and unmaps it before returning.
func (b *wgpuDeviceBackendImpl) UnmapTimestamps() {}

func (b *wgpuDeviceBackendImpl) TimestampFrequency() uint64 {
	return wgpuTimestampFrequency
}

func (b *wgpuDeviceBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cmd != nil {
		b.cmd.release()
		b.cmd = nil
	}
	for _, set := range b.querySets {
		set.Release()
	}
	b.querySets = nil
	if b.resolveBuffer != nil {
		b.resolveBuffer.Release()
	}
	if b.readbackBuffer != nil {
		b.readbackBuffer.Release()
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	if b.surface != nil {
		b.surface.Release()
	}
	b.instance.Release()
}

// wgpuCommandList records one frame into a command encoder. Descriptor tables are emulated: each
// SetTable builds a bind group from the descriptor heap range, with entry binding N taken from offset N.
type wgpuCommandList struct {
	backend    *wgpuDeviceBackendImpl
	encoder    *wgpu.CommandEncoder
	pass       *wgpu.ComputePassEncoder
	pipeline   *wgpuPipeline
	bindGroups []*wgpu.BindGroup
	err        error
}

var _ CommandList = &wgpuCommandList{}

func (c *wgpuCommandList) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *wgpuCommandList) beginPass() {
	if c.pass == nil {
		c.pass = c.encoder.BeginComputePass(nil)
	}
}

// endPass closes the open compute pass. WebGPU orders storage writes across pass boundaries, which
// makes this the barrier.
func (c *wgpuCommandList) endPass() {
	if c.pass != nil {
		if err := c.pass.End(); err != nil {
			c.fail(fmt.Errorf("failed to end compute pass: %w", err))
		}
		c.pass.Release()
		c.pass = nil
	}
}

func (c *wgpuCommandList) SetProgram(p dispatch.Program) {
	lp, ok := p.(Program)
	if !ok {
		c.fail(fmt.Errorf("program %T was not loaded by a device", p))
		return
	}
	pl, ok := lp.Pipeline().(*wgpuPipeline)
	if !ok {
		c.fail(fmt.Errorf("program %s was not loaded by this backend", lp.Name()))
		return
	}
	c.pipeline = pl
	c.beginPass()
	c.pass.SetPipeline(pl.pipeline)
}

func (c *wgpuCommandList) SetDirect(parameter int, d resource.Descriptor) {
	if c.pipeline == nil || parameter >= len(c.pipeline.entries) || len(c.pipeline.entries[parameter]) != 1 {
		c.fail(fmt.Errorf("parameter %d is not a direct parameter of the bound program", parameter))
		return
	}
	entry, err := bindGroupEntry(c.pipeline.entries[parameter][0].Binding, d)
	if err != nil {
		c.fail(fmt.Errorf("parameter %d: %w", parameter, err))
		return
	}
	c.bind(parameter, []wgpu.BindGroupEntry{entry})
}

func (c *wgpuCommandList) SetTable(parameter int, kind descriptor.Kind, base, count int) {
	if c.pipeline == nil || parameter >= len(c.pipeline.entries) {
		c.fail(fmt.Errorf("parameter %d is not a table of the bound program", parameter))
		return
	}
	descriptors := c.backend.heap.Range(kind, base, count)
	if descriptors == nil {
		c.fail(fmt.Errorf("parameter %d: %s range %d+%d is outside the descriptor heap", parameter, kind, base, count))
		return
	}

	layoutEntries := c.pipeline.entries[parameter]
	entries := make([]wgpu.BindGroupEntry, 0, len(layoutEntries))
	for _, le := range layoutEntries {
		if int(le.Binding) >= len(descriptors) {
			c.fail(fmt.Errorf("parameter %d: binding %d is outside its %d-descriptor table", parameter, le.Binding, count))
			return
		}
		entry, err := bindGroupEntry(le.Binding, descriptors[le.Binding])
		if err != nil {
			c.fail(fmt.Errorf("parameter %d: %w", parameter, err))
			return
		}
		entries = append(entries, entry)
	}
	c.bind(parameter, entries)
}

func (c *wgpuCommandList) bind(parameter int, entries []wgpu.BindGroupEntry) {
	bg, err := c.backend.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s group %d", c.pipeline.label, parameter),
		Layout:  c.pipeline.groupLayouts[parameter],
		Entries: entries,
	})
	if err != nil {
		c.fail(err)
		return
	}
	c.bindGroups = append(c.bindGroups, bg)
	c.beginPass()
	c.pass.SetBindGroup(uint32(parameter), bg, nil)
}

func (c *wgpuCommandList) Dispatch(groups [3]uint32) {
	if c.pass == nil || c.err != nil {
		return
	}
	c.pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
}

func (c *wgpuCommandList) Barrier([]*resource.View) {
	c.endPass()
}

func (c *wgpuCommandList) WriteTimestamp(index uint32) {
	c.endPass()
	sets := c.backend.querySets
	if int(index/maxQueriesPerSet) >= len(sets) {
		c.fail(fmt.Errorf("timestamp query %d is outside the %d query sets", index, len(sets)))
		return
	}
	if err := c.encoder.WriteTimestamp(sets[index/maxQueriesPerSet], index%maxQueriesPerSet); err != nil {
		c.fail(fmt.Errorf("failed to write timestamp %d: %w", index, err))
	}
}

func (c *wgpuCommandList) ResolveTimestamps(first, count uint32) {
	c.endPass()
	sets := c.backend.querySets

	for count > 0 {
		local := first % maxQueriesPerSet
		n := min(count, maxQueriesPerSet-local)
		if int(first/maxQueriesPerSet) >= len(sets) {
			c.fail(fmt.Errorf("timestamp queries %d+%d are outside the %d query sets", first, n, len(sets)))
			return
		}
		if err := c.encoder.ResolveQuerySet(sets[first/maxQueriesPerSet], local, n, c.backend.resolveBuffer, 0); err != nil {
			c.fail(fmt.Errorf("failed to resolve timestamps %d+%d: %w", first, n, err))
			return
		}
		if err := c.encoder.CopyBufferToBuffer(c.backend.resolveBuffer, 0, c.backend.readbackBuffer, uint64(first)*8, uint64(n)*8); err != nil {
			c.fail(fmt.Errorf("failed to copy timestamps %d+%d: %w", first, n, err))
			return
		}
		first += n
		count -= n
	}
}

func (c *wgpuCommandList) release() {
	c.endPass()
	for _, bg := range c.bindGroups {
		bg.Release()
	}
	c.bindGroups = nil
	c.encoder.Release()
}

// bindGroupEntry converts a descriptor into the bind group entry at binding.
func bindGroupEntry(binding uint32, d resource.Descriptor) (wgpu.BindGroupEntry, error) {
	entry := wgpu.BindGroupEntry{Binding: binding}
	switch {
	case d.Buffer != nil:
		gb, ok := d.Buffer.Handle.(*wgpu.Buffer)
		if !ok {
			return entry, fmt.Errorf("buffer %s was not created by this backend", d.Buffer.Label)
		}
		entry.Buffer = gb
		entry.Size = wgpu.WholeSize
	case d.View != nil && d.View.Buffer != nil:
		gb, ok := d.View.Handle.(*wgpu.Buffer)
		if !ok {
			return entry, fmt.Errorf("view of %s was not created by this backend", d.View.Label())
		}
		entry.Buffer = gb
		entry.Size = wgpu.WholeSize
	case d.View != nil:
		tv, ok := d.View.Handle.(*wgpu.TextureView)
		if !ok {
			return entry, fmt.Errorf("view of %s was not created by this backend", d.View.Label())
		}
		entry.TextureView = tv
	case d.Sampler != nil:
		samp, ok := d.Sampler.Handle.(*wgpu.Sampler)
		if !ok {
			return entry, fmt.Errorf("%s sampler was not created by this backend", d.Sampler.Filter)
		}
		entry.Sampler = samp
	default:
		return entry, fmt.Errorf("binding %d has no descriptor", binding)
	}
	return entry, nil
}
