package device

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
)

const (
	// defaultGroupCost is the software timeline's ticks per dispatched thread group.
	defaultGroupCost = 1000

	// dispatchOverhead is charged once per dispatch on top of its groups.
	dispatchOverhead = 500

	// softwareFrequency makes one software tick one nanosecond.
	softwareFrequency = 1_000_000_000
)

// CommandRecorder is implemented by backends that log the commands they execute.
type CommandRecorder interface {
	// Commands returns every command executed so far, in execution order.
	//
	// Returns:
	//   - []string: one line per command
	Commands() []string

	// Clock returns the current time of the simulated GPU timeline in ticks.
	//
	// Returns:
	//   - uint64: the timeline clock
	Clock() uint64
}

type softCommandKind int

const (
	softCommandInfo softCommandKind = iota
	softCommandDispatch
	softCommandTimestamp
	softCommandResolve
)

type softCommand struct {
	kind   softCommandKind
	text   string
	groups [3]uint32
	index  uint32
	count  uint32
}

// softSubmission is one queued unit of timeline work: a command list, or a fence signal when signal
// is non-zero.
type softSubmission struct {
	commands []softCommand
	signal   uint64
}

type softwareDeviceBackend struct {
	heap      dispatch.DescriptorHeap
	groupCost uint64

	clock      uint64
	timestamps []uint64
	readback   []uint64
	pending    []softSubmission
	completed  uint64
	executed   []string
	presents   int
}

var (
	_ Backend         = &softwareDeviceBackend{}
	_ CommandRecorder = &softwareDeviceBackend{}
)

func newSoftwareDeviceBackend(heap dispatch.DescriptorHeap, queries uint32, groupCost uint64) *softwareDeviceBackend {
	return &softwareDeviceBackend{
		heap:       heap,
		groupCost:  groupCost,
		timestamps: make([]uint64, queries),
		readback:   make([]uint64, queries),
	}
}

func (b *softwareDeviceBackend) Adapter() AdapterInfo {
	return softwareAdapter
}

func (b *softwareDeviceBackend) CreateBuffer(buf *resource.Buffer) error {
	buf.Handle = make([]byte, buf.Size)
	return nil
}

func (b *softwareDeviceBackend) CreateTexture(t *resource.Texture) error {
	t.Handle = make([]byte, t.Width*t.Height*t.Depth*t.Format.BytesPerPixel())
	return nil
}

func (b *softwareDeviceBackend) WriteBuffer(buf *resource.Buffer, data []byte) error {
	mem, ok := buf.Handle.([]byte)
	if !ok {
		return fmt.Errorf("buffer %s was not created by this backend", buf.Label)
	}
	copy(mem, data)
	return nil
}

func (b *softwareDeviceBackend) WriteTexture(t *resource.Texture, data []byte) error {
	mem, ok := t.Handle.([]byte)
	if !ok {
		return fmt.Errorf("texture %s was not created by this backend", t.Label)
	}
	copy(mem, data)
	return nil
}

func (b *softwareDeviceBackend) CreateView(v *resource.View) error {
	if err := validateView(v); err != nil {
		return err
	}
	v.Handle = v.Desc
	return nil
}

func (b *softwareDeviceBackend) CreateSampler(s *resource.Sampler) error {
	s.Handle = s.Filter
	return nil
}

func (b *softwareDeviceBackend) CreatePipeline(p shader.Program, groups []binding.GroupLayout) (any, error) {
	if len(groups) != len(p.Layout().Parameters) {
		return nil, fmt.Errorf("program %s: %d group layouts for %d parameters", p.Key(), len(groups), len(p.Layout().Parameters))
	}
	return p.Key(), nil
}

func (b *softwareDeviceBackend) ReleasePipeline(any) {}

func (b *softwareDeviceBackend) BeginCommandList() (CommandList, error) {
	return &softwareCommandList{heap: b.heap}, nil
}

func (b *softwareDeviceBackend) Submit(cmd CommandList) error {
	list, ok := cmd.(*softwareCommandList)
	if !ok {
		return fmt.Errorf("command list %T was not recorded by this backend", cmd)
	}
	if list.err != nil {
		return list.err
	}
	b.pending = append(b.pending, softSubmission{commands: list.commands})
	return nil
}

func (b *softwareDeviceBackend) Present() error {
	b.presents++
	return nil
}

func (b *softwareDeviceBackend) Signal(value uint64) {
	b.pending = append(b.pending, softSubmission{signal: value})
}

// Wait runs queued work on the simulated timeline until the fence reaches value. Work submitted after
// the signal stays queued.
func (b *softwareDeviceBackend) Wait(value uint64) {
	for b.completed < value {
		if len(b.pending) == 0 {
			panic(fmt.Errorf("fence wait for %d would never return: completed %d and no work queued", value, b.completed))
		}
		s := b.pending[0]
		b.pending = b.pending[1:]
		b.execute(s)
	}
}

func (b *softwareDeviceBackend) execute(s softSubmission) {
	if s.signal != 0 {
		b.completed = s.signal
		b.executed = append(b.executed, fmt.Sprintf("signal %d", s.signal))
		return
	}

	for _, c := range s.commands {
		switch c.kind {
		case softCommandDispatch:
			b.clock += dispatchOverhead + uint64(c.groups[0])*uint64(c.groups[1])*uint64(c.groups[2])*b.groupCost
		case softCommandTimestamp:
			b.timestamps[c.index] = b.clock
		case softCommandResolve:
			copy(b.readback[c.index:c.index+c.count], b.timestamps[c.index:c.index+c.count])
		}
		b.executed = append(b.executed, c.text)
	}
}

func (b *softwareDeviceBackend) Completed() uint64 {
	return b.completed
}

func (b *softwareDeviceBackend) MapTimestamps() ([]uint64, error) {
	return slices.Clone(b.readback), nil
}

func (b *softwareDeviceBackend) UnmapTimestamps() {}

func (b *softwareDeviceBackend) TimestampFrequency() uint64 {
	return softwareFrequency
}

func (b *softwareDeviceBackend) Release() {
	b.pending = nil
}

func (b *softwareDeviceBackend) Commands() []string {
	return slices.Clone(b.executed)
}

func (b *softwareDeviceBackend) Clock() uint64 {
	return b.clock
}

// validateView rejects views the backend-neutral model cannot describe.
func validateView(v *resource.View) error {
	switch {
	case v.Buffer != nil && v.Texture != nil, v.Buffer == nil && v.Texture == nil:
		return fmt.Errorf("a view needs exactly one buffer or texture")
	case v.Buffer != nil && v.Buffer.Usage&resource.BufferUsageStorage == 0:
		return fmt.Errorf("buffer %s is not a storage buffer", v.Buffer.Label)
	case v.Buffer != nil && v.Desc.Kind == resource.ViewKindGeneric:
		return fmt.Errorf("buffer %s needs a typed, raw or structured view", v.Buffer.Label)
	case v.Buffer != nil && v.Desc.Kind == resource.ViewKindTyped && v.Desc.Format.BytesPerPixel() == 0:
		return fmt.Errorf("typed view of %s needs a format", v.Buffer.Label)
	case v.Buffer != nil && v.Desc.Kind == resource.ViewKindStructured && v.Desc.Stride <= 0:
		return fmt.Errorf("structured view of %s needs a stride", v.Buffer.Label)
	case v.Texture != nil && v.Desc.Kind != resource.ViewKindGeneric:
		return fmt.Errorf("texture %s only supports generic views", v.Texture.Label)
	}
	return nil
}

type softwareCommandList struct {
	heap     dispatch.DescriptorHeap
	commands []softCommand
	err      error
}

var _ CommandList = &softwareCommandList{}

func (c *softwareCommandList) info(format string, args ...any) {
	c.commands = append(c.commands, softCommand{kind: softCommandInfo, text: fmt.Sprintf(format, args...)})
}

func (c *softwareCommandList) SetProgram(p dispatch.Program) {
	name := "?"
	if lp, ok := p.(Program); ok {
		name = lp.Name()
	}
	c.info("program %s", name)
}

func (c *softwareCommandList) SetDirect(parameter int, d resource.Descriptor) {
	c.info("direct %d %s", parameter, descriptorLabel(d))
}

func (c *softwareCommandList) SetTable(parameter int, kind descriptor.Kind, base, count int) {
	if c.heap.Range(kind, base, count) == nil && c.err == nil {
		c.err = fmt.Errorf("table %d: %s range %d+%d is outside the descriptor heap", parameter, kind, base, count)
	}
	c.info("table %d %s %d+%d", parameter, kind, base, count)
}

func (c *softwareCommandList) Dispatch(groups [3]uint32) {
	c.commands = append(c.commands, softCommand{kind: softCommandDispatch, text: fmt.Sprintf("dispatch %v", groups), groups: groups})
}

func (c *softwareCommandList) Barrier(views []*resource.View) {
	c.info("barrier %d", len(views))
}

func (c *softwareCommandList) WriteTimestamp(index uint32) {
	c.commands = append(c.commands, softCommand{kind: softCommandTimestamp, text: fmt.Sprintf("timestamp %d", index), index: index})
}

func (c *softwareCommandList) ResolveTimestamps(first, count uint32) {
	c.commands = append(c.commands, softCommand{kind: softCommandResolve, text: fmt.Sprintf("resolve %d+%d", first, count), index: first, count: count})
}

func descriptorLabel(d resource.Descriptor) string {
	switch {
	case d.Buffer != nil:
		return d.Buffer.Label
	case d.View != nil:
		return d.View.Label()
	case d.Sampler != nil:
		return d.Sampler.Filter.String()
	default:
		return "empty"
	}
}
