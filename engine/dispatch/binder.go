package dispatch

import (
	"github.com/Carmen-Shannon/oxy-perf/common"
	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
)

// Binder resolves a dispatch's inputs against a program's binding table and records the commands
// needed to run it.
type Binder interface {
	// Bind writes every consumed input into freshly allocated descriptor ranges and records the
	// program, direct and table binds. Inputs the program does not consume are ignored.
	//
	// Parameters:
	//   - cmd: the command list to record into
	//   - p: the program being dispatched
	//   - in: the dispatch inputs
	//
	// Returns:
	//   - []*resource.View: the writable views that were bound
	Bind(cmd CommandList, p Program, in Inputs) []*resource.View

	// Dispatch binds the inputs, launches ceil(threads/groupSize) thread groups per axis and issues a
	// barrier scoped to the writable views that were bound.
	//
	// Parameters:
	//   - cmd: the command list to record into
	//   - p: the program being dispatched
	//   - threads: the total thread count per axis
	//   - groupSize: the program's thread group size per axis
	//   - in: the dispatch inputs
	Dispatch(cmd CommandList, p Program, threads, groupSize [3]uint32, in Inputs)
}

type binderImpl struct {
	general descriptor.Arena
	sampler descriptor.Arena
	store   DescriptorStore

	// per-dispatch scratch, reused across dispatches
	pending []pendingWrite
	directs []directBind
	bases   []int
}

type pendingWrite struct {
	binding binding.Binding
	desc    resource.Descriptor
}

type directBind struct {
	parameter int
	desc      resource.Descriptor
}

var _ Binder = &binderImpl{}

// NewBinder creates a Binder allocating group ranges from the given arenas and writing descriptors
// into store.
//
// Parameters:
//   - general: the arena for constant buffer and view descriptors
//   - sampler: the arena for sampler descriptors
//   - store: the descriptor store written before commands are recorded
//
// Returns:
//   - Binder: the binder
func NewBinder(general, sampler descriptor.Arena, store DescriptorStore) Binder {
	return &binderImpl{
		general: general,
		sampler: sampler,
		store:   store,
	}
}

func (b *binderImpl) Bind(cmd CommandList, p Program, in Inputs) []*resource.View {
	table := p.Table()
	groups := p.Groups()

	b.pending = b.pending[:0]
	b.directs = b.directs[:0]
	var writables []*resource.View

	classify := func(c binding.Category, register int, d resource.Descriptor) {
		loc, ok := table.Lookup(c, register)
		if !ok {
			return
		}
		if d.View != nil && c == binding.CategoryWritableView {
			writables = append(writables, d.View)
		}
		if loc.Direct {
			b.directs = append(b.directs, directBind{parameter: loc.Parameter, desc: d})
			return
		}
		b.pending = append(b.pending, pendingWrite{binding: loc, desc: d})
	}

	for reg, buf := range in.ConstantBuffers {
		if buf != nil {
			classify(binding.CategoryConstantBuffer, reg, resource.ConstantBufferDescriptor(buf))
		}
	}
	for reg, v := range in.ReadableViews {
		if v != nil {
			classify(binding.CategoryReadableView, reg, resource.Descriptor{Category: binding.CategoryReadableView, View: v})
		}
	}
	for reg, v := range in.WritableViews {
		if v != nil {
			classify(binding.CategoryWritableView, reg, resource.Descriptor{Category: binding.CategoryWritableView, View: v})
		}
	}
	for reg, s := range in.Samplers {
		if s != nil {
			classify(binding.CategorySampler, reg, resource.SamplerDescriptor(s))
		}
	}

	// -1 marks a group not touched by this dispatch
	b.bases = b.bases[:0]
	for range groups {
		b.bases = append(b.bases, -1)
	}

	for _, w := range b.pending {
		param := w.binding.Parameter
		g := groups[param]
		if b.bases[param] < 0 {
			b.bases[param] = b.arena(g.Kind).Allocate(g.Count)
		}
		b.store.Write(g.Kind, b.bases[param]+w.binding.Offset, w.desc)
	}

	cmd.SetProgram(p)
	for _, d := range b.directs {
		cmd.SetDirect(d.parameter, d.desc)
	}
	for param, base := range b.bases {
		if base < 0 {
			continue
		}
		g := groups[param]
		cmd.SetTable(param, g.Kind, base, g.Count)
	}

	return writables
}

func (b *binderImpl) Dispatch(cmd CommandList, p Program, threads, groupSize [3]uint32, in Inputs) {
	writables := b.Bind(cmd, p, in)
	cmd.Dispatch(common.GroupCount(threads, groupSize))
	if len(writables) > 0 {
		cmd.Barrier(writables)
	}
}

func (b *binderImpl) arena(kind descriptor.Kind) descriptor.Arena {
	if kind == descriptor.KindSampler {
		return b.sampler
	}
	return b.general
}
