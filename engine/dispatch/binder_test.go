package dispatch

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProgram struct {
	table  *binding.Table
	groups []binding.GroupLayout
}

func (p *testProgram) Table() *binding.Table         { return p.table }
func (p *testProgram) Groups() []binding.GroupLayout { return p.groups }

func newTestProgram(t *testing.T, params ...binding.Parameter) *testProgram {
	t.Helper()
	table, groups, err := binding.Reflect(binding.ProgramLayout{Parameters: params})
	require.NoError(t, err)
	return &testProgram{table: table, groups: groups}
}

type recordingList struct {
	log      []string
	directs  map[int]resource.Descriptor
	barriers [][]*resource.View
}

func (r *recordingList) SetProgram(Program) { r.log = append(r.log, "program") }

func (r *recordingList) SetDirect(parameter int, d resource.Descriptor) {
	if r.directs == nil {
		r.directs = map[int]resource.Descriptor{}
	}
	r.directs[parameter] = d
	r.log = append(r.log, fmt.Sprintf("direct %d", parameter))
}

func (r *recordingList) SetTable(parameter int, kind descriptor.Kind, base, count int) {
	r.log = append(r.log, fmt.Sprintf("table %d %s %d+%d", parameter, kind, base, count))
}

func (r *recordingList) Dispatch(groups [3]uint32) {
	r.log = append(r.log, fmt.Sprintf("dispatch %v", groups))
}

func (r *recordingList) Barrier(views []*resource.View) {
	r.barriers = append(r.barriers, views)
	r.log = append(r.log, fmt.Sprintf("barrier %d", len(views)))
}

func newTestBinder(general, sampler int) (Binder, DescriptorHeap, descriptor.Arena, descriptor.Arena) {
	g := descriptor.NewArena(descriptor.KindGeneral, general)
	s := descriptor.NewArena(descriptor.KindSampler, sampler)
	heap := NewDescriptorHeap(general, sampler)
	return NewBinder(g, s, heap), heap, g, s
}

func view(label string, writable bool) *resource.View {
	return &resource.View{Buffer: &resource.Buffer{Label: label}, Writable: writable}
}

func TestDispatchDirectConstantBufferAndGroup(t *testing.T) {
	p := newTestProgram(t,
		binding.Direct(binding.CategoryConstantBuffer, 0),
		binding.Group(
			binding.Range{Category: binding.CategoryReadableView, BaseRegister: 0, Count: 3, Offset: binding.Append},
			binding.Range{Category: binding.CategoryWritableView, BaseRegister: 0, Count: 1, Offset: binding.Append},
		),
	)
	b, heap, general, _ := newTestBinder(16, 4)
	general.Allocate(5)

	cb := &resource.Buffer{Label: "constants"}
	r0, r1, r2 := view("r0", false), view("r1", false), view("r2", false)
	out := view("out", true)

	cmd := &recordingList{}
	b.Dispatch(cmd, p, [3]uint32{1024, 1024, 1}, [3]uint32{256, 1, 1}, Inputs{
		ConstantBuffers: []*resource.Buffer{cb},
		ReadableViews:   []*resource.View{r0, r1, r2},
		WritableViews:   []*resource.View{out},
	})

	assert.Equal(t, []string{
		"program",
		"direct 0",
		"table 1 general 5+4",
		"dispatch [4 1024 1]",
		"barrier 1",
	}, cmd.log)
	assert.Same(t, cb, cmd.directs[0].Buffer)

	stored := heap.Range(descriptor.KindGeneral, 5, 4)
	require.Len(t, stored, 4)
	assert.Same(t, r0, stored[0].View)
	assert.Same(t, r1, stored[1].View)
	assert.Same(t, r2, stored[2].View)
	assert.Same(t, out, stored[3].View)
	assert.Equal(t, binding.CategoryWritableView, stored[3].Category)

	assert.Equal(t, []*resource.View{out}, cmd.barriers[0])
	assert.Equal(t, 9, general.Cursor())
}

func TestBindIgnoresUnconsumedRegisters(t *testing.T) {
	p := newTestProgram(t,
		binding.Group(binding.Range{Category: binding.CategoryReadableView, BaseRegister: 1, Count: 1, Offset: binding.Append}),
	)
	b, heap, general, _ := newTestBinder(8, 4)

	consumed := view("consumed", false)
	cmd := &recordingList{}
	writables := b.Bind(cmd, p, Inputs{
		ConstantBuffers: []*resource.Buffer{{Label: "unused"}},
		ReadableViews:   []*resource.View{view("skipped", false), consumed, view("extra", false)},
		WritableViews:   []*resource.View{view("unused", true)},
		Samplers:        []*resource.Sampler{{}},
	})

	assert.Empty(t, writables)
	assert.Equal(t, []string{"program", "table 0 general 0+1"}, cmd.log)
	assert.Same(t, consumed, heap.Range(descriptor.KindGeneral, 0, 1)[0].View)
	assert.Equal(t, 1, general.Cursor())
}

func TestDispatchWithoutWritablesSkipsBarrier(t *testing.T) {
	p := newTestProgram(t, binding.Direct(binding.CategoryReadableView, 0))
	b, _, general, _ := newTestBinder(8, 4)

	cmd := &recordingList{}
	b.Dispatch(cmd, p, [3]uint32{10, 1, 1}, [3]uint32{4, 1, 1}, Inputs{
		ReadableViews: []*resource.View{view("input", false)},
	})

	assert.Equal(t, []string{"program", "direct 0", "dispatch [3 1 1]"}, cmd.log)
	assert.Zero(t, general.Cursor())
}

func TestBindAllocatesOncePerTouchedGroup(t *testing.T) {
	p := newTestProgram(t,
		binding.Group(binding.Range{Category: binding.CategoryReadableView, Count: 2, Offset: binding.Append}),
		binding.Group(binding.Range{Category: binding.CategorySampler, Count: 2, Offset: binding.Append}),
		binding.Group(binding.Range{Category: binding.CategoryWritableView, Count: 1, Offset: binding.Append}),
	)
	b, heap, general, sampler := newTestBinder(8, 4)
	sampler.Allocate(1)

	s0, s1 := &resource.Sampler{ID: 1}, &resource.Sampler{ID: 2}
	cmd := &recordingList{}
	b.Bind(cmd, p, Inputs{
		ReadableViews: []*resource.View{view("a", false), view("b", false)},
		Samplers:      []*resource.Sampler{s0, s1},
	})

	assert.Equal(t, []string{
		"program",
		"table 0 general 0+2",
		"table 1 sampler 1+2",
	}, cmd.log)
	assert.Equal(t, 2, general.Cursor())
	assert.Equal(t, 3, sampler.Cursor())

	stored := heap.Range(descriptor.KindSampler, 1, 2)
	assert.Same(t, s0, stored[0].Sampler)
	assert.Same(t, s1, stored[1].Sampler)
}

func TestBindUsesGroupSizeForSparseInputs(t *testing.T) {
	p := newTestProgram(t,
		binding.Group(binding.Range{Category: binding.CategoryReadableView, Count: 4, Offset: binding.Append}),
	)
	b, _, general, _ := newTestBinder(8, 4)

	cmd := &recordingList{}
	b.Bind(cmd, p, Inputs{ReadableViews: []*resource.View{nil, nil, view("only", false)}})

	assert.Equal(t, []string{"program", "table 0 general 0+4"}, cmd.log)
	assert.Equal(t, 4, general.Cursor())
}

func TestBindPanicsWhenArenaExhausted(t *testing.T) {
	p := newTestProgram(t,
		binding.Group(binding.Range{Category: binding.CategoryReadableView, Count: 3, Offset: binding.Append}),
	)
	b, _, _, _ := newTestBinder(4, 1)
	in := Inputs{ReadableViews: []*resource.View{view("v", false)}}

	b.Bind(&recordingList{}, p, in)
	assert.Panics(t, func() { b.Bind(&recordingList{}, p, in) })
}

func TestDescriptorHeapRange(t *testing.T) {
	heap := NewDescriptorHeap(4, 2)

	assert.Equal(t, 4, heap.Capacity(descriptor.KindGeneral))
	assert.Equal(t, 2, heap.Capacity(descriptor.KindSampler))
	assert.Nil(t, heap.Range(descriptor.KindSampler, 1, 2))
	assert.Panics(t, func() { heap.Write(descriptor.KindGeneral, 4, resource.Descriptor{}) })
}
