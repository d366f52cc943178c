package dispatch

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
)

// DescriptorHeap is a CPU-side DescriptorStore holding one fixed-size slice per descriptor kind.
// Backends read bound ranges back out of it when they materialize tables.
type DescriptorHeap interface {
	DescriptorStore

	// Range returns the descriptors in [base, base+count) of the given kind.
	// The returned slice aliases the heap and is only valid until the next write.
	//
	// Parameters:
	//   - kind: the descriptor store kind
	//   - base: the first descriptor of the range
	//   - count: the number of descriptors
	//
	// Returns:
	//   - []resource.Descriptor: the stored descriptors
	Range(kind descriptor.Kind, base, count int) []resource.Descriptor

	// Capacity returns the number of descriptor slots of the given kind.
	//
	// Parameters:
	//   - kind: the descriptor store kind
	//
	// Returns:
	//   - int: the slot count
	Capacity(kind descriptor.Kind) int
}

type descriptorHeapImpl struct {
	general []resource.Descriptor
	sampler []resource.Descriptor
}

var _ DescriptorHeap = &descriptorHeapImpl{}

// NewDescriptorHeap creates a DescriptorHeap sized to match the general and sampler arenas.
//
// Parameters:
//   - general: the number of general descriptor slots
//   - sampler: the number of sampler descriptor slots
//
// Returns:
//   - DescriptorHeap: the heap
func NewDescriptorHeap(general, sampler int) DescriptorHeap {
	return &descriptorHeapImpl{
		general: make([]resource.Descriptor, general),
		sampler: make([]resource.Descriptor, sampler),
	}
}

func (h *descriptorHeapImpl) Write(kind descriptor.Kind, offset int, d resource.Descriptor) {
	slots := h.slots(kind)
	if offset < 0 || offset >= len(slots) {
		panic(fmt.Errorf("%w: %s descriptor write at %d, capacity %d", descriptor.ErrArenaExhausted, kind, offset, len(slots)))
	}
	slots[offset] = d
}

func (h *descriptorHeapImpl) Range(kind descriptor.Kind, base, count int) []resource.Descriptor {
	slots := h.slots(kind)
	if base < 0 || count < 0 || base+count > len(slots) {
		return nil
	}
	return slots[base : base+count]
}

func (h *descriptorHeapImpl) Capacity(kind descriptor.Kind) int {
	return len(h.slots(kind))
}

func (h *descriptorHeapImpl) slots(kind descriptor.Kind) []resource.Descriptor {
	if kind == descriptor.KindSampler {
		return h.sampler
	}
	return h.general
}
