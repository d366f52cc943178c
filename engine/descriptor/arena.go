// Package descriptor implements the per-frame bump allocators that hand out contiguous ranges of
// GPU-visible descriptor storage during dispatch binding.
package descriptor

import (
	"errors"
	"fmt"
)

// ErrArenaExhausted is the panic value wrapped when an allocation would overflow an arena's capacity.
var ErrArenaExhausted = errors.New("descriptor arena exhausted")

// Kind identifies which descriptor store an arena allocates from.
type Kind int

const (
	// KindGeneral is the store for constant-buffer, readable-view and writable-view descriptors.
	KindGeneral Kind = iota

	// KindSampler is the store for sampler descriptors.
	KindSampler
)

const (
	// DefaultGeneralCapacity is the number of general descriptors reserved per device.
	DefaultGeneralCapacity = 100_000

	// DefaultSamplerCapacity is the number of sampler descriptors reserved per device.
	DefaultSamplerCapacity = 1_000
)

func (k Kind) String() string {
	switch k {
	case KindGeneral:
		return "general"
	case KindSampler:
		return "sampler"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// arena is the implementation of the Arena interface.
type arena struct {
	kind     Kind
	capacity int
	cursor   int
}

// Arena is a bump allocator over a fixed-capacity descriptor store. The cursor is reset at the start of
// every frame and only ever moves forward within a frame; there is no partial reclamation.
//
// An Arena is not safe for concurrent use. All allocations happen on the recording goroutine.
type Arena interface {
	// BeginFrame resets the cursor to zero. Descriptors written during the previous frame stay resident
	// in the backing store but are logically invalid once a later allocation covers their offset.
	BeginFrame()

	// Allocate reserves count contiguous descriptors and returns the offset of the first one.
	// Allocate panics with an error wrapping ErrArenaExhausted when cursor+count exceeds the capacity,
	// and panics when count is not positive.
	//
	// Parameters:
	//   - count: the number of descriptors to reserve
	//
	// Returns:
	//   - int: the base offset of the reserved range
	Allocate(count int) int

	// Cursor returns the offset the next allocation will start at.
	//
	// Returns:
	//   - int: the current cursor
	Cursor() int

	// Capacity returns the total number of descriptors the arena can hand out per frame.
	//
	// Returns:
	//   - int: the arena capacity
	Capacity() int

	// Kind returns the descriptor kind this arena allocates.
	//
	// Returns:
	//   - Kind: the arena's descriptor kind
	Kind() Kind
}

var _ Arena = &arena{}

// NewArena creates a new Arena of the given kind and capacity.
// It panics when capacity is not positive since a zero-sized store can never serve a dispatch.
//
// Parameters:
//   - kind: the descriptor kind served by the arena
//   - capacity: the number of descriptors available per frame
//
// Returns:
//   - Arena: the newly created arena with its cursor at zero
func NewArena(kind Kind, capacity int) Arena {
	if capacity <= 0 {
		panic(fmt.Errorf("descriptor: %s arena capacity must be positive, got %d", kind, capacity))
	}
	return &arena{
		kind:     kind,
		capacity: capacity,
	}
}

func (a *arena) BeginFrame() {
	a.cursor = 0
}

func (a *arena) Allocate(count int) int {
	if count <= 0 {
		panic(fmt.Errorf("descriptor: %s arena allocation of %d descriptors", a.kind, count))
	}
	if a.cursor+count > a.capacity {
		panic(fmt.Errorf("%w: %s arena needs %d descriptors at cursor %d, capacity %d",
			ErrArenaExhausted, a.kind, count, a.cursor, a.capacity))
	}
	base := a.cursor
	a.cursor += count
	return base
}

func (a *arena) Cursor() int {
	return a.cursor
}

func (a *arena) Capacity() int {
	return a.capacity
}

func (a *arena) Kind() Kind {
	return a.kind
}
