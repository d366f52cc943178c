// Package dispatch binds a program's inputs for one dispatch: it allocates descriptor ranges from the
// frame arenas, writes descriptors, and records the bind, dispatch and barrier commands.
package dispatch

import (
	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
)

// Program is a loaded program as seen by the binder.
type Program interface {
	// Table returns the binding table produced by reflecting the program's layout.
	//
	// Returns:
	//   - *binding.Table: the binding table
	Table() *binding.Table

	// Groups returns one GroupLayout per top-level parameter.
	//
	// Returns:
	//   - []binding.GroupLayout: the per-parameter group sizes
	Groups() []binding.GroupLayout
}

// CommandList records GPU commands for the current frame.
type CommandList interface {
	// SetProgram makes p the active compute program.
	//
	// Parameters:
	//   - p: the program to bind
	SetProgram(p Program)

	// SetDirect binds a single resource straight into a parameter slot.
	//
	// Parameters:
	//   - parameter: the top-level parameter index
	//   - d: the descriptor to bind
	SetDirect(parameter int, d resource.Descriptor)

	// SetTable binds the descriptor range [base, base+count) of the given kind to a parameter.
	//
	// Parameters:
	//   - parameter: the top-level parameter index
	//   - kind: which descriptor store the range lives in
	//   - base: the first descriptor of the range
	//   - count: the number of descriptors in the range
	SetTable(parameter int, kind descriptor.Kind, base, count int)

	// Dispatch launches the active program over the given number of thread groups.
	//
	// Parameters:
	//   - groups: the thread group count per axis
	Dispatch(groups [3]uint32)

	// Barrier orders subsequent work after all writes to the given views.
	//
	// Parameters:
	//   - views: the writable views written by the preceding dispatch
	Barrier(views []*resource.View)
}

// DescriptorStore is the CPU-visible descriptor memory the binder writes into.
type DescriptorStore interface {
	// Write stores d at offset in the descriptor store of the given kind.
	//
	// Parameters:
	//   - kind: the descriptor store kind
	//   - offset: the absolute descriptor index
	//   - d: the descriptor to write
	Write(kind descriptor.Kind, offset int, d resource.Descriptor)
}

// Inputs are a dispatch's resources, positionally indexed by register within each category.
// Nil entries are skipped.
type Inputs struct {
	ConstantBuffers []*resource.Buffer
	ReadableViews   []*resource.View
	WritableViews   []*resource.View
	Samplers        []*resource.Sampler
}
