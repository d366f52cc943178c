package binding

import "github.com/Carmen-Shannon/oxy-perf/engine/descriptor"

// Append is the Range offset meaning "continue after the previous range in the group".
const Append = -1

// ParameterKind distinguishes directly bound parameters from descriptor groups.
type ParameterKind int

const (
	// ParameterDirect binds a single resource straight into the parameter slot.
	ParameterDirect ParameterKind = iota

	// ParameterGroup binds a contiguous range of descriptors as one unit.
	ParameterGroup
)

func (k ParameterKind) String() string {
	switch k {
	case ParameterDirect:
		return "direct"
	case ParameterGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Range is one sub-range of a group parameter: Count consecutive registers of Category starting at
// BaseRegister, placed at Offset within the group or appended after the previous range.
type Range struct {
	Category     Category
	BaseRegister int
	Count        int
	Offset       int
}

// Parameter is one top-level entry of a program layout.
// Direct parameters use Category and Register; group parameters use Ranges.
type Parameter struct {
	Kind     ParameterKind
	Category Category
	Register int
	Ranges   []Range
}

// ProgramLayout is the declared binding layout of a compiled program, in parameter order.
type ProgramLayout struct {
	Parameters []Parameter
}

// Direct builds a direct parameter for the given category and register.
//
// Parameters:
//   - category: the resource category bound into the parameter
//   - register: the register the program reads the resource from
//
// Returns:
//   - Parameter: the direct parameter
func Direct(category Category, register int) Parameter {
	return Parameter{
		Kind:     ParameterDirect,
		Category: category,
		Register: register,
	}
}

// Group builds a group parameter from its ranges in declaration order.
//
// Parameters:
//   - ranges: the sub-ranges of the group
//
// Returns:
//   - Parameter: the group parameter
func Group(ranges ...Range) Parameter {
	return Parameter{
		Kind:   ParameterGroup,
		Ranges: ranges,
	}
}

// GroupLayout sizes the descriptor allocation made for a group parameter at dispatch time.
// Count is zero for direct parameters.
type GroupLayout struct {
	Parameter int
	Count     int
	Kind      descriptor.Kind
}

// IsGroup reports whether the entry describes a descriptor group.
func (g GroupLayout) IsGroup() bool {
	return g.Count > 0
}

// IsSampler reports whether the group holds sampler descriptors.
func (g GroupLayout) IsSampler() bool {
	return g.IsGroup() && g.Kind == descriptor.KindSampler
}
