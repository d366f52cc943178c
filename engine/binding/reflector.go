package binding

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
)

// ErrInvalidLayout is wrapped by every error describing a malformed program layout.
var ErrInvalidLayout = errors.New("invalid binding layout")

// Reflect walks a program layout in parameter order and builds its binding table together with the
// per-parameter group sizes used for descriptor allocation at dispatch time.
//
// Direct parameters map their single register to {Parameter: i, Direct: true}. Group parameters walk
// their ranges keeping a running offset: an explicit Offset resets it and Append continues it, and
// every register covered is assigned the next offset. A group containing any sampler range is a
// sampler group; mixing sampler and non-sampler ranges is rejected.
//
// Parameters:
//   - layout: the declared layout of a compiled program
//
// Returns:
//   - *Table: the binding table
//   - []GroupLayout: one entry per parameter, Count is zero for direct parameters
//   - error: an error wrapping ErrInvalidLayout if the layout is malformed
func Reflect(layout ProgramLayout) (*Table, []GroupLayout, error) {
	if len(layout.Parameters) == 0 {
		return nil, nil, fmt.Errorf("%w: layout declares no parameters", ErrInvalidLayout)
	}

	table := &Table{}
	groups := make([]GroupLayout, len(layout.Parameters))

	for i, p := range layout.Parameters {
		groups[i] = GroupLayout{Parameter: i, Kind: descriptor.KindGeneral}

		switch p.Kind {
		case ParameterDirect:
			if !p.Category.Valid() {
				return nil, nil, fmt.Errorf("%w: parameter %d has unknown category %d", ErrInvalidLayout, i, int(p.Category))
			}
			if p.Category == CategorySampler {
				return nil, nil, fmt.Errorf("%w: parameter %d binds a sampler directly", ErrInvalidLayout, i)
			}
			if err := table.set(p.Category, p.Register, Binding{Parameter: i, Direct: true}); err != nil {
				return nil, nil, fmt.Errorf("parameter %d: %w", i, err)
			}
		case ParameterGroup:
			count, kind, err := reflectGroup(table, i, p.Ranges)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %d: %w", i, err)
			}
			groups[i].Count = count
			groups[i].Kind = kind
		default:
			return nil, nil, fmt.Errorf("%w: parameter %d has unknown kind %d", ErrInvalidLayout, i, int(p.Kind))
		}
	}

	return table, groups, nil
}

// reflectGroup assigns group offsets to every register of a group parameter and returns the number of
// descriptors the group spans along with its descriptor kind.
func reflectGroup(table *Table, param int, ranges []Range) (int, descriptor.Kind, error) {
	if len(ranges) == 0 {
		return 0, 0, fmt.Errorf("%w: group declares no ranges", ErrInvalidLayout)
	}

	samplers, others := 0, 0
	for _, r := range ranges {
		if !r.Category.Valid() {
			return 0, 0, fmt.Errorf("%w: unknown category %d", ErrInvalidLayout, int(r.Category))
		}
		if r.Category == CategorySampler {
			samplers++
		} else {
			others++
		}
	}
	if samplers > 0 && others > 0 {
		return 0, 0, fmt.Errorf("%w: group mixes sampler and non-sampler ranges", ErrInvalidLayout)
	}
	kind := descriptor.KindGeneral
	if samplers > 0 {
		kind = descriptor.KindSampler
	}

	used := make(map[int]struct{})
	running, end := 0, 0
	for ri, r := range ranges {
		if r.Count <= 0 {
			return 0, 0, fmt.Errorf("%w: range %d declares %d descriptors", ErrInvalidLayout, ri, r.Count)
		}
		switch {
		case r.Offset == Append:
		case r.Offset >= 0:
			running = r.Offset
		default:
			return 0, 0, fmt.Errorf("%w: range %d has offset %d", ErrInvalidLayout, ri, r.Offset)
		}

		for k := range r.Count {
			if _, taken := used[running]; taken {
				return 0, 0, fmt.Errorf("%w: range %d overlaps group offset %d", ErrInvalidLayout, ri, running)
			}
			used[running] = struct{}{}

			b := Binding{Parameter: param, Offset: running}
			if err := table.set(r.Category, r.BaseRegister+k, b); err != nil {
				return 0, 0, err
			}
			running++
		}
		end = max(end, running)
	}

	return end, kind, nil
}
