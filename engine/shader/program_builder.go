package shader

import "github.com/Carmen-Shannon/oxy-perf/engine/binding"

// ProgramBuilderOption configures a Program during NewProgram.
type ProgramBuilderOption func(*program)

// WithLayout replaces the layout derived from the WGSL declarations with an explicit one.
// The explicit layout must still reflect cleanly.
//
// Parameters:
//   - layout: the binding layout to use
//
// Returns:
//   - ProgramBuilderOption: the option
func WithLayout(layout binding.ProgramLayout) ProgramBuilderOption {
	return func(p *program) {
		p.layout = layout
		p.explicitLayout = true
	}
}
