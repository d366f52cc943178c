package device

import (
	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
)

// Program is a compiled program loaded onto a device: its reflected binding table and its backend
// pipeline.
type Program interface {
	dispatch.Program

	// Name returns the program key.
	//
	// Returns:
	//   - string: the program key
	Name() string

	// Source returns the compiled program the pipeline was built from.
	//
	// Returns:
	//   - shader.Program: the compiled program
	Source() shader.Program

	// Pipeline returns the backend pipeline object.
	//
	// Returns:
	//   - any: the backend pipeline
	Pipeline() any
}

type program struct {
	source   shader.Program
	table    *binding.Table
	groups   []binding.GroupLayout
	pipeline any
}

var _ Program = &program{}

func (p *program) Table() *binding.Table {
	return p.table
}

func (p *program) Groups() []binding.GroupLayout {
	return p.groups
}

func (p *program) Name() string {
	return p.source.Key()
}

func (p *program) Source() shader.Program {
	return p.source
}

func (p *program) Pipeline() any {
	return p.pipeline
}
