package shader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/cogentcore/webgpu/wgpu"
)

// program is the implementation of the Program interface.
type program struct {
	key                        string
	source                     string
	entryPoint                 string
	workgroupSize              [3]uint32
	layout                     binding.ProgramLayout
	explicitLayout             bool
	bindings                   []ResourceBinding
	bindGroupLayoutDescriptors []wgpu.BindGroupLayoutDescriptor
	declarations               []Annotation
}

// Program is a compiled compute program: its processed WGSL source, entry point, workgroup size and
// the binding layout the device reflects when the program is loaded. A Program is immutable.
type Program interface {
	// Key retrieves the unique identifier of the program.
	//
	// Returns:
	//   - string: the program key
	Key() string

	// Source retrieves the processed WGSL source handed to the backend.
	//
	// Returns:
	//   - string: the WGSL source code
	Source() string

	// EntryPoint returns the name of the compute entry point.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// WorkgroupSize returns the @workgroup_size of the entry point.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Layout returns the program's declared binding layout.
	//
	// Returns:
	//   - binding.ProgramLayout: the binding layout, one parameter per @group
	Layout() binding.ProgramLayout

	// Bindings returns every resource the program declares in (group, binding) order, with the
	// register each one was assigned.
	//
	// Returns:
	//   - []ResourceBinding: the declared resources
	Bindings() []ResourceBinding

	// BindGroupLayoutDescriptors returns one compute-visible bind group layout descriptor per parameter.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: descriptors indexed by parameter
	BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor

	// Module returns the shader module descriptor for the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the direct and register annotations found in the source.
	//
	// Returns:
	//   - []Annotation: the annotations in source order
	Declarations() []Annotation
}

var _ Program = &program{}

// NewProgram pre-processes, compiles and validates WGSL source and derives its binding layout.
//
// Parameters:
//   - key: a unique identifier for the program
//   - source: the raw WGSL source, which may contain @perf: annotations
//   - options: optional ProgramBuilderOption functions
//
// Returns:
//   - Program: the compiled program
//   - error: an error wrapping ErrInvalidProgram if the source or its layout is malformed
func NewProgram(key, source string, options ...ProgramBuilderOption) (Program, error) {
	p := &program{key: key}
	for _, opt := range options {
		opt(p)
	}

	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProgram, key, err)
	}
	p.source = processed
	p.declarations = slices.Clone(pp.Declarations())

	info, err := compileModule(processed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	p.entryPoint = info.entryPoint
	p.workgroupSize = info.workgroupSize
	if p.workgroupSize == [3]uint32{} {
		p.workgroupSize = parseWorkgroupSize(processed)
	}

	p.bindings = info.bindings
	derived, err := deriveLayout(p.bindings, p.declarations)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if !p.explicitLayout {
		p.layout = derived
	} else if len(p.layout.Parameters) != len(derived.Parameters) {
		return nil, fmt.Errorf("%w: %s: explicit layout has %d parameters, source declares %d groups",
			ErrInvalidProgram, key, len(p.layout.Parameters), len(derived.Parameters))
	}
	if _, _, err := binding.Reflect(p.layout); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProgram, key, err)
	}

	descs := parseBindGroupLayouts(processed, key)
	p.bindGroupLayoutDescriptors = make([]wgpu.BindGroupLayoutDescriptor, len(derived.Parameters))
	for g := range p.bindGroupLayoutDescriptors {
		p.bindGroupLayoutDescriptors[g] = descs[g]
	}

	return p, nil
}

func (p *program) Key() string {
	return p.key
}

func (p *program) Source() string {
	return p.source
}

func (p *program) EntryPoint() string {
	return p.entryPoint
}

func (p *program) WorkgroupSize() [3]uint32 {
	return p.workgroupSize
}

func (p *program) Layout() binding.ProgramLayout {
	return p.layout
}

func (p *program) Bindings() []ResourceBinding {
	return p.bindings
}

func (p *program) BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor {
	return p.bindGroupLayoutDescriptors
}

func (p *program) Module() *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: p.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.source,
		},
	}
}

func (p *program) Declarations() []Annotation {
	return p.declarations
}
