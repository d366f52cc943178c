package shader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrInvalidProgram is wrapped by every error describing a program that cannot be loaded.
var ErrInvalidProgram = errors.New("invalid program")

// ResourceBinding is one resource a program declares, as found in its compiled module.
type ResourceBinding struct {
	Name     string
	Group    int
	Binding  int
	Category binding.Category
	Register int
}

// moduleInfo is what program loading needs from a compiled WGSL module.
type moduleInfo struct {
	entryPoint    string
	workgroupSize [3]uint32
	bindings      []ResourceBinding
}

// compileModule parses, lowers and validates WGSL source, then reads the compute entry point and
// every bound global variable from the resulting module.
func compileModule(source string) (*moduleInfo, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProgram, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProgram, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProgram, err)
	}
	if len(verrs) > 0 {
		errs := make([]error, 0, len(verrs))
		for _, v := range verrs {
			errs = append(errs, v)
		}
		return nil, fmt.Errorf("%w: validation failed: %w", ErrInvalidProgram, errors.Join(errs...))
	}

	info := &moduleInfo{}
	for _, ep := range module.EntryPoints {
		if ep.Stage == ir.StageCompute {
			info.entryPoint = ep.Name
			info.workgroupSize = ep.Workgroup
			break
		}
	}
	if info.entryPoint == "" {
		return nil, fmt.Errorf("%w: no compute entry point", ErrInvalidProgram)
	}

	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		c, err := categorize(module, gv)
		if err != nil {
			return nil, err
		}
		info.bindings = append(info.bindings, ResourceBinding{
			Name:     gv.Name,
			Group:    int(gv.Binding.Group),
			Binding:  int(gv.Binding.Binding),
			Category: c,
		})
	}

	sort.Slice(info.bindings, func(i, j int) bool {
		a, b := info.bindings[i], info.bindings[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Binding < b.Binding
	})
	return info, nil
}

// categorize maps a bound global variable onto a resource category from its address space,
// storage access and handle type.
func categorize(module *ir.Module, gv ir.GlobalVariable) (binding.Category, error) {
	switch gv.Space {
	case ir.SpaceUniform:
		return binding.CategoryConstantBuffer, nil
	case ir.SpaceStorage:
		if gv.Access == ir.StorageRead {
			return binding.CategoryReadableView, nil
		}
		return binding.CategoryWritableView, nil
	case ir.SpaceHandle:
		return categorizeHandle(module, gv.Type, gv.Name)
	default:
		return 0, fmt.Errorf("%w: %s is bound in an unsupported address space", ErrInvalidProgram, gv.Name)
	}
}

func categorizeHandle(module *ir.Module, th ir.TypeHandle, name string) (binding.Category, error) {
	if int(th) >= len(module.Types) {
		return 0, fmt.Errorf("%w: %s has an unknown type", ErrInvalidProgram, name)
	}

	switch t := module.Types[th].Inner.(type) {
	case ir.SamplerType:
		return binding.CategorySampler, nil
	case ir.ImageType:
		if t.Class == ir.ImageClassStorage && t.StorageAccess != ir.StorageAccessRead {
			return binding.CategoryWritableView, nil
		}
		return binding.CategoryReadableView, nil
	case ir.BindingArrayType:
		return categorizeHandle(module, t.Base, name)
	default:
		return 0, fmt.Errorf("%w: %s is not a texture or sampler", ErrInvalidProgram, name)
	}
}

// deriveLayout builds a program layout from reflected bindings: each @group becomes a parameter and
// each @binding its offset within the group. Registers default to per-category ordinals in
// (group, binding) order unless a register annotation overrides them, and a direct annotation turns
// a single-binding group into a direct parameter. The bindings slice is updated with the assigned
// registers.
func deriveLayout(bindings []ResourceBinding, declarations []Annotation) (binding.ProgramLayout, error) {
	if len(bindings) == 0 {
		return binding.ProgramLayout{}, fmt.Errorf("%w: program declares no resources", ErrInvalidProgram)
	}

	type key struct{ group, binding int }
	registers := make(map[key]int)
	direct := make(map[int]bool)
	for _, a := range declarations {
		k := key{*a.Group, *a.Binding}
		switch a.Type {
		case AnnotationTypeRegister:
			registers[k] = *a.Register
		case AnnotationTypeDirect:
			direct[k.group] = true
		}
	}

	var next [len(binding.Categories)]int
	groups := make(map[int][]ResourceBinding)
	maxGroup := 0
	for i := range bindings {
		b := &bindings[i]
		if reg, ok := registers[key{b.Group, b.Binding}]; ok {
			b.Register = reg
		} else {
			b.Register = next[b.Category]
			next[b.Category]++
		}
		groups[b.Group] = append(groups[b.Group], *b)
		maxGroup = max(maxGroup, b.Group)
	}

	layout := binding.ProgramLayout{Parameters: make([]binding.Parameter, 0, maxGroup+1)}
	for g := 0; g <= maxGroup; g++ {
		members, ok := groups[g]
		if !ok {
			return binding.ProgramLayout{}, fmt.Errorf("%w: @group(%d) is missing, groups must be contiguous from 0", ErrInvalidProgram, g)
		}

		if direct[g] {
			if len(members) != 1 || members[0].Category == binding.CategorySampler {
				return binding.ProgramLayout{}, fmt.Errorf("%w: direct @group(%d) must hold exactly one non-sampler binding", ErrInvalidProgram, g)
			}
			layout.Parameters = append(layout.Parameters, binding.Direct(members[0].Category, members[0].Register))
			continue
		}

		ranges := make([]binding.Range, 0, len(members))
		for _, m := range members {
			ranges = append(ranges, binding.Range{
				Category:     m.Category,
				BaseRegister: m.Register,
				Count:        1,
				Offset:       m.Binding,
			})
		}
		layout.Parameters = append(layout.Parameters, binding.Group(ranges...))
	}

	return layout, nil
}
