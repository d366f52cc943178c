// Package suite holds the load and sample microbenchmarks: the generated WGSL programs, the resources
// they read, and the statistics and report built from their timings.
package suite

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
)

// Family is the kind of memory access a case benchmarks.
type Family int

const (
	FamilyTyped Family = iota
	FamilyRaw
	FamilyStructured
	FamilyConstant
	FamilyTextureLoad
	FamilyTextureSample
)

func (f Family) String() string {
	switch f {
	case FamilyTyped:
		return "typed"
	case FamilyRaw:
		return "raw"
	case FamilyStructured:
		return "structured"
	case FamilyConstant:
		return "constant"
	case FamilyTextureLoad:
		return "texture load"
	case FamilyTextureSample:
		return "texture sample"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Pattern is how the threads of a group spread their addresses.
type Pattern int

const (
	// PatternInvariant has every thread read the same address.
	PatternInvariant Pattern = iota

	// PatternLinear offsets each thread by its group index so loads coalesce.
	PatternLinear

	// PatternRandom hashes the group index so neighbouring threads read scattered addresses.
	PatternRandom
)

// Patterns lists the access patterns in report order.
var Patterns = []Pattern{PatternInvariant, PatternLinear, PatternRandom}

func (p Pattern) String() string {
	switch p {
	case PatternInvariant:
		return "uniform"
	case PatternLinear:
		return "linear"
	case PatternRandom:
		return "random"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

func (p Pattern) programName() string {
	switch p {
	case PatternInvariant:
		return "Invariant"
	case PatternLinear:
		return "Linear"
	default:
		return "Random"
	}
}

// Case is one timed dispatch of the benchmark frame.
type Case struct {
	Name       string
	Program    string
	Family     Family
	Pattern    Pattern
	Components int
	Format     resource.Format
	Filter     resource.Filter
	Direct     bool
	Unaligned  bool
}

// ProgramSource is a generated WGSL program shared by one or more cases.
type ProgramSource struct {
	Key    string
	Source string
}

// Catalog is the full benchmark: its programs and its cases in frame order.
type Catalog struct {
	Programs []ProgramSource
	Cases    []Case
}

const (
	// elementCount is the element count of every benchmark input.
	elementCount = 1024

	// textureSize is the edge length of the benchmark textures.
	textureSize = 32

	// rawStride is the element stride of the raw input buffer.
	rawStride = 16

	// loadIterations is the number of loads each thread performs.
	loadIterations = 256
)

var programTemplate = template.Must(template.New("program").Parse(`
{{- if .ConstantArray -}}
struct LoadConstantsWithArray {
    elementsMask: u32,
    writeIndex: u32,
    readStartAddress: u32,
    padding: u32,
    benchmarkArray: array<vec4<f32>, {{.Elements}}>,
}
{{- else -}}
//@perf:include load_constants
{{- end}}
{{range .Declarations}}
{{- if .Direct}}//@perf:direct
{{end -}}
@group({{.Group}}) @binding({{.Binding}}) {{.Var}};
{{end -}}
//@perf:include load_output

const ITERATIONS: u32 = {{.Iterations}}u;

fn hash(x: u32) -> u32 {
    var h = (x ^ 61u) ^ (x >> 16u);
    h = h * 9u;
    h = h ^ (h >> 4u);
    h = h * 668265261u;
    return h ^ (h >> 15u);
}

@compute @workgroup_size({{index .GroupSize 0}}, {{index .GroupSize 1}}, {{index .GroupSize 2}})
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(local_invocation_index) gix: u32) {
    let start = {{.Start}};
    var value = vec4<f32>(0.0);
    for (var i = 0u; i < ITERATIONS; i = i + 1u) {
        let elem = ((start + i) | constants.elementsMask) & {{.Mask}}u;
{{- range .Prelude}}
        {{.}}
{{- end}}
        value = value + {{.Load}};
    }
    storeResult(gid.x, constants.writeIndex, value);
}
`))

type declaration struct {
	Direct  bool
	Group   int
	Binding int
	Var     string
}

type programData struct {
	ConstantArray bool
	Elements      int
	Declarations  []declaration
	Iterations    int
	GroupSize     [3]uint32
	Start         string
	Mask          int
	Prelude       []string
	Load          string
}

// programSpec describes one generated program before rendering.
type programSpec struct {
	family     Family
	pattern    Pattern
	components int
	direct     bool
}

func (s programSpec) key() string {
	var prefix string
	switch s.family {
	case FamilyTyped:
		prefix = "loadTyped"
	case FamilyRaw:
		prefix = "loadRaw"
	case FamilyStructured:
		prefix = "loadStructured"
	case FamilyConstant:
		prefix = "loadConstant"
	case FamilyTextureLoad:
		prefix = "loadTex"
	case FamilyTextureSample:
		prefix = "sampleTex"
	}
	key := fmt.Sprintf("%s%dd%s", prefix, s.components, s.pattern.programName())
	if s.direct {
		key += "Direct"
	}
	return key
}

// render builds the program's WGSL source.
func (s programSpec) render(groupSize [3]uint32) (string, error) {
	data := programData{
		ConstantArray: s.family == FamilyConstant,
		Elements:      elementCount,
		Iterations:    loadIterations,
		GroupSize:     groupSize,
		Mask:          elementCount - 1,
	}

	switch s.pattern {
	case PatternInvariant:
		data.Start = "0u"
	case PatternLinear:
		data.Start = "gix"
	case PatternRandom:
		data.Start = fmt.Sprintf("hash(gix) & %du", elementCount-1)
	}

	constants := "var<uniform> constants: LoadConstants"
	if data.ConstantArray {
		constants = "var<uniform> constants: LoadConstantsWithArray"
	}
	output := "var<storage, read_write> output: array<vec4<f32>>"

	var source string
	switch s.family {
	case FamilyTyped:
		source = "var source: texture_1d<f32>"
		data.Load = swizzle("textureLoad(source, i32(elem), 0)", s.components)
	case FamilyRaw:
		words := elementCount * rawStride / 4
		source = "var<storage, read> source: array<u32>"
		data.Prelude = []string{fmt.Sprintf("let w = (elem * %du + constants.readStartAddress) / 4u;", rawStride)}
		loads := make([]string, 4)
		for k := range loads {
			loads[k] = "0.0"
			if k < s.components {
				loads[k] = fmt.Sprintf("f32(source[(w + %du) & %du])", k, words-1)
			}
		}
		data.Load = "vec4<f32>(" + strings.Join(loads, ", ") + ")"
	case FamilyStructured:
		source = "var<storage, read> source: array<" + vectorType(s.components) + ">"
		if s.components == 1 {
			data.Load = "vec4<f32>(source[elem])"
		} else {
			data.Load = swizzle("source[elem]", s.components)
		}
	case FamilyConstant:
		data.Load = "constants.benchmarkArray[elem]"
	case FamilyTextureLoad:
		source = "var source: texture_2d<f32>"
		data.Prelude = []string{texelPrelude()}
		data.Load = swizzle("textureLoad(source, texel, 0)", s.components)
	case FamilyTextureSample:
		source = "var source: texture_2d<f32>"
		data.Prelude = []string{
			texelPrelude(),
			fmt.Sprintf("let uv = (vec2<f32>(texel) + vec2<f32>(0.5)) / %d.0;", textureSize),
		}
		data.Load = swizzle("textureSampleLevel(source, samp, uv, 0.0)", s.components)
	}

	// Tables put every resource in group 0. Direct programs give the constants and the source their
	// own single-entry groups.
	if s.direct {
		data.Declarations = append(data.Declarations, declaration{Direct: true, Group: 0, Var: constants})
		next := 1
		if source != "" {
			data.Declarations = append(data.Declarations, declaration{Direct: true, Group: 1, Var: source})
			next = 2
		}
		data.Declarations = append(data.Declarations, declaration{Group: next, Var: output})
	} else {
		data.Declarations = append(data.Declarations, declaration{Group: 0, Binding: 0, Var: constants})
		binding := 1
		if source != "" {
			data.Declarations = append(data.Declarations, declaration{Group: 0, Binding: 1, Var: source})
			binding = 2
		}
		data.Declarations = append(data.Declarations, declaration{Group: 0, Binding: binding, Var: output})
		if s.family == FamilyTextureSample {
			data.Declarations = append(data.Declarations, declaration{Group: 1, Binding: 0, Var: "var samp: sampler"})
		}
	}

	var buf bytes.Buffer
	if err := programTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render program %s: %w", s.key(), err)
	}
	return buf.String(), nil
}

func texelPrelude() string {
	return fmt.Sprintf("let texel = vec2<i32>(i32(elem & %du), i32(elem / %du));", textureSize-1, textureSize)
}

func vectorType(components int) string {
	if components == 1 {
		return "f32"
	}
	return fmt.Sprintf("vec%d<f32>", components)
}

// swizzle widens a vec4 load that only uses its first components back to a vec4.
func swizzle(expr string, components int) string {
	switch components {
	case 1:
		return "vec4<f32>(" + expr + ".x)"
	case 2:
		return expr + ".xyxy"
	case 3:
		return expr + ".xyzx"
	default:
		return expr
	}
}

// typedFormats are the formats of the typed and texture families, grouped by component count.
var typedFormats = [][]resource.Format{
	{resource.FormatR8Unorm, resource.FormatRG8Unorm, resource.FormatRGBA8Unorm},
	{resource.FormatR16Float, resource.FormatRG16Float, resource.FormatRGBA16Float},
	{resource.FormatR32Float, resource.FormatRG32Float, resource.FormatRGBA32Float},
}

// filterable reports whether a format may be sampled through a filtering sampler.
func filterable(f resource.Format) bool {
	switch f {
	case resource.FormatR32Float, resource.FormatRG32Float, resource.FormatRGBA32Float:
		return false
	default:
		return true
	}
}

// NewCatalog generates every benchmark program for the given thread group size and lists the cases
// in frame order.
//
// Parameters:
//   - groupSize: the @workgroup_size every program declares
//
// Returns:
//   - *Catalog: the catalog
//   - error: an error if a program template fails to render
func NewCatalog(groupSize [3]uint32) (*Catalog, error) {
	c := &Catalog{}
	rendered := make(map[string]bool)

	add := func(spec programSpec, cs Case) error {
		key := spec.key()
		if !rendered[key] {
			source, err := spec.render(groupSize)
			if err != nil {
				return err
			}
			c.Programs = append(c.Programs, ProgramSource{Key: key, Source: source})
			rendered[key] = true
		}
		cs.Program = key
		cs.Family = spec.family
		cs.Pattern = spec.pattern
		cs.Components = spec.components
		cs.Direct = spec.direct
		c.Cases = append(c.Cases, cs)
		return nil
	}

	for _, row := range typedFormats {
		for _, format := range row {
			for _, p := range Patterns {
				spec := programSpec{family: FamilyTyped, pattern: p, components: loadComponents(format)}
				name := fmt.Sprintf("Buffer<%s>.Load %s", format.ShortName(), p)
				if err := add(spec, Case{Name: name, Format: format}); err != nil {
					return nil, err
				}
			}
		}
	}

	rawVariants := []struct {
		label     string
		direct    bool
		unaligned bool
		widths    []int
	}{
		{"RawBuffer", false, false, []int{1, 2, 3, 4}},
		{"RawBuffer", false, true, []int{2, 4}},
		{"RawBufferDirect", true, false, []int{1, 2, 3, 4}},
	}
	for _, v := range rawVariants {
		for _, n := range v.widths {
			for _, p := range Patterns {
				method := "Load"
				if n > 1 {
					method = fmt.Sprintf("Load%d", n)
				}
				qualifier := ""
				if v.unaligned {
					qualifier = " unaligned"
				}
				name := fmt.Sprintf("%s.%s%s %s", v.label, method, qualifier, p)
				spec := programSpec{family: FamilyRaw, pattern: p, components: n, direct: v.direct}
				if err := add(spec, Case{Name: name, Unaligned: v.unaligned}); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, direct := range []bool{false, true} {
		label := "StructuredBuffer"
		if direct {
			label = "StructuredBufferDirect"
		}
		for _, n := range []int{1, 2, 4} {
			for _, p := range Patterns {
				name := fmt.Sprintf("%s<%s>.Load %s", label, vectorType(n), p)
				spec := programSpec{family: FamilyStructured, pattern: p, components: n, direct: direct}
				if err := add(spec, Case{Name: name}); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, direct := range []bool{false, true} {
		label := "ConstantBuffer"
		if direct {
			label = "ConstantBufferDirect"
		}
		for _, p := range Patterns {
			name := fmt.Sprintf("%s{vec4<f32>} load %s", label, p)
			spec := programSpec{family: FamilyConstant, pattern: p, components: 4, direct: direct}
			if err := add(spec, Case{Name: name}); err != nil {
				return nil, err
			}
		}
	}

	for _, row := range typedFormats {
		for _, format := range row {
			for _, p := range Patterns {
				spec := programSpec{family: FamilyTextureLoad, pattern: p, components: loadComponents(format)}
				name := fmt.Sprintf("Texture2D<%s>.Load %s", format.ShortName(), p)
				if err := add(spec, Case{Name: name, Format: format}); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, filter := range []resource.Filter{resource.FilterNearest, resource.FilterBilinear} {
		for _, row := range typedFormats {
			for _, format := range row {
				if !filterable(format) {
					continue
				}
				for _, p := range Patterns {
					spec := programSpec{family: FamilyTextureSample, pattern: p, components: loadComponents(format)}
					name := fmt.Sprintf("Texture2D<%s>.Sample(%s) %s", format.ShortName(), filter, p)
					if err := add(spec, Case{Name: name, Format: format, Filter: filter}); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return c, nil
}

// loadComponents maps a format to the component count its load program reads. Formats with one, two
// and four channels share the 1d, 2d and 4d programs.
func loadComponents(f resource.Format) int {
	return f.Components()
}

// Select returns the cases whose name contains filter, capped at limit. An empty filter selects
// every case.
//
// Parameters:
//   - filter: a case-sensitive name substring
//   - limit: the maximum number of cases, or 0 for no limit
//
// Returns:
//   - []Case: the selected cases in frame order
func (c *Catalog) Select(filter string, limit int) []Case {
	var selected []Case
	for _, cs := range c.Cases {
		if filter != "" && !strings.Contains(cs.Name, filter) {
			continue
		}
		if limit > 0 && len(selected) == limit {
			break
		}
		selected = append(selected, cs)
	}
	return selected
}

// Source returns the WGSL source of a program key.
//
// Parameters:
//   - key: the program key
//
// Returns:
//   - string: the source
//   - bool: false if the catalog has no such program
func (c *Catalog) Source(key string) (string, bool) {
	for _, p := range c.Programs {
		if p.Key == key {
			return p.Source, true
		}
	}
	return "", false
}
