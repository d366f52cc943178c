// pre_processor.go implements the perf WGSL pre-processor. It replaces include annotations with
// the registered struct sources and attaches direct and register annotations to the binding
// declaration that follows them, producing a declarations list consumed by layout derivation.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// loadConstantsSource is the uniform block every load benchmark reads its addressing constants from.
const loadConstantsSource = `struct LoadConstants {
    elementsMask: u32,
    writeIndex: u32,
    readStartAddress: u32,
    padding: u32,
}`

// loadOutputSource stores a benchmark's accumulated value so the loads cannot be optimized away.
// It expects an `output` storage array declared by the including shader.
const loadOutputSource = `fn storeResult(tid: u32, writeIndex: u32, value: vec4<f32>) {
    if (tid == writeIndex) {
        output[tid] = value;
    }
}`

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// structRegistry maps include argument keys to their WGSL source.
	structRegistry map[AnnotationArg]string

	// declarations accumulates direct and register annotations during a Process call.
	declarations []Annotation
}

// PreProcessor processes raw WGSL source containing @perf: annotations.
type PreProcessor interface {
	// Process replaces include annotations with their struct source and attaches direct and
	// register annotations to the next @group/@binding declaration. Annotation comment lines
	// other than includes are kept so line numbers stay stable.
	//
	// Parameters:
	//   - source: the raw WGSL source code
	//
	// Returns:
	//   - string: the processed WGSL source code
	//   - error: an error if an annotation is malformed or not followed by a binding declaration
	Process(source string) (string, error)

	// Declarations returns the direct and register annotations collected by the most recent
	// Process call, in source order, each carrying the group and binding it applies to.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the shared benchmark structs registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]string{
			AnnotationArgLoadConstants: loadConstantsSource,
			AnnotationArgLoadOutput:    loadOutputSource,
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	var pending []Annotation
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}

		if a != nil && a.Type == annotationTypeInclude {
			out = append(out, p.structRegistry[a.Arg])
			continue
		}
		out = append(out, line)

		if a != nil {
			pending = append(pending, *a)
			continue
		}
		if len(pending) == 0 {
			continue
		}

		match := bindGroupDeclRegex.FindStringSubmatch(stripComments(line))
		if match == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return "", fmt.Errorf("line %d: @perf %s annotation must precede a binding declaration", pending[0].Line, pending[0].Type)
		}
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		for _, ann := range pending {
			ann.Group = &group
			ann.Binding = &binding
			p.declarations = append(p.declarations, ann)
		}
		pending = pending[:0]
	}

	if len(pending) > 0 {
		return "", fmt.Errorf("line %d: @perf %s annotation must precede a binding declaration", pending[0].Line, pending[0].Type)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
