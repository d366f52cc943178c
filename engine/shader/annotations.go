// annotations.go defines the annotation types and parser for the perf WGSL pre-processor.
// Annotations are single-line WGSL comments prefixed with @perf: that inject shared struct
// definitions and adjust how a binding declaration maps onto the program's binding layout.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies a perf annotation within a WGSL comment line.
const annotationPrefix = "@perf:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition at the
	// annotation site.
	//
	// Syntax: //@perf:include <struct_type>
	//
	// Example: //@perf:include load_constants
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeDirect marks the group of the next binding declaration as a direct parameter.
	// The group must contain exactly one non-sampler binding.
	//
	// Syntax: //@perf:direct
	AnnotationTypeDirect AnnotationType = "direct"

	// AnnotationTypeRegister overrides the register of the next binding declaration. Without it,
	// registers are assigned per category in (group, binding) order.
	//
	// Syntax: //@perf:register <n>
	//
	// Example: //@perf:register 3
	AnnotationTypeRegister AnnotationType = "register"
)

// Annotation is a single parsed @perf: annotation. Direct and register annotations are attached
// to the binding declaration that follows them.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Arg holds the include struct key. Empty for other annotation types.
	Arg AnnotationArg

	// Line is the 1-based line number where the annotation was found.
	Line int

	// Register is the overriding register for register annotations.
	Register *int

	// Group and Binding locate the declaration the annotation applies to. Nil for include annotations.
	Group   *int
	Binding *int
}

// AnnotationArg is a typed string used as an include argument.
type AnnotationArg string

const (
	// AnnotationArgLoadConstants identifies the LoadConstants uniform struct shared by every
	// load benchmark.
	AnnotationArgLoadConstants AnnotationArg = "load_constants"

	// AnnotationArgLoadOutput identifies the output helper writing a benchmark's accumulated value.
	AnnotationArgLoadOutput AnnotationArg = "load_output"
)

// validStructTypes lists the AnnotationArg values accepted by include annotations.
var validStructTypes = []AnnotationArg{
	AnnotationArgLoadConstants,
	AnnotationArgLoadOutput,
}

// parseAnnotation attempts to parse a single line of WGSL source as a @perf: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @perf annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @perf include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @perf include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Arg:  AnnotationArg(args[1]),
			Line: lineNum,
		}, nil
	case AnnotationTypeDirect:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @perf direct annotation takes no arguments", lineNum)
		}
		return &Annotation{Type: AnnotationTypeDirect, Line: lineNum}, nil
	case AnnotationTypeRegister:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @perf register annotation requires exactly one argument", lineNum)
		}
		reg, err := strconv.Atoi(args[1])
		if err != nil || reg < 0 {
			return nil, fmt.Errorf("line %d: invalid register %q in @perf register annotation", lineNum, args[1])
		}
		return &Annotation{Type: AnnotationTypeRegister, Line: lineNum, Register: &reg}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @perf annotation type %q", lineNum, args[0])
	}
}
