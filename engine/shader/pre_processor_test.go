package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("  //@perf:register 7", 4)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeRegister, a.Type)
	assert.Equal(t, 4, a.Line)
	require.NotNil(t, a.Register)
	assert.Equal(t, 7, *a.Register)

	a, err = parseAnnotation("// @perf:include load_constants", 1)
	require.NoError(t, err)
	assert.Equal(t, AnnotationArgLoadConstants, a.Arg)

	a, err = parseAnnotation("let x = 1; // plain comment", 1)
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation(`let s = "@perf:direct";`, 1)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestParseAnnotation_Malformed(t *testing.T) {
	for _, line := range []string{
		"//@perf:",
		"//@perf:unknown",
		"//@perf:include",
		"//@perf:include missing_struct",
		"//@perf:direct extra",
		"//@perf:register",
		"//@perf:register -1",
		"//@perf:register x",
	} {
		_, err := parseAnnotation(line, 9)
		assert.Error(t, err, line)
	}
}

func TestPreProcessor_AttachesDeclarations(t *testing.T) {
	src := `//@perf:direct
//@perf:register 2

@group(0) @binding(0) var<uniform> constants: vec4<f32>;
@group(1) @binding(3) var<storage, read> input: array<u32>;
`
	pp := NewPreProcessor()
	out, err := pp.Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	for _, d := range decls {
		require.NotNil(t, d.Group)
		require.NotNil(t, d.Binding)
		assert.Equal(t, 0, *d.Group)
		assert.Equal(t, 0, *d.Binding)
	}
	assert.Equal(t, AnnotationTypeDirect, decls[0].Type)
	assert.Equal(t, AnnotationTypeRegister, decls[1].Type)
}

func TestPreProcessor_Include(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@perf:include load_constants\nfn f() {}")
	require.NoError(t, err)
	assert.Equal(t, loadConstantsSource+"\nfn f() {}", out)
	assert.Empty(t, pp.Declarations())
}

func TestPreProcessor_AnnotationMustPrecedeBinding(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@perf:direct\nfn f() {}\n")
	assert.ErrorContains(t, err, "must precede a binding declaration")
}

func TestPreProcessor_ResetsBetweenCalls(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@perf:direct\n@group(0) @binding(0) var<uniform> c: vec4<f32>;")
	require.NoError(t, err)
	require.Len(t, pp.Declarations(), 1)

	_, err = pp.Process("@group(0) @binding(0) var<uniform> c: vec4<f32>;")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}
