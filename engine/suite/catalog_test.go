package suite

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/Carmen-Shannon/oxy-perf/engine/config"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultGroupSize = [3]uint32{256, 1, 1}

func TestNewCatalog_CasesAreUnique(t *testing.T) {
	c, err := NewCatalog(defaultGroupSize)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, cs := range c.Cases {
		assert.False(t, names[cs.Name], "duplicate case %s", cs.Name)
		names[cs.Name] = true

		_, ok := c.Source(cs.Program)
		assert.True(t, ok, "case %s names missing program %s", cs.Name, cs.Program)
	}

	assert.True(t, names[config.DefaultCompareTo])
	assert.True(t, names["RawBuffer.Load2 unaligned random"])
	assert.True(t, names["RawBufferDirect.Load4 linear"])
	assert.True(t, names["StructuredBufferDirect<vec2<f32>>.Load uniform"])
	assert.True(t, names["ConstantBuffer{vec4<f32>} load random"])
	assert.True(t, names["Texture2D<RGBA16F>.Sample(bilinear) linear"])
	assert.False(t, names["Texture2D<R32F>.Sample(bilinear) linear"])
	assert.LessOrEqual(t, len(c.Cases), 200)
}

func TestNewCatalog_SharesPrograms(t *testing.T) {
	c, err := NewCatalog(defaultGroupSize)
	require.NoError(t, err)

	byName := make(map[string]Case)
	for _, cs := range c.Cases {
		byName[cs.Name] = cs
	}

	assert.Equal(t, "loadTyped1dRandom", byName["Buffer<R8>.Load random"].Program)
	assert.Equal(t, "loadTyped1dRandom", byName["Buffer<R32F>.Load random"].Program)
	assert.Equal(t, "loadRaw2dLinear", byName["RawBuffer.Load2 unaligned linear"].Program)
	assert.True(t, byName["RawBuffer.Load2 unaligned linear"].Unaligned)
	assert.Equal(t, "loadRaw3dInvariantDirect", byName["RawBufferDirect.Load3 uniform"].Program)
	assert.Equal(t, "sampleTex4dRandom", byName["Texture2D<RGBA8>.Sample(nearest) random"].Program)
	assert.Equal(t, resource.FilterNearest, byName["Texture2D<RGBA8>.Sample(nearest) random"].Filter)
}

func TestNewCatalog_ProgramsCompile(t *testing.T) {
	c, err := NewCatalog([3]uint32{64, 1, 1})
	require.NoError(t, err)

	for _, src := range c.Programs {
		t.Run(src.Key, func(t *testing.T) {
			p, err := shader.NewProgram(src.Key, src.Source)
			require.NoError(t, err, src.Source)
			assert.Equal(t, [3]uint32{64, 1, 1}, p.WorkgroupSize())

			_, _, err = binding.Reflect(p.Layout())
			require.NoError(t, err)
		})
	}
}

func TestNewCatalog_DirectLayouts(t *testing.T) {
	c, err := NewCatalog(defaultGroupSize)
	require.NoError(t, err)

	src, ok := c.Source("loadStructured4dLinearDirect")
	require.True(t, ok)
	p, err := shader.NewProgram("loadStructured4dLinearDirect", src)
	require.NoError(t, err)

	params := p.Layout().Parameters
	require.Len(t, params, 3)
	assert.Equal(t, binding.Direct(binding.CategoryConstantBuffer, 0), params[0])
	assert.Equal(t, binding.Direct(binding.CategoryReadableView, 0), params[1])
	assert.Equal(t, binding.ParameterGroup, params[2].Kind)

	src, ok = c.Source("sampleTex2dInvariant")
	require.True(t, ok)
	p, err = shader.NewProgram("sampleTex2dInvariant", src)
	require.NoError(t, err)
	require.Len(t, p.Layout().Parameters, 2)
	assert.Equal(t, binding.CategorySampler, p.Layout().Parameters[1].Ranges[0].Category)
}

func TestCatalog_Select(t *testing.T) {
	c, err := NewCatalog(defaultGroupSize)
	require.NoError(t, err)

	all := c.Select("", 0)
	assert.Len(t, all, len(c.Cases))

	textures := c.Select("Texture2D<", 0)
	require.NotEmpty(t, textures)
	for _, cs := range textures {
		assert.Contains(t, []Family{FamilyTextureLoad, FamilyTextureSample}, cs.Family)
	}

	limited := c.Select("random", 5)
	require.Len(t, limited, 5)
	assert.Equal(t, "Buffer<R8>.Load random", limited[0].Name)

	assert.Empty(t, c.Select("no such case", 0))
}

func TestPattern_String(t *testing.T) {
	assert.Equal(t, "uniform", PatternInvariant.String())
	assert.Equal(t, "linear", PatternLinear.String())
	assert.Equal(t, "random", PatternRandom.String())
	assert.Equal(t, "texture sample", FamilyTextureSample.String())
}
