package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyResource(t *testing.T) {
	e := classifyResource(2, wgpu.ShaderStageCompute, "storage, read", "array<u32>")
	assert.Equal(t, uint32(2), e.Binding)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, e.Buffer.Type)

	e = classifyResource(0, wgpu.ShaderStageCompute, "storage, read_write", "array<u32>")
	assert.Equal(t, wgpu.BufferBindingTypeStorage, e.Buffer.Type)

	e = classifyResource(0, wgpu.ShaderStageCompute, "", "texture_1d<u32>")
	assert.Equal(t, wgpu.TextureViewDimension1D, e.Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeUint, e.Texture.SampleType)

	e = classifyResource(0, wgpu.ShaderStageCompute, "", "texture_3d<f32>")
	assert.Equal(t, wgpu.TextureViewDimension3D, e.Texture.ViewDimension)

	e = classifyResource(0, wgpu.ShaderStageCompute, "", "texture_storage_2d<rgba8unorm, write>")
	assert.Equal(t, wgpu.TextureViewDimension2D, e.StorageTexture.ViewDimension)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, e.StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, e.StorageTexture.Access)

	e = classifyResource(0, wgpu.ShaderStageCompute, "", "sampler_comparison")
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, e.Sampler.Type)
}

func TestResolveTypeLayout(t *testing.T) {
	known := computeStructSizes(parseStructBlocks(`struct A { x: u32, v: vec3<f32>, }
struct B { a: A, tail: array<vec4<f32>>, }`))

	a, ok := known["A"]
	require.True(t, ok)
	assert.Equal(t, wgslTypeLayout{32, 16}, a)

	b, ok := known["B"]
	require.True(t, ok)
	assert.Equal(t, wgslTypeLayout{48, 16}, b)

	l, ok := resolveTypeLayout("array<vec3<f32>, 4>", nil)
	require.True(t, ok)
	assert.Equal(t, wgslTypeLayout{64, 16}, l)

	_, ok = resolveTypeLayout("Unknown", nil)
	assert.False(t, ok)
}

func TestParseWorkgroupSize(t *testing.T) {
	assert.Equal(t, [3]uint32{8, 8, 1}, parseWorkgroupSize("@compute @workgroup_size(8, 8)\nfn main() {}"))
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("// @workgroup_size(64)\nfn main() {}"))
}

func TestParseBindingDecls_Sorted(t *testing.T) {
	decls := parseBindingDecls(`@group(1) @binding(0) var<uniform> b: vec4<f32>;
/* @group(3) @binding(0) var<uniform> hidden: vec4<f32>; */
@group(0) @binding(1) var t: texture_2d<f32>;
@group(0) @binding(0) var<storage, read> a: array<u32>;`)

	require.Len(t, decls, 3)
	assert.Equal(t, bindingDecl{group: 0, binding: 0, addressSpace: "storage, read", name: "a", typeName: "array<u32>"}, decls[0])
	assert.Equal(t, bindingDecl{group: 0, binding: 1, addressSpace: "", name: "t", typeName: "texture_2d<f32>"}, decls[1])
	assert.Equal(t, 1, decls[2].group)
}
