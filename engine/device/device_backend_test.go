package device

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackendType(t *testing.T) {
	tests := map[string]BackendType{
		"wgpu":       BackendTypeWGPU,
		"WebGPU":     BackendTypeWGPU,
		" software ": BackendTypeSoftware,
		"sw":         BackendTypeSoftware,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := ParseBackendType(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := ParseBackendType("metal")
	assert.Error(t, err)
	assert.Equal(t, "software", BackendTypeSoftware.String())
	assert.Equal(t, "BackendType(9)", BackendType(9).String())
}

func TestClampAdapterIndex(t *testing.T) {
	assert.Equal(t, 0, clampAdapterIndex(-1, 3))
	assert.Equal(t, 1, clampAdapterIndex(1, 3))
	assert.Equal(t, 2, clampAdapterIndex(7, 3))
	assert.Equal(t, 0, clampAdapterIndex(4, 0))
}

func TestAdapters_Software(t *testing.T) {
	adapters := Adapters(BackendTypeSoftware)
	require.Len(t, adapters, 1)
	assert.Equal(t, "Software Timeline", adapters[0].Name)
	assert.Contains(t, adapters[0].String(), "0: Software Timeline (CPU")
}

func TestBindGroupEntry_RejectsForeignDescriptors(t *testing.T) {
	tests := map[string]resource.Descriptor{
		"empty":            {},
		"software buffer":  resource.ConstantBufferDescriptor(&resource.Buffer{Label: "cb", Handle: []byte{}}),
		"software view":    resource.ViewDescriptor(&resource.View{Buffer: &resource.Buffer{Label: "b"}}),
		"software sampler": resource.SamplerDescriptor(&resource.Sampler{Handle: resource.FilterNearest}),
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := bindGroupEntry(0, d)
			assert.Error(t, err)
		})
	}
}

func TestTimestampFeatures(t *testing.T) {
	info := AdapterInfo{Name: "llvmpipe"}

	_, err := timestampFeatures(info, []wgpu.FeatureName{wgpu.FeatureNameDepthClipControl})
	assert.ErrorIs(t, err, ErrNoTimestampQueries)
	assert.ErrorContains(t, err, "llvmpipe")
	_, err = timestampFeatures(info, nil)
	assert.ErrorIs(t, err, ErrNoTimestampQueries)

	features, err := timestampFeatures(info, []wgpu.FeatureName{wgpu.FeatureNameDepthClipControl, wgpu.FeatureNameTimestampQuery})
	require.NoError(t, err)
	assert.Equal(t, []wgpu.FeatureName{wgpu.FeatureNameTimestampQuery}, features)
}

func TestWGPUCommandList_TimestampsWithoutQuerySetsFail(t *testing.T) {
	c := &wgpuCommandList{backend: &wgpuDeviceBackendImpl{}}
	c.WriteTimestamp(0)
	assert.ErrorContains(t, c.err, "timestamp query 0")

	c = &wgpuCommandList{backend: &wgpuDeviceBackendImpl{}}
	c.ResolveTimestamps(0, 2)
	assert.ErrorContains(t, c.err, "timestamp queries 0+2")

	c.fail(assert.AnError)
	assert.NotErrorIs(t, c.err, assert.AnError)
}

func TestAdapterName(t *testing.T) {
	tests := map[string]struct {
		names []string
		want  string
	}{
		"device name":       {[]string{"NVIDIA GeForce RTX 4070", "560.35", "NVIDIA"}, "NVIDIA GeForce RTX 4070"},
		"hex id falls back": {[]string{"0x0", "llvmpipe (LLVM 17.0.6, 256 bits)", "Mesa"}, "llvmpipe (LLVM 17.0.6, 256 bits)"},
		"upper hex":         {[]string{"0X1C03", "", "NVIDIA"}, "NVIDIA"},
		"empty falls back":  {[]string{"", "  ", "Mesa"}, "Mesa"},
		"nothing readable":  {[]string{"0x0", "", ""}, "Unknown Adapter"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapterName(tt.names...))
		})
	}
}
