package resource

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-perf/engine/binding"
	"github.com/stretchr/testify/assert"
)

func TestFormatInfo(t *testing.T) {
	assert.Equal(t, 4, FormatRGBA8Unorm.BytesPerPixel())
	assert.Equal(t, 16, FormatRGBA32Float.BytesPerPixel())
	assert.Equal(t, 2, FormatRG16Float.Components())
	assert.Equal(t, "RGBA8", FormatRGBA8Unorm.ShortName())
	assert.Equal(t, "r32float", FormatR32Float.String())
	assert.Equal(t, 0, FormatUnknown.BytesPerPixel())
	assert.Equal(t, "Format(99)", Format(99).String())
	assert.Len(t, BenchmarkFormats, 9)
}

func TestDescriptorCategories(t *testing.T) {
	buf := &Buffer{Label: "constants"}
	readable := &View{Buffer: &Buffer{Label: "input"}}
	writable := &View{Texture: &Texture{Label: "output"}, Writable: true}

	assert.Equal(t, binding.CategoryConstantBuffer, ConstantBufferDescriptor(buf).Category)
	assert.Equal(t, binding.CategoryReadableView, ViewDescriptor(readable).Category)
	assert.Equal(t, binding.CategoryWritableView, ViewDescriptor(writable).Category)
	assert.Equal(t, binding.CategorySampler, SamplerDescriptor(&Sampler{}).Category)

	assert.True(t, Descriptor{}.Empty())
	assert.False(t, ViewDescriptor(readable).Empty())
	assert.Equal(t, "input", readable.Label())
	assert.Equal(t, "output", writable.Label())
}
