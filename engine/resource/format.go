// Package resource holds the backend-neutral handles for GPU buffers, textures, views and samplers
// consumed by the dispatch binder and created by the device.
package resource

import "fmt"

// Format identifies the element format of a texture or typed view.
type Format int

const (
	FormatUnknown Format = iota
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatR16Float
	FormatRG16Float
	FormatRGBA16Float
	FormatR32Float
	FormatRG32Float
	FormatRGBA32Float
	FormatR32Uint
	FormatRGBA32Uint
)

// BenchmarkFormats are the texture formats the load benchmarks sweep, in report order.
var BenchmarkFormats = []Format{
	FormatR8Unorm,
	FormatRG8Unorm,
	FormatRGBA8Unorm,
	FormatR16Float,
	FormatRG16Float,
	FormatRGBA16Float,
	FormatR32Float,
	FormatRG32Float,
	FormatRGBA32Float,
}

type formatInfo struct {
	name       string
	short      string
	bytes      int
	components int
}

var formats = map[Format]formatInfo{
	FormatR8Unorm:     {"r8unorm", "R8", 1, 1},
	FormatRG8Unorm:    {"rg8unorm", "RG8", 2, 2},
	FormatRGBA8Unorm:  {"rgba8unorm", "RGBA8", 4, 4},
	FormatR16Float:    {"r16float", "R16F", 2, 1},
	FormatRG16Float:   {"rg16float", "RG16F", 4, 2},
	FormatRGBA16Float: {"rgba16float", "RGBA16F", 8, 4},
	FormatR32Float:    {"r32float", "R32F", 4, 1},
	FormatRG32Float:   {"rg32float", "RG32F", 8, 2},
	FormatRGBA32Float: {"rgba32float", "RGBA32F", 16, 4},
	FormatR32Uint:     {"r32uint", "R32U", 4, 1},
	FormatRGBA32Uint:  {"rgba32uint", "RGBA32U", 16, 4},
}

// BytesPerPixel returns the size in bytes of one element of the format, or 0 if unknown.
func (f Format) BytesPerPixel() int {
	return formats[f].bytes
}

// Components returns the number of channels in the format, or 0 if unknown.
func (f Format) Components() int {
	return formats[f].components
}

// ShortName returns the compact name used in benchmark case names, e.g. "RGBA8".
func (f Format) ShortName() string {
	if info, ok := formats[f]; ok {
		return info.short
	}
	return f.String()
}

// String returns the WGSL texel format name of f.
func (f Format) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}
