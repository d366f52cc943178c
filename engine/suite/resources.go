package suite

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/Carmen-Shannon/oxy-perf/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-perf/engine/resource"
)

// NeverWrite is the LoadConstants write index no thread reaches, so results are never stored.
const NeverWrite = 0xFFFFFFFF

// LoadConstants is the GPU layout of the WGSL LoadConstants uniform.
// Size: 16 bytes.
type LoadConstants struct {
	ElementsMask     uint32 // offset  0: OR-ed into every address to keep loads opaque to the compiler
	WriteIndex       uint32 // offset  4: the thread that stores its result
	ReadStartAddress uint32 // offset  8: byte offset added to raw loads
	Padding          uint32 // offset 12
}

// Size returns the size of the LoadConstants struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes
func (c *LoadConstants) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the constants for upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (c *LoadConstants) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], c.ElementsMask)
	binary.LittleEndian.PutUint32(buf[4:8], c.WriteIndex)
	binary.LittleEndian.PutUint32(buf[8:12], c.ReadStartAddress)
	binary.LittleEndian.PutUint32(buf[12:16], c.Padding)
	return buf
}

// constantArraySize is the size of LoadConstantsWithArray: the header plus one vec4<f32> per element.
const constantArraySize = 16 + elementCount*16

// Resources are the inputs and the output every case binds.
type Resources struct {
	output *resource.View

	constants          *resource.Buffer
	constantsUnaligned *resource.Buffer
	constantsWithArray *resource.Buffer

	raw        *resource.View
	structured map[int]*resource.View
	typed      map[resource.Format]*resource.View
	textures   map[resource.Format]*resource.View
	samplers   map[resource.Filter]*resource.Sampler
}

// NewResources creates and uploads every benchmark resource on d.
//
// Parameters:
//   - d: the device to create the resources on
//
// Returns:
//   - *Resources: the resources
//   - error: an error if any resource cannot be created or uploaded
func NewResources(d device.Device) (*Resources, error) {
	r := &Resources{
		structured: make(map[int]*resource.View),
		typed:      make(map[resource.Format]*resource.View),
		textures:   make(map[resource.Format]*resource.View),
		samplers:   make(map[resource.Filter]*resource.Sampler),
	}

	out, err := d.CreateBuffer("output", 2048, 4)
	if err != nil {
		return nil, err
	}
	r.output, err = d.CreateWritableView(out, resource.ViewDesc{Kind: resource.ViewKindStructured, ElementCount: 2048 * 4 / 16, Stride: 16})
	if err != nil {
		return nil, err
	}

	aligned := LoadConstants{WriteIndex: NeverWrite}
	unaligned := LoadConstants{WriteIndex: NeverWrite, ReadStartAddress: 4}
	if r.constants, err = createConstants(d, "load constants", aligned.Marshal()); err != nil {
		return nil, err
	}
	if r.constantsUnaligned, err = createConstants(d, "load constants unaligned", unaligned.Marshal()); err != nil {
		return nil, err
	}
	// The benchmark array is left zeroed.
	withArray := append(aligned.Marshal(), make([]byte, constantArraySize-aligned.Size())...)
	if r.constantsWithArray, err = createConstants(d, "load constants with array", withArray); err != nil {
		return nil, err
	}

	input, err := d.CreateBuffer("input raw", elementCount, rawStride)
	if err != nil {
		return nil, err
	}
	if err := d.WriteBuffer(input, ramp(elementCount*rawStride)); err != nil {
		return nil, err
	}
	r.raw, err = d.CreateReadableView(input, resource.ViewDesc{Kind: resource.ViewKindRaw, ElementCount: elementCount * rawStride / 4})
	if err != nil {
		return nil, err
	}

	for _, n := range []int{1, 2, 4} {
		stride := n * 4
		buf, err := d.CreateBuffer(fmt.Sprintf("input structured %d", stride), elementCount, stride)
		if err != nil {
			return nil, err
		}
		if err := d.WriteBuffer(buf, ramp(elementCount*stride)); err != nil {
			return nil, err
		}
		r.structured[n], err = d.CreateReadableView(buf, resource.ViewDesc{Kind: resource.ViewKindStructured, ElementCount: elementCount, Stride: stride})
		if err != nil {
			return nil, err
		}
	}

	for _, format := range resource.BenchmarkFormats {
		typed, err := d.CreateTexture1D("typed "+format.ShortName(), elementCount, format)
		if err != nil {
			return nil, err
		}
		if err := d.WriteTexture(typed, ramp(elementCount*format.BytesPerPixel())); err != nil {
			return nil, err
		}
		if r.typed[format], err = d.CreateReadableView(typed, resource.ViewDesc{Kind: resource.ViewKindGeneric}); err != nil {
			return nil, err
		}

		tex, err := d.CreateTexture2D("texture "+format.ShortName(), textureSize, textureSize, format, 1)
		if err != nil {
			return nil, err
		}
		if err := d.WriteTexture(tex, ramp(textureSize*textureSize*format.BytesPerPixel())); err != nil {
			return nil, err
		}
		if r.textures[format], err = d.CreateReadableView(tex, resource.ViewDesc{Kind: resource.ViewKindGeneric}); err != nil {
			return nil, err
		}
	}

	for _, filter := range []resource.Filter{resource.FilterNearest, resource.FilterBilinear, resource.FilterTrilinear} {
		if r.samplers[filter], err = d.CreateSampler(filter); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func createConstants(d device.Device, label string, data []byte) (*resource.Buffer, error) {
	b, err := d.CreateConstantBuffer(label, len(data))
	if err != nil {
		return nil, err
	}
	if err := d.UpdateConstantBuffer(b, data); err != nil {
		return nil, err
	}
	return b, nil
}

// ramp fills n bytes with a repeating ramp. Bytes stay below 0x3D so every half and single float
// texel built from them is finite.
func ramp(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 61)
	}
	return data
}

// Inputs returns the dispatch inputs of a case, indexed by the registers its program declares.
//
// Parameters:
//   - c: the case
//
// Returns:
//   - dispatch.Inputs: the inputs
//   - error: an error if the case names a resource that was never created
func (r *Resources) Inputs(c Case) (dispatch.Inputs, error) {
	in := dispatch.Inputs{
		ConstantBuffers: []*resource.Buffer{r.constants},
		WritableViews:   []*resource.View{r.output},
	}

	var source *resource.View
	switch c.Family {
	case FamilyTyped:
		source = r.typed[c.Format]
	case FamilyRaw:
		source = r.raw
		if c.Unaligned {
			in.ConstantBuffers[0] = r.constantsUnaligned
		}
	case FamilyStructured:
		source = r.structured[c.Components]
	case FamilyConstant:
		in.ConstantBuffers[0] = r.constantsWithArray
		return in, nil
	case FamilyTextureLoad:
		source = r.textures[c.Format]
	case FamilyTextureSample:
		source = r.textures[c.Format]
		s, ok := r.samplers[c.Filter]
		if !ok {
			return dispatch.Inputs{}, fmt.Errorf("case %s: no %s sampler", c.Name, c.Filter)
		}
		in.Samplers = []*resource.Sampler{s}
	}

	if source == nil {
		return dispatch.Inputs{}, fmt.Errorf("case %s: no %s source", c.Name, c.Family)
	}
	in.ReadableViews = []*resource.View{source}
	return in, nil
}
