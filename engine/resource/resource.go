package resource

import "github.com/Carmen-Shannon/oxy-perf/engine/binding"

// BufferUsage flags how a buffer is bound.
type BufferUsage int

const (
	// BufferUsageStorage marks a buffer usable by readable and writable views.
	BufferUsageStorage BufferUsage = 1 << iota

	// BufferUsageConstant marks a buffer usable as a constant buffer.
	BufferUsageConstant
)

// Buffer is a linear GPU allocation. Handle is owned by the backend that created it.
type Buffer struct {
	ID           int
	Label        string
	ElementCount int
	Stride       int
	Size         uint64
	Usage        BufferUsage
	Handle       any
}

// TextureDimension is the dimensionality of a texture.
type TextureDimension int

const (
	TextureDimension1D TextureDimension = iota
	TextureDimension2D
	TextureDimension3D
)

// Texture is an image resource. Handle is owned by the backend that created it.
type Texture struct {
	ID        int
	Label     string
	Dimension TextureDimension
	Width     int
	Height    int
	Depth     int
	Format    Format
	MipLevels int
	Handle    any
}

// ViewKind selects how a view interprets its underlying resource.
type ViewKind int

const (
	// ViewKindGeneric views a texture with its own format.
	ViewKindGeneric ViewKind = iota

	// ViewKindTyped views a buffer as formatted elements.
	ViewKindTyped

	// ViewKindRaw views a buffer as 32-bit words addressed by byte offset.
	ViewKindRaw

	// ViewKindStructured views a buffer as an array of fixed-stride structures.
	ViewKindStructured
)

func (k ViewKind) String() string {
	switch k {
	case ViewKindGeneric:
		return "generic"
	case ViewKindTyped:
		return "typed"
	case ViewKindRaw:
		return "raw"
	case ViewKindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// ViewDesc describes a view over a buffer or texture.
type ViewDesc struct {
	Kind         ViewKind
	Format       Format
	ElementCount int
	Stride       int
}

// View is a readable or writable view over exactly one of Buffer or Texture.
type View struct {
	Buffer   *Buffer
	Texture  *Texture
	Desc     ViewDesc
	Writable bool
	Handle   any
}

// Viewable is a resource a View can be created over: a *Buffer or a *Texture.
type Viewable interface {
	attach(v *View)
}

func (b *Buffer) attach(v *View)  { v.Buffer = b }
func (t *Texture) attach(v *View) { v.Texture = t }

// NewView creates a view over r. The backend fills Handle when the view is registered.
//
// Parameters:
//   - r: the buffer or texture to view
//   - desc: how the view interprets r
//   - writable: true for a writable view, false for a readable one
//
// Returns:
//   - *View: the new view
func NewView(r Viewable, desc ViewDesc, writable bool) *View {
	v := &View{Desc: desc, Writable: writable}
	r.attach(v)
	return v
}

// Label returns the label of the viewed resource.
func (v *View) Label() string {
	switch {
	case v == nil:
		return ""
	case v.Buffer != nil:
		return v.Buffer.Label
	case v.Texture != nil:
		return v.Texture.Label
	default:
		return ""
	}
}

// Filter is the sampler filtering mode.
type Filter int

const (
	FilterNearest Filter = iota
	FilterBilinear
	FilterTrilinear
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	case FilterTrilinear:
		return "trilinear"
	default:
		return "unknown"
	}
}

// Sampler is a texture sampler. Handle is owned by the backend that created it.
type Sampler struct {
	ID     int
	Filter Filter
	Handle any
}

// Descriptor is the value written into a descriptor slot. Exactly one of Buffer, View or Sampler
// is set, matching Category.
type Descriptor struct {
	Category binding.Category
	Buffer   *Buffer
	View     *View
	Sampler  *Sampler
}

// ConstantBufferDescriptor wraps a constant buffer.
func ConstantBufferDescriptor(b *Buffer) Descriptor {
	return Descriptor{Category: binding.CategoryConstantBuffer, Buffer: b}
}

// ViewDescriptor wraps a view, choosing the readable or writable category from the view.
func ViewDescriptor(v *View) Descriptor {
	c := binding.CategoryReadableView
	if v.Writable {
		c = binding.CategoryWritableView
	}
	return Descriptor{Category: c, View: v}
}

// SamplerDescriptor wraps a sampler.
func SamplerDescriptor(s *Sampler) Descriptor {
	return Descriptor{Category: binding.CategorySampler, Sampler: s}
}

// Empty reports whether the descriptor references no resource.
func (d Descriptor) Empty() bool {
	return d.Buffer == nil && d.View == nil && d.Sampler == nil
}
