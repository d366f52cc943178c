package suite

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/Carmen-Shannon/oxy-perf/engine/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConstants_Marshal(t *testing.T) {
	c := LoadConstants{ElementsMask: 1, WriteIndex: NeverWrite, ReadStartAddress: 4}
	assert.Equal(t, 16, c.Size())
	assert.Equal(t, []byte{
		1, 0, 0, 0,
		0xFF, 0xFF, 0xFF, 0xFF,
		4, 0, 0, 0,
		0, 0, 0, 0,
	}, c.Marshal())
}

func TestResources_InputsForEveryCase(t *testing.T) {
	d := device.NewDevice(device.BackendTypeSoftware)
	defer d.Close()

	r, err := NewResources(d)
	require.NoError(t, err)

	c, err := NewCatalog(defaultGroupSize)
	require.NoError(t, err)

	for _, cs := range c.Cases {
		in, err := r.Inputs(cs)
		require.NoError(t, err, cs.Name)
		require.Len(t, in.ConstantBuffers, 1)
		require.Len(t, in.WritableViews, 1)

		switch cs.Family {
		case FamilyConstant:
			assert.Empty(t, in.ReadableViews, cs.Name)
			assert.Equal(t, uint64(16640), in.ConstantBuffers[0].Size)
		case FamilyTextureSample:
			require.Len(t, in.Samplers, 1)
			assert.Equal(t, cs.Filter, in.Samplers[0].Filter)
			fallthrough
		default:
			require.Len(t, in.ReadableViews, 1, cs.Name)
		}
	}

	unaligned, err := r.Inputs(Case{Name: "u", Family: FamilyRaw, Unaligned: true})
	require.NoError(t, err)
	assert.Equal(t, "load constants unaligned", unaligned.ConstantBuffers[0].Label)

	_, err = r.Inputs(Case{Name: "missing", Family: FamilyStructured, Components: 3})
	assert.Error(t, err)
}

func TestResources_FrameOfEveryCase(t *testing.T) {
	d := device.NewDevice(device.BackendTypeSoftware)
	defer d.Close()

	r, err := NewResources(d)
	require.NoError(t, err)
	c, err := NewCatalog(defaultGroupSize)
	require.NoError(t, err)

	programs := make(map[string]device.Program)
	for _, src := range c.Programs {
		compiled, err := shader.NewProgram(src.Key, src.Source)
		require.NoError(t, err)
		programs[src.Key], err = d.LoadProgram(compiled)
		require.NoError(t, err)
	}

	require.NoError(t, d.BeginFrame())
	for id, cs := range c.Cases {
		in, err := r.Inputs(cs)
		require.NoError(t, err)
		h := d.StartRegion(uint32(id), cs.Name)
		require.NoError(t, d.Dispatch(programs[cs.Program], [3]uint32{1024, 1024, 1}, defaultGroupSize, in))
		d.EndRegion(h)
	}
	require.NoError(t, d.PresentFrame())

	results := NewResults("Buffer<RGBA8>.Load random")
	require.NoError(t, d.ResolveAndReport(results.Record))
	rows := results.Rows()
	require.Len(t, rows, len(c.Cases))
	for _, row := range rows {
		assert.Greater(t, row.Total, 0.0, row.Name)
		assert.InDelta(t, 1.0, row.Ratio, 1e-9, row.Name)
	}
}
