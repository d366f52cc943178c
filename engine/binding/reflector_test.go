package binding

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-perf/engine/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflectDirectConstantBufferAndGroup(t *testing.T) {
	layout := ProgramLayout{Parameters: []Parameter{
		Direct(CategoryConstantBuffer, 0),
		Group(
			Range{Category: CategoryReadableView, BaseRegister: 0, Count: 3, Offset: Append},
			Range{Category: CategoryWritableView, BaseRegister: 0, Count: 1, Offset: Append},
		),
	}}

	table, groups, err := Reflect(layout)
	require.NoError(t, err)

	b, ok := table.Lookup(CategoryConstantBuffer, 0)
	require.True(t, ok)
	assert.Equal(t, Binding{Parameter: 0, Direct: true}, b)

	for reg := range 3 {
		b, ok := table.Lookup(CategoryReadableView, reg)
		require.True(t, ok)
		assert.Equal(t, Binding{Parameter: 1, Offset: reg}, b)
	}

	b, ok = table.Lookup(CategoryWritableView, 0)
	require.True(t, ok)
	assert.Equal(t, Binding{Parameter: 1, Offset: 3}, b)

	require.Len(t, groups, 2)
	assert.False(t, groups[0].IsGroup())
	assert.Equal(t, GroupLayout{Parameter: 1, Count: 4, Kind: descriptor.KindGeneral}, groups[1])
}

func TestReflectExplicitOffsetResetsRunningOffset(t *testing.T) {
	layout := ProgramLayout{Parameters: []Parameter{
		Group(
			Range{Category: CategoryReadableView, BaseRegister: 2, Count: 2, Offset: 4},
			Range{Category: CategoryWritableView, BaseRegister: 0, Count: 1, Offset: 0},
			Range{Category: CategoryWritableView, BaseRegister: 1, Count: 1, Offset: Append},
		),
	}}

	table, groups, err := Reflect(layout)
	require.NoError(t, err)

	b, _ := table.Lookup(CategoryReadableView, 2)
	assert.Equal(t, 4, b.Offset)
	b, _ = table.Lookup(CategoryReadableView, 3)
	assert.Equal(t, 5, b.Offset)
	b, _ = table.Lookup(CategoryWritableView, 0)
	assert.Equal(t, 0, b.Offset)
	b, _ = table.Lookup(CategoryWritableView, 1)
	assert.Equal(t, 1, b.Offset)

	assert.Equal(t, 6, groups[0].Count)
}

func TestReflectSamplerGroup(t *testing.T) {
	layout := ProgramLayout{Parameters: []Parameter{
		Group(Range{Category: CategoryReadableView, Count: 1, Offset: Append}),
		Group(Range{Category: CategorySampler, Count: 3, Offset: Append}),
	}}

	table, groups, err := Reflect(layout)
	require.NoError(t, err)

	assert.False(t, groups[0].IsSampler())
	assert.True(t, groups[1].IsSampler())
	assert.Equal(t, 3, groups[1].Count)
	assert.Equal(t, []int{0, 1, 2}, table.Registers(CategorySampler))
}

func TestLookupAbsentRegister(t *testing.T) {
	table, _, err := Reflect(ProgramLayout{Parameters: []Parameter{Direct(CategoryWritableView, 1)}})
	require.NoError(t, err)

	_, ok := table.Lookup(CategoryWritableView, 0)
	assert.False(t, ok)
	_, ok = table.Lookup(CategoryWritableView, 2)
	assert.False(t, ok)
	_, ok = table.Lookup(CategoryReadableView, 1)
	assert.False(t, ok)
	_, ok = table.Lookup(Category(9), 1)
	assert.False(t, ok)
	assert.Equal(t, 1, table.Len(CategoryWritableView))
	assert.Zero(t, table.Len(CategorySampler))
}

func TestReflectRejectsMalformedLayouts(t *testing.T) {
	cases := map[string]ProgramLayout{
		"empty":                {},
		"direct sampler":       {Parameters: []Parameter{Direct(CategorySampler, 0)}},
		"unknown category":     {Parameters: []Parameter{Direct(Category(12), 0)}},
		"group without ranges": {Parameters: []Parameter{Group()}},
		"zero count": {Parameters: []Parameter{
			Group(Range{Category: CategoryReadableView, Count: 0, Offset: Append}),
		}},
		"mixed sampler group": {Parameters: []Parameter{
			Group(
				Range{Category: CategoryReadableView, Count: 1, Offset: Append},
				Range{Category: CategorySampler, Count: 1, Offset: Append},
			),
		}},
		"negative register":  {Parameters: []Parameter{Direct(CategoryConstantBuffer, -1)}},
		"register too large": {Parameters: []Parameter{Direct(CategoryConstantBuffer, MaxRegister)}},
		"duplicate register": {Parameters: []Parameter{
			Direct(CategoryConstantBuffer, 0),
			Direct(CategoryConstantBuffer, 0),
		}},
		"overlapping offsets": {Parameters: []Parameter{
			Group(
				Range{Category: CategoryReadableView, BaseRegister: 0, Count: 2, Offset: 0},
				Range{Category: CategoryWritableView, BaseRegister: 0, Count: 1, Offset: 1},
			),
		}},
		"negative offset": {Parameters: []Parameter{
			Group(Range{Category: CategoryReadableView, Count: 1, Offset: -3}),
		}},
	}

	for name, layout := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Reflect(layout)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLayout), err.Error())
		})
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("UAV")
	require.NoError(t, err)
	assert.Equal(t, CategoryWritableView, c)

	c, err = ParseCategory("readable_view")
	require.NoError(t, err)
	assert.Equal(t, CategoryReadableView, c)

	_, err = ParseCategory("texture")
	assert.ErrorIs(t, err, ErrInvalidLayout)

	var decoded Category
	require.NoError(t, decoded.UnmarshalText([]byte("sampler")))
	assert.Equal(t, CategorySampler, decoded)
	assert.Equal(t, "Category(8)", Category(8).String())
}
