package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaList_ValueScan(t *testing.T) {
	list := AreaList{AreaWealth, AreaSoul}

	v, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, `["wealth","soul"]`, v)

	var out AreaList
	require.NoError(t, out.Scan(v))
	assert.Equal(t, list, out)

	// A nil list stores as an empty array, never NULL.
	var empty AreaList
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	// NULL columns scan to an empty list.
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
}

func TestAreaList_Contains(t *testing.T) {
	list := AreaList{AreaHealth}
	assert.True(t, list.Contains(AreaHealth))
	assert.False(t, list.Contains(AreaWealth))
}

func TestValidArea(t *testing.T) {
	for _, area := range Areas {
		assert.True(t, ValidArea(area))
	}
	assert.False(t, ValidArea("career"))
	assert.False(t, ValidArea(""))
}
