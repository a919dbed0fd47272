package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid_RejectsNonPositiveResolution(t *testing.T) {
	for _, r := range []int{0, -1, -64} {
		g, err := NewGrid(r)
		assert.ErrorIs(t, err, ErrInvalidResolution, "разрешение %d должно отклоняться", r)
		assert.Nil(t, g)
	}
}

func TestNewGrid_ZeroedWithExactLength(t *testing.T) {
	g, err := NewGrid(5)
	require.NoError(t, err)

	assert.Equal(t, 125, g.Len(), "длина буфера должна быть resolution³")
	assert.Equal(t, 0, g.SolidCount(), "новая сетка должна быть пустой")
}

func TestGrid_IndexLayout(t *testing.T) {
	g, err := NewGrid(4)
	require.NoError(t, err)

	assert.Equal(t, 0, g.Index(0, 0, 0))
	assert.Equal(t, 1, g.Index(1, 0, 0))
	assert.Equal(t, 4, g.Index(0, 1, 0), "y_stride = resolution")
	assert.Equal(t, 16, g.Index(0, 0, 1), "z_stride = resolution²")
	assert.Equal(t, 63, g.Index(3, 3, 3))
}

func TestGrid_SetAtBoundsChecked(t *testing.T) {
	g, err := NewGrid(3)
	require.NoError(t, err)

	v := Voxel{1, 2, 3, 255}
	assert.True(t, g.Set(2, 1, 0, v))
	got, ok := g.At(2, 1, 0)
	assert.True(t, ok)
	assert.Equal(t, v, got)

	assert.False(t, g.Set(3, 0, 0, v), "x за пределами сетки")
	assert.False(t, g.Set(0, -1, 0, v), "отрицательный y")
	_, ok = g.At(0, 0, 3)
	assert.False(t, ok, "z за пределами сетки")
	assert.Equal(t, 1, g.SolidCount(), "запись вне сетки не должна ничего менять")
}

func TestGrid_CloneIsIndependent(t *testing.T) {
	g, err := NewGrid(2)
	require.NoError(t, err)
	g.Set(1, 1, 1, Voxel{9, 9, 9, 255})

	c := g.Clone()
	assert.True(t, g.Equal(c))

	c.Set(0, 0, 0, Voxel{1, 1, 1, 255})
	assert.False(t, g.Equal(c), "изменение копии не должно влиять на оригинал")
	assert.Equal(t, 1, g.SolidCount())
}

func TestGrid_ZeroAndBytes(t *testing.T) {
	g, err := NewGrid(2)
	require.NoError(t, err)
	g.Set(1, 0, 0, Voxel{10, 20, 30, 255})

	b := g.Bytes()
	assert.Len(t, b, 32)
	assert.Equal(t, []byte{10, 20, 30, 255}, b[4:8])

	g.Zero()
	assert.Equal(t, 0, g.SolidCount())
	assert.Equal(t, 8, g.Len(), "обнуление не меняет длину")
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	colors := []Voxel{
		{0, 0, 0, 255},
		{255, 255, 255, 255},
		{12, 200, 7, 255},
		{1, 2, 3, 4},
	}
	for _, c := range colors {
		packed := Pack(c)
		assert.Equal(t, uint64(0), packed>>32, "цвет занимает только младшие 32 бита")
		assert.Equal(t, c, Unpack(packed))
	}
}

func TestUnpack_StruckIsOpaqueWhite(t *testing.T) {
	v := Unpack(Struck)
	assert.Equal(t, Voxel{255, 255, 255, 255}, v)
	assert.True(t, v.Solid())
}
