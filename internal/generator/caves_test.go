package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-cave/internal/noise"
	"github.com/annel0/voxel-cave/internal/voxel"
)

func TestCaves_RejectsZeroResolution(t *testing.T) {
	g, err := Caves(0, DefaultSettings(noise.Gradient))
	assert.ErrorIs(t, err, voxel.ErrInvalidResolution)
	assert.Nil(t, g)
}

func TestCaves_ColorsEncodeCoordinates(t *testing.T) {
	const r = 16
	g, err := Caves(r, DefaultSettings(noise.Gradient))
	require.NoError(t, err)
	require.Equal(t, r*r*r, g.Len())
	require.Greater(t, g.SolidCount(), 0, "пещера не должна быть пустой")

	for z := 0; z < r; z++ {
		for y := 0; y < r; y++ {
			for x := 0; x < r; x++ {
				v, _ := g.At(x, y, z)
				if v.Empty() {
					assert.Equal(t, voxel.Zero, v, "пустая ячейка должна быть полностью обнулена")
					continue
				}
				assert.Equal(t, voxel.Voxel{ToColor(z, r), ToColor(y, r), ToColor(x, r), 255}, v)
			}
		}
	}
}

func TestCaves_MatchesThresholdedField(t *testing.T) {
	const r = 10
	s := DefaultSettings(noise.FBM)
	g, err := Caves(r, s)
	require.NoError(t, err)

	field, err := noise.Field(r, s.Noise)
	require.NoError(t, err)

	for i, n := range field {
		assert.Equal(t, n > s.Threshold, g.Voxels[i].Solid(), "ячейка %d", i)
	}
}

func TestCaves_ThresholdMonotonicity(t *testing.T) {
	const r = 12
	prev := -1
	for _, threshold := range []float32{0.0, 0.2, 0.4, 0.5, 0.6, 0.8, 1.0} {
		s := DefaultSettings(noise.Gradient)
		s.Threshold = threshold
		g, err := Caves(r, s)
		require.NoError(t, err)

		count := g.SolidCount()
		if prev >= 0 {
			assert.LessOrEqual(t, count, prev, "повышение порога %.1f не должно добавлять вокселей", threshold)
		}
		prev = count
	}
}

func TestToColor(t *testing.T) {
	assert.Equal(t, uint8(0), ToColor(0, 64))
	assert.Equal(t, uint8(128), ToColor(32, 64))
	assert.Equal(t, uint8(252), ToColor(63, 64))
	assert.Equal(t, uint8(128), ToColor(1, 2))
}

func TestCubicLattice(t *testing.T) {
	g, err := CubicLattice(80)
	require.NoError(t, err)
	// 32, 40 по каждой оси
	assert.Equal(t, 8, g.SolidCount())
	v, ok := g.At(40, 32, 40)
	require.True(t, ok)
	assert.Equal(t, voxel.Voxel{40, 32, 40, 255}, v)

	small, err := CubicLattice(16)
	require.NoError(t, err)
	assert.Equal(t, 0, small.SolidCount())
}
