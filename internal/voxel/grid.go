package voxel

import (
	"errors"

	"github.com/annel0/voxel-cave/internal/vec"
)

// ErrInvalidResolution возвращается для разрешения <= 0
var ErrInvalidResolution = errors.New("разрешение сетки должно быть положительным")

// Grid плоский буфер resolution³ вокселей в порядке x + y·r + z·r².
// Сетка принадлежит одному владельцу; между компонентами передаются копии (Clone).
type Grid struct {
	Resolution int
	Voxels     []Voxel
}

// NewGrid создаёт обнулённую сетку
func NewGrid(resolution int) (*Grid, error) {
	if resolution <= 0 {
		return nil, ErrInvalidResolution
	}
	return &Grid{Resolution: resolution, Voxels: NewZeroBuf(resolution)}, nil
}

// NewZeroBuf выделяет обнулённый буфер на resolution³ вокселей
func NewZeroBuf(resolution int) []Voxel {
	if resolution <= 0 {
		return nil
	}
	return make([]Voxel, resolution*resolution*resolution)
}

// Len возвращает количество ячеек
func (g *Grid) Len() int { return len(g.Voxels) }

// Index возвращает линейный индекс ячейки. Вызывающий обязан проверить InBounds.
func (g *Grid) Index(x, y, z int) int {
	return vec.Vec3{X: x, Y: y, Z: z}.Index(g.Resolution)
}

// InBounds проверяет, что координата лежит внутри сетки
func (g *Grid) InBounds(x, y, z int) bool {
	return vec.Vec3{X: x, Y: y, Z: z}.InBounds(g.Resolution)
}

// At возвращает воксель ячейки; false для координат вне сетки
func (g *Grid) At(x, y, z int) (Voxel, bool) {
	if !g.InBounds(x, y, z) {
		return Zero, false
	}
	return g.Voxels[g.Index(x, y, z)], true
}

// Set записывает воксель; координаты вне сетки игнорируются
func (g *Grid) Set(x, y, z int, v Voxel) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	g.Voxels[g.Index(x, y, z)] = v
	return true
}

// Zero обнуляет всю сетку
func (g *Grid) Zero() {
	clear(g.Voxels)
}

// Clone возвращает независимую копию сетки
func (g *Grid) Clone() *Grid {
	voxels := make([]Voxel, len(g.Voxels))
	copy(voxels, g.Voxels)
	return &Grid{Resolution: g.Resolution, Voxels: voxels}
}

// Equal сравнивает сетки поячеечно
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.Resolution != other.Resolution || len(g.Voxels) != len(other.Voxels) {
		return false
	}
	for i := range g.Voxels {
		if g.Voxels[i] != other.Voxels[i] {
			return false
		}
	}
	return true
}

// SolidCount считает занятые ячейки
func (g *Grid) SolidCount() int {
	n := 0
	for _, v := range g.Voxels {
		if v.Solid() {
			n++
		}
	}
	return n
}

// Bytes возвращает RGBA байты сетки для загрузки в 3D текстуру рендера
func (g *Grid) Bytes() []byte {
	out := make([]byte, 4*len(g.Voxels))
	for i, v := range g.Voxels {
		copy(out[i*4:i*4+4], v[:])
	}
	return out
}
