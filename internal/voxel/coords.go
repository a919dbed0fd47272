package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-cave/internal/vec"
)

// WorldSize возвращает размер ребра одного вокселя в мировых единицах
func WorldSize(resolution int, worldSize float32) float32 {
	return worldSize / float32(resolution)
}

// ToIndex переводит мировую координату в индекс решётки: floor(pos / vws).
// Результат может выходить за пределы сетки, проверка на вызывающем.
// Для NaN и бесконечностей возвращается -1.
func ToIndex(pos, vws float32) int {
	f := math.Floor(float64(pos) / float64(vws))
	if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt32 || f > math.MaxInt32 {
		return -1
	}
	return int(f)
}

// ToCoord переводит мировую позицию в координату решётки
func ToCoord(p mgl32.Vec3, vws float32) vec.Vec3 {
	return vec.Vec3{X: ToIndex(p.X(), vws), Y: ToIndex(p.Y(), vws), Z: ToIndex(p.Z(), vws)}
}

// Center возвращает центр ячейки (x, y, z) в мировых координатах
func Center(x, y, z int, vws float32) mgl32.Vec3 {
	return mgl32.Vec3{
		(float32(x) + 0.5) * vws,
		(float32(y) + 0.5) * vws,
		(float32(z) + 0.5) * vws,
	}
}
