package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// cellKey ключ ячейки пространственной сетки
type cellKey struct {
	x, y, z int32
}

// cellRange диапазон ячеек, покрытых боксом (границы включительно)
type cellRange struct {
	min, max cellKey
}

// spatialHash равномерная сетка ячеек для широкой фазы и запросов лучом.
// Размер ячейки равен размеру вокселя, так что выровненный куб занимает одну ячейку.
type spatialHash struct {
	cellSize float32
	inv      float32
	cells    map[cellKey][]ColliderHandle
}

func newSpatialHash(cellSize float32) *spatialHash {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &spatialHash{
		cellSize: cellSize,
		inv:      1 / cellSize,
		cells:    make(map[cellKey][]ColliderHandle),
	}
}

// cellOf возвращает ячейку, содержащую точку
func (s *spatialHash) cellOf(p mgl32.Vec3) cellKey {
	return cellKey{
		x: floorCell(p.X() * s.inv),
		y: floorCell(p.Y() * s.inv),
		z: floorCell(p.Z() * s.inv),
	}
}

// rangeOf возвращает ячейки, покрытые боксом. Бокс слегка сжимается,
// чтобы касание по границе не добавляло соседние ячейки.
func (s *spatialHash) rangeOf(box AABB) cellRange {
	shrink := s.cellSize * 1e-4
	m := mgl32.Vec3{shrink, shrink, shrink}
	return cellRange{
		min: s.cellOf(box.Min.Add(m)),
		max: s.cellOf(box.Max.Sub(m)),
	}
}

func (s *spatialHash) insert(h ColliderHandle, r cellRange) {
	for x := r.min.x; x <= r.max.x; x++ {
		for y := r.min.y; y <= r.max.y; y++ {
			for z := r.min.z; z <= r.max.z; z++ {
				key := cellKey{x, y, z}
				s.cells[key] = append(s.cells[key], h)
			}
		}
	}
}

func (s *spatialHash) remove(h ColliderHandle, r cellRange) {
	for x := r.min.x; x <= r.max.x; x++ {
		for y := r.min.y; y <= r.max.y; y++ {
			for z := r.min.z; z <= r.max.z; z++ {
				key := cellKey{x, y, z}
				list := s.cells[key]
				for i, other := range list {
					if other == h {
						list[i] = list[len(list)-1]
						list = list[:len(list)-1]
						break
					}
				}
				if len(list) == 0 {
					delete(s.cells, key)
				} else {
					s.cells[key] = list
				}
			}
		}
	}
}

// query вызывает fn для каждого коллайдера в ячейках диапазона.
// Коллайдер, занимающий несколько ячеек, может встретиться несколько раз.
func (s *spatialHash) query(r cellRange, fn func(h ColliderHandle)) {
	for x := r.min.x; x <= r.max.x; x++ {
		for y := r.min.y; y <= r.max.y; y++ {
			for z := r.min.z; z <= r.max.z; z++ {
				for _, h := range s.cells[cellKey{x, y, z}] {
					fn(h)
				}
			}
		}
	}
}

func (s *spatialHash) cell(key cellKey) []ColliderHandle {
	return s.cells[key]
}

func (s *spatialHash) clear() {
	clear(s.cells)
}

func floorCell(v float32) int32 {
	f := math.Floor(float64(v))
	if math.IsNaN(f) {
		return math.MaxInt32 - 1
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	if f > math.MaxInt32-1 {
		return math.MaxInt32 - 1
	}
	return int32(f)
}
