package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB ограничивающий бокс, выровненный по осям
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Expand расширяет бокс на margin по всем осям
func (b AABB) Expand(margin float32) AABB {
	m := mgl32.Vec3{margin, margin, margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Contains проверяет, находится ли точка внутри бокса (границы включительно)
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// contact результат узкой фазы для пары кубоидов
type contact struct {
	normal      mgl32.Vec3 // от B к A
	penetration float32
}

// checkBoxCollision проверяет пересечение двух кубоидов A и B.
// Нормаль выбирается по оси минимального проникновения.
func checkBoxCollision(posA, halfA, posB, halfB mgl32.Vec3) (contact, bool) {
	d := posA.Sub(posB)

	minOverlap := float32(math.MaxFloat32)
	axis := -1
	for i := 0; i < 3; i++ {
		overlap := halfA[i] + halfB[i] - abs32(d[i])
		if overlap <= 0 {
			return contact{}, false
		}
		if overlap < minOverlap {
			minOverlap = overlap
			axis = i
		}
	}

	var n mgl32.Vec3
	if d[axis] < 0 {
		n[axis] = -1
	} else {
		n[axis] = 1
	}
	return contact{normal: n, penetration: minOverlap}, true
}

// rayAABB пересекает луч с боксом методом слэбов.
// Если начало луча внутри бокса, возвращается toi = 0.
func rayAABB(origin, dir mgl32.Vec3, box AABB, maxToi float32) (float32, bool) {
	tMin := float32(0)
	tMax := maxToi

	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < box.Min[i] || origin[i] > box.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (box.Min[i] - origin[i]) * inv
		t2 := (box.Max[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
