package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// maxRaySteps ограничивает обход ячеек для лучей с бесконечной дальностью
const maxRaySteps = 1 << 16

// CastRay находит ближайший коллайдер на луче в пределах maxToi.
// Ячейки обходятся вдоль луча (3D DDA), в каждой проверяются статические
// и динамические коллайдеры. Луч из точки внутри коллайдера даёт toi = 0.
// Перед запросом после изменений нужно вызвать UpdateQueryPipeline.
func (s *Simulation) CastRay(ray Ray, maxToi float32) (RayHit, bool) {
	if ray.Dir.Len() == 0 || maxToi < 0 || !finite(ray.Origin) || !finite(ray.Dir) {
		return RayHit{}, false
	}

	size := s.cellSize
	start := s.static.cellOf(ray.Origin)
	cell := [3]int32{start.x, start.y, start.z}

	var step [3]int32
	var tMax, tDelta [3]float32
	for i := 0; i < 3; i++ {
		d := ray.Dir[i]
		switch {
		case d > 0:
			step[i] = 1
			tMax[i] = (float32(cell[i]+1)*size - ray.Origin[i]) / d
			tDelta[i] = size / d
		case d < 0:
			step[i] = -1
			tMax[i] = (float32(cell[i])*size - ray.Origin[i]) / d
			tDelta[i] = -size / d
		default:
			tMax[i] = float32(math.Inf(1))
			tDelta[i] = float32(math.Inf(1))
		}
	}

	steps := maxRaySteps
	if reach := float64(maxToi*ray.Dir.Len()/size) * 3; reach+3 < float64(steps) {
		steps = int(reach) + 3
	}

	best := RayHit{Collider: InvalidCollider, Toi: maxToi}
	found := false

	test := func(h ColliderHandle) {
		c, ok := s.colliders.get(h.index, h.generation)
		if !ok {
			return
		}
		toi, ok := rayAABB(ray.Origin, ray.Dir, c.AABB(), best.Toi)
		if !ok {
			return
		}
		if !found || toi < best.Toi {
			best.Collider = h
			best.Toi = toi
			found = true
		}
	}

	for n := 0; n < steps; n++ {
		key := cellKey{cell[0], cell[1], cell[2]}
		for _, h := range s.static.cell(key) {
			test(h)
		}
		for _, h := range s.dynamic.cell(key) {
			test(h)
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		exit := tMax[axis]

		if found && best.Toi <= exit {
			break
		}
		if exit > maxToi {
			break
		}
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]
	}

	if !found {
		return RayHit{}, false
	}
	best.Point = ray.PointAt(best.Toi)
	return best, true
}

func finite(v mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
