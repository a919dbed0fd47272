// Package sync переносит состояние физического мира обратно в сетку вокселей.
package sync

import (
	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/physics"
	"github.com/annel0/voxel-cave/internal/voxel"
)

// Report итог обратной записи
type Report struct {
	Written int // воксели, закрашенные по коллайдерам
	Evicted int // коллайдеры, удалённые за пределами мира
}

// WriteVoxels перерисовывает сетку по текущим позициям коллайдеров.
// Сетка обнуляется целиком, затем каждый коллайдер внутри мира закрашивает
// свою ячейку цветом из user data. Коллайдеры вне мира удаляются после
// прохода вместе с их телами.
func WriteVoxels(engine physics.Engine, worldSize float32, grid *voxel.Grid) Report {
	var rep Report
	if grid == nil || grid.Resolution <= 0 {
		return rep
	}

	r := grid.Resolution
	vws := voxel.WorldSize(r, worldSize)
	grid.Zero()

	var evict []physics.ColliderHandle
	engine.Colliders(func(h physics.ColliderHandle, c *physics.Collider) bool {
		t := c.Translation()
		if t.X() < 0 || t.Y() < 0 || t.Z() < 0 {
			evict = append(evict, h)
			return true
		}
		x := voxel.ToIndex(t.X(), vws)
		y := voxel.ToIndex(t.Y(), vws)
		z := voxel.ToIndex(t.Z(), vws)
		if !grid.Set(x, y, z, voxel.Unpack(c.UserData)) {
			evict = append(evict, h)
			return true
		}
		rep.Written++
		return true
	})

	for _, h := range evict {
		rep.Evicted += evictCollider(engine, h)
	}

	if rep.Evicted > 0 {
		logging.GetComponentLogger(logging.ComponentSync).Debug("🕳️ Вытеснено за пределы мира: %d коллайдеров", rep.Evicted)
	}
	return rep
}

// evictCollider удаляет коллайдер или его тело целиком. Возвращает число удалённых коллайдеров.
func evictCollider(engine physics.Engine, h physics.ColliderHandle) int {
	c, ok := engine.Collider(h)
	if !ok {
		// уже удалён вместе с телом
		return 0
	}
	if parent, ok := c.Parent(); ok {
		body, ok := engine.Body(parent)
		if !ok {
			return 0
		}
		n := len(body.Colliders())
		if engine.RemoveBody(parent) {
			return n
		}
		return 0
	}
	if _, ok := engine.RemoveCollider(h); ok {
		return 1
	}
	return 0
}
