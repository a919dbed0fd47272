// Package interaction выбивает воксели лучом из камеры.
package interaction

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/physics"
	"github.com/annel0/voxel-cave/internal/voxel"
)

const (
	DefaultLaunchSpeed = 10
	DefaultMaxDistance = 300
)

// Controller обрабатывает выстрелы лучом
type Controller struct {
	LaunchSpeed float32 // скорость, с которой выбитый воксель улетает вдоль луча
	MaxDistance float32 // дальность луча в мировых единицах
}

// NewController возвращает контроллер с параметрами по умолчанию
func NewController() Controller {
	return Controller{
		LaunchSpeed: DefaultLaunchSpeed,
		MaxDistance: DefaultMaxDistance,
	}
}

// Result итог выстрела
type Result struct {
	Hit      bool
	Collider physics.ColliderHandle
	Point    mgl32.Vec3
	Toi      float32
	Body     physics.BodyHandle

	Detached   bool // статический воксель стал новым телом
	Redirected bool // уже свободное тело получило новую скорость
}

// Fire пускает луч и выбивает первый задетый воксель.
// Свободное тело получает скорость dir·LaunchSpeed. Статический коллайдер
// заменяется новым динамическим телом в той же точке с той же скоростью.
// Промах ничего не меняет.
func (c Controller) Fire(engine physics.Engine, ray physics.Ray) Result {
	log := logging.GetComponentLogger(logging.ComponentInteraction)

	if ray.Dir.Len() == 0 {
		log.Warn("⚠️ Выстрел с нулевым направлением проигнорирован")
		return Result{}
	}
	dir := ray.Dir.Normalize()

	engine.UpdateQueryPipeline()
	hit, ok := engine.CastRay(physics.Ray{Origin: ray.Origin, Dir: dir}, c.MaxDistance)
	if !ok {
		log.Info("🎯 Промах: origin=%v dir=%v", ray.Origin, dir)
		return Result{}
	}

	res := Result{
		Hit:      true,
		Collider: hit.Collider,
		Point:    hit.Point,
		Toi:      hit.Toi,
		Body:     physics.InvalidBody,
	}
	log.Debug("🎯 Попадание: collider=%v point=%v toi=%.2f", hit.Collider, hit.Point, hit.Toi)

	engine.SetColliderUserData(hit.Collider, voxel.Struck)
	linvel := dir.Mul(c.LaunchSpeed)

	collider, ok := engine.Collider(hit.Collider)
	if !ok {
		return res
	}
	if parent, ok := collider.Parent(); ok {
		if engine.SetLinvel(parent, linvel) {
			res.Body = parent
			res.Redirected = true
		}
		return res
	}

	removed, ok := engine.RemoveCollider(hit.Collider)
	if !ok {
		// коллайдер уже удалён, выбивать нечего
		return res
	}

	body := engine.InsertBody(physics.NewDynamicBody(removed.Translation(), linvel))
	desc := removed.Desc().WithTranslation(mgl32.Vec3{})
	if _, ok := engine.InsertColliderWithParent(desc, body); !ok {
		engine.RemoveBody(body)
		log.Error("❌ Не удалось прикрепить коллайдер к новому телу")
		return res
	}

	res.Body = body
	res.Detached = true
	log.Info("💥 Воксель выбит в точке %v, скорость %v", removed.Translation(), linvel)
	return res
}
