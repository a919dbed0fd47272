package physics

import "github.com/go-gl/mathgl/mgl32"

// RigidBody динамическое твёрдое тело. Вращение не моделируется:
// кубы остаются выровненными по осям решётки.
type RigidBody struct {
	Translation  mgl32.Vec3
	Linvel       mgl32.Vec3
	Mass         float32
	GravityScale float32
	Sleeping     bool

	idleTime  float32
	colliders []ColliderHandle

	// опора против гравитации в текущем и предыдущем подшаге
	supported    bool
	wasSupported bool
}

// NewDynamicBody создаёт динамическое тело в точке translation с начальной скоростью linvel
func NewDynamicBody(translation, linvel mgl32.Vec3) RigidBody {
	return RigidBody{
		Translation:  translation,
		Linvel:       linvel,
		Mass:         1,
		GravityScale: 1,
	}
}

// Wake будит тело
func (b *RigidBody) Wake() {
	b.Sleeping = false
	b.idleTime = 0
}

// Colliders возвращает коллайдеры, прикреплённые к телу
func (b *RigidBody) Colliders() []ColliderHandle {
	out := make([]ColliderHandle, len(b.colliders))
	copy(out, b.colliders)
	return out
}

func (b *RigidBody) invMass() float32 {
	if b.Mass <= 0 {
		return 1
	}
	return 1 / b.Mass
}

// resting сообщает, может ли тело держать лежащих на нём соседей как неподвижная опора
func (b *RigidBody) resting() bool {
	return b.Sleeping || b.supported || b.wasSupported
}
