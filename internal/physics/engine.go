package physics

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray луч запроса. Dir не обязан быть единичным: toi измеряется в длинах Dir.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// PointAt возвращает точку луча на расстоянии toi
func (r Ray) PointAt(toi float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(toi))
}

// RayHit результат запроса лучом
type RayHit struct {
	Collider ColliderHandle
	Toi      float32
	Point    mgl32.Vec3
}

// Engine набор возможностей физического движка, которыми пользуются
// построение мира, обратная запись в сетку и взаимодействие.
// Любая реализация с такой семантикой взаимозаменяема.
type Engine interface {
	InsertCollider(desc ColliderDesc) ColliderHandle
	InsertBody(body RigidBody) BodyHandle
	InsertColliderWithParent(desc ColliderDesc, parent BodyHandle) (ColliderHandle, bool)
	RemoveCollider(h ColliderHandle) (Collider, bool)
	RemoveBody(h BodyHandle) bool

	Collider(h ColliderHandle) (*Collider, bool)
	Body(h BodyHandle) (*RigidBody, bool)
	SetColliderUserData(h ColliderHandle, userData uint64) bool
	SetLinvel(h BodyHandle, linvel mgl32.Vec3) bool

	Colliders(fn func(h ColliderHandle, c *Collider) bool)
	Bodies(fn func(h BodyHandle, b *RigidBody) bool)
	ColliderCount() int
	BodyCount() int

	Step(dt time.Duration)
	UpdateQueryPipeline()
	CastRay(ray Ray, maxToi float32) (RayHit, bool)
}

var _ Engine = (*Simulation)(nil)
