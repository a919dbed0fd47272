package physics

import "github.com/go-gl/mathgl/mgl32"

// ColliderDesc описание коллайдера-кубоида для вставки в симуляцию
type ColliderDesc struct {
	HalfExtents mgl32.Vec3
	Translation mgl32.Vec3 // мировая позиция для свободного коллайдера, смещение для дочернего
	Friction    float32
	Restitution float32
	UserData    uint64
}

// Cuboid создаёт описание кубоида с полуразмерами hx, hy, hz
func Cuboid(hx, hy, hz float32) ColliderDesc {
	return ColliderDesc{
		HalfExtents: mgl32.Vec3{hx, hy, hz},
		Friction:    0.5,
	}
}

func (d ColliderDesc) WithTranslation(t mgl32.Vec3) ColliderDesc {
	d.Translation = t
	return d
}

func (d ColliderDesc) WithFriction(f float32) ColliderDesc {
	d.Friction = f
	return d
}

func (d ColliderDesc) WithRestitution(r float32) ColliderDesc {
	d.Restitution = r
	return d
}

func (d ColliderDesc) WithUserData(u uint64) ColliderDesc {
	d.UserData = u
	return d
}

// Collider коллайдер в симуляции: либо свободный (статический),
// либо дочерний к динамическому телу.
type Collider struct {
	HalfExtents mgl32.Vec3
	Friction    float32
	Restitution float32
	UserData    uint64

	translation mgl32.Vec3
	offset      mgl32.Vec3
	parent      BodyHandle
	hasParent   bool

	// ячейки широкой фазы, в которые коллайдер вставлен
	cells    cellRange
	inserted bool
}

// Translation возвращает текущую мировую позицию центра коллайдера
func (c *Collider) Translation() mgl32.Vec3 { return c.translation }

// Parent возвращает тело-владельца, если коллайдер дочерний
func (c *Collider) Parent() (BodyHandle, bool) {
	return c.parent, c.hasParent
}

// Desc возвращает описание, по которому можно построить такой же коллайдер
func (c *Collider) Desc() ColliderDesc {
	return ColliderDesc{
		HalfExtents: c.HalfExtents,
		Translation: c.translation,
		Friction:    c.Friction,
		Restitution: c.Restitution,
		UserData:    c.UserData,
	}
}

// AABB возвращает ограничивающий бокс коллайдера
func (c *Collider) AABB() AABB {
	return AABB{
		Min: c.translation.Sub(c.HalfExtents),
		Max: c.translation.Add(c.HalfExtents),
	}
}
