// Package camera описывает позу наблюдателя и превращает её в луч выстрела.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-cave/internal/physics"
)

// Pose положение камеры в долях мира [0, 1] и направление взгляда
type Pose struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
}

// Camera камера со свободным обзором: yaw вокруг Y, pitch вокруг X
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
}

// New создаёт камеру в точке position, смотрящую вдоль +Z
func New(position mgl32.Vec3) *Camera {
	return &Camera{Position: position}
}

// Look поворачивает камеру. Pitch ограничен ±π/2, yaw заворачивается в [0, 2π).
func (c *Camera) Look(dYaw, dPitch float32) {
	c.Yaw = wrap(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = mgl32.Clamp(c.Pitch+dPitch, -math.Pi/2, math.Pi/2)
}

// Rotation матрица поворота камеры
func (c *Camera) Rotation() mgl32.Mat3 {
	return mgl32.Rotate3DY(c.Yaw).Mul3(mgl32.Rotate3DX(c.Pitch))
}

// Forward единичный вектор взгляда
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Rotation().Mul3x1(mgl32.Vec3{0, 0, 1})
}

// Move сдвигает камеру в её собственной системе координат
func (c *Camera) Move(local mgl32.Vec3) {
	c.Position = c.Position.Add(c.Rotation().Mul3x1(local))
}

// Pose возвращает текущую позу
func (c *Camera) Pose() Pose {
	return Pose{Position: c.Position, Forward: c.Forward()}
}

// Ray переводит позу в луч в мировых единицах. false при нулевом направлении.
func Ray(p Pose, worldSize float32) (physics.Ray, bool) {
	if p.Forward.Len() == 0 {
		return physics.Ray{}, false
	}
	return physics.Ray{
		Origin: p.Position.Mul(worldSize),
		Dir:    p.Forward.Normalize(),
	}, true
}

func wrap(v, period float32) float32 {
	v = float32(math.Mod(float64(v), float64(period)))
	if v < 0 {
		v += period
	}
	return v
}
