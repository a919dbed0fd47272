package physics

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/voxel"
)

// DefaultWorldSize размер стороны мира в мировых единицах
const DefaultWorldSize = 512

var ErrNilGrid = errors.New("сетка вокселей не задана")

// Params параметры построения физического мира
type Params struct {
	WorldSize   float32
	Gravity     mgl32.Vec3
	Integration IntegrationParameters
	Friction    float32
	Restitution float32

	// InitialLinvel начальная скорость тел верхнего слоя
	InitialLinvel mgl32.Vec3
	// DynamicTopFraction доля высоты сверху, которая становится динамической.
	// 0 означает только слой y == r-1.
	DynamicTopFraction float32
}

// DefaultParams возвращает параметры по умолчанию
func DefaultParams() Params {
	return Params{
		WorldSize:   DefaultWorldSize,
		Gravity:     mgl32.Vec3{0, -9.81, 0},
		Integration: DefaultIntegrationParameters(),
		Friction:    0.5,
		Restitution: 0.5,
	}
}

// Counts счётчики объектов мира
type Counts struct {
	Colliders int `json:"colliders"`
	Bodies    int `json:"bodies"`
	Sleeping  int `json:"sleeping"`
}

// World физический мир пещеры: по коллайдеру-кубу на каждый твёрдый воксель.
// Верхний слой превращается в динамические тела, остальное статично.
type World struct {
	params     Params
	resolution int
	vws        float32
	sim        *Simulation
}

// New строит мир из сетки
func New(grid *voxel.Grid, p Params) (*World, error) {
	w := &World{params: p}
	if err := w.SetVoxels(grid); err != nil {
		return nil, err
	}
	return w, nil
}

// SetVoxels полностью перестраивает мир из новой сетки.
// Старая симуляция заменяется только после успешной сборки новой.
func (w *World) SetVoxels(grid *voxel.Grid) error {
	if grid == nil {
		return ErrNilGrid
	}
	if grid.Resolution <= 0 {
		return fmt.Errorf("построение физического мира: %w", voxel.ErrInvalidResolution)
	}

	log := logging.GetComponentLogger(logging.ComponentPhysics)
	start := time.Now()

	r := grid.Resolution
	vws := voxel.WorldSize(r, w.params.WorldSize)
	radius := vws / 2
	sim := NewSimulation(w.params.Gravity, w.params.Integration, vws)
	dynamicFrom := dynamicThreshold(r, w.params.DynamicTopFraction)

	var static, dynamic int
	for _, layer := range voxel.Layers(grid.Voxels, r) {
		for y := 0; y < r; y++ {
			for x := 0; x < r; x++ {
				v := layer.At(x, y)
				if v.Empty() {
					continue
				}

				desc := Cuboid(radius, radius, radius).
					WithFriction(w.params.Friction).
					WithRestitution(w.params.Restitution).
					WithUserData(voxel.Pack(v))
				center := voxel.Center(x, y, layer.Z, vws)

				if y >= dynamicFrom {
					body := sim.InsertBody(NewDynamicBody(center, w.params.InitialLinvel))
					sim.InsertColliderWithParent(desc, body)
					dynamic++
				} else {
					sim.InsertCollider(desc.WithTranslation(center))
					static++
				}
			}
		}
	}

	w.sim = sim
	w.resolution = r
	w.vws = vws

	log.Info("🧱 Физический мир построен: res=%d static=%d dynamic=%d за %s", r, static, dynamic, time.Since(start))
	return nil
}

// dynamicThreshold возвращает нижний слой y, начиная с которого воксели становятся телами
func dynamicThreshold(resolution int, fraction float32) int {
	if fraction <= 0 {
		return resolution - 1
	}
	if fraction > 1 {
		fraction = 1
	}
	return int(float32(resolution) * (1 - fraction))
}

// Update продвигает симуляцию на min(dt, MaxDt)
func (w *World) Update(dt time.Duration) {
	w.sim.Step(dt)
}

// Engine возвращает движок для запросов и изменений
func (w *World) Engine() Engine { return w.sim }

// Resolution возвращает разрешение сетки, по которой построен мир
func (w *World) Resolution() int { return w.resolution }

// VoxelWorldSize возвращает размер ребра вокселя в мировых единицах
func (w *World) VoxelWorldSize() float32 { return w.vws }

// WorldSize возвращает длину стороны мира
func (w *World) WorldSize() float32 { return w.params.WorldSize }

// Counts считает коллайдеры, тела и спящие тела
func (w *World) Counts() Counts {
	c := Counts{
		Colliders: w.sim.ColliderCount(),
		Bodies:    w.sim.BodyCount(),
	}
	w.sim.Bodies(func(_ BodyHandle, b *RigidBody) bool {
		if b.Sleeping {
			c.Sleeping++
		}
		return true
	})
	return c
}
