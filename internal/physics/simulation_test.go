package physics

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCell = 8

func newTestSimulation(gravity mgl32.Vec3) *Simulation {
	return NewSimulation(gravity, DefaultIntegrationParameters(), testCell)
}

func cube() ColliderDesc {
	return Cuboid(testCell/2, testCell/2, testCell/2)
}

func stepFor(s *Simulation, total time.Duration) {
	for total > 0 {
		dt := 500 * time.Millisecond
		if total < dt {
			dt = total
		}
		s.Step(dt)
		total -= dt
	}
}

func TestSimulation_RemoveColliderInvalidatesHandle(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	h := s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 4}).WithUserData(11))

	c, ok := s.RemoveCollider(h)
	require.True(t, ok)
	assert.Equal(t, uint64(11), c.UserData)

	_, ok = s.Collider(h)
	assert.False(t, ok)
	_, ok = s.RemoveCollider(h)
	assert.False(t, ok, "повторное удаление не выполняется")
	assert.Equal(t, 0, s.ColliderCount())
}

func TestSimulation_RemoveBodyRemovesItsColliders(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{4, 4, 4}, mgl32.Vec3{}))
	ch, ok := s.InsertColliderWithParent(cube(), b)
	require.True(t, ok)

	parent, ok := func() (BodyHandle, bool) {
		c, _ := s.Collider(ch)
		return c.Parent()
	}()
	require.True(t, ok)
	assert.Equal(t, b, parent)

	assert.True(t, s.RemoveBody(b))
	_, ok = s.Collider(ch)
	assert.False(t, ok, "коллайдер удаляется вместе с телом")
	assert.Equal(t, 0, s.BodyCount())
	assert.Equal(t, 0, s.ColliderCount())
	assert.False(t, s.RemoveBody(b))
}

func TestSimulation_InsertWithStaleParentFails(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{}, mgl32.Vec3{}))
	require.True(t, s.RemoveBody(b))

	_, ok := s.InsertColliderWithParent(cube(), b)
	assert.False(t, ok)
	assert.Equal(t, 0, s.ColliderCount())
}

func TestSimulation_StepClampsDt(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}))
	_, ok := s.InsertColliderWithParent(cube(), b)
	require.True(t, ok)

	s.Step(2 * time.Second)

	body, ok := s.Body(b)
	require.True(t, ok)
	assert.InDelta(t, 0.5, body.Translation.X(), 1e-3, "шаг ограничен 0.5 с")
}

func TestSimulation_ZeroGravityRestingCubesStayPut(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 4}))
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{4, 12, 4}, mgl32.Vec3{}))
	_, ok := s.InsertColliderWithParent(cube(), b)
	require.True(t, ok)

	stepFor(s, 3*time.Second)

	body, _ := s.Body(b)
	assert.Equal(t, mgl32.Vec3{4, 12, 4}, body.Translation)
	assert.True(t, body.Sleeping, "неподвижное тело засыпает")
	assert.Equal(t, 2, s.ColliderCount())
	assert.Equal(t, 1, s.BodyCount())
}

func TestSimulation_BodyFallsAndRestsOnStatic(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{0, -9.81, 0})
	s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 4}).WithRestitution(0.5))
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{4, 20, 4}, mgl32.Vec3{}))
	_, ok := s.InsertColliderWithParent(cube().WithRestitution(0.5), b)
	require.True(t, ok)

	stepFor(s, 10*time.Second)

	body, _ := s.Body(b)
	assert.InDelta(t, 12.0, body.Translation.Y(), 0.25, "тело лежит на статическом кубе")
	assert.InDelta(t, 4.0, body.Translation.X(), 1e-3)
	assert.InDelta(t, 4.0, body.Translation.Z(), 1e-3)
	assert.Less(t, body.Linvel.Len(), float32(0.1))
}

// insertColumn ставит height тел друг на друга над статическим кубом в точке (x, 4, z).
// При topFirst тела вставляются сверху вниз.
func insertColumn(t *testing.T, s *Simulation, x, z float32, height int, topFirst bool) []BodyHandle {
	t.Helper()
	s.InsertCollider(cube().WithTranslation(mgl32.Vec3{x, 4, z}))
	bodies := make([]BodyHandle, height)
	for i := 0; i < height; i++ {
		level := i
		if topFirst {
			level = height - 1 - i
		}
		pos := mgl32.Vec3{x, 12 + float32(level)*testCell, z}
		h := s.InsertBody(NewDynamicBody(pos, mgl32.Vec3{}))
		_, ok := s.InsertColliderWithParent(cube(), h)
		require.True(t, ok)
		bodies[level] = h
	}
	return bodies
}

func TestSimulation_StackedBodiesFallAsleep(t *testing.T) {
	tests := []struct {
		name     string
		height   int
		topFirst bool
	}{
		{"два тела снизу вверх", 2, false},
		{"два тела сверху вниз", 2, true},
		{"столбик из шести", 6, false},
		{"столбик из шести сверху вниз", 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSimulation(mgl32.Vec3{0, -9.81, 0})
			column := insertColumn(t, s, 4, 4, tt.height, tt.topFirst)
			single := insertColumn(t, s, 100, 4, 1, false)

			stepFor(s, 10*time.Second)

			for level, h := range append(column, single...) {
				body, ok := s.Body(h)
				require.True(t, ok)
				assert.True(t, body.Sleeping, "тело %d должно уснуть, linvel=%v", level, body.Linvel)
				assert.Equal(t, mgl32.Vec3{}, body.Linvel)
			}
			for level, h := range column {
				body, _ := s.Body(h)
				want := 12 + float32(level)*testCell
				assert.InDelta(t, want, body.Translation.Y(), 1.0, "уровень %d", level)
			}
		})
	}
}

func TestSimulation_SideBySideStacksFallAsleep(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{0, -9.81, 0})
	var all []BodyHandle
	for x := 0; x < 3; x++ {
		for z := 0; z < 3; z++ {
			all = append(all, insertColumn(t, s, 4+float32(x)*testCell, 4+float32(z)*testCell, 2, false)...)
		}
	}

	stepFor(s, 10*time.Second)

	sleeping := 0
	for _, h := range all {
		if body, _ := s.Body(h); body.Sleeping {
			sleeping++
		}
	}
	assert.Equal(t, len(all), sleeping)
}

func TestSimulation_FastBodyWakesSleepingStack(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{0, -9.81, 0})
	column := insertColumn(t, s, 4, 4, 2, false)
	stepFor(s, 3*time.Second)
	top, _ := s.Body(column[1])
	require.True(t, top.Sleeping)

	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{-6, 20, 4}, mgl32.Vec3{20, 0, 0}))
	_, ok := s.InsertColliderWithParent(cube(), b)
	require.True(t, ok)
	s.Step(200 * time.Millisecond)

	top, _ = s.Body(column[1])
	assert.False(t, top.Sleeping, "удар будит верхнее тело")
	assert.Greater(t, top.Linvel.X(), float32(0))
}

func TestSimulation_DynamicCollisionConservesMomentum(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	a := s.InsertBody(NewDynamicBody(mgl32.Vec3{4, 4, 4}, mgl32.Vec3{5, 0, 0}))
	_, ok := s.InsertColliderWithParent(cube().WithRestitution(0.5), a)
	require.True(t, ok)
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{20, 4, 4}, mgl32.Vec3{}))
	_, ok = s.InsertColliderWithParent(cube().WithRestitution(0.5), b)
	require.True(t, ok)

	stepFor(s, 3*time.Second)

	ba, _ := s.Body(a)
	bb, _ := s.Body(b)
	assert.InDelta(t, 5.0, ba.Linvel.X()+bb.Linvel.X(), 1e-3, "импульс сохраняется")
	assert.Greater(t, bb.Linvel.X(), ba.Linvel.X(), "второе тело получает импульс")
	assert.Less(t, ba.Translation.X(), bb.Translation.X())
}

func TestSimulation_RemovingSupportWakesBody(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	support := s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 4}))
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{4, 12, 4}, mgl32.Vec3{}))
	_, ok := s.InsertColliderWithParent(cube(), b)
	require.True(t, ok)

	stepFor(s, 2*time.Second)
	body, _ := s.Body(b)
	require.True(t, body.Sleeping)

	_, ok = s.RemoveCollider(support)
	require.True(t, ok)
	body, _ = s.Body(b)
	assert.False(t, body.Sleeping, "тело просыпается после удаления опоры")
}

func TestSimulation_SetLinvelWakes(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{}, mgl32.Vec3{}))
	stepFor(s, 2*time.Second)
	body, _ := s.Body(b)
	require.True(t, body.Sleeping)

	assert.True(t, s.SetLinvel(b, mgl32.Vec3{0, 0, 10}))
	body, _ = s.Body(b)
	assert.False(t, body.Sleeping)
	assert.Equal(t, mgl32.Vec3{0, 0, 10}, body.Linvel)
}

func TestCastRay_HitsNearestStatic(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	near := s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 4}))
	s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 28}))
	s.UpdateQueryPipeline()

	hit, ok := s.CastRay(Ray{Origin: mgl32.Vec3{4, 4, -100}, Dir: mgl32.Vec3{0, 0, 1}}, 300)
	require.True(t, ok)
	assert.Equal(t, near, hit.Collider)
	assert.InDelta(t, 100.0, hit.Toi, 1e-3)
	assert.InDelta(t, 0.0, hit.Point.Z(), 1e-3)
}

func TestCastRay_FromBehind(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 4}))
	far := s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 28}))
	s.UpdateQueryPipeline()

	hit, ok := s.CastRay(Ray{Origin: mgl32.Vec3{4, 4, 100}, Dir: mgl32.Vec3{0, 0, -1}}, 300)
	require.True(t, ok)
	assert.Equal(t, far, hit.Collider)
	assert.InDelta(t, 68.0, hit.Toi, 1e-3)
}

func TestCastRay_OriginInsideAndOutOfRange(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	h := s.InsertCollider(cube().WithTranslation(mgl32.Vec3{4, 4, 4}))
	s.UpdateQueryPipeline()

	hit, ok := s.CastRay(Ray{Origin: mgl32.Vec3{4, 4, 2}, Dir: mgl32.Vec3{0, 0, 1}}, 300)
	require.True(t, ok)
	assert.Equal(t, h, hit.Collider)
	assert.Equal(t, float32(0), hit.Toi)

	_, ok = s.CastRay(Ray{Origin: mgl32.Vec3{4, 4, -100}, Dir: mgl32.Vec3{0, 0, 1}}, 50)
	assert.False(t, ok, "коллайдер дальше maxToi")

	_, ok = s.CastRay(Ray{Origin: mgl32.Vec3{4, 4, -100}, Dir: mgl32.Vec3{}}, 300)
	assert.False(t, ok, "нулевое направление")
}

func TestCastRay_DiagonalHitsDynamicBody(t *testing.T) {
	s := newTestSimulation(mgl32.Vec3{})
	b := s.InsertBody(NewDynamicBody(mgl32.Vec3{36, 36, 36}, mgl32.Vec3{}))
	ch, ok := s.InsertColliderWithParent(cube(), b)
	require.True(t, ok)
	s.UpdateQueryPipeline()

	dir := mgl32.Vec3{1, 1, 1}.Normalize()
	hit, ok := s.CastRay(Ray{Origin: mgl32.Vec3{0, 0, 0}, Dir: dir}, 300)
	require.True(t, ok)
	assert.Equal(t, ch, hit.Collider)
	assert.InDelta(t, 32*1.7320508, hit.Toi, 1e-2)
}
