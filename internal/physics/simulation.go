package physics

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// IntegrationParameters параметры интегратора
type IntegrationParameters struct {
	MaxDt           time.Duration // шаг кадра обрезается до этого значения
	Substep         time.Duration // фиксированный внутренний шаг
	MaxCCDSubsteps  int           // предел дробления шага для быстрых тел
	SleepThreshold  float32       // скорость, ниже которой тело считается покоящимся
	SleepTime       float32       // секунд покоя до засыпания
	Slop            float32       // допустимое проникновение в долях размера ячейки
	BounceThreshold float32       // скорость удара, ниже которой отскок не применяется

	// SolverIterations проходов по контактам за подшаг. Стопки тел сходятся
	// к покою только за несколько проходов.
	SolverIterations int
}

// DefaultIntegrationParameters возвращает параметры по умолчанию
func DefaultIntegrationParameters() IntegrationParameters {
	return IntegrationParameters{
		MaxDt:           500 * time.Millisecond,
		Substep:         time.Second / 60,
		MaxCCDSubsteps:  8,
		SleepThreshold:  0.05,
		SleepTime:       1.0,
		Slop:            0.01,
		BounceThreshold: 1.0,

		SolverIterations: 4,
	}
}

// Simulation однопоточная симуляция твёрдых тел с кубоидными коллайдерами.
// Не потокобезопасна: все вызовы должны идти из одной горутины.
type Simulation struct {
	gravity  mgl32.Vec3
	params   IntegrationParameters
	cellSize float32

	bodies    arena[RigidBody]
	colliders arena[Collider]

	static  *spatialHash // свободные коллайдеры, не двигаются
	dynamic *spatialHash // коллайдеры тел

	scratch []ColliderHandle
}

// NewSimulation создаёт пустую симуляцию. cellSize задаёт размер ячейки широкой фазы,
// обычно равный размеру вокселя.
func NewSimulation(gravity mgl32.Vec3, params IntegrationParameters, cellSize float32) *Simulation {
	return &Simulation{
		gravity:  gravity,
		params:   params,
		cellSize: cellSize,
		static:   newSpatialHash(cellSize),
		dynamic:  newSpatialHash(cellSize),
	}
}

// Gravity возвращает вектор гравитации
func (s *Simulation) Gravity() mgl32.Vec3 { return s.gravity }

// InsertCollider вставляет свободный (статический) коллайдер
func (s *Simulation) InsertCollider(desc ColliderDesc) ColliderHandle {
	idx, gen := s.colliders.insert(newCollider(desc))
	h := ColliderHandle{index: idx, generation: gen}
	c, _ := s.colliders.get(idx, gen)
	s.index(h, c)
	return h
}

// InsertBody вставляет тело без коллайдеров
func (s *Simulation) InsertBody(body RigidBody) BodyHandle {
	body.colliders = nil
	idx, gen := s.bodies.insert(body)
	return BodyHandle{index: idx, generation: gen}
}

// InsertColliderWithParent вставляет коллайдер, прикреплённый к телу.
// desc.Translation трактуется как смещение от центра тела.
func (s *Simulation) InsertColliderWithParent(desc ColliderDesc, parent BodyHandle) (ColliderHandle, bool) {
	body, ok := s.bodies.get(parent.index, parent.generation)
	if !ok {
		return InvalidCollider, false
	}

	c := newCollider(desc)
	c.offset = desc.Translation
	c.translation = body.Translation.Add(desc.Translation)
	c.parent = parent
	c.hasParent = true

	idx, gen := s.colliders.insert(c)
	h := ColliderHandle{index: idx, generation: gen}
	stored, _ := s.colliders.get(idx, gen)
	s.index(h, stored)

	body.colliders = append(body.colliders, h)
	body.Wake()
	return h, true
}

// RemoveCollider удаляет коллайдер. Тело-владелец остаётся, даже если стало пустым.
func (s *Simulation) RemoveCollider(h ColliderHandle) (Collider, bool) {
	c, ok := s.colliders.get(h.index, h.generation)
	if !ok {
		return Collider{}, false
	}

	s.unindex(h, c)
	if c.hasParent {
		if body, ok := s.bodies.get(c.parent.index, c.parent.generation); ok {
			body.colliders = withoutHandle(body.colliders, h)
		}
	}
	s.wakeAround(c.AABB())

	removed, _ := s.colliders.remove(h.index, h.generation)
	removed.inserted = false
	return removed, true
}

// RemoveBody удаляет тело вместе со всеми его коллайдерами
func (s *Simulation) RemoveBody(h BodyHandle) bool {
	body, ok := s.bodies.get(h.index, h.generation)
	if !ok {
		return false
	}

	for _, ch := range body.colliders {
		if c, ok := s.colliders.get(ch.index, ch.generation); ok {
			s.unindex(ch, c)
			s.wakeAround(c.AABB())
			s.colliders.remove(ch.index, ch.generation)
		}
	}
	s.bodies.remove(h.index, h.generation)
	return true
}

// Collider возвращает коллайдер. Указатель действителен до следующей вставки.
func (s *Simulation) Collider(h ColliderHandle) (*Collider, bool) {
	return s.colliders.get(h.index, h.generation)
}

// Body возвращает тело. Указатель действителен до следующей вставки.
func (s *Simulation) Body(h BodyHandle) (*RigidBody, bool) {
	return s.bodies.get(h.index, h.generation)
}

// SetColliderUserData записывает user data коллайдера
func (s *Simulation) SetColliderUserData(h ColliderHandle, userData uint64) bool {
	c, ok := s.colliders.get(h.index, h.generation)
	if !ok {
		return false
	}
	c.UserData = userData
	return true
}

// SetLinvel задаёт линейную скорость тела и будит его
func (s *Simulation) SetLinvel(h BodyHandle, linvel mgl32.Vec3) bool {
	b, ok := s.bodies.get(h.index, h.generation)
	if !ok {
		return false
	}
	b.Linvel = linvel
	b.Wake()
	return true
}

// Colliders обходит все коллайдеры; fn возвращает false для остановки.
// Во время обхода нельзя вставлять или удалять объекты.
func (s *Simulation) Colliders(fn func(h ColliderHandle, c *Collider) bool) {
	s.colliders.each(func(index, generation uint32, c *Collider) bool {
		return fn(ColliderHandle{index: index, generation: generation}, c)
	})
}

// Bodies обходит все тела
func (s *Simulation) Bodies(fn func(h BodyHandle, b *RigidBody) bool) {
	s.bodies.each(func(index, generation uint32, b *RigidBody) bool {
		return fn(BodyHandle{index: index, generation: generation}, b)
	})
}

func (s *Simulation) ColliderCount() int { return s.colliders.count }
func (s *Simulation) BodyCount() int     { return s.bodies.count }

// UpdateQueryPipeline синхронизирует позиции дочерних коллайдеров с телами
// и перестраивает динамическую часть широкой фазы.
func (s *Simulation) UpdateQueryPipeline() {
	s.dynamic.clear()
	s.bodies.each(func(_, _ uint32, b *RigidBody) bool {
		for _, ch := range b.colliders {
			c, ok := s.colliders.get(ch.index, ch.generation)
			if !ok {
				continue
			}
			c.translation = b.Translation.Add(c.offset)
			c.cells = s.dynamic.rangeOf(c.AABB())
			c.inserted = true
			s.dynamic.insert(ch, c.cells)
		}
		return true
	})
}

// Step продвигает симуляцию на min(dt, MaxDt) фиксированными подшагами
func (s *Simulation) Step(dt time.Duration) {
	if dt > s.params.MaxDt {
		dt = s.params.MaxDt
	}
	if dt <= 0 {
		return
	}

	remaining := float32(dt.Seconds())
	h := float32(s.params.Substep.Seconds())
	if h <= 0 {
		h = remaining
	}

	for remaining > 1e-6 {
		step := h
		if remaining < step {
			step = remaining
		}
		s.substep(step)
		remaining -= step
	}
	s.UpdateQueryPipeline()
}

// substep дробит шаг так, чтобы быстрое тело не проходило больше половины ячейки
func (s *Simulation) substep(h float32) {
	n := s.ccdSubsteps(h)
	dt := h / float32(n)
	iterations := max(s.params.SolverIterations, 1)
	for i := 0; i < n; i++ {
		s.integrate(dt)
		for k := 0; k < iterations; k++ {
			s.solveContacts()
		}
		s.updateSleep(dt)
	}
}

func (s *Simulation) ccdSubsteps(h float32) int {
	var maxSpeed float32
	s.bodies.each(func(_, _ uint32, b *RigidBody) bool {
		if !b.Sleeping {
			v := b.Linvel.Add(s.gravity.Mul(b.GravityScale * h)).Len()
			if v > maxSpeed {
				maxSpeed = v
			}
		}
		return true
	})

	limit := s.cellSize * 0.5
	if limit <= 0 || maxSpeed*h <= limit {
		return 1
	}
	n := int(math.Ceil(float64(maxSpeed * h / limit)))
	if n > s.params.MaxCCDSubsteps && s.params.MaxCCDSubsteps > 0 {
		n = s.params.MaxCCDSubsteps
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Simulation) integrate(dt float32) {
	s.bodies.each(func(_, _ uint32, b *RigidBody) bool {
		if b.Sleeping {
			return true
		}
		b.wasSupported, b.supported = b.supported, false
		if b.GravityScale != 0 {
			b.Linvel = b.Linvel.Add(s.gravity.Mul(b.GravityScale * dt))
		}
		b.Translation = b.Translation.Add(b.Linvel.Mul(dt))
		s.syncBody(b)
		return true
	})
}

// solveContacts разрешает контакты бодрствующих тел со статикой и друг с другом
func (s *Simulation) solveContacts() {
	slop := s.params.Slop * s.cellSize

	s.bodies.each(func(bi, bg uint32, b *RigidBody) bool {
		if b.Sleeping {
			return true
		}
		bh := BodyHandle{index: bi, generation: bg}
		// спящее тело будит только удар, покоящийся сосед лежит на нём как на опоре
		moving := b.Linvel.Len() > s.params.BounceThreshold

		for _, ch := range b.colliders {
			c, ok := s.colliders.get(ch.index, ch.generation)
			if !ok {
				continue
			}
			r := s.static.rangeOf(c.AABB().Expand(slop))

			s.scratch = s.scratch[:0]
			s.static.query(r, s.collect)
			for _, oh := range s.scratch {
				if o, ok := s.colliders.get(oh.index, oh.generation); ok {
					s.resolveStatic(b, c, o, slop)
				}
			}

			// хэш меняется при разрешении пар, поэтому кандидаты собираются заранее
			s.scratch = s.scratch[:0]
			s.dynamic.query(r, s.collect)
			for _, oh := range s.scratch {
				o, ok := s.colliders.get(oh.index, oh.generation)
				if !ok || oh == ch || !o.hasParent || o.parent == bh {
					continue
				}
				ob, ok := s.bodies.get(o.parent.index, o.parent.generation)
				if !ok {
					continue
				}
				if ob.Sleeping {
					if moving && touching(c, o, slop) {
						ob.Wake()
					}
				} else if ch.index > oh.index {
					// пару обработает второе тело
					continue
				}
				s.resolveDynamic(b, c, ob, o, slop)
			}
		}
		s.syncBody(b)
		return true
	})
}

// collect добавляет хэндл в scratch без повторов
func (s *Simulation) collect(h ColliderHandle) {
	for _, other := range s.scratch {
		if other == h {
			return
		}
	}
	s.scratch = append(s.scratch, h)
}

// resolveStatic выталкивает тело из статического коллайдера и гасит скорость сближения
func (s *Simulation) resolveStatic(b *RigidBody, c, o *Collider, slop float32) {
	ct, hit := checkBoxCollision(c.translation, c.HalfExtents, o.translation, o.HalfExtents)
	if !hit {
		return
	}
	if ct.normal.Dot(s.gravity) < 0 {
		b.supported = true
	}

	if ct.penetration > slop {
		corr := ct.normal.Mul(ct.penetration - slop)
		b.Translation = b.Translation.Add(corr)
		c.translation = c.translation.Add(corr)
	}

	vn := b.Linvel.Dot(ct.normal)
	if vn >= 0 {
		return
	}

	e := (c.Restitution + o.Restitution) * 0.5
	if -vn < s.params.BounceThreshold {
		e = 0
	}
	j := -(1 + e) * vn
	tangent := b.Linvel.Sub(ct.normal.Mul(vn))
	b.Linvel = b.Linvel.Add(ct.normal.Mul(j))

	mu := (c.Friction + o.Friction) * 0.5
	if tl := tangent.Len(); tl > 1e-6 && mu > 0 {
		dv := mu * j
		if dv > tl {
			dv = tl
		}
		b.Linvel = b.Linvel.Sub(tangent.Mul(dv / tl))
	}
}

// resolveDynamic разрешает контакт двух тел импульсом с учётом масс
func (s *Simulation) resolveDynamic(a *RigidBody, ca *Collider, b *RigidBody, cb *Collider, slop float32) {
	ct, hit := checkBoxCollision(ca.translation, ca.HalfExtents, cb.translation, cb.HalfExtents)
	if !hit {
		return
	}

	// верхнее тело на опоре получает весь импульс, иначе стопка не сходится к покою
	aOnB := ct.normal.Dot(s.gravity) < 0
	bOnA := ct.normal.Dot(s.gravity) > 0
	invA, invB := a.invMass(), b.invMass()
	switch {
	case b.Sleeping || (aOnB && b.resting()):
		invB = 0
	case bOnA && a.resting():
		invA = 0
	}
	if aOnB && b.resting() {
		a.supported = true
	}
	if bOnA && a.resting() {
		b.supported = true
	}
	invSum := invA + invB

	if ct.penetration > slop {
		corr := ct.normal.Mul(ct.penetration - slop)
		a.Translation = a.Translation.Add(corr.Mul(invA / invSum))
		b.Translation = b.Translation.Sub(corr.Mul(invB / invSum))
		ca.translation = a.Translation.Add(ca.offset)
		s.syncBody(b)
	}

	rel := a.Linvel.Sub(b.Linvel)
	vn := rel.Dot(ct.normal)
	if vn >= 0 {
		return
	}

	e := (ca.Restitution + cb.Restitution) * 0.5
	if -vn < s.params.BounceThreshold {
		e = 0
	}
	j := -(1 + e) * vn / invSum
	a.Linvel = a.Linvel.Add(ct.normal.Mul(j * invA))
	b.Linvel = b.Linvel.Sub(ct.normal.Mul(j * invB))

	mu := (ca.Friction + cb.Friction) * 0.5
	tangent := rel.Sub(ct.normal.Mul(vn))
	if tl := tangent.Len(); tl > 1e-6 && mu > 0 {
		jt := tl / invSum
		if limit := mu * j; jt > limit {
			jt = limit
		}
		dir := tangent.Mul(1 / tl)
		a.Linvel = a.Linvel.Sub(dir.Mul(jt * invA))
		b.Linvel = b.Linvel.Add(dir.Mul(jt * invB))
	}
	if -vn > s.params.BounceThreshold {
		b.Wake()
	}
}

func (s *Simulation) updateSleep(dt float32) {
	s.bodies.each(func(_, _ uint32, b *RigidBody) bool {
		if b.Sleeping {
			return true
		}
		if b.Linvel.Len() < s.params.SleepThreshold {
			b.idleTime += dt
			if b.idleTime >= s.params.SleepTime {
				b.Sleeping = true
				b.Linvel = mgl32.Vec3{}
			}
		} else {
			b.idleTime = 0
		}
		return true
	})
}

// syncBody переносит позицию тела в его коллайдеры и обновляет их ячейки
func (s *Simulation) syncBody(b *RigidBody) {
	for _, ch := range b.colliders {
		c, ok := s.colliders.get(ch.index, ch.generation)
		if !ok {
			continue
		}
		c.translation = b.Translation.Add(c.offset)
		r := s.dynamic.rangeOf(c.AABB())
		if c.inserted && r == c.cells {
			continue
		}
		if c.inserted {
			s.dynamic.remove(ch, c.cells)
		}
		s.dynamic.insert(ch, r)
		c.cells = r
		c.inserted = true
	}
}

// wakeAround будит спящие тела рядом с боксом
func (s *Simulation) wakeAround(box AABB) {
	r := s.dynamic.rangeOf(box.Expand(s.cellSize * 0.5))
	s.dynamic.query(r, func(h ColliderHandle) {
		c, ok := s.colliders.get(h.index, h.generation)
		if !ok || !c.hasParent {
			return
		}
		if b, ok := s.bodies.get(c.parent.index, c.parent.generation); ok {
			b.Wake()
		}
	})
}

func (s *Simulation) index(h ColliderHandle, c *Collider) {
	hash := s.static
	if c.hasParent {
		hash = s.dynamic
	}
	c.cells = hash.rangeOf(c.AABB())
	hash.insert(h, c.cells)
	c.inserted = true
}

func (s *Simulation) unindex(h ColliderHandle, c *Collider) {
	if !c.inserted {
		return
	}
	if c.hasParent {
		s.dynamic.remove(h, c.cells)
	} else {
		s.static.remove(h, c.cells)
	}
	c.inserted = false
}

func newCollider(desc ColliderDesc) Collider {
	return Collider{
		HalfExtents: desc.HalfExtents,
		Friction:    desc.Friction,
		Restitution: desc.Restitution,
		UserData:    desc.UserData,
		translation: desc.Translation,
		parent:      InvalidBody,
	}
}

// touching проверяет, касаются ли кубоиды с допуском margin
func touching(a, b *Collider, margin float32) bool {
	d := a.translation.Sub(b.translation)
	for i := 0; i < 3; i++ {
		if abs32(d[i]) > a.HalfExtents[i]+b.HalfExtents[i]+margin {
			return false
		}
	}
	return true
}

func withoutHandle(list []ColliderHandle, h ColliderHandle) []ColliderHandle {
	for i, other := range list {
		if other == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
