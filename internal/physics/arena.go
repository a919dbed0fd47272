package physics

import "math"

// ColliderHandle ссылается на коллайдер. После удаления хэндл становится недействительным,
// даже если слот переиспользован (проверяется поколение).
type ColliderHandle struct {
	index      uint32
	generation uint32
}

// BodyHandle ссылается на твёрдое тело
type BodyHandle struct {
	index      uint32
	generation uint32
}

// InvalidBody хэндл, не указывающий ни на одно тело
var InvalidBody = BodyHandle{index: math.MaxUint32}

// InvalidCollider хэндл, не указывающий ни на один коллайдер
var InvalidCollider = ColliderHandle{index: math.MaxUint32}

// slot ячейка арены
type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// arena хранит объекты в слайсе со списком свободных слотов
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

func (a *arena[T]) insert(v T) (uint32, uint32) {
	a.count++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = v
		s.occupied = true
		return idx, s.generation
	}
	a.slots = append(a.slots, slot[T]{value: v, occupied: true})
	return uint32(len(a.slots) - 1), 0
}

func (a *arena[T]) get(index, generation uint32) (*T, bool) {
	if int(index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[index]
	if !s.occupied || s.generation != generation {
		return nil, false
	}
	return &s.value, true
}

func (a *arena[T]) remove(index, generation uint32) (T, bool) {
	var zero T
	if int(index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[index]
	if !s.occupied || s.generation != generation {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.occupied = false
	s.generation++
	a.free = append(a.free, index)
	a.count--
	return v, true
}

// each обходит занятые слоты; fn возвращает false для остановки
func (a *arena[T]) each(fn func(index, generation uint32, v *T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(uint32(i), s.generation, &s.value) {
			return
		}
	}
}
