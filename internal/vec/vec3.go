package vec

// Vec3 представляет трехмерную координату ячейки решётки вокселей
type Vec3 struct {
	X int
	Y int
	Z int
}

// FromIndex восстанавливает координату по линейному индексу плотного буфера
// со страйдами y = resolution, z = resolution².
func FromIndex(i, resolution int) Vec3 {
	layer := resolution * resolution
	return Vec3{
		X: i % resolution,
		Y: (i % layer) / resolution,
		Z: i / layer,
	}
}

// Index возвращает линейный индекс координаты. Вызывающий обязан проверить InBounds.
func (v Vec3) Index(resolution int) int {
	return v.X + v.Y*resolution + v.Z*resolution*resolution
}

// InBounds проверяет 0 <= x,y,z < resolution
func (v Vec3) InBounds(resolution int) bool {
	return v.X >= 0 && v.X < resolution &&
		v.Y >= 0 && v.Y < resolution &&
		v.Z >= 0 && v.Z < resolution
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}
