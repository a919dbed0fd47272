package voxel

// Layer z-слой сетки только для чтения
type Layer struct {
	Z          int
	resolution int
	cells      []Voxel
}

// At возвращает воксель слоя в точке (x, y)
func (l Layer) At(x, y int) Voxel {
	return l.cells[x+y*l.resolution]
}

// Len возвращает количество ячеек слоя (resolution²)
func (l Layer) Len() int { return len(l.cells) }

// MutLayer изменяемый z-слой. Слои из MutLayers не пересекаются,
// поэтому их можно заполнять параллельно без синхронизации.
type MutLayer struct {
	Z          int
	resolution int
	Cells      []Voxel
}

// Set записывает воксель слоя в точке (x, y)
func (l MutLayer) Set(x, y int, v Voxel) {
	l.Cells[x+y*l.resolution] = v
}

// Layers нарезает буфер на resolution слоев длиной resolution²
func Layers(voxels []Voxel, resolution int) []Layer {
	stride := resolution * resolution
	if resolution <= 0 || len(voxels) != stride*resolution {
		return nil
	}

	layers := make([]Layer, 0, resolution)
	for z := 0; z < resolution; z++ {
		layers = append(layers, Layer{
			Z:          z,
			resolution: resolution,
			cells:      voxels[z*stride : (z+1)*stride : (z+1)*stride],
		})
	}
	return layers
}

// MutLayers нарезает буфер на непересекающиеся изменяемые слои.
// Ёмкость каждого слоя ограничена, append не может залезть в соседний слой.
func MutLayers(voxels []Voxel, resolution int) []MutLayer {
	stride := resolution * resolution
	if resolution <= 0 || len(voxels) != stride*resolution {
		return nil
	}

	layers := make([]MutLayer, 0, resolution)
	for z := 0; z < resolution; z++ {
		layers = append(layers, MutLayer{
			Z:          z,
			resolution: resolution,
			Cells:      voxels[z*stride : (z+1)*stride : (z+1)*stride],
		})
	}
	return layers
}
