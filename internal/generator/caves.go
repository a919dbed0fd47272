// Package generator строит воксельную пещеру из поля шума и порога.
package generator

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/noise"
	"github.com/annel0/voxel-cave/internal/voxel"
)

// Settings параметры генерации пещеры
type Settings struct {
	Noise     noise.Params
	Threshold float32 // ячейка твёрдая, если значение шума строго больше порога
}

// DefaultSettings возвращает настройки пресета: seed 42, частота и порог по умолчанию
func DefaultSettings(preset noise.Preset) Settings {
	return Settings{
		Noise:     noise.Params{Preset: preset, Seed: noise.DefaultSeed},
		Threshold: noise.DefaultThreshold(preset),
	}
}

// ToColor квантует координату решётки в канал цвета 0..255
func ToColor(i, resolution int) uint8 {
	return uint8(i * 256 / resolution)
}

// Caves генерирует сетку resolution³. Твёрдая ячейка получает цвет
// [z, y, x] в квантованных координатах и альфу 255.
func Caves(resolution int, s Settings) (*voxel.Grid, error) {
	if resolution <= 0 {
		return nil, voxel.ErrInvalidResolution
	}

	log := logging.GetComponentLogger(logging.ComponentGenerator)
	start := time.Now()

	log.Info("🌫️ Генерация шума пещеры: res=%d preset=%s seed=%d", resolution, s.Noise.Preset, s.Noise.Seed)
	field, err := noise.Field(resolution, s.Noise)
	if err != nil {
		return nil, fmt.Errorf("генерация шума: %w", err)
	}

	grid, err := voxel.NewGrid(resolution)
	if err != nil {
		return nil, err
	}

	log.Debug("⛏️ Прокладка пещер по %d слоям", resolution)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, layer := range voxel.MutLayers(grid.Voxels, resolution) {
		g.Go(func() error {
			digLayer(layer, field, resolution, s.Threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("✅ Пещера готова: res=%d solid=%d за %s", resolution, grid.SolidCount(), time.Since(start))
	return grid, nil
}

// digLayer заполняет один z-слой. Слой пишет только в свою память.
func digLayer(layer voxel.MutLayer, field []float32, resolution int, threshold float32) {
	z := layer.Z
	zOffs := z * resolution * resolution
	for y := 0; y < resolution; y++ {
		for x := 0; x < resolution; x++ {
			if field[x+y*resolution+zOffs] > threshold {
				layer.Set(x, y, voxel.Voxel{
					ToColor(z, resolution),
					ToColor(y, resolution),
					ToColor(x, resolution),
					255,
				})
			}
		}
	}
}

// CubicLattice строит отладочную решётку: каждая восьмая ячейка в диапазоне [32, r-32).
// Для r <= 64 результат пуст.
func CubicLattice(resolution int) (*voxel.Grid, error) {
	grid, err := voxel.NewGrid(resolution)
	if err != nil {
		return nil, err
	}
	for z := 32; z < resolution-32; z += 8 {
		for y := 32; y < resolution-32; y += 8 {
			for x := 32; x < resolution-32; x += 8 {
				grid.Set(x, y, z, voxel.Voxel{uint8(z), uint8(y), uint8(x), 255})
			}
		}
	}
	return grid, nil
}
