// Package noise вычисляет непрерывное скалярное поле шума над кубической решёткой.
package noise

import (
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"
)

// Preset определяет тип шума. Пресеты независимы и не смешиваются.
type Preset string

const (
	// Gradient одна октава, поле нормализуется в [0, 1]
	Gradient Preset = "gradient"
	// FBM фрактальный шум из нескольких октав, без нормализации
	FBM Preset = "fbm"
)

const (
	alpha = 2.0 // Сглаживание шума
	beta  = 2.0 // Множитель частоты между октавами

	DefaultSeed int64 = 42
)

// ParsePreset разбирает имя пресета из конфигурации
func ParsePreset(s string) (Preset, error) {
	switch Preset(strings.ToLower(strings.TrimSpace(s))) {
	case "", Gradient:
		return Gradient, nil
	case FBM:
		return FBM, nil
	default:
		return "", fmt.Errorf("неизвестный пресет шума %q", s)
	}
}

func (p Preset) octaves() int32 {
	if p == FBM {
		return 4
	}
	return 1
}

// DefaultFrequency возвращает частоту, при которой рисунок не зависит от разрешения
func DefaultFrequency(p Preset, resolution int) float64 {
	if p == FBM {
		return 14.0 / float64(resolution)
	}
	return 10.0 / float64(resolution)
}

// DefaultThreshold возвращает порог твёрдости для пресета
func DefaultThreshold(p Preset) float32 {
	if p == FBM {
		return 0.045
	}
	return 0.6
}

// Params параметры поля шума
type Params struct {
	Preset    Preset
	Seed      int64
	Frequency float64 // 0: DefaultFrequency
}

// Field вычисляет поле длиной resolution³ в порядке x + y·r + z·r².
// Функция чистая: одинаковые параметры дают одинаковый результат.
func Field(resolution int, p Params) ([]float32, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("разрешение шума должно быть положительным: %d", resolution)
	}

	freq := p.Frequency
	if freq <= 0 {
		freq = DefaultFrequency(p.Preset, resolution)
	}

	gen := perlin.NewPerlin(alpha, beta, p.Preset.octaves(), p.Seed)

	out := make([]float32, resolution*resolution*resolution)
	i := 0
	for z := 0; z < resolution; z++ {
		for y := 0; y < resolution; y++ {
			for x := 0; x < resolution; x++ {
				out[i] = float32(gen.Noise3D(float64(x)*freq, float64(y)*freq, float64(z)*freq))
				i++
			}
		}
	}

	if p.Preset != FBM {
		scale(out, 0, 1)
	}
	return out, nil
}

// scale линейно переводит значения поля в диапазон [lo, hi]
func scale(values []float32, lo, hi float32) {
	if len(values) == 0 {
		return
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	span := max - min
	if span == 0 {
		for i := range values {
			values[i] = lo
		}
		return
	}

	k := (hi - lo) / span
	for i, v := range values {
		values[i] = lo + (v-min)*k
	}
}
