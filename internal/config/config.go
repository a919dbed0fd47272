package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации пещеры.
// Незаданные в YAML поля сохраняют значения Default().
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Noise       NoiseConfig       `yaml:"noise"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Interaction InteractionConfig `yaml:"interaction"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type WorldConfig struct {
	Resolution        int     `yaml:"resolution"`
	WorldSize         float32 `yaml:"world_size"`
	RequirePowerOfTwo bool    `yaml:"require_power_of_two"` // рендерер строит mip-уровни
	MaxResolution     int     `yaml:"max_resolution"`
	FrameRate         int     `yaml:"frame_rate"`
	Pattern           string  `yaml:"pattern"` // caves | lattice (отладочная решётка)
}

const (
	PatternCaves   = "caves"
	PatternLattice = "lattice"
)

type NoiseConfig struct {
	Preset    string  `yaml:"preset"` // gradient | fbm
	Seed      int64   `yaml:"seed"`
	Frequency float64 `yaml:"frequency"` // 0: частота пресета
	Threshold float32 `yaml:"threshold"` // 0: порог пресета
}

type PhysicsConfig struct {
	Gravity            float32       `yaml:"gravity"`
	MaxDt              time.Duration `yaml:"max_dt"`
	Substep            time.Duration `yaml:"substep"`
	Friction           float32       `yaml:"friction"`
	Restitution        float32       `yaml:"restitution"`
	InitialUpVelocity  float32       `yaml:"initial_up_velocity"`
	DynamicTopFraction float32       `yaml:"dynamic_top_fraction"`
}

type InteractionConfig struct {
	LaunchSpeed float32 `yaml:"launch_speed"`
	MaxDistance float32 `yaml:"max_distance"`
}

type ServerConfig struct {
	InspectorPort int    `yaml:"inspector_port"`
	MetricsPort   int    `yaml:"metrics_port"`
	OtelEnabled   bool   `yaml:"otel_enabled"`
	OtelEndpoint  string `yaml:"otel_endpoint"`
}

type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	Dir          string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Resolution:        64,
			WorldSize:         512,
			RequirePowerOfTwo: true,
			MaxResolution:     512,
			FrameRate:         60,
			Pattern:           PatternCaves,
		},
		Noise: NoiseConfig{
			Preset: "gradient",
			Seed:   42,
		},
		Physics: PhysicsConfig{
			Gravity:     -9.81,
			MaxDt:       500 * time.Millisecond,
			Substep:     time.Second / 60,
			Friction:    0.5,
			Restitution: 0.5,
		},
		Interaction: InteractionConfig{
			LaunchSpeed: 10,
			MaxDistance: 300,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
	}
}

// Validate проверяет значения, без которых мир не построить
func (c *Config) Validate() error {
	var errs []error
	if c.World.Resolution <= 0 {
		errs = append(errs, fmt.Errorf("world.resolution должно быть > 0, получено %d", c.World.Resolution))
	}
	if c.World.WorldSize <= 0 {
		errs = append(errs, fmt.Errorf("world.world_size должно быть > 0, получено %g", c.World.WorldSize))
	}
	if c.World.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("world.frame_rate должно быть > 0, получено %d", c.World.FrameRate))
	}
	if c.World.MaxResolution > 0 && c.World.Resolution > c.World.MaxResolution {
		errs = append(errs, fmt.Errorf("world.resolution %d больше max_resolution %d", c.World.Resolution, c.World.MaxResolution))
	}
	switch c.World.Pattern {
	case "", PatternCaves, PatternLattice:
	default:
		errs = append(errs, fmt.Errorf("world.pattern %q не поддерживается", c.World.Pattern))
	}
	if c.Physics.MaxDt <= 0 {
		errs = append(errs, fmt.Errorf("physics.max_dt должно быть > 0"))
	}
	if c.Interaction.MaxDistance <= 0 {
		errs = append(errs, fmt.Errorf("interaction.max_distance должно быть > 0"))
	}
	return errors.Join(errs...)
}

// FrameInterval возвращает период кадра
func (w *WorldConfig) FrameInterval() time.Duration {
	if w.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(w.FrameRate)
}

// GetInspectorPort возвращает порт инспектора с поддержкой fallback значений
func (s *ServerConfig) GetInspectorPort() int {
	return getPortWithEnvFallback(s.InspectorPort, "CAVE_INSPECTOR_PORT", 8090)
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "CAVE_METRICS_PORT", 2113)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV CAVE_CONFIG,
// а без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CAVE_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
