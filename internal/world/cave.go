// Package world связывает генерацию, физику, обратную запись и выстрелы в один кадр.
package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxel-cave/internal/camera"
	"github.com/annel0/voxel-cave/internal/config"
	"github.com/annel0/voxel-cave/internal/generator"
	"github.com/annel0/voxel-cave/internal/interaction"
	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/metrics"
	"github.com/annel0/voxel-cave/internal/noise"
	"github.com/annel0/voxel-cave/internal/observability"
	"github.com/annel0/voxel-cave/internal/physics"
	cavesync "github.com/annel0/voxel-cave/internal/sync"
	"github.com/annel0/voxel-cave/internal/voxel"
)

var (
	ErrInvalidResolution       = voxel.ErrInvalidResolution
	ErrResolutionNotPowerOfTwo = errors.New("разрешение должно быть степенью двойки")
	ErrResolutionTooLarge      = errors.New("разрешение превышает максимум")
)

// FrameStats тайминги и итоги одного кадра
type FrameStats struct {
	Frame     uint64        `json:"frame"`
	Dt        time.Duration `json:"dt"`
	Step      time.Duration `json:"step"`
	WriteBack time.Duration `json:"write_back"`
	Handoff   time.Duration `json:"handoff"`
	Written   int           `json:"written"`
	Evicted   int           `json:"evicted"`
}

// Stats состояние пещеры для инспектора
type Stats struct {
	Resolution int            `json:"resolution"`
	Epoch      string         `json:"epoch"`
	WorldSize  float32        `json:"world_size"`
	Preset     string         `json:"preset"`
	Rebuild    time.Duration  `json:"rebuild"`
	Counts     physics.Counts `json:"counts"`
	LastFrame  FrameStats     `json:"last_frame"`
}

// Cave владеет физическим миром и сеткой одной эпохи разрешения.
// Не потокобезопасна: все вызовы идут из одной горутины (см. Loop).
type Cave struct {
	cfg        *config.Config
	world      *physics.World
	grid       *voxel.Grid // цель обратной записи
	front      *voxel.Grid // копия, переданная наружу в конце кадра
	controller interaction.Controller

	epoch       string
	rebuildTime time.Duration
	changed     bool
	frame       uint64
	last        FrameStats

	metrics *metrics.FrameMetrics
	tracer  trace.Tracer
	log     *logging.Logger
}

// New строит пещеру с разрешением из конфигурации. m может быть nil.
func New(cfg *config.Config, m *metrics.FrameMetrics) (*Cave, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Cave{
		cfg: cfg,
		controller: interaction.Controller{
			LaunchSpeed: cfg.Interaction.LaunchSpeed,
			MaxDistance: cfg.Interaction.MaxDistance,
		},
		metrics: m,
		tracer:  observability.Tracer(),
		log:     logging.GetComponentLogger(logging.ComponentWorld),
	}
	if err := c.SetResolution(context.Background(), cfg.World.Resolution); err != nil {
		return nil, err
	}
	return c, nil
}

// ValidateResolution проверяет разрешение до любых аллокаций
func (c *Cave) ValidateResolution(r int) error {
	if r <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, r)
	}
	if c.cfg.World.RequirePowerOfTwo && r&(r-1) != 0 {
		return fmt.Errorf("%w: %d", ErrResolutionNotPowerOfTwo, r)
	}
	if limit := c.cfg.World.MaxResolution; limit > 0 && r > limit {
		return fmt.Errorf("%w: %d > %d", ErrResolutionTooLarge, r, limit)
	}
	return nil
}

// SetResolution заново генерирует пещеру и полностью перестраивает физический мир.
// При ошибке текущая эпоха остаётся нетронутой.
func (c *Cave) SetResolution(ctx context.Context, r int) error {
	if err := c.ValidateResolution(r); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "cave.rebuild", trace.WithAttributes(attribute.Int("resolution", r)))
	defer span.End()
	start := time.Now()

	settings, err := c.generatorSettings()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var grid *voxel.Grid
	if c.cfg.World.Pattern == config.PatternLattice {
		grid, err = generator.CubicLattice(r)
	} else {
		grid, err = generator.Caves(r, settings)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("генерация пещеры: %w", err)
	}

	_, physSpan := c.tracer.Start(ctx, "physics.build")
	w, err := physics.New(grid, c.physicsParams())
	physSpan.End()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("построение физики: %w", err)
	}

	c.world = w
	c.grid = grid
	c.front = grid.Clone()
	c.epoch = uuid.NewString()
	c.rebuildTime = time.Since(start)
	c.changed = true

	c.metrics.SetResolution(r)
	c.metrics.ObservePhase(metrics.PhaseRebuild, c.rebuildTime)
	span.SetAttributes(attribute.String("epoch", c.epoch))
	c.log.Info("🔄 Новая эпоха %s: res=%d solid=%d за %s", c.epoch, r, grid.SolidCount(), c.rebuildTime)
	return nil
}

// Update выполняет кадр: шаг физики, обратная запись, передача копии сетки
func (c *Cave) Update(ctx context.Context, dt time.Duration) FrameStats {
	ctx, span := c.tracer.Start(ctx, "cave.frame")
	defer span.End()

	c.frame++
	fs := FrameStats{Frame: c.frame, Dt: dt}

	start := time.Now()
	_, stepSpan := c.tracer.Start(ctx, "physics.step")
	c.world.Update(dt)
	stepSpan.End()
	fs.Step = time.Since(start)

	start = time.Now()
	rep := cavesync.WriteVoxels(c.world.Engine(), c.world.WorldSize(), c.grid)
	fs.WriteBack = time.Since(start)
	fs.Written, fs.Evicted = rep.Written, rep.Evicted

	start = time.Now()
	copy(c.front.Voxels, c.grid.Voxels)
	fs.Handoff = time.Since(start)

	c.last = fs
	counts := c.world.Counts()
	c.metrics.ObservePhase(metrics.PhaseStep, fs.Step)
	c.metrics.ObservePhase(metrics.PhaseWriteBack, fs.WriteBack)
	c.metrics.ObservePhase(metrics.PhaseHandoff, fs.Handoff)
	c.metrics.Frame(counts.Colliders, counts.Bodies, counts.Sleeping, fs.Written, fs.Evicted)

	span.SetAttributes(
		attribute.Int64("frame", int64(fs.Frame)),
		attribute.Int("evicted", fs.Evicted),
	)
	if fs.Evicted > 0 {
		c.log.Debug("🕳️ Кадр %d: вытеснено %d", fs.Frame, fs.Evicted)
	}
	return fs
}

// Fire стреляет лучом из позы камеры
func (c *Cave) Fire(ctx context.Context, pose camera.Pose) interaction.Result {
	_, span := c.tracer.Start(ctx, "cave.fire")
	defer span.End()

	ray, ok := camera.Ray(pose, c.world.WorldSize())
	if !ok {
		c.metrics.Shot(metrics.ShotMiss)
		return interaction.Result{}
	}

	res := c.controller.Fire(c.world.Engine(), ray)
	switch {
	case !res.Hit:
		c.metrics.Shot(metrics.ShotMiss)
	case res.Detached:
		c.metrics.Shot(metrics.ShotDetached)
	case res.Redirected:
		c.metrics.Shot(metrics.ShotRedirected)
	default:
		c.metrics.Shot(metrics.ShotStale)
	}
	span.SetAttributes(attribute.Bool("hit", res.Hit), attribute.Bool("detached", res.Detached))
	return res
}

// CurrentVoxelGrid возвращает копию сетки, переданной в последнем кадре
func (c *Cave) CurrentVoxelGrid() *voxel.Grid {
	return c.front.Clone()
}

// ResolutionChanged сообщает о новой эпохе один раз после перестройки
func (c *Cave) ResolutionChanged() (int, bool) {
	if !c.changed {
		return 0, false
	}
	c.changed = false
	return c.world.Resolution(), true
}

func (c *Cave) Resolution() int { return c.world.Resolution() }

func (c *Cave) Epoch() string { return c.epoch }

// Stats возвращает состояние пещеры
func (c *Cave) Stats() Stats {
	return Stats{
		Resolution: c.world.Resolution(),
		Epoch:      c.epoch,
		WorldSize:  c.world.WorldSize(),
		Preset:     c.cfg.Noise.Preset,
		Rebuild:    c.rebuildTime,
		Counts:     c.world.Counts(),
		LastFrame:  c.last,
	}
}

func (c *Cave) generatorSettings() (generator.Settings, error) {
	n := c.cfg.Noise
	preset, err := noise.ParsePreset(n.Preset)
	if err != nil {
		return generator.Settings{}, err
	}
	s := generator.DefaultSettings(preset)
	s.Noise.Seed = n.Seed
	s.Noise.Frequency = n.Frequency
	if n.Threshold != 0 {
		s.Threshold = n.Threshold
	}
	return s, nil
}

func (c *Cave) physicsParams() physics.Params {
	pc := c.cfg.Physics
	p := physics.DefaultParams()
	p.WorldSize = c.cfg.World.WorldSize
	p.Gravity = mgl32.Vec3{0, pc.Gravity, 0}
	p.Friction = pc.Friction
	p.Restitution = pc.Restitution
	p.InitialLinvel = mgl32.Vec3{0, pc.InitialUpVelocity, 0}
	p.DynamicTopFraction = pc.DynamicTopFraction
	if pc.MaxDt > 0 {
		p.Integration.MaxDt = pc.MaxDt
	}
	if pc.Substep > 0 {
		p.Integration.Substep = pc.Substep
	}
	return p
}
