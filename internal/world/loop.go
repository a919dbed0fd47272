package world

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-cave/internal/camera"
	"github.com/annel0/voxel-cave/internal/interaction"
	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/voxel"
)

var ErrLoopStopped = errors.New("цикл кадров остановлен")

// Snapshot неизменяемое состояние, опубликованное после кадра.
// Grid принадлежит снимку и не должен изменяться читателями.
type Snapshot struct {
	Grid  *voxel.Grid
	Stats Stats
	// ResolutionChanged true в первом снимке новой эпохи
	ResolutionChanged bool
}

type command func(ctx context.Context, c *Cave)

// Loop владеет пещерой в единственной горутине. Кадры идут по тикеру,
// внешние запросы ставятся в очередь и выполняются между кадрами,
// так что физический мир никогда не изменяется конкурентно.
type Loop struct {
	cave     *Cave
	interval time.Duration
	cmds     chan command
	snap     atomic.Pointer[Snapshot]
	done     chan struct{}
	log      *logging.Logger
}

// NewLoop создаёт цикл с периодом кадра interval
func NewLoop(cave *Cave, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = time.Second / 60
	}
	l := &Loop{
		cave:     cave,
		interval: interval,
		cmds:     make(chan command, 16),
		done:     make(chan struct{}),
		log:      logging.GetComponentLogger(logging.ComponentLoop),
	}
	l.publish()
	return l
}

// Run выполняет кадры до отмены ctx
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Info("▶️ Цикл кадров запущен: период %s", l.interval)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.log.Info("⏹️ Цикл кадров остановлен")
			return ctx.Err()
		case cmd := <-l.cmds:
			cmd(ctx, l.cave)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			l.cave.Update(ctx, dt)
			l.publish()
		}
	}
}

// publish публикует снимок текущего состояния
func (l *Loop) publish() {
	_, changed := l.cave.ResolutionChanged()
	l.snap.Store(&Snapshot{
		Grid:              l.cave.CurrentVoxelGrid(),
		Stats:             l.cave.Stats(),
		ResolutionChanged: changed,
	})
}

// Snapshot возвращает последний опубликованный снимок
func (l *Loop) Snapshot() *Snapshot {
	return l.snap.Load()
}

// do ставит команду в очередь и ждёт её выполнения. Если ctx истёк
// до начала выполнения, команда снимается и не выполняется. Начатая
// команда всегда доводится до конца, и вызывающий дожидается её.
func (l *Loop) do(ctx context.Context, fn command) error {
	const (
		pending int32 = iota
		running
		abandoned
	)
	var state atomic.Int32
	finished := make(chan struct{})
	wrapped := func(loopCtx context.Context, c *Cave) {
		defer close(finished)
		if !state.CompareAndSwap(pending, running) {
			return
		}
		fn(loopCtx, c)
	}

	select {
	case l.cmds <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(pending, abandoned) {
			return ctx.Err()
		}
		<-finished
		return nil
	case <-l.done:
		if state.CompareAndSwap(pending, abandoned) {
			return ErrLoopStopped
		}
		<-finished
		return nil
	}
}

// SetResolution перестраивает пещеру между кадрами
func (l *Loop) SetResolution(ctx context.Context, r int) error {
	var err error
	if qerr := l.do(ctx, func(ctx context.Context, c *Cave) {
		err = c.SetResolution(ctx, r)
		if err == nil {
			l.publish()
		}
	}); qerr != nil {
		return qerr
	}
	return err
}

// Fire выполняет выстрел между кадрами
func (l *Loop) Fire(ctx context.Context, pose camera.Pose) (interaction.Result, error) {
	var res interaction.Result
	err := l.do(ctx, func(ctx context.Context, c *Cave) {
		res = c.Fire(ctx, pose)
	})
	return res, err
}
