package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxel-cave/internal/api"
	"github.com/annel0/voxel-cave/internal/config"
	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/metrics"
	"github.com/annel0/voxel-cave/internal/observability"
	"github.com/annel0/voxel-cave/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (falls back to CAVE_CONFIG)")
		resolution = flag.Int("res", 0, "Override initial resolution")
		preset     = flag.String("preset", "", "Override noise preset: gradient | fbm")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *resolution > 0 {
		cfg.World.Resolution = *resolution
	}
	if *preset != "" {
		cfg.Noise.Preset = *preset
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Некорректная конфигурация: %v", err)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer func() { _ = logging.GetLoggerManager().CloseAll() }()

	if err := run(cfg); err != nil {
		logging.Error("❌ Завершение с ошибкой: %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Пещера остановлена")
}

func setupLogging(lc config.LoggingConfig) error {
	console, err := logging.ParseLevel(lc.ConsoleLevel, logging.INFO)
	if err != nil {
		return err
	}
	file, err := logging.ParseLevel(lc.FileLevel, logging.DEBUG)
	if err != nil {
		return err
	}
	logging.Configure(logging.Options{Dir: lc.Dir, ConsoleLevel: console, FileLevel: file})
	return logging.InitDefaultLogger("cave")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🕳️ Запуск пещеры: res=%d preset=%s world=%.0f", cfg.World.Resolution, cfg.Noise.Preset, cfg.World.WorldSize)

	shutdownTracing, err := observability.InitTelemetry(ctx, "voxel-cave", observability.Options{
		Enabled:  cfg.Server.OtelEnabled,
		Endpoint: cfg.Server.OtelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("телеметрия: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logging.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	frameMetrics := metrics.NewFrameMetrics(reg)

	cave, err := world.New(cfg, frameMetrics)
	if err != nil {
		return fmt.Errorf("построение пещеры: %w", err)
	}
	loop := world.NewLoop(cave, cfg.World.FrameInterval())

	inspector, err := api.NewInspectorServer(api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetInspectorPort()),
		Backend:  loop,
		Registry: reg,
		Tracing:  cfg.Server.OtelEnabled,
	})
	if err != nil {
		return fmt.Errorf("инспектор: %w", err)
	}

	exporter := metrics.NewExporter(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()), reg)
	exporter.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(inspector.Start)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exporter.Stop(sctx); err != nil {
			logging.Warn("⚠️ Ошибка остановки экспортёра метрик: %v", err)
		}
		return inspector.Stop(sctx)
	})

	logging.Info("✅ Пещера запущена")
	logging.Info("   🔍 Инспектор: http://localhost:%d/stats", cfg.Server.GetInspectorPort())
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())

	err = g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
