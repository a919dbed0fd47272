// Package metrics экспортирует метрики кадра пещеры в Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/voxel-cave/internal/logging"
)

const namespace = "cave"

// Фазы кадра
const (
	PhaseStep      = "step"
	PhaseWriteBack = "write_back"
	PhaseHandoff   = "handoff"
	PhaseRebuild   = "rebuild"
)

// Исходы выстрела
const (
	ShotMiss       = "miss"
	ShotDetached   = "detached"
	ShotRedirected = "redirected"
	ShotStale      = "stale"
)

// FrameMetrics метрики кадра. Все методы безопасны для nil-получателя,
// так что мир можно запускать без метрик.
type FrameMetrics struct {
	phase      *prometheus.HistogramVec
	colliders  prometheus.Gauge
	bodies     prometheus.Gauge
	sleeping   prometheus.Gauge
	resolution prometheus.Gauge
	solid      prometheus.Gauge
	evicted    prometheus.Counter
	shots      *prometheus.CounterVec
	frames     prometheus.Counter
}

// NewFrameMetrics создаёт метрики и регистрирует их в reg.
// При reg == nil используется глобальный регистр.
func NewFrameMetrics(reg prometheus.Registerer) *FrameMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &FrameMetrics{
		phase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_phase_seconds",
			Help:      "Длительность фаз кадра.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"phase"}),
		colliders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "colliders",
			Help:      "Количество коллайдеров в физическом мире.",
		}),
		bodies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bodies",
			Help:      "Количество динамических тел.",
		}),
		sleeping: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bodies_sleeping",
			Help:      "Количество спящих тел.",
		}),
		resolution: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolution",
			Help:      "Текущее разрешение сетки.",
		}),
		solid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solid_voxels",
			Help:      "Твёрдые воксели в последней переданной сетке.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_colliders_total",
			Help:      "Коллайдеры, удалённые за пределами мира.",
		}),
		shots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_total",
			Help:      "Выстрелы лучом по исходу.",
		}, []string{"outcome"}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Обработанные кадры.",
		}),
	}

	reg.MustRegister(m.phase, m.colliders, m.bodies, m.sleeping, m.resolution,
		m.solid, m.evicted, m.shots, m.frames)
	return m
}

func (m *FrameMetrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phase.WithLabelValues(phase).Observe(d.Seconds())
}

// Frame отмечает завершённый кадр и обновляет счётчики мира
func (m *FrameMetrics) Frame(colliders, bodies, sleeping, solid, evicted int) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.colliders.Set(float64(colliders))
	m.bodies.Set(float64(bodies))
	m.sleeping.Set(float64(sleeping))
	m.solid.Set(float64(solid))
	if evicted > 0 {
		m.evicted.Add(float64(evicted))
	}
}

func (m *FrameMetrics) SetResolution(r int) {
	if m == nil {
		return
	}
	m.resolution.Set(float64(r))
}

func (m *FrameMetrics) Shot(outcome string) {
	if m == nil {
		return
	}
	m.shots.WithLabelValues(outcome).Inc()
}

// Exporter отдаёт /metrics на отдельном порту
type Exporter struct {
	srv *http.Server
}

// NewExporter создаёт HTTP-эндпоинт для gatherer. При nil используется глобальный регистр.
func NewExporter(addr string, gatherer prometheus.Gatherer) *Exporter {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Exporter{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Start запускает HTTP-сервер в отдельной горутине
func (e *Exporter) Start() {
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", e.srv.Addr)
		if err := e.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
}

// Stop останавливает HTTP-сервер
func (e *Exporter) Stop(ctx context.Context) error {
	return e.srv.Shutdown(ctx)
}
