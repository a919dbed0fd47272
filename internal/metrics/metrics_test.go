package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFrameMetrics_NilSafe(t *testing.T) {
	var m *FrameMetrics
	assert.NotPanics(t, func() {
		m.ObservePhase(PhaseStep, time.Millisecond)
		m.Frame(1, 2, 3, 4, 5)
		m.SetResolution(64)
		m.Shot(ShotMiss)
	})
}

func TestFrameMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFrameMetrics(reg)

	m.Frame(100, 10, 4, 90, 2)
	m.Frame(98, 9, 9, 88, 1)
	m.SetResolution(32)
	m.Shot(ShotDetached)
	m.Shot(ShotDetached)
	m.Shot(ShotMiss)
	m.ObservePhase(PhaseStep, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames))
	assert.Equal(t, 98.0, testutil.ToFloat64(m.colliders))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.sleeping))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.evicted), "счётчик накапливается")
	assert.Equal(t, 32.0, testutil.ToFloat64(m.resolution))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.shots.WithLabelValues(ShotDetached)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shots.WithLabelValues(ShotMiss)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.phase))
}

func TestNewFrameMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewFrameMetrics(reg)
	assert.Panics(t, func() { NewFrameMetrics(reg) })
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", FormatUptime(5*time.Second))
	assert.Equal(t, "2м 5с", FormatUptime(2*time.Minute+5*time.Second))
	assert.Equal(t, "1ч 0м 0с", FormatUptime(time.Hour))
	assert.Equal(t, "1д 2ч 0м 0с", FormatUptime(26*time.Hour))
}

func TestProcessMetrics_Snapshot(t *testing.T) {
	s := NewProcessMetrics().Snapshot()
	assert.Greater(t, s.Goroutines, 0)
	assert.Greater(t, s.MemoryMB, 0.0)
	assert.NotEmpty(t, s.Uptime)
}
