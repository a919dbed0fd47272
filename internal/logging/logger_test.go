package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withOptions(t *testing.T, opts Options) {
	t.Helper()
	prev := defaultOptions
	Configure(opts)
	t.Cleanup(func() { Configure(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"", WARN},
		{"trace", TRACE},
		{" Debug ", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"error", ERROR},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in, WARN)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	got, err := ParseLevel("loud", INFO)
	assert.Error(t, err)
	assert.Equal(t, INFO, got)
}

func TestLogger_ConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	withOptions(t, Options{ConsoleLevel: WARN, FileLevel: DEBUG, Console: &buf})

	l, err := NewLogger("physics")
	require.NoError(t, err)

	l.Info("тело уснуло")
	l.Warn("шаг обрезан до %s", "500ms")

	out := buf.String()
	assert.NotContains(t, out, "тело уснуло")
	assert.Contains(t, out, "[WARN] [physics] шаг обрезан до 500ms")
}

func TestLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	withOptions(t, Options{Dir: dir, ConsoleLevel: ERROR, FileLevel: DEBUG, Console: &buf})

	l, err := NewLogger("sync")
	require.NoError(t, err)
	l.Debug("вытеснено %d", 3)
	l.Trace("не попадёт в файл")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "повторное закрытие безопасно")

	files, err := filepath.Glob(filepath.Join(dir, "sync_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [sync] вытеснено 3")
	assert.NotContains(t, string(data), "не попадёт")
	assert.Empty(t, buf.String())
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ничего")
		_ = l.Close()
	})
}

func TestManager_CachesAndSetsLevel(t *testing.T) {
	var buf bytes.Buffer
	withOptions(t, Options{ConsoleLevel: INFO, Console: &buf})

	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	a, err := lm.GetLogger("generator")
	require.NoError(t, err)
	b, err := lm.GetLogger("generator")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, []string{"generator"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("generator", DEBUG, DEBUG))
	a.Debug("слой %d", 7)
	assert.Contains(t, buf.String(), "[DEBUG] [generator] слой 7")

	assert.Error(t, lm.SetLogLevel("missing", DEBUG, DEBUG))
	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestManager_FallsBackToConsole(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	var buf bytes.Buffer
	withOptions(t, Options{Dir: blocker, ConsoleLevel: DEBUG, FileLevel: DEBUG, Console: &buf})

	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	_, err := lm.GetLogger(ComponentPhysics)
	require.Error(t, err)

	l := lm.MustGetLogger(ComponentPhysics)
	require.NotNil(t, l)
	l.Debug("шаг %d", 2)

	out := buf.String()
	assert.Contains(t, out, "[WARN] [physics] ⚠️ Файл лога недоступен")
	assert.Contains(t, out, "[DEBUG] [physics] шаг 2", "запасной логгер берёт пороги из опций")
	assert.Empty(t, lm.ListComponents(), "запасной логгер не кешируется")
}

func TestManager_ListsSortedAndForgetsOnClose(t *testing.T) {
	withOptions(t, Options{Dir: t.TempDir(), ConsoleLevel: ERROR, FileLevel: DEBUG, Console: &bytes.Buffer{}})

	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	for _, c := range []string{ComponentSync, ComponentGenerator, ComponentWorld} {
		_, err := lm.GetLogger(c)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"generator", "sync", "world"}, lm.ListComponents())

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())

	again, err := lm.GetLogger(ComponentSync)
	require.NoError(t, err)
	assert.NotNil(t, again)
	require.NoError(t, lm.CloseAll())
}
