package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxel-cave/internal/camera"
	"github.com/annel0/voxel-cave/internal/interaction"
	"github.com/annel0/voxel-cave/internal/logging"
	"github.com/annel0/voxel-cave/internal/metrics"
	"github.com/annel0/voxel-cave/internal/middleware"
	"github.com/annel0/voxel-cave/internal/world"
)

// Заголовки ответа GET /grid
const (
	HeaderResolution = "X-Voxel-Resolution"
	HeaderEpoch      = "X-Voxel-Epoch"
)

// Backend то, чем управляет инспектор. Реализуется world.Loop.
type Backend interface {
	Snapshot() *world.Snapshot
	SetResolution(ctx context.Context, r int) error
	Fire(ctx context.Context, pose camera.Pose) (interaction.Result, error)
}

var _ Backend = (*world.Loop)(nil)

// InspectorServer отладочный HTTP-инспектор пещеры
type InspectorServer struct {
	router  *gin.Engine
	backend Backend
	srv     *http.Server
	metrics *metrics.ProcessMetrics
	encoder *zstd.Encoder
	log     *logging.Logger
}

// Config содержит конфигурацию инспектора
type Config struct {
	Port     string                // адрес для запуска сервера
	Backend  Backend               // цикл кадров
	Registry prometheus.Registerer // регистр HTTP-метрик, nil: глобальный
	Tracing  bool                  // спаны OpenTelemetry на каждый запрос
}

// NewInspectorServer создает новый инспектор
func NewInspectorServer(cfg Config) (*InspectorServer, error) {
	if cfg.Port == "" {
		cfg.Port = ":8090"
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	log := logging.GetComponentLogger(logging.ComponentInspector)
	if cfg.Tracing {
		router.Use(otelgin.Middleware("cave_inspector"))
	}
	router.Use(middleware.NewRequestLogger(log).Handler())

	promMw := middleware.NewPrometheusMiddleware("cave_inspector", cfg.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &InspectorServer{
		router:  router,
		backend: cfg.Backend,
		metrics: metrics.NewProcessMetrics(),
		encoder: enc,
		log:     log,
		srv: &http.Server{
			Addr:              cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes настраивает маршруты инспектора
func (s *InspectorServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/stats", s.handleStats)
	s.router.GET("/grid", s.handleGrid)
	s.router.POST("/resolution", s.handleSetResolution)
	s.router.POST("/fire", s.handleFire)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ResolutionRequest запрос смены разрешения
type ResolutionRequest struct {
	Resolution int `json:"resolution" binding:"required"`
}

// FireRequest запрос выстрела. Позиция в долях мира [0, 1].
type FireRequest struct {
	Position *mgl32.Vec3 `json:"position" binding:"required"`
	Forward  *mgl32.Vec3 `json:"forward" binding:"required"`
}

// FireResponse итог выстрела
type FireResponse struct {
	Hit        bool       `json:"hit"`
	Detached   bool       `json:"detached"`
	Redirected bool       `json:"redirected"`
	Point      mgl32.Vec3 `json:"point"`
	Toi        float32    `json:"toi"`
}

// handleHealth проверка состояния сервера
func (s *InspectorServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает тайминги кадра, счётчики мира и метрики процесса
func (s *InspectorServer) handleStats(c *gin.Context) {
	snap := s.backend.Snapshot()
	if snap == nil {
		s.unavailable(c)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"cave":    snap.Stats,
			"process": s.metrics.Snapshot(),
		},
	})
}

// handleGrid отдаёт последнюю сетку RGBA, сжатую zstd
func (s *InspectorServer) handleGrid(c *gin.Context) {
	snap := s.backend.Snapshot()
	if snap == nil || snap.Grid == nil {
		s.unavailable(c)
		return
	}
	payload := s.encoder.EncodeAll(snap.Grid.Bytes(), nil)

	c.Header(HeaderResolution, strconv.Itoa(snap.Grid.Resolution))
	c.Header(HeaderEpoch, snap.Stats.Epoch)
	c.Data(http.StatusOK, "application/zstd", payload)
}

// handleSetResolution перестраивает пещеру
func (s *InspectorServer) handleSetResolution(c *gin.Context) {
	var req ResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	if err := s.backend.SetResolution(c.Request.Context(), req.Resolution); err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("🔧 Разрешение изменено через инспектор: %d", req.Resolution)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Разрешение изменено",
		Data:    gin.H{"resolution": req.Resolution},
	})
}

// handleFire стреляет лучом из переданной позы
func (s *InspectorServer) handleFire(c *gin.Context) {
	var req FireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	res, err := s.backend.Fire(c.Request.Context(), camera.Pose{Position: *req.Position, Forward: *req.Forward})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Выстрел выполнен",
		Data: FireResponse{
			Hit:        res.Hit,
			Detached:   res.Detached,
			Redirected: res.Redirected,
			Point:      res.Point,
			Toi:        res.Toi,
		},
	})
}

// fail переводит ошибку цикла в HTTP-статус
func (s *InspectorServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, world.ErrInvalidResolution),
		errors.Is(err, world.ErrResolutionNotPowerOfTwo),
		errors.Is(err, world.ErrResolutionTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, world.ErrLoopStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		s.log.Error("❌ Ошибка запроса: %v", err)
	}
	c.JSON(status, GenericResponse{
		Success: false,
		Message: err.Error(),
	})
}

func (s *InspectorServer) unavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, GenericResponse{
		Success: false,
		Message: "Пещера ещё не готова",
	})
}

// Handler возвращает HTTP-обработчик инспектора
func (s *InspectorServer) Handler() http.Handler { return s.router }

// Start запускает инспектор и блокируется до остановки
func (s *InspectorServer) Start() error {
	s.log.Info("🔍 Инспектор пещеры слушает %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop плавно останавливает инспектор
func (s *InspectorServer) Stop(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.encoder.Close()
	return err
}
