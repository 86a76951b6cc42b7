package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eduwatcheru/eduwatcheru/internal/api/handlers"
	apimw "github.com/eduwatcheru/eduwatcheru/internal/api/middleware"
	"github.com/eduwatcheru/eduwatcheru/internal/api/ratelimit"
	"github.com/eduwatcheru/eduwatcheru/internal/config"
	"github.com/eduwatcheru/eduwatcheru/internal/health"
	"github.com/eduwatcheru/eduwatcheru/internal/logger"
	"github.com/eduwatcheru/eduwatcheru/internal/metadata"
	"github.com/eduwatcheru/eduwatcheru/internal/scheduler"
	"github.com/eduwatcheru/eduwatcheru/internal/websocket"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Deps are the collaborators the server routes to. Everything except Config
// is optional.
type Deps struct {
	Config    *config.Config
	Catalog   *metadata.Service
	Hub       *websocket.Hub
	Scheduler *scheduler.Scheduler
	Health    *health.Service
	LogBuffer *logger.Buffer
	LogPath   string

	// ProviderCheck probes the catalog provider on demand.
	ProviderCheck health.CheckFunc
}

// Server handles HTTP requests for the EduWatcheru API.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	catalog   *metadata.Service
	hub       *websocket.Hub
	scheduler *scheduler.Scheduler
	health    *health.Service
	checks    map[health.HealthCategory]map[string]health.CheckFunc
	logs      LogsProvider
	limiter   *ratelimit.SearchLimiter
	logger    zerolog.Logger
	startTime time.Time
	stop      chan struct{}
}

// NewServer creates a new API server instance.
func NewServer(deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		echo:      e,
		cfg:       cfg,
		catalog:   deps.Catalog,
		hub:       deps.Hub,
		scheduler: deps.Scheduler,
		health:    deps.Health,
		checks:    make(map[health.HealthCategory]map[string]health.CheckFunc),
		limiter:   ratelimit.NewSearchLimiter(cfg.Search.RequestsPerMinute),
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
		stop:      make(chan struct{}),
	}
	if deps.ProviderCheck != nil {
		s.checks[health.CategoryProvider] = map[string]health.CheckFunc{health.ProviderTMDB: deps.ProviderCheck}
	}
	if deps.Catalog != nil {
		s.checks[health.CategoryCache] = map[string]health.CheckFunc{metadata.CacheHealthID: deps.Catalog.CheckCache}
	}
	if deps.LogBuffer != nil {
		s.logs = bufferLogs{buf: deps.LogBuffer, path: deps.LogPath}
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	var frameHosts []string
	if s.catalog != nil {
		frameHosts = s.catalog.Embed().Hosts()
	}
	s.echo.Use(apimw.SecurityHeaders(frameHosts...))

	s.echo.Use(middleware.BodyLimit("1M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/ws") || c.Path() == "/metrics"
		},
	}))

	s.echo.Use(apimw.Metrics())
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if s.hub != nil {
		s.echo.GET("/ws", s.hub.HandleWebSocket)
	}

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	if s.logs != nil {
		NewLogsHandlers(s.logs).RegisterRoutes(api.Group("/system/logs"))
	}

	if s.scheduler != nil {
		handlers.NewSchedulerHandler(s.scheduler).RegisterRoutes(api.Group("/scheduler"))
	}

	if s.health != nil {
		hh := health.NewHandlers(s.health)
		for category, checks := range s.checks {
			for id, check := range checks {
				hh.SetCheck(category, id, check)
			}
		}
		hh.RegisterRoutes(api.Group("/health"))
	}

	if s.catalog != nil {
		metadata.NewHandlers(s.catalog).RegisterRoutes(api.Group("/catalog"), s.limiter.Middleware())
	}
}

// Start begins listening for HTTP requests. It blocks until the server stops.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	s.limiter.StartCleanup(time.Minute, s.stop)
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	response := map[string]interface{}{
		"version":   config.Version,
		"startTime": s.startTime.UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
		"language":  s.cfg.Catalog.Language,
		"cache": map[string]interface{}{
			"enabled": s.cfg.Catalog.Cache.Enabled,
			"backend": s.cfg.Catalog.Cache.Backend,
		},
		"breakerEnabled": s.cfg.Catalog.Breaker.Enabled,
	}
	if s.hub != nil {
		response["clients"] = s.hub.ClientCount()
	}
	if s.health != nil {
		response["healthy"] = !s.health.GetSummary().HasIssues
	}
	return c.JSON(http.StatusOK, response)
}

type bufferLogs struct {
	buf  *logger.Buffer
	path string
}

func (b bufferLogs) Recent(limit int) []logger.Entry { return b.buf.Recent(limit) }
func (b bufferLogs) FilePath() string                { return b.path }
