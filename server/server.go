// Package server is the summarization and extraction HTTP backend.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/textsummarizer/ai/cache"
	"github.com/hrygo/textsummarizer/ai/metrics"
	"github.com/hrygo/textsummarizer/ai/summary"
	"github.com/hrygo/textsummarizer/internal/profile"
	"github.com/hrygo/textsummarizer/session"
)

const defaultMaxUploadMB = 50

// Deps are the services the backend exposes over HTTP.
type Deps struct {
	Summarizer summary.Summarizer
	Extractor  session.Extractor
	Metrics    *metrics.PrometheusExporter // optional
	Logger     *slog.Logger                // optional
}

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	listener   net.Listener
	summarizer summary.Summarizer
	extractor  session.Extractor
	cache      *cache.SummaryCache
	limiter    *rate.Limiter
	metrics    *metrics.PrometheusExporter
	logger     *slog.Logger
}

func NewServer(ctx context.Context, profile *profile.Profile, deps Deps) (*Server, error) {
	if deps.Summarizer == nil {
		return nil, errors.New("server requires a summarizer")
	}
	if deps.Extractor == nil {
		return nil, errors.New("server requires an extractor")
	}

	s := &Server{
		Profile:    profile,
		summarizer: deps.Summarizer,
		extractor:  deps.Extractor,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if profile.CacheSize > 0 {
		s.cache = cache.NewSummaryCache(profile.CacheSize, time.Duration(profile.CacheTTL)*time.Second)
	}
	if profile.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(profile.RateLimit), max(profile.RateBurst, 1))
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"duration_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				s.logger.Warn("server: request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Debug("server: request", attrs...)
			return nil
		},
	}))
	echoServer.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))
	s.echoServer = echoServer

	echoServer.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		echoServer.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	maxUpload := profile.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadMB
	}
	apiGroup := echoServer.Group("/api", middleware.BodyLimit(fmt.Sprintf("%dM", maxUpload)))
	apiGroup.POST("/extract-text", s.handleExtractText)
	apiGroup.POST("/summarize", s.handleSummarize)

	s.logger.DebugContext(ctx, "server: routes registered",
		"cache", s.cache != nil,
		"rate_limit", profile.RateLimit,
		"max_upload_mb", maxUpload,
	)
	return s, nil
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echoServer.ServeHTTP(w, r)
}

// Start binds the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	s.listener = listener
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server: stopped unexpectedly", "error", err)
		}
	}()
	s.logger.Info("server: listening", "addr", listener.Addr().String(), "mode", s.Profile.Mode)
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("server: failed to shutdown", "error", err)
	}
	s.logger.Info("server: stopped properly")
}
