package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/textsummarizer/ai/metrics"
	"github.com/hrygo/textsummarizer/session"
)

// sessionMetrics feeds a client store into a Prometheus exporter and, when
// an address is configured, serves it on /metrics until closed.
type sessionMetrics struct {
	exporter *metrics.PrometheusExporter
	echo     *echo.Echo
	listener net.Listener
}

func startSessionMetrics(ctx context.Context, addr string) (*sessionMetrics, error) {
	m := &sessionMetrics{exporter: metrics.NewPrometheusExporter(metrics.DefaultConfig())}
	if addr == "" {
		return m, nil
	}

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Listener = listener
	e.GET("/metrics", echo.WrapHandler(m.exporter.Handler()))
	m.echo, m.listener = e, listener

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics: stopped unexpectedly", "error", err)
		}
	}()
	slog.Info("metrics: listening", "addr", listener.Addr().String())
	return m, nil
}

func (m *sessionMetrics) option() session.Option {
	return session.WithMetrics(m.exporter)
}

// Addr returns the bound address, or "" when metrics are not served.
func (m *sessionMetrics) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *sessionMetrics) Close() {
	if m.echo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.echo.Shutdown(ctx); err != nil {
		slog.Warn("metrics: shutdown failed", "error", err)
	}
}
