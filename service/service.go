// Package service runs the auxiliary HTTP servers: health checks and prometheus metrics.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qa-agent/qa-acceptor/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	shutdownTimeout = 5 * time.Second
)

// Config selects which servers run and where
type Config struct {
	HealthzAddr    string // empty disables the healthz server
	MetricsEnabled bool
	MetricsHost    string
	MetricsPort    int
}

// DefaultConfig serves healthz on 0.0.0.0:8080 and no metrics
func DefaultConfig() Config {
	return Config{HealthzAddr: net.JoinHostPort(HealthzHost, HealthzPort)}
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer
	log     log.Logger
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	s := &Service{log: logger}
	if cfg.HealthzAddr != "" {
		s.Healthz = NewHealthzServer(cfg.HealthzAddr, logger)
	}
	if cfg.MetricsEnabled {
		s.Metrics = NewMetricsServer(net.JoinHostPort(cfg.MetricsHost, strconv.Itoa(cfg.MetricsPort)))
	}
	return s
}

func (s *Service) Start() {
	s.log.Info("service starting")

	if s.Healthz != nil {
		go func() {
			s.log.Info("starting healthz server", "addr", s.Healthz.server.Addr)
			if err := s.Healthz.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting healthz server", "err", err)
				metrics.RecordErrorDetails("error starting healthz server", err)
			}
		}()
	}

	if s.Metrics != nil {
		go func() {
			s.log.Info("starting metrics server", "addr", s.Metrics.server.Addr)
			if err := s.Metrics.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("error starting metrics server", err)
			}
		}()
	}

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.Healthz != nil {
		_ = s.Healthz.Shutdown(ctx)
		s.log.Info("healthz stopped")
	}
	if s.Metrics != nil {
		_ = s.Metrics.Shutdown(ctx)
		s.log.Info("metrics stopped")
	}

	s.log.Info("service stopped")
}
