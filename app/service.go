package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	formationapi "github.com/kilianp07/rakeform/api/formation"
	"github.com/kilianp07/rakeform/config"
	"github.com/kilianp07/rakeform/core/formation"
	"github.com/kilianp07/rakeform/core/history"
	historystore "github.com/kilianp07/rakeform/core/history/store"
	coremetrics "github.com/kilianp07/rakeform/core/metrics"
	coremon "github.com/kilianp07/rakeform/core/monitoring"
	"github.com/kilianp07/rakeform/infra/logger"
	"github.com/kilianp07/rakeform/infra/metrics"
	"github.com/kilianp07/rakeform/infra/monitoring"
	"github.com/kilianp07/rakeform/infra/mqtt"
	"github.com/kilianp07/rakeform/internal/eventbus"
)

// Service wires the formation engine to its history store, metrics sinks,
// MQTT publisher and HTTP API.
type Service struct {
	Orchestrator *formation.Orchestrator
	History      *history.PlanHistory

	cfg       *config.Config
	sink      coremetrics.MetricsSink
	bus       eventbus.EventBus
	publisher *mqtt.PlanPublisher
	log       logger.Logger
}

// New creates a Service from the configuration. Stored plans are restored
// into the in-memory history.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	store, err := historystore.New(ctx, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	hist := history.New(store)
	if err := hist.Restore(ctx); err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("restore history: %w", err)
	}

	strategies, err := formation.NewStrategies(cfg.Formation)
	if err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("strategies: %w", err)
	}
	orch, err := formation.NewOrchestrator(strategies, hist, logger.New("formation"), sink)
	if err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	orch.SetConfig(cfg.Formation)
	bus := eventbus.New()
	orch.SetBus(bus)

	svc := &Service{
		Orchestrator: orch,
		History:      hist,
		cfg:          cfg,
		sink:         sink,
		bus:          bus,
		log:          logg,
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPlanPublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
	}
	logg.Infof("formation service ready: algorithms=%v history=%s plans=%d", orch.Algorithms(), cfg.History.Backend, hist.Len())
	return svc, nil
}

// Handler returns the HTTP API with authentication, rate limiting and panic
// recovery.
func (s *Service) Handler() http.Handler {
	apiLog := logger.New("api")
	h := formationapi.NewHandler(s.Orchestrator, s.History, apiLog)
	h = formationapi.RequireToken(s.cfg.Server.Token, h)
	h = formationapi.RateLimit(s.cfg.Server.RateLimit, s.cfg.Server.Burst, h)
	return formationapi.Recover(apiLog, h)
}

// Run serves the API, the Prometheus endpoint and the plan publisher until
// the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.publisher != nil {
		results := s.History.Subscribe()
		coremon.Go(func() {
			defer s.History.Unsubscribe(results)
			s.publisher.Run(ctx, results)
		})
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		coremon.Go(func() {
			if err := metrics.ServePrometheus(ctx, addr, logger.New("prometheus")); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("formation API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	s.bus.Close()
	if n := s.History.Dropped(); n > 0 {
		s.log.Warnf("%d plan broadcasts dropped by slow subscribers", n)
	}
	coremon.Flush(s.cfg.Sentry.FlushTimeout)
	return s.History.Close()
}
