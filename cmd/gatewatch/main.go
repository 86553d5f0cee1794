package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gatewatch/gatewatch/pkg/async"
	"github.com/gatewatch/gatewatch/pkg/config"
	"github.com/gatewatch/gatewatch/pkg/events"
	"github.com/gatewatch/gatewatch/pkg/httputil"
	"github.com/gatewatch/gatewatch/pkg/observability"
	"github.com/gatewatch/gatewatch/pkg/webhooks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogJSON, os.Stdout)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	catalog := events.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = events.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to load event catalog")
		}
		log.WithField("path", cfg.CatalogPath).Info("Event catalog loaded")
	}

	engine := webhooks.NewEngine(webhooks.Options{
		Workers:         cfg.Engine.Workers,
		QueueCapacity:   cfg.Engine.QueueCapacity,
		PromoteInterval: cfg.Engine.PromoteInterval,
		DeliveryTimeout: cfg.Engine.DeliveryTimeout,
		HistorySize:     cfg.Engine.HistorySize,
		HistoryTTL:      cfg.Engine.HistoryTTL,
	}, catalog, log, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)

	// API server
	router := mux.NewRouter()
	webhooks.NewHandlers(engine).RegisterRoutes(router.PathPrefix("/api/v1").Subrouter())

	var handler http.Handler = router
	if cfg.Observability.MetricsEnabled {
		handler = metrics.HTTPMiddleware(handler)
	}
	handler = httputil.LoggingMiddleware(log)(handler)
	handler = httputil.RecoveryMiddleware(log)(handler)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics server on a separate port for probes
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Periodic system stats snapshot
	var scheduler *cron.Cron
	if cfg.Observability.StatsLogSchedule != "" {
		scheduler = cron.New()
		_, err = scheduler.AddFunc(cfg.Observability.StatsLogSchedule, func() {
			async.SafeGo(ctx, log, 10*time.Second, "stats snapshot", func(context.Context) error {
				stats := engine.SystemStats()
				log.WithFields(logrus.Fields{
					"total_webhooks":        stats.TotalWebhooks,
					"active_webhooks":       stats.ActiveWebhooks,
					"total_events":          stats.TotalEvents,
					"successful_deliveries": stats.SuccessfulDeliveries,
					"failed_deliveries":     stats.FailedDeliveries,
					"queue_depth":           stats.QueueDepth,
					"retry_pending":         stats.RetryPending,
					"avg_response_time":     stats.AverageResponseTime.String(),
				}).Info("system stats snapshot")
				return nil
			})
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to schedule stats snapshot")
		}
		scheduler.Start()
		log.WithField("schedule", cfg.Observability.StatsLogSchedule).Info("Stats snapshot scheduled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if scheduler != nil {
			<-scheduler.Stop().Done()
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("API server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Health server shutdown failed")
		}
		engine.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("Server error")
	}
	log.Info("Shutdown complete")
}
