package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasops/service-autoscaler/internal/advisor"
	"github.com/atlasops/service-autoscaler/internal/collector"
	"github.com/atlasops/service-autoscaler/internal/dbadmin"
	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/executor"
	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/internal/loop"
	"github.com/atlasops/service-autoscaler/internal/metricsbackend"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/internal/orchestrator"
	"github.com/atlasops/service-autoscaler/internal/policy"
	"github.com/atlasops/service-autoscaler/internal/predictor"
	"github.com/atlasops/service-autoscaler/internal/resilience"
	"github.com/atlasops/service-autoscaler/internal/telemetry"
	"github.com/atlasops/service-autoscaler/pkg/config"
	"github.com/atlasops/service-autoscaler/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run audit database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var auditDB *database.DB
	if cfg.Audit.Enabled {
		auditDB, err = database.New(database.Config{
			Host:            cfg.Audit.Host,
			Port:            cfg.Audit.Port,
			Name:            cfg.Audit.Name,
			User:            cfg.Audit.User,
			Password:        cfg.Audit.Password,
			SSLMode:         cfg.Audit.SSLMode,
			MaxConnections:  cfg.Audit.MaxConnections,
			ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
			PingTimeout:     cfg.Audit.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		defer auditDB.Close()
		logger.Info("Audit database connection established")
	}

	if *migrate {
		if auditDB == nil {
			return fmt.Errorf("migrations require audit.enabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running audit database migrations")
		if err := database.NewMigrator(auditDB).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	var tel *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		tel = telemetry.New(nil)
		telemetry.StartServer(cfg.Telemetry.Port)
	}

	orch := orchestrator.NewHTTPClient(orchestrator.HTTPClientConfig{
		Endpoint: cfg.Orchestrator.Endpoint,
		Timeout:  cfg.Orchestrator.Timeout,
	})
	defer orch.Close()

	backend := metricsbackend.NewResilientBackend(metricsbackend.ResilientBackendConfig{
		Backend: metricsbackend.NewPrometheusBackend(metricsbackend.PrometheusConfig{
			Endpoint:    cfg.MetricsBackend.Endpoint,
			Timeout:     cfg.MetricsBackend.Timeout,
			StepSeconds: cfg.MetricsBackend.StepSeconds,
		}),
		MaxFailures: cfg.MetricsBackend.CircuitBreaker.MaxFailures,
		Timeout:     cfg.MetricsBackend.CircuitBreaker.Timeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	defer backend.Close()

	dbAdmin := dbadmin.NewHTTPClient(dbadmin.HTTPClientConfig{
		Endpoint: cfg.Database.Endpoint,
		Timeout:  cfg.Database.Timeout,
	})
	defer dbAdmin.Close()

	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	audit := events.NewAuditSink(auditDB, bus.SubscribeAll())
	audit.Start()
	defer audit.Stop()

	store := metricstore.New(cfg.Loop.MetricsRetention)
	policies := policy.NewStore(cfg.Services)

	coll := collector.New(collector.Config{
		Orchestrator:        orch,
		Backend:             backend,
		Store:               store,
		Services:            cfg.Services,
		SampleSpan:          cfg.Loop.Interval,
		MemoryBaselineBytes: cfg.Scaling.MemoryBaselineBytes,
		Publisher:           publisher,
		Telemetry:           tel,
	})

	exec := executor.New(orch, dbAdmin, store, publisher, tel, cfg.Services, executor.Config{
		MinReplicas:           cfg.Scaling.MinReplicas,
		MaxReplicas:           cfg.Scaling.MaxReplicas,
		PerReplicaHourlyCost:  cfg.Scaling.PerReplicaHourlyCost,
		HoursPerMonth:         cfg.Scaling.HoursPerMonth,
		CPULimitMultiplier:    cfg.Vertical.CPULimitMultiplier,
		MemoryLimitMultiplier: cfg.Vertical.MemoryLimitMultiplier,
		InstanceClasses:       cfg.Database.InstanceClasses,
		TargetQueueDepth:      cfg.Queue.TargetQueueDepth,
		MinWorkers:            cfg.Queue.MinWorkers,
		MaxWorkers:            cfg.Queue.MaxWorkers,
	})

	engine := policy.NewEngine(policies, store, exec, publisher, tel)

	var predictive *predictor.Scaler
	if cfg.Predictor.Enabled {
		forecaster := predictor.NewBaselineForecaster(cfg.Predictor.ModelArtifact)
		predictive = predictor.NewScaler(store, forecaster, exec, publisher, tel, predictor.Config{
			MinSamples:          cfg.Predictor.MinSamples,
			ConfidenceThreshold: cfg.Predictor.ConfidenceThreshold,
			RatePerReplica:      cfg.Predictor.RatePerReplica,
			ForecastHorizon:     cfg.Predictor.ForecastHorizon,
			MinReplicas:         cfg.Scaling.MinReplicas,
			MaxReplicas:         cfg.Scaling.MaxReplicas,
		})
		defer func() {
			if err := predictive.Close(); err != nil {
				logger.Errorf("Failed to persist model artifact: %v", err)
			}
		}()
	}

	controlLoop := loop.New(loop.Config{
		Interval:  cfg.Loop.Interval,
		Collector: coll,
		Store:     store,
		Policies:  policies,
		Engine:    engine,
		Predictor: predictive,
		Services:  cfg.Services,
		Telemetry: tel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controlLoop.Start(ctx)

	if cfg.Advisor.Enabled {
		adv := advisor.New(store, publisher, exec, advisor.Config{
			IdleCPUPercent: cfg.Advisor.IdleCPUPercent,
			IdleRPS:        cfg.Advisor.IdleRPSCeiling,
			Lookback:       cfg.Advisor.Lookback,
			MinReplicas:    cfg.Scaling.MinReplicas,
		})
		go runAdvisor(ctx, adv, cfg)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdownChan
	logger.Infof("Received signal %v, shutting down", sig)

	cancel()
	controlLoop.Stop()

	logger.Info("Controller stopped gracefully")
	return nil
}

// runAdvisor scans for over-provisioned services once per advisor lookback
// window, offset so the first scan has a full window of data.
func runAdvisor(ctx context.Context, adv *advisor.Advisor, cfg *config.Config) {
	interval := cfg.Advisor.Lookback
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			adv.Scan(cfg.Services, now)
		}
	}
}
