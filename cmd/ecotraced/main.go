// v1
// cmd/ecotraced/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nksrentas/ecotrace/internal/api"
	"github.com/nksrentas/ecotrace/internal/audit"
	"github.com/nksrentas/ecotrace/internal/breaker"
	"github.com/nksrentas/ecotrace/internal/cache"
	"github.com/nksrentas/ecotrace/internal/config"
	"github.com/nksrentas/ecotrace/internal/engine"
	"github.com/nksrentas/ecotrace/internal/fusion"
	"github.com/nksrentas/ecotrace/internal/geo"
	"github.com/nksrentas/ecotrace/internal/logging"
	"github.com/nksrentas/ecotrace/internal/metrics"
	"github.com/nksrentas/ecotrace/internal/source"
)

func main() {
	log, logFile := logging.Init()
	defer logFile.Close()

	cfg := config.FromEnv()
	log.Info("config loaded", "bind", cfg.BindAddr, "liveGrid", cfg.LiveGridURL,
		"bias", cfg.BiasMultiplier, "deadline", cfg.CalcDeadline,
		"auditRetention", cfg.AuditRetention, "kafkaEnabled", len(cfg.KafkaBrokers) > 0)

	m := metrics.New()

	bcfg := breaker.Config{
		MaxFailures:      cfg.BreakerMaxFailures,
		Cooldown:         cfg.BreakerCooldown,
		ExtendedCooldown: cfg.BreakerExtendedCooldown,
	}

	guard := func(p source.Provider) source.Provider {
		g := source.Guard(p, bcfg, log)
		g.Breaker().OnTransition(m.BreakerTransition)
		return g
	}
	providers := []source.Provider{
		guard(source.NewGridAverage()),
		guard(source.NewCloudProvider()),
	}
	if cfg.LiveGridURL != "" {
		providers = append(providers, guard(source.NewLiveGrid(cfg.LiveGridURL, nil)))
	}

	pub := audit.NewPublisher(audit.PublisherConfig{
		Enabled: len(cfg.KafkaBrokers) > 0,
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	}, bcfg, log)

	ledger := audit.NewLedger(audit.Config{
		Retention:     cfg.AuditRetention,
		MaxRecords:    cfg.AuditMaxRecords,
		SweepInterval: cfg.AuditSweepInterval,
	}, log, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ledger.Run(ctx)

	methods := audit.NewMethodologyStore(log)
	seedMethodology(log, methods)

	eng := engine.New(log, engine.Config{
		BiasMultiplier: cfg.BiasMultiplier,
		Thresholds: fusion.Thresholds{
			Match:     cfg.MatchThreshold,
			Close:     cfg.CloseThreshold,
			Divergent: cfg.DivergentThreshold,
		},
		Deadline: cfg.CalcDeadline,
	}, geo.NewResolver(log), providers, ledger, methods, m)

	h := &api.Handlers{
		Log:         log,
		Engine:      eng,
		Ledger:      ledger,
		Methods:     methods,
		AuditCache:  cache.New[*audit.Record]("audit", cfg.CacheTTL, m),
		MethodCache: cache.New[*audit.Version]("methodology", cfg.CacheTTL, m),
	}

	srv := api.NewServer(cfg.BindAddr, log, h, m.Handler())

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", "err", err)
		}
	}()
	log.Info("ecotraced started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	cancel()
	if pub != nil {
		pub.Stop()
	}
	log.Info("ecotraced stopped")
}

func seedMethodology(log *slog.Logger, s *audit.MethodologyStore) {
	if _, err := s.Current(); err == nil {
		return
	}
	_, err := s.Create(audit.Methodology{
		Name:        "conservative_weighted_fusion",
		Description: "Reliability-weighted multi-source fusion with a conservative bias multiplier.",
		Parameters: map[string]float64{
			"biasMultiplier":     1.15,
			"matchThreshold":     0.05,
			"closeThreshold":     0.15,
			"divergentThreshold": 0.40,
		},
	}, []string{"initial version"}, "system", "1.0.0")
	if err == nil {
		log.Info("methodology seeded", "version", "1.0.0")
	}
}
