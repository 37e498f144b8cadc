package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/api"
	"github.com/citygridlabs/traffic-twin/internal/config"
	"github.com/citygridlabs/traffic-twin/internal/gateway"
	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/internal/observability"
	"github.com/citygridlabs/traffic-twin/internal/sim"
	"github.com/citygridlabs/traffic-twin/internal/sim/state"
	"github.com/citygridlabs/traffic-twin/ledger"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	httpAddr := flag.String("http-addr", "", "HTTP address for the REST API, overrides the config")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics, overrides the config")
	seed := flag.Bool("seed", false, "Seed the reference network on boot")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.Err(err))
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	collector, err := observability.NewTwinCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	// The store sits behind the gateway so transient faults are retried
	// and reconnects are coalesced.
	client := gateway.New(func(context.Context) (ledger.Client, error) {
		return ledger.Open(ledger.Options{
			Path:       cfg.Store.Path,
			InMemory:   cfg.Store.InMemory,
			SyncWrites: cfg.Store.SyncWrites,
			Logger:     log,
		})
	}, log)

	traffic := state.New(client, log,
		state.WithRecorder(collector),
		state.WithEndorsingOrgs(cfg.EndorsingOrgs...),
	)

	if *seed {
		sum, err := traffic.InitNetwork(ctx)
		if err != nil {
			log.Error(ctx, "failed to seed network", logging.Err(err))
			os.Exit(1)
		}
		log.Info(ctx, "seeded network", logging.Int("assets", sum.Total))
	}

	mitigator := sim.NewMitigator(traffic, log)
	mitigator.Start(ctx)

	orch := sim.New(traffic, log,
		sim.WithBatchSize(cfg.Simulation.BatchSize),
		sim.WithSkipHook(collector.TickSkipped),
		sim.WithTickObserver(collector.ObserveTick),
	)
	if err := orch.SetSpeed(cfg.Simulation.Speed); err != nil {
		log.Error(ctx, "invalid simulation speed", logging.Err(err))
		os.Exit(1)
	}
	if err := orch.SetSpawnRate(cfg.Simulation.SpawnRate); err != nil {
		log.Error(ctx, "invalid spawn rate", logging.Err(err))
		os.Exit(1)
	}
	if cfg.Simulation.Autostart {
		if err := orch.Start(ctx); err != nil {
			log.Error(ctx, "failed to start simulation", logging.Err(err))
			os.Exit(1)
		}
	}

	srv := api.NewServer(traffic, orch, mitigator, log,
		api.WithMiddleware(collector.GinMiddleware()),
	)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	log.Info(ctx, "starting twin server",
		logging.String("httpAddr", cfg.HTTPAddr),
		logging.String("metricsAddr", cfg.MetricsAddr),
	)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server exited", logging.Err(err))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down twin server")
	orch.Stop()
	mitigator.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := client.Close(); err != nil {
		log.Warn(ctx, "store close failed", logging.Err(err))
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

func serveMetrics(addr string, collector *observability.TwinCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
