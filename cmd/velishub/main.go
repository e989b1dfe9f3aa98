package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velishub/velishub/internal/config"
	"github.com/velishub/velishub/internal/core"
	"github.com/velishub/velishub/internal/history"
	"github.com/velishub/velishub/internal/logging"
	"github.com/velishub/velishub/internal/plugins"
	"github.com/velishub/velishub/internal/router"
	"github.com/velishub/velishub/internal/server"
	"github.com/velishub/velishub/internal/session"
)

// runner is implemented by plugins that own background work.
type runner interface {
	Start(ctx context.Context)
	Stop()
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the daemon config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(logging.ErrorLevel).Fatalw("config load failed", "path", *configPath, "err", err)
	}

	log := logging.New(cfg.Core.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := history.InitDB(cfg.History.Path)
	if err != nil {
		log.Fatalw("history database init failed", "path", cfg.History.Path, "err", err)
	}
	defer db.Close()
	repo := history.NewRepo(db)

	var blob session.BlobStore
	if cfg.Session.Blob != nil {
		blob, err = session.NewS3Store(cfg.Session.Blob)
		if err != nil {
			log.Fatalw("session blob store init failed", "err", err)
		}
		log.Infow("session blob mirror enabled", "bucket", cfg.Session.Blob.Bucket)
	}
	store, err := session.NewStore(cfg.Session.StateDir, blob)
	if err != nil {
		log.Fatalw("session store init failed", "dir", cfg.Session.StateDir, "err", err)
	}

	enabled := plugins.Compiled(cfg, plugins.Deps{
		SessionStore: store,
		History:      repo,
		Logger:       log,
	})
	if len(enabled) == 0 {
		log.Fatalw("no plugins configured")
	}
	if err := core.ValidatePlugins(enabled); err != nil {
		log.Fatalw("plugin validation failed", "err", err)
	}
	compiled := make(map[string]bool, len(enabled))
	for _, plugin := range enabled {
		compiled[plugin.ID()] = true
	}
	for id := range config.EnabledPlugins(cfg) {
		if !compiled[id] {
			log.Fatalw("plugin enabled in config but not compiled in", "plugin", id)
		}
	}

	metricsRegistry := core.MetricsRegistry(enabled)
	metricsRegistry.MustRegister(session.MetricsCollectors()...)
	metricsRegistry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "velishub_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	if cfg.Core.DashboardDir != "" {
		if err := core.WriteDashboards(cfg.Core.DashboardDir, enabled); err != nil {
			log.Warnw("dashboard export failed", "dir", cfg.Core.DashboardDir, "err", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HealthHandler)
	mux.Handle("/metrics", server.MetricsHandler(metricsRegistry))
	mux.Handle("/dashboards/", server.DashboardsHandler(core.DashboardsMap(enabled)))
	router.RegisterPlugins(mux, enabled)

	for _, plugin := range enabled {
		if r, ok := plugin.(runner); ok {
			r.Start(ctx)
			defer r.Stop()
		}
	}

	httpServer := server.NewHTTPServer(cfg.Core.HTTPAddr, mux)
	errCh := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "addr", cfg.Core.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Infow("shutdown signal received")
	case err := <-errCh:
		log.Errorw("http serve failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown incomplete", "err", err)
	}
	log.Infow("velishub stopped")
}
