package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"geoguide/internal/api"
	"geoguide/pkg/audio"
	"geoguide/pkg/catalog"
	"geoguide/pkg/config"
	"geoguide/pkg/db"
	"geoguide/pkg/db/maintenance"
	"geoguide/pkg/location"
	"geoguide/pkg/logging"
	"geoguide/pkg/metrics"
	"geoguide/pkg/playback"
	"geoguide/pkg/session"
	"geoguide/pkg/store"
	"geoguide/pkg/version"
)

const defaultConfigPath = "configs/geoguide.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	metrics.Init()
	slog.Info("GeoGuide Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	loadOpts := catalog.LoadOptions{DefaultRadius: appCfg.Catalog.DefaultRadius.Meters()}
	if appCfg.Catalog.Source == "sqlite" {
		if err := maintenance.Run(ctx, st, dbConn, appCfg.Catalog.File, loadOpts); err != nil {
			slog.Error("Maintenance tasks failed", "error", err)
		}
	}

	cat, err := initCatalog(appCfg, st, loadOpts)
	if err != nil {
		return err
	}

	sensors, err := initSensors(appCfg)
	if err != nil {
		return err
	}
	defer sensors.Close()

	src := location.NewSource(sensors.Permission, sensors.Watcher, location.WatchOptions{
		HighAccuracy:          appCfg.Location.HighAccuracy,
		MinDisplacementMeters: appCfg.Location.MinDisplacement.Meters(),
	})
	sessionMgr := session.NewManager(src, session.Config{
		QueueSize:         appCfg.Session.QueueSize,
		PermissionTimeout: time.Duration(appCfg.Location.PermissionTimeout),
		PermissionRetry:   time.Duration(appCfg.Location.PermissionRetry),
	})

	var (
		presenter *playback.Presenter
		audioH    *api.AudioHandler
	)
	if appCfg.Playback.Enabled {
		audioMgr := audio.New(appCfg.Playback.Volume)
		presenter = playback.NewPresenter(sessionMgr, audioMgr, appCfg.Playback.MediaDir)
		audioH = api.NewAudioHandler(audioMgr)
	}
	hub := api.NewStreamHub(sessionMgr, appCfg.Server.AllowedOrigins)

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := sessionMgr.Run(ctx); err != nil {
			slog.Error("Session stopped with error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	if presenter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			presenter.Run(ctx)
		}()
	}

	srv := api.NewServer(appCfg.Server.Address,
		api.NewLocationHandler(sensors.Push),
		api.NewPointsHandler(cat, sessionMgr, appCfg.Catalog.DefaultRadiusKm),
		api.NewPresentationHandler(sessionMgr, cat, presenter),
		audioH,
		api.NewTripHandler(sessionMgr),
		hub,
		cancel,
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	return runServerLifecycle(ctx, srv, quit)
}

func initDB(cfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func initCatalog(cfg *config.Config, st store.PointStore, opts catalog.LoadOptions) (catalog.Catalog, error) {
	if cfg.Catalog.Source == "sqlite" {
		slog.Info("Catalog: SQLite")
		return catalog.NewSQLCatalog(st, cfg.Catalog.PageSize), nil
	}

	slog.Info("Catalog: File", "path", cfg.Catalog.File, "h3_resolution", cfg.Catalog.H3Resolution)
	points, err := catalog.LoadFile(cfg.Catalog.File, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog file: %w", err)
	}
	idx := catalog.NewIndexCatalog(cfg.Catalog.H3Resolution, cfg.Catalog.PageSize)
	if err := idx.Load(points); err != nil {
		return nil, err
	}
	return idx, nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
