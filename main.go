package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"clip-worker/internal/fetch"
	"clip-worker/internal/filesystem"
	"clip-worker/internal/handlers"
	"clip-worker/internal/jobs"
	"clip-worker/internal/logging"
	"clip-worker/internal/memory"
	"clip-worker/internal/metrics"
	"clip-worker/internal/middleware"
	"clip-worker/internal/pipeline"
	"clip-worker/internal/startup"
	"clip-worker/internal/storage"
	"clip-worker/internal/transcoder"

	"github.com/gorilla/mux"
)

const (
	// How often gauges backed by filesystem and database state are refreshed
	metricsInterval = 15 * time.Second
	// Time allowed for in-flight requests to finish on shutdown
	shutdownTimeout = 30 * time.Second
)

func main() {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	// Scratch directory
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	scratch, err := filesystem.NewScratch(config.ScratchDir)
	if err != nil {
		startup.LogFatal("Failed to initialize scratch directory: %v", err)
	}
	purged, err := scratch.Purge()
	if err != nil {
		logging.Warn("Failed to purge scratch directory: %v", err)
	}
	startup.LogScratchInit(scratch.Dir(), purged)

	// Transcoder
	trans := transcoder.New(config.FFmpegPath)
	checkCtx, cancelCheck := context.WithTimeout(context.Background(), 10*time.Second)
	ffmpegVersion, ffmpegErr := trans.Check(checkCtx)
	cancelCheck()
	startup.LogTranscoderInit(trans.Binary(), ffmpegVersion, ffmpegErr)

	// Object storage
	store, err := storage.NewSupabase(config.StorageURL, config.StorageKey)
	if err != nil {
		startup.LogFatal("Failed to initialize storage client: %v", err)
	}
	startup.LogStorageInit(config.StorageURL, config.StorageBucket)

	// Job history (optional)
	history := openHistory(config)

	deps := pipeline.Deps{
		Fetcher:    fetch.New(fetch.NewClient(config.FetchHeaderTimeout)),
		Transcoder: trans,
		Store:      store,
		Scratch:    scratch,
		Bucket:     config.StorageBucket,
		Observer:   metrics.NewPipelineObserver(),
	}
	handlerDeps := handlers.Deps{
		Scratch:    scratch,
		Transcoder: trans,
	}
	// Leave the interfaces nil rather than holding a nil *jobs.Store.
	if history != nil {
		deps.History = history
		handlerDeps.Jobs = history
	}

	p, err := pipeline.New(deps)
	if err != nil {
		startup.LogFatal("Failed to initialize pipeline: %v", err)
	}
	handlerDeps.Runner = p

	// Metrics
	metrics.InitializeMetrics()
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, runtime.Version())

	collector := metrics.NewCollector(&statsProvider{scratch: scratch, trans: trans, history: history}, metricsInterval)
	collector.Start()

	// Initialize handlers
	h := handlers.New(handlerDeps)

	// Setup router
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks, config.AuthEnabled())

	handler := wrapHandler(router, config)

	// Create server
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Pipeline requests last as long as the download and transcode.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	done := make(chan struct{})
	go handleShutdown(srv, metricsSrv, h, trans, collector, history, done)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	<-done
}

// openHistory opens the job history database. Failures disable history
// instead of stopping the service.
func openHistory(config *startup.Config) *jobs.Store {
	if !config.HistoryEnabled {
		startup.LogHistoryInit("", 0, nil)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	store, err := jobs.New(ctx, config.DatabasePath)
	startup.LogHistoryInit(config.DatabasePath, time.Since(start), err)
	if err != nil {
		return nil
	}
	return store
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Liveness text check
	r.HandleFunc("/", h.Alive).Methods("GET", "HEAD")

	// Pipeline operations
	r.HandleFunc("/clip", h.Clip).Methods("POST")
	r.HandleFunc("/extract-audio", h.ExtractAudio).Methods("POST")

	// Health check and version routes (no auth required)
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Job history
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")

	// Request metrics need the matched route, so they run inside the router.
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	return r
}

// wrapHandler applies the outer middleware chain: compression, access log,
// then authentication closest to the router.
func wrapHandler(router http.Handler, config *startup.Config) http.Handler {
	handler := middleware.Auth(middleware.DefaultAuthConfig(config.APITokenHash))(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	return middleware.Compression(middleware.DefaultCompressionConfig())(handler)
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	return srv
}

// statsProvider feeds the periodic metrics collector.
type statsProvider struct {
	scratch *filesystem.Scratch
	trans   *transcoder.Transcoder
	history *jobs.Store
}

// GetStats implements metrics.StatsProvider
func (s *statsProvider) GetStats() metrics.Stats {
	stats := metrics.Stats{
		TranscoderRunning: s.trans.Running(),
	}

	files, bytes, err := s.scratch.Usage()
	if err != nil {
		logging.Debug("Failed to measure scratch directory: %v", err)
	}
	stats.ScratchFiles = files
	stats.ScratchBytes = bytes

	if s.history != nil {
		stats.DBFileSizes = s.history.FileSizes()
		stats.DBOpenConnections = s.history.OpenConnections()
	}

	return stats
}

func handleShutdown(srv, metricsSrv *http.Server, h *handlers.Handlers, trans *transcoder.Transcoder,
	collector *metrics.Collector, history *jobs.Store, done chan<- struct{},
) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	h.SetShuttingDown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cleaning up transcoder")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}
	startup.LogShutdownStepComplete("Metrics stopped")

	if history != nil {
		startup.LogShutdownStep("Closing job history")
		if err := history.Close(); err != nil {
			logging.Warn("Failed to close job history: %v", err)
		} else {
			startup.LogShutdownStepComplete("Job history closed")
		}
	}

	startup.LogShutdownComplete()
}
