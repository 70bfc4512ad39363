package startup

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"clip-worker/internal/logging"
	"clip-worker/internal/memory"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Defaults for optional settings.
const (
	DefaultPort               = "3000"
	DefaultMetricsPort        = "9090"
	DefaultBucket             = "processed-videos"
	DefaultFFmpegPath         = "ffmpeg"
	DefaultFetchHeaderTimeout = 30 * time.Second
	DefaultDatabaseDir        = "/database"
)

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	ScratchDir         string
	FFmpegPath         string
	FetchHeaderTimeout time.Duration

	StorageURL    string
	StorageKey    string
	StorageBucket string

	HistoryEnabled bool
	DatabaseDir    string
	DatabasePath   string

	// APITokenHash is a bcrypt hash. Empty disables authentication.
	APITokenHash string
}

// AuthEnabled reports whether pipeline and job routes require a token.
func (c *Config) AuthEnabled() bool {
	return c.APITokenHash != ""
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		Port:               getEnv("PORT", DefaultPort),
		MetricsPort:        getEnv("METRICS_PORT", DefaultMetricsPort),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks:    getEnvBool("LOG_HEALTH_CHECKS", true),
		ScratchDir:         getEnv("SCRATCH_DIR", filepath.Join(os.TempDir(), "clip-worker")),
		FFmpegPath:         getEnv("FFMPEG_PATH", DefaultFFmpegPath),
		FetchHeaderTimeout: getEnvDuration("FETCH_TIMEOUT_HEADERS", DefaultFetchHeaderTimeout),
		StorageURL:         strings.TrimRight(os.Getenv("STORAGE_URL"), "/"),
		StorageKey:         os.Getenv("STORAGE_KEY"),
		StorageBucket:      getEnv("STORAGE_BUCKET", DefaultBucket),
		HistoryEnabled:     getEnvBool("HISTORY_ENABLED", true),
		DatabaseDir:        getEnv("DATABASE_DIR", DefaultDatabaseDir),
		APITokenHash:       strings.TrimSpace(os.Getenv("API_TOKEN_HASH")),
	}

	logging.Info("  PORT:                  %s", config.Port)
	logging.Info("  METRICS_PORT:          %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:       %v", config.MetricsEnabled)
	logging.Info("  SCRATCH_DIR:           %s", config.ScratchDir)
	logging.Info("  FFMPEG_PATH:           %s", config.FFmpegPath)
	logging.Info("  FETCH_TIMEOUT_HEADERS: %v", config.FetchHeaderTimeout)
	logging.Info("  STORAGE_URL:           %s", config.StorageURL)
	logging.Info("  STORAGE_KEY:           %s", maskSecret(config.StorageKey))
	logging.Info("  STORAGE_BUCKET:        %s", config.StorageBucket)
	logging.Info("  HISTORY_ENABLED:       %v", config.HistoryEnabled)
	logging.Info("  DATABASE_DIR:          %s", config.DatabaseDir)
	logging.Info("  API_TOKEN_HASH:        %s", maskSecret(config.APITokenHash))
	logging.Info("  LOG_HEALTH_CHECKS:     %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())

	if err := config.validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	scratchDir, err := filepath.Abs(config.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scratch directory path: %w", err)
	}
	config.ScratchDir = scratchDir

	if err := ensureDirectory(scratchDir, "scratch"); err != nil {
		return nil, fmt.Errorf("scratch directory error: %w", err)
	}
	if err := testWriteAccess(scratchDir); err != nil {
		return nil, fmt.Errorf("scratch directory is not writable: %w", err)
	}
	logging.Info("  [OK] Scratch directory is writable: %s", scratchDir)

	if config.HistoryEnabled {
		config.HistoryEnabled = config.setupDatabaseDir()
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Job history:   %s", enabledString(config.HistoryEnabled))
	logging.Info("    Metrics:       %s", enabledString(config.MetricsEnabled))
	logging.Info("    Token auth:    %s", enabledString(config.AuthEnabled()))

	return config, nil
}

func (c *Config) validate() error {
	var problems []string

	if c.StorageURL == "" {
		problems = append(problems, "STORAGE_URL is required")
	} else if u, err := url.Parse(c.StorageURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		problems = append(problems, fmt.Sprintf("STORAGE_URL %q is not an http(s) URL", c.StorageURL))
	}
	if c.StorageKey == "" {
		problems = append(problems, "STORAGE_KEY is required")
	}
	if c.StorageBucket == "" {
		problems = append(problems, "STORAGE_BUCKET must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("PORT %q is not a number", c.Port))
	}
	if c.MetricsEnabled {
		if _, err := strconv.Atoi(c.MetricsPort); err != nil {
			problems = append(problems, fmt.Sprintf("METRICS_PORT %q is not a number", c.MetricsPort))
		} else if c.MetricsPort == c.Port {
			problems = append(problems, "METRICS_PORT must differ from PORT")
		}
	}
	if c.APITokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.APITokenHash)); err != nil {
			problems = append(problems, fmt.Sprintf("API_TOKEN_HASH is not a bcrypt hash: %v", err))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// setupDatabaseDir prepares the history database directory. History is
// optional, so failures disable it instead of aborting startup.
func (c *Config) setupDatabaseDir() bool {
	dir, err := filepath.Abs(c.DatabaseDir)
	if err != nil {
		logging.Warn("  Failed to resolve database directory: %v", err)
		logging.Warn("  Job history will be disabled")
		return false
	}
	c.DatabaseDir = dir
	c.DatabasePath = filepath.Join(dir, "jobs.db")

	if err := ensureDirectory(dir, "database"); err != nil {
		logging.Warn("  Database directory issue: %v", err)
		logging.Warn("  Job history will be disabled")
		return false
	}
	if err := testWriteAccess(dir); err != nil {
		logging.Warn("  Database directory is not writable: %v", err)
		logging.Warn("  Job history will be disabled")
		return false
	}
	logging.Info("  [OK] Database directory is writable: %s", dir)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return fmt.Sprintf("(set, %d chars)", len(s))
}

// LogMemoryConfig logs the GOMEMLIMIT configuration
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY")
	logging.Info("------------------------------------------------------------")
	if !result.Configured {
		logging.Info("  GOMEMLIMIT: not configured (set MEMORY_LIMIT to enable)")
		logging.Info("")
		return
	}
	logging.Info("  GOMEMLIMIT:      %s (source: %s)", memory.FormatBytes(result.GoMemLimit), result.Source)
	if result.ContainerLimit > 0 {
		logging.Info("  Container limit: %s (ratio %.2f)", memory.FormatBytes(result.ContainerLimit), result.Ratio)
	}
	logging.Info("")
}

// LogScratchInit logs scratch directory preparation
func LogScratchInit(dir string, purged int64) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCRATCH DIRECTORY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Directory: %s", dir)
	if purged > 0 {
		logging.Info("  Removed %s of leftover scratch files", memory.FormatBytes(purged))
	}
	logging.Info("  [OK] Scratch directory ready")
}

// LogTranscoderInit logs the result of the ffmpeg availability check
func LogTranscoderInit(binary, version string, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Binary: %s", binary)

	if err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Clip and audio requests will fail until ffmpeg is available")
		return
	}
	logging.Debug("  FFmpeg version: %s", version)
	logging.Info("  [OK] FFmpeg is available")
}

// LogStorageInit logs the storage destination
func LogStorageInit(endpoint, bucket string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STORAGE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Endpoint: %s", endpoint)
	logging.Info("  Bucket:   %s", bucket)
}

// LogHistoryInit logs job history initialization
func LogHistoryInit(path string, duration time.Duration, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("JOB HISTORY")
	logging.Info("------------------------------------------------------------")
	switch {
	case path == "":
		logging.Info("  Job history disabled")
	case err != nil:
		logging.Warn("  Failed to open job history at %s: %v", path, err)
		logging.Warn("  Job history will be disabled")
	default:
		logging.Info("  [OK] Job history initialized in %v: %s", duration, path)
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks, authEnabled bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
	if authEnabled {
		logging.Info("    Bearer token required for /clip, /extract-audio and /api")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
       _ _                             _
   ___| (_)_ __   __      _____  _ __| | _____ _ __
  / __| | | '_ \  \ \ /\ / / _ \| '__| |/ / _ \ '__|
 | (__| | | |_) |  \ V  V / (_) | |  |   <  __/ |
  \___|_|_| .__/    \_/\_/ \___/|_|  |_|\_\___|_|
          |_|
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
