package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"stream-compositor/internal/complexity"
	"stream-compositor/internal/logging"
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

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsEnabled  bool
	LogHealthChecks bool

	// Output surface and pump rates
	FrameWidth        int
	FrameHeight       int
	FPS               int
	CrossfadeDuration time.Duration
	JPEGQuality       int

	// Encoder stability control
	ComplexityEnabled bool
	ComplexityConfig  complexity.Config

	// Diagnostics persistence
	DataDir      string
	DatabasePath string
	StoreEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		Port:              getEnv("PORT", "8080"),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks:   getEnvBool("LOG_HEALTH_CHECKS", false),
		FrameWidth:        getEnvInt("FRAME_WIDTH", 512),
		FrameHeight:       getEnvInt("FRAME_HEIGHT", 512),
		FPS:               getEnvInt("FPS", 30),
		CrossfadeDuration: getEnvDuration("CROSSFADE_DURATION", 200*time.Millisecond),
		JPEGQuality:       getEnvInt("JPEG_QUALITY", 80),
		ComplexityEnabled: getEnvBool("COMPLEXITY_ENABLED", true),
		DataDir:           getEnv("DATA_DIR", "/data"),
	}

	config.ComplexityConfig = complexity.Config{
		TargetComplexity: getEnvFloat("COMPLEXITY_TARGET", 0.3),
		Type:             complexity.ParseInjectionType(getEnv("COMPLEXITY_TYPE", "adaptive")),
		MinThreshold:     getEnvFloat("COMPLEXITY_MIN_THRESHOLD", 0.15),
		MaxIntensity:     getEnvFloat("COMPLEXITY_MAX_INTENSITY", 0.2),
		AnalysisInterval: getEnvDuration("COMPLEXITY_INTERVAL", 100*time.Millisecond),
	}

	logging.Info("  PORT:                     %s", config.Port)
	logging.Info("  METRICS_ENABLED:          %v", config.MetricsEnabled)
	logging.Info("  FRAME_WIDTH x HEIGHT:     %dx%d", config.FrameWidth, config.FrameHeight)
	logging.Info("  FPS:                      %d", config.FPS)
	logging.Info("  CROSSFADE_DURATION:       %v", config.CrossfadeDuration)
	logging.Info("  JPEG_QUALITY:             %d", config.JPEGQuality)
	logging.Info("  COMPLEXITY_ENABLED:       %v", config.ComplexityEnabled)
	logging.Info("  COMPLEXITY_TARGET:        %.2f", config.ComplexityConfig.TargetComplexity)
	logging.Info("  COMPLEXITY_TYPE:          %s", config.ComplexityConfig.Type)
	logging.Info("  DATA_DIR:                 %s", config.DataDir)
	logging.Info("  LOG_LEVEL:                %s", logging.GetLevel())

	if config.FrameWidth <= 0 || config.FrameHeight <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", config.FrameWidth, config.FrameHeight)
	}
	if config.FPS <= 0 {
		return nil, fmt.Errorf("invalid FPS %d", config.FPS)
	}

	// Diagnostics persistence is optional: without a writable data
	// directory the pipeline runs, it just keeps no history.
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err := filepath.Abs(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	config.DataDir = dataDir
	config.DatabasePath = filepath.Join(dataDir, "diagnostics.db")
	config.StoreEnabled = setupOptionalDir(dataDir, "data")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Diagnostics store: %s", enabledString(config.StoreEnabled))
	logging.Info("    Metrics:           %s", enabledString(config.MetricsEnabled))
	logging.Info("    Complexity mgmt:   %s", enabledString(config.ComplexityEnabled))

	return config, nil
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	testFile := filepath.Join(path, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("    failed to remove test file %s: %v", testFile, err)
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
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

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router) {
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
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:  %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Stream:      http://localhost:%s/stream.mjpeg", config.Port)
	logging.Info("    Stats:       http://localhost:%s/api/stats", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:     http://localhost:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:     DISABLED")
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

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   _____ __                              ______
  / ___// /_________  ____ _____ ___    / ____/___  ____ ___  ____
  \__ \/ __/ ___/ _ \/ __ '/ __ '__ \  / /   / __ \/ __ '__ \/ __ \
 ___/ / /_/ /  /  __/ /_/ / / / / / / / /___/ /_/ / / / / / / /_/ /
/____/\__/_/   \___/\__,_/_/ /_/ /_/  \____/\____/_/ /_/ /_/ .___/
                                                          /_/
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

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	logging.Info("")
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
		logging.Warn("  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("  Invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("  Invalid %s=%q, using default %.2f", key, value, defaultValue)
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
	if err != nil {
		logging.Warn("  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
