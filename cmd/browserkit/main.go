// Package main runs browserkit: a tool server that manages Playwright browser
// sessions and executes XML tool calls read from stdin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/browserkit/pkg/config"
	"github.com/entrhq/browserkit/pkg/logging"
	"github.com/entrhq/browserkit/pkg/tools"
	"github.com/entrhq/browserkit/pkg/tools/browser"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 30 * time.Second
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile      string
	MaxSessions     int
	RatePerMinute   int
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	Headless        bool
	BrowserType     string
	Timeout         time.Duration
	ScreenshotDir   string
	MetricsAddr     string
	Install         bool
	ShowVersion     bool

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("browserkit v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "Shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Printf("browserkit failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to configuration file (YAML or JSON, default ~/.browserkit/config.json)")
	flag.IntVar(&cfg.MaxSessions, "max-sessions", 5, "Maximum concurrent browser sessions")
	flag.IntVar(&cfg.RatePerMinute, "rate", 10, "Maximum session launches per minute")
	flag.DurationVar(&cfg.IdleTimeout, "idle-timeout", 5*time.Minute, "Idle time after which a session is reclaimed")
	flag.DurationVar(&cfg.CleanupInterval, "cleanup-interval", time.Minute, "Period of the idle session sweep")
	flag.BoolVar(&cfg.Headless, "headless", true, "Run browsers without a visible window")
	flag.StringVar(&cfg.BrowserType, "browser", "chromium", "Default browser: chromium, firefox or webkit")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "Default timeout for page operations")
	flag.StringVar(&cfg.ScreenshotDir, "screenshot-dir", "", "Directory for screenshots (default: return base64)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090)")
	flag.BoolVar(&cfg.Install, "install", false, "Install the Playwright driver and browsers if missing")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "browserkit - browser session tool server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: browserkit [options]\n\n")
		fmt.Fprintf(os.Stderr, "Reads <tool>...</tool> calls on stdin and writes one JSON result per call to stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  browserkit -config browserkit.yaml\n")
		fmt.Fprintf(os.Stderr, "  browserkit -max-sessions 2 -headless=false -metrics-addr :9090\n\n")
	}

	flag.Parse()

	cfg.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		cfg.set[f.Name] = true
	})
	return cfg
}

// applyOverrides copies explicitly set flags over the file settings.
func applyOverrides(cli *CLIConfig, settings config.BrowserSettings) config.BrowserSettings {
	if cli.set["max-sessions"] {
		settings.MaxConcurrentSessions = cli.MaxSessions
	}
	if cli.set["rate"] {
		settings.MaxSessionsPerMinute = cli.RatePerMinute
	}
	if cli.set["idle-timeout"] {
		settings.IdleTimeout = cli.IdleTimeout
	}
	if cli.set["cleanup-interval"] {
		settings.CleanupInterval = cli.CleanupInterval
	}
	if cli.set["headless"] {
		settings.Headless = cli.Headless
	}
	if cli.set["browser"] {
		settings.BrowserType = cli.BrowserType
	}
	if cli.set["timeout"] {
		settings.DefaultTimeout = cli.Timeout
	}
	if cli.set["screenshot-dir"] {
		settings.ScreenshotDir = cli.ScreenshotDir
	}
	return settings
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	if err := config.Initialize(cliConfig.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	settings := applyOverrides(cliConfig, config.GetBrowser().Settings())
	navigation := config.GetNavigationPolicy()

	logger, err := logging.NewLogger("browserkit")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging to stderr: %v\n", err)
	}
	defer logger.Close()

	browserType, err := browser.ParseBrowserType(settings.BrowserType)
	if err != nil {
		return err
	}

	policy, err := browser.NewURLPolicy(navigation.Allowed(), navigation.Blocked())
	if err != nil {
		return fmt.Errorf("invalid navigation policy: %w", err)
	}

	timeoutMs := float64(settings.DefaultTimeout.Milliseconds())
	manager := browser.NewSessionManager(browser.ManagerConfig{
		MaxConcurrentSessions: settings.MaxConcurrentSessions,
		MaxSessionsPerMinute:  settings.MaxSessionsPerMinute,
		IdleTimeout:           settings.IdleTimeout,
		CleanupInterval:       settings.CleanupInterval,
		DefaultTimeout:        timeoutMs,
	}, browser.NewPlaywrightLauncher(cliConfig.Install), logger.With("sessions"))
	manager.SetMetrics(browser.NewMetrics(prometheus.DefaultRegisterer))

	capture := browser.NewConsoleCapture(settings.ConsoleBufferSize)
	manager.AddPageHook(capture.Attach)
	manager.AddCloseHook(capture.DetachSession)

	scheduler := browser.NewCleanupScheduler(manager, settings.CleanupInterval, settings.IdleTimeout,
		capture.ReleaseSession, logger.With("cleanup"))
	scheduler.Start(ctx)

	registry := tools.NewRegistry()
	toolRegistry := browser.NewToolRegistry(manager, browser.ToolOptions{
		Defaults: browser.SessionDefaults{
			BrowserType: browserType,
			Headless:    settings.Headless,
			Timeout:     timeoutMs,
		},
		Policy:        policy,
		Capture:       capture,
		Scheduler:     scheduler,
		ScreenshotDir: settings.ScreenshotDir,
	})
	if err := toolRegistry.Register(registry); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	var metricsServer *http.Server
	if cliConfig.MetricsAddr != "" {
		metricsServer = serveMetrics(cliConfig.MetricsAddr, logger)
	}

	logger.Infof("browserkit %s ready: %d tools, max %d sessions, %d launches/min, idle timeout %v",
		version, len(registry.Names()), settings.MaxConcurrentSessions, settings.MaxSessionsPerMinute, settings.IdleTimeout)

	dispatcher := newDispatcher(registry, manager.Classify, logger.With("dispatch"))
	loopErr := dispatcher.Serve(ctx, os.Stdin, os.Stdout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("metrics server shutdown: %v", err)
		}
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("session shutdown: %v", err)
	}

	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return loopErr
	}
	return nil
}

func serveMetrics(addr string, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	logger.Infof("serving metrics on %s/metrics", addr)
	return server
}
