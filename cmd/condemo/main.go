// Package main is a small application exercising the console driver: it
// echoes keys and clicks, queries the cursor position and shows live
// driver metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/condriver/internal/config"
	"github.com/dshills/condriver/internal/driver"
	"github.com/dshills/condriver/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	driver     string
	logLevel   string
	logFile    string
	watch      bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, closer, err := openLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closer.Close()
	logging.Set(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchPath := ""
	if opts.watch {
		watchPath = opts.configPath
	}

	dopts := driver.FromConfig(cfg)
	dopts.Logger = logger

	switch cfg.Driver {
	case config.DriverCellScreen:
		screen, serr := tcell.NewScreen()
		if serr != nil {
			err = errors.Wrap(serr, "creating screen")
			break
		}
		err = runDriver(ctx, driver.NewCoordinator(driver.CellScreenPlatform(screen), dopts), cfg, watchPath)
	default:
		err = runDriver(ctx, driver.NewCoordinator(driver.AnsiPlatform(os.Stdin, os.Stdout), dopts), cfg, watchPath)
	}
	if err != nil {
		logger.ErrorStack("condemo", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runDriver starts c, runs the main loop on this goroutine and, when
// watchPath is set, a config watcher beside it.
func runDriver[T any](ctx context.Context, c *driver.Coordinator[T], cfg config.Config, watchPath string) error {
	startCtx, cancelStart := context.WithTimeout(ctx, 5*time.Second)
	d, err := c.Start(startCtx)
	cancelStart()
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Stop(); err != nil {
			logging.Get().Warn("stop: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(d, cfg, cancel)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if watchPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, watchPath, func(next config.Config, err error) {
				d.Invoke(func() { a.configChanged(next, err) })
			})
		})
	}

	runErr := c.Run(gctx)
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if opts.driver != "" {
		cfg.Driver = opts.driver
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	return cfg, cfg.Validate()
}

// openLogger logs to the configured file. The terminal is in raw mode
// while the driver runs, so there is no console fallback.
func openLogger(cfg config.Config) (*logging.Logger, io.Closer, error) {
	if cfg.Log.File == "" {
		l := logging.New(logging.Config{Level: cfg.LogLevel(), Output: io.Discard, Prefix: "condemo"})
		return l, io.NopCloser(nil), nil
	}
	return logging.OpenFile(cfg.Log.File, cfg.LogLevel())
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to a TOML or YAML configuration file")
	flag.StringVar(&opts.driver, "driver", "", "Console platform (ansi, cellscreen)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.logFile, "log-file", "", "Append log records to this file")
	flag.BoolVar(&opts.watch, "watch", false, "Reload the configuration file when it changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "condemo - console driver demo\n\n")
		fmt.Fprintf(os.Stderr, "Usage: condemo [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables prefixed CONDRIVER_ override the file.\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("condemo %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.watch && opts.configPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -watch requires -config\n")
		os.Exit(2)
	}

	return opts
}
