package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/logging"
)

// DefaultWatchDelay coalesces the burst of events an editor save produces.
const DefaultWatchDelay = 100 * time.Millisecond

type watchOptions struct {
	delay  time.Duration
	logger *logging.Logger
	env    func(string) (string, bool)
}

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

// WithWatchDelay sets the debounce delay.
func WithWatchDelay(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithWatchLogger sets the logger for watcher faults.
func WithWatchLogger(l *logging.Logger) WatchOption {
	return func(o *watchOptions) {
		o.logger = logging.OrDefault(l)
	}
}

// WithWatchEnv sets the environment lookup applied after each reload.
func WithWatchEnv(lookup func(string) (string, bool)) WatchOption {
	return func(o *watchOptions) {
		o.env = lookup
	}
}

// Watch reloads path whenever it is written or re-created and passes the
// result to fn. Each reload re-applies the environment and validates; a
// failed reload is reported through fn's error and the watch continues.
//
// The parent directory is watched so that editors which replace the file
// by rename keep being observed. Watch blocks until ctx is done and then
// returns nil.
func Watch(ctx context.Context, path string, fn func(Config, error), opts ...WatchOption) error {
	o := watchOptions{delay: DefaultWatchDelay, logger: logging.Get(), env: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.WithComponent("config")

	target, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "watching %s", filepath.Dir(target))
	}
	log.Debug("watching %s", target)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(o.delay)
			} else {
				timer.Reset(o.delay)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error: %v", err)

		case <-fire:
			fire = nil
			cfg, err := reload(target, o.env)
			if err != nil {
				log.Warn("reload %s: %v", target, err)
			} else {
				log.Info("reloaded %s", target)
			}
			fn(cfg, err)
		}
	}
}

func reload(path string, env func(string) (string, bool)) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnvFrom(env); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
