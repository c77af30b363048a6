// Package config holds the tunables of the console driver runtime.
//
// A Config starts from Default, is overlaid by a TOML or YAML file (Load),
// then by CONDRIVER_* environment variables (ApplyEnv), and is checked by
// Validate. Watch reloads a file when it changes on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/output"
)

// Platform names accepted in Config.Driver.
const (
	DriverAnsi       = "ansi"
	DriverCellScreen = "cellscreen"
)

var (
	// ErrInvalidConfig is returned by Validate and ApplyEnv.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownFormat is returned by Load for unrecognized file extensions.
	ErrUnknownFormat = errors.New("unknown config file format")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Line is the line number where the error occurred (if available).
	Line int
	// Column is the column number where the error occurred (if available).
	Column int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Duration is a time.Duration written as "20ms" in config files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML decodes a scalar duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if err := d.UnmarshalText([]byte(node.Value)); err != nil {
		return fmt.Errorf("line %d: %v", node.Line, err)
	}
	return nil
}

// MouseConfig controls mouse reporting and click thresholds.
type MouseConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// The thresholds are carried through to the interpreter but the
	// release policy completes clicks without consulting them.
	DoubleClick Duration `toml:"double_click" yaml:"double_click"`
	TripleClick Duration `toml:"triple_click" yaml:"triple_click"`
}

// LogConfig selects the log destination.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	// File is appended to. Empty discards log output, since stdout belongs
	// to the terminal.
	File string `toml:"file" yaml:"file"`
}

// Config holds every tunable of the runtime.
type Config struct {
	Driver         string      `toml:"driver" yaml:"driver"`
	ReaderTick     Duration    `toml:"reader_tick" yaml:"reader_tick"`
	LoopTick       Duration    `toml:"loop_tick" yaml:"loop_tick"`
	RequestTimeout Duration    `toml:"request_timeout" yaml:"request_timeout"`
	EscapeTimeout  Duration    `toml:"escape_timeout" yaml:"escape_timeout"`
	ColorMode      string      `toml:"color_mode" yaml:"color_mode"`
	QuitKey        string      `toml:"quit_key" yaml:"quit_key"`
	Mouse          MouseConfig `toml:"mouse" yaml:"mouse"`
	Log            LogConfig   `toml:"log" yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Driver:         DriverAnsi,
		ReaderTick:     Duration(20 * time.Millisecond),
		LoopTick:       Duration(50 * time.Millisecond),
		RequestTimeout: Duration(50 * time.Millisecond),
		EscapeTimeout:  Duration(50 * time.Millisecond),
		ColorMode:      output.ColorModeTrueColor.String(),
		QuitKey:        "Ctrl+Q",
		Mouse: MouseConfig{
			Enabled:     true,
			DoubleClick: Duration(500 * time.Millisecond),
			TripleClick: Duration(1000 * time.Millisecond),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. The decoder is chosen by extension.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := Decode(path, data, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Decode parses data into cfg using the format implied by path's extension.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			perr := &ParseError{Path: path, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			return perr
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			perr := &ParseError{Path: path, Message: err.Error(), Err: err}
			fmt.Sscanf(err.Error(), "yaml: line %d:", &perr.Line) //nolint:errcheck
			return perr
		}
	default:
		return errors.Wrapf(ErrUnknownFormat, "%s", path)
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var problems []string
	if c.Driver != DriverAnsi && c.Driver != DriverCellScreen {
		problems = append(problems, fmt.Sprintf("driver %q must be %q or %q", c.Driver, DriverAnsi, DriverCellScreen))
	}
	for _, d := range []struct {
		name string
		v    Duration
	}{
		{"reader_tick", c.ReaderTick},
		{"loop_tick", c.LoopTick},
		{"request_timeout", c.RequestTimeout},
		{"escape_timeout", c.EscapeTimeout},
	} {
		if d.v <= 0 {
			problems = append(problems, d.name+" must be positive")
		}
	}
	if c.Mouse.DoubleClick < 0 || c.Mouse.TripleClick < 0 {
		problems = append(problems, "click thresholds must not be negative")
	}
	if _, err := output.ParseColorMode(c.ColorMode); err != nil {
		problems = append(problems, err.Error())
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if c.QuitKey != "" {
		if _, err := key.Parse(c.QuitKey); err != nil {
			problems = append(problems, fmt.Sprintf("quit_key %q: %v", c.QuitKey, err))
		}
	}
	if len(problems) > 0 {
		return errors.Wrap(ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// Colors returns the parsed color mode.
func (c Config) Colors() output.ColorMode {
	mode, _ := output.ParseColorMode(c.ColorMode)
	return mode
}
