package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONDRIVER_"

type envSetter func(c *Config, val string) error

func durationVar(field func(*Config) *Duration) envSetter {
	return func(c *Config, val string) error {
		return field(c).UnmarshalText([]byte(val))
	}
}

func stringVar(field func(*Config) *string) envSetter {
	return func(c *Config, val string) error {
		*field(c) = strings.TrimSpace(val)
		return nil
	}
}

// envMapping maps variable suffixes to config fields.
var envMapping = map[string]envSetter{
	"DRIVER":          stringVar(func(c *Config) *string { return &c.Driver }),
	"READER_TICK":     durationVar(func(c *Config) *Duration { return &c.ReaderTick }),
	"LOOP_TICK":       durationVar(func(c *Config) *Duration { return &c.LoopTick }),
	"REQUEST_TIMEOUT": durationVar(func(c *Config) *Duration { return &c.RequestTimeout }),
	"ESCAPE_TIMEOUT":  durationVar(func(c *Config) *Duration { return &c.EscapeTimeout }),
	"COLOR_MODE":      stringVar(func(c *Config) *string { return &c.ColorMode }),
	"QUIT_KEY":        stringVar(func(c *Config) *string { return &c.QuitKey }),
	"MOUSE": func(c *Config, val string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return err
		}
		c.Mouse.Enabled = b
		return nil
	},
	"DOUBLE_CLICK": durationVar(func(c *Config) *Duration { return &c.Mouse.DoubleClick }),
	"TRIPLE_CLICK": durationVar(func(c *Config) *Duration { return &c.Mouse.TripleClick }),
	"LOG_LEVEL":    stringVar(func(c *Config) *string { return &c.Log.Level }),
	"LOG_FILE":     stringVar(func(c *Config) *string { return &c.Log.File }),
}

// ApplyEnv overlays CONDRIVER_* variables from the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overlays variables found by lookup.
// Empty string values are treated as set.
func (c *Config) ApplyEnvFrom(lookup func(string) (string, bool)) error {
	for suffix, set := range envMapping {
		name := EnvPrefix + suffix
		val, ok := lookup(name)
		if !ok {
			continue
		}
		if err := set(c, val); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s=%q: %v", name, val, err)
		}
	}
	return nil
}
