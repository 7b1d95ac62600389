// Package config loads the exprgraph configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/chazu/exprgraph/pkg/errwrap"
)

// Defaults.
const (
	DefaultEvalTimeout = 5 * time.Second
	DefaultPrecision   = 2
	DefaultLogPrefix   = "exprgraph: "
	MaxPrecision       = 17
)

// Duration is a time.Duration that reads from YAML as a string like "1.5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the file format.
type Config struct {
	// EvalTimeout bounds a single scenario script run.
	EvalTimeout Duration `yaml:"eval_timeout"`

	// Precision is the number of decimals shown for expression values. Zero
	// keeps the default; a negative value prints the shortest exact form.
	Precision *int `yaml:"precision"`

	// MetricsListen is the address /metrics is served on. Empty disables
	// the endpoint.
	MetricsListen string `yaml:"metrics_listen"`

	// LogPrefix is prepended to every log line.
	LogPrefix *string `yaml:"log_prefix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.EvalTimeout == 0 {
		c.EvalTimeout = Duration(DefaultEvalTimeout)
	}
	if c.Precision == nil {
		p := DefaultPrecision
		c.Precision = &p
	}
	if c.LogPrefix == nil {
		s := DefaultLogPrefix
		c.LogPrefix = &s
	}
}

// Timeout returns EvalTimeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.EvalTimeout)
}

// Parse reads YAML into c, fills in defaults and validates the result.
func (c *Config) Parse(data []byte) error {
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return errwrap.Wrapf(err, "invalid config")
	}
	c.setDefaults()
	return c.Validate()
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var reterr error
	if c.EvalTimeout < 0 {
		reterr = errwrap.Append(reterr, fmt.Errorf("eval_timeout must not be negative, got %s", time.Duration(c.EvalTimeout)))
	}
	if c.Precision != nil && *c.Precision > MaxPrecision {
		reterr = errwrap.Append(reterr, fmt.Errorf("precision must be at most %d, got %d", MaxPrecision, *c.Precision))
	}
	return reterr
}

// Load reads the config file at path on fs. An empty path, or a file that
// does not exist, yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't read config")
	}
	c := &Config{}
	if err := c.Parse(data); err != nil {
		return nil, errwrap.Wrapf(err, "config %s", path)
	}
	return c, nil
}
