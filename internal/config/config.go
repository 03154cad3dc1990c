// Package config loads costbench settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable, e.g. COSTBENCH_BUDGET.
const Prefix = "COSTBENCH"

// Config is the workload and cache setup for one benchmark run.
// Command-line flags override these values.
type Config struct {
	Budget float64 `envconfig:"BUDGET" default:"67108864"`
	Shards int     `envconfig:"SHARDS" default:"0"`

	Workers  int           `envconfig:"WORKERS" default:"0"`
	Duration time.Duration `envconfig:"DURATION" default:"10s"`
	Reads    int           `envconfig:"READS" default:"80"`
	Keys     uint64        `envconfig:"KEYS" default:"1000000"`
	ZipfS    float64       `envconfig:"ZIPF_S" default:"1.1"`
	ZipfV    float64       `envconfig:"ZIPF_V" default:"1"`
	Seed     int64         `envconfig:"SEED" default:"0"`
	ValueMin int           `envconfig:"VALUE_MIN" default:"16"`
	ValueMax int           `envconfig:"VALUE_MAX" default:"4096"`

	HTTP  string `envconfig:"HTTP" default:":8080"`
	Pprof string `envconfig:"PPROF"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// GetConfig reads the environment. Unset variables take their defaults.
func GetConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges the workload depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Budget < 0 {
		errs = append(errs, fmt.Errorf("budget %v < 0", c.Budget))
	}
	if c.Reads < 0 || c.Reads > 100 {
		errs = append(errs, fmt.Errorf("reads %d not in [0,100]", c.Reads))
	}
	if c.Keys == 0 {
		errs = append(errs, errors.New("keys must be > 0"))
	}
	if c.ZipfS <= 1 {
		errs = append(errs, fmt.Errorf("zipf-s %v must be > 1", c.ZipfS))
	}
	if c.ZipfV < 1 {
		errs = append(errs, fmt.Errorf("zipf-v %v must be >= 1", c.ZipfV))
	}
	if c.ValueMin < 0 || c.ValueMax < c.ValueMin {
		errs = append(errs, fmt.Errorf("value size range [%d,%d] invalid", c.ValueMin, c.ValueMax))
	}
	if c.Duration <= 0 {
		errs = append(errs, errors.New("duration must be > 0"))
	}
	return errors.Join(errs...)
}
