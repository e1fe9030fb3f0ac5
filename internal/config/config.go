// Package config loads ripple.json, the optional project configuration
// read by the CLI. Library consumers configure the runtime in code; the
// file exists so `ripple devtools` and friends can run against a project
// without flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "ripple.json"

	// DefaultDevtoolsAddr is the default inspector listen address.
	DefaultDevtoolsAddr = "localhost:9990"

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "ripple"

	// DefaultPersistDir is the default snapshot directory.
	DefaultPersistDir = ".ripple"

	// DefaultPersistInterval is the default auto-save interval.
	DefaultPersistInterval = "30s"

	// DefaultFlushBudget matches the runtime default effect-run cap.
	DefaultFlushBudget = 1000
)

// Config represents the complete ripple.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Devtools contains inspector server configuration.
	Devtools DevtoolsConfig `json:"devtools,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Scheduler contains runtime scheduler configuration.
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`

	// Persist contains snapshot persistence configuration.
	Persist PersistConfig `json:"persist,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevtoolsConfig contains inspector server settings.
type DevtoolsConfig struct {
	// Addr is the address the inspector listens on.
	Addr string `json:"addr,omitempty"`

	// SendBuffer is the per-subscriber event buffer size.
	SendBuffer int `json:"sendBuffer,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Namespace is the metric name prefix.
	Namespace string `json:"namespace,omitempty"`

	// Subsystem is the optional second name segment.
	Subsystem string `json:"subsystem,omitempty"`
}

// SchedulerConfig contains runtime scheduler settings.
type SchedulerConfig struct {
	// FlushBudget caps effect runs per flush. Exceeding it is treated
	// as a reactivity storm and panics.
	FlushBudget int `json:"flushBudget,omitempty"`
}

// PersistConfig contains snapshot persistence settings.
type PersistConfig struct {
	// Dir is the snapshot directory.
	Dir string `json:"dir,omitempty"`

	// Interval is the auto-save interval as a duration string
	// (e.g. "30s"). "0" disables the save loop.
	Interval string `json:"interval,omitempty"`

	// StoreKey names the snapshot within the store.
	StoreKey string `json:"storeKey,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Devtools: DevtoolsConfig{
			Addr:       DefaultDevtoolsAddr,
			SendBuffer: 64,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultMetricsNamespace,
		},
		Scheduler: SchedulerConfig{
			FlushBudget: DefaultFlushBudget,
		},
		Persist: PersistConfig{
			Dir:      DefaultPersistDir,
			Interval: DefaultPersistInterval,
			StoreKey: "ripple",
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// ripple.json in the directory. A missing file surfaces as fs.ErrNotExist
// through the returned error; callers that treat the file as optional
// should fall back to New().
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Devtools.Addr == "" {
		c.Devtools.Addr = DefaultDevtoolsAddr
	}
	if c.Devtools.SendBuffer == 0 {
		c.Devtools.SendBuffer = 64
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Scheduler.FlushBudget == 0 {
		c.Scheduler.FlushBudget = DefaultFlushBudget
	}
	if c.Persist.Dir == "" {
		c.Persist.Dir = DefaultPersistDir
	}
	if c.Persist.Interval == "" {
		c.Persist.Interval = DefaultPersistInterval
	}
	if c.Persist.StoreKey == "" {
		c.Persist.StoreKey = "ripple"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Devtools.SendBuffer < 0 {
		return fmt.Errorf("config: devtools.sendBuffer must not be negative")
	}
	if c.Scheduler.FlushBudget < 0 {
		return fmt.Errorf("config: scheduler.flushBudget must not be negative")
	}
	if _, err := c.PersistInterval(); err != nil {
		return err
	}
	return nil
}

// PersistInterval parses the persist interval. Zero disables auto-save.
func (c *Config) PersistInterval() (time.Duration, error) {
	if c.Persist.Interval == "" || c.Persist.Interval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Persist.Interval)
	if err != nil {
		return 0, fmt.Errorf("config: persist.interval %q: %w", c.Persist.Interval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: persist.interval must not be negative")
	}
	return d, nil
}

// PersistPath returns the absolute path to the snapshot directory,
// resolved against the config file's directory.
func (c *Config) PersistPath() string {
	if filepath.IsAbs(c.Persist.Dir) {
		return c.Persist.Dir
	}
	return filepath.Join(c.Dir(), c.Persist.Dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing ripple.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config: no %s found in %s or any parent: %w",
				ConfigFileName, startDir, os.ErrNotExist)
		}
		dir = parent
	}
}
