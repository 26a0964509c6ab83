// Package config loads and validates SDK configuration: link settings,
// command timeouts, the low-level publish period and telemetry recording.
// Configuration is layered JSON files with environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config is the complete SDK configuration.
type Config struct {
	Robot    RobotConfig    `json:"robot"`
	Link     LinkConfig     `json:"link"`
	Timeouts TimeoutConfig  `json:"timeouts"`
	Motion   MotionConfig   `json:"motion"`
	Stream   StreamConfig   `json:"stream"`
	Recorder RecorderConfig `json:"recorder"`
}

// RobotConfig identifies the robot and the local endpoint used to reach it.
type RobotConfig struct {
	// Name labels the connection for logs and the robot's client registry.
	Name string `json:"name,omitempty"`
	// LocalIP is the address of the interface on the robot's network. The
	// low-level command path binds to it so traffic takes the wired link.
	LocalIP string `json:"local_ip"`
	// URL is the robot's message broker endpoint.
	URL string `json:"url"`
}

// LinkConfig tunes connection management.
type LinkConfig struct {
	MaxReconnects  int           `json:"max_reconnects"`
	ReconnectWait  time.Duration `json:"reconnect_wait"`
	PingInterval   time.Duration `json:"ping_interval"`
	HealthInterval time.Duration `json:"health_interval"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	DrainTimeout   time.Duration `json:"drain_timeout"`
}

// TimeoutConfig sets per-controller default command timeouts. Individual
// calls may still pass an explicit timeout.
type TimeoutConfig struct {
	Default time.Duration `json:"default"`
	Motion  time.Duration `json:"motion"`
	Sensor  time.Duration `json:"sensor"`
}

// MotionConfig tunes the low-level command path.
type MotionConfig struct {
	// PublishPeriodMs is the advisory period of the caller's publish loop in
	// milliseconds. Clamped to the 2ms floor at runtime.
	PublishPeriodMs float64 `json:"publish_period_ms"`
}

// StreamConfig tunes telemetry stream buffering.
type StreamConfig struct {
	BufferCapacity int `json:"buffer_capacity"`
}

// RecorderConfig controls JetStream telemetry recording.
type RecorderConfig struct {
	Enabled  bool     `json:"enabled"`
	Stream   string   `json:"stream,omitempty"`
	Subjects []string `json:"subjects,omitempty"`
	MaxAge   Duration `json:"max_age,omitempty"`
}

// Duration is a time.Duration that unmarshals from JSON strings like "30s"
// as well as nanosecond numbers.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(val))
	default:
		return fmt.Errorf("invalid duration value %v", v)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default returns the configuration defaults. LocalIP has no sensible
// default and must come from a file, the environment or Initialize.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			Name: "magicbot-z1-sdk",
			URL:  "nats://127.0.0.1:4222",
		},
		Link: LinkConfig{
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			PingInterval:   30 * time.Second,
			HealthInterval: 10 * time.Second,
			ConnectTimeout: 5 * time.Second,
			DrainTimeout:   10 * time.Second,
		},
		Timeouts: TimeoutConfig{
			Default: 5 * time.Second,
			Motion:  10 * time.Second,
			Sensor:  10 * time.Second,
		},
		Motion: MotionConfig{
			PublishPeriodMs: 2.0,
		},
		Stream: StreamConfig{
			BufferCapacity: 256,
		},
		Recorder: RecorderConfig{
			Stream:   "TELEMETRY",
			Subjects: []string{"robot.>"},
			MaxAge:   Duration(24 * time.Hour),
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Robot.URL == "" {
		return errors.New("robot.url is required")
	}
	u, err := url.Parse(c.Robot.URL)
	if err != nil {
		return fmt.Errorf("robot.url: %w", err)
	}
	if u.Scheme != "nats" && u.Scheme != "tls" {
		return fmt.Errorf("robot.url scheme %q is not supported", u.Scheme)
	}
	if c.Robot.LocalIP != "" && net.ParseIP(c.Robot.LocalIP) == nil {
		return fmt.Errorf("robot.local_ip %q is not a valid IP address", c.Robot.LocalIP)
	}
	if c.Link.ReconnectWait < 0 {
		return errors.New("link.reconnect_wait must not be negative")
	}
	if c.Link.ConnectTimeout <= 0 {
		return errors.New("link.connect_timeout must be positive")
	}
	if c.Timeouts.Default <= 0 {
		return errors.New("timeouts.default must be positive")
	}
	if c.Motion.PublishPeriodMs < 2.0 {
		return fmt.Errorf("motion.publish_period_ms %.1f is below the 2ms floor",
			c.Motion.PublishPeriodMs)
	}
	if c.Stream.BufferCapacity <= 0 {
		return errors.New("stream.buffer_capacity must be positive")
	}
	if c.Recorder.Enabled {
		if c.Recorder.Stream == "" {
			return errors.New("recorder.stream is required when recording is enabled")
		}
		if len(c.Recorder.Subjects) == 0 {
			return errors.New("recorder.subjects is required when recording is enabled")
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns an indented JSON rendering of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SaveToFile writes the configuration as indented JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// SafeConfig provides thread-safe access to a live configuration.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig wraps a config for concurrent access.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Loader loads layered configuration files with environment overrides.
// Later layers override earlier ones field by field.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a loader with the MAGICBOT environment prefix and
// validation enabled.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  "MAGICBOT",
	}
}

// AddLayer appends a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles validation of the merged result.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads a single file over the defaults.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges all layers over the defaults, applies environment overrides
// and validates the result.
func (l *Loader) Load() (*Config, error) {
	merged := configToMap(Default())

	for _, path := range l.layers {
		layer, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		merged = deepMergeMaps(merged, layer)
	}

	cfg, err := mapToConfig(merged)
	if err != nil {
		return nil, err
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	parseDurationFields(raw)
	return raw, nil
}

// durationFields maps top-level sections to their duration-typed keys, so
// file layers may write "2s" instead of nanosecond numbers.
var durationFields = map[string][]string{
	"link":     {"reconnect_wait", "ping_interval", "health_interval", "connect_timeout", "drain_timeout"},
	"timeouts": {"default", "motion", "sensor"},
}

func parseDurationFields(raw map[string]any) {
	for section, keys := range durationFields {
		m, ok := raw[section].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range keys {
			s, ok := m[key].(string)
			if !ok {
				continue
			}
			if d, err := time.ParseDuration(s); err == nil {
				m[key] = d.Nanoseconds()
			}
		}
	}
}

func configToMap(cfg *Config) map[string]any {
	data, err := json.Marshal(cfg)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func mapToConfig(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// deepMergeMaps merges override into base recursively; override wins on
// conflicts, nil override values are skipped.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"ROBOT_NAME", func(v string) error { cfg.Robot.Name = v; return nil }},
		{"ROBOT_LOCAL_IP", func(v string) error { cfg.Robot.LocalIP = v; return nil }},
		{"ROBOT_URL", func(v string) error { cfg.Robot.URL = v; return nil }},
		{"RECORDER_ENABLED", func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			cfg.Recorder.Enabled = b
			return nil
		}},
		{"RECORDER_STREAM", func(v string) error { cfg.Recorder.Stream = v; return nil }},
		{"RECORDER_SUBJECTS", func(v string) error {
			cfg.Recorder.Subjects = strings.Split(v, ",")
			return nil
		}},
		{"PUBLISH_PERIOD_MS", func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			cfg.Motion.PublishPeriodMs = f
			return nil
		}},
	}

	for _, o := range overrides {
		key := l.envPrefix + "_" + o.key
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if err := validateEnvVar(key, val); err != nil {
			return err
		}
		if err := o.apply(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}
