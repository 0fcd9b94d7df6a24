package di

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvAllowOverriding = "DI_ALLOW_OVERRIDING"
	EnvActiveProfiles  = "DI_PROFILES_ACTIVE"
	EnvDefaultProfiles = "DI_PROFILES_DEFAULT"
	EnvLogLevel        = "DI_LOG_LEVEL"
	EnvLogDevelopment  = "DI_LOG_DEVELOPMENT"
)

// Config contains the settings of a Container.
type Config struct {
	// AllowDefinitionOverriding allows to replace a definition
	// by registering another one with the same name.
	AllowDefinitionOverriding bool `yaml:"allowDefinitionOverriding"`

	Profiles ProfileSet `yaml:"profiles"`

	Log LogConfig `yaml:"log"`
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "could not read config file %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig reads a Config from YAML data.
func ParseConfig(data []byte) (Config, error) {
	cfg := Config{}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "could not parse config")
	}

	return cfg, cfg.Profiles.Validate()
}

// ConfigFromEnv reads a Config from the environment variables.
// The given .env files are loaded first, if they exist.
// Variables already set in the environment are not overridden by the files.
//
// Profile lists are comma-separated. Blank entries are kept
// so that they are reported as invalid profiles.
func ConfigFromEnv(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, errors.Wrapf(err, "could not load %s", f)
		}
	}

	cfg := Config{}

	if v := os.Getenv(EnvAllowOverriding); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid %s", EnvAllowOverriding)
		}
		cfg.AllowDefinitionOverriding = allow
	}

	if v, ok := os.LookupEnv(EnvActiveProfiles); ok {
		cfg.Profiles.Active = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvDefaultProfiles); ok {
		cfg.Profiles.Default = splitList(v)
	}

	cfg.Log.Level = os.Getenv(EnvLogLevel)

	if v := os.Getenv(EnvLogDevelopment); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid %s", EnvLogDevelopment)
		}
		cfg.Log.Development = dev
	}

	return cfg, cfg.Profiles.Validate()
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return []string{}
	}

	items := strings.Split(v, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}

// Option configures a Container.
type Option func(*options)

type options struct {
	config  Config
	logger  *zap.Logger
	metrics *Metrics
	hooks   []Hook
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithProfiles sets the active profiles.
func WithProfiles(active ...string) Option {
	return func(o *options) {
		o.config.Profiles.Active = active
	}
}

// WithDefaultProfiles sets the profiles used when there is no active profile.
func WithDefaultProfiles(defaults ...string) Option {
	return func(o *options) {
		o.config.Profiles.Default = defaults
	}
}

// AllowOverriding allows or forbids definition overriding.
func AllowOverriding(allow bool) Option {
	return func(o *options) {
		o.config.AllowDefinitionOverriding = allow
	}
}

// WithLogger sets the logger. It takes precedence over the log configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the collector of construction metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHook adds a function called during the construction of each object.
func WithHook(h Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, h)
	}
}
