package di

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig configures the logger created by a Container
// when no logger is given with WithLogger.
type LogConfig struct {
	// Level is a zap level (debug, info, warn, error).
	// The container does not log anything if it is empty.
	Level string `yaml:"level"`

	// Development enables the zap development configuration
	// (console encoder, stack traces on warnings).
	Development bool `yaml:"development"`
}

// Logger builds the zap.Logger described by the configuration.
func (c LogConfig) Logger() (*zap.Logger, error) {
	if c.Level == "" {
		return zap.NewNop(), nil
	}

	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", c.Level)
	}

	cfg := zap.NewProductionConfig()
	if c.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "could not build logger")
	}

	return logger.Named("di"), nil
}

// NewDevelopmentLogger returns a debug logger writing human readable logs.
// It can be given to WithLogger to follow the registrations and constructions.
func NewDevelopmentLogger() (*zap.Logger, error) {
	return LogConfig{Level: "debug", Development: true}.Logger()
}
