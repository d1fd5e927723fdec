// Package observability builds the zap loggers shared by the relay and the
// offline tools.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// NewLogger builds the process logger for service. json selects zap's
// production preset, console the development one; both stamp ISO8601 times
// and carry a "service" field.
//
// Precondition: cfg must have passed config validation.
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	zapCfg, err := preset(cfg.Format)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{"service": service}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s logger: %w", service, err)
	}
	return logger, nil
}

func preset(format string) (zap.Config, error) {
	switch format {
	case "json":
		return zap.NewProductionConfig(), nil
	case "console":
		return zap.NewDevelopmentConfig(), nil
	default:
		return zap.Config{}, fmt.Errorf("unknown log format %q", format)
	}
}

// ForGame returns a child of logger tagged with a relay game code and, when
// non-empty, a player slot.
//
// Precondition: logger must be non-nil.
func ForGame(logger *zap.Logger, code, slot string) *zap.Logger {
	fields := []zap.Field{zap.String("game", code)}
	if slot != "" {
		fields = append(fields, zap.String("slot", slot))
	}
	return logger.With(fields...)
}
