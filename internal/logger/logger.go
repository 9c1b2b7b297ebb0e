package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const service = "skillsync"

// Config derives the process logger configuration from the production preset.
// Messages are keyed as steps, sampling is off and stack traces are only
// attached in debug mode.
func Config(json bool, debug bool) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.DisableStacktrace = !debug
	cfg.InitialFields = map[string]any{"service": service}

	cfg.Encoding = "console"
	if json {
		cfg.Encoding = "json"
	}

	if debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}

	enc := &cfg.EncoderConfig
	enc.MessageKey = "step"
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder

	return cfg
}

// New builds the process logger. Console encoding is used unless json is set.
func New(json bool, debug bool) (*zap.Logger, error) {
	return Config(json, debug).Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
