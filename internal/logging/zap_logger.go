package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.Logger to imdbload.Logger.
type ZapLogger struct {
	z *zap.Logger
}

// NewZap builds a production JSON zap logger at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func NewZap(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(strings.ToLower(strings.TrimSpace(level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}

// NewZapLogger wraps z. Verbose maps to debug.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		panic("zap logger cannot be nil")
	}
	return &ZapLogger{z: z}
}

// Zap returns the underlying logger for callers that want structured fields.
func (l *ZapLogger) Zap() *zap.Logger { return l.z }

func (l *ZapLogger) Verbose(format string, args ...interface{}) {
	if ce := l.z.Check(zapcore.DebugLevel, ""); ce != nil {
		ce.Message = fmt.Sprintf(format, args...)
		ce.Write()
	}
}

func (l *ZapLogger) Info(format string, args ...interface{}) {
	l.z.Info(fmt.Sprintf(format, args...))
}

func (l *ZapLogger) Error(format string, args ...interface{}) {
	l.z.Error(fmt.Sprintf(format, args...))
}
