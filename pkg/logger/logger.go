package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap sugared logger behind the small surface the rest of the
// code uses.
type Logger struct {
	s *zap.SugaredLogger
}

func New() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	return &Logger{s: l.Sugar()}
}

// NewNop returns a logger that discards everything; handy in tests.
func NewNop() *Logger { return &Logger{s: zap.NewNop().Sugar()} }

func (l *Logger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }

// Sync flushes buffered entries; call on shutdown.
func (l *Logger) Sync() { _ = l.s.Sync() }
