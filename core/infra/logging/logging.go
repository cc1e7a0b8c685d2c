package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base *zap.SugaredLogger
)

func init() {
	base = build().Sugar()
}

// build constructs the process logger from LOG_LEVEL/LOG_FORMAT.
func build() *zap.Logger {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// SetLogger swaps the backing logger; tests use this to capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l.Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Info logs a message with key/value fields under the component name.
func Info(component, msg string, kv ...any) {
	current().Named(strings.ToUpper(component)).Infow(msg, pad(kv)...)
}

// Error logs an error message with key/value fields under the component name.
func Error(component, msg string, kv ...any) {
	current().Named(strings.ToUpper(component)).Errorw(msg, pad(kv)...)
}

func pad(kv []any) []any {
	if len(kv)%2 != 0 {
		kv = append(kv, "(missing)")
	}
	return kv
}
