package logger

import (
	"strings"

	"go.uber.org/zap"

	"social-content-platform/internal/config"
)

var Logger *zap.SugaredLogger

// InitLogger initializes structured logging based on configuration
func InitLogger(cfg *config.Config) error {
	var zcfg zap.Config
	if cfg.GinMode == "release" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	zapLogger, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	Logger = zapLogger.Sugar()

	Logger.Debugw("Structured logging initialized", "mode", cfg.GinMode)
	return nil
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Helper functions for common log operations
func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Infow(msg, redact(args)...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Errorw(msg, redact(args)...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debugw(msg, redact(args)...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warnw(msg, redact(args)...)
	}
}

// redact masks values whose key looks like a credential.
func redact(kv []any) []any {
	if len(kv) < 2 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if isSecretKey(strings.ToLower(key)) {
			out[i+1] = "[REDACTED]"
		}
	}
	return out
}

func isSecretKey(key string) bool {
	return strings.Contains(key, "token") ||
		strings.Contains(key, "secret") ||
		strings.Contains(key, "password") ||
		strings.Contains(key, "api_key") ||
		strings.Contains(key, "authorization")
}
