// Package logger owns the process-wide zap logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.Logger
)

// Init builds the JSON production logger when env is "production" and a
// colored console logger otherwise, then installs it as the zap global.
func Init(env string) error {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	log = built
	mu.Unlock()
	zap.ReplaceGlobals(built)
	return nil
}

// L returns the configured logger, falling back to a development logger.
func L() *zap.Logger {
	mu.RLock()
	current := log
	mu.RUnlock()
	if current != nil {
		return current
	}

	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log, _ = zap.NewDevelopment()
		if log == nil {
			log = zap.NewNop()
		}
	}
	return log
}

// Set replaces the logger; tests use it with zap.NewNop or zaptest.
func Set(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

func Sync() {
	mu.RLock()
	current := log
	mu.RUnlock()
	if current != nil {
		_ = current.Sync()
	}
}
