package nanomodel

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger sets the logger used by the package. A nil logger disables
// logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("nanomodel"))
}

// Logger returns the package logger.
func Logger() *zap.Logger {
	return logger.Load()
}
