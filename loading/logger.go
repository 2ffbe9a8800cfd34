package loading

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	nopLogger = zap.NewNop()
	logger    atomic.Pointer[zap.Logger]
)

// Logger returns the loading package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLogger
}

// SetLogger configures the loading package's logger. It is safe to call
// while other goroutines log; a nil logger restores the no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
