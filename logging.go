package wavm

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns this package's logger. It is a no-op logger until SetLogger
// is called, so embedding this module never produces unwanted output.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures this package's logger. Every later Logger call
// returns l; nothing is captured at first use. The assignment is not
// synchronized with concurrent Logger calls, so call it, if at all, before
// any other goroutine uses this package.
func SetLogger(l *zap.Logger) {
	logger = l
}
