// Package loggertest builds loggers for tests, keeping the testing package
// out of production binaries.
package loggertest

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"exchange-matcher/internal/common/logger"
)

// New returns a Logger that writes through t.
func New(t testing.TB) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}
