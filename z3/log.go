package z3

import (
	"io"
	"log/slog"
	"sync/atomic"
)

var logp atomic.Pointer[slog.Logger]

func init() {
	logp.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// SetLogger routes the package's debug output (handle acquisition and
// release, environment shutdown) to l. A nil l silences it again.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logp.Store(l)
}

func logger() *slog.Logger { return logp.Load() }
