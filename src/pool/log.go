package pool

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	logOnce   sync.Once
	sharedLog zerolog.Logger
)

// logger returns the package's shared zerolog logger, created lazily so
// that importing this package has no side effect on process-wide logging
// configuration until the allocator actually needs to say something.
func logger() *zerolog.Logger {
	logOnce.Do(func() {
		sharedLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Str("component", "pool").Logger()
	})
	return &sharedLog
}

// SetLogger replaces the package's logger, e.g. so a hosting daemon can
// route pool diagnostics into its own structured log sink.
func SetLogger(l zerolog.Logger) {
	logOnce.Do(func() {})
	sharedLog = l
}

// exitProcess terminates the process after a fatal log line. It is a
// variable rather than a direct os.Exit call so tests can substitute a
// panic and observe the fatal path without killing the test binary.
var exitProcess = os.Exit

// fatalf logs a fatal condition and terminates the process. Its caller is
// the debug double-release check: that is unrecoverable corruption, not an
// error the caller can be handed back. System heap exhaustion does not
// pass through here; the Go runtime aborts the process on its own.
func fatalf(format string, args ...any) {
	logger().Error().Msgf(format, args...)
	exitProcess(1)
}
