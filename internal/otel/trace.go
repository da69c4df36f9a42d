package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled gates per-result events, which are too chatty for normal runs.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("SOUNDSCOPE_TRACE") != "")
}

// TraceEnabled reports whether SOUNDSCOPE_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides the SOUNDSCOPE_TRACE setting (the --trace flag).
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
