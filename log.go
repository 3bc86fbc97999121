package coffer

import (
	"log"
	"os"
)

// PrintDebugInfo gates coffer's internal debug logging, off by default.
// Set it before calling ReadFrom or OpenFile to see their debug tracing
// on stderr. Mirrors wasm.PrintDebugInfo in the teacher repo.
var PrintDebugInfo = false

var logger = log.New(debugWriter{}, "", log.Lshortfile)

// debugWriter forwards to stderr only while PrintDebugInfo is set, so the
// flag is honoured whenever it is changed, not just at package init.
type debugWriter struct{}

func (debugWriter) Write(p []byte) (int, error) {
	if !PrintDebugInfo {
		return len(p), nil
	}
	return os.Stderr.Write(p)
}
