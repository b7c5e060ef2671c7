// Package debug provides conditional debug logging and always-on warnings
// for drillmap.
//
// Debug logging is enabled by setting the DRILLMAP_DEBUG environment variable:
//
//	DRILLMAP_DEBUG=1 drillmap --country chile
//
// When enabled, debug messages are written with timestamps. When disabled
// (default), Log and friends are no-ops.
//
// Warnings are never gated. They report recoverable conditions such as a map
// region that matches no hierarchy entity or a map asset that failed to load.
// The TUI redirects them away from the alternate screen with SetOutput.
//
// Usage:
//
//	import "github.com/vanderheijden86/drillmap/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("arming %d regions", count)
//	    debug.Warn("region %q has no matching province", id)
//	}
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	// enabled is true when DRILLMAP_DEBUG env var is set
	enabled bool

	mu     sync.Mutex
	out    io.Writer = os.Stderr
	logger *log.Logger
	warner *log.Logger
	// hook receives every warning message after it is written
	hook func(string)
)

func init() {
	if os.Getenv("DRILLMAP_DEBUG") != "" {
		enabled = true
	}
	rebuild()
}

func rebuild() {
	logger = log.New(out, "[DRILLMAP_DEBUG] ", log.Ltime|log.Lmicroseconds)
	warner = log.New(out, "[WARN] ", log.Ltime)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
}

// SetOutput redirects both debug and warning output.
// Passing nil restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
	rebuild()
}

// SetWarnHook registers fn to observe warnings (e.g. for a status line).
// Passing nil removes the hook.
func SetWarnHook(fn func(string)) {
	mu.Lock()
	hook = fn
	mu.Unlock()
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("%s took %v", name, d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	Log("-> %s", name)
	start := time.Now()
	return func() {
		Log("<- %s (%v)", name, time.Since(start))
	}
}

// Warn writes a warning regardless of DRILLMAP_DEBUG and forwards it to the
// registered hook, if any.
func Warn(format string, args ...any) {
	mu.Lock()
	warner.Printf(format, args...)
	fn := hook
	mu.Unlock()
	if fn != nil {
		fn(fmt.Sprintf(format, args...))
	}
}
