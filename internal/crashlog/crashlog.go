// Package crashlog records recovered panics with their stack traces.
package crashlog

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/neboloop/extharness/internal/logging"
)

var panics atomic.Int64

// LogPanic records a recovered panic with a stack trace.
func LogPanic(module string, r any, attrs ...any) {
	panics.Add(1)

	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)

	args := append([]any{"panic", fmt.Sprintf("%v", r), "stack", string(stack[:n])}, attrs...)
	logging.Component(module).Error("recovered panic", args...)
}

// LogError records an error. A nil err is ignored.
func LogError(module string, err error, attrs ...any) {
	if err == nil {
		return
	}
	args := append([]any{"error", err}, attrs...)
	logging.Component(module).Error("error", args...)
}

// Panics returns how many panics were recorded since start.
func Panics() int64 {
	return panics.Load()
}
