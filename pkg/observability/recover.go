package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic logs a panic raised by a background task, with its stack, and
// swallows it. Call it directly from a defer:
//
//	defer observability.RecoverPanic(logger, "stats refresh")
func RecoverPanic(logger *Logger, task string) {
	rec := recover()
	if rec == nil {
		return
	}
	logger.WithFields(map[string]interface{}{
		"panic": fmt.Sprint(rec),
		"stack": string(debug.Stack()),
		"task":  task,
	}).Error("Recovered from panic")
}

// PanicError wraps a value returned by recover() as an error. nil stays nil.
func PanicError(rec interface{}) error {
	if rec == nil {
		return nil
	}
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", rec)
}
