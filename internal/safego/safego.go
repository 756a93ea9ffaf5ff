// Package safego runs background goroutines that survive panics.
package safego

import "log/slog"

// Go runs fn on its own goroutine and recovers any panic, logging it instead
// of letting it take the process down. Use it for long-lived background work
// (the metrics listener, the profiling endpoint, the HTTP server itself) where
// a panicking goroutine would otherwise die unobserved or crash the server.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}
