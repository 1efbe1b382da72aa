// Package timeouts centralizes shared timeout defaults for relay servers.
package timeouts

import "time"

const (
	// ReadHeader bounds how long an HTTP server waits for request headers.
	ReadHeader = 5 * time.Second
	// Shutdown bounds graceful server shutdown.
	Shutdown = 5 * time.Second
)
