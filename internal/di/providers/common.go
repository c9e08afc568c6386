package providers

import "time"

const (
	// shutdownTimeout bounds graceful shutdown of the HTTP server.
	shutdownTimeout = 15 * time.Second
)
