package configs

import "time"

// HTTP defines configuration for the HTTP server that exposes the store to
// the view layer.
type HTTP struct {
	// Port is the TCP port the HTTP server will listen on. Defaults to 8080.
	Port uint16 `env:"PORT" envDefault:"8080"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	// AllowedOrigins lists origins accepted on the websocket endpoint. An
	// empty list accepts same-host requests only.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}
