package configs

// Redis configures the Redis client used by the redis broadcast backend.
type Redis struct {
	// Addr is the host:port of the Redis server.
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	// Channel is the pub/sub channel carrying preference broadcasts.
	Channel string `env:"CHANNEL" envDefault:"agency-hub:preferences"`
}
