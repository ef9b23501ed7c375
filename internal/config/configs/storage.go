package configs

// Storage selects the durable backing store and the broadcast transport.
// Backend may be "memory", "file" or "postgres"; Broadcast may be
// "memory" or "redis". Unknown values fall back to "memory".
type Storage struct {
	Backend   string `env:"BACKEND" envDefault:"memory"`
	Broadcast string `env:"BROADCAST" envDefault:"memory"`
	// Dir is the directory used by the file backend.
	Dir string `env:"DIR" envDefault:"./data"`
	// SeedDemo writes the demo document when no state is persisted yet.
	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
}
