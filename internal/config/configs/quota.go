package configs

// Quota configures the plan limit on accounts per workspace.
type Quota struct {
	// MaxAccounts is the number of accounts a workspace may hold unless the
	// override flag is persisted.
	MaxAccounts int `env:"MAX_ACCOUNTS" envDefault:"1"`
	// Override, when set, is persisted as the override flag at startup.
	Override bool `env:"OVERRIDE" envDefault:"false"`
}
