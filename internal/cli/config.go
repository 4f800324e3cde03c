package cli

import (
	"time"

	"github.com/mcoot/globaldex/internal/config"
)

// Config holds CLI configuration
type Config struct {
	ServerURL     string
	UserAgent     string
	DBPath        string
	DBBusyTimeout time.Duration
	Output        string
	Verbose       bool
	Backup        config.BackupConfig
}

// DefaultConfig returns a Config seeded from the environment
func DefaultConfig() *Config {
	env, err := config.LoadAdmin()
	if err != nil {
		// Flags can still supply everything; fall back to built-in defaults
		env = config.AdminConfig{
			ServerURL:      "http://localhost:8080",
			AdminUserAgent: "Global-Dex-Admin",
			DBPath:         "data/globaldex.db",
			DBBusyTimeout:  5 * time.Second,
		}
	}

	return &Config{
		ServerURL:     env.ServerURL,
		UserAgent:     env.AdminUserAgent,
		DBPath:        env.DBPath,
		DBBusyTimeout: env.DBBusyTimeout,
		Output:        "text",
		Verbose:       false,
		Backup:        env.Backup,
	}
}
