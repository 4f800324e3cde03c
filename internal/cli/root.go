package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "dexadmin",
		Short: "Admin tool for the global dex service",
		Long: `dexadmin is an administrative tool for the global dex service.

API commands talk to a running server and identify themselves with the admin
User-Agent so they show up in the audit log. The db commands open the SQLite
database directly for backups and player maintenance.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Create HTTP client
			client = NewClient(cfg.ServerURL, cfg.UserAgent)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: GLOBALDEX_ADMIN_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent sent to the API (env: GLOBALDEX_ADMIN_UA)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newUncaptureCmd())
	rootCmd.AddCommand(newDexCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newSearchPlayerCmd())
	rootCmd.AddCommand(newCaughtCountCmd())
	rootCmd.AddCommand(newDBCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// logger writes diagnostics for the db commands to stderr
func logger() *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
