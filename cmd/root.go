package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/eduassist/internal/config"
	"github.com/abhisek/eduassist/internal/logging"
	"github.com/abhisek/eduassist/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "eduassist",
	Short: "Study assistant backend",
	Long:  "eduassist answers questions about uploaded study material and tracks learner progress.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal.
		_ = godotenv.Load()
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config (default ./eduassist.yaml or ~/.config/eduassist/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path or Postgres DSN (overrides EDUASSIST_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "DEBUG, INFO, WARN or ERROR (overrides log.level and EDUASSIST_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config if given, else searches the default locations,
// then installs the logger at the configured level. --log-level wins.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		cfg, err = config.Load(p)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Configure(cfg.Log.Level)
	applyLogLevel(cmd)
	return cfg, nil
}

func applyLogLevel(cmd *cobra.Command) {
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		logging.SetLevel(logging.ParseLevel(lvl))
	}
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then EDUASSIST_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// resolveDSN picks the connection string for cfg's driver. For Postgres the
// --db flag replaces the configured DSN; for SQLite it falls back to the
// default path lookup.
func resolveDSN(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if cfg.Database.Driver == store.DriverPostgres {
		if p, _ := cmd.Flags().GetString("db"); p != "" {
			return p, nil
		}
		return cfg.Database.DSN, nil
	}
	if p, _ := cmd.Flags().GetString("db"); p == "" && cfg.Database.DSN != "" {
		return cfg.Database.DSN, store.EnsureDir(cfg.Database.DSN)
	}
	return resolveDBPath(cmd)
}

// openStore loads config and opens the configured database.
func openStore(cmd *cobra.Command) (*config.Config, *store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	dsn, err := resolveDSN(cmd, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, s, nil
}
