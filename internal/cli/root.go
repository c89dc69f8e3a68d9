package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/audit"
	"trade-journal/internal/config"
	"trade-journal/internal/inbox"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/planning"
	"trade-journal/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

// skipSetup marks commands that run without config or a database.
const skipSetup = "skip-setup"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    *store.SQLiteStore
	Audit    audit.Recorder
	Inbox    *inbox.Service
	Journal  *journal.Service
	Planning *planning.Service

	auditCloser *audit.Logger
}

// Owner returns the configured owner id.
func (a *App) Owner() string {
	return a.Config.Owner.ID
}

// setup loads configuration and opens the store and services.
func (a *App) setup(configDir string, debug bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	a.Config = cfg
	if !cfg.UI.ColorEnabled {
		color.NoColor = true
	}

	logCfg := logging.LogConfig{
		Level:      cfg.Log.Level,
		Console:    cfg.Log.Console,
		File:       cfg.Log.File,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}
	if debug {
		logCfg.Level = "debug"
	}
	a.Logger = logging.WithOwner(logging.NewLoggerWithConfig(logCfg), cfg.Owner.ID)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening journal database: %w", err)
	}
	a.Store = st
	a.Logger.Debug().Str("path", cfg.Database.Path).Msg("SQLite store initialized")

	a.Audit = audit.Nop()
	if cfg.Audit.Enabled {
		auditCfg := audit.DefaultConfig()
		auditCfg.Dir = cfg.Audit.Dir
		al, err := audit.NewLogger(auditCfg)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to open audit trail, continuing without it")
		} else {
			a.Audit = al
			a.auditCloser = al
		}
	}

	a.Inbox = inbox.NewService(st, a.Audit, a.Logger)
	a.Journal = journal.NewService(st, a.Audit, a.Logger)
	a.Planning = planning.NewService(st, a.Audit, a.Logger)
	return nil
}

// Close releases the store and audit trail.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close store")
		}
	}
	if a.auditCloser != nil {
		a.auditCloser.Close()
	}
}

// newRootCmd creates the root command for the CLI.
func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade Journal - record trades, review imports, track P&L",
		Long: `Trade Journal keeps a personal record of stock and crypto trades.

Brokerage exports from IBKR and Kraken are imported into a review inbox,
deduplicated against what is already recorded, and accepted into the journal
once they validate. Positions and realized P&L are computed from the full
trade history using a rolling average cost.

Use 'journal help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsSetup(cmd) || app.Inbox != nil {
				return nil
			}
			configDir, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")
			return app.setup(configDir, debug)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	addCoreCommands(rootCmd, app)
	addImportCommands(rootCmd, app)
	addInboxCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addReportCommands(rootCmd, app)
	addPlanningCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)

	return rootCmd
}

// Execute runs the root command and releases resources afterwards.
func Execute(logger zerolog.Logger, args []string) error {
	app := &App{Logger: logger}
	defer app.Close()

	rootCmd := newRootCmd(app)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func needsSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipSetup] == "true" || c.Name() == "help" || c.Name() == "completion" {
			return false
		}
	}
	return true
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Trade Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Journal")
	output.Printf("  Owner:           %s\n", cfg.Owner.ID)
	output.Printf("  Database:        %s\n", cfg.Database.Path)
	output.Printf("  Config dir:      %s\n", cfg.Dir)
	output.Println()

	output.Bold("Import")
	output.Printf("  IBKR timezone:   %s\n", cfg.Import.Timezone)
	output.Printf("  Fingerprint ids: %v\n", cfg.Import.FingerprintMissingIDs)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  File:            %v (%s)\n", cfg.Log.File, cfg.Log.FilePath)
	output.Printf("  Audit trail:     %v (%s)\n", cfg.Audit.Enabled, cfg.Audit.Dir)
}
