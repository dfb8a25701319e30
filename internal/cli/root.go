// Package cli defines the cobra commands of the dialin command-line companion.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/config"
	"github.com/ZanzyTHEbar/dialin/internal/database"
	"github.com/ZanzyTHEbar/dialin/internal/monitoring"
)

var version = "dev" // set via ldflags at build time

// app is the opened journal shared by every subcommand
type app struct {
	db        *database.DB
	analyzer  *analysis.Analyzer
	settings  *database.SettingsService
	beans     *database.BeanService
	shots     *database.ShotService
	analytics *database.AnalyticsService
}

type rootOptions struct {
	dataDir      string
	settingsFile string
	jsonOut      bool
	verbose      bool

	app *app
}

// open builds the store and services the first time a command needs them
func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	if o.app != nil {
		return o.app, nil
	}

	db, err := database.NewDB(o.dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening journal in %s: %w", o.dataDir, err)
	}

	analyzer, err := analysis.NewAnalyzerFromDir(o.dataDir)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v, using default calibration\n", err)
	}

	repo := database.NewRepository(db)
	settings := database.NewSettingsService(repo)

	if o.settingsFile != "" {
		eq, err := config.ReadEquipment(o.settingsFile)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := settings.SeedDefaults(cmd.Context(), eq.Grinder, eq.Basket); err != nil {
			db.Close()
			return nil, err
		}
	}

	o.app = &app{
		db:        db,
		analyzer:  analyzer,
		settings:  settings,
		beans:     database.NewBeanService(repo, nil),
		shots:     database.NewShotService(repo, settings, analyzer, nil),
		analytics: database.NewAnalyticsService(repo, settings, analyzer),
	}
	return o.app, nil
}

func (o *rootOptions) close() error {
	if o.app == nil {
		return nil
	}
	err := o.app.db.Close()
	o.app = nil
	return err
}

// withApp adapts a command body that needs the opened journal into a RunE
func (o *rootOptions) withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := o.open(cmd)
		if err != nil {
			return err
		}
		defer o.close()
		return fn(cmd, args, a)
	}
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "dialin",
		Short: "Espresso shot journal",
		Long: `dialin keeps a journal of espresso shots per coffee bean, scores each
shot and suggests how to adjust the grinder for the next one.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			slog.SetDefault(monitoring.NewLoggerWithWriter(cmd.ErrOrStderr(), level).Logger)

			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("data-dir") {
				opts.dataDir = cfg.Storage.DataDir
			}
			if !cmd.Flags().Changed("settings-file") {
				opts.settingsFile = cfg.Storage.SettingsFile
				if os.Getenv("SETTINGS_FILE") == "" {
					opts.settingsFile = filepath.Join(opts.dataDir, config.EquipmentFileName)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "./data", "Directory holding the journal database (env DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.settingsFile, "settings-file", "", "YAML equipment file applied to unset grinder/basket settings (env SETTINGS_FILE)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newInitCmd(opts))
	rootCmd.AddCommand(newBeansCmd(opts))
	rootCmd.AddCommand(newShotsCmd(opts))
	rootCmd.AddCommand(newStatsCmd(opts))
	rootCmd.AddCommand(newTrendCmd(opts))
	rootCmd.AddCommand(newScoreCmd(opts))
	rootCmd.AddCommand(newRecommendCmd(opts))
	rootCmd.AddCommand(newSeedCmd(opts))

	return rootCmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
