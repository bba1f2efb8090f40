package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"suitegen/internal/config"
	"suitegen/internal/storage"
	"suitegen/pkg/suitegen"
)

// Set by build flags.
var version = "dev"

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the persistent flags and writers shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *charmlog.Logger

	configPath string
	storeKind  string
	dbPath     string
	logLevel   string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "suitegenctl",
		Short: "Generate compact test suites from parameter domains",
		Long: `suitegenctl builds a pairwise seed suite from parameter domains and
refines it with a hybrid artificial bee colony search, keeping the
highest scoring cases.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = charmlog.NewWithOptions(a.stderr, charmlog.Options{
				ReportTimestamp: false,
				Prefix:          "suitegenctl",
			})
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML settings file")
	flags.StringVar(&a.storeKind, "store", "", "store backend: memory or sqlite")
	flags.StringVar(&a.dbPath, "db-path", "", "sqlite database path")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newExploreCmd(a))
	root.AddCommand(newRunsCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newPairsCmd(a))
	root.AddCommand(newExportCmd(a))
	return root
}

// settings loads the config file and applies the persistent flag overrides.
func (a *app) settings(cmd *cobra.Command) (config.Settings, error) {
	settings, err := config.Load(a.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		settings.Storage.Kind = a.storeKind
	}
	if flags.Changed("db-path") {
		settings.Storage.DBPath = a.dbPath
	}
	if flags.Changed("log-level") {
		settings.Log.Level = a.logLevel
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}

	if settings.Log.Level != "" {
		level, err := charmlog.ParseLevel(settings.Log.Level)
		if err != nil {
			return config.Settings{}, err
		}
		a.logger.SetLevel(level)
	}
	return settings, nil
}

func (a *app) client(ctx context.Context, settings config.Settings, reg prometheus.Registerer) (*suitegen.Client, error) {
	a.logger.Debug("opening store", "kind", settings.Storage.Kind, "path", settings.Storage.DBPath)
	return suitegen.NewClient(ctx, suitegen.Options{
		StoreKind:  settings.Storage.Kind,
		DBPath:     settings.Storage.DBPath,
		Logger:     a.logger,
		Registerer: reg,
	})
}

func closeClient(a *app, client *suitegen.Client) {
	if err := client.Close(); err != nil {
		a.logger.Warn("close store", "err", err)
	}
}

func isMemoryStore(settings config.Settings) bool {
	return settings.Storage.Kind == "" || strings.EqualFold(settings.Storage.Kind, storage.KindMemory)
}
