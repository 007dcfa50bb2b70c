// Command eventviewer browses LEGEND physics events stored in LH5 tier files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	sqlx "github.com/jmoiron/sqlx"
	viewer "github.com/legend-exp/leds_go/pkg"
	"github.com/legend-exp/leds_go/pkg/lh5"
	"github.com/spf13/cobra"
)

var (
	configuration  viewer.Configuration
	logger         Logger
	configFilename string
	verbosityFlag  int
)

func init() {
	logger = NewLogger(os.Stdout, os.Stderr)
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "eventviewer",
		Short:             "LEGEND event viewer",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfiguration,
	}
	rootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "configuration file path (.json or .toml)")
	rootCmd.PersistentFlags().IntVarP(&verbosityFlag, "verbosity", "v", -1, "override the configured verbosity")

	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newLocateCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newChannelsCmd())
	rootCmd.AddCommand(newFixturesCmd())
	return rootCmd
}

func loadConfiguration(cmd *cobra.Command, _ []string) error {
	var err error
	configuration, err = LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	if verbosityFlag >= 0 {
		configuration.Verbosity = verbosityFlag
	}
	viewer.SetConfiguration(configuration)
	viewer.SetLogger(logger)

	if configuration.Verbosity > 0 {
		if configFilename != "" {
			message := fmt.Sprintf("Reading configuration file: %s", configFilename)
			logger.Info(message, "main")
		}
		printConfiguration(configuration, logger.InfoLog)
	}
	return nil
}

// viewerEnv holds the resources shared by the commands that read events.
type viewerEnv struct {
	db      *sqlx.DB
	store   *lh5.Store
	meta    *viewer.DBMetadata
	session *viewer.Session
}

func openViewer(config viewer.Configuration) (*viewerEnv, error) {
	db, err := viewer.OpenDatabase(config)
	if err != nil {
		return nil, fmt.Errorf("error connecting to metadata database: %w", err)
	}
	store := lh5.NewStore()
	meta := viewer.NewDBMetadata(db)
	builder := viewer.NewBrowserFactory(meta, store)
	return &viewerEnv{
		db:      db,
		store:   store,
		meta:    meta,
		session: viewer.NewSession(config, meta, store, builder),
	}, nil
}

func (e *viewerEnv) Close() error {
	return errors.Join(e.store.Close(), e.db.Close())
}

// signalContext is cancelled on Ctrl-C.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

func selectionFlags(cmd *cobra.Command, sel *viewer.Selection) {
	cmd.Flags().StringVar(&sel.Period, "period", viewer.Wildcard, "period, * for every period")
	cmd.Flags().StringVar(&sel.Run, "run", viewer.Wildcard, "run, * for every run")
	cmd.Flags().StringVar(&sel.Cycle, "cycle", viewer.Wildcard, "cycle timestamp, * for every cycle")
	cmd.Flags().IntVar(&sel.Index, "index", 0, "event index within the selection")
}
