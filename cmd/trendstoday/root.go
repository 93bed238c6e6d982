package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pevans/trendstoday/config"
	"github.com/pevans/trendstoday/content"
	"github.com/pevans/trendstoday/logger"
	"github.com/pevans/trendstoday/monetization"
	"github.com/pevans/trendstoday/newsletter"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "trendstoday",
		Short: "Trends Today content site",
		Long: `trendstoday serves the Trends Today articles, feeds and APIs from a
directory of MDX files, and runs the news scanner.

Configuration comes from trendstoday.yaml (or --config), TRENDS_* environment
variables and a .env file in the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.Init(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./trendstoday.yaml or ~/.trendstoday/config.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newPostsCmd(a),
		newSubscribersCmd(a),
		newScanCmd(a),
	)
	return root
}

func (a *app) loader() *content.Loader {
	return content.NewLoader(a.cfg.Content.Dir,
		content.WithWorkers(a.cfg.Content.Workers),
		content.WithLogger(a.log),
	)
}

// databasePath returns the SQLite file, creating its directory.
func (a *app) databasePath() (string, error) {
	dsn := a.cfg.Database.DSN
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return dsn, nil
}

func (a *app) subscriberStore() (*newsletter.SubscriberStore, error) {
	path, err := a.databasePath()
	if err != nil {
		return nil, err
	}
	store, err := newsletter.NewSubscriberStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscriber store: %w", err)
	}
	return store, nil
}

func (a *app) monetizationStore() (*monetization.Store, error) {
	path, err := a.databasePath()
	if err != nil {
		return nil, err
	}
	store, err := monetization.NewStore(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open monetization store: %w", err)
	}
	return store, nil
}
