// Package cli implements labctl, the operator and developer command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/labassist/backend/config"
	"github.com/labassist/backend/internal/app"
	"github.com/labassist/backend/internal/usecase"
)

type globalOptions struct {
	labCSV        string
	competitorCSV string
	databaseURL   string
	timeout       time.Duration
	verbose       bool
}

// NewRootCommand creates the labctl command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "labctl",
		Short:         "Inspect the lab catalog matcher and the escalation journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.labCSV, "lab-csv", "", "Lab catalog CSV (overrides the configured source)")
	root.PersistentFlags().StringVar(&opts.competitorCSV, "competitor-csv", "", "Competitor price CSV, used with --lab-csv")
	root.PersistentFlags().StringVar(&opts.databaseURL, "db", "", "Database connection string (overrides LABASSIST_CATALOG_DATABASE_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall command timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log matcher decisions")

	root.AddCommand(
		MatchCommand(opts),
		CompareCommand(opts),
		MigrateCommand(opts),
		EscalationsCommand(opts),
	)

	return root
}

// loadConfig reads the configuration and applies command line overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}

	if o.labCSV != "" {
		cfg.Catalog.Source = "csv"
		cfg.Catalog.LabCSV = o.labCSV
		cfg.Catalog.CompetitorCSV = o.competitorCSV
	}
	if o.databaseURL != "" {
		cfg.Catalog.DatabaseURL = o.databaseURL
	}
	if o.verbose {
		cfg.Matching.EnableDebugLogging = true
	}
	return cfg, nil
}

func (o *globalOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// catalogEnv is what match and compare need: a loaded snapshot and the matcher.
type catalogEnv struct {
	snapshot *usecase.CatalogSnapshot
	matching app.Matching
	logger   *zap.Logger
	close    func()
}

func (o *globalOptions) loadCatalog(ctx context.Context) (*catalogEnv, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCatalog(); err != nil {
		return nil, err
	}

	logger := o.logger()
	matching, err := app.NewMatching(cfg.Matching, logger)
	if err != nil {
		return nil, err
	}

	source, db, err := app.NewCatalogSource(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	closeFn := func() {}
	if db != nil {
		closeFn = func() { _ = db.Close() }
	}

	index := usecase.NewCatalogIndex(source, matching.Normalizer, usecase.CatalogIndexConfig{LoadTimeout: o.timeout}, logger)
	if _, err := index.Refresh(ctx); err != nil {
		closeFn()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return &catalogEnv{
		snapshot: index.Snapshot(),
		matching: matching,
		logger:   logger,
		close:    closeFn,
	}, nil
}
