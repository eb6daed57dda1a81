package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/labassist/backend/internal/infrastructure/postgres"
)

func (o *globalOptions) openDatabase() (*sqlx.DB, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is required (use --db or LABASSIST_CATALOG_DATABASE_URL)")
	}
	return postgres.Open(cfg.Catalog.DatabaseURL)
}

// MigrateCommand creates the catalog and audit tables.
func MigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog and audit tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			db, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

// EscalationsCommand prints the newest escalation audit events.
func EscalationsCommand(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "List recent escalation audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			db, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			events, err := postgres.NewAuditJournal(db).Recent(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tREQUESTER\tISSUER\tQUERY\tDETAIL")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.At.Format("2006-01-02 15:04:05"), e.Kind, e.RequesterID, e.IssuerID, e.Query, e.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of events to show")
	return cmd
}
