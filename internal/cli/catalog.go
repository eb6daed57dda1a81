package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/usecase"
)

// MatchCommand runs a query through the matcher against the lab catalog.
func MatchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "match <query>",
		Short: "Show which lab tests a query matches",
		Long: `Normalizes the query, matches it against the lab catalog and prints
every matched test with its price and turnaround.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			env, err := opts.loadCatalog(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			query := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			names, err := env.matching.Matcher.Match(ctx, query, env.snapshot.LabNames())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "normalized: %s\n", env.matching.Normalizer.Normalize(query))
			if len(names) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}

			entries := make([]domain.CatalogEntry, 0, len(names))
			for _, name := range names {
				if entry, ok := env.snapshot.LabEntry(name); ok {
					entries = append(entries, entry)
				}
			}
			fmt.Fprintln(out, usecase.FormatLabEntries(entries))
			return nil
		},
	}
}

// CompareCommand matches a query and prints the competitor comparison for it.
func CompareCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <query>",
		Short: "Compare competitor prices for a query",
		Long: `Matches the query against the lab catalog the same way a chat turn
does, then looks every matched test up in the competitor catalog. When
nothing matches, the raw query itself is compared.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			env, err := opts.loadCatalog(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			query := strings.Join(args, " ")
			names, err := env.matching.Matcher.Match(ctx, query, env.snapshot.LabNames())
			if err != nil {
				return err
			}

			session := domain.PendingSession{RequesterID: "labctl", MatchedNames: names}
			if len(names) == 0 {
				session.RawQuery = query
			}

			comparison := usecase.NewComparisonService(env.matching.Matcher, env.logger)
			result, err := comparison.Compare(ctx, session, env.snapshot)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			if result.Hits == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no competitor data")
			}
			return nil
		},
	}
}
