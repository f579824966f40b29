// cmd/matchctl/engine.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"exchange-matcher/internal/app"
	"exchange-matcher/internal/common/config"
	"exchange-matcher/internal/matching"
)

// openEngine connects the configured backends and builds an engine. With
// withNotifier unset, stored matches are not announced.
func openEngine(ctx context.Context, withNotifier bool) (*matching.Engine, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log := newLogger()

	infra, err := app.Connect(ctx, cfg, app.ConnectOptions{
		Elasticsearch: cfg.Matching.CandidateBackend == config.BackendElasticsearch,
		Redis:         cfg.Database.Redis.Address != "",
		Attempts:      3,
		InitialDelay:  500 * time.Millisecond,
	}, log)
	if err != nil {
		return nil, nil, nil, err
	}
	closers := []func(){func() { infra.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := app.EngineDeps{DB: infra.DB}
	if infra.Elastic != nil {
		deps.Elastic = infra.Elastic.Client
	}
	if infra.Redis != nil {
		deps.Redis = infra.Redis.Client
	}
	if withNotifier {
		n, closeNotifier, err := app.BuildNotifier(ctx, cfg, log)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		closers = append(closers, closeNotifier)
		deps.Notifier = n
	}

	engine, err := app.BuildEngine(ctx, cfg, deps, log)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return engine, cfg, cleanup, nil
}

func init() {
	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run one weight optimization pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, cleanup, err := openEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := engine.Optimize(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	rootCmd.AddCommand(optimizeCmd)

	var pageSize, limit int
	var notify bool
	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate suggested matches for every active listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, cleanup, err := openEngine(cmd.Context(), notify)
			if err != nil {
				return err
			}
			defer cleanup()

			if pageSize <= 0 {
				pageSize = cfg.Rebuild.PageSize
			}
			stats, err := engine.RebuildAll(cmd.Context(), pageSize, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	rebuildCmd.Flags().IntVar(&pageSize, "page-size", 0, "Listings per page (defaults to rebuild.page_size)")
	rebuildCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Matches kept per listing (defaults to matching.default_limit)")
	rebuildCmd.Flags().BoolVar(&notify, "notify", false, "Publish notifications for newly stored matches")
	rootCmd.AddCommand(rebuildCmd)

	weightsCmd := &cobra.Command{Use: "weights", Short: "Inspect the factor weight vector"}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, cleanup, err := openEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			ws := engine.Ranker().Weights()
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"weights":       ws.Snapshot(),
				"lastOptimized": ws.LastOptimized(),
			})
		},
	}
	weightsCmd.AddCommand(showCmd)
	rootCmd.AddCommand(weightsCmd)

	var findLimit int
	var persist bool
	var filters matching.Filters
	findCmd := &cobra.Command{
		Use:   "find LISTING_ID",
		Short: "Rank matches for one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, cleanup, err := openEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			source, ok, err := engine.Listing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("listing %s not found", args[0])
			}
			results, err := engine.Ranker().FindMatchesFiltered(cmd.Context(), source, findLimit, filters)
			if err != nil {
				return err
			}
			if persist {
				stored, err := engine.StoreResults(cmd.Context(), *source, results)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stored)
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
	findCmd.Flags().IntVarP(&findLimit, "limit", "l", 0, "Maximum results")
	findCmd.Flags().BoolVar(&persist, "persist", false, "Store the results as suggested matches")
	findCmd.Flags().Float64Var(&filters.MaxDistanceKm, "max-distance", 0, "Maximum distance in km")
	findCmd.Flags().Float64Var(&filters.MinScore, "min-score", 0, "Minimum score")
	findCmd.Flags().StringSliceVar(&filters.Categories, "category", nil, "Required category (repeatable)")
	findCmd.Flags().Float64Var(&filters.MinOwnerRating, "min-rating", 0, "Minimum owner rating")
	rootCmd.AddCommand(findCmd)
}
