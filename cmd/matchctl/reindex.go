// cmd/matchctl/reindex.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"exchange-matcher/internal/app"
	"exchange-matcher/internal/common/database"
	"exchange-matcher/internal/matching"
	"exchange-matcher/internal/storage/postgres"
	"exchange-matcher/internal/storage/search"
)

type activePager interface {
	ListActive(ctx context.Context, afterID string, limit int) ([]matching.Listing, error)
}

type listingIndexer interface {
	IndexListing(ctx context.Context, l matching.Listing) error
}

// copyActive pages active listings from src into dst and returns how many
// were indexed. The first indexing error stops the copy.
func copyActive(ctx context.Context, src activePager, dst listingIndexer, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	indexed := 0
	for after := ""; ; {
		page, err := src.ListActive(ctx, after, pageSize)
		if err != nil {
			return indexed, fmt.Errorf("list active listings after %q: %w", after, err)
		}
		for _, l := range page {
			if err := dst.IndexListing(ctx, l); err != nil {
				return indexed, err
			}
			indexed++
		}
		if len(page) < pageSize {
			return indexed, nil
		}
		after = page[len(page)-1].ID
	}
}

func init() {
	var pageSize int
	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Copy active listings from Postgres into the Elasticsearch listing index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()

			infra, err := app.Connect(cmd.Context(), cfg, app.ConnectOptions{
				Elasticsearch: true,
				Attempts:      3,
				InitialDelay:  500 * time.Millisecond,
			}, log)
			if err != nil {
				return err
			}
			defer infra.Close()

			index := cfg.Database.Elasticsearch.ListingIndex
			if err := infra.Elastic.EnsureIndex(cmd.Context(), index, database.ListingIndexMapping); err != nil {
				return err
			}

			n, err := copyActive(cmd.Context(),
				postgres.NewListingStore(infra.DB),
				search.NewListingStore(infra.Elastic.Client, index),
				pageSize)
			if err != nil {
				return fmt.Errorf("reindex stopped after %d listings: %w", n, err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"index": index, "indexed": n})
		},
	}
	reindexCmd.Flags().IntVar(&pageSize, "page-size", 500, "Listings read per page")
	rootCmd.AddCommand(reindexCmd)
}
