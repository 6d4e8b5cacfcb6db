package cmd

import (
	"bookstore/catalog"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregation reports",
	}

	var limit int64
	authorsCmd := &cobra.Command{
		Use:   "authors",
		Short: "Authors with the most books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				authors, err := c.TopAuthors(ctx, limit)
				if err != nil {
					return err
				}
				return renderValues(cmd.OutOrStdout(), authors)
			})
		},
	}
	authorsCmd.Flags().Int64Var(&limit, "limit", catalog.DEFAULT_TOP_AUTHORS, "number of authors")

	statsCmd.AddCommand(
		&cobra.Command{
			Use:   "genres",
			Short: "Average price by genre",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
					genres, err := c.AveragePriceByGenre(ctx)
					if err != nil {
						return err
					}
					return renderValues(cmd.OutOrStdout(), genres)
				})
			},
		},
		authorsCmd,
		&cobra.Command{
			Use:   "decades",
			Short: "Books per publication decade",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
					decades, err := c.CountByDecade(ctx)
					if err != nil {
						return err
					}
					return renderValues(cmd.OutOrStdout(), decades)
				})
			},
		},
		&cobra.Command{
			Use:   "summary",
			Short: "All reports",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
					summary, err := c.Summary(ctx)
					if err != nil {
						return err
					}
					if cfg.Output == "json" {
						return render(cmd.OutOrStdout(), summary, nil)
					}
					w := cmd.OutOrStdout()
					for _, section := range []struct {
						title string
						value interface{}
					}{
						{"genres", summary.Genres},
						{"authors", summary.Authors},
						{"decades", summary.Decades},
					} {
						_, _ = fmt.Fprintln(w, section.title)
						if err := renderValues(w, section.value); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
	)
	return statsCmd
}
