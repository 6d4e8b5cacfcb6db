package cmd

import (
	"bookstore/catalog"
	"bookstore/models"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newBooksCmd() *cobra.Command {
	var (
		genre          string
		author         string
		title          string
		publishedAfter int
		inStock        bool
		listing        bool
		sortField      string
		descending     bool
		page           int64
		pageSize       int64
	)

	booksCmd := &cobra.Command{
		Use:   "books",
		Short: "Find books",
		Long: `Find books matching every given filter.

  bookstore books --genre Fiction
  bookstore books --published-after 2010 --in-stock
  bookstore books --listing --sort price --page 2 --page-size 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var query models.Query
			flags := cmd.Flags()
			if genre != "" {
				query.Filter = append(query.Filter, models.Eq(models.FieldGenre, genre))
			}
			if author != "" {
				query.Filter = append(query.Filter, models.Eq(models.FieldAuthor, author))
			}
			if title != "" {
				query.Filter = append(query.Filter, models.Eq(models.FieldTitle, title))
			}
			if flags.Changed("published-after") {
				query.Filter = append(query.Filter, models.Gt(models.FieldPublishedYear, publishedAfter))
			}
			if flags.Changed("in-stock") {
				query.Filter = append(query.Filter, models.Eq(models.FieldInStock, inStock))
			}
			if listing {
				query.Projection = models.Include(catalog.LISTING_FIELDS...)
			}
			if sortField != "" {
				direction := models.Ascending
				if descending {
					direction = models.Descending
				}
				query.Sort = []models.SortField{{Field: sortField, Direction: direction}}
			}
			if flags.Changed("page") || flags.Changed("page-size") {
				var err error
				if query, err = query.Paginate(page, pageSize); err != nil {
					return err
				}
			}

			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				docs, err := c.Search(ctx, query)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), docs, docs)
			})
		},
	}

	flags := booksCmd.Flags()
	flags.StringVar(&genre, "genre", "", "only books of this genre")
	flags.StringVar(&author, "author", "", "only books by this author")
	flags.StringVar(&title, "title", "", "only the book with this title")
	flags.IntVar(&publishedAfter, "published-after", 0, "only books published after this year")
	flags.BoolVar(&inStock, "in-stock", false, "only books with this stock status")
	flags.BoolVar(&listing, "listing", false, "show title, author and price only")
	flags.StringVar(&sortField, "sort", "", "sort by this field")
	flags.BoolVar(&descending, "desc", false, "sort descending")
	flags.Int64Var(&page, "page", 1, "page number, starting at 1")
	flags.Int64Var(&pageSize, "page-size", 5, "books per page")
	return booksCmd
}

func newUpdatePriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "update-price <title> <price>",
		Short:   "Set the price of the book with the given title",
		Example: `  bookstore update-price "The Alchemist" 18.99`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var price float64
			if _, err := fmt.Sscan(args[1], &price); err != nil {
				return fmt.Errorf("invalid price %q: %w", args[1], err)
			}

			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				result, err := c.UpdatePrice(ctx, args[0], price)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "matched %d, modified %d\n", result.Matched, result.Modified)
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <title>",
		Short: "Delete the book with the given title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				result, err := c.DeleteByTitle(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", result.Deleted)
				return nil
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the fixture books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				ids, err := c.Seed(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "inserted %d books\n", len(ids))
				return nil
			})
		},
	}
}
