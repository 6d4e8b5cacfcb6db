package cmd

import (
	"bookstore/catalog"
	"bookstore/models"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage indexes",
	}

	createCmd := &cobra.Command{
		Use:   "create <title|author_year|field:direction...>",
		Short: "Create an index",
		Example: `  bookstore index create title
  bookstore index create author_year
  bookstore index create genre:1 price:-1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := parseIndex(args)
			if err != nil {
				return err
			}
			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				name, err := c.CreateIndex(ctx, model)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				indexes, err := c.Indexes(ctx)
				if err != nil {
					return err
				}
				rows := make([]models.Document, len(indexes))
				for i, index := range indexes {
					rows[i] = models.Document{"name": index.Name, "keys": formatKeys(index.Keys)}
				}
				return render(cmd.OutOrStdout(), indexes, rows)
			})
		},
	}

	indexCmd.AddCommand(createCmd, listCmd)
	return indexCmd
}

func parseIndex(args []string) (models.IndexModel, error) {
	if len(args) == 1 {
		switch args[0] {
		case "title":
			return catalog.TitleIndex(), nil
		case "author_year":
			return catalog.AuthorYearIndex(), nil
		}
	}

	var model models.IndexModel
	for _, arg := range args {
		field, dir, found := strings.Cut(arg, ":")
		direction := models.Ascending
		if found {
			n, err := strconv.Atoi(dir)
			if err != nil {
				return model, fmt.Errorf("%w: direction of %s: %v", models.ErrInvalidIndex, field, err)
			}
			direction = models.Direction(n)
		}
		model.Keys = append(model.Keys, models.IndexKey{Field: field, Direction: direction})
	}
	return model, model.Validate()
}

func formatKeys(keys []models.IndexKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s: %d", key.Field, key.Direction)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <title>",
		Short: "Explain the lookup of a book by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(ctx context.Context, c *catalog.Catalog) error {
				report, err := c.ExplainTitleLookup(ctx, args[0])
				if err != nil {
					return err
				}
				row := models.Document{
					"backend":       report.Backend,
					"strategy":      report.Strategy,
					"index":         report.IndexName,
					"keys_examined": report.KeysExamined,
					"docs_examined": report.DocsExamined,
					"returned":      report.Returned,
					"time":          report.ExecutionTime.String(),
				}
				return render(cmd.OutOrStdout(), report, []models.Document{row})
			})
		},
	}
}
