package catalog

import (
	"bookstore/models"
)

// Fields of the listing view.
var LISTING_FIELDS = []string{models.FieldTitle, models.FieldAuthor, models.FieldPrice}

func GenreQuery(genre string) models.Query {
	return models.Query{Filter: models.Where(models.Eq(models.FieldGenre, genre))}
}

func PublishedAfterQuery(year int) models.Query {
	return models.Query{Filter: models.Where(models.Gt(models.FieldPublishedYear, year))}
}

func AuthorQuery(author string) models.Query {
	return models.Query{Filter: models.Where(models.Eq(models.FieldAuthor, author))}
}

func TitleFilter(title string) models.Filter {
	return models.Where(models.Eq(models.FieldTitle, title))
}

func TitleQuery(title string) models.Query {
	return models.Query{Filter: TitleFilter(title)}
}

func InStockPublishedAfterQuery(year int) models.Query {
	return models.Query{Filter: models.Where(
		models.Eq(models.FieldInStock, true),
		models.Gt(models.FieldPublishedYear, year),
	)}
}

func ListingQuery() models.Query {
	return models.Query{Projection: models.Include(LISTING_FIELDS...)}
}

func PriceSortedQuery(direction models.Direction) models.Query {
	return models.Query{Sort: []models.SortField{{Field: models.FieldPrice, Direction: direction}}}
}

// ListingPageQuery returns one page of the listing view ordered by price.
func ListingPageQuery(page, pageSize int64) (models.Query, error) {
	query := ListingQuery()
	query.Sort = []models.SortField{models.Asc(models.FieldPrice)}
	return query.Paginate(page, pageSize)
}

func AveragePriceByGenrePipeline() models.Pipeline {
	return models.Pipeline{
		models.GroupStage{
			Key:          models.Field(models.FieldGenre),
			Accumulators: []models.Accumulator{models.Avg("averagePrice", models.FieldPrice)},
		},
		models.SortStage{Fields: []models.SortField{models.Desc("averagePrice")}},
	}
}

func TopAuthorsPipeline(limit int64) models.Pipeline {
	return models.Pipeline{
		models.GroupStage{
			Key:          models.Field(models.FieldAuthor),
			Accumulators: []models.Accumulator{models.Count("bookCount")},
		},
		models.SortStage{Fields: []models.SortField{models.Desc("bookCount")}},
		models.LimitStage{N: limit},
	}
}

func DecadePipeline() models.Pipeline {
	return models.Pipeline{
		models.ProjectStage{Fields: []models.ProjectedField{
			{Name: "decade", Expr: models.DecadeLabel{Field: models.FieldPublishedYear}},
		}},
		models.GroupStage{
			Key:          models.Field("decade"),
			Accumulators: []models.Accumulator{models.Count("count")},
		},
		models.SortStage{Fields: []models.SortField{models.Asc(models.FieldID)}},
	}
}

func TitleIndex() models.IndexModel {
	return models.NewIndex(models.IndexKey{Field: models.FieldTitle, Direction: models.Ascending})
}

func AuthorYearIndex() models.IndexModel {
	return models.NewIndex(
		models.IndexKey{Field: models.FieldAuthor, Direction: models.Ascending},
		models.IndexKey{Field: models.FieldPublishedYear, Direction: models.Descending},
	)
}
