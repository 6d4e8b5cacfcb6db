package models

// COLLECTION_NAME is the collection (or index) holding the catalog's books.
const COLLECTION_NAME = "books"

// Field names of a stored book.
const (
	FieldID            = "_id"
	FieldTitle         = "title"
	FieldAuthor        = "author"
	FieldGenre         = "genre"
	FieldPublishedYear = "published_year"
	FieldPrice         = "price"
	FieldInStock       = "in_stock"
	FieldPages         = "pages"
	FieldPublisher     = "publisher"
)

type Book struct {
	ID            string  `json:"_id,omitempty"`
	Title         string  `json:"title" binding:"required"`
	Author        string  `json:"author"`
	Genre         string  `json:"genre"`
	PublishedYear int     `json:"published_year"`
	Price         float64 `json:"price"`
	InStock       bool    `json:"in_stock"`
	Pages         int     `json:"pages,omitempty"`
	Publisher     string  `json:"publisher,omitempty"`
}

// Document returns the stored form of the book. The identifier is left out
// when it has not been assigned yet so the store can generate one.
func (book *Book) Document() Document {
	doc := Document{
		FieldTitle:         book.Title,
		FieldAuthor:        book.Author,
		FieldGenre:         book.Genre,
		FieldPublishedYear: book.PublishedYear,
		FieldPrice:         book.Price,
		FieldInStock:       book.InStock,
	}
	if book.ID != "" {
		doc[FieldID] = book.ID
	}
	if book.Pages != 0 {
		doc[FieldPages] = book.Pages
	}
	if book.Publisher != "" {
		doc[FieldPublisher] = book.Publisher
	}
	return doc
}
