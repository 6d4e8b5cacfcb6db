package catalog

type GenrePrice struct {
	Genre        string  `json:"_id"`
	AveragePrice float64 `json:"averagePrice"`
}

type AuthorCount struct {
	Author    string `json:"_id"`
	BookCount int64  `json:"bookCount"`
}

type DecadeCount struct {
	Decade string `json:"_id"`
	Count  int64  `json:"count"`
}

type Summary struct {
	Genres  []GenrePrice  `json:"genres"`
	Authors []AuthorCount `json:"authors"`
	Decades []DecadeCount `json:"decades"`
}
