package http

import (
	"github.com/library-admin/cmd/api/book"
)

/* Every field is a pointer so that a missing field can be told apart from a zero value. */
type BookEntry struct {
	BookName        *string  `json:"BookName"`
	Author          *string  `json:"Author"`
	Publisher       *string  `json:"Publisher"`
	Category        *string  `json:"Category"`
	ISBN            *string  `json:"ISBN"`
	Language        *string  `json:"Language"`
	Price           *float64 `json:"Price"`
	TotalCopies     *int     `json:"TotalCopies"`
	AvailableCopies *int     `json:"AvailableCopies"`
	BookAddedDate   *string  `json:"BookAddedDate"`
	ShelfLocation   *string  `json:"ShelfLocation"`
	PublishedYear   *int     `json:"PublishedYear"`
	Description     *string  `json:"Description"`
	CoverImagePath  *string  `json:"CoverImagePath"`
	Status          *string  `json:"Status"`
}

/* Verifies if all entry fields are filled and returns a warning message if not. */
func FilledFields(e BookEntry) error {
	required := []struct {
		name   string
		filled bool
	}{
		{"BookName", e.BookName != nil},
		{"Author", e.Author != nil},
		{"Publisher", e.Publisher != nil},
		{"Category", e.Category != nil},
		{"ISBN", e.ISBN != nil},
		{"Language", e.Language != nil},
		{"Price", e.Price != nil},
		{"TotalCopies", e.TotalCopies != nil},
		{"AvailableCopies", e.AvailableCopies != nil},
		{"BookAddedDate", e.BookAddedDate != nil},
		{"ShelfLocation", e.ShelfLocation != nil},
		{"PublishedYear", e.PublishedYear != nil},
		{"Description", e.Description != nil},
		{"CoverImagePath", e.CoverImagePath != nil},
		{"Status", e.Status != nil},
	}
	for _, field := range required {
		if !field.filled {
			return missingField(field.name)
		}
	}
	return nil
}

/* Converts from BookEntry type to book.Book, with no json tags. Call FilledFields first. */
func entryToBook(e BookEntry) book.Book {
	return book.Book{
		BookName:        *e.BookName,
		Author:          *e.Author,
		Publisher:       *e.Publisher,
		Category:        *e.Category,
		ISBN:            *e.ISBN,
		Language:        *e.Language,
		Price:           *e.Price,
		TotalCopies:     *e.TotalCopies,
		AvailableCopies: *e.AvailableCopies,
		BookAddedDate:   *e.BookAddedDate,
		ShelfLocation:   *e.ShelfLocation,
		PublishedYear:   *e.PublishedYear,
		Description:     *e.Description,
		CoverImagePath:  *e.CoverImagePath,
		Status:          *e.Status,
	}
}

type BookResponse struct {
	BookName        string  `json:"BookName"`
	Author          string  `json:"Author"`
	Publisher       string  `json:"Publisher"`
	Category        string  `json:"Category"`
	ISBN            string  `json:"ISBN"`
	Language        string  `json:"Language"`
	Price           float64 `json:"Price"`
	TotalCopies     int     `json:"TotalCopies"`
	AvailableCopies int     `json:"AvailableCopies"`
	BookAddedDate   string  `json:"BookAddedDate"`
	ShelfLocation   string  `json:"ShelfLocation"`
	PublishedYear   int     `json:"PublishedYear"`
	Description     string  `json:"Description"`
	CoverImagePath  string  `json:"CoverImagePath"`
	Status          string  `json:"Status"`
	BookID          int64   `json:"BookID"`
}

/*Copy the fields of a stored book to an http layer struct with json tags*/
func bookToResponse(b book.StoredBook) BookResponse {
	return BookResponse{
		BookName:        b.BookName,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Category:        b.Category,
		ISBN:            b.ISBN,
		Language:        b.Language,
		Price:           b.Price,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		BookAddedDate:   b.BookAddedDate,
		ShelfLocation:   b.ShelfLocation,
		PublishedYear:   b.PublishedYear,
		Description:     b.Description,
		CoverImagePath:  b.CoverImagePath,
		Status:          b.Status,
		BookID:          b.BookID,
	}
}
