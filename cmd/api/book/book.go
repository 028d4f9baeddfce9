package book

// DateLayout is the calendar-date text form used for BookAddedDate.
const DateLayout = "2006-01-02"

type Book struct {
	BookName        string
	Author          string
	Publisher       string
	Category        string
	ISBN            string
	Language        string
	Price           float64
	TotalCopies     int
	AvailableCopies int
	BookAddedDate   string
	ShelfLocation   string
	PublishedYear   int
	Description     string
	CoverImagePath  string
	Status          string
}

/* A book as it is stored, carrying the identifier assigned by the database on insert. */
type StoredBook struct {
	BookID int64
	Book
}

type Credentials struct {
	Username string
	Password string
}

type AdminUser struct {
	Username string
	Password string
}

type PasswordScheme string

const (
	PasswordSchemePlain  PasswordScheme = "plain"
	PasswordSchemeBcrypt PasswordScheme = "bcrypt"
)
