package database_test

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/library-admin/cmd/api/book"
	"github.com/library-admin/cmd/api/database"
	"github.com/matryer/is"
)

var store *database.Store
var sqlDB *sql.DB
var ctx context.Context = context.Background()

// TestMain runs the suite against postgres when DATABASE_URL is set,
// otherwise against a throwaway sqlite file.
func TestMain(m *testing.M) {
	os.Exit(runTests(m))
}

func runTests(m *testing.M) int {
	driver := database.DriverPostgres
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		dir, err := os.MkdirTemp("", "books-db-test")
		if err != nil {
			log.Fatalln(err)
		}
		defer os.RemoveAll(dir)
		driver = database.DriverSQLite
		connStr = "file:" + filepath.Join(dir, "test.db") + "?_busy_timeout=5000&_foreign_keys=1"
	}

	var err error
	sqlDB, err = database.ConnectDb(driver, connStr)
	if err != nil {
		log.Fatalln(err)
	}
	defer sqlDB.Close()

	store = database.NewStore(sqlDB, driver)
	path := os.Getenv("DATABASE_MIGRATIONS_PATH")
	if path == "" {
		path = "../../../migrations"
	}
	err = database.MigrationUp(store, path)
	if err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalln(err)
		}
		log.Println(err)
	}

	return m.Run()
}

func TestInsertBook(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	t.Run("inserts a book and reads it back with an assigned id", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		b := duneBook()
		err := sess.InsertBook(ctx, b)
		is.NoErr(err)

		books, err := sess.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(len(books), 1)
		is.True(books[0].BookID > 0)
		is.Equal(books[0].Book, b)
	})

	t.Run("failed insert leaves the table untouched", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		before, err := sess.ListBooks(ctx)
		is.NoErr(err)

		_, err = sqlDB.Exec(`ALTER TABLE books RENAME TO books_hidden`)
		is.NoErr(err)
		err = sess.InsertBook(ctx, duneBook())
		_, renameErr := sqlDB.Exec(`ALTER TABLE books_hidden RENAME TO books`)
		is.NoErr(renameErr)
		is.True(err != nil)

		after, err := sess.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(after, before)
	})
}

func TestBookAddedDate(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	t.Run("malformed dates are refused by the database", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		for _, date := range []string{"not-a-date", "2024-02-30", "15/01/2024"} {
			b := duneBook()
			b.BookAddedDate = date
			err := sess.InsertBook(ctx, b)
			is.True(err != nil) // date must be rejected
		}

		books, err := sess.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(len(books), 0)
	})

	t.Run("valid dates survive the round trip", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		b := duneBook()
		b.BookAddedDate = "2024-02-29"
		is.NoErr(sess.InsertBook(ctx, b))

		books, err := sess.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(len(books), 1)
		is.Equal(books[0].BookAddedDate, "2024-02-29")
	})
}

func TestListBooks(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	t.Run("empty table lists no books", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		books, err := sess.ListBooks(ctx)
		is.NoErr(err)
		is.True(books != nil)
		is.Equal(len(books), 0)
	})

	t.Run("repeated reads return the same content", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		first := duneBook()
		second := duneBook()
		second.BookName = "Children of Dune"
		second.ISBN = "9780593098244"
		second.BookAddedDate = "2024-02-29"
		is.NoErr(sess.InsertBook(ctx, first))
		is.NoErr(sess.InsertBook(ctx, second))

		books, err := sess.ListBooks(ctx)
		is.NoErr(err)
		is.Equal(len(books), 2)
		is.True(books[0].BookID != books[1].BookID)

		again, err := openSession(t).ListBooks(ctx)
		is.NoErr(err)
		is.Equal(again, books)
	})
}

func TestAdmins(t *testing.T) {
	t.Cleanup(func() {
		teardownDB(t)
	})

	_, err := sqlDB.Exec(`INSERT INTO admin_users (username, password) VALUES ('admin', 'correct')`)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("finds an admin matching both fields", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		admin, err := sess.FindAdmin(ctx, "admin", "correct")
		is.NoErr(err)
		is.Equal(admin, book.AdminUser{Username: "admin", Password: "correct"})
	})

	t.Run("wrong password returns invalid credentials", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		admin, err := sess.FindAdmin(ctx, "admin", "wrong")
		is.True(errors.Is(err, book.ErrResponseInvalidCredentials))
		is.Equal(admin, book.AdminUser{})
	})

	t.Run("usernames are compared verbatim", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		_, err := sess.FindAdmin(ctx, "Admin", "correct")
		is.True(errors.Is(err, book.ErrResponseInvalidCredentials))
	})

	t.Run("gets an admin by username", func(t *testing.T) {
		is := is.New(t)
		sess := openSession(t)

		admin, err := sess.GetAdmin(ctx, "admin")
		is.NoErr(err)
		is.Equal(admin.Password, "correct")

		_, err = sess.GetAdmin(ctx, "nobody")
		is.True(errors.Is(err, book.ErrResponseInvalidCredentials))
	})
}

func TestSession(t *testing.T) {
	t.Run("closing twice is harmless", func(t *testing.T) {
		is := is.New(t)
		sess, err := store.Open(ctx)
		is.NoErr(err)

		is.NoErr(sess.Close())
		is.NoErr(sess.Close())
	})

	t.Run("canceled context fails to acquire a connection", func(t *testing.T) {
		is := is.New(t)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		sess, err := store.Open(canceled)
		is.True(errors.Is(err, context.Canceled))
		is.Equal(sess, nil)
	})
}

func openSession(t *testing.T) book.Session {
	t.Helper()
	sess, err := store.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func duneBook() book.Book {
	return book.Book{
		BookName:        "Dune",
		Author:          "Herbert",
		Publisher:       "Chilton",
		Category:        "Science Fiction",
		ISBN:            "9780441013593",
		Language:        "English",
		Price:           15.99,
		TotalCopies:     3,
		AvailableCopies: 3,
		BookAddedDate:   "2024-01-15",
		ShelfLocation:   "A-12",
		PublishedYear:   1965,
		Description:     "Desert planet epic",
		CoverImagePath:  "/covers/dune.jpg",
		Status:          "available",
	}
}

func teardownDB(t *testing.T) {
	is := is.New(t)

	// Removing all the records between tests.
	_, err := sqlDB.Exec(`DELETE FROM books`)
	is.NoErr(err)
	_, err = sqlDB.Exec(`DELETE FROM admin_users`)
	is.NoErr(err)
}
