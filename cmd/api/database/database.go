package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/library-admin/cmd/api/book"

	_ "github.com/golang-migrate/migrate/v4/source/file"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

/* Store is the connection provider. The *sql.DB is only used as a connection factory. */
type Store struct {
	db     *sql.DB
	driver string
}

func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

/* Connects to the database trought a connection string and returns a pointer to a valid DB object (*sql.DB).
No idle connection is kept, so every released session closes its physical connection. */
func ConnectDb(driver, connStr string) (*sql.DB, error) {
	sqlDB, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, openning: %w", err)
	}
	sqlDB.SetMaxIdleConns(0)

	err = sqlDB.Ping()
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to db, pingging: %w", err)
	}

	return sqlDB, nil
}

func MigrationUp(store *Store, path string) error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch store.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(store.db, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite3.WithInstance(store.db, &sqlite3.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", store.driver)
	}
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s/%s", path, store.driver),
		store.driver, driver)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	err = m.Up()
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

/* Acquires a dedicated connection for one request. */
func (store *Store) Open(ctx context.Context) (book.Session, error) {
	conn, err := store.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &Session{conn: conn, exc: conn}, nil
}

type Session struct {
	conn *sql.Conn
	exc  DBTX

	closeOnce sync.Once
	closeErr  error
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

/* Looks for an admin matching both username and password verbatim. */
func (s *Session) FindAdmin(ctx context.Context, username, password string) (book.AdminUser, error) {
	sqlStatement := `SELECT username, password
	FROM admin_users
	WHERE username = $1 AND password = $2`
	foundRow := s.exc.QueryRowContext(ctx, sqlStatement, username, password)
	var admin book.AdminUser
	err := foundRow.Scan(&admin.Username, &admin.Password)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.AdminUser{}, fmt.Errorf("searching admin on db: %w", book.ErrResponseInvalidCredentials)
		default:
			return book.AdminUser{}, fmt.Errorf("searching admin on db: %w", err)
		}
	}

	return admin, nil
}

func (s *Session) GetAdmin(ctx context.Context, username string) (book.AdminUser, error) {
	sqlStatement := `SELECT username, password
	FROM admin_users
	WHERE username = $1`
	foundRow := s.exc.QueryRowContext(ctx, sqlStatement, username)
	var admin book.AdminUser
	err := foundRow.Scan(&admin.Username, &admin.Password)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.AdminUser{}, fmt.Errorf("getting admin from db: %w", book.ErrResponseInvalidCredentials)
		default:
			return book.AdminUser{}, fmt.Errorf("getting admin from db: %w", err)
		}
	}

	return admin, nil
}

/* Stores the book inside its own transaction, rolling back on any failure. */
func (s *Session) InsertBook(ctx context.Context, b book.Book) error {
	sqlStatement := `
	INSERT INTO books (book_name, author, publisher, category, isbn, language, price, total_copies,
	available_copies, book_added_date, shelf_location, published_year, description,
	cover_image_path, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storing book on db, beginning transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, sqlStatement,
		b.BookName, b.Author, b.Publisher, b.Category, b.ISBN,
		b.Language, b.Price, b.TotalCopies, b.AvailableCopies,
		b.BookAddedDate, b.ShelfLocation, b.PublishedYear, b.Description,
		b.CoverImagePath, b.Status)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
		return fmt.Errorf("storing book on db: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("storing book on db, committing: %w", err)
	}

	return nil
}

/* Returns the whole books table, unfiltered, in the database's default order. */
func (s *Session) ListBooks(ctx context.Context) ([]book.StoredBook, error) {
	sqlStatement := `SELECT book_id, book_name, author, publisher, category, isbn, language, price,
	total_copies, available_copies, book_added_date, shelf_location, published_year,
	description, cover_image_path, status
	FROM books`

	rows, err := s.exc.QueryContext(ctx, sqlStatement)
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	defer rows.Close()
	bookslist := []book.StoredBook{}
	for rows.Next() {
		var b book.StoredBook
		var added dateValue
		err = rows.Scan(&b.BookID, &b.BookName, &b.Author, &b.Publisher, &b.Category, &b.ISBN, &b.Language, &b.Price,
			&b.TotalCopies, &b.AvailableCopies, &added, &b.ShelfLocation, &b.PublishedYear,
			&b.Description, &b.CoverImagePath, &b.Status)
		if err != nil {
			return nil, fmt.Errorf("listing books from db: %w", err)
		}
		b.BookAddedDate = string(added)

		bookslist = append(bookslist, b)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	return bookslist, nil
}

/* Scans a DATE column into its calendar-date text, whatever type the driver hands back. */
type dateValue string

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = dateValue(v.Format(book.DateLayout))
	case string:
		*d = dateValue(v)
	case []byte:
		*d = dateValue(string(v))
	case nil:
		*d = ""
	default:
		return fmt.Errorf("scanning date: unsupported type %T", src)
	}
	return nil
}
