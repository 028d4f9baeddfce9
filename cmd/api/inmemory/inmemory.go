package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
	"github.com/library-admin/cmd/api/book"
)

var ErrSessionClosed = errors.New("session closed")

type InMemoryStore struct {
	db     *memdb.MemDB
	lastID atomic.Int64
}

/* Builds the in-memory provider, seeding it with the given admin users. */
func NewInMemoryStore(admins ...book.AdminUser) (*InMemoryStore, error) {
	// Define the schema
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"admin_users": {
				Name: "admin_users",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Username"},
					},
				},
			},
			"books": {
				Name: "books",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "BookID"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}

	txn := db.Txn(true)
	for _, admin := range admins {
		if err := txn.Insert("admin_users", adminRow(admin)); err != nil {
			txn.Abort()
			return nil, fmt.Errorf("seeding admin users: %w", err)
		}
	}
	txn.Commit()

	return &InMemoryStore{db: db}, nil
}

type adminRow struct {
	Username string
	Password string
}

type bookRow struct {
	BookID int64
	book.Book
}

func (store *InMemoryStore) Open(ctx context.Context) (book.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquiring session: %w", err)
	}
	return &Session{store: store}, nil
}

type Session struct {
	store *InMemoryStore

	mu     sync.Mutex
	closed bool
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

/* Returns a read or write transaction, failing once the session is closed. */
func (s *Session) txn(write bool) (*memdb.Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.store.db.Txn(write), nil
}

func (s *Session) FindAdmin(ctx context.Context, username, password string) (book.AdminUser, error) {
	admin, err := s.getAdmin(ctx, username)
	if err != nil {
		return book.AdminUser{}, fmt.Errorf("searching admin on db: %w", err)
	}
	if admin.Password != password {
		return book.AdminUser{}, fmt.Errorf("searching admin on db: %w", book.ErrResponseInvalidCredentials)
	}
	return admin, nil
}

func (s *Session) GetAdmin(ctx context.Context, username string) (book.AdminUser, error) {
	admin, err := s.getAdmin(ctx, username)
	if err != nil {
		return book.AdminUser{}, fmt.Errorf("getting admin from db: %w", err)
	}
	return admin, nil
}

func (s *Session) getAdmin(ctx context.Context, username string) (book.AdminUser, error) {
	if err := ctx.Err(); err != nil {
		return book.AdminUser{}, err
	}
	txn, err := s.txn(false)
	if err != nil {
		return book.AdminUser{}, err
	}
	defer txn.Abort()

	raw, err := txn.First("admin_users", "id", username)
	if err != nil {
		return book.AdminUser{}, err
	}
	if raw == nil {
		return book.AdminUser{}, book.ErrResponseInvalidCredentials
	}
	row := raw.(adminRow)
	return book.AdminUser{Username: row.Username, Password: row.Password}, nil
}

/* Inserts the book under the next identifier; the transaction is aborted on any failure. */
func (s *Session) InsertBook(ctx context.Context, b book.Book) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storing book on db: %w", err)
	}
	txn, err := s.txn(true)
	if err != nil {
		return fmt.Errorf("storing book on db: %w", err)
	}
	defer txn.Abort()

	row := bookRow{BookID: s.store.lastID.Add(1), Book: b}
	if err := txn.Insert("books", row); err != nil {
		return fmt.Errorf("storing book on db: %w", err)
	}

	txn.Commit()
	return nil
}

func (s *Session) ListBooks(ctx context.Context) ([]book.StoredBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	txn, err := s.txn(false)
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}
	defer txn.Abort()

	it, err := txn.Get("books", "id")
	if err != nil {
		return nil, fmt.Errorf("listing books from db: %w", err)
	}

	books := []book.StoredBook{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		row := obj.(bookRow)
		books = append(books, book.StoredBook{BookID: row.BookID, Book: row.Book})
	}

	return books, nil
}
