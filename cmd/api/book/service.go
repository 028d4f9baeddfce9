package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

/* Hands out one dedicated database session per call. */
type Provider interface {
	Open(ctx context.Context) (Session, error)
}

/* A single acquired connection. Close releases it and must be safe to call more than once. */
type Session interface {
	FindAdmin(ctx context.Context, username, password string) (AdminUser, error)
	GetAdmin(ctx context.Context, username string) (AdminUser, error)
	InsertBook(ctx context.Context, b Book) error
	ListBooks(ctx context.Context) ([]StoredBook, error)
	Close() error
}

type Notifier interface {
	BookInserted(ctx context.Context, name string, totalCopies int) error
}

type Service struct {
	provider             Provider
	ntfy                 Notifier
	notificationsTimeout time.Duration
	scheme               PasswordScheme
	log                  *zerolog.Logger
}

/* ntfy may be nil, in which case no notification is sent after an insert. */
func NewService(provider Provider, ntfy Notifier, notificationsTimeout time.Duration, scheme PasswordScheme, zlog *zerolog.Logger) *Service {
	if scheme == "" {
		scheme = PasswordSchemePlain
	}
	if zlog == nil {
		nop := zerolog.Nop()
		zlog = &nop
	}
	return &Service{
		provider:             provider,
		ntfy:                 ntfy,
		notificationsTimeout: notificationsTimeout,
		scheme:               scheme,
		log:                  zlog,
	}
}

/* Checks the credentials against the stored admin users and returns the matched username. */
func (s *Service) Login(ctx context.Context, cred Credentials) (string, error) {
	sess, err := s.open(ctx)
	if err != nil {
		return "", err
	}
	defer s.release(sess)

	var admin AdminUser
	switch s.scheme {
	case PasswordSchemeBcrypt:
		admin, err = sess.GetAdmin(ctx, cred.Username)
		if err == nil && bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(cred.Password)) != nil {
			err = ErrResponseInvalidCredentials
		}
	default:
		admin, err = sess.FindAdmin(ctx, cred.Username, cred.Password)
	}
	if err != nil {
		if errors.Is(err, ErrResponseInvalidCredentials) {
			return "", ErrResponseInvalidCredentials
		}
		if isContextErr(err) {
			return "", fmt.Errorf("timeout on call to Login: %w", err)
		}
		s.log.Error().Err(err).Msg("login query failed")
		return "", ErrResponseDBConnectionFailed
	}

	return admin.Username, nil
}

/* Stores a new book. The session rolls the insert back itself when it fails. */
func (s *Service) InsertBook(ctx context.Context, b Book) error {
	sess, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer s.release(sess)

	err = sess.InsertBook(ctx, b)
	if err != nil {
		if isContextErr(err) {
			return fmt.Errorf("timeout on call to InsertBook: %w", err)
		}
		s.log.Error().Err(err).Str("isbn", b.ISBN).Msg("inserting book failed")
		return ErrResponseInsertBook.With(err)
	}

	s.notify(b)
	return nil
}

/* Returns every stored book in the database's own order. */
func (s *Service) ListBooks(ctx context.Context) ([]StoredBook, error) {
	sess, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	books, err := sess.ListBooks(ctx)
	if err != nil {
		if isContextErr(err) {
			return nil, fmt.Errorf("timeout on call to ListBooks: %w", err)
		}
		s.log.Error().Err(err).Msg("listing books failed")
		return nil, ErrResponseListBooks.With(err)
	}
	if books == nil {
		books = []StoredBook{}
	}

	return books, nil
}

func (s *Service) open(ctx context.Context) (Session, error) {
	sess, err := s.provider.Open(ctx)
	if err != nil {
		if isContextErr(err) {
			return nil, fmt.Errorf("timeout on opening session: %w", err)
		}
		s.log.Error().Err(err).Msg("opening database session failed")
		return nil, ErrResponseDBConnectionFailed
	}
	return sess, nil
}

func (s *Service) release(sess Session) {
	if err := sess.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing database session")
	}
}

/* Fires the insert notification in the background; it never affects the response. */
func (s *Service) notify(b Book) {
	if s.ntfy == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notificationsTimeout)
		defer cancel()
		if err := s.ntfy.BookInserted(ctx, b.BookName, b.TotalCopies); err != nil {
			s.log.Warn().Err(err).Str("book", b.BookName).Msg("book notification not delivered")
		}
	}()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
