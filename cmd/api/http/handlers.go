package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/library-admin/cmd/api/book"
	"github.com/rs/zerolog"
)

const maxFormMemory = 1 << 20

//go:generate mockgen -source=handlers.go -destination=mocks/mocks.go -package=mocks

type ServiceAPI interface {
	Login(ctx context.Context, cred book.Credentials) (string, error)
	InsertBook(ctx context.Context, b book.Book) error
	ListBooks(ctx context.Context) ([]book.StoredBook, error)
}

type BookHandler struct {
	bookService    ServiceAPI
	requestTimeout time.Duration
	log            *zerolog.Logger
}

func NewBookHandler(bookService ServiceAPI, requestTimeout time.Duration, zlog *zerolog.Logger) *BookHandler {
	if zlog == nil {
		nop := zerolog.Nop()
		zlog = &nop
	}
	return &BookHandler{bookService: bookService, requestTimeout: requestTimeout, log: zlog}
}

type LoginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

/* Authenticates an admin from the form fields username and password. */
func (h *BookHandler) login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	err := r.ParseMultipartForm(maxFormMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		responseJSON(w, r, http.StatusUnprocessableEntity, book.ErrResponseInvalidEntry.With(err))
		return
	}

	cred, err := loginEntry(r)
	if err != nil {
		responseJSON(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	username, err := h.bookService.Login(ctx, cred)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, r, http.StatusOK, LoginResponse{Message: "Login successful", Username: username})
}

/* Validates the entry, then stores the entry as a new book. */
func (h *BookHandler) insertBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	var bookEntry BookEntry
	err := json.NewDecoder(r.Body).Decode(&bookEntry)
	if err != nil {
		responseJSON(w, r, http.StatusUnprocessableEntity, book.ErrResponseInvalidEntry.With(err))
		return
	}

	err = FilledFields(bookEntry)
	if err != nil {
		responseJSON(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	err = h.bookService.InsertBook(ctx, entryToBook(bookEntry))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, r, http.StatusCreated, MessageResponse{Message: "Book inserted successfully"})
}

/* Returns a list of the stored books. */
func (h *BookHandler) getBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	books, err := h.bookService.ListBooks(ctx)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	results := []BookResponse{}
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	responseJSON(w, r, http.StatusOK, results)
}

func (h *BookHandler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

/* Maps a service error onto its status code and a JSON detail body. */
func (h *BookHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("request context ended")
		responseJSON(w, r, http.StatusGatewayTimeout, book.ErrResponseRequestTimeout.With(contextCause(err)))
		return
	}

	var errResp book.ErrResponse
	if errors.As(err, &errResp) {
		responseJSON(w, r, errResp.Status, errResp)
		return
	}

	h.log.Error().Err(err).Msg("unexpected service error")
	responseJSON(w, r, http.StatusInternalServerError, book.ErrResponse{Status: http.StatusInternalServerError, Detail: "Internal server error"})
}

func contextCause(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return context.Canceled
}

func loginEntry(r *http.Request) (book.Credentials, error) {
	var cred book.Credentials
	username, ok := r.PostForm["username"]
	if !ok || len(username) == 0 {
		return cred, missingField("username")
	}
	password, ok := r.PostForm["password"]
	if !ok || len(password) == 0 {
		return cred, missingField("password")
	}
	cred.Username = username[0]
	cred.Password = password[0]
	return cred, nil
}

func missingField(name string) book.ErrResponse {
	return book.ErrResponseInvalidEntry.With(fmt.Errorf("field %s is required", name))
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("encoding response")
	}
}
