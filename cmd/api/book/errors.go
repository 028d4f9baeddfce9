package book

import (
	"net/http"
)

type ErrResponse struct {
	Status int    `json:"-"`
	Detail string `json:"detail"`
}

func (e ErrResponse) Error() string {
	return e.Detail
}

/* Returns a copy of e whose detail carries the text of err after the base message. */
func (e ErrResponse) With(err error) ErrResponse {
	return ErrResponse{Status: e.Status, Detail: e.Detail + err.Error()}
}

var ErrResponseDBConnectionFailed = ErrResponse{http.StatusInternalServerError, "Database connection failed"}
var ErrResponseInvalidCredentials = ErrResponse{http.StatusUnauthorized, "Invalid username or password"}
var ErrResponseInsertBook = ErrResponse{http.StatusInternalServerError, "Error inserting book: "}
var ErrResponseListBooks = ErrResponse{http.StatusInternalServerError, "Failed to retrieve books: "}
var ErrResponseInvalidEntry = ErrResponse{http.StatusUnprocessableEntity, "invalid request: "}
var ErrResponseRequestTimeout = ErrResponse{http.StatusGatewayTimeout, "error from context:"}
