package http

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type ServerConfig struct {
	Port int
}

func NewServer(config ServerConfig, h *BookHandler, zlog *zerolog.Logger) *http.Server {
	server := http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: NewRouter(h, zlog),
	}
	return &server
}

/* Routes the endpoints and wraps them with request logging and the CORS policy. */
func NewRouter(h *BookHandler, zlog *zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(zlog))

	r.HandleFunc("/ping", ping)
	r.HandleFunc("/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/insert-books", h.insertBook).Methods(http.MethodPost)
	r.HandleFunc("/get-books", h.getBooks).Methods(http.MethodGet)

	return corsPolicy().Handler(r)
}

/* Every origin, method and header is accepted, credentials included.
The request origin is echoed back instead of "*". */
func corsPolicy() *cors.Cors {
	return cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
}

/* Tests the http server connection.  */
func ping(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	if method == http.MethodGet {
		w.WriteHeader(http.StatusNoContent)
		return
	} else {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
}
