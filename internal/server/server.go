// Package server exposes a filtering session over HTTP so a browser or
// desktop front end can drive it. Every handler is a thin translation between
// JSON and the session, filter and export packages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/export"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
	"github.com/RC-CHN/CHARLS-FILTER/internal/filter"
	"github.com/RC-CHN/CHARLS-FILTER/internal/session"
)

var (
	// errBadRequest marks malformed or incomplete request bodies.
	errBadRequest = errors.New("bad request")
	// errInvalidInput marks well-formed requests with unusable values.
	errInvalidInput = errors.New("invalid input")
)

// Options configures the HTTP layer.
type Options struct {
	// AllowedOrigins lists CORS origins; empty allows none.
	AllowedOrigins []string
}

// Server serves one session.
type Server struct {
	sess *session.Session
	opts Options

	read   func(ctx context.Context, path string) (*dataset.Dataset, error)
	export func(ctx context.Context, ds *dataset.Dataset, rename map[string]string, path string) (string, error)
}

// New returns a server for sess.
func New(sess *session.Session, opts Options) *Server {
	return &Server{sess: sess, opts: opts, read: fileio.Read, export: export.Export}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("OK")) })
	r.Route("/api", func(r chi.Router) {
		r.Post("/load", s.handleLoad)
		r.Get("/status", s.handleStatus)
		r.Get("/columns", s.handleColumns)
		r.Get("/columns/{name}", s.handlePreview)
		r.Post("/filter/dropna", s.handleDropNA)
		r.Post("/filter/condition", s.handleCondition)
		r.Post("/reset", s.handleReset)
		r.Post("/export", s.handleExport)
	})
	return r
}

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	var pe *fileio.ParseError
	switch {
	case errors.Is(err, session.ErrNoDataLoaded):
		return http.StatusConflict
	case errors.Is(err, fileio.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &pe),
		errors.Is(err, errInvalidInput),
		errors.Is(err, filter.ErrInvalidColumnSelection),
		errors.Is(err, filter.ErrTypeCoercion),
		errors.Is(err, filter.ErrUnsupportedOperator),
		errors.Is(err, dataset.ErrDuplicateColumnName):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}
