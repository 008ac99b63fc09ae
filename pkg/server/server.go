package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/utils/logging"
)

const shutdownTimeout = 10 * time.Second

// Combiner resolves a pair of element names
type Combiner interface {
	Resolve(ctx context.Context, a, b string) *model.Outcome
}

// Server is the HTTP boundary of the game
type Server struct {
	router    *mux.Router
	combiner  Combiner
	publicDir string
	mcp       http.Handler
}

type Option func(*Server)

// WithPublicDir serves static front-end files from dir
func WithPublicDir(dir string) Option {
	return func(s *Server) {
		s.publicDir = dir
	}
}

// WithMCP mounts an MCP streamable HTTP handler at /mcp
func WithMCP(handler http.Handler) Option {
	return func(s *Server) {
		s.mcp = handler
	}
}

// New creates a new HTTP server
func New(combiner Combiner, opts ...Option) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		combiner: combiner,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(loggingMiddleware)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/element", s.handleElement).Methods(http.MethodGet)
	s.router.HandleFunc("/elements", s.handleElements).Methods(http.MethodGet)
	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
		s.router.PathPrefix("/mcp/").Handler(s.mcp)
	}
	if s.publicDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.publicDir)))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleElement answers 200 for every outcome; the body tells success apart
func (s *Server) handleElement(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	a, b := query.Get("a"), query.Get("b")

	outcome := s.combiner.Resolve(r.Context(), a, b)
	writeJSON(r.Context(), w, http.StatusOK, model.NewEnvelope(a, b, outcome))
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	elements, err := model.DefaultElements()
	if err != nil {
		logging.From(r.Context()).Error("failed to load default elements", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, elements)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(ctx).Error("failed to write response", "error", err)
	}
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "HTTP server stopped", goerr.V("addr", addr))
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.From(ctx).Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down HTTP server")
	}
	return nil
}
