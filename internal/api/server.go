// Package api serves dictionary lookups and small decode requests over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/decode"
	"github.com/gyeh/codebook/internal/normalize"
	"github.com/gyeh/codebook/internal/pipeline"
)

// DefaultMaxBody caps the size of a decode request body.
const DefaultMaxBody = 8 << 20

// Options tunes the decode endpoint.
type Options struct {
	Cleaner            normalize.Cleaner
	SampleLimitPerKind int
	MaxBodyBytes       int64
}

// Server answers lookups against one loaded dictionary.
type Server struct {
	dict    *pipeline.LoadedDictionary
	decoder *decode.Decoder
	opts    Options
	log     zerolog.Logger
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server over ld.
func NewServer(ld *pipeline.LoadedDictionary, opts Options, log zerolog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBody
	}
	if opts.SampleLimitPerKind <= 0 {
		opts.SampleLimitPerKind = batch.DefaultSampleLimit
	}
	s := &Server{
		dict:    ld,
		decoder: decode.New(ld.Dict, ld.Dict.MonthlyFamilies()),
		opts:    opts,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/dictionary", s.handleDictionary)
		r.Get("/fields/{key}", s.handleField)
		r.Get("/fields/{key}/resolve", s.handleResolve)
		r.Get("/fields/{key}/codes", s.handleCodes)
		r.Post("/decode", s.handleDecode)
	})
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Str("dictionary", s.dict.Ref).Msg("server starting")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the handler for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	ev := s.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request error")
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
