// Package server exposes the retrieval engine over HTTP with a JSON API.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nevindra/quiver"
	"github.com/nevindra/quiver/ingest"
)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Server wraps a quiver.Engine with HTTP handlers.
type Server struct {
	engine     *quiver.Engine
	params     quiver.ChunkParams
	topK       int
	uploadDir  string
	extractors map[ingest.ContentType]ingest.Extractor
	logger     *slog.Logger

	srv *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithChunkParams overrides the default chunking parameters used when a
// request omits them.
func WithChunkParams(p quiver.ChunkParams) Option {
	return func(s *Server) { s.params = p }
}

// WithTopK sets the default result count when a request omits top_k.
func WithTopK(k int) Option {
	return func(s *Server) { s.topK = k }
}

// WithUploadDir sets the directory where uploaded files are stored.
func WithUploadDir(dir string) Option {
	return func(s *Server) { s.uploadDir = dir }
}

// WithLogger sets a structured logger for request handling.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server around an engine.
func New(engine *quiver.Engine, opts ...Option) *Server {
	s := &Server{
		engine:     engine,
		params:     quiver.DefaultChunkParams(),
		topK:       5,
		uploadDir:  "uploads",
		extractors: ingest.DefaultExtractors(),
		logger:     nopLogger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/convert", s.handleConvert)
	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("POST /api/process_pc", s.handleProcessPC)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/query_pc", s.handleQueryPC)
	mux.HandleFunc("POST /api/rerank", s.handleRerank)
	mux.HandleFunc("POST /api/expand", s.handleExpand)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	return mux
}

// Start listens on addr and serves requests in a background goroutine.
// Returns once the listener is established.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s.Handler()}
	go s.srv.Serve(ln)
	s.logger.Info("server: listening", "addr", ln.Addr().String())
	return nil
}

// Close shuts down the server with a bounded drain timeout.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
