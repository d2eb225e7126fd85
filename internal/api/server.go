// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes the pipeline over HTTP. Dataset requests return a
// types.Result as JSON, or stream progress, row chunks and the final result
// as newline-delimited JSON when the caller asks for ?stream=1.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/internal/pipeline"
	"github.com/pdiddy/dataset-engine/internal/session"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 64 << 10

// Runner executes dataset requests. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, obs *pipeline.Observer) types.Result
	Reextract(ctx context.Context, sessionID string, req pipeline.Request, obs *pipeline.Observer) types.Result
}

// Server serves the dataset API over a Runner and an optional session store.
type Server struct {
	runner Runner
	store  session.Store
	logger *slog.Logger
}

// NewServer returns a server over runner. store may be nil, in which case
// the session endpoints answer 404.
func NewServer(runner Runner, store session.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{runner: runner, store: store, logger: logger.With("component", "api")}
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Post("/v1/datasets", s.createDataset)
	r.Get("/v1/sessions", s.listSessions)
	r.Get("/v1/sessions/{id}/artifacts", s.listArtifacts)
	r.Get("/v1/sessions/{id}/artifacts/*", s.getArtifact)
	r.Post("/v1/sessions/{id}/reextract", s.reextract)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

type datasetRequest struct {
	Prompt  string `json:"prompt"`
	NumRows int    `json:"num_rows"`
	NumURLs int    `json:"num_urls"`
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, error) {
	var body datasetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return pipeline.Request{}, err
	}
	if body.NumRows < 0 || body.NumURLs < 0 {
		return pipeline.Request{}, errors.New("num_rows and num_urls must not be negative")
	}
	return pipeline.Request{
		Prompt:  strings.TrimSpace(body.Prompt),
		NumRows: body.NumRows,
		NumURLs: body.NumURLs,
	}, nil
}

func (s *Server) createDataset(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		writeError(w, "prompt is required", http.StatusBadRequest)
		return
	}

	if streaming(r) {
		s.stream(w, func(obs *pipeline.Observer) types.Result {
			return s.runner.Run(r.Context(), req, obs)
		})
		return
	}
	writeJSON(w, s.runner.Run(r.Context(), req, nil), http.StatusOK)
}

func (s *Server) reextract(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, "no session store configured", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.store.Get(r.Context(), id, session.CorpusArtifact); err != nil {
		s.storeError(w, err)
		return
	}

	if streaming(r) {
		s.stream(w, func(obs *pipeline.Observer) types.Result {
			return s.runner.Reextract(r.Context(), id, req, obs)
		})
		return
	}
	writeJSON(w, s.runner.Reextract(r.Context(), id, req, nil), http.StatusOK)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, map[string]any{"sessions": []session.Summary{}}, http.StatusOK)
		return
	}
	sessions, err := s.store.Sessions(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []session.Summary{}
	}
	writeJSON(w, map[string]any{"sessions": sessions}, http.StatusOK)
}

func (s *Server) listArtifacts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, "no session store configured", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	artifacts, err := s.store.List(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if len(artifacts) == 0 {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"session_id": id, "artifacts": artifacts}, http.StatusOK)
}

func (s *Server) getArtifact(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, "no session store configured", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "*")
	data, err := s.store.Get(r.Context(), id, name)
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Error("session store failed", "error", err)
	writeError(w, "session store unavailable", http.StatusInternalServerError)
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv; charset=utf-8"
	case strings.HasSuffix(name, ".yaml"):
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

func streaming(r *http.Request) bool {
	switch r.URL.Query().Get("stream") {
	case "1", "true":
		return true
	}
	return false
}

// StreamMessage is one line of a streamed response. Exactly one payload
// field is set, named by Type.
type StreamMessage struct {
	Type     string               `json:"type"`
	Progress *types.ProgressEvent `json:"progress,omitempty"`
	Rows     *types.RowsChunk     `json:"rows,omitempty"`
	Result   *types.Result        `json:"result,omitempty"`
}

// Stream message types.
const (
	MessageProgress = "progress"
	MessageRows     = "rows"
	MessageResult   = "result"
)

// ndjsonWriter serializes stream messages. A run that outlives its caller
// may still report progress, so writes after close are dropped.
type ndjsonWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	closed  bool
}

func (n *ndjsonWriter) send(m StreamMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	_ = n.enc.Encode(m)
	if n.flusher != nil {
		n.flusher.Flush()
	}
}

func (n *ndjsonWriter) close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

func (s *Server) stream(w http.ResponseWriter, run func(*pipeline.Observer) types.Result) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	out := &ndjsonWriter{w: w, flusher: flusher, enc: json.NewEncoder(w)}
	defer out.close()

	obs := &pipeline.Observer{
		Event: func(e types.ProgressEvent) {
			out.send(StreamMessage{Type: MessageProgress, Progress: &e})
		},
		Rows: func(c types.RowsChunk) {
			out.send(StreamMessage{Type: MessageRows, Rows: &c})
		},
	}
	res := run(obs)
	out.send(StreamMessage{Type: MessageResult, Result: &res})
}

func writeJSON(w http.ResponseWriter, value any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, map[string]string{"error": msg}, status)
}
