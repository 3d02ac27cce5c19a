package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxRequestBytes bounds a POST /generate body.
const MaxRequestBytes = 64 << 10

// Pipeline runs one concept through the pipeline.
type Pipeline interface {
	Generate(ctx context.Context, concept string) (*domain.Result, error)
}

// Server serves the pipeline over HTTP.
type Server struct {
	pipeline Pipeline
	results  ports.ResultStore
	metrics  http.Handler
	logger   *slog.Logger
	version  string
	timeout  time.Duration

	doc           *openapi3.T
	requestSchema *openapi3.Schema
}

// Option configures a Server.
type Option func(*Server)

// WithResultStore records finished runs so their artifacts can be downloaded.
// Without one, GET /artifacts always answers 404.
func WithResultStore(store ports.ResultStore) Option {
	return func(s *Server) { s.results = store }
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithRunTimeout bounds each pipeline run started by POST /generate.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewHandler builds the router. It fails if the embedded API document is invalid.
func NewHandler(p Pipeline, opts ...Option) (http.Handler, error) {
	s := &Server{
		pipeline: p,
		logger:   logging.NewNop(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	schema, err := requestSchema(doc, "GenerateRequest")
	if err != nil {
		return nil, err
	}
	s.doc = doc
	s.requestSchema = schema

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/", s.welcome)
	r.Get("/health", s.health)
	r.Get("/info", s.info)
	r.Get("/openapi.yaml", s.openAPI)
	r.Post("/generate", s.generate)
	r.Get("/artifacts/{id}/{kind}", s.artifact)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the plotline API"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "plotline-http",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

func (s *Server) openAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(rawSpec)
}

// GenerateResponse is the body of a successful POST /generate.
type GenerateResponse struct {
	Message        string    `json:"message"`
	Prompt         string    `json:"prompt"`
	PromptDegraded bool      `json:"prompt_degraded"`
	BundleID       string    `json:"bundle_id"`
	Artifacts      Artifacts `json:"artifacts"`
	Warnings       []string  `json:"warnings,omitempty"`
}

// Artifacts holds opaque download references for each produced file.
type Artifacts struct {
	Raster     string `json:"raster,omitempty"`
	Vector     string `json:"vector,omitempty"`
	Motion     string `json:"motion,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Archive    string `json:"archive,omitempty"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "request body too large or unreadable"})
		return
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		s.logger.Warn("Generate: invalid request body", "err", err)
		return
	}
	if err := s.requestSchema.VisitJSON(raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "request does not match schema: concept is required"})
		s.logger.Warn("Generate: schema violation", "err", err)
		return
	}
	var req struct {
		Concept string `json:"concept"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.pipeline.Generate(ctx, req.Concept)
	if err != nil {
		status, resp := errorResponse(err)
		s.logger.Error("Generate failed", "status", status, "err", err)
		writeError(w, status, resp)
		return
	}

	if s.results != nil {
		if err := s.results.Save(ctx, result); err != nil {
			s.logger.Warn("Generate: failed to record result", "bundle_id", result.Bundle.ID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, newGenerateResponse(result))
}

func newGenerateResponse(result *domain.Result) GenerateResponse {
	resp := GenerateResponse{
		Message:        "Prompt generated successfully",
		Prompt:         result.Prompt.Text,
		PromptDegraded: result.Prompt.Degraded,
	}
	if b := result.Bundle; b != nil {
		resp.BundleID = b.ID
		ref := func(kind domain.ArtifactKind) string {
			if b.Path(kind) == "" {
				return ""
			}
			return fmt.Sprintf("/artifacts/%s/%s", b.ID, kind)
		}
		resp.Artifacts = Artifacts{
			Raster:    ref(domain.ArtifactRaster),
			Vector:    ref(domain.ArtifactVector),
			Motion:    ref(domain.ArtifactMotion),
			Thumbnail: ref(domain.ArtifactThumbnail),
			Archive:   ref(domain.ArtifactArchive),
		}
	}
	resp.Artifacts.ArchiveURL = result.ArchiveURL
	for _, w := range result.Warnings {
		// Stage names only; causes may carry paths.
		resp.Warnings = append(resp.Warnings, string(w.Stage))
	}
	return resp
}

// errorResponse maps a run error to a status code and a path-free body.
func errorResponse(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrEmptyConcept),
		errors.Is(err, domain.ErrConceptTooLarge),
		errors.Is(err, domain.ErrInvalidUTF8):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	}

	var se *domain.StageError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
	}
	resp := ErrorResponse{Error: se.Public(), Stage: string(se.Stage)}
	switch {
	case errors.Is(se.Kind, domain.ErrCancelled):
		return http.StatusServiceUnavailable, resp
	case errors.Is(se.Kind, domain.ErrImageGenerationFailed),
		errors.Is(se.Kind, domain.ErrDownloadFailed),
		errors.Is(se.Kind, domain.ErrVectorConversionFailed):
		return http.StatusBadGateway, resp
	}
	return http.StatusInternalServerError, resp
}

func (s *Server) artifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind := domain.ArtifactKind(chi.URLParam(r, "kind"))

	if s.results == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: domain.ErrArtifactNotFound.Error()})
		return
	}
	result, err := s.results.Load(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: domain.ErrArtifactNotFound.Error()})
		return
	}
	path := result.Bundle.Path(kind)
	if path == "" {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: domain.ErrArtifactNotFound.Error()})
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("Artifact missing on disk", "bundle_id", id, "kind", kind, "err", err)
		writeError(w, http.StatusNotFound, ErrorResponse{Error: domain.ErrArtifactNotFound.Error()})
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".gcode":
		return "text/plain; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
