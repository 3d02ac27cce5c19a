// Package mcp exposes the pipeline to agents over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/motion"
	"github.com/aretw0/plotline/pkg/ports"
	"github.com/aretw0/plotline/pkg/svgpath"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// URIScheme prefixes artifact resource URIs.
const URIScheme = "plotline://bundles/"

// Pipeline runs one concept through the pipeline.
type Pipeline interface {
	Generate(ctx context.Context, concept string) (*domain.Result, error)
}

// GenerateArgs are the arguments of the generate tool.
type GenerateArgs struct {
	Concept string `json:"concept"`
}

// GenerateOutput aligns with the HTTP response and provides a unified structure across adapters.
type GenerateOutput struct {
	Prompt         string            `json:"prompt" jsonschema_description:"The prompt used for image generation"`
	PromptDegraded bool              `json:"prompt_degraded" jsonschema_description:"True when the fallback prompt was used"`
	BundleID       string            `json:"bundle_id" jsonschema_description:"Identifier of the artifact bundle"`
	Artifacts      map[string]string `json:"artifacts" jsonschema_description:"Resource URIs keyed by artifact kind"`
	ArchiveURL     string            `json:"archive_url,omitempty" jsonschema_description:"Published archive link, if any"`
	Warnings       []string          `json:"warnings,omitempty" jsonschema_description:"Stages that failed without aborting the run"`
}

// ConvertArgs are the arguments of the convert_svg tool.
type ConvertArgs struct {
	SVG string `json:"svg"`
}

// Server wraps the pipeline and exposes it as an MCP server.
type Server struct {
	pipeline  Pipeline
	results   ports.ResultStore
	converter *motion.Converter
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithResultStore enables artifact resources for finished runs.
func WithResultStore(store ports.ResultStore) Option {
	return func(s *Server) { s.results = store }
}

// WithConverter sets the converter used by convert_svg.
func WithConverter(c *motion.Converter) Option {
	return func(s *Server) { s.converter = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP server instance.
func NewServer(p Pipeline, version string, opts ...Option) *Server {
	s := &Server{
		pipeline:  p,
		converter: motion.NewConverter(),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("plotline-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	generateTool := mcp.NewTool("generate",
		mcp.WithDescription("Turn a free-text concept into a raster image, an SVG drawing and a G-code motion program."),
		mcp.WithString("concept", mcp.Required(), mcp.Description("What to draw")),
		mcp.WithOutputSchema[GenerateOutput](),
	)
	s.mcpServer.AddTool(generateTool, mcp.NewStructuredToolHandler(s.handleGenerate))

	convertTool := mcp.NewTool("convert_svg",
		mcp.WithDescription("Convert an SVG document to G-code without running the generation pipeline."),
		mcp.WithString("svg", mcp.Required(), mcp.Description("SVG document text")),
	)
	s.mcpServer.AddTool(convertTool, mcp.NewTypedToolHandler(s.handleConvert))
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest, args GenerateArgs) (GenerateOutput, error) {
	result, err := s.pipeline.Generate(ctx, args.Concept)
	if err != nil {
		s.logger.Error("MCP Generate failed", "err", err)
		return GenerateOutput{}, publicError(err)
	}
	if s.results != nil {
		if err := s.results.Save(ctx, result); err != nil {
			s.logger.Warn("MCP Generate: failed to record result", "err", err)
		}
	}
	return newGenerateOutput(result), nil
}

func newGenerateOutput(result *domain.Result) GenerateOutput {
	out := GenerateOutput{
		Prompt:         result.Prompt.Text,
		PromptDegraded: result.Prompt.Degraded,
		ArchiveURL:     result.ArchiveURL,
		Artifacts:      map[string]string{},
	}
	if b := result.Bundle; b != nil {
		out.BundleID = b.ID
		for _, kind := range b.Kinds() {
			out.Artifacts[string(kind)] = URIScheme + b.ID + "/" + string(kind)
		}
	}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, string(w.Stage))
	}
	return out
}

// publicError strips causes that may carry filesystem paths or upstream payloads.
func publicError(err error) error {
	var se *domain.StageError
	if errors.As(err, &se) {
		return errors.New(se.Public())
	}
	return err
}

func (s *Server) handleConvert(ctx context.Context, request mcp.CallToolRequest, args ConvertArgs) (*mcp.CallToolResult, error) {
	set, err := svgpath.ParseString(args.SVG)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse svg: %v", err)), nil
	}
	program, err := s.converter.Convert(set)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("convert: %v", err)), nil
	}
	text, err := motion.Marshal(program)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode: %v", err)), nil
	}
	return mcp.NewToolResultText(string(text)), nil
}

func (s *Server) registerResources() {
	tmpl := mcp.NewResourceTemplate(URIScheme+"{id}/{kind}", "Bundle artifact",
		mcp.WithTemplateDescription("A file produced by a finished run: raster, vector, motion, thumbnail or archive."),
	)
	s.mcpServer.AddResourceTemplate(tmpl, s.readArtifact)
}

func (s *Server) readArtifact(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, kind, ok := strings.Cut(strings.TrimPrefix(uri, URIScheme), "/")
	if !ok || !strings.HasPrefix(uri, URIScheme) || s.results == nil {
		return nil, domain.ErrArtifactNotFound
	}
	result, err := s.results.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	path := result.Bundle.Path(domain.ArtifactKind(kind))
	if path == "" {
		return nil, domain.ErrArtifactNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrArtifactNotFound, id, kind)
	}

	switch filepath.Ext(path) {
	case ".gcode":
		return []mcp.ResourceContents{mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: string(data)}}, nil
	case ".svg":
		return []mcp.ResourceContents{mcp.TextResourceContents{URI: uri, MIMEType: "image/svg+xml", Text: string(data)}}, nil
	}
	return []mcp.ResourceContents{mcp.BlobResourceContents{
		URI:      uri,
		MIMEType: mimeType(path),
		Blob:     base64.StdEncoding.EncodeToString(data),
	}}, nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".zip":
		return "application/zip"
	}
	return "application/octet-stream"
}
