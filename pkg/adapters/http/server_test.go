package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/plotline/pkg/adapters/memory"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	result  *domain.Result
	err     error
	concept string
}

func (f *fakePipeline) Generate(ctx context.Context, concept string) (*domain.Result, error) {
	f.concept = concept
	return f.result, f.err
}

func completedResult(t *testing.T) *domain.Result {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "a_cat_1")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	b := domain.NewBundle(dir)
	b.RasterPath = filepath.Join(dir, "generated.png")
	b.VectorPath = filepath.Join(dir, "generated.svg")
	b.MotionPath = filepath.Join(dir, "generated.gcode")
	require.NoError(t, os.WriteFile(b.RasterPath, []byte("\x89PNG\r\n\x1a\n"), 0o644))
	require.NoError(t, os.WriteFile(b.VectorPath, []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(b.MotionPath, []byte("G21 ; Set units to mm\n"), 0o644))

	return &domain.Result{
		RunID:   "run-1",
		Concept: "a cat",
		Prompt:  domain.GenerationPrompt{Text: "a simple cat"},
		Bundle:  b,
		Warnings: []domain.Warning{
			{Stage: domain.StageThumbnail, Err: errors.New("decode /secret/path failed")},
		},
	}
}

func newTestHandler(t *testing.T, p Pipeline, opts ...Option) http.Handler {
	t.Helper()
	h, err := NewHandler(p, opts...)
	require.NoError(t, err)
	return h
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/generate"))
	assert.NotNil(t, doc.Paths.Find("/artifacts/{id}/{kind}"))
}

func TestStaticRoutes(t *testing.T) {
	h := newTestHandler(t, &fakePipeline{}, WithVersion("1.2.3"))

	w := doRequest(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome")

	w = doRequest(h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = doRequest(h, http.MethodGet, "/info", "")
	assert.JSONEq(t, `{"app":"plotline-http","version":"1.2.3","api_version":"1.0.0"}`, w.Body.String())

	w = doRequest(h, http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = doRequest(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "metrics are mounted only when configured")
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "plotline_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	h := newTestHandler(t, &fakePipeline{}, WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	w := doRequest(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "plotline_test_total 1")
}

func TestGenerate_Success(t *testing.T) {
	store, err := memory.NewStore(0)
	require.NoError(t, err)
	result := completedResult(t)
	p := &fakePipeline{result: result}
	h := newTestHandler(t, p, WithResultStore(store))

	w := doRequest(h, http.MethodPost, "/generate", `{"concept":"a cat"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a cat", p.concept)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "a simple cat", resp.Prompt)
	assert.False(t, resp.PromptDegraded)
	assert.Equal(t, "a_cat_1", resp.BundleID)
	assert.Equal(t, "/artifacts/a_cat_1/motion", resp.Artifacts.Motion)
	assert.Empty(t, resp.Artifacts.Thumbnail)
	assert.Equal(t, []string{"thumbnail"}, resp.Warnings)
	assert.NotContains(t, w.Body.String(), result.Bundle.RootPath, "filesystem paths must not leak")
	assert.NotContains(t, w.Body.String(), "/secret/path")

	w = doRequest(h, http.MethodGet, resp.Artifacts.Motion, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "G21 ; Set units to mm\n", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "generated.gcode")

	w = doRequest(h, http.MethodGet, resp.Artifacts.Vector, "")
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
}

func TestGenerate_BadRequests(t *testing.T) {
	h := newTestHandler(t, &fakePipeline{})

	tests := []struct {
		name string
		body string
	}{
		{"Invalid JSON", `{"concept":`},
		{"Missing Concept", `{}`},
		{"Empty Concept", `{"concept":""}`},
		{"Wrong Type", `{"concept":42}`},
		{"Unknown Field", `{"concept":"a","extra":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(h, http.MethodPost, "/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"Invalid Concept", domain.ErrEmptyConcept, http.StatusBadRequest, ""},
		{"Concept Too Large", domain.ErrConceptTooLarge, http.StatusBadRequest, ""},
		{"Generation", domain.NewStageError(domain.StageGenerate, domain.ErrImageGenerationFailed, errors.New("quota")), http.StatusBadGateway, "generate_image"},
		{"Download", domain.NewStageError(domain.StageDownload, domain.ErrDownloadFailed, errors.New("404")), http.StatusBadGateway, "download_raster"},
		{"Vectorize", domain.NewStageError(domain.StageVectorize, domain.ErrVectorConversionFailed, domain.ErrPollTimeout), http.StatusBadGateway, "vectorize"},
		{"Allocate", domain.NewStageError(domain.StageAllocate, domain.ErrAllocationFailed, errors.New("mkdir /data/x: denied")), http.StatusInternalServerError, "allocate"},
		{"Motion", domain.NewStageError(domain.StageConvert, domain.ErrMotionConversionFailed, domain.ErrEmptyInput), http.StatusInternalServerError, "convert_motion"},
		{"Cancelled", domain.NewStageError(domain.StageVectorize, domain.ErrVectorConversionFailed, context.Canceled), http.StatusServiceUnavailable, "vectorize"},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakePipeline{err: tt.err})
			w := doRequest(h, http.MethodPost, "/generate", `{"concept":"a cat"}`)
			assert.Equal(t, tt.status, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.stage, resp.Stage)
			assert.NotEmpty(t, resp.Error)
			assert.NotContains(t, resp.Error, "/data/x")
		})
	}
}

func TestArtifact_NotFound(t *testing.T) {
	store, err := memory.NewStore(0)
	require.NoError(t, err)
	result := completedResult(t)
	require.NoError(t, store.Save(context.Background(), result))

	h := newTestHandler(t, &fakePipeline{}, WithResultStore(store))

	assert.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/artifacts/unknown/motion", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/artifacts/a_cat_1/thumbnail", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/artifacts/a_cat_1/passwd", "").Code)

	require.NoError(t, os.Remove(result.Bundle.MotionPath))
	assert.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/artifacts/a_cat_1/motion", "").Code)

	noStore := newTestHandler(t, &fakePipeline{})
	assert.Equal(t, http.StatusNotFound, doRequest(noStore, http.MethodGet, "/artifacts/a_cat_1/raster", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, &fakePipeline{})
	w := doRequest(h, http.MethodOptions, "/generate", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
