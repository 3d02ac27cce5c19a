package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExpander struct{ mock.Mock }

func (m *mockExpander) Expand(ctx context.Context, concept string) (string, error) {
	args := m.Called(ctx, concept)
	return args.String(0), args.Error(1)
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) Fetch(ctx context.Context, ref string) (*domain.Raster, error) {
	args := m.Called(ctx, ref)
	r, _ := args.Get(0).(*domain.Raster)
	return r, args.Error(1)
}

type mockVectorizer struct{ mock.Mock }

func (m *mockVectorizer) Vectorize(ctx context.Context, rasterPath, destPath string) error {
	args := m.Called(ctx, rasterPath, destPath)
	return args.Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, bundleID, archivePath string) (string, error) {
	args := m.Called(ctx, bundleID, archivePath)
	return args.String(0), args.Error(1)
}

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg"><path d="M0 0 L10 0 L10 10 L0 10 Z"/></svg>`

// writeSVG makes a Vectorize mock write doc to its destination.
func writeSVG(doc string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_ = os.WriteFile(args.String(2), []byte(doc), 0o644)
	}
}

func pngRaster(t *testing.T) *domain.Raster {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.SetGray(x, 10, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &domain.Raster{Data: buf.Bytes(), MIMEType: "image/png", Extension: "png"}
}

type fixture struct {
	expander   *mockExpander
	generator  *mockGenerator
	fetcher    *mockFetcher
	vectorizer *mockVectorizer
}

func newFixture() *fixture {
	return &fixture{
		expander:   new(mockExpander),
		generator:  new(mockGenerator),
		fetcher:    new(mockFetcher),
		vectorizer: new(mockVectorizer),
	}
}

func (f *fixture) deps(alloc ports.Allocator) Dependencies {
	return Dependencies{
		Expander:   f.expander,
		Generator:  f.generator,
		Fetcher:    f.fetcher,
		Allocator:  alloc,
		Vectorizer: f.vectorizer,
	}
}

// happy wires every mock to succeed.
func (f *fixture) happy(t *testing.T) {
	f.expander.On("Expand", mock.Anything, mock.Anything).Return("a simple cat outline", nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return("https://images.example/cat.png", nil)
	f.fetcher.On("Fetch", mock.Anything, "https://images.example/cat.png").Return(pngRaster(t), nil)
	f.vectorizer.On("Vectorize", mock.Anything, mock.Anything, mock.Anything).Run(writeSVG(squareSVG)).Return(nil)
}
