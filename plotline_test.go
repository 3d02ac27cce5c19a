package plotline_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/plotline"
	"github.com/aretw0/plotline/pkg/adapters/fetch"
	"github.com/aretw0/plotline/pkg/allocator"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/motion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticExpander struct {
	text string
	err  error
}

func (s staticExpander) Expand(ctx context.Context, concept string) (string, error) {
	return s.text, s.err
}

// dataURLGenerator returns a small PNG inline so the real fetcher can be used.
type dataURLGenerator struct {
	prompts []string
}

func (g *dataURLGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(2, 2, color.Gray{})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

type svgVectorizer struct{}

func (svgVectorizer) Vectorize(ctx context.Context, rasterPath, destPath string) error {
	return os.WriteFile(destPath, []byte(`<svg xmlns="http://www.w3.org/2000/svg"><path d="M1 1 L5 1 L5 5 Z"/></svg>`), 0o644)
}

func newEngine(t *testing.T, expander staticExpander, opts ...plotline.Option) (*plotline.Engine, *dataURLGenerator) {
	t.Helper()
	gen := &dataURLGenerator{}
	eng, err := plotline.New(t.TempDir(), plotline.Dependencies{
		Expander:   expander,
		Generator:  gen,
		Fetcher:    fetch.New(),
		Allocator:  allocator.NewSequential(),
		Vectorizer: svgVectorizer{},
	}, opts...)
	require.NoError(t, err)
	return eng, gen
}

func TestEngine_Generate(t *testing.T) {
	eng, gen := newEngine(t, staticExpander{text: "a round cat"}, plotline.WithThumbnail(4), plotline.WithArchive(true))

	result, err := eng.Generate(context.Background(), "My Cat!")
	require.NoError(t, err)

	b := result.Bundle
	require.True(t, b.Complete())
	assert.Equal(t, "My_Cat_1", b.ID)
	assert.Equal(t, filepath.Join(eng.Root(), "My_Cat_1"), b.RootPath)
	assert.Equal(t, filepath.Join(b.RootPath, "generated.png"), b.RasterPath)
	assert.FileExists(t, b.ThumbnailPath)
	assert.Equal(t, filepath.Join(b.RootPath, "My_Cat.zip"), b.ArchivePath)
	assert.Empty(t, result.Warnings)

	require.Len(t, gen.prompts, 1)
	assert.True(t, strings.HasPrefix(gen.prompts[0], "a round cat"))
	assert.True(t, strings.HasSuffix(gen.prompts[0], domain.ImageStyleSuffix))

	gcode, err := os.ReadFile(b.MotionPath)
	require.NoError(t, err)
	assert.Equal(t, "; G-code generated from SVG\n"+
		"G21 ; Set units to mm\n"+
		"G90 ; Absolute positioning\n"+
		"G0 X1.00 Y1.00\n"+
		"G1 X5.00 Y1.00\n"+
		"G1 X5.00 Y5.00\n"+
		"G1 X1.00 Y1.00\n"+
		"M2 ; End of program\n", string(gcode))

	second, err := eng.Generate(context.Background(), "My Cat!")
	require.NoError(t, err)
	assert.Equal(t, "My_Cat_2", second.Bundle.ID)
}

func TestEngine_DegradedPrompt(t *testing.T) {
	eng, gen := newEngine(t, staticExpander{err: errors.New("rate limited")})

	result, err := eng.Generate(context.Background(), "a cat")
	require.NoError(t, err)
	assert.True(t, result.Prompt.Degraded)
	assert.Equal(t, domain.FallbackPrompt, result.Prompt.Text)
	assert.True(t, strings.HasPrefix(gen.prompts[0], domain.FallbackPrompt))
	assert.True(t, result.Bundle.Complete())
}

func TestEngine_PenLiftConverter(t *testing.T) {
	eng, _ := newEngine(t, staticExpander{text: "x"}, plotline.WithConverter(motion.NewConverter(motion.WithPenLift("M5", "M3"))))

	result, err := eng.Generate(context.Background(), "pen")
	require.NoError(t, err)
	gcode, err := os.ReadFile(result.Bundle.MotionPath)
	require.NoError(t, err)
	assert.Contains(t, string(gcode), "M5\nG0 X1.00 Y1.00\nM3\n")
}

func TestNew_Validation(t *testing.T) {
	_, err := plotline.New("", plotline.Dependencies{})
	assert.Error(t, err)

	_, err = plotline.New(t.TempDir(), plotline.Dependencies{})
	assert.ErrorContains(t, err, "missing dependencies")
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, plotline.Version)
	assert.NotContains(t, plotline.Version, "\n")
}

func TestEngine_BundleNamedFromNormalizedConcept(t *testing.T) {
	eng, _ := newEngine(t, staticExpander{text: "a cat"})

	result, err := eng.Generate(context.Background(), " cat\x07 ")
	require.NoError(t, err)

	assert.Equal(t, "cat", result.Concept)
	assert.Equal(t, "cat_1", result.Bundle.ID, "surrounding whitespace and control characters never reach the name")
}
