package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/plotline/pkg/allocator"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func stageOf(t *testing.T, err error) domain.Stage {
	t.Helper()
	var se *domain.StageError
	require.True(t, errors.As(err, &se), "expected a StageError, got %v", err)
	return se.Stage
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	assert.ErrorContains(t, err, "expander")
}

func TestRun_Success(t *testing.T) {
	f := newFixture()
	f.happy(t)
	root := t.TempDir()

	var events []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}
	hooks := domain.LifecycleHooks{
		OnRunStart:    func(ctx context.Context, e *domain.RunEvent) { record("run_start") },
		OnStageFinish: func(ctx context.Context, e *domain.StageEvent) { record(string(e.Stage)) },
		OnRunFinish:   func(ctx context.Context, e *domain.RunEvent) { record("run_finish:" + e.BundleID) },
	}

	o, err := New(f.deps(allocator.NewSequential()), WithLifecycleHooks(hooks))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "My Concept!", root)
	require.NoError(t, err)

	require.NotNil(t, res.Bundle)
	assert.True(t, res.Bundle.Complete())
	assert.Equal(t, "My_Concept_1", res.Bundle.ID)
	assert.Equal(t, "a simple cat outline", res.Prompt.Text)
	assert.False(t, res.Prompt.Degraded)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, filepath.Join(root, "My_Concept_1", "generated.png"), res.Bundle.RasterPath)
	assert.FileExists(t, res.Bundle.RasterPath)
	assert.FileExists(t, res.Bundle.VectorPath)

	gcode, err := os.ReadFile(res.Bundle.MotionPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(gcode)), "\n")
	assert.Equal(t, "; G-code generated from SVG", lines[0])
	assert.Equal(t, "G0 X0.00 Y0.00", lines[3])
	assert.Equal(t, "M2 ; End of program", lines[len(lines)-1])
	assert.Len(t, lines, 3+1+4+1)

	assert.Equal(t, []string{
		"run_start",
		string(domain.StageExpand),
		string(domain.StageGenerate),
		string(domain.StageAllocate),
		string(domain.StageDownload),
		string(domain.StageVectorize),
		string(domain.StageConvert),
		"run_finish:My_Concept_1",
	}, events)

	// The image prompt is the expanded prompt plus the line-art suffix.
	f.generator.AssertCalled(t, "Generate", mock.Anything, domain.ComposeImagePrompt("a simple cat outline"))
}

func TestRun_DegradedPromptStillCompletes(t *testing.T) {
	f := newFixture()
	f.expander.On("Expand", mock.Anything, "a cat").Return("", errors.New("quota exceeded"))
	f.generator.On("Generate", mock.Anything, domain.ComposeImagePrompt(domain.FallbackPrompt)).Return("ref", nil)
	f.fetcher.On("Fetch", mock.Anything, "ref").Return(pngRaster(t), nil)
	f.vectorizer.On("Vectorize", mock.Anything, mock.Anything, mock.Anything).Run(writeSVG(squareSVG)).Return(nil)

	var degraded int
	o, err := New(f.deps(allocator.NewToken()), WithLifecycleHooks(domain.LifecycleHooks{
		OnDegraded: func(ctx context.Context, e *domain.StageEvent) { degraded++ },
	}))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "a cat", t.TempDir())
	require.NoError(t, err)

	assert.True(t, res.Bundle.Complete())
	assert.True(t, res.Prompt.Degraded)
	assert.Equal(t, domain.FallbackPrompt, res.Prompt.Text)
	assert.EqualError(t, res.Prompt.Cause, "quota exceeded")
	assert.Equal(t, 1, degraded)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.StageExpand, res.Warnings[0].Stage)
	assert.ErrorIs(t, res.Warnings[0].Err, domain.ErrPromptExpansionDegraded)
	f.generator.AssertExpectations(t)
}

func TestRun_EmptyExpansionDegrades(t *testing.T) {
	f := newFixture()
	f.expander.On("Expand", mock.Anything, mock.Anything).Return("", nil)
	f.generator.On("Generate", mock.Anything, domain.ComposeImagePrompt(domain.FallbackPrompt)).Return("ref", nil)
	f.fetcher.On("Fetch", mock.Anything, "ref").Return(pngRaster(t), nil)
	f.vectorizer.On("Vectorize", mock.Anything, mock.Anything, mock.Anything).Run(writeSVG(squareSVG)).Return(nil)

	o, err := New(f.deps(allocator.NewToken()))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "a cat", t.TempDir())
	require.NoError(t, err)
	assert.True(t, res.Prompt.Degraded)
}

func TestRun_FailFastAfterImageGeneration(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		err  error
	}{
		{"Generator Error", "", errors.New("content policy")},
		{"Empty Reference", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.expander.On("Expand", mock.Anything, mock.Anything).Return("prompt", nil)
			f.generator.On("Generate", mock.Anything, mock.Anything).Return(tt.ref, tt.err)
			root := filepath.Join(t.TempDir(), "out")

			o, err := New(f.deps(allocator.NewSequential()))
			require.NoError(t, err)

			res, err := o.Run(context.Background(), "a cat", root)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrImageGenerationFailed)
			assert.Equal(t, domain.StageGenerate, stageOf(t, err))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}

			require.NotNil(t, res)
			assert.Nil(t, res.Bundle)
			assert.NoDirExists(t, root, "no directory may be allocated after a generation failure")
			f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
			f.vectorizer.AssertNotCalled(t, "Vectorize", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRun_DownloadFailureKeepsBundleDir(t *testing.T) {
	f := newFixture()
	f.expander.On("Expand", mock.Anything, mock.Anything).Return("prompt", nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return("ref", nil)
	f.fetcher.On("Fetch", mock.Anything, "ref").Return(nil, errors.New("404"))
	root := t.TempDir()

	o, err := New(f.deps(allocator.NewSequential()))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "cat", root)

	assert.ErrorIs(t, err, domain.ErrDownloadFailed)
	assert.Equal(t, domain.StageDownload, stageOf(t, err))
	require.NotNil(t, res.Bundle)
	assert.Equal(t, "cat_1", res.Bundle.ID)
	assert.Empty(t, res.Bundle.RasterPath)
	assert.DirExists(t, filepath.Join(root, "cat_1"))

	entries, _ := os.ReadDir(root)
	assert.Len(t, entries, 1, "exactly one directory per run")
}

func TestRun_VectorizeFailureKeepsRaster(t *testing.T) {
	f := newFixture()
	f.expander.On("Expand", mock.Anything, mock.Anything).Return("prompt", nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return("ref", nil)
	f.fetcher.On("Fetch", mock.Anything, "ref").Return(pngRaster(t), nil)
	f.vectorizer.On("Vectorize", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("job failed"))

	o, err := New(f.deps(allocator.NewToken()))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "cat", t.TempDir())

	assert.ErrorIs(t, err, domain.ErrVectorConversionFailed)
	assert.False(t, res.Bundle.Complete())
	assert.FileExists(t, res.Bundle.RasterPath)
	assert.Empty(t, res.Bundle.VectorPath)
}

func TestRun_EmptyVectorIsMotionFailure(t *testing.T) {
	f := newFixture()
	f.expander.On("Expand", mock.Anything, mock.Anything).Return("prompt", nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return("ref", nil)
	f.fetcher.On("Fetch", mock.Anything, "ref").Return(pngRaster(t), nil)
	f.vectorizer.On("Vectorize", mock.Anything, mock.Anything, mock.Anything).
		Run(writeSVG(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)).Return(nil)

	o, err := New(f.deps(allocator.NewToken()))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "cat", t.TempDir())

	assert.ErrorIs(t, err, domain.ErrMotionConversionFailed)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	assert.Equal(t, domain.StageConvert, stageOf(t, err))
	assert.FileExists(t, res.Bundle.VectorPath)
	assert.Empty(t, res.Bundle.MotionPath)
}

func TestRun_CancelledDuringVectorization(t *testing.T) {
	f := newFixture()
	f.expander.On("Expand", mock.Anything, mock.Anything).Return("prompt", nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return("ref", nil)
	f.fetcher.On("Fetch", mock.Anything, "ref").Return(pngRaster(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	f.vectorizer.On("Vectorize", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return(context.Canceled)

	o, err := New(f.deps(allocator.NewToken()))
	require.NoError(t, err)

	res, err := o.Run(ctx, "cat", t.TempDir())

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.NotErrorIs(t, err, domain.ErrVectorConversionFailed)
	assert.Equal(t, domain.StageVectorize, stageOf(t, err))
	assert.FileExists(t, res.Bundle.RasterPath, "partial files are kept")
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, err := New(f.deps(allocator.NewToken()))
	require.NoError(t, err)

	_, err = o.Run(ctx, "cat", t.TempDir())

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, domain.StageExpand, stageOf(t, err))
	f.expander.AssertNotCalled(t, "Expand", mock.Anything, mock.Anything)
}

func TestRun_RejectsInvalidConcept(t *testing.T) {
	f := newFixture()
	o, err := New(f.deps(allocator.NewToken()))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), " \x00 ", t.TempDir())

	assert.ErrorIs(t, err, domain.ErrEmptyConcept)
	assert.Nil(t, res)
}

func TestRun_ThresholdFeedsPreparedRaster(t *testing.T) {
	f := newFixture()
	f.expander.On("Expand", mock.Anything, mock.Anything).Return("prompt", nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return("ref", nil)
	f.fetcher.On("Fetch", mock.Anything, "ref").Return(pngRaster(t), nil)
	f.vectorizer.On("Vectorize", mock.Anything, mock.MatchedBy(func(p string) bool {
		return filepath.Base(p) == domain.PreparedFileName
	}), mock.Anything).Run(writeSVG(squareSVG)).Return(nil)

	o, err := New(f.deps(allocator.NewToken()), WithThreshold(100))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "cat", t.TempDir())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(res.Bundle.RootPath, domain.PreparedFileName))
	f.vectorizer.AssertExpectations(t)
}

func TestRun_PostProcessing(t *testing.T) {
	f := newFixture()
	f.happy(t)
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return filepath.Base(p) == "a_cat.zip"
	})).Return("https://bucket.example/a_cat.zip", nil)

	o, err := New(f.deps(allocator.NewToken()),
		WithThumbnail(16),
		WithArchive(true),
		WithPublisher(pub),
	)
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "a cat", t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, res.Warnings)
	assert.FileExists(t, res.Bundle.ThumbnailPath)
	assert.FileExists(t, res.Bundle.ArchivePath)
	assert.Equal(t, "https://bucket.example/a_cat.zip", res.ArchiveURL)
	assert.Equal(t,
		[]domain.ArtifactKind{domain.ArtifactRaster, domain.ArtifactVector, domain.ArtifactMotion, domain.ArtifactThumbnail, domain.ArtifactArchive},
		res.Bundle.Kinds())
}

func TestRun_PostProcessingFailureIsWarning(t *testing.T) {
	f := newFixture()
	f.happy(t)
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied"))

	o, err := New(f.deps(allocator.NewToken()), WithArchive(true), WithPublisher(pub))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "a cat", t.TempDir())
	require.NoError(t, err)

	assert.True(t, res.Bundle.Complete())
	assert.Empty(t, res.ArchiveURL)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.StagePublish, res.Warnings[0].Stage)
	assert.ErrorIs(t, res.Warnings[0].Err, domain.ErrPostProcessFailed)
}

func TestRun_ConcurrentRunsGetDistinctBundles(t *testing.T) {
	f := newFixture()
	f.happy(t)
	root := t.TempDir()

	o, err := New(f.deps(allocator.NewToken()))
	require.NoError(t, err)

	n := 8
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := o.Run(context.Background(), "same concept", root)
			if assert.NoError(t, err) {
				ids <- res.Bundle.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
