package cli

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/plotline/internal/config"
	"github.com/aretw0/plotline/pkg/adapters/convertio"
	"github.com/aretw0/plotline/pkg/adapters/memory"
	"github.com/aretw0/plotline/pkg/adapters/openai"
	"github.com/aretw0/plotline/pkg/adapters/process"
	"github.com/aretw0/plotline/pkg/allocator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	cfg.Providers.OpenAI.APIKey = "sk-test"
	cfg.Vectorizer.Convertio.APIKey = "cv-test"
	return &cfg
}

func TestBuild_Defaults(t *testing.T) {
	cfg := testConfig(t)

	svc, err := Build(context.Background(), cfg, BuildOptions{})
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.Engine)
	assert.NotNil(t, svc.Results)
	assert.NotNil(t, svc.Converter)
	assert.Nil(t, svc.Registry, "metrics are opt-in")
	assert.Equal(t, cfg.Storage.Root, svc.Engine.Root())
}

func TestBuild_Metrics(t *testing.T) {
	svc, err := Build(context.Background(), testConfig(t), BuildOptions{Metrics: true, Debug: true})
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.Registry)
	families, err := svc.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuild_MissingProviderKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := testConfig(t)
	cfg.Providers.OpenAI.APIKey = ""

	_, err := Build(context.Background(), cfg, BuildOptions{})
	assert.ErrorIs(t, err, openai.ErrMissingAPIKey)
}

func TestBuild_MissingVectorizerKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vectorizer.Convertio.APIKey = ""

	_, err := Build(context.Background(), cfg, BuildOptions{})
	assert.ErrorIs(t, err, convertio.ErrMissingAPIKey)
}

func TestBuild_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Allocation.Strategy = "sequential"
	cfg.Allocation.Redis.Addr = mr.Addr()
	cfg.Allocation.Redis.Prefix = "test:"

	svc, err := Build(context.Background(), cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, svc.closers, 1)
	assert.NoError(t, svc.Close())
}

func TestBuild_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Allocation.Strategy = "sequential"
	cfg.Allocation.Redis.Addr = "127.0.0.1:1"

	_, err := Build(context.Background(), cfg, BuildOptions{})
	assert.ErrorContains(t, err, "allocation lock")
}

func TestBuild_UnknownProcessTool(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vectorizer.Provider = "process"
	cfg.Vectorizer.Process.Tool = "autotrace"
	cfg.Vectorizer.Process.ToolsFile = "missing-tools.yaml"

	_, err := Build(context.Background(), cfg, BuildOptions{})
	assert.ErrorIs(t, err, process.ErrToolNotRegistered)
}

func TestBuildExpander(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Expander.Provider = "none"

		exp, err := buildExpander(ctx, cfg, &providerClients{cfg: cfg})
		require.NoError(t, err)
		_, err = exp.Expand(ctx, "a cat")
		assert.ErrorIs(t, err, ErrExpansionDisabled)
	})

	t.Run("Cached", func(t *testing.T) {
		cfg := testConfig(t)

		exp, err := buildExpander(ctx, cfg, &providerClients{cfg: cfg})
		require.NoError(t, err)
		assert.IsType(t, &memory.CachedExpander{}, exp)
	})

	t.Run("Uncached", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Expander.CacheSize = 0

		exp, err := buildExpander(ctx, cfg, &providerClients{cfg: cfg})
		require.NoError(t, err)
		assert.IsType(t, &openai.Expander{}, exp)
	})
}

func TestBuildAllocator_Strategy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	alloc, err := buildAllocator(ctx, cfg, allocator.StrategyToken, nil, &Services{})
	require.NoError(t, err)
	assert.IsType(t, &allocator.Token{}, alloc)

	cfg.Allocation.Strategy = "sequential"
	alloc, err = buildAllocator(ctx, cfg, allocator.StrategyToken, nil, &Services{})
	require.NoError(t, err)
	assert.IsType(t, &allocator.Sequential{}, alloc, "configuration wins over the command default")

	cfg.Allocation.Strategy = ""
	alloc, err = buildAllocator(ctx, cfg, "", nil, &Services{})
	require.NoError(t, err)
	assert.IsType(t, &allocator.Sequential{}, alloc)
}

func TestBuildConverter_PenLift(t *testing.T) {
	cfg := testConfig(t)
	assert.False(t, buildConverter(cfg).PenLift())

	cfg.Motion.PenUp = "M5"
	cfg.Motion.PenDown = "M3"
	assert.True(t, buildConverter(cfg).PenLift())
}
