package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/plotline"
	"github.com/aretw0/plotline/internal/config"
	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/adapters/convertio"
	"github.com/aretw0/plotline/pkg/adapters/fetch"
	"github.com/aretw0/plotline/pkg/adapters/gemini"
	"github.com/aretw0/plotline/pkg/adapters/memory"
	"github.com/aretw0/plotline/pkg/adapters/openai"
	"github.com/aretw0/plotline/pkg/adapters/process"
	redisadapter "github.com/aretw0/plotline/pkg/adapters/redis"
	"github.com/aretw0/plotline/pkg/adapters/s3"
	"github.com/aretw0/plotline/pkg/allocator"
	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/motion"
	"github.com/aretw0/plotline/pkg/observability"
	"github.com/aretw0/plotline/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ErrExpansionDisabled is returned by the expander when expander.provider is "none".
// Every run then uses the fallback prompt.
var ErrExpansionDisabled = errors.New("prompt expansion disabled")

// BuildOptions carry per-command choices that are not part of the configuration file.
type BuildOptions struct {
	// DefaultStrategy applies when allocation.strategy is empty.
	DefaultStrategy allocator.Strategy
	// Metrics registers Prometheus collectors on Services.Registry.
	Metrics bool
	// Debug adds lifecycle log hooks.
	Debug  bool
	Logger *slog.Logger
}

// Services is everything a command needs to run the pipeline.
type Services struct {
	Engine    *plotline.Engine
	Results   *memory.Store
	Converter *motion.Converter
	Registry  *prometheus.Registry

	closers []func() error
}

// Close releases connections opened by Build.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires adapters from cfg into an engine.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	svc := &Services{}
	ok := false
	defer func() {
		if !ok {
			svc.Close()
		}
	}()

	clients := &providerClients{cfg: cfg, logger: logger}
	expander, err := buildExpander(ctx, cfg, clients)
	if err != nil {
		return nil, err
	}
	generator, err := buildGenerator(ctx, cfg, clients)
	if err != nil {
		return nil, err
	}
	alloc, err := buildAllocator(ctx, cfg, opts.DefaultStrategy, logger, svc)
	if err != nil {
		return nil, err
	}
	vectorizer, err := buildVectorizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc.Converter = buildConverter(cfg)
	svc.Results, err = memory.NewStore(cfg.Server.ResultCacheSize)
	if err != nil {
		return nil, err
	}

	engineOpts := []plotline.Option{
		plotline.WithLogger(logger),
		plotline.WithConverter(svc.Converter),
		plotline.WithThreshold(uint8(cfg.PostProcess.Threshold)),
		plotline.WithThumbnail(cfg.PostProcess.Thumbnail),
		plotline.WithArchive(cfg.PostProcess.Archive),
	}

	var hooks []domain.LifecycleHooks
	if opts.Debug {
		hooks = append(hooks, observability.LogHooks(logger))
	}
	if opts.Metrics {
		svc.Registry = prometheus.NewRegistry()
		svc.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := observability.NewMetrics(svc.Registry)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, m.Hooks())
	}
	if len(hooks) > 0 {
		engineOpts = append(engineOpts, plotline.WithLifecycleHooks(observability.Combine(hooks...)))
	}

	if s3cfg := cfg.Publish.S3; s3cfg.Enabled {
		pub, err := s3.New(s3.Config{
			Endpoint:  s3cfg.Endpoint,
			Region:    s3cfg.Region,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Bucket:    s3cfg.Bucket,
			UseSSL:    s3cfg.UseSSL,
			URLExpiry: s3cfg.URLExpiry,
		})
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, plotline.WithPublisher(pub))
	}

	svc.Engine, err = plotline.New(cfg.Storage.Root, plotline.Dependencies{
		Expander:   expander,
		Generator:  generator,
		Fetcher:    fetch.New(fetch.WithMaxBytes(cfg.Fetch.MaxBytes), fetch.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout})),
		Allocator:  alloc,
		Vectorizer: vectorizer,
	}, engineOpts...)
	if err != nil {
		return nil, err
	}
	ok = true
	return svc, nil
}

// providerClients builds each provider client at most once so the expander and the
// generator share credentials and transport.
type providerClients struct {
	cfg    *config.Config
	logger *slog.Logger
	openai *openai.Client
	gemini *gemini.Client
}

func (p *providerClients) openAI() (*openai.Client, error) {
	if p.openai == nil {
		oc := p.cfg.Providers.OpenAI
		c, err := openai.NewClient(oc.APIKey, openai.WithOrganization(oc.Organization), openai.WithBaseURL(oc.BaseURL))
		if err != nil {
			return nil, err
		}
		p.openai = c
	}
	return p.openai, nil
}

func (p *providerClients) geminiClient(ctx context.Context) (*gemini.Client, error) {
	if p.gemini == nil {
		gc := p.cfg.Providers.Gemini
		c, err := gemini.New(ctx, gc.APIKey,
			gemini.WithTextModel(gc.TextModel),
			gemini.WithImageModel(gc.ImageModel),
			gemini.WithLogger(p.logger),
		)
		if err != nil {
			return nil, err
		}
		p.gemini = c
	}
	return p.gemini, nil
}

func buildExpander(ctx context.Context, cfg *config.Config, clients *providerClients) (ports.PromptExpander, error) {
	var expander ports.PromptExpander
	switch strings.ToLower(cfg.Expander.Provider) {
	case "none":
		return disabledExpander{}, nil
	case "gemini":
		c, err := clients.geminiClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("expander: %w", err)
		}
		expander = c
	default:
		c, err := clients.openAI()
		if err != nil {
			return nil, fmt.Errorf("expander: %w", err)
		}
		expander = openai.NewExpander(c, cfg.Providers.OpenAI.ChatModel)
	}
	if cfg.Expander.CacheSize <= 0 {
		return expander, nil
	}
	return memory.NewCachedExpander(expander, cfg.Expander.CacheSize)
}

type disabledExpander struct{}

func (disabledExpander) Expand(context.Context, string) (string, error) {
	return "", ErrExpansionDisabled
}

func buildGenerator(ctx context.Context, cfg *config.Config, clients *providerClients) (ports.ImageGenerator, error) {
	if strings.EqualFold(cfg.Image.Provider, "gemini") {
		c, err := clients.geminiClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("image generator: %w", err)
		}
		return c, nil
	}
	c, err := clients.openAI()
	if err != nil {
		return nil, fmt.Errorf("image generator: %w", err)
	}
	oc := cfg.Providers.OpenAI
	return openai.NewImageGenerator(c, openai.WithImageModel(oc.ImageModel), openai.WithSize(oc.ImageSize)), nil
}

func buildAllocator(ctx context.Context, cfg *config.Config, fallback allocator.Strategy, logger *slog.Logger, svc *Services) (ports.Allocator, error) {
	strategy := fallback
	if cfg.Allocation.Strategy != "" {
		s, err := allocator.ParseStrategy(cfg.Allocation.Strategy)
		if err != nil {
			return nil, err
		}
		strategy = s
	}
	if strategy == "" {
		strategy = allocator.StrategySequential
	}

	opts := []allocator.Option{
		allocator.WithLogger(logger),
		allocator.WithLockTTL(cfg.Allocation.LockTTL),
	}
	if rc := cfg.Allocation.Redis; rc.Addr != "" && strategy == allocator.StrategySequential {
		client, err := redisadapter.Connect(ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			return nil, fmt.Errorf("allocation lock: %w", err)
		}
		svc.closers = append(svc.closers, client.Close)

		var lockOpts []redisadapter.LockerOption
		if rc.Prefix != "" {
			lockOpts = append(lockOpts, redisadapter.WithPrefix(rc.Prefix))
		}
		opts = append(opts, allocator.WithLocker(redisadapter.NewLocker(client, lockOpts...)))
		logger.Info("Sequential allocation locked through redis", "addr", rc.Addr)
	}
	return allocator.New(strategy, opts...)
}

func buildVectorizer(cfg *config.Config, logger *slog.Logger) (ports.Vectorizer, error) {
	vc := cfg.Vectorizer
	if strings.EqualFold(vc.Provider, "process") {
		tools, err := process.LoadTools(vc.Process.ToolsFile)
		if err != nil {
			return nil, err
		}
		return process.New(vc.Process.Tool,
			process.WithRegistry(tools),
			process.WithTimeout(vc.Process.Timeout),
			process.WithLogger(logger),
		)
	}

	backoff, err := convertio.ParseBackoff(vc.Convertio.Poll.Backoff)
	if err != nil {
		return nil, err
	}
	return convertio.New(vc.Convertio.APIKey, vc.Convertio.BaseURL,
		convertio.WithLogger(logger),
		convertio.WithPollConfig(convertio.PollConfig{
			Interval:    vc.Convertio.Poll.Interval,
			MaxAttempts: vc.Convertio.Poll.MaxAttempts,
			Timeout:     vc.Convertio.Poll.Timeout,
			Backoff:     backoff,
			MaxInterval: vc.Convertio.Poll.MaxInterval,
		}),
	)
}

func buildConverter(cfg *config.Config) *motion.Converter {
	if cfg.Motion.PenUp != "" && cfg.Motion.PenDown != "" {
		return motion.NewConverter(motion.WithPenLift(cfg.Motion.PenUp, cfg.Motion.PenDown))
	}
	return motion.NewConverter()
}
