// Package config loads plotline settings from a YAML file, a .env file and the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment variables.
// A .env file in the working directory is loaded into the environment first and never
// overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/plotline/pkg/allocator"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit path is given and it exists.
const DefaultFile = "plotline.yaml"

// Config is the complete application configuration.
type Config struct {
	Storage     StorageConfig     `mapstructure:"storage"`
	Allocation  AllocationConfig  `mapstructure:"allocation"`
	Expander    ExpanderConfig    `mapstructure:"expander"`
	Image       ImageConfig       `mapstructure:"image"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Vectorizer  VectorizerConfig  `mapstructure:"vectorizer"`
	Motion      MotionConfig      `mapstructure:"motion"`
	PostProcess PostProcessConfig `mapstructure:"postprocess"`
	Publish     PublishConfig     `mapstructure:"publish"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
}

type StorageConfig struct {
	Root string `mapstructure:"root"`
}

type AllocationConfig struct {
	// Strategy is "sequential" or "token". Empty selects the command's default.
	Strategy string        `mapstructure:"strategy"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ExpanderConfig struct {
	// Provider is "openai", "gemini" or "none".
	Provider  string `mapstructure:"provider"`
	CacheSize int    `mapstructure:"cache_size"`
}

type ImageConfig struct {
	// Provider is "openai" or "gemini".
	Provider string `mapstructure:"provider"`
}

type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Gemini GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey       string `mapstructure:"api_key"`
	Organization string `mapstructure:"organization"`
	BaseURL      string `mapstructure:"base_url"`
	ChatModel    string `mapstructure:"chat_model"`
	ImageModel   string `mapstructure:"image_model"`
	ImageSize    string `mapstructure:"image_size"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	TextModel  string `mapstructure:"text_model"`
	ImageModel string `mapstructure:"image_model"`
}

type FetchConfig struct {
	MaxBytes int64         `mapstructure:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type VectorizerConfig struct {
	// Provider is "convertio" or "process".
	Provider  string          `mapstructure:"provider"`
	Convertio ConvertioConfig `mapstructure:"convertio"`
	Process   ProcessConfig   `mapstructure:"process"`
}

type ConvertioConfig struct {
	APIKey  string     `mapstructure:"api_key"`
	BaseURL string     `mapstructure:"base_url"`
	Poll    PollConfig `mapstructure:"poll"`
}

type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// Backoff is "fixed" or "exponential".
	Backoff     string        `mapstructure:"backoff"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
}

type ProcessConfig struct {
	Tool      string        `mapstructure:"tool"`
	ToolsFile string        `mapstructure:"tools_file"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MotionConfig struct {
	PenUp   string `mapstructure:"pen_up"`
	PenDown string `mapstructure:"pen_down"`
}

type PostProcessConfig struct {
	// Threshold enables black/white preprocessing at this gray level; 0 disables it.
	Threshold int  `mapstructure:"threshold"`
	Thumbnail int  `mapstructure:"thumbnail"`
	Archive   bool `mapstructure:"archive"`
}

type PublishConfig struct {
	S3 S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Enabled   bool          `mapstructure:"enabled"`
	Endpoint  string        `mapstructure:"endpoint"`
	Region    string        `mapstructure:"region"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Bucket    string        `mapstructure:"bucket"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	ResultCacheSize int           `mapstructure:"result_cache_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage:  StorageConfig{Root: "output"},
		Expander: ExpanderConfig{Provider: "openai", CacheSize: 256},
		Image:    ImageConfig{Provider: "openai"},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{ChatModel: "gpt-4o-mini", ImageModel: "dall-e-3", ImageSize: "1024x1024"},
			Gemini: GeminiConfig{TextModel: "gemini-2.5-flash", ImageModel: "imagen-4.0-generate-001"},
		},
		Fetch: FetchConfig{MaxBytes: 32 << 20, Timeout: time.Minute},
		Vectorizer: VectorizerConfig{
			Provider: "convertio",
			Convertio: ConvertioConfig{
				BaseURL: "https://api.convertio.co/convert",
				Poll: PollConfig{
					Interval:    3 * time.Second,
					MaxAttempts: 100,
					Timeout:     5 * time.Minute,
					Backoff:     "fixed",
					MaxInterval: 30 * time.Second,
				},
			},
			Process: ProcessConfig{Tool: "potrace", ToolsFile: "tools.yaml", Timeout: 2 * time.Minute},
		},
		PostProcess: PostProcessConfig{Thumbnail: 200, Archive: true},
		Publish: PublishConfig{S3: S3Config{
			Region:    "us-east-1",
			Bucket:    "plotline-artifacts",
			UseSSL:    true,
			URLExpiry: time.Hour,
		}},
		Server: ServerConfig{Addr: ":8080", RunTimeout: 10 * time.Minute, ResultCacheSize: 1024},
		Log:    LogConfig{Level: "info"},
	}
}

// envKeys maps environment variables onto configuration keys.
var envKeys = map[string]string{
	"OPENAI_API_KEY":      "providers.openai.api_key",
	"OPENAI_ORGANIZATION": "providers.openai.organization",
	"OPENAI_MODEL":        "providers.openai.chat_model",
	"OPENAI_BASE_URL":     "providers.openai.base_url",
	"GEMINI_API_KEY":      "providers.gemini.api_key",
	"CONVERTIO_API_KEY":   "vectorizer.convertio.api_key",
	"CONVERTIO_URL":       "vectorizer.convertio.base_url",

	"PLOTLINE_ROOT":           "storage.root",
	"PLOTLINE_STRATEGY":       "allocation.strategy",
	"PLOTLINE_REDIS_ADDR":     "allocation.redis.addr",
	"PLOTLINE_REDIS_PASSWORD": "allocation.redis.password",
	"PLOTLINE_REDIS_DB":       "allocation.redis.db",
	"PLOTLINE_EXPANDER":       "expander.provider",
	"PLOTLINE_IMAGE_PROVIDER": "image.provider",
	"PLOTLINE_VECTORIZER":     "vectorizer.provider",
	"PLOTLINE_POLL_INTERVAL":  "vectorizer.convertio.poll.interval",
	"PLOTLINE_POLL_TIMEOUT":   "vectorizer.convertio.poll.timeout",
	"PLOTLINE_POLL_BACKOFF":   "vectorizer.convertio.poll.backoff",
	"PLOTLINE_THRESHOLD":      "postprocess.threshold",
	"PLOTLINE_ARCHIVE":        "postprocess.archive",
	"PLOTLINE_S3_ENABLED":     "publish.s3.enabled",
	"PLOTLINE_S3_ENDPOINT":    "publish.s3.endpoint",
	"PLOTLINE_S3_REGION":      "publish.s3.region",
	"PLOTLINE_S3_ACCESS_KEY":  "publish.s3.access_key",
	"PLOTLINE_S3_SECRET_KEY":  "publish.s3.secret_key",
	"PLOTLINE_S3_BUCKET":      "publish.s3.bucket",
	"PLOTLINE_S3_USE_SSL":     "publish.s3.use_ssl",
	"PLOTLINE_ADDR":           "server.addr",
	"PLOTLINE_RUN_TIMEOUT":    "server.run_timeout",
	"PLOTLINE_LOG_LEVEL":      "log.level",
}

// Load builds the configuration. path may be empty, in which case DefaultFile is used
// when present. An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw := map[string]any{}
	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	case errors.Is(err, os.ErrNotExist) && path == "":
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	for env, key := range envKeys {
		if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
			setKey(raw, key, strings.TrimSpace(v))
		}
	}

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setKey writes value at a dotted key, creating intermediate maps.
func setKey(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Validate checks enumerations and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unsupported value %q (want one of %s)", field, value, strings.Join(allowed, ", ")))
	}

	if strings.TrimSpace(c.Storage.Root) == "" {
		errs = append(errs, errors.New("storage.root: must not be empty"))
	}
	if c.Allocation.Strategy != "" {
		if _, err := allocator.ParseStrategy(c.Allocation.Strategy); err != nil {
			errs = append(errs, fmt.Errorf("allocation.strategy: %w", err))
		}
	}
	check("expander.provider", c.Expander.Provider, "openai", "gemini", "none")
	check("image.provider", c.Image.Provider, "openai", "gemini")
	check("vectorizer.provider", c.Vectorizer.Provider, "convertio", "process")
	check("vectorizer.convertio.poll.backoff", c.Vectorizer.Convertio.Poll.Backoff, "", "fixed", "exponential")
	check("log.level", c.Log.Level, "", "debug", "info", "warn", "warning", "error")

	if poll := c.Vectorizer.Convertio.Poll; poll.Interval <= 0 {
		errs = append(errs, errors.New("vectorizer.convertio.poll.interval: must be positive"))
	} else if poll.MaxAttempts <= 0 && poll.Timeout <= 0 {
		errs = append(errs, errors.New("vectorizer.convertio.poll: max_attempts or timeout must bound polling"))
	}
	if t := c.PostProcess.Threshold; t < 0 || t > 255 {
		errs = append(errs, fmt.Errorf("postprocess.threshold: %d out of range 0..255", t))
	}
	if (c.Motion.PenUp == "") != (c.Motion.PenDown == "") {
		errs = append(errs, errors.New("motion: pen_up and pen_down must be set together"))
	}
	if c.Publish.S3.Enabled && !c.PostProcess.Archive {
		errs = append(errs, errors.New("publish.s3: requires postprocess.archive"))
	}
	return errors.Join(errs...)
}
