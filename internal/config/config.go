package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrConfig is wrapped by every configuration or credential problem.
var ErrConfig = errors.New("invalid configuration")

const (
	// DefaultPath is read when no config path is given and the file exists.
	DefaultPath = "intent.yaml"

	// EnvPrefix prefixes environment overrides, e.g. INTENT_PROVIDER__MODEL.
	EnvPrefix = "INTENT_"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderClaudeCLI = "claude-cli"
)

// Config is the top-level intent configuration.
type Config struct {
	Provider   ProviderConfig   `koanf:"provider"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Batch      BatchConfig      `koanf:"batch"`
	Taxonomy   TaxonomyConfig   `koanf:"taxonomy"`
	Server     ServerConfig     `koanf:"server"`
	Notifier   NotifierConfig   `koanf:"notifier"`
	Log        LogConfig        `koanf:"log"`
}

type ProviderConfig struct {
	Name        string        `koanf:"name"`
	Model       string        `koanf:"model"`
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
}

type ClassifierConfig struct {
	MaxRetries      int           `koanf:"max_retries"`
	FallbackEnabled bool          `koanf:"fallback_enabled"`
	Backoff         BackoffConfig `koanf:"backoff"`
}

type BackoffConfig struct {
	Initial    time.Duration `koanf:"initial"`
	Max        time.Duration `koanf:"max"`
	Multiplier float64       `koanf:"multiplier"`
}

type BatchConfig struct {
	Parallel   bool `koanf:"parallel"`
	MaxWorkers int  `koanf:"max_workers"`
}

// TaxonomyConfig points at a taxonomy file. An empty path uses the embedded one.
type TaxonomyConfig struct {
	Path string `koanf:"path"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// NotifierConfig enables degradation alerts for batches. An empty provider
// disables them.
type NotifierConfig struct {
	Provider          string        `koanf:"provider"`
	WebhookURL        string        `koanf:"webhook_url"`
	FallbackThreshold float64       `koanf:"fallback_threshold"`
	Timeout           time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Name:        ProviderAnthropic,
			Timeout:     30 * time.Second,
			MaxTokens:   1000,
			Temperature: 0.1,
		},
		Classifier: ClassifierConfig{
			MaxRetries:      2,
			FallbackEnabled: true,
			Backoff: BackoffConfig{
				Max:        5 * time.Second,
				Multiplier: 2,
			},
		},
		Batch: BatchConfig{
			Parallel:   true,
			MaxWorkers: 4,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Notifier: NotifierConfig{
			FallbackThreshold: 0.5,
			Timeout:           10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// INTENT_* environment overrides, in increasing priority. An empty path reads
// DefaultPath if it exists. All problems are reported together, wrapped in
// ErrConfig.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrConfig, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: reading environment: %w", ErrConfig, err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding: %w", ErrConfig, err)
	}

	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv(APIKeyEnv(cfg.Provider.Name))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps INTENT_CLASSIFIER__MAX_RETRIES to classifier.max_retries.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// APIKeyEnv returns the conventional credential variable for a provider,
// or "" when the provider needs none.
func APIKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}

// Validate checks cfg and returns every problem found, wrapped in ErrConfig.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider.Name {
	case ProviderAnthropic, ProviderGemini:
		if c.Provider.APIKey == "" {
			errs = append(errs, fmt.Errorf("provider.api_key is required for %s (or set %s)", c.Provider.Name, APIKeyEnv(c.Provider.Name)))
		}
	case ProviderClaudeCLI:
	default:
		errs = append(errs, fmt.Errorf("provider.name must be %q, %q or %q, got %q", ProviderAnthropic, ProviderGemini, ProviderClaudeCLI, c.Provider.Name))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider.timeout must be positive"))
	}
	if c.Provider.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("provider.max_tokens must be positive, got %d", c.Provider.MaxTokens))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("provider.temperature must be within [0, 2], got %g", c.Provider.Temperature))
	}

	if c.Classifier.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("classifier.max_retries must be >= 0, got %d", c.Classifier.MaxRetries))
	}
	b := c.Classifier.Backoff
	if b.Initial < 0 || b.Max < 0 {
		errs = append(errs, errors.New("classifier.backoff durations must not be negative"))
	}
	if b.Initial > 0 && b.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("classifier.backoff.multiplier must be >= 1, got %g", b.Multiplier))
	}

	if c.Batch.MaxWorkers <= 0 {
		errs = append(errs, fmt.Errorf("batch.max_workers must be positive, got %d", c.Batch.MaxWorkers))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	// Only validate notifier fields when provider is set.
	if c.Notifier.Provider != "" {
		if c.Notifier.Provider != "slack" {
			errs = append(errs, fmt.Errorf("notifier.provider must be \"slack\", got %q", c.Notifier.Provider))
		}
		if c.Notifier.WebhookURL == "" {
			errs = append(errs, errors.New("notifier.webhook_url is required when notifier.provider is set"))
		}
		if c.Notifier.FallbackThreshold <= 0 || c.Notifier.FallbackThreshold > 1 {
			errs = append(errs, fmt.Errorf("notifier.fallback_threshold must be within (0, 1], got %g", c.Notifier.FallbackThreshold))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "tint":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text, json or tint, got %q", c.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
