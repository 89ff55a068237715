// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jdfalk/bookmeta-orchestrator/internal/cache"
	"github.com/jdfalk/bookmeta-orchestrator/internal/logging"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/jdfalk/bookmeta-orchestrator/internal/quota"
	"github.com/jdfalk/bookmeta-orchestrator/internal/ratelimit"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment override, e.g.
// BOOKMETA_STORE_TYPE=pebble.
const EnvPrefix = "BOOKMETA"

// Config holds application configuration
type Config struct {
	Store        quota.StoreConfig  `mapstructure:"store" yaml:"store"`
	Quota        QuotaConfig        `mapstructure:"quota" yaml:"quota"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	RateLimits   RateLimitConfig    `mapstructure:"rate_limits" yaml:"rate_limits"`
	Context      ContextConfig      `mapstructure:"context" yaml:"context"`
	Logging      logging.Config     `mapstructure:"logging" yaml:"logging"`
	Providers    ProvidersConfig    `mapstructure:"providers" yaml:"providers"`
}

// QuotaConfig sets daily limits per quota key and the admission ceilings.
type QuotaConfig struct {
	SoftCeiling float64          `mapstructure:"soft_ceiling" yaml:"soft_ceiling"`
	HardCeiling float64          `mapstructure:"hard_ceiling" yaml:"hard_ceiling"`
	Limits      map[string]int64 `mapstructure:"limits" yaml:"limits"`
}

type OrchestratorConfig struct {
	ResolutionTimeout   time.Duration `mapstructure:"resolution_timeout" yaml:"resolution_timeout"`
	CoverTimeout        time.Duration `mapstructure:"cover_timeout" yaml:"cover_timeout"`
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout" yaml:"lookup_timeout"`
	FanOutTimeout       time.Duration `mapstructure:"fan_out_timeout" yaml:"fan_out_timeout"`
	AvailabilityTimeout time.Duration `mapstructure:"availability_timeout" yaml:"availability_timeout"`
	ResolutionThreshold float64       `mapstructure:"resolution_threshold" yaml:"resolution_threshold"`
	DedupThreshold      float64       `mapstructure:"dedup_threshold" yaml:"dedup_threshold"`
	// CacheTTL of zero disables result caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	// Priorities maps a lowercase capability name to provider names in the
	// order they should be tried.
	Priorities map[string][]string `mapstructure:"priorities" yaml:"priorities"`
}

// PriorityFor returns the configured provider order for c.
func (o OrchestratorConfig) PriorityFor(c provider.Capability) []string {
	return o.Priorities[strings.ToLower(string(c))]
}

// RateLimitConfig holds requests-per-minute per provider name.
type RateLimitConfig struct {
	Burst     int            `mapstructure:"burst" yaml:"burst"`
	PerMinute map[string]int `mapstructure:"per_minute" yaml:"per_minute"`
}

// ContextConfig supplies ServiceContext defaults.
type ContextConfig struct {
	CachePolicy     string        `mapstructure:"cache_policy" yaml:"cache_policy"`
	RateLimitPolicy string        `mapstructure:"rate_limit_policy" yaml:"rate_limit_policy"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Priority        string        `mapstructure:"priority" yaml:"priority"`
}

type ProvidersConfig struct {
	// Disabled names providers that are never registered.
	Disabled       []string `mapstructure:"disabled" yaml:"disabled"`
	OpenAIModel    string   `mapstructure:"openai_model" yaml:"openai_model"`
	OpenLibraryURL string   `mapstructure:"openlibrary_url" yaml:"openlibrary_url"`
	CoversURL      string   `mapstructure:"covers_url" yaml:"covers_url"`
	GoogleBooksURL string   `mapstructure:"google_books_url" yaml:"google_books_url"`
	HardcoverURL   string   `mapstructure:"hardcover_url" yaml:"hardcover_url"`
	AudnexusURL    string   `mapstructure:"audnexus_url" yaml:"audnexus_url"`
}

// Enabled reports whether name is not in the disabled list.
func (p ProvidersConfig) Enabled(name string) bool {
	for _, d := range p.Disabled {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return false
		}
	}
	return true
}

var AppConfig Config

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")

	v.SetDefault("quota.soft_ceiling", quota.DefaultSoftCeiling)
	v.SetDefault("quota.hard_ceiling", quota.DefaultHardCeiling)
	v.SetDefault("quota.limits", map[string]any{
		"google_books": 1000,
		"hardcover":    500,
		"openai":       200,
	})

	v.SetDefault("orchestrator.resolution_timeout", 12*time.Second)
	v.SetDefault("orchestrator.cover_timeout", 10*time.Second)
	v.SetDefault("orchestrator.lookup_timeout", 15*time.Second)
	v.SetDefault("orchestrator.fan_out_timeout", 60*time.Second)
	v.SetDefault("orchestrator.availability_timeout", 5*time.Second)
	v.SetDefault("orchestrator.resolution_threshold", 0.70)
	v.SetDefault("orchestrator.dedup_threshold", 0.6)
	v.SetDefault("orchestrator.cache_ttl", 15*time.Minute)
	v.SetDefault("orchestrator.priorities", map[string]any{
		"isbn_resolution":     []string{"open-library", "google-books"},
		"metadata_enrichment": []string{"open-library", "google-books"},
		"cover_images":        []string{"open-library", "google-books", "hardcover"},
		"author_biography":    []string{"audnexus"},
	})

	v.SetDefault("rate_limits.burst", 5)
	v.SetDefault("rate_limits.per_minute", map[string]any{
		"open-library": 100,
		"google-books": 60,
		"hardcover":    60,
		"audnexus":     60,
		"openai":       20,
	})

	v.SetDefault("context.cache_policy", string(cache.PolicyReadWrite))
	v.SetDefault("context.rate_limit_policy", string(ratelimit.PolicyEnforce))
	v.SetDefault("context.timeout", time.Duration(0))
	v.SetDefault("context.priority", "medium")

	def := logging.DefaultConfig()
	v.SetDefault("logging.level", def.Level)
	v.SetDefault("logging.development", def.Development)
	v.SetDefault("logging.file", def.File)
	v.SetDefault("logging.max_size_mb", def.MaxSizeMB)
	v.SetDefault("logging.max_backups", def.MaxBackups)
	v.SetDefault("logging.max_age_days", def.MaxAgeDays)

	v.SetDefault("providers.disabled", []string{})
	v.SetDefault("providers.openai_model", "")
	v.SetDefault("providers.openlibrary_url", "")
	v.SetDefault("providers.covers_url", "")
	v.SetDefault("providers.google_books_url", "")
	v.SetDefault("providers.hardcover_url", "")
	v.SetDefault("providers.audnexus_url", "")
}

// Default returns the configuration produced by SetDefaults alone.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Store.Type == "sqlite3" {
		cfg.Store.Type = "sqlite"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.Store.Type {
	case "", "memory", "pebble", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	if c.Quota.SoftCeiling <= 0 || c.Quota.SoftCeiling > c.Quota.HardCeiling || c.Quota.HardCeiling > 1 {
		return fmt.Errorf("quota ceilings must satisfy 0 < soft (%v) <= hard (%v) <= 1",
			c.Quota.SoftCeiling, c.Quota.HardCeiling)
	}
	for key, limit := range c.Quota.Limits {
		if limit < 0 {
			return fmt.Errorf("quota limit for %q is negative", key)
		}
	}
	for name, t := range map[string]float64{
		"resolution_threshold": c.Orchestrator.ResolutionThreshold,
		"dedup_threshold":      c.Orchestrator.DedupThreshold,
	} {
		if t <= 0 || t > 1 {
			return fmt.Errorf("orchestrator.%s must be in (0, 1], got %v", name, t)
		}
	}
	for name, d := range map[string]time.Duration{
		"resolution_timeout":   c.Orchestrator.ResolutionTimeout,
		"cover_timeout":        c.Orchestrator.CoverTimeout,
		"lookup_timeout":       c.Orchestrator.LookupTimeout,
		"fan_out_timeout":      c.Orchestrator.FanOutTimeout,
		"availability_timeout": c.Orchestrator.AvailabilityTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("orchestrator.%s must be positive", name)
		}
	}
	for name := range c.Orchestrator.Priorities {
		if _, err := provider.ParseCapability(name); err != nil {
			return fmt.Errorf("orchestrator.priorities: %w", err)
		}
	}
	if _, err := cache.ParsePolicy(c.Context.CachePolicy); err != nil {
		return fmt.Errorf("context.cache_policy: %w", err)
	}
	if _, err := ratelimit.ParsePolicy(c.Context.RateLimitPolicy); err != nil {
		return fmt.Errorf("context.rate_limit_policy: %w", err)
	}
	if c.Context.Timeout < 0 {
		return errors.New("context.timeout must not be negative")
	}
	return nil
}

// LoadEnvFile loads KEY=value pairs from the given .env files into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Configure prepares v: defaults, env overrides and the config file
// location. An empty cfgFile searches for bookmeta.yaml in the working
// directory and $HOME/.config/bookmeta.
func Configure(v *viper.Viper, cfgFile string) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return
	}
	v.SetConfigName("bookmeta")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/bookmeta")
	}
}

// ReadConfig reads the file located by Configure. A missing file is not an
// error when no explicit path was given.
func ReadConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// InitConfig initializes the application configuration from the global
// viper instance, the .env file and cfgFile.
func InitConfig(cfgFile string) error {
	if err := LoadEnvFile(); err != nil {
		return err
	}
	v := viper.GetViper()
	Configure(v, cfgFile)
	if err := ReadConfig(v); err != nil {
		return err
	}
	cfg, err := Load(v)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Watch reloads the config file whenever it changes and hands every valid
// result to onChange. Invalid edits are logged and ignored.
func Watch(v *viper.Viper, logger *zap.Logger, onChange func(Config)) {
	logger = logging.Named(logger, "config")
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(v)
		if err != nil {
			logger.Warn("ignoring invalid config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}
