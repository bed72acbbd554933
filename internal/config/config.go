// Package config loads searchcredit settings from defaults, a .env file, a
// YAML config file, the environment and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEARCHCREDIT"

// Config is the complete runtime configuration.
type Config struct {
	SerpAPIKey string        `mapstructure:"serpapi_key"`
	Run        RunConfig     `mapstructure:"run"`
	Trends     TrendsConfig  `mapstructure:"trends"`
	Browser    BrowserConfig `mapstructure:"browser"`
	Storage    StorageConfig `mapstructure:"storage"`
	Log        LogConfig     `mapstructure:"log"`
	State      StateConfig   `mapstructure:"state"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
}

// RunConfig shapes one batch.
type RunConfig struct {
	Limit            int           `mapstructure:"limit"`
	TrendingCount    int           `mapstructure:"trending_count"`
	SynthesizedCount int           `mapstructure:"synthesized_count"`
	TrendingOnly     bool          `mapstructure:"trending_only"`
	PacingMin        time.Duration `mapstructure:"pacing_min"`
	PacingMax        time.Duration `mapstructure:"pacing_max"`
	Cadence          time.Duration `mapstructure:"cadence"`
}

// TrendsConfig configures the trending-searches client.
type TrendsConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Geo               string        `mapstructure:"geo"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Fingerprint       string        `mapstructure:"fingerprint"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RetryMultiplier   float64       `mapstructure:"retry_multiplier"`
}

// BrowserConfig configures the browser session.
type BrowserConfig struct {
	ExecPath        string        `mapstructure:"exec_path"`
	Headless        bool          `mapstructure:"headless"`
	Profile         string        `mapstructure:"profile"`
	Engine          string        `mapstructure:"engine"`
	UserAgent       string        `mapstructure:"user_agent"`
	ProxyFile       string        `mapstructure:"proxy_file"`
	LocatorTimeout  time.Duration `mapstructure:"locator_timeout"`
	ResultsTimeout  time.Duration `mapstructure:"results_timeout"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout"`
}

// StorageConfig selects the search history backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig configures process logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	HistoryFile string `mapstructure:"history_file"`
	ErrorFile   string `mapstructure:"error_file"`
}

// StateConfig locates files persisted between runs.
type StateConfig struct {
	LastRunFile string `mapstructure:"last_run_file"`
	ProfileFile string `mapstructure:"profile_file"`
}

// MetricsConfig configures the optional Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("serpapi_key", "")

	v.SetDefault("run.limit", 100)
	v.SetDefault("run.trending_count", 10)
	v.SetDefault("run.synthesized_count", 90)
	v.SetDefault("run.trending_only", false)
	v.SetDefault("run.pacing_min", 2*time.Second)
	v.SetDefault("run.pacing_max", 5*time.Second)
	v.SetDefault("run.cadence", 13*time.Hour)

	v.SetDefault("trends.endpoint", "https://serpapi.com/search.json")
	v.SetDefault("trends.geo", "US")
	v.SetDefault("trends.timeout", 30*time.Second)
	v.SetDefault("trends.fingerprint", "edge")
	v.SetDefault("trends.requests_per_second", 1.0)
	v.SetDefault("trends.retry_attempts", 3)
	v.SetDefault("trends.retry_delay", time.Second)
	v.SetDefault("trends.retry_multiplier", 2.0)

	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.profile", "")
	v.SetDefault("browser.engine", "bing")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.proxy_file", "")
	v.SetDefault("browser.locator_timeout", 5*time.Second)
	v.SetDefault("browser.results_timeout", 10*time.Second)
	v.SetDefault("browser.page_load_timeout", 30*time.Second)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.dsn", "logs/search_history.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.history_file", "logs/search_history.log")
	v.SetDefault("log.error_file", "logs/errors.log")

	v.SetDefault("state.last_run_file", "last_run.txt")
	v.SetDefault("state.profile_file", "selected_edge_profile.json")

	v.SetDefault("metrics.port", 0)
}

// NewViper returns a viper instance with defaults and environment binding.
// Nested keys map to SEARCHCREDIT_SECTION_KEY; the API key also honours the
// bare SERPAPI_KEY variable.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("serpapi_key", EnvPrefix+"_SERPAPI_KEY", "SERPAPI_KEY")
	return v
}

// Options tells Load where to look.
type Options struct {
	// ConfigFile is an explicit config path. When empty searchcredit.yaml is
	// searched for in the working directory.
	ConfigFile string
	// EnvFile is a dotenv file. When empty .env is used if present.
	EnvFile string
	// Flags are bound over every other source.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys.
	FlagKeys map[string]string
}

// Load reads every source into a validated Config.
func Load(v *viper.Viper, opts Options) (*Config, error) {
	if err := loadEnvFile(v, opts.EnvFile); err != nil {
		return nil, err
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("searchcredit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if opts.Flags != nil {
		for name, key := range opts.FlagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.SerpAPIKey = strings.TrimSpace(cfg.SerpAPIKey)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// loadEnvFile applies dotenv values as defaults so that the config file, the
// real environment and flags all override them. Keys are matched against
// the SEARCHCREDIT_ names and the bare SERPAPI_KEY.
func loadEnvFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config: env file: %w", err)
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read env file: %w", err)
	}

	known := make(map[string]string)
	for _, key := range v.AllKeys() {
		known[strings.ToLower(EnvPrefix+"_"+strings.ReplaceAll(key, ".", "_"))] = key
	}
	known["serpapi_key"] = "serpapi_key"

	for name, val := range ev.AllSettings() {
		if key, ok := known[strings.ToLower(name)]; ok {
			v.SetDefault(key, val)
		}
	}
	return nil
}

// Validate checks ranges that would make a run meaningless.
func (c *Config) Validate() error {
	var errs []error
	if c.Run.Limit < 1 || c.Run.Limit > 100 {
		errs = append(errs, fmt.Errorf("run.limit must be between 1 and 100, got %d", c.Run.Limit))
	}
	if c.Run.TrendingCount < 0 {
		errs = append(errs, fmt.Errorf("run.trending_count must be non-negative"))
	}
	if c.Run.SynthesizedCount < 0 {
		errs = append(errs, fmt.Errorf("run.synthesized_count must be non-negative"))
	}
	if c.Run.PacingMin < 0 || c.Run.PacingMax < 0 {
		errs = append(errs, fmt.Errorf("run pacing must be non-negative"))
	}
	if c.Run.PacingMin > c.Run.PacingMax {
		errs = append(errs, fmt.Errorf("run.pacing_min (%s) exceeds run.pacing_max (%s)", c.Run.PacingMin, c.Run.PacingMax))
	}
	if c.Trends.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("trends.retry_attempts must be at least 1"))
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port must be between 0 and 65535"))
	}
	return errors.Join(errs...)
}
