package config

import (
	"os"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. OFFICES_CRAWL_RENDERER.
const EnvPrefix = "OFFICES"

// Config holds the full application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Crawl       CrawlConfig       `yaml:"crawl" mapstructure:"crawl"`
	Chrome      ChromeConfig      `yaml:"chrome" mapstructure:"chrome"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	VoteAmerica VoteAmericaConfig `yaml:"voteamerica" mapstructure:"voteamerica"`
	Google      GoogleConfig      `yaml:"google" mapstructure:"google"`
	CivicAPI    CivicAPIConfig    `yaml:"civicapi" mapstructure:"civicapi"`
	APIs        APIsConfig        `yaml:"apis" mapstructure:"apis"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// InputConfig configures how source tables are fetched.
type InputConfig struct {
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// CrawlConfig configures the crawl driver and renderer.
type CrawlConfig struct {
	InputURLColumn      string `yaml:"input_url_column" mapstructure:"input_url_column"`
	Renderer            string `yaml:"renderer" mapstructure:"renderer"`
	NavigateTimeoutSecs int    `yaml:"navigate_timeout_secs" mapstructure:"navigate_timeout_secs"`
	SettleMS            int    `yaml:"settle_ms" mapstructure:"settle_ms"`
	ReadySelector       string `yaml:"ready_selector" mapstructure:"ready_selector"`
	ReadyTimeoutSecs    int    `yaml:"ready_timeout_secs" mapstructure:"ready_timeout_secs"`
	Concurrency         int    `yaml:"concurrency" mapstructure:"concurrency"`
	UserAgent           string `yaml:"user_agent" mapstructure:"user_agent"`
	SelectorsFile       string `yaml:"selectors_file" mapstructure:"selectors_file"`
}

// NavigateTimeout returns the per-page navigation bound.
func (c CrawlConfig) NavigateTimeout() time.Duration {
	return time.Duration(c.NavigateTimeoutSecs) * time.Second
}

// Settle returns the fixed post-navigation delay.
func (c CrawlConfig) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

// ReadyTimeout bounds the wait for ReadySelector.
func (c CrawlConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSecs) * time.Second
}

// ChromeConfig configures the headless Chromium renderer.
type ChromeConfig struct {
	ExecPath string `yaml:"exec_path" mapstructure:"exec_path"`
	Headless bool   `yaml:"headless" mapstructure:"headless"`
}

// StoreConfig configures the run diagnostics backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// VoteAmericaConfig holds VoteAmerica API settings.
type VoteAmericaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleConfig holds Google Civic Information API settings.
type GoogleConfig struct {
	CivicKey     string `yaml:"civic_key" mapstructure:"civic_key"`
	CivicBaseURL string `yaml:"civic_base_url" mapstructure:"civic_base_url"`
}

// CivicAPIConfig holds CivicAPI settings.
type CivicAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// APIsConfig configures the companion API pipeline.
type APIsConfig struct {
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	States           []string `yaml:"states" mapstructure:"states"`
	Concurrency      int      `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts      int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	CircuitThreshold int      `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int      `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// ServerConfig configures the diagnostics HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed credential names kept for existing deployments.
	for key, legacy := range map[string]string{
		"voteamerica.key":  "VOTEAMERICA_API_KEY",
		"google.civic_key": "GOOGLE_CIVIC_API_KEY",
		"civicapi.key":     "CIVIC_API_KEY",
	} {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.timeout_secs", 60)
	v.SetDefault("input.max_retries", 3)
	v.SetDefault("crawl.input_url_column", "Link")
	v.SetDefault("crawl.renderer", "static")
	v.SetDefault("crawl.navigate_timeout_secs", 60)
	v.SetDefault("crawl.settle_ms", 3000)
	v.SetDefault("crawl.ready_selector", "")
	v.SetDefault("crawl.ready_timeout_secs", 10)
	v.SetDefault("crawl.concurrency", 1)
	v.SetDefault("crawl.user_agent", "")
	v.SetDefault("crawl.selectors_file", "")
	v.SetDefault("chrome.exec_path", "")
	v.SetDefault("chrome.headless", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "office-scraper.db")
	v.SetDefault("voteamerica.base_url", "https://api.voteamerica.com")
	v.SetDefault("google.civic_base_url", "https://www.googleapis.com/civicinfo/v2")
	v.SetDefault("civicapi.base_url", "https://api.civicapi.org")
	v.SetDefault("apis.timeout_secs", 30)
	v.SetDefault("apis.states", []string{"AL", "AK"})
	v.SetDefault("apis.concurrency", 1)
	v.SetDefault("apis.max_attempts", 3)
	v.SetDefault("apis.circuit_threshold", 3)
	v.SetDefault("apis.circuit_reset_secs", 60)
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// loadEnvFiles loads .env.local then .env. Variables already set in the
// environment win, and missing files are ignored.
func loadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return eris.Wrapf(err, "config: load %s", name)
		}
	}
	return nil
}

var validRenderers = map[string]bool{"static": true, "chrome": true}

var validDrivers = map[string]bool{"sqlite": true, "postgres": true, "none": true}

// Validate checks the settings a command depends on and reports every
// problem at once.
func (c *Config) Validate(command string) error {
	var problems []string

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level is invalid: "+c.Log.Level)
	}
	if !validDrivers[c.Store.Driver] {
		problems = append(problems, "store.driver must be sqlite, postgres or none")
	}
	if c.Store.Driver != "none" && c.Store.Driver != "" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	switch command {
	case "crawl":
		if !validRenderers[c.Crawl.Renderer] {
			problems = append(problems, "crawl.renderer must be static or chrome")
		}
		if c.Crawl.InputURLColumn == "" {
			problems = append(problems, "crawl.input_url_column is required")
		}
		if c.Crawl.NavigateTimeoutSecs <= 0 {
			problems = append(problems, "crawl.navigate_timeout_secs must be positive")
		}
		if c.Crawl.SettleMS < 0 {
			problems = append(problems, "crawl.settle_ms must not be negative")
		}
		if c.Crawl.Concurrency < 1 {
			problems = append(problems, "crawl.concurrency must be at least 1")
		}
		if c.Crawl.ReadySelector != "" {
			if _, err := cascadia.ParseGroup(c.Crawl.ReadySelector); err != nil {
				problems = append(problems, "crawl.ready_selector is invalid: "+err.Error())
			}
		}
	case "apis":
		if len(c.APIs.States) == 0 {
			problems = append(problems, "apis.states is required")
		}
		for _, s := range c.APIs.States {
			if len(strings.TrimSpace(s)) != 2 {
				problems = append(problems, "apis.states entry is not a two-letter code: "+s)
			}
		}
		if c.APIs.TimeoutSecs <= 0 {
			problems = append(problems, "apis.timeout_secs must be positive")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Store.Driver == "none" {
			problems = append(problems, "serve needs a store; store.driver is none")
		}
	case "runs":
		if c.Store.Driver == "none" {
			problems = append(problems, "runs needs a store; store.driver is none")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", command, strings.Join(problems, "; "))
	}
	return nil
}

// HasAPIKeys reports whether at least one companion API is configured.
func (c *Config) HasAPIKeys() bool {
	return c.VoteAmerica.Key != "" || c.Google.CivicKey != "" || c.CivicAPI.Key != ""
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
