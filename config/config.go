// Package config loads site settings from defaults, an optional YAML file,
// a .env file and TRENDS_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pevans/trendstoday/logger"
)

// EnvPrefix is prepended to every environment override, e.g.
// TRENDS_SERVER_ADDR for server.addr.
const EnvPrefix = "TRENDS"

// Config holds every setting the site reads at startup.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	Server   ServerConfig   `mapstructure:"server"`
	Content  ContentConfig  `mapstructure:"content"`
	Data     DataConfig     `mapstructure:"data"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Research ResearchConfig `mapstructure:"research"`
}

type SiteConfig struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ContentConfig struct {
	Dir      string `mapstructure:"dir"`
	PageSize int    `mapstructure:"page_size"`
	Watch    bool   `mapstructure:"watch"`
	Workers  int    `mapstructure:"workers"`
}

type DataConfig struct {
	Dir        string `mapstructure:"dir"`
	ReportsDir string `mapstructure:"reports_dir"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ScannerConfig struct {
	Feeds   map[string]string `mapstructure:"feeds"`
	PerFeed int               `mapstructure:"per_feed"`
	Keep    int               `mapstructure:"keep"`
}

// ResearchConfig carries the third-party API keys. The bare
// FIRECRAWL_API_KEY and PERPLEXITY_API_KEY variables are honoured too.
type ResearchConfig struct {
	FirecrawlAPIKey  string `mapstructure:"firecrawl_api_key"`
	PerplexityAPIKey string `mapstructure:"perplexity_api_key"`
}

// DefaultFeeds are the technology news feeds the scanner polls.
var DefaultFeeds = map[string]string{
	"techcrunch":  "https://techcrunch.com/feed/",
	"verge":       "https://www.theverge.com/rss/index.xml",
	"arstechnica": "https://feeds.arstechnica.com/arstechnica/index",
	"engadget":    "https://www.engadget.com/rss.xml",
	"wired":       "https://www.wired.com/feed/rss",
	"gizmodo":     "https://gizmodo.com/rss",
}

// setDefaults registers every key so environment overrides are found by
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("site.url", "https://trendstoday.ca")
	v.SetDefault("site.name", "Trends Today")
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("content.dir", "content")
	v.SetDefault("content.page_size", 12)
	v.SetDefault("content.watch", false)
	v.SetDefault("content.workers", 8)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.reports_dir", "reports")
	v.SetDefault("database.dsn", ".trendstoday/site.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("scanner.per_feed", 5)
	v.SetDefault("scanner.keep", 100)
	v.SetDefault("research.firecrawl_api_key", "")
	v.SetDefault("research.perplexity_api_key", "")
}

// Load reads configuration. path names a YAML file; when empty the usual
// locations are searched (see FindConfigFile) and a missing file is not an
// error. Variables from a .env file in the working directory are loaded first
// without overriding the real environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("research.firecrawl_api_key", EnvPrefix+"_RESEARCH_FIRECRAWL_API_KEY", "FIRECRAWL_API_KEY")
	_ = v.BindEnv("research.perplexity_api_key", EnvPrefix+"_RESEARCH_PERPLEXITY_API_KEY", "PERPLEXITY_API_KEY")

	file, err := FindConfigFile(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// Feed maps would merge key by key with a default, so the default is
	// applied only when nothing was configured.
	if len(cfg.Scanner.Feeds) == 0 {
		cfg.Scanner.Feeds = maps.Clone(DefaultFeeds)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later at request time.
func (c *Config) Validate() error {
	var errs []error
	if c.Content.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("content.page_size must be greater than zero, got %d", c.Content.PageSize))
	}
	if c.Content.Workers <= 0 {
		errs = append(errs, fmt.Errorf("content.workers must be greater than zero, got %d", c.Content.Workers))
	}
	if c.Content.Dir == "" {
		errs = append(errs, errors.New("content.dir must be set"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	if !logger.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// SiteURL returns the site URL without a trailing slash.
func (c *Config) SiteURL() string {
	return strings.TrimSuffix(c.Site.URL, "/")
}
