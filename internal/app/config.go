package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chrisw65/market-profile/lib/configutil"
	"github.com/chrisw65/market-profile/lib/configutil/dbconfig"

	"github.com/joho/godotenv"
)

const (
	RendererStatic = "static"
	RendererChrome = "chrome"

	DefaultPort         = 8080
	DefaultRefreshCron  = "0 */6 * * *"
	DefaultPageCacheTTL = 15 * time.Minute
)

type OllamaConfig struct {
	BaseUrl string `json:"base_url"`
	Model   string `json:"model"`
}

type GeminiConfig struct {
	ApiKey string `json:"api_key"`
	Model  string `json:"model"`
}

type PageCacheConfig struct {
	// Dir is where badger keeps rendered pages, the cache is disabled when
	// it is empty.
	Dir string `json:"dir"`
	// TTL is a Go duration string, ex. "15m".
	TTL string `json:"ttl"`
}

type Config struct {
	Port        int             `json:"port"`
	AccessToken string          `json:"access_token"`
	RefreshCron string          `json:"refresh_cron"`
	Database    dbconfig.Struct `json:"database"`
	// Renderer is either "chrome" (headless browser, the default) or
	// "static" (plain http without javascript).
	Renderer          string          `json:"renderer"`
	ChromePath        string          `json:"chrome_path"`
	RequestsPerSecond float64         `json:"requests_per_second"`
	PageCache         PageCacheConfig `json:"page_cache"`
	Ollama            OllamaConfig    `json:"ollama"`
	Gemini            GeminiConfig    `json:"gemini"`
	// TranscriptDir receives full http transcripts of outgoing requests in
	// verbose mode.
	TranscriptDir string `json:"transcript_dir"`
}

func DefaultConfig() Config {
	return Config{
		Port:              DefaultPort,
		RefreshCron:       DefaultRefreshCron,
		Database:          dbconfig.Struct{File: "market-profile.db"},
		Renderer:          RendererChrome,
		RequestsPerSecond: 2,
	}
}

// LoadConfig loads .env into the environment, reads the json5 config at path
// (a missing file keeps the defaults) and applies environment overrides.
func LoadConfig(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	read, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err == nil {
		cfg = read.withDefaults(cfg)
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, cfg.validate()
}

func (c Config) withDefaults(defaults Config) Config {
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaults.RefreshCron
	}
	if c.Database == (dbconfig.Struct{}) {
		c.Database = defaults.Database
	}
	if c.Renderer == "" {
		c.Renderer = defaults.Renderer
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaults.RequestsPerSecond
	}
	return c
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		name   string
		target *string
	}{
		{name: "OLLAMA_BASE_URL", target: &c.Ollama.BaseUrl},
		{name: "OLLAMA_MODEL", target: &c.Ollama.Model},
		{name: "GEMINI_API_KEY", target: &c.Gemini.ApiKey},
		{name: "MARKET_PROFILE_TOKEN", target: &c.AccessToken},
		{name: "DATABASE_URL", target: &c.Database.Dsn},
	}
	for _, o := range overrides {
		value, ok := lookup(o.name)
		if ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}

func (c Config) validate() error {
	switch c.Renderer {
	case RendererStatic, RendererChrome:
	default:
		return fmt.Errorf("unknown renderer '%s'", c.Renderer)
	}
	_, err := c.pageCacheTTL()
	return err
}

func (c Config) pageCacheTTL() (time.Duration, error) {
	if c.PageCache.TTL == "" {
		return DefaultPageCacheTTL, nil
	}
	ttl, err := time.ParseDuration(c.PageCache.TTL)
	if err != nil {
		return 0, fmt.Errorf("page_cache.ttl: %w", err)
	}
	return ttl, nil
}
