package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrisw65/market-profile/internal/campaign"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/lib/configutil/dbconfig"

	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OLLAMA_BASE_URL":      " http://localhost:11434 ",
		"GEMINI_API_KEY":       "key",
		"MARKET_PROFILE_TOKEN": "token",
		"OLLAMA_MODEL":         "",
	}
	cfg := DefaultConfig()
	cfg.Ollama.Model = "mistral"
	cfg.applyEnv(func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	})

	require.Equal(t, "http://localhost:11434", cfg.Ollama.BaseUrl)
	require.Equal(t, "mistral", cfg.Ollama.Model)
	require.Equal(t, "key", cfg.Gemini.ApiKey)
	require.Equal(t, "token", cfg.AccessToken)
	require.Empty(t, cfg.Database.Dsn)
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{Port: 9000, Renderer: RendererStatic}.withDefaults(DefaultConfig())
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, RendererStatic, cfg.Renderer)
	require.Equal(t, DefaultRefreshCron, cfg.RefreshCron)
	require.Equal(t, dbconfig.Struct{File: "market-profile.db"}, cfg.Database)
	require.Equal(t, float64(2), cfg.RequestsPerSecond)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())

	cfg.Renderer = "firefox"
	require.Error(t, cfg.validate())

	cfg = DefaultConfig()
	cfg.PageCache.TTL = "soon"
	require.Error(t, cfg.validate())

	cfg.PageCache.TTL = "2h"
	ttl, err := cfg.pageCacheTTL()
	require.NoError(t, err)
	require.Equal(t, 2*time.Hour, ttl)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		port: 9191,
		database: { file: "data/state.db" },
	}`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Port)
	require.Equal(t, "data/state.db", cfg.Database.File)
	require.Equal(t, RendererChrome, cfg.Renderer)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json5"))
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)
}

func TestNewAndRefresh(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Database = dbconfig.Struct{File: filepath.Join(dir, "state.db")}
	cfg.PageCache = PageCacheConfig{Dir: filepath.Join(dir, "pages"), TTL: "1m"}

	a, err := New(context.Background(), cfg, &telemetry.Recorder{}, false)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Results)
	require.NotNil(t, a.Limiter)

	ideas, err := a.Generator.Generate(context.Background(), campaign.Input{Slug: "growth-lab", Hero: "Grow"})
	require.NoError(t, err)
	require.Contains(t, ideas, "growth-lab")

	count, err := a.Refresh(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestResolveRenderer(t *testing.T) {
	found := func(path string) func(string) (string, error) {
		return func(file string) (string, error) {
			if file == "chromium" {
				return path, nil
			}
			return "", errors.New("not found")
		}
	}
	missing := func(string) (string, error) {
		return "", errors.New("not found")
	}

	table := []struct {
		name     string
		cfg      Config
		lookPath func(string) (string, error)
		kind     string
		execPath string
	}{
		{
			name:     "chrome on path",
			cfg:      DefaultConfig(),
			lookPath: found("/usr/bin/chromium"),
			kind:     RendererChrome,
			execPath: "/usr/bin/chromium",
		},
		{
			name:     "explicit chrome path",
			cfg:      Config{Renderer: RendererChrome, ChromePath: "/opt/chrome"},
			lookPath: missing,
			kind:     RendererChrome,
			execPath: "/opt/chrome",
		},
		{
			name:     "no chrome binary",
			cfg:      DefaultConfig(),
			lookPath: missing,
			kind:     RendererStatic,
		},
		{
			name:     "static requested",
			cfg:      Config{Renderer: RendererStatic},
			lookPath: found("/usr/bin/chromium"),
			kind:     RendererStatic,
		},
	}

	for _, test := range table {
		kind, execPath := resolveRenderer(test.cfg, test.lookPath)
		require.Equal(t, test.kind, kind, test.name)
		require.Equal(t, test.execPath, execPath, test.name)
	}
}
