package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: point HOME at an empty temp dir so no user config is found
func isolateHome(t *testing.T) string {
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

// Test helper: write a YAML config file and return its path
func writeTestConfig(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "trendstoday.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// TestLoad_Defaults verifies defaults when nothing is configured
func TestLoad_Defaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://trendstoday.ca", cfg.Site.URL)
	assert.Equal(t, "Trends Today", cfg.Site.Name)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "content", cfg.Content.Dir)
	assert.Equal(t, 12, cfg.Content.PageSize)
	assert.Equal(t, 8, cfg.Content.Workers)
	assert.False(t, cfg.Content.Watch)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "reports", cfg.Data.ReportsDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Scanner.PerFeed)
	assert.Equal(t, 100, cfg.Scanner.Keep)
	assert.Len(t, cfg.Scanner.Feeds, len(DefaultFeeds))
}

// TestLoad_File verifies values from a YAML file override defaults
func TestLoad_File(t *testing.T) {
	isolateHome(t)
	path := writeTestConfig(t, `site:
  url: https://example.com/
server:
  addr: ":9000"
  shutdown_timeout: 3s
content:
  dir: /srv/content
  page_size: 6
  watch: true
log:
  level: debug
  format: json
scanner:
  feeds:
    example: https://example.com/feed
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.SiteURL())
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/srv/content", cfg.Content.Dir)
	assert.Equal(t, 6, cfg.Content.PageSize)
	assert.True(t, cfg.Content.Watch)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, map[string]string{"example": "https://example.com/feed"}, cfg.Scanner.Feeds)
}

// TestLoad_Environment verifies prefixed and bare environment overrides
func TestLoad_Environment(t *testing.T) {
	isolateHome(t)
	t.Setenv("TRENDS_SERVER_ADDR", ":7000")
	t.Setenv("TRENDS_CONTENT_PAGE_SIZE", "20")
	t.Setenv("FIRECRAWL_API_KEY", "fc-test")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 20, cfg.Content.PageSize)
	assert.Equal(t, "fc-test", cfg.Research.FirecrawlAPIKey)
	assert.Equal(t, "pplx-test", cfg.Research.PerplexityAPIKey)
}

// TestLoad_MissingExplicitFile verifies a named file must exist
func TestLoad_MissingExplicitFile(t *testing.T) {
	isolateHome(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestLoad_InvalidYAML verifies parse errors are reported
func TestLoad_InvalidYAML(t *testing.T) {
	isolateHome(t)
	path := writeTestConfig(t, "content: [broken\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestValidate verifies invalid settings are rejected together
func TestValidate(t *testing.T) {
	isolateHome(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Content.PageSize = 0
	cfg.Content.Workers = -1
	cfg.Log.Format = "xml"
	cfg.Log.Level = "chatty"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content.page_size")
	assert.Contains(t, err.Error(), "content.workers")
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "log.level")
}
