package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/trendstoday/config"
	"github.com/pevans/trendstoday/newsletter"
	"github.com/pevans/trendstoday/scanner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Tech</title>
  <link>https://news.test</link>
  <description>Test feed</description>
  <item>
    <title>Breaking: Apple unveils new iPhone</title>
    <link>https://news.test/apple-iphone</link>
    <description>The new phone</description>
    <pubDate>Mon, 10 Mar 2025 09:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

type testEnv struct {
	root       string
	configPath string
	contentDir string
	dataDir    string
	dbPath     string
}

func writeFile(t *testing.T, path, data string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

// Test helper: a config file pointing at temp directories, with three posts
// and optionally a feed URL
func setupTestEnv(t *testing.T, feedURL string) testEnv {
	root := t.TempDir()
	env := testEnv{
		root:       root,
		configPath: filepath.Join(root, "trendstoday.yaml"),
		contentDir: filepath.Join(root, "content"),
		dataDir:    filepath.Join(root, "data"),
		dbPath:     filepath.Join(root, "db", "site.db"),
	}

	cfg := fmt.Sprintf("content:\n  dir: %q\n  page_size: 2\ndata:\n  dir: %q\n  reports_dir: %q\ndatabase:\n  dsn: %q\nlog:\n  level: error\n",
		env.contentDir, env.dataDir, filepath.Join(root, "reports"), env.dbPath)
	if feedURL != "" {
		cfg += fmt.Sprintf("scanner:\n  feeds:\n    test: %q\n", feedURL)
	}
	writeFile(t, env.configPath, cfg)

	writeFile(t, filepath.Join(env.contentDir, "technology", "foldables.mdx"),
		"---\ntitle: Foldables are back\npublishedAt: 2025-03-01\ntags: [phones]\ndescription: Hinges again.\n---\n\nThe fold returns.\n")
	writeFile(t, filepath.Join(env.contentDir, "technology", "chips.mdx"),
		"---\ntitle: New chips\npublishedAt: 2025-02-01\ntags: [silicon]\n---\n\nFaster.\n")
	writeFile(t, filepath.Join(env.contentDir, "science", "comets.mdx"),
		"---\ntitle: A bright comet\npublishedAt: 2025-01-15\n---\n\nLook up.\n")
	return env
}

// Test helper: run the CLI and return stdout
func runCLI(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestPostsList verifies filtering and pagination on the command line
func TestPostsList(t *testing.T) {
	env := setupTestEnv(t, "")

	out, err := runCLI(t, "--config", env.configPath, "posts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 1-2 of 3 posts (page 1 of 2)")
	assert.Contains(t, out, "Foldables are back")
	assert.NotContains(t, out, "A bright comet")

	out, err = runCLI(t, "--config", env.configPath, "posts", "list", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "A bright comet")

	out, err = runCLI(t, "--config", env.configPath, "posts", "list", "--category", "Technology", "--tag", "silicon", "--json")
	require.NoError(t, err)
	var res struct {
		Items []struct {
			Slug string `json:"slug"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, "chips", res.Items[0].Slug)

	_, err = runCLI(t, "--config", env.configPath, "posts", "list", "--page", "3")
	assert.ErrorContains(t, err, "page 3 not found")
}

// TestPostsShow verifies a single post is printed and unknown slugs fail
func TestPostsShow(t *testing.T) {
	env := setupTestEnv(t, "")

	out, err := runCLI(t, "--config", env.configPath, "posts", "show", "foldables")
	require.NoError(t, err)
	assert.Contains(t, out, "Foldables are back")
	assert.Contains(t, out, "Tags: phones")
	assert.Contains(t, out, "The fold returns.")

	_, err = runCLI(t, "--config", env.configPath, "posts", "show", "nope")
	assert.ErrorContains(t, err, "post not found: nope")
}

// TestSubscribersList verifies the active filter and JSON output
func TestSubscribersList(t *testing.T) {
	env := setupTestEnv(t, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(env.dbPath), 0o755))

	store, err := newsletter.NewSubscriberStore(env.dbPath)
	require.NoError(t, err)
	_, err = store.Subscribe("keep@example.com", "footer", false)
	require.NoError(t, err)
	_, err = store.Subscribe("gone@example.com", "", false)
	require.NoError(t, err)
	require.NoError(t, store.Unsubscribe("gone@example.com"))
	require.NoError(t, store.Close())

	out, err := runCLI(t, "--config", env.configPath, "subscribers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2 subscriber(s)")
	assert.Contains(t, out, "unsubscribed")

	out, err = runCLI(t, "--config", env.configPath, "subscribers", "list", "--active", "--json")
	require.NoError(t, err)
	var res struct {
		Subscribers []newsletter.Subscriber `json:"subscribers"`
		Total       int                     `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "keep@example.com", res.Subscribers[0].Email)
}

// TestScan verifies the scanner writes the opportunities file
func TestScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()
	env := setupTestEnv(t, srv.URL)

	out, err := runCLI(t, "--config", env.configPath, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "1 opportunities saved")
	assert.Contains(t, out, "Breaking: Apple unveils new iPhone")

	saved, err := scanner.Load(filepath.Join(env.dataDir, scanner.OpportunitiesFile))
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, srv.URL, saved[0].Source, "opportunities are attributed to the feed URL")
}

// TestMissingConfigFile verifies an explicit --config must exist
func TestMissingConfigFile(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "posts", "list")
	assert.ErrorContains(t, err, "failed to read config file")
}

// TestRouter verifies every API package is mounted on the site router
func TestRouter(t *testing.T) {
	env := setupTestEnv(t, "")
	cfg, err := config.Load(env.configPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &app{cfg: cfg, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	router, closeStores, err := a.router(ctx)
	require.NoError(t, err)
	defer closeStores()

	for _, path := range []string{
		"/api/posts",
		"/api/posts/foldables",
		"/api/newsletter/subscribe",
		"/api/deal-alerts?email=a@example.com",
		"/api/revenue-tracking",
		"/api/analytics",
		"/api/check-env",
		"/healthz",
		"/robots.txt",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
