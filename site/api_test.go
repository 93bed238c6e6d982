package site

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/trendstoday/content"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// Test helper: write a post into dir/category/slug.mdx
func writeTestPost(t *testing.T, dir, category, slug, header string) {
	path := filepath.Join(dir, category, slug+".mdx")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data := "---\n" + header + "\n---\n\nSome body text for " + slug + ".\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

// Test helper: create a server over n technology posts published one hour
// apart, newest first by index
func setupTestServer(t *testing.T, n int) (*gin.Engine, string) {
	dir := t.TempDir()
	for i := range n {
		published := testNow.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339)
		writeTestPost(t, dir, "technology", fmt.Sprintf("post-%02d", i),
			fmt.Sprintf("title: Post %02d\npublishedAt: %s\ntags: [gadgets]", i, published))
	}

	loader := content.NewLoader(dir, content.WithClock(func() time.Time { return testNow }))
	server := NewAPIServer(loader, Options{
		SiteURL:  "https://trendstoday.test/",
		PageSize: 12,
		Now:      func() time.Time { return testNow },
	})
	return server.SetupRouter(), dir
}

func doGet(t *testing.T, router *gin.Engine, url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) ListPostsResponse {
	var resp ListPostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

// TestHandleListPosts_Pages verifies the 25 post listing across pages
func TestHandleListPosts_Pages(t *testing.T) {
	router, _ := setupTestServer(t, 25)

	w := doGet(t, router, "/api/posts")
	require.Equal(t, http.StatusOK, w.Code)
	page1 := decodeList(t, w)
	require.Len(t, page1.Posts, 12)
	assert.Equal(t, "post-00", page1.Posts[0].Slug)
	assert.Equal(t, "post-11", page1.Posts[11].Slug)
	assert.Equal(t, 1, page1.Pagination.CurrentPage)
	assert.Equal(t, 3, page1.Pagination.TotalPages)
	assert.Equal(t, 25, page1.Pagination.TotalItems)
	assert.True(t, page1.Pagination.HasNext)
	assert.False(t, page1.Pagination.HasPrev)
	assert.Equal(t, "/page/2", page1.Links.Next)
	assert.Equal(t, []int{1, 2, 3}, page1.Pages)

	w = doGet(t, router, "/api/posts?page=3")
	require.Equal(t, http.StatusOK, w.Code)
	page3 := decodeList(t, w)
	require.Len(t, page3.Posts, 1)
	assert.Equal(t, "post-24", page3.Posts[0].Slug)
	assert.False(t, page3.Pagination.HasNext)
	assert.True(t, page3.Pagination.HasPrev)
	assert.Equal(t, "/page/2", page3.Links.Prev)
}

// TestHandleListPosts_OutOfRange verifies invalid pages are not found
func TestHandleListPosts_OutOfRange(t *testing.T) {
	router, _ := setupTestServer(t, 25)

	for _, page := range []string{"4", "0", "-1"} {
		w := doGet(t, router, "/api/posts?page="+page)
		assert.Equal(t, http.StatusNotFound, w.Code, "page %s", page)
		assert.Equal(t, "not_found", errorCode(t, w))
	}

	w := doGet(t, router, "/api/posts?page=two")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_parameter", errorCode(t, w))
}

// TestHandleListPosts_EmptyDirectory verifies an empty site has one empty
// page and the directory is created
func TestHandleListPosts_EmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "content")
	server := NewAPIServer(content.NewLoader(dir), Options{})
	router := server.SetupRouter()

	w := doGet(t, router, "/api/posts")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeList(t, w)
	assert.Empty(t, resp.Posts)
	assert.Equal(t, 1, resp.Pagination.TotalPages)

	_, err := os.Stat(dir)
	assert.NoError(t, err)

	w = doGet(t, router, "/api/posts?page=2")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleGetPost verifies single post responses
func TestHandleGetPost(t *testing.T) {
	router, dir := setupTestServer(t, 3)
	writeTestPost(t, dir, "science", "black-holes",
		"title: Black Holes\npublishedAt: 2025-03-01\ntags: [space]")

	w := doGet(t, router, "/api/posts/post-01")
	require.Equal(t, http.StatusOK, w.Code)

	var resp PostResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Post 01", resp.Post.Title)
	assert.Contains(t, string(resp.HTML), "Some body text for post-01.")
	assert.Equal(t, []string{"post-00", "post-02"}, []string{resp.Related[0].Slug, resp.Related[1].Slug})

	w = doGet(t, router, "/api/posts/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
}

// TestHandleCategory verifies category listings and not-found handling
func TestHandleCategory(t *testing.T) {
	router, dir := setupTestServer(t, 2)
	writeTestPost(t, dir, "", "ai-one", "title: One\ncategory: AI\npublishedAt: 2025-03-02")
	writeTestPost(t, dir, "", "ai-two", "title: Two\ncategory: ai\npublishedAt: 2025-03-01")

	w := doGet(t, router, "/api/categories/Technology")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeList(t, w)
	assert.Len(t, resp.Posts, 2)
	assert.Equal(t, "Technology", resp.Title)
	assert.Equal(t, "/technology", resp.Links.Canonical)

	w = doGet(t, router, "/api/categories/ai")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w).Posts, 2)

	w = doGet(t, router, "/api/categories/health")
	require.Equal(t, http.StatusOK, w.Code, "known category may be empty")
	assert.Empty(t, decodeList(t, w).Posts)

	w = doGet(t, router, "/api/categories/knitting")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doGet(t, router, "/api/categories/technology?page=2")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleListCategories verifies counts per category
func TestHandleListCategories(t *testing.T) {
	router, _ := setupTestServer(t, 4)

	w := doGet(t, router, "/api/categories")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Categories []CategorySummary `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, len(content.Categories))
	for _, c := range resp.Categories {
		if c.Key == "technology" {
			assert.Equal(t, 4, c.Count)
			assert.Equal(t, "Technology", c.Title)
		} else {
			assert.Zero(t, c.Count, c.Key)
		}
	}
}

// TestHandleTag verifies case-insensitive tag listings
func TestHandleTag(t *testing.T) {
	router, _ := setupTestServer(t, 3)

	w := doGet(t, router, "/api/tags/GADGETS")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w).Posts, 3)

	w = doGet(t, router, "/api/tags/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleAuthor verifies author listings by slug or name
func TestHandleAuthor(t *testing.T) {
	router, dir := setupTestServer(t, 2)
	writeTestPost(t, dir, "health", "sleep", "title: Sleep\nauthor: Sam Lee\npublishedAt: 2025-03-01")

	w := doGet(t, router, "/api/authors/sam-lee")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeList(t, w)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "Sam Lee", resp.Title)

	w = doGet(t, router, "/api/authors/trends%20today")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w).Posts, 2)

	w = doGet(t, router, "/api/authors/nobody")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleSearch verifies search results and parameter validation
func TestHandleSearch(t *testing.T) {
	router, _ := setupTestServer(t, 15)

	w := doGet(t, router, "/api/search?q=post")
	require.Equal(t, http.StatusOK, w.Code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.Total)
	assert.Equal(t, "post", resp.Query)

	w = doGet(t, router, "/api/search?q=p")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Total)
	assert.NotNil(t, resp.Results)

	w = doGet(t, router, "/api/search?q=post&limit=3")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)

	w = doGet(t, router, "/api/search?q=post&limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleHome verifies the landing page payload
func TestHandleHome(t *testing.T) {
	router, _ := setupTestServer(t, 5)

	w := doGet(t, router, "/api/home")
	require.Equal(t, http.StatusOK, w.Code)

	var home content.Homepage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &home))
	require.NotNil(t, home.Hero)
	assert.Equal(t, "post-00", home.Hero.Slug)
	assert.Len(t, home.FeaturedNews, 4)
}

// TestCORS verifies preflight requests short-circuit
func TestCORS(t *testing.T) {
	router, _ := setupTestServer(t, 1)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// TestMetricsEndpoint verifies request metrics are exported
func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestServer(t, 2)
	doGet(t, router, "/api/posts")
	doGet(t, router, "/does-not-exist")

	w := doGet(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `trendstoday_http_requests_total{method="GET",route="/api/posts",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched"`)
	assert.Contains(t, body, "trendstoday_content_posts 2")
}

// TestNoRoute verifies unknown paths use the error envelope
func TestNoRoute(t *testing.T) {
	router, _ := setupTestServer(t, 1)
	w := doGet(t, router, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/json"))
}

// TestRouteRegistrar verifies extra route groups are mounted
func TestRouteRegistrar(t *testing.T) {
	server := NewAPIServer(content.NewLoader(t.TempDir()), Options{})
	router := server.SetupRouter(registrarFunc(func(r gin.IRouter) {
		r.GET("/api/extra", func(c *gin.Context) { c.String(http.StatusOK, "extra") })
	}))

	w := doGet(t, router, "/api/extra")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "extra", w.Body.String())
}

type registrarFunc func(gin.IRouter)

func (f registrarFunc) RegisterRoutes(r gin.IRouter) { f(r) }
