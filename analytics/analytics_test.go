package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
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

type staticSource struct {
	result *content.ListResult
	err    error
}

func (s staticSource) Posts(context.Context) (*content.ListResult, error) {
	return s.result, s.err
}

func testPosts(n int) []content.Post {
	categories := []string{"technology", "science", "technology"}
	posts := make([]content.Post, n)
	for i := range posts {
		posts[i] = content.Post{
			Slug:        fmt.Sprintf("post-%02d", i),
			Title:       fmt.Sprintf("Post %d", i),
			Category:    categories[i%len(categories)],
			PublishedAt: testNow.Add(-time.Duration(i) * time.Hour),
		}
	}
	return posts
}

func writeTestFile(t *testing.T, dir, name, body string) {
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

// Test helper: a builder over n posts with empty data and reports dirs
func setupTestBuilder(t *testing.T, n int) (*Builder, string, string) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	reportsDir := filepath.Join(root, "reports")
	source := staticSource{result: &content.ListResult{
		Posts:  testPosts(n),
		Errors: []content.ReadError{{Filename: "bad.mdx", Err: errors.New("boom")}},
	}}
	return NewBuilder(source, dataDir, reportsDir, func() time.Time { return testNow }, nil), dataDir, reportsDir
}

// TestProjections verifies the growth model and its caps
func TestProjections(t *testing.T) {
	p := Projections(testNow, ProjectionMonths)
	require.Len(t, p, 12)

	assert.Equal(t, Projection{Month: "2025-03", OrganicVisitors: 1000, ArticlesPublished: 90, KeywordRankings: 50, AvgPosition: 15}, p[0])
	assert.Equal(t, 1400, p[1].OrganicVisitors)
	assert.Equal(t, 3842, p[4].OrganicVisitors)
	assert.Equal(t, 28925, p[10].OrganicVisitors)
	assert.Equal(t, 35000, p[11].OrganicVisitors, "visitors are capped")
	assert.Equal(t, 200, p[11].ArticlesPublished)
	assert.Equal(t, 215, p[11].KeywordRankings)
	assert.Equal(t, 4, p[11].AvgPosition)
	assert.Equal(t, "2026-02", p[11].Month)

	long := Projections(testNow, 40)
	assert.Equal(t, 500, long[39].KeywordRankings)
	assert.Equal(t, 3, long[39].AvgPosition)
}

// TestProjections_MonthEnd verifies months never skip from the 31st
func TestProjections_MonthEnd(t *testing.T) {
	p := Projections(time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, []string{p[0].Month, p[1].Month, p[2].Month})
}

// TestContentStatsFor verifies category totals and the recent list
func TestContentStatsFor(t *testing.T) {
	stats := ContentStatsFor(&content.ListResult{Posts: testPosts(12)})
	assert.Equal(t, 12, stats.TotalArticles)
	assert.Equal(t, map[string]int{"technology": 8, "science": 4}, stats.ArticlesByCategory)
	require.Len(t, stats.RecentArticles, RecentArticles)
	assert.Equal(t, "post-00", stats.RecentArticles[0].Slug)

	empty := ContentStatsFor(&content.ListResult{})
	assert.NotNil(t, empty.RecentArticles)
	assert.Zero(t, empty.TotalArticles)
}

// TestBuild_MissingFiles verifies absent automation files count as zero
func TestBuild_MissingFiles(t *testing.T) {
	b, _, _ := setupTestBuilder(t, 3)

	d, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, d.Content.TotalArticles)
	assert.Equal(t, 1, d.Content.SkippedFiles)
	assert.Equal(t, AutomationStats{LastRun: testNow, GenerationSuccess: 85}, d.Automation)
	assert.Zero(t, d.Quality.AverageScore)
	assert.Nil(t, d.Quality.LastReport)
	assert.NotNil(t, d.Quality.TopIssues)
	assert.True(t, d.GeneratedAt.Equal(testNow))
	assert.Len(t, d.Growth, ProjectionMonths)
}

// TestBuild_WithFiles verifies automation and quality files are read
func TestBuild_WithFiles(t *testing.T) {
	b, dataDir, reportsDir := setupTestBuilder(t, 3)

	writeTestFile(t, dataDir, "news-opportunities.json", `[{"title":"a","link":"1"},{"title":"b","link":"2"}]`)
	writeTestFile(t, dataDir, SEOOpportunitiesFile, `{"totalOpportunities": 42}`)
	writeTestFile(t, dataDir, ProductTrackingFile, `{"stats": {"total": 7}}`)
	writeTestFile(t, reportsDir, QualityReportFile, `{
		"generatedAt": "2025-03-09T08:00:00Z",
		"summary": {"averageScore": 87.6, "totalFiles": 20, "validFiles": 18},
		"issues": {"critical": 1, "warning": 4, "good": 15},
		"recommendations": ["add alt text", "shorten titles", "cite sources", "add images"]
	}`)

	d, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Automation.NewsOpportunities)
	assert.Equal(t, 42, d.Automation.SEOOpportunities)
	assert.Equal(t, 7, d.Automation.TrackedProducts)

	q := d.Quality
	assert.Equal(t, 88, q.AverageScore)
	assert.Equal(t, 20, q.TotalFiles)
	assert.Equal(t, 18, q.ValidFiles)
	assert.Equal(t, 1, q.CriticalIssues)
	assert.Equal(t, 4, q.Warnings)
	assert.Equal(t, 15, q.GoodFiles)
	require.NotNil(t, q.LastReport)
	assert.True(t, q.LastReport.Equal(time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, []any{"add alt text", "shorten titles", "cite sources"}, q.TopIssues)
}

// TestBuild_MalformedFiles verifies bad JSON is ignored
func TestBuild_MalformedFiles(t *testing.T) {
	b, dataDir, reportsDir := setupTestBuilder(t, 1)
	writeTestFile(t, dataDir, "news-opportunities.json", `{`)
	writeTestFile(t, dataDir, SEOOpportunitiesFile, `[]`)
	writeTestFile(t, reportsDir, QualityReportFile, `nope`)

	d, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.Automation.NewsOpportunities)
	assert.Zero(t, d.Automation.SEOOpportunities)
	assert.Zero(t, d.Quality.TotalFiles)
}

// TestHandleDashboard verifies the success and failure envelopes
func TestHandleDashboard(t *testing.T) {
	b, _, _ := setupTestBuilder(t, 2)
	router := gin.New()
	NewAPIServer(b).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool      `json:"success"`
		Data    Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.Content.TotalArticles)
	assert.Equal(t, "2025-03", resp.Data.Growth[0].Month)

	failing := NewBuilder(staticSource{err: errors.New("disk on fire")}, t.TempDir(), t.TempDir(),
		func() time.Time { return testNow }, nil)
	router = gin.New()
	NewAPIServer(failing).RegisterRoutes(router)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"failed to load posts: disk on fire","timestamp":"2025-03-10T12:00:00Z"}`, w.Body.String())
}
