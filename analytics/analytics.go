// Package analytics assembles the dashboard summary: content totals,
// automation output, the latest quality report and growth projections.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/trendstoday/content"
	"github.com/pevans/trendstoday/logger"
	"github.com/pevans/trendstoday/scanner"
)

// Files read from the data and reports directories.
const (
	SEOOpportunitiesFile = "seo-opportunities.json"
	ProductTrackingFile  = "product-tracking.json"
	QualityReportFile    = "quality-report.json"
)

// Dashboard tuning.
const (
	RecentArticles    = 10
	ProjectionMonths  = 12
	GenerationSuccess = 85
	TopIssues         = 3
)

// RecentArticle is one entry in ContentStats.RecentArticles.
type RecentArticle struct {
	Title       string    `json:"title"`
	Category    string    `json:"type"`
	PublishedAt time.Time `json:"publishedAt"`
	Slug        string    `json:"slug"`
}

// ContentStats counts the loaded posts.
type ContentStats struct {
	TotalArticles      int             `json:"totalArticles"`
	ArticlesByCategory map[string]int  `json:"articlesByType"`
	RecentArticles     []RecentArticle `json:"recentArticles"`
	SkippedFiles       int             `json:"skippedFiles"`
}

// AutomationStats reports what the content automation has produced.
type AutomationStats struct {
	LastRun           time.Time `json:"lastRun"`
	NewsOpportunities int       `json:"newsOpportunities"`
	SEOOpportunities  int       `json:"seoOpportunities"`
	TrackedProducts   int       `json:"trackedProducts"`
	GenerationSuccess int       `json:"generationSuccess"`
}

// QualityMetrics summarises reports/quality-report.json.
type QualityMetrics struct {
	AverageScore   int        `json:"averageScore"`
	TotalFiles     int        `json:"totalFiles"`
	ValidFiles     int        `json:"validFiles"`
	CriticalIssues int        `json:"criticalIssues"`
	Warnings       int        `json:"warnings"`
	GoodFiles      int        `json:"goodFiles"`
	LastReport     *time.Time `json:"lastReport"`
	TopIssues      []any      `json:"topIssues"`
}

// Projection is one month of projected growth.
type Projection struct {
	Month             string `json:"month"`
	OrganicVisitors   int    `json:"organicVisitors"`
	ArticlesPublished int    `json:"articlesPublished"`
	KeywordRankings   int    `json:"keywordRankings"`
	AvgPosition       int    `json:"avgPosition"`
}

// Dashboard is the body of GET /api/analytics.
type Dashboard struct {
	Content     ContentStats    `json:"content"`
	Automation  AutomationStats `json:"automation"`
	Quality     QualityMetrics  `json:"quality"`
	Growth      []Projection    `json:"growth"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// Builder gathers dashboard data from the content source and the data and
// reports directories.
type Builder struct {
	source     content.Source
	dataDir    string
	reportsDir string
	now        func() time.Time
	logger     *slog.Logger
}

// NewBuilder creates a Builder. A nil clock means time.Now.
func NewBuilder(source content.Source, dataDir, reportsDir string, now func() time.Time, log *slog.Logger) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{
		source:     source,
		dataDir:    dataDir,
		reportsDir: reportsDir,
		now:        now,
		logger:     logger.Or(log),
	}
}

// Build assembles the dashboard. Only a failing content source is an
// error; missing or unreadable automation files count as zero.
func (b *Builder) Build(ctx context.Context) (*Dashboard, error) {
	result, err := b.source.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	now := b.now().UTC()
	return &Dashboard{
		Content:     ContentStatsFor(result),
		Automation:  b.automationStats(now),
		Quality:     b.qualityMetrics(),
		Growth:      Projections(now, ProjectionMonths),
		GeneratedAt: now,
	}, nil
}

// ContentStatsFor counts posts per category and lists the newest ones.
// Posts are expected newest first, as the loader returns them.
func ContentStatsFor(result *content.ListResult) ContentStats {
	stats := ContentStats{
		TotalArticles:      len(result.Posts),
		ArticlesByCategory: map[string]int{},
		RecentArticles:     []RecentArticle{},
		SkippedFiles:       len(result.Errors),
	}
	for _, p := range result.Posts {
		stats.ArticlesByCategory[p.Category]++
	}
	for _, p := range result.Posts[:min(RecentArticles, len(result.Posts))] {
		stats.RecentArticles = append(stats.RecentArticles, RecentArticle{
			Title:       p.Title,
			Category:    p.Category,
			PublishedAt: p.PublishedAt,
			Slug:        p.Slug,
		})
	}
	return stats
}

func (b *Builder) automationStats(now time.Time) AutomationStats {
	stats := AutomationStats{LastRun: now, GenerationSuccess: GenerationSuccess}

	news, err := scanner.Load(filepath.Join(b.dataDir, scanner.OpportunitiesFile))
	if err != nil {
		b.logger.Warn("ignoring news opportunities", "error", err)
	}
	stats.NewsOpportunities = len(news)

	var seo struct {
		TotalOpportunities int `json:"totalOpportunities"`
	}
	if b.readJSON(filepath.Join(b.dataDir, SEOOpportunitiesFile), &seo) {
		stats.SEOOpportunities = seo.TotalOpportunities
	}

	var tracking struct {
		Stats struct {
			Total int `json:"total"`
		} `json:"stats"`
	}
	if b.readJSON(filepath.Join(b.dataDir, ProductTrackingFile), &tracking) {
		stats.TrackedProducts = tracking.Stats.Total
	}

	return stats
}

func (b *Builder) qualityMetrics() QualityMetrics {
	var report struct {
		GeneratedAt *time.Time `json:"generatedAt"`
		Summary     struct {
			AverageScore float64 `json:"averageScore"`
			TotalFiles   int     `json:"totalFiles"`
			ValidFiles   int     `json:"validFiles"`
		} `json:"summary"`
		Issues struct {
			Critical int `json:"critical"`
			Warning  int `json:"warning"`
			Good     int `json:"good"`
		} `json:"issues"`
		Recommendations []any `json:"recommendations"`
	}

	metrics := QualityMetrics{TopIssues: []any{}}
	if !b.readJSON(filepath.Join(b.reportsDir, QualityReportFile), &report) {
		return metrics
	}

	metrics.AverageScore = int(math.Round(report.Summary.AverageScore))
	metrics.TotalFiles = report.Summary.TotalFiles
	metrics.ValidFiles = report.Summary.ValidFiles
	metrics.CriticalIssues = report.Issues.Critical
	metrics.Warnings = report.Issues.Warning
	metrics.GoodFiles = report.Issues.Good
	metrics.LastReport = report.GeneratedAt
	if len(report.Recommendations) > 0 {
		metrics.TopIssues = report.Recommendations[:min(TopIssues, len(report.Recommendations))]
	}
	return metrics
}

// readJSON decodes path into v and reports whether it did. A missing file is
// silent; a malformed one is logged.
func (b *Builder) readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		b.logger.Warn("ignoring analytics input", "path", path, "error", err)
		return false
	}
	return true
}

// Growth model constants.
const (
	baseVisitors = 1000
	growthRate   = 1.4
	maxVisitors  = 35000
	maxKeywords  = 500
	minPosition  = 3
)

// Projections models n months of growth starting with the month of now.
func Projections(now time.Time, n int) []Projection {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]Projection, 0, n)
	for i := range n {
		visitors := int(math.Round(baseVisitors * math.Pow(growthRate, float64(i))))
		out = append(out, Projection{
			Month:             first.AddDate(0, i, 0).Format("2006-01"),
			OrganicVisitors:   min(visitors, maxVisitors),
			ArticlesPublished: 90 + i*10,
			KeywordRankings:   min(50+i*15, maxKeywords),
			AvgPosition:       max(15-i, minPosition),
		})
	}
	return out
}
