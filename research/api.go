package research

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pevans/trendstoday/logger"
)

// Default pages for the scrape endpoints.
const (
	DefaultAnalyzeURL   = "https://www.techradar.com/"
	DefaultScrapeURL    = "https://www.apple.com/iphone-15-pro/"
	DefaultResearchType = "review"
)

// Researcher answers product research questions.
type Researcher interface {
	Research(ctx context.Context, product, researchType string) (*Answer, error)
}

// Options configures an APIServer. Clients left nil are built from the keys.
type Options struct {
	FirecrawlAPIKey  string
	PerplexityAPIKey string
	Firecrawl        Scraper
	Perplexity       Researcher
	Direct           Scraper
	Now              func() time.Time
	Logger           *slog.Logger
}

// APIServer serves the research endpoints.
type APIServer struct {
	firecrawlKey  string
	perplexityKey string
	firecrawl     Scraper
	perplexity    Researcher
	direct        Scraper
	now           func() time.Time
	logger        *slog.Logger
}

// NewAPIServer creates a research API server.
func NewAPIServer(opts Options) *APIServer {
	s := &APIServer{
		firecrawlKey:  opts.FirecrawlAPIKey,
		perplexityKey: opts.PerplexityAPIKey,
		firecrawl:     opts.Firecrawl,
		perplexity:    opts.Perplexity,
		direct:        opts.Direct,
		now:           opts.Now,
		logger:        logger.Or(opts.Logger),
	}
	if s.firecrawl == nil {
		s.firecrawl = NewFirecrawlClient(opts.FirecrawlAPIKey)
	}
	if s.perplexity == nil {
		s.perplexity = NewPerplexityClient(opts.PerplexityAPIKey)
	}
	if s.direct == nil {
		s.direct = NewDirectScraper(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RegisterRoutes adds the research routes to r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/research", s.HandleResearch)
	r.GET("/api/analyze", s.HandleAnalyze)
	r.GET("/api/scrape", s.HandleScrape)
	r.GET("/api/check-env", s.HandleCheckEnv)
}

// keyConfigured rejects empty keys and the placeholder from the sample env file.
func keyConfigured(key string) bool {
	return key != "" && !strings.Contains(key, "your-api-key")
}

// scraper prefers Firecrawl and falls back to fetching the page directly.
func (s *APIServer) scraper() Scraper {
	if keyConfigured(s.firecrawlKey) {
		return s.firecrawl
	}
	return s.direct
}

func (s *APIServer) fail(c *gin.Context, err error) {
	s.logger.Error("research request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success":   false,
		"error":     err.Error(),
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// targetURL reads ?url=, falling back to def. Only absolute http(s) URLs pass.
func targetURL(c *gin.Context, def string) (string, bool) {
	raw := c.DefaultQuery("url", def)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return raw, true
}

// ResearchRequest is the body of POST /api/research.
type ResearchRequest struct {
	ProductName  string `json:"productName"`
	Category     string `json:"category"`
	ResearchType string `json:"researchType"`
}

// ResearchSources reports which upstreams contributed.
type ResearchSources struct {
	Perplexity      bool    `json:"perplexity"`
	Firecrawl       bool    `json:"firecrawl"`
	ManufacturerURL *string `json:"manufacturerUrl"`
}

// ResearchResponse is the body of a successful POST /api/research.
type ResearchResponse struct {
	Success      bool            `json:"success"`
	ProductName  string          `json:"productName"`
	Category     string          `json:"category,omitempty"`
	ResearchType string          `json:"researchType"`
	Research     Findings        `json:"research"`
	Sources      ResearchSources `json:"sources"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// HandleResearch handles POST /api/research. Upstream failures degrade the
// result rather than failing the request.
func (s *APIServer) HandleResearch(c *gin.Context) {
	firecrawlOK, perplexityOK := keyConfigured(s.firecrawlKey), keyConfigured(s.perplexityKey)
	if !firecrawlOK || !perplexityOK {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   "API keys not configured",
			"missing": gin.H{"firecrawl": !firecrawlOK, "perplexity": !perplexityOK},
		})
		return
	}

	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.ProductName = strings.TrimSpace(req.ProductName)
	if req.ProductName == "" {
		badRequest(c, "Product name is required")
		return
	}
	if req.ResearchType == "" {
		req.ResearchType = DefaultResearchType
	}

	ctx := c.Request.Context()
	log := s.logger.With("product", req.ProductName)

	answer, err := s.perplexity.Research(ctx, req.ProductName, req.ResearchType)
	if err != nil {
		log.Warn("perplexity research failed, continuing without it", "error", err)
	}

	var manufacturer *ManufacturerPage
	resp := ResearchResponse{
		Success:      true,
		ProductName:  req.ProductName,
		Category:     req.Category,
		ResearchType: req.ResearchType,
	}
	if mURL := ManufacturerURL(req.ProductName); mURL != "" {
		resp.Sources.ManufacturerURL = &mURL
		page, err := s.firecrawl.Scrape(ctx, mURL)
		if err != nil {
			log.Warn("manufacturer scrape failed", "url", mURL, "error", err)
		} else {
			manufacturer = &ManufacturerPage{
				URL:      mURL,
				Content:  truncate(page.Markdown, ManufacturerLen),
				Metadata: page.Metadata,
			}
		}
	}

	resp.Research = CombineResearch(answer, manufacturer, req.ProductName)
	resp.Sources.Perplexity = answer != nil
	resp.Sources.Firecrawl = manufacturer != nil
	resp.GeneratedAt = s.now().UTC()
	c.JSON(http.StatusOK, resp)
}

// AnalyzeResponse is the body of GET /api/analyze.
type AnalyzeResponse struct {
	Success         bool            `json:"success"`
	URL             string          `json:"url"`
	Title           string          `json:"title"`
	ContentLength   int             `json:"contentLength"`
	Analysis        ContentAnalysis `json:"analysis"`
	SampleArticles  []Article       `json:"sampleArticles"`
	Navigation      []string        `json:"navigation"`
	UIInsights      Insights        `json:"uiInsights"`
	Recommendations []string        `json:"recommendations"`
	ScrapedAt       time.Time       `json:"scrapedAt"`
}

// HandleAnalyze handles GET /api/analyze?url=.
func (s *APIServer) HandleAnalyze(c *gin.Context) {
	target, ok := targetURL(c, DefaultAnalyzeURL)
	if !ok {
		badRequest(c, "A valid http(s) url is required")
		return
	}

	page, err := s.scraper().Scrape(c.Request.Context(), target)
	if err != nil {
		s.fail(c, err)
		return
	}

	analysis := AnalyzeContent(page.Markdown)
	insights := UIInsights(page.Markdown)
	articles := ExtractArticles(page.Markdown)
	nav := ExtractNavigation(page.Markdown)

	c.JSON(http.StatusOK, AnalyzeResponse{
		Success:         true,
		URL:             target,
		Title:           titleOr(page, target),
		ContentLength:   len(page.Markdown),
		Analysis:        analysis,
		SampleArticles:  articles[:min(SampleArticles, len(articles))],
		Navigation:      nav[:min(NavigationItems, len(nav))],
		UIInsights:      insights,
		Recommendations: Recommendations(analysis, insights),
		ScrapedAt:       s.now().UTC(),
	})
}

// ScrapeResponse is the body of GET /api/scrape.
type ScrapeResponse struct {
	Success       bool              `json:"success"`
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	ContentLength int               `json:"contentLength"`
	Specs         map[string]string `json:"specs"`
	Pricing       Pricing           `json:"pricing"`
	Features      []string          `json:"features"`
	ScrapedAt     time.Time         `json:"scrapedAt"`
	Preview       string            `json:"preview"`
}

// HandleScrape handles GET /api/scrape?url=.
func (s *APIServer) HandleScrape(c *gin.Context) {
	target, ok := targetURL(c, DefaultScrapeURL)
	if !ok {
		badRequest(c, "A valid http(s) url is required")
		return
	}

	page, err := s.scraper().Scrape(c.Request.Context(), target)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ScrapeResponse{
		Success:       true,
		URL:           target,
		Title:         titleOr(page, target),
		ContentLength: len(page.Markdown),
		Specs:         ExtractSpecs(page.Markdown),
		Pricing:       ExtractPricing(page.Markdown),
		Features:      ExtractFeatures(page.Markdown),
		ScrapedAt:     s.now().UTC(),
		Preview:       truncate(page.Markdown, PreviewLen),
	})
}

func titleOr(page *Page, fallback string) string {
	if page.Title != "" {
		return page.Title
	}
	return fallback
}

// keyStatus describes a key without revealing it.
func keyStatus(key, prefix, prefixField string) gin.H {
	return gin.H{
		"present":   key != "",
		prefixField: strings.HasPrefix(key, prefix),
		"length":    len(key),
	}
}

// HandleCheckEnv handles GET /api/check-env.
func (s *APIServer) HandleCheckEnv(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment": gin.H{
			"firecrawl":  keyStatus(s.firecrawlKey, "fc-", "starts_with_fc"),
			"perplexity": keyStatus(s.perplexityKey, "pplx-", "starts_with_pplx"),
		},
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}
