// Package site serves the content index over HTTP: paginated listings,
// single posts, search, feeds and sitemaps.
package site

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pevans/trendstoday/content"
	"github.com/pevans/trendstoday/logger"
	"github.com/pevans/trendstoday/pagination"
)

// Errors surfaced by the listing handlers.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidPage  = errors.New("page must be a positive integer")
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// RouteRegistrar is implemented by the other API packages so they can share
// the site's router.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

// Options configures an APIServer.
type Options struct {
	SiteURL  string
	PageSize int
	Now      func() time.Time
	Logger   *slog.Logger
	Metrics  *Metrics
}

// APIServer serves the content index.
type APIServer struct {
	source   content.Source
	siteURL  string
	pageSize int
	now      func() time.Time
	logger   *slog.Logger
	metrics  *Metrics
}

// NewAPIServer creates an API server reading posts from source, which is
// either a Loader (re-scan per request) or a watched Index.
func NewAPIServer(source content.Source, opts Options) *APIServer {
	s := &APIServer{
		source:   source,
		siteURL:  strings.TrimSuffix(opts.SiteURL, "/"),
		pageSize: opts.PageSize,
		now:      opts.Now,
		logger:   logger.Or(opts.Logger),
		metrics:  opts.Metrics,
	}
	if s.pageSize <= 0 {
		s.pageSize = pagination.DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// SetupRouter configures the Gin router with the content routes plus any
// extra route groups.
func (s *APIServer) SetupRouter(extra ...RouteRegistrar) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger), s.metrics.Middleware())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	s.RegisterRoutes(router)
	for _, r := range extra {
		r.RegisterRoutes(router)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "Route not found"))
	})

	return router
}

// RegisterRoutes adds the content routes to r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/posts", s.HandleListPosts)
	api.GET("/posts/:slug", s.HandleGetPost)
	api.GET("/categories", s.HandleListCategories)
	api.GET("/categories/:category", s.HandleCategory)
	api.GET("/tags/:tag", s.HandleTag)
	api.GET("/authors/:author", s.HandleAuthor)
	api.GET("/search", s.HandleSearch)
	api.GET("/home", s.HandleHome)
	api.GET("/rss", s.HandleRSS)

	r.GET("/sitemap.xml", s.HandleSitemap)
	r.GET("/news-sitemap.xml", s.HandleNewsSitemap)
	r.GET("/robots.txt", s.HandleRobots)
	r.GET("/metrics", s.metrics.Handler())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// ListPostsResponse is one page of a post listing.
type ListPostsResponse struct {
	Posts      []content.Post   `json:"posts"`
	Pagination pagination.Info  `json:"pagination"`
	Links      pagination.Links `json:"links"`
	Pages      []int            `json:"pages"`
	Title      string           `json:"title,omitempty"`
	Summary    string           `json:"description,omitempty"`
}

// PostResponse is the body of GET /api/posts/:slug.
type PostResponse struct {
	Post    content.Post   `json:"post"`
	HTML    template.HTML  `json:"html"`
	Related []content.Post `json:"related"`
}

// CategorySummary describes one navigable category.
type CategorySummary struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Results []content.SearchResult `json:"results"`
	Total   int                    `json:"total"`
	Query   string                 `json:"query"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, ErrInvalidPage), errors.Is(err, ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", err.Error()))
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// posts loads the current index and records its size.
func (s *APIServer) posts(c *gin.Context) ([]content.Post, bool) {
	result, err := s.source.Posts(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return nil, false
	}
	s.metrics.ObserveLoad(len(result.Posts), len(result.Errors))
	return result.Posts, true
}

// parsePage reads the page query parameter strictly. Missing means 1.
func parsePage(c *gin.Context) (int, error) {
	param := c.Query("page")
	if param == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(param)
	if err != nil {
		return 0, ErrInvalidPage
	}
	return page, nil
}

// respondPage paginates posts and writes the listing, or a not-found error
// for a page outside the listing.
func (s *APIServer) respondPage(c *gin.Context, posts []content.Post, baseURL, title, summary string) {
	page, err := parsePage(c)
	if err != nil {
		s.handleError(c, err)
		return
	}

	result, err := pagination.Paginate(posts, page, s.pageSize)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if !result.Info.InRange() {
		s.handleError(c, fmt.Errorf("page %d of %d: %w", page, result.Info.TotalPages, ErrNotFound))
		return
	}

	c.JSON(http.StatusOK, ListPostsResponse{
		Posts:      result.Items,
		Pagination: result.Info,
		Links:      result.Info.Links(baseURL),
		Pages:      pagination.PageNumbers(result.Info.CurrentPage, result.Info.TotalPages),
		Title:      title,
		Summary:    summary,
	})
}

// HandleListPosts handles GET /api/posts.
func (s *APIServer) HandleListPosts(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}
	s.respondPage(c, posts, "", "Latest", "")
}

// HandleGetPost handles GET /api/posts/:slug.
func (s *APIServer) HandleGetPost(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	slug := c.Param("slug")
	var post *content.Post
	for i := range posts {
		if posts[i].Slug == slug {
			post = &posts[i]
		}
	}
	if post == nil {
		s.handleError(c, fmt.Errorf("post %q: %w", slug, ErrNotFound))
		return
	}

	html, err := content.RenderHTML(*post)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, PostResponse{
		Post:    *post,
		HTML:    html,
		Related: content.Related(posts, *post, 3),
	})
}

// HandleListCategories handles GET /api/categories.
func (s *APIServer) HandleListCategories(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	categories := make([]CategorySummary, 0, len(content.Categories))
	for _, key := range content.Categories {
		categories = append(categories, CategorySummary{
			Key:         key,
			Title:       content.CategoryTitle(key),
			Description: content.CategoryDescription(key),
			Count:       len(content.FilterByCategory(posts, key)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// HandleCategory handles GET /api/categories/:category. Unknown categories
// with no posts are not found; a known category may be empty.
func (s *APIServer) HandleCategory(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	category := c.Param("category")
	matched := content.FilterByCategory(posts, category)
	if len(matched) == 0 && !content.IsCategory(category) {
		s.handleError(c, fmt.Errorf("category %q: %w", category, ErrNotFound))
		return
	}

	key := content.NormalizeCategory(category)
	s.respondPage(c, matched, "/"+key, content.CategoryTitle(key), content.CategoryDescription(key))
}

// HandleTag handles GET /api/tags/:tag.
func (s *APIServer) HandleTag(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	tag := c.Param("tag")
	matched := content.FilterByTag(posts, tag)
	if len(matched) == 0 {
		s.handleError(c, fmt.Errorf("tag %q: %w", tag, ErrNotFound))
		return
	}
	s.respondPage(c, matched, "/tag/"+strings.ToLower(tag), "#"+tag, "")
}

// HandleAuthor handles GET /api/authors/:author.
func (s *APIServer) HandleAuthor(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	author := c.Param("author")
	matched := content.FilterByAuthor(posts, strings.ReplaceAll(author, "-", " "))
	if len(matched) == 0 {
		matched = content.FilterByAuthor(posts, author)
	}
	if len(matched) == 0 {
		s.handleError(c, fmt.Errorf("author %q: %w", author, ErrNotFound))
		return
	}
	s.respondPage(c, matched, "/author/"+author, matched[0].Author, "")
}

// HandleSearch handles GET /api/search. Queries shorter than two characters
// return no results rather than an error.
func (s *APIServer) HandleSearch(c *gin.Context) {
	limit := 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			s.handleError(c, ErrInvalidLimit)
			return
		}
		limit = parsed
	}

	posts, ok := s.posts(c)
	if !ok {
		return
	}

	query := c.Query("q")
	results := content.Search(posts, query, limit)
	c.JSON(http.StatusOK, SearchResponse{
		Results: results,
		Total:   len(results),
		Query:   query,
	})
}

// HandleHome handles GET /api/home.
func (s *APIServer) HandleHome(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, content.BuildHomepage(posts))
}

// HandleRSS handles GET /api/rss with an optional category parameter.
func (s *APIServer) HandleRSS(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	category := c.Query("category")
	cacheControl := "public, max-age=3600, stale-while-revalidate=86400"
	if category != "" {
		posts = content.FilterByCategory(posts, category)
		cacheControl = "public, max-age=1800"
	}

	body, err := BuildRSS(posts, s.siteURL, category, s.now())
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Header("Cache-Control", cacheControl)
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", body)
}

// HandleSitemap handles GET /sitemap.xml.
func (s *APIServer) HandleSitemap(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	body, err := BuildSitemap(posts, s.siteURL, s.pageSize, s.now())
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml", body)
}

// HandleNewsSitemap handles GET /news-sitemap.xml.
func (s *APIServer) HandleNewsSitemap(c *gin.Context) {
	posts, ok := s.posts(c)
	if !ok {
		return
	}

	body, err := BuildNewsSitemap(posts, s.siteURL, s.now())
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600, s-maxage=3600")
	c.Data(http.StatusOK, "application/xml", body)
}

// HandleRobots handles GET /robots.txt.
func (s *APIServer) HandleRobots(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(RobotsTxt(s.siteURL)))
}

// requestLogger logs one line per request at debug level, or warn for
// server errors.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("request", attrs...)
			return
		}
		log.Debug("request", attrs...)
	}
}
