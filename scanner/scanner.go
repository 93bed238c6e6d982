// Package scanner polls technology news feeds for stories worth covering and
// keeps a ranked list of them in data/news-opportunities.json.
package scanner

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/pevans/trendstoday/logger"
)

// OpportunitiesFile is the file name the scanner writes under the data
// directory.
const OpportunitiesFile = "news-opportunities.json"

// Defaults for Options.
const (
	DefaultPerFeed   = 5
	DefaultKeep      = 100
	DefaultUserAgent = "TrendsToday-NewsBot/1.0"
	DefaultTimeout   = 30 * time.Second
	maxConcurrent    = 4
)

// Opportunity is a story the site could cover.
type Opportunity struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Type        string    `json:"type"`
	ScannedAt   time.Time `json:"scannedAt"`
	Potential   int       `json:"potential"`
}

// Options configures a Scanner.
type Options struct {
	// Feeds maps a short name to a feed URL.
	Feeds   map[string]string
	PerFeed int
	Keep    int
	DataDir string
	Client  *http.Client
	Now     func() time.Time
	Logger  *slog.Logger
}

// Scanner fetches feeds and maintains the opportunities file.
type Scanner struct {
	feeds   map[string]string
	perFeed int
	keep    int
	path    string
	client  *http.Client
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Scanner, filling unset options with defaults.
func New(opts Options) *Scanner {
	s := &Scanner{
		feeds:   opts.Feeds,
		perFeed: opts.PerFeed,
		keep:    opts.Keep,
		path:    filepath.Join(opts.DataDir, OpportunitiesFile),
		client:  opts.Client,
		now:     opts.Now,
		logger:  logger.Or(opts.Logger),
	}
	if s.perFeed <= 0 {
		s.perFeed = DefaultPerFeed
	}
	if s.keep <= 0 {
		s.keep = DefaultKeep
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: DefaultTimeout}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Path returns the opportunities file location.
func (s *Scanner) Path() string {
	return s.path
}

// FetchFeed fetches and parses an RSS or Atom feed.
func (s *Scanner) FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = DefaultUserAgent
	fp.Client = s.client
	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// Scan fetches every feed and returns the top PerFeed high-potential stories
// of each. A feed that fails is logged and skipped. Results follow feed name
// order.
func (s *Scanner) Scan(ctx context.Context) []Opportunity {
	names := slices.Sorted(maps.Keys(s.feeds))
	results := make([][]Opportunity, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, name := range names {
		url := s.feeds[name]
		g.Go(func() error {
			feed, err := s.FetchFeed(gctx, url)
			if err != nil {
				s.logger.Warn("skipping feed", "feed", name, "url", url, "error", err)
				return nil
			}
			results[i] = s.opportunities(feed, url)
			s.logger.Debug("scanned feed", "feed", name, "items", len(feed.Items), "kept", len(results[i]))
			return nil
		})
	}
	_ = g.Wait()

	var all []Opportunity
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func (s *Scanner) opportunities(feed *gofeed.Feed, source string) []Opportunity {
	scanned := s.now().UTC()
	var out []Opportunity
	for _, item := range feed.Items {
		if len(out) == s.perFeed {
			break
		}
		title := CleanText(item.Title)
		description := CleanText(item.Description)
		if title == "" || item.Link == "" || !IsHighPotential(title, description) {
			continue
		}

		published := scanned
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}

		out = append(out, Opportunity{
			Title:       title,
			Link:        item.Link,
			Description: description,
			PublishedAt: published,
			Source:      source,
			Type:        "rss",
			ScannedAt:   scanned,
			Potential:   Potential(title),
		})
	}
	return out
}

// Merge combines existing and fresh opportunities. A link seen twice keeps
// its first position and its latest data. The result is ordered by potential
// (stable) and cut to keep entries.
func Merge(existing, fresh []Opportunity, keep int) []Opportunity {
	index := map[string]int{}
	var merged []Opportunity
	for _, o := range slices.Concat(existing, fresh) {
		if i, ok := index[o.Link]; ok {
			merged[i] = o
			continue
		}
		index[o.Link] = len(merged)
		merged = append(merged, o)
	}

	slices.SortStableFunc(merged, func(a, b Opportunity) int {
		return cmp.Compare(b.Potential, a.Potential)
	})
	if keep > 0 && len(merged) > keep {
		merged = merged[:keep]
	}
	if merged == nil {
		merged = []Opportunity{}
	}
	return merged
}

// Load reads an opportunities file. A missing file yields no entries.
func Load(path string) ([]Opportunity, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read opportunities: %w", err)
	}

	var opps []Opportunity
	if err := json.Unmarshal(data, &opps); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return opps, nil
}

// Save merges opps into the opportunities file and returns what was written.
// A corrupt existing file is replaced.
func (s *Scanner) Save(opps []Opportunity) ([]Opportunity, error) {
	existing, err := Load(s.path)
	if err != nil {
		s.logger.Warn("discarding unreadable opportunities file", "path", s.path, "error", err)
		existing = nil
	}

	merged := Merge(existing, opps, s.keep)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode opportunities: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write opportunities: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return nil, fmt.Errorf("failed to replace opportunities: %w", err)
	}

	return merged, nil
}

// Run scans every feed once and saves the merged result.
func (s *Scanner) Run(ctx context.Context) ([]Opportunity, error) {
	s.logger.Info("starting news scan", "feeds", len(s.feeds))

	found := s.Scan(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saved, err := s.Save(found)
	if err != nil {
		return nil, err
	}

	s.logger.Info("news scan completed", "found", len(found), "saved", len(saved))
	for i, o := range saved[:min(5, len(saved))] {
		s.logger.Info("top opportunity", "rank", i+1, "title", o.Title, "potential", o.Potential)
	}
	return saved, nil
}
