package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent file reads in LoadAll.
const DefaultWorkers = 8

// ReadError describes a failure to read or parse a single content file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ListResult contains the posts that loaded successfully, sorted newest
// first, plus any per-file errors that occurred along the way.
type ListResult struct {
	Posts  []Post
	Errors []ReadError
}

// Source is anything that can produce the current set of posts.
type Source interface {
	Posts(ctx context.Context) (*ListResult, error)
}

// Loader reads posts from a content directory. The directory holds post
// files directly and in one level of category subdirectories.
type Loader struct {
	dir     string
	now     func() time.Time
	workers int
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithClock sets the clock used for posts without a publication date.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
	}
}

// WithWorkers sets how many files are read concurrently.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger used for skipped files and data-quality
// warnings.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for the given content directory.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		dir:     dir,
		now:     time.Now,
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the content directory.
func (l *Loader) Dir() string {
	return l.dir
}

// candidate is a file the loader will try to turn into a post.
type candidate struct {
	path     string
	name     string // relative to the content directory
	slug     string
	category string
}

// Posts implements Source by loading the directory from scratch.
func (l *Loader) Posts(ctx context.Context) (*ListResult, error) {
	return l.LoadAll(ctx)
}

// LoadAll returns every post in the content directory sorted newest first.
// A missing directory is created and yields an empty result. Files that
// cannot be read or parsed are reported in the result's Errors slice and
// skipped. A non-nil error return indicates a total failure (the directory
// cannot be created or listed, or ctx was cancelled).
func (l *Loader) LoadAll(ctx context.Context) (*ListResult, error) {
	if err := l.ensureDir(); err != nil {
		return nil, err
	}

	candidates, errs, err := l.scan()
	if err != nil {
		return nil, err
	}

	type outcome struct {
		post Post
		err  error
	}
	outcomes := make([]outcome, len(candidates))
	now := l.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			post, err := l.read(c, now)
			outcomes[i] = outcome{post: post, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}

	result := &ListResult{
		Posts:  make([]Post, 0, len(candidates)),
		Errors: errs,
	}
	for i, o := range outcomes {
		if o.err != nil {
			l.logger.Warn("skipping content file", "file", candidates[i].name, "error", o.err)
			result.Errors = append(result.Errors, ReadError{
				Filename: candidates[i].name,
				Err:      o.err,
			})
			continue
		}
		if o.post.DateMissing {
			l.logger.Warn("post has no publication date", "file", candidates[i].name)
		}
		result.Posts = append(result.Posts, o.post)
	}

	SortByDateDesc(result.Posts)
	return result, nil
}

// Get loads a single post by slug. Returns nil, nil when no such post exists.
func (l *Loader) Get(ctx context.Context, slug string) (*Post, error) {
	if slug == "" || isBackup(slug) || strings.ContainsAny(slug, `/\`) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates, _, err := l.scan()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	for _, c := range candidates {
		if c.slug != slug {
			continue
		}
		post, err := l.read(c, l.now())
		if err != nil {
			return nil, fmt.Errorf("failed to load post %s: %w", slug, err)
		}
		return &post, nil
	}

	return nil, nil // Not found (not an error)
}

func (l *Loader) ensureDir() error {
	info, err := os.Stat(l.dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("content path %s is not a directory", l.dir)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat content directory: %w", err)
	}

	l.logger.Info("creating content directory", "dir", l.dir)
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}
	return nil
}

// scan lists eligible files. Unreadable category directories are reported as
// ReadErrors rather than failing the whole scan.
func (l *Loader) scan() ([]candidate, []ReadError, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read content directory: %w", err)
	}

	var candidates []candidate
	var errs []ReadError
	for _, entry := range entries {
		if !entry.IsDir() {
			if c, ok := newCandidate(l.dir, "", entry.Name()); ok {
				candidates = append(candidates, c)
			}
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		category := entry.Name()
		sub, err := os.ReadDir(filepath.Join(l.dir, category))
		if err != nil {
			errs = append(errs, ReadError{Filename: category, Err: err})
			continue
		}
		for _, file := range sub {
			if file.IsDir() {
				continue
			}
			if c, ok := newCandidate(l.dir, category, file.Name()); ok {
				candidates = append(candidates, c)
			}
		}
	}

	return candidates, errs, nil
}

func (l *Loader) read(c candidate, now time.Time) (Post, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return Post{}, err
	}
	post, err := ParsePost(c.slug, c.category, data, now)
	if err != nil {
		return Post{}, err
	}
	post.SourcePath = c.name
	return post, nil
}

func newCandidate(root, category, filename string) (candidate, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".mdx" && ext != ".md" {
		return candidate{}, false
	}
	slug := strings.TrimSuffix(filename, filepath.Ext(filename))
	if slug == "" || strings.HasPrefix(filename, ".") || isBackup(slug) {
		return candidate{}, false
	}

	return candidate{
		path:     filepath.Join(root, category, filename),
		name:     filepath.ToSlash(filepath.Join(category, filename)),
		slug:     slug,
		category: category,
	}, true
}

// isBackup reports whether slug names a "*.backup" duplicate.
func isBackup(slug string) bool {
	return strings.HasSuffix(strings.ToLower(slug), ".backup")
}
