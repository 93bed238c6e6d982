package research

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DirectUserAgent identifies the site when fetching pages itself.
const DirectUserAgent = "TrendsToday-Research/1.0 (+https://trendstoday.ca)"

// MainContentSelector picks the page's main content when there is one,
// matching what Firecrawl's onlyMainContent keeps.
const MainContentSelector = "main, article, [role=main]"

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li"

// DirectScraper fetches pages itself and renders a rough markdown version
// with goquery. It stands in for Firecrawl when no key is configured.
type DirectScraper struct {
	client *http.Client
}

// NewDirectScraper creates a scraper. A nil client gets a 10 second timeout.
func NewDirectScraper(client *http.Client) *DirectScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DirectScraper{client: client}
}

// FetchHTML fetches and parses the page at pageURL.
func (d *DirectScraper) FetchHTML(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", DirectUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{Status: resp.StatusCode, Body: resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Scrape fetches pageURL and renders it as markdown.
func (d *DirectScraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	doc, err := d.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", pageURL, err)
	}

	page := PageFromDocument(doc, pageURL)
	if page.Markdown == "" {
		return nil, fmt.Errorf("failed to scrape %s: %w", pageURL, ErrNoContent)
	}
	return page, nil
}

// PageFromDocument renders headings, paragraphs and list items of doc as
// markdown, limited to the main content element when the page has one.
// Links and images inside them keep their markdown form so the heuristics can
// count them.
func PageFromDocument(doc *goquery.Document, pageURL string) *Page {
	base, _ := url.Parse(pageURL)
	doc.Find("script, style, noscript, template").Remove()

	root := doc.Find(MainContentSelector).First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	var blocks []string
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		text := collapse(inlineMarkdown(s, base))
		if text == "" {
			return
		}
		switch tag := goquery.NodeName(s); tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text = strings.Repeat("#", int(tag[1]-'0')) + " " + text
		case "li":
			text = "- " + text
		}
		blocks = append(blocks, text)
	})

	title := collapse(doc.Find("title").First().Text())
	metadata := map[string]any{"sourceURL": pageURL}
	if title != "" {
		metadata["title"] = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		metadata["description"] = desc
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		metadata["ogTitle"] = og
	}

	return &Page{
		URL:      pageURL,
		Title:    title,
		Markdown: strings.Join(blocks, "\n\n"),
		Metadata: metadata,
	}
}

func inlineMarkdown(s *goquery.Selection, base *url.URL) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
		case "a":
			text := collapse(inlineMarkdown(c, base))
			href, _ := c.Attr("href")
			if text == "" {
				return
			}
			fmt.Fprintf(&b, "[%s](%s)", text, resolve(base, href))
		case "img":
			alt, _ := c.Attr("alt")
			src, _ := c.Attr("src")
			fmt.Fprintf(&b, "![%s](%s)", alt, resolve(base, src))
		case "br":
			b.WriteString(" ")
		default:
			b.WriteString(inlineMarkdown(c, base))
		}
	})
	return b.String()
}

func resolve(base *url.URL, ref string) string {
	if base == nil || ref == "" {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
