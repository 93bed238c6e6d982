package site

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pevans/trendstoday/content"
	"github.com/pevans/trendstoday/pagination"
)

// NewsWindow is how far back the news sitemap reaches.
const NewsWindow = 48 * time.Hour

type cdata struct {
	Text string `xml:",cdata"`
}

type rssDoc struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	AtomNS    string     `xml:"xmlns:atom,attr"`
	ContentNS string     `xml:"xmlns:content,attr,omitempty"`
	MediaNS   string     `xml:"xmlns:media,attr,omitempty"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string    `xml:"title"`
	Description    string    `xml:"description"`
	Link           string    `xml:"link"`
	Language       string    `xml:"language"`
	LastBuildDate  string    `xml:"lastBuildDate"`
	AtomLink       atomLink  `xml:"atom:link"`
	ManagingEditor string    `xml:"managingEditor,omitempty"`
	WebMaster      string    `xml:"webMaster,omitempty"`
	Copyright      string    `xml:"copyright,omitempty"`
	Image          *rssImage `xml:"image,omitempty"`
	TTL            int       `xml:"ttl,omitempty"`
	Items          []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssImage struct {
	URL         string `xml:"url"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Width       int    `xml:"width"`
	Height      int    `xml:"height"`
}

type rssItem struct {
	Title        cdata         `xml:"title"`
	Description  cdata         `xml:"description"`
	Link         string        `xml:"link"`
	GUID         rssGUID       `xml:"guid"`
	PubDate      string        `xml:"pubDate"`
	Category     cdata         `xml:"category"`
	Author       string        `xml:"author,omitempty"`
	MediaContent *mediaContent `xml:"media:content,omitempty"`
	Enclosure    *rssEnclosure `xml:"enclosure,omitempty"`
	Encoded      *cdata        `xml:"content:encoded,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type mediaContent struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

// BuildRSS renders posts as an RSS 2.0 feed. With a category the feed is the
// lighter per-category variant.
func BuildRSS(posts []content.Post, siteURL, category string, now time.Time) ([]byte, error) {
	doc := rssDoc{
		Version: "2.0",
		AtomNS:  "http://www.w3.org/2005/Atom",
	}

	if category != "" {
		title := content.CategoryTitle(category)
		doc.Channel = rssChannel{
			Title:         "Trends Today - " + title,
			Description:   "Latest " + strings.ToLower(title) + " from Trends Today",
			Link:          siteURL + "/" + content.NormalizeCategory(category),
			Language:      "en-us",
			LastBuildDate: now.UTC().Format(http.TimeFormat),
			AtomLink: atomLink{
				Href: siteURL + "/api/rss?category=" + content.NormalizeCategory(category),
				Rel:  "self",
				Type: "application/rss+xml",
			},
		}
		for _, p := range posts {
			doc.Channel.Items = append(doc.Channel.Items, baseItem(p, siteURL))
		}
		return marshalXML(doc)
	}

	doc.ContentNS = "http://purl.org/rss/1.0/modules/content/"
	doc.MediaNS = "http://search.yahoo.com/mrss/"
	doc.Channel = rssChannel{
		Title:         "Trends Today - Latest Tech News & Reviews",
		Description:   "Stay ahead with the latest technology news, in-depth reviews, and expert analysis. Your trusted source for tech trends and innovations.",
		Link:          siteURL,
		Language:      "en-us",
		LastBuildDate: now.UTC().Format(http.TimeFormat),
		AtomLink: atomLink{
			Href: siteURL + "/api/rss",
			Rel:  "self",
			Type: "application/rss+xml",
		},
		ManagingEditor: "editor@trendstoday.ca (Trends Today Editorial)",
		WebMaster:      "admin@trendstoday.ca (Trends Today Technical)",
		Copyright:      fmt.Sprintf("© %d Trends Today. All rights reserved.", now.Year()),
		Image: &rssImage{
			URL:         siteURL + "/images/logo.png",
			Title:       "Trends Today",
			Link:        siteURL,
			Description: "Latest Tech News & Reviews",
			Width:       144,
			Height:      144,
		},
		TTL: 60,
	}

	for _, p := range posts {
		item := baseItem(p, siteURL)
		item.Author = p.Author
		link := item.Link
		if p.Image != "" {
			image := absolute(siteURL, p.Image)
			item.MediaContent = &mediaContent{URL: image, Medium: "image"}
			item.Enclosure = &rssEnclosure{URL: image, Type: "image/jpeg"}
			item.Encoded = &cdata{Text: fmt.Sprintf(
				`<img src="%s" alt="%s" style="max-width:100%%;height:auto;margin-bottom:1rem;"><p>%s</p><p><a href="%s">Read the full article on Trends Today</a></p>`,
				image, p.Title, p.Description, link)}
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}
	return marshalXML(doc)
}

func baseItem(p content.Post, siteURL string) rssItem {
	link := siteURL + p.URL()
	return rssItem{
		Title:       cdata{Text: p.Title},
		Description: cdata{Text: p.Description},
		Link:        link,
		GUID:        rssGUID{IsPermaLink: true, Value: link},
		PubDate:     p.PublishedAt.UTC().Format(http.TimeFormat),
		Category:    cdata{Text: p.Category},
	}
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	NewsNS  string       `xml:"xmlns:news,attr,omitempty"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string      `xml:"loc"`
	LastMod    string      `xml:"lastmod,omitempty"`
	ChangeFreq string      `xml:"changefreq,omitempty"`
	Priority   string      `xml:"priority,omitempty"`
	News       *newsDetail `xml:"news:news,omitempty"`
}

type newsDetail struct {
	Publication     newsPublication `xml:"news:publication"`
	PublicationDate string          `xml:"news:publication_date"`
	Title           cdata           `xml:"news:title"`
	Keywords        string          `xml:"news:keywords"`
}

type newsPublication struct {
	Name     string `xml:"news:name"`
	Language string `xml:"news:language"`
}

// BuildNewsSitemap lists posts published within NewsWindow of now in the
// Google News sitemap format.
func BuildNewsSitemap(posts []content.Post, siteURL string, now time.Time) ([]byte, error) {
	doc := urlSet{
		XMLNS:  "http://www.sitemaps.org/schemas/sitemap/0.9",
		NewsNS: "http://www.google.com/schemas/sitemap-news/0.9",
		URLs:   []sitemapURL{},
	}

	for _, p := range content.PublishedSince(posts, now.Add(-NewsWindow)) {
		doc.URLs = append(doc.URLs, sitemapURL{
			Loc: siteURL + p.URL(),
			News: &newsDetail{
				Publication: newsPublication{
					Name:     "Trends Today",
					Language: "en",
				},
				PublicationDate: p.PublishedAt.UTC().Format(time.RFC3339),
				Title:           cdata{Text: p.Title},
				Keywords:        p.Category,
			},
		})
	}
	return marshalXML(doc)
}

// BuildSitemap lists the home page, every category listing page and every
// post.
func BuildSitemap(posts []content.Post, siteURL string, pageSize int, now time.Time) ([]byte, error) {
	doc := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	today := now.UTC().Format("2006-01-02")

	doc.URLs = append(doc.URLs, sitemapURL{
		Loc: siteURL + "/", LastMod: today, ChangeFreq: "daily", Priority: "1.0",
	})

	for _, category := range content.Categories {
		n := len(content.FilterByCategory(posts, category))
		if n == 0 {
			continue
		}
		pages := pagination.TotalPages(n, pageSize)
		for _, e := range pagination.SitemapEntries(siteURL+"/"+category, pages, 0.7, "daily") {
			doc.URLs = append(doc.URLs, sitemapURL{
				Loc:        e.URL,
				LastMod:    today,
				ChangeFreq: e.ChangeFreq,
				Priority:   fmt.Sprintf("%.1f", e.Priority),
			})
		}
	}

	for _, p := range posts {
		mod := p.PublishedAt
		if p.UpdatedAt != nil {
			mod = *p.UpdatedAt
		}
		doc.URLs = append(doc.URLs, sitemapURL{
			Loc:        siteURL + p.URL(),
			LastMod:    mod.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	return marshalXML(doc)
}

// RobotsTxt returns the crawler rules for the site.
func RobotsTxt(siteURL string) string {
	return `User-agent: *
Allow: /

# Block admin and API routes
Disallow: /api/
Disallow: /_next/
Disallow: /admin/

# Allow all crawlers access to sitemaps
Sitemap: ` + siteURL + `/sitemap.xml
Sitemap: ` + siteURL + `/news-sitemap.xml

# Crawl-delay for respectful crawling
Crawl-delay: 1

# Special rules for specific bots
User-agent: Googlebot
Allow: /

User-agent: Bingbot
Allow: /

User-agent: facebookexternalhit
Allow: /

User-agent: Twitterbot
Allow: /
`
}

func marshalXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func absolute(siteURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return siteURL + path
}
