package research

import (
	"cmp"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Limits on the heuristic output.
const (
	SampleArticles  = 8
	NavigationItems = 10
	MaxFeatures     = 8
	ManufacturerLen = 2000
	PreviewLen      = 1000
)

// ContentAnalysis describes the shape of a scraped page.
type ContentAnalysis struct {
	TotalLines     int    `json:"totalLines"`
	HeadingCount   int    `json:"headingCount"`
	LinkCount      int    `json:"linkCount"`
	ImageCount     int    `json:"imageCount"`
	HasHeroSection bool   `json:"hasHeroSection"`
	HasSidebar     bool   `json:"hasSidebar"`
	ContentDensity string `json:"contentDensity"`
}

// Article is a heading that looks like an article title.
type Article struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Insights are layout observations about a page.
type Insights struct {
	LayoutStructure string   `json:"layoutStructure"`
	ContentTypes    []string `json:"contentTypes"`
	DesignPatterns  []string `json:"designPatterns"`
	UserEngagement  []string `json:"userEngagement"`
}

// Pricing lists the prices found in a text.
type Pricing struct {
	Found []string `json:"found,omitempty"`
	Range string   `json:"range,omitempty"`
}

var (
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+.+$`)
	linkTextRe   = regexp.MustCompile(`\[([^\]]+)\]`)
	imageRe      = regexp.MustCompile(`!\[[^\]]*\]`)
	articleRe    = regexp.MustCompile(`(?m)^#{1,4}\s+(.+)$`)
	genericRe    = regexp.MustCompile(`(?i)^(Home|News|Reviews|About|Contact|Menu|Search)$`)
	navLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	navTextRe    = regexp.MustCompile(`(?i)^(Reviews|News|Buying|Best|Compare|How to|Guide|Analysis|Opinion)`)
	pagePriceRe  = regexp.MustCompile(`\$(?:\d{1,3}(?:,\d{3})+|\d{3,4})\b`)
	anyPriceRe   = regexp.MustCompile(`\$[\d,]+`)
)

// AnalyzeContent counts headings, links and images in markdown and guesses
// at its layout.
func AnalyzeContent(markdown string) ContentAnalysis {
	lower := strings.ToLower(markdown)
	density := "low"
	switch {
	case len(markdown) > 15000:
		density = "high"
	case len(markdown) > 8000:
		density = "medium"
	}
	return ContentAnalysis{
		TotalLines:     strings.Count(markdown, "\n") + 1,
		HeadingCount:   len(headingRe.FindAllString(markdown, -1)),
		LinkCount:      len(linkTextRe.FindAllString(markdown, -1)),
		ImageCount:     len(imageRe.FindAllString(markdown, -1)),
		HasHeroSection: strings.Contains(lower, "hero") || strings.Contains(markdown, "featured"),
		HasSidebar:     strings.Contains(lower, "sidebar") || strings.Contains(lower, "latest"),
		ContentDensity: density,
	}
}

// ExtractArticles returns level 1-4 headings longer than ten characters that
// are not generic navigation labels.
func ExtractArticles(markdown string) []Article {
	articles := []Article{}
	for _, m := range articleRe.FindAllStringSubmatch(markdown, -1) {
		title := strings.TrimSpace(m[1])
		if len(title) <= 10 || genericRe.MatchString(title) {
			continue
		}
		articles = append(articles, Article{Title: title, Type: ArticleType(title)})
	}
	return articles
}

// ExtractNavigation returns the distinct link texts that read like section
// navigation, in order of appearance.
func ExtractNavigation(markdown string) []string {
	nav := []string{}
	for _, m := range navLinkRe.FindAllStringSubmatch(markdown, -1) {
		text := strings.TrimSpace(m[1])
		if navTextRe.MatchString(text) && !slices.Contains(nav, text) {
			nav = append(nav, text)
		}
	}
	return nav
}

// ArticleType classifies a title by keyword. The first matching rule wins.
func ArticleType(title string) string {
	t := strings.ToLower(title)
	has := func(words ...string) bool {
		return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(t, w) })
	}
	switch {
	case has("review", "tested"):
		return "review"
	case has("vs", "compare"):
		return "comparison"
	case has("best", "guide"):
		return "buying-guide"
	case has("leak", "rumor", "announce"):
		return "news"
	case has("how to", "tutorial"):
		return "tutorial"
	}
	return "article"
}

// UIInsights reports layout patterns and content types seen in markdown.
func UIInsights(markdown string) Insights {
	lower := strings.ToLower(markdown)
	in := Insights{
		LayoutStructure: "unknown",
		ContentTypes:    []string{},
		DesignPatterns:  []string{},
		UserEngagement:  []string{},
	}

	if strings.Contains(markdown, "hero") || strings.Contains(markdown, "featured") {
		in.LayoutStructure = "hero-based"
		in.DesignPatterns = append(in.DesignPatterns, "Hero section with featured content")
	}
	if strings.Contains(markdown, "sidebar") || strings.Contains(markdown, "latest") {
		in.DesignPatterns = append(in.DesignPatterns, "Sidebar with latest content")
	}

	for _, ct := range []struct{ word, label string }{
		{"review", "Reviews"},
		{"news", "News"},
		{"guide", "Guides"},
		{"compare", "Comparisons"},
	} {
		if strings.Contains(lower, ct.word) {
			in.ContentTypes = append(in.ContentTypes, ct.label)
		}
	}

	if strings.Contains(markdown, "comment") || strings.Contains(markdown, "share") {
		in.UserEngagement = append(in.UserEngagement, "Social sharing and comments")
	}
	if strings.Contains(markdown, "newsletter") || strings.Contains(markdown, "subscribe") {
		in.UserEngagement = append(in.UserEngagement, "Newsletter subscription")
	}
	return in
}

// Recommendations turns an analysis into layout advice.
func Recommendations(a ContentAnalysis, in Insights) []string {
	var recs []string
	if a.HasHeroSection {
		recs = append(recs, "Keep hero section - effective for featuring main content")
	} else {
		recs = append(recs, "Consider adding a hero section for featured articles")
	}
	if a.HasSidebar {
		recs = append(recs, "Sidebar approach works well - keep latest news/popular content")
	}
	if a.ContentDensity == "high" {
		recs = append(recs, "High content density - consider better visual hierarchy")
	}
	if slices.Contains(in.ContentTypes, "Reviews") && slices.Contains(in.ContentTypes, "News") {
		recs = append(recs, "Reviews + News mix is effective - maintain balance")
	}
	return append(recs,
		"Consider card-based layout for article previews",
		"Ensure mobile-responsive grid system",
	)
}

type specPattern struct {
	key string
	re  *regexp.Regexp
}

// Product page specs, tuned for manufacturer landing pages.
var pageSpecPatterns = []specPattern{
	{"display", regexp.MustCompile(`(?i)(\d+\.?\d*-?inch.*?(?:Super Retina|OLED|display))`)},
	{"chip", regexp.MustCompile(`(?i)(A\d+\s+Pro\s+chip)`)},
	{"camera", regexp.MustCompile(`(?i)(\d+MP.*?(?:camera|telephoto|ultra wide))`)},
	{"battery", regexp.MustCompile(`(?i)(up to \d+.*?hours.*?(?:video|playback))`)},
	{"storage", regexp.MustCompile(`(?i)(\d+GB.*?(?:storage|capacity))`)},
	{"materials", regexp.MustCompile(`(?i)(titanium|aluminum|ceramic)`)},
}

// Generic specs used when combining research.
var researchSpecPatterns = []specPattern{
	{"display", regexp.MustCompile(`(?i)(\d+\.?\d*[-"]?\s?inch.*?(?:display|screen|oled|lcd))`)},
	{"processor", regexp.MustCompile(`(?i)(a\d+\s+(?:pro\s+)?chip|snapdragon\s+\d+|tensor\s+g\d+)`)},
	{"camera", regexp.MustCompile(`(?i)(\d+mp.*?camera)`)},
	{"battery", regexp.MustCompile(`(?i)(up to \d+.*?hours|^\d+mah)`)},
	{"storage", regexp.MustCompile(`(?i)(\d+gb.*?storage)`)},
	{"memory", regexp.MustCompile(`(?i)(\d+gb\s+ram)`)},
}

func matchSpecs(text string, patterns []specPattern) map[string]string {
	specs := map[string]string{}
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			specs[p.key] = strings.TrimSpace(m[1])
		}
	}
	return specs
}

// ExtractSpecs pulls display, chip, camera, battery, storage and materials
// phrases from a product page.
func ExtractSpecs(markdown string) map[string]string {
	return matchSpecs(markdown, pageSpecPatterns)
}

// ExtractSpecifications pulls generic spec phrases from research text.
func ExtractSpecifications(text string) map[string]string {
	return matchSpecs(text, researchSpecPatterns)
}

// ExtractPricing returns the distinct dollar prices of $100 and up in
// markdown, cheapest first, with a range from the cheapest to the dearest.
func ExtractPricing(markdown string) Pricing {
	found := pagePriceRe.FindAllString(markdown, -1)
	slices.SortFunc(found, func(a, b string) int {
		return cmp.Or(cmp.Compare(priceValue(a), priceValue(b)), strings.Compare(a, b))
	})
	found = slices.Compact(found)

	p := Pricing{Found: found, Range: "Price not found"}
	switch len(found) {
	case 0:
		p.Found = []string{}
	case 1:
		p.Range = found[0]
	default:
		p.Range = found[0] + " - " + found[len(found)-1]
	}
	return p
}

func priceValue(price string) int {
	n, _ := strconv.Atoi(strings.NewReplacer("$", "", ",", "").Replace(price))
	return n
}

var featureNames = []string{
	"Action Button",
	"USB-C",
	"5G",
	"Face ID",
	"Wireless charging",
	"Water resistant",
	"Crash Detection",
	"Emergency SOS",
}

var featureRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(featureNames))
	for i, name := range featureNames {
		res[i] = regexp.MustCompile(`(?i)[^.]*` + regexp.QuoteMeta(name) + `[^.]*`)
	}
	return res
}()

// ExtractFeatures returns the sentence around each known feature mentioned in
// markdown, at most MaxFeatures.
func ExtractFeatures(markdown string) []string {
	features := []string{}
	for _, re := range featureRes {
		if m := re.FindString(markdown); m != "" {
			features = append(features, strings.TrimSpace(m))
		}
	}
	return features[:min(MaxFeatures, len(features))]
}

// ManufacturerURL maps a product name to the official page worth scraping,
// or "" when the brand is unknown.
func ManufacturerURL(product string) string {
	p := strings.ToLower(product)
	has := func(words ...string) bool {
		return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(p, w) })
	}
	switch {
	case has("iphone", "macbook", "ipad", "apple"):
		switch {
		case has("iphone 16"):
			return "https://www.apple.com/iphone-16/"
		case has("iphone 15"):
			return "https://www.apple.com/iphone-15/"
		case has("macbook"):
			return "https://www.apple.com/macbook-air/"
		}
		return "https://www.apple.com/"
	case has("galaxy", "samsung"):
		if has("s24", "s25") {
			return "https://www.samsung.com/us/smartphones/galaxy-s/"
		}
		return "https://www.samsung.com/us/smartphones/"
	case has("pixel", "google"):
		return "https://store.google.com/category/phones"
	case has("oneplus"):
		return "https://www.oneplus.com/"
	}
	return ""
}

var competitorBrands = []string{"samsung", "apple", "google", "oneplus", "xiaomi", "sony"}

// ManufacturerPage is the trimmed manufacturer scrape included in research.
type ManufacturerPage struct {
	URL      string         `json:"url"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Findings is the combined research for one product.
type Findings struct {
	ProductName        string            `json:"productName"`
	Summary            string            `json:"summary"`
	KeyFindings        []string          `json:"keyFindings"`
	Specifications     map[string]string `json:"specifications"`
	Pricing            Pricing           `json:"pricing"`
	Pros               []string          `json:"pros"`
	Cons               []string          `json:"cons"`
	Competitors        []string          `json:"competitors"`
	Sources            []string          `json:"sources"`
	PerplexityInsights string            `json:"perplexityInsights,omitempty"`
	ManufacturerData   string            `json:"manufacturerData,omitempty"`
}

// CombineResearch merges a Perplexity answer and a manufacturer scrape into
// Findings. Either input may be nil.
func CombineResearch(answer *Answer, page *ManufacturerPage, product string) Findings {
	f := Findings{
		ProductName:    product,
		Summary:        "Research data compiled from multiple sources",
		KeyFindings:    []string{},
		Specifications: map[string]string{},
		Pros:           []string{},
		Cons:           []string{},
		Competitors:    []string{},
		Sources:        []string{},
	}

	if answer != nil && answer.Content != "" {
		f.PerplexityInsights = answer.Content
		f.Sources = append(f.Sources, "Perplexity AI - Real-time web search")

		if prices := anyPriceRe.FindAllString(answer.Content, -1); len(prices) > 0 {
			f.Pricing = Pricing{Found: prices, Range: prices[0] + " - " + prices[len(prices)-1]}
		}

		lower := strings.ToLower(answer.Content)
		productLower := strings.ToLower(product)
		for _, brand := range competitorBrands {
			if strings.Contains(lower, brand) && !strings.Contains(productLower, brand) {
				f.Competitors = append(f.Competitors, strings.ToUpper(brand[:1])+brand[1:])
			}
		}
	}

	if page != nil && page.Content != "" {
		f.ManufacturerData = page.Content
		f.Sources = append(f.Sources, "Official manufacturer page - "+page.URL)
		maps.Copy(f.Specifications, ExtractSpecifications(page.Content))
	}

	if len(f.Sources) > 0 {
		f.Summary = fmt.Sprintf("Comprehensive research combining real-time data from %d source(s)", len(f.Sources))
	}
	return f
}

// truncate cuts s to n runes followed by "...".
func truncate(s string, n int) string {
	r := []rune(s)
	return string(r[:min(n, len(r))]) + "..."
}
