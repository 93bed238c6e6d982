package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// utf8BOM is stripped before parsing; editors on Windows like to add it.
var utf8BOM = []byte("\uFEFF")

// yamlFormat is the "---" delimited YAML metadata header.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// dateLayouts lists the accepted publishedAt/updatedAt formats, most
// specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var readingTimePattern = regexp.MustCompile(`^\s*(\d+)`)

// header mirrors the keys authors use in metadata headers. Several keys have
// aliases carried over from older content.
type header struct {
	Title           string       `yaml:"title"`
	Subtitle        string       `yaml:"subtitle"`
	Description     string       `yaml:"description"`
	Excerpt         string       `yaml:"excerpt"`
	MetaDescription string       `yaml:"meta_description"`
	PublishedAt     scalarString `yaml:"publishedAt"`
	Date            scalarString `yaml:"date"`
	DatePublished   scalarString `yaml:"datePublished"`
	UpdatedAt       scalarString `yaml:"updatedAt"`
	LastUpdated     scalarString `yaml:"lastUpdated"`
	Category        string       `yaml:"category"`
	Tags            tagList      `yaml:"tags"`
	Author          authorField  `yaml:"author"`
	Image           string       `yaml:"image"`
	Images          struct {
		Featured string `yaml:"featured"`
	} `yaml:"images"`
	ImageAlt         string       `yaml:"imageAlt"`
	ImageAttribution string       `yaml:"imageAttribution"`
	ReadingTime      scalarString `yaml:"readingTime"`
	Featured         bool         `yaml:"featured"`
}

// scalarString keeps the raw text of a scalar node so timestamps and numbers
// are not coerced by the YAML resolver.
type scalarString string

func (s *scalarString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = scalarString(strings.TrimSpace(node.Value))
	return nil
}

// authorField accepts either `author: Jane` or `author: {name: Jane}`.
type authorField string

func (a *authorField) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*a = authorField(strings.TrimSpace(node.Value))
		return nil
	case yaml.MappingNode:
		var v struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&v); err != nil {
			return err
		}
		*a = authorField(strings.TrimSpace(v.Name))
		return nil
	default:
		return fmt.Errorf("line %d: author must be a string or a mapping", node.Line)
	}
}

// tagList accepts a YAML sequence or a comma separated string.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	case yaml.ScalarNode:
		raw = strings.Split(node.Value, ",")
	default:
		return fmt.Errorf("line %d: tags must be a list", node.Line)
	}

	out := make(tagList, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	*t = out
	return nil
}

// ParsePost splits data into its metadata header and body and builds a Post
// with defaults applied. dirCategory, when set, takes precedence over the
// header's category. now is used when the header carries no usable date, in
// which case DateMissing is set.
func ParsePost(slug, dirCategory string, data []byte, now time.Time) (Post, error) {
	var h header
	data = bytes.TrimPrefix(data, utf8BOM)
	body, err := frontmatter.Parse(bytes.NewReader(data), &h, yamlFormat)
	if err != nil {
		return Post{}, fmt.Errorf("failed to parse metadata header: %w", err)
	}

	post := Post{
		Slug:             slug,
		Title:            firstNonEmpty(h.Title, DefaultTitle),
		Subtitle:         h.Subtitle,
		Description:      firstNonEmpty(h.Description, h.Excerpt, h.MetaDescription),
		Author:           firstNonEmpty(string(h.Author), DefaultAuthor),
		Image:            firstNonEmpty(h.Image, h.Images.Featured, DefaultImage),
		ImageAlt:         h.ImageAlt,
		ImageAttribution: h.ImageAttribution,
		Tags:             []string(h.Tags),
		Featured:         h.Featured,
		Content:          string(body),
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}

	if dirCategory != "" {
		post.Category = NormalizeCategory(dirCategory)
	} else {
		post.Category = NormalizeCategory(h.Category)
	}

	published, ok := parseDate(firstNonEmpty(
		string(h.PublishedAt), string(h.Date), string(h.DatePublished)))
	if ok {
		post.PublishedAt = published
	} else {
		post.PublishedAt = now
		post.DateMissing = true
	}

	if updated, ok := parseDate(firstNonEmpty(string(h.UpdatedAt), string(h.LastUpdated))); ok {
		post.UpdatedAt = &updated
	}

	post.ReadingTime = parseReadingTime(string(h.ReadingTime))
	if post.ReadingTime == 0 {
		post.ReadingTime = EstimateReadingTime(post.Content)
	}

	return post, nil
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseReadingTime reads "7" or "7 min read". Zero means unknown.
func parseReadingTime(value string) int {
	m := readingTimePattern.FindStringSubmatch(value)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
