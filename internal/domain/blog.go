package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultAuthor is used for posts without an author.
const DefaultAuthor = "Dr. Mauz"

// BlogPost is a magazine article. Content is markdown.
type BlogPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	CoverImage  string    `json:"cover_image"`
	AuthorName  string    `json:"author_name"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
}

// BlogPostInput is the admin-editable part of a post.
// Either Content (markdown) or HTML may be supplied; HTML is converted.
type BlogPostInput struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Slug        string     `json:"slug,omitempty" validate:"omitempty,max=200"`
	Excerpt     string     `json:"excerpt,omitempty" validate:"max=500"`
	Content     string     `json:"content,omitempty"`
	HTML        string     `json:"html,omitempty"`
	CoverImage  string     `json:"cover_image,omitempty"`
	AuthorName  string     `json:"author_name,omitempty" validate:"max=100"`
	Tags        []string   `json:"tags,omitempty" validate:"max=30,dive,notblank"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Figure is an image embedded in post content, with the optional caption
// written as an italic line directly below it.
type Figure struct {
	Alt     string `json:"alt"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

var (
	imageLine   = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)$`)
	captionLine = regexp.MustCompile(`^[*_]([^*_].*?)[*_]$`)
	inlineLink  = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	markupChars = regexp.MustCompile("[#>*_`]")
)

// ExtractFigures returns the images in content in order of appearance.
func ExtractFigures(content string) []Figure {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var figures []Figure
	for i := 0; i < len(lines); i++ {
		m := imageLine.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		fig := Figure{Alt: m[1], URL: m[2]}
		if i+1 < len(lines) {
			if c := captionLine.FindStringSubmatch(strings.TrimSpace(lines[i+1])); c != nil {
				fig.Caption = c[1]
				i++
			}
		}
		figures = append(figures, fig)
	}
	return figures
}

// DeriveExcerpt builds a plain-text excerpt of at most maxRunes runes from
// markdown, cutting at a word boundary and appending "…" when shortened.
func DeriveExcerpt(content string, maxRunes int) string {
	var paragraphs []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || imageLine.MatchString(line) || captionLine.MatchString(line) {
			continue
		}
		paragraphs = append(paragraphs, line)
	}
	text := inlineLink.ReplaceAllString(strings.Join(paragraphs, " "), "$1")
	text = strings.Join(strings.Fields(markupChars.ReplaceAllString(text, "")), " ")

	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)[:maxRunes]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
