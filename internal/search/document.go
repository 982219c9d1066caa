// Package search provides the blog full-text index (Bleve) and the
// debouncer used for search-as-you-type.
package search

import (
	"time"

	"github.com/purriosity/purriosity-server/internal/domain"
)

// BlogDocument is the indexed form of a blog post. The slug is the document id.
type BlogDocument struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Content     string    `json:"content,omitempty"`
	Author      string    `json:"author,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// DocumentFromPost builds the index document for post.
func DocumentFromPost(post domain.BlogPost) *BlogDocument {
	return &BlogDocument{
		Slug:        post.Slug,
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		Content:     post.Content,
		Author:      post.AuthorName,
		Tags:        post.Tags,
		PublishedAt: post.PublishedAt,
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *BlogDocument) ToMap() map[string]any {
	m := map[string]any{
		"slug":         d.Slug,
		"title":        d.Title,
		"published_at": d.PublishedAt,
	}
	if d.Excerpt != "" {
		m["excerpt"] = d.Excerpt
	}
	if d.Content != "" {
		m["content"] = d.Content
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
