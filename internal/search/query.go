package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a blog search.
type SearchParams struct {
	Query string
	Tag   string // restrict to posts carrying this tag
	Limit int
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is one matching post.
type SearchHit struct {
	Slug        string            `json:"slug"`
	Score       float64           `json:"score"`
	Title       string            `json:"title"`
	Excerpt     string            `json:"excerpt,omitempty"`
	Author      string            `json:"author,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query. Results are ordered by relevance, then recency.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, 0, false)
	searchRequest.SortBy([]string{"-_score", "-published_at"})
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField("title")
	searchRequest.Fields = []string{"slug", "title", "excerpt", "author", "published_at"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{Slug: hit.ID, Score: hit.Score}
		if t, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = t
		}
		if e, ok := hit.Fields["excerpt"].(string); ok {
			searchHit.Excerpt = e
		}
		if a, ok := hit.Fields["author"].(string); ok {
			searchHit.Author = a
		}
		if p, ok := hit.Fields["published_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, p); err == nil {
				searchHit.PublishedAt = t
			}
		}
		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	text := strings.TrimSpace(params.Query)
	if text != "" {
		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		excerptMatch := bleve.NewMatchQuery(text)
		excerptMatch.SetField("excerpt")
		excerptMatch.SetBoost(1.5)

		contentMatch := bleve.NewMatchQuery(text)
		contentMatch.SetField("content")

		textQueries := []query.Query{titleMatch, excerptMatch, contentMatch}

		// Typo tolerance and search-as-you-type on single words
		if !strings.ContainsAny(text, " \t") {
			fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(text))
			fuzzyQuery.SetFuzziness(1)
			fuzzyQuery.SetField("title")
			fuzzyQuery.SetBoost(0.8)
			textQueries = append(textQueries, fuzzyQuery)

			if len([]rune(text)) >= 2 {
				prefixQuery := bleve.NewPrefixQuery(strings.ToLower(text))
				prefixQuery.SetField("title")
				prefixQuery.SetBoost(0.5)
				textQueries = append(textQueries, prefixQuery)
			}
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Tag != "" {
		tq := bleve.NewTermQuery(params.Tag)
		tq.SetField("tags")
		queries = append(queries, tq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
