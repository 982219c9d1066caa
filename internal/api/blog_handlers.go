package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/purriosity/purriosity-server/internal/domain"
	"github.com/purriosity/purriosity-server/internal/search"
	"github.com/purriosity/purriosity-server/internal/service"
)

func (s *Server) registerBlogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBlogPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/blog",
		Summary:     "List blog posts",
		Description: "Returns magazine posts, newest first",
		Tags:        []string{"Blog"},
	}, s.handleListBlogPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBlogPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/blog/search",
		Summary:     "Search blog posts",
		Description: "Full-text search over titles, excerpts and content",
		Tags:        []string{"Blog"},
	}, s.handleSearchBlogPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBlogPost",
		Method:      http.MethodGet,
		Path:        "/api/v1/blog/{slug}",
		Summary:     "Get blog post",
		Description: "Returns a post with the figures embedded in its content",
		Tags:        []string{"Blog"},
	}, s.handleGetBlogPost)
}

// === DTOs ===

// ListBlogPostsInput contains parameters for listing posts.
type ListBlogPostsInput struct {
	Tag   string `query:"tag" doc:"Only posts carrying this tag"`
	Limit int    `query:"limit" minimum:"0" maximum:"500" doc:"Maximum posts to return; 0 for all"`
}

// BlogPostsOutput wraps a post list for Huma.
type BlogPostsOutput struct {
	Body []domain.BlogPost
}

// GetBlogPostInput contains parameters for getting a post.
type GetBlogPostInput struct {
	Slug string `path:"slug" doc:"Post slug"`
}

// BlogPostOutput wraps a post for reading for Huma.
type BlogPostOutput struct {
	Body *service.BlogPostView
}

// SearchBlogPostsInput contains parameters for blog search.
type SearchBlogPostsInput struct {
	Query string `query:"q" maxLength:"200" doc:"Search query"`
	Tag   string `query:"tag" doc:"Only posts carrying this tag"`
	Limit int    `query:"limit" minimum:"0" maximum:"100" doc:"Maximum hits (default 10)"`
}

// BlogSearchOutput wraps blog search results for Huma.
type BlogSearchOutput struct {
	Body *search.SearchResult
}

// === Handlers ===

func (s *Server) handleListBlogPosts(ctx context.Context, input *ListBlogPostsInput) (*BlogPostsOutput, error) {
	posts, err := s.services.Blog.List(ctx, service.BlogListOptions{Tag: input.Tag, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return &BlogPostsOutput{Body: posts}, nil
}

func (s *Server) handleGetBlogPost(ctx context.Context, input *GetBlogPostInput) (*BlogPostOutput, error) {
	view, err := s.services.Blog.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	return &BlogPostOutput{Body: view}, nil
}

func (s *Server) handleSearchBlogPosts(ctx context.Context, input *SearchBlogPostsInput) (*BlogSearchOutput, error) {
	result, err := s.services.Blog.Search(ctx, search.SearchParams{
		Query: input.Query,
		Tag:   input.Tag,
		Limit: input.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &BlogSearchOutput{Body: result}, nil
}
