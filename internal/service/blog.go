package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
	"github.com/purriosity/purriosity-server/internal/search"
	"github.com/purriosity/purriosity-server/internal/sse"
	"github.com/purriosity/purriosity-server/internal/validation"
)

// excerptLength is the size of derived excerpts, in runes.
const excerptLength = 200

// maxSlugAttempts bounds the numeric suffixes tried for a generated slug.
const maxSlugAttempts = 50

// BlogListOptions filters the post list.
type BlogListOptions struct {
	Tag   string
	Limit int
}

// BlogPostView is a post prepared for reading.
type BlogPostView struct {
	domain.BlogPost
	Figures []domain.Figure `json:"figures"`
}

// BlogService serves the magazine and its admin pages. Posts are indexed
// for full-text search when an index is configured.
type BlogService struct {
	client    backend.Client
	index     *search.SearchIndex
	events    EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewBlogService creates a new blog service. index may be nil.
func NewBlogService(
	client backend.Client,
	index *search.SearchIndex,
	events EventEmitter,
	validator *validation.Validator,
	logger *slog.Logger,
) *BlogService {
	return &BlogService{
		client:    client,
		index:     index,
		events:    emitterOrNoop(events),
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns posts newest first.
func (s *BlogService) List(ctx context.Context, opts BlogListOptions) ([]domain.BlogPost, error) {
	q := backend.From(backend.TableBlogPosts).OrderBy("published_at", true)
	if opts.Tag != "" {
		q = q.Contains("tags", []string{opts.Tag})
	}
	if opts.Limit > 0 {
		q = q.Take(opts.Limit)
	}

	rows, err := s.client.Select(ctx, q)
	if err != nil {
		s.logger.Error("failed to list blog posts", "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to load blog posts")
	}
	posts := make([]domain.BlogPost, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, mapPost(r))
	}
	return posts, nil
}

// GetBySlug returns a post with its figures extracted.
func (s *BlogService) GetBySlug(ctx context.Context, postSlug string) (*BlogPostView, error) {
	post, err := s.findOne(ctx, backend.From(backend.TableBlogPosts).Eq("slug", postSlug).Take(1))
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domainerrors.NotFoundf("blog post %q not found", postSlug)
	}
	return &BlogPostView{BlogPost: *post, Figures: nonNilFigures(domain.ExtractFigures(post.Content))}, nil
}

// Search runs a full-text query over the post index.
func (s *BlogService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.index == nil {
		return nil, domainerrors.Unavailable("blog search is not available")
	}
	result, err := s.index.Search(ctx, params)
	if err != nil {
		s.logger.Error("blog search failed", "query", params.Query, "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "blog search failed")
	}
	return result, nil
}

// Create publishes a post. An empty slug is derived from the title and made
// unique; an empty excerpt is derived from the content.
func (s *BlogService) Create(ctx context.Context, input domain.BlogPostInput) (domain.BlogPost, error) {
	if err := s.validator.Validate(input); err != nil {
		return domain.BlogPost{}, err
	}

	row, err := s.postRow(ctx, "", input)
	if err != nil {
		return domain.BlogPost{}, err
	}
	if _, ok := row["published_at"]; !ok {
		row["published_at"] = s.now().UTC()
	}

	rows, err := s.client.Insert(ctx, backend.TableBlogPosts, row)
	if err != nil {
		s.logger.Error("failed to create blog post", "title", input.Title, "error", err)
		return domain.BlogPost{}, writeError(err, "failed to create blog post")
	}
	if len(rows) == 0 {
		return domain.BlogPost{}, domainerrors.Internal("backend returned no blog post")
	}

	post := mapPost(rows[0])
	s.indexPost(post)
	s.events.Emit(sse.NewBlogPostPublishedEvent(post))
	s.logger.Info("blog post created", "post_id", post.ID, "slug", post.Slug)
	return post, nil
}

// Update edits a post. The slug is kept unless one is given.
func (s *BlogService) Update(ctx context.Context, id string, input domain.BlogPostInput) (domain.BlogPost, error) {
	if err := s.validator.Validate(input); err != nil {
		return domain.BlogPost{}, err
	}

	existing, err := s.findOne(ctx, backend.From(backend.TableBlogPosts).Eq("id", id).Take(1))
	if err != nil {
		return domain.BlogPost{}, err
	}
	if existing == nil {
		return domain.BlogPost{}, domainerrors.NotFoundf("blog post %s not found", id)
	}
	if input.Slug == "" {
		input.Slug = existing.Slug
	}

	row, err := s.postRow(ctx, id, input)
	if err != nil {
		return domain.BlogPost{}, err
	}
	row["updated_at"] = s.now().UTC()

	rows, err := s.client.Update(ctx, backend.From(backend.TableBlogPosts).Eq("id", id), row)
	if err != nil {
		s.logger.Error("failed to update blog post", "post_id", id, "error", err)
		return domain.BlogPost{}, writeError(err, "failed to update blog post")
	}
	if len(rows) == 0 {
		return domain.BlogPost{}, domainerrors.NotFoundf("blog post %s not found", id)
	}

	post := mapPost(rows[0])
	if post.Slug != existing.Slug {
		s.unindexPost(existing.Slug)
	}
	s.indexPost(post)
	s.events.Emit(sse.NewBlogPostPublishedEvent(post))
	return post, nil
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string) error {
	existing, err := s.findOne(ctx, backend.From(backend.TableBlogPosts).Eq("id", id).Take(1))
	if err != nil {
		return err
	}
	if existing == nil {
		return domainerrors.NotFoundf("blog post %s not found", id)
	}
	if err := s.client.Delete(ctx, backend.From(backend.TableBlogPosts).Eq("id", id)); err != nil {
		s.logger.Error("failed to delete blog post", "post_id", id, "error", err)
		return writeError(err, "failed to delete blog post")
	}

	s.unindexPost(existing.Slug)
	s.events.Emit(sse.NewBlogPostDeletedEvent(existing.Slug))
	s.logger.Info("blog post deleted", "post_id", id, "slug", existing.Slug)
	return nil
}

// Reindex rebuilds the search index from the backend and returns the
// number of indexed posts.
func (s *BlogService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	posts, err := s.List(ctx, BlogListOptions{})
	if err != nil {
		return 0, err
	}
	docs := make([]*search.BlogDocument, len(posts))
	for i, p := range posts {
		docs[i] = search.DocumentFromPost(p)
	}
	if err := s.index.ReplaceAll(docs); err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to rebuild blog index")
	}
	s.logger.Info("blog index rebuilt", "posts", len(docs))
	return len(docs), nil
}

// postRow converts input into a blog_posts row. selfID excludes the post
// being edited from the slug uniqueness check.
func (s *BlogService) postRow(ctx context.Context, selfID string, input domain.BlogPostInput) (backend.Row, error) {
	content := input.Content
	if input.HTML != "" {
		content = htmlToMarkdown(input.HTML)
	}

	postSlug := input.Slug
	if postSlug == "" {
		base := slug.MakeLang(input.Title, "de")
		if base == "" {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
				"slug": "cannot be derived from the title",
			})
		}
		unique, err := s.uniqueSlug(ctx, base, selfID)
		if err != nil {
			return nil, err
		}
		postSlug = unique
	} else if !slug.IsSlug(postSlug) {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"slug": "must be lowercase words separated by dashes",
		})
	}

	excerpt := strings.TrimSpace(input.Excerpt)
	if excerpt == "" {
		excerpt = domain.DeriveExcerpt(content, excerptLength)
	}
	author := strings.TrimSpace(input.AuthorName)
	if author == "" {
		author = domain.DefaultAuthor
	}

	row := backend.Row{
		"title":       strings.TrimSpace(input.Title),
		"slug":        postSlug,
		"excerpt":     excerpt,
		"content":     content,
		"cover_image": input.CoverImage,
		"author_name": author,
		"tags":        nonNil(input.Tags),
	}
	if input.PublishedAt != nil {
		row["published_at"] = input.PublishedAt.UTC()
	}
	return row, nil
}

// uniqueSlug returns base, or base-2, base-3... whichever is free.
func (s *BlogService) uniqueSlug(ctx context.Context, base, selfID string) (string, error) {
	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		existing, err := s.findOne(ctx, backend.From(backend.TableBlogPosts).
			Select("id", "slug").
			Eq("slug", candidate).
			Take(1))
		if err != nil {
			return "", err
		}
		if existing == nil || existing.ID == selfID {
			return candidate, nil
		}
	}
	return "", domainerrors.Conflictf("no free slug for %q", base)
}

func (s *BlogService) findOne(ctx context.Context, q backend.Query) (*domain.BlogPost, error) {
	rows, err := s.client.Select(ctx, q)
	if err != nil {
		s.logger.Error("failed to load blog post", "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to load blog post")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	post := mapPost(rows[0])
	return &post, nil
}

func (s *BlogService) indexPost(post domain.BlogPost) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexDocument(search.DocumentFromPost(post)); err != nil {
		s.logger.Warn("failed to index blog post", "slug", post.Slug, "error", err)
	}
}

func (s *BlogService) unindexPost(postSlug string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteDocument(postSlug); err != nil {
		s.logger.Warn("failed to remove blog post from index", "slug", postSlug, "error", err)
	}
}

func mapPost(r backend.Row) domain.BlogPost {
	post := domain.BlogPost{
		ID:         r.StringOr("", "id"),
		Title:      r.StringOr("", "title"),
		Slug:       r.StringOr("", "slug"),
		Excerpt:    r.StringOr("", "excerpt"),
		Content:    r.StringOr("", "content"),
		CoverImage: r.StringOr("", "cover_image", "coverImage"),
		AuthorName: r.StringOr("", "author_name", "authorName"),
	}
	if post.AuthorName == "" {
		post.AuthorName = domain.DefaultAuthor
	}
	post.Tags, _ = r.Strings("tags")
	post.Tags = nonNil(post.Tags)
	post.PublishedAt, _ = r.Time("published_at", "publishedAt")
	return post
}

func nonNilFigures(f []domain.Figure) []domain.Figure {
	if f == nil {
		return []domain.Figure{}
	}
	return f
}
