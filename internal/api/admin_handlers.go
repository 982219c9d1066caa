package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
	"github.com/purriosity/purriosity-server/internal/media"
)

func (s *Server) registerAdminRoutes() {
	adminOp := func(id, method, path, summary, description string) huma.Operation {
		return huma.Operation{
			OperationID: id,
			Method:      method,
			Path:        path,
			Summary:     summary,
			Description: description,
			Tags:        []string{"Admin"},
			Security:    []map[string][]string{{"bearer": {}}},
		}
	}

	huma.Register(s.api, adminOp("getAdminProfile", http.MethodGet, "/api/v1/admin/me",
		"Get own profile", "Returns the caller's profile, including whether they are an admin"), s.handleAdminProfile)
	huma.Register(s.api, adminOp("getDashboardStats", http.MethodGet, "/api/v1/admin/stats",
		"Dashboard stats", "Returns catalog counters for the admin dashboard"), s.handleDashboardStats)

	// Products
	huma.Register(s.api, adminOp("adminListProducts", http.MethodGet, "/api/v1/admin/products",
		"List all products", "Returns every product including inactive ones, newest first"), s.handleAdminListProducts)
	huma.Register(s.api, adminOp("adminGetProduct", http.MethodGet, "/api/v1/admin/products/{id}",
		"Get any product", "Returns a product regardless of is_active"), s.handleAdminGetProduct)
	huma.Register(s.api, adminOp("adminCreateProduct", http.MethodPost, "/api/v1/admin/products",
		"Create product", "Creates a product"), s.handleAdminCreateProduct)
	huma.Register(s.api, adminOp("adminUpdateProduct", http.MethodPut, "/api/v1/admin/products/{id}",
		"Update product", "Replaces the editable fields of a product"), s.handleAdminUpdateProduct)
	huma.Register(s.api, adminOp("adminDeleteProduct", http.MethodDelete, "/api/v1/admin/products/{id}",
		"Delete product", "Deletes a product"), s.handleAdminDeleteProduct)

	// Blog
	huma.Register(s.api, adminOp("adminCreateBlogPost", http.MethodPost, "/api/v1/admin/blog",
		"Create blog post", "Publishes a post. Slug and excerpt are derived when empty; html is converted to markdown"),
		s.handleAdminCreateBlogPost)
	huma.Register(s.api, adminOp("adminUpdateBlogPost", http.MethodPut, "/api/v1/admin/blog/{id}",
		"Update blog post", "Edits a post; the slug is kept unless one is given"), s.handleAdminUpdateBlogPost)
	huma.Register(s.api, adminOp("adminDeleteBlogPost", http.MethodDelete, "/api/v1/admin/blog/{id}",
		"Delete blog post", "Deletes a post"), s.handleAdminDeleteBlogPost)
	huma.Register(s.api, adminOp("adminReindexBlog", http.MethodPost, "/api/v1/admin/blog/reindex",
		"Rebuild blog index", "Rebuilds the full-text index from the backend"), s.handleAdminReindexBlog)

	// Categories
	huma.Register(s.api, adminOp("adminListCategories", http.MethodGet, "/api/v1/admin/categories",
		"List categories", "Returns categories and whether the built-in fallback list is shown"), s.handleAdminListCategories)
	huma.Register(s.api, adminOp("adminCreateCategory", http.MethodPost, "/api/v1/admin/categories",
		"Add category", "Appends a category after the existing ones"), s.handleAdminCreateCategory)
	huma.Register(s.api, adminOp("adminUpdateCategory", http.MethodPut, "/api/v1/admin/categories/{id}",
		"Update category", "Renames a category or changes its emoji"), s.handleAdminUpdateCategory)
	huma.Register(s.api, adminOp("adminDeleteCategory", http.MethodDelete, "/api/v1/admin/categories/{id}",
		"Delete category", "Deletes a category"), s.handleAdminDeleteCategory)
	huma.Register(s.api, adminOp("adminReorderCategories", http.MethodPut, "/api/v1/admin/categories/order",
		"Reorder categories", "Writes display_order for each id in the given order, stopping at the first failure"),
		s.handleAdminReorderCategories)

	// Media
	upload := adminOp("adminUploadImage", http.MethodPost, "/api/v1/admin/uploads/{folder}",
		"Upload image", "Stores a JPEG, PNG, GIF or WebP image and returns its public URL")
	upload.MaxBodyBytes = MaxUploadSize
	huma.Register(s.api, upload, s.handleAdminUpload)
}

// === DTOs ===

// AdminProfileOutput wraps the caller's profile for Huma.
type AdminProfileOutput struct {
	Body domain.AdminProfile
}

// DashboardStatsOutput wraps dashboard stats for Huma.
type DashboardStatsOutput struct {
	Body domain.DashboardStats
}

// ProductRequest is the request body for creating or updating a product.
type ProductRequest struct {
	Title            string   `json:"title" minLength:"1" maxLength:"200" doc:"Product title"`
	Description      string   `json:"description,omitempty" doc:"Long description"`
	ShortDescription string   `json:"short_description,omitempty" maxLength:"300" doc:"Teaser shown on cards"`
	Images           []string `json:"images,omitempty" maxItems:"20" doc:"Image URLs, first is the cover"`
	Price            float64  `json:"price,omitempty" minimum:"0" doc:"Price"`
	Currency         string   `json:"currency,omitempty" doc:"ISO currency code (default EUR)"`
	AffiliateURL     string   `json:"affiliate_url,omitempty" doc:"Shop link"`
	StarRating       float64  `json:"star_rating,omitempty" minimum:"0" maximum:"5" doc:"Rating from 0 to 5"`
	Tags             []string `json:"tags,omitempty" maxItems:"30" doc:"Tags"`
	Categories       []string `json:"categories,omitempty" maxItems:"30" doc:"Category names"`
	IsActive         *bool    `json:"is_active,omitempty" doc:"Whether the product is listed"`
}

func (r ProductRequest) toInput() domain.ProductInput {
	return domain.ProductInput{
		Title:            r.Title,
		Description:      r.Description,
		ShortDescription: r.ShortDescription,
		Images:           r.Images,
		Price:            r.Price,
		Currency:         r.Currency,
		AffiliateURL:     r.AffiliateURL,
		StarRating:       r.StarRating,
		Tags:             r.Tags,
		Categories:       r.Categories,
		IsActive:         r.IsActive,
	}
}

// CreateProductInput wraps the create product request for Huma.
type CreateProductInput struct {
	Body ProductRequest
}

// UpdateProductInput wraps the update product request for Huma.
type UpdateProductInput struct {
	ID   string `path:"id" doc:"Product ID"`
	Body ProductRequest
}

// AdminProductInput identifies a product.
type AdminProductInput struct {
	ID string `path:"id" doc:"Product ID"`
}

// AdminProductsOutput wraps the full product list for Huma.
type AdminProductsOutput struct {
	Body []domain.Product
}

// AdminProductOutput wraps a product for Huma.
type AdminProductOutput struct {
	Body domain.Product
}

// BlogPostRequest is the request body for creating or updating a post.
type BlogPostRequest struct {
	Title       string     `json:"title" minLength:"1" maxLength:"200" doc:"Post title"`
	Slug        string     `json:"slug,omitempty" maxLength:"200" doc:"URL slug; derived from the title when empty"`
	Excerpt     string     `json:"excerpt,omitempty" maxLength:"500" doc:"Teaser; derived from the content when empty"`
	Content     string     `json:"content,omitempty" doc:"Markdown body"`
	HTML        string     `json:"html,omitempty" doc:"HTML body, converted to markdown"`
	CoverImage  string     `json:"cover_image,omitempty" doc:"Cover image URL"`
	AuthorName  string     `json:"author_name,omitempty" maxLength:"100" doc:"Author (default Dr. Mauz)"`
	Tags        []string   `json:"tags,omitempty" maxItems:"30" doc:"Tags"`
	PublishedAt *time.Time `json:"published_at,omitempty" doc:"Publication time (default now)"`
}

func (r BlogPostRequest) toInput() domain.BlogPostInput {
	return domain.BlogPostInput{
		Title:       r.Title,
		Slug:        r.Slug,
		Excerpt:     r.Excerpt,
		Content:     r.Content,
		HTML:        r.HTML,
		CoverImage:  r.CoverImage,
		AuthorName:  r.AuthorName,
		Tags:        r.Tags,
		PublishedAt: r.PublishedAt,
	}
}

// CreateBlogPostInput wraps the create post request for Huma.
type CreateBlogPostInput struct {
	Body BlogPostRequest
}

// UpdateBlogPostInput wraps the update post request for Huma.
type UpdateBlogPostInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body BlogPostRequest
}

// AdminBlogPostInput identifies a post.
type AdminBlogPostInput struct {
	ID string `path:"id" doc:"Post ID"`
}

// AdminBlogPostOutput wraps a post for Huma.
type AdminBlogPostOutput struct {
	Body domain.BlogPost
}

// ReindexResponse reports an index rebuild.
type ReindexResponse struct {
	Indexed int `json:"indexed" doc:"Number of posts indexed"`
}

// ReindexOutput wraps the reindex result for Huma.
type ReindexOutput struct {
	Body ReindexResponse
}

// CategoryRequest is the request body for creating or updating a category.
type CategoryRequest struct {
	Name  string `json:"name" minLength:"1" maxLength:"40" doc:"Category name"`
	Emoji string `json:"emoji" minLength:"1" doc:"Chip emoji"`
}

// CreateCategoryInput wraps the create category request for Huma.
type CreateCategoryInput struct {
	Body CategoryRequest
}

// UpdateCategoryInput wraps the update category request for Huma.
type UpdateCategoryInput struct {
	ID   string `path:"id" doc:"Category ID"`
	Body CategoryRequest
}

// AdminCategoryInput identifies a category.
type AdminCategoryInput struct {
	ID string `path:"id" doc:"Category ID"`
}

// CategoryOutput wraps a category for Huma.
type CategoryOutput struct {
	Body domain.Category
}

// ReorderCategoriesRequest lists category ids in their new order.
type ReorderCategoriesRequest struct {
	IDs []string `json:"ids" minItems:"1" doc:"Category IDs in display order"`
}

// ReorderCategoriesInput wraps the reorder request for Huma.
type ReorderCategoriesInput struct {
	Body ReorderCategoriesRequest
}

// ReorderResponse reports how many categories were written.
type ReorderResponse struct {
	Written int `json:"written" doc:"Number of categories updated"`
}

// ReorderOutput wraps the reorder result for Huma.
type ReorderOutput struct {
	Body ReorderResponse
}

// UploadImageInput contains the image upload request.
type UploadImageInput struct {
	Folder      string `path:"folder" enum:"blog,products" doc:"Target folder"`
	ContentType string `header:"Content-Type" doc:"Image content type"`
	RawBody     []byte
}

// UploadOutput wraps the stored upload for Huma.
type UploadOutput struct {
	Body *media.Upload
}

// MessageResponse is a generic confirmation.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps a confirmation for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleAdminProfile(ctx context.Context, _ *struct{}) (*AdminProfileOutput, error) {
	p, err := s.requireUser(ctx, "/admin", "/admin")
	if err != nil {
		return nil, err
	}
	profile, err := s.services.Admin.Profile(ctx, p)
	if err != nil {
		return nil, err
	}
	return &AdminProfileOutput{Body: profile}, nil
}

func (s *Server) handleDashboardStats(ctx context.Context, _ *struct{}) (*DashboardStatsOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := s.services.Admin.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardStatsOutput{Body: stats}, nil
}

func (s *Server) handleAdminListProducts(ctx context.Context, _ *struct{}) (*AdminProductsOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	products, err := s.services.Products.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminProductsOutput{Body: products}, nil
}

func (s *Server) handleAdminGetProduct(ctx context.Context, input *AdminProductInput) (*AdminProductOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	product, err := s.services.Products.GetAny(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &AdminProductOutput{Body: product}, nil
}

func (s *Server) handleAdminCreateProduct(ctx context.Context, input *CreateProductInput) (*AdminProductOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	product, err := s.services.Products.Create(ctx, input.Body.toInput())
	if err != nil {
		return nil, err
	}
	s.logAdminAction(p, "product.create", product.ID)
	return &AdminProductOutput{Body: product}, nil
}

func (s *Server) handleAdminUpdateProduct(ctx context.Context, input *UpdateProductInput) (*AdminProductOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	product, err := s.services.Products.Update(ctx, input.ID, input.Body.toInput())
	if err != nil {
		return nil, err
	}
	s.logAdminAction(p, "product.update", product.ID)
	return &AdminProductOutput{Body: product}, nil
}

func (s *Server) handleAdminDeleteProduct(ctx context.Context, input *AdminProductInput) (*MessageOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Products.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	s.logAdminAction(p, "product.delete", input.ID)
	return &MessageOutput{Body: MessageResponse{Message: "Product deleted"}}, nil
}

func (s *Server) handleAdminCreateBlogPost(ctx context.Context, input *CreateBlogPostInput) (*AdminBlogPostOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	post, err := s.services.Blog.Create(ctx, input.Body.toInput())
	if err != nil {
		return nil, err
	}
	s.logAdminAction(p, "blog.create", post.ID)
	return &AdminBlogPostOutput{Body: post}, nil
}

func (s *Server) handleAdminUpdateBlogPost(ctx context.Context, input *UpdateBlogPostInput) (*AdminBlogPostOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	post, err := s.services.Blog.Update(ctx, input.ID, input.Body.toInput())
	if err != nil {
		return nil, err
	}
	s.logAdminAction(p, "blog.update", post.ID)
	return &AdminBlogPostOutput{Body: post}, nil
}

func (s *Server) handleAdminDeleteBlogPost(ctx context.Context, input *AdminBlogPostInput) (*MessageOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Blog.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	s.logAdminAction(p, "blog.delete", input.ID)
	return &MessageOutput{Body: MessageResponse{Message: "Blog post deleted"}}, nil
}

func (s *Server) handleAdminReindexBlog(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.services.Blog.Reindex(ctx)
	if err != nil {
		return nil, err
	}
	s.logAdminAction(p, "blog.reindex", "")
	return &ReindexOutput{Body: ReindexResponse{Indexed: n}}, nil
}

func (s *Server) handleAdminListCategories(ctx context.Context, _ *struct{}) (*CategoriesOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return &CategoriesOutput{Body: s.services.Categories.List(ctx)}, nil
}

func (s *Server) handleAdminCreateCategory(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	category, err := s.services.Categories.Add(ctx, domain.CategoryInput{Name: input.Body.Name, Emoji: input.Body.Emoji})
	if err != nil {
		return nil, err
	}
	s.logAdminAction(p, "category.create", category.ID)
	return &CategoryOutput{Body: category}, nil
}

func (s *Server) handleAdminUpdateCategory(ctx context.Context, input *UpdateCategoryInput) (*CategoryOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	category, err := s.services.Categories.Update(ctx, input.ID, domain.CategoryInput{Name: input.Body.Name, Emoji: input.Body.Emoji})
	if err != nil {
		return nil, err
	}
	s.logAdminAction(p, "category.update", category.ID)
	return &CategoryOutput{Body: category}, nil
}

func (s *Server) handleAdminDeleteCategory(ctx context.Context, input *AdminCategoryInput) (*MessageOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Categories.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	s.logAdminAction(p, "category.delete", input.ID)
	return &MessageOutput{Body: MessageResponse{Message: "Category deleted"}}, nil
}

func (s *Server) handleAdminReorderCategories(ctx context.Context, input *ReorderCategoriesInput) (*ReorderOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	written, err := s.services.Categories.Reorder(ctx, input.Body.IDs)
	if err != nil {
		// Earlier writes stay; tell the client how far the reorder got.
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) && written > 0 {
			return nil, domainErr.WithDetails(map[string]int{"written": written})
		}
		return nil, err
	}
	s.logAdminAction(p, "category.reorder", "")
	return &ReorderOutput{Body: ReorderResponse{Written: written}}, nil
}

func (s *Server) handleAdminUpload(ctx context.Context, input *UploadImageInput) (*UploadOutput, error) {
	p, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if s.services.Uploader == nil {
		s.countUpload(input.Folder, "unavailable")
		return nil, domainerrors.Unavailable("uploads are not configured")
	}

	upload, err := s.services.Uploader.Upload(ctx, media.Folder(input.Folder), input.RawBody)
	if err != nil {
		s.countUpload(input.Folder, "failed")
		return nil, err
	}
	s.countUpload(input.Folder, "stored")
	s.logAdminAction(p, "media.upload", upload.Key)
	return &UploadOutput{Body: upload}, nil
}

func (s *Server) countUpload(folder, outcome string) {
	if s.infra.Metrics != nil {
		s.infra.Metrics.Uploads.WithLabelValues(folder, outcome).Inc()
	}
}

func (s *Server) logAdminAction(p auth.Principal, action, target string) {
	s.logger.Info("admin action",
		"action", action,
		"target", target,
		"user_id", p.UserID,
	)
}

// handleServeMedia serves uploads stored on local disk.
func (s *Server) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	path, err := s.infra.LocalMedia.Path(chi.URLParam(r, "*"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", CacheOneWeek)
	http.ServeFile(w, r, path)
}
