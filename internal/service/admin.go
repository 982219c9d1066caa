package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/color"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

// AdminService gates the back-office and builds the dashboard.
type AdminService struct {
	client backend.Client
	mapper *catalog.Mapper
	logger *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(client backend.Client, mapper *catalog.Mapper, logger *slog.Logger) *AdminService {
	return &AdminService{client: client, mapper: mapper, logger: logger}
}

// Profile returns the profile of the signed-in user.
func (s *AdminService) Profile(ctx context.Context, p auth.Principal) (domain.AdminProfile, error) {
	if !p.Authenticated() {
		return domain.AdminProfile{}, domainerrors.ErrAuthRequired
	}

	rows, err := s.client.Select(ctx, backend.From(backend.TableProfiles).Eq("id", p.UserID).Take(1))
	if err != nil {
		s.logger.Error("failed to load profile", "user_id", p.UserID, "error", err)
		return domain.AdminProfile{}, writeError(err, "failed to load profile")
	}
	if len(rows) == 0 {
		return domain.AdminProfile{ID: p.UserID, Email: p.Email, AvatarColor: color.ForProfile(p.UserID)}, nil
	}

	profile := domain.AdminProfile{
		ID:    rows[0].StringOr(p.UserID, "id"),
		Email: rows[0].StringOr(p.Email, "email"),
	}
	profile.IsAdmin, _ = rows[0].Bool("is_admin")
	profile.AvatarColor = color.ForProfile(profile.ID)
	return profile, nil
}

// RequireAdmin fails unless p's profile has is_admin set.
func (s *AdminService) RequireAdmin(ctx context.Context, p auth.Principal) error {
	profile, err := s.Profile(ctx, p)
	if err != nil {
		return err
	}
	if !profile.IsAdmin {
		s.logger.Warn("admin access denied", "user_id", p.UserID)
		return domainerrors.Forbidden("admin access required")
	}
	return nil
}

// Stats summarizes the catalog. The three reads run concurrently.
func (s *AdminService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	var products []domain.Product
	var posts, admins []backend.Row

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.client.Select(gctx, backend.From(backend.TableProducts))
		if err != nil {
			return err
		}
		products = s.mapper.MapProducts(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := s.client.Select(gctx, backend.From(backend.TableBlogPosts).Select("id"))
		posts = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.client.Select(gctx, backend.From(backend.TableProfiles).Select("id").Eq("is_admin", true))
		admins = rows
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to build dashboard stats", "error", err)
		return stats, writeError(err, "failed to load dashboard stats")
	}

	stats.Products = len(products)
	for _, p := range products {
		if p.IsActive {
			stats.ActiveProducts++
		}
		stats.TotalPurrs += p.PurrCount
		stats.TotalViews += p.ViewCount
	}
	stats.BlogPosts = len(posts)
	stats.Admins = len(admins)
	return stats, nil
}
