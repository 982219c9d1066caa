package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/domain"
)

// SaveOutcome is the result of a save toggle.
type SaveOutcome struct {
	Result domain.ToggleResult `json:"result"`
	Saved  bool                `json:"saved"`
}

const (
	// savedSessionTTL is how long an unused session set stays cached.
	savedSessionTTL = 30 * time.Minute
	// maxSavedSessions caps the cache; the least recently used set goes first.
	maxSavedSessions = 10000
)

// savedSet is one session's saved product ids.
type savedSet struct {
	mu     sync.Mutex
	loaded bool
	ids    map[string]struct{}

	lastSeen time.Time // guarded by SavedService.mu
}

// SavedService manages per-user bookmarks. The set is read from the backend
// once per sign-in session and cached; a toggle changes the cache only after
// the backend write succeeded. Sets unused for savedSessionTTL are dropped
// and read again on the next request.
type SavedService struct {
	client backend.Client
	mapper *catalog.Mapper
	logger *slog.Logger

	mu          sync.Mutex
	sessions    map[string]*savedSet
	ttl         time.Duration
	maxSessions int
	lastSweep   time.Time
	now         func() time.Time
}

// NewSavedService creates a new saved products service.
func NewSavedService(client backend.Client, mapper *catalog.Mapper, logger *slog.Logger) *SavedService {
	return &SavedService{
		client:   client,
		mapper:   mapper,
		logger:   logger,
		sessions:    make(map[string]*savedSet),
		ttl:         savedSessionTTL,
		maxSessions: maxSavedSessions,
		now:         time.Now,
	}
}

// SavedIDs returns the ids p has saved, in no particular order.
// Anonymous callers have none.
func (s *SavedService) SavedIDs(ctx context.Context, p auth.Principal) ([]string, error) {
	if !p.Authenticated() {
		return []string{}, nil
	}
	set := s.session(p)
	set.mu.Lock()
	defer set.mu.Unlock()
	if err := s.ensureLoaded(ctx, p, set); err != nil {
		return nil, writeError(err, "failed to load saved products")
	}
	ids := make([]string, 0, len(set.ids))
	for id := range set.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// IsSaved reports whether p saved productID.
func (s *SavedService) IsSaved(ctx context.Context, p auth.Principal, productID string) (bool, error) {
	if !p.Authenticated() {
		return false, nil
	}
	set := s.session(p)
	set.mu.Lock()
	defer set.mu.Unlock()
	if err := s.ensureLoaded(ctx, p, set); err != nil {
		return false, writeError(err, "failed to load saved products")
	}
	_, ok := set.ids[productID]
	return ok, nil
}

// Toggle saves or un-saves productID for p.
func (s *SavedService) Toggle(ctx context.Context, p auth.Principal, productID string) SaveOutcome {
	if !p.Authenticated() {
		return SaveOutcome{Result: domain.ResultAuthRequired}
	}

	set := s.session(p)
	set.mu.Lock()
	defer set.mu.Unlock()

	if err := s.ensureLoaded(ctx, p, set); err != nil {
		s.logger.Warn("failed to load saved products", "user_id", p.UserID, "error", err)
		return SaveOutcome{Result: domain.ResultError}
	}

	_, saved := set.ids[productID]
	var err error
	if saved {
		err = s.client.Delete(ctx, backend.From(backend.TableProductSaves).
			Eq("user_id", p.UserID).
			Eq("product_id", productID))
	} else {
		_, err = s.client.Insert(ctx, backend.TableProductSaves, backend.Row{
			"user_id":    p.UserID,
			"product_id": productID,
		})
	}
	if err != nil {
		s.logger.Warn("save toggle failed",
			"user_id", p.UserID,
			"product_id", productID,
			"error", err,
		)
		return SaveOutcome{Result: domain.ResultError, Saved: saved}
	}

	if saved {
		delete(set.ids, productID)
		return SaveOutcome{Result: domain.ResultRemoved, Saved: false}
	}
	set.ids[productID] = struct{}{}
	return SaveOutcome{Result: domain.ResultSaved, Saved: true}
}

// ListSavedProducts returns p's saved active products, most recently saved first.
func (s *SavedService) ListSavedProducts(ctx context.Context, p auth.Principal) ([]domain.Product, error) {
	if !p.Authenticated() {
		return []domain.Product{}, nil
	}

	saves, err := s.client.Select(ctx, backend.From(backend.TableProductSaves).
		Select("product_id", "created_at").
		Eq("user_id", p.UserID).
		OrderBy("created_at", true))
	if err != nil {
		s.logger.Error("failed to list saved products", "user_id", p.UserID, "error", err)
		return nil, writeError(err, "failed to load saved products")
	}
	if len(saves) == 0 {
		return []domain.Product{}, nil
	}

	ids := make([]string, 0, len(saves))
	for _, r := range saves {
		if id, ok := r.String("product_id"); ok {
			ids = append(ids, id)
		}
	}

	rows, err := s.client.Select(ctx, backend.From(backend.TableProducts).In("id", ids))
	if err != nil {
		s.logger.Error("failed to load saved products", "user_id", p.UserID, "error", err)
		return nil, writeError(err, "failed to load saved products")
	}

	byID := make(map[string]domain.Product, len(rows))
	for _, prod := range s.mapper.MapActive(rows) {
		byID[prod.ID] = prod
	}
	out := make([]domain.Product, 0, len(byID))
	for _, id := range ids {
		if prod, ok := byID[id]; ok {
			out = append(out, prod)
		}
	}
	return out, nil
}

func (s *SavedService) session(p auth.Principal) *savedSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := p.SessionKey()
	set, ok := s.sessions[key]
	if !ok {
		s.evictLocked(now)
		set = &savedSet{ids: make(map[string]struct{})}
		s.sessions[key] = set
	}
	set.lastSeen = now
	return set
}

// evictLocked drops idle sets, at most once per half TTL, and makes room
// for one more set when the cache is full. Callers hold s.mu.
func (s *SavedService) evictLocked(now time.Time) {
	if now.Sub(s.lastSweep) >= s.ttl/2 {
		s.lastSweep = now
		cutoff := now.Add(-s.ttl)
		for key, set := range s.sessions {
			if set.lastSeen.Before(cutoff) {
				delete(s.sessions, key)
			}
		}
	}
	for len(s.sessions) >= s.maxSessions && len(s.sessions) > 0 {
		var oldestKey string
		var oldest time.Time
		for key, set := range s.sessions {
			if oldestKey == "" || set.lastSeen.Before(oldest) {
				oldestKey, oldest = key, set.lastSeen
			}
		}
		delete(s.sessions, oldestKey)
	}
}

// Len returns the number of cached session sets.
func (s *SavedService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ensureLoaded reads the set once. Callers hold set.mu.
func (s *SavedService) ensureLoaded(ctx context.Context, p auth.Principal, set *savedSet) error {
	if set.loaded {
		return nil
	}
	rows, err := s.client.Select(ctx, backend.From(backend.TableProductSaves).
		Select("product_id").
		Eq("user_id", p.UserID))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if id, ok := r.String("product_id"); ok {
			set.ids[id] = struct{}{}
		}
	}
	set.loaded = true
	return nil
}
