package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/domain"
	"github.com/purriosity/purriosity-server/internal/sse"
)

// PurrOutcome is the result of a purr toggle.
type PurrOutcome struct {
	Result domain.ToggleResult `json:"result"`
	Liked  bool                `json:"liked"`
	Count  int                 `json:"count"`
}

type purrKey struct {
	productID string
	userID    string
}

// PurrService toggles product likes. A toggle reads the caller's current
// state, flips it optimistically, writes product_likes, then re-reads
// products.purr_count and broadcasts the reconciled count to every
// subscriber of the product. Only running toggles are tracked.
type PurrService struct {
	client backend.Client
	events EventEmitter
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[purrKey]struct{}
}

// NewPurrService creates a new purr service.
func NewPurrService(client backend.Client, events EventEmitter, logger *slog.Logger) *PurrService {
	return &PurrService{
		client:   client,
		events:   emitterOrNoop(events),
		logger:   logger,
		inFlight: make(map[purrKey]struct{}),
	}
}

// State returns whether p likes the product and its current count.
// Anonymous callers always see liked=false.
func (s *PurrService) State(ctx context.Context, p auth.Principal, productID string) (domain.PurrState, error) {
	count, err := s.readCount(ctx, productID)
	if err != nil {
		return domain.PurrState{}, writeError(err, "failed to load purr count")
	}
	state := domain.PurrState{ProductID: productID, Count: count}
	if !p.Authenticated() {
		return state, nil
	}

	liked, err := s.readLiked(ctx, p.UserID, productID)
	if err != nil {
		return domain.PurrState{}, writeError(err, "failed to load purr state")
	}
	state.Liked = liked
	return state, nil
}

// Toggle likes or unlikes productID for p.
//
// Anonymous callers get ResultAuthRequired and nothing is written. A second
// toggle while one is still running for the same user and product gets
// ResultError. A failed write reports the previous state.
func (s *PurrService) Toggle(ctx context.Context, p auth.Principal, productID string) PurrOutcome {
	if !p.Authenticated() {
		return PurrOutcome{Result: domain.ResultAuthRequired}
	}
	key := purrKey{productID, p.UserID}
	if !s.begin(key) {
		return PurrOutcome{Result: domain.ResultError}
	}
	defer s.finish(key)

	prevLiked, err := s.readLiked(ctx, p.UserID, productID)
	if err != nil {
		s.logger.Warn("failed to load purr state", "product_id", productID, "error", err)
		return PurrOutcome{Result: domain.ResultError}
	}
	prevCount, err := s.readCount(ctx, productID)
	if err != nil {
		s.logger.Warn("failed to load purr count", "product_id", productID, "error", err)
		return PurrOutcome{Result: domain.ResultError, Liked: prevLiked}
	}

	liked := !prevLiked
	optimistic := max(0, prevCount+delta(liked))

	if liked {
		_, err = s.client.Insert(ctx, backend.TableProductLikes, backend.Row{
			"user_id":    p.UserID,
			"product_id": productID,
		})
	} else {
		err = s.client.Delete(ctx, backend.From(backend.TableProductLikes).
			Eq("user_id", p.UserID).
			Eq("product_id", productID))
	}
	if err != nil {
		s.logger.Warn("purr toggle failed, rolling back",
			"product_id", productID,
			"liked", liked,
			"error", err,
		)
		return PurrOutcome{Result: domain.ResultError, Liked: prevLiked, Count: prevCount}
	}

	count, err := s.readCount(ctx, productID)
	if err != nil {
		s.logger.Warn("failed to re-read purr count, keeping optimistic value",
			"product_id", productID,
			"error", err,
		)
		count = optimistic
	}

	s.events.Emit(sse.NewPurrUpdatedEvent(domain.PurrUpdate{
		ProductID: productID,
		UserID:    p.UserID,
		Liked:     liked,
		Count:     count,
	}))

	result := domain.ResultUnliked
	if liked {
		result = domain.ResultLiked
	}
	return PurrOutcome{Result: result, Liked: liked, Count: count}
}

// begin marks key as in flight. It reports false when a toggle for key is
// already running.
func (s *PurrService) begin(key purrKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *PurrService) finish(key purrKey) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func (s *PurrService) readLiked(ctx context.Context, userID, productID string) (bool, error) {
	rows, err := s.client.Select(ctx, backend.From(backend.TableProductLikes).
		Select("product_id").
		Eq("product_id", productID).
		Eq("user_id", userID).
		Take(1))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (s *PurrService) readCount(ctx context.Context, productID string) (int, error) {
	rows, err := s.client.Select(ctx, backend.From(backend.TableProducts).
		Select("purr_count").
		Eq("id", productID).
		Take(1))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := rows[0].NumberStrict("purr_count")
	return int(n), nil
}

func delta(liked bool) int {
	if liked {
		return 1
	}
	return -1
}

// PurrView is an in-process subscriber for one product's purr state, for
// code embedding the services without going through the HTTP event stream.
// It keeps its count in step with toggles made anywhere in the process by
// listening to purr.updated events for its product. Close releases the
// subscription.
type PurrView struct {
	service   *PurrService
	bus       Subscriber
	principal auth.Principal
	productID string
	client    *sse.Client

	mu    sync.RWMutex
	liked bool
	count int

	done      chan struct{}
	closeOnce sync.Once
}

// NewView subscribes a view of productID for p, starting from initialCount.
func (s *PurrService) NewView(bus Subscriber, p auth.Principal, productID string, initialCount int) (*PurrView, error) {
	client, err := bus.Connect(sse.ConnectOptions{ProductIDs: []string{productID}, Buffer: 16})
	if err != nil {
		return nil, err
	}
	v := &PurrView{
		service:   s,
		bus:       bus,
		principal: p,
		productID: productID,
		client:    client,
		count:     initialCount,
		done:      make(chan struct{}),
	}
	go v.listen()
	return v, nil
}

// listen applies purr updates until the subscription is closed.
func (v *PurrView) listen() {
	defer close(v.done)
	for event := range v.client.EventChan {
		update, ok := event.Data.(domain.PurrUpdate)
		if event.Type != sse.EventPurrUpdated || !ok || update.ProductID != v.productID {
			continue
		}
		v.mu.Lock()
		v.count = update.Count
		if update.UserID == v.principal.UserID {
			v.liked = update.Liked
		}
		v.mu.Unlock()
	}
}

// Load reads the current state from the backend.
func (v *PurrView) Load(ctx context.Context) error {
	state, err := v.service.State(ctx, v.principal, v.productID)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.liked, v.count = state.Liked, state.Count
	v.mu.Unlock()
	return nil
}

// Toggle toggles the purr. The view's own state follows the outcome
// immediately; other views catch up through the broadcast.
func (v *PurrView) Toggle(ctx context.Context) PurrOutcome {
	out := v.service.Toggle(ctx, v.principal, v.productID)
	if out.Result == domain.ResultLiked || out.Result == domain.ResultUnliked {
		v.mu.Lock()
		v.liked, v.count = out.Liked, out.Count
		v.mu.Unlock()
	}
	return out
}

// State returns what the view currently shows.
func (v *PurrView) State() domain.PurrState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.PurrState{ProductID: v.productID, Liked: v.liked, Count: v.count}
}

// Close unsubscribes the view and waits for its listener to exit.
func (v *PurrView) Close() {
	v.closeOnce.Do(func() {
		v.bus.Disconnect(v.client.ID)
		<-v.done
	})
}
