// Package state is the app state container. It owns the in-memory copy of
// the signed-in user's profile, keeps it in sync with the document store and
// publishes every change to subscribers and the SSE stream.
package state

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cinewatch/cinewatch/internal/auth"
	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/domain"
	"github.com/cinewatch/cinewatch/internal/sse"
)

// EventEmitter is the interface for emitting SSE events.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// Catalog resolves display metadata for a title.
type Catalog interface {
	Title(ctx context.Context, id domain.TitleID) (*domain.TitleSummary, error)
}

// Authenticator is the identity service the store follows.
type Authenticator interface {
	OnIdentityChanged(fn auth.IdentityListener) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) (*domain.Identity, error)
	SignUp(ctx context.Context, email, password string) (*domain.Identity, error)
	SignOut(ctx context.Context) error
}

// Options tunes background work. Zero values fall back to defaults.
type Options struct {
	// TopN is the size of the community ranking.
	TopN int
	// HydrateConcurrency bounds concurrent catalog lookups.
	HydrateConcurrency int
	// RemoteTimeout bounds each background document store operation.
	RemoteTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.TopN <= 0 {
		o.TopN = domain.DefaultCommunityTopN
	}
	if o.HydrateConcurrency <= 0 {
		o.HydrateConcurrency = 10
	}
	if o.RemoteTimeout <= 0 {
		o.RemoteTimeout = 10 * time.Second
	}
}

// Store holds identity, profile collections, the community ranking and
// readiness, plus the actions that change them.
//
// All fields are guarded by mu. Events are delivered under pubMu, which is
// taken before mu is released so subscribers observe changes in order.
// Subscribers must not call any method of the store.
type Store struct {
	docs     docstore.Store
	catalog  Catalog
	auth     Authenticator
	emitter  EventEmitter
	opts     Options
	logger   *slog.Logger
	seq      *sequencer
	startOne sync.Once
	stop     func()

	mu         sync.Mutex
	session    SessionHolder
	readiness  domain.Readiness
	watchlist  []domain.TitleID
	viewed     []domain.TitleID
	ratings    map[domain.TitleID]int
	community  []domain.CommunityMovie
	generation uint64
	// latestSeq is the sequence of the newest local write per field.
	latestSeq map[domain.Field]uint64

	pubMu       sync.Mutex
	subMu       sync.Mutex
	subscribers []subscriber
	nextSubID   int

	wg sync.WaitGroup
}

// New creates a store. It does not follow the identity service until Start.
func New(docs docstore.Store, catalog Catalog, authn Authenticator, emitter EventEmitter, opts Options, logger *slog.Logger) *Store {
	opts.withDefaults()
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &Store{
		docs:      docs,
		catalog:   catalog,
		auth:      authn,
		emitter:   emitter,
		opts:      opts,
		logger:    logger,
		seq:       newSequencer(time.Now),
		session:   newSessionHolder(),
		readiness: domain.ReadinessPending,
		watchlist: []domain.TitleID{},
		viewed:    []domain.TitleID{},
		ratings:   map[domain.TitleID]int{},
		community: []domain.CommunityMovie{},
		latestSeq: map[domain.Field]uint64{},
	}
}

// Start subscribes to identity changes. Later calls do nothing.
func (s *Store) Start() {
	s.startOne.Do(func() {
		s.stop = s.auth.OnIdentityChanged(s.handleIdentity)
	})
}

// Close stops following identity changes and waits for background work.
func (s *Store) Close(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	return s.Wait(ctx)
}

// Wait blocks until every background write, load and refresh has finished.
func (s *Store) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Identity returns the signed-in identity, or nil.
func (s *Store) Identity() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Identity()
}

// Pending reports whether the identity service has not reported yet.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Pending()
}

// Readiness returns the current readiness state.
func (s *Store) Readiness() domain.Readiness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readiness
}

// Watchlist returns the watchlist in insertion order.
func (s *Store) Watchlist() []domain.TitleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.watchlist)
}

// Viewed returns the viewed set in insertion order.
func (s *Store) Viewed() []domain.TitleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.viewed)
}

// Ratings returns a copy of the ratings map.
func (s *Store) Ratings() map[domain.TitleID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.ratings)
}

// Rating returns the user's rating for id.
func (s *Store) Rating(id domain.TitleID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[id]
	return r, ok
}

// InWatchlist reports whether id is on the watchlist.
func (s *Store) InWatchlist(id domain.TitleID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.watchlist, id)
}

// IsViewed reports whether id is marked as viewed.
func (s *Store) IsViewed(id domain.TitleID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.viewed, id)
}

// CommunityTopMovies returns the last computed community ranking.
func (s *Store) CommunityTopMovies() []domain.CommunityMovie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.community)
}

// Stats counts the profile collections.
func (s *Store) Stats() domain.ProfileStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ProfileStats{
		Watchlist: len(s.watchlist),
		Viewed:    len(s.viewed),
		Rated:     len(s.ratings),
	}
}

// Snapshot is a consistent copy of the whole observable state.
type Snapshot struct {
	Identity  *domain.Identity        `json:"identity"`
	Pending   bool                    `json:"pending"`
	Readiness domain.Readiness        `json:"readiness"`
	Watchlist []domain.TitleID        `json:"watchlist"`
	Viewed    []domain.TitleID        `json:"viewed"`
	Ratings   map[domain.TitleID]int  `json:"ratings"`
	Community []domain.CommunityMovie `json:"communityTopMovies"`
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Identity:  s.session.Identity(),
		Pending:   s.session.Pending(),
		Readiness: s.readiness,
		Watchlist: slices.Clone(s.watchlist),
		Viewed:    slices.Clone(s.viewed),
		Ratings:   maps.Clone(s.ratings),
		Community: slices.Clone(s.community),
	}
}

// signedInUID returns the current uid. Caller holds mu.
func (s *Store) signedInUID() (string, bool) {
	id := s.session.identity
	if id == nil {
		return "", false
	}
	return id.UID, true
}

// goBackground runs fn as tracked background work.
func (s *Store) goBackground(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// remoteContext returns a context for background document store calls.
// It is detached from any caller so identity changes never cancel it.
func (s *Store) remoteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opts.RemoteTimeout)
}

var _ EventEmitter = (*sse.Manager)(nil)
