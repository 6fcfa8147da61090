package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewatch/cinewatch/internal/docstore"
	"github.com/cinewatch/cinewatch/internal/domain"
	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
	"github.com/cinewatch/cinewatch/internal/sse"
)

func waitCommit(t *testing.T, c *Commit) (Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := c.Wait(ctx)
	require.NotEqual(t, OutcomePending, outcome, "commit did not finish")
	return outcome, err
}

func TestStore_ToggleWatchlistTwiceRestoresMembership(t *testing.T) {
	env := setupStore(t)
	env.signOut(t)

	first := env.store.ToggleWatchlistItem(5)
	assert.Equal(t, []domain.TitleID{5}, first.Value)
	assert.True(t, env.store.InWatchlist(5))

	second := env.store.ToggleWatchlistItem(5)
	assert.Equal(t, []domain.TitleID{}, second.Value)
	assert.False(t, env.store.InWatchlist(5))
}

func TestStore_ToggleViewedIsIndependentOfWatchlist(t *testing.T) {
	env := setupStore(t)
	env.signOut(t)

	env.store.ToggleViewedStatus(8)

	assert.True(t, env.store.IsViewed(8))
	assert.False(t, env.store.InWatchlist(8))
}

func TestStore_SetRatingOverwrites(t *testing.T) {
	env := setupStore(t)
	env.signOut(t)

	env.store.SetRating(42, 3)
	r, ok := env.store.Rating(42)
	require.True(t, ok)
	assert.Equal(t, 3, r)

	env.store.SetRating(42, 5)
	r, _ = env.store.Rating(42)
	assert.Equal(t, 5, r)
	assert.Len(t, env.store.Ratings(), 1)
}

func TestStore_SignedOutMutationsSkipRemoteWrites(t *testing.T) {
	env := setupStore(t)
	env.signOut(t)

	commits := []*Commit{
		env.store.ToggleWatchlistItem(1),
		env.store.ToggleViewedStatus(1),
		env.store.SetRating(1, 4),
	}

	for _, c := range commits {
		select {
		case <-c.Done():
		default:
			t.Fatal("signed-out commit should finish immediately")
		}
		assert.Equal(t, OutcomeSkipped, c.Outcome())
		assert.NoError(t, c.Err())
	}
	env.wait(t)
	assert.Equal(t, 0, env.docs.mergeCount())
}

func TestStore_ToggleAppliesLocallyThenPersists(t *testing.T) {
	env := setupStore(t)
	env.seed(t, "u1", docstore.Set(domain.FieldWatchlist, []domain.TitleID{10}))
	env.signIn(t, "u1")
	require.Equal(t, []domain.TitleID{10}, env.store.Watchlist())

	c := env.store.ToggleWatchlistItem(10)
	assert.Empty(t, env.store.Watchlist())

	outcome, err := waitCommit(t, c)
	require.NoError(t, err)
	assert.Equal(t, OutcomePersisted, outcome)
	assert.Empty(t, env.remoteProfile(t, "u1").Watchlist)
}

func TestStore_SubscribersSeeChangeBeforeRemoteWrite(t *testing.T) {
	env := setupStore(t)
	env.signIn(t, "u1")

	gate := make(chan struct{})
	env.docs.set(func(r *recordingStore) {
		r.beforeMerge = func([]docstore.FieldWrite) { <-gate }
	})

	events := &eventLog{}
	env.store.Subscribe(events.record)

	c := env.store.ToggleWatchlistItem(3)

	watchlistEvents := events.ofType(sse.EventWatchlist)
	require.Len(t, watchlistEvents, 1)
	assert.Equal(t, []domain.TitleID{3}, watchlistEvents[0].Data.(sse.TitleSetEventData).Titles)
	assert.Equal(t, OutcomePending, c.Outcome())

	close(gate)
	outcome, err := waitCommit(t, c)
	require.NoError(t, err)
	assert.Equal(t, OutcomePersisted, outcome)
}

func TestStore_RapidTogglesConvergeToLastLocalValue(t *testing.T) {
	env := setupStore(t)
	env.signIn(t, "u1")

	// Hold back the write that adds the title so it lands after the removal.
	gate := make(chan struct{})
	env.docs.set(func(r *recordingStore) {
		r.beforeMerge = func(writes []docstore.FieldWrite) {
			if titles, ok := writes[0].Value.([]domain.TitleID); ok && len(titles) == 1 {
				<-gate
			}
		}
	})

	added := env.store.ToggleWatchlistItem(10)
	removed := env.store.ToggleWatchlistItem(10)

	outcome, err := waitCommit(t, removed)
	require.NoError(t, err)
	assert.Equal(t, OutcomePersisted, outcome)

	close(gate)
	outcome, err = waitCommit(t, added)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuperseded, outcome)

	assert.Empty(t, env.store.Watchlist())
	assert.Empty(t, env.remoteProfile(t, "u1").Watchlist)
}

func futureSeq() uint64 {
	return uint64(time.Now().Add(time.Hour).UnixNano())
}

func TestStore_WritesAfterRestartOutrankStoredSequence(t *testing.T) {
	env := setupStore(t)
	// A previous run with a clock ahead of this one left a higher sequence.
	env.seed(t, "u1", docstore.FieldWrite{Field: domain.FieldWatchlist, Value: []domain.TitleID{10}, Seq: futureSeq()})
	env.signIn(t, "u1")
	require.Equal(t, []domain.TitleID{10}, env.store.Watchlist())

	c := env.store.ToggleWatchlistItem(10)
	outcome, err := waitCommit(t, c)
	require.NoError(t, err)
	assert.Equal(t, OutcomePersisted, outcome)
	assert.Equal(t, 1, env.docs.mergeCount())

	assert.Empty(t, env.store.Watchlist())
	assert.Empty(t, env.remoteProfile(t, "u1").Watchlist)
}

func TestStore_StaleWriteIsResequenced(t *testing.T) {
	env := setupStore(t)
	env.signIn(t, "u1")
	// Another writer moved the field ahead of the local sequencer.
	env.seed(t, "u1", docstore.FieldWrite{Field: domain.FieldWatchlist, Value: []domain.TitleID{99}, Seq: futureSeq()})

	c := env.store.ToggleWatchlistItem(10)
	outcome, err := waitCommit(t, c)
	require.NoError(t, err)
	assert.Equal(t, OutcomePersisted, outcome)
	assert.Equal(t, 2, env.docs.mergeCount())

	assert.Equal(t, []domain.TitleID{10}, env.store.Watchlist())
	assert.Equal(t, []domain.TitleID{10}, env.remoteProfile(t, "u1").Watchlist)
}

func TestStore_StaleWriteIsNotReplayedAfterUserChange(t *testing.T) {
	env := setupStore(t)
	env.signIn(t, "u1")
	env.seed(t, "u1", docstore.FieldWrite{Field: domain.FieldWatchlist, Value: []domain.TitleID{99}, Seq: futureSeq()})

	var once sync.Once
	env.docs.set(func(r *recordingStore) {
		r.beforeMerge = func(_ []docstore.FieldWrite) {
			once.Do(func() { env.auth.notify(nil) })
		}
	})

	c := env.store.ToggleWatchlistItem(10)
	outcome, err := waitCommit(t, c)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, docstore.ErrStaleWrite)
	assert.Equal(t, 1, env.docs.mergeCount())
	assert.Equal(t, []domain.TitleID{99}, env.remoteProfile(t, "u1").Watchlist)
}

func TestStore_WriteFailureKeepsLocalChange(t *testing.T) {
	env := setupStore(t)
	env.signIn(t, "u1")
	env.docs.set(func(r *recordingStore) { r.mergeErr = domainerrors.Unavailable("offline") })

	events := &eventLog{}
	env.store.Subscribe(events.record)

	c := env.store.ToggleWatchlistItem(4)
	outcome, err := waitCommit(t, c)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnavailable))
	assert.Equal(t, []domain.TitleID{4}, env.store.Watchlist())

	failed := events.ofType(sse.EventWriteFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.FieldWatchlist, failed[0].Data.(sse.WriteFailedEventData).Field)
}

func TestStore_OutOfRangeRatingIsRejectedRemotely(t *testing.T) {
	env := setupStore(t)
	env.signIn(t, "u1")

	c := env.store.SetRating(42, 9)
	r, _ := env.store.Rating(42)
	assert.Equal(t, 9, r)

	outcome, err := waitCommit(t, c)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	env.wait(t)
	assert.Empty(t, env.store.CommunityTopMovies())
}

func TestStore_SetRatingRefreshesCommunity(t *testing.T) {
	env := setupStore(t)
	env.catalog.add(42, "Arrival", "/arrival.jpg")
	env.signIn(t, "u1")

	c := env.store.SetRating(42, 5)
	outcome, err := waitCommit(t, c)
	require.NoError(t, err)
	require.Equal(t, OutcomePersisted, outcome)
	env.wait(t)

	assert.Equal(t, []domain.CommunityMovie{
		{ID: 42, AvgRating: 5, Votes: 1, Title: "Arrival", PosterPath: "/arrival.jpg", Hydrated: true},
	}, env.store.CommunityTopMovies())
}

func TestCommit_WaitHonorsContext(t *testing.T) {
	c := newCommit(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := c.Wait(ctx)
	assert.Equal(t, OutcomePending, outcome)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "pending", OutcomePending.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "persisted", OutcomePersisted.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "superseded", OutcomeSuperseded.String())
}

func TestSequencer_StrictlyIncreasing(t *testing.T) {
	frozen := time.Unix(1_700_000_000, 0)
	q := newSequencer(func() time.Time { return frozen })

	a, b, c := q.next(), q.next(), q.next()
	assert.Equal(t, uint64(frozen.UnixNano()), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}

func TestSequencer_ClockGoingBackwards(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	q := newSequencer(func() time.Time { return now })

	first := q.next()
	now = now.Add(-time.Hour)
	assert.Greater(t, q.next(), first)
}

func TestSequencer_ObserveMovesPastStoredSequence(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	q := newSequencer(func() time.Time { return now })

	stored := uint64(now.Add(time.Hour).UnixNano())
	q.observe(stored)
	assert.Equal(t, stored+1, q.next())

	q.observe(1)
	assert.Equal(t, stored+2, q.next())
}
