package docstore

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewatch/cinewatch/internal/domain"
	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
)

func setupTestStore(t *testing.T) *Badger {
	t.Helper()

	store, err := OpenBadger(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// putRaw stores a document verbatim, bypassing Merge validation.
func putRaw(t *testing.T, b *Badger, uid string, fields map[domain.Field]string) {
	t.Helper()

	doc := newDocument(uid)
	for f, v := range fields {
		doc.Fields[f] = json.RawMessage(v)
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(uid), data)
	}))
}

func TestBadger_GetMissingDocument(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), "usr-nobody")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestBadger_MergeCreatesAndUpserts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "usr-1",
		Set(domain.FieldEmail, "a@example.com"),
		Set(domain.FieldWatchlist, []domain.TitleID{10, 20}),
	))
	require.NoError(t, store.Merge(ctx, "usr-1", Set(domain.FieldViewed, []domain.TitleID{10})))

	doc, err := store.Get(ctx, "usr-1")
	require.NoError(t, err)

	p := doc.Profile()
	assert.Equal(t, "a@example.com", p.Email)
	assert.Equal(t, []domain.TitleID{10, 20}, p.Watchlist)
	assert.Equal(t, []domain.TitleID{10}, p.Viewed)
	assert.Empty(t, p.Ratings)
	assert.False(t, doc.Has(domain.FieldRatings))
}

func TestBadger_MergeReportsStaleSequence(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	newer := FieldWrite{Field: domain.FieldWatchlist, Value: []domain.TitleID{}, Seq: 200}
	older := FieldWrite{Field: domain.FieldWatchlist, Value: []domain.TitleID{10}, Seq: 100}

	require.NoError(t, store.Merge(ctx, "usr-1", newer))

	err := store.Merge(ctx, "usr-1", older, Set(domain.FieldViewed, []domain.TitleID{3}))
	require.ErrorIs(t, err, ErrStaleWrite)
	var stale *StaleWriteError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, map[domain.Field]uint64{domain.FieldWatchlist: 200}, stale.Stored)

	doc, err := store.Get(ctx, "usr-1")
	require.NoError(t, err)
	assert.Empty(t, doc.Profile().Watchlist)
	assert.Equal(t, []domain.TitleID{3}, doc.Profile().Viewed, "unsequenced field of the same merge applies")
	assert.Equal(t, uint64(200), doc.Seq[domain.FieldWatchlist])

	// Unsequenced writes always apply.
	require.NoError(t, store.Merge(ctx, "usr-1", Set(domain.FieldWatchlist, []domain.TitleID{7})))
	doc, err = store.Get(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.TitleID{7}, doc.Profile().Watchlist)
	assert.Equal(t, uint64(200), doc.Seq[domain.FieldWatchlist])
}

func TestBadger_MergeValidation(t *testing.T) {
	tests := []struct {
		name  string
		write FieldWrite
	}{
		{"rating above range", Set(domain.FieldRatings, map[string]int{"550": 6})},
		{"rating below range", Set(domain.FieldRatings, map[string]int{"550": 0})},
		{"fractional rating", Set(domain.FieldRatings, map[string]float64{"550": 4.5})},
		{"string rating", Set(domain.FieldRatings, map[string]string{"550": "4"})},
		{"non-integer key", Set(domain.FieldRatings, map[string]int{"fight-club": 4})},
		{"null ratings", Set(domain.FieldRatings, nil)},
		{"watchlist not a list", Set(domain.FieldWatchlist, "550")},
		{"null watchlist", Set(domain.FieldViewed, []domain.TitleID(nil))},
		{"email not a string", Set(domain.FieldEmail, 42)},
		{"unknown field", Set(domain.Field("favorites"), []int{1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			err := store.Merge(context.Background(), "usr-1", tt.write)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "got %v", err)

			_, err = store.Get(context.Background(), "usr-1")
			assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "nothing should be written")
		})
	}
}

func TestBadger_MergeAcceptsTypedRatings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "usr-1", Set(domain.FieldRatings, map[domain.TitleID]int{550: 5, 13: 1})))

	doc, err := store.Get(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, map[domain.TitleID]int{550: 5, 13: 1}, doc.Profile().Ratings)
}

func TestBadger_ScanYieldsEveryDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, uid := range []string{"usr-b", "usr-a", "usr-c"} {
		require.NoError(t, store.Merge(ctx, uid, Set(domain.FieldEmail, uid+"@example.com")))
	}

	var uids []string
	for doc, err := range store.Scan(ctx) {
		require.NoError(t, err)
		uids = append(uids, doc.UID)
	}
	assert.Equal(t, []string{"usr-a", "usr-b", "usr-c"}, uids)
}

func TestBadger_ScanStopsEarly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, uid := range []string{"usr-a", "usr-b"} {
		require.NoError(t, store.Merge(ctx, uid, Set(domain.FieldEmail, uid)))
	}

	count := 0
	for range store.Scan(ctx) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestBadger_ScanCanceledContext(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Merge(context.Background(), "usr-a", Set(domain.FieldEmail, "a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range store.Scan(ctx) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestBadger_ScanReturnsMalformedRatingsAsStored(t *testing.T) {
	store := setupTestStore(t)
	putRaw(t, store, "usr-legacy", map[domain.Field]string{
		domain.FieldRatings: `{"550":"4","13":"great","x":5}`,
	})

	for doc, err := range store.Scan(context.Background()) {
		require.NoError(t, err)
		entries, skipped := doc.Ratings()
		assert.Equal(t, []RatingEntry{{Title: 550, Value: 4}}, entries)
		assert.Equal(t, 2, skipped)
	}
}
