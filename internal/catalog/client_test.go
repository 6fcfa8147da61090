package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewatch/cinewatch/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tweak ...func(*Options)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := Options{
		APIKey:        "test-key",
		BaseURL:       server.URL,
		RPS:           1000,
		Burst:         100,
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
	}
	for _, fn := range tweak {
		fn(&opts)
	}

	client := New(opts, slog.New(slog.DiscardHandler))
	client.http = server.Client()
	t.Cleanup(client.Close)
	return client
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

const searchFixture = `{"page":1,"results":[
	{"id":550,"media_type":"movie","title":"Fight Club","poster_path":"/fc.jpg","release_date":"1999-10-15"},
	{"id":1399,"media_type":"tv","name":"Game of Thrones","poster_path":"/got.jpg","first_air_date":"2011-04-17"},
	{"id":287,"media_type":"person","name":"Brad Pitt","profile_path":"/bp.jpg"},
	{"id":999,"media_type":"movie","title":"No Poster","poster_path":null}
]}`

func TestClient_Search(t *testing.T) {
	var gotQuery, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/multi", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.URL.Query().Get("api_key")
		respond(http.StatusOK, searchFixture)(w, r)
	})

	results, err := client.Search(context.Background(), "  fight club ")
	require.NoError(t, err)

	assert.Equal(t, "fight club", gotQuery)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, results, 2)

	assert.Equal(t, domain.TitleID(550), results[0].ID)
	assert.Equal(t, "Fight Club", results[0].Title)
	assert.Equal(t, "https://image.tmdb.org/t/p/w200/fc.jpg", results[0].PosterURL)

	assert.Equal(t, MediaTV, results[1].MediaType)
	assert.Equal(t, "Game of Thrones", results[1].Title)
	assert.Equal(t, "2011-04-17", results[1].ReleaseDate)
}

func TestClient_SearchBlankQuerySkipsRequest(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(http.StatusOK, `{"results":[]}`)(w, r)
	})

	for _, q := range []string{"", "   ", "\t\n"} {
		results, err := client.Search(context.Background(), q)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Trending(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/movie/week", r.URL.Path)
		respond(http.StatusOK, `{"results":[
			{"id":1,"title":"A","poster_path":"/a.jpg"},
			{"id":2,"title":"B","poster_path":""}
		]}`)(w, r)
	})

	results, err := client.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, MediaMovie, results[0].MediaType)
}

func TestClient_RecommendationsCappedAtTen(t *testing.T) {
	body := `{"results":[`
	for i := 1; i <= 15; i++ {
		if i > 1 {
			body += ","
		}
		body += `{"id":` + string(rune('0'+i%10)) + `,"title":"T","poster_path":"/p.jpg"}`
	}
	body += `]}`

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550/recommendations", r.URL.Path)
		respond(http.StatusOK, body)(w, r)
	})

	results, err := client.Recommendations(context.Background(), 550)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

const movieFixture = `{
	"id":550,"title":"Fight Club","overview":"An insomniac...","tagline":"Mischief. Mayhem. Soap.",
	"poster_path":"/fc.jpg","release_date":"1999-10-15","runtime":139,"vote_average":8.4,
	"genres":[{"id":18,"name":"Drama"}],
	"credits":{
		"cast":[
			{"id":3,"name":"Meat Loaf","character":"Bob","order":6},
			{"id":1,"name":"Edward Norton","character":"Narrator","order":0},
			{"id":2,"name":"Brad Pitt","character":"Tyler Durden","order":1},
			{"id":4,"name":"Helena Bonham Carter","character":"Marla","order":2},
			{"id":5,"name":"Zach Grenier","character":"Richard","order":4},
			{"id":6,"name":"Jared Leto","character":"Angel Face","order":3}
		],
		"crew":[
			{"name":"Jim Uhls","job":"Screenplay"},
			{"name":"David Fincher","job":"Director"}
		]
	},
	"videos":{"results":[
		{"key":"teaser1","site":"YouTube","type":"Teaser"},
		{"key":"vimeo1","site":"Vimeo","type":"Trailer"},
		{"key":"yt-trailer","site":"YouTube","type":"Trailer"}
	]}
}`

func TestClient_MovieDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "credits,videos", r.URL.Query().Get("append_to_response"))
		respond(http.StatusOK, movieFixture)(w, r)
	})

	m, err := client.MovieDetails(context.Background(), 550)
	require.NoError(t, err)

	assert.Equal(t, "Fight Club", m.Title)
	assert.Equal(t, "1999", m.ReleaseYear)
	assert.Equal(t, "Mischief. Mayhem. Soap.", m.Tagline)
	assert.Equal(t, "David Fincher", m.Director)
	assert.Equal(t, "yt-trailer", m.TrailerKey)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/fc.jpg", m.PosterURL)
	assert.Equal(t, []string{"Drama"}, m.Genres)

	require.Len(t, m.Cast, 5)
	names := make([]string, 0, len(m.Cast))
	for _, c := range m.Cast {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Edward Norton", "Brad Pitt", "Helena Bonham Carter", "Jared Leto", "Zach Grenier"}, names)
}

func TestClient_MovieDetailsWithoutExtras(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"id":7,"title":"Bare","release_date":""}`))

	m, err := client.MovieDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, m.Director)
	assert.Empty(t, m.TrailerKey)
	assert.Empty(t, m.ReleaseYear)
	assert.Empty(t, m.Cast)
	assert.Empty(t, m.PosterURL)
}

func TestClient_Title(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, movieFixture))

	summary, err := client.Title(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, &domain.TitleSummary{ID: 550, Title: "Fight Club", PosterPath: "/fc.jpg"}, summary)
	assert.True(t, summary.HasPoster())
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
	}{
		{"not found", http.StatusNotFound, ErrNotFound, 1},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized, 1},
		{"bad request", http.StatusBadRequest, ErrBadRequest, 1},
		{"rate limited retries", http.StatusTooManyRequests, ErrRateLimited, 3},
		{"server error retries", http.StatusBadGateway, ErrServer, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				respond(tt.status, `{"status_message":"nope"}`)(w, r)
			})

			_, err := client.Title(context.Background(), 550)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var catErr *Error
			require.True(t, errors.As(err, &catErr))
			assert.Equal(t, "title", catErr.Op)
			assert.Equal(t, domain.TitleID(550), catErr.TitleID)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClient_RetryRecovers(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			respond(http.StatusServiceUnavailable, `{}`)(w, r)
			return
		}
		respond(http.StatusOK, movieFixture)(w, r)
	})

	summary, err := client.Title(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", summary.Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(http.StatusInternalServerError, `{}`)(w, r)
	}, func(o *Options) {
		o.MaxRetries = 0
		o.TripAfter = 3
		o.BreakerTimeout = time.Hour
	})

	for range 3 {
		_, err := client.Title(context.Background(), 550)
		assert.ErrorIs(t, err, ErrServer)
	}

	_, err := client.Title(context.Background(), 550)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NotFoundDoesNotTripCircuit(t *testing.T) {
	client := newTestClient(t, respond(http.StatusNotFound, `{}`), func(o *Options) {
		o.TripAfter = 1
	})

	for range 3 {
		_, err := client.Title(context.Background(), 550)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestClient_InvalidID(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, movieFixture))
	_, err := client.Title(context.Background(), 0)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestPosterURL(t *testing.T) {
	client := New(Options{APIKey: "k"}, slog.New(slog.DiscardHandler))
	defer client.Close()

	assert.Equal(t, "https://image.tmdb.org/t/p/w500/x.jpg", client.PosterURL("/x.jpg", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/w200/x.jpg", client.ListPosterURL("x.jpg"))
	assert.Empty(t, client.PosterURL("", "w500"))
}
