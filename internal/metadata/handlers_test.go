package metadata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduwatcheru/eduwatcheru/internal/config"
	"github.com/eduwatcheru/eduwatcheru/internal/metadata/tmdb"
)

// mockTMDB serves a small fixed catalog. Paths listed in failing answer 500.
func mockTMDB(t *testing.T, failing ...string) *httptest.Server {
	t.Helper()
	fail := map[string]bool{}
	for _, p := range failing {
		fail[p] = true
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail[r.URL.Path] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/movie/") && !strings.HasPrefix(r.URL.Path, "/movie/603"):
			json.NewEncoder(w).Encode(pageOf(movies(r.URL.Path, 8)...))
		case r.URL.Path == "/movie/603":
			json.NewEncoder(w).Encode(matrixDetails())
		case r.URL.Path == "/tv/1399":
			json.NewEncoder(w).Encode(tmdb.Details{
				Media:   tmdb.Media{ID: 1399, Name: "Game of Thrones"},
				Seasons: []tmdb.SeasonSummary{{SeasonNumber: 1, EpisodeCount: 2}},
			})
		case r.URL.Path == "/tv/1399/season/1":
			json.NewEncoder(w).Encode(seasonOf(1, "Winter Is Coming", "The Kingsroad"))
		case r.URL.Path == "/tv/1399/season/9":
			json.NewEncoder(w).Encode(tmdb.SeasonDetails{SeasonNumber: 9})
		case strings.HasPrefix(r.URL.Path, "/tv/"):
			json.NewEncoder(w).Encode(pageOf(movies(r.URL.Path, 8)...))
		case r.URL.Path == "/search/multi":
			if r.URL.Query().Get("query") == "nothing" {
				json.NewEncoder(w).Encode(tmdb.PageResponse{Page: 1})
				return
			}
			json.NewEncoder(w).Encode(tmdb.PageResponse{
				Page: 1,
				Results: []tmdb.Media{
					{ID: 603, Title: "The Matrix", MediaType: "movie", VoteAverage: 7.456, ReleaseDate: "1999-03-30"},
					{ID: 6384, Name: "Keanu Reeves", MediaType: "person"},
				},
				TotalPages:   1,
				TotalResults: 2,
			})
		case r.URL.Path == "/find/tt0133093":
			json.NewEncoder(w).Encode(tmdb.FindResponse{MovieResults: []tmdb.Media{{ID: 603}}})
		case strings.HasPrefix(r.URL.Path, "/find/"):
			json.NewEncoder(w).Encode(tmdb.FindResponse{})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(tmdb.ErrorResponse{StatusCode: 34, StatusMessage: "The resource you requested could not be found."})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func setupTestHandlers(t *testing.T, failing ...string) *echo.Echo {
	t.Helper()
	server := mockTMDB(t, failing...)

	client := tmdb.NewClient(config.CatalogConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, zerolog.Nop())

	service := NewService(ServiceOptions{
		Provider:  client,
		Endpoints: client.Endpoints(),
		Embed: NewEmbedBuilder(config.EmbedConfig{
			MovieBase: "https://player.test/movie",
			TVBase:    "https://player.test/tv",
		}),
	}, zerolog.Nop())

	e := echo.New()
	NewHandlers(service).RegisterRoutes(e.Group("/api/v1/catalog"))
	return e
}

func doGet(t *testing.T, e *echo.Echo, path string) (*httptest.ResponseRecorder, PageResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body PageResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestHandlers_Home(t *testing.T) {
	e := setupTestHandlers(t)

	rec, body := doGet(t, e, "/api/v1/catalog/home")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusReady, body.Status)

	var view HomeView
	raw, _ := json.Marshal(body.Data)
	require.NoError(t, json.Unmarshal(raw, &view))
	require.Len(t, view.Categories, len(MovieCategories))
	assert.Equal(t, "Popular Movies", view.Categories[0].Title)
	assert.Len(t, view.Categories[0].Items, defaultRowLimit)
	assert.NotNil(t, view.Featured)
}

func TestHandlers_TVFailureShowsErrorView(t *testing.T) {
	e := setupTestHandlers(t, "/tv/on_the_air")

	rec, body := doGet(t, e, "/api/v1/catalog/tv")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, StatusError, body.Status)
	assert.Equal(t, tvFailedMessage, body.Error)
	assert.Nil(t, body.Data)
}

func TestHandlers_Category(t *testing.T) {
	e := setupTestHandlers(t)

	rec, body := doGet(t, e, "/api/v1/catalog/category/movie/upcoming")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusReady, body.Status)

	rec, _ = doGet(t, e, "/api/v1/catalog/category/movie/airing_today")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doGet(t, e, "/api/v1/catalog/category/anime/popular")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_Search(t *testing.T) {
	e := setupTestHandlers(t)

	rec, body := doGet(t, e, "/api/v1/catalog/search?q=matrix")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusReady, body.Status)

	var page SearchResultPage
	raw, _ := json.Marshal(body.Data)
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "The Matrix", page.Items[0].Title)

	_, body = doGet(t, e, "/api/v1/catalog/search?q=nothing")
	assert.Equal(t, StatusEmpty, body.Status)

	rec, _ = doGet(t, e, "/api/v1/catalog/search?q=matrix&page=0")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doGet(t, e, "/api/v1/catalog/search?q=matrix&page=-2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_RenderedLabels(t *testing.T) {
	e := setupTestHandlers(t)

	rec, _ := doGet(t, e, "/api/v1/catalog/search?q=matrix")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"voteAverage":7.456`)
	assert.Contains(t, body, `"rating":"7.5"`)
	assert.Contains(t, body, `"match":75`)
	assert.Contains(t, body, `"year":"1999"`)

	rec, body2 := doGet(t, e, "/api/v1/catalog/watch/movie/603")
	require.Equal(t, http.StatusOK, rec.Code)
	var view WatchView
	raw, _ := json.Marshal(body2.Data)
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, "8.2", view.Detail.Rating)
	assert.Equal(t, 82, view.Detail.Match)
	assert.Equal(t, "1999", view.Detail.Year)
	assert.Equal(t, "2h 16m", view.Detail.Runtime)
}

func TestHandlers_SearchFailure(t *testing.T) {
	e := setupTestHandlers(t, "/search/multi")

	rec, body := doGet(t, e, "/api/v1/catalog/search?q=matrix")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, searchFailedMessage, body.Error)
}

func TestHandlers_WatchMovie(t *testing.T) {
	e := setupTestHandlers(t)

	rec, body := doGet(t, e, "/api/v1/catalog/watch/movie/tt0133093")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusReady, body.Status)

	var view WatchView
	raw, _ := json.Marshal(body.Data)
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, "The Matrix", view.Detail.Title)
	assert.Equal(t, "https://player.test/movie/tt0133093", view.EmbedURL)
	assert.Equal(t, config.DefaultImageBaseSmall+"/matrix.jpg", view.Detail.PosterURL)
}

func TestHandlers_WatchMovieNotFound(t *testing.T) {
	e := setupTestHandlers(t)

	rec, body := doGet(t, e, "/api/v1/catalog/watch/movie/tt9999999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, StatusNotFound, body.Status)
	assert.Equal(t, notFoundMessage, body.Error)
}

func TestHandlers_WatchMovieDegrades(t *testing.T) {
	e := setupTestHandlers(t, "/movie/603")

	rec, body := doGet(t, e, "/api/v1/catalog/watch/movie/603")
	require.Equal(t, http.StatusOK, rec.Code)

	var view WatchView
	raw, _ := json.Marshal(body.Data)
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.True(t, view.Detail.Degraded)
	assert.Equal(t, "Movie", view.Detail.Title)
	assert.Equal(t, "https://player.test/movie/603", view.EmbedURL)
}

func TestHandlers_WatchTV(t *testing.T) {
	e := setupTestHandlers(t)

	rec, body := doGet(t, e, "/api/v1/catalog/watch/tv/1399?season=1&episode=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var view WatchView
	raw, _ := json.Marshal(body.Data)
	require.NoError(t, json.Unmarshal(raw, &view))
	require.NotNil(t, view.Episodes)
	assert.Equal(t, PhaseEpisodesReady, view.Episodes.Phase)
	assert.Len(t, view.Episodes.Episodes, 2)
	assert.Equal(t, "https://player.test/tv/1399/1/2", view.EmbedURL)

	rec, _ = doGet(t, e, "/api/v1/catalog/watch/tv/1399?season=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_Season(t *testing.T) {
	e := setupTestHandlers(t, "/tv/1399/season/2")

	rec, body := doGet(t, e, "/api/v1/catalog/tv/1399/season/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusReady, body.Status)

	_, body = doGet(t, e, "/api/v1/catalog/tv/1399/season/9")
	assert.Equal(t, StatusEmpty, body.Status)

	rec, body = doGet(t, e, "/api/v1/catalog/tv/1399/season/2")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, episodesFailedMessage, body.Error)

	rec, _ = doGet(t, e, "/api/v1/catalog/tv/1399/season/zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_WatchIDAndEmbed(t *testing.T) {
	e := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/card/movie/603/watch-id", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var ids map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Equal(t, "tt0133093", ids["id"])
	assert.Equal(t, "/watch/movie/tt0133093", ids["path"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/catalog/embed/tv/1399?season=3", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var embed map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &embed))
	assert.Equal(t, "https://player.test/tv/1399/3/1", embed["url"])
}

func TestHandlers_ClearCache(t *testing.T) {
	e := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/cache", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
