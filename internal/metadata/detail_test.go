package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduwatcheru/eduwatcheru/internal/metadata/tmdb"
)

func matrixDetails() *tmdb.Details {
	runtime := 136
	return &tmdb.Details{
		Media: tmdb.Media{
			ID:          603,
			Title:       "The Matrix",
			ReleaseDate: "1999-03-30",
			VoteAverage: 8.2,
			PosterPath:  strPtr("/matrix.jpg"),
		},
		Runtime: &runtime,
		IMDbID:  strPtr("tt0133093"),
		Genres:  []tmdb.Genre{{ID: 28, Name: "Action"}},
	}
}

func TestIsExternalID(t *testing.T) {
	assert.True(t, IsExternalID("tt0133093"))
	assert.True(t, IsExternalID("nm1"))
	assert.False(t, IsExternalID("603"))
	assert.False(t, IsExternalID("TT0133093"))
	assert.False(t, IsExternalID("tt"))
	assert.False(t, IsExternalID(""))
}

func TestWatchPath(t *testing.T) {
	assert.Equal(t, "/watch/movie/tt0133093", WatchPath(MediaMovie, "tt0133093"))
	assert.Equal(t, "/watch/tv/1399", WatchPath(MediaTV, "1399"))
}

func TestResolveID(t *testing.T) {
	fp := newFakeProvider()
	fp.find["tt0133093"] = &tmdb.FindResponse{MovieResults: []tmdb.Media{{ID: 603}, {ID: 604}}}
	fp.find["tt0944947"] = &tmdb.FindResponse{TVResults: []tmdb.Media{{ID: 1399}}}
	r := NewResolver(fp, zerolog.Nop())
	ctx := context.Background()

	id, err := r.ResolveID(ctx, MediaMovie, "603")
	require.NoError(t, err)
	assert.Equal(t, 603, id)
	assert.Equal(t, 0, fp.callCount("find:603"))

	id, err = r.ResolveID(ctx, MediaMovie, "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, 603, id, "first match wins")

	id, err = r.ResolveID(ctx, MediaTV, "tt0944947")
	require.NoError(t, err)
	assert.Equal(t, 1399, id)

	// A movie id looked up as a series has no tv match.
	_, err = r.ResolveID(ctx, MediaTV, "tt0133093")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.ResolveID(ctx, MediaMovie, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveID_LookupFailure(t *testing.T) {
	fp := newFakeProvider()
	fp.findErr = &tmdb.FetchError{Endpoint: "/find/tt1", StatusCode: 500}

	_, err := NewResolver(fp, zerolog.Nop()).ResolveID(context.Background(), MediaMovie, "tt1")
	require.Error(t, err)
	assert.ErrorIs(t, err, tmdb.ErrFetch)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestResolveAndFetchDetail(t *testing.T) {
	fp := newFakeProvider()
	fp.find["tt0133093"] = &tmdb.FindResponse{MovieResults: []tmdb.Media{{ID: 603}}}
	fp.details["movie:603"] = matrixDetails()
	r := NewResolver(fp, zerolog.Nop())

	rec, err := r.ResolveAndFetchDetail(context.Background(), MediaMovie, "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, 603, rec.ID)
	assert.Equal(t, "The Matrix", rec.Title)
	assert.Equal(t, "2h 16m", rec.RuntimeLabel())
	require.NotNil(t, rec.ExternalID)
	assert.Equal(t, "tt0133093", *rec.ExternalID)
	assert.False(t, rec.Degraded)
}

func TestResolveAndFetchDetail_NotFoundIsReturned(t *testing.T) {
	fp := newFakeProvider()
	r := NewResolver(fp, zerolog.Nop())

	_, err := r.ResolveAndFetchDetail(context.Background(), MediaMovie, "tt9999999")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "tt9999999", nf.ID)
	assert.Equal(t, 0, fp.callCount("details:movie:0"))
}

func TestResolveAndFetchDetail_DegradesOnFetchFailure(t *testing.T) {
	fp := newFakeProvider()
	fp.detailsErr = &tmdb.FetchError{Endpoint: "/tv/1399", StatusCode: 503}

	rec, err := NewResolver(fp, zerolog.Nop()).ResolveAndFetchDetail(context.Background(), MediaTV, "1399")
	require.NoError(t, err)
	assert.True(t, rec.Degraded)
	assert.Equal(t, "TV Show", rec.Title)
	assert.Equal(t, "No description available", rec.Overview)
	assert.Empty(t, rec.Genres)
}

func TestWatchID(t *testing.T) {
	fp := newFakeProvider()
	fp.details["movie:603"] = matrixDetails()
	fp.details["tv:1399"] = &tmdb.Details{
		Media:       tmdb.Media{ID: 1399, Name: "Game of Thrones"},
		ExternalIDs: &tmdb.ExternalIDs{IMDbID: strPtr("tt0944947")},
	}
	fp.details["tv:42"] = &tmdb.Details{Media: tmdb.Media{ID: 42}}
	r := NewResolver(fp, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, "tt0133093", r.WatchID(ctx, MediaMovie, 603))
	assert.Equal(t, "tt0944947", r.WatchID(ctx, MediaTV, 1399))
	assert.Equal(t, "42", r.WatchID(ctx, MediaTV, 42), "no external id")
	assert.Equal(t, "7", r.WatchID(ctx, MediaMovie, 7), "lookup failure")
}
