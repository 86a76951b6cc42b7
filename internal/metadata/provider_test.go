package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eduwatcheru/eduwatcheru/internal/metadata/tmdb"
)

// fakeProvider is an in-memory Provider for unit tests.
type fakeProvider struct {
	mu sync.Mutex

	lists     map[string]*tmdb.PageResponse
	listErr   map[string]error
	listDelay map[string]time.Duration

	searchFn func(ctx context.Context, query string, page int) (*tmdb.PageResponse, error)

	find    map[string]*tmdb.FindResponse
	findErr error

	details    map[string]*tmdb.Details
	detailsErr error

	seasons   map[int]*tmdb.SeasonDetails
	seasonErr map[int]error

	calls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		lists:     map[string]*tmdb.PageResponse{},
		listErr:   map[string]error{},
		listDelay: map[string]time.Duration{},
		find:      map[string]*tmdb.FindResponse{},
		details:   map[string]*tmdb.Details{},
		seasons:   map[int]*tmdb.SeasonDetails{},
		seasonErr: map[int]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeProvider) record(key string) {
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()
}

func (f *fakeProvider) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeProvider) List(ctx context.Context, endpoint string, page int) (*tmdb.PageResponse, error) {
	f.record("list:" + endpoint)
	if d := f.listDelay[endpoint]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.listErr[endpoint]; err != nil {
		return nil, err
	}
	resp, ok := f.lists[endpoint]
	if !ok {
		return nil, &tmdb.FetchError{Endpoint: endpoint, StatusCode: 404}
	}
	return resp, nil
}

func (f *fakeProvider) SearchMulti(ctx context.Context, query string, page int) (*tmdb.PageResponse, error) {
	f.record("search")
	if f.searchFn == nil {
		return &tmdb.PageResponse{Page: page}, nil
	}
	return f.searchFn(ctx, query, page)
}

func (f *fakeProvider) FindByExternalID(_ context.Context, externalID, _ string) (*tmdb.FindResponse, error) {
	f.record("find:" + externalID)
	if f.findErr != nil {
		return nil, f.findErr
	}
	if resp, ok := f.find[externalID]; ok {
		return resp, nil
	}
	return &tmdb.FindResponse{}, nil
}

func (f *fakeProvider) Details(_ context.Context, mediaType string, id int, _ ...string) (*tmdb.Details, error) {
	key := fmt.Sprintf("%s:%d", mediaType, id)
	f.record("details:" + key)
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	if d, ok := f.details[key]; ok {
		return d, nil
	}
	return nil, &tmdb.FetchError{Endpoint: "/" + mediaType, StatusCode: 404}
}

func (f *fakeProvider) Season(_ context.Context, seriesID, seasonNumber int) (*tmdb.SeasonDetails, error) {
	f.record(fmt.Sprintf("season:%d:%d", seriesID, seasonNumber))
	if err := f.seasonErr[seasonNumber]; err != nil {
		return nil, err
	}
	if s, ok := f.seasons[seasonNumber]; ok {
		return s, nil
	}
	return &tmdb.SeasonDetails{SeasonNumber: seasonNumber}, nil
}

func strPtr(s string) *string { return &s }

func pageOf(results ...tmdb.Media) *tmdb.PageResponse {
	return &tmdb.PageResponse{Page: 1, Results: results, TotalPages: 1, TotalResults: len(results)}
}

func movies(prefix string, n int) []tmdb.Media {
	out := make([]tmdb.Media, n)
	for i := range out {
		out[i] = tmdb.Media{ID: i + 1, Title: fmt.Sprintf("%s %d", prefix, i+1)}
	}
	return out
}
