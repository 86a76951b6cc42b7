package metadata

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

const pageWindowSize = 5

// Searcher runs multi-search queries and strips people from the results.
type Searcher struct {
	provider Provider
	logger   zerolog.Logger
}

// NewSearcher creates a searcher.
func NewSearcher(provider Provider, logger zerolog.Logger) *Searcher {
	return &Searcher{
		provider: provider,
		logger:   logger.With().Str("component", "search").Logger(),
	}
}

// Search fetches one page of results for query. An empty query returns an
// empty page without contacting the provider.
func (s *Searcher) Search(ctx context.Context, query string, page int) (SearchResultPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResultPage{Items: []MediaItem{}, CurrentPage: 1, Pages: []int{}}, nil
	}
	page = max(page, 1)

	resp, err := s.provider.SearchMulti(ctx, query, page)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Int("page", page).Msg("Search failed")
		return SearchResultPage{}, err
	}

	items := make([]MediaItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.MediaType == "person" {
			continue
		}
		items = append(items, ToMediaItem(r, MediaMovie))
	}

	current := ClampPage(page, resp.TotalPages)
	total := resp.TotalPages
	result := SearchResultPage{
		Query:        query,
		Items:        items,
		TotalResults: resp.TotalResults,
		CurrentPage:  current,
		TotalPages:   total,
		Pages:        PageWindow(current, total),
		HasPrev:      current > 1,
		HasNext:      current < total,
	}

	s.logger.Debug().
		Str("query", query).
		Int("page", current).
		Int("results", len(items)).
		Msg("Search completed")

	return result, nil
}

// ClampPage bounds page to [1, max(total, 1)].
func ClampPage(page, total int) int {
	return min(max(page, 1), max(total, 1))
}

// PageWindow returns at most five page numbers centered on current where
// possible.
func PageWindow(current, total int) []int {
	if total <= 0 {
		return []int{}
	}
	current = ClampPage(current, total)

	var start int
	switch {
	case total <= pageWindowSize, current <= 3:
		start = 1
	case current >= total-2:
		start = total - pageWindowSize + 1
	default:
		start = current - 2
	}

	n := min(total, pageWindowSize)
	pages := make([]int, n)
	for i := range pages {
		pages[i] = start + i
	}
	return pages
}
