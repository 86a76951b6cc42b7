package metadata

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const (
	defaultRowLimit  = 6
	viewAllRowLimit  = 12
	featuredPoolSize = 5
	featuredEndpoint = "/movie/popular"
)

// MovieCategories are the rows on the home and movies pages.
var MovieCategories = []Category{
	{Title: "Popular Movies", Endpoint: "/movie/popular"},
	{Title: "Top Rated Movies", Endpoint: "/movie/top_rated"},
	{Title: "Now Playing", Endpoint: "/movie/now_playing"},
	{Title: "Upcoming Movies", Endpoint: "/movie/upcoming"},
}

// TVCategories are the rows on the TV page.
var TVCategories = []Category{
	{Title: "Popular TV Shows", Endpoint: "/tv/popular"},
	{Title: "Top Rated TV Shows", Endpoint: "/tv/top_rated"},
	{Title: "Currently Airing", Endpoint: "/tv/on_the_air"},
	{Title: "Airing Today", Endpoint: "/tv/airing_today"},
}

// FindCategory looks up a preset category by media type and list name,
// e.g. ("movie", "top_rated").
func FindCategory(mediaType MediaType, name string) (Category, bool) {
	list := MovieCategories
	if mediaType == MediaTV {
		list = TVCategories
	}
	endpoint := fmt.Sprintf("/%s/%s", mediaType, name)
	for _, c := range list {
		if c.Endpoint == endpoint {
			return c, true
		}
	}
	return Category{}, false
}

// Aggregator loads several category rows concurrently.
type Aggregator struct {
	provider Provider
	logger   zerolog.Logger
}

// NewAggregator creates a category aggregator.
func NewAggregator(provider Provider, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		provider: provider,
		logger:   logger.With().Str("component", "categories").Logger(),
	}
}

// LoadCategories fetches page 1 of every category at once and returns the
// rows in the order given. Any failure fails the whole call and cancels the
// requests still in flight.
func (a *Aggregator) LoadCategories(ctx context.Context, cats []Category, assumed MediaType, limit int) ([]CategoryListing, error) {
	return a.LoadPage(ctx, cats, assumed, limit, 1)
}

// LoadPage is LoadCategories for an arbitrary page number.
func (a *Aggregator) LoadPage(ctx context.Context, cats []Category, assumed MediaType, limit, page int) ([]CategoryListing, error) {
	listings := make([]CategoryListing, len(cats))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, cat := range cats {
		p.Go(func(ctx context.Context) error {
			resp, err := a.provider.List(ctx, cat.Endpoint, page)
			if err != nil {
				return fmt.Errorf("load %s: %w", cat.Title, err)
			}
			listings[i] = CategoryListing{
				Title: cat.Title,
				Items: ToMediaItems(resp.Results, assumed, limit),
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		a.logger.Warn().Err(err).Int("categories", len(cats)).Msg("Category load failed")
		return nil, err
	}

	a.logger.Debug().Int("categories", len(cats)).Int("page", page).Msg("Categories loaded")
	return listings, nil
}

// Featured picks the hero item from the first few entries of the popular
// movies row. It returns false when that row is absent or empty.
func Featured(listings []CategoryListing, cats []Category, rnd *rand.Rand) (MediaItem, bool) {
	for i, cat := range cats {
		if cat.Endpoint != featuredEndpoint || i >= len(listings) {
			continue
		}
		items := listings[i].Items
		if len(items) == 0 {
			return MediaItem{}, false
		}
		n := min(len(items), featuredPoolSize)
		if rnd == nil {
			return items[rand.IntN(n)], true
		}
		return items[rnd.IntN(n)], true
	}
	return MediaItem{}, false
}
