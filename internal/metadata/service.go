package metadata

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eduwatcheru/eduwatcheru/internal/config"
	"github.com/eduwatcheru/eduwatcheru/internal/metadata/tmdb"
	"github.com/eduwatcheru/eduwatcheru/internal/metrics"
)

// HomeView is the home page: a hero item plus the movie rows.
type HomeView struct {
	Featured   *MediaItem        `json:"featured"`
	Categories []CategoryListing `json:"categories"`
}

// WatchView is a watch page: the detail record, the player URL and, for
// series, the episode browser state.
type WatchView struct {
	Detail   DetailRecord `json:"detail"`
	EmbedURL string       `json:"embedUrl"`
	Episodes *EpisodeView `json:"episodes,omitempty"`
}

const cacheHealthCategory = "cache"

// CacheHealthID identifies the response cache in health reports.
const CacheHealthID = "responses"

// Service composes the catalog operations behind one response cache.
type Service struct {
	provider   Provider
	aggregator *Aggregator
	searcher   *Searcher
	resolver   *Resolver
	embed      *EmbedBuilder
	cache      ResponseCache
	health     HealthReporter
	endpoints  config.Endpoints
	debounce   time.Duration
	logger     zerolog.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// ServiceOptions carries the collaborators of a Service.
type ServiceOptions struct {
	Provider  Provider
	Cache     ResponseCache
	Embed     *EmbedBuilder
	Endpoints config.Endpoints
	Debounce  time.Duration
	Health    HealthReporter
	// Rand picks the featured item. Nil uses the global source.
	Rand *rand.Rand
}

// NewService creates a catalog service.
func NewService(opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.Cache == nil {
		opts.Cache = noopCache{}
	}
	if opts.Embed == nil {
		opts.Embed = NewEmbedBuilder(config.EmbedConfig{})
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	return &Service{
		provider:   opts.Provider,
		aggregator: NewAggregator(opts.Provider, logger),
		searcher:   NewSearcher(opts.Provider, logger),
		resolver:   NewResolver(opts.Provider, logger),
		embed:      opts.Embed,
		cache:      opts.Cache,
		health:     opts.Health,
		endpoints:  opts.Endpoints,
		debounce:   opts.Debounce,
		rnd:        opts.Rand,
		logger:     logger.With().Str("component", "catalog").Logger(),
	}
}

// Embed returns the embed URL builder.
func (s *Service) Embed() *EmbedBuilder {
	return s.embed
}

// HomePage loads the movie rows and picks a featured item.
func (s *Service) HomePage(ctx context.Context) (HomeView, error) {
	listings, err := s.Categories(ctx, MovieCategories, MediaMovie, defaultRowLimit, 1)
	if err != nil {
		return HomeView{}, err
	}

	view := HomeView{Categories: listings}
	s.rndMu.Lock()
	item, ok := Featured(listings, MovieCategories, s.rnd)
	s.rndMu.Unlock()
	if ok {
		view.Featured = &item
	}
	return view, nil
}

// MoviesPage loads the movie rows.
func (s *Service) MoviesPage(ctx context.Context) ([]CategoryListing, error) {
	return s.Categories(ctx, MovieCategories, MediaMovie, defaultRowLimit, 1)
}

// TVPage loads the series rows.
func (s *Service) TVPage(ctx context.Context) ([]CategoryListing, error) {
	return s.Categories(ctx, TVCategories, MediaTV, defaultRowLimit, 1)
}

// CategoryPage loads a single row with the larger "view all" limit.
func (s *Service) CategoryPage(ctx context.Context, cat Category, mediaType MediaType, page int) (CategoryListing, error) {
	listings, err := s.Categories(ctx, []Category{cat}, mediaType, viewAllRowLimit, page)
	if err != nil {
		return CategoryListing{}, err
	}
	return listings[0], nil
}

// Categories loads rows through the cache. The whole set is cached as one
// entry so the all-or-nothing result is preserved.
func (s *Service) Categories(ctx context.Context, cats []Category, mediaType MediaType, limit, page int) ([]CategoryListing, error) {
	endpoints := make([]string, len(cats))
	for i, c := range cats {
		endpoints[i] = c.Endpoint
	}
	key := fmt.Sprintf("categories:%s:%d:%d", strings.Join(endpoints, ","), limit, page)

	listings, err := cached(ctx, s, key, func(ctx context.Context) ([]CategoryListing, error) {
		return s.aggregator.LoadPage(ctx, cats, mediaType, limit, page)
	})
	if err != nil {
		return nil, err
	}
	for i := range listings {
		s.decorate(listings[i].Items)
	}
	return listings, nil
}

// Search runs a multi-search. It satisfies SearchRunner.
func (s *Service) Search(ctx context.Context, query string, page int) (SearchResultPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.searcher.Search(ctx, query, page)
	}

	key := fmt.Sprintf("search:%s:%d", query, max(page, 1))
	res, err := cached(ctx, s, key, func(ctx context.Context) (SearchResultPage, error) {
		return s.searcher.Search(ctx, query, page)
	})
	if err != nil {
		return SearchResultPage{}, err
	}
	s.decorate(res.Items)
	return res, nil
}

// NewSearchSession binds a live search session to this service.
func (s *Service) NewSearchSession(ctx context.Context, onChange func(SessionState)) *SearchSession {
	return NewSearchSession(ctx, s, s.debounce, onChange, s.logger)
}

// Detail returns the record for a route id. NotFound is returned; other
// failures degrade to a placeholder. Placeholders are never cached.
func (s *Service) Detail(ctx context.Context, mediaType MediaType, id string) (DetailRecord, error) {
	key := fmt.Sprintf("detail:%s:%s", mediaType, id)

	var rec DetailRecord
	if s.cacheGet(ctx, key, &rec) {
		s.decorateDetail(&rec)
		return rec, nil
	}

	rec, err := s.resolver.ResolveAndFetchDetail(ctx, mediaType, id)
	if err != nil {
		return DetailRecord{}, err
	}
	if !rec.Degraded {
		s.cacheSet(ctx, key, rec)
	}
	s.decorateDetail(&rec)
	return rec, nil
}

// WatchMovie builds the movie watch page.
func (s *Service) WatchMovie(ctx context.Context, id string) (WatchView, error) {
	rec, err := s.Detail(ctx, MediaMovie, id)
	if err != nil {
		return WatchView{}, err
	}
	return WatchView{
		Detail:   rec,
		EmbedURL: s.embed.Build(MediaMovie, id, 0, 0),
	}, nil
}

// WatchTV builds the series watch page for the given selection. Unresolvable
// ids degrade to a placeholder with no episodes.
func (s *Service) WatchTV(ctx context.Context, id string, season, episode int) (WatchView, error) {
	rec, err := s.Detail(ctx, MediaTV, id)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn().Err(err).Str("id", id).Msg("Series not found, using placeholder")
		rec, err = Placeholder(MediaTV), nil
	}
	if err != nil {
		return WatchView{}, err
	}

	browser := NewEpisodeBrowser(s.provider, s.embed, rec.ID, id, s.logger)
	var view EpisodeView
	if rec.Degraded {
		view = browser.View()
	} else {
		view = browser.SelectSeason(ctx, max(season, 1))
		if episode > 1 && browser.SelectEpisode(episode) {
			view = browser.View()
		}
	}
	s.decorateEpisodes(view.Episodes)

	return WatchView{
		Detail:   rec,
		EmbedURL: view.EmbedURL,
		Episodes: &view,
	}, nil
}

// SeasonEpisodes loads one season for a route id.
func (s *Service) SeasonEpisodes(ctx context.Context, id string, season int) (EpisodeView, error) {
	nativeID, err := s.resolver.ResolveID(ctx, MediaTV, id)
	if err != nil {
		return EpisodeView{}, err
	}
	browser := NewEpisodeBrowser(s.provider, s.embed, nativeID, id, s.logger)
	view := browser.SelectSeason(ctx, season)
	s.decorateEpisodes(view.Episodes)
	return view, nil
}

// WatchID returns the id a card should link to.
func (s *Service) WatchID(ctx context.Context, mediaType MediaType, id int) string {
	return s.resolver.WatchID(ctx, mediaType, id)
}

// Warm loads every preset row so the first visitors hit the cache.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.MoviesPage(ctx); err != nil {
		return fmt.Errorf("warm movies: %w", err)
	}
	if _, err := s.TVPage(ctx); err != nil {
		return fmt.Errorf("warm tv: %w", err)
	}
	return nil
}

// ClearCache drops every cached response.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// CheckCache stores and reads back a probe value.
func (s *Service) CheckCache(ctx context.Context) error {
	const key = "health:probe"
	want := time.Now().UnixNano()
	if err := s.cache.Set(ctx, key, want); err != nil {
		s.reportCache(err)
		return fmt.Errorf("cache store: %w", err)
	}
	var got int64
	if _, err := s.cache.Get(ctx, key, &got); err != nil {
		s.reportCache(err)
		return fmt.Errorf("cache lookup: %w", err)
	}
	s.reportCache(nil)
	return nil
}

func cached[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var v T
	if s.cacheGet(ctx, key, &v) {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	s.cacheSet(ctx, key, v)
	return v, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	switch {
	case err != nil:
		metrics.RecordCache("error")
		s.logger.Debug().Err(err).Str("key", key).Msg("Cache lookup failed")
		s.reportCache(err)
		return false
	case hit:
		metrics.RecordCache("hit")
		s.reportCache(nil)
		return true
	default:
		metrics.RecordCache("miss")
		s.reportCache(nil)
		return false
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Cache store failed")
		s.reportCache(err)
	}
}

func (s *Service) reportCache(err error) {
	if s.health == nil {
		return
	}
	if err != nil {
		s.health.SetErrorStr(cacheHealthCategory, CacheHealthID, err.Error())
		return
	}
	s.health.ClearStatusStr(cacheHealthCategory, CacheHealthID)
}

func (s *Service) decorate(items []MediaItem) {
	for i := range items {
		items[i].PosterURL = imageURL(s.endpoints.ImageBaseSmall, items[i].PosterPath)
		items[i].BackdropURL = imageURL(s.endpoints.ImageBaseOriginal, items[i].BackdropPath)
		items[i].applyLabels()
	}
}

func (s *Service) decorateDetail(rec *DetailRecord) {
	rec.PosterURL = imageURL(s.endpoints.ImageBaseSmall, rec.PosterPath)
	rec.BackdropURL = imageURL(s.endpoints.ImageBaseOriginal, rec.BackdropPath)
	rec.applyLabels()
	rec.Runtime = rec.RuntimeLabel()
	s.decorate(rec.Similar)
}

func (s *Service) decorateEpisodes(episodes []Episode) {
	for i := range episodes {
		episodes[i].StillURL = imageURL(s.endpoints.ImageBaseSmall, episodes[i].StillPath)
	}
}

func imageURL(base string, path *string) string {
	if base == "" {
		return ""
	}
	return tmdb.ImageURL(base, path)
}
