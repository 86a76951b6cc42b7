package metadata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
)

// ErrNotFound is matched by NotFoundError.
var ErrNotFound = errors.New("title not found")

// NotFoundError reports an id that resolves to no title.
type NotFoundError struct {
	MediaType MediaType
	ID        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found for id %q", e.MediaType, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

const externalSource = "imdb_id"

var (
	externalIDPattern = regexp.MustCompile(`^[a-z]{2}\d+$`)
	detailAppend      = []string{"credits", "similar", "videos", "external_ids"}
)

// IsExternalID reports whether id looks like an external id such as
// "tt0133093" rather than a native numeric id.
func IsExternalID(id string) bool {
	return externalIDPattern.MatchString(id)
}

// WatchPath is the front-end route for a title.
func WatchPath(mediaType MediaType, id string) string {
	if mediaType == MediaTV {
		return "/watch/tv/" + id
	}
	return "/watch/movie/" + id
}

// Resolver turns route ids into detail records.
type Resolver struct {
	provider Provider
	logger   zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(provider Provider, logger zerolog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// ResolveID maps a route id to a native id. External ids are looked up on
// the provider; no match yields a *NotFoundError.
func (r *Resolver) ResolveID(ctx context.Context, mediaType MediaType, id string) (int, error) {
	if !IsExternalID(id) {
		n, err := strconv.Atoi(id)
		if err != nil || n <= 0 {
			return 0, &NotFoundError{MediaType: mediaType, ID: id}
		}
		return n, nil
	}

	found, err := r.provider.FindByExternalID(ctx, id, externalSource)
	if err != nil {
		return 0, err
	}

	matches := found.MovieResults
	if mediaType == MediaTV {
		matches = found.TVResults
	}
	if len(matches) == 0 {
		return 0, &NotFoundError{MediaType: mediaType, ID: id}
	}

	r.logger.Debug().Str("external_id", id).Int("id", matches[0].ID).Msg("Resolved external id")
	return matches[0].ID, nil
}

// FetchDetail resolves id and loads the full record. Errors are returned
// unchanged.
func (r *Resolver) FetchDetail(ctx context.Context, mediaType MediaType, id string) (DetailRecord, error) {
	nativeID, err := r.ResolveID(ctx, mediaType, id)
	if err != nil {
		return DetailRecord{}, err
	}

	raw, err := r.provider.Details(ctx, string(mediaType), nativeID, detailAppend...)
	if err != nil {
		return DetailRecord{}, err
	}
	return ToDetailRecord(*raw, mediaType), nil
}

// ResolveAndFetchDetail loads the record for id. A NotFoundError is returned
// to the caller; any other failure degrades to Placeholder with a nil error.
func (r *Resolver) ResolveAndFetchDetail(ctx context.Context, mediaType MediaType, id string) (DetailRecord, error) {
	rec, err := r.FetchDetail(ctx, mediaType, id)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, ErrNotFound) {
		return DetailRecord{}, err
	}

	r.logger.Warn().Err(err).Str("media_type", string(mediaType)).Str("id", id).Msg("Detail fetch failed, using placeholder")
	return Placeholder(mediaType), nil
}

// WatchID returns the id a card links to: the external id when the provider
// knows one, otherwise the native id. It never fails.
func (r *Resolver) WatchID(ctx context.Context, mediaType MediaType, id int) string {
	fallback := strconv.Itoa(id)

	raw, err := r.provider.Details(ctx, string(mediaType), id, "external_ids")
	if err != nil {
		r.logger.Warn().Err(err).Int("id", id).Msg("Watch id lookup failed, using native id")
		return fallback
	}

	rec := ToDetailRecord(*raw, mediaType)
	if rec.ExternalID != nil {
		return *rec.ExternalID
	}
	return fallback
}
