package metadata

import (
	"context"

	"github.com/eduwatcheru/eduwatcheru/internal/metadata/tmdb"
)

// Provider is the subset of the TMDB client the catalog depends on.
type Provider interface {
	List(ctx context.Context, endpoint string, page int) (*tmdb.PageResponse, error)
	SearchMulti(ctx context.Context, query string, page int) (*tmdb.PageResponse, error)
	FindByExternalID(ctx context.Context, externalID, source string) (*tmdb.FindResponse, error)
	Details(ctx context.Context, mediaType string, id int, appendTo ...string) (*tmdb.Details, error)
	Season(ctx context.Context, seriesID, seasonNumber int) (*tmdb.SeasonDetails, error)
}

// HealthReporter receives response cache health transitions.
type HealthReporter interface {
	SetErrorStr(category, id, message string)
	ClearStatusStr(category, id string)
}

var _ Provider = (*tmdb.Client)(nil)
