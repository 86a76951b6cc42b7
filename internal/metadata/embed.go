package metadata

import (
	"fmt"
	"strings"

	"github.com/eduwatcheru/eduwatcheru/internal/config"
)

// EmbedBuilder builds iframe sources for the external players.
type EmbedBuilder struct {
	movieBase string
	tvBase    string
}

// NewEmbedBuilder creates a builder from configured player hosts.
func NewEmbedBuilder(cfg config.EmbedConfig) *EmbedBuilder {
	movie := cfg.MovieBase
	if movie == "" {
		movie = config.DefaultMovieEmbedBase
	}
	tv := cfg.TVBase
	if tv == "" {
		tv = config.DefaultTVEmbedBase
	}
	return &EmbedBuilder{
		movieBase: strings.TrimRight(movie, "/"),
		tvBase:    strings.TrimRight(tv, "/"),
	}
}

// Build returns the player URL. Movies ignore season and episode; for series
// both are floored at 1. An empty id yields "".
func (b *EmbedBuilder) Build(mediaType MediaType, id string, season, episode int) string {
	if id == "" {
		return ""
	}
	if mediaType == MediaTV {
		return fmt.Sprintf("%s/%s/%d/%d", b.tvBase, id, max(season, 1), max(episode, 1))
	}
	return fmt.Sprintf("%s/%s", b.movieBase, id)
}

// Hosts returns the scheme://host origins of both players.
func (b *EmbedBuilder) Hosts() []string {
	return []string{origin(b.movieBase), origin(b.tvBase)}
}

func origin(base string) string {
	scheme, rest, ok := strings.Cut(base, "://")
	if !ok {
		return base
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host
}
