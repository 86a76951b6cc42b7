package metadata

import (
	"fmt"
	"math"
)

// MediaType distinguishes movies from series.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// ParseMediaType accepts "movie" or "tv".
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(s) {
	case MediaMovie, MediaTV:
		return MediaType(s), true
	}
	return "", false
}

// MediaItem is the normalized card model shared by every page.
type MediaItem struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	PosterPath   *string   `json:"posterPath"`
	BackdropPath *string   `json:"backdropPath"`
	Overview     string    `json:"overview"`
	VoteAverage  float64   `json:"voteAverage"`
	ReleaseDate  *string   `json:"releaseDate"`
	MediaType    MediaType `json:"mediaType"`
	ExternalID   *string   `json:"externalId,omitempty"`

	PosterURL   string `json:"posterUrl,omitempty"`
	BackdropURL string `json:"backdropUrl,omitempty"`

	// Rendered values. Clients show these instead of formatting voteAverage
	// and releaseDate themselves.
	Rating string `json:"rating,omitempty"`
	Match  int    `json:"match"`
	Year   string `json:"year,omitempty"`
}

// RatingLabel renders the vote average with one decimal.
func (m MediaItem) RatingLabel() string {
	return fmt.Sprintf("%.1f", m.VoteAverage)
}

func (m *MediaItem) applyLabels() {
	m.Rating = m.RatingLabel()
	m.Match = m.MatchPercent()
	m.Year = m.ReleaseYear()
}

// MatchPercent is the vote average on a 0-100 scale.
func (m MediaItem) MatchPercent() int {
	return int(math.Round(m.VoteAverage * 10))
}

// ReleaseYear returns the year part of the release date, or "N/A".
func (m MediaItem) ReleaseYear() string {
	if m.ReleaseDate == nil || len(*m.ReleaseDate) < 4 {
		return "N/A"
	}
	return (*m.ReleaseDate)[:4]
}

// Category is a named list endpoint shown as one row of cards.
type Category struct {
	Title    string `json:"title"`
	Endpoint string `json:"endpoint"`
}

// CategoryListing is one loaded row.
type CategoryListing struct {
	Title string      `json:"title"`
	Items []MediaItem `json:"items"`
}

// SearchResultPage is one page of multi-search results with people removed.
type SearchResultPage struct {
	Query        string      `json:"query"`
	Items        []MediaItem `json:"items"`
	TotalResults int         `json:"totalResults"`
	CurrentPage  int         `json:"currentPage"`
	TotalPages   int         `json:"totalPages"`
	Pages        []int       `json:"pages"`
	HasPrev      bool        `json:"hasPrev"`
	HasNext      bool        `json:"hasNext"`
}

// Genre is a named genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company is a production company.
type Company struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	LogoPath *string `json:"logoPath"`
}

// SeasonSummary describes one season of a series.
type SeasonSummary struct {
	SeasonNumber int     `json:"seasonNumber"`
	Name         string  `json:"name"`
	EpisodeCount int     `json:"episodeCount"`
	AirDate      *string `json:"airDate"`
}

// Episode is one episode of a season.
type Episode struct {
	EpisodeNumber int     `json:"episodeNumber"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview,omitempty"`
	StillPath     *string `json:"stillPath"`
	AirDate       *string `json:"airDate"`
	StillURL      string  `json:"stillUrl,omitempty"`
}

// DetailRecord is the full record shown on a watch page.
type DetailRecord struct {
	MediaItem

	Genres              []Genre         `json:"genres"`
	RuntimeMinutes      *int            `json:"runtimeMinutes"`
	Tagline             *string         `json:"tagline"`
	ProductionCompanies []Company       `json:"productionCompanies"`
	Seasons             []SeasonSummary `json:"seasons"`
	NumberOfSeasons     int             `json:"numberOfSeasons,omitempty"`
	NumberOfEpisodes    int             `json:"numberOfEpisodes,omitempty"`
	Cast                []string        `json:"cast,omitempty"`
	Similar             []MediaItem     `json:"similar,omitempty"`
	TrailerKey          string          `json:"trailerKey,omitempty"`
	Runtime             string          `json:"runtime,omitempty"`

	// Degraded is set when the record is a placeholder standing in for a
	// failed fetch.
	Degraded bool `json:"degraded,omitempty"`
}

// RuntimeLabel formats the runtime as "Xh Ym" or "Ym".
func (d DetailRecord) RuntimeLabel() string {
	if d.RuntimeMinutes == nil || *d.RuntimeMinutes <= 0 {
		return "Unknown"
	}
	h, m := *d.RuntimeMinutes/60, *d.RuntimeMinutes%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
