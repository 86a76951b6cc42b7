package metadata

import (
	"math"
	"sort"

	"github.com/eduwatcheru/eduwatcheru/internal/metadata/tmdb"
)

const (
	unknownTitle = "Unknown Title"
	maxCast      = 10
)

// ToMediaItem normalizes a provider result. Missing fields fall back to
// defaults; it never fails.
func ToMediaItem(raw tmdb.Media, assumed MediaType) MediaItem {
	title := raw.Title
	if title == "" {
		title = raw.Name
	}
	if title == "" {
		title = unknownTitle
	}

	release := raw.ReleaseDate
	if release == "" {
		release = raw.FirstAirDate
	}

	mediaType := assumed
	if mt, ok := ParseMediaType(raw.MediaType); ok {
		mediaType = mt
	}

	return MediaItem{
		ID:           raw.ID,
		Title:        title,
		PosterPath:   nonEmpty(raw.PosterPath),
		BackdropPath: nonEmpty(raw.BackdropPath),
		Overview:     raw.Overview,
		VoteAverage:  raw.VoteAverage,
		ReleaseDate:  optional(release),
		MediaType:    mediaType,
	}
}

// ToMediaItems maps a slice, keeping at most limit items when limit > 0.
func ToMediaItems(raw []tmdb.Media, assumed MediaType, limit int) []MediaItem {
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}
	items := make([]MediaItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, ToMediaItem(r, assumed))
	}
	return items
}

// ToDetailRecord normalizes a details payload including appended sub-resources.
func ToDetailRecord(raw tmdb.Details, assumed MediaType) DetailRecord {
	rec := DetailRecord{
		MediaItem:        ToMediaItem(raw.Media, assumed),
		Genres:           make([]Genre, 0, len(raw.Genres)),
		Tagline:          optional(raw.Tagline),
		NumberOfSeasons:  raw.NumberOfSeasons,
		NumberOfEpisodes: raw.NumberOfEpisodes,
	}

	for _, g := range raw.Genres {
		rec.Genres = append(rec.Genres, Genre{ID: g.ID, Name: g.Name})
	}
	for _, pc := range raw.ProductionCompanies {
		rec.ProductionCompanies = append(rec.ProductionCompanies, Company{ID: pc.ID, Name: pc.Name, LogoPath: nonEmpty(pc.LogoPath)})
	}

	switch {
	case raw.Runtime != nil && *raw.Runtime > 0:
		rt := *raw.Runtime
		rec.RuntimeMinutes = &rt
	case len(raw.EpisodeRunTime) > 0:
		sum := 0
		for _, m := range raw.EpisodeRunTime {
			sum += m
		}
		avg := int(math.Round(float64(sum) / float64(len(raw.EpisodeRunTime))))
		rec.RuntimeMinutes = &avg
	}

	for _, s := range raw.Seasons {
		// Season 0 holds specials.
		if s.SeasonNumber <= 0 {
			continue
		}
		rec.Seasons = append(rec.Seasons, SeasonSummary{
			SeasonNumber: s.SeasonNumber,
			Name:         s.Name,
			EpisodeCount: s.EpisodeCount,
			AirDate:      nonEmpty(s.AirDate),
		})
	}

	switch {
	case raw.IMDbID != nil && *raw.IMDbID != "":
		rec.ExternalID = nonEmpty(raw.IMDbID)
	case raw.ExternalIDs != nil:
		rec.ExternalID = nonEmpty(raw.ExternalIDs.IMDbID)
	}

	if raw.Credits != nil {
		cast := append([]tmdb.CastMember(nil), raw.Credits.Cast...)
		sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
		for i, c := range cast {
			if i == maxCast {
				break
			}
			rec.Cast = append(rec.Cast, c.Name)
		}
	}

	if raw.Similar != nil {
		rec.Similar = ToMediaItems(raw.Similar.Results, rec.MediaType, defaultRowLimit)
	}

	if raw.Videos != nil {
		rec.TrailerKey = trailerKey(raw.Videos.Results)
	}

	return rec
}

// ToEpisodes maps a season payload's episode list.
func ToEpisodes(raw []tmdb.Episode) []Episode {
	episodes := make([]Episode, 0, len(raw))
	for _, e := range raw {
		episodes = append(episodes, Episode{
			EpisodeNumber: e.EpisodeNumber,
			Name:          e.Name,
			Overview:      e.Overview,
			StillPath:     nonEmpty(e.StillPath),
			AirDate:       nonEmpty(e.AirDate),
		})
	}
	return episodes
}

// Placeholder is the record shown when details cannot be loaded.
func Placeholder(mediaType MediaType) DetailRecord {
	title := "Movie"
	if mediaType == MediaTV {
		title = "TV Show"
	}
	return DetailRecord{
		MediaItem: MediaItem{
			Title:     title,
			Overview:  "No description available",
			MediaType: mediaType,
		},
		Genres:         []Genre{},
		RuntimeMinutes: new(int),
		Degraded:       true,
	}
}

// trailerKey prefers an official YouTube trailer, then any YouTube trailer.
func trailerKey(videos []tmdb.Video) string {
	fallback := ""
	for _, v := range videos {
		if v.Site != "YouTube" || v.Type != "Trailer" {
			continue
		}
		if v.Official {
			return v.Key
		}
		if fallback == "" {
			fallback = v.Key
		}
	}
	return fallback
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
