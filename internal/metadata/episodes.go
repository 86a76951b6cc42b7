package metadata

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// EpisodePhase is the state of an EpisodeBrowser.
type EpisodePhase string

const (
	PhaseSeasonSelected  EpisodePhase = "season_selected"
	PhaseEpisodesLoading EpisodePhase = "episodes_loading"
	PhaseEpisodesReady   EpisodePhase = "episodes_ready"
	PhaseEpisodesFailed  EpisodePhase = "episodes_failed"
)

// EpisodeView is a snapshot of the browser.
type EpisodeView struct {
	Phase    EpisodePhase `json:"phase"`
	Season   int          `json:"season"`
	Episode  int          `json:"episode"`
	Episodes []Episode    `json:"episodes"`
	EmbedURL string       `json:"embedUrl"`
}

// EpisodeBrowser tracks season and episode selection for one series.
//
//	season_selected -> episodes_loading -> episodes_ready | episodes_failed
//
// Changing season resets the episode to 1 and replaces the episode list.
type EpisodeBrowser struct {
	mu       sync.Mutex
	provider Provider
	embed    *EmbedBuilder
	logger   zerolog.Logger

	seriesID int
	routeID  string
	season   int
	episode  int
	episodes []Episode
	phase    EpisodePhase
	token    uint64
}

// NewEpisodeBrowser starts at season 1 episode 1. seriesID is the native id
// used for provider calls; routeID is the id the player is addressed with.
func NewEpisodeBrowser(provider Provider, embed *EmbedBuilder, seriesID int, routeID string, logger zerolog.Logger) *EpisodeBrowser {
	return &EpisodeBrowser{
		provider: provider,
		embed:    embed,
		logger:   logger.With().Str("component", "episodes").Int("series_id", seriesID).Logger(),
		seriesID: seriesID,
		routeID:  routeID,
		season:   1,
		episode:  1,
		episodes: []Episode{},
		phase:    PhaseSeasonSelected,
	}
}

// SelectSeason switches to season n and loads its episodes. Selecting the
// season that is already loaded is a no-op.
func (b *EpisodeBrowser) SelectSeason(ctx context.Context, n int) EpisodeView {
	b.mu.Lock()
	if n < 1 || (n == b.season && b.phase == PhaseEpisodesReady) {
		view := b.viewLocked()
		b.mu.Unlock()
		return view
	}
	b.season = n
	b.episode = 1
	b.phase = PhaseEpisodesLoading
	b.token++
	token := b.token
	b.mu.Unlock()

	season, err := b.provider.Season(ctx, b.seriesID, n)

	b.mu.Lock()
	defer b.mu.Unlock()
	if token != b.token {
		return b.viewLocked()
	}

	if err != nil {
		b.logger.Warn().Err(err).Int("season", n).Msg("Failed to load episodes")
		b.episodes = []Episode{}
		b.phase = PhaseEpisodesFailed
		return b.viewLocked()
	}

	b.episodes = ToEpisodes(season.Episodes)
	b.phase = PhaseEpisodesReady
	return b.viewLocked()
}

// SelectEpisode picks an episode of the current season. Numbers not in a
// loaded list are rejected.
func (b *EpisodeBrowser) SelectEpisode(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 1 {
		return false
	}
	if len(b.episodes) > 0 && !hasEpisode(b.episodes, n) {
		return false
	}
	b.episode = n
	return true
}

// View returns the current snapshot.
func (b *EpisodeBrowser) View() EpisodeView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

// EmbedURL is the player URL for the current selection.
func (b *EpisodeBrowser) EmbedURL() string {
	return b.View().EmbedURL
}

func (b *EpisodeBrowser) viewLocked() EpisodeView {
	episodes := make([]Episode, len(b.episodes))
	copy(episodes, b.episodes)
	return EpisodeView{
		Phase:    b.phase,
		Season:   b.season,
		Episode:  b.episode,
		Episodes: episodes,
		EmbedURL: b.embed.Build(MediaTV, b.routeID, b.season, b.episode),
	}
}

func hasEpisode(episodes []Episode, n int) bool {
	for _, e := range episodes {
		if e.EpisodeNumber == n {
			return true
		}
	}
	return false
}
