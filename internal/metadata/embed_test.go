package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eduwatcheru/eduwatcheru/internal/config"
)

func TestEmbedBuilder_Build(t *testing.T) {
	b := NewEmbedBuilder(config.EmbedConfig{
		MovieBase: "https://movies.test/embed/",
		TVBase:    "https://series.test/embed/tv",
	})

	tests := []struct {
		name      string
		mediaType MediaType
		id        string
		season    int
		episode   int
		want      string
	}{
		{"movie ignores selection", MediaMovie, "tt0133093", 3, 4, "https://movies.test/embed/tt0133093"},
		{"series", MediaTV, "tt0944947", 2, 5, "https://series.test/embed/tv/tt0944947/2/5"},
		{"series floors at one", MediaTV, "1399", 0, -1, "https://series.test/embed/tv/1399/1/1"},
		{"empty id", MediaTV, "", 1, 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Build(tt.mediaType, tt.id, tt.season, tt.episode)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, b.Build(tt.mediaType, tt.id, tt.season, tt.episode))
		})
	}
}

func TestEmbedBuilder_DefaultsAndHosts(t *testing.T) {
	b := NewEmbedBuilder(config.EmbedConfig{})
	assert.Equal(t, config.DefaultMovieEmbedBase+"/603", b.Build(MediaMovie, "603", 0, 0))

	b = NewEmbedBuilder(config.EmbedConfig{
		MovieBase: "https://movies.test/embed",
		TVBase:    "https://series.test/embed/tv",
	})
	assert.Equal(t, []string{"https://movies.test", "https://series.test"}, b.Hosts())
}
