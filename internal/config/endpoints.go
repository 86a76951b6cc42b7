package config

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	DefaultAPIBase           = "https://api.themoviedb.org/3"
	DefaultImageBaseSmall    = "https://image.tmdb.org/t/p/w500"
	DefaultImageBaseOriginal = "https://image.tmdb.org/t/p/original"
	DefaultLanguage          = "en-US"

	DefaultMovieEmbedBase = "https://vidsrc.to/embed/movie"
	DefaultTVEmbedBase    = "https://vidsrc.xyz/embed/tv"
)

// placeholderKey is a public demo credential shipped with the front-end. It is
// not a secret; deployments are expected to supply their own key.
const placeholderKey = "NTJmZjQ2OWFhN2IyYzhiYjNlZjBkMmI3NzQ4NTE2MGY"

// Endpoints are the resolved values every provider call is built from.
type Endpoints struct {
	APIKey            string
	APIBase           string
	ImageBaseSmall    string
	ImageBaseOriginal string
	Language          string
}

// Resolve returns the provider endpoints for cfg. Key priority is the
// configured key, then the ldflags key, then the bundled placeholder.
func Resolve(cfg CatalogConfig) Endpoints {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		key = EmbeddedTMDBKey
	}
	if key == "" {
		key = MustDecodeKey(placeholderKey)
	}

	return Endpoints{
		APIKey:            key,
		APIBase:           strings.TrimRight(orDefault(cfg.BaseURL, DefaultAPIBase), "/"),
		ImageBaseSmall:    strings.TrimRight(orDefault(cfg.ImageBaseSmall, DefaultImageBaseSmall), "/"),
		ImageBaseOriginal: strings.TrimRight(orDefault(cfg.ImageBaseOriginal, DefaultImageBaseOriginal), "/"),
		Language:          orDefault(cfg.Language, DefaultLanguage),
	}
}

// DecodeKey decodes a base64 key literal. Unpadded input is accepted.
func DecodeKey(encoded string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", fmt.Errorf("decode api key: %w", err)
	}
	return string(raw), nil
}

// MustDecodeKey is DecodeKey for compile-time literals. A malformed literal is
// a build defect, so it panics.
func MustDecodeKey(encoded string) string {
	key, err := DecodeKey(encoded)
	if err != nil {
		panic(err)
	}
	return key
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
