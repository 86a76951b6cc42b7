package config

// EmbeddedTMDBKey is injected at build time via ldflags. It overrides the
// placeholder key and can itself be overridden by environment variables or
// the config file.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/eduwatcheru/eduwatcheru/internal/config.EmbeddedTMDBKey=xxx'"
var EmbeddedTMDBKey string

// Version is the build version reported by the status endpoint.
var Version = "dev"
