package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/eduwatcheru/eduwatcheru/internal/config"
	"github.com/eduwatcheru/eduwatcheru/internal/metrics"
)

const maxBodyBytes = 8 << 20

// ErrFetch matches every failure returned by the client, whether the provider
// answered with a non-2xx status or could not be reached at all.
var ErrFetch = errors.New("tmdb fetch failed")

// FetchError describes a failed provider request.
type FetchError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("tmdb %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("tmdb %s: status %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("tmdb %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("tmdb %s: request failed", e.Endpoint)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}

// HealthReporter receives provider health transitions. It matches the
// string-based methods of the health service.
type HealthReporter interface {
	SetErrorStr(category, id, message string)
	SetWarningStr(category, id, message string)
	ClearStatusStr(category, id string)
}

const (
	healthCategory = "provider"
	healthID       = "tmdb"
)

// Client is a TMDB API client. It never retries and never caches; every call
// is one GET against the provider.
type Client struct {
	httpClient *http.Client
	endpoints  config.Endpoints
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	health     HealthReporter
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.CatalogConfig, logger zerolog.Logger) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		httpClient: &http.Client{},
		endpoints:  config.Resolve(cfg),
		timeout:    cfg.Timeout,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With().Str("component", "tmdb").Logger(),
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.logger)
	}
	return c
}

// SetHealthReporter sets where request outcomes are reported.
func (c *Client) SetHealthReporter(r HealthReporter) {
	c.health = r
}

// Endpoints returns the resolved provider endpoints.
func (c *Client) Endpoints() config.Endpoints {
	return c.endpoints
}

func newBreaker(cfg config.BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	name := "tmdb"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// Client errors are the caller's problem, not provider health.
		IsSuccessful: func(err error) bool {
			var fe *FetchError
			if errors.As(err, &fe) && fe.StatusCode > 0 && fe.StatusCode < 500 {
				return true
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// FetchJSON issues a GET for endpoint and decodes the body into out. The
// api_key and language parameters are always sent.
func (c *Client) FetchJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Set("api_key", c.endpoints.APIKey)
	query.Set("language", c.endpoints.Language)
	reqURL := c.endpoints.APIBase + endpoint + "?" + query.Encode()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordFetch(endpoint, "rejected", time.Since(start))
		return &FetchError{Endpoint: endpoint, Err: err}
	}

	var body []byte
	var err error
	if c.breaker != nil {
		body, err = c.breaker.Execute(func() ([]byte, error) {
			return c.get(ctx, endpoint, reqURL)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &FetchError{Endpoint: endpoint, Err: err}
			metrics.RecordFetch(endpoint, "rejected", time.Since(start))
			c.reportHealth(err)
			return err
		}
	} else {
		body, err = c.get(ctx, endpoint, reqURL)
	}

	duration := time.Since(start)
	if err != nil {
		outcome := "transport_error"
		var fe *FetchError
		if errors.As(err, &fe) && fe.StatusCode != 0 {
			outcome = "http_error"
		}
		metrics.RecordFetch(endpoint, outcome, duration)
		c.reportHealth(err)
		return err
	}
	metrics.RecordFetch(endpoint, "ok", duration)
	c.reportHealth(nil)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Dur("duration", duration).
		Int("bytes", len(body)).
		Msg("TMDB request completed")

	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) reportHealth(err error) {
	if c.health == nil {
		return
	}
	var fe *FetchError
	switch {
	case err == nil:
		c.health.ClearStatusStr(healthCategory, healthID)
	case errors.Is(err, context.Canceled):
		// The caller went away; says nothing about the provider.
	case errors.Is(err, gobreaker.ErrOpenState):
		c.health.SetErrorStr(healthCategory, healthID, "circuit breaker open")
	case errors.As(err, &fe) && fe.StatusCode == http.StatusTooManyRequests:
		c.health.SetWarningStr(healthCategory, healthID, "rate limited by provider")
	case errors.As(err, &fe) && fe.StatusCode == http.StatusUnauthorized:
		c.health.SetErrorStr(healthCategory, healthID, "API key rejected")
	case errors.As(err, &fe) && fe.StatusCode >= 400 && fe.StatusCode < 500:
	default:
		c.health.SetErrorStr(healthCategory, healthID, err.Error())
	}
}

func (c *Client) get(ctx context.Context, endpoint, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			fe.Message = errResp.StatusMessage
		}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Str("message", fe.Message).
			Msg("TMDB API error")
		return nil, fe
	}

	return body, nil
}

// Ping fetches the provider configuration. It is used as a connectivity
// probe and exercises the same key and language handling as every call.
func (c *Client) Ping(ctx context.Context) error {
	var resp Configuration
	return c.FetchJSON(ctx, "/configuration", nil, &resp)
}

// List fetches one page of a list endpoint such as /movie/popular.
func (c *Client) List(ctx context.Context, endpoint string, page int) (*PageResponse, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))

	var resp PageResponse
	if err := c.FetchJSON(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchMulti searches movies, series and people in one call.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*PageResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(max(page, 1)))
	params.Set("include_adult", "false")

	var resp PageResponse
	if err := c.FetchJSON(ctx, "/search/multi", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FindByExternalID looks up provider ids for an external id, e.g. an IMDb id.
func (c *Client) FindByExternalID(ctx context.Context, externalID, source string) (*FindResponse, error) {
	params := url.Values{}
	params.Set("external_source", source)

	var resp FindResponse
	if err := c.FetchJSON(ctx, "/find/"+url.PathEscape(externalID), params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Details fetches /movie/{id} or /tv/{id} with optional appended sub-resources.
func (c *Client) Details(ctx context.Context, mediaType string, id int, appendTo ...string) (*Details, error) {
	params := url.Values{}
	if len(appendTo) > 0 {
		params.Set("append_to_response", strings.Join(appendTo, ","))
	}

	var resp Details
	endpoint := fmt.Sprintf("/%s/%d", mediaType, id)
	if err := c.FetchJSON(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Season fetches the episode list of one season.
func (c *Client) Season(ctx context.Context, seriesID, seasonNumber int) (*SeasonDetails, error) {
	var resp SeasonDetails
	endpoint := fmt.Sprintf("/tv/%d/season/%d", seriesID, seasonNumber)
	if err := c.FetchJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImageURL joins an image base and a provider path. A nil or empty path
// yields "".
func ImageURL(base string, path *string) string {
	if path == nil || *path == "" {
		return ""
	}
	return base + *path
}
