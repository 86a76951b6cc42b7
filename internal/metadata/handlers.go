package metadata

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// View statuses carried by every page response.
const (
	StatusReady    = "ready"
	StatusEmpty    = "empty"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

const (
	moviesFailedMessage   = "Failed to load movies. Please try again later."
	tvFailedMessage       = "Failed to load TV shows. Please try again later."
	episodesFailedMessage = "Failed to load episodes. Please try again later."
	notFoundMessage       = "The title you are looking for could not be found."
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PageResponse is the envelope returned by page endpoints.
type PageResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type categoryRequest struct {
	Kind string `param:"kind" validate:"required,oneof=movie tv"`
	Name string `param:"name" validate:"required,max=32"`
	Page int    `query:"page" validate:"omitempty,min=1,max=500"`
}

type searchRequest struct {
	Query string `query:"q" validate:"max=200"`
	Page  int    `query:"page" validate:"omitempty,min=1,max=500"`
}

type watchRequest struct {
	ID      string `param:"id" validate:"required,max=32"`
	Season  int    `query:"season" validate:"omitempty,min=1,max=500"`
	Episode int    `query:"episode" validate:"omitempty,min=1,max=5000"`
}

type seasonRequest struct {
	ID     string `param:"id" validate:"required,max=32"`
	Season int    `param:"season" validate:"required,min=1,max=500"`
}

type cardRequest struct {
	Type string `param:"type" validate:"required,oneof=movie tv"`
	ID   int    `param:"id" validate:"required,min=1"`
}

type embedRequest struct {
	Type    string `param:"type" validate:"required,oneof=movie tv"`
	ID      string `param:"id" validate:"required,max=32"`
	Season  int    `query:"season" validate:"omitempty,min=1,max=500"`
	Episode int    `query:"episode" validate:"omitempty,min=1,max=5000"`
}

// Handlers provides HTTP handlers for catalog pages.
type Handlers struct {
	service *Service
}

// NewHandlers creates new catalog handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the catalog routes. searchMiddleware wraps the
// search endpoint only.
func (h *Handlers) RegisterRoutes(g *echo.Group, searchMiddleware ...echo.MiddlewareFunc) {
	// Listing pages
	g.GET("/home", h.GetHome)
	g.GET("/movies", h.GetMovies)
	g.GET("/tv", h.GetTV)
	g.GET("/category/:kind/:name", h.GetCategory)

	g.GET("/search", h.Search, searchMiddleware...)

	// Watch pages
	g.GET("/watch/movie/:id", h.WatchMovie)
	g.GET("/watch/tv/:id", h.WatchTV)
	g.GET("/tv/:id/season/:season", h.GetSeason)

	g.GET("/card/:type/:id/watch-id", h.GetWatchID)
	g.GET("/embed/:type/:id", h.GetEmbed)

	g.DELETE("/cache", h.ClearCache)
}

// GetHome returns the featured item and movie rows.
// GET /api/v1/catalog/home
func (h *Handlers) GetHome(c echo.Context) error {
	view, err := h.service.HomePage(c.Request().Context())
	if err != nil {
		return errorView(c, moviesFailedMessage)
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: view})
}

// GetMovies returns the movie rows.
// GET /api/v1/catalog/movies
func (h *Handlers) GetMovies(c echo.Context) error {
	listings, err := h.service.MoviesPage(c.Request().Context())
	if err != nil {
		return errorView(c, moviesFailedMessage)
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: listings})
}

// GetTV returns the series rows.
// GET /api/v1/catalog/tv
func (h *Handlers) GetTV(c echo.Context) error {
	listings, err := h.service.TVPage(c.Request().Context())
	if err != nil {
		return errorView(c, tvFailedMessage)
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: listings})
}

// GetCategory returns one preset row with the "view all" limit.
// GET /api/v1/catalog/category/:kind/:name?page=
func (h *Handlers) GetCategory(c echo.Context) error {
	var req categoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	mediaType := MediaType(req.Kind)
	cat, ok := FindCategory(mediaType, req.Name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown category")
	}

	listing, err := h.service.CategoryPage(c.Request().Context(), cat, mediaType, max(req.Page, 1))
	if err != nil {
		msg := moviesFailedMessage
		if mediaType == MediaTV {
			msg = tvFailedMessage
		}
		return errorView(c, msg)
	}
	if len(listing.Items) == 0 {
		return c.JSON(http.StatusOK, PageResponse{Status: StatusEmpty, Data: listing})
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: listing})
}

// Search returns one page of multi-search results.
// GET /api/v1/catalog/search?q=...&page=...
func (h *Handlers) Search(c echo.Context) error {
	var req searchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.Search(c.Request().Context(), req.Query, max(req.Page, 1))
	if err != nil {
		return errorView(c, searchFailedMessage)
	}
	if len(result.Items) == 0 {
		return c.JSON(http.StatusOK, PageResponse{Status: StatusEmpty, Data: result})
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: result})
}

// WatchMovie returns the movie detail and player URL.
// GET /api/v1/catalog/watch/movie/:id
func (h *Handlers) WatchMovie(c echo.Context) error {
	var req watchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.service.WatchMovie(c.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, PageResponse{Status: StatusNotFound, Error: notFoundMessage})
		}
		return errorView(c, moviesFailedMessage)
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: view})
}

// WatchTV returns the series detail, episode list and player URL.
// GET /api/v1/catalog/watch/tv/:id?season=&episode=
func (h *Handlers) WatchTV(c echo.Context) error {
	var req watchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.service.WatchTV(c.Request().Context(), req.ID, max(req.Season, 1), max(req.Episode, 1))
	if err != nil {
		return errorView(c, tvFailedMessage)
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: view})
}

// GetSeason returns the episodes of one season.
// GET /api/v1/catalog/tv/:id/season/:season
func (h *Handlers) GetSeason(c echo.Context) error {
	var req seasonRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.service.SeasonEpisodes(c.Request().Context(), req.ID, req.Season)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, PageResponse{Status: StatusNotFound, Error: notFoundMessage})
		}
		return errorView(c, episodesFailedMessage)
	}
	if view.Phase == PhaseEpisodesFailed {
		return c.JSON(http.StatusBadGateway, PageResponse{Status: StatusError, Error: episodesFailedMessage, Data: view})
	}
	if len(view.Episodes) == 0 {
		return c.JSON(http.StatusOK, PageResponse{Status: StatusEmpty, Data: view})
	}
	return c.JSON(http.StatusOK, PageResponse{Status: StatusReady, Data: view})
}

// GetWatchID resolves the id a card links to.
// GET /api/v1/catalog/card/:type/:id/watch-id
func (h *Handlers) GetWatchID(c echo.Context) error {
	var req cardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	mediaType := MediaType(req.Type)
	id := h.service.WatchID(c.Request().Context(), mediaType, req.ID)
	return c.JSON(http.StatusOK, map[string]string{
		"id":   id,
		"path": WatchPath(mediaType, id),
	})
}

// GetEmbed returns the player URL only.
// GET /api/v1/catalog/embed/:type/:id?season=&episode=
func (h *Handlers) GetEmbed(c echo.Context) error {
	var req embedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	url := h.service.Embed().Build(MediaType(req.Type), req.ID, max(req.Season, 1), max(req.Episode, 1))
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// ClearCache drops all cached responses.
// DELETE /api/v1/catalog/cache
func (h *Handlers) ClearCache(c echo.Context) error {
	if err := h.service.ClearCache(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func errorView(c echo.Context, message string) error {
	return c.JSON(http.StatusBadGateway, PageResponse{Status: StatusError, Error: message})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request parameters")
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field())+": "+fe.Tag())
			}
			return echo.NewHTTPError(http.StatusBadRequest, "invalid "+strings.Join(fields, ", "))
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
