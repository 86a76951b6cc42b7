package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const testTimeout = 15 * time.Second

// CheckFunc probes one tracked item. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Handlers provides HTTP handlers for health endpoints.
type Handlers struct {
	health *Service
	checks map[HealthCategory]map[string]CheckFunc
}

// NewHandlers creates new health handlers.
func NewHandlers(health *Service) *Handlers {
	return &Handlers{
		health: health,
		checks: make(map[HealthCategory]map[string]CheckFunc),
	}
}

// SetCheck registers the probe used when an item is tested on demand.
func (h *Handlers) SetCheck(category HealthCategory, id string, check CheckFunc) {
	if h.checks[category] == nil {
		h.checks[category] = make(map[string]CheckFunc)
	}
	h.checks[category][id] = check
}

// RegisterRoutes registers health routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAll)
	g.GET("/summary", h.GetSummary)
	g.GET("/:category", h.GetByCategory)
	g.POST("/:category/test", h.TestCategory)
	g.POST("/:category/:id/test", h.TestItem)
}

// TestResult is the outcome of probing one item.
type TestResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GetAll returns all health items grouped by category.
// GET /api/v1/health
func (h *Handlers) GetAll(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetAll())
}

// GetSummary returns summary counts.
// GET /api/v1/health/summary
func (h *Handlers) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetSummary())
}

// GetByCategory returns health items for a specific category.
// GET /api/v1/health/:category
func (h *Handlers) GetByCategory(c echo.Context) error {
	category, ok := ParseCategory(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid health category")
	}
	return c.JSON(http.StatusOK, h.health.GetByCategory(category))
}

// TestCategory tests all items in a category.
// POST /api/v1/health/:category/test
func (h *Handlers) TestCategory(c echo.Context) error {
	category, ok := ParseCategory(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid health category")
	}

	items := h.health.GetByCategory(category)
	if len(items) == 0 {
		return c.JSON(http.StatusOK, map[string]string{"message": "no items to test"})
	}

	// Sequential so the provider sees one probe at a time.
	results := make([]TestResult, 0, len(items))
	for _, item := range items {
		results = append(results, h.testSingleItem(c.Request().Context(), category, item.ID))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"category": category,
		"results":  results,
	})
}

// TestItem tests a specific health item.
// POST /api/v1/health/:category/:id/test
func (h *Handlers) TestItem(c echo.Context) error {
	category, ok := ParseCategory(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid health category")
	}
	id := c.Param("id")

	if h.health.GetItem(category, id) == nil {
		return echo.NewHTTPError(http.StatusNotFound, "health item not found")
	}

	return c.JSON(http.StatusOK, h.testSingleItem(c.Request().Context(), category, id))
}

func (h *Handlers) testSingleItem(ctx context.Context, category HealthCategory, id string) TestResult {
	result := TestResult{ID: id}

	check := h.checks[category][id]
	if check == nil {
		result.Message = "testing not configured"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	if err := check(ctx); err != nil {
		h.health.SetError(category, id, err.Error())
		result.Message = err.Error()
		return result
	}

	h.health.ClearStatus(category, id)
	result.Success = true
	result.Message = "Connection verified"
	return result
}
