//nolint:revive // Package name 'api' is intentionally generic for the HTTP API layer
package api

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/eduwatcheru/eduwatcheru/internal/logger"
)

const defaultLogLimit = 200

// LogsProvider provides access to log data.
type LogsProvider interface {
	Recent(limit int) []logger.Entry
	FilePath() string
}

type logsQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=5000"`
}

// LogsHandlers handles log-related HTTP endpoints.
type LogsHandlers struct {
	provider LogsProvider
}

// NewLogsHandlers creates a new logs handlers instance.
func NewLogsHandlers(provider LogsProvider) *LogsHandlers {
	return &LogsHandlers{provider: provider}
}

// RegisterRoutes registers log routes on the given group.
func (h *LogsHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetRecentLogs)
	g.GET("/download", h.DownloadLogFile)
}

// GetRecentLogs returns recent log entries from the ring buffer.
// GET /api/v1/system/logs?limit=
func (h *LogsHandlers) GetRecentLogs(c echo.Context) error {
	var q logsQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if err := validate.Struct(q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 5000")
	}
	if q.Limit == 0 {
		q.Limit = defaultLogLimit
	}

	logs := h.provider.Recent(q.Limit)
	if logs == nil {
		logs = []logger.Entry{}
	}
	return c.JSON(http.StatusOK, logs)
}

// DownloadLogFile serves the current log file for download.
func (h *LogsHandlers) DownloadLogFile(c echo.Context) error {
	logPath := h.provider.FilePath()
	if logPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no log file configured")
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "log file not found")
	}

	return c.Attachment(logPath, "eduwatcheru.log")
}
