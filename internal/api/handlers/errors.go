package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tuannm99/novaspatial/internal/api/middleware"
	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/engine"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

// StatusOf maps query errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, spatial.ErrInvalidPoint),
		errors.Is(err, spatial.ErrInvalidCell),
		errors.Is(err, spatial.ErrInvalidGrid),
		errors.Is(err, catalog.ErrBadName),
		errors.Is(err, engine.ErrWrongKind):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrDatabaseClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("api.query.failed", "path", c.FullPath(), "err", err, "request_id", middleware.GetRequestID(c))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
