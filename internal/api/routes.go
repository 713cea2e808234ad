// Package api exposes the query engine over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tuannm99/novaspatial/internal/api/handlers"
	"github.com/tuannm99/novaspatial/internal/api/middleware"
	"github.com/tuannm99/novaspatial/internal/engine"
)

type Router struct {
	indexHandler *handlers.IndexHandler
	queryHandler *handlers.QueryHandler
	tokenHash    string
}

func NewRouter(db *engine.Database, tokenHash string) *Router {
	return &Router{
		indexHandler: handlers.NewIndexHandler(db),
		queryHandler: handlers.NewQueryHandler(db),
		tokenHash:    tokenHash,
	}
}

func (r *Router) Setup(e *gin.Engine) {
	e.Use(middleware.RequestID(), middleware.Logger())

	e.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := e.Group("/")
	api.Use(middleware.BearerToken(r.tokenHash))
	{
		api.GET("/stats", r.indexHandler.Stats)
		api.GET("/cells/encode", r.queryHandler.Encode)

		idx := api.Group("/indexes")
		{
			idx.GET("", r.indexHandler.List)
			idx.GET("/:name", r.indexHandler.Get)
			idx.DELETE("/:name", r.indexHandler.Drop)
			idx.GET("/:name/check", r.indexHandler.Check)
			idx.GET("/:name/point", r.queryHandler.Point)
			idx.GET("/:name/rect", r.queryHandler.Rect)
			idx.GET("/:name/range", r.queryHandler.Range)
			idx.POST("/:name/polygon", r.queryHandler.Polygon)
			idx.GET("/:name/cell/*cell", r.queryHandler.Cell)
		}
	}
}

// NewEngine returns a gin engine with recovery and every route installed.
func NewEngine(db *engine.Database, tokenHash string, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	e := gin.New()
	e.Use(gin.Recovery())
	NewRouter(db, tokenHash).Setup(e)
	return e
}
