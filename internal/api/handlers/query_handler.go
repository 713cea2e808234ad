package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tuannm99/novaspatial/internal/engine"
	"github.com/tuannm99/novaspatial/internal/spatial"
)

type QueryHandler struct {
	db *engine.Database
}

func NewQueryHandler(db *engine.Database) *QueryHandler {
	return &QueryHandler{db: db}
}

type pointQuery struct {
	Lat   *float64 `form:"lat" binding:"required"`
	Lon   *float64 `form:"lon" binding:"required"`
	Limit int      `form:"limit" binding:"min=0"`
}

func (q pointQuery) point() spatial.Point {
	return spatial.Point{Latitude: *q.Lat, Longitude: *q.Lon}
}

type rectQuery struct {
	MinLat *float64 `form:"min_lat" binding:"required"`
	MinLon *float64 `form:"min_lon" binding:"required"`
	MaxLat *float64 `form:"max_lat" binding:"required"`
	MaxLon *float64 `form:"max_lon" binding:"required"`
	Limit  int      `form:"limit" binding:"min=0"`
}

type rangeQuery struct {
	Lat    *float64 `form:"lat" binding:"required"`
	Lon    *float64 `form:"lon" binding:"required"`
	Meters *float64 `form:"meters" binding:"required"`
	Exact  bool     `form:"exact"`
	Limit  int      `form:"limit" binding:"min=0"`
}

type polygonRequest struct {
	Ring  []spatial.Point `json:"ring" binding:"required"`
	Limit int             `json:"limit" binding:"min=0"`
}

type QueryResponse struct {
	Index string       `json:"index"`
	Count int          `json:"count"`
	Hits  []engine.Hit `json:"hits"`
}

func (h *QueryHandler) reply(c *gin.Context, hits []engine.Hit, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, QueryResponse{Index: c.Param("name"), Count: len(hits), Hits: hits})
}

// Point handles GET /indexes/:name/point?lat&lon
func (h *QueryHandler) Point(c *gin.Context) {
	var q pointQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	hits, err := h.db.NewSession().QueryPoint(c.Request.Context(), c.Param("name"), q.point(), engine.QueryOptions{Limit: q.Limit})
	h.reply(c, hits, err)
}

// Rect handles GET /indexes/:name/rect?min_lat&min_lon&max_lat&max_lon
func (h *QueryHandler) Rect(c *gin.Context) {
	var q rectQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	r := spatial.Rect{MinLat: *q.MinLat, MinLon: *q.MinLon, MaxLat: *q.MaxLat, MaxLon: *q.MaxLon}
	hits, err := h.db.NewSession().QueryRect(c.Request.Context(), c.Param("name"), r, engine.QueryOptions{Limit: q.Limit})
	h.reply(c, hits, err)
}

// Range handles GET /indexes/:name/range?lat&lon&meters[&exact=true]
func (h *QueryHandler) Range(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	center := spatial.Point{Latitude: *q.Lat, Longitude: *q.Lon}
	opts := engine.QueryOptions{Limit: q.Limit, Exact: q.Exact}
	hits, err := h.db.NewSession().QueryRange(c.Request.Context(), c.Param("name"), center, *q.Meters, opts)
	h.reply(c, hits, err)
}

// Polygon handles POST /indexes/:name/polygon with {"ring": [{"lat","lon"}, ...]}
func (h *QueryHandler) Polygon(c *gin.Context) {
	var req polygonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	hits, err := h.db.NewSession().QueryPolygon(c.Request.Context(), c.Param("name"), req.Ring, engine.QueryOptions{Limit: req.Limit})
	h.reply(c, hits, err)
}

// Cell handles GET /indexes/:name/cell/*cell. The cell keeps its "/depth"
// suffix, so the route uses a catch-all.
func (h *QueryHandler) Cell(c *gin.Context) {
	cell, err := spatial.ParseCell(strings.TrimPrefix(c.Param("cell"), "/"))
	if err != nil {
		writeError(c, err)
		return
	}
	hits, err := h.db.NewSession().QueryCell(c.Request.Context(), c.Param("name"), cell, engine.QueryOptions{})
	h.reply(c, hits, err)
}

type encodeQuery struct {
	Lat   *float64 `form:"lat" binding:"required"`
	Lon   *float64 `form:"lon" binding:"required"`
	Depth int      `form:"depth" binding:"min=0,max=4"`
}

type EncodeResponse struct {
	Cell   spatial.Cell  `json:"cell"`
	Depth  int           `json:"depth"`
	Center spatial.Point `json:"center"`
}

// Encode handles GET /cells/encode?lat&lon[&depth]
func (h *QueryHandler) Encode(c *gin.Context) {
	var q encodeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	grid := h.db.Grid()
	cell, err := spatial.MakeCell(spatial.Point{Latitude: *q.Lat, Longitude: *q.Lon}, grid)
	if err != nil {
		writeError(c, err)
		return
	}
	if q.Depth > 0 {
		cell = cell.Parent(q.Depth)
	}
	c.JSON(http.StatusOK, EncodeResponse{Cell: cell, Depth: int(cell.Depth), Center: spatial.CellCenter(cell, grid)})
}
