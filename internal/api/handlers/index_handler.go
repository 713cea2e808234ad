package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tuannm99/novaspatial/internal/catalog"
	"github.com/tuannm99/novaspatial/internal/engine"
)

type IndexHandler struct {
	db *engine.Database
}

func NewIndexHandler(db *engine.Database) *IndexHandler {
	return &IndexHandler{db: db}
}

// List handles GET /indexes
func (h *IndexHandler) List(c *gin.Context) {
	list, err := h.db.Indexes()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexes": list})
}

type indexResponse struct {
	catalog.IndexMeta
	Pages uint32 `json:"pages"`
}

// Get handles GET /indexes/:name
func (h *IndexHandler) Get(c *gin.Context) {
	name := c.Param("name")
	m, err := h.db.Index(name)
	if err != nil {
		writeError(c, err)
		return
	}
	pages, err := h.db.FilePages(name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, indexResponse{IndexMeta: m, Pages: pages})
}

// Check handles GET /indexes/:name/check
func (h *IndexHandler) Check(c *gin.Context) {
	rep, err := h.db.NewSession().CheckIndex(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Drop handles DELETE /indexes/:name
func (h *IndexHandler) Drop(c *gin.Context) {
	if err := h.db.DropIndex(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /stats
func (h *IndexHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pool": h.db.PoolStats()})
}
