package handler

import (
	"net/http"

	"openfeed/internal/services"
	"openfeed/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// SearchHandler handles search HTTP endpoints.
type SearchHandler struct {
	service *services.SearchService
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(service *services.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles GET /search?q=&limit=.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	limit := queryInt(c, "limit", 20)

	docs, err := h.service.Search(c.Request.Context(), query, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"results": docs, "count": len(docs)}))
}
