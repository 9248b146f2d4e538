package filter

import (
	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/pkg/query"
	"github.com/insightboard/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/filters")

	g.GET("/options", h.options)
	g.GET("/statistics", h.statistics)
}

// GET /filters/options?cascading=true
func (h *Handler) options(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("cascading") == "true" {
		out, err := h.svc.Cascading(ctx, query.ParseCriteria(c.Request.URL.Query()))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, out)
		return
	}

	out, err := h.svc.Defaults(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GET /filters/statistics
func (h *Handler) statistics(c *gin.Context) {
	out, err := h.svc.Statistics(c.Request.Context(), query.ParseCriteria(c.Request.URL.Query()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
