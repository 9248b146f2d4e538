package analytics

import (
	"context"

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
	g := rg.Group("/analytics")

	g.GET("/overview", h.overview)
	g.GET("/by-region", view(h.svc.ByRegion))
	g.GET("/by-topic", view(h.svc.ByTopic))
	g.GET("/by-country", view(h.svc.ByCountry))
	g.GET("/yearly-trends", view(h.svc.YearlyTrends))
	g.GET("/by-sector", view(h.svc.BySector))
	g.GET("/by-pestle", view(h.svc.ByPestle))
	g.GET("/correlation", view(h.svc.Correlation))
}

// GET /analytics/overview
func (h *Handler) overview(c *gin.Context) {
	out, err := h.svc.Overview(c.Request.Context(), query.ParseCriteria(c.Request.URL.Query()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// view adapts a breakdown operation to a GET handler answering {data: [...]}.
func view[T any](fn func(context.Context, query.Criteria) ([]T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := fn(c.Request.Context(), query.ParseCriteria(c.Request.URL.Query()))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, out)
	}
}
