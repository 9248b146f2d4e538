package insight

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/pkg/pagination"
	"github.com/insightboard/core/internal/pkg/query"
	"github.com/insightboard/core/internal/pkg/response"
)

// MaxBodyBytes bounds write request bodies.
const MaxBodyBytes = 5 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the insight routes. writeMW guards every write and
// may be empty.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, writeMW ...gin.HandlerFunc) {
	insights := rg.Group("/insights")

	insights.GET("", h.list)
	insights.GET("/search", h.search)
	insights.POST("/lookup", limitBody, h.lookup)
	insights.GET("/:id", h.getByID)

	authed := insights.Group("", limitBody)
	authed.Use(writeMW...)
	authed.POST("", h.create)
	authed.POST("/bulk-insert", h.bulkInsert)
	authed.PUT("/:id", h.update)
	authed.DELETE("/:id", h.delete)
}

func limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	c.Next()
}

// GET /insights?page=&limit=&<filters>
func (h *Handler) list(c *gin.Context) {
	values := c.Request.URL.Query()
	q, err := pagination.Parse(values)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.svc.List(c.Request.Context(), query.ParseCriteria(values), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, out.Data, out.Pagination)
}

// GET /insights/search?q=
func (h *Handler) search(c *gin.Context) {
	out, err := h.svc.Search(c.Request.Context(), c.Query("q"), query.ParseCriteria(c.Request.URL.Query()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// POST /insights/lookup
func (h *Handler) lookup(c *gin.Context) {
	var req lookupRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.GetByIDs(c.Request.Context(), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// POST /insights/bulk-insert
func (h *Handler) bulkInsert(c *gin.Context) {
	var req bulkRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.BulkInsert(c.Request.Context(), req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, out)
}

func (h *Handler) getByID(c *gin.Context) {
	rec, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if rec == nil {
		response.NotFoundMsg(c, "Insight not found")
		return
	}
	response.OK(c, rec)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if !bind(c, &in) {
		return
	}
	rec, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

func (h *Handler) update(c *gin.Context) {
	var in Input
	if !bind(c, &in) {
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rec == nil {
		response.NotFoundMsg(c, "Insight not found")
		return
	}
	response.OK(c, rec)
}

func (h *Handler) delete(c *gin.Context) {
	ok, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.NotFoundMsg(c, "Insight not found")
		return
	}
	response.NoContent(c)
}

func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c)
			return false
		}
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}
