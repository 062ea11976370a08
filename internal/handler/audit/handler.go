package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/handler"
	"github.com/mesdirectives/access-api/internal/service/audit"
)

// Handler exposes the owner's access trail and the anomaly report.
type Handler struct {
	auditor *audit.Service
}

func NewHandler(auditor *audit.Service) *Handler {
	return &Handler{auditor: auditor}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/audit")
	{
		group.GET("/logs", h.ListLogs)
		group.GET("/report", h.GetReport)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, total, err := h.auditor.ListLogs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"entries": entries,
		"total":   total,
	}))
}

func (h *Handler) GetReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	daysBack, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	report, err := h.auditor.Audit(c.Request.Context(), userID, daysBack)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user ID"))
		c.Abort()
		return uuid.Nil, false
	}
	return id, true
}
