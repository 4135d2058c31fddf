package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
)

// AnalyticsHandler exposes the dashboard metrics and the guarded ad-hoc
// query endpoint
type AnalyticsHandler struct {
	svcMgr *services.ServiceManager
}

func NewAnalyticsHandler(svcMgr *services.ServiceManager) *AnalyticsHandler {
	return &AnalyticsHandler{
		svcMgr: svcMgr,
	}
}

// Dashboard handles GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "metrics", func() (interface{}, error) {
		return h.svcMgr.Analytics.Dashboard(c.Request.Context(), user.OrganizationID)
	})
}

// QueryRequest carries one read-only SQL statement
type QueryRequest struct {
	SQL string `json:"sql" binding:"required"`
}

// Query handles POST /api/analytics/query. Admin-only; the statement is
// parsed, allowlisted and rewritten with an organization scope before
// execution.
func (h *AnalyticsHandler) Query(c *gin.Context) {
	var req QueryRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	result, err := h.svcMgr.Analytics.Query(c.Request.Context(), req.SQL, *user)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
