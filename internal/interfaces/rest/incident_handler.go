package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
)

type IncidentHandler struct {
	svcMgr *services.ServiceManager
}

func NewIncidentHandler(svcMgr *services.ServiceManager) *IncidentHandler {
	return &IncidentHandler{
		svcMgr: svcMgr,
	}
}

// IncidentRequest carries the mutable incident fields
type IncidentRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	Status      string  `json:"status"`
	AssetID     *string `json:"asset_id"`
}

// ListIncidents handles GET /api/incidents?status=
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "incidents", func() (interface{}, error) {
		return h.svcMgr.Incidents.List(c.Request.Context(), user.OrganizationID, c.Query("status"))
	})
}

// GetIncident handles GET /api/incidents/:id
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "incident", func() (interface{}, error) {
		return h.svcMgr.Incidents.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// CreateIncident handles POST /api/incidents
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	var req IncidentRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	incident := &models.Incident{
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		AssetID:          req.AssetID,
		ReportedByUserID: user.ID,
		OrganizationID:   user.OrganizationID,
	}
	if err := h.svcMgr.Incidents.Create(c.Request.Context(), incident); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Incident created successfully", "incident": incident})
}

// UpdateIncident handles PUT /api/incidents/:id
func (h *IncidentHandler) UpdateIncident(c *gin.Context) {
	var req IncidentRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	incident, err := h.svcMgr.Incidents.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	incident.Title = req.Title
	incident.Description = req.Description
	if req.Severity != "" {
		incident.Severity = req.Severity
	}
	if req.Status != "" {
		incident.Status = req.Status
	}
	incident.AssetID = req.AssetID

	if err := h.svcMgr.Incidents.Update(c.Request.Context(), incident); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Incident updated successfully", "incident": incident})
}

// DeleteIncident handles DELETE /api/incidents/:id
func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleDeleteEnvelope(c, "Incident deleted successfully", func() error {
		return h.svcMgr.Incidents.Delete(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// SpawnWorkOrder handles POST /api/incidents/:id/work-order.
// Follow-up spawns from an already-linked incident are gated by the linked
// work order's current step configuration.
func (h *IncidentHandler) SpawnWorkOrder(c *gin.Context) {
	user := GetUserFromContext(c)
	wo, err := h.svcMgr.Incidents.SpawnWorkOrder(c.Request.Context(), c.Param("id"), user.OrganizationID, user.ID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Work order created from incident", "work_order": wo})
}
