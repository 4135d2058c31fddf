package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// TemplateHandler manages workflow templates, their steps and role
// assignments. Mutations invalidate the workflow read model.
type TemplateHandler struct {
	svcMgr *services.ServiceManager
}

func NewTemplateHandler(svcMgr *services.ServiceManager) *TemplateHandler {
	return &TemplateHandler{
		svcMgr: svcMgr,
	}
}

// TemplateRequest represents the template create/update body
type TemplateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	EntityKind  string `json:"entity_kind"`
	IsActive    *bool  `json:"is_active"`
}

// ListTemplates handles GET /api/workflow-templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "templates", func() (interface{}, error) {
		return h.svcMgr.Templates.ListTemplates(c.Request.Context(), user.OrganizationID)
	})
}

// GetTemplate handles GET /api/workflow-templates/:id and returns the
// template with its full step and assignment definition
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	user := GetUserFromContext(c)
	tmpl, steps, assignments, err := h.svcMgr.Templates.GetTemplate(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"template":    tmpl,
		"steps":       steps,
		"assignments": assignments,
	})
}

// CreateTemplate handles POST /api/workflow-templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	entityKind := req.EntityKind
	if entityKind == "" {
		entityKind = constants.EntityKindWorkOrder
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	tmpl := &models.WorkflowTemplate{
		Name:           req.Name,
		Description:    req.Description,
		EntityKind:     entityKind,
		IsActive:       isActive,
		OrganizationID: user.OrganizationID,
	}
	if err := h.svcMgr.Templates.CreateTemplate(c.Request.Context(), tmpl); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Template created successfully", "template": tmpl})
}

// UpdateTemplate handles PUT /api/workflow-templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req TemplateRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	tmpl, _, _, err := h.svcMgr.Templates.GetTemplate(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	tmpl.Name = req.Name
	tmpl.Description = req.Description
	if req.EntityKind != "" {
		tmpl.EntityKind = req.EntityKind
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}

	if err := h.svcMgr.Templates.UpdateTemplate(c.Request.Context(), tmpl); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template updated successfully", "template": tmpl})
}

// DeleteTemplate handles DELETE /api/workflow-templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleDeleteEnvelope(c, "Template deleted successfully", func() error {
		return h.svcMgr.Templates.DeleteTemplate(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// CreateStep handles POST /api/workflow-templates/:id/steps
func (h *TemplateHandler) CreateStep(c *gin.Context) {
	var input services.StepInput
	if !BindJSON(c, &input) {
		return
	}

	user := GetUserFromContext(c)
	step, err := h.svcMgr.Templates.CreateStep(c.Request.Context(), c.Param("id"), user.OrganizationID, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Step created successfully", "step": step})
}

// UpdateStep handles PUT /api/workflow-templates/:id/steps/:stepId
func (h *TemplateHandler) UpdateStep(c *gin.Context) {
	var input services.StepInput
	if !BindJSON(c, &input) {
		return
	}

	user := GetUserFromContext(c)
	step, err := h.svcMgr.Templates.UpdateStep(c.Request.Context(), c.Param("id"), c.Param("stepId"), user.OrganizationID, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Step updated successfully", "step": step})
}

// DeleteStep handles DELETE /api/workflow-templates/:id/steps/:stepId
func (h *TemplateHandler) DeleteStep(c *gin.Context) {
	HandleDeleteEnvelope(c, "Step deleted successfully", func() error {
		return h.svcMgr.Templates.DeleteStep(c.Request.Context(), c.Param("id"), c.Param("stepId"))
	})
}
