package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
)

// WorkOrderHandler exposes work order CRUD plus the workflow surface:
// submit, transition, permitted actions, current step and history.
type WorkOrderHandler struct {
	svcMgr *services.ServiceManager
}

func NewWorkOrderHandler(svcMgr *services.ServiceManager) *WorkOrderHandler {
	return &WorkOrderHandler{
		svcMgr: svcMgr,
	}
}

// WorkOrderRequest carries the mutable work order fields
type WorkOrderRequest struct {
	Title               string     `json:"title" binding:"required"`
	Description         string     `json:"description"`
	Priority            string     `json:"priority"`
	AssetID             *string    `json:"asset_id"`
	AssignedToUserID    *string    `json:"assigned_to_user_id"`
	ScheduledStartDate  *time.Time `json:"scheduled_start_date"`
	ScheduledFinishDate *time.Time `json:"scheduled_finish_date"`
}

// ListWorkOrders handles GET /api/work-orders?status=
func (h *WorkOrderHandler) ListWorkOrders(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "work_orders", func() (interface{}, error) {
		return h.svcMgr.WorkOrder.List(c.Request.Context(), user.OrganizationID, c.Query("status"))
	})
}

// GetWorkOrder handles GET /api/work-orders/:id
func (h *WorkOrderHandler) GetWorkOrder(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "work_order", func() (interface{}, error) {
		return h.svcMgr.WorkOrder.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// CreateWorkOrder handles POST /api/work-orders
func (h *WorkOrderHandler) CreateWorkOrder(c *gin.Context) {
	var req WorkOrderRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	wo := &models.WorkOrder{
		Title:               req.Title,
		Description:         req.Description,
		Priority:            req.Priority,
		AssetID:             req.AssetID,
		AssignedToUserID:    req.AssignedToUserID,
		ScheduledStartDate:  req.ScheduledStartDate,
		ScheduledFinishDate: req.ScheduledFinishDate,
		CreatedByUserID:     user.ID,
		OrganizationID:      user.OrganizationID,
	}
	if err := h.svcMgr.WorkOrder.Create(c.Request.Context(), wo); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Work order created successfully", "work_order": wo})
}

// UpdateWorkOrder handles PUT /api/work-orders/:id
func (h *WorkOrderHandler) UpdateWorkOrder(c *gin.Context) {
	var req WorkOrderRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	wo, err := h.svcMgr.WorkOrder.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	wo.Title = req.Title
	wo.Description = req.Description
	wo.Priority = req.Priority
	wo.AssetID = req.AssetID
	wo.AssignedToUserID = req.AssignedToUserID
	wo.ScheduledStartDate = req.ScheduledStartDate
	wo.ScheduledFinishDate = req.ScheduledFinishDate

	if err := h.svcMgr.WorkOrder.Update(c.Request.Context(), wo); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work order updated successfully", "work_order": wo})
}

// DeleteWorkOrder handles DELETE /api/work-orders/:id
func (h *WorkOrderHandler) DeleteWorkOrder(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleDeleteEnvelope(c, "Work order deleted successfully", func() error {
		return h.svcMgr.WorkOrder.Delete(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// SubmitRequest optionally pins a template; empty means the newest active
// work order template for the organization
type SubmitRequest struct {
	TemplateID string `json:"template_id"`
}

// SubmitWorkOrder handles POST /api/work-orders/:id/submit
func (h *WorkOrderHandler) SubmitWorkOrder(c *gin.Context) {
	var req SubmitRequest
	if c.Request.ContentLength > 0 && !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	actor, err := h.svcMgr.Workflow.ActorFromSession(c.Request.Context(), *user)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	result, err := h.svcMgr.WorkOrder.Submit(c.Request.Context(), c.Param("id"), req.TemplateID, user.OrganizationID, actor)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work order submitted", "result": result})
}

// Transition handles POST /api/work-orders/:id/transition
func (h *WorkOrderHandler) Transition(c *gin.Context) {
	var req services.TransitionRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	actor, err := h.svcMgr.Workflow.ActorFromSession(c.Request.Context(), *user)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	result, err := h.svcMgr.Workflow.Execute(c.Request.Context(), c.Param("id"), user.OrganizationID, actor, req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transition applied", "result": result})
}

// PermittedActions handles GET /api/work-orders/:id/actions
func (h *WorkOrderHandler) PermittedActions(c *gin.Context) {
	user := GetUserFromContext(c)
	actor, err := h.svcMgr.Workflow.ActorFromSession(c.Request.Context(), *user)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	HandleGetEnvelope(c, "actions", func() (interface{}, error) {
		return h.svcMgr.Workflow.PermittedActions(c.Request.Context(), c.Param("id"), user.OrganizationID, actor)
	})
}

// CurrentStep handles GET /api/work-orders/:id/current-step.
// A null step means the workflow has completed or never started.
func (h *WorkOrderHandler) CurrentStep(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "step", func() (interface{}, error) {
		return h.svcMgr.Workflow.CurrentStep(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// History handles GET /api/work-orders/:id/history
func (h *WorkOrderHandler) History(c *gin.Context) {
	HandleGetEnvelope(c, "transitions", func() (interface{}, error) {
		return h.svcMgr.Workflow.History(c.Request.Context(), c.Param("id"))
	})
}
