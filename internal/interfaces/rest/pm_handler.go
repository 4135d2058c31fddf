package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
)

// PMHandler manages preventive maintenance schedules
type PMHandler struct {
	svcMgr *services.ServiceManager
}

func NewPMHandler(svcMgr *services.ServiceManager) *PMHandler {
	return &PMHandler{
		svcMgr: svcMgr,
	}
}

// PMScheduleRequest carries the mutable schedule fields
type PMScheduleRequest struct {
	Name           string `json:"name" binding:"required"`
	AssetID        string `json:"asset_id" binding:"required"`
	TriggerKind    string `json:"trigger_kind" binding:"required"`
	CronExpression string `json:"cron_expression"`
	MeterCondition string `json:"meter_condition"`
	WorkOrderTitle string `json:"work_order_title" binding:"required"`
	Priority       string `json:"priority"`
	IsActive       *bool  `json:"is_active"`
}

// ListSchedules handles GET /api/pm-schedules
func (h *PMHandler) ListSchedules(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "schedules", func() (interface{}, error) {
		return h.svcMgr.PM.List(c.Request.Context(), user.OrganizationID)
	})
}

// GetSchedule handles GET /api/pm-schedules/:id
func (h *PMHandler) GetSchedule(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "schedule", func() (interface{}, error) {
		return h.svcMgr.PM.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// CreateSchedule handles POST /api/pm-schedules
func (h *PMHandler) CreateSchedule(c *gin.Context) {
	var req PMScheduleRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	sched := &models.PMSchedule{
		Name:           req.Name,
		AssetID:        req.AssetID,
		TriggerKind:    req.TriggerKind,
		CronExpression: req.CronExpression,
		MeterCondition: req.MeterCondition,
		WorkOrderTitle: req.WorkOrderTitle,
		Priority:       req.Priority,
		IsActive:       isActive,
		OrganizationID: user.OrganizationID,
	}
	if err := h.svcMgr.PM.Create(c.Request.Context(), sched); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Schedule created successfully", "schedule": sched})
}

// UpdateSchedule handles PUT /api/pm-schedules/:id
func (h *PMHandler) UpdateSchedule(c *gin.Context) {
	var req PMScheduleRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	sched, err := h.svcMgr.PM.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	sched.Name = req.Name
	sched.AssetID = req.AssetID
	sched.TriggerKind = req.TriggerKind
	sched.CronExpression = req.CronExpression
	sched.MeterCondition = req.MeterCondition
	sched.WorkOrderTitle = req.WorkOrderTitle
	sched.Priority = req.Priority
	if req.IsActive != nil {
		sched.IsActive = *req.IsActive
	}

	if err := h.svcMgr.PM.Update(c.Request.Context(), sched); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule updated successfully", "schedule": sched})
}

// DeleteSchedule handles DELETE /api/pm-schedules/:id
func (h *PMHandler) DeleteSchedule(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleDeleteEnvelope(c, "Schedule deleted successfully", func() error {
		return h.svcMgr.PM.Delete(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}
