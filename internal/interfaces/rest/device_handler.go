package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// DeviceHandler manages IoT device registration and the unauthenticated
// ingest endpoint. Ingest authorises by device token, not by user session.
type DeviceHandler struct {
	svcMgr *services.ServiceManager
}

func NewDeviceHandler(svcMgr *services.ServiceManager) *DeviceHandler {
	return &DeviceHandler{
		svcMgr: svcMgr,
	}
}

// DeviceRequest carries the mutable device fields
type DeviceRequest struct {
	Name         string `json:"name" binding:"required"`
	SerialNumber string `json:"serial_number" binding:"required"`
	AssetID      string `json:"asset_id" binding:"required"`
	IsActive     *bool  `json:"is_active"`
}

// ListDevices handles GET /api/devices
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "devices", func() (interface{}, error) {
		return h.svcMgr.Devices.List(c.Request.Context(), user.OrganizationID)
	})
}

// GetDevice handles GET /api/devices/:id
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "device", func() (interface{}, error) {
		return h.svcMgr.Devices.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// RegisterDevice handles POST /api/devices. The plaintext token is returned
// once here and never again.
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req DeviceRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	device := &models.IoTDevice{
		Name:           req.Name,
		SerialNumber:   req.SerialNumber,
		AssetID:        req.AssetID,
		IsActive:       isActive,
		OrganizationID: user.OrganizationID,
	}
	if err := h.svcMgr.Devices.Register(c.Request.Context(), device); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Device registered successfully", "device": device})
}

// UpdateDevice handles PUT /api/devices/:id
func (h *DeviceHandler) UpdateDevice(c *gin.Context) {
	var req DeviceRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	device, err := h.svcMgr.Devices.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	device.Name = req.Name
	device.SerialNumber = req.SerialNumber
	device.AssetID = req.AssetID
	if req.IsActive != nil {
		device.IsActive = *req.IsActive
	}

	if err := h.svcMgr.Devices.Update(c.Request.Context(), device); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device updated successfully", "device": device})
}

// RotateToken handles POST /api/devices/:id/rotate-token
func (h *DeviceHandler) RotateToken(c *gin.Context) {
	user := GetUserFromContext(c)
	token, err := h.svcMgr.Devices.RotateToken(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device token rotated", "token": token})
}

// DeleteDevice handles DELETE /api/devices/:id
func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleDeleteEnvelope(c, "Device deleted successfully", func() error {
		return h.svcMgr.Devices.Delete(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// Ingest handles POST /api/ingest/readings. It is outside the session
// middleware; the X-Device-Token header identifies the device.
func (h *DeviceHandler) Ingest(c *gin.Context) {
	token := c.GetHeader(constants.HeaderDeviceToken)
	if token == "" {
		RespondError(c, http.StatusUnauthorized, "Missing device token")
		return
	}

	var input services.ReadingInput
	if !BindJSON(c, &input) {
		return
	}

	reading, err := h.svcMgr.Devices.Ingest(c.Request.Context(), token, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Reading recorded", "reading": reading})
}
