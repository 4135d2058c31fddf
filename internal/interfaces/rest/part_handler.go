package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
)

type PartHandler struct {
	svcMgr *services.ServiceManager
}

func NewPartHandler(svcMgr *services.ServiceManager) *PartHandler {
	return &PartHandler{
		svcMgr: svcMgr,
	}
}

// PartRequest carries the mutable part fields
type PartRequest struct {
	Name          string  `json:"name" binding:"required"`
	PartNumber    string  `json:"part_number"`
	UnitCost      float64 `json:"unit_cost"`
	StockQuantity float64 `json:"stock_quantity"`
}

// ListParts handles GET /api/parts
func (h *PartHandler) ListParts(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "parts", func() (interface{}, error) {
		return h.svcMgr.Parts.List(c.Request.Context(), user.OrganizationID)
	})
}

// GetPart handles GET /api/parts/:id
func (h *PartHandler) GetPart(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "part", func() (interface{}, error) {
		return h.svcMgr.Parts.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// CreatePart handles POST /api/parts
func (h *PartHandler) CreatePart(c *gin.Context) {
	var req PartRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	part := &models.Part{
		Name:           req.Name,
		PartNumber:     req.PartNumber,
		UnitCost:       req.UnitCost,
		StockQuantity:  req.StockQuantity,
		OrganizationID: user.OrganizationID,
	}
	if err := h.svcMgr.Parts.Create(c.Request.Context(), part); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Part created successfully", "part": part})
}

// UpdatePart handles PUT /api/parts/:id
func (h *PartHandler) UpdatePart(c *gin.Context) {
	var req PartRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	part, err := h.svcMgr.Parts.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	part.Name = req.Name
	part.PartNumber = req.PartNumber
	part.UnitCost = req.UnitCost
	part.StockQuantity = req.StockQuantity

	if err := h.svcMgr.Parts.Update(c.Request.Context(), part); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Part updated successfully", "part": part})
}

// DeletePart handles DELETE /api/parts/:id
func (h *PartHandler) DeletePart(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleDeleteEnvelope(c, "Part deleted successfully", func() error {
		return h.svcMgr.Parts.Delete(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}
