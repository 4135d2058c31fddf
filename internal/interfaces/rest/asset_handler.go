package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
)

type AssetHandler struct {
	svcMgr *services.ServiceManager
}

func NewAssetHandler(svcMgr *services.ServiceManager) *AssetHandler {
	return &AssetHandler{
		svcMgr: svcMgr,
	}
}

// AssetRequest carries the mutable asset fields
type AssetRequest struct {
	Name          string  `json:"name" binding:"required"`
	Tag           string  `json:"tag"`
	Description   string  `json:"description"`
	Location      string  `json:"location"`
	Status        string  `json:"status"`
	Criticality   string  `json:"criticality"`
	ParentAssetID *string `json:"parent_asset_id"`
}

// ListAssets handles GET /api/assets
func (h *AssetHandler) ListAssets(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "assets", func() (interface{}, error) {
		return h.svcMgr.Assets.List(c.Request.Context(), user.OrganizationID)
	})
}

// GetAssetTree handles GET /api/assets/tree
func (h *AssetHandler) GetAssetTree(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "tree", func() (interface{}, error) {
		return h.svcMgr.Assets.Tree(c.Request.Context(), user.OrganizationID)
	})
}

// GetAsset handles GET /api/assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "asset", func() (interface{}, error) {
		return h.svcMgr.Assets.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// CreateAsset handles POST /api/assets
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req AssetRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	asset := &models.Asset{
		Name:           req.Name,
		Tag:            req.Tag,
		Description:    req.Description,
		Location:       req.Location,
		Status:         req.Status,
		Criticality:    req.Criticality,
		ParentAssetID:  req.ParentAssetID,
		OrganizationID: user.OrganizationID,
	}
	if err := h.svcMgr.Assets.Create(c.Request.Context(), asset); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Asset created successfully", "asset": asset})
}

// UpdateAsset handles PUT /api/assets/:id
func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	var req AssetRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	asset, err := h.svcMgr.Assets.Get(c.Request.Context(), c.Param("id"), user.OrganizationID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	asset.Name = req.Name
	asset.Tag = req.Tag
	asset.Description = req.Description
	asset.Location = req.Location
	if req.Status != "" {
		asset.Status = req.Status
	}
	asset.Criticality = req.Criticality
	asset.ParentAssetID = req.ParentAssetID

	if err := h.svcMgr.Assets.Update(c.Request.Context(), asset); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset updated successfully", "asset": asset})
}

// DeleteAsset handles DELETE /api/assets/:id
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleDeleteEnvelope(c, "Asset deleted successfully", func() error {
		return h.svcMgr.Assets.Delete(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// GetBOM handles GET /api/assets/:id/bom
func (h *AssetHandler) GetBOM(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "bom", func() (interface{}, error) {
		return h.svcMgr.Assets.BOM(c.Request.Context(), c.Param("id"), user.OrganizationID)
	})
}

// BOMLineRequest adds one part to an asset's bill of materials
type BOMLineRequest struct {
	PartID   string  `json:"part_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
}

// AddBOMLine handles POST /api/assets/:id/bom
func (h *AssetHandler) AddBOMLine(c *gin.Context) {
	var req BOMLineRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	line, err := h.svcMgr.Assets.AddBOMLine(c.Request.Context(), c.Param("id"), req.PartID, user.OrganizationID, req.Quantity)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Part added to bill of materials", "line": line})
}

// RemoveBOMLine handles DELETE /api/assets/:id/bom/:lineId
func (h *AssetHandler) RemoveBOMLine(c *gin.Context) {
	HandleDeleteEnvelope(c, "Part removed from bill of materials", func() error {
		return h.svcMgr.Assets.RemoveBOMLine(c.Request.Context(), c.Param("lineId"))
	})
}
