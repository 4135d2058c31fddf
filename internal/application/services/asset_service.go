package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// AssetService handles the asset registry, the asset hierarchy and bills
// of materials
type AssetService struct {
	assets *persistence.AssetRepository
	parts  *persistence.PartRepository
}

// NewAssetService creates a new AssetService
func NewAssetService(assets *persistence.AssetRepository, parts *persistence.PartRepository) *AssetService {
	return &AssetService{assets: assets, parts: parts}
}

// Create stores a new asset
func (s *AssetService) Create(ctx context.Context, a *models.Asset) error {
	if a.Name == "" {
		return errors.NewValidationError("name", "Asset name is required")
	}
	if a.ParentAssetID != nil && *a.ParentAssetID != "" {
		if _, err := s.assets.GetByID(ctx, *a.ParentAssetID, a.OrganizationID); err != nil {
			return errors.NewValidationError("parent_asset_id", "Parent asset does not exist")
		}
	}
	a.ID = utils.GenerateID()
	if a.Status == "" {
		a.Status = constants.AssetStatusOperational
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	return s.assets.Insert(ctx, a)
}

// Get returns one asset
func (s *AssetService) Get(ctx context.Context, id, orgID string) (*models.Asset, error) {
	a, err := s.assets.GetByID(ctx, id, orgID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("asset", id)
	}
	return a, err
}

// List returns the organization's assets as a flat list
func (s *AssetService) List(ctx context.Context, orgID string) ([]*models.Asset, error) {
	return s.assets.List(ctx, orgID)
}

// Tree returns the organization's assets as a hierarchy. Assets whose
// parent is missing surface as roots rather than disappearing.
func (s *AssetService) Tree(ctx context.Context, orgID string) ([]*models.Asset, error) {
	flat, err := s.assets.List(ctx, orgID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Asset, len(flat))
	for _, a := range flat {
		byID[a.ID] = a
	}

	roots := make([]*models.Asset, 0)
	for _, a := range flat {
		if a.ParentAssetID != nil {
			if parent, ok := byID[*a.ParentAssetID]; ok {
				parent.Children = append(parent.Children, a)
				continue
			}
		}
		roots = append(roots, a)
	}
	return roots, nil
}

// Update rewrites an asset's editable fields. An asset cannot be its own
// parent.
func (s *AssetService) Update(ctx context.Context, a *models.Asset) error {
	if a.Name == "" {
		return errors.NewValidationError("name", "Asset name is required")
	}
	if a.ParentAssetID != nil && *a.ParentAssetID == a.ID {
		return errors.NewValidationError("parent_asset_id", "Asset cannot be its own parent")
	}
	if _, err := s.Get(ctx, a.ID, a.OrganizationID); err != nil {
		return err
	}
	return s.assets.Update(ctx, a)
}

// Delete removes an asset unless it still has children
func (s *AssetService) Delete(ctx context.Context, id, orgID string) error {
	hasChildren, err := s.assets.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return errors.NewConflictError("asset", "id", id)
	}
	return s.assets.Delete(ctx, id, orgID)
}

// BOMResult is an asset's bill of materials with its rolled-up cost
type BOMResult struct {
	Lines     []*models.BOMLine `json:"lines"`
	TotalCost float64           `json:"total_cost"`
}

// BOM returns the asset's bill of materials with per-line and total cost
func (s *AssetService) BOM(ctx context.Context, assetID, orgID string) (*BOMResult, error) {
	if _, err := s.Get(ctx, assetID, orgID); err != nil {
		return nil, err
	}

	lines, err := s.parts.ListBOMForAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, line := range lines {
		total += line.Quantity * line.UnitCost
	}
	return &BOMResult{Lines: lines, TotalCost: total}, nil
}

// AddBOMLine attaches a part to the asset's bill of materials
func (s *AssetService) AddBOMLine(ctx context.Context, assetID, partID, orgID string, quantity float64) (*models.BOMLine, error) {
	if quantity <= 0 {
		return nil, errors.NewValidationError("quantity", "Quantity must be positive")
	}
	if _, err := s.Get(ctx, assetID, orgID); err != nil {
		return nil, err
	}
	if _, err := s.parts.GetByID(ctx, partID, orgID); err != nil {
		return nil, errors.NewNotFoundError("part", partID)
	}

	line := &models.BOMLine{
		ID:             utils.GenerateID(),
		AssetID:        assetID,
		PartID:         partID,
		Quantity:       quantity,
		OrganizationID: orgID,
	}
	if err := s.parts.InsertBOMLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveBOMLine detaches a part from the asset's bill of materials
func (s *AssetService) RemoveBOMLine(ctx context.Context, lineID string) error {
	return s.parts.DeleteBOMLine(ctx, lineID)
}
