package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// PartService handles the spare parts registry
type PartService struct {
	parts *persistence.PartRepository
}

// NewPartService creates a new PartService
func NewPartService(parts *persistence.PartRepository) *PartService {
	return &PartService{parts: parts}
}

// Create stores a new part
func (s *PartService) Create(ctx context.Context, p *models.Part) error {
	if p.Name == "" {
		return errors.NewValidationError("name", "Part name is required")
	}
	if p.UnitCost < 0 {
		return errors.NewValidationError("unit_cost", "Unit cost cannot be negative")
	}
	p.ID = utils.GenerateID()
	p.CreatedAt = time.Now().UTC()
	return s.parts.Insert(ctx, p)
}

// Get returns one part
func (s *PartService) Get(ctx context.Context, id, orgID string) (*models.Part, error) {
	p, err := s.parts.GetByID(ctx, id, orgID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("part", id)
	}
	return p, err
}

// List returns the organization's parts
func (s *PartService) List(ctx context.Context, orgID string) ([]*models.Part, error) {
	return s.parts.List(ctx, orgID)
}

// Update rewrites a part's editable fields
func (s *PartService) Update(ctx context.Context, p *models.Part) error {
	if p.Name == "" {
		return errors.NewValidationError("name", "Part name is required")
	}
	if _, err := s.Get(ctx, p.ID, p.OrganizationID); err != nil {
		return err
	}
	return s.parts.Update(ctx, p)
}

// Delete removes a part
func (s *PartService) Delete(ctx context.Context, id, orgID string) error {
	return s.parts.Delete(ctx, id, orgID)
}
