package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// WorkOrderService handles work order CRUD and submission into the
// approval workflow
type WorkOrderService struct {
	workOrders *persistence.WorkOrderRepository
	templates  *persistence.WorkflowRepository
	states     *persistence.StateRepository
	workflow   *WorkflowService
}

// NewWorkOrderService creates a new WorkOrderService
func NewWorkOrderService(
	workOrders *persistence.WorkOrderRepository,
	templates *persistence.WorkflowRepository,
	states *persistence.StateRepository,
	workflowSvc *WorkflowService,
) *WorkOrderService {
	return &WorkOrderService{
		workOrders: workOrders,
		templates:  templates,
		states:     states,
		workflow:   workflowSvc,
	}
}

// Create stores a new work order in draft; Submit places it on a workflow
func (s *WorkOrderService) Create(ctx context.Context, wo *models.WorkOrder) error {
	if wo.Title == "" {
		return errors.NewValidationError("title", "Title is required")
	}
	wo.ID = utils.GenerateID()
	if wo.Status == "" {
		wo.Status = constants.WorkOrderStatusOpen
	}
	now := time.Now().UTC()
	wo.CreatedAt = now
	wo.UpdatedAt = now
	return s.workOrders.Insert(ctx, wo)
}

// Get returns one work order
func (s *WorkOrderService) Get(ctx context.Context, id, orgID string) (*models.WorkOrder, error) {
	wo, err := s.workOrders.GetByID(ctx, id, orgID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("work order", id)
	}
	return wo, err
}

// List returns the organization's work orders, optionally by status
func (s *WorkOrderService) List(ctx context.Context, orgID, status string) ([]*models.WorkOrder, error) {
	return s.workOrders.List(ctx, orgID, status)
}

// Update rewrites a work order's editable fields
func (s *WorkOrderService) Update(ctx context.Context, wo *models.WorkOrder) error {
	if wo.Title == "" {
		return errors.NewValidationError("title", "Title is required")
	}
	if _, err := s.Get(ctx, wo.ID, wo.OrganizationID); err != nil {
		return err
	}
	return s.workOrders.Update(ctx, wo)
}

// Delete removes a work order unless it is mid-workflow
func (s *WorkOrderService) Delete(ctx context.Context, id, orgID string) error {
	state, err := s.states.GetState(ctx, id)
	if err != nil {
		return err
	}
	if state != nil {
		return errors.NewConflictError("work order", "id", id)
	}
	return s.workOrders.Delete(ctx, id, orgID)
}

// Submit places the work order onto a workflow template. When no template
// is named, the organization's active work order template is used.
func (s *WorkOrderService) Submit(ctx context.Context, id, templateID, orgID string, actor workflow.Actor) (*workflow.Result, error) {
	wo, err := s.Get(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	if templateID == "" {
		tpl, err := s.templates.FindActiveTemplate(ctx, orgID, constants.EntityKindWorkOrder)
		if err == sql.ErrNoRows {
			return nil, errors.NewValidationError("template_id", "No active work order workflow is configured")
		}
		if err != nil {
			return nil, err
		}
		templateID = tpl.ID
	}

	result, err := s.workflow.Start(ctx, id, templateID, wo.IncidentID, actor, orgID)
	if err != nil {
		return nil, err
	}
	log.Printf("📨 Work order %s submitted to workflow %s", id, templateID)
	return result, nil
}
