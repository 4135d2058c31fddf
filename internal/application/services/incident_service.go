package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// IncidentService handles fault reports and spawning work orders from them
type IncidentService struct {
	incidents  *persistence.IncidentRepository
	workOrders *WorkOrderService
	workflow   *WorkflowService
	txManager  *persistence.TransactionManager
}

// NewIncidentService creates a new IncidentService
func NewIncidentService(
	incidents *persistence.IncidentRepository,
	workOrders *WorkOrderService,
	workflowSvc *WorkflowService,
	txManager *persistence.TransactionManager,
) *IncidentService {
	return &IncidentService{
		incidents:  incidents,
		workOrders: workOrders,
		workflow:   workflowSvc,
		txManager:  txManager,
	}
}

// Create stores a new incident report
func (s *IncidentService) Create(ctx context.Context, inc *models.Incident) error {
	if inc.Title == "" {
		return errors.NewValidationError("title", "Incident title is required")
	}
	switch inc.Severity {
	case "":
		inc.Severity = constants.SeverityMedium
	case constants.SeverityLow, constants.SeverityMedium, constants.SeverityHigh, constants.SeverityCritical:
	default:
		return errors.NewValidationError("severity",
			fmt.Sprintf("Unknown severity %q", inc.Severity))
	}
	inc.ID = utils.GenerateID()
	if inc.Status == "" {
		inc.Status = constants.IncidentStatusReported
	}
	now := time.Now().UTC()
	inc.CreatedAt = now
	inc.UpdatedAt = now
	return s.incidents.Insert(ctx, inc)
}

// Get returns one incident
func (s *IncidentService) Get(ctx context.Context, id, orgID string) (*models.Incident, error) {
	inc, err := s.incidents.GetByID(ctx, id, orgID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("incident", id)
	}
	return inc, err
}

// List returns the organization's incidents, optionally by status
func (s *IncidentService) List(ctx context.Context, orgID, status string) ([]*models.Incident, error) {
	return s.incidents.List(ctx, orgID, status)
}

// Update rewrites an incident's editable fields
func (s *IncidentService) Update(ctx context.Context, inc *models.Incident) error {
	if inc.Title == "" {
		return errors.NewValidationError("title", "Incident title is required")
	}
	if _, err := s.Get(ctx, inc.ID, inc.OrganizationID); err != nil {
		return err
	}
	return s.incidents.Update(ctx, inc)
}

// Delete removes an incident
func (s *IncidentService) Delete(ctx context.Context, id, orgID string) error {
	return s.incidents.Delete(ctx, id, orgID)
}

// SpawnWorkOrder creates a work order from an incident. The work order
// inherits the incident's asset and its priority follows the severity.
// An incident already linked to a work order mid-flow may spawn a follow-up
// only while that work order's current step allows work order creation.
func (s *IncidentService) SpawnWorkOrder(ctx context.Context, incidentID, orgID, createdByUserID string) (*models.WorkOrder, error) {
	inc, err := s.Get(ctx, incidentID, orgID)
	if err != nil {
		return nil, err
	}
	if inc.WorkOrderID != nil {
		step, err := s.workflow.CurrentStep(ctx, *inc.WorkOrderID, orgID)
		if err != nil {
			return nil, err
		}
		if step == nil || !step.AllowsWorkOrderCreation {
			return nil, errors.NewConflictError("incident", "work_order_id", *inc.WorkOrderID)
		}
	}

	wo := &models.WorkOrder{
		Title:           fmt.Sprintf("Incident: %s", inc.Title),
		Description:     inc.Description,
		Status:          constants.WorkOrderStatusOpen,
		Priority:        severityToPriority(inc.Severity),
		AssetID:         inc.AssetID,
		IncidentID:      &inc.ID,
		CreatedByUserID: createdByUserID,
		OrganizationID:  orgID,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.workOrders.Create(txCtx, wo); err != nil {
			return err
		}
		if err := s.incidents.LinkWorkOrder(txCtx, inc.ID, wo.ID); err != nil {
			return err
		}
		return s.incidents.UpdateStatus(txCtx, inc.ID, constants.IncidentStatusInvestigating)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🔗 Incident %s spawned work order %s", inc.ID, wo.ID)
	return wo, nil
}

func severityToPriority(severity string) string {
	switch severity {
	case constants.SeverityCritical:
		return "urgent"
	case constants.SeverityHigh:
		return "high"
	case constants.SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}
