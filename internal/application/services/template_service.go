package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// TemplateService is the workflow configuration editor. Every write
// validates against the template's full step list server-side and
// invalidates the read model snapshot.
type TemplateService struct {
	repo      *persistence.WorkflowRepository
	states    *persistence.StateRepository
	readModel *WorkflowReadModel
	txManager *persistence.TransactionManager
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	repo *persistence.WorkflowRepository,
	states *persistence.StateRepository,
	readModel *WorkflowReadModel,
	txManager *persistence.TransactionManager,
) *TemplateService {
	return &TemplateService{repo: repo, states: states, readModel: readModel, txManager: txManager}
}

// StepInput is the editor payload for creating or updating a step
type StepInput struct {
	Name                    string                    `json:"name" binding:"required"`
	Order                   int                       `json:"step_order"`
	ApprovalType            string                    `json:"approval_type"`
	IsRequired              *bool                     `json:"is_required"`
	SLAHours                *int                      `json:"sla_hours"`
	RejectRoute             string                    `json:"reject_route"`
	RejectTargetStepID      *string                   `json:"reject_target_step_id"`
	AllowsWorkOrderCreation bool                      `json:"allows_work_order_creation"`
	WorkOrderStatus         *string                   `json:"work_order_status"`
	IncidentStatus          *string                   `json:"incident_status"`
	Assignments             []workflow.RoleAssignment `json:"assignments"`
}

// CreateTemplate creates an empty workflow template
func (s *TemplateService) CreateTemplate(ctx context.Context, t *models.WorkflowTemplate) error {
	if t.Name == "" {
		return errors.NewValidationError("name", "Template name is required")
	}
	if t.EntityKind == "" {
		t.EntityKind = constants.EntityKindWorkOrder
	}
	t.ID = utils.GenerateID()
	t.IsActive = true
	t.CreatedAt = time.Now().UTC()
	return s.repo.InsertTemplate(ctx, t)
}

// GetTemplate returns a template with its steps and assignments
func (s *TemplateService) GetTemplate(ctx context.Context, id, orgID string) (*models.WorkflowTemplate, []workflow.Step, []workflow.RoleAssignment, error) {
	t, err := s.repo.GetTemplate(ctx, id, orgID)
	if err != nil {
		return nil, nil, nil, errors.NewNotFoundError("workflow template", id)
	}
	steps, err := s.repo.ListStepsForTemplate(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	assignments, err := s.repo.ListAssignmentsForTemplate(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, steps, assignments, nil
}

// ListTemplates returns the organization's templates
func (s *TemplateService) ListTemplates(ctx context.Context, orgID string) ([]*models.WorkflowTemplate, error) {
	return s.repo.ListTemplates(ctx, orgID)
}

// UpdateTemplate updates template metadata
func (s *TemplateService) UpdateTemplate(ctx context.Context, t *models.WorkflowTemplate) error {
	if t.Name == "" {
		return errors.NewValidationError("name", "Template name is required")
	}
	if err := s.repo.UpdateTemplate(ctx, t); err != nil {
		return err
	}
	s.readModel.Invalidate(t.ID)
	return nil
}

// DeleteTemplate removes a template unless work orders are mid-flow on it
func (s *TemplateService) DeleteTemplate(ctx context.Context, id, orgID string) error {
	steps, err := s.repo.ListStepsForTemplate(ctx, id)
	if err != nil {
		return err
	}
	for _, step := range steps {
		count, err := s.states.CountAtStep(ctx, step.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.NewConflictError("workflow template", "id", id)
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.DeleteTemplate(txCtx, id, orgID)
	})
	if err != nil {
		return err
	}
	s.readModel.Invalidate(id)
	log.Printf("🗑️  Deleted workflow template %s", id)
	return nil
}

// CreateStep appends or inserts a step into a template
func (s *TemplateService) CreateStep(ctx context.Context, templateID, orgID string, input StepInput) (*workflow.Step, error) {
	if _, err := s.repo.GetTemplate(ctx, templateID, orgID); err != nil {
		return nil, errors.NewNotFoundError("workflow template", templateID)
	}
	existing, err := s.repo.ListStepsForTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	step, err := s.buildStep(templateID, orgID, utils.GenerateID(), input, existing)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.InsertStep(txCtx, step); err != nil {
			return err
		}
		return s.repo.ReplaceAssignments(txCtx, step.ID, withStepID(step.ID, input.Assignments))
	})
	if err != nil {
		return nil, err
	}

	s.readModel.Invalidate(templateID)
	return step, nil
}

// UpdateStep rewrites a step's configuration and role assignments
func (s *TemplateService) UpdateStep(ctx context.Context, templateID, stepID, orgID string, input StepInput) (*workflow.Step, error) {
	existing, err := s.repo.ListStepsForTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	var found bool
	for _, st := range existing {
		if st.ID == stepID && st.OrganizationID == orgID {
			found = true
			if input.Order == 0 {
				input.Order = st.Order
			}
			break
		}
	}
	if !found {
		return nil, errors.NewNotFoundError("workflow step", stepID)
	}

	step, err := s.buildStep(templateID, orgID, stepID, input, existing)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateStep(txCtx, step); err != nil {
			return err
		}
		return s.repo.ReplaceAssignments(txCtx, stepID, withStepID(stepID, input.Assignments))
	})
	if err != nil {
		return nil, err
	}

	s.readModel.Invalidate(templateID)
	return step, nil
}

// DeleteStep removes a step unless a work order currently sits on it
func (s *TemplateService) DeleteStep(ctx context.Context, templateID, stepID string) error {
	count, err := s.states.CountAtStep(ctx, stepID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.NewConflictError("workflow step", "id", stepID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.DeleteStep(txCtx, stepID)
	})
	if err != nil {
		return err
	}
	s.readModel.Invalidate(templateID)
	return nil
}

// buildStep validates the editor input against the template's current step
// list and produces the step to persist
func (s *TemplateService) buildStep(templateID, orgID, stepID string, input StepInput, existing []workflow.Step) (*workflow.Step, error) {
	if input.Name == "" {
		return nil, errors.NewValidationError("name", "Step name is required")
	}

	order := input.Order
	if order <= 0 {
		order = nextOrder(existing)
	}
	for _, st := range existing {
		if st.Order == order && st.ID != stepID {
			return nil, errors.NewValidationError("step_order",
				fmt.Sprintf("Step order %d is already taken by %q", order, st.Name))
		}
	}

	approvalType := input.ApprovalType
	if approvalType == "" {
		approvalType = string(workflow.ApprovalSingle)
	}
	if !constants.IsValidApprovalType(approvalType) {
		return nil, errors.NewValidationError("approval_type",
			fmt.Sprintf("Unknown approval type %q", approvalType))
	}
	if approvalType != string(workflow.ApprovalNone) && !hasApprover(input.Assignments) {
		return nil, errors.NewValidationError("assignments",
			"A step requiring approval needs at least one role with can_approve")
	}

	rejectTarget, err := resolveRejectTarget(input, order, stepID, existing)
	if err != nil {
		return nil, err
	}

	isRequired := true
	if input.IsRequired != nil {
		isRequired = *input.IsRequired
	}
	if input.SLAHours != nil && *input.SLAHours <= 0 {
		return nil, errors.NewValidationError("sla_hours", "SLA hours must be positive")
	}

	return &workflow.Step{
		ID:                      stepID,
		TemplateID:              templateID,
		Name:                    input.Name,
		Order:                   order,
		ApprovalType:            workflow.ApprovalType(approvalType),
		IsRequired:              isRequired,
		SLAHours:                input.SLAHours,
		RejectTargetStepID:      rejectTarget,
		AllowsWorkOrderCreation: input.AllowsWorkOrderCreation,
		WorkOrderStatus:         input.WorkOrderStatus,
		IncidentStatus:          input.IncidentStatus,
		OrganizationID:          orgID,
	}, nil
}

// resolveRejectTarget turns the editor's routing choice into a stored
// target step id. "previous" stays NULL: the engine derives it at runtime
// so later re-ordering cannot leave it stale.
func resolveRejectTarget(input StepInput, order int, stepID string, existing []workflow.Step) (*string, error) {
	switch input.RejectRoute {
	case "", constants.RejectRoutePrevious:
		return nil, nil
	case constants.RejectRouteFirst:
		for _, st := range existing {
			if st.ID == stepID {
				continue
			}
			if st.Order < order {
				id := st.ID
				return &id, nil
			}
		}
		return nil, errors.NewValidationError("reject_route", "No earlier step to route rejections to")
	case constants.RejectRouteSpecific:
		if input.RejectTargetStepID == nil || *input.RejectTargetStepID == "" {
			return nil, errors.NewValidationError("reject_target_step_id", "Target step is required for specific routing")
		}
		for _, st := range existing {
			if st.ID == *input.RejectTargetStepID {
				if st.Order >= order {
					return nil, errors.NewValidationError("reject_target_step_id",
						"Rejection target must be an earlier step")
				}
				return input.RejectTargetStepID, nil
			}
		}
		return nil, errors.NewValidationError("reject_target_step_id", "Target step does not exist in this template")
	default:
		return nil, errors.NewValidationError("reject_route",
			fmt.Sprintf("Unknown rejection route %q", input.RejectRoute))
	}
}

func nextOrder(steps []workflow.Step) int {
	max := 0
	for _, st := range steps {
		if st.Order > max {
			max = st.Order
		}
	}
	return max + 1
}

func hasApprover(assignments []workflow.RoleAssignment) bool {
	for _, a := range assignments {
		if a.CanApprove {
			return true
		}
	}
	return false
}

func withStepID(stepID string, assignments []workflow.RoleAssignment) []workflow.RoleAssignment {
	out := make([]workflow.RoleAssignment, len(assignments))
	for i, a := range assignments {
		a.StepID = stepID
		out[i] = a
	}
	return out
}
