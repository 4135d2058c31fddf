package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// WorkflowRepository persists workflow templates, their ordered steps and
// per-step role assignments
type WorkflowRepository struct {
	db *sql.DB
}

// NewWorkflowRepository creates a new WorkflowRepository
func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// InsertTemplate creates a workflow template
func (r *WorkflowRepository) InsertTemplate(ctx context.Context, t *models.WorkflowTemplate) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, description, entity_kind, is_active, organization_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		constants.TableWorkflowTemplate)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.Name, t.Description, t.EntityKind, t.IsActive, t.OrganizationID, t.CreatedAt)
	return err
}

// GetTemplate returns one template by id within the organization
func (r *WorkflowRepository) GetTemplate(ctx context.Context, id, orgID string) (*models.WorkflowTemplate, error) {
	query := fmt.Sprintf(
		"SELECT id, name, description, entity_kind, is_active, organization_id, created_at FROM %s WHERE %s = ? AND %s = ?",
		constants.TableWorkflowTemplate, constants.FieldID, constants.FieldOrganizationID)

	var t models.WorkflowTemplate
	var desc sql.NullString
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id, orgID).Scan(
		&t.ID, &t.Name, &desc, &t.EntityKind, &t.IsActive, &t.OrganizationID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Description = desc.String
	return &t, nil
}

// ListTemplates returns all templates for the organization
func (r *WorkflowRepository) ListTemplates(ctx context.Context, orgID string) ([]*models.WorkflowTemplate, error) {
	query := fmt.Sprintf(
		"SELECT id, name, description, entity_kind, is_active, organization_id, created_at FROM %s WHERE %s = ? ORDER BY created_at DESC",
		constants.TableWorkflowTemplate, constants.FieldOrganizationID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]*models.WorkflowTemplate, 0)
	for rows.Next() {
		var t models.WorkflowTemplate
		var desc sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &desc, &t.EntityKind, &t.IsActive, &t.OrganizationID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Description = desc.String
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// FindActiveTemplate returns the newest active template for an entity kind
func (r *WorkflowRepository) FindActiveTemplate(ctx context.Context, orgID, entityKind string) (*models.WorkflowTemplate, error) {
	query := fmt.Sprintf(
		"SELECT id, name, description, entity_kind, is_active, organization_id, created_at FROM %s "+
			"WHERE %s = ? AND entity_kind = ? AND is_active = TRUE ORDER BY created_at DESC LIMIT 1",
		constants.TableWorkflowTemplate, constants.FieldOrganizationID)

	var t models.WorkflowTemplate
	var desc sql.NullString
	err := executor(ctx, r.db).QueryRowContext(ctx, query, orgID, entityKind).Scan(
		&t.ID, &t.Name, &desc, &t.EntityKind, &t.IsActive, &t.OrganizationID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Description = desc.String
	return &t, nil
}

// UpdateTemplate updates template metadata
func (r *WorkflowRepository) UpdateTemplate(ctx context.Context, t *models.WorkflowTemplate) error {
	query := fmt.Sprintf(
		"UPDATE %s SET name = ?, description = ?, entity_kind = ?, is_active = ? WHERE %s = ? AND %s = ?",
		constants.TableWorkflowTemplate, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		t.Name, t.Description, t.EntityKind, t.IsActive, t.ID, t.OrganizationID)
	return err
}

// DeleteTemplate removes a template and its steps/assignments
func (r *WorkflowRepository) DeleteTemplate(ctx context.Context, id, orgID string) error {
	stepSub := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		constants.FieldID, constants.TableWorkflowStep, constants.FieldTemplateID)

	ex := executor(ctx, r.db)
	if _, err := ex.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", constants.TableStepRole, constants.FieldStepID, stepSub), id); err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableWorkflowStep, constants.FieldTemplateID), id); err != nil {
		return err
	}
	_, err := ex.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", constants.TableWorkflowTemplate, constants.FieldID, constants.FieldOrganizationID), id, orgID)
	return err
}

const stepColumns = "id, template_id, name, step_order, approval_type, is_required, sla_hours, " +
	"reject_target_step_id, allows_work_order_creation, work_order_status, incident_status, organization_id"

// ListStepsForTemplate returns the template's steps ordered by step_order
func (r *WorkflowRepository) ListStepsForTemplate(ctx context.Context, templateID string) ([]workflow.Step, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		stepColumns, constants.TableWorkflowStep, constants.FieldTemplateID, constants.FieldStepOrder)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make([]workflow.Step, 0)
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// GetStep returns one step by id
func (r *WorkflowRepository) GetStep(ctx context.Context, stepID string) (*workflow.Step, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		stepColumns, constants.TableWorkflowStep, constants.FieldID)

	row := executor(ctx, r.db).QueryRowContext(ctx, query, stepID)
	step, err := scanStepRow(row)
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// InsertStep creates a step
func (r *WorkflowRepository) InsertStep(ctx context.Context, s *workflow.Step) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableWorkflowStep, stepColumns)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.TemplateID, s.Name, s.Order, string(s.ApprovalType), s.IsRequired, s.SLAHours,
		s.RejectTargetStepID, s.AllowsWorkOrderCreation, s.WorkOrderStatus, s.IncidentStatus, s.OrganizationID,
		time.Now().UTC())
	return err
}

// UpdateStep updates a step's metadata
func (r *WorkflowRepository) UpdateStep(ctx context.Context, s *workflow.Step) error {
	query := fmt.Sprintf(
		"UPDATE %s SET name = ?, step_order = ?, approval_type = ?, is_required = ?, sla_hours = ?, "+
			"reject_target_step_id = ?, allows_work_order_creation = ?, work_order_status = ?, incident_status = ? WHERE %s = ?",
		constants.TableWorkflowStep, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		s.Name, s.Order, string(s.ApprovalType), s.IsRequired, s.SLAHours,
		s.RejectTargetStepID, s.AllowsWorkOrderCreation, s.WorkOrderStatus, s.IncidentStatus, s.ID)
	return err
}

// DeleteStep removes a step and its role assignments
func (r *WorkflowRepository) DeleteStep(ctx context.Context, stepID string) error {
	ex := executor(ctx, r.db)
	if _, err := ex.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableStepRole, constants.FieldStepID), stepID); err != nil {
		return err
	}
	_, err := ex.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableWorkflowStep, constants.FieldID), stepID)
	return err
}

const assignmentColumns = "step_id, role_id, role_name, can_approve, can_reject, can_assign, can_view, can_edit"

// ListAssignmentsForTemplate returns role assignments across all of the
// template's steps (one read for the gate)
func (r *WorkflowRepository) ListAssignmentsForTemplate(ctx context.Context, templateID string) ([]workflow.RoleAssignment, error) {
	query := fmt.Sprintf(
		"SELECT a.step_id, a.role_id, a.role_name, a.can_approve, a.can_reject, a.can_assign, a.can_view, a.can_edit "+
			"FROM %s a JOIN %s s ON a.%s = s.%s WHERE s.%s = ?",
		constants.TableStepRole, constants.TableWorkflowStep,
		constants.FieldStepID, constants.FieldID, constants.FieldTemplateID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// ListAssignmentsForStep returns role assignments for one step
func (r *WorkflowRepository) ListAssignmentsForStep(ctx context.Context, stepID string) ([]workflow.RoleAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		assignmentColumns, constants.TableStepRole, constants.FieldStepID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, stepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// ReplaceAssignments replaces the step's role assignments with the given set
func (r *WorkflowRepository) ReplaceAssignments(ctx context.Context, stepID string, assignments []workflow.RoleAssignment) error {
	ex := executor(ctx, r.db)
	if _, err := ex.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableStepRole, constants.FieldStepID), stepID); err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableStepRole, assignmentColumns)
	for _, a := range assignments {
		if _, err := ex.ExecContext(ctx, query,
			stepID, a.RoleID, a.RoleName, a.CanApprove, a.CanReject, a.CanAssign, a.CanView, a.CanEdit); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStep(s rowScanner) (workflow.Step, error) {
	var step workflow.Step
	var approvalType string
	var slaHours sql.NullInt64
	var rejectTarget, woStatus, incStatus sql.NullString

	err := s.Scan(&step.ID, &step.TemplateID, &step.Name, &step.Order, &approvalType, &step.IsRequired,
		&slaHours, &rejectTarget, &step.AllowsWorkOrderCreation, &woStatus, &incStatus, &step.OrganizationID)
	if err != nil {
		return workflow.Step{}, err
	}

	step.ApprovalType = workflow.ApprovalType(approvalType)
	if slaHours.Valid {
		v := int(slaHours.Int64)
		step.SLAHours = &v
	}
	if rejectTarget.Valid && rejectTarget.String != "" {
		step.RejectTargetStepID = &rejectTarget.String
	}
	if woStatus.Valid && woStatus.String != "" {
		step.WorkOrderStatus = &woStatus.String
	}
	if incStatus.Valid && incStatus.String != "" {
		step.IncidentStatus = &incStatus.String
	}
	return step, nil
}

func scanStepRow(row *sql.Row) (workflow.Step, error) {
	return scanStep(row)
}

func scanAssignments(rows *sql.Rows) ([]workflow.RoleAssignment, error) {
	assignments := make([]workflow.RoleAssignment, 0)
	for rows.Next() {
		var a workflow.RoleAssignment
		var roleID sql.NullString
		if err := rows.Scan(&a.StepID, &roleID, &a.RoleName,
			&a.CanApprove, &a.CanReject, &a.CanAssign, &a.CanView, &a.CanEdit); err != nil {
			return nil, err
		}
		a.RoleID = roleID.String
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
