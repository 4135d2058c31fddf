package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// StateRepository persists workflow state rows and the append-only approval
// transition log. The log is never updated or deleted.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new StateRepository
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// GetState returns the work order's workflow state, or nil if the workflow
// has completed (absence of a row models completion)
func (r *StateRepository) GetState(ctx context.Context, workOrderID string) (*workflow.State, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = ?",
		constants.FieldWorkOrderID, constants.FieldTemplateID, constants.FieldCurrentStepID, constants.FieldOrganizationID,
		constants.TableWorkflowState, constants.FieldWorkOrderID)

	var s workflow.State
	err := executor(ctx, r.db).QueryRowContext(ctx, query, workOrderID).Scan(
		&s.WorkOrderID, &s.TemplateID, &s.CurrentStepID, &s.OrganizationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateState inserts the state row when a work order enters a workflow
func (r *StateRepository) CreateState(ctx context.Context, s workflow.State) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)",
		constants.TableWorkflowState,
		constants.FieldWorkOrderID, constants.FieldTemplateID, constants.FieldCurrentStepID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		s.WorkOrderID, s.TemplateID, s.CurrentStepID, s.OrganizationID)
	return err
}

// SetCurrentStep moves the work order to the given step
func (r *StateRepository) SetCurrentStep(ctx context.Context, workOrderID, stepID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		constants.TableWorkflowState, constants.FieldCurrentStepID, constants.FieldWorkOrderID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, stepID, workOrderID)
	return err
}

// DeleteState removes the state row on workflow completion
func (r *StateRepository) DeleteState(ctx context.Context, workOrderID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		constants.TableWorkflowState, constants.FieldWorkOrderID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, workOrderID)
	return err
}

// CountAtStep counts work orders currently sitting on the given step
func (r *StateRepository) CountAtStep(ctx context.Context, stepID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?",
		constants.TableWorkflowState, constants.FieldCurrentStepID)
	var count int
	err := executor(ctx, r.db).QueryRowContext(ctx, query, stepID).Scan(&count)
	return count, err
}

// RecordTransition appends one row to the approval log
func (r *StateRepository) RecordTransition(ctx context.Context, t workflow.Transition) error {
	if t.ID == "" {
		t.ID = utils.GenerateID()
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableWorkOrderApproval,
		constants.FieldID, constants.FieldWorkOrderID, constants.FieldStepID, constants.FieldApprovedByUserID,
		constants.FieldApprovalAction, constants.FieldComments, constants.FieldOrganizationID, constants.FieldCreatedAt)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.WorkOrderID, t.StepID, t.ApprovedByID, string(t.Action), t.Comments, t.OrganizationID, t.CreatedAt)
	return err
}

// ListTransitions returns the work order's transition history, newest first
func (r *StateRepository) ListTransitions(ctx context.Context, workOrderID string) ([]workflow.Transition, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = ? ORDER BY %s DESC",
		constants.FieldID, constants.FieldWorkOrderID, constants.FieldStepID, constants.FieldApprovedByUserID,
		constants.FieldApprovalAction, constants.FieldComments, constants.FieldOrganizationID, constants.FieldCreatedAt,
		constants.TableWorkOrderApproval, constants.FieldWorkOrderID, constants.FieldCreatedAt)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transitions := make([]workflow.Transition, 0)
	for rows.Next() {
		var t workflow.Transition
		var action string
		var comments sql.NullString
		if err := rows.Scan(&t.ID, &t.WorkOrderID, &t.StepID, &t.ApprovedByID,
			&action, &comments, &t.OrganizationID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Action = workflow.LogAction(action)
		t.Comments = comments.String
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

// CountApproversSinceLastRejection counts distinct approvers for the step
// after the work order's most recent rejection. Approvals gathered before a
// rejection are stale: the flow moved backwards past them.
func (r *StateRepository) CountApproversSinceLastRejection(ctx context.Context, workOrderID, stepID string) (int, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(DISTINCT %s) FROM %s WHERE %s = ? AND %s = ? AND %s = ? AND %s > COALESCE("+
			"(SELECT MAX(%s) FROM %s WHERE %s = ? AND %s = ?), '1970-01-01')",
		constants.FieldApprovedByUserID, constants.TableWorkOrderApproval,
		constants.FieldWorkOrderID, constants.FieldStepID, constants.FieldApprovalAction, constants.FieldCreatedAt,
		constants.FieldCreatedAt, constants.TableWorkOrderApproval,
		constants.FieldWorkOrderID, constants.FieldApprovalAction)

	var count int
	err := executor(ctx, r.db).QueryRowContext(ctx, query,
		workOrderID, stepID, constants.ApprovalActionApproved,
		workOrderID, constants.ApprovalActionRejected).Scan(&count)
	return count, err
}
