package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

var stepRowColumns = []string{"id", "template_id", "name", "step_order", "approval_type", "is_required",
	"sla_hours", "reject_target_step_id", "allows_work_order_creation", "work_order_status", "incident_status", "organization_id"}

func TestListStepsForTemplate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkflowRepository(db)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		stepColumns, constants.TableWorkflowStep, constants.FieldTemplateID, constants.FieldStepOrder)

	rows := sqlmock.NewRows(stepRowColumns).
		AddRow("step-1", "tpl-1", "Draft", 1, "none", true, nil, nil, false, "open", nil, "org-1").
		AddRow("step-2", "tpl-1", "Review", 2, "single", true, 24, nil, false, "in_progress", nil, "org-1")

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("tpl-1").WillReturnRows(rows)

	steps, err := repo.ListStepsForTemplate(context.Background(), "tpl-1")
	assert.NoError(t, err)
	assert.Len(t, steps, 2)

	assert.Equal(t, workflow.ApprovalNone, steps[0].ApprovalType)
	assert.Nil(t, steps[0].SLAHours)
	assert.Equal(t, "open", *steps[0].WorkOrderStatus)

	assert.Equal(t, workflow.ApprovalSingle, steps[1].ApprovalType)
	assert.Equal(t, 24, *steps[1].SLAHours)
	assert.Nil(t, steps[1].RejectTargetStepID)
}

func TestGetStepRejectionTarget(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkflowRepository(db)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		stepColumns, constants.TableWorkflowStep, constants.FieldID)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("step-3").
		WillReturnRows(sqlmock.NewRows(stepRowColumns).
			AddRow("step-3", "tpl-1", "Approve", 3, "multiple", true, nil, "step-1", false, nil, nil, "org-1"))

	step, err := repo.GetStep(context.Background(), "step-3")
	assert.NoError(t, err)
	assert.Equal(t, workflow.ApprovalMultiple, step.ApprovalType)
	assert.Equal(t, "step-1", *step.RejectTargetStepID)
	assert.Nil(t, step.WorkOrderStatus)
}

func TestReplaceAssignments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkflowRepository(db)

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableStepRole, constants.FieldStepID)
	insertQuery := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableStepRole, assignmentColumns)

	mock.ExpectExec(regexp.QuoteMeta(deleteQuery)).WithArgs("step-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("step-2", "role-1", "Supervisor", true, true, false, true, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.ReplaceAssignments(context.Background(), "step-2", []workflow.RoleAssignment{
		{RoleID: "role-1", RoleName: "Supervisor", CanApprove: true, CanReject: true, CanView: true},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStepRemovesAssignmentsFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkflowRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		constants.TableStepRole, constants.FieldStepID))).
		WithArgs("step-2").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		constants.TableWorkflowStep, constants.FieldID))).
		WithArgs("step-2").WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.DeleteStep(context.Background(), "step-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
