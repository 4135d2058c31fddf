package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

func newStateRepoMock(t *testing.T) (*StateRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return NewStateRepository(db), mock, func() { db.Close() }
}

func TestGetState(t *testing.T) {
	repo, mock, closeFn := newStateRepoMock(t)
	defer closeFn()

	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = ?",
		constants.FieldWorkOrderID, constants.FieldTemplateID, constants.FieldCurrentStepID, constants.FieldOrganizationID,
		constants.TableWorkflowState, constants.FieldWorkOrderID)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("wo-1").
		WillReturnRows(sqlmock.NewRows([]string{"work_order_id", "template_id", "current_step_id", "organization_id"}).
			AddRow("wo-1", "tpl-1", "step-2", "org-1"))

	state, err := repo.GetState(context.Background(), "wo-1")
	assert.NoError(t, err)
	assert.NotNil(t, state)
	assert.Equal(t, "step-2", state.CurrentStepID)
	assert.Equal(t, "tpl-1", state.TemplateID)
}

func TestGetStateAbsentMeansCompleted(t *testing.T) {
	repo, mock, closeFn := newStateRepoMock(t)
	defer closeFn()

	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = ?",
		constants.FieldWorkOrderID, constants.FieldTemplateID, constants.FieldCurrentStepID, constants.FieldOrganizationID,
		constants.TableWorkflowState, constants.FieldWorkOrderID)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("wo-done").
		WillReturnRows(sqlmock.NewRows([]string{"work_order_id", "template_id", "current_step_id", "organization_id"}))

	state, err := repo.GetState(context.Background(), "wo-done")
	assert.NoError(t, err)
	assert.Nil(t, state)
}

func TestRecordTransition(t *testing.T) {
	repo, mock, closeFn := newStateRepoMock(t)
	defer closeFn()

	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableWorkOrderApproval,
		constants.FieldID, constants.FieldWorkOrderID, constants.FieldStepID, constants.FieldApprovedByUserID,
		constants.FieldApprovalAction, constants.FieldComments, constants.FieldOrganizationID, constants.FieldCreatedAt)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("log-1", "wo-1", "step-1", "user-1", string(workflow.LogApproved), "looks good", "org-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.RecordTransition(context.Background(), workflow.Transition{
		ID:             "log-1",
		WorkOrderID:    "wo-1",
		StepID:         "step-1",
		ApprovedByID:   "user-1",
		Action:         workflow.LogApproved,
		Comments:       "looks good",
		OrganizationID: "org-1",
		CreatedAt:      now,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTransitionGeneratesID(t *testing.T) {
	repo, mock, closeFn := newStateRepoMock(t)
	defer closeFn()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("INSERT INTO %s", constants.TableWorkOrderApproval))).
		WithArgs(sqlmock.AnyArg(), "wo-1", "step-1", "user-1", string(workflow.LogRejected), "no", "org-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.RecordTransition(context.Background(), workflow.Transition{
		WorkOrderID:    "wo-1",
		StepID:         "step-1",
		ApprovedByID:   "user-1",
		Action:         workflow.LogRejected,
		Comments:       "no",
		OrganizationID: "org-1",
		CreatedAt:      now,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCurrentStepAndDeleteState(t *testing.T) {
	repo, mock, closeFn := newStateRepoMock(t)
	defer closeFn()

	updateQuery := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		constants.TableWorkflowState, constants.FieldCurrentStepID, constants.FieldWorkOrderID)
	mock.ExpectExec(regexp.QuoteMeta(updateQuery)).WithArgs("step-3", "wo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetCurrentStep(context.Background(), "wo-1", "step-3"))

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		constants.TableWorkflowState, constants.FieldWorkOrderID)
	mock.ExpectExec(regexp.QuoteMeta(deleteQuery)).WithArgs("wo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.DeleteState(context.Background(), "wo-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountApproversSinceLastRejection(t *testing.T) {
	repo, mock, closeFn := newStateRepoMock(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s",
		constants.FieldApprovedByUserID, constants.TableWorkOrderApproval))).
		WithArgs("wo-1", "step-2", constants.ApprovalActionApproved, "wo-1", constants.ApprovalActionRejected).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountApproversSinceLastRejection(context.Background(), "wo-1", "step-2")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListTransitionsNewestFirst(t *testing.T) {
	repo, mock, closeFn := newStateRepoMock(t)
	defer closeFn()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "work_order_id", "step_id", "approved_by_user_id",
		"approval_action", "comments", "organization_id", "created_at"}).
		AddRow("log-2", "wo-1", "step-2", "user-2", string(workflow.LogApproved), nil, "org-1", now).
		AddRow("log-1", "wo-1", "step-1", "user-1", string(workflow.LogApproved), "ok", "org-1", now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf("FROM %s WHERE %s = ? ORDER BY %s DESC",
		constants.TableWorkOrderApproval, constants.FieldWorkOrderID, constants.FieldCreatedAt))).
		WithArgs("wo-1").WillReturnRows(rows)

	transitions, err := repo.ListTransitions(context.Background(), "wo-1")
	assert.NoError(t, err)
	assert.Len(t, transitions, 2)
	assert.Equal(t, "log-2", transitions[0].ID)
	assert.Equal(t, "", transitions[0].Comments)
	assert.Equal(t, "ok", transitions[1].Comments)
}
