package services_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	apperrors "github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
)

var stateColumns = []string{"work_order_id", "template_id", "current_step_id", "organization_id"}

func newWorkflowService(db *sql.DB) *services.WorkflowService {
	states := persistence.NewStateRepository(db)
	workOrders := persistence.NewWorkOrderRepository(db)
	incidents := persistence.NewIncidentRepository(db)
	store := persistence.NewWorkflowStore(states, workOrders, incidents)
	readModel := services.NewWorkflowReadModel(persistence.NewWorkflowRepository(db))
	return services.NewWorkflowService(
		persistence.NewTransactionManager(db), readModel, states, store,
		persistence.NewUserRepository(db), workOrders)
}

func expectStateLookup(mock sqlmock.Sqlmock, workOrderID string, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM work_order_workflow_state WHERE work_order_id = ?")).
		WithArgs(workOrderID).
		WillReturnRows(rows)
}

func supervisor() workflow.Actor {
	return workflow.Actor{
		ID:    "user-9",
		Name:  "Site Supervisor",
		Roles: []workflow.Role{{ID: "role-1", Name: "Supervisor"}},
	}
}

// Absence of a state row models completion: a repeated complete is a no-op,
// anything else reports the workflow already complete.
func TestWorkflowExecuteOnCompletedWorkflow(t *testing.T) {
	t.Run("Repeat complete is idempotent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		svc := newWorkflowService(db)
		expectStateLookup(mock, "wo-1", sqlmock.NewRows(stateColumns))

		res, err := svc.Execute(context.Background(), "wo-1", "org-1", supervisor(),
			services.TransitionRequest{Action: workflow.ActionComplete})

		require.NoError(t, err)
		assert.True(t, res.Completed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Approve after completion is rejected", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		svc := newWorkflowService(db)
		expectStateLookup(mock, "wo-1", sqlmock.NewRows(stateColumns))

		_, err = svc.Execute(context.Background(), "wo-1", "org-1", supervisor(),
			services.TransitionRequest{Action: workflow.ActionApprove})

		assert.ErrorIs(t, err, workflow.ErrAlreadyComplete)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// A state row belonging to another organization must read as not found, not
// as a permission error that confirms the work order exists.
func TestWorkflowExecuteWrongOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := newWorkflowService(db)
	expectStateLookup(mock, "wo-1",
		sqlmock.NewRows(stateColumns).AddRow("wo-1", "tpl-1", "step-2", "org-other"))

	_, err = svc.Execute(context.Background(), "wo-1", "org-1", supervisor(),
		services.TransitionRequest{Action: workflow.ActionApprove})

	var notFound *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Completing the final step runs the log insert, the work order update and
// the state delete inside one transaction.
func TestWorkflowExecuteCompleteFinalStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := newWorkflowService(db)
	now := time.Now().UTC()

	expectStateLookup(mock, "wo-1",
		sqlmock.NewRows(stateColumns).AddRow("wo-1", "tpl-1", "step-2", "org-1"))
	expectSnapshotLoad(mock, "tpl-1")

	mock.ExpectQuery(regexp.QuoteMeta("FROM work_orders WHERE id = ? AND organization_id = ?")).
		WithArgs("wo-1", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status", "priority", "asset_id",
			"incident_id", "assigned_to_user_id", "created_by_user_id", "scheduled_start_date",
			"scheduled_finish_date", "actual_finish_date", "organization_id", "created_at", "updated_at"}).
			AddRow("wo-1", "Pump overhaul", nil, "in_progress", "high", nil,
				nil, nil, "user-1", nil, nil, nil, "org-1", now, now))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO work_order_approvals")).
		WithArgs(sqlmock.AnyArg(), "wo-1", "step-2", "user-9",
			"approved", workflow.CompletionComment, "org-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE work_orders SET status = ?, actual_finish_date = ?")).
		WithArgs("completed", sqlmock.AnyArg(), sqlmock.AnyArg(), "wo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM work_order_workflow_state WHERE work_order_id = ?")).
		WithArgs("wo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Execute(context.Background(), "wo-1", "org-1", supervisor(),
		services.TransitionRequest{Action: workflow.ActionComplete})

	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A store failure mid-transition must roll the transaction back and surface
// the error unchanged.
func TestWorkflowExecuteRollsBackOnStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := newWorkflowService(db)
	now := time.Now().UTC()

	expectStateLookup(mock, "wo-1",
		sqlmock.NewRows(stateColumns).AddRow("wo-1", "tpl-1", "step-2", "org-1"))
	expectSnapshotLoad(mock, "tpl-1")

	mock.ExpectQuery(regexp.QuoteMeta("FROM work_orders WHERE id = ? AND organization_id = ?")).
		WithArgs("wo-1", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status", "priority", "asset_id",
			"incident_id", "assigned_to_user_id", "created_by_user_id", "scheduled_start_date",
			"scheduled_finish_date", "actual_finish_date", "organization_id", "created_at", "updated_at"}).
			AddRow("wo-1", "Pump overhaul", nil, "in_progress", "high", nil,
				nil, nil, "user-1", nil, nil, nil, "org-1", now, now))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO work_order_approvals")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err = svc.Execute(context.Background(), "wo-1", "org-1", supervisor(),
		services.TransitionRequest{Action: workflow.ActionComplete})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
