package services_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
)

var snapshotStepColumns = []string{
	"id", "template_id", "name", "step_order", "approval_type", "is_required", "sla_hours",
	"reject_target_step_id", "allows_work_order_creation", "work_order_status", "incident_status", "organization_id",
}

var snapshotAssignmentColumns = []string{
	"step_id", "role_id", "role_name", "can_approve", "can_reject", "can_assign", "can_view", "can_edit",
}

func expectSnapshotLoad(mock sqlmock.Sqlmock, templateID string) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM workflow_template_steps WHERE template_id = ? ORDER BY step_order ASC")).
		WithArgs(templateID).
		WillReturnRows(sqlmock.NewRows(snapshotStepColumns).
			AddRow("step-1", templateID, "Draft", 1, "none", true, nil, nil, false, "open", nil, "org-1").
			AddRow("step-2", templateID, "Review", 2, "single", true, nil, nil, false, "in_progress", nil, "org-1"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM workflow_step_roles a JOIN workflow_template_steps s")).
		WithArgs(templateID).
		WillReturnRows(sqlmock.NewRows(snapshotAssignmentColumns).
			AddRow("step-2", "role-1", "Supervisor", true, true, false, true, false))
}

func TestWorkflowReadModelCachesSnapshots(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	readModel := services.NewWorkflowReadModel(persistence.NewWorkflowRepository(db))
	ctx := context.Background()

	expectSnapshotLoad(mock, "tpl-1")

	snap, err := readModel.Snapshot(ctx, "tpl-1")
	require.NoError(t, err)
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, "Draft", snap.Steps[0].Name)

	// Second read is served from cache: no further queries expected
	again, err := readModel.Snapshot(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Same(t, snap, again)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowReadModelInvalidateForcesReload(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	readModel := services.NewWorkflowReadModel(persistence.NewWorkflowRepository(db))
	ctx := context.Background()

	expectSnapshotLoad(mock, "tpl-1")
	first, err := readModel.Snapshot(ctx, "tpl-1")
	require.NoError(t, err)

	readModel.Invalidate("tpl-1")

	expectSnapshotLoad(mock, "tpl-1")
	second, err := readModel.Snapshot(ctx, "tpl-1")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowReadModelMissingTemplate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	readModel := services.NewWorkflowReadModel(persistence.NewWorkflowRepository(db))

	mock.ExpectQuery(regexp.QuoteMeta("FROM workflow_template_steps WHERE template_id = ?")).
		WithArgs("tpl-missing").
		WillReturnRows(sqlmock.NewRows(snapshotStepColumns))

	_, err = readModel.Snapshot(context.Background(), "tpl-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}
