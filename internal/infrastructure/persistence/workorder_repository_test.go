package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

func TestWorkOrderGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkOrderRepository(db)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		workOrderColumns, constants.TableWorkOrder, constants.FieldID, constants.FieldOrganizationID)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "status", "priority", "asset_id",
		"incident_id", "assigned_to_user_id", "created_by_user_id", "scheduled_start_date",
		"scheduled_finish_date", "actual_finish_date", "organization_id", "created_at", "updated_at"}).
		AddRow("wo-1", "Pump overhaul", "quarterly service", "open", "high", "asset-1",
			nil, "user-2", "user-1", nil, nil, nil, "org-1", now, now)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("wo-1", "org-1").WillReturnRows(rows)

	wo, err := repo.GetByID(context.Background(), "wo-1", "org-1")
	assert.NoError(t, err)
	assert.Equal(t, "Pump overhaul", wo.Title)
	assert.Equal(t, "asset-1", *wo.AssetID)
	assert.Nil(t, wo.IncidentID)
	assert.Nil(t, wo.ActualFinishDate)
}

func TestWorkOrderListWithStatusFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkOrderRepository(db)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ? ORDER BY %s DESC LIMIT 500",
		workOrderColumns, constants.TableWorkOrder, constants.FieldOrganizationID,
		constants.FieldStatus, constants.FieldCreatedAt)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "status", "priority", "asset_id",
		"incident_id", "assigned_to_user_id", "created_by_user_id", "scheduled_start_date",
		"scheduled_finish_date", "actual_finish_date", "organization_id", "created_at", "updated_at"}).
		AddRow("wo-2", "Belt replacement", nil, "open", nil, nil, nil, nil, "user-1", nil, nil, nil, "org-1", now, now)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("org-1", "open").WillReturnRows(rows)

	orders, err := repo.List(context.Background(), "org-1", "open")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, "wo-2", orders[0].ID)
	assert.Equal(t, "", orders[0].Description)
}

func TestWorkOrderComplete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkOrderRepository(db)

	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ?, updated_at = ? WHERE %s = ?",
		constants.TableWorkOrder, constants.FieldStatus, constants.FieldActualFinishDate, constants.FieldID)

	finishedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(constants.WorkOrderStatusCompleted, finishedAt, sqlmock.AnyArg(), "wo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Complete(context.Background(), "wo-1", finishedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkOrderUpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkOrderRepository(db)

	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE %s = ?",
		constants.TableWorkOrder, constants.FieldStatus, constants.FieldID)

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("in_progress", sqlmock.AnyArg(), "wo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateStatus(context.Background(), "wo-1", "in_progress"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkOrderCountByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWorkOrderRepository(db)

	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s WHERE %s = ? GROUP BY %s",
		constants.FieldStatus, constants.TableWorkOrder, constants.FieldOrganizationID, constants.FieldStatus)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("open", 4).
		AddRow("completed", 11)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("org-1").WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), "org-1")
	assert.NoError(t, err)
	assert.Equal(t, 4, counts["open"])
	assert.Equal(t, 11, counts["completed"])
}
