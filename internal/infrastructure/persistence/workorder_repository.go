package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// WorkOrderRepository persists work orders
type WorkOrderRepository struct {
	db *sql.DB
}

// NewWorkOrderRepository creates a new WorkOrderRepository
func NewWorkOrderRepository(db *sql.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

const workOrderColumns = "id, title, description, status, priority, asset_id, incident_id, " +
	"assigned_to_user_id, created_by_user_id, scheduled_start_date, scheduled_finish_date, " +
	"actual_finish_date, organization_id, created_at, updated_at"

// Insert creates a work order
func (r *WorkOrderRepository) Insert(ctx context.Context, wo *models.WorkOrder) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableWorkOrder, workOrderColumns)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		wo.ID, wo.Title, wo.Description, wo.Status, wo.Priority, wo.AssetID, wo.IncidentID,
		wo.AssignedToUserID, wo.CreatedByUserID, wo.ScheduledStartDate, wo.ScheduledFinishDate,
		wo.ActualFinishDate, wo.OrganizationID, wo.CreatedAt, wo.UpdatedAt)
	return err
}

// GetByID returns one work order within the organization
func (r *WorkOrderRepository) GetByID(ctx context.Context, id, orgID string) (*models.WorkOrder, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		workOrderColumns, constants.TableWorkOrder, constants.FieldID, constants.FieldOrganizationID)

	wo, err := scanWorkOrder(executor(ctx, r.db).QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// List returns the organization's work orders, optionally filtered by status
func (r *WorkOrderRepository) List(ctx context.Context, orgID, status string) ([]*models.WorkOrder, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		workOrderColumns, constants.TableWorkOrder, constants.FieldOrganizationID)
	args := []interface{}{orgID}
	if status != "" {
		query += fmt.Sprintf(" AND %s = ?", constants.FieldStatus)
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY %s DESC LIMIT 500", constants.FieldCreatedAt)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.WorkOrder, 0)
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, wo)
	}
	return orders, rows.Err()
}

// Update rewrites the work order's editable fields
func (r *WorkOrderRepository) Update(ctx context.Context, wo *models.WorkOrder) error {
	query := fmt.Sprintf(
		"UPDATE %s SET title = ?, description = ?, status = ?, priority = ?, asset_id = ?, "+
			"assigned_to_user_id = ?, scheduled_start_date = ?, scheduled_finish_date = ?, updated_at = ? "+
			"WHERE %s = ? AND %s = ?",
		constants.TableWorkOrder, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		wo.Title, wo.Description, wo.Status, wo.Priority, wo.AssetID,
		wo.AssignedToUserID, wo.ScheduledStartDate, wo.ScheduledFinishDate, time.Now().UTC(),
		wo.ID, wo.OrganizationID)
	return err
}

// Delete removes a work order
func (r *WorkOrderRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TableWorkOrder, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, orgID)
	return err
}

// UpdateStatus sets only the status column (workflow step entry side effect)
func (r *WorkOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE %s = ?",
		constants.TableWorkOrder, constants.FieldStatus, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, status, time.Now().UTC(), id)
	return err
}

// Complete marks the work order completed with its actual finish date
func (r *WorkOrderRepository) Complete(ctx context.Context, id string, finishedAt time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ?, updated_at = ? WHERE %s = ?",
		constants.TableWorkOrder, constants.FieldStatus, constants.FieldActualFinishDate, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		constants.WorkOrderStatusCompleted, finishedAt, time.Now().UTC(), id)
	return err
}

// Reassign sets the assigned user
func (r *WorkOrderRepository) Reassign(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE %s = ?",
		constants.TableWorkOrder, constants.FieldAssignedToUserID, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, userID, time.Now().UTC(), id)
	return err
}

// CountByStatus returns work order counts grouped by status (dashboard)
func (r *WorkOrderRepository) CountByStatus(ctx context.Context, orgID string) (map[string]int, error) {
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s WHERE %s = ? GROUP BY %s",
		constants.FieldStatus, constants.TableWorkOrder, constants.FieldOrganizationID, constants.FieldStatus)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// CountOverdue counts open work orders whose scheduled finish has passed
func (r *WorkOrderRepository) CountOverdue(ctx context.Context, orgID string, now time.Time) (int, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s = ? AND %s NOT IN (?, ?) AND %s IS NOT NULL AND %s < ?",
		constants.TableWorkOrder, constants.FieldOrganizationID, constants.FieldStatus,
		constants.FieldScheduledFinish, constants.FieldScheduledFinish)

	var count int
	err := executor(ctx, r.db).QueryRowContext(ctx, query,
		orgID, constants.WorkOrderStatusCompleted, constants.WorkOrderStatusCancelled, now).Scan(&count)
	return count, err
}

func scanWorkOrder(s rowScanner) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	var desc, priority, assetID, incidentID, assignedTo sql.NullString
	var schedStart, schedFinish, actualFinish sql.NullTime

	err := s.Scan(&wo.ID, &wo.Title, &desc, &wo.Status, &priority, &assetID, &incidentID,
		&assignedTo, &wo.CreatedByUserID, &schedStart, &schedFinish,
		&actualFinish, &wo.OrganizationID, &wo.CreatedAt, &wo.UpdatedAt)
	if err != nil {
		return nil, err
	}

	wo.Description = desc.String
	wo.Priority = priority.String
	if assetID.Valid {
		wo.AssetID = &assetID.String
	}
	if incidentID.Valid {
		wo.IncidentID = &incidentID.String
	}
	if assignedTo.Valid {
		wo.AssignedToUserID = &assignedTo.String
	}
	if schedStart.Valid {
		wo.ScheduledStartDate = &schedStart.Time
	}
	if schedFinish.Valid {
		wo.ScheduledFinishDate = &schedFinish.Time
	}
	if actualFinish.Valid {
		wo.ActualFinishDate = &actualFinish.Time
	}
	return &wo, nil
}
