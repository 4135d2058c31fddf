package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

const pmColumns = "id, name, asset_id, trigger_kind, cron_expression, meter_condition, " +
	"work_order_title, priority, is_active, last_generated_at, next_due_at, organization_id, created_at"

// PMRepository persists preventive maintenance schedules
type PMRepository struct {
	db *sql.DB
}

// NewPMRepository creates a new PMRepository
func NewPMRepository(db *sql.DB) *PMRepository {
	return &PMRepository{db: db}
}

// Insert creates a schedule
func (r *PMRepository) Insert(ctx context.Context, s *models.PMSchedule) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TablePMSchedule, pmColumns)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.Name, s.AssetID, s.TriggerKind, s.CronExpression, s.MeterCondition,
		s.WorkOrderTitle, s.Priority, s.IsActive, s.LastGeneratedAt, s.NextDueAt,
		s.OrganizationID, s.CreatedAt)
	return err
}

// GetByID returns one schedule within the organization
func (r *PMRepository) GetByID(ctx context.Context, id, orgID string) (*models.PMSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		pmColumns, constants.TablePMSchedule, constants.FieldID, constants.FieldOrganizationID)
	return scanPMSchedule(executor(ctx, r.db).QueryRowContext(ctx, query, id, orgID))
}

// List returns the organization's schedules
func (r *PMRepository) List(ctx context.Context, orgID string) ([]*models.PMSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY name ASC",
		pmColumns, constants.TablePMSchedule, constants.FieldOrganizationID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPMSchedules(rows)
}

// ListActive returns every active schedule across organizations. The scheduler
// evaluates all tenants in one sweep.
func (r *PMRepository) ListActive(ctx context.Context) ([]*models.PMSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE is_active = TRUE", pmColumns, constants.TablePMSchedule)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPMSchedules(rows)
}

// Update rewrites the schedule's editable fields
func (r *PMRepository) Update(ctx context.Context, s *models.PMSchedule) error {
	query := fmt.Sprintf(
		"UPDATE %s SET name = ?, asset_id = ?, trigger_kind = ?, cron_expression = ?, "+
			"meter_condition = ?, work_order_title = ?, priority = ?, is_active = ?, next_due_at = ? "+
			"WHERE %s = ? AND %s = ?",
		constants.TablePMSchedule, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		s.Name, s.AssetID, s.TriggerKind, s.CronExpression, s.MeterCondition,
		s.WorkOrderTitle, s.Priority, s.IsActive, s.NextDueAt, s.ID, s.OrganizationID)
	return err
}

// Delete removes a schedule
func (r *PMRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TablePMSchedule, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, orgID)
	return err
}

// MarkGenerated records a successful generation and the next due time
func (r *PMRepository) MarkGenerated(ctx context.Context, id string, generatedAt time.Time, nextDueAt *time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET last_generated_at = ?, next_due_at = ? WHERE %s = ?",
		constants.TablePMSchedule, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, generatedAt, nextDueAt, id)
	return err
}

func scanPMSchedule(row *sql.Row) (*models.PMSchedule, error) {
	var s models.PMSchedule
	var cronExpr, meterCond, priority sql.NullString
	var lastGen, nextDue sql.NullTime
	err := row.Scan(&s.ID, &s.Name, &s.AssetID, &s.TriggerKind, &cronExpr, &meterCond,
		&s.WorkOrderTitle, &priority, &s.IsActive, &lastGen, &nextDue, &s.OrganizationID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	applyPMNulls(&s, cronExpr, meterCond, priority, lastGen, nextDue)
	return &s, nil
}

func collectPMSchedules(rows *sql.Rows) ([]*models.PMSchedule, error) {
	schedules := make([]*models.PMSchedule, 0)
	for rows.Next() {
		var s models.PMSchedule
		var cronExpr, meterCond, priority sql.NullString
		var lastGen, nextDue sql.NullTime
		if err := rows.Scan(&s.ID, &s.Name, &s.AssetID, &s.TriggerKind, &cronExpr, &meterCond,
			&s.WorkOrderTitle, &priority, &s.IsActive, &lastGen, &nextDue, &s.OrganizationID, &s.CreatedAt); err != nil {
			return nil, err
		}
		applyPMNulls(&s, cronExpr, meterCond, priority, lastGen, nextDue)
		schedules = append(schedules, &s)
	}
	return schedules, rows.Err()
}

func applyPMNulls(s *models.PMSchedule, cronExpr, meterCond, priority sql.NullString, lastGen, nextDue sql.NullTime) {
	s.CronExpression = cronExpr.String
	s.MeterCondition = meterCond.String
	s.Priority = priority.String
	if lastGen.Valid {
		t := lastGen.Time
		s.LastGeneratedAt = &t
	}
	if nextDue.Valid {
		t := nextDue.Time
		s.NextDueAt = &t
	}
}
