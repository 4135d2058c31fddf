package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// IncidentRepository persists incident reports
type IncidentRepository struct {
	db *sql.DB
}

// NewIncidentRepository creates a new IncidentRepository
func NewIncidentRepository(db *sql.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

const incidentColumns = "id, title, description, severity, status, asset_id, reported_by_user_id, " +
	"work_order_id, organization_id, created_at, updated_at"

// Insert creates an incident
func (r *IncidentRepository) Insert(ctx context.Context, inc *models.Incident) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableIncident, incidentColumns)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		inc.ID, inc.Title, inc.Description, inc.Severity, inc.Status, inc.AssetID,
		inc.ReportedByUserID, inc.WorkOrderID, inc.OrganizationID, inc.CreatedAt, inc.UpdatedAt)
	return err
}

// GetByID returns one incident within the organization
func (r *IncidentRepository) GetByID(ctx context.Context, id, orgID string) (*models.Incident, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		incidentColumns, constants.TableIncident, constants.FieldID, constants.FieldOrganizationID)
	return scanIncident(executor(ctx, r.db).QueryRowContext(ctx, query, id, orgID))
}

// List returns the organization's incidents, newest first
func (r *IncidentRepository) List(ctx context.Context, orgID, status string) ([]*models.Incident, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		incidentColumns, constants.TableIncident, constants.FieldOrganizationID)
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

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// Update rewrites the incident's editable fields
func (r *IncidentRepository) Update(ctx context.Context, inc *models.Incident) error {
	query := fmt.Sprintf(
		"UPDATE %s SET title = ?, description = ?, severity = ?, status = ?, asset_id = ?, work_order_id = ?, updated_at = ? "+
			"WHERE %s = ? AND %s = ?",
		constants.TableIncident, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		inc.Title, inc.Description, inc.Severity, inc.Status, inc.AssetID, inc.WorkOrderID,
		time.Now().UTC(), inc.ID, inc.OrganizationID)
	return err
}

// Delete removes an incident
func (r *IncidentRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TableIncident, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, orgID)
	return err
}

// UpdateStatus sets only the status column (workflow step entry side effect)
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE %s = ?",
		constants.TableIncident, constants.FieldStatus, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, status, time.Now().UTC(), id)
	return err
}

// LinkWorkOrder records the work order spawned from the incident
func (r *IncidentRepository) LinkWorkOrder(ctx context.Context, id, workOrderID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE %s = ?",
		constants.TableIncident, constants.FieldWorkOrderID, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, workOrderID, time.Now().UTC(), id)
	return err
}

func scanIncident(s rowScanner) (*models.Incident, error) {
	var inc models.Incident
	var desc, assetID, workOrderID sql.NullString

	err := s.Scan(&inc.ID, &inc.Title, &desc, &inc.Severity, &inc.Status, &assetID,
		&inc.ReportedByUserID, &workOrderID, &inc.OrganizationID, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	inc.Description = desc.String
	if assetID.Valid {
		inc.AssetID = &assetID.String
	}
	if workOrderID.Valid {
		inc.WorkOrderID = &workOrderID.String
	}
	return &inc, nil
}
