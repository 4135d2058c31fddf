package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// AssetRepository persists the asset registry and meter readings
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new AssetRepository
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = "id, name, tag, description, location, status, criticality, parent_asset_id, organization_id, created_at, updated_at"

// Insert creates an asset
func (r *AssetRepository) Insert(ctx context.Context, a *models.Asset) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableAsset, assetColumns)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		a.ID, a.Name, a.Tag, a.Description, a.Location, a.Status, a.Criticality,
		a.ParentAssetID, a.OrganizationID, a.CreatedAt, a.UpdatedAt)
	return err
}

// GetByID returns one asset within the organization
func (r *AssetRepository) GetByID(ctx context.Context, id, orgID string) (*models.Asset, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		assetColumns, constants.TableAsset, constants.FieldID, constants.FieldOrganizationID)
	return scanAsset(executor(ctx, r.db).QueryRowContext(ctx, query, id, orgID))
}

// List returns all of the organization's assets
func (r *AssetRepository) List(ctx context.Context, orgID string) ([]*models.Asset, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY name ASC",
		assetColumns, constants.TableAsset, constants.FieldOrganizationID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make([]*models.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Update rewrites the asset's editable fields
func (r *AssetRepository) Update(ctx context.Context, a *models.Asset) error {
	query := fmt.Sprintf(
		"UPDATE %s SET name = ?, tag = ?, description = ?, location = ?, status = ?, criticality = ?, parent_asset_id = ?, updated_at = ? "+
			"WHERE %s = ? AND %s = ?",
		constants.TableAsset, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		a.Name, a.Tag, a.Description, a.Location, a.Status, a.Criticality, a.ParentAssetID,
		time.Now().UTC(), a.ID, a.OrganizationID)
	return err
}

// Delete removes an asset
func (r *AssetRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TableAsset, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, orgID)
	return err
}

// HasChildren reports whether any asset references this one as parent
func (r *AssetRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE parent_asset_id = ?)", constants.TableAsset)
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}

// InsertMeterReading records one measurement
func (r *AssetRepository) InsertMeterReading(ctx context.Context, m *models.MeterReading) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, asset_id, device_id, meter_name, value, recorded_at, organization_id) VALUES (?, ?, ?, ?, ?, ?, ?)",
		constants.TableMeterReading)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		m.ID, m.AssetID, m.DeviceID, m.MeterName, m.Value, m.RecordedAt, m.OrganizationID)
	return err
}

// LatestMeterValues returns the most recent value per meter name for the
// asset, as the environment for meter-based PM conditions
func (r *AssetRepository) LatestMeterValues(ctx context.Context, assetID string) (map[string]interface{}, error) {
	query := fmt.Sprintf(
		"SELECT m.meter_name, m.value FROM %s m JOIN ("+
			"SELECT meter_name, MAX(recorded_at) AS max_at FROM %s WHERE asset_id = ? GROUP BY meter_name"+
			") latest ON m.meter_name = latest.meter_name AND m.recorded_at = latest.max_at WHERE m.asset_id = ?",
		constants.TableMeterReading, constants.TableMeterReading)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, assetID, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]interface{})
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		values[name] = value
	}
	return values, rows.Err()
}

func scanAsset(s rowScanner) (*models.Asset, error) {
	var a models.Asset
	var tag, desc, location, criticality, parentID sql.NullString

	err := s.Scan(&a.ID, &a.Name, &tag, &desc, &location, &a.Status, &criticality,
		&parentID, &a.OrganizationID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Tag = tag.String
	a.Description = desc.String
	a.Location = location.String
	a.Criticality = criticality.String
	if parentID.Valid && parentID.String != "" {
		a.ParentAssetID = &parentID.String
	}
	return &a, nil
}
