package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

const deviceColumns = "id, name, serial_number, asset_id, token, is_active, last_seen_at, organization_id, created_at"

// DeviceRepository persists registered IoT devices
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Insert registers a device
func (r *DeviceRepository) Insert(ctx context.Context, d *models.IoTDevice) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableIoTDevice, deviceColumns)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		d.ID, d.Name, d.SerialNumber, d.AssetID, d.Token, d.IsActive, d.LastSeenAt,
		d.OrganizationID, d.CreatedAt)
	return err
}

// GetByID returns one device within the organization
func (r *DeviceRepository) GetByID(ctx context.Context, id, orgID string) (*models.IoTDevice, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		deviceColumns, constants.TableIoTDevice, constants.FieldID, constants.FieldOrganizationID)
	return scanDevice(executor(ctx, r.db).QueryRowContext(ctx, query, id, orgID))
}

// FindByToken resolves an ingest token to its active device
func (r *DeviceRepository) FindByToken(ctx context.Context, token string) (*models.IoTDevice, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND is_active = TRUE",
		deviceColumns, constants.TableIoTDevice, constants.FieldToken)
	return scanDevice(executor(ctx, r.db).QueryRowContext(ctx, query, token))
}

// List returns the organization's devices
func (r *DeviceRepository) List(ctx context.Context, orgID string) ([]*models.IoTDevice, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY name ASC",
		deviceColumns, constants.TableIoTDevice, constants.FieldOrganizationID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]*models.IoTDevice, 0)
	for rows.Next() {
		var d models.IoTDevice
		var lastSeen sql.NullTime
		if err := rows.Scan(&d.ID, &d.Name, &d.SerialNumber, &d.AssetID, &d.Token, &d.IsActive,
			&lastSeen, &d.OrganizationID, &d.CreatedAt); err != nil {
			return nil, err
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			d.LastSeenAt = &t
		}
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}

// Update rewrites the device's editable fields
func (r *DeviceRepository) Update(ctx context.Context, d *models.IoTDevice) error {
	query := fmt.Sprintf("UPDATE %s SET name = ?, serial_number = ?, asset_id = ?, is_active = ? WHERE %s = ? AND %s = ?",
		constants.TableIoTDevice, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		d.Name, d.SerialNumber, d.AssetID, d.IsActive, d.ID, d.OrganizationID)
	return err
}

// RotateToken replaces the device's ingest token
func (r *DeviceRepository) RotateToken(ctx context.Context, id, orgID, token string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ? AND %s = ?",
		constants.TableIoTDevice, constants.FieldToken, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, token, id, orgID)
	return err
}

// Delete removes a device
func (r *DeviceRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TableIoTDevice, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, orgID)
	return err
}

// TouchLastSeen records ingest activity
func (r *DeviceRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET last_seen_at = ? WHERE %s = ?",
		constants.TableIoTDevice, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, at, id)
	return err
}

func scanDevice(row *sql.Row) (*models.IoTDevice, error) {
	var d models.IoTDevice
	var lastSeen sql.NullTime
	err := row.Scan(&d.ID, &d.Name, &d.SerialNumber, &d.AssetID, &d.Token, &d.IsActive,
		&lastSeen, &d.OrganizationID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		d.LastSeenAt = &t
	}
	return &d, nil
}
