package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// DeviceService handles IoT device registration and meter-reading ingest.
// Devices authenticate with an opaque token, not a user session.
type DeviceService struct {
	devices *persistence.DeviceRepository
	assets  *persistence.AssetRepository
}

// NewDeviceService creates a new DeviceService
func NewDeviceService(devices *persistence.DeviceRepository, assets *persistence.AssetRepository) *DeviceService {
	return &DeviceService{devices: devices, assets: assets}
}

// Register creates a device bound to an asset and issues its ingest token.
// The token is returned only once, at registration or rotation.
func (s *DeviceService) Register(ctx context.Context, d *models.IoTDevice) error {
	if d.Name == "" {
		return errors.NewValidationError("name", "Device name is required")
	}
	if d.SerialNumber == "" {
		return errors.NewValidationError("serial_number", "Serial number is required")
	}
	if _, err := s.assets.GetByID(ctx, d.AssetID, d.OrganizationID); err != nil {
		return errors.NewValidationError("asset_id", "Asset does not exist")
	}

	token, err := newDeviceToken()
	if err != nil {
		return err
	}
	d.ID = utils.GenerateID()
	d.Token = token
	d.IsActive = true
	d.CreatedAt = time.Now().UTC()

	if err := s.devices.Insert(ctx, d); err != nil {
		return err
	}
	log.Printf("📟 Registered device %s for asset %s", d.ID, d.AssetID)
	return nil
}

// Get returns one device. The token is blanked: it is shown only on
// registration and rotation.
func (s *DeviceService) Get(ctx context.Context, id, orgID string) (*models.IoTDevice, error) {
	d, err := s.devices.GetByID(ctx, id, orgID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("device", id)
	}
	if err != nil {
		return nil, err
	}
	d.Token = ""
	return d, nil
}

// List returns the organization's devices with tokens blanked
func (s *DeviceService) List(ctx context.Context, orgID string) ([]*models.IoTDevice, error) {
	devices, err := s.devices.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		d.Token = ""
	}
	return devices, nil
}

// Update rewrites a device's editable fields
func (s *DeviceService) Update(ctx context.Context, d *models.IoTDevice) error {
	if _, err := s.Get(ctx, d.ID, d.OrganizationID); err != nil {
		return err
	}
	return s.devices.Update(ctx, d)
}

// RotateToken replaces the device's ingest token and returns the new one
func (s *DeviceService) RotateToken(ctx context.Context, id, orgID string) (string, error) {
	if _, err := s.Get(ctx, id, orgID); err != nil {
		return "", err
	}
	token, err := newDeviceToken()
	if err != nil {
		return "", err
	}
	if err := s.devices.RotateToken(ctx, id, orgID, token); err != nil {
		return "", err
	}
	log.Printf("🔑 Rotated token for device %s", id)
	return token, nil
}

// Delete removes a device
func (s *DeviceService) Delete(ctx context.Context, id, orgID string) error {
	return s.devices.Delete(ctx, id, orgID)
}

// ReadingInput is one ingested measurement
type ReadingInput struct {
	MeterName  string     `json:"meter_name" binding:"required"`
	Value      float64    `json:"value"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// Ingest authenticates the device token and stores a meter reading against
// the device's asset
func (s *DeviceService) Ingest(ctx context.Context, token string, input ReadingInput) (*models.MeterReading, error) {
	device, err := s.devices.FindByToken(ctx, token)
	if err == sql.ErrNoRows {
		return nil, errors.NewUnauthorizedError("Unknown device token")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recordedAt := now
	if input.RecordedAt != nil {
		recordedAt = input.RecordedAt.UTC()
	}

	reading := &models.MeterReading{
		ID:             utils.GenerateID(),
		AssetID:        device.AssetID,
		DeviceID:       &device.ID,
		MeterName:      input.MeterName,
		Value:          input.Value,
		RecordedAt:     recordedAt,
		OrganizationID: device.OrganizationID,
	}
	if err := s.assets.InsertMeterReading(ctx, reading); err != nil {
		return nil, err
	}
	_ = s.devices.TouchLastSeen(ctx, device.ID, now)
	return reading, nil
}

func newDeviceToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate device token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
