package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// PartRepository persists the parts registry and bills of materials
type PartRepository struct {
	db *sql.DB
}

// NewPartRepository creates a new PartRepository
func NewPartRepository(db *sql.DB) *PartRepository {
	return &PartRepository{db: db}
}

// Insert creates a part
func (r *PartRepository) Insert(ctx context.Context, p *models.Part) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, part_number, unit_cost, stock_quantity, organization_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		constants.TablePart)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Name, p.PartNumber, p.UnitCost, p.StockQuantity, p.OrganizationID, p.CreatedAt)
	return err
}

// GetByID returns one part within the organization
func (r *PartRepository) GetByID(ctx context.Context, id, orgID string) (*models.Part, error) {
	query := fmt.Sprintf(
		"SELECT id, name, part_number, unit_cost, stock_quantity, organization_id, created_at FROM %s WHERE %s = ? AND %s = ?",
		constants.TablePart, constants.FieldID, constants.FieldOrganizationID)

	var p models.Part
	var partNumber sql.NullString
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id, orgID).Scan(
		&p.ID, &p.Name, &partNumber, &p.UnitCost, &p.StockQuantity, &p.OrganizationID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.PartNumber = partNumber.String
	return &p, nil
}

// List returns the organization's parts
func (r *PartRepository) List(ctx context.Context, orgID string) ([]*models.Part, error) {
	query := fmt.Sprintf(
		"SELECT id, name, part_number, unit_cost, stock_quantity, organization_id, created_at FROM %s WHERE %s = ? ORDER BY name ASC",
		constants.TablePart, constants.FieldOrganizationID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parts := make([]*models.Part, 0)
	for rows.Next() {
		var p models.Part
		var partNumber sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &partNumber, &p.UnitCost, &p.StockQuantity, &p.OrganizationID, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.PartNumber = partNumber.String
		parts = append(parts, &p)
	}
	return parts, rows.Err()
}

// Update rewrites the part's editable fields
func (r *PartRepository) Update(ctx context.Context, p *models.Part) error {
	query := fmt.Sprintf(
		"UPDATE %s SET name = ?, part_number = ?, unit_cost = ?, stock_quantity = ? WHERE %s = ? AND %s = ?",
		constants.TablePart, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		p.Name, p.PartNumber, p.UnitCost, p.StockQuantity, p.ID, p.OrganizationID)
	return err
}

// Delete removes a part
func (r *PartRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TablePart, constants.FieldID, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, orgID)
	return err
}

// InsertBOMLine adds a part to an asset's bill of materials
func (r *PartRepository) InsertBOMLine(ctx context.Context, line *models.BOMLine) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, asset_id, part_id, quantity, organization_id) VALUES (?, ?, ?, ?, ?)",
		constants.TableBOMLine)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		line.ID, line.AssetID, line.PartID, line.Quantity, line.OrganizationID)
	return err
}

// ListBOMForAsset returns the asset's bill of materials with part details
func (r *PartRepository) ListBOMForAsset(ctx context.Context, assetID string) ([]*models.BOMLine, error) {
	query := fmt.Sprintf(
		"SELECT b.id, b.asset_id, b.part_id, p.name, b.quantity, p.unit_cost, b.organization_id "+
			"FROM %s b JOIN %s p ON b.part_id = p.%s WHERE b.asset_id = ? ORDER BY p.name ASC",
		constants.TableBOMLine, constants.TablePart, constants.FieldID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]*models.BOMLine, 0)
	for rows.Next() {
		var line models.BOMLine
		if err := rows.Scan(&line.ID, &line.AssetID, &line.PartID, &line.PartName,
			&line.Quantity, &line.UnitCost, &line.OrganizationID); err != nil {
			return nil, err
		}
		lines = append(lines, &line)
	}
	return lines, rows.Err()
}

// UpdateBOMLine changes a line's quantity
func (r *PartRepository) UpdateBOMLine(ctx context.Context, lineID string, quantity float64) error {
	query := fmt.Sprintf("UPDATE %s SET quantity = ? WHERE %s = ?",
		constants.TableBOMLine, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, quantity, lineID)
	return err
}

// DeleteBOMLine removes a line from a bill of materials
func (r *PartRepository) DeleteBOMLine(ctx context.Context, lineID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		constants.TableBOMLine, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, lineID)
	return err
}
