package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/database"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// Fixed identifiers so repeated boots are idempotent
const (
	SeedOrgID   = "00000000-0000-0000-0000-000000000001"
	SeedAdminID = "00000000-0000-0000-0000-000000000002"

	seedRoleRequester  = "00000000-0000-0000-0000-000000000010"
	seedRoleSupervisor = "00000000-0000-0000-0000-000000000011"
	seedRoleManager    = "00000000-0000-0000-0000-000000000012"
	seedRoleTechnician = "00000000-0000-0000-0000-000000000013"

	seedTemplateID = "00000000-0000-0000-0000-000000000020"
	seedStepDraft  = "00000000-0000-0000-0000-000000000021"
	seedStepReview = "00000000-0000-0000-0000-000000000022"
	seedStepFinal  = "00000000-0000-0000-0000-000000000023"
)

// SeedSystemData ensures the default organization, admin account, roles and
// the default work order approval workflow exist. Called during startup
// before accepting requests.
func SeedSystemData(conn *database.Connection) error {
	log.Println("🔧 Initializing system data...")
	ctx := context.Background()
	db := conn.DB()

	if err := ensureOrganization(ctx, conn); err != nil {
		return err
	}
	if err := ensureAdminUser(ctx, conn); err != nil {
		return err
	}

	userRepo := persistence.NewUserRepository(db)
	roles := []models.Role{
		{ID: seedRoleRequester, Name: "Requester", Description: "Raises and submits work orders", OrganizationID: SeedOrgID},
		{ID: seedRoleSupervisor, Name: "Supervisor", Description: "First-line review of work orders", OrganizationID: SeedOrgID},
		{ID: seedRoleManager, Name: "Maintenance Manager", Description: "Final approval and completion", OrganizationID: SeedOrgID},
		{ID: seedRoleTechnician, Name: "Technician", Description: "Executes maintenance work", OrganizationID: SeedOrgID},
	}
	for _, role := range roles {
		if err := ensureRole(ctx, conn, userRepo, role); err != nil {
			return err
		}
	}
	log.Printf("   ✅ Ensured %d default roles", len(roles))

	if err := ensureDefaultTemplate(ctx, conn, db); err != nil {
		return err
	}

	return nil
}

func ensureOrganization(ctx context.Context, conn *database.Connection) error {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableOrganization, constants.FieldID)
	if err := conn.QueryRowContext(ctx, query, SeedOrgID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check default organization: %w", err)
	}
	if exists {
		return nil
	}

	insert := fmt.Sprintf("INSERT INTO %s (id, name, created_at) VALUES (?, ?, ?)", constants.TableOrganization)
	if _, err := conn.ExecContext(ctx, insert, SeedOrgID, "Default Organization", time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create default organization: %w", err)
	}
	log.Println("   ✅ Created default organization")
	return nil
}

func ensureAdminUser(ctx context.Context, conn *database.Connection) error {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableUser, constants.FieldID)
	if err := conn.QueryRowContext(ctx, query, SeedAdminID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if exists {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123"
		log.Println("   ⚠️  ADMIN_PASSWORD not set - using default password, change it immediately")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (id, name, email, %s, organization_id, is_active, is_admin, created_at) VALUES (?, ?, ?, ?, ?, TRUE, TRUE, ?)",
		constants.TableUser, constants.FieldPassword)
	if _, err := conn.ExecContext(ctx, insert,
		SeedAdminID, "System Administrator", "admin@iworx.local", hash, SeedOrgID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	log.Println("   ✅ Created admin user admin@iworx.local")
	return nil
}

func ensureRole(ctx context.Context, conn *database.Connection, repo *persistence.UserRepository, role models.Role) error {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableRole, constants.FieldID)
	if err := conn.QueryRowContext(ctx, query, role.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check role %s: %w", role.Name, err)
	}
	if exists {
		return nil
	}
	if err := repo.InsertRole(ctx, &role); err != nil {
		return fmt.Errorf("failed to create role %s: %w", role.Name, err)
	}
	return nil
}

// ensureDefaultTemplate seeds a three step work order approval flow:
// Draft (auto) -> Review (Supervisor) -> Approve (Maintenance Manager).
func ensureDefaultTemplate(ctx context.Context, conn *database.Connection, db *sql.DB) error {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableWorkflowTemplate, constants.FieldID)
	if err := conn.QueryRowContext(ctx, query, seedTemplateID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check default workflow template: %w", err)
	}
	if exists {
		return nil
	}

	repo := persistence.NewWorkflowRepository(db)
	now := time.Now().UTC()

	if err := repo.InsertTemplate(ctx, &models.WorkflowTemplate{
		ID:             seedTemplateID,
		Name:           "Work Order Approval",
		Description:    "Default approval flow for work orders",
		EntityKind:     constants.EntityKindWorkOrder,
		IsActive:       true,
		OrganizationID: SeedOrgID,
		CreatedAt:      now,
	}); err != nil {
		return fmt.Errorf("failed to create default workflow template: %w", err)
	}

	openStatus := constants.WorkOrderStatusOpen
	progressStatus := constants.WorkOrderStatusInProgress
	steps := []workflow.Step{
		{
			ID: seedStepDraft, TemplateID: seedTemplateID, Name: "Draft", Order: 1,
			ApprovalType: workflow.ApprovalNone, IsRequired: true,
			WorkOrderStatus: &openStatus, OrganizationID: SeedOrgID,
		},
		{
			ID: seedStepReview, TemplateID: seedTemplateID, Name: "Review", Order: 2,
			ApprovalType: workflow.ApprovalSingle, IsRequired: true,
			WorkOrderStatus: &progressStatus, OrganizationID: SeedOrgID,
		},
		{
			ID: seedStepFinal, TemplateID: seedTemplateID, Name: "Approve", Order: 3,
			ApprovalType: workflow.ApprovalSingle, IsRequired: true,
			OrganizationID: SeedOrgID,
		},
	}
	for i := range steps {
		if err := repo.InsertStep(ctx, &steps[i]); err != nil {
			return fmt.Errorf("failed to create step %s: %w", steps[i].Name, err)
		}
	}

	assignments := map[string][]workflow.RoleAssignment{
		seedStepReview: {
			{RoleID: seedRoleSupervisor, RoleName: "Supervisor", CanApprove: true, CanReject: true, CanAssign: true, CanView: true, CanEdit: true},
		},
		seedStepFinal: {
			{RoleID: seedRoleManager, RoleName: "Maintenance Manager", CanApprove: true, CanReject: true, CanAssign: true, CanView: true},
		},
	}
	for stepID, set := range assignments {
		if err := repo.ReplaceAssignments(ctx, stepID, set); err != nil {
			return fmt.Errorf("failed to assign roles for step %s: %w", stepID, err)
		}
	}

	log.Println("   ✅ Created default work order approval workflow")
	return nil
}
