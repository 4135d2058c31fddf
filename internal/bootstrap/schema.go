package bootstrap

import (
	"fmt"
	"log"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/database"
)

type tableDef struct {
	name string
	ddl  string
}

// tableDefs lists every table in dependency order. DDL is idempotent so
// startup can run it on every boot.
var tableDefs = []tableDef{
	{"organizations", `CREATE TABLE IF NOT EXISTS organizations (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`},
	{"users", `CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		organization_id VARCHAR(36) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		last_login_at TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_users_org (organization_id)
	)`},
	{"user_sessions", `CREATE TABLE IF NOT EXISTS user_sessions (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		token TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		ip_address VARCHAR(45),
		user_agent VARCHAR(512),
		is_revoked BOOLEAN NOT NULL DEFAULT FALSE,
		last_activity TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_sessions_user (user_id),
		INDEX idx_sessions_expires (expires_at)
	)`},
	{"roles", `CREATE TABLE IF NOT EXISTS roles (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description VARCHAR(512),
		organization_id VARCHAR(36) NOT NULL,
		UNIQUE KEY uq_roles_org_name (organization_id, name)
	)`},
	{"user_roles", `CREATE TABLE IF NOT EXISTS user_roles (
		user_id VARCHAR(36) NOT NULL,
		role_id VARCHAR(36) NOT NULL,
		PRIMARY KEY (user_id, role_id)
	)`},
	{"assets", `CREATE TABLE IF NOT EXISTS assets (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		tag VARCHAR(100),
		description TEXT,
		location VARCHAR(255),
		status VARCHAR(32) NOT NULL DEFAULT 'operational',
		criticality VARCHAR(32),
		parent_asset_id VARCHAR(36) NULL,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_assets_org (organization_id),
		INDEX idx_assets_parent (parent_asset_id)
	)`},
	{"parts", `CREATE TABLE IF NOT EXISTS parts (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		part_number VARCHAR(100),
		unit_cost DECIMAL(12,2) NOT NULL DEFAULT 0,
		stock_quantity DECIMAL(12,2) NOT NULL DEFAULT 0,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_parts_org (organization_id)
	)`},
	{"bom_lines", `CREATE TABLE IF NOT EXISTS bom_lines (
		id VARCHAR(36) PRIMARY KEY,
		asset_id VARCHAR(36) NOT NULL,
		part_id VARCHAR(36) NOT NULL,
		quantity DECIMAL(12,2) NOT NULL DEFAULT 1,
		organization_id VARCHAR(36) NOT NULL,
		INDEX idx_bom_asset (asset_id)
	)`},
	{"iot_devices", `CREATE TABLE IF NOT EXISTS iot_devices (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		serial_number VARCHAR(100) NOT NULL,
		asset_id VARCHAR(36) NOT NULL,
		token VARCHAR(64) NOT NULL UNIQUE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_seen_at TIMESTAMP NULL,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_devices_org (organization_id)
	)`},
	{"meter_readings", `CREATE TABLE IF NOT EXISTS meter_readings (
		id VARCHAR(36) PRIMARY KEY,
		asset_id VARCHAR(36) NOT NULL,
		device_id VARCHAR(36) NULL,
		meter_name VARCHAR(100) NOT NULL,
		value DOUBLE NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		organization_id VARCHAR(36) NOT NULL,
		INDEX idx_readings_asset_meter (asset_id, meter_name, recorded_at)
	)`},
	{"work_orders", `CREATE TABLE IF NOT EXISTS work_orders (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		status VARCHAR(32) NOT NULL DEFAULT 'open',
		priority VARCHAR(32),
		asset_id VARCHAR(36) NULL,
		incident_id VARCHAR(36) NULL,
		assigned_to_user_id VARCHAR(36) NULL,
		created_by_user_id VARCHAR(36) NOT NULL,
		scheduled_start_date TIMESTAMP NULL,
		scheduled_finish_date TIMESTAMP NULL,
		actual_finish_date TIMESTAMP NULL,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_wo_org_status (organization_id, status),
		INDEX idx_wo_asset (asset_id)
	)`},
	{"incidents", `CREATE TABLE IF NOT EXISTS incidents (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		severity VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'reported',
		asset_id VARCHAR(36) NULL,
		reported_by_user_id VARCHAR(36) NOT NULL,
		work_order_id VARCHAR(36) NULL,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_incidents_org_status (organization_id, status)
	)`},
	{"pm_schedules", `CREATE TABLE IF NOT EXISTS pm_schedules (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		asset_id VARCHAR(36) NOT NULL,
		trigger_kind VARCHAR(16) NOT NULL,
		cron_expression VARCHAR(100),
		meter_condition VARCHAR(512),
		work_order_title VARCHAR(255) NOT NULL,
		priority VARCHAR(32),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_generated_at TIMESTAMP NULL,
		next_due_at TIMESTAMP NULL,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_pm_active (is_active),
		INDEX idx_pm_org (organization_id)
	)`},
	{"workflow_templates", `CREATE TABLE IF NOT EXISTS workflow_templates (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description VARCHAR(512),
		entity_kind VARCHAR(32) NOT NULL DEFAULT 'work_order',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_wf_templates_org (organization_id)
	)`},
	{"workflow_template_steps", `CREATE TABLE IF NOT EXISTS workflow_template_steps (
		id VARCHAR(36) PRIMARY KEY,
		template_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		step_order INT NOT NULL,
		approval_type VARCHAR(16) NOT NULL DEFAULT 'single',
		is_required BOOLEAN NOT NULL DEFAULT TRUE,
		sla_hours INT NULL,
		reject_target_step_id VARCHAR(36) NULL,
		allows_work_order_creation BOOLEAN NOT NULL DEFAULT FALSE,
		work_order_status VARCHAR(32) NULL,
		incident_status VARCHAR(32) NULL,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_wf_steps_template (template_id, step_order)
	)`},
	{"workflow_step_roles", `CREATE TABLE IF NOT EXISTS workflow_step_roles (
		step_id VARCHAR(36) NOT NULL,
		role_id VARCHAR(36) NULL,
		role_name VARCHAR(100) NOT NULL,
		can_approve BOOLEAN NOT NULL DEFAULT FALSE,
		can_reject BOOLEAN NOT NULL DEFAULT FALSE,
		can_assign BOOLEAN NOT NULL DEFAULT FALSE,
		can_view BOOLEAN NOT NULL DEFAULT TRUE,
		can_edit BOOLEAN NOT NULL DEFAULT FALSE,
		INDEX idx_step_roles_step (step_id)
	)`},
	{"work_order_workflow_state", `CREATE TABLE IF NOT EXISTS work_order_workflow_state (
		work_order_id VARCHAR(36) PRIMARY KEY,
		template_id VARCHAR(36) NOT NULL,
		current_step_id VARCHAR(36) NOT NULL,
		organization_id VARCHAR(36) NOT NULL
	)`},
	{"work_order_approvals", `CREATE TABLE IF NOT EXISTS work_order_approvals (
		id VARCHAR(36) PRIMARY KEY,
		work_order_id VARCHAR(36) NOT NULL,
		step_id VARCHAR(36) NOT NULL,
		approved_by_user_id VARCHAR(36) NOT NULL,
		approval_action VARCHAR(16) NOT NULL,
		comments TEXT,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_approvals_wo (work_order_id, created_at)
	)`},
}

// EnsureSchema creates every table if it does not exist yet
func EnsureSchema(conn *database.Connection) error {
	log.Println("🔧 Ensuring database schema...")

	for _, def := range tableDefs {
		if _, err := conn.Exec(def.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", def.name, err)
		}
	}

	log.Printf("   ✅ Ensured %d tables", len(tableDefs))
	return nil
}
