package constants

// Core tables
const (
	TableOrganization = "organizations"
	TableUser         = "users"
	TableSession      = "user_sessions"
	TableRole         = "roles"
	TableUserRole     = "user_roles"
)

// Asset registry tables
const (
	TableAsset        = "assets"
	TablePart         = "parts"
	TableBOMLine      = "bom_lines"
	TableMeterReading = "meter_readings"
	TableIoTDevice    = "iot_devices"
)

// Maintenance tables
const (
	TableWorkOrder  = "work_orders"
	TableIncident   = "incidents"
	TablePMSchedule = "pm_schedules"
)

// Workflow tables
const (
	TableWorkflowTemplate = "workflow_templates"
	TableWorkflowStep     = "workflow_template_steps"
	TableStepRole         = "workflow_step_roles"
	TableWorkflowState    = "work_order_workflow_state"
	TableWorkOrderApproval = "work_order_approvals"
)
