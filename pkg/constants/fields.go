package constants

// Common fields present on most tables
const (
	FieldID             = "id"
	FieldName           = "name"
	FieldOrganizationID = "organization_id"
	FieldCreatedAt      = "created_at"
	FieldUpdatedAt      = "updated_at"
)

// User / session fields
const (
	FieldEmail        = "email"
	FieldPassword     = "password_hash"
	FieldIsActive     = "is_active"
	FieldIsAdmin      = "is_admin"
	FieldUserID       = "user_id"
	FieldToken        = "token"
	FieldExpiresAt    = "expires_at"
	FieldIsRevoked    = "is_revoked"
	FieldLastActivity = "last_activity"
	FieldRoleID       = "role_id"
	FieldRoleName     = "role_name"
)

// Workflow step fields
const (
	FieldTemplateID             = "template_id"
	FieldStepOrder              = "step_order"
	FieldApprovalType           = "approval_type"
	FieldIsRequired             = "is_required"
	FieldSLAHours               = "sla_hours"
	FieldRejectTargetStepID     = "reject_target_step_id"
	FieldAllowsWorkOrderCreation = "allows_work_order_creation"
	FieldWorkOrderStatus        = "work_order_status"
	FieldIncidentStatus         = "incident_status"
)

// Step role assignment fields
const (
	FieldStepID     = "step_id"
	FieldCanApprove = "can_approve"
	FieldCanReject  = "can_reject"
	FieldCanAssign  = "can_assign"
	FieldCanView    = "can_view"
	FieldCanEdit    = "can_edit"
)

// Workflow state / transition log fields
const (
	FieldWorkOrderID      = "work_order_id"
	FieldCurrentStepID    = "current_step_id"
	FieldApprovedByUserID = "approved_by_user_id"
	FieldApprovalAction   = "approval_action"
	FieldComments         = "comments"
)

// Work order fields
const (
	FieldStatus           = "status"
	FieldPriority         = "priority"
	FieldAssignedToUserID = "assigned_to_user_id"
	FieldAssetID          = "asset_id"
	FieldScheduledStart   = "scheduled_start_date"
	FieldScheduledFinish  = "scheduled_finish_date"
	FieldActualFinishDate = "actual_finish_date"
)
