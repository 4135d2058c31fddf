package constants

// Approval types configurable on a workflow step
const (
	ApprovalTypeNone      = "none"
	ApprovalTypeSingle    = "single"
	ApprovalTypeMultiple  = "multiple"
	ApprovalTypeUnanimous = "unanimous"
)

// Transition log actions (append-only, never mutated)
const (
	ApprovalActionApproved   = "approved"
	ApprovalActionRejected   = "rejected"
	ApprovalActionReassigned = "reassigned"
)

// Rejection routing modes exposed to template authors.
// "previous" is persisted as a NULL reject_target_step_id.
const (
	RejectRoutePrevious = "previous"
	RejectRouteFirst    = "first"
	RejectRouteSpecific = "specific"
)

// Entity kinds a workflow template can govern
const (
	EntityKindWorkOrder = "work_order"
	EntityKindIncident  = "incident"
)

// Work order statuses
const (
	WorkOrderStatusOpen       = "open"
	WorkOrderStatusInProgress = "in_progress"
	WorkOrderStatusOnHold     = "on_hold"
	WorkOrderStatusCompleted  = "completed"
	WorkOrderStatusCancelled  = "cancelled"
)

// Incident statuses
const (
	IncidentStatusReported      = "reported"
	IncidentStatusInvestigating = "investigating"
	IncidentStatusResolved      = "resolved"
	IncidentStatusClosed        = "closed"
)

// Incident severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// PM schedule trigger kinds
const (
	PMTriggerTime  = "time"
	PMTriggerMeter = "meter"
)

// Asset statuses
const (
	AssetStatusOperational = "operational"
	AssetStatusDown        = "down"
	AssetStatusStandby     = "standby"
	AssetStatusRetired     = "retired"
)

// IsValidApprovalType reports whether t is a recognised approval type.
func IsValidApprovalType(t string) bool {
	switch t {
	case ApprovalTypeNone, ApprovalTypeSingle, ApprovalTypeMultiple, ApprovalTypeUnanimous:
		return true
	}
	return false
}
