package workflow

import "time"

// ApprovalType describes how many approvers a step needs before it advances
type ApprovalType string

const (
	// ApprovalNone means the step auto-advances without a human approver
	ApprovalNone ApprovalType = "none"
	// ApprovalSingle means one approval from any permitted role advances the step
	ApprovalSingle ApprovalType = "single"
	// ApprovalMultiple means at least two distinct approvers are required
	ApprovalMultiple ApprovalType = "multiple"
	// ApprovalUnanimous means one approver per permitted role is required
	ApprovalUnanimous ApprovalType = "unanimous"
)

// Action is a transition request against the current step
type Action string

const (
	ActionApprove     Action = "approve"
	ActionAutoAdvance Action = "auto_advance"
	ActionReject      Action = "reject"
	ActionReassign    Action = "reassign"
	ActionComplete    Action = "complete"
)

// LogAction is the value recorded in the append-only transition log
type LogAction string

const (
	LogApproved   LogAction = "approved"
	LogRejected   LogAction = "rejected"
	LogReassigned LogAction = "reassigned"
)

// Step is one stage in a workflow template. Steps are ordered by Order,
// strictly increasing within a template; the step with the highest Order is
// the terminal step.
type Step struct {
	ID                      string
	TemplateID              string
	Name                    string
	Order                   int
	ApprovalType            ApprovalType
	IsRequired              bool
	SLAHours                *int
	RejectTargetStepID      *string
	AllowsWorkOrderCreation bool
	WorkOrderStatus         *string
	IncidentStatus          *string
	OrganizationID          string
}

// Role is a typed role identifier resolved once at session start
type Role struct {
	ID   string
	Name string
}

// RoleAssignment grants per-step permissions to one role
type RoleAssignment struct {
	StepID     string
	RoleID     string
	RoleName   string
	CanApprove bool
	CanReject  bool
	CanAssign  bool
	CanView    bool
	CanEdit    bool
}

// Capability is the merged permission set an actor holds on one step
type Capability struct {
	CanApprove bool
	CanReject  bool
	CanAssign  bool
	CanView    bool
	CanEdit    bool
}

// Actor is the user attempting a transition
type Actor struct {
	ID    string
	Name  string
	Roles []Role
}

// RoleNames returns the actor's role names, for permission-denied reporting
func (a Actor) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, r.Name)
	}
	return names
}

// State is the current position of one work order within its template.
// Completion is modeled as absence of a state row.
type State struct {
	WorkOrderID    string
	TemplateID     string
	CurrentStepID  string
	OrganizationID string
}

// Transition is one append-only log row
type Transition struct {
	ID             string
	WorkOrderID    string
	StepID         string
	ApprovedByID   string
	Action         LogAction
	Comments       string
	OrganizationID string
	CreatedAt      time.Time
}

// EntityRef identifies the work order (and optionally its source incident)
// a transition acts on
type EntityRef struct {
	WorkOrderID    string
	IncidentID     *string
	OrganizationID string
}

// Command is a single transition request executed atomically by the engine
type Command struct {
	Entity         EntityRef
	Action         Action
	Actor          Actor
	Comments       string
	ReassignToUser string
	Now            time.Time
}

// Result reports what a transition did
type Result struct {
	NewStepID         string
	Completed         bool
	QuorumPending     bool
	ApproverCount     int
	RequiredApprovals int
}
