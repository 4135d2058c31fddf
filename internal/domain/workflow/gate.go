package workflow

import "strings"

// Gate resolves what an actor may do on each step. Assignments are matched
// by role id; a case-insensitive name comparison is kept as a fallback for
// assignments imported before roles were typed.
type Gate struct {
	byStep map[string][]RoleAssignment
}

// NewGate builds a gate from the template's role assignments
func NewGate(assignments []RoleAssignment) *Gate {
	byStep := make(map[string][]RoleAssignment)
	for _, a := range assignments {
		byStep[a.StepID] = append(byStep[a.StepID], a)
	}
	return &Gate{byStep: byStep}
}

// CapabilitiesFor merges the capabilities granted to any of the actor's
// roles on the given step
func (g *Gate) CapabilitiesFor(stepID string, roles []Role) Capability {
	var cap Capability
	for _, a := range g.byStep[stepID] {
		if !matchesAny(a, roles) {
			continue
		}
		cap.CanApprove = cap.CanApprove || a.CanApprove
		cap.CanReject = cap.CanReject || a.CanReject
		cap.CanAssign = cap.CanAssign || a.CanAssign
		cap.CanView = cap.CanView || a.CanView
		cap.CanEdit = cap.CanEdit || a.CanEdit
	}
	return cap
}

// CanAct reports whether the actor passes the permission gate for the step.
// Steps with ApprovalNone are open to every authenticated user with
// visibility; the transition is system-driven.
func (g *Gate) CanAct(step Step, actor Actor) bool {
	if step.ApprovalType == ApprovalNone {
		return true
	}
	return g.CapabilitiesFor(step.ID, actor.Roles).CanApprove
}

// ApproverRoleNames returns the names of roles granted can_approve on the
// step, for permission-denied reporting and unanimous quorum sizing
func (g *Gate) ApproverRoleNames(stepID string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, a := range g.byStep[stepID] {
		if !a.CanApprove {
			continue
		}
		key := strings.ToLower(a.RoleName)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, a.RoleName)
	}
	return names
}

// Assignments returns the raw assignments for a step
func (g *Gate) Assignments(stepID string) []RoleAssignment {
	return g.byStep[stepID]
}

func matchesAny(a RoleAssignment, roles []Role) bool {
	for _, r := range roles {
		if a.RoleID != "" && a.RoleID == r.ID {
			return true
		}
		if a.RoleName != "" && strings.EqualFold(a.RoleName, r.Name) {
			return true
		}
	}
	return false
}
