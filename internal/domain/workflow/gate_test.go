package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_CaseInsensitiveNameMatch(t *testing.T) {
	g := NewGate([]RoleAssignment{
		{StepID: "s2", RoleName: "manager", CanApprove: true},
	})

	// "Manager" matches "manager"
	actor := Actor{ID: "u1", Roles: []Role{{ID: "r9", Name: "Manager"}}}
	caps := g.CapabilitiesFor("s2", actor.Roles)
	assert.True(t, caps.CanApprove)

	step := Step{ID: "s2", Name: "Review", ApprovalType: ApprovalSingle}
	assert.True(t, g.CanAct(step, actor))
}

func TestGate_RoleIDMatchBeatsNameMismatch(t *testing.T) {
	g := NewGate([]RoleAssignment{
		{StepID: "s1", RoleID: "role-1", RoleName: "Supervisor", CanApprove: true, CanReject: true},
	})

	// Typed id match works even when the display name drifted
	actor := Actor{Roles: []Role{{ID: "role-1", Name: "Shift Supervisor"}}}
	caps := g.CapabilitiesFor("s1", actor.Roles)
	assert.True(t, caps.CanApprove)
	assert.True(t, caps.CanReject)
	assert.False(t, caps.CanAssign)
}

func TestGate_NoMatchingRoleDenied(t *testing.T) {
	g := NewGate([]RoleAssignment{
		{StepID: "s2", RoleName: "Reviewer", CanApprove: true},
	})

	step := Step{ID: "s2", Name: "Review", ApprovalType: ApprovalSingle}

	// Zero roles: always denied when approval is required
	assert.False(t, g.CanAct(step, Actor{ID: "u1"}))

	// Wrong role: denied
	actor := Actor{Roles: []Role{{ID: "r2", Name: "Technician"}}}
	assert.False(t, g.CanAct(step, actor))
}

func TestGate_ApprovalNoneOpenToAll(t *testing.T) {
	g := NewGate(nil)

	step := Step{ID: "s1", Name: "Intake", ApprovalType: ApprovalNone}
	assert.True(t, g.CanAct(step, Actor{ID: "u1"}))
}

func TestGate_MergesCapabilitiesAcrossRoles(t *testing.T) {
	g := NewGate([]RoleAssignment{
		{StepID: "s1", RoleName: "Reviewer", CanApprove: true},
		{StepID: "s1", RoleName: "Planner", CanAssign: true},
	})

	actor := Actor{Roles: []Role{{Name: "reviewer"}, {Name: "PLANNER"}}}
	caps := g.CapabilitiesFor("s1", actor.Roles)
	assert.True(t, caps.CanApprove)
	assert.True(t, caps.CanAssign)
	assert.False(t, caps.CanReject)
}

func TestGate_ApproverRoleNamesDeduplicated(t *testing.T) {
	g := NewGate([]RoleAssignment{
		{StepID: "s1", RoleName: "Manager", CanApprove: true},
		{StepID: "s1", RoleName: "manager", CanApprove: true},
		{StepID: "s1", RoleName: "Planner", CanAssign: true},
	})

	names := g.ApproverRoleNames("s1")
	assert.Equal(t, []string{"Manager"}, names)
}
