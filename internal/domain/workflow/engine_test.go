package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records writes in memory for engine tests
type fakeStore struct {
	transitions   []Transition
	currentStep   string
	stateDeleted  bool
	woStatus      string
	woFinishedAt  *time.Time
	incStatus     string
	assignedTo    string
	approverCount int
}

func (f *fakeStore) RecordTransition(_ context.Context, t Transition) error {
	f.transitions = append(f.transitions, t)
	return nil
}

func (f *fakeStore) SetCurrentStep(_ context.Context, _, stepID string) error {
	f.currentStep = stepID
	return nil
}

func (f *fakeStore) DeleteState(_ context.Context, _ string) error {
	f.stateDeleted = true
	return nil
}

func (f *fakeStore) CompleteWorkOrder(_ context.Context, _ string, finishedAt time.Time) error {
	f.woStatus = "completed"
	f.woFinishedAt = &finishedAt
	return nil
}

func (f *fakeStore) UpdateWorkOrderStatus(_ context.Context, _, status string) error {
	f.woStatus = status
	return nil
}

func (f *fakeStore) UpdateIncidentStatus(_ context.Context, _, status string) error {
	f.incStatus = status
	return nil
}

func (f *fakeStore) ReassignWorkOrder(_ context.Context, _, userID string) error {
	f.assignedTo = userID
	return nil
}

func (f *fakeStore) CountApproversSinceLastRejection(_ context.Context, _, _ string) (int, error) {
	return f.approverCount, nil
}

func reviewTemplate() ([]Step, []RoleAssignment) {
	steps := []Step{
		{ID: "s1", TemplateID: "t1", Name: "Draft", Order: 1, ApprovalType: ApprovalSingle},
		{ID: "s2", TemplateID: "t1", Name: "Review", Order: 2, ApprovalType: ApprovalSingle},
		{ID: "s3", TemplateID: "t1", Name: "Approve", Order: 3, ApprovalType: ApprovalSingle},
	}
	assignments := []RoleAssignment{
		{StepID: "s1", RoleName: "Requester", CanApprove: true, CanReject: false},
		{StepID: "s2", RoleName: "Reviewer", CanApprove: true, CanReject: true, CanAssign: true},
		{StepID: "s3", RoleName: "Manager", CanApprove: true, CanReject: true},
	}
	return steps, assignments
}

func newTestEngine(steps []Step, assignments []RoleAssignment, currentStepID string, store Store) *Engine {
	state := State{WorkOrderID: "wo1", TemplateID: "t1", CurrentStepID: currentStepID, OrganizationID: "org1"}
	return NewEngine(NewResolver(steps), NewGate(assignments), state, store)
}

func cmd(action Action, roleNames ...string) Command {
	roles := make([]Role, 0, len(roleNames))
	for _, n := range roleNames {
		roles = append(roles, Role{Name: n})
	}
	return Command{
		Entity: EntityRef{WorkOrderID: "wo1", OrganizationID: "org1"},
		Action: action,
		Actor:  Actor{ID: "u1", Name: "Test User", Roles: roles},
	}
}

func TestEngine_ApproveWrongRoleDenied(t *testing.T) {
	steps, assignments := reviewTemplate()
	store := &fakeStore{}
	engine := newTestEngine(steps, assignments, "s1", store)

	// Reviewer can approve step 2 only; step 1 requires Requester
	_, err := engine.ExecuteTransition(context.Background(), cmd(ActionApprove, "Reviewer"))

	var denied *PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, []string{"Requester"}, denied.RequiredRoles)
	assert.Equal(t, []string{"Reviewer"}, denied.HeldRoles)
	assert.Empty(t, store.transitions, "denied transition must not be logged")
}

func TestEngine_ApproveAdvances(t *testing.T) {
	steps, assignments := reviewTemplate()
	store := &fakeStore{approverCount: 1}
	engine := newTestEngine(steps, assignments, "s1", store)

	res, err := engine.ExecuteTransition(context.Background(), cmd(ActionApprove, "Requester"))
	require.NoError(t, err)

	assert.Equal(t, "s2", res.NewStepID)
	assert.Equal(t, "s2", store.currentStep)
	require.Len(t, store.transitions, 1)
	assert.Equal(t, LogApproved, store.transitions[0].Action)
	assert.Equal(t, "s1", store.transitions[0].StepID)
}

func TestEngine_ApproveFinalStepNoNext(t *testing.T) {
	steps, assignments := reviewTemplate()
	engine := newTestEngine(steps, assignments, "s3", &fakeStore{})

	_, err := engine.ExecuteTransition(context.Background(), cmd(ActionApprove, "Manager"))
	assert.ErrorIs(t, err, ErrNoNextStep)
}

// rejectCmd carries the comments a rejection must explain itself with
func rejectCmd(roleNames ...string) Command {
	c := cmd(ActionReject, roleNames...)
	c.Comments = "missing safety checklist"
	return c
}

func TestEngine_RejectDefaultTarget(t *testing.T) {
	steps, assignments := reviewTemplate()
	store := &fakeStore{}
	engine := newTestEngine(steps, assignments, "s2", store)

	res, err := engine.ExecuteTransition(context.Background(), rejectCmd("Reviewer"))
	require.NoError(t, err)

	assert.Equal(t, "s1", res.NewStepID)
	assert.Equal(t, "s1", store.currentStep)
	require.Len(t, store.transitions, 1)
	assert.Equal(t, LogRejected, store.transitions[0].Action)
}

func TestEngine_RejectExplicitTarget(t *testing.T) {
	steps, assignments := reviewTemplate()
	steps[2].RejectTargetStepID = strPtr("s1")
	store := &fakeStore{}
	engine := newTestEngine(steps, assignments, "s3", store)

	res, err := engine.ExecuteTransition(context.Background(), rejectCmd("Manager"))
	require.NoError(t, err)
	assert.Equal(t, "s1", res.NewStepID)
}

func TestEngine_RejectFirstStepUnavailable(t *testing.T) {
	steps, assignments := reviewTemplate()
	assignments[0].CanReject = true
	engine := newTestEngine(steps, assignments, "s1", &fakeStore{})

	_, err := engine.ExecuteTransition(context.Background(), rejectCmd("Requester"))
	assert.ErrorIs(t, err, ErrNoRejectionTarget)
}

func TestEngine_RejectWithoutComments(t *testing.T) {
	steps, assignments := reviewTemplate()
	store := &fakeStore{}
	engine := newTestEngine(steps, assignments, "s2", store)

	_, err := engine.ExecuteTransition(context.Background(), cmd(ActionReject, "Reviewer"))

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "comments", valErr.Field)
	assert.Empty(t, store.transitions, "a refused rejection must not be logged")
}

func TestEngine_ReassignKeepsStep(t *testing.T) {
	steps, assignments := reviewTemplate()
	store := &fakeStore{currentStep: "s2"}
	engine := newTestEngine(steps, assignments, "s2", store)

	c := cmd(ActionReassign, "Reviewer")
	c.ReassignToUser = "u7"

	res, err := engine.ExecuteTransition(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "s2", res.NewStepID)
	assert.Equal(t, "s2", store.currentStep, "step must not change on reassign")
	assert.Equal(t, "u7", store.assignedTo)
	require.Len(t, store.transitions, 1)
	assert.Equal(t, LogReassigned, store.transitions[0].Action)
}

func TestEngine_ReassignRequiresTarget(t *testing.T) {
	steps, assignments := reviewTemplate()
	engine := newTestEngine(steps, assignments, "s2", &fakeStore{})

	_, err := engine.ExecuteTransition(context.Background(), cmd(ActionReassign, "Reviewer"))

	var v *ValidationError
	assert.ErrorAs(t, err, &v)
}

func TestEngine_CompleteFinalStep(t *testing.T) {
	steps, assignments := reviewTemplate()
	store := &fakeStore{}
	engine := newTestEngine(steps, assignments, "s3", store)

	c := cmd(ActionComplete, "Manager")
	c.Now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	res, err := engine.ExecuteTransition(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, "completed", store.woStatus)
	require.NotNil(t, store.woFinishedAt)
	assert.Equal(t, c.Now, *store.woFinishedAt)
	assert.True(t, store.stateDeleted)
	require.Len(t, store.transitions, 1)
	assert.Equal(t, LogApproved, store.transitions[0].Action)
	assert.Equal(t, CompletionComment, store.transitions[0].Comments)
}

func TestEngine_CompleteNonFinalStep(t *testing.T) {
	steps, assignments := reviewTemplate()
	engine := newTestEngine(steps, assignments, "s2", &fakeStore{})

	_, err := engine.ExecuteTransition(context.Background(), cmd(ActionComplete, "Reviewer"))
	assert.ErrorIs(t, err, ErrNotFinalStep)
}

func TestEngine_AutoAdvance(t *testing.T) {
	steps, assignments := reviewTemplate()
	steps[0].ApprovalType = ApprovalNone
	store := &fakeStore{}
	engine := newTestEngine(steps, assignments, "s1", store)

	// No roles needed: approval_type none is open to any viewer
	res, err := engine.ExecuteTransition(context.Background(), cmd(ActionAutoAdvance))
	require.NoError(t, err)

	assert.Equal(t, "s2", res.NewStepID)
	require.Len(t, store.transitions, 1)
	assert.Equal(t, SystemComment, store.transitions[0].Comments)
}

func TestEngine_AutoAdvanceRejectedOnApprovalStep(t *testing.T) {
	steps, assignments := reviewTemplate()
	engine := newTestEngine(steps, assignments, "s1", &fakeStore{})

	_, err := engine.ExecuteTransition(context.Background(), cmd(ActionAutoAdvance, "Requester"))

	var v *ValidationError
	assert.ErrorAs(t, err, &v)
}

func TestEngine_MultipleApprovalQuorum(t *testing.T) {
	steps, assignments := reviewTemplate()
	steps[1].ApprovalType = ApprovalMultiple
	store := &fakeStore{approverCount: 1}
	engine := newTestEngine(steps, assignments, "s2", store)

	// First approval: logged but not advanced
	res, err := engine.ExecuteTransition(context.Background(), cmd(ActionApprove, "Reviewer"))
	require.NoError(t, err)
	assert.True(t, res.QuorumPending)
	assert.Equal(t, "s2", res.NewStepID)
	assert.Equal(t, 1, res.ApproverCount)
	assert.Equal(t, 2, res.RequiredApprovals)
	assert.Empty(t, store.currentStep, "state must not advance before quorum")
	assert.Len(t, store.transitions, 1)

	// Second distinct approver: quorum met, advance
	store.approverCount = 2
	res, err = engine.ExecuteTransition(context.Background(), cmd(ActionApprove, "Reviewer"))
	require.NoError(t, err)
	assert.False(t, res.QuorumPending)
	assert.Equal(t, "s3", res.NewStepID)
	assert.Equal(t, "s3", store.currentStep)
}

func TestEngine_UnanimousQuorumSizedByRoles(t *testing.T) {
	steps, assignments := reviewTemplate()
	steps[1].ApprovalType = ApprovalUnanimous
	assignments = append(assignments, RoleAssignment{StepID: "s2", RoleName: "Safety Officer", CanApprove: true})
	store := &fakeStore{approverCount: 1}
	engine := newTestEngine(steps, assignments, "s2", store)

	res, err := engine.ExecuteTransition(context.Background(), cmd(ActionApprove, "Reviewer"))
	require.NoError(t, err)
	assert.True(t, res.QuorumPending)
	assert.Equal(t, 2, res.RequiredApprovals, "one approver per can_approve role")
}

func TestEngine_EntryEffectsOnAdvance(t *testing.T) {
	steps, assignments := reviewTemplate()
	steps[1].WorkOrderStatus = strPtr("in_progress")
	steps[1].IncidentStatus = strPtr("investigating")
	store := &fakeStore{approverCount: 1}
	engine := newTestEngine(steps, assignments, "s1", store)

	incID := "inc1"
	c := cmd(ActionApprove, "Requester")
	c.Entity.IncidentID = &incID

	_, err := engine.ExecuteTransition(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "in_progress", store.woStatus)
	assert.Equal(t, "investigating", store.incStatus)
}

func TestEngine_PermittedActions(t *testing.T) {
	steps, assignments := reviewTemplate()
	state := State{WorkOrderID: "wo1", TemplateID: "t1", CurrentStepID: "s2"}
	engine := NewEngine(NewResolver(steps), NewGate(assignments), state, &fakeStore{})

	reviewer := Actor{ID: "u1", Roles: []Role{{Name: "Reviewer"}}}
	actions := engine.PermittedActions(reviewer)
	assert.ElementsMatch(t, []Action{ActionApprove, ActionReject, ActionReassign}, actions)

	outsider := Actor{ID: "u2", Roles: []Role{{Name: "Technician"}}}
	assert.Empty(t, engine.PermittedActions(outsider))

	// Final step: approve is replaced by complete
	state.CurrentStepID = "s3"
	engine = NewEngine(NewResolver(steps), NewGate(assignments), state, &fakeStore{})
	manager := Actor{ID: "u3", Roles: []Role{{Name: "Manager"}}}
	actions = engine.PermittedActions(manager)
	assert.ElementsMatch(t, []Action{ActionComplete, ActionReject}, actions)
}

func TestEngine_UnknownCurrentStep(t *testing.T) {
	steps, assignments := reviewTemplate()
	engine := newTestEngine(steps, assignments, "missing", &fakeStore{})

	_, err := engine.ExecuteTransition(context.Background(), cmd(ActionApprove, "Requester"))
	assert.ErrorIs(t, err, ErrStepNotFound)
}
