package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is the write surface a transition needs. The caller is expected to
// hand the engine a context carrying one transaction so the log insert, the
// state write and the parent entity side effects commit or roll back as a
// unit.
type Store interface {
	RecordTransition(ctx context.Context, t Transition) error
	SetCurrentStep(ctx context.Context, workOrderID, stepID string) error
	DeleteState(ctx context.Context, workOrderID string) error
	CompleteWorkOrder(ctx context.Context, workOrderID string, finishedAt time.Time) error
	UpdateWorkOrderStatus(ctx context.Context, workOrderID, status string) error
	UpdateIncidentStatus(ctx context.Context, incidentID, status string) error
	ReassignWorkOrder(ctx context.Context, workOrderID, userID string) error
	// CountApproversSinceLastRejection counts distinct users with an approved
	// log row for (workOrder, step) recorded after the work order's most
	// recent rejection. A rejection routes the flow backwards, so approvals
	// collected on this step before it are stale.
	CountApproversSinceLastRejection(ctx context.Context, workOrderID, stepID string) (int, error)
}

// SystemComment is recorded on auto-advanced steps
const SystemComment = "auto-transitioned: step requires no approval"

// CompletionComment is recorded on the terminal approval
const CompletionComment = "workflow completed"

// Engine executes transitions for one work order against a snapshot of its
// template. Build it per request from the read model; it holds no mutable
// state of its own.
type Engine struct {
	resolver *Resolver
	gate     *Gate
	state    State
	store    Store
}

// NewEngine creates an engine over a template snapshot and the work order's
// current state
func NewEngine(resolver *Resolver, gate *Gate, state State, store Store) *Engine {
	return &Engine{resolver: resolver, gate: gate, state: state, store: store}
}

// ExecuteTransition validates and executes one transition command. All
// writes go through e.store with the given context; run it inside a
// transaction so partial failure cannot leave the log, state and parent
// status out of sync.
func (e *Engine) ExecuteTransition(ctx context.Context, cmd Command) (*Result, error) {
	current, ok := e.resolver.ByID(e.state.CurrentStepID)
	if !ok {
		return nil, ErrStepNotFound
	}

	if cmd.Now.IsZero() {
		cmd.Now = time.Now().UTC()
	}

	switch cmd.Action {
	case ActionApprove:
		return e.approve(ctx, cmd, current)
	case ActionAutoAdvance:
		return e.autoAdvance(ctx, cmd, current)
	case ActionReject:
		return e.reject(ctx, cmd, current)
	case ActionReassign:
		return e.reassign(ctx, cmd, current)
	case ActionComplete:
		return e.complete(ctx, cmd, current)
	default:
		return nil, &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", cmd.Action)}
	}
}

// PermittedActions computes which actions the actor may currently invoke,
// for the UI's action bar. It never writes.
func (e *Engine) PermittedActions(actor Actor) []Action {
	current, ok := e.resolver.ByID(e.state.CurrentStepID)
	if !ok {
		return nil
	}

	var actions []Action
	caps := e.gate.CapabilitiesFor(current.ID, actor.Roles)
	_, hasNext := e.resolver.Next(current.ID)
	isFinal := e.resolver.IsFinal(current.ID)

	if current.ApprovalType == ApprovalNone {
		if hasNext {
			actions = append(actions, ActionAutoAdvance)
		}
	} else if caps.CanApprove {
		if hasNext {
			actions = append(actions, ActionApprove)
		}
		if isFinal {
			actions = append(actions, ActionComplete)
		}
	}

	if _, ok := e.resolver.RejectionTarget(current); ok && caps.CanReject {
		actions = append(actions, ActionReject)
	}
	if caps.CanAssign {
		actions = append(actions, ActionReassign)
	}
	return actions
}

func (e *Engine) approve(ctx context.Context, cmd Command, current Step) (*Result, error) {
	next, hasNext := e.resolver.Next(current.ID)
	if !hasNext {
		return nil, ErrNoNextStep
	}
	if err := e.requireApprover(cmd, current); err != nil {
		return nil, err
	}

	if err := e.record(ctx, cmd, current.ID, LogApproved, cmd.Comments); err != nil {
		return nil, err
	}

	required := e.requiredApprovals(current)
	if required > 1 {
		count, err := e.store.CountApproversSinceLastRejection(ctx, cmd.Entity.WorkOrderID, current.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count approvers: %w", err)
		}
		if count < required {
			return &Result{
				NewStepID:         current.ID,
				QuorumPending:     true,
				ApproverCount:     count,
				RequiredApprovals: required,
			}, nil
		}
	}

	if err := e.advance(ctx, cmd, next); err != nil {
		return nil, err
	}
	return &Result{NewStepID: next.ID, RequiredApprovals: required}, nil
}

func (e *Engine) autoAdvance(ctx context.Context, cmd Command, current Step) (*Result, error) {
	if current.ApprovalType != ApprovalNone {
		return nil, &ValidationError{Field: "action", Message: "step requires explicit approval"}
	}
	next, hasNext := e.resolver.Next(current.ID)
	if !hasNext {
		return nil, ErrNoNextStep
	}

	if err := e.record(ctx, cmd, current.ID, LogApproved, SystemComment); err != nil {
		return nil, err
	}
	if err := e.advance(ctx, cmd, next); err != nil {
		return nil, err
	}
	return &Result{NewStepID: next.ID}, nil
}

func (e *Engine) reject(ctx context.Context, cmd Command, current Step) (*Result, error) {
	if strings.TrimSpace(cmd.Comments) == "" {
		return nil, &ValidationError{Field: "comments", Message: "Comments are required when rejecting"}
	}
	target, ok := e.resolver.RejectionTarget(current)
	if !ok {
		return nil, ErrNoRejectionTarget
	}
	if err := e.requireCapability(cmd, current, ActionReject, func(c Capability) bool { return c.CanReject }); err != nil {
		return nil, err
	}

	if err := e.record(ctx, cmd, current.ID, LogRejected, cmd.Comments); err != nil {
		return nil, err
	}
	if err := e.store.SetCurrentStep(ctx, cmd.Entity.WorkOrderID, target.ID); err != nil {
		return nil, err
	}
	if err := e.applyEntryEffects(ctx, cmd.Entity, target); err != nil {
		return nil, err
	}
	return &Result{NewStepID: target.ID}, nil
}

func (e *Engine) reassign(ctx context.Context, cmd Command, current Step) (*Result, error) {
	if cmd.ReassignToUser == "" {
		return nil, &ValidationError{Field: "reassign_to_user_id", Message: "reassignment target is required"}
	}
	if err := e.requireCapability(cmd, current, ActionReassign, func(c Capability) bool { return c.CanAssign }); err != nil {
		return nil, err
	}

	if err := e.record(ctx, cmd, current.ID, LogReassigned, cmd.Comments); err != nil {
		return nil, err
	}
	// Current step is unchanged; only ownership moves
	if err := e.store.ReassignWorkOrder(ctx, cmd.Entity.WorkOrderID, cmd.ReassignToUser); err != nil {
		return nil, err
	}
	return &Result{NewStepID: current.ID}, nil
}

func (e *Engine) complete(ctx context.Context, cmd Command, current Step) (*Result, error) {
	if !e.resolver.IsFinal(current.ID) {
		return nil, ErrNotFinalStep
	}
	if err := e.requireApprover(cmd, current); err != nil {
		return nil, err
	}

	comments := cmd.Comments
	if comments == "" {
		comments = CompletionComment
	}
	if err := e.record(ctx, cmd, current.ID, LogApproved, comments); err != nil {
		return nil, err
	}
	if err := e.store.CompleteWorkOrder(ctx, cmd.Entity.WorkOrderID, cmd.Now); err != nil {
		return nil, err
	}
	if err := e.store.DeleteState(ctx, cmd.Entity.WorkOrderID); err != nil {
		return nil, err
	}
	return &Result{Completed: true}, nil
}

// advance moves the state forward and applies the entered step's configured
// side effects on the parent entities
func (e *Engine) advance(ctx context.Context, cmd Command, next Step) error {
	if err := e.store.SetCurrentStep(ctx, cmd.Entity.WorkOrderID, next.ID); err != nil {
		return err
	}
	if cmd.ReassignToUser != "" {
		if err := e.store.ReassignWorkOrder(ctx, cmd.Entity.WorkOrderID, cmd.ReassignToUser); err != nil {
			return err
		}
	}
	return e.applyEntryEffects(ctx, cmd.Entity, next)
}

func (e *Engine) applyEntryEffects(ctx context.Context, entity EntityRef, step Step) error {
	if step.WorkOrderStatus != nil && *step.WorkOrderStatus != "" {
		if err := e.store.UpdateWorkOrderStatus(ctx, entity.WorkOrderID, *step.WorkOrderStatus); err != nil {
			return err
		}
	}
	if step.IncidentStatus != nil && *step.IncidentStatus != "" && entity.IncidentID != nil {
		if err := e.store.UpdateIncidentStatus(ctx, *entity.IncidentID, *step.IncidentStatus); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) record(ctx context.Context, cmd Command, stepID string, action LogAction, comments string) error {
	return e.store.RecordTransition(ctx, Transition{
		WorkOrderID:    cmd.Entity.WorkOrderID,
		StepID:         stepID,
		ApprovedByID:   cmd.Actor.ID,
		Action:         action,
		Comments:       comments,
		OrganizationID: cmd.Entity.OrganizationID,
		CreatedAt:      cmd.Now,
	})
}

// requiredApprovals returns the quorum size for a step: 1 for single, 2 for
// multiple, one per distinct can_approve role for unanimous
func (e *Engine) requiredApprovals(step Step) int {
	switch step.ApprovalType {
	case ApprovalMultiple:
		return 2
	case ApprovalUnanimous:
		n := len(e.gate.ApproverRoleNames(step.ID))
		if n < 1 {
			n = 1
		}
		return n
	default:
		return 1
	}
}

func (e *Engine) requireApprover(cmd Command, step Step) error {
	if step.ApprovalType == ApprovalNone {
		return nil
	}
	return e.requireCapability(cmd, step, cmd.Action, func(c Capability) bool { return c.CanApprove })
}

func (e *Engine) requireCapability(cmd Command, step Step, action Action, has func(Capability) bool) error {
	caps := e.gate.CapabilitiesFor(step.ID, cmd.Actor.Roles)
	if has(caps) {
		return nil
	}
	return &PermissionDeniedError{
		Action:        action,
		StepName:      step.Name,
		RequiredRoles: e.gate.ApproverRoleNames(step.ID),
		HeldRoles:     cmd.Actor.RoleNames(),
	}
}
