package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
)

// WorkflowService drives work orders through their approval workflow. Every
// transition runs inside one transaction: the log row, the state move and
// the parent entity side effects commit or roll back together.
type WorkflowService struct {
	txManager *persistence.TransactionManager
	readModel *WorkflowReadModel
	states    *persistence.StateRepository
	store     *persistence.WorkflowStore
	users     *persistence.UserRepository
	workOrder *persistence.WorkOrderRepository
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	txManager *persistence.TransactionManager,
	readModel *WorkflowReadModel,
	states *persistence.StateRepository,
	store *persistence.WorkflowStore,
	users *persistence.UserRepository,
	workOrder *persistence.WorkOrderRepository,
) *WorkflowService {
	return &WorkflowService{
		txManager: txManager,
		readModel: readModel,
		states:    states,
		store:     store,
		users:     users,
		workOrder: workOrder,
	}
}

// TransitionRequest is one workflow action against a work order
type TransitionRequest struct {
	Action         workflow.Action `json:"action" binding:"required"`
	Comments       string          `json:"comments"`
	ReassignToUser string          `json:"reassign_to_user_id"`
}

// ActorFromSession resolves the session's typed role IDs into a workflow
// actor. Role membership was fixed at login; only names are re-read here.
func (s *WorkflowService) ActorFromSession(ctx context.Context, session auth.UserSession) (workflow.Actor, error) {
	roles, err := s.users.RolesByIDs(ctx, session.RoleIDs)
	if err != nil {
		return workflow.Actor{}, fmt.Errorf("failed to resolve actor roles: %w", err)
	}
	return workflow.Actor{ID: session.ID, Name: session.Name, Roles: roles}, nil
}

// Start places a work order onto a template's first step and applies that
// step's entry side effects. If the first step needs no approval it is
// auto-advanced immediately, in the same transaction.
func (s *WorkflowService) Start(ctx context.Context, workOrderID, templateID string, incidentID *string, actor workflow.Actor, orgID string) (*workflow.Result, error) {
	snap, err := s.readModel.Snapshot(ctx, templateID)
	if err != nil {
		return nil, err
	}
	first, ok := snap.Resolver.First()
	if !ok {
		return nil, errors.NewValidationError("template_id", "template has no steps")
	}

	existing, err := s.states.GetState(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewConflictError("workflow state", "work_order_id", workOrderID)
	}

	result := &workflow.Result{NewStepID: first.ID}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		state := workflow.State{
			WorkOrderID:    workOrderID,
			TemplateID:     templateID,
			CurrentStepID:  first.ID,
			OrganizationID: orgID,
		}
		if err := s.states.CreateState(txCtx, state); err != nil {
			return err
		}

		entity := workflow.EntityRef{WorkOrderID: workOrderID, IncidentID: incidentID, OrganizationID: orgID}
		engine := workflow.NewEngine(snap.Resolver, snap.Gate, state, s.store)
		if first.WorkOrderStatus != nil && *first.WorkOrderStatus != "" {
			if err := s.store.UpdateWorkOrderStatus(txCtx, workOrderID, *first.WorkOrderStatus); err != nil {
				return err
			}
		}

		if first.ApprovalType == workflow.ApprovalNone {
			r, err := engine.ExecuteTransition(txCtx, workflow.Command{
				Entity: entity,
				Action: workflow.ActionAutoAdvance,
				Actor:  actor,
				Now:    time.Now().UTC(),
			})
			if err == workflow.ErrNoNextStep {
				// single-step auto template: nothing to advance into
				return nil
			}
			if err != nil {
				return err
			}
			result = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🚀 Work order %s entered workflow %s at step %s", workOrderID, templateID, result.NewStepID)
	return result, nil
}

// Execute runs one transition command for a work order. Completed work
// orders accept a repeated complete as a no-op; every other action on a
// completed workflow fails.
func (s *WorkflowService) Execute(ctx context.Context, workOrderID, orgID string, actor workflow.Actor, req TransitionRequest) (*workflow.Result, error) {
	state, err := s.states.GetState(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		if req.Action == workflow.ActionComplete {
			return &workflow.Result{Completed: true}, nil
		}
		return nil, workflow.ErrAlreadyComplete
	}
	if state.OrganizationID != orgID {
		return nil, errors.NewNotFoundError("work order", workOrderID)
	}

	snap, err := s.readModel.Snapshot(ctx, state.TemplateID)
	if err != nil {
		return nil, err
	}

	incidentID, err := s.incidentRef(ctx, workOrderID, orgID)
	if err != nil {
		return nil, err
	}

	cmd := workflow.Command{
		Entity:         workflow.EntityRef{WorkOrderID: workOrderID, IncidentID: incidentID, OrganizationID: orgID},
		Action:         req.Action,
		Actor:          actor,
		Comments:       req.Comments,
		ReassignToUser: req.ReassignToUser,
		Now:            time.Now().UTC(),
	}

	var result *workflow.Result
	err = s.txManager.WithRetry(ctx, func(txCtx context.Context) error {
		engine := workflow.NewEngine(snap.Resolver, snap.Gate, *state, s.store)
		r, err := engine.ExecuteTransition(txCtx, cmd)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, 3)
	if err != nil {
		return nil, err
	}

	if result.Completed {
		log.Printf("🏁 Work order %s completed its workflow", workOrderID)
	} else {
		log.Printf("➡️  Work order %s: %s by %s -> step %s", workOrderID, req.Action, actor.ID, result.NewStepID)
	}
	return result, nil
}

// PermittedActions returns the actions the actor may invoke right now
func (s *WorkflowService) PermittedActions(ctx context.Context, workOrderID, orgID string, actor workflow.Actor) ([]workflow.Action, error) {
	state, err := s.states.GetState(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.OrganizationID != orgID {
		return []workflow.Action{}, nil
	}

	snap, err := s.readModel.Snapshot(ctx, state.TemplateID)
	if err != nil {
		return nil, err
	}

	engine := workflow.NewEngine(snap.Resolver, snap.Gate, *state, s.store)
	actions := engine.PermittedActions(actor)
	if actions == nil {
		actions = []workflow.Action{}
	}
	return actions, nil
}

// CurrentStep returns the work order's current step, or nil when the
// workflow has completed
func (s *WorkflowService) CurrentStep(ctx context.Context, workOrderID, orgID string) (*workflow.Step, error) {
	state, err := s.states.GetState(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.OrganizationID != orgID {
		return nil, nil
	}

	snap, err := s.readModel.Snapshot(ctx, state.TemplateID)
	if err != nil {
		return nil, err
	}
	step, ok := snap.Resolver.ByID(state.CurrentStepID)
	if !ok {
		return nil, workflow.ErrStepNotFound
	}
	return &step, nil
}

// History returns the work order's transition log, newest first
func (s *WorkflowService) History(ctx context.Context, workOrderID string) ([]workflow.Transition, error) {
	return s.states.ListTransitions(ctx, workOrderID)
}

// incidentRef loads the work order's linked incident id, if any, so step
// entry effects can update the incident status
func (s *WorkflowService) incidentRef(ctx context.Context, workOrderID, orgID string) (*string, error) {
	wo, err := s.workOrder.GetByID(ctx, workOrderID, orgID)
	if err != nil {
		return nil, err
	}
	return wo.IncidentID, nil
}
