package persistence

import (
	"context"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
)

// WorkflowStore implements workflow.Store by composing the state, work order
// and incident repositories. All calls honour a transaction injected into
// the context, so the engine's writes commit as a unit.
type WorkflowStore struct {
	states     *StateRepository
	workOrders *WorkOrderRepository
	incidents  *IncidentRepository
}

// NewWorkflowStore creates a new WorkflowStore
func NewWorkflowStore(states *StateRepository, workOrders *WorkOrderRepository, incidents *IncidentRepository) *WorkflowStore {
	return &WorkflowStore{states: states, workOrders: workOrders, incidents: incidents}
}

func (s *WorkflowStore) RecordTransition(ctx context.Context, t workflow.Transition) error {
	return s.states.RecordTransition(ctx, t)
}

func (s *WorkflowStore) SetCurrentStep(ctx context.Context, workOrderID, stepID string) error {
	return s.states.SetCurrentStep(ctx, workOrderID, stepID)
}

func (s *WorkflowStore) DeleteState(ctx context.Context, workOrderID string) error {
	return s.states.DeleteState(ctx, workOrderID)
}

func (s *WorkflowStore) CompleteWorkOrder(ctx context.Context, workOrderID string, finishedAt time.Time) error {
	return s.workOrders.Complete(ctx, workOrderID, finishedAt)
}

func (s *WorkflowStore) UpdateWorkOrderStatus(ctx context.Context, workOrderID, status string) error {
	return s.workOrders.UpdateStatus(ctx, workOrderID, status)
}

func (s *WorkflowStore) UpdateIncidentStatus(ctx context.Context, incidentID, status string) error {
	return s.incidents.UpdateStatus(ctx, incidentID, status)
}

func (s *WorkflowStore) ReassignWorkOrder(ctx context.Context, workOrderID, userID string) error {
	return s.workOrders.Reassign(ctx, workOrderID, userID)
}

func (s *WorkflowStore) CountApproversSinceLastRejection(ctx context.Context, workOrderID, stepID string) (int, error) {
	return s.states.CountApproversSinceLastRejection(ctx, workOrderID, stepID)
}
