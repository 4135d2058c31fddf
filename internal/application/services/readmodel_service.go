package services

import (
	"context"
	"database/sql"
	"log"
	"sync"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
)

// TemplateSnapshot is an immutable read model of one workflow template:
// its ordered steps and per-step role assignments, pre-indexed for the
// engine. Snapshots are shared across requests and never mutated.
type TemplateSnapshot struct {
	TemplateID string
	Resolver   *workflow.Resolver
	Gate       *workflow.Gate
	Steps      []workflow.Step
}

// WorkflowReadModel caches template snapshots so transition requests do not
// re-read step configuration per call. Editor writes invalidate the cached
// snapshot; the next read rebuilds it from the database.
type WorkflowReadModel struct {
	repo *persistence.WorkflowRepository

	mu        sync.RWMutex
	snapshots map[string]*TemplateSnapshot
}

// NewWorkflowReadModel creates a new WorkflowReadModel
func NewWorkflowReadModel(repo *persistence.WorkflowRepository) *WorkflowReadModel {
	return &WorkflowReadModel{
		repo:      repo,
		snapshots: make(map[string]*TemplateSnapshot),
	}
}

// Snapshot returns the cached snapshot for a template, loading it on miss
func (rm *WorkflowReadModel) Snapshot(ctx context.Context, templateID string) (*TemplateSnapshot, error) {
	rm.mu.RLock()
	snap, ok := rm.snapshots[templateID]
	rm.mu.RUnlock()
	if ok {
		return snap, nil
	}
	return rm.load(ctx, templateID)
}

// Invalidate drops the cached snapshot after a template edit
func (rm *WorkflowReadModel) Invalidate(templateID string) {
	rm.mu.Lock()
	delete(rm.snapshots, templateID)
	rm.mu.Unlock()
}

func (rm *WorkflowReadModel) load(ctx context.Context, templateID string) (*TemplateSnapshot, error) {
	steps, err := rm.repo.ListStepsForTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, errors.NewNotFoundError("workflow template", templateID)
	}

	assignments, err := rm.repo.ListAssignmentsForTemplate(ctx, templateID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	snap := &TemplateSnapshot{
		TemplateID: templateID,
		Resolver:   workflow.NewResolver(steps),
		Gate:       workflow.NewGate(assignments),
		Steps:      steps,
	}

	rm.mu.Lock()
	rm.snapshots[templateID] = snap
	rm.mu.Unlock()

	log.Printf("📦 Loaded workflow snapshot for template %s (%d steps)", templateID, len(steps))
	return snap, nil
}
