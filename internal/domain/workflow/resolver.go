package workflow

import "sort"

// Resolver answers ordering questions over one template's step list.
// It holds an immutable snapshot: rebuild it after template edits.
type Resolver struct {
	steps []Step
	byID  map[string]int
}

// NewResolver builds a resolver over the given steps, sorted by Order.
// Duplicate max orders are not expected; where they occur the first match
// wins for terminal-step computation.
func NewResolver(steps []Step) *Resolver {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	byID := make(map[string]int, len(sorted))
	for i, s := range sorted {
		byID[s.ID] = i
	}

	return &Resolver{steps: sorted, byID: byID}
}

// Steps returns the ordered step list
func (r *Resolver) Steps() []Step {
	return r.steps
}

// ByID returns the step with the given id
func (r *Resolver) ByID(id string) (Step, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Step{}, false
	}
	return r.steps[idx], true
}

// First returns the entry step (lowest Order)
func (r *Resolver) First() (Step, bool) {
	if len(r.steps) == 0 {
		return Step{}, false
	}
	return r.steps[0], true
}

// Next returns the step following currentID, or false if current is terminal
// or unknown
func (r *Resolver) Next(currentID string) (Step, bool) {
	idx, ok := r.byID[currentID]
	if !ok || idx+1 >= len(r.steps) {
		return Step{}, false
	}
	return r.steps[idx+1], true
}

// IsFinal reports whether the step's Order equals the maximal Order across
// the template, computed by scan. First match wins on (malformed) ties.
func (r *Resolver) IsFinal(stepID string) bool {
	step, ok := r.ByID(stepID)
	if !ok {
		return false
	}

	maxOrder := r.steps[0].Order
	for _, s := range r.steps {
		if s.Order > maxOrder {
			maxOrder = s.Order
		}
	}
	for _, s := range r.steps {
		if s.Order == maxOrder {
			return s.ID == step.ID
		}
	}
	return false
}

// RejectionTarget resolves where a rejection of the given step routes to:
//  1. the step's configured reject target, if set
//  2. otherwise the immediately preceding step
//  3. none if the step is first and has no configured target
func (r *Resolver) RejectionTarget(step Step) (Step, bool) {
	if step.RejectTargetStepID != nil && *step.RejectTargetStepID != "" {
		if target, ok := r.ByID(*step.RejectTargetStepID); ok {
			return target, true
		}
	}

	idx, ok := r.byID[step.ID]
	if !ok || idx == 0 {
		return Step{}, false
	}
	return r.steps[idx-1], true
}
