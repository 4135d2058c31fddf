package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for transitions that are structurally impossible in the
// current state. The REST layer maps these to disabled-action responses.
var (
	// ErrNoNextStep is returned when approve/auto-advance is requested on the terminal step
	ErrNoNextStep = errors.New("no next step: current step is terminal")
	// ErrNoRejectionTarget is returned when reject is requested on the first step with no override
	ErrNoRejectionTarget = errors.New("no rejection target: current step is first and has no configured target")
	// ErrNotFinalStep is returned when complete is requested before the terminal step
	ErrNotFinalStep = errors.New("cannot complete: current step is not the final step")
	// ErrAlreadyComplete is returned when a transition is requested for a work
	// order with no workflow state row
	ErrAlreadyComplete = errors.New("workflow already complete")
	// ErrStepNotFound is returned when the current step id is not in the template
	ErrStepNotFound = errors.New("current step not found in template")
)

// PermissionDeniedError reports the gap between required and held roles so
// the UI can render an explanation instead of a bare denial.
type PermissionDeniedError struct {
	Action        Action
	StepName      string
	RequiredRoles []string
	HeldRoles     []string
}

func (e *PermissionDeniedError) Error() string {
	held := "none"
	if len(e.HeldRoles) > 0 {
		held = strings.Join(e.HeldRoles, ", ")
	}
	return fmt.Sprintf("permission denied: %s on step %q requires one of [%s], user holds [%s]",
		e.Action, e.StepName, strings.Join(e.RequiredRoles, ", "), held)
}

// ValidationError reports a missing required input on a transition command
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transition: %s: %s", e.Field, e.Message)
}
