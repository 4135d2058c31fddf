package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

func approverAssignment() []workflow.RoleAssignment {
	return []workflow.RoleAssignment{
		{RoleID: "role-1", CanApprove: true, CanView: true},
	}
}

func existingSteps() []workflow.Step {
	return []workflow.Step{
		{ID: "step-1", Name: "Draft", Order: 1},
		{ID: "step-2", Name: "Review", Order: 2},
		{ID: "step-3", Name: "Approve", Order: 3},
	}
}

func TestBuildStep(t *testing.T) {
	svc := &TemplateService{}

	t.Run("Defaults", func(t *testing.T) {
		step, err := svc.buildStep("tpl-1", "org-1", "step-4", StepInput{
			Name:        "Final Review",
			Assignments: approverAssignment(),
		}, existingSteps())

		require.NoError(t, err)
		assert.Equal(t, 4, step.Order, "order defaults to next free slot")
		assert.Equal(t, workflow.ApprovalSingle, step.ApprovalType)
		assert.True(t, step.IsRequired)
		assert.Nil(t, step.RejectTargetStepID, "previous routing stays NULL")
	})

	t.Run("Name required", func(t *testing.T) {
		_, err := svc.buildStep("tpl-1", "org-1", "step-4", StepInput{}, nil)
		assert.Error(t, err)
	})

	t.Run("Duplicate order rejected", func(t *testing.T) {
		_, err := svc.buildStep("tpl-1", "org-1", "step-4", StepInput{
			Name:        "Clash",
			Order:       2,
			Assignments: approverAssignment(),
		}, existingSteps())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already taken")
	})

	t.Run("Updating a step keeps its own order", func(t *testing.T) {
		step, err := svc.buildStep("tpl-1", "org-1", "step-2", StepInput{
			Name:        "Review v2",
			Order:       2,
			Assignments: approverAssignment(),
		}, existingSteps())

		require.NoError(t, err)
		assert.Equal(t, 2, step.Order)
	})

	t.Run("Unknown approval type rejected", func(t *testing.T) {
		_, err := svc.buildStep("tpl-1", "org-1", "step-4", StepInput{
			Name:         "Odd",
			ApprovalType: "quorum-of-five",
		}, nil)

		assert.Error(t, err)
	})

	t.Run("Approval step without approver rejected", func(t *testing.T) {
		_, err := svc.buildStep("tpl-1", "org-1", "step-4", StepInput{
			Name:         "Review",
			ApprovalType: constants.ApprovalTypeSingle,
			Assignments: []workflow.RoleAssignment{
				{RoleID: "role-1", CanView: true},
			},
		}, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "can_approve")
	})

	t.Run("Auto step needs no approver", func(t *testing.T) {
		step, err := svc.buildStep("tpl-1", "org-1", "step-4", StepInput{
			Name:         "Notify",
			ApprovalType: constants.ApprovalTypeNone,
		}, existingSteps())

		require.NoError(t, err)
		assert.Equal(t, workflow.ApprovalNone, step.ApprovalType)
	})

	t.Run("Non-positive SLA rejected", func(t *testing.T) {
		zero := 0
		_, err := svc.buildStep("tpl-1", "org-1", "step-4", StepInput{
			Name:        "Review",
			SLAHours:    &zero,
			Assignments: approverAssignment(),
		}, nil)

		assert.Error(t, err)
	})
}

func TestResolveRejectTarget(t *testing.T) {
	steps := existingSteps()

	t.Run("First routes to lowest earlier step", func(t *testing.T) {
		target, err := resolveRejectTarget(StepInput{RejectRoute: constants.RejectRouteFirst}, 3, "step-3", steps)

		require.NoError(t, err)
		require.NotNil(t, target)
		assert.Equal(t, "step-1", *target)
	})

	t.Run("First on the first step fails", func(t *testing.T) {
		_, err := resolveRejectTarget(StepInput{RejectRoute: constants.RejectRouteFirst}, 1, "step-1", steps)
		assert.Error(t, err)
	})

	t.Run("Specific target must exist", func(t *testing.T) {
		missing := "step-99"
		_, err := resolveRejectTarget(StepInput{
			RejectRoute:        constants.RejectRouteSpecific,
			RejectTargetStepID: &missing,
		}, 3, "step-3", steps)

		assert.Error(t, err)
	})

	t.Run("Specific target must be earlier", func(t *testing.T) {
		later := "step-3"
		_, err := resolveRejectTarget(StepInput{
			RejectRoute:        constants.RejectRouteSpecific,
			RejectTargetStepID: &later,
		}, 2, "step-2", steps)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "earlier step")
	})

	t.Run("Valid specific target", func(t *testing.T) {
		first := "step-1"
		target, err := resolveRejectTarget(StepInput{
			RejectRoute:        constants.RejectRouteSpecific,
			RejectTargetStepID: &first,
		}, 3, "step-3", steps)

		require.NoError(t, err)
		assert.Equal(t, "step-1", *target)
	})

	t.Run("Unknown route rejected", func(t *testing.T) {
		_, err := resolveRejectTarget(StepInput{RejectRoute: "sideways"}, 2, "step-2", steps)
		assert.Error(t, err)
	})
}
