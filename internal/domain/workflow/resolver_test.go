package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func fourSteps() []Step {
	return []Step{
		{ID: "s1", TemplateID: "t1", Name: "Draft", Order: 1},
		{ID: "s2", TemplateID: "t1", Name: "Review", Order: 2},
		{ID: "s3", TemplateID: "t1", Name: "Approve", Order: 3},
		{ID: "s4", TemplateID: "t1", Name: "Close", Order: 4},
	}
}

func TestResolver_NextAndFinal(t *testing.T) {
	r := NewResolver(fourSteps())

	next, ok := r.Next("s1")
	assert.True(t, ok)
	assert.Equal(t, "s2", next.ID)

	next, ok = r.Next("s3")
	assert.True(t, ok)
	assert.Equal(t, "s4", next.ID)

	_, ok = r.Next("s4")
	assert.False(t, ok, "terminal step has no next")

	assert.False(t, r.IsFinal("s1"))
	assert.True(t, r.IsFinal("s4"))
	assert.False(t, r.IsFinal("unknown"))
}

func TestResolver_UnsortedInput(t *testing.T) {
	steps := fourSteps()
	// Shuffle: resolver must sort by step order, not trust input order
	steps[0], steps[3] = steps[3], steps[0]
	r := NewResolver(steps)

	first, ok := r.First()
	assert.True(t, ok)
	assert.Equal(t, "s1", first.ID)

	next, ok := r.Next("s2")
	assert.True(t, ok)
	assert.Equal(t, "s3", next.ID)
}

func TestResolver_DuplicateMaxOrder(t *testing.T) {
	// Malformed template: two steps share the maximal order. Must not crash;
	// the first match wins.
	steps := []Step{
		{ID: "a", Order: 1},
		{ID: "b", Order: 2},
		{ID: "c", Order: 2},
	}
	r := NewResolver(steps)

	assert.True(t, r.IsFinal("b"))
	assert.False(t, r.IsFinal("c"))
}

func TestResolver_RejectionTarget(t *testing.T) {
	steps := fourSteps()
	r := NewResolver(steps)

	// Default: immediately preceding step
	s3, _ := r.ByID("s3")
	target, ok := r.RejectionTarget(s3)
	assert.True(t, ok)
	assert.Equal(t, "s2", target.ID)

	// Explicit target wins over the default
	s3.RejectTargetStepID = strPtr("s1")
	target, ok = r.RejectionTarget(s3)
	assert.True(t, ok)
	assert.Equal(t, "s1", target.ID)

	// First step with no override has no target
	s1, _ := r.ByID("s1")
	_, ok = r.RejectionTarget(s1)
	assert.False(t, ok)
}

func TestResolver_RejectionTargetDanglingOverride(t *testing.T) {
	r := NewResolver(fourSteps())

	// A target pointing outside the template falls back to the previous step
	s2, _ := r.ByID("s2")
	s2.RejectTargetStepID = strPtr("missing")
	target, ok := r.RejectionTarget(s2)
	assert.True(t, ok)
	assert.Equal(t, "s1", target.ID)
}

func TestResolver_Empty(t *testing.T) {
	r := NewResolver(nil)

	_, ok := r.First()
	assert.False(t, ok)
	_, ok = r.Next("anything")
	assert.False(t, ok)
	assert.False(t, r.IsFinal("anything"))
}
