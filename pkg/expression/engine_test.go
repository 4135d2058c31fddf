package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateCondition(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name       string
		expression string
		env        map[string]interface{}
		expected   bool
		shouldErr  bool
	}{
		{"meter threshold met", "runtime_hours >= 500", map[string]interface{}{"runtime_hours": 612.5}, true, false},
		{"meter threshold not met", "runtime_hours >= 500", map[string]interface{}{"runtime_hours": 120.0}, false, false},
		{"compound condition", "runtime_hours >= 500 || cycle_count > 10000", map[string]interface{}{"runtime_hours": 10.0, "cycle_count": 20000}, true, false},
		{"missing variable is nil", "pressure > 100", map[string]interface{}{}, false, true},
		{"non-boolean result", "runtime_hours + 1", map[string]interface{}{"runtime_hours": 1.0}, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := engine.EvaluateCondition(tc.expression, tc.env)
			if tc.shouldErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestEvaluateCachesPrograms(t *testing.T) {
	engine := NewEngine()

	env := map[string]interface{}{"runtime_hours": 750.0}
	for i := 0; i < 3; i++ {
		ok, err := engine.EvaluateCondition("runtime_hours >= 500", env)
		assert.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Len(t, engine.programCache, 1)
}

func TestValidate(t *testing.T) {
	engine := NewEngine()

	assert.NoError(t, engine.Validate("runtime_hours >= 500"))
	assert.Error(t, engine.Validate("runtime_hours >="))
}
