package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	t.Run("Daily at midnight", func(t *testing.T) {
		next, err := nextCronTime("0 0 * * *", after)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("Every Monday morning", func(t *testing.T) {
		next, err := nextCronTime("0 8 * * 1", after)
		require.NoError(t, err)
		// 2026-03-10 is a Tuesday
		assert.Equal(t, time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC), next)
		assert.Equal(t, time.Monday, next.Weekday())
	})

	t.Run("First of the month", func(t *testing.T) {
		next, err := nextCronTime("0 6 1 * *", after)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC), next)
	})

	t.Run("Five-field format only", func(t *testing.T) {
		// Six fields (with seconds) are not accepted
		_, err := nextCronTime("0 0 0 * * *", after)
		assert.Error(t, err)
	})

	t.Run("Garbage rejected", func(t *testing.T) {
		_, err := nextCronTime("whenever", after)
		assert.Error(t, err)
	})
}
