package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
)

func TestSecurityValidator_ValidateAndRewrite(t *testing.T) {
	session := auth.UserSession{
		ID:             "user-123",
		OrganizationID: "org-456",
		IsAdmin:        true,
	}

	validator := services.NewSecurityValidator()

	t.Run("Injects organization scope", func(t *testing.T) {
		sql := "SELECT id, title FROM work_orders WHERE status = 'open'"
		rewritten, err := validator.ValidateAndRewrite(sql, session)

		assert.NoError(t, err)
		// The AST restoration backticks identifiers
		assert.Contains(t, rewritten, "organization_id")
		assert.Contains(t, rewritten, "org-456")
		assert.Contains(t, rewritten, "open")
	})

	t.Run("Injects scope with no existing WHERE", func(t *testing.T) {
		rewritten, err := validator.ValidateAndRewrite("SELECT COUNT(*) FROM incidents", session)

		assert.NoError(t, err)
		assert.Contains(t, rewritten, "organization_id")
		assert.Contains(t, rewritten, "org-456")
	})

	t.Run("Blocks credential tables", func(t *testing.T) {
		_, err := validator.ValidateAndRewrite("SELECT email FROM users", session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "users")
	})

	t.Run("Blocks session table", func(t *testing.T) {
		_, err := validator.ValidateAndRewrite("SELECT id FROM user_sessions", session)

		assert.Error(t, err)
	})

	t.Run("Blocks non-SELECT statements", func(t *testing.T) {
		_, err := validator.ValidateAndRewrite("DELETE FROM work_orders", session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Only SELECT statements")
	})

	t.Run("Blocks multiple statements", func(t *testing.T) {
		_, err := validator.ValidateAndRewrite("SELECT id FROM assets; SELECT id FROM parts", session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "single SQL statement")
	})

	t.Run("Blocks joined queries", func(t *testing.T) {
		sql := "SELECT wo.id FROM work_orders wo JOIN assets a ON wo.asset_id = a.id"
		_, err := validator.ValidateAndRewrite(sql, session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Joined queries")
	})

	t.Run("Blocks comma joins", func(t *testing.T) {
		sql := "SELECT wo.id FROM work_orders wo, assets a WHERE wo.asset_id = a.id"
		_, err := validator.ValidateAndRewrite(sql, session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Joined queries")
	})

	t.Run("Blocks sneaky table in subquery", func(t *testing.T) {
		sql := "SELECT id FROM work_orders WHERE created_by_user_id IN (SELECT id FROM users)"
		_, err := validator.ValidateAndRewrite(sql, session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "users")
	})

	t.Run("Rejects unparseable SQL", func(t *testing.T) {
		_, err := validator.ValidateAndRewrite("SELEKT banana", session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "parse error")
	})

	t.Run("Aggregates over allowed tables pass", func(t *testing.T) {
		sql := "SELECT status, COUNT(*) AS total FROM work_orders GROUP BY status ORDER BY total DESC"
		rewritten, err := validator.ValidateAndRewrite(sql, session)

		assert.NoError(t, err)
		assert.Contains(t, rewritten, "GROUP BY")
		assert.Contains(t, rewritten, "organization_id")
	})
}
