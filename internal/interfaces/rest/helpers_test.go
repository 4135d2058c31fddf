package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/interfaces/rest"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
)

func TestGetUserFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Present", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set(constants.ContextKeyUser, auth.UserSession{
			ID:             "user-1",
			Name:           "Test User",
			OrganizationID: "org-1",
			IsAdmin:        true,
		})

		user := rest.GetUserFromContext(c)
		assert.NotNil(t, user)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "org-1", user.OrganizationID)
		assert.True(t, user.IsAdmin)
	})

	t.Run("Absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		assert.Nil(t, rest.GetUserFromContext(c))
	})
}

func TestRespondAppErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "NotFound",
			err:        errors.NewNotFoundError("WorkOrder", "wo-1"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "Validation",
			err:        errors.NewValidationError("title", "Title is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "Conflict",
			err:        errors.NewConflictError("User", "email", "x@y.z"),
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name:       "Unauthorized",
			err:        errors.NewUnauthorizedError("Session has been revoked"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "Generic error is internal",
			err:        assertableErr("db disconnect"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/test", nil)

			rest.RespondAppError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

// Workflow domain errors must surface as structured API errors, not 500s.
func TestRespondAppErrorWorkflowMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "No next step",
			err:        workflow.ErrNoNextStep,
			wantStatus: http.StatusConflict,
			wantCode:   "NO_NEXT_STEP",
		},
		{
			name:       "No rejection target",
			err:        workflow.ErrNoRejectionTarget,
			wantStatus: http.StatusConflict,
			wantCode:   "NO_REJECTION_TARGET",
		},
		{
			name:       "Not final step",
			err:        workflow.ErrNotFinalStep,
			wantStatus: http.StatusConflict,
			wantCode:   "NOT_FINAL_STEP",
		},
		{
			name:       "Already complete",
			err:        workflow.ErrAlreadyComplete,
			wantStatus: http.StatusConflict,
			wantCode:   "ALREADY_COMPLETE",
		},
		{
			name: "Permission denied",
			err: &workflow.PermissionDeniedError{
				Action:        workflow.ActionApprove,
				StepName:      "Review",
				RequiredRoles: []string{"Supervisor"},
				HeldRoles:     []string{"Requester"},
			},
			wantStatus: http.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:       "Validation",
			err:        &workflow.ValidationError{Field: "comments", Message: "Comments are required when rejecting"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/api/work-orders/wo-1/transition", nil)

			rest.RespondAppError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

// A gate denial must carry the required-vs-held role gap to the client so
// the UI can explain it.
func TestRespondAppErrorPermissionRolePayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/work-orders/wo-1/transition", nil)

	rest.RespondAppError(c, &workflow.PermissionDeniedError{
		Action:        workflow.ActionApprove,
		StepName:      "Review",
		RequiredRoles: []string{"Supervisor", "Manager"},
		HeldRoles:     []string{"Requester"},
	})

	assert.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "PERMISSION_DENIED", body["code"])
	assert.Equal(t, []interface{}{"Supervisor", "Manager"}, body["required_roles"])
	assert.Equal(t, []interface{}{"Requester"}, body["held_roles"])
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }
