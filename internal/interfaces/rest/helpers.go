package rest

import (
	"encoding/json"
	stderrors "errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
)

// GetUserFromContext extracts the authenticated user from gin.Context
func GetUserFromContext(c *gin.Context) *auth.UserSession {
	userInterface, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil
	}
	user := userInterface.(auth.UserSession)
	return &user
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	err = mapWorkflowError(err)

	code := errors.GetHTTPStatus(err)
	errorCode := errors.GetErrorCode(err)
	message := err.Error()

	if code >= 500 {
		log.Printf("❌ ERROR [%d] %s %s: %s", code, c.Request.Method, c.Request.URL.Path, message)
	}

	body := gin.H{
		constants.ResponseError: message, // Legacy
		"message":               message, // Standard
		"code":                  errorCode,
		"data":                  nil,
	}

	var permErr *errors.PermissionError
	if stderrors.As(err, &permErr) && len(permErr.RequiredRoles) > 0 {
		body["required_roles"] = permErr.RequiredRoles
		body["held_roles"] = permErr.HeldRoles
	}

	c.JSON(code, body)
}

// mapWorkflowError translates workflow domain errors into the shared
// AppError taxonomy so handlers can pass them through untouched.
func mapWorkflowError(err error) error {
	switch {
	case stderrors.Is(err, workflow.ErrNoNextStep):
		return errors.NewTransitionError("NO_NEXT_STEP", err.Error())
	case stderrors.Is(err, workflow.ErrNoRejectionTarget):
		return errors.NewTransitionError("NO_REJECTION_TARGET", err.Error())
	case stderrors.Is(err, workflow.ErrNotFinalStep):
		return errors.NewTransitionError("NOT_FINAL_STEP", err.Error())
	case stderrors.Is(err, workflow.ErrAlreadyComplete):
		return errors.NewTransitionError("ALREADY_COMPLETE", err.Error())
	case stderrors.Is(err, workflow.ErrStepNotFound):
		return errors.NewTransitionError("STEP_NOT_FOUND", err.Error())
	}

	var permErr *workflow.PermissionDeniedError
	if stderrors.As(err, &permErr) {
		return &errors.PermissionError{
			Action:        string(permErr.Action),
			Resource:      "workflow step " + permErr.StepName,
			RequiredRoles: permErr.RequiredRoles,
			HeldRoles:     permErr.HeldRoles,
		}
	}

	var valErr *workflow.ValidationError
	if stderrors.As(err, &valErr) {
		return errors.NewValidationError(valErr.Field, valErr.Message)
	}

	return err
}

// RespondError sends a plain error response with an explicit status code
func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		constants.ResponseError: message,
		"message":               message,
		"data":                  nil,
	})
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// BindJSONStrict binds JSON and enforces strict field validation (no unknown fields).
func BindJSONStrict(c *gin.Context, obj interface{}) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleGetEnvelope executes a read action and returns the result wrapped in a JSON key
// Response: { [key]: result }
func HandleGetEnvelope(c *gin.Context, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}

// HandleCreateEnvelope executes a create action and returns the object wrapped + message
// Response: { constants.FieldMessage: successMsg, [key]: obj } (key omitted if empty)
func HandleCreateEnvelope(c *gin.Context, key string, successMsg string, obj interface{}, action func() error) {
	if !BindJSON(c, obj) {
		return
	}
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	response := gin.H{constants.FieldMessage: successMsg}
	if key != "" {
		response[key] = obj
	}
	c.JSON(http.StatusCreated, response)
}

// HandleUpdateEnvelope executes an update action and returns the object wrapped + message
// Response: { constants.FieldMessage: successMsg, [key]: obj } (key omitted if empty)
func HandleUpdateEnvelope(c *gin.Context, key string, successMsg string, obj interface{}, action func() error) {
	if !BindJSON(c, obj) {
		return
	}
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	response := gin.H{constants.FieldMessage: successMsg}
	if key != "" {
		response[key] = obj
	}
	c.JSON(http.StatusOK, response)
}

// HandleDeleteEnvelope executes a delete action and returns a success message
// Response: { constants.FieldMessage: successMsg }
func HandleDeleteEnvelope(c *gin.Context, successMsg string, action func() error) {
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.FieldMessage: successMsg})
}
