package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/application/services"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
)

// UserHandler exposes user and role administration. All routes are
// admin-only.
type UserHandler struct {
	svcMgr *services.ServiceManager
}

func NewUserHandler(svcMgr *services.ServiceManager) *UserHandler {
	return &UserHandler{
		svcMgr: svcMgr,
	}
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "users", func() (interface{}, error) {
		return h.svcMgr.Users.ListUsers(c.Request.Context(), user.OrganizationID)
	})
}

// GetUser handles GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	HandleGetEnvelope(c, "user", func() (interface{}, error) {
		return h.svcMgr.Users.GetUser(c.Request.Context(), c.Param("id"))
	})
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	created, err := h.svcMgr.Users.CreateUser(c.Request.Context(), user.OrganizationID, req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": created})
}

// UpdateUserRequest carries the mutable user fields
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

// UpdateUser handles PUT /api/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	HandleUpdateEnvelope(c, "", "User updated successfully", &req, func() error {
		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Email != nil {
			updates["email"] = *req.Email
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}
		if req.IsAdmin != nil {
			updates["is_admin"] = *req.IsAdmin
		}
		return h.svcMgr.Users.UpdateUser(c.Request.Context(), c.Param("id"), updates)
	})
}

// DeleteUser handles DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	HandleDeleteEnvelope(c, "User deleted successfully", func() error {
		return h.svcMgr.Users.DeleteUser(c.Request.Context(), c.Param("id"))
	})
}

// SetRolesRequest replaces a user's role memberships
type SetRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// SetUserRoles handles PUT /api/users/:id/roles
func (h *UserHandler) SetUserRoles(c *gin.Context) {
	var req SetRolesRequest
	HandleUpdateEnvelope(c, "", "Roles updated successfully", &req, func() error {
		return h.svcMgr.Users.SetRoles(c.Request.Context(), c.Param("id"), req.RoleIDs)
	})
}

// ListRoles handles GET /api/roles
func (h *UserHandler) ListRoles(c *gin.Context) {
	user := GetUserFromContext(c)
	HandleGetEnvelope(c, "roles", func() (interface{}, error) {
		return h.svcMgr.Users.ListRoles(c.Request.Context(), user.OrganizationID)
	})
}

// CreateRoleRequest represents the create role body
type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateRole handles POST /api/roles
func (h *UserHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if !BindJSON(c, &req) {
		return
	}

	user := GetUserFromContext(c)
	role := &models.Role{
		Name:           req.Name,
		Description:    req.Description,
		OrganizationID: user.OrganizationID,
	}
	if err := h.svcMgr.Users.CreateRole(c.Request.Context(), role); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Role created successfully", "role": role})
}
