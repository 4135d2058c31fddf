package services

import (
	"context"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/utils"
)

// UserService handles account and role administration
type UserService struct {
	users     *persistence.UserRepository
	txManager *persistence.TransactionManager
}

// NewUserService creates a new UserService
func NewUserService(users *persistence.UserRepository, txManager *persistence.TransactionManager) *UserService {
	return &UserService{users: users, txManager: txManager}
}

// CreateUserRequest is the admin payload for creating an account
type CreateUserRequest struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required"`
	Password string   `json:"password" binding:"required"`
	IsAdmin  bool     `json:"is_admin"`
	RoleIDs  []string `json:"role_ids"`
}

// CreateUser creates an account and grants its initial roles
func (s *UserService) CreateUser(ctx context.Context, orgID string, req CreateUserRequest) (*models.User, error) {
	if !auth.IsValidEmail(req.Email) {
		return nil, errors.NewValidationError("email", "Invalid email address")
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.CheckUserExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewConflictError("user", "email", req.Email)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:             utils.GenerateID(),
		Name:           req.Name,
		Email:          req.Email,
		OrganizationID: orgID,
		IsActive:       true,
		IsAdmin:        req.IsAdmin,
		RoleIDs:        req.RoleIDs,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.users.Insert(txCtx, user, hash); err != nil {
			return err
		}
		for _, roleID := range req.RoleIDs {
			if err := s.users.GrantRole(txCtx, user.ID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("👤 Created user %s (%s)", user.Email, user.ID)
	return user, nil
}

// GetUser returns one account
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, errors.NewNotFoundError("user", id)
	}
	return user, nil
}

// ListUsers returns the organization's accounts
func (s *UserService) ListUsers(ctx context.Context, orgID string) ([]*models.User, error) {
	return s.users.FindAll(ctx, orgID)
}

// UpdateUser applies a partial update to an account
func (s *UserService) UpdateUser(ctx context.Context, id string, updates map[string]interface{}) error {
	if email, ok := updates["email"].(string); ok && !auth.IsValidEmail(email) {
		return errors.NewValidationError("email", "Invalid email address")
	}
	return s.users.UpdateUser(ctx, id, updates)
}

// DeleteUser removes an account
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.users.DeleteUser(ctx, id)
}

// SetRoles replaces an account's role grants
func (s *UserService) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	current, err := s.users.ResolveRoles(ctx, userID)
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		want[id] = true
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, r := range current {
			if !want[r.ID] {
				if err := s.users.RevokeRole(txCtx, userID, r.ID); err != nil {
					return err
				}
			}
			delete(want, r.ID)
		}
		for id := range want {
			if err := s.users.GrantRole(txCtx, userID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListRoles returns the organization's roles
func (s *UserService) ListRoles(ctx context.Context, orgID string) ([]*models.Role, error) {
	return s.users.ListRoles(ctx, orgID)
}

// CreateRole creates a role
func (s *UserService) CreateRole(ctx context.Context, role *models.Role) error {
	if role.Name == "" {
		return errors.NewValidationError("name", "Role name is required")
	}
	role.ID = utils.GenerateID()
	return s.users.InsertRole(ctx, role)
}
