package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/workflow"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// UserRepository persists user accounts, roles and role grants
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CheckUserExistsByEmail reports whether a user with the email exists
func (r *UserRepository) CheckUserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableUser, constants.FieldEmail)
	err := executor(ctx, r.db).QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// FindByEmail returns a user and their password hash for login
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, string, error) {
	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = ? LIMIT 1",
		constants.FieldID, constants.FieldName, constants.FieldEmail, constants.FieldPassword,
		constants.FieldOrganizationID, constants.FieldIsActive, constants.FieldIsAdmin,
		constants.TableUser, constants.FieldEmail)

	var u models.User
	var passwordHash sql.NullString
	err := executor(ctx, r.db).QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Name, &u.Email, &passwordHash, &u.OrganizationID, &u.IsActive, &u.IsAdmin)
	if err != nil {
		return nil, "", err
	}
	return &u, passwordHash.String, nil
}

// FindByID returns a user by id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = ? LIMIT 1",
		constants.FieldID, constants.FieldName, constants.FieldEmail, constants.FieldOrganizationID,
		constants.FieldIsActive, constants.FieldIsAdmin, constants.FieldCreatedAt,
		constants.TableUser, constants.FieldID)

	var u models.User
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.OrganizationID, &u.IsActive, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindAll retrieves the organization's users
func (r *UserRepository) FindAll(ctx context.Context, orgID string) ([]*models.User, error) {
	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = ? ORDER BY %s DESC",
		constants.FieldID, constants.FieldName, constants.FieldEmail, constants.FieldOrganizationID,
		constants.FieldIsActive, constants.FieldIsAdmin, constants.FieldCreatedAt,
		constants.TableUser, constants.FieldOrganizationID, constants.FieldCreatedAt)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.OrganizationID, &u.IsActive, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Insert creates a user
func (r *UserRepository) Insert(ctx context.Context, u *models.User, passwordHash string) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableUser,
		constants.FieldID, constants.FieldName, constants.FieldEmail, constants.FieldPassword,
		constants.FieldOrganizationID, constants.FieldIsActive, constants.FieldIsAdmin, constants.FieldCreatedAt)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		u.ID, u.Name, u.Email, passwordHash, u.OrganizationID, u.IsActive, u.IsAdmin, u.CreatedAt)
	return err
}

// UpdateUser updates a user record
func (r *UserRepository) UpdateUser(ctx context.Context, userID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := ""
	args := []interface{}{}
	for k, v := range updates {
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += fmt.Sprintf("%s = ?", k)
		args = append(args, v)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", constants.TableUser, setClauses, constants.FieldID)
	args = append(args, userID)

	_, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

// DeleteUser deletes a user record
func (r *UserRepository) DeleteUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableUser, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, userID)
	return err
}

// TouchLastLogin records a successful login time
func (r *UserRepository) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET last_login_at = ? WHERE %s = ?", constants.TableUser, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, at, userID)
	return err
}

// ResolveRoles returns the typed roles granted to the user. Resolved once
// at login and carried in the session so workflow gates never re-match role
// names per request.
func (r *UserRepository) ResolveRoles(ctx context.Context, userID string) ([]workflow.Role, error) {
	query := fmt.Sprintf(
		"SELECT r.%s, r.%s FROM %s r JOIN %s ur ON ur.%s = r.%s WHERE ur.%s = ?",
		constants.FieldID, constants.FieldName,
		constants.TableRole, constants.TableUserRole,
		constants.FieldRoleID, constants.FieldID, constants.FieldUserID)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]workflow.Role, 0)
	for rows.Next() {
		var role workflow.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// RolesByIDs returns the typed roles for a set of role ids (session rebuild)
func (r *UserRepository) RolesByIDs(ctx context.Context, ids []string) ([]workflow.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := ""
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, id)
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s)",
		constants.FieldID, constants.FieldName, constants.TableRole, constants.FieldID, placeholders)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]workflow.Role, 0, len(ids))
	for rows.Next() {
		var role workflow.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListRoles returns the organization's roles
func (r *UserRepository) ListRoles(ctx context.Context, orgID string) ([]*models.Role, error) {
	query := fmt.Sprintf("SELECT %s, %s, description, %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		constants.FieldID, constants.FieldName, constants.FieldOrganizationID,
		constants.TableRole, constants.FieldOrganizationID, constants.FieldName)

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]*models.Role, 0)
	for rows.Next() {
		var role models.Role
		var desc sql.NullString
		if err := rows.Scan(&role.ID, &role.Name, &desc, &role.OrganizationID); err != nil {
			return nil, err
		}
		role.Description = desc.String
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

// InsertRole creates a role
func (r *UserRepository) InsertRole(ctx context.Context, role *models.Role) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s, description, %s) VALUES (?, ?, ?, ?)",
		constants.TableRole, constants.FieldID, constants.FieldName, constants.FieldOrganizationID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, role.ID, role.Name, role.Description, role.OrganizationID)
	return err
}

// GrantRole assigns a role to a user
func (r *UserRepository) GrantRole(ctx context.Context, userID, roleID string) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
		constants.TableUserRole, constants.FieldUserID, constants.FieldRoleID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, userID, roleID)
	return err
}

// RevokeRole removes a role from a user
func (r *UserRepository) RevokeRole(ctx context.Context, userID, roleID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TableUserRole, constants.FieldUserID, constants.FieldRoleID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, userID, roleID)
	return err
}
