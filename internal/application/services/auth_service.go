package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/internal/infrastructure/persistence"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/errors"
)

// AuthService handles authentication, session management and password
// operations. Role membership is resolved once at login and embedded in the
// token as typed role ids.
type AuthService struct {
	users    *persistence.UserRepository
	sessions *persistence.SessionRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(users *persistence.UserRepository, sessions *persistence.SessionRepository) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Token     string
	User      auth.UserSession
	ExpiresAt time.Time
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	user, hash, err := s.users.FindByEmail(ctx, email)
	if err == sql.ErrNoRows {
		log.Printf("⚠️ Login failed for %s: user not found", email)
		return nil, errors.NewUnauthorizedError("Invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !user.IsActive {
		return nil, errors.NewUnauthorizedError("Account is deactivated")
	}
	if !auth.VerifyPassword(password, hash) {
		log.Printf("⚠️ Login failed for %s: invalid password", email)
		return nil, errors.NewUnauthorizedError("Invalid email or password")
	}

	roles, err := s.users.ResolveRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}
	roleIDs := make([]string, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}

	session := auth.UserSession{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		RoleIDs:        roleIDs,
		IsAdmin:        user.IsAdmin,
	}

	token, err := auth.GenerateToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	claims, _ := auth.DecodeToken(token)
	expiresAt := claims.ExpiresAt.Time
	now := time.Now().UTC()

	err = s.sessions.Insert(ctx, &models.Session{
		ID:           claims.RegisteredClaims.ID,
		UserID:       user.ID,
		Token:        token,
		ExpiresAt:    expiresAt,
		IPAddress:    ip,
		UserAgent:    userAgent,
		IsRevoked:    false,
		LastActivity: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	_ = s.users.TouchLastLogin(ctx, user.ID, now)
	log.Printf("🔓 User logged in: %s (%d roles)", email, len(roleIDs))

	return &LoginResult{Token: token, User: session, ExpiresAt: expiresAt}, nil
}

// ValidateSession checks the token's signature and the session's revocation
// state in the database
func (s *AuthService) ValidateSession(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := auth.ValidateToken(tokenString)
	if err != nil {
		return nil, errors.NewUnauthorizedError("Invalid or expired token")
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.RegisteredClaims.ID)
	if err == sql.ErrNoRows {
		return nil, errors.NewUnauthorizedError("Session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if revoked {
		return nil, errors.NewUnauthorizedError("Session has been revoked")
	}

	return claims, nil
}

// TouchSession updates the session's last activity timestamp.
// Fire and forget: activity timestamps are not critical.
func (s *AuthService) TouchSession(sessionID string) {
	go func() {
		_ = s.sessions.Touch(context.Background(), sessionID, time.Now().UTC())
	}()
}

// Logout revokes the session behind a token
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := auth.DecodeToken(tokenString)
	if err != nil {
		return errors.NewValidationError("token", "Invalid token")
	}

	if err := s.sessions.Revoke(ctx, claims.RegisteredClaims.ID); err != nil {
		return err
	}
	log.Printf("👋 User logged out (session %s)", claims.RegisteredClaims.ID)
	return nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *AuthService) ChangePassword(ctx context.Context, userID, email, currentPassword, newPassword string) error {
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	_, hash, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to retrieve user: %w", err)
	}
	if !auth.VerifyPassword(currentPassword, hash) {
		return errors.NewUnauthorizedError("Current password is incorrect")
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdateUser(ctx, userID, map[string]interface{}{"password_hash": newHash}); err != nil {
		return err
	}

	log.Printf("🔐 Password changed for user: %s", userID)
	return nil
}

// CleanupExpiredSessions deletes sessions past their expiry
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("⚠️ Session cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Removed %d expired sessions", n)
	}
}
