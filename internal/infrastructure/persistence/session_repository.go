package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/domain/models"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

// SessionRepository persists issued JWT sessions, keyed by jti
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert stores a new session
func (r *SessionRepository) Insert(ctx context.Context, s *models.Session) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s, ip_address, user_agent, %s, %s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableSession,
		constants.FieldID, constants.FieldUserID, constants.FieldToken, constants.FieldExpiresAt,
		constants.FieldIsRevoked, constants.FieldLastActivity)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.UserID, s.Token, s.ExpiresAt, s.IPAddress, s.UserAgent, s.IsRevoked, s.LastActivity)
	return err
}

// IsRevoked reports whether the session exists and has been revoked.
// sql.ErrNoRows is returned when the session is unknown.
func (r *SessionRepository) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	var revoked bool
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		constants.FieldIsRevoked, constants.TableSession, constants.FieldID)
	err := executor(ctx, r.db).QueryRowContext(ctx, query, sessionID).Scan(&revoked)
	return revoked, err
}

// Revoke marks a session revoked (logout)
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = true WHERE %s = ?",
		constants.TableSession, constants.FieldIsRevoked, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, sessionID)
	return err
}

// Touch updates the last activity timestamp
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		constants.TableSession, constants.FieldLastActivity, constants.FieldID)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, at, sessionID)
	return err
}

// DeleteExpired removes sessions whose expiry has passed
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s < ?",
		constants.TableSession, constants.FieldExpiresAt)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
