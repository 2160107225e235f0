package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

type AuthSessionRepository struct {
	db DBTX
}

func NewAuthSessionRepository(db DBTX) *AuthSessionRepository {
	return &AuthSessionRepository{db: db}
}

func (r *AuthSessionRepository) Create(
	ctx context.Context,
	userID int64,
	expiresAt time.Time,
) (*models.AuthSession, error) {
	query := `
		INSERT INTO auth_sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, created_at, expires_at, revoked_at
	`
	var session models.AuthSession
	err := r.db.QueryRow(ctx, query, uuid.New(), userID, expiresAt.UTC()).Scan(
		&session.ID,
		&session.UserID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *AuthSessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.AuthSession, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, revoked_at
		FROM auth_sessions
		WHERE id = $1
	`
	var session models.AuthSession
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Revoke marks the session revoked. Revoking an already revoked or foreign
// session is a no-op.
func (r *AuthSessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE auth_sessions
		SET revoked_at = NOW()
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
	`, sessionID, userID)
	return err
}
