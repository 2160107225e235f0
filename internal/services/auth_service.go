package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachLinkBack/internal/access"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/repository"
	"github.com/saeid-a/CoachLinkBack/pkg/utils"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email    string
	Password string
	Role     string
	FullName string
}

type AuthResult struct {
	Token     string       `json:"token"`
	SessionID string       `json:"session_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Identity is what an authenticated connection is allowed to act as.
type Identity struct {
	UserID    int64
	Role      models.Role
	SessionID uuid.UUID
}

type AuthService struct {
	db          TxBeginner
	userRepo    *repository.UserRepository
	sessionRepo *repository.AuthSessionRepository
	jwtSecret   string
	tokenTTL    time.Duration
	sessionTTL  time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewAuthService(
	db TxBeginner,
	userRepo *repository.UserRepository,
	sessionRepo *repository.AuthSessionRepository,
	jwtSecret string,
	tokenTTL time.Duration,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		db:          db,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		sessionTTL:  sessionTTL,
		logger:      loggerOrDefault(logger),
		now:         time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperror.BadRequest("Password must be at least 8 characters")
	}
	role, ok := access.ParseRole(input.Role)
	if !ok {
		return nil, apperror.BadRequest("Role must be CLIENT or TRAINER")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	}
	if name := strings.TrimSpace(input.FullName); name != "" {
		user.FullName = &name
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, internal("begin registration", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := repository.NewUserRepository(tx).CreateUser(ctx, user); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, apperror.Conflict("Email already exists")
		}
		return nil, internal("create user", err)
	}

	result, err := s.issue(ctx, repository.NewAuthSessionRepository(tx), user)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internal("commit registration", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (*AuthResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.Unauthorized("Invalid email or password")
		}
		return nil, internal("lookup user", err)
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	return s.issue(ctx, s.sessionRepo, user)
}

func (s *AuthService) Logout(ctx context.Context, userID int64, sessionID string) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return apperror.BadRequest("Invalid session id")
	}
	if err := s.sessionRepo.Revoke(ctx, id, userID); err != nil {
		return internal("revoke session", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found", "load user")
	}
	return user, nil
}

// Authenticate validates the token and the durable session it names. The
// supplied session id must match the token's sid claim.
func (s *AuthService) Authenticate(ctx context.Context, token string, sessionID string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.Unauthorized("Missing token")
	}
	claims, err := utils.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid or expired token")
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return nil, apperror.Unauthorized("Invalid token subject")
	}
	role, ok := access.ParseRole(claims.Role)
	if !ok {
		return nil, apperror.Unauthorized("Invalid token role")
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.Unauthorized("Missing session id")
	}
	if claims.SessionID != sessionID {
		return nil, apperror.Unauthorized("Session does not match token")
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid session id")
	}

	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.Unauthorized("Session not found")
		}
		return nil, internal("load session", err)
	}
	if session.UserID != userID {
		return nil, apperror.Unauthorized("Session does not belong to user")
	}
	if !session.Active(s.now()) {
		return nil, apperror.Unauthorized("Session expired or revoked")
	}

	return &Identity{UserID: userID, Role: role, SessionID: id}, nil
}

type sessionCreator interface {
	Create(ctx context.Context, userID int64, expiresAt time.Time) (*models.AuthSession, error)
}

func (s *AuthService) issue(ctx context.Context, sessions sessionCreator, user *models.User) (*AuthResult, error) {
	now := s.now()
	session, err := sessions.Create(ctx, user.ID, now.Add(s.sessionTTL))
	if err != nil {
		return nil, internal("create session", err)
	}

	tokenTTL := s.tokenTTL
	if tokenTTL <= 0 || tokenTTL > s.sessionTTL {
		tokenTTL = s.sessionTTL
	}

	token, err := utils.GenerateToken(
		strconv.FormatInt(user.ID, 10),
		string(user.Role),
		session.ID.String(),
		s.jwtSecret,
		tokenTTL,
	)
	if err != nil {
		return nil, internal("generate token", err)
	}

	return &AuthResult{
		Token:     token,
		SessionID: session.ID.String(),
		ExpiresAt: now.Add(tokenTTL),
		User:      user,
	}, nil
}

func normalizeEmail(value string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return "", apperror.BadRequest("Invalid email format")
	}
	return strings.ToLower(parsed.Address), nil
}
