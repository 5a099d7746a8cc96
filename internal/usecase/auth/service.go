package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "backoffice/boilerplate/internal/domain/auth"
	"backoffice/boilerplate/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const resetSubject = "Password Reset Verification Code"

// Config holds the session and credential policy.
type Config struct {
	SessionTTL            time.Duration
	CodeTTL               time.Duration
	BcryptCost            int
	RevokeSessionsOnReset bool
}

// Repositories groups the stores the service orchestrates.
type Repositories struct {
	Users    domain.UserRepository
	Sessions domain.SessionRepository
	Codes    domain.VerificationRepository
}

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	codes    domain.VerificationRepository
	tokens   TokenManager
	mailer   Mailer
	validate *validation.Validator
	log      *zap.Logger
	cfg      Config
	nowFunc  func() time.Time
	codeFunc func() (string, error)
}

// NewService constructs an auth service.
func NewService(repos Repositories, tokens TokenManager, mailer Mailer, cfg Config, logger *zap.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:    repos.Users,
		sessions: repos.Sessions,
		codes:    repos.Codes,
		tokens:   tokens,
		mailer:   mailer,
		validate: validation.New(),
		log:      logger.Named("auth"),
		cfg:      cfg,
		nowFunc:  time.Now,
		codeFunc: generateCode,
	}
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name                 string `json:"name" validate:"required,max=120"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User         domain.Summary `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// ResetEmailInput requests a reset code.
type ResetEmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput completes a reset with a code.
type ResetPasswordInput struct {
	Code                 string `json:"code" validate:"required,len=6,numeric"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// ChangePasswordInput changes the password of an authenticated user.
type ChangePasswordInput struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type refreshInput struct {
	Token string `json:"token" validate:"required"`
}

// Register creates a new user and returns the persisted entity without a password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		s.log.Info("user already exists with this email address", zap.String("email", in.Email))
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:            uuid.NewString(),
		Email:         in.Email,
		Name:          in.Name,
		Role:          domain.RoleUser,
		Status:        domain.StatusOffline,
		AccountStatus: domain.AccountActive,
		PasswordHash:  string(hashed),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return sanitizeUser(user), nil
}

// Login validates credentials, opens a session and returns the token pair.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn("login for unknown email", zap.String("email", in.Email))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.log.Warn("login with wrong password", zap.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}

	claims := claimsFor(user)
	accessToken, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.nowFunc().UTC()
	session := &domain.Session{
		UserID:                user.ID,
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.sessions.Upsert(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID))
	return &LoginResult{
		User:         user.Summary(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshToken mints a new access token for the session owning token.
// The refresh token itself is not rotated.
func (s *Service) RefreshToken(ctx context.Context, token string) (string, error) {
	in := refreshInput{Token: strings.TrimSpace(token)}
	if err := s.validate.Struct(in); err != nil {
		return "", err
	}

	claims, err := s.tokens.Verify(in.Token)
	if err != nil {
		s.log.Info("invalid or expired refresh token", zap.Error(err))
		return "", domain.ErrTokenInvalid
	}

	user, err := s.tokenOwner(ctx, claims)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrTokenInvalid
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	session, err := s.sessions.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", domain.ErrInvalidSession
		}
		return "", fmt.Errorf("lookup session: %w", err)
	}
	if !tokensEqual(session.RefreshToken, in.Token) {
		s.log.Info("refresh token does not match the active session", zap.String("user_id", user.ID))
		return "", domain.ErrInvalidSession
	}

	now := s.nowFunc().UTC()
	if session.Expired(now) {
		s.log.Info("refresh token expired", zap.String("user_id", user.ID))
		return "", domain.ErrSessionExpired
	}

	accessToken, err := s.tokens.IssueAccessToken(claimsFor(user))
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	if err := s.sessions.UpdateAccessToken(ctx, user.ID, accessToken, now); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", domain.ErrInvalidSession
		}
		return "", fmt.Errorf("update session: %w", err)
	}

	s.log.Info("new access token generated", zap.String("user_id", user.ID))
	return accessToken, nil
}

// Authenticate resolves a bearer access token to its user. The token must be
// the access token of the user's active session.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, domain.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.Claims{}, domain.ErrTokenInvalid
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Claims{}, domain.ErrUnauthorized
		}
		return nil, domain.Claims{}, fmt.Errorf("lookup user: %w", err)
	}

	session, err := s.sessions.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.Claims{}, domain.ErrUnauthorized
		}
		return nil, domain.Claims{}, fmt.Errorf("lookup session: %w", err)
	}
	if !tokensEqual(session.AccessToken, token) {
		return nil, domain.Claims{}, domain.ErrUnauthorized
	}

	return sanitizeUser(user), claims, nil
}

// Logout deletes the session of the user identified by claims.
func (s *Service) Logout(ctx context.Context, claims domain.Claims) error {
	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if _, err := s.sessions.GetByUserID(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Info("no active session found", zap.String("user_id", user.ID))
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	if err := s.sessions.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("delete session: %w", err)
	}

	s.log.Info("user logged out", zap.String("user_id", user.ID))
	return nil
}

// Me returns the current user behind claims.
func (s *Service) Me(ctx context.Context, claims domain.Claims) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

// ResetPasswordRequest stores a fresh verification code and emails it.
func (s *Service) ResetPasswordRequest(ctx context.Context, in ResetEmailInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Info("reset requested for unknown email", zap.String("email", in.Email))
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	code, err := s.codeFunc()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := s.nowFunc().UTC()
	verification := &domain.VerificationCode{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
		CreatedAt: now,
	}
	if err := s.codes.Create(ctx, verification); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	html, err := renderResetEmail(code, s.cfg.CodeTTL)
	if err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}
	if err := s.mailer.Send(ctx, user.Email, resetSubject, html); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.log.Info("verification code sent to email", zap.String("user_id", user.ID))
	return nil
}

// ResetPassword replaces the password of the user owning a valid code.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	in.Email = normalizeEmail(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if err := s.validate.Struct(in); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	verification, err := s.codes.Find(ctx, user.ID, in.Code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			s.log.Info("unknown verification code", zap.String("user_id", user.ID))
			return domain.ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("lookup verification code: %w", err)
	}
	now := s.nowFunc().UTC()
	if verification.Expired(now) {
		s.log.Info("expired verification code", zap.String("user_id", user.ID))
		return domain.ErrInvalidOrExpiredCode
	}

	if err := s.setPassword(ctx, user, in.Password, now); err != nil {
		return err
	}

	if err := s.codes.DeleteByUser(ctx, user.ID); err != nil {
		s.log.Warn("failed to consume verification codes", zap.String("user_id", user.ID), zap.Error(err))
	}
	if s.cfg.RevokeSessionsOnReset {
		if err := s.sessions.Delete(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	s.log.Info("password reset successful", zap.String("user_id", user.ID))
	return nil
}

// ChangePassword updates the password of the authenticated user.
func (s *Service) ChangePassword(ctx context.Context, claims domain.Claims, in ChangePasswordInput) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return domain.ErrPasswordMismatch
	}

	return s.setPassword(ctx, user, in.Password, s.nowFunc().UTC())
}

func (s *Service) setPassword(ctx context.Context, user *domain.User, password string, now time.Time) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
		return domain.ErrPasswordUnchanged
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hashed), now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// tokenOwner resolves the user a token was issued to. Tokens carrying a
// subject are looked up by id and must still match the user's email.
func (s *Service) tokenOwner(ctx context.Context, claims domain.Claims) (*domain.User, error) {
	if claims.Subject == "" {
		return s.users.GetByEmail(ctx, claims.Email)
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user.Email != claims.Email {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func claimsFor(u *domain.User) domain.Claims {
	return domain.Claims{
		Subject: u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Role:    u.Role,
	}
}

func tokensEqual(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}
