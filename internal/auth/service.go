// Package auth registers and signs in storefront users and manages their token pairs.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const (
	minPasswordLength = 6
	minNameLength     = 2
	emailUniqueIndex  = "users_email_key"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, accessID, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, accessID string) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	users    userRepository
	sessions sessionManager
	jwt      config.JWTConfig
	argon    config.PasswordConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, errors.New("user repository is required")
	case params.SessionManager == nil:
		return nil, errors.New("session manager is required")
	}
	return &service{
		users:    params.UserRepo,
		sessions: params.SessionManager,
		jwt:      params.JWTConfig,
		argon:    params.PasswordConfig,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Every credential failure looks the same to the caller.
func badCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func badRefresh() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := users.NormalizeEmail(req.Email)
	if msg := signupProblem(name, email, req); msg != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msg)
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	hash, err := security.HashPassword(req.Password, s.argon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
		Phone:        req.Phone,
	})
	if db.IsUniqueViolation(err, emailUniqueIndex) {
		// lost a race with a concurrent signup
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return s.openSession(ctx, user)
}

func signupProblem(name, email string, req RegisterRequest) string {
	switch {
	case utf8.RuneCountInString(name) < minNameLength:
		return "name is too short"
	case email == "":
		return "email is required"
	case utf8.RuneCountInString(req.Password) < minPasswordLength:
		return "password is too short"
	case req.Password != req.ConfirmPassword:
		return "password confirmation does not match password"
	}
	return ""
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, badCredentials()
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, badCredentials()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive {
		return nil, badCredentials()
	}
	s.rehash(ctx, user, req.Password)

	at := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &at
	return s.openSession(ctx, user)
}

// rehash upgrades a hash made with older argon2 costs. Failures keep the old hash.
func (s *service) rehash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.argon) {
		return
	}
	if hash, err := security.HashPassword(password, s.argon); err == nil {
		if s.users.UpdatePasswordHash(ctx, user.ID, hash) == nil {
			user.PasswordHash = hash
		}
	}
}

func (s *service) Refresh(ctx context.Context, accessID, refreshToken string) (*TokenResponse, error) {
	rotation, err := s.sessions.Rotate(ctx, accessID, refreshToken)
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return nil, badRefresh()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, rotation.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, badRefresh()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		_ = s.sessions.Revoke(ctx, rotation.AccessID)
		return nil, badRefresh()
	}
	return s.pair(user, rotation.AccessID, rotation.RefreshToken)
}

// Logout ends the refresh session behind accessID. The access token itself lives until
// it expires, but the auth middleware rejects it once the session is gone.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) openSession(ctx context.Context, user *models.User) (*TokenResponse, error) {
	accessID := session.NewAccessID()
	refresh, err := s.sessions.Generate(ctx, user.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.pair(user, accessID, refresh)
}

func (s *service) pair(user *models.User, accessID, refresh string) (*TokenResponse, error) {
	access, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{AccessToken: access, RefreshToken: refresh, User: users.FromModel(user)}, nil
}
