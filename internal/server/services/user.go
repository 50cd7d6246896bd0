package services

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/dbx"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/auth"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
	// bcrypt ignores (newer x/crypto rejects) anything past 72 bytes.
	maxPasswordBytes = 72
)

// TokenPair is returned by Login and Refresh. ExpiresIn is the access token
// lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserService provides registration, login, token verification and
// refresh, logout, profile lookup and admin bootstrap.
type UserService struct {
	persistence
	tokens                       *auth.TokenManager
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		persistence: persistence{
			db:             db,
			repomanager:    m,
			acquireTimeout: cfg.DBAcquireTimeout,
			log:            log.With("module", "users"),
		},
		tokens:                       auth.NewTokenManager([]byte(cfg.SecretKey)),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

func validateCredentials(username, password string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return validationError("username must be %d to %d characters", minUsernameLen, maxUsernameLen)
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return validationError("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordBytes {
		return validationError("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

// Register creates a regular user. Only the bcrypt hash is stored.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, s.internal(ctx, "hash password", err)
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateUser
		}
		return nil, s.internal(ctx, "create user", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login checks the password and mints an access/refresh pair. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.BurnCheck(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "load user", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, user)
}

// VerifyToken validates an access token.
func (s *UserService) VerifyToken(token string) (*auth.Claims, error) {
	return s.tokens.Parse(token, auth.KindAccess)
}

// Refresh mints a new access token from a live refresh token. The refresh
// token itself is returned unchanged; its lifetime is not extended.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, s.internal(ctx, "find refresh token", err)
	}
	if stored.UserID != claims.UserID() {
		return nil, common.ErrInvalidToken
	}

	// role may have changed since the refresh token was issued
	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, s.internal(ctx, "load user", err)
	}

	access, _, err := s.tokens.Generate(user.ID, user.Role, auth.KindAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, s.internal(ctx, "sign access token", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTokenValidityDuration.Seconds()),
	}, nil
}

// Logout revokes a refresh token. An already expired token is accepted.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.KindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil
		}
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, claims.ID); err != nil {
		return s.internal(ctx, "revoke refresh token", err)
	}
	return nil
}

// Profile returns the caller's account.
func (s *UserService) Profile(ctx context.Context, caller Caller) (*models.User, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	u, err := s.repomanager.Users(s.db).GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, s.passThrough(ctx, "load profile", err)
	}
	return u, nil
}

// EnsureAdmin creates the administrator account if no user with that name
// exists. An existing account is left untouched, whatever its role. It
// reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if err := validateCredentials(username, password); err != nil {
		return false, err
	}

	created := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByUsername(ctx, username)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		_, err = repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash, Role: models.RoleAdmin})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil
		}
		if err == nil {
			created = true
		}
		return err
	})
	if err != nil {
		return false, s.internal(ctx, "ensure admin", err)
	}

	if created {
		s.log.Info(ctx, "admin account created", "username", username)
	}
	return created, nil
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, _, err := s.tokens.Generate(user.ID, user.Role, auth.KindAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, s.internal(ctx, "sign access token", err)
	}
	refresh, claims, err := s.tokens.Generate(user.ID, user.Role, auth.KindRefresh, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, s.internal(ctx, "sign refresh token", err)
	}

	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.DeleteExpired(ctx, user.ID); err != nil {
		s.log.Warn(ctx, "purge expired refresh tokens failed", "user_id", user.ID, "error", err)
	}
	if err := repo.Create(ctx, &models.RefreshToken{
		ID:      claims.ID,
		UserID:  user.ID,
		Expires: claims.ExpiresAt.Time,
	}); err != nil {
		return nil, s.internal(ctx, "store refresh token", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTokenValidityDuration.Seconds()),
	}, nil
}
