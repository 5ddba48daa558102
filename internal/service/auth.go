package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	minPasswordLen = 8
	maxUsernameLen = 150
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Publisher     mykafka.Publisher
}

func (h *AuthService) accessTTL() time.Duration {
	if h.AccessTTL > 0 {
		return h.AccessTTL
	}
	return DefaultAccessTTL
}

func (h *AuthService) refreshTTL() time.Duration {
	if h.RefreshTTL > 0 {
		return h.RefreshTTL
	}
	return DefaultRefreshTTL
}

func (h *AuthService) CreateAccessToken(role, id string, accessExp time.Time) (string, error) {
	return tokens.SignAccess(h.JWTSecret, id, role, accessExp)
}

// CreateRefreshToken signs a refresh token and returns it with its JTI.
func (h *AuthService) CreateRefreshToken(id string, refreshExp time.Time) (string, string, error) {
	return tokens.SignRefresh(h.RefreshSecret, id, refreshExp)
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("username is required: %w", ErrValidation)
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return fmt.Errorf("username is longer than %d characters: %w", maxUsernameLen, ErrValidation)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("username may only contain letters, digits and @.+-_: %w", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("password must have at least %d characters: %w", minPasswordLen, ErrValidation)
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return fmt.Errorf("password cannot be entirely numeric: %w", ErrValidation)
	}
	return nil
}

func (h *AuthService) Register(ctx context.Context, req transport.RegisterRequest) error {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return err
	}
	if req.Password1 != req.Password2 {
		return fmt.Errorf("passwords do not match: %w", ErrValidation)
	}
	if err := validatePassword(req.Password1); err != nil {
		return err
	}

	pwHash, err := hash.HashPassword(req.Password1)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return err
	}
	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return fmt.Errorf("username %q is taken: %w", username, ErrConflict)
		}
		l.Error("register_error", "status", 500, "error", err)
		return err
	}

	publish(ctx, h.Publisher, user.ID.String(), mykafka.EventUserRegistered, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return nil
}

func (h *AuthService) issue(user *models.User) (*transport.LoginResult, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(h.accessTTL())
	accessToken, err := h.CreateAccessToken(user.Role, user.ID.String(), accessExp)
	if err != nil {
		return nil, nil, err
	}

	refreshExp := now.Add(h.refreshTTL())
	refreshToken, jti, err := h.CreateRefreshToken(user.ID.String(), refreshExp)
	if err != nil {
		return nil, nil, err
	}

	row := &models.RefreshToken{
		Token:     tokens.Sha256Hex(refreshToken),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &transport.LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		IsAdmin:      user.Role == models.RoleAdmin,
	}, row, nil
}

func (h *AuthService) Login(ctx context.Context, username, password string) (*transport.LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := h.Repo.UserExist(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			l.Warn("login failed", "status", 401, "reason", "invalid username or password")
			return nil, fmt.Errorf("invalid username or password: %w", ErrUnauthorized)
		}
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}

	res, row, err := h.issue(user)
	if err != nil {
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}
	if err := h.Repo.AddRefreshToken(ctx, row); err != nil {
		l.Error("login failed", "status", 500, "reason", "cannot store refresh token", "error", err)
		return nil, err
	}
	return res, nil
}

// Refresh rotates a refresh token. The presented token is revoked and can
// not be used again.
func (h *AuthService) Refresh(ctx context.Context, refreshToken string) (*transport.LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, h.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %v: %w", err, ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("refresh token subject: %w", ErrUnauthorized)
	}

	user, err := h.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("unknown user: %w", ErrUnauthorized)
		}
		return nil, err
	}

	res, row, err := h.issue(user)
	if err != nil {
		return nil, err
	}
	if err := h.Repo.RotateRefreshToken(ctx, claims.ID, row); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) || repo.IsNotFound(err) {
			l.Warn("refresh failed", "status", 401, "reason", "token expired or revoked")
			return nil, fmt.Errorf("refresh token expired or revoked: %w", ErrUnauthorized)
		}
		l.Error("refresh failed", "status", 500, "error", err)
		return nil, err
	}
	return res, nil
}

func (h *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := h.Repo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		logging.FromContext(ctx).Error("logout_error", "svc", "auth.logout", "error", err)
		return err
	}
	return nil
}

// ProvisionAdmin creates or promotes an admin account. It is only reachable
// from the command line.
func (h *AuthService) ProvisionAdmin(ctx context.Context, username, email, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return false, err
	}
	if password == "" {
		return false, fmt.Errorf("password is required: %w", ErrValidation)
	}
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return false, err
	}
	return h.Repo.UpsertAdmin(ctx, username, strings.TrimSpace(email), pwHash)
}
