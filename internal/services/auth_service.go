package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pokertracker/internal/auth"
	"pokertracker/internal/core"
	"pokertracker/internal/log"
	"pokertracker/internal/storage"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      core.User
}

// AuthService handles accounts and token issuance.
type AuthService struct {
	users      storage.UserStore
	tokens     *auth.TokenIssuer
	bcryptCost int
	now        func() time.Time
	logger     *log.Logger
}

func NewAuthService(users storage.UserStore, tokens *auth.TokenIssuer, bcryptCost int, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		now:        time.Now,
		logger:     logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account and signs the caller in. Emails are stored
// lowercase.
func (svc *AuthService) Register(ctx context.Context, in core.UserInput) (AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := in.Validate(); err != nil {
		return AuthResult{}, err
	}

	hash, err := auth.HashPassword(in.Password, svc.bcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := svc.users.CreateUser(ctx, core.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
	})
	if err != nil {
		return AuthResult{}, err
	}

	svc.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldOwnerID, user.ID)
	return svc.issue(user)
}

// Login verifies credentials. Unknown emails and wrong passwords both yield
// auth.ErrInvalidCredentials.
func (svc *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := svc.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return AuthResult{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		svc.logger.WarnContext(ctx, "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldOwnerID, user.ID)
		return AuthResult{}, err
	}
	return svc.issue(user)
}

// Authenticate resolves a bearer token to an identity whose user still exists.
func (svc *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	userID, err := svc.tokens.Parse(token)
	if err != nil {
		return auth.Identity{}, err
	}
	if _, err := svc.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return auth.Identity{}, fmt.Errorf("%w: unknown user", auth.ErrInvalidToken)
		}
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: userID, Token: token}, nil
}

// Me returns the caller's account.
func (svc *AuthService) Me(ctx context.Context, id auth.Identity) (core.User, error) {
	return svc.users.GetUserByID(ctx, id.UserID)
}

// IssueToken signs a fresh token for an existing user.
func (svc *AuthService) IssueToken(ctx context.Context, id auth.Identity) (AuthResult, error) {
	user, err := svc.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return AuthResult{}, err
	}
	return svc.issue(user)
}

// UpdateCookieConsent records the answer and when it was given.
func (svc *AuthService) UpdateCookieConsent(ctx context.Context, id auth.Identity, consent bool) (core.User, error) {
	user, err := svc.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return core.User{}, err
	}
	now := svc.now().UTC()
	user.CookieConsent = consent
	user.CookieConsentDate = &now
	return svc.users.UpdateUser(ctx, user)
}

func (svc *AuthService) ChangePassword(ctx context.Context, id auth.Identity, current, next string) error {
	user, err := svc.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, current); err != nil {
		return err
	}
	if err := core.ValidatePassword(next); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next, svc.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if _, err := svc.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	svc.logger.InfoContext(ctx, "Password changed", log.FieldOwnerID, user.ID)
	return nil
}

func (svc *AuthService) issue(user core.User) (AuthResult, error) {
	token, exp, err := svc.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
