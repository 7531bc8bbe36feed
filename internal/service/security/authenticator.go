package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"warden/internal/domain"
)

// Authenticator turns login claims into users and session tokens.
//
// users is non-nil only when the database backend is active; registration and
// password changes are local-store operations and are rejected otherwise.
type Authenticator struct {
	backend   domain.IdentityBackend
	users     domain.UserRepository
	tokens    *TokenService
	passwords domain.PasswordRequirements
}

func NewAuthenticator(backend domain.IdentityBackend, users domain.UserRepository, tokens *TokenService, passwords domain.PasswordRequirements) *Authenticator {
	return &Authenticator{backend: backend, users: users, tokens: tokens, passwords: passwords}
}

// Login verifies a username/password pair and issues a session token. Bad
// credentials and unknown users produce the same UnauthorizedError so the
// response does not disclose which half was wrong.
func (a *Authenticator) Login(ctx context.Context, name, secret string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", domain.ErrUnauthorized("incorrect username or password")
	}
	if a.backend == nil {
		return nil, "", errors.New("no identity backend configured")
	}

	ok, err := a.backend.Authenticate(ctx, name, secret)
	if err != nil {
		return nil, "", fmt.Errorf("authenticate %q: %w", name, err)
	}
	if !ok {
		return nil, "", domain.ErrUnauthorized("incorrect username or password")
	}

	return a.issueFor(ctx, name)
}

// LoginCertificate authenticates by the CN of a verified client certificate.
// The TLS layer has already proven possession, so no secret is checked; the
// CN must still resolve to a known user.
func (a *Authenticator) LoginCertificate(ctx context.Context, cn string) (*domain.User, string, error) {
	cn = strings.TrimSpace(cn)
	if cn == "" {
		return nil, "", domain.ErrUnauthorized("no verified client certificate presented")
	}
	if a.backend == nil {
		return nil, "", errors.New("no identity backend configured")
	}
	return a.issueFor(ctx, cn)
}

func (a *Authenticator) issueFor(ctx context.Context, name string) (*domain.User, string, error) {
	user, err := a.backend.FindByName(ctx, name)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, "", domain.ErrUnauthorized("incorrect username or password")
		}
		return nil, "", err
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Register creates a local user after password policy checks.
func (a *Authenticator) Register(ctx context.Context, req domain.RegisterUserRequest) (*domain.User, error) {
	if a.users == nil {
		return nil, domain.ErrValidation("user registration is managed by the directory")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if failures := checkPasswordPolicy(req.Password, a.passwords); len(failures) > 0 {
		return nil, domain.ErrValidation("%s", strings.Join(failures, "; "))
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return a.users.Create(ctx, strings.TrimSpace(req.Name), hash)
}

// ChangePassword replaces the user's password and revokes their existing
// sessions. Authorization (self or admin) is the caller's responsibility.
func (a *Authenticator) ChangePassword(ctx context.Context, userID, password string) error {
	if a.users == nil {
		return domain.ErrValidation("passwords are managed by the directory")
	}
	if failures := checkPasswordPolicy(password, a.passwords); len(failures) > 0 {
		return domain.ErrValidation("%s", strings.Join(failures, "; "))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := a.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	return a.tokens.Revoke(ctx, userID)
}

// Logout advances the user's token validity floor. Calling it repeatedly, or
// with no active sessions, succeeds.
func (a *Authenticator) Logout(ctx context.Context, userID string) error {
	return a.tokens.Revoke(ctx, userID)
}

// checkPasswordPolicy returns every requirement the candidate fails, so the
// user can fix them all in one attempt.
func checkPasswordPolicy(password string, reqs domain.PasswordRequirements) []string {
	var failures []string
	if len(password) < reqs.MinLength {
		failures = append(failures, fmt.Sprintf("password must be at least %d characters", reqs.MinLength))
	}

	var upper, lower, number bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsNumber(r):
			number = true
		}
	}
	if reqs.RequireUppercase && !upper {
		failures = append(failures, "password must contain an uppercase letter")
	}
	if reqs.RequireLowercase && !lower {
		failures = append(failures, "password must contain a lowercase letter")
	}
	if reqs.RequireNumber && !number {
		failures = append(failures, "password must contain a number")
	}
	return failures
}
