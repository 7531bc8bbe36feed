package security

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "warden/internal/db"
	"warden/internal/db/repository"
	"warden/internal/domain"
)

var testPasswordReqs = domain.PasswordRequirements{
	RequireUppercase: true,
	RequireLowercase: true,
	RequireNumber:    true,
	MinLength:        12,
}

const goodPassword = "CorrectHorse7Battery"

func setupAuthenticator(t *testing.T) (*Authenticator, *TokenService) {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestStore(t)
	users := repository.NewUserRepo(writeDB, readDB)
	validity := repository.NewTokenValidityRepo(writeDB, readDB)
	tokens := NewTokenService([]byte("test-secret"), time.Hour, validity)
	backend := NewDatabaseBackend(users)
	return NewAuthenticator(backend, users, tokens, testPasswordReqs), tokens
}

func register(t *testing.T, auth *Authenticator, name, password string) *domain.User {
	t.Helper()
	u, err := auth.Register(context.Background(), domain.RegisterUserRequest{
		Name:            name,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return u
}

func TestAuthenticator_RegisterAndLogin(t *testing.T) {
	auth, tokens := setupAuthenticator(t)
	ctx := context.Background()

	registered := register(t, auth, "alice", goodPassword)

	user, token, err := auth.Login(ctx, "alice", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	userID, err := tokens.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestAuthenticator_Login_TrimsClaim(t *testing.T) {
	auth, _ := setupAuthenticator(t)
	register(t, auth, "alice", goodPassword)

	user, _, err := auth.Login(context.Background(), "  alice  ", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
}

func TestAuthenticator_Login_Failures(t *testing.T) {
	auth, _ := setupAuthenticator(t)
	register(t, auth, "alice", goodPassword)

	tests := []struct {
		name     string
		claim    string
		password string
	}{
		{"wrong password", "alice", "WrongHorse7Battery"},
		{"unknown user", "mallory", goodPassword},
		{"empty claim", "", goodPassword},
		{"whitespace claim", "   ", goodPassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := auth.Login(context.Background(), tc.claim, tc.password)
			require.Error(t, err)
			var unauthorized *domain.UnauthorizedError
			assert.ErrorAs(t, err, &unauthorized)
			assert.Equal(t, "incorrect username or password", unauthorized.Message)
		})
	}
}

func TestAuthenticator_Register_Validation(t *testing.T) {
	auth, _ := setupAuthenticator(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.RegisterUserRequest
		want string
	}{
		{
			"missing name",
			domain.RegisterUserRequest{Password: goodPassword, ConfirmPassword: goodPassword},
			"username is required",
		},
		{
			"mismatched confirmation",
			domain.RegisterUserRequest{Name: "bob", Password: goodPassword, ConfirmPassword: goodPassword + "x"},
			"passwords do not match",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tc.req)
			require.Error(t, err)
			var validation *domain.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.want, validation.Message)
		})
	}
}

func TestAuthenticator_Register_PasswordPolicyListsAllFailures(t *testing.T) {
	auth, _ := setupAuthenticator(t)

	_, err := auth.Register(context.Background(), domain.RegisterUserRequest{
		Name:            "bob",
		Password:        "short",
		ConfirmPassword: "short",
	})
	require.Error(t, err)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Message, "at least 12 characters")
	assert.Contains(t, validation.Message, "uppercase letter")
	assert.Contains(t, validation.Message, "number")
	assert.NotContains(t, validation.Message, "lowercase")
}

func TestAuthenticator_Register_DuplicateName(t *testing.T) {
	auth, _ := setupAuthenticator(t)
	register(t, auth, "alice", goodPassword)

	_, err := auth.Register(context.Background(), domain.RegisterUserRequest{
		Name:            "alice",
		Password:        goodPassword,
		ConfirmPassword: goodPassword,
	})
	require.Error(t, err)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAuthenticator_LoginCertificate(t *testing.T) {
	auth, tokens := setupAuthenticator(t)
	ctx := context.Background()

	registered := register(t, auth, "cert-user", goodPassword)

	user, token, err := auth.LoginCertificate(ctx, "cert-user")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	userID, err := tokens.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// Unknown CN and empty CN both fail authentication.
	_, _, err = auth.LoginCertificate(ctx, "unknown-cn")
	var unauthorized *domain.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)

	_, _, err = auth.LoginCertificate(ctx, "")
	require.ErrorAs(t, err, &unauthorized)
}

func TestAuthenticator_LogoutRevokesSessions(t *testing.T) {
	auth, tokens := setupAuthenticator(t)
	ctx := context.Background()

	user := register(t, auth, "alice", goodPassword)

	tokens.now = func() time.Time { return time.Now().Add(-time.Minute) }
	_, token, err := auth.Login(ctx, "alice", goodPassword)
	require.NoError(t, err)

	tokens.now = time.Now
	require.NoError(t, auth.Logout(ctx, user.ID))
	// Logging out twice is fine.
	require.NoError(t, auth.Logout(ctx, user.ID))

	_, err = tokens.Validate(ctx, token)
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestAuthenticator_ChangePassword(t *testing.T) {
	auth, tokens := setupAuthenticator(t)
	ctx := context.Background()

	user := register(t, auth, "alice", goodPassword)

	tokens.now = func() time.Time { return time.Now().Add(-time.Minute) }
	_, oldToken, err := auth.Login(ctx, "alice", goodPassword)
	require.NoError(t, err)

	tokens.now = time.Now
	newPassword := "EvenBetter8Passphrase"
	require.NoError(t, auth.ChangePassword(ctx, user.ID, newPassword))

	// Old password and old sessions are both dead.
	_, _, err = auth.Login(ctx, "alice", goodPassword)
	var unauthorized *domain.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)

	_, err = tokens.Validate(ctx, oldToken)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	_, _, err = auth.Login(ctx, "alice", newPassword)
	require.NoError(t, err)
}

func TestAuthenticator_ChangePassword_PolicyApplies(t *testing.T) {
	auth, _ := setupAuthenticator(t)
	user := register(t, auth, "alice", goodPassword)

	err := auth.ChangePassword(context.Background(), user.ID, "weak")
	require.Error(t, err)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}
