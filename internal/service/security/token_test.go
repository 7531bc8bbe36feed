package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "warden/internal/db"
	"warden/internal/db/repository"
	"warden/internal/domain"
)

func setupTokenService(t *testing.T) *TokenService {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestStore(t)
	validity := repository.NewTokenValidityRepo(writeDB, readDB)
	return NewTokenService([]byte("test-secret"), time.Hour, validity)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := setupTokenService(t)

	token, err := svc.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// Leading and trailing whitespace around the token is tolerated.
	userID, err = svc.Validate(context.Background(), "  "+token+"\n")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenService_Validate_Malformed(t *testing.T) {
	svc := setupTokenService(t)

	for _, raw := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		_, err := svc.Validate(context.Background(), raw)
		require.Error(t, err, "raw=%q", raw)
		var denied *domain.AccessDeniedError
		assert.ErrorAs(t, err, &denied, "raw=%q", raw)
	}
}

func TestTokenService_Validate_WrongSecret(t *testing.T) {
	svc := setupTokenService(t)
	other := NewTokenService([]byte("other-secret"), time.Hour, failingValidity{})

	token, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), token)
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestTokenService_Validate_AlgorithmConfusion(t *testing.T) {
	svc := setupTokenService(t)

	// A token signed with "none" must be rejected even though it parses.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:  "user-1",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), unsigned)
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestTokenService_Validate_Expired(t *testing.T) {
	svc := setupTokenService(t)

	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue("user-1")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(context.Background(), token)
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestTokenService_RevokeInvalidatesEarlierTokens(t *testing.T) {
	svc := setupTokenService(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	svc.now = func() time.Time { return base }

	before, err := svc.Issue("user-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(time.Second) }
	require.NoError(t, svc.Revoke(ctx, "user-1"))

	_, err = svc.Validate(ctx, before)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	// A token issued after the revocation instant is good again.
	svc.now = func() time.Time { return base.Add(2 * time.Second) }
	after, err := svc.Issue("user-1")
	require.NoError(t, err)
	userID, err := svc.Validate(ctx, after)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenService_RevocationBoundaryIsStrict(t *testing.T) {
	svc := setupTokenService(t)
	ctx := context.Background()

	at := time.Now().Truncate(time.Second)
	svc.now = func() time.Time { return at }

	// Issued at exactly the revocation instant: rejected.
	token, err := svc.Issue("user-1")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "user-1"))

	_, err = svc.Validate(ctx, token)
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestTokenService_RevokeIsIdempotentAndMonotonic(t *testing.T) {
	svc := setupTokenService(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)

	svc.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, svc.Revoke(ctx, "user-1"))

	// An out-of-order revoke with an earlier clock never lowers the floor.
	svc.now = func() time.Time { return base }
	require.NoError(t, svc.Revoke(ctx, "user-1"))

	svc.now = func() time.Time { return base.Add(30 * time.Second) }
	token, err := svc.Issue("user-1")
	require.NoError(t, err)
	_, err = svc.Validate(ctx, token)
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

// failingValidity simulates a storage fault during the floor lookup.
type failingValidity struct{}

func (failingValidity) MinValidity(context.Context, string) (time.Time, error) {
	return time.Time{}, errors.New("store unavailable")
}
func (failingValidity) Advance(context.Context, string, time.Time) error {
	return errors.New("store unavailable")
}
func (failingValidity) Delete(context.Context, string) error {
	return errors.New("store unavailable")
}

func TestTokenService_StorageFaultIsNotADenial(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Hour, failingValidity{})

	token, err := svc.Issue("user-1")
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), token)
	require.Error(t, err)
	var denied *domain.AccessDeniedError
	assert.False(t, errors.As(err, &denied), "storage faults must not map to access denial")
}
