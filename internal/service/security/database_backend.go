package security

import (
	"context"
	"errors"

	"warden/internal/domain"
)

// DatabaseBackend is the identity backend over the local credential store.
type DatabaseBackend struct {
	users domain.UserRepository
}

func NewDatabaseBackend(users domain.UserRepository) *DatabaseBackend {
	return &DatabaseBackend{users: users}
}

// Authenticate verifies the password against the stored argon2id hash. An
// unknown user or wrong password is a clean (false, nil).
func (b *DatabaseBackend) Authenticate(ctx context.Context, name, secret string) (bool, error) {
	creds, err := b.users.GetCredentialsByName(ctx, name)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	if creds.PasswordHash == "" {
		// Certificate-provisioned accounts have no password to check.
		return false, nil
	}
	return VerifyPassword(creds.PasswordHash, secret), nil
}

func (b *DatabaseBackend) FindByName(ctx context.Context, name string) (*domain.User, error) {
	return b.users.GetByName(ctx, name)
}

func (b *DatabaseBackend) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return b.users.GetByID(ctx, id)
}

func (b *DatabaseBackend) DeleteUser(ctx context.Context, id string) error {
	return b.users.Delete(ctx, id)
}

func (b *DatabaseBackend) GroupsForUser(ctx context.Context, id string) ([]string, error) {
	u, err := b.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.ACGs, nil
}
