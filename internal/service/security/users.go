package security

import (
	"context"

	"warden/internal/domain"
)

// UserService manages operator accounts across whichever identity backend is
// configured. Group edits require the local store and are rejected for
// directory-backed deployments.
type UserService struct {
	backend  domain.IdentityBackend
	users    domain.UserRepository
	admins   domain.AdminRepository
	validity domain.TokenValidityRepository
}

func NewUserService(backend domain.IdentityBackend, users domain.UserRepository, admins domain.AdminRepository, validity domain.TokenValidityRepository) *UserService {
	return &UserService{backend: backend, users: users, admins: admins, validity: validity}
}

func (s *UserService) GetByName(ctx context.Context, name string) (*domain.User, error) {
	if name == "" {
		return nil, domain.ErrValidation("username is required")
	}
	return s.backend.FindByName(ctx, name)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.backend.FindByID(ctx, id)
}

// Delete removes the user from the backend together with their admin record
// and token validity floor, so a later account with a recycled ID does not
// inherit either.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrValidation("user id is required")
	}
	if err := s.backend.DeleteUser(ctx, id); err != nil {
		return err
	}
	if err := s.admins.Remove(ctx, id); err != nil {
		return err
	}
	return s.validity.Delete(ctx, id)
}

// SetGroups replaces the user's ACG memberships in the local store.
func (s *UserService) SetGroups(ctx context.Context, id string, acgs []string) error {
	if s.users == nil {
		return domain.ErrValidation("group membership is managed by the directory")
	}
	return s.users.SetACGs(ctx, id, acgs)
}

// SetAdmin grants or revokes the admin role. Both directions are idempotent.
func (s *UserService) SetAdmin(ctx context.Context, id string, admin bool) error {
	// The backend lookup doubles as an existence check.
	if _, err := s.backend.FindByID(ctx, id); err != nil {
		return err
	}
	if admin {
		return s.admins.Add(ctx, id)
	}
	return s.admins.Remove(ctx, id)
}
