package security

import (
	"context"
	"errors"

	"warden/internal/domain"
)

// GroupService manages access-control groups.
type GroupService struct {
	repo domain.GroupRepository
}

func NewGroupService(repo domain.GroupRepository) *GroupService {
	return &GroupService{repo: repo}
}

// Create validates and persists a new group. The name is stored exactly as
// given; duplicates surface as a ConflictError from the store.
func (s *GroupService) Create(ctx context.Context, req domain.CreateGroupRequest) (*domain.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &domain.Group{Name: req.Name})
}

func (s *GroupService) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *GroupService) List(ctx context.Context) ([]domain.Group, error) {
	return s.repo.List(ctx)
}

// Delete removes a group and returns the removed entity. Deleting a group
// that does not exist is a no-op returning (nil, nil). References to the
// deleted ID on users and implants are left dangling; they simply stop
// matching.
func (s *GroupService) Delete(ctx context.Context, id string) (*domain.Group, error) {
	if id == "" {
		return nil, domain.ErrValidation("group id is required")
	}

	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return g, nil
}
