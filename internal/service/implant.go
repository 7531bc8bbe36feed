// Package service implements the implant and tasking workflows on top of the
// repositories and the notification registry.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/domain"
	"warden/internal/notify"
)

// StaleGraceMultiplier is how many missed beacon intervals an implant is
// allowed before the activity sweep marks it inactive.
const StaleGraceMultiplier = 2

// ImplantService handles beacon ingest, implant management, and the activity
// sweep.
type ImplantService struct {
	implants domain.ImplantRepository
	tasks    domain.TaskRepository
	registry *notify.Registry
	logger   *slog.Logger
	now      func() time.Time
}

func NewImplantService(implants domain.ImplantRepository, tasks domain.TaskRepository, registry *notify.Registry, logger *slog.Logger) *ImplantService {
	return &ImplantService{
		implants: implants,
		tasks:    tasks,
		registry: registry,
		logger:   logger.With("component", "implants"),
		now:      time.Now,
	}
}

// Beacon records a check-in and returns the implant's undelivered tasks,
// marking them sent. The implant is created on first contact and re-activated
// if the sweep had marked it inactive.
func (s *ImplantService) Beacon(ctx context.Context, req domain.BeaconRequest) (*domain.Implant, []domain.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	imp, err := s.implants.Upsert(ctx, &domain.Implant{
		ImplantID:             req.ImplantID,
		IP:                    req.IP,
		OS:                    req.OS,
		BeaconIntervalSeconds: req.BeaconIntervalSeconds,
		LastCheckinAt:         s.now().UTC(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("record check-in for %s: %w", req.ImplantID, err)
	}

	pending, err := s.tasks.TasksForImplant(ctx, req.ImplantID, false)
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks for %s: %w", req.ImplantID, err)
	}
	if len(pending) > 0 {
		ids := make([]string, len(pending))
		for i, task := range pending {
			ids[i] = task.ID
		}
		if err := s.tasks.MarkSent(ctx, ids); err != nil {
			return nil, nil, fmt.Errorf("mark tasks sent for %s: %w", req.ImplantID, err)
		}
	}

	s.logger.Debug("beacon", "implant_id", req.ImplantID, "tasks_delivered", len(pending))
	s.registry.Broadcast(notify.Event{Kind: notify.EventImplantCheckin, Data: imp.ImplantID})
	return imp, pending, nil
}

func (s *ImplantService) List(ctx context.Context) ([]domain.Implant, error) {
	return s.implants.List(ctx)
}

func (s *ImplantService) GetByImplantID(ctx context.Context, implantID string) (*domain.Implant, error) {
	return s.implants.GetByImplantID(ctx, implantID)
}

// SetACGs replaces the implant's access control lists.
func (s *ImplantService) SetACGs(ctx context.Context, req domain.SetImplantACGsRequest) (*domain.Implant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.implants.SetACGs(ctx, req.ImplantID, req.ReadOnlyACGs, req.OperatorACGs); err != nil {
		return nil, err
	}
	return s.implants.GetByImplantID(ctx, req.ImplantID)
}

func (s *ImplantService) Delete(ctx context.Context, implantID string) error {
	if implantID == "" {
		return domain.ErrValidation("implant id is required")
	}
	return s.implants.Delete(ctx, implantID)
}

// SweepInactive marks implants inactive that have missed their grace window.
// It is invoked on a schedule and returns the number of implants deactivated.
func (s *ImplantService) SweepInactive(ctx context.Context) (int64, error) {
	n, err := s.implants.DeactivateStale(ctx, s.now(), StaleGraceMultiplier)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale implants: %w", err)
	}
	if n > 0 {
		s.logger.Info("marked implants inactive", "count", n)
		s.registry.Broadcast(notify.Event{Kind: notify.EventImplantInactive, Data: n})
	}
	return n, nil
}
