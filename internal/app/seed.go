package app

import (
	"context"
	"fmt"
	"log/slog"

	"warden/internal/config"
	"warden/internal/domain"
	"warden/internal/service/security"
)

type seedDeps struct {
	cfg    *config.Config
	auth   *security.Authenticator
	users  domain.UserRepository
	admins domain.AdminRepository
	tasks  domain.TaskRepository
	logger *slog.Logger
}

// seed performs first-start provisioning: the bootstrap admin account and the
// default task type catalogue. Both checks are idempotent, so restarting an
// already-provisioned server changes nothing.
func seed(ctx context.Context, d seedDeps) error {
	if err := seedAdmin(ctx, d); err != nil {
		return err
	}
	return seedTaskTypes(ctx, d)
}

// seedAdmin creates the initial admin from ADMIN_USERNAME/ADMIN_PASSWORD, but
// only while the store has no admin at all. Once one exists the variables are
// ignored, so leaving them set cannot resurrect a deleted bootstrap account.
func seedAdmin(ctx context.Context, d seedDeps) error {
	count, err := d.admins.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}
	if d.cfg.AdminUsername == "" || d.cfg.AdminPassword == "" {
		d.logger.Warn("store has no admin and ADMIN_USERNAME/ADMIN_PASSWORD are not set; " +
			"promote a user with wardenctl")
		return nil
	}
	if d.cfg.AuthMethod == config.AuthMethodDirectory {
		d.logger.Warn("bootstrap admin is unavailable with the directory backend; " +
			"promote a directory user with wardenctl")
		return nil
	}

	user, err := d.auth.Register(ctx, domain.RegisterUserRequest{
		Name:            d.cfg.AdminUsername,
		Password:        d.cfg.AdminPassword,
		ConfirmPassword: d.cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin %q: %w", d.cfg.AdminUsername, err)
	}
	if err := d.admins.Add(ctx, user.ID); err != nil {
		return fmt.Errorf("promote bootstrap admin %q: %w", d.cfg.AdminUsername, err)
	}

	d.logger.Info("bootstrap admin created", "name", user.Name, "user_id", user.ID)
	return nil
}

// defaultTaskTypes is the catalogue installed into an empty store. Admins can
// delete or extend it afterwards.
var defaultTaskTypes = []domain.TaskType{
	{Name: "shell", Params: []string{"command"}},
	{Name: "download", Params: []string{"path"}},
	{Name: "upload", Params: []string{"source", "destination"}},
	{Name: "set-interval", Params: []string{"seconds"}},
	{Name: "terminate", Params: []string{}},
}

func seedTaskTypes(ctx context.Context, d seedDeps) error {
	existing, err := d.tasks.ListTaskTypes(ctx)
	if err != nil {
		return fmt.Errorf("list task types: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, tt := range defaultTaskTypes {
		if _, err := d.tasks.CreateTaskType(ctx, &domain.TaskType{
			Name:   tt.Name,
			Params: tt.Params,
		}); err != nil {
			return fmt.Errorf("create default task type %q: %w", tt.Name, err)
		}
	}
	d.logger.Info("default task types installed", "count", len(defaultTaskTypes))
	return nil
}
