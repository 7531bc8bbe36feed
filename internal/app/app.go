// Package app wires repositories, services, and the HTTP handler from the
// loaded configuration. main() owns the process concerns (listener, TLS,
// signals); everything behind them is assembled here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"warden/internal/api"
	"warden/internal/config"
	"warden/internal/db/repository"
	"warden/internal/domain"
	"warden/internal/notify"
	"warden/internal/service"
	"warden/internal/service/security"
)

// Deps holds the external dependencies that main() must provide: the database
// handles, the loaded configuration, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App is the fully wired application.
type App struct {
	Handler  *api.Handler
	Auth     *security.Authenticator
	Implants *service.ImplantService
	Registry *notify.Registry

	// ResolveCertificate maps a verified client certificate CN to a user ID.
	// The router uses it for transparent certificate sessions when PKI mode
	// is enabled.
	ResolveCertificate func(ctx context.Context, cn string) (string, error)
}

// New wires the repositories and services, selects the identity backend, and
// runs first-start seeding.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	users := repository.NewUserRepo(deps.WriteDB, deps.ReadDB)
	admins := repository.NewAdminRepo(deps.WriteDB, deps.ReadDB)
	groups := repository.NewGroupRepo(deps.WriteDB, deps.ReadDB)
	implants := repository.NewImplantRepo(deps.WriteDB, deps.ReadDB)
	tasks := repository.NewTaskRepo(deps.WriteDB, deps.ReadDB)
	validity := repository.NewTokenValidityRepo(deps.WriteDB, deps.ReadDB)

	// The identity backend decides where login claims are verified. With the
	// directory backend, registration and password changes are disabled and
	// the local user repository stays out of the authenticator.
	var backend domain.IdentityBackend
	var localUsers domain.UserRepository
	switch cfg.AuthMethod {
	case config.AuthMethodDirectory:
		backend = security.NewDirectoryBackend(cfg.Settings.Directory)
		deps.Logger.Info("identity backend: directory", "url", cfg.Settings.Directory.URL)
	default:
		backend = security.NewDatabaseBackend(users)
		localUsers = users
	}

	tokens := security.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL, validity)
	auth := security.NewAuthenticator(backend, localUsers, tokens, cfg.Settings.Passwords)
	engine := security.NewEngine(admins, backend, implants)
	userSvc := security.NewUserService(backend, localUsers, admins, validity)
	groupSvc := security.NewGroupService(groups)

	registry := notify.NewRegistry(deps.Logger)
	implantSvc := service.NewImplantService(implants, tasks, registry, deps.Logger)
	taskSvc := service.NewTaskService(tasks, registry, deps.Logger)

	if err := seed(ctx, seedDeps{
		cfg:    cfg,
		auth:   auth,
		users:  users,
		admins: admins,
		tasks:  tasks,
		logger: deps.Logger,
	}); err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}

	handler := api.NewHandler(api.HandlerConfig{
		Auth:     auth,
		Tokens:   tokens,
		Engine:   engine,
		Users:    userSvc,
		Groups:   groupSvc,
		Implants: implantSvc,
		Tasks:    taskSvc,
		Registry: registry,
		Logger:   deps.Logger,
	})

	return &App{
		Handler:  handler,
		Auth:     auth,
		Implants: implantSvc,
		Registry: registry,
		ResolveCertificate: func(ctx context.Context, cn string) (string, error) {
			user, err := backend.FindByName(ctx, cn)
			if err != nil {
				return "", err
			}
			return user.ID, nil
		},
	}, nil
}
