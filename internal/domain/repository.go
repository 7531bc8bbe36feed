package domain

import (
	"context"
	"time"
)

// UserRepository persists local (database-backed) user identities.
type UserRepository interface {
	Create(ctx context.Context, name, passwordHash string) (*User, error)
	GetByName(ctx context.Context, name string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetCredentialsByName(ctx context.Context, name string) (*UserCredentials, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	SetACGs(ctx context.Context, id string, acgs []string) error
	Delete(ctx context.Context, id string) error
}

// AdminRepository is the admin side table: the existence of a record for a
// user ID means that user is an admin.
type AdminRepository interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	Add(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) error
	Count(ctx context.Context) (int64, error)
}

// TokenValidityRepository stores the per-user token validity floor.
type TokenValidityRepository interface {
	// MinValidity returns the floor for the user, or the zero time when no
	// record exists (every structurally valid token is then acceptable).
	MinValidity(ctx context.Context, userID string) (time.Time, error)
	// Advance upserts the floor to the given instant. The floor never moves
	// backwards: an earlier instant than the stored one is a no-op.
	Advance(ctx context.Context, userID string, to time.Time) error
	Delete(ctx context.Context, userID string) error
}

// GroupRepository persists access-control groups.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) (*Group, error)
	GetByID(ctx context.Context, id string) (*Group, error)
	GetByName(ctx context.Context, name string) (*Group, error)
	List(ctx context.Context) ([]Group, error)
	// Delete removes the group and reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// ImplantRepository persists implants keyed by their self-asserted implant ID.
type ImplantRepository interface {
	Upsert(ctx context.Context, imp *Implant) (*Implant, error)
	GetByImplantID(ctx context.Context, implantID string) (*Implant, error)
	List(ctx context.Context) ([]Implant, error)
	SetACGs(ctx context.Context, implantID string, readOnly, operator []string) error
	Delete(ctx context.Context, implantID string) error
	// DeactivateStale marks implants inactive whose last check-in is older
	// than graceMultiplier beacon intervals, returning how many changed.
	DeactivateStale(ctx context.Context, now time.Time, graceMultiplier int64) (int64, error)
}

// TaskRepository persists tasks and task types.
type TaskRepository interface {
	CreateTask(ctx context.Context, t *Task) (*Task, error)
	GetTaskByID(ctx context.Context, id string) (*Task, error)
	// TasksForImplant returns the implant's tasks, oldest first. When
	// includeSent is false only undelivered tasks are returned.
	TasksForImplant(ctx context.Context, implantID string, includeSent bool) ([]Task, error)
	MarkSent(ctx context.Context, taskIDs []string) error
	DeleteTask(ctx context.Context, id string) error

	CreateTaskType(ctx context.Context, tt *TaskType) (*TaskType, error)
	GetTaskTypeByID(ctx context.Context, id string) (*TaskType, error)
	ListTaskTypes(ctx context.Context) ([]TaskType, error)
	DeleteTaskType(ctx context.Context, id string) error
}

// IdentityBackend is the capability interface over whichever identity source
// is configured, either the local credential store or an enterprise
// directory. It is selected once at startup and injected; nothing downstream
// switches on the backend kind.
type IdentityBackend interface {
	// Authenticate verifies the name/secret pair. A clean "no" is
	// (false, nil); only backend faults return a non-nil error.
	Authenticate(ctx context.Context, name, secret string) (bool, error)
	// FindByName returns the identity, or a NotFoundError when absent.
	FindByName(ctx context.Context, name string) (*User, error)
	// FindByID returns the identity, or a NotFoundError when absent.
	FindByID(ctx context.Context, id string) (*User, error)
	// DeleteUser removes the identity where the backend supports it.
	DeleteUser(ctx context.Context, id string) error
	// GroupsForUser returns the ACG IDs the user belongs to.
	GroupsForUser(ctx context.Context, id string) ([]string, error)
}
