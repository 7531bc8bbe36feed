package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "warden/internal/db"
	"warden/internal/domain"
)

func setupImplantRepo(t *testing.T) *ImplantRepo {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestStore(t)
	return NewImplantRepo(writeDB, readDB)
}

func checkin(implantID string, interval int64, at time.Time) *domain.Implant {
	return &domain.Implant{
		ImplantID:             implantID,
		IP:                    "10.0.0.1",
		OS:                    "linux",
		BeaconIntervalSeconds: interval,
		LastCheckinAt:         at,
	}
}

func TestImplantRepo_UpsertNewAndExisting(t *testing.T) {
	implantRepo := setupImplantRepo(t)
	ctx := context.Background()

	first, err := implantRepo.Upsert(ctx, checkin("imp-1", 300, time.Now()))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.IsActive)
	assert.Empty(t, first.ReadOnlyACGs)
	assert.Empty(t, first.OperatorACGs)

	require.NoError(t, implantRepo.SetACGs(ctx, "imp-1", []string{"readers"}, []string{"ops"}))

	// A later check-in refreshes beacon fields but keeps the access lists
	// and the internal row ID.
	later := checkin("imp-1", 600, time.Now())
	later.IP = "10.0.0.2"
	second, err := implantRepo.Upsert(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "10.0.0.2", second.IP)
	assert.Equal(t, int64(600), second.BeaconIntervalSeconds)
	assert.Equal(t, []string{"readers"}, second.ReadOnlyACGs)
	assert.Equal(t, []string{"ops"}, second.OperatorACGs)
}

func TestImplantRepo_UpsertReactivates(t *testing.T) {
	implantRepo := setupImplantRepo(t)
	ctx := context.Background()

	_, err := implantRepo.Upsert(ctx, checkin("imp-2", 10, time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	n, err := implantRepo.DeactivateStale(ctx, time.Now(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	imp, err := implantRepo.GetByImplantID(ctx, "imp-2")
	require.NoError(t, err)
	assert.False(t, imp.IsActive)

	imp, err = implantRepo.Upsert(ctx, checkin("imp-2", 10, time.Now()))
	require.NoError(t, err)
	assert.True(t, imp.IsActive)
}

func TestImplantRepo_DeactivateStale_GraceWindow(t *testing.T) {
	implantRepo := setupImplantRepo(t)
	ctx := context.Background()
	now := time.Now()

	// One interval late: still inside the 2x grace window.
	_, err := implantRepo.Upsert(ctx, checkin("fresh", 60, now.Add(-90*time.Second)))
	require.NoError(t, err)
	// Past two intervals: stale.
	_, err = implantRepo.Upsert(ctx, checkin("stale", 60, now.Add(-150*time.Second)))
	require.NoError(t, err)

	n, err := implantRepo.DeactivateStale(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	fresh, err := implantRepo.GetByImplantID(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, fresh.IsActive)

	stale, err := implantRepo.GetByImplantID(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, stale.IsActive)

	// Second sweep is a no-op.
	n, err = implantRepo.DeactivateStale(ctx, now, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImplantRepo_SetACGs_Replaces(t *testing.T) {
	implantRepo := setupImplantRepo(t)
	ctx := context.Background()

	_, err := implantRepo.Upsert(ctx, checkin("imp-3", 300, time.Now()))
	require.NoError(t, err)

	require.NoError(t, implantRepo.SetACGs(ctx, "imp-3", []string{"r1", "r2"}, nil))
	require.NoError(t, implantRepo.SetACGs(ctx, "imp-3", nil, []string{"o1"}))

	imp, err := implantRepo.GetByImplantID(ctx, "imp-3")
	require.NoError(t, err)
	assert.Empty(t, imp.ReadOnlyACGs)
	assert.Equal(t, []string{"o1"}, imp.OperatorACGs)
}

func TestImplantRepo_SetACGs_UnknownImplant(t *testing.T) {
	implantRepo := setupImplantRepo(t)

	err := implantRepo.SetACGs(context.Background(), "ghost", []string{"r"}, nil)
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestImplantRepo_ListAndDelete(t *testing.T) {
	implantRepo := setupImplantRepo(t)
	ctx := context.Background()

	for _, id := range []string{"b-imp", "a-imp"} {
		_, err := implantRepo.Upsert(ctx, checkin(id, 300, time.Now()))
		require.NoError(t, err)
	}

	implants, err := implantRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, implants, 2)
	assert.Equal(t, "a-imp", implants[0].ImplantID)

	require.NoError(t, implantRepo.Delete(ctx, "a-imp"))
	implants, err = implantRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, implants, 1)
}
