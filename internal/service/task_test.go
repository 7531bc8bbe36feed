package service

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "warden/internal/db"
	"warden/internal/db/repository"
	"warden/internal/domain"
	"warden/internal/notify"
)

func setupTaskService(t *testing.T) *TaskService {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestStore(t)
	logger := testLogger()
	return NewTaskService(repository.NewTaskRepo(writeDB, readDB), notify.NewRegistry(logger), logger)
}

func TestTaskService_CreateType_Validation(t *testing.T) {
	svc := setupTaskService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.CreateTaskTypeRequest
	}{
		{"missing name", domain.CreateTaskTypeRequest{Params: []string{"a"}}},
		{"empty param name", domain.CreateTaskTypeRequest{Name: "x", Params: []string{""}}},
		{"duplicate params", domain.CreateTaskTypeRequest{Name: "x", Params: []string{"a", "a"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateType(ctx, tc.req)
			require.Error(t, err)
			var validation *domain.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestTaskService_Create_ParamsMustMatchType(t *testing.T) {
	svc := setupTaskService(t)
	ctx := context.Background()

	tt, err := svc.CreateType(ctx, domain.CreateTaskTypeRequest{Name: "upload", Params: []string{"src", "dst"}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateTaskRequest{
		ImplantID:  "imp-1",
		TaskTypeID: tt.ID,
		Params:     map[string]string{"src": "/etc/passwd"},
	})
	require.Error(t, err)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Message, `"dst"`)

	_, err = svc.Create(ctx, domain.CreateTaskRequest{
		ImplantID:  "imp-1",
		TaskTypeID: tt.ID,
		Params:     map[string]string{"src": "a", "dst": "b", "extra": "c"},
	})
	require.Error(t, err)
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Message, `"extra"`)

	task, err := svc.Create(ctx, domain.CreateTaskRequest{
		ImplantID:  "imp-1",
		TaskTypeID: tt.ID,
		Params:     map[string]string{"src": "a", "dst": "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "upload", task.TypeName)
}

func TestTaskService_Create_UnknownType(t *testing.T) {
	svc := setupTaskService(t)

	_, err := svc.Create(context.Background(), domain.CreateTaskRequest{
		ImplantID:  "imp-1",
		TaskTypeID: "no-such-type",
	})
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestTaskService_Delete_SentTaskIsImmutable(t *testing.T) {
	svc := setupTaskService(t)
	ctx := context.Background()

	tt, err := svc.CreateType(ctx, domain.CreateTaskTypeRequest{Name: "noop"})
	require.NoError(t, err)

	task, err := svc.Create(ctx, domain.CreateTaskRequest{ImplantID: "imp-1", TaskTypeID: tt.ID, Params: map[string]string{}})
	require.NoError(t, err)

	// Pending tasks delete fine.
	require.NoError(t, svc.Delete(ctx, task.ID))

	task, err = svc.Create(ctx, domain.CreateTaskRequest{ImplantID: "imp-1", TaskTypeID: tt.ID, Params: map[string]string{}})
	require.NoError(t, err)
	require.NoError(t, svc.tasks.MarkSent(ctx, []string{task.ID}))

	err = svc.Delete(ctx, task.ID)
	require.Error(t, err)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)

	// Still present.
	_, err = svc.Get(ctx, task.ID)
	require.NoError(t, err)
}

func TestTaskService_ListForImplant(t *testing.T) {
	svc := setupTaskService(t)
	ctx := context.Background()

	tt, err := svc.CreateType(ctx, domain.CreateTaskTypeRequest{Name: "noop"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateTaskRequest{ImplantID: "imp-1", TaskTypeID: tt.ID, Params: map[string]string{}})
		require.NoError(t, err)
	}

	tasks, err := svc.ListForImplant(ctx, "imp-1", true)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	_, err = svc.ListForImplant(ctx, "", true)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}
