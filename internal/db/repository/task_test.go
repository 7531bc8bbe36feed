package repository

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "warden/internal/db"
	"warden/internal/domain"
)

func setupTaskRepo(t *testing.T) *TaskRepo {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestStore(t)
	return NewTaskRepo(writeDB, readDB)
}

func mustTaskType(t *testing.T, repo *TaskRepo, name string, params ...string) *domain.TaskType {
	t.Helper()
	tt, err := repo.CreateTaskType(context.Background(), &domain.TaskType{Name: name, Params: params})
	require.NoError(t, err)
	return tt
}

func TestTaskRepo_TaskTypeCRUD(t *testing.T) {
	taskRepo := setupTaskRepo(t)
	ctx := context.Background()

	tt := mustTaskType(t, taskRepo, "run-command", "command")
	assert.NotEmpty(t, tt.ID)
	assert.Equal(t, []string{"command"}, tt.Params)

	found, err := taskRepo.GetTaskTypeByID(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, "run-command", found.Name)

	types, err := taskRepo.ListTaskTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 1)

	require.NoError(t, taskRepo.DeleteTaskType(ctx, tt.ID))
	_, err = taskRepo.GetTaskTypeByID(ctx, tt.ID)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestTaskRepo_DuplicateTypeName(t *testing.T) {
	taskRepo := setupTaskRepo(t)

	mustTaskType(t, taskRepo, "download")
	_, err := taskRepo.CreateTaskType(context.Background(), &domain.TaskType{Name: "download"})
	require.Error(t, err)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestTaskRepo_CreateAndFetchTasks(t *testing.T) {
	taskRepo := setupTaskRepo(t)
	ctx := context.Background()

	tt := mustTaskType(t, taskRepo, "run-command", "command")

	created, err := taskRepo.CreateTask(ctx, &domain.Task{
		ImplantID:  "imp-1",
		TaskTypeID: tt.ID,
		Params:     map[string]string{"command": "whoami"},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-command", created.TypeName)
	assert.False(t, created.Sent)
	assert.Equal(t, "whoami", created.Params["command"])

	tasks, err := taskRepo.TasksForImplant(ctx, "imp-1", false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	// Other implants see nothing.
	tasks, err = taskRepo.TasksForImplant(ctx, "imp-2", true)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskRepo_MarkSentFiltersPending(t *testing.T) {
	taskRepo := setupTaskRepo(t)
	ctx := context.Background()

	tt := mustTaskType(t, taskRepo, "noop")

	t1, err := taskRepo.CreateTask(ctx, &domain.Task{ImplantID: "imp-1", TaskTypeID: tt.ID})
	require.NoError(t, err)
	t2, err := taskRepo.CreateTask(ctx, &domain.Task{ImplantID: "imp-1", TaskTypeID: tt.ID})
	require.NoError(t, err)

	require.NoError(t, taskRepo.MarkSent(ctx, []string{t1.ID}))

	pending, err := taskRepo.TasksForImplant(ctx, "imp-1", false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, t2.ID, pending[0].ID)

	all, err := taskRepo.TasksForImplant(ctx, "imp-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sent, err := taskRepo.GetTaskByID(ctx, t1.ID)
	require.NoError(t, err)
	assert.True(t, sent.Sent)
}

func TestTaskRepo_DeleteTask(t *testing.T) {
	taskRepo := setupTaskRepo(t)
	ctx := context.Background()

	tt := mustTaskType(t, taskRepo, "noop")
	task, err := taskRepo.CreateTask(ctx, &domain.Task{ImplantID: "imp-1", TaskTypeID: tt.ID})
	require.NoError(t, err)

	require.NoError(t, taskRepo.DeleteTask(ctx, task.ID))
	_, err = taskRepo.GetTaskByID(ctx, task.ID)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
