package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"warden/internal/domain"
)

type TaskRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewTaskRepo(writeDB, readDB *sql.DB) *TaskRepo {
	return &TaskRepo{writeDB: writeDB, readDB: readDB}
}

func (r *TaskRepo) CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	params, err := marshalStringMap(t.Params)
	if err != nil {
		return nil, err
	}

	out := *t
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.CreatedAt = time.Now().UTC()
	out.Sent = false

	_, err = r.writeDB.ExecContext(ctx,
		`INSERT INTO tasks (id, implant_id, task_type_id, params, sent, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		out.ID, out.ImplantID, out.TaskTypeID, params, out.CreatedAt,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetTaskByID(ctx, out.ID)
}

func (r *TaskRepo) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.readDB.QueryRowContext(ctx,
		`SELECT t.id, t.implant_id, t.task_type_id, tt.name, t.params, t.sent, t.created_at
		 FROM tasks t JOIN task_types tt ON tt.id = t.task_type_id
		 WHERE t.id = ?`, id)
	return scanTask(row)
}

func (r *TaskRepo) TasksForImplant(ctx context.Context, implantID string, includeSent bool) ([]domain.Task, error) {
	query := `SELECT t.id, t.implant_id, t.task_type_id, tt.name, t.params, t.sent, t.created_at
		 FROM tasks t JOIN task_types tt ON tt.id = t.task_type_id
		 WHERE t.implant_id = ?`
	if !includeSent {
		query += ` AND t.sent = 0`
	}
	query += ` ORDER BY t.created_at, t.id`

	rows, err := r.readDB.QueryContext(ctx, query, implantID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) MarkSent(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range taskIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET sent = 1 WHERE id = ?`, id); err != nil {
			return mapDBError(err)
		}
	}
	return tx.Commit()
}

func (r *TaskRepo) DeleteTask(ctx context.Context, id string) error {
	_, err := r.writeDB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return mapDBError(err)
}

func (r *TaskRepo) CreateTaskType(ctx context.Context, tt *domain.TaskType) (*domain.TaskType, error) {
	params, err := marshalStrings(tt.Params)
	if err != nil {
		return nil, err
	}

	out := *tt
	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	_, err = r.writeDB.ExecContext(ctx,
		`INSERT INTO task_types (id, name, params) VALUES (?, ?, ?)`,
		out.ID, out.Name, params,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	if out.Params == nil {
		out.Params = []string{}
	}
	return &out, nil
}

func (r *TaskRepo) GetTaskTypeByID(ctx context.Context, id string) (*domain.TaskType, error) {
	row := r.readDB.QueryRowContext(ctx,
		`SELECT id, name, params FROM task_types WHERE id = ?`, id)
	return scanTaskType(row)
}

func (r *TaskRepo) ListTaskTypes(ctx context.Context) ([]domain.TaskType, error) {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT id, name, params FROM task_types ORDER BY name`)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	types := []domain.TaskType{}
	for rows.Next() {
		tt, err := scanTaskType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *tt)
	}
	return types, rows.Err()
}

func (r *TaskRepo) DeleteTaskType(ctx context.Context, id string) error {
	_, err := r.writeDB.ExecContext(ctx, `DELETE FROM task_types WHERE id = ?`, id)
	return mapDBError(err)
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t      domain.Task
		params string
		sent   int
	)
	err := row.Scan(&t.ID, &t.ImplantID, &t.TaskTypeID, &t.TypeName, &params, &sent, &t.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	t.Sent = sent != 0
	t.Params, err = unmarshalStringMap(params)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTaskType(row rowScanner) (*domain.TaskType, error) {
	var (
		tt     domain.TaskType
		params string
	)
	if err := row.Scan(&tt.ID, &tt.Name, &params); err != nil {
		return nil, mapDBError(err)
	}
	var err error
	tt.Params, err = unmarshalStrings(params)
	if err != nil {
		return nil, err
	}
	return &tt, nil
}
