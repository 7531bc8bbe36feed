package service

import (
	"context"
	"log/slog"

	"warden/internal/domain"
	"warden/internal/notify"
)

// TaskService manages task types and the per-implant task queues.
type TaskService struct {
	tasks    domain.TaskRepository
	registry *notify.Registry
	logger   *slog.Logger
}

func NewTaskService(tasks domain.TaskRepository, registry *notify.Registry, logger *slog.Logger) *TaskService {
	return &TaskService{
		tasks:    tasks,
		registry: registry,
		logger:   logger.With("component", "tasks"),
	}
}

// Create queues a task after checking its parameters against the task type:
// every declared parameter must be supplied and nothing else.
func (s *TaskService) Create(ctx context.Context, req domain.CreateTaskRequest) (*domain.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	taskType, err := s.tasks.GetTaskTypeByID(ctx, req.TaskTypeID)
	if err != nil {
		return nil, err
	}
	for _, p := range taskType.Params {
		if _, ok := req.Params[p]; !ok {
			return nil, domain.ErrValidation("missing task parameter %q", p)
		}
	}
	if len(req.Params) > len(taskType.Params) {
		declared := make(map[string]bool, len(taskType.Params))
		for _, p := range taskType.Params {
			declared[p] = true
		}
		for name := range req.Params {
			if !declared[name] {
				return nil, domain.ErrValidation("unknown task parameter %q", name)
			}
		}
	}

	task, err := s.tasks.CreateTask(ctx, &domain.Task{
		ImplantID:  req.ImplantID,
		TaskTypeID: req.TaskTypeID,
		Params:     req.Params,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task queued", "task_id", task.ID, "implant_id", task.ImplantID, "type", task.TypeName)
	s.registry.Broadcast(notify.Event{Kind: notify.EventTaskCreated, Data: task.ImplantID})
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.GetTaskByID(ctx, id)
}

func (s *TaskService) ListForImplant(ctx context.Context, implantID string, includeSent bool) ([]domain.Task, error) {
	if implantID == "" {
		return nil, domain.ErrValidation("implant id is required")
	}
	return s.tasks.TasksForImplant(ctx, implantID, includeSent)
}

// Delete removes a queued task. Tasks that have already been delivered to
// the implant cannot be recalled and stay in the history.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	task, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return err
	}
	if task.Sent {
		return domain.ErrValidation("task %s has already been sent and cannot be deleted", id)
	}
	if err := s.tasks.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.registry.Broadcast(notify.Event{Kind: notify.EventTaskDeleted, Data: task.ImplantID})
	return nil
}

func (s *TaskService) CreateType(ctx context.Context, req domain.CreateTaskTypeRequest) (*domain.TaskType, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.tasks.CreateTaskType(ctx, &domain.TaskType{Name: req.Name, Params: req.Params})
}

func (s *TaskService) ListTypes(ctx context.Context) ([]domain.TaskType, error) {
	return s.tasks.ListTaskTypes(ctx)
}

func (s *TaskService) DeleteType(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrValidation("task type id is required")
	}
	return s.tasks.DeleteTaskType(ctx, id)
}
