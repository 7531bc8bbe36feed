package domain

import "time"

// TaskType describes a kind of task an operator may queue, with the ordered
// list of parameter names the task requires.
type TaskType struct {
	ID     string
	Name   string
	Params []string
}

// Task is a unit of work queued for an implant. Once Sent is true the task
// has been delivered on a beacon response and may no longer be deleted.
type Task struct {
	ID         string
	ImplantID  string // self-asserted implant ID, not the storage key
	TaskTypeID string
	TypeName   string
	Params     map[string]string
	Sent       bool
	CreatedAt  time.Time
}

// CreateTaskTypeRequest holds parameters for creating a task type.
type CreateTaskTypeRequest struct {
	Name   string
	Params []string
}

// Validate checks name presence and parameter uniqueness.
func (r *CreateTaskTypeRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("task type name is required")
	}
	seen := make(map[string]bool, len(r.Params))
	for _, p := range r.Params {
		if p == "" {
			return ErrValidation("task type parameter names must be non-empty")
		}
		if seen[p] {
			return ErrValidation("duplicate task type parameter %q", p)
		}
		seen[p] = true
	}
	return nil
}

// CreateTaskRequest holds parameters for queuing a task against an implant.
type CreateTaskRequest struct {
	ImplantID  string
	TaskTypeID string
	Params     map[string]string
}

// Validate checks the structural fields. Parameter completeness against the
// task type is checked by the service, which has the type definition.
func (r *CreateTaskRequest) Validate() error {
	if r.ImplantID == "" {
		return ErrValidation("implant id is required")
	}
	if r.TaskTypeID == "" {
		return ErrValidation("task type id is required")
	}
	return nil
}
