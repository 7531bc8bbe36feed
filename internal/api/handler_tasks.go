package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/domain"
)

type createTaskRequest struct {
	ImplantID  string            `json:"implantId"`
	TaskTypeID string            `json:"taskTypeId"`
	Params     map[string]string `json:"params"`
}

// handleCreateTask queues a task. Tasking an implant is an EDIT on that
// implant, so the check runs against the ID named in the body.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.ImplantID == "" {
		h.writeError(w, r, domain.ErrValidation("implant id is required"))
		return
	}
	if !h.authorize(w, r, domain.EntityImplant, req.ImplantID, domain.OperationEdit) {
		return
	}

	task, err := h.tasks.Create(r.Context(), domain.CreateTaskRequest{
		ImplantID:  req.ImplantID,
		TaskTypeID: req.TaskTypeID,
		Params:     req.Params,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("task queued", "task_id", task.ID, "implant_id", task.ImplantID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"errors": noErrors,
		"task":   taskToView(task),
	})
}

// handleDeleteTask recalls a queued task. The task is fetched first so the
// EDIT check can run against the implant it belongs to.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.authorize(w, r, domain.EntityImplant, task.ImplantID, domain.OperationEdit) {
		return
	}

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("task deleted", "task_id", id, "implant_id", task.ImplantID)
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}

// handleListTaskTypes is available to any authenticated operator; the
// catalogue itself reveals nothing about individual implants.
func (h *Handler) handleListTaskTypes(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}

	types, err := h.tasks.ListTypes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]taskTypeView, 0, len(types))
	for i := range types {
		views = append(views, taskTypeToView(&types[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors":    noErrors,
		"taskTypes": views,
	})
}

type createTaskTypeRequest struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

func (h *Handler) handleCreateTaskType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createTaskTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	taskType, err := h.tasks.CreateType(r.Context(), domain.CreateTaskTypeRequest{
		Name:   req.Name,
		Params: req.Params,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("task type created", "task_type_id", taskType.ID, "name", taskType.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"errors":   noErrors,
		"taskType": taskTypeToView(taskType),
	})
}

func (h *Handler) handleDeleteTaskType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.tasks.DeleteType(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("task type deleted", "task_type_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}
