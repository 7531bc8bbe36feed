package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/domain"
)

// All group management endpoints are admin only.

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	groups, err := h.groups.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]groupView, 0, len(groups))
	for i := range groups {
		views = append(views, groupToView(&groups[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": noErrors,
		"acgs":   views,
	})
}

type createGroupRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	group, err := h.groups.Create(r.Context(), domain.CreateGroupRequest{Name: req.Name})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("group created", "acg_id", group.ID, "name", group.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"errors": noErrors,
		"acg":    groupToView(group),
	})
}

// handleDeleteGroup removes an ACG. Deleting an unknown ID succeeds; any
// references still held by users or implants are left dangling and simply
// stop matching.
func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	deleted, err := h.groups.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var view any
	if deleted != nil {
		view = groupToView(deleted)
		h.logger.Info("group deleted", "acg_id", deleted.ID, "name", deleted.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": noErrors,
		"acg":    view,
	})
}
