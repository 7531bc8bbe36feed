package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/domain"
)

func (h *Handler) handleWhoami(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.principal(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	isAdmin, err := h.engine.IsAdmin(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"errors":  noErrors,
		"user":    userToView(user),
		"isAdmin": isAdmin,
	})
}

// handleGetUser looks up a user by name. Readable by the user themselves and
// by admins.
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.authorize(w, r, domain.EntityUser, user.ID, domain.OperationRead) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"errors": noErrors,
		"user":   userToView(user),
	})
}

// handleDeleteUser removes an account. Admin only; there is no self-service
// deletion.
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.users.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("user deleted", "user_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

// handleChangePassword replaces a user's password. The user may change their
// own; admins may change anyone's. Existing sessions are revoked either way.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, domain.EntityUser, id, domain.OperationEdit) {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), id, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("password changed", "user_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}

func (h *Handler) handleGetUserGroups(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.authorize(w, r, domain.EntityUser, id, domain.OperationRead) {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	acgs := user.ACGs
	if acgs == nil {
		acgs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": noErrors,
		"acgs":   acgs,
	})
}

type setUserGroupsRequest struct {
	ACGs []string `json:"acgs"`
}

// handleSetUserGroups replaces a user's ACG memberships. Admin only; the
// self-service USER bypass does not extend to memberships.
func (h *Handler) handleSetUserGroups(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	var req setUserGroupsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.users.SetGroups(r.Context(), id, req.ACGs); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("user groups replaced", "user_id", id, "count", len(req.ACGs))
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}
