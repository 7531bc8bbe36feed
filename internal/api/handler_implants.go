package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/domain"
)

// handleListImplants returns the implants the caller may read. The full list
// is fetched once and filtered through the authorization engine, so the
// response never reveals implants the caller has no group for.
func (h *Handler) handleListImplants(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.principal(w, r)
	if !ok {
		return
	}

	implants, err := h.implants.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	visible, err := h.engine.FilterImplantsForView(r.Context(), userID, implants)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]implantView, 0, len(visible))
	for i := range visible {
		views = append(views, implantToView(&visible[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors":   noErrors,
		"implants": views,
	})
}

func (h *Handler) handleDeleteImplant(w http.ResponseWriter, r *http.Request) {
	implantID := chi.URLParam(r, "implantID")
	if !h.authorize(w, r, domain.EntityImplant, implantID, domain.OperationEdit) {
		return
	}

	if err := h.implants.Delete(r.Context(), implantID); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("implant deleted", "implant_id", implantID)
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}

type setImplantACGsRequest struct {
	ReadOnlyACGs []string `json:"readOnlyACGs"`
	OperatorACGs []string `json:"operatorACGs"`
}

// handleSetImplantACGs replaces the implant's access control lists. The
// caller must hold EDIT on the implant as it stands now, before the new
// lists take effect.
func (h *Handler) handleSetImplantACGs(w http.ResponseWriter, r *http.Request) {
	implantID := chi.URLParam(r, "implantID")
	if !h.authorize(w, r, domain.EntityImplant, implantID, domain.OperationEdit) {
		return
	}

	var req setImplantACGsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	imp, err := h.implants.SetACGs(r.Context(), domain.SetImplantACGsRequest{
		ImplantID:    implantID,
		ReadOnlyACGs: req.ReadOnlyACGs,
		OperatorACGs: req.OperatorACGs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("implant acgs replaced", "implant_id", implantID)
	writeJSON(w, http.StatusOK, map[string]any{
		"errors":  noErrors,
		"implant": implantToView(imp),
	})
}

// handleListTasks returns an implant's task queue, sent tasks included when
// ?includeSent=true.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	implantID := chi.URLParam(r, "implantID")
	if !h.authorize(w, r, domain.EntityImplant, implantID, domain.OperationRead) {
		return
	}

	includeSent := r.URL.Query().Get("includeSent") == "true"
	tasks, err := h.tasks.ListForImplant(r.Context(), implantID, includeSent)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, taskToView(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": noErrors,
		"tasks":  views,
	})
}
