package api

import (
	"net/http"

	"warden/internal/domain"
)

type beaconTask struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Params map[string]string `json:"params"`
}

// handleBeacon records an implant check-in and hands back its undelivered
// tasks. The response carries only what the implant needs to execute; ACG
// assignments and storage keys never cross this boundary.
func (h *Handler) handleBeacon(w http.ResponseWriter, r *http.Request) {
	var req domain.BeaconRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	_, pending, err := h.implants.Beacon(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tasks := make([]beaconTask, 0, len(pending))
	for _, t := range pending {
		params := t.Params
		if params == nil {
			params = map[string]string{}
		}
		tasks = append(tasks, beaconTask{ID: t.ID, Type: t.TypeName, Params: params})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"errors": noErrors,
		"tasks":  tasks,
	})
}
