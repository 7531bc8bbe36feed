package api

import (
	"net/http"
	"time"

	"warden/internal/domain"
	"warden/internal/middleware"
)

// principal returns the authenticated user ID, writing the denial when the
// session middleware did not run.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeDenied(w)
		return "", false
	}
	return userID, ok
}

// authorize runs the engine for the caller and writes the refusal itself, so
// handlers read as: if !h.authorize(...) { return }.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, entity domain.EntityType, entityID string, op domain.Operation) bool {
	userID, ok := h.principal(w, r)
	if !ok {
		return false
	}
	allowed, err := h.engine.Authorize(r.Context(), userID, entity, entityID, op)
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	if !allowed {
		h.writeDenied(w)
		return false
	}
	return true
}

// requireAdmin gates admin-only endpoints.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	userID, ok := h.principal(w, r)
	if !ok {
		return false
	}
	isAdmin, err := h.engine.IsAdmin(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	if !isAdmin {
		h.writeDenied(w)
		return false
	}
	return true
}

// === view types ===

type userView struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	ACGs []string `json:"acgs"`
}

func userToView(u *domain.User) userView {
	acgs := u.ACGs
	if acgs == nil {
		acgs = []string{}
	}
	return userView{ID: u.ID, Name: u.Name, ACGs: acgs}
}

type groupView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func groupToView(g *domain.Group) groupView {
	return groupView{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt}
}

type implantView struct {
	ID                    string    `json:"id"`
	IP                    string    `json:"ip"`
	OS                    string    `json:"os"`
	BeaconIntervalSeconds int64     `json:"beaconIntervalSeconds"`
	LastCheckinAt         time.Time `json:"lastCheckinAt"`
	IsActive              bool      `json:"isActive"`
	ReadOnlyACGs          []string  `json:"readOnlyACGs"`
	OperatorACGs          []string  `json:"operatorACGs"`
}

func implantToView(imp *domain.Implant) implantView {
	return implantView{
		ID:                    imp.ImplantID,
		IP:                    imp.IP,
		OS:                    imp.OS,
		BeaconIntervalSeconds: imp.BeaconIntervalSeconds,
		LastCheckinAt:         imp.LastCheckinAt,
		IsActive:              imp.IsActive,
		ReadOnlyACGs:          imp.ReadOnlyACGs,
		OperatorACGs:          imp.OperatorACGs,
	}
}

type taskView struct {
	ID        string            `json:"id"`
	ImplantID string            `json:"implantId"`
	Type      string            `json:"type"`
	Params    map[string]string `json:"params"`
	Sent      bool              `json:"sent"`
	CreatedAt time.Time         `json:"createdAt"`
}

func taskToView(t *domain.Task) taskView {
	return taskView{
		ID:        t.ID,
		ImplantID: t.ImplantID,
		Type:      t.TypeName,
		Params:    t.Params,
		Sent:      t.Sent,
		CreatedAt: t.CreatedAt,
	}
}

type taskTypeView struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

func taskTypeToView(tt *domain.TaskType) taskTypeView {
	return taskTypeView{ID: tt.ID, Name: tt.Name, Params: tt.Params}
}
