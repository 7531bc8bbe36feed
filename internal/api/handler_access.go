package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"warden/internal/domain"
	"warden/internal/service/security"
)

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), domain.RegisterUserRequest{
		Name:            req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "name", user.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"errors": noErrors,
		"user":   userToView(user),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin issues a session token. With an empty body and a verified
// client certificate on the connection, the certificate CN is the login
// claim instead of a password.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	var (
		user  *domain.User
		token string
		err   error
	)
	if req.Username == "" && req.Password == "" {
		user, token, err = h.auth.LoginCertificate(r.Context(), security.ClientCertCN(r))
	} else {
		user, token, err = h.auth.Login(r.Context(), req.Username, req.Password)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	isAdmin, err := h.engine.IsAdmin(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("login", "user_id", user.ID, "name", user.Name)
	writeJSON(w, http.StatusOK, map[string]any{
		"errors":  noErrors,
		"token":   token,
		"user":    userToView(user),
		"isAdmin": isAdmin,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.auth.Logout(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}

type setAdminRequest struct {
	UserID string `json:"userId"`
	Admin  bool   `json:"admin"`
}

// handleSetAdmin grants or revokes the admin role. Admin only.
func (h *Handler) handleSetAdmin(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req setAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		h.writeError(w, r, domain.ErrValidation("user id is required"))
		return
	}

	if err := h.users.SetAdmin(r.Context(), req.UserID, req.Admin); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("admin role changed", "user_id", req.UserID, "admin", req.Admin)
	writeJSON(w, http.StatusOK, map[string]any{"errors": noErrors})
}
