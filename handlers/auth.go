package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/services"
)

// OpenClawDefaults seeds the per-workspace integration config at
// registration time.
type OpenClawDefaults struct {
	Mode       string
	BaseURL    string
	HealthPath string
}

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	authService *services.AuthService
	store       *database.Store
	defaults    OpenClawDefaults
}

func NewAuthHandler(authService *services.AuthService, store *database.Store, defaults OpenClawDefaults) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		store:       store,
		defaults:    defaults,
	}
}

// Register creates a user along with their starter workspace, board, and
// OpenClaw config.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		writeStoreError(w, err, "Registration failed")
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, req.Name, passwordHash)
	if err != nil {
		writeStoreError(w, err, "Registration failed")
		return
	}

	workspace, err := h.store.CreateWorkspace(r.Context(), fmt.Sprintf("%s's Workspace", req.Name), user.ID)
	if err != nil {
		writeStoreError(w, err, "Registration failed")
		return
	}

	board, err := h.store.CreateBoard(r.Context(), workspace.ID, "My First Board")
	if err != nil {
		writeStoreError(w, err, "Registration failed")
		return
	}

	if _, err := h.store.UpsertOpenClawConfig(r.Context(), workspace.ID, h.defaults.Mode, h.defaults.BaseURL, h.defaults.HealthPath, ""); err != nil {
		writeStoreError(w, err, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"workspaceId": workspace.ID,
		"boardId":     board.ID,
	})
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		// Same response for unknown email and bad password.
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !h.authService.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.CreateJWT(user.ID)
	if err != nil {
		log.Printf("Error creating JWT: %v", err)
		writeError(w, http.StatusInternalServerError, "Authentication error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// Verify returns the profile for the token's user.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}
