package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/example/order-saga/internal/api/middleware"
	"github.com/example/order-saga/internal/auth"
	"github.com/example/order-saga/internal/model"
	"github.com/example/order-saga/internal/store"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	users      store.UserStore
	jwtService *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(users store.UserStore, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		users:      users,
		jwtService: jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		respondJSONError(w, "Email is required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		respondJSONError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	user := &model.User{Email: req.Email, PasswordHash: hash, Role: model.RoleUser}
	err = h.users.Create(r.Context(), user)
	if errors.Is(err, store.ErrDuplicate) {
		respondJSONError(w, "User already exists", http.StatusConflict)
		return
	}
	if err != nil {
		respondJSONError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and issues an access token
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, _, err := h.jwtService.GenerateToken(strconv.FormatInt(user.ID, 10), user.Email, user.Role)
	if err != nil {
		respondJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// CurrentUser returns the authenticated user
func (h *AuthHandlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		respondJSONError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		respondJSONError(w, "Lookup failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}
