package internal

import (
	"errors"
	"net/http"
	"strings"

	"itam-api/internal/auth"
	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

var validRoles = map[string]bool{
	auth.RoleAdmin:     true,
	auth.RoleCustodian: true,
	auth.RoleViewer:    true,
}

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(w, "Email and password are required")
		return
	}

	user, err := s.svc.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, inventory.ErrNotFound) {
		sendErrorResponse(w, "Invalid credentials", "INVALID_CREDENTIALS", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	token, err := s.JWTManager.GenerateToken(user.ID, email, []string{user.Role})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log.Info().Int64("user_id", user.ID).Msg("login")
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// getProfile returns the authenticated user.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.GetUser(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	users, total, err := s.svc.ListUsers(r.Context(), params.q, params.toPage())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sendListResponse(w, users, total, params)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	user, err := s.svc.GetUser(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// createUser registers an employee. Users given an email can log in and must
// also be given a password.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = inventory.DefaultRole
	}
	if !validRoles[role] {
		badRequest(w, "Invalid role provided")
		return
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) == "" {
		req.Email = nil
	}
	if (req.Email == nil) != (req.Password == "") {
		badRequest(w, "Email and password must be provided together")
		return
	}

	user := &models.User{
		Name:       req.Name,
		Company:    req.Company,
		Department: req.Department,
		Email:      req.Email,
		Role:       role,
	}
	if id := strings.TrimSpace(req.EmployeeID); id != "" {
		user.EmployeeID = &id
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		user.PasswordHash = &hash
	}

	if err := s.svc.CreateUser(r.Context(), user); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}
