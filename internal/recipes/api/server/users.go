package server

import (
	"fmt"
	"net/http"

	"github.com/Leopold1975/recipes_control/internal/recipes/services/authservice"
)

// (POST /users).
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req authservice.RegisterRequest

	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, err)

		return
	}

	u, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.fail(w, fmt.Errorf("register error: %w", err))

		return
	}

	writeJSON(w, http.StatusCreated, userResponse(u))
}

// (POST /users/token).
func (s *Server) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req authservice.LoginRequest

	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, err)

		return
	}

	token, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.fail(w, fmt.Errorf("login error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// (GET /users/me).
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userResponse(callerFrom(r.Context())))
}

// (PUT /users/me).
func (s *Server) PutMe(w http.ResponseWriter, r *http.Request) {
	s.updateMe(w, r, false)
}

// (PATCH /users/me).
func (s *Server) PatchMe(w http.ResponseWriter, r *http.Request) {
	s.updateMe(w, r, true)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request, partial bool) {
	var req authservice.UpdateUserRequest

	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, err)

		return
	}

	u, err := s.authService.UpdateUser(r.Context(), callerFrom(r.Context()), req, partial)
	if err != nil {
		s.fail(w, fmt.Errorf("update user error: %w", err))

		return
	}

	writeJSON(w, http.StatusOK, userResponse(u))
}
