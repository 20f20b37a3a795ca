package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/httputil"
	"github.com/platinummonkey/checklist/pkg/users"
)

// handleLogin handles POST /api/v1/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.UserName == "" || req.Password == "" {
		httputil.WriteUnauthorized(w, msgNotAuthorized)
		return
	}

	token, err := s.login.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.audit.LogFromRequest(r, nil, auth.ActionLogin, "user", "", auth.StatusFailure, err)
		}
		s.writeServiceError(w, r, "user", "", err)
		return
	}

	s.audit.LogFromRequest(r, nil, auth.ActionLogin, "user", "", auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, TokenResponse{Token: token})
}

// handleRegister handles POST /api/v1/users/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req users.RegistrationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.users.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, "user", "", err)
		return
	}

	s.audit.LogFromRequest(r, nil, auth.ActionRegister, "user", user.ID.String(), auth.StatusSuccess, nil)
	httputil.WriteCreated(w, user)
}
