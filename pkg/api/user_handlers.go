package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/httputil"
	"github.com/platinummonkey/checklist/pkg/middleware"
	"github.com/platinummonkey/checklist/pkg/users"
	"github.com/platinummonkey/checklist/pkg/validation"
)

func pathUserID(w http.ResponseWriter, r *http.Request) (auth.UserID, bool) {
	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	return auth.UserID(id), ok
}

// parsePage reads the page and pageSize query parameters
func parsePage(w http.ResponseWriter, r *http.Request) (page, pageSize int, ok bool) {
	page, err := httputil.ParseQueryInt(r, "page", validation.DefaultPage)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return 0, 0, false
	}
	pageSize, err = httputil.ParseQueryInt(r, "pageSize", validation.DefaultPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return 0, 0, false
	}
	return page, pageSize, true
}

// handleListUsers handles GET /api/v1/users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := parsePage(w, r)
	if !ok {
		return
	}

	list, err := s.users.List(r.Context(), middleware.GetPrincipal(r), page, pageSize)
	if err != nil {
		s.writeServiceError(w, r, "user", "", err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// handleGetUser handles GET /api/v1/users/{id}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}

	user, err := s.users.Get(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		s.writeServiceError(w, r, "user", id.String(), err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// handleUpdateUser handles PUT /api/v1/users/{id}
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req users.UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	principal := middleware.GetPrincipal(r)
	user, err := s.users.Update(r.Context(), principal, id, req)
	if err != nil {
		s.writeServiceError(w, r, "user", id.String(), err)
		return
	}

	s.audit.LogFromRequest(r, principal, auth.ActionUserUpdate, "user", id.String(), auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, user)
}

// handleDeleteUser handles DELETE /api/v1/users/{id}
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(r)
	user, err := s.users.Delete(r.Context(), principal, id)
	if err != nil {
		s.writeServiceError(w, r, "user", id.String(), err)
		return
	}

	s.audit.LogFromRequest(r, principal, auth.ActionUserDelete, "user", id.String(), auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, user)
}

// handleGetRoles handles GET /api/v1/users/{id}/roles
func (s *Server) handleGetRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}

	roles, err := s.users.Roles(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		s.writeServiceError(w, r, "role", id.String(), err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

// handleGrantRole handles PUT /api/v1/users/{id}/roles/{role}
func (s *Server) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	s.changeRole(w, r, auth.ActionRoleGrant, s.users.GrantRole)
}

// handleRevokeRole handles DELETE /api/v1/users/{id}/roles/{role}
func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	s.changeRole(w, r, auth.ActionRoleRevoke, s.users.RevokeRole)
}

type roleChange func(ctx context.Context, p *auth.Principal, id auth.UserID, role auth.Role) (*users.RolesResponse, error)

func (s *Server) changeRole(w http.ResponseWriter, r *http.Request, action string, change roleChange) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	role, err := auth.ParseRole(mux.Vars(r)["role"])
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	principal := middleware.GetPrincipal(r)
	roles, err := change(r.Context(), principal, id, role)
	if err != nil {
		s.writeServiceError(w, r, "role", id.String(), err)
		return
	}

	s.audit.LogFromRequest(r, principal, action, "role", id.String()+"/"+role.String(), auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, roles)
}
