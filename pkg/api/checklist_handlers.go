package api

import (
	"net/http"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/checklists"
	"github.com/platinummonkey/checklist/pkg/httputil"
	"github.com/platinummonkey/checklist/pkg/middleware"
)

func pathChecklistID(w http.ResponseWriter, r *http.Request) (checklists.ChecklistID, bool) {
	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	return checklists.ChecklistID(id), ok
}

// handleListChecklists handles GET /api/v1/checklists
func (s *Server) handleListChecklists(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := parsePage(w, r)
	if !ok {
		return
	}
	ownerUUID, err := httputil.ParseQueryUUID(r, "userId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var owner *auth.UserID
	if ownerUUID != nil {
		id := auth.UserID(*ownerUUID)
		owner = &id
	}

	list, err := s.checklists.List(r.Context(), middleware.GetPrincipal(r), owner, page, pageSize)
	if err != nil {
		s.writeServiceError(w, r, "checklist", "", err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// handleCreateChecklist handles POST /api/v1/checklists
func (s *Server) handleCreateChecklist(w http.ResponseWriter, r *http.Request) {
	var req checklists.Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	c, err := s.checklists.Create(r.Context(), middleware.GetPrincipal(r), req)
	if err != nil {
		s.writeServiceError(w, r, "checklist", "", err)
		return
	}
	httputil.WriteCreated(w, c)
}

// handleGetChecklist handles GET /api/v1/checklists/{id}
func (s *Server) handleGetChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathChecklistID(w, r)
	if !ok {
		return
	}

	c, err := s.checklists.Get(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		s.writeServiceError(w, r, "checklist", id.String(), err)
		return
	}
	httputil.WriteSuccess(w, c)
}

// handleUpdateChecklist handles PUT /api/v1/checklists/{id}
func (s *Server) handleUpdateChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathChecklistID(w, r)
	if !ok {
		return
	}
	var req checklists.Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	c, err := s.checklists.Update(r.Context(), middleware.GetPrincipal(r), id, req)
	if err != nil {
		s.writeServiceError(w, r, "checklist", id.String(), err)
		return
	}
	httputil.WriteSuccess(w, c)
}

// handleCompleteChecklist handles POST /api/v1/checklists/{id}/complete
func (s *Server) handleCompleteChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathChecklistID(w, r)
	if !ok {
		return
	}

	c, err := s.checklists.Complete(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		s.writeServiceError(w, r, "checklist", id.String(), err)
		return
	}
	httputil.WriteSuccess(w, c)
}

// handleDeleteChecklist handles DELETE /api/v1/checklists/{id}
func (s *Server) handleDeleteChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathChecklistID(w, r)
	if !ok {
		return
	}

	c, err := s.checklists.Delete(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		s.writeServiceError(w, r, "checklist", id.String(), err)
		return
	}
	httputil.WriteSuccess(w, c)
}
