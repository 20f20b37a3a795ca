package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/httputil"
	"github.com/platinummonkey/checklist/pkg/middleware"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/validation"
)

// msgNotAuthorized is the only detail a failed login reveals
const msgNotAuthorized = "not authorized"

// writeServiceError maps a service error onto a status code and body.
// Anything unrecognised is logged and answered with a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, resourceType, resourceID string, err error) {
	var verr *validation.Error

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, msgNotAuthorized)
	case errors.Is(err, auth.ErrInvalidToken):
		httputil.WriteUnauthorized(w, "invalid or expired token")
	case errors.Is(err, auth.ErrForbidden):
		s.audit.LogFromRequest(r, middleware.GetPrincipal(r), auth.ActionAccessDenied, resourceType, resourceID, auth.StatusDenied, err)
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, auth.ErrUserAlreadyExists):
		httputil.WriteConflict(w, err.Error())
	case errors.As(err, &verr):
		httputil.WriteDetailedError(w, http.StatusBadRequest, auth.ErrValidation.Error(), verr.Fields)
	case errors.Is(err, auth.ErrValidation):
		httputil.WriteBadRequest(w, err.Error())
	default:
		observability.FromContextOr(r.Context(), s.logger).
			WithError(err).
			WithFields(map[string]interface{}{
				"method":        r.Method,
				"path":          r.URL.Path,
				"resource_type": resourceType,
			}).
			Error("Request failed")
		httputil.WriteInternalError(w)
	}
}
