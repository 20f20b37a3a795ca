// Package api provides the HTTP REST API server for the checklist service.
//
// # Overview
//
// Server exposes account registration, login, profile and role management,
// and checklist CRUD over gorilla/mux. Handlers are thin: they decode the
// request, hand the authenticated principal to pkg/users or pkg/checklists,
// and map the returned error onto a status code.
//
//	server := api.NewServer(loginService, userService, checklistService, issuer, logger,
//		api.WithMetrics(metrics),
//		api.WithRateLimit(limits),
//	)
//	http.ListenAndServe(":8080", server)
//
// # Authentication
//
// Every /api/v1 route runs behind middleware.AuthMiddleware in optional mode.
// Login and registration accept anonymous callers; all other routes require
// a valid bearer token and answer 401 without one. A presented token that
// fails validation is always rejected.
//
// # Errors
//
// Error bodies are {"error": "..."}; validation failures add a "details"
// array naming each rejected field.
//
//	auth.ErrInvalidCredentials  401 {"error":"not authorized"}
//	auth.ErrForbidden           403 with the policy's reason
//	auth.ErrNotFound            404
//	auth.ErrUserAlreadyExists   409
//	auth.ErrValidation          400
//	anything else               500, logged, generic body
//
// Access denials and account changes are written to the audit log.
package api
