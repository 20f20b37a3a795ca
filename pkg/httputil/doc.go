// Package httputil provides HTTP helpers shared by the API handlers: JSON
// encoding and decoding, {"error": "..."} responses, path and query parsing,
// and the request id, logging, and recovery middleware.
//
// Responses:
//
//	httputil.WriteSuccess(w, user)
//	httputil.WriteCreated(w, checklist)
//	httputil.WriteForbidden(w, "forbidden: not the owner")
//
// Requests:
//
//	var req users.RegistrationRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathUUIDOrError(w, r, "id")
//	page, err := httputil.ParseQueryInt(r, "page", 1)
//
// Middleware:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
package httputil
