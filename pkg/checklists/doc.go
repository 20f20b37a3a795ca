// Package checklists implements checklist management for the API.
//
// A checklist belongs to the user who created it. Owners and admins may read,
// change, complete, and delete it; everyone else gets auth.ErrForbidden. The
// owner is taken from the stored row, never from the request body.
package checklists
