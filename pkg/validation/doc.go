// Package validation checks request fields before they reach a store.
//
// A Validator accumulates every failed rule for a request so clients see all
// problems at once:
//
//	err := validation.NewValidator().
//		RequiredMaxLen("firstName", req.FirstName, 100).
//		Email("email", req.Email).
//		Err()
//	if errors.Is(err, auth.ErrValidation) {
//		// 400
//	}
//
// Page converts the 1-based page/pageSize query parameters used by list
// endpoints into an offset and limit, enforcing MaxPageSize.
package validation
