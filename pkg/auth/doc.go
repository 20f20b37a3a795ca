// Package auth provides password verification, token issuance and access decisions
// for the checklist API.
//
// # Overview
//
// This package implements the authentication and authorization core: bcrypt password
// hashing, credential checks against a store, HS256 bearer tokens carrying identity and
// role claims, and the self-or-admin access policy applied before any data access.
//
// # Key Components
//
// Passwords: bcrypt with a configurable cost
//
//	hasher := auth.NewPasswordHasher(bcrypt.DefaultCost)
//	hash, salt, err := hasher.Hash("s3cret")
//	ok := hasher.Verify("s3cret", hash)
//
// Authentication: email + password against a CredentialStore
//
//	authenticator, err := auth.NewAuthenticator(store, hasher, logger)
//	user, err := authenticator.Authenticate(ctx, "alice@example.com", "s3cret")
//	// unknown email and wrong password both return ErrInvalidCredentials
//
// Tokens: signed with the key from TokenConfig, valid for DefaultTokenLifetime
//
//	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
//		SigningKey: key,
//		Issuer:     "checklist",
//		Audience:   "checklist-clients",
//	})
//	token, err := issuer.Issue(user, roles)
//	principal, err := issuer.Validate(token)
//
// Token payload:
//
//	sub, UserId  - user id
//	UserName     - email
//	role         - one entry per role (Admin, User)
//	iss, aud     - from TokenConfig
//	iat, exp     - exp = iat + lifetime
//
// # Access Policy
//
// Every protected operation asks the policy before touching the store:
//
//	policy := auth.NewAccessPolicy(auth.RoleAdmin)
//	if err := policy.Evaluate(principal, ownerID).Err(); err != nil {
//		return err // wraps ErrForbidden with the reason
//	}
//
// Roles form a closed set; ParseRole rejects anything other than Admin and User.
//
// # Login Flow
//
// LoginService ties the pieces together:
//
//	login := auth.NewLoginService(authenticator, roleResolver, issuer, logger)
//	token, err := login.Login(ctx, email, password)
//
// # Related Packages
//
//   - pkg/middleware: bearer token middleware placing the Principal in the request context
//   - pkg/storage/sqlstore: CredentialStore and RoleResolver implementations
//   - pkg/users, pkg/checklists: services enforcing the access policy
package auth
