// Package cli implements checklist-admin, the operator tool for the checklist
// service database.
//
// # Commands
//
// migrate: Apply pending schema migrations
//
//	checklist-admin migrate
//
// create-admin: Register an account and grant it the Admin role. The password
// is prompted for twice and never taken from a flag.
//
//	checklist-admin create-admin \
//		-email root@example.com \
//		-first Root \
//		-last Admin \
//		-phone 5550000
//
// grant-role / revoke-role: Change the roles of an existing account. The User
// role cannot be revoked.
//
//	checklist-admin grant-role -email jane@example.com -role Admin
//
// roles: Show the roles an account holds
//
//	checklist-admin roles -email jane@example.com
//
// # Configuration
//
// The database is selected the same way as for the API server, through
// CHECKLIST_CONFIG_FILE and the CHECKLIST_* environment variables, so the
// signing key must be set here too.
package cli
