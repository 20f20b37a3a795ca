package auth

import "fmt"

// Decision is the outcome of an access check
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allow and an ErrForbidden wrapping the reason for a deny
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

func allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Access policy actions reported to a Recorder
const (
	ActionAccessOwned = "access_owned"
	ActionListUsers   = "list_users"
	ActionAdminister  = "administer"
)

// AccessPolicy decides whether a principal may act on a resource
type AccessPolicy struct {
	// ListUsersRole is the role required to enumerate accounts
	ListUsersRole Role

	recorder Recorder
}

// NewAccessPolicy creates a policy. An invalid listUsersRole falls back to RoleAdmin.
func NewAccessPolicy(listUsersRole Role) *AccessPolicy {
	if !listUsersRole.Valid() {
		listUsersRole = RoleAdmin
	}
	return &AccessPolicy{ListUsersRole: listUsersRole, recorder: nopRecorder{}}
}

// WithRecorder sets the recorder that receives decisions
func (ap *AccessPolicy) WithRecorder(r Recorder) *AccessPolicy {
	if r != nil {
		ap.recorder = r
	}
	return ap
}

// Evaluate allows an Admin, or the principal whose id equals ownerID
func (ap *AccessPolicy) Evaluate(p *Principal, ownerID UserID) Decision {
	d := ap.evaluate(p, ownerID)
	ap.record(ActionAccessOwned, d)
	return d
}

func (ap *AccessPolicy) evaluate(p *Principal, ownerID UserID) Decision {
	if p == nil {
		return deny("authentication required")
	}
	if p.IsAdmin() {
		return allow("caller is an administrator")
	}
	if !ownerID.IsZero() && p.UserID == ownerID {
		return allow("caller owns the resource")
	}
	return deny("caller is neither the owner nor an administrator")
}

// CanListUsers allows principals holding ListUsersRole. Admins always may.
func (ap *AccessPolicy) CanListUsers(p *Principal) Decision {
	var d Decision
	switch {
	case p == nil:
		d = deny("authentication required")
	case p.IsAdmin():
		d = allow("caller is an administrator")
	case p.HasRole(ap.listUsersRole()):
		d = allow(fmt.Sprintf("caller holds %s", ap.listUsersRole()))
	default:
		d = deny(fmt.Sprintf("listing users requires the %s role", ap.listUsersRole()))
	}
	ap.record(ActionListUsers, d)
	return d
}

// RequireAdmin allows only administrators
func (ap *AccessPolicy) RequireAdmin(p *Principal) Decision {
	d := deny("administrator role required")
	if p == nil {
		d = deny("authentication required")
	} else if p.IsAdmin() {
		d = allow("caller is an administrator")
	}
	ap.record(ActionAdminister, d)
	return d
}

func (ap *AccessPolicy) listUsersRole() Role {
	if !ap.ListUsersRole.Valid() {
		return RoleAdmin
	}
	return ap.ListUsersRole
}

func (ap *AccessPolicy) record(action string, d Decision) {
	if ap.recorder != nil {
		ap.recorder.RecordAccessDecision(action, d.Allowed)
	}
}
