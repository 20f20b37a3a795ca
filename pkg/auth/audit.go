package auth

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/checklist/pkg/observability"
)

// AuditLog is a security audit record
type AuditLog struct {
	UserID       *UserID   `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLogger writes security audit records to the structured log
type AuditLogger struct {
	logger *observability.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &AuditLogger{logger: logger.WithField("component", "audit")}
}

// LogAction records an audit event
func (al *AuditLogger) LogAction(log *AuditLog) error {
	if log.Action == "" {
		return fmt.Errorf("action is required")
	}
	if log.ResourceType == "" {
		return fmt.Errorf("resource_type is required")
	}
	if log.Status == "" {
		return fmt.Errorf("status is required")
	}

	log.CreatedAt = time.Now().UTC()

	fields := map[string]interface{}{
		"action":        log.Action,
		"resource_type": log.ResourceType,
		"status":        log.Status,
	}
	if log.UserID != nil {
		fields["actor_id"] = log.UserID.String()
	}
	if log.ResourceID != "" {
		fields["resource_id"] = log.ResourceID
	}
	if log.IPAddress != "" {
		fields["ip_address"] = log.IPAddress
	}
	if log.UserAgent != "" {
		fields["user_agent"] = log.UserAgent
	}
	if log.ErrorMessage != "" {
		fields["error_message"] = log.ErrorMessage
	}

	entry := al.logger.WithFields(fields)
	if log.Status == StatusSuccess {
		entry.Info("audit")
	} else {
		entry.Warn("audit")
	}
	return nil
}

// LogFromRequest creates an audit record from an HTTP request. actor may be nil
// for anonymous requests.
func (al *AuditLogger) LogFromRequest(r *http.Request, actor *Principal, action, resourceType, resourceID, status string, err error) error {
	log := &AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ClientIP(r),
		UserAgent:    r.UserAgent(),
		Status:       status,
	}

	if actor != nil {
		id := actor.UserID
		log.UserID = &id
	}

	if err != nil {
		log.ErrorMessage = err.Error()
	}

	return al.LogAction(log)
}

// ClientIP returns the caller address, preferring proxy headers
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Audit actions
const (
	ActionLogin        = "auth.login"
	ActionRegister     = "user.register"
	ActionUserUpdate   = "user.update"
	ActionUserDelete   = "user.delete"
	ActionRoleGrant    = "role.grant"
	ActionRoleRevoke   = "role.revoke"
	ActionAccessDenied = "access.denied"
)

// Audit statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)
