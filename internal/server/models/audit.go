package models

import "time"

// Audit actions. The action field is always one of these categorical values;
// free-text context goes into Details.
const (
	ActionLogin                  = "login"
	ActionLoginFailed            = "login-failed"
	ActionLogout                 = "logout"
	ActionPasswordChanged        = "password-changed"
	ActionGeneratorAccessGranted = "generator-access-granted"
	ActionGeneratorAccessDenied  = "generator-access-denied"
	ActionCardGenerated          = "card-generated"
	ActionCardUploaded           = "card-uploaded"
	ActionBackgroundUploaded     = "background-uploaded"
	ActionBackgroundDeleted      = "background-deleted"
	ActionUserCreated            = "user-created"
	ActionUserUpdated            = "user-updated"
	ActionUserDeleted            = "user-deleted"
	ActionCallsignCreated        = "callsign-created"
	ActionCallsignUpdated        = "callsign-updated"
	ActionCallsignDeleted        = "callsign-deleted"
)

// AuditEntry is one append-only record of a privileged or security-relevant
// action. Rows are never mutated or deleted by normal operation.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	UserID     *string
	Username   *string
	Callsign   *string
	Action     string
	Details    string
	SourceAddr string
}
