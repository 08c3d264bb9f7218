package auth

import (
	"strings"

	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Decide is the single capability check for callsign-scoped resources:
// Allow iff the session belongs to an admin or its callsign matches the
// requested one (case-insensitive). A Deny must surface to clients as
// "not found", never "forbidden", so callsigns cannot be enumerated.
func Decide(sc *models.SessionContext, callsign string) Decision {
	if sc == nil {
		return Deny
	}
	if sc.IsAdmin {
		return Allow
	}
	if sc.Callsign != nil && strings.EqualFold(*sc.Callsign, callsign) {
		return Allow
	}
	return Deny
}

// IsAdmin is the secondary guard for the admin-only surface (user
// management, global callsign CRUD, audit viewing). Unlike Decide, a
// violation here may surface explicitly as 403 since the admin namespace is
// not enumerable.
func IsAdmin(sc *models.SessionContext) bool {
	return sc != nil && sc.IsAdmin
}
